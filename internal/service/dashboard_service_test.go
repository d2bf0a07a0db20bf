package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/dto"
	"github.com/noah-isme/complaint-desk-api/internal/models"
	"github.com/noah-isme/complaint-desk-api/internal/repository"
)

type dashboardSourceStub struct {
	snapshot      []models.ComplaintSnapshot
	snapshotErr   error
	snapshotCalls int
	counts        map[models.ComplaintStatus]int
	recent        []models.ComplaintRow
	lastFilter    models.ComplaintFilter
}

func (s *dashboardSourceStub) Snapshot(context.Context) ([]models.ComplaintSnapshot, error) {
	s.snapshotCalls++
	return s.snapshot, s.snapshotErr
}

func (s *dashboardSourceStub) CountByStatusForStudent(context.Context, string) (map[models.ComplaintStatus]int, error) {
	return s.counts, nil
}

func (s *dashboardSourceStub) List(_ context.Context, filter models.ComplaintFilter) ([]models.ComplaintRow, int, error) {
	s.lastFilter = filter
	return s.recent, len(s.recent), nil
}

type studentCountStub int

func (s studentCountStub) CountByRole(context.Context, models.Role) (int, error) {
	return int(s), nil
}

func TestAggregateEmptySnapshot(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	out := Aggregate(nil, 12, now, time.UTC)

	assert.Zero(t, out.Stats.TotalComplaints)
	assert.Equal(t, 12, out.Stats.TotalStudents)
	assert.Zero(t, out.AvgResolutionDays)
	require.Len(t, out.CountsByStatus, 4)
	require.Len(t, out.CountsByType, 5)
	for _, c := range append(out.CountsByStatus, out.CountsByType...) {
		assert.Zero(t, c.Count)
	}
	require.Len(t, out.Last30DaysSeries, 30)
	assert.Equal(t, "2024-02-15", out.Last30DaysSeries[0].Date)
	assert.Equal(t, "2024-03-15", out.Last30DaysSeries[29].Date)
}

func TestAggregateCountsSeriesAndResolution(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	submitted := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	resolved := submitted.Add(36 * time.Hour)
	resolvedLater := submitted.Add(60 * time.Hour)

	snapshot := []models.ComplaintSnapshot{
		{ID: "1", Status: models.StatusPending, ComplaintType: models.TypeOther, CreatedAt: now.Add(-time.Hour), DateSubmitted: now},
		{ID: "2", Status: models.StatusResolved, ComplaintType: models.TypeMissingGrade, CreatedAt: submitted, DateSubmitted: submitted, ResolvedAt: &resolved},
		{ID: "3", Status: models.StatusResolved, ComplaintType: models.TypeMissingGrade, CreatedAt: submitted, DateSubmitted: submitted, ResolvedAt: &resolvedLater},
		{ID: "4", Status: models.StatusResolved, ComplaintType: models.TypeResultError, CreatedAt: submitted, DateSubmitted: submitted},
		{ID: "5", Status: models.StatusRejected, ComplaintType: models.TypeOther, CreatedAt: now.AddDate(0, -3, 0), DateSubmitted: now.AddDate(0, -3, 0), ResolvedAt: &resolved},
	}

	out := Aggregate(snapshot, 3, now, time.UTC)

	assert.Equal(t, 5, out.Stats.TotalComplaints)
	assert.Equal(t, 1, out.Stats.PendingComplaints)
	assert.Equal(t, 3, out.Stats.ResolvedComplaints)
	assert.Equal(t, 1, out.Stats.RejectedComplaints)
	assert.Equal(t, "pending", out.CountsByStatus[0].Label)
	assert.Equal(t, 3, out.CountsByStatus[2].Count)
	assert.Equal(t, "missing_grade", out.CountsByType[0].Label)
	assert.Equal(t, 2, out.CountsByType[0].Count)
	assert.Equal(t, 2, out.CountsByType[4].Count)

	assert.InDelta(t, 2.0, out.AvgResolutionDays, 1e-9)

	total := 0
	for _, p := range out.Last30DaysSeries {
		total += p.Count
	}
	assert.Equal(t, 4, total, "rows older than the window are excluded")
	assert.Equal(t, 1, out.Last30DaysSeries[29].Count)
	assert.Equal(t, "2024-03-10", out.Last30DaysSeries[24].Date)
	assert.Equal(t, 3, out.Last30DaysSeries[24].Count)
}

func TestAggregateBucketsByLocalDay(t *testing.T) {
	lagos := time.FixedZone("WAT", 3600)
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, lagos)
	lateUTC := time.Date(2024, 3, 14, 23, 30, 0, 0, time.UTC)

	out := Aggregate([]models.ComplaintSnapshot{{ID: "1", Status: models.StatusPending, CreatedAt: lateUTC, DateSubmitted: lateUTC}}, 0, now, lagos)

	assert.Equal(t, "2024-03-15", out.Last30DaysSeries[29].Date)
	assert.Equal(t, 1, out.Last30DaysSeries[29].Count)
	assert.Equal(t, 0, out.Last30DaysSeries[28].Count)
}

func TestDashboardServiceAdminUsesCache(t *testing.T) {
	source := &dashboardSourceStub{snapshot: []models.ComplaintSnapshot{{ID: "1", Status: models.StatusPending, CreatedAt: time.Now()}}}
	cache := NewCacheService(repository.NewMemoryCacheRepository(), nil, time.Minute, zap.NewNop(), true)
	svc := NewDashboardService(DashboardServiceParams{Complaints: source, Profiles: studentCountStub(7), Cache: cache})

	first, hit, err := svc.Admin(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 7, first.Stats.TotalStudents)

	second, hit, err := svc.Admin(context.Background())
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first.Stats, second.Stats)
	assert.Equal(t, 1, source.snapshotCalls)

	require.NoError(t, cache.Invalidate(context.Background(), CachePatternDashboards))
	_, hit, err = svc.Admin(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, source.snapshotCalls)
}

func TestDashboardServiceAdminError(t *testing.T) {
	source := &dashboardSourceStub{snapshotErr: errors.New("db down")}
	svc := NewDashboardService(DashboardServiceParams{Complaints: source, Profiles: studentCountStub(0)})

	_, _, err := svc.Admin(context.Background())
	assert.Error(t, err)
}

func TestDashboardServiceStudent(t *testing.T) {
	source := &dashboardSourceStub{
		counts: map[models.ComplaintStatus]int{models.StatusPending: 2, models.StatusResolved: 1},
		recent: []models.ComplaintRow{{Complaint: models.Complaint{ID: "c1", CourseCode: "CSC201", Status: models.StatusPending}}},
	}
	svc := NewDashboardService(DashboardServiceParams{Complaints: source, Profiles: studentCountStub(0)})

	out, _, err := svc.Student(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, out.Total)
	assert.Equal(t, 2, out.Pending)
	require.Len(t, out.Recent, 1)
	assert.Equal(t, "CSC201", out.Recent[0].CourseCode)
	assert.Equal(t, "s1", source.lastFilter.StudentID)
	assert.Equal(t, 5, source.lastFilter.PageSize)

	_, _, err = svc.Student(context.Background(), "")
	assert.Error(t, err)
}

func TestAggregateSingleResolutionAverage(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	submitted := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	resolved := submitted.Add(84 * time.Hour)

	out := Aggregate([]models.ComplaintSnapshot{
		{ID: "1", Status: models.StatusResolved, ComplaintType: models.TypeResultError, CreatedAt: submitted, DateSubmitted: submitted, ResolvedAt: &resolved},
	}, 1, now, time.UTC)

	assert.Equal(t, 3.5, out.AvgResolutionDays)
}

func TestSubmittedThenResolvedComplaintShowsOnDashboard(t *testing.T) {
	row := pendingComplaint("c1", "s1")
	f := newComplaintFixture(row)

	_, err := f.svc.UpdateStatus(context.Background(), "c1", dto.UpdateStatusRequest{Status: string(models.StatusResolved)})
	require.NoError(t, err)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "s1", f.notifier.sent[0].UserID)
	assert.Equal(t, models.NotificationComplaintUpdated, f.notifier.sent[0].Type)

	stored := f.repo.rows["c1"]
	out := Aggregate([]models.ComplaintSnapshot{{
		ID:            stored.ID,
		Status:        stored.Status,
		ComplaintType: stored.ComplaintType,
		CreatedAt:     stored.CreatedAt,
		DateSubmitted: stored.DateSubmitted,
		ResolvedAt:    stored.ResolvedAt,
	}}, 1, fixedNow, time.UTC)

	assert.Equal(t, 1, out.Stats.ResolvedComplaints)
	assert.Zero(t, out.Stats.PendingComplaints)
	require.Len(t, out.Last30DaysSeries, 30)

	created := stored.CreatedAt.Format("2006-01-02")
	total := 0
	for _, point := range out.Last30DaysSeries {
		total += point.Count
		if point.Date == created {
			assert.Equal(t, 1, point.Count)
		}
	}
	assert.Equal(t, 1, total)
}
