package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/dto"
	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
)

const (
	seriesDays        = 30
	studentRecentRows = 5
	dayLayout         = "2006-01-02"
)

type dashboardComplaintSource interface {
	Snapshot(ctx context.Context) ([]models.ComplaintSnapshot, error)
	CountByStatusForStudent(ctx context.Context, studentID string) (map[models.ComplaintStatus]int, error)
	List(ctx context.Context, filter models.ComplaintFilter) ([]models.ComplaintRow, int, error)
}

type studentCounter interface {
	CountByRole(ctx context.Context, role models.Role) (int, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
	Location *time.Location
}

// DashboardService composes the admin and student dashboards.
type DashboardService struct {
	complaints dashboardComplaintSource
	profiles   studentCounter
	cache      *CacheService
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time
	cfg        DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Complaints dashboardComplaintSource
	Profiles   studentCounter
	Cache      *CacheService
	Metrics    *MetricsService
	Logger     *zap.Logger
	Config     DashboardServiceConfig
}

func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = CacheTTLMedium
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		complaints: params.Complaints,
		profiles:   params.Profiles,
		cache:      params.Cache,
		metrics:    params.Metrics,
		logger:     logger,
		now:        time.Now,
		cfg:        cfg,
	}
}

// Admin returns the aggregated admin dashboard and whether it came from cache.
func (s *DashboardService) Admin(ctx context.Context) (*dto.AdminDashboard, bool, error) {
	var summary dto.AdminDashboard
	hit, err := s.cache.GetOrFetch(ctx, CacheKeyAdminDashboard, s.cfg.CacheTTL, &summary, func(ctx context.Context) (interface{}, error) {
		return s.composeAdmin(ctx)
	})
	if err != nil {
		return nil, false, err
	}
	return &summary, hit, nil
}

func (s *DashboardService) composeAdmin(ctx context.Context) (dto.AdminDashboard, error) {
	start := time.Now()
	snapshot, err := s.complaints.Snapshot(ctx)
	s.metrics.ObserveDBQuery("complaint_snapshot", time.Since(start))
	if err != nil {
		return dto.AdminDashboard{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load complaints")
	}

	students, err := s.profiles.CountByRole(ctx, models.RoleStudent)
	if err != nil {
		return dto.AdminDashboard{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}

	return Aggregate(snapshot, students, s.now(), s.cfg.Location), nil
}

// Aggregate is the pure admin dashboard computation. Days are calendar days in loc.
func Aggregate(snapshot []models.ComplaintSnapshot, totalStudents int, now time.Time, loc *time.Location) dto.AdminDashboard {
	if loc == nil {
		loc = time.UTC
	}

	byStatus := make(map[models.ComplaintStatus]int, len(models.ComplaintStatuses))
	byType := make(map[models.ComplaintType]int, len(models.ComplaintTypes))
	byDay := make(map[string]int)
	var resolvedDays float64
	var resolvedCount int

	for _, c := range snapshot {
		byStatus[c.Status]++
		byType[c.ComplaintType]++
		byDay[c.CreatedAt.In(loc).Format(dayLayout)]++
		if c.Status == models.StatusResolved && c.ResolvedAt != nil {
			resolvedDays += c.ResolvedAt.Sub(c.DateSubmitted).Hours() / 24
			resolvedCount++
		}
	}

	out := dto.AdminDashboard{
		Stats: dto.DashboardStats{
			TotalComplaints:      len(snapshot),
			PendingComplaints:    byStatus[models.StatusPending],
			InProgressComplaints: byStatus[models.StatusInProgress],
			ResolvedComplaints:   byStatus[models.StatusResolved],
			RejectedComplaints:   byStatus[models.StatusRejected],
			TotalStudents:        totalStudents,
		},
		CountsByStatus:   make([]dto.LabelCount, 0, len(models.ComplaintStatuses)),
		CountsByType:     make([]dto.LabelCount, 0, len(models.ComplaintTypes)),
		Last30DaysSeries: make([]dto.DayCount, 0, seriesDays),
		GeneratedAt:      now.UTC(),
	}
	for _, st := range models.ComplaintStatuses {
		out.CountsByStatus = append(out.CountsByStatus, dto.LabelCount{Label: string(st), Count: byStatus[st]})
	}
	for _, t := range models.ComplaintTypes {
		out.CountsByType = append(out.CountsByType, dto.LabelCount{Label: string(t), Count: byType[t]})
	}

	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	for i := seriesDays - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i).Format(dayLayout)
		out.Last30DaysSeries = append(out.Last30DaysSeries, dto.DayCount{Date: day, Count: byDay[day]})
	}

	if resolvedCount > 0 {
		out.AvgResolutionDays = resolvedDays / float64(resolvedCount)
	}
	return out
}

// Student returns one student's counts and most recent complaints.
func (s *DashboardService) Student(ctx context.Context, studentID string) (*dto.StudentDashboard, bool, error) {
	if studentID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	var summary dto.StudentDashboard
	hit, err := s.cache.GetOrFetch(ctx, fmt.Sprintf(CacheKeyStudentDashboard, studentID), CacheTTLShort, &summary, func(ctx context.Context) (interface{}, error) {
		return s.composeStudent(ctx, studentID)
	})
	if err != nil {
		return nil, false, err
	}
	return &summary, hit, nil
}

func (s *DashboardService) composeStudent(ctx context.Context, studentID string) (dto.StudentDashboard, error) {
	counts, err := s.complaints.CountByStatusForStudent(ctx, studentID)
	if err != nil {
		return dto.StudentDashboard{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count complaints")
	}
	recent, _, err := s.complaints.List(ctx, models.ComplaintFilter{
		StudentID: studentID,
		SortBy:    "date_submitted",
		SortOrder: "desc",
		Page:      1,
		PageSize:  studentRecentRows,
	})
	if err != nil {
		return dto.StudentDashboard{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent complaints")
	}

	out := dto.StudentDashboard{
		Pending:    counts[models.StatusPending],
		InProgress: counts[models.StatusInProgress],
		Resolved:   counts[models.StatusResolved],
		Rejected:   counts[models.StatusRejected],
		Recent:     make([]dto.StudentRecentRow, 0, len(recent)),
	}
	out.Total = out.Pending + out.InProgress + out.Resolved + out.Rejected
	for _, row := range recent {
		out.Recent = append(out.Recent, dto.StudentRecentRow{
			ID:            row.ID,
			CourseCode:    row.CourseCode,
			ComplaintType: string(row.ComplaintType),
			Status:        string(row.Status),
			DateSubmitted: row.DateSubmitted,
		})
	}
	return out, nil
}
