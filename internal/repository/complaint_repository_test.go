package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/complaint-desk-api/internal/models"
)

var complaintRowColumns = []string{"id", "student_id", "complaint_type", "course_code", "course_title", "session", "semester", "level", "description", "status", "expected_grade", "current_grade", "admin_notes", "created_at", "date_submitted", "last_updated", "resolved_at", "student_name", "student_matric", "student_email"}

func complaintRow(id, studentID string, now time.Time) []driver.Value {
	return []driver.Value{id, studentID, "missing_grade", "CSC 201", "Data Structures", "2025/2026", "first", "200", "Grade missing", "pending", nil, nil, nil, now, now, now, nil, "Ada Obi", "CSC/2019/001", "ada@uni.edu"}
}

func TestFindForStudentAppliesOwnership(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.id = $1 AND c.student_id = $2 LIMIT 1")).
		WithArgs("c-1", "s-1").
		WillReturnRows(sqlmock.NewRows(complaintRowColumns).AddRow(complaintRow("c-1", "s-1", now)...))

	row, err := repo.FindForStudent(context.Background(), "c-1", "s-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Obi", row.StudentName)
	assert.Equal(t, models.StatusPending, row.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindForStudentForeignComplaintIsNoRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.id = $1 AND c.student_id = $2")).
		WithArgs("c-1", "intruder").
		WillReturnRows(sqlmock.NewRows(complaintRowColumns))

	_, err := repo.FindForStudent(context.Background(), "c-1", "intruder")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListComplaintsBuildsFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	now := time.Now()
	filter := models.ComplaintFilter{
		Search:    "CSC",
		Statuses:  []models.ComplaintStatus{models.StatusPending, models.StatusInProgress},
		Types:     []models.ComplaintType{models.TypeMissingGrade},
		Levels:    []string{"200"},
		SortBy:    "course_code",
		SortOrder: "asc",
		Page:      2,
		PageSize:  10,
	}

	mock.ExpectQuery(regexp.QuoteMeta("c.status IN ($2, $3) AND c.complaint_type IN ($4) AND c.level IN ($5) ORDER BY c.course_code ASC, c.id LIMIT 10 OFFSET 10")).
		WithArgs("%csc%", "pending", "in_progress", "missing_grade", "200").
		WillReturnRows(sqlmock.NewRows(complaintRowColumns).AddRow(complaintRow("c-1", "s-1", now)...))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM complaints c JOIN profiles p ON p.id = c.student_id WHERE")).
		WithArgs("%csc%", "pending", "in_progress", "missing_grade", "200").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	rows, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListComplaintsRejectsUnknownSort(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY c.date_submitted DESC, c.id LIMIT 20 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows(complaintRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.ComplaintFilter{SortBy: "password; DROP TABLE"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusMissingComplaint(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE complaints SET status = $2, admin_notes = COALESCE($3, admin_notes), last_updated = $4, resolved_at = COALESCE($5, resolved_at) WHERE id = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), models.StatusChange{ComplaintID: "ghost", Status: models.StatusResolved, ChangedAt: time.Now()})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshot(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, status, complaint_type, created_at, date_submitted, resolved_at FROM complaints")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "complaint_type", "created_at", "date_submitted", "resolved_at"}).
			AddRow("c-1", "resolved", "result_error", now, now, now))

	rows, err := repo.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.NotNil(t, rows[0].ResolvedAt)
}

func TestCountByStatusForStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY status")).
		WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "total"}).AddRow("pending", 2).AddRow("resolved", 1))

	counts, err := repo.CountByStatusForStudent(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, 2, counts[models.StatusPending])
	assert.Equal(t, 1, counts[models.StatusResolved])
}

func TestListResponsesHidesInternalForStudents(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResponseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE r.complaint_id = $1 AND r.is_internal = FALSE ORDER BY r.created_at ASC")).
		WithArgs("c-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "complaint_id", "admin_id", "admin_name", "response_text", "is_internal", "created_at"}))

	out, err := repo.ListByComplaint(context.Background(), "c-1", false)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}
