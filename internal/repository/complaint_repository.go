package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/complaint-desk-api/internal/models"
)

const complaintRowSelect = `SELECT c.id, c.student_id, c.complaint_type, c.course_code, c.course_title, c.session, c.semester, c.level, c.description, c.status, c.expected_grade, c.current_grade, c.admin_notes, c.created_at, c.date_submitted, c.last_updated, c.resolved_at, p.full_name AS student_name, p.matric_number AS student_matric, p.email AS student_email FROM complaints c JOIN profiles p ON p.id = c.student_id`

// MaxExportRows caps unpaginated listings.
const MaxExportRows = 5000

// ComplaintRepository persists complaints. Rows are never deleted.
type ComplaintRepository struct {
	db *sqlx.DB
}

func NewComplaintRepository(db *sqlx.DB) *ComplaintRepository {
	return &ComplaintRepository{db: db}
}

// Create inserts c. DateSubmitted and LastUpdated default to CreatedAt.
func (r *ComplaintRepository) Create(ctx context.Context, c *models.Complaint) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.DateSubmitted.IsZero() {
		c.DateSubmitted = c.CreatedAt
	}
	if c.LastUpdated.IsZero() {
		c.LastUpdated = c.CreatedAt
	}

	const query = `INSERT INTO complaints (id, student_id, complaint_type, course_code, course_title, session, semester, level, description, status, expected_grade, current_grade, admin_notes, created_at, date_submitted, last_updated, resolved_at) VALUES (:id, :student_id, :complaint_type, :course_code, :course_title, :session, :semester, :level, :description, :status, :expected_grade, :current_grade, :admin_notes, :created_at, :date_submitted, :last_updated, :resolved_at)`
	if _, err := r.db.NamedExecContext(ctx, query, c); err != nil {
		return fmt.Errorf("create complaint: %w", err)
	}
	return nil
}

func (r *ComplaintRepository) FindByID(ctx context.Context, id string) (*models.ComplaintRow, error) {
	var row models.ComplaintRow
	if err := r.db.GetContext(ctx, &row, complaintRowSelect+` WHERE c.id = $1 LIMIT 1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find complaint: %w", err)
	}
	return &row, nil
}

// FindForStudent applies the ownership filter in the query itself, so another
// student's complaint and a missing one both yield sql.ErrNoRows.
func (r *ComplaintRepository) FindForStudent(ctx context.Context, id, studentID string) (*models.ComplaintRow, error) {
	var row models.ComplaintRow
	if err := r.db.GetContext(ctx, &row, complaintRowSelect+` WHERE c.id = $1 AND c.student_id = $2 LIMIT 1`, id, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student complaint: %w", err)
	}
	return &row, nil
}

var complaintSorts = map[string]string{
	"date_submitted": "c.date_submitted",
	"last_updated":   "c.last_updated",
	"created_at":     "c.created_at",
	"course_code":    "c.course_code",
	"status":         "c.status",
}

func buildComplaintWhere(filter models.ComplaintFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	next := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.StudentID != "" {
		conditions = append(conditions, "c.student_id = "+next(filter.StudentID))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		p := next("%" + strings.ToLower(s) + "%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(c.course_code) LIKE %[1]s OR LOWER(c.course_title) LIKE %[1]s OR LOWER(c.description) LIKE %[1]s OR LOWER(p.full_name) LIKE %[1]s OR LOWER(COALESCE(p.matric_number, '')) LIKE %[1]s)", p))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			placeholders[i] = next(string(s))
		}
		conditions = append(conditions, "c.status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			placeholders[i] = next(string(t))
		}
		conditions = append(conditions, "c.complaint_type IN ("+strings.Join(placeholders, ", ")+")")
	}
	if len(filter.Levels) > 0 {
		placeholders := make([]string, len(filter.Levels))
		for i, l := range filter.Levels {
			placeholders[i] = next(l)
		}
		conditions = append(conditions, "c.level IN ("+strings.Join(placeholders, ", ")+")")
	}
	if len(filter.IDs) > 0 {
		placeholders := make([]string, len(filter.IDs))
		for i, id := range filter.IDs {
			placeholders[i] = next(id)
		}
		conditions = append(conditions, "c.id IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.From != nil {
		conditions = append(conditions, "c.date_submitted >= "+next(*filter.From))
	}
	if filter.To != nil {
		conditions = append(conditions, "c.date_submitted <= "+next(*filter.To))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func complaintOrder(filter models.ComplaintFilter) string {
	column, ok := complaintSorts[filter.SortBy]
	if !ok {
		column = "c.date_submitted"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, c.id", column, order)
}

// List returns one page of complaints matching filter with the total count.
func (r *ComplaintRepository) List(ctx context.Context, filter models.ComplaintFilter) ([]models.ComplaintRow, int, error) {
	where, args := buildComplaintWhere(filter)
	page, pageSize := normalizePage(filter.Page, filter.PageSize)

	listQuery := complaintRowSelect + where + complaintOrder(filter) + fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize)
	rows := []models.ComplaintRow{}
	if err := r.db.SelectContext(ctx, &rows, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list complaints: %w", err)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM complaints c JOIN profiles p ON p.id = c.student_id` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count complaints: %w", err)
	}
	return rows, total, nil
}

// ListAll returns up to MaxExportRows complaints matching filter, ignoring paging.
func (r *ComplaintRepository) ListAll(ctx context.Context, filter models.ComplaintFilter) ([]models.ComplaintRow, error) {
	where, args := buildComplaintWhere(filter)
	query := complaintRowSelect + where + complaintOrder(filter) + fmt.Sprintf(" LIMIT %d", MaxExportRows)
	rows := []models.ComplaintRow{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list all complaints: %w", err)
	}
	return rows, nil
}

// UpdateStatus writes one status change. A nil AdminNotes or ResolvedAt leaves
// the stored value untouched.
func (r *ComplaintRepository) UpdateStatus(ctx context.Context, change models.StatusChange) error {
	const query = `UPDATE complaints SET status = $2, admin_notes = COALESCE($3, admin_notes), last_updated = $4, resolved_at = COALESCE($5, resolved_at) WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, change.ComplaintID, change.Status, change.AdminNotes, change.ChangedAt, change.ResolvedAt)
	if err != nil {
		return fmt.Errorf("update complaint status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Touch bumps last_updated.
func (r *ComplaintRepository) Touch(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE complaints SET last_updated = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("touch complaint: %w", err)
	}
	return nil
}

// Snapshot loads the projection the dashboard aggregates over.
func (r *ComplaintRepository) Snapshot(ctx context.Context) ([]models.ComplaintSnapshot, error) {
	const query = `SELECT id, status, complaint_type, created_at, date_submitted, resolved_at FROM complaints`
	rows := []models.ComplaintSnapshot{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("complaint snapshot: %w", err)
	}
	return rows, nil
}

// CountByStatusForStudent returns per-status counts of one student's complaints.
func (r *ComplaintRepository) CountByStatusForStudent(ctx context.Context, studentID string) (map[models.ComplaintStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS total FROM complaints WHERE student_id = $1 GROUP BY status`
	var rows []struct {
		Status models.ComplaintStatus `db:"status"`
		Total  int                    `db:"total"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("count student complaints: %w", err)
	}
	out := make(map[models.ComplaintStatus]int, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Total
	}
	return out, nil
}
