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

const profileColumns = `id, matric_number, full_name, email, password_hash, role, created_at, updated_at`

// ProfileRepository reads and writes principal rows.
type ProfileRepository struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindRoleByID returns the role for id by exact match; sql.ErrNoRows when absent.
func (r *ProfileRepository) FindRoleByID(ctx context.Context, id string) (models.Role, error) {
	const query = `SELECT role FROM profiles WHERE id = $1 LIMIT 1`
	var role models.Role
	if err := r.db.GetContext(ctx, &role, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
		return "", fmt.Errorf("find role by id: %w", err)
	}
	return role, nil
}

func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	return r.findOne(ctx, "id", id)
}

func (r *ProfileRepository) FindByEmail(ctx context.Context, email string) (*models.Profile, error) {
	return r.findOne(ctx, "LOWER(email)", strings.ToLower(strings.TrimSpace(email)))
}

func (r *ProfileRepository) FindByMatric(ctx context.Context, matric string) (*models.Profile, error) {
	return r.findOne(ctx, "UPPER(matric_number)", strings.ToUpper(strings.TrimSpace(matric)))
}

func (r *ProfileRepository) findOne(ctx context.Context, column, value string) (*models.Profile, error) {
	query := fmt.Sprintf("SELECT %s FROM profiles WHERE %s = $1 LIMIT 1", profileColumns, column)
	var profile models.Profile
	if err := r.db.GetContext(ctx, &profile, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find profile by %s: %w", column, err)
	}
	return &profile, nil
}

// Lookup returns the minimal projection for one identifier column.
func (r *ProfileRepository) Lookup(ctx context.Context, column, value string) (*models.ProfileLookup, error) {
	var where string
	switch column {
	case "id":
		where = "id = $1"
	case "email":
		where = "LOWER(email) = LOWER($1)"
	case "matric_number":
		where = "UPPER(matric_number) = UPPER($1)"
	default:
		return nil, fmt.Errorf("lookup profile: unsupported column %q", column)
	}

	query := "SELECT id, email, role FROM profiles WHERE " + where + " LIMIT 1"
	var out models.ProfileLookup
	if err := r.db.GetContext(ctx, &out, query, strings.TrimSpace(value)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("lookup profile: %w", err)
	}
	return &out, nil
}

// ListIDsByRoles returns the ids of every profile holding one of roles.
func (r *ProfileRepository) ListIDsByRoles(ctx context.Context, roles ...models.Role) ([]string, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(roles))
	args := make([]interface{}, len(roles))
	for i, role := range roles {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = string(role)
	}
	query := "SELECT id FROM profiles WHERE role IN (" + strings.Join(placeholders, ", ") + ") ORDER BY created_at"
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("list profiles by role: %w", err)
	}
	return ids, nil
}

func (r *ProfileRepository) CountByRole(ctx context.Context, role models.Role) (int, error) {
	const query = `SELECT COUNT(*) FROM profiles WHERE role = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, role); err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return total, nil
}

// List returns profiles for the admin users page with total count.
func (r *ProfileRepository) List(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, int, error) {
	baseQuery := `FROM profiles WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)+1))
		args = append(args, *filter.Role)
	}
	if filter.Search != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(email) LIKE $%d OR LOWER(full_name) LIKE $%d OR LOWER(COALESCE(matric_number, '')) LIKE $%d)", idx, idx, idx))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", profileColumns, baseQuery, pageSize, (page-1)*pageSize)

	var profiles []models.Profile
	if err := r.db.SelectContext(ctx, &profiles, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list profiles: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count profiles: %w", err)
	}
	return profiles, total, nil
}

// Create inserts a profile, assigning id and timestamps when unset.
func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	const query = `INSERT INTO profiles (id, matric_number, full_name, email, password_hash, role, created_at, updated_at) VALUES (:id, :matric_number, :full_name, :email, :password_hash, :role, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) UpdateFullName(ctx context.Context, id, fullName string, updatedAt time.Time) error {
	const query = `UPDATE profiles SET full_name = $2, updated_at = $3 WHERE id = $1`
	return r.execOne(ctx, "update full name", query, id, fullName, updatedAt)
}

func (r *ProfileRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE profiles SET password_hash = $2, updated_at = $3 WHERE id = $1`
	return r.execOne(ctx, "update password", query, id, passwordHash, updatedAt)
}

func (r *ProfileRepository) execOne(ctx context.Context, op, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateAuditLog appends one row to the staff action trail.
func (r *ProfileRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, details, ip_address, user_agent, created_at) VALUES (:id, :user_id, :action, :resource, :resource_id, :details, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
