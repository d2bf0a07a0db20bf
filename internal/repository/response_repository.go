package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/complaint-desk-api/internal/models"
)

// ResponseRepository stores append-only admin responses.
type ResponseRepository struct {
	db *sqlx.DB
}

func NewResponseRepository(db *sqlx.DB) *ResponseRepository {
	return &ResponseRepository{db: db}
}

func (r *ResponseRepository) Create(ctx context.Context, resp *models.ComplaintResponse) error {
	if resp.ID == "" {
		resp.ID = uuid.NewString()
	}
	if resp.CreatedAt.IsZero() {
		resp.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO complaint_responses (id, complaint_id, admin_id, response_text, is_internal, created_at) VALUES (:id, :complaint_id, :admin_id, :response_text, :is_internal, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, resp); err != nil {
		return fmt.Errorf("create response: %w", err)
	}
	return nil
}

// ListByComplaint returns responses oldest first; internal ones only when includeInternal.
func (r *ResponseRepository) ListByComplaint(ctx context.Context, complaintID string, includeInternal bool) ([]models.ComplaintResponse, error) {
	query := `SELECT r.id, r.complaint_id, r.admin_id, COALESCE(p.full_name, '') AS admin_name, r.response_text, r.is_internal, r.created_at FROM complaint_responses r LEFT JOIN profiles p ON p.id = r.admin_id WHERE r.complaint_id = $1`
	if !includeInternal {
		query += ` AND r.is_internal = FALSE`
	}
	query += ` ORDER BY r.created_at ASC`

	out := []models.ComplaintResponse{}
	if err := r.db.SelectContext(ctx, &out, query, complaintID); err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	return out, nil
}
