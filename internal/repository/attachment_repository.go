package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/complaint-desk-api/internal/models"
)

type AttachmentRepository struct {
	db *sqlx.DB
}

func NewAttachmentRepository(db *sqlx.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

func (r *AttachmentRepository) Create(ctx context.Context, a *models.Attachment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.UploadedAt.IsZero() {
		a.UploadedAt = time.Now().UTC()
	}
	const query = `INSERT INTO complaint_attachments (id, complaint_id, file_name, file_path, file_url, file_size, file_type, uploaded_at) VALUES (:id, :complaint_id, :file_name, :file_path, :file_url, :file_size, :file_type, :uploaded_at)`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}
	return nil
}

func (r *AttachmentRepository) ListByComplaint(ctx context.Context, complaintID string) ([]models.Attachment, error) {
	const query = `SELECT id, complaint_id, file_name, file_path, file_url, file_size, file_type, uploaded_at FROM complaint_attachments WHERE complaint_id = $1 ORDER BY uploaded_at ASC`
	out := []models.Attachment{}
	if err := r.db.SelectContext(ctx, &out, query, complaintID); err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	return out, nil
}
