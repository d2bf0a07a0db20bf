package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
	"github.com/noah-isme/complaint-desk-api/pkg/export"
)

type complaintExportSource interface {
	ListAll(ctx context.Context, filter models.ComplaintFilter) ([]models.ComplaintRow, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	FileName    string
	ContentType string
	Content     []byte
	Rows        int
}

var complaintExportHeaders = []string{"ID", "Student", "Matric", "Type", "Course", "Level", "Status", "Submitted", "Last Updated", "Resolved"}

// ExportService renders complaint listings for download. Nothing is stored;
// the file is streamed back to the caller.
type ExportService struct {
	complaints complaintExportSource
	logger     *zap.Logger
	now        func() time.Time
}

func NewExportService(complaints complaintExportSource, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{complaints: complaints, logger: logger, now: time.Now}
}

// Complaints renders every complaint matching filter, up to the repository cap.
func (s *ExportService) Complaints(ctx context.Context, filter models.ComplaintFilter, format export.Format) (*ExportFile, error) {
	rows, err := s.complaints.ListAll(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load complaints")
	}

	renderer := export.RendererFor(format)
	var buf bytes.Buffer
	if err := renderer.Render(&buf, complaintDataset(rows)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.logger.Info("complaints exported", zap.String("format", string(format)), zap.Int("rows", len(rows)))
	return &ExportFile{
		FileName:    fmt.Sprintf("complaints-%s.%s", s.now().UTC().Format("20060102-150405"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Content:     buf.Bytes(),
		Rows:        len(rows),
	}, nil
}

func complaintDataset(rows []models.ComplaintRow) export.Dataset {
	data := export.Dataset{Title: "Complaints", Headers: complaintExportHeaders, Rows: make([][]string, 0, len(rows))}
	for _, row := range rows {
		data.Rows = append(data.Rows, []string{
			row.ID,
			row.StudentName,
			deref(row.StudentMatric),
			string(row.ComplaintType),
			row.CourseCode,
			row.Level,
			string(row.Status),
			row.DateSubmitted.Format(time.RFC3339),
			row.LastUpdated.Format(time.RFC3339),
			formatOptionalTime(row.ResolvedAt),
		})
	}
	return data
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
