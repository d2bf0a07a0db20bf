package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	"github.com/noah-isme/complaint-desk-api/pkg/export"
)

type exportSourceStub struct {
	rows   []models.ComplaintRow
	err    error
	filter models.ComplaintFilter
}

func (s *exportSourceStub) ListAll(ctx context.Context, filter models.ComplaintFilter) ([]models.ComplaintRow, error) {
	s.filter = filter
	return s.rows, s.err
}

func ptrTime(t time.Time) *time.Time {
	return &t
}

func ptrString(s string) *string {
	return &s
}

func exportRows() []models.ComplaintRow {
	submitted := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return []models.ComplaintRow{
		{
			Complaint: models.Complaint{
				ID: "c1", ComplaintType: models.TypeMissingGrade, CourseCode: "CSC201", Level: "200",
				Status: models.StatusResolved, DateSubmitted: submitted, LastUpdated: submitted.Add(48 * time.Hour),
				ResolvedAt: ptrTime(submitted.Add(48 * time.Hour)),
			},
			StudentName:   "Ada, Lovelace",
			StudentMatric: ptrString("CSC/2020/001"),
		},
		{
			Complaint: models.Complaint{
				ID: "c2", ComplaintType: models.TypeOther, CourseCode: "MTH101", Level: "100",
				Status: models.StatusPending, DateSubmitted: submitted, LastUpdated: submitted,
			},
			StudentName: "Grace Hopper",
		},
	}
}

func TestExportServiceComplaintsCSV(t *testing.T) {
	source := &exportSourceStub{rows: exportRows()}
	svc := NewExportService(source, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC) }

	filter := models.ComplaintFilter{Statuses: []models.ComplaintStatus{models.StatusResolved}}
	file, err := svc.Complaints(context.Background(), filter, export.FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, "complaints-20240305-103000.csv", file.FileName)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)
	assert.Equal(t, 2, file.Rows)
	assert.Equal(t, filter, source.filter)

	records, err := csv.NewReader(bytes.NewReader(file.Content)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, complaintExportHeaders, records[0])
	assert.Equal(t, "Ada, Lovelace", records[1][1])
	assert.Equal(t, "CSC/2020/001", records[1][2])
	assert.Equal(t, "2024-03-03T09:00:00Z", records[1][9])
	assert.Equal(t, "", records[2][9])
}

func TestExportServiceComplaintsPDF(t *testing.T) {
	svc := NewExportService(&exportSourceStub{rows: exportRows()}, zap.NewNop())

	file, err := svc.Complaints(context.Background(), models.ComplaintFilter{}, export.FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Content, []byte("%PDF")))
}

func TestExportServiceSourceError(t *testing.T) {
	svc := NewExportService(&exportSourceStub{err: errors.New("boom")}, zap.NewNop())
	_, err := svc.Complaints(context.Background(), models.ComplaintFilter{}, export.FormatCSV)
	require.Error(t, err)
}
