package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/complaint-desk-api/internal/dto"
	"github.com/noah-isme/complaint-desk-api/internal/models"
	"github.com/noah-isme/complaint-desk-api/internal/service"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
	"github.com/noah-isme/complaint-desk-api/pkg/export"
	"github.com/noah-isme/complaint-desk-api/pkg/response"
)

const dateLayout = "2006-01-02"

type complaintService interface {
	Submit(ctx context.Context, studentID string, req dto.SubmitComplaintRequest) (*models.ComplaintRow, error)
	ListMine(ctx context.Context, studentID string, status string, page, pageSize int) ([]models.ComplaintRow, *models.Pagination, error)
	GetMine(ctx context.Context, id, studentID string) (*models.ComplaintDetail, error)
	AddAttachment(ctx context.Context, id, studentID string, req dto.AttachmentRequest) (*models.Attachment, error)
	List(ctx context.Context, filter models.ComplaintFilter) ([]models.ComplaintRow, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.ComplaintDetail, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateStatusRequest) (*models.ComplaintRow, error)
	BulkUpdateStatus(ctx context.Context, req dto.BulkStatusRequest) (*dto.BulkStatusResult, error)
	Respond(ctx context.Context, id, adminID string, req dto.RespondRequest) (*models.ComplaintResponse, error)
}

type complaintExporter interface {
	Complaints(ctx context.Context, filter models.ComplaintFilter, format export.Format) (*service.ExportFile, error)
}

// ComplaintHandler serves both the student and the admin complaint routes.
type ComplaintHandler struct {
	complaints complaintService
	exporter   complaintExporter
}

func NewComplaintHandler(complaints complaintService, exporter complaintExporter) *ComplaintHandler {
	return &ComplaintHandler{complaints: complaints, exporter: exporter}
}

// Submit godoc
// @Summary Submit a complaint
// @Tags Student
// @Accept json
// @Produce json
// @Param payload body dto.SubmitComplaintRequest true "Complaint"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /student/new-complaint [post]
func (h *ComplaintHandler) Submit(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req dto.SubmitComplaintRequest
	if !bindJSON(c, &req, "invalid complaint payload") {
		return
	}

	row, err := h.complaints.Submit(c.Request.Context(), session.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, row)
}

// ListMine godoc
// @Summary List own complaints
// @Tags Student
// @Produce json
// @Param status query string false "Status filter"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /student/complaints [get]
func (h *ComplaintHandler) ListMine(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}

	rows, pagination, err := h.complaints.ListMine(c.Request.Context(), session.UserID,
		strings.TrimSpace(c.Query("status")), queryInt(c, "page", 1), queryInt(c, "pageSize", 20))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// GetMine godoc
// @Summary Own complaint detail
// @Tags Student
// @Produce json
// @Param id path string true "Complaint ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /student/complaints/{id} [get]
func (h *ComplaintHandler) GetMine(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}
	detail, err := h.complaints.GetMine(c.Request.Context(), id, session.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, detail)
}

// AddAttachment godoc
// @Summary Register an uploaded attachment
// @Tags Student
// @Accept json
// @Produce json
// @Param id path string true "Complaint ID"
// @Param payload body dto.AttachmentRequest true "Attachment metadata"
// @Success 201 {object} response.Envelope
// @Router /student/complaints/{id}/attachments [post]
func (h *ComplaintHandler) AddAttachment(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req dto.AttachmentRequest
	if !bindJSON(c, &req, "invalid attachment payload") {
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}
	attachment, err := h.complaints.AddAttachment(c.Request.Context(), id, session.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, attachment)
}

// List godoc
// @Summary List complaints
// @Tags Admin
// @Produce json
// @Param search query string false "Search term"
// @Param status[] query []string false "Statuses"
// @Param type[] query []string false "Types"
// @Param level[] query []string false "Levels"
// @Param from query string false "Submitted from (YYYY-MM-DD)"
// @Param to query string false "Submitted to (YYYY-MM-DD)"
// @Param sort query string false "date_submitted, last_updated, course_code or status"
// @Param order query string false "asc or desc"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/complaints [get]
func (h *ComplaintHandler) List(c *gin.Context) {
	filter, err := complaintFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	rows, pagination, err := h.complaints.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// Get godoc
// @Summary Complaint detail with internal responses
// @Tags Admin
// @Produce json
// @Param id path string true "Complaint ID"
// @Success 200 {object} response.Envelope
// @Router /admin/complaints/{id} [get]
func (h *ComplaintHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	detail, err := h.complaints.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, detail)
}

// UpdateStatus godoc
// @Summary Change complaint status
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Complaint ID"
// @Param payload body dto.UpdateStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /admin/complaints/{id}/status [patch]
func (h *ComplaintHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if !bindJSON(c, &req, "invalid status payload") {
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}
	row, err := h.complaints.UpdateStatus(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, row)
}

// BulkUpdateStatus godoc
// @Summary Change status of many complaints
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body dto.BulkStatusRequest true "Ids and status"
// @Success 200 {object} response.Envelope
// @Router /admin/complaints/bulk-status [post]
func (h *ComplaintHandler) BulkUpdateStatus(c *gin.Context) {
	var req dto.BulkStatusRequest
	if !bindJSON(c, &req, "invalid bulk payload") {
		return
	}

	result, err := h.complaints.BulkUpdateStatus(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Respond godoc
// @Summary Respond to a complaint
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Complaint ID"
// @Param payload body dto.RespondRequest true "Response"
// @Success 201 {object} response.Envelope
// @Router /admin/complaints/{id}/responses [post]
func (h *ComplaintHandler) Respond(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req dto.RespondRequest
	if !bindJSON(c, &req, "invalid response payload") {
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := h.complaints.Respond(c.Request.Context(), id, session.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}

// Export godoc
// @Summary Download complaints as CSV or PDF
// @Tags Admin
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Param ids[] query []string false "Explicit complaint ids"
// @Success 200 {file} file
// @Router /admin/complaints/export [get]
func (h *ComplaintHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.DefaultQuery("format", string(export.FormatCSV)))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	filter, err := complaintFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter.IDs = queryList(c, "ids")

	file, err := h.exporter.Complaints(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.FileName+`"`)
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

func complaintFilterFromQuery(c *gin.Context) (models.ComplaintFilter, error) {
	filter := models.ComplaintFilter{
		Search:    strings.TrimSpace(c.Query("search")),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "pageSize", 20),
		Levels:    queryList(c, "level"),
	}

	for _, raw := range queryList(c, "status") {
		status := models.ComplaintStatus(raw)
		if !status.Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, "unknown status filter: "+raw)
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, raw := range queryList(c, "type") {
		complaintType := models.ComplaintType(raw)
		if !complaintType.Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, "unknown type filter: "+raw)
		}
		filter.Types = append(filter.Types, complaintType)
	}

	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(dateLayout, raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid from date, expected YYYY-MM-DD")
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(dateLayout, raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid to date, expected YYYY-MM-DD")
		}
		// inclusive of the whole day
		end := to.Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}
	return filter, nil
}
