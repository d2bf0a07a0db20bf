package service

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/dto"
	"github.com/noah-isme/complaint-desk-api/internal/models"
	"github.com/noah-isme/complaint-desk-api/internal/realtime"
	"github.com/noah-isme/complaint-desk-api/internal/repository"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
)

const (
	titleStatusUpdated    = "Complaint Status Updated"
	titleNewResponse      = "New Response to Your Complaint"
	titleNewComplaint     = "New Complaint Submitted"
	messageNewResponse    = "An admin has responded to your complaint. Please check for updates."
	messageStatusTemplate = "Your complaint status has been updated to: %s"
	messageNewComplaint   = "A new complaint has been submitted by %s for course %s."

	cacheKeyComplaintList = "complaints:list:%x"
)

type complaintRepository interface {
	Create(ctx context.Context, c *models.Complaint) error
	FindByID(ctx context.Context, id string) (*models.ComplaintRow, error)
	FindForStudent(ctx context.Context, id, studentID string) (*models.ComplaintRow, error)
	List(ctx context.Context, filter models.ComplaintFilter) ([]models.ComplaintRow, int, error)
	UpdateStatus(ctx context.Context, change models.StatusChange) error
	Touch(ctx context.Context, id string, at time.Time) error
}

type responseRepository interface {
	Create(ctx context.Context, resp *models.ComplaintResponse) error
	ListByComplaint(ctx context.Context, complaintID string, includeInternal bool) ([]models.ComplaintResponse, error)
}

type attachmentRepository interface {
	Create(ctx context.Context, a *models.Attachment) error
	ListByComplaint(ctx context.Context, complaintID string) ([]models.Attachment, error)
}

type complaintNotifier interface {
	Notify(ctx context.Context, userID string, notificationType models.NotificationType, title, message string, relatedID *string)
	NotifyStaff(ctx context.Context, notificationType models.NotificationType, title, message string, relatedID *string)
}

// AttachmentPolicy bounds attachment metadata.
type AttachmentPolicy struct {
	MaxFileSizeBytes int64
	AllowedTypes     []string
}

type complaintPage struct {
	Rows  []models.ComplaintRow `json:"rows"`
	Total int                   `json:"total"`
}

// ComplaintService implements the student and admin complaint workflows.
// Domain writes return errors; notification side effects never do.
type ComplaintService struct {
	complaints  complaintRepository
	responses   responseRepository
	attachments attachmentRepository
	notifier    complaintNotifier
	bus         realtime.Bus
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
	policy      AttachmentPolicy
	now         func() time.Time
}

func NewComplaintService(
	complaints complaintRepository,
	responses responseRepository,
	attachments attachmentRepository,
	notifier complaintNotifier,
	bus realtime.Bus,
	cache *CacheService,
	validate *validator.Validate,
	logger *zap.Logger,
	policy AttachmentPolicy,
) *ComplaintService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if policy.MaxFileSizeBytes <= 0 {
		policy.MaxFileSizeBytes = 5 << 20
	}
	if len(policy.AllowedTypes) == 0 {
		policy.AllowedTypes = []string{"pdf", "doc", "docx", "jpg", "jpeg", "png"}
	}
	return &ComplaintService{
		complaints:  complaints,
		responses:   responses,
		attachments: attachments,
		notifier:    notifier,
		bus:         bus,
		cache:       cache,
		validator:   validate,
		logger:      logger,
		policy:      policy,
		now:         time.Now,
	}
}

// Submit stores a new pending complaint for studentID.
func (s *ComplaintService) Submit(ctx context.Context, studentID string, req dto.SubmitComplaintRequest) (*models.ComplaintRow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid complaint payload")
	}

	now := s.now().UTC()
	complaint := &models.Complaint{
		StudentID:     studentID,
		ComplaintType: models.ComplaintType(req.ComplaintType),
		CourseCode:    strings.ToUpper(strings.TrimSpace(req.CourseCode)),
		CourseTitle:   strings.TrimSpace(req.CourseTitle),
		Session:       strings.TrimSpace(req.Session),
		Semester:      req.Semester,
		Level:         req.Level,
		Description:   strings.TrimSpace(req.Description),
		Status:        models.StatusPending,
		ExpectedGrade: req.ExpectedGrade,
		CurrentGrade:  req.CurrentGrade,
		CreatedAt:     now,
		DateSubmitted: now,
		LastUpdated:   now,
	}
	if err := s.complaints.Create(ctx, complaint); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit complaint")
	}

	row, err := s.complaints.FindByID(ctx, complaint.ID)
	if err != nil {
		s.logger.Warn("reload submitted complaint", zap.String("complaint_id", complaint.ID), zap.Error(err))
		row = &models.ComplaintRow{Complaint: *complaint}
	}

	studentName := row.StudentName
	if studentName == "" {
		studentName = "a student"
	}
	s.notifier.NotifyStaff(ctx, models.NotificationComplaintSubmitted, titleNewComplaint,
		fmt.Sprintf(messageNewComplaint, studentName, complaint.CourseCode), &complaint.ID)

	s.changed(ctx, realtime.NewEvent(realtime.KindInserted, realtime.EntityComplaint, complaint.ID, studentID, complaint))
	return row, nil
}

// ListMine returns the student's complaints newest first.
func (s *ComplaintService) ListMine(ctx context.Context, studentID string, status string, page, pageSize int) ([]models.ComplaintRow, *models.Pagination, error) {
	filter := models.ComplaintFilter{StudentID: studentID, Page: page, PageSize: pageSize}
	if status != "" {
		st := models.ComplaintStatus(status)
		if !st.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
		}
		filter.Statuses = []models.ComplaintStatus{st}
	}
	return s.list(ctx, filter)
}

// GetMine hides complaints owned by others behind not found.
func (s *ComplaintService) GetMine(ctx context.Context, id, studentID string) (*models.ComplaintDetail, error) {
	row, err := s.complaints.FindForStudent(ctx, id, studentID)
	if err != nil {
		return nil, mapComplaintErr(err)
	}
	return s.detail(ctx, row, false)
}

// AddAttachment records metadata for a file the student already uploaded.
func (s *ComplaintService) AddAttachment(ctx context.Context, id, studentID string, req dto.AttachmentRequest) (*models.Attachment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attachment payload")
	}
	if req.FileSize > s.policy.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes", s.policy.MaxFileSizeBytes))
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(req.FileName)), ".")
	if !s.allowedType(ext) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file type %q is not allowed", ext))
	}

	if _, err := s.complaints.FindForStudent(ctx, id, studentID); err != nil {
		return nil, mapComplaintErr(err)
	}

	attachment := &models.Attachment{
		ComplaintID: id,
		FileName:    req.FileName,
		FilePath:    req.FilePath,
		FileURL:     req.FileURL,
		FileSize:    req.FileSize,
		FileType:    ext,
		UploadedAt:  s.now().UTC(),
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attachment")
	}
	s.invalidate(ctx)
	return attachment, nil
}

func (s *ComplaintService) allowedType(ext string) bool {
	for _, allowed := range s.policy.AllowedTypes {
		if ext == allowed {
			return true
		}
	}
	return false
}

// List is the admin listing; pages are cached until the next complaint write.
func (s *ComplaintService) List(ctx context.Context, filter models.ComplaintFilter) ([]models.ComplaintRow, *models.Pagination, error) {
	return s.list(ctx, filter)
}

func (s *ComplaintService) list(ctx context.Context, filter models.ComplaintFilter) ([]models.ComplaintRow, *models.Pagination, error) {
	var page complaintPage
	_, err := s.cache.GetOrFetch(ctx, listCacheKey(filter), CacheTTLShort, &page, func(ctx context.Context) (interface{}, error) {
		rows, total, err := s.complaints.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		return complaintPage{Rows: rows, Total: total}, nil
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list complaints")
	}

	pageNum, pageSize := filter.Page, filter.PageSize
	if pageNum < 1 {
		pageNum = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page.Rows, &models.Pagination{Page: pageNum, PageSize: pageSize, TotalCount: page.Total}, nil
}

func listCacheKey(filter models.ComplaintFilter) string {
	raw, _ := json.Marshal(filter)
	return fmt.Sprintf(cacheKeyComplaintList, sha1.Sum(raw))
}

// Get returns the full admin view including internal responses.
func (s *ComplaintService) Get(ctx context.Context, id string) (*models.ComplaintDetail, error) {
	row, err := s.complaints.FindByID(ctx, id)
	if err != nil {
		return nil, mapComplaintErr(err)
	}
	return s.detail(ctx, row, true)
}

func (s *ComplaintService) detail(ctx context.Context, row *models.ComplaintRow, includeInternal bool) (*models.ComplaintDetail, error) {
	attachments, err := s.attachments.ListByComplaint(ctx, row.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attachments")
	}
	responses, err := s.responses.ListByComplaint(ctx, row.ID, includeInternal)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load responses")
	}
	return &models.ComplaintDetail{ComplaintRow: *row, Attachments: attachments, Responses: responses}, nil
}

// UpdateStatus applies a status change and notifies the owner.
func (s *ComplaintService) UpdateStatus(ctx context.Context, id string, req dto.UpdateStatusRequest) (*models.ComplaintRow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if err := s.updateStatus(ctx, id, models.ComplaintStatus(req.Status), req.AdminNotes); err != nil {
		return nil, err
	}
	row, err := s.complaints.FindByID(ctx, id)
	if err != nil {
		return nil, mapComplaintErr(err)
	}
	return row, nil
}

func (s *ComplaintService) updateStatus(ctx context.Context, id string, status models.ComplaintStatus, notes *string) error {
	current, err := s.complaints.FindByID(ctx, id)
	if err != nil {
		return mapComplaintErr(err)
	}
	if current.Status == status {
		return appErrors.ErrUnchangedStatus
	}

	now := s.now().UTC()
	change := models.StatusChange{
		ComplaintID: id,
		StudentID:   current.StudentID,
		Status:      status,
		AdminNotes:  notes,
		ChangedAt:   now,
	}
	if status == models.StatusResolved {
		change.ResolvedAt = &now
	}
	if err := s.complaints.UpdateStatus(ctx, change); err != nil {
		return mapComplaintErr(err)
	}

	s.notifier.Notify(ctx, current.StudentID, models.NotificationComplaintUpdated, titleStatusUpdated,
		StatusUpdateMessage(status), &current.ID)

	patch := map[string]interface{}{"id": id, "status": status, "last_updated": now}
	if notes != nil {
		patch["admin_notes"] = *notes
	}
	if change.ResolvedAt != nil {
		patch["resolved_at"] = *change.ResolvedAt
	}
	s.changed(ctx, realtime.NewEvent(realtime.KindUpdated, realtime.EntityComplaint, id, current.StudentID, patch))
	return nil
}

// StatusUpdateMessage renders the owner notification for a new status.
func StatusUpdateMessage(status models.ComplaintStatus) string {
	label := strings.ToUpper(strings.ReplaceAll(string(status), "_", " "))
	return fmt.Sprintf(messageStatusTemplate, label)
}

// BulkUpdateStatus applies UpdateStatus to every id independently.
func (s *ComplaintService) BulkUpdateStatus(ctx context.Context, req dto.BulkStatusRequest) (*dto.BulkStatusResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk status payload")
	}

	result := &dto.BulkStatusResult{Updated: []string{}, Unchanged: []string{}}
	seen := make(map[string]struct{}, len(req.IDs))
	for _, id := range req.IDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		err := s.updateStatus(ctx, id, models.ComplaintStatus(req.Status), nil)
		switch {
		case err == nil:
			result.Updated = append(result.Updated, id)
		case errors.Is(err, appErrors.ErrUnchangedStatus):
			result.Unchanged = append(result.Unchanged, id)
		default:
			if result.Failed == nil {
				result.Failed = map[string]string{}
			}
			result.Failed[id] = appErrors.FromError(err).Message
		}
	}
	return result, nil
}

// Respond appends an admin response; internal notes are never shown to the owner.
func (s *ComplaintService) Respond(ctx context.Context, id, adminID string, req dto.RespondRequest) (*models.ComplaintResponse, error) {
	req.ResponseText = strings.TrimSpace(req.ResponseText)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid response payload")
	}

	current, err := s.complaints.FindByID(ctx, id)
	if err != nil {
		return nil, mapComplaintErr(err)
	}

	now := s.now().UTC()
	resp := &models.ComplaintResponse{
		ComplaintID:  id,
		AdminID:      adminID,
		ResponseText: req.ResponseText,
		IsInternal:   req.IsInternal,
		CreatedAt:    now,
	}
	if err := s.responses.Create(ctx, resp); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save response")
	}
	if err := s.complaints.Touch(ctx, id, now); err != nil {
		s.logger.Warn("touch complaint after response", zap.String("complaint_id", id), zap.Error(err))
	}

	if !req.IsInternal {
		s.notifier.Notify(ctx, current.StudentID, models.NotificationComplaintResponse, titleNewResponse, messageNewResponse, &current.ID)
	}

	s.changed(ctx, realtime.NewEvent(realtime.KindUpdated, realtime.EntityComplaint, id, current.StudentID,
		map[string]interface{}{"id": id, "last_updated": now}))
	return resp, nil
}

func (s *ComplaintService) changed(ctx context.Context, ev realtime.Event) {
	s.invalidate(ctx)
	if s.bus != nil {
		s.bus.Publish(ctx, ev)
	}
}

func (s *ComplaintService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, CachePatternDashboards, CachePatternComplaints)
}

func mapComplaintErr(err error) error {
	if repository.IsNotFound(err) {
		return appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "complaint store failed")
}
