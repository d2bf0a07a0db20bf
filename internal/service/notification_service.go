package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	"github.com/noah-isme/complaint-desk-api/internal/realtime"
	"github.com/noah-isme/complaint-desk-api/internal/repository"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
	"github.com/noah-isme/complaint-desk-api/pkg/jobs"
)

// JobNotificationFanout delivers one notification to every staff member.
const JobNotificationFanout = "notification.fanout"

const cacheKeyUnread = "notifications:unread:%s"

type notificationRepository interface {
	Insert(ctx context.Context, n *models.Notification) error
	MarkRead(ctx context.Context, id, userID string, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	FindByID(ctx context.Context, id, userID string) (*models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
}

type recipientLister interface {
	ListIDsByRoles(ctx context.Context, roles ...models.Role) ([]string, error)
}

type jobEnqueuer interface {
	Enqueue(jobType string, payload interface{}) (string, error)
}

// FanoutPayload is the body of a JobNotificationFanout job.
type FanoutPayload struct {
	Type      models.NotificationType
	Title     string
	Message   string
	RelatedID *string
}

// NotificationService writes the per-recipient notification log and mirrors
// every change onto the realtime feed.
type NotificationService struct {
	repo       notificationRepository
	recipients recipientLister
	bus        realtime.Bus
	queue      jobEnqueuer
	cache      *CacheService
	metrics    *MetricsService
	logger     *zap.Logger
	listLimit  int
	now        func() time.Time
}

func NewNotificationService(repo notificationRepository, recipients recipientLister, bus realtime.Bus, queue jobEnqueuer, cache *CacheService, metrics *MetricsService, logger *zap.Logger, listLimit int) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if listLimit <= 0 {
		listLimit = repository.DefaultNotificationLimit
	}
	return &NotificationService{
		repo:       repo,
		recipients: recipients,
		bus:        bus,
		queue:      queue,
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
		listLimit:  listLimit,
		now:        time.Now,
	}
}

// Notify inserts one notification. Failures are logged and counted, never returned.
func (s *NotificationService) Notify(ctx context.Context, userID string, notificationType models.NotificationType, title, message string, relatedID *string) {
	n := &models.Notification{
		UserID:    userID,
		Type:      notificationType,
		Title:     title,
		Message:   message,
		RelatedID: relatedID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, n); err != nil {
		s.metrics.RecordNotificationFailure(string(notificationType))
		s.logger.Error("notification insert failed",
			zap.String("user_id", userID),
			zap.String("type", string(notificationType)),
			zap.Error(err),
		)
		return
	}
	s.forgetUnread(ctx, userID)
	s.publish(ctx, realtime.NewEvent(realtime.KindInserted, realtime.EntityNotification, n.ID, userID, n))
}

// NotifyStaff queues delivery to every admin and super admin. When the queue
// refuses the job the fan-out runs inline.
func (s *NotificationService) NotifyStaff(ctx context.Context, notificationType models.NotificationType, title, message string, relatedID *string) {
	payload := FanoutPayload{Type: notificationType, Title: title, Message: message, RelatedID: relatedID}
	if s.queue != nil {
		_, err := s.queue.Enqueue(JobNotificationFanout, payload)
		if err == nil {
			return
		}
		s.logger.Warn("fan-out enqueue failed, delivering inline", zap.Error(err))
	}
	if err := s.fanout(ctx, payload); err != nil {
		s.metrics.RecordNotificationFailure(string(notificationType))
		s.logger.Error("staff fan-out failed", zap.Error(err))
	}
}

// HandleFanout is the queue handler for JobNotificationFanout. Only a
// recipient lookup failure is retried; individual inserts are best-effort.
func (s *NotificationService) HandleFanout(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(FanoutPayload)
	if !ok {
		s.logger.Error("unexpected fan-out payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.fanout(ctx, payload)
}

func (s *NotificationService) fanout(ctx context.Context, payload FanoutPayload) error {
	ids, err := s.recipients.ListIDsByRoles(ctx, models.RoleAdmin, models.RoleSuperAdmin)
	if err != nil {
		return fmt.Errorf("list staff recipients: %w", err)
	}
	for _, id := range ids {
		s.Notify(ctx, id, payload.Type, payload.Title, payload.Message, payload.RelatedID)
	}
	return nil
}

// ListRecent returns the newest notifications and the unread total.
func (s *NotificationService) ListRecent(ctx context.Context, userID string, limit int) ([]models.Notification, int, error) {
	if limit <= 0 {
		limit = s.listLimit
	}
	if limit > repository.MaxNotificationLimit {
		limit = repository.MaxNotificationLimit
	}
	items, err := s.repo.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	unread, err := s.UnreadCount(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return items, unread, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	_, err := s.cache.GetOrFetch(ctx, fmt.Sprintf(cacheKeyUnread, userID), CacheTTLShort, &count, func(ctx context.Context) (interface{}, error) {
		return s.repo.CountUnread(ctx, userID)
	})
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count notifications")
	}
	return count, nil
}

// MarkRead is idempotent for the owner. A foreign or unknown id is not found.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	now := s.now().UTC()
	changed, err := s.repo.MarkRead(ctx, id, userID, now)
	if err != nil {
		if repository.IsNotFound(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification")
	}
	if !changed {
		if _, err := s.repo.FindByID(ctx, id, userID); err != nil {
			if repository.IsNotFound(err) {
				return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notification")
		}
		return nil
	}
	s.forgetUnread(ctx, userID)
	s.publish(ctx, realtime.NewEvent(realtime.KindUpdated, realtime.EntityNotification, id, userID, readPatch(id, now)))
	return nil
}

// MarkAllRead returns the number of notifications flipped.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	recent, err := s.repo.ListRecent(ctx, userID, repository.MaxNotificationLimit)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}

	now := s.now().UTC()
	count, err := s.repo.MarkAllRead(ctx, userID, now)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications")
	}
	if count == 0 {
		return 0, nil
	}

	s.forgetUnread(ctx, userID)
	for _, n := range recent {
		if !n.Read {
			s.publish(ctx, realtime.NewEvent(realtime.KindUpdated, realtime.EntityNotification, n.ID, userID, readPatch(n.ID, now)))
		}
	}
	return count, nil
}

func readPatch(id string, at time.Time) map[string]interface{} {
	return map[string]interface{}{"id": id, "read": true, "updated_at": at}
}

func (s *NotificationService) forgetUnread(ctx context.Context, userID string) {
	_ = s.cache.Delete(ctx, fmt.Sprintf(cacheKeyUnread, userID))
}

func (s *NotificationService) publish(ctx context.Context, ev realtime.Event) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, ev)
}
