package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	"github.com/noah-isme/complaint-desk-api/internal/realtime"
)

type recordingBus struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (b *recordingBus) Publish(_ context.Context, ev realtime.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}

func (b *recordingBus) Subscribe(realtime.Filter, int) *realtime.Subscription { return nil }
func (b *recordingBus) Unsubscribe(*realtime.Subscription)                 {}

func (b *recordingBus) Events() []realtime.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]realtime.Event, len(b.events))
	copy(out, b.events)
	return out
}

type sentNotification struct {
	UserID    string
	Type      models.NotificationType
	Title     string
	Message   string
	RelatedID *string
	Staff     bool
}

type recordingNotifier struct {
	sent []sentNotification
}

func (n *recordingNotifier) Notify(_ context.Context, userID string, t models.NotificationType, title, message string, relatedID *string) {
	n.sent = append(n.sent, sentNotification{UserID: userID, Type: t, Title: title, Message: message, RelatedID: relatedID})
}

func (n *recordingNotifier) NotifyStaff(_ context.Context, t models.NotificationType, title, message string, relatedID *string) {
	n.sent = append(n.sent, sentNotification{Type: t, Title: title, Message: message, RelatedID: relatedID, Staff: true})
}

type fakeNotificationRepo struct {
	mu        sync.Mutex
	rows      []models.Notification
	insertErr error
	markErr   error
}

func (r *fakeNotificationRepo) Insert(_ context.Context, n *models.Notification) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.Read = false
	r.rows = append(r.rows, *n)
	return nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, id, userID string, _ time.Time) (bool, error) {
	if r.markErr != nil {
		return false, r.markErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == id && r.rows[i].UserID == userID && !r.rows[i].Read {
			r.rows[i].Read = true
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeNotificationRepo) MarkAllRead(_ context.Context, userID string, _ time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for i := range r.rows {
		if r.rows[i].UserID == userID && !r.rows[i].Read {
			r.rows[i].Read = true
			n++
		}
	}
	return n, nil
}

func (r *fakeNotificationRepo) ListRecent(_ context.Context, userID string, limit int) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Notification
	for _, n := range r.rows {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeNotificationRepo) FindByID(_ context.Context, id, userID string) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.rows {
		if n.ID == id && n.UserID == userID {
			found := n
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeNotificationRepo) CountUnread(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, n := range r.rows {
		if n.UserID == userID && !n.Read {
			total++
		}
	}
	return total, nil
}

type fakeComplaintRepo struct {
	rows      map[string]*models.ComplaintRow
	changes   []models.StatusChange
	touched   []string
	createErr error
	updateErr error
	lastList  models.ComplaintFilter
	listCalls int
}

func newFakeComplaintRepo(rows ...models.ComplaintRow) *fakeComplaintRepo {
	repo := &fakeComplaintRepo{rows: map[string]*models.ComplaintRow{}}
	for i := range rows {
		row := rows[i]
		repo.rows[row.ID] = &row
	}
	return repo
}

func (r *fakeComplaintRepo) Create(_ context.Context, c *models.Complaint) error {
	if r.createErr != nil {
		return r.createErr
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	r.rows[c.ID] = &models.ComplaintRow{Complaint: *c, StudentName: "Ada Lovelace"}
	return nil
}

func (r *fakeComplaintRepo) FindByID(_ context.Context, id string) (*models.ComplaintRow, error) {
	row, ok := r.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *row
	return &copied, nil
}

func (r *fakeComplaintRepo) FindForStudent(ctx context.Context, id, studentID string) (*models.ComplaintRow, error) {
	row, err := r.FindByID(ctx, id)
	if err != nil || row.StudentID != studentID {
		return nil, sql.ErrNoRows
	}
	return row, nil
}

func (r *fakeComplaintRepo) List(_ context.Context, filter models.ComplaintFilter) ([]models.ComplaintRow, int, error) {
	r.lastList = filter
	r.listCalls++
	var out []models.ComplaintRow
	for _, row := range r.rows {
		if filter.StudentID != "" && row.StudentID != filter.StudentID {
			continue
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateSubmitted.After(out[j].DateSubmitted) })
	return out, len(out), nil
}

func (r *fakeComplaintRepo) UpdateStatus(_ context.Context, change models.StatusChange) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	row, ok := r.rows[change.ComplaintID]
	if !ok {
		return sql.ErrNoRows
	}
	row.Status = change.Status
	row.LastUpdated = change.ChangedAt
	if change.AdminNotes != nil {
		row.AdminNotes = change.AdminNotes
	}
	if change.ResolvedAt != nil {
		row.ResolvedAt = change.ResolvedAt
	}
	r.changes = append(r.changes, change)
	return nil
}

func (r *fakeComplaintRepo) Touch(_ context.Context, id string, at time.Time) error {
	r.touched = append(r.touched, id)
	if row, ok := r.rows[id]; ok {
		row.LastUpdated = at
	}
	return nil
}

type fakeResponseRepo struct {
	rows []models.ComplaintResponse
}

func (r *fakeResponseRepo) Create(_ context.Context, resp *models.ComplaintResponse) error {
	if resp.ID == "" {
		resp.ID = uuid.NewString()
	}
	r.rows = append(r.rows, *resp)
	return nil
}

func (r *fakeResponseRepo) ListByComplaint(_ context.Context, complaintID string, includeInternal bool) ([]models.ComplaintResponse, error) {
	out := []models.ComplaintResponse{}
	for _, resp := range r.rows {
		if resp.ComplaintID != complaintID || (resp.IsInternal && !includeInternal) {
			continue
		}
		out = append(out, resp)
	}
	return out, nil
}

type fakeAttachmentRepo struct {
	rows []models.Attachment
}

func (r *fakeAttachmentRepo) Create(_ context.Context, a *models.Attachment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	r.rows = append(r.rows, *a)
	return nil
}

func (r *fakeAttachmentRepo) ListByComplaint(_ context.Context, complaintID string) ([]models.Attachment, error) {
	out := []models.Attachment{}
	for _, a := range r.rows {
		if a.ComplaintID == complaintID {
			out = append(out, a)
		}
	}
	return out, nil
}
