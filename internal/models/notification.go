package models

import "time"

type NotificationType string

const (
	NotificationComplaintSubmitted NotificationType = "complaint_submitted"
	NotificationComplaintUpdated   NotificationType = "complaint_updated"
	NotificationComplaintResponse  NotificationType = "complaint_response"
	NotificationSystem             NotificationType = "system"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationComplaintSubmitted, NotificationComplaintUpdated, NotificationComplaintResponse, NotificationSystem:
		return true
	}
	return false
}

// Notification is a per-recipient record; only Read ever changes after insert.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	RelatedID *string          `db:"related_id" json:"related_id,omitempty"`
	Read      bool             `db:"read" json:"read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}
