package models

import "time"

const (
	AuditActionLogin            = "LOGIN"
	AuditActionRegister         = "REGISTER"
	AuditActionPasswordChange   = "PASSWORD_CHANGE"
	AuditActionComplaintStatus  = "COMPLAINT_STATUS_UPDATE"
	AuditActionComplaintBulk    = "COMPLAINT_BULK_STATUS"
	AuditActionComplaintRespond = "COMPLAINT_RESPOND"
	AuditActionComplaintExport  = "COMPLAINT_EXPORT"
	AuditResourceComplaint      = "complaint"
	AuditResourceProfile        = "profile"
)

// AuditLog is one row of the staff action trail.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	Details    []byte    `db:"details" json:"details,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
