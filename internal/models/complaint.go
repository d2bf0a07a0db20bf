package models

import "time"

// ComplaintStatus is the triage state of a complaint.
type ComplaintStatus string

const (
	StatusPending    ComplaintStatus = "pending"
	StatusInProgress ComplaintStatus = "in_progress"
	StatusResolved   ComplaintStatus = "resolved"
	StatusRejected   ComplaintStatus = "rejected"
)

// ComplaintStatuses lists every status in display order.
var ComplaintStatuses = []ComplaintStatus{StatusPending, StatusInProgress, StatusResolved, StatusRejected}

func (s ComplaintStatus) Valid() bool {
	for _, known := range ComplaintStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are expected.
func (s ComplaintStatus) Terminal() bool {
	return s == StatusResolved || s == StatusRejected
}

type ComplaintType string

const (
	TypeMissingGrade       ComplaintType = "missing_grade"
	TypeResultError        ComplaintType = "result_error"
	TypeCourseRegistration ComplaintType = "course_registration"
	TypeAcademicRecord     ComplaintType = "academic_record"
	TypeOther              ComplaintType = "other"
)

var ComplaintTypes = []ComplaintType{
	TypeMissingGrade,
	TypeResultError,
	TypeCourseRegistration,
	TypeAcademicRecord,
	TypeOther,
}

func (t ComplaintType) Valid() bool {
	for _, known := range ComplaintTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Complaint is owned by StudentID and never hard-deleted.
type Complaint struct {
	ID            string          `db:"id" json:"id"`
	StudentID     string          `db:"student_id" json:"student_id"`
	ComplaintType ComplaintType   `db:"complaint_type" json:"complaint_type"`
	CourseCode    string          `db:"course_code" json:"course_code"`
	CourseTitle   string          `db:"course_title" json:"course_title"`
	Session       string          `db:"session" json:"session"`
	Semester      string          `db:"semester" json:"semester"`
	Level         string          `db:"level" json:"level"`
	Description   string          `db:"description" json:"description"`
	Status        ComplaintStatus `db:"status" json:"status"`
	ExpectedGrade *string         `db:"expected_grade" json:"expected_grade,omitempty"`
	CurrentGrade  *string         `db:"current_grade" json:"current_grade,omitempty"`
	AdminNotes    *string         `db:"admin_notes" json:"admin_notes,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	DateSubmitted time.Time       `db:"date_submitted" json:"date_submitted"`
	LastUpdated   time.Time       `db:"last_updated" json:"last_updated"`
	ResolvedAt    *time.Time      `db:"resolved_at" json:"resolved_at,omitempty"`
}

// ComplaintRow is a complaint joined with its owner's display fields.
type ComplaintRow struct {
	Complaint
	StudentName   string  `db:"student_name" json:"student_name"`
	StudentMatric *string `db:"student_matric" json:"student_matric,omitempty"`
	StudentEmail  string  `db:"student_email" json:"student_email"`
}

// ComplaintDetail is the full view used by detail pages.
type ComplaintDetail struct {
	ComplaintRow
	Attachments []Attachment        `json:"attachments"`
	Responses   []ComplaintResponse `json:"responses"`
}

// ComplaintSnapshot is the projection the dashboard aggregates over.
type ComplaintSnapshot struct {
	ID            string          `db:"id"`
	Status        ComplaintStatus `db:"status"`
	ComplaintType ComplaintType   `db:"complaint_type"`
	CreatedAt     time.Time       `db:"created_at"`
	DateSubmitted time.Time       `db:"date_submitted"`
	ResolvedAt    *time.Time      `db:"resolved_at"`
}

// ComplaintFilter drives the admin listing and export.
type ComplaintFilter struct {
	StudentID string
	Search    string
	Statuses  []ComplaintStatus
	Types     []ComplaintType
	Levels    []string
	From      *time.Time
	To        *time.Time
	IDs       []string
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

// StatusChange records one applied status transition.
type StatusChange struct {
	ComplaintID string
	StudentID   string
	Status      ComplaintStatus
	AdminNotes  *string
	ChangedAt   time.Time
	ResolvedAt  *time.Time
}

type ComplaintResponse struct {
	ID           string    `db:"id" json:"id"`
	ComplaintID  string    `db:"complaint_id" json:"complaint_id"`
	AdminID      string    `db:"admin_id" json:"admin_id"`
	AdminName    string    `db:"admin_name" json:"admin_name,omitempty"`
	ResponseText string    `db:"response_text" json:"response_text"`
	IsInternal   bool      `db:"is_internal" json:"is_internal"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Attachment describes an already-stored file; rows are immutable.
type Attachment struct {
	ID          string    `db:"id" json:"id"`
	ComplaintID string    `db:"complaint_id" json:"complaint_id"`
	FileName    string    `db:"file_name" json:"file_name"`
	FilePath    string    `db:"file_path" json:"file_path"`
	FileURL     string    `db:"file_url" json:"file_url"`
	FileSize    int64     `db:"file_size" json:"file_size"`
	FileType    string    `db:"file_type" json:"file_type"`
	UploadedAt  time.Time `db:"uploaded_at" json:"uploaded_at"`
}
