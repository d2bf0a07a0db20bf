package dto

// SubmitComplaintRequest is the student's new-complaint form.
type SubmitComplaintRequest struct {
	ComplaintType string  `json:"complaint_type" validate:"required,oneof=missing_grade result_error course_registration academic_record other"`
	CourseCode    string  `json:"course_code" validate:"required,max=20"`
	CourseTitle   string  `json:"course_title" validate:"required,max=200"`
	Session       string  `json:"session" validate:"required,max=20"`
	Semester      string  `json:"semester" validate:"required,oneof=first second"`
	Level         string  `json:"level" validate:"required,oneof=100 200 300 400 500"`
	Description   string  `json:"description" validate:"required,min=10,max=5000"`
	ExpectedGrade *string `json:"expected_grade" validate:"omitempty,max=2"`
	CurrentGrade  *string `json:"current_grade" validate:"omitempty,max=2"`
}

// UpdateStatusRequest is the admin status form.
type UpdateStatusRequest struct {
	Status     string  `json:"status" validate:"required,oneof=pending in_progress resolved rejected"`
	AdminNotes *string `json:"admin_notes" validate:"omitempty,max=5000"`
}

// BulkStatusRequest applies one status to many complaints.
type BulkStatusRequest struct {
	IDs    []string `json:"ids" validate:"required,min=1,max=200,dive,required,uuid"`
	Status string   `json:"status" validate:"required,oneof=pending in_progress resolved rejected"`
}

// BulkStatusResult partitions ids by outcome.
type BulkStatusResult struct {
	Updated   []string          `json:"updated"`
	Unchanged []string          `json:"unchanged"`
	Failed    map[string]string `json:"failed,omitempty"`
}

// RespondRequest adds an admin response to a complaint.
type RespondRequest struct {
	ResponseText string `json:"response_text" validate:"required,min=1,max=5000"`
	IsInternal   bool   `json:"is_internal"`
}

// AttachmentRequest registers a file the client already uploaded.
type AttachmentRequest struct {
	FileName string `json:"file_name" validate:"required,max=255"`
	FilePath string `json:"file_path" validate:"required,max=1024"`
	FileURL  string `json:"file_url" validate:"required,url"`
	FileSize int64  `json:"file_size" validate:"required,gt=0"`
	FileType string `json:"file_type" validate:"required"`
}
