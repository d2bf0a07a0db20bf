package dto

// ProfileLookupRequest carries exactly one identifier.
type ProfileLookupRequest struct {
	MatricNumber string `json:"matricNumber" form:"matric"`
	Email        string `json:"email" form:"email"`
	UserID       string `json:"userId" form:"userId"`
}
