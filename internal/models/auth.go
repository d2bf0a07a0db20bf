package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Session is the resolved principal of one request.
type Session struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// LoginRequest accepts either an email address or a matric number as identifier.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	FullName     string `json:"full_name" validate:"required,min=2,max=120"`
	Email        string `json:"email" validate:"required,email"`
	MatricNumber string `json:"matric_number" validate:"required,matric"`
	Password     string `json:"password" validate:"required,min=6"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,nefield=CurrentPassword"`
}

type UpdateProfileRequest struct {
	FullName string `json:"full_name" validate:"required,min=2,max=120"`
}

// AuthResult is returned by login and registration; the token also travels as a cookie.
type AuthResult struct {
	Token     string  `json:"-"`
	ExpiresIn int64   `json:"expires_in"`
	Profile   Profile `json:"profile"`
	Home      string  `json:"redirect_to"`
}

// JWTClaims is the credential payload. Role is informational only; access
// decisions always re-read the role from the profile store.
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}
