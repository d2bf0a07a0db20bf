package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/complaint-desk-api/internal/access"
	"github.com/noah-isme/complaint-desk-api/internal/models"
	"github.com/noah-isme/complaint-desk-api/internal/service"
	"github.com/noah-isme/complaint-desk-api/pkg/config"
	"github.com/noah-isme/complaint-desk-api/pkg/response"
)

type authService interface {
	Register(ctx context.Context, req models.RegisterRequest, meta service.ClientMeta) (*models.AuthResult, error)
	Login(ctx context.Context, req models.LoginRequest, meta service.ClientMeta) (*models.AuthResult, error)
	Me(ctx context.Context, userID string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.Profile, error)
	ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest, meta service.ClientMeta) error
	TokenTTL() time.Duration
}

// PageDescriptor tells the client which form to render and where to post it.
type PageDescriptor struct {
	Page      string   `json:"page"`
	Action    string   `json:"action,omitempty"`
	Fields    []string `json:"fields,omitempty"`
	Alternate string   `json:"alternate,omitempty"`
}

// AuthHandler wires HTTP endpoints to the auth service and owns the session cookie.
type AuthHandler struct {
	service authService
	cookie  config.SessionConfig
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, cookie config.SessionConfig) *AuthHandler {
	return &AuthHandler{service: svc, cookie: cookie}
}

// Landing godoc
// @Summary Public landing page
// @Tags Pages
// @Produce json
// @Success 200 {object} response.Envelope
// @Router / [get]
func (h *AuthHandler) Landing(c *gin.Context) {
	response.OK(c, PageDescriptor{Page: "landing", Action: access.LoginPath, Alternate: "/auth/register"})
}

// LoginPage godoc
// @Summary Login page descriptor
// @Tags Pages
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/login [get]
func (h *AuthHandler) LoginPage(c *gin.Context) {
	response.OK(c, PageDescriptor{
		Page:      "login",
		Action:    access.LoginPath,
		Fields:    []string{"identifier", "password"},
		Alternate: "/auth/register",
	})
}

// RegisterPage godoc
// @Summary Registration page descriptor
// @Tags Pages
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/register [get]
func (h *AuthHandler) RegisterPage(c *gin.Context) {
	response.OK(c, PageDescriptor{
		Page:      "register",
		Action:    "/auth/register",
		Fields:    []string{"full_name", "email", "matric_number", "password"},
		Alternate: access.LoginPath,
	})
}

// Login godoc
// @Summary Authenticate with email or matric number
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req, "invalid login payload") {
		return
	}

	res, err := h.service.Login(c.Request.Context(), req, clientMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setCookie(c, res.Token, int(h.service.TokenTTL().Seconds()))
	response.OK(c, res)
}

// Register godoc
// @Summary Register a student account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !bindJSON(c, &req, "invalid registration payload") {
		return
	}

	res, err := h.service.Register(c.Request.Context(), req, clientMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setCookie(c, res.Token, int(h.service.TokenTTL().Seconds()))
	response.Created(c, res)
}

// Logout godoc
// @Summary Clear the session cookie
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	h.setCookie(c, "", -1)
	response.OK(c, gin.H{"redirect_to": access.LoginPath})
}

// Me godoc
// @Summary Current profile
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /api/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}

	profile, err := h.service.Me(c.Request.Context(), session.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, profile)
}

// UpdateProfile godoc
// @Summary Update own full name
// @Tags Student
// @Accept json
// @Produce json
// @Param payload body models.UpdateProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Router /student/profile [put]
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req models.UpdateProfileRequest
	if !bindJSON(c, &req, "invalid profile payload") {
		return
	}

	profile, err := h.service.UpdateProfile(c.Request.Context(), session.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, profile)
}

// ChangePassword godoc
// @Summary Change own password
// @Tags Student
// @Accept json
// @Produce json
// @Param payload body models.ChangePasswordRequest true "Password payload"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /student/profile/password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req models.ChangePasswordRequest
	if !bindJSON(c, &req, "invalid password payload") {
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), session.UserID, req, clientMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *AuthHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(h.cookie.SameSite)
	c.SetCookie(h.cookie.CookieName, value, maxAge, "/", h.cookie.Domain, h.cookie.Secure, true)
}

