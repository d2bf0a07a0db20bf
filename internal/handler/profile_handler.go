package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/complaint-desk-api/internal/dto"
	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
	"github.com/noah-isme/complaint-desk-api/pkg/response"
)

type profileService interface {
	Lookup(ctx context.Context, req dto.ProfileLookupRequest) (*models.ProfileLookup, error)
	List(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, *models.Pagination, error)
}

// ProfileHandler serves the public lookup and the admin user listing.
type ProfileHandler struct {
	service profileService
}

func NewProfileHandler(svc profileService) *ProfileHandler {
	return &ProfileHandler{service: svc}
}

// LookupQuery godoc
// @Summary Look up a profile by one identifier
// @Tags Profiles
// @Produce json
// @Param matric query string false "Matric number"
// @Param email query string false "Email"
// @Param userId query string false "Profile ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /api/profiles [get]
func (h *ProfileHandler) LookupQuery(c *gin.Context) {
	var req dto.ProfileLookupRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lookup query"))
		return
	}
	h.lookup(c, req)
}

// LookupBody godoc
// @Summary Look up a profile by one identifier
// @Tags Profiles
// @Accept json
// @Produce json
// @Param payload body dto.ProfileLookupRequest true "Identifier"
// @Success 200 {object} map[string]interface{}
// @Router /api/profiles [post]
func (h *ProfileHandler) LookupBody(c *gin.Context) {
	var req dto.ProfileLookupRequest
	if !bindJSON(c, &req, "invalid lookup payload") {
		return
	}
	h.lookup(c, req)
}

func (h *ProfileHandler) lookup(c *gin.Context, req dto.ProfileLookupRequest) {
	profile, err := h.service.Lookup(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// ListUsers godoc
// @Summary List profiles
// @Tags Admin
// @Produce json
// @Param role query string false "Role filter"
// @Param search query string false "Search term"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/users [get]
func (h *ProfileHandler) ListUsers(c *gin.Context) {
	filter := models.ProfileFilter{
		Search:   c.Query("search"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "pageSize", 20),
	}
	if role := c.Query("role"); role != "" {
		r := models.Role(role)
		filter.Role = &r
	}

	profiles, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profiles, pagination)
}
