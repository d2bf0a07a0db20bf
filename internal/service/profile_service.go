package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/dto"
	"github.com/noah-isme/complaint-desk-api/internal/models"
	"github.com/noah-isme/complaint-desk-api/internal/repository"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
)

type profileLookupRepository interface {
	Lookup(ctx context.Context, column, value string) (*models.ProfileLookup, error)
	List(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, int, error)
}

// ProfileService answers identifier lookups and the admin user listing.
type ProfileService struct {
	repo   profileLookupRepository
	logger *zap.Logger
}

func NewProfileService(repo profileLookupRepository, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{repo: repo, logger: logger}
}

// Lookup resolves exactly one identifier, preferring matric number, then
// email, then user id, to the minimal {id, email, role} projection.
func (s *ProfileService) Lookup(ctx context.Context, req dto.ProfileLookupRequest) (*models.ProfileLookup, error) {
	column, value := lookupKey(req)
	if column == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "matricNumber, email or userId is required")
	}
	if column == "id" {
		if _, err := uuid.Parse(value); err != nil {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
	}

	profile, err := s.repo.Lookup(ctx, column, value)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		s.logger.Error("profile lookup failed", zap.String("column", column), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up profile")
	}
	return profile, nil
}

func lookupKey(req dto.ProfileLookupRequest) (string, string) {
	switch {
	case strings.TrimSpace(req.MatricNumber) != "":
		return "matric_number", strings.TrimSpace(req.MatricNumber)
	case strings.TrimSpace(req.Email) != "":
		return "email", strings.TrimSpace(req.Email)
	case strings.TrimSpace(req.UserID) != "":
		return "id", strings.TrimSpace(req.UserID)
	}
	return "", ""
}

// List pages through profiles for the admin users screen.
func (s *ProfileService) List(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, *models.Pagination, error) {
	if filter.Role != nil && !filter.Role.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown role filter")
	}
	profiles, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list profiles")
	}
	if profiles == nil {
		profiles = []models.Profile{}
	}

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return profiles, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}
