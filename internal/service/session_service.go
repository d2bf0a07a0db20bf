package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/models"
)

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

type roleReader interface {
	FindRoleByID(ctx context.Context, id string) (models.Role, error)
}

// SessionService turns a request credential into a principal. The role is
// always read from the profile store, never from the token.
type SessionService struct {
	tokens  tokenValidator
	roles   roleReader
	timeout time.Duration
	logger  *zap.Logger
}

func NewSessionService(tokens tokenValidator, roles roleReader, timeout time.Duration, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SessionService{tokens: tokens, roles: roles, timeout: timeout, logger: logger}
}

// Resolve returns nil with no error when the caller is anonymous. A non-nil
// error means the role store failed; callers must treat that as anonymous too.
func (s *SessionService) Resolve(ctx context.Context, credential string) (*models.Session, error) {
	if credential == "" {
		return nil, nil
	}
	claims, err := s.tokens.ValidateToken(credential)
	if err != nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	role, err := s.roles.FindRoleByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		s.logger.Warn("role lookup failed", zap.String("user_id", claims.UserID), zap.Error(err))
		return nil, err
	}
	if !role.Valid() {
		return nil, nil
	}
	return &models.Session{UserID: claims.UserID, Role: role}, nil
}
