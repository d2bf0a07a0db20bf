package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
)

type stubTokens struct {
	claims *models.JWTClaims
}

func (s stubTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	if s.claims == nil || token != "valid" {
		return nil, appErrors.ErrUnauthorized
	}
	return s.claims, nil
}

type stubRoles struct {
	role     models.Role
	err      error
	calls    int
	deadline bool
}

func (s *stubRoles) FindRoleByID(ctx context.Context, id string) (models.Role, error) {
	s.calls++
	_, s.deadline = ctx.Deadline()
	return s.role, s.err
}

func TestSessionServiceResolve(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleSuperAdmin}

	tests := []struct {
		name       string
		credential string
		roles      *stubRoles
		want       *models.Session
		wantErr    bool
		wantLookup bool
	}{
		{name: "no credential", credential: "", roles: &stubRoles{role: models.RoleAdmin}},
		{name: "invalid token", credential: "garbage", roles: &stubRoles{role: models.RoleAdmin}},
		{
			name:       "role read fresh",
			credential: "valid",
			roles:      &stubRoles{role: models.RoleStudent},
			want:       &models.Session{UserID: "u1", Role: models.RoleStudent},
			wantLookup: true,
		},
		{name: "missing profile", credential: "valid", roles: &stubRoles{err: sql.ErrNoRows}, wantLookup: true},
		{name: "unknown role", credential: "valid", roles: &stubRoles{role: "janitor"}, wantLookup: true},
		{name: "backend failure", credential: "valid", roles: &stubRoles{err: errors.New("timeout")}, wantErr: true, wantLookup: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewSessionService(stubTokens{claims: claims}, tc.roles, time.Second, zap.NewNop())
			got, err := svc.Resolve(context.Background(), tc.credential)
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.wantLookup, tc.roles.calls == 1)
			if tc.wantLookup {
				assert.True(t, tc.roles.deadline, "role lookup must be bounded")
			}
		})
	}
}
