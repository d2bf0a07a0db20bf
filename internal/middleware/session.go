package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
	"github.com/noah-isme/complaint-desk-api/pkg/response"
)

// ContextSessionKey is the gin context key holding the resolved session.
const ContextSessionKey = "session"

// SessionResolver turns a raw credential into a principal.
type SessionResolver interface {
	Resolve(ctx context.Context, credential string) (*models.Session, error)
}

type sessionMemo struct {
	session *models.Session
	err     error
}

// Sessions resolves the principal of a request at most once, whichever
// middleware or handler asks first.
type Sessions struct {
	resolver   SessionResolver
	cookieName string
}

// NewSessions reads credentials from cookieName and falls back to a bearer header.
func NewSessions(resolver SessionResolver, cookieName string) *Sessions {
	return &Sessions{resolver: resolver, cookieName: cookieName}
}

// Credential extracts the raw token from the request.
func (s *Sessions) Credential(c *gin.Context) string {
	if s.cookieName != "" {
		if cookie, err := c.Cookie(s.cookieName); err == nil && cookie != "" {
			return cookie
		}
	}

	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// Resolve returns the memoised session of c. A nil session with a nil error
// means anonymous.
func (s *Sessions) Resolve(c *gin.Context) (*models.Session, error) {
	if value, ok := c.Get(ContextSessionKey); ok {
		if memo, ok := value.(sessionMemo); ok {
			return memo.session, memo.err
		}
	}

	var memo sessionMemo
	if s != nil && s.resolver != nil {
		memo.session, memo.err = s.resolver.Resolve(c.Request.Context(), s.Credential(c))
	}
	c.Set(ContextSessionKey, memo)
	return memo.session, memo.err
}

// Require answers 401 for anonymous requests and 503 when the role store is unreachable.
func (s *Sessions) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := s.Resolve(c)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, "SESSION_UNAVAILABLE", http.StatusServiceUnavailable, "session lookup failed"))
			c.Abort()
			return
		}
		if session == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRoles must run after Require.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		session, ok := CurrentSession(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[session.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentSession returns the session already resolved for c, if any.
func CurrentSession(c *gin.Context) (*models.Session, bool) {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil, false
	}
	memo, ok := value.(sessionMemo)
	if !ok || memo.session == nil {
		return nil, false
	}
	return memo.session, true
}
