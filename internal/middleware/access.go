package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/access"
	"github.com/noah-isme/complaint-desk-api/internal/models"
)

type accessMetrics interface {
	RecordAccessDecision(class, outcome string)
}

// AccessControl gates every request by route class. Sessions are resolved only
// for classes that need them; a failed role lookup counts as anonymous.
func AccessControl(classifier *access.Classifier, sessions *Sessions, metrics accessMetrics, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		class := classifier.Classify(c.Request.URL.Path)

		var session *models.Session
		if access.NeedsSession(class) {
			resolved, err := sessions.Resolve(c)
			if err != nil {
				logger.Warn("access check without session",
					zap.String("path", c.Request.URL.Path),
					zap.Error(err),
				)
			} else {
				session = resolved
			}
		}

		decision := access.Decide(session, class)
		if metrics != nil {
			metrics.RecordAccessDecision(class.String(), decision.Outcome.String())
		}

		if decision.Outcome == access.Allow {
			c.Next()
			return
		}

		c.Redirect(redirectStatus(c.Request.Method), decision.Location)
		c.Abort()
	}
}

func redirectStatus(method string) int {
	if method == http.MethodGet || method == http.MethodHead {
		return http.StatusFound
	}
	return http.StatusSeeOther
}
