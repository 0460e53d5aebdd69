package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kotche/notes/internal/model"
)

var errNoIdentity = errors.New("no identity in request context")

const (
	CtxUserID = "user_id"
	CtxEmail  = "email"
)

// Middleware rejects requests without a valid bearer token and stores the
// caller in the gin context.
func Middleware(v *Verifier, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := v.ParseHeader(c.GetHeader("Authorization"))
		if err != nil {
			log.Debug("request rejected", zap.String("path", c.FullPath()), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(CtxUserID, identity.UserID)
		c.Set(CtxEmail, identity.Email)
		c.Next()
	}
}

// FromContext returns the identity stored by Middleware.
func FromContext(c *gin.Context) (Identity, error) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return Identity{}, errNoIdentity
	}

	identity := Identity{Email: c.GetString(CtxEmail)}
	if identity.UserID, ok = v.(model.UserID); !ok {
		return Identity{}, errNoIdentity
	}
	return identity, nil
}
