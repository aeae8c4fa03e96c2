package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"medicare-server/internal/apperror"
	"medicare-server/internal/config"
	"medicare-server/internal/models"
	"medicare-server/internal/services"
	"medicare-server/internal/utils"
)

const actorKey = "actor"

// Authenticate verifies the access token, resolves the caller into an actor
// and enforces the allowed roles. With no roles any authenticated user passes.
// The token is read from the accessToken cookie, then from a Bearer header.
func Authenticate(cfg *config.Config, db *gorm.DB, roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			utils.Abort(c, apperror.Unauthorized("You are not authorized!"))
			return
		}

		claims, err := utils.ValidateToken(token, cfg.JWT.AccessSecret)
		if err != nil {
			utils.Abort(c, apperror.Wrap(401, "Invalid or expired token", err))
			return
		}

		actor, err := services.ResolveActor(c.Request.Context(), db, claims.UserID)
		if err != nil {
			utils.Abort(c, err)
			return
		}

		if len(roles) > 0 && !services.HasRole(actor, roles...) {
			utils.Abort(c, apperror.Forbidden("You do not have permission to access this resource."))
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

func tokenFromRequest(c *gin.Context) string {
	if token, err := c.Cookie(utils.AccessTokenCookie); err == nil && token != "" {
		return token
	}
	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// ActorFrom returns the actor stored by Authenticate.
func ActorFrom(c *gin.Context) (services.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return nil, false
	}
	actor, ok := v.(services.Actor)
	return actor, ok
}

// SetActor stores an actor in the context. Used by tests and internal callers.
func SetActor(c *gin.Context, a services.Actor) {
	c.Set(actorKey, a)
}
