package middlewares

import (
	"net/http"
	"strings"

	"civicsync-api/models"
	"civicsync-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"

	// AuthCookie is the cookie the login handler stores the token in.
	AuthCookie = "auth_token"
)

// AuthMiddleware requires a valid token from the Authorization header or the
// auth cookie and stores the caller's id and role on the context.
func AuthMiddleware(secret string, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			utils.Fail(c, http.StatusUnauthorized, "Not authorized to access this route")
			return
		}

		claims, err := utils.ParseToken(secret, tokenString)
		if err != nil {
			log.Debug().Err(err).Msg("token validation failed")
			utils.Fail(c, http.StatusUnauthorized, "Invalid authorization token")
			return
		}
		if _, err := primitive.ObjectIDFromHex(claims.UserID); err != nil {
			utils.Fail(c, http.StatusUnauthorized, "Invalid token claims")
			return
		}
		role := claims.Role
		if !models.IsValidRole(role) {
			role = string(models.RoleCitizen)
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, role)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if cookie, err := c.Cookie(AuthCookie); err == nil {
		return cookie
	}
	return ""
}

// CallerFrom returns the authenticated caller set by AuthMiddleware.
func CallerFrom(c *gin.Context) (models.Caller, bool) {
	id, err := primitive.ObjectIDFromHex(c.GetString(ctxUserID))
	if err != nil {
		return models.Caller{}, false
	}
	return models.Caller{ID: id, Role: models.Role(c.GetString(ctxRole))}, true
}
