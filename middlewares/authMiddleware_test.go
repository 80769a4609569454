package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"civicsync-api/models"
	"civicsync-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const secret = "middleware-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func authRouter() *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthMiddleware(secret, zerolog.Nop()), func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": caller.ID.Hex(), "role": caller.Role})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	id := primitive.NewObjectID()
	staffToken, err := utils.GenerateToken(secret, id.Hex(), string(models.RoleMunicipalStaff))
	require.NoError(t, err)
	oddRoleToken, err := utils.GenerateToken(secret, id.Hex(), "superuser")
	require.NoError(t, err)
	badIDToken, err := utils.GenerateToken(secret, "not-an-id", "admin")
	require.NoError(t, err)

	tests := []struct {
		name     string
		setup    func(*http.Request)
		wantCode int
		wantBody string
	}{
		{
			name:     "bearer header",
			setup:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+staffToken) },
			wantCode: http.StatusOK,
			wantBody: `{"id":"` + id.Hex() + `","role":"municipal_staff"}`,
		},
		{
			name:     "cookie",
			setup:    func(r *http.Request) { r.AddCookie(&http.Cookie{Name: AuthCookie, Value: staffToken}) },
			wantCode: http.StatusOK,
			wantBody: `{"id":"` + id.Hex() + `","role":"municipal_staff"}`,
		},
		{
			name:     "unknown role becomes citizen",
			setup:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+oddRoleToken) },
			wantCode: http.StatusOK,
			wantBody: `{"id":"` + id.Hex() + `","role":"citizen"}`,
		},
		{
			name:     "missing token",
			setup:    func(*http.Request) {},
			wantCode: http.StatusUnauthorized,
			wantBody: `{"success":false,"message":"Not authorized to access this route"}`,
		},
		{
			name:     "tampered token",
			setup:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+staffToken+"x") },
			wantCode: http.StatusUnauthorized,
			wantBody: `{"success":false,"message":"Invalid authorization token"}`,
		},
		{
			name:     "malformed user id",
			setup:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+badIDToken) },
			wantCode: http.StatusUnauthorized,
			wantBody: `{"success":false,"message":"Invalid token claims"}`,
		},
	}

	router := authRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}
