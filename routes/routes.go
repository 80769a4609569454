package routes

import (
	"context"

	"civicsync-api/controllers"
	"civicsync-api/middlewares"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Deps carries everything the route table needs.
type Deps struct {
	Log           zerolog.Logger
	JWTSecret     string
	Counter       middlewares.Counter
	IssueQueue    string
	IssueDayLimit int
	Issues        *controllers.IssueController
	Auth          *controllers.AuthController
	Notifications *controllers.NotificationController
	// UploadDir is served under /uploads when set.
	UploadDir string
	Ping      func(ctx context.Context) error
}

func Register(r *gin.Engine, d Deps) {
	r.GET("/api/health", controllers.Health(d.Ping))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if d.UploadDir != "" {
		r.Static("/uploads", d.UploadDir)
	}

	auth := middlewares.AuthMiddleware(d.JWTSecret, d.Log)
	AuthRoutes(r, d.Auth, auth)
	IssueRoutes(r, d.Issues, auth, middlewares.IssueRateLimiter(d.Counter, d.IssueQueue, d.IssueDayLimit, d.Log))
	NotificationRoutes(r, d.Notifications, auth)
}
