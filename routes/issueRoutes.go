package routes

import (
	"civicsync-api/controllers"

	"github.com/gin-gonic/gin"
)

// IssueRoutes sets up the issue routes
func IssueRoutes(r *gin.Engine, h *controllers.IssueController, auth, createLimit gin.HandlerFunc) {
	issue := r.Group("/api/issues")
	{
		issue.GET("", h.GetIssues)
		issue.GET("/stats", h.GetIssueStats)
		issue.GET("/analytics", h.GetIssueAnalytics)
		issue.GET("/nearby/:longitude/:latitude", h.GetNearbyIssues)
		issue.GET("/mine", auth, h.GetMyIssues)
		issue.GET("/:id", h.GetIssue)

		issue.POST("", auth, createLimit, h.CreateIssue)
		issue.PUT("/:id", auth, h.UpdateIssue)
		issue.DELETE("/:id", auth, h.DeleteIssue)
		issue.POST("/:id/upvote", auth, h.UpvoteIssue)
		issue.POST("/:id/comments", auth, h.AddComment)
	}
}
