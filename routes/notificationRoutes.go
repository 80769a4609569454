package routes

import (
	"civicsync-api/controllers"

	"github.com/gin-gonic/gin"
)

func NotificationRoutes(r *gin.Engine, h *controllers.NotificationController, auth gin.HandlerFunc) {
	n := r.Group("/api/notifications", auth)
	{
		n.GET("", h.GetNotifications)
		n.PUT("/read-all", h.MarkAllAsRead)
		n.PUT("/:id/read", h.MarkAsRead)
		n.DELETE("/:id", h.DeleteNotification)
	}
}
