package controllers

import (
	"net/http"

	"civicsync-api/services"
	"civicsync-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type NotificationController struct {
	notifications *services.NotificationService
	log           zerolog.Logger
}

func NewNotificationController(notifications *services.NotificationService, log zerolog.Logger) *NotificationController {
	return &NotificationController{notifications: notifications, log: log}
}

// GetNotifications handles GET /api/notifications?page=&limit=&unreadOnly=
func (h *NotificationController) GetNotifications(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	page, err := h.notifications.List(ctx, who,
		utils.QueryInt(c, "page", 1),
		utils.QueryInt(c, "limit", services.DefaultNotificationLimit),
		utils.QueryBool(c, "unreadOnly"))
	if err != nil {
		utils.RespondError(c, h.log, err)
		return
	}
	utils.OK(c, http.StatusOK, page.Items, gin.H{
		"count":       len(page.Items),
		"total":       page.Total,
		"unreadCount": page.UnreadCount,
		"totalPages":  page.TotalPages,
		"currentPage": page.Page,
	})
}

func (h *NotificationController) MarkAsRead(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, err := objectIDParam(c, "id", "notification")
	if err != nil {
		utils.RespondError(c, h.log, err)
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	n, err := h.notifications.MarkRead(ctx, who, id)
	if err != nil {
		utils.RespondError(c, h.log, err)
		return
	}
	utils.OK(c, http.StatusOK, n, nil)
}

func (h *NotificationController) MarkAllAsRead(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	modified, err := h.notifications.MarkAllRead(ctx, who)
	if err != nil {
		utils.RespondError(c, h.log, err)
		return
	}
	utils.OK(c, http.StatusOK, gin.H{"modified": modified}, gin.H{"message": "All notifications marked as read"})
}

func (h *NotificationController) DeleteNotification(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, err := objectIDParam(c, "id", "notification")
	if err != nil {
		utils.RespondError(c, h.log, err)
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.notifications.Delete(ctx, who, id); err != nil {
		utils.RespondError(c, h.log, err)
		return
	}
	utils.Message(c, http.StatusOK, "Notification deleted")
}
