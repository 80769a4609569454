package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Health reports liveness; ping, when set, checks the database.
func Health(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"success": true, "message": "CivicSync API is running", "timestamp": time.Now().UTC()}
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "database unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, body)
	}
}
