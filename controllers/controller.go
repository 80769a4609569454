package controllers

import (
	"context"
	"net/http"
	"time"

	"civicsync-api/apperrors"
	"civicsync-api/middlewares"
	"civicsync-api/models"
	"civicsync-api/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const requestTimeout = 10 * time.Second

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

// caller returns the authenticated caller or writes a 401.
func caller(c *gin.Context) (models.Caller, bool) {
	who, ok := middlewares.CallerFrom(c)
	if !ok {
		utils.Fail(c, http.StatusUnauthorized, "User not authenticated")
	}
	return who, ok
}

func objectIDParam(c *gin.Context, name, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		return primitive.NilObjectID, apperrors.Invalid(name, "Invalid "+what+" ID")
	}
	return id, nil
}
