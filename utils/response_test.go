package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"civicsync-api/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func respond(t *testing.T, err error) (int, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/issues", nil)
	RespondError(c, zerolog.Nop(), err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusOf(apperrors.Invalid("title", "bad")))
	assert.Equal(t, http.StatusNotFound, StatusOf(apperrors.NotFound("Issue")))
	assert.Equal(t, http.StatusUnauthorized, StatusOf(apperrors.Unauthenticated("no")))
	assert.Equal(t, http.StatusForbidden, StatusOf(apperrors.Forbidden("no")))
	assert.Equal(t, http.StatusConflict, StatusOf(apperrors.Conflict("dup")))
	assert.Equal(t, http.StatusBadGateway, StatusOf(apperrors.Dependency("upload", errors.New("x"))))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("boom")))
}

func TestRespondError_Validation(t *testing.T) {
	code, body := respond(t, apperrors.Invalid("title", "title must be at least 5 characters"))

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Validation failed", body["message"])
	assert.Equal(t, []any{map[string]any{"field": "title", "message": "title must be at least 5 characters"}}, body["errors"])
}

func TestRespondError_HidesInternalErrors(t *testing.T) {
	code, body := respond(t, errors.New("mongo: connection reset"))

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Something went wrong", body["message"])
	assert.NotContains(t, body, "errors")
}

func TestOK(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	OK(c, http.StatusOK, []int{1, 2}, gin.H{"count": 2})

	assert.JSONEq(t, `{"success":true,"data":[1,2],"count":2}`, w.Body.String())
}

func TestQueryHelpers(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=3&limit=abc&lng=77.5&unreadOnly=true", nil)

	assert.Equal(t, 3, QueryInt(c, "page", 1))
	assert.Equal(t, 10, QueryInt(c, "limit", 10))
	assert.Equal(t, 1, QueryInt(c, "missing", 1))
	assert.Equal(t, 77.5, QueryFloat(c, "lng", 0))
	assert.True(t, QueryBool(c, "unreadOnly"))
	assert.False(t, QueryBool(c, "missing"))
}
