package controllers

import (
	"net/http"
	"strconv"

	"civicsync-api/apperrors"
	"civicsync-api/services"
	"civicsync-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// IssueController exposes the issue store and query engine over HTTP.
type IssueController struct {
	issues  *services.IssueService
	queries *services.QueryService
	log     zerolog.Logger
}

func NewIssueController(issues *services.IssueService, queries *services.QueryService, log zerolog.Logger) *IssueController {
	return &IssueController{issues: issues, queries: queries, log: log}
}

func listParams(c *gin.Context) services.ListParams {
	return services.ListParams{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Priority: c.Query("priority"),
		Search:   c.Query("search"),
		SortBy:   c.Query("sortBy"),
		Page:     utils.QueryInt(c, "page", 1),
		Limit:    utils.QueryInt(c, "limit", services.DefaultPageLimit),
	}
}

func (h *IssueController) respondList(c *gin.Context, res *services.ListResult) {
	utils.OK(c, http.StatusOK, res.Items, gin.H{
		"count":       len(res.Items),
		"total":       res.Total,
		"totalPages":  res.TotalPages,
		"currentPage": res.Page,
	})
}

// GetIssues handles GET /api/issues
func (h *IssueController) GetIssues(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.queries.List(ctx, listParams(c))
	if err != nil {
		utils.RespondError(c, h.log, err)
		return
	}
	h.respondList(c, res)
}

// GetMyIssues lists the issues reported by the caller.
func (h *IssueController) GetMyIssues(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	params := listParams(c)
	params.ReportedBy = &who.ID
	res, err := h.queries.List(ctx, params)
	if err != nil {
		utils.RespondError(c, h.log, err)
		return
	}
	h.respondList(c, res)
}

func (h *IssueController) GetIssue(c *gin.Context) {
	id, err := objectIDParam(c, "id", "issue")
	if err != nil {
		utils.RespondError(c, h.log, err)
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	issue, err := h.issues.Get(ctx, id)
	if err != nil {
		utils.RespondError(c, h.log, err)
		return
	}
	utils.OK(c, http.StatusOK, issue, nil)
}

// CreateIssue accepts either JSON or a multipart form carrying "images".
func (h *IssueController) CreateIssue(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}

	var (
		req     createIssueRequest
		uploads []services.Upload
		err     error
	)
	if isMultipart(c) {
		req, uploads, err = bindCreateForm(c)
	} else if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		err = apperrors.Invalid("body", "Request body must be valid JSON")
	}
	if err != nil {
		utils.RespondError(c, h.log, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	issue, err := h.issues.CreateWithUploads(ctx, who, req.toInput(), uploads)
	if err != nil {
		utils.RespondError(c, h.log, err)
		return
	}
	utils.OK(c, http.StatusCreated, issue, gin.H{"message": "Issue reported successfully"})
}

func (h *IssueController) UpdateIssue(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, err := objectIDParam(c, "id", "issue")
	if err != nil {
		utils.RespondError(c, h.log, err)
		return
	}
	var req updateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, h.log, apperrors.Invalid("body", "Request body must be valid JSON"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	issue, err := h.issues.Update(ctx, who, id, req.toInput())
	if err != nil {
		utils.RespondError(c, h.log, err)
		return
	}
	utils.OK(c, http.StatusOK, issue, gin.H{"message": "Issue updated successfully"})
}

func (h *IssueController) DeleteIssue(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, err := objectIDParam(c, "id", "issue")
	if err != nil {
		utils.RespondError(c, h.log, err)
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.issues.Delete(ctx, who, id); err != nil {
		utils.RespondError(c, h.log, err)
		return
	}
	utils.OK(c, http.StatusOK, gin.H{}, gin.H{"message": "Issue deleted successfully"})
}

// UpvoteIssue toggles the caller's upvote.
func (h *IssueController) UpvoteIssue(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, err := objectIDParam(c, "id", "issue")
	if err != nil {
		utils.RespondError(c, h.log, err)
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.issues.ToggleUpvote(ctx, who, id)
	if err != nil {
		utils.RespondError(c, h.log, err)
		return
	}
	utils.OK(c, http.StatusOK, res, nil)
}

func (h *IssueController) AddComment(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, err := objectIDParam(c, "id", "issue")
	if err != nil {
		utils.RespondError(c, h.log, err)
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, h.log, apperrors.Invalid("body", "Request body must be valid JSON"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	comments, err := h.issues.AddComment(ctx, who, id, req.Text)
	if err != nil {
		utils.RespondError(c, h.log, err)
		return
	}
	utils.OK(c, http.StatusCreated, comments, gin.H{"message": "Comment added successfully"})
}

// GetNearbyIssues handles GET /api/issues/nearby/:longitude/:latitude
func (h *IssueController) GetNearbyIssues(c *gin.Context) {
	lng, errLng := strconv.ParseFloat(c.Param("longitude"), 64)
	lat, errLat := strconv.ParseFloat(c.Param("latitude"), 64)
	if errLng != nil || errLat != nil {
		utils.RespondError(c, h.log, apperrors.Invalid("coordinates", "Longitude and latitude must be numbers"))
		return
	}
	maxDistance := utils.QueryFloat(c, "maxDistance", services.DefaultNearbyDistance)
	limit := utils.QueryInt(c, "limit", services.DefaultNearbyLimit)

	ctx, cancel := requestContext(c)
	defer cancel()

	issues, err := h.queries.Nearby(ctx, lng, lat, maxDistance, limit)
	if err != nil {
		utils.RespondError(c, h.log, err)
		return
	}
	utils.OK(c, http.StatusOK, issues, gin.H{"count": len(issues)})
}

func (h *IssueController) GetIssueStats(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	stats, err := h.queries.Stats(ctx)
	if err != nil {
		utils.RespondError(c, h.log, err)
		return
	}
	utils.OK(c, http.StatusOK, stats, nil)
}

// GetIssueAnalytics returns trend and engagement figures for dashboards.
func (h *IssueController) GetIssueAnalytics(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	analytics, err := h.queries.Analytics(ctx)
	if err != nil {
		utils.RespondError(c, h.log, err)
		return
	}
	utils.OK(c, http.StatusOK, analytics, nil)
}
