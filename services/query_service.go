package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"civicsync-api/apperrors"
	"civicsync-api/models"
	"civicsync-api/repository"
	"civicsync-api/validation"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100

	DefaultNearbyDistance = 5000.0
	DefaultNearbyLimit    = 20
	MaxNearbyLimit        = 100

	topVotedLimit = 5
	trendDays     = 7
)

// ListParams are the raw listing parameters. Empty strings and "all" mean
// no constraint.
type ListParams struct {
	Status     string
	Category   string
	Priority   string
	Search     string
	ReportedBy *primitive.ObjectID
	SortBy     string
	Page       int
	Limit      int
}

type ListResult struct {
	Items      []IssueView `json:"items"`
	Total      int64       `json:"total"`
	TotalPages int         `json:"totalPages"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
}

type Stats struct {
	Overview   models.IssueOverview   `json:"overview"`
	ByCategory []models.CategoryCount `json:"byCategory"`
}

type DayCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type TopVotedIssue struct {
	ID       primitive.ObjectID   `json:"id"`
	Title    string               `json:"title"`
	Category models.IssueCategory `json:"category"`
	Status   models.IssueStatus   `json:"status"`
	Upvotes  int                  `json:"upvotes"`
}

type Analytics struct {
	Last7Days        []DayCount             `json:"last7Days"`
	TopVoted         []TopVotedIssue        `json:"topVoted"`
	OpenIssues       int64                  `json:"openIssues"`
	TotalIssues      int64                  `json:"totalIssues"`
	IssuesByCategory []models.CategoryCount `json:"issuesByCategory"`
}

// QueryService answers read-only questions about issues.
type QueryService struct {
	issues repository.IssueRepository
	users  repository.UserRepository
	now    func() time.Time
}

func NewQueryService(issues repository.IssueRepository, users repository.UserRepository) *QueryService {
	return &QueryService{
		issues: issues,
		users:  users,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// NormalizePage clamps page to at least 1 and limit to [1, MaxPageLimit],
// substituting def for a missing limit.
func NormalizePage(page, limit, def int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit == 0 {
		limit = def
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

// TotalPages is ceil(total/limit).
func TotalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

func (q *QueryService) List(ctx context.Context, p ListParams) (*ListResult, error) {
	sort, err := repository.ParseSort(p.SortBy)
	if err != nil {
		return nil, apperrors.Invalid("sortBy", err.Error())
	}
	page, limit := NormalizePage(p.Page, p.Limit, DefaultPageLimit)

	filter := repository.IssueFilter{
		Status:     models.IssueStatus(facet(p.Status)),
		Category:   models.IssueCategory(facet(p.Category)),
		Priority:   models.IssuePriority(facet(p.Priority)),
		Search:     strings.TrimSpace(p.Search),
		ReportedBy: p.ReportedBy,
	}

	total, err := q.issues.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count issues: %w", err)
	}
	issues, err := q.issues.List(ctx, filter, sort, repository.Page{
		Skip:  int64((page - 1) * limit),
		Limit: int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	items, err := decorate(ctx, q.users, issues)
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Items:      items,
		Total:      total,
		TotalPages: TotalPages(total, limit),
		Page:       page,
		Limit:      limit,
	}, nil
}

// Nearby returns issues within maxDistance meters of (lng, lat), nearest
// first.
func (q *QueryService) Nearby(ctx context.Context, lng, lat, maxDistance float64, limit int) ([]IssueView, error) {
	errs := validation.Point("coordinates", lng, lat)
	if !(maxDistance > 0) || math.IsInf(maxDistance, 1) {
		errs = append(errs, apperrors.FieldError{Field: "maxDistance", Message: "maxDistance must be greater than 0"})
	}
	if len(errs) > 0 {
		return nil, apperrors.Validation(errs...)
	}
	if limit < 1 {
		limit = DefaultNearbyLimit
	}
	if limit > MaxNearbyLimit {
		limit = MaxNearbyLimit
	}

	issues, err := q.issues.Near(ctx, models.NewPoint(lng, lat), maxDistance, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("nearby issues: %w", err)
	}
	return decorate(ctx, q.users, issues)
}

func (q *QueryService) Stats(ctx context.Context) (*Stats, error) {
	overview, err := q.issues.Overview(ctx)
	if err != nil {
		return nil, fmt.Errorf("issue overview: %w", err)
	}
	byCategory, err := q.issues.CountByCategory(ctx)
	if err != nil {
		return nil, fmt.Errorf("issues by category: %w", err)
	}
	return &Stats{Overview: overview, ByCategory: byCategory}, nil
}

// Analytics reports the daily creation trend of the last seven days, the
// most upvoted issues and the open workload.
func (q *QueryService) Analytics(ctx context.Context) (*Analytics, error) {
	now := q.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	days := make([]DayCount, 0, trendDays)
	for i := trendDays - 1; i >= 0; i-- {
		start := today.AddDate(0, 0, -i)
		end := start.AddDate(0, 0, 1)
		n, err := q.issues.Count(ctx, repository.IssueFilter{CreatedGTE: &start, CreatedLT: &end})
		if err != nil {
			return nil, fmt.Errorf("count issues for %s: %w", start.Format(time.DateOnly), err)
		}
		days = append(days, DayCount{Date: start.Format(time.DateOnly), Count: n})
	}

	top, err := q.issues.List(ctx, repository.IssueFilter{}, repository.Sort{Field: "upvoteCount", Desc: true}, repository.Page{Limit: topVotedLimit})
	if err != nil {
		return nil, fmt.Errorf("top voted issues: %w", err)
	}
	topVoted := make([]TopVotedIssue, 0, len(top))
	for _, issue := range top {
		topVoted = append(topVoted, TopVotedIssue{
			ID:       issue.ID,
			Title:    issue.Title,
			Category: issue.Category,
			Status:   issue.Status,
			Upvotes:  issue.UpvoteCount,
		})
	}

	open, err := q.issues.Count(ctx, repository.IssueFilter{Statuses: []models.IssueStatus{models.Pending, models.InProgress}})
	if err != nil {
		return nil, fmt.Errorf("count open issues: %w", err)
	}
	total, err := q.issues.Count(ctx, repository.IssueFilter{})
	if err != nil {
		return nil, fmt.Errorf("count issues: %w", err)
	}
	byCategory, err := q.issues.CountByCategory(ctx)
	if err != nil {
		return nil, fmt.Errorf("issues by category: %w", err)
	}

	return &Analytics{
		Last7Days:        days,
		TopVoted:         topVoted,
		OpenIssues:       open,
		TotalIssues:      total,
		IssuesByCategory: byCategory,
	}, nil
}

func facet(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "all") {
		return ""
	}
	return v
}
