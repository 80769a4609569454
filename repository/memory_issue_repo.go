package repository

import (
	"bytes"
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"civicsync-api/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryIssueRepo keeps issues in process memory with the same query
// semantics as MongoIssueRepo. Used for local development and tests.
type MemoryIssueRepo struct {
	mu     sync.RWMutex
	issues map[primitive.ObjectID]models.Issue
}

func NewMemoryIssueRepo() *MemoryIssueRepo {
	return &MemoryIssueRepo{issues: make(map[primitive.ObjectID]models.Issue)}
}

func (r *MemoryIssueRepo) Insert(ctx context.Context, issue *models.Issue) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if issue.ID.IsZero() {
		issue.ID = primitive.NewObjectID()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.issues[issue.ID]; ok {
		return ErrDuplicate
	}
	r.issues[issue.ID] = cloneIssue(*issue)
	return nil
}

func (r *MemoryIssueRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	issue, ok := r.issues[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneIssue(issue)
	return &out, nil
}

func (r *MemoryIssueRepo) Update(ctx context.Context, id primitive.ObjectID, p IssuePatch) (*models.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.issues[id]
	if !ok {
		return nil, ErrNotFound
	}
	before := cloneIssue(stored)
	after := cloneIssue(stored)
	p.Apply(&after)
	r.issues[id] = cloneIssue(after)
	return &before, nil
}

func (r *MemoryIssueRepo) ToggleUpvote(ctx context.Context, id, userID primitive.ObjectID, at time.Time) (*models.Issue, error) {
	return r.mutate(ctx, id, func(issue *models.Issue) {
		issue.ToggleUpvote(userID)
		issue.UpdatedAt = at
	})
}

func (r *MemoryIssueRepo) AddComment(ctx context.Context, id primitive.ObjectID, c models.Comment) (*models.Issue, error) {
	return r.mutate(ctx, id, func(issue *models.Issue) {
		issue.AddComment(c)
	})
}

// mutate applies fn to the stored issue under the write lock and returns a
// copy of the result.
func (r *MemoryIssueRepo) mutate(ctx context.Context, id primitive.ObjectID, fn func(*models.Issue)) (*models.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.issues[id]
	if !ok {
		return nil, ErrNotFound
	}
	issue := cloneIssue(stored)
	fn(&issue)
	r.issues[id] = issue
	out := cloneIssue(issue)
	return &out, nil
}

func (r *MemoryIssueRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.issues[id]; !ok {
		return ErrNotFound
	}
	delete(r.issues, id)
	return nil
}

func (r *MemoryIssueRepo) List(ctx context.Context, f IssueFilter, s Sort, p Page) ([]models.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matched := r.matching(f)
	sortIssues(matched, s)

	out := []models.Issue{}
	if p.Skip >= int64(len(matched)) {
		return out, nil
	}
	end := int64(len(matched))
	if p.Limit > 0 && p.Skip+p.Limit < end {
		end = p.Skip + p.Limit
	}
	return append(out, matched[p.Skip:end]...), nil
}

func (r *MemoryIssueRepo) Count(ctx context.Context, f IssueFilter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return int64(len(r.matching(f))), nil
}

func (r *MemoryIssueRepo) Near(ctx context.Context, point models.GeoPoint, maxDistance float64, limit int64) ([]models.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	type hit struct {
		issue    models.Issue
		distance float64
	}
	var hits []hit
	for _, issue := range r.matching(IssueFilter{}) {
		c := issue.Location.Coordinates
		if len(c.Coordinates) != 2 {
			continue
		}
		d := DistanceMeters(point.Longitude(), point.Latitude(), c.Longitude(), c.Latitude())
		if d <= maxDistance {
			hits = append(hits, hit{issue: issue, distance: d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].distance < hits[j].distance })

	out := []models.Issue{}
	for _, h := range hits {
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
		out = append(out, h.issue)
	}
	return out, nil
}

func (r *MemoryIssueRepo) Overview(ctx context.Context) (models.IssueOverview, error) {
	if err := ctx.Err(); err != nil {
		return models.IssueOverview{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var o models.IssueOverview
	for _, issue := range r.issues {
		o.TotalIssues++
		switch issue.Status {
		case models.Pending:
			o.Pending++
		case models.InProgress:
			o.InProgress++
		case models.Resolved:
			o.Resolved++
		case models.Rejected:
			o.Rejected++
		}
	}
	return o, nil
}

func (r *MemoryIssueRepo) CountByCategory(ctx context.Context) ([]models.CategoryCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	counts := map[models.IssueCategory]int64{}
	for _, issue := range r.issues {
		counts[issue.Category]++
	}
	r.mu.RUnlock()

	out := make([]models.CategoryCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, models.CategoryCount{Category: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

func (r *MemoryIssueRepo) matching(f IssueFilter) []models.Issue {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Issue, 0, len(r.issues))
	for _, issue := range r.issues {
		if matchIssue(issue, f) {
			out = append(out, cloneIssue(issue))
		}
	}
	return out
}

func matchIssue(issue models.Issue, f IssueFilter) bool {
	if f.Status != "" && issue.Status != f.Status {
		return false
	}
	if f.Status == "" && len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if issue.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Category != "" && issue.Category != f.Category {
		return false
	}
	if f.Priority != "" && issue.Priority != f.Priority {
		return false
	}
	if f.ReportedBy != nil && issue.ReportedBy != *f.ReportedBy {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(issue.Title), q) &&
			!strings.Contains(strings.ToLower(issue.Description), q) {
			return false
		}
	}
	if f.CreatedGTE != nil && issue.CreatedAt.Before(*f.CreatedGTE) {
		return false
	}
	if f.CreatedLT != nil && !issue.CreatedAt.Before(*f.CreatedLT) {
		return false
	}
	return true
}

func sortIssues(issues []models.Issue, s Sort) {
	if s.Field == "" {
		s = DefaultSort
	}
	sort.SliceStable(issues, func(i, j int) bool {
		c := compareField(issues[i], issues[j], s.Field)
		if c == 0 {
			c = bytes.Compare(issues[i].ID[:], issues[j].ID[:])
		}
		if s.Desc {
			return c > 0
		}
		return c < 0
	})
}

func compareField(a, b models.Issue, field string) int {
	switch field {
	case "createdAt":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "updatedAt":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case "upvoteCount":
		return a.UpvoteCount - b.UpvoteCount
	case "priority":
		return strings.Compare(string(a.Priority), string(b.Priority))
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	case "category":
		return strings.Compare(string(a.Category), string(b.Category))
	case "title":
		return strings.Compare(a.Title, b.Title)
	}
	return 0
}

func cloneIssue(in models.Issue) models.Issue {
	out := in
	out.Location.Coordinates.Coordinates = slices.Clone(in.Location.Coordinates.Coordinates)
	out.Images = slices.Clone(in.Images)
	out.Upvotes = slices.Clone(in.Upvotes)
	out.Comments = slices.Clone(in.Comments)
	out.StatusHistory = slices.Clone(in.StatusHistory)
	if in.AssignedTo != nil {
		id := *in.AssignedTo
		out.AssignedTo = &id
	}
	if in.ResolvedAt != nil {
		t := *in.ResolvedAt
		out.ResolvedAt = &t
	}
	return out
}
