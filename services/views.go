package services

import (
	"context"
	"fmt"

	"civicsync-api/models"
	"civicsync-api/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueView is an issue with its user references resolved to summaries.
type IssueView struct {
	models.Issue
	ReportedBy    *models.UserSummary `json:"reportedBy"`
	AssignedTo    *models.UserSummary `json:"assignedTo,omitempty"`
	Comments      []CommentView       `json:"comments"`
	StatusHistory []StatusChangeView  `json:"statusHistory"`
}

type CommentView struct {
	models.Comment
	User *models.UserSummary `json:"user"`
}

type StatusChangeView struct {
	models.StatusChange
	ChangedBy *models.UserSummary `json:"changedBy"`
}

// UpvoteResult is returned by ToggleUpvote.
type UpvoteResult struct {
	Upvotes     int  `json:"upvotes"`
	UserUpvoted bool `json:"userUpvoted"`
}

// summaries resolves user ids to display projections in one directory call.
type summaries map[primitive.ObjectID]models.UserSummary

func loadSummaries(ctx context.Context, users repository.UserRepository, issues []models.Issue) (summaries, error) {
	seen := map[primitive.ObjectID]bool{}
	var ids []primitive.ObjectID
	add := func(id primitive.ObjectID) {
		if id.IsZero() || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}
	for i := range issues {
		add(issues[i].ReportedBy)
		if issues[i].AssignedTo != nil {
			add(*issues[i].AssignedTo)
		}
		for _, c := range issues[i].Comments {
			add(c.User)
		}
		for _, h := range issues[i].StatusHistory {
			add(h.ChangedBy)
		}
	}
	if len(ids) == 0 {
		return summaries{}, nil
	}
	found, err := users.FindSummaries(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve users: %w", err)
	}
	return found, nil
}

// of returns the summary for id. Users missing from the directory keep
// their id so the reference is never dropped.
func (s summaries) of(id primitive.ObjectID) *models.UserSummary {
	if u, ok := s[id]; ok {
		return &u
	}
	return &models.UserSummary{ID: id}
}

func (s summaries) view(issue models.Issue) IssueView {
	v := IssueView{
		Issue:         issue,
		ReportedBy:    s.of(issue.ReportedBy),
		Comments:      s.comments(issue.Comments),
		StatusHistory: make([]StatusChangeView, 0, len(issue.StatusHistory)),
	}
	if issue.AssignedTo != nil {
		v.AssignedTo = s.of(*issue.AssignedTo)
	}
	for _, h := range issue.StatusHistory {
		v.StatusHistory = append(v.StatusHistory, StatusChangeView{StatusChange: h, ChangedBy: s.of(h.ChangedBy)})
	}
	if v.Images == nil {
		v.Images = []models.Image{}
	}
	if v.Upvotes == nil {
		v.Upvotes = []primitive.ObjectID{}
	}
	return v
}

func (s summaries) comments(in []models.Comment) []CommentView {
	out := make([]CommentView, 0, len(in))
	for _, c := range in {
		out = append(out, CommentView{Comment: c, User: s.of(c.User)})
	}
	return out
}

func decorate(ctx context.Context, users repository.UserRepository, issues []models.Issue) ([]IssueView, error) {
	s, err := loadSummaries(ctx, users, issues)
	if err != nil {
		return nil, err
	}
	out := make([]IssueView, 0, len(issues))
	for _, issue := range issues {
		out = append(out, s.view(issue))
	}
	return out, nil
}

func decorateOne(ctx context.Context, users repository.UserRepository, issue *models.Issue) (*IssueView, error) {
	views, err := decorate(ctx, users, []models.Issue{*issue})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}
