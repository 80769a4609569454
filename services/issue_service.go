package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"civicsync-api/apperrors"
	"civicsync-api/mailer"
	"civicsync-api/metrics"
	"civicsync-api/models"
	"civicsync-api/repository"
	"civicsync-api/storage"
	"civicsync-api/validation"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const sideEffectTimeout = 15 * time.Second

// upvoteMilestones are the counts that notify the reporter when reached.
var upvoteMilestones = map[int]bool{10: true, 25: true, 50: true, 100: true}

type IssueServiceDeps struct {
	Issues        repository.IssueRepository
	Users         repository.UserRepository
	Files         storage.FileStorage
	Mailer        mailer.Mailer
	Notifications *NotificationService
	Log           zerolog.Logger
}

// IssueService owns issue records and enforces their lifecycle rules.
type IssueService struct {
	issues repository.IssueRepository
	users  repository.UserRepository
	files  storage.FileStorage
	mail   mailer.Mailer
	notes  *NotificationService
	log    zerolog.Logger

	now   func() time.Time
	spawn func(func())
}

func NewIssueService(d IssueServiceDeps) *IssueService {
	return &IssueService{
		issues: d.Issues,
		users:  d.Users,
		files:  d.Files,
		mail:   d.Mailer,
		notes:  d.Notifications,
		log:    d.Log,
		now:    func() time.Time { return time.Now().UTC() },
		spawn:  func(f func()) { go f() },
	}
}

func (s *IssueService) Get(ctx context.Context, id primitive.ObjectID) (*IssueView, error) {
	issue, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return decorateOne(ctx, s.users, issue)
}

func (s *IssueService) Create(ctx context.Context, caller models.Caller, in CreateIssueInput) (*IssueView, error) {
	if errs := in.Validate(); len(errs) > 0 {
		return nil, apperrors.Validation(errs...)
	}

	priority := models.Medium
	if in.Priority != "" {
		priority = models.IssuePriority(in.Priority)
	}
	images := in.Images
	if images == nil {
		images = []models.Image{}
	}

	now := s.now()
	issue := &models.Issue{
		ID:            primitive.NewObjectID(),
		Title:         in.Title,
		Description:   in.Description,
		Category:      models.IssueCategory(in.Category),
		Status:        models.Pending,
		Priority:      priority,
		Location:      in.Location.toModel(),
		Images:        images,
		ReportedBy:    caller.ID,
		Upvotes:       []primitive.ObjectID{},
		Comments:      []models.Comment{},
		StatusHistory: []models.StatusChange{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.issues.Insert(ctx, issue); err != nil {
		return nil, fmt.Errorf("insert issue: %w", err)
	}
	metrics.IssuesCreated.Inc()
	s.log.Info().Str("issue_id", issue.ID.Hex()).Str("reported_by", caller.ID.Hex()).Msg("issue created")

	created := *issue
	s.background(ctx, "email", func(ctx context.Context) error {
		return s.emailReporter(ctx, &created, mailer.IssueCreated)
	})

	return decorateOne(ctx, s.users, issue)
}

func (s *IssueService) Update(ctx context.Context, caller models.Caller, id primitive.ObjectID, in UpdateIssueInput) (*IssueView, error) {
	issue, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if issue.ReportedBy != caller.ID && !caller.IsStaff() {
		return nil, apperrors.Forbidden("Not authorized to update this issue")
	}
	if (in.AssignedTo != nil || in.RejectionReason != nil) && !caller.IsStaff() {
		return nil, apperrors.Forbidden("Only municipal staff can assign issues or record a rejection reason")
	}
	if errs := in.Validate(); len(errs) > 0 {
		return nil, apperrors.Validation(errs...)
	}

	patch := repository.IssuePatch{
		Title:           in.Title,
		Description:     in.Description,
		RejectionReason: in.RejectionReason,
		UpdatedAt:       s.now(),
	}
	if in.AssignedTo != nil {
		assignee, err := s.resolveAssignee(ctx, *in.AssignedTo)
		if err != nil {
			return nil, err
		}
		patch.Assign, patch.AssignedTo = true, assignee
	}
	if in.Category != nil {
		category := models.IssueCategory(*in.Category)
		patch.Category = &category
	}
	if in.Priority != nil {
		priority := models.IssuePriority(*in.Priority)
		patch.Priority = &priority
	}
	if in.Location != nil {
		location := in.Location.toModel()
		patch.Location = &location
	}
	if in.Status != nil {
		change := models.StatusChange{
			Status:    models.IssueStatus(*in.Status),
			ChangedBy: caller.ID,
			ChangedAt: patch.UpdatedAt,
		}
		if in.StatusNote != nil {
			change.Note = *in.StatusNote
		}
		patch.Status = &change
	}

	issue, err = s.issues.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("Issue")
		}
		return nil, fmt.Errorf("update issue: %w", err)
	}
	prevAssignee := issue.AssignedTo
	statusChanged := patch.Apply(issue)

	updated := *issue
	if statusChanged {
		metrics.StatusChanges.WithLabelValues(string(issue.Status)).Inc()
		s.log.Info().Str("issue_id", issue.ID.Hex()).Str("status", string(issue.Status)).Str("changed_by", caller.ID.Hex()).Msg("issue status changed")
		s.background(ctx, "email", func(ctx context.Context) error {
			return s.emailReporter(ctx, &updated, mailer.StatusUpdate)
		})
		s.background(ctx, "notification", func(ctx context.Context) error {
			return s.notifyStatusChange(ctx, caller, &updated)
		})
	}
	if issue.AssignedTo != nil && (prevAssignee == nil || *prevAssignee != *issue.AssignedTo) {
		s.background(ctx, "notification", func(ctx context.Context) error {
			return s.notify(ctx, &models.Notification{
				Recipient: *updated.AssignedTo,
				Sender:    &caller.ID,
				Type:      models.NotificationIssueAssigned,
				Issue:     &updated.ID,
				Title:     "Issue assigned to you",
				Message:   fmt.Sprintf("You have been assigned to %q", updated.Title),
				Link:      issueLink(updated.ID),
			})
		})
	}

	return decorateOne(ctx, s.users, issue)
}

func (s *IssueService) Delete(ctx context.Context, caller models.Caller, id primitive.ObjectID) error {
	issue, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if issue.ReportedBy != caller.ID && !caller.IsAdmin() {
		return apperrors.Forbidden("Not authorized to delete this issue")
	}

	for _, img := range issue.Images {
		if s.files == nil {
			break
		}
		if _, err := s.files.Delete(ctx, img.PublicID); err != nil {
			metrics.SideEffectFailures.WithLabelValues("storage_delete").Inc()
			s.log.Warn().Err(err).Str("issue_id", id.Hex()).Str("public_id", img.PublicID).Msg("image delete failed")
		}
	}

	if err := s.issues.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("Issue")
		}
		return fmt.Errorf("delete issue: %w", err)
	}
	s.log.Info().Str("issue_id", id.Hex()).Str("deleted_by", caller.ID.Hex()).Msg("issue deleted")
	return nil
}

func (s *IssueService) ToggleUpvote(ctx context.Context, caller models.Caller, id primitive.ObjectID) (UpvoteResult, error) {
	issue, err := s.issues.ToggleUpvote(ctx, id, caller.ID, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return UpvoteResult{}, apperrors.NotFound("Issue")
		}
		return UpvoteResult{}, fmt.Errorf("toggle upvote: %w", err)
	}
	upvoted := issue.HasUpvote(caller.ID)

	direction := "off"
	if upvoted {
		direction = "on"
	}
	metrics.UpvoteToggles.WithLabelValues(direction).Inc()

	if upvoted && upvoteMilestones[issue.UpvoteCount] {
		count, reporter, issueID, title := issue.UpvoteCount, issue.ReportedBy, issue.ID, issue.Title
		s.background(ctx, "notification", func(ctx context.Context) error {
			return s.notify(ctx, &models.Notification{
				Recipient: reporter,
				Type:      models.NotificationUpvoteMilestone,
				Issue:     &issueID,
				Title:     "Upvote milestone reached",
				Message:   fmt.Sprintf("%q has reached %d upvotes", title, count),
				Link:      issueLink(issueID),
			})
		})
	}

	return UpvoteResult{Upvotes: issue.UpvoteCount, UserUpvoted: upvoted}, nil
}

func (s *IssueService) AddComment(ctx context.Context, caller models.Caller, id primitive.ObjectID, text string) ([]CommentView, error) {
	issue, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	in := commentInput{Text: strings.TrimSpace(text)}
	if errs := validation.Struct(in); len(errs) > 0 {
		return nil, apperrors.Validation(errs...)
	}

	issue, err = s.issues.AddComment(ctx, id, models.NewComment(caller.ID, in.Text, s.now()))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("Issue")
		}
		return nil, fmt.Errorf("add comment: %w", err)
	}

	if caller.ID != issue.ReportedBy {
		reporter, issueID, title := issue.ReportedBy, issue.ID, issue.Title
		s.background(ctx, "notification", func(ctx context.Context) error {
			return s.notify(ctx, &models.Notification{
				Recipient: reporter,
				Sender:    &caller.ID,
				Type:      models.NotificationCommentAdded,
				Issue:     &issueID,
				Title:     "New comment on your issue",
				Message:   fmt.Sprintf("Someone commented on %q", title),
				Link:      issueLink(issueID),
			})
		})
	}

	sums, err := loadSummaries(ctx, s.users, []models.Issue{*issue})
	if err != nil {
		return nil, err
	}
	return sums.comments(issue.Comments), nil
}

func (s *IssueService) load(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	issue, err := s.issues.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("Issue")
	}
	if err != nil {
		return nil, fmt.Errorf("find issue: %w", err)
	}
	return issue, nil
}

func (s *IssueService) resolveAssignee(ctx context.Context, raw string) (*primitive.ObjectID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, apperrors.Invalid("assignedTo", "Invalid assignedTo ID")
	}
	if _, err := s.users.FindByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Invalid("assignedTo", "Assignee not found")
		}
		return nil, fmt.Errorf("find assignee: %w", err)
	}
	return &id, nil
}

// background runs best-effort work detached from the request. Failures are
// logged and counted, never returned.
func (s *IssueService) background(ctx context.Context, kind string, fn func(context.Context) error) {
	detached := context.WithoutCancel(ctx)
	s.spawn(func() {
		ctx, cancel := context.WithTimeout(detached, sideEffectTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			metrics.SideEffectFailures.WithLabelValues(kind).Inc()
			s.log.Warn().Err(err).Str("kind", kind).Msg("side effect failed")
		}
	})
}

func (s *IssueService) emailReporter(ctx context.Context, issue *models.Issue, build func(*models.Issue, *models.User) (mailer.Message, error)) error {
	if s.mail == nil {
		return nil
	}
	reporter, err := s.users.FindByID(ctx, issue.ReportedBy)
	if err != nil {
		return fmt.Errorf("find reporter: %w", err)
	}
	msg, err := build(issue, reporter)
	if err != nil {
		return err
	}
	return s.mail.Send(ctx, msg)
}

func (s *IssueService) notifyStatusChange(ctx context.Context, caller models.Caller, issue *models.Issue) error {
	n := &models.Notification{
		Recipient: issue.ReportedBy,
		Sender:    &caller.ID,
		Issue:     &issue.ID,
		Link:      issueLink(issue.ID),
	}
	switch issue.Status {
	case models.Resolved:
		n.Type = models.NotificationIssueResolved
		n.Title = "Issue resolved"
		n.Message = fmt.Sprintf("%q has been resolved", issue.Title)
	case models.Rejected:
		n.Type = models.NotificationIssueRejected
		n.Title = "Issue rejected"
		n.Message = fmt.Sprintf("%q has been rejected", issue.Title)
		if issue.RejectionReason != "" {
			n.Message += ": " + issue.RejectionReason
		}
	default:
		n.Type = models.NotificationIssueUpdated
		n.Title = "Issue updated"
		n.Message = fmt.Sprintf("%q is now %s", issue.Title, strings.ReplaceAll(string(issue.Status), "_", " "))
	}
	return s.notify(ctx, n)
}

// notify skips notifications a user would send to themselves.
func (s *IssueService) notify(ctx context.Context, n *models.Notification) error {
	if s.notes == nil {
		return nil
	}
	if n.Sender != nil && *n.Sender == n.Recipient {
		return nil
	}
	return s.notes.Notify(ctx, n)
}

func issueLink(id primitive.ObjectID) string {
	return "/issues/" + id.Hex()
}
