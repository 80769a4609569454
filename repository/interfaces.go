package repository

import (
	"context"
	"errors"
	"time"

	"civicsync-api/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when a referenced document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when a unique index rejects a write.
	ErrDuplicate = errors.New("duplicate key")
)

// Page bounds a listing.
type Page struct {
	Skip  int64
	Limit int64
}

type IssueRepository interface {
	Insert(ctx context.Context, issue *models.Issue) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error)
	// Update applies p atomically and returns the issue as it was before.
	Update(ctx context.Context, id primitive.ObjectID, p IssuePatch) (*models.Issue, error)
	// ToggleUpvote atomically adds or removes userID from the upvote set and
	// returns the updated issue.
	ToggleUpvote(ctx context.Context, id, userID primitive.ObjectID, at time.Time) (*models.Issue, error)
	// AddComment appends c and returns the updated issue.
	AddComment(ctx context.Context, id primitive.ObjectID, c models.Comment) (*models.Issue, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, f IssueFilter, s Sort, p Page) ([]models.Issue, error)
	Count(ctx context.Context, f IssueFilter) (int64, error)
	// Near returns issues within maxDistance meters of point, nearest first.
	Near(ctx context.Context, point models.GeoPoint, maxDistance float64, limit int64) ([]models.Issue, error)
	Overview(ctx context.Context) (models.IssueOverview, error)
	CountByCategory(ctx context.Context) ([]models.CategoryCount, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// FindSummaries resolves ids to display projections; unknown ids are
	// absent from the result.
	FindSummaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error)
	UpdateRole(ctx context.Context, id primitive.ObjectID, role models.Role) error
}

type NotificationRepository interface {
	Insert(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, recipient primitive.ObjectID, unreadOnly bool, p Page) ([]models.Notification, error)
	Count(ctx context.Context, recipient primitive.ObjectID, unreadOnly bool) (int64, error)
	MarkRead(ctx context.Context, id, recipient primitive.ObjectID) (*models.Notification, error)
	MarkAllRead(ctx context.Context, recipient primitive.ObjectID) (int64, error)
	Delete(ctx context.Context, id, recipient primitive.ObjectID) error
}
