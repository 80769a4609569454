package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"civicsync-api/apperrors"
	"civicsync-api/models"
	"civicsync-api/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultNotificationLimit = 20

type NotificationView struct {
	models.Notification
	Sender *models.UserSummary `json:"sender,omitempty"`
}

type NotificationPage struct {
	Items       []NotificationView `json:"items"`
	Total       int64              `json:"total"`
	UnreadCount int64              `json:"unreadCount"`
	TotalPages  int                `json:"totalPages"`
	Page        int                `json:"page"`
}

type NotificationService struct {
	repo  repository.NotificationRepository
	users repository.UserRepository
	now   func() time.Time
}

func NewNotificationService(repo repository.NotificationRepository, users repository.UserRepository) *NotificationService {
	return &NotificationService{
		repo:  repo,
		users: users,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Notify stores a new unread notification.
func (s *NotificationService) Notify(ctx context.Context, n *models.Notification) error {
	if !models.IsValidNotificationType(n.Type) {
		return apperrors.Invalid("type", fmt.Sprintf("Invalid notification type %q", n.Type))
	}
	if n.Recipient.IsZero() {
		return apperrors.Invalid("recipient", "recipient is required")
	}
	n.Title = strings.TrimSpace(n.Title)
	n.Message = strings.TrimSpace(n.Message)
	if n.Title == "" || n.Message == "" {
		return apperrors.Invalid("message", "title and message are required")
	}
	now := s.now()
	n.IsRead = false
	n.CreatedAt = now
	n.UpdatedAt = now
	if err := s.repo.Insert(ctx, n); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *NotificationService) List(ctx context.Context, caller models.Caller, page, limit int, unreadOnly bool) (*NotificationPage, error) {
	page, limit = NormalizePage(page, limit, DefaultNotificationLimit)

	items, err := s.repo.List(ctx, caller.ID, unreadOnly, repository.Page{
		Skip:  int64((page - 1) * limit),
		Limit: int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	total, err := s.repo.Count(ctx, caller.ID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}
	unread := total
	if !unreadOnly {
		if unread, err = s.repo.Count(ctx, caller.ID, true); err != nil {
			return nil, fmt.Errorf("count unread notifications: %w", err)
		}
	}

	views, err := s.withSenders(ctx, items)
	if err != nil {
		return nil, err
	}
	return &NotificationPage{
		Items:       views,
		Total:       total,
		UnreadCount: unread,
		TotalPages:  TotalPages(total, limit),
		Page:        page,
	}, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, caller models.Caller, id primitive.ObjectID) (*models.Notification, error) {
	n, err := s.repo.MarkRead(ctx, id, caller.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("Notification")
	}
	if err != nil {
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	return n, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, caller models.Caller) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, caller.ID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return n, nil
}

func (s *NotificationService) Delete(ctx context.Context, caller models.Caller, id primitive.ObjectID) error {
	err := s.repo.Delete(ctx, id, caller.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("Notification")
	}
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

func (s *NotificationService) withSenders(ctx context.Context, items []models.Notification) ([]NotificationView, error) {
	var ids []primitive.ObjectID
	for _, n := range items {
		if n.Sender != nil {
			ids = append(ids, *n.Sender)
		}
	}
	found := map[primitive.ObjectID]models.UserSummary{}
	if len(ids) > 0 && s.users != nil {
		var err error
		if found, err = s.users.FindSummaries(ctx, ids); err != nil {
			return nil, fmt.Errorf("resolve senders: %w", err)
		}
	}
	out := make([]NotificationView, 0, len(items))
	for _, n := range items {
		v := NotificationView{Notification: n}
		if n.Sender != nil {
			v.Sender = summaries(found).of(*n.Sender)
		}
		out = append(out, v)
	}
	return out, nil
}
