package repository

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"civicsync-api/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryNotificationRepo drops notifications past their TTL whenever the
// inbox is touched, standing in for MongoDB's TTL monitor.
type MemoryNotificationRepo struct {
	mu            sync.Mutex
	notifications map[primitive.ObjectID]models.Notification
	now           func() time.Time
}

func NewMemoryNotificationRepo() *MemoryNotificationRepo {
	return &MemoryNotificationRepo{
		notifications: make(map[primitive.ObjectID]models.Notification),
		now:           time.Now,
	}
}

// WithClock overrides the clock used for TTL expiry.
func (r *MemoryNotificationRepo) WithClock(now func() time.Time) *MemoryNotificationRepo {
	r.now = now
	return r
}

func (r *MemoryNotificationRepo) purgeLocked() {
	now := r.now()
	for id, n := range r.notifications {
		if n.Expired(now) {
			delete(r.notifications, id)
		}
	}
}

func (r *MemoryNotificationRepo) Insert(ctx context.Context, n *models.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications[n.ID] = *n
	return nil
}

func (r *MemoryNotificationRepo) inboxLocked(recipient primitive.ObjectID, unreadOnly bool) []models.Notification {
	r.purgeLocked()
	var out []models.Notification
	for _, n := range r.notifications {
		if n.Recipient != recipient || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) > 0
	})
	return out
}

func (r *MemoryNotificationRepo) List(ctx context.Context, recipient primitive.ObjectID, unreadOnly bool, p Page) ([]models.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	inbox := r.inboxLocked(recipient, unreadOnly)

	out := []models.Notification{}
	if p.Skip >= int64(len(inbox)) {
		return out, nil
	}
	end := int64(len(inbox))
	if p.Limit > 0 && p.Skip+p.Limit < end {
		end = p.Skip + p.Limit
	}
	return append(out, inbox[p.Skip:end]...), nil
}

func (r *MemoryNotificationRepo) Count(ctx context.Context, recipient primitive.ObjectID, unreadOnly bool) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.inboxLocked(recipient, unreadOnly))), nil
}

func (r *MemoryNotificationRepo) MarkRead(ctx context.Context, id, recipient primitive.ObjectID) (*models.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purgeLocked()
	n, ok := r.notifications[id]
	if !ok || n.Recipient != recipient {
		return nil, ErrNotFound
	}
	n.IsRead = true
	n.UpdatedAt = r.now()
	r.notifications[id] = n
	return &n, nil
}

func (r *MemoryNotificationRepo) MarkAllRead(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var modified int64
	for _, n := range r.inboxLocked(recipient, true) {
		n.IsRead = true
		n.UpdatedAt = r.now()
		r.notifications[n.ID] = n
		modified++
	}
	return modified, nil
}

func (r *MemoryNotificationRepo) Delete(ctx context.Context, id, recipient primitive.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok || n.Recipient != recipient {
		return ErrNotFound
	}
	delete(r.notifications, id)
	return nil
}
