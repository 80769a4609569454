package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType enum
type NotificationType string

const (
	NotificationIssueCreated    NotificationType = "issue_created"
	NotificationIssueUpdated    NotificationType = "issue_updated"
	NotificationIssueResolved   NotificationType = "issue_resolved"
	NotificationIssueRejected   NotificationType = "issue_rejected"
	NotificationIssueAssigned   NotificationType = "issue_assigned"
	NotificationCommentAdded    NotificationType = "comment_added"
	NotificationUpvoteMilestone NotificationType = "upvote_milestone"
)

// NotificationTTL is how long a notification lives before it is purged.
const NotificationTTL = 30 * 24 * time.Hour

// IsValidNotificationType reports whether t is a known notification type.
func IsValidNotificationType(t NotificationType) bool {
	switch t {
	case NotificationIssueCreated, NotificationIssueUpdated, NotificationIssueResolved,
		NotificationIssueRejected, NotificationIssueAssigned, NotificationCommentAdded,
		NotificationUpvoteMilestone:
		return true
	}
	return false
}

type Notification struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Recipient primitive.ObjectID  `bson:"recipient" json:"recipient"`
	Sender    *primitive.ObjectID `bson:"sender,omitempty" json:"sender,omitempty"`
	Type      NotificationType    `bson:"type" json:"type"`
	Issue     *primitive.ObjectID `bson:"issue,omitempty" json:"issue,omitempty"`
	Title     string              `bson:"title" json:"title"`
	Message   string              `bson:"message" json:"message"`
	IsRead    bool                `bson:"isRead" json:"isRead"`
	Link      string              `bson:"link,omitempty" json:"link,omitempty"`
	CreatedAt time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// Expired reports whether the notification is past its time-to-live at now.
func (n *Notification) Expired(now time.Time) bool {
	return now.Sub(n.CreatedAt) >= NotificationTTL
}
