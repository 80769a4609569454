package repository

import (
	"time"

	"civicsync-api/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssuePatch is a field-level issue update. Nil fields are left unchanged.
type IssuePatch struct {
	Title           *string
	Description     *string
	Category        *models.IssueCategory
	Priority        *models.IssuePriority
	Location        *models.Location
	RejectionReason *string
	// Assign applies AssignedTo; a nil AssignedTo clears the assignment.
	Assign     bool
	AssignedTo *primitive.ObjectID
	// Status is appended to the history only when it differs from the
	// stored status.
	Status    *models.StatusChange
	UpdatedAt time.Time
}

// Apply applies the patch to issue and reports whether the status changed.
// Both drivers use it so they agree on the resulting document.
func (p IssuePatch) Apply(issue *models.Issue) bool {
	if p.Title != nil {
		issue.Title = *p.Title
	}
	if p.Description != nil {
		issue.Description = *p.Description
	}
	if p.Category != nil {
		issue.Category = *p.Category
	}
	if p.Priority != nil {
		issue.Priority = *p.Priority
	}
	if p.Location != nil {
		issue.Location = *p.Location
	}
	if p.RejectionReason != nil {
		issue.RejectionReason = *p.RejectionReason
	}
	if p.Assign {
		if p.AssignedTo == nil {
			issue.AssignedTo = nil
		} else {
			id := *p.AssignedTo
			issue.AssignedTo = &id
		}
	}
	changed := false
	if p.Status != nil {
		changed = issue.ChangeStatus(p.Status.Status, p.Status.ChangedBy, p.Status.Note, p.Status.ChangedAt)
	}
	issue.UpdatedAt = p.UpdatedAt
	return changed
}
