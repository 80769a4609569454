package repository

import (
	"fmt"
	"strings"
	"time"

	"civicsync-api/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueFilter holds the constraints of an issue listing. Zero-valued fields
// impose no constraint; the rest combine with AND.
type IssueFilter struct {
	Status     models.IssueStatus
	Statuses   []models.IssueStatus
	Category   models.IssueCategory
	Priority   models.IssuePriority
	Search     string // case-insensitive substring of title or description
	ReportedBy *primitive.ObjectID
	CreatedGTE *time.Time
	CreatedLT  *time.Time
}

// Sort orders a listing by one field. Ties are broken by _id in the same
// direction so pages are stable.
type Sort struct {
	Field string
	Desc  bool
}

// DefaultSort is newest first.
var DefaultSort = Sort{Field: "createdAt", Desc: true}

var sortableFields = map[string]bool{
	"createdAt":   true,
	"updatedAt":   true,
	"upvoteCount": true,
	"priority":    true,
	"status":      true,
	"category":    true,
	"title":       true,
}

// ParseSort reads a sort key such as "-createdAt", "upvoteCount", "newest"
// or "oldest". An empty key yields DefaultSort.
func ParseSort(raw string) (Sort, error) {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "", "newest":
		return DefaultSort, nil
	case "oldest":
		return Sort{Field: "createdAt"}, nil
	}
	s := Sort{Field: raw}
	if strings.HasPrefix(raw, "-") {
		s = Sort{Field: raw[1:], Desc: true}
	}
	if !sortableFields[s.Field] {
		return Sort{}, fmt.Errorf("unsupported sort field %q", s.Field)
	}
	return s, nil
}
