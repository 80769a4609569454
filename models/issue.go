package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueCategory enum
type IssueCategory string

const (
	RoadTransportation     IssueCategory = "Road & Transportation"
	WaterSanitation        IssueCategory = "Water & Sanitation"
	Electricity            IssueCategory = "Electricity"
	GarbageWaste           IssueCategory = "Garbage & Waste"
	StreetLights           IssueCategory = "Street Lights"
	ParksRecreation        IssueCategory = "Parks & Recreation"
	PublicSafety           IssueCategory = "Public Safety"
	BuildingInfrastructure IssueCategory = "Building & Infrastructure"
	Pollution              IssueCategory = "Pollution"
	Other                  IssueCategory = "Other"
)

// IssueCategories lists every accepted category in display order.
var IssueCategories = []IssueCategory{
	RoadTransportation,
	WaterSanitation,
	Electricity,
	GarbageWaste,
	StreetLights,
	ParksRecreation,
	PublicSafety,
	BuildingInfrastructure,
	Pollution,
	Other,
}

// IsValidCategory reports whether c is one of IssueCategories.
func IsValidCategory(c string) bool {
	for _, v := range IssueCategories {
		if string(v) == c {
			return true
		}
	}
	return false
}

// IssueStatus enum
type IssueStatus string

const (
	Pending    IssueStatus = "pending"
	InProgress IssueStatus = "in_progress"
	Resolved   IssueStatus = "resolved"
	Rejected   IssueStatus = "rejected"
)

// IssuePriority enum
type IssuePriority string

const (
	Low      IssuePriority = "low"
	Medium   IssuePriority = "medium"
	High     IssuePriority = "high"
	Critical IssuePriority = "critical"
)

// GeoPoint is a GeoJSON point; Coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
}

// NewPoint builds a GeoJSON point from a longitude/latitude pair.
func NewPoint(lng, lat float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

// Longitude returns the first coordinate, or 0 for a malformed point.
func (p GeoPoint) Longitude() float64 {
	if len(p.Coordinates) != 2 {
		return 0
	}
	return p.Coordinates[0]
}

// Latitude returns the second coordinate, or 0 for a malformed point.
func (p GeoPoint) Latitude() float64 {
	if len(p.Coordinates) != 2 {
		return 0
	}
	return p.Coordinates[1]
}

type Location struct {
	Address     string   `bson:"address" json:"address"`
	City        string   `bson:"city,omitempty" json:"city,omitempty"`
	State       string   `bson:"state,omitempty" json:"state,omitempty"`
	ZipCode     string   `bson:"zipCode,omitempty" json:"zipCode,omitempty"`
	Coordinates GeoPoint `bson:"coordinates" json:"coordinates"`
}

type Image struct {
	URL        string    `bson:"url" json:"url"`
	PublicID   string    `bson:"publicId" json:"publicId"`
	UploadedAt time.Time `bson:"uploadedAt" json:"uploadedAt"`
}

type Comment struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	Text      string             `bson:"text" json:"text"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// StatusChange is one entry of an issue's append-only status audit trail.
type StatusChange struct {
	Status    IssueStatus        `bson:"status" json:"status"`
	ChangedBy primitive.ObjectID `bson:"changedBy" json:"changedBy"`
	ChangedAt time.Time          `bson:"changedAt" json:"changedAt"`
	Note      string             `bson:"note,omitempty" json:"note,omitempty"`
}

// Issue represents a civic issue reported by a user
type Issue struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title           string               `bson:"title" json:"title"`
	Description     string               `bson:"description" json:"description"`
	Category        IssueCategory        `bson:"category" json:"category"`
	Status          IssueStatus          `bson:"status" json:"status"`
	Priority        IssuePriority        `bson:"priority" json:"priority"`
	Location        Location             `bson:"location" json:"location"`
	Images          []Image              `bson:"images" json:"images"`
	ReportedBy      primitive.ObjectID   `bson:"reportedBy" json:"reportedBy"`
	AssignedTo      *primitive.ObjectID  `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	Upvotes         []primitive.ObjectID `bson:"upvotes" json:"upvotes"`
	UpvoteCount     int                  `bson:"upvoteCount" json:"upvoteCount"`
	Comments        []Comment            `bson:"comments" json:"comments"`
	StatusHistory   []StatusChange       `bson:"statusHistory" json:"statusHistory"`
	ResolvedAt      *time.Time           `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
	RejectionReason string               `bson:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`
	CreatedAt       time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// HasUpvote reports whether userID is in the issue's upvote set.
func (i *Issue) HasUpvote(userID primitive.ObjectID) bool {
	for _, u := range i.Upvotes {
		if u == userID {
			return true
		}
	}
	return false
}

// ToggleUpvote adds userID to the upvote set if absent and removes it
// otherwise. UpvoteCount is recomputed here and nowhere else.
func (i *Issue) ToggleUpvote(userID primitive.ObjectID) bool {
	upvoted := true
	kept := make([]primitive.ObjectID, 0, len(i.Upvotes)+1)
	for _, u := range i.Upvotes {
		if u == userID {
			upvoted = false
			continue
		}
		kept = append(kept, u)
	}
	if upvoted {
		kept = append(kept, userID)
	}
	i.Upvotes = kept
	i.UpvoteCount = len(kept)
	return upvoted
}

// ChangeStatus moves the issue to status and records the transition.
// It returns false and leaves the issue untouched when status is unchanged.
func (i *Issue) ChangeStatus(status IssueStatus, by primitive.ObjectID, note string, at time.Time) bool {
	if status == i.Status {
		return false
	}
	i.Status = status
	i.StatusHistory = append(i.StatusHistory, StatusChange{
		Status:    status,
		ChangedBy: by,
		ChangedAt: at,
		Note:      note,
	})
	if status == Resolved {
		resolvedAt := at
		i.ResolvedAt = &resolvedAt
	}
	return true
}

// NewComment builds a comment with a fresh id.
func NewComment(user primitive.ObjectID, text string, at time.Time) Comment {
	return Comment{
		ID:        primitive.NewObjectID(),
		User:      user,
		Text:      text,
		CreatedAt: at,
	}
}

// AddComment appends c to the issue's comments.
func (i *Issue) AddComment(c Comment) {
	i.Comments = append(i.Comments, c)
}

// CategoryCount is one row of the per-category breakdown.
type CategoryCount struct {
	Category IssueCategory `bson:"_id" json:"category"`
	Count    int64         `bson:"count" json:"count"`
}

// IssueOverview holds issue counts per status.
type IssueOverview struct {
	TotalIssues int64 `bson:"totalIssues" json:"totalIssues"`
	Pending     int64 `bson:"pending" json:"pending"`
	InProgress  int64 `bson:"inProgress" json:"inProgress"`
	Resolved    int64 `bson:"resolved" json:"resolved"`
	Rejected    int64 `bson:"rejected" json:"rejected"`
}
