package services

import (
	"strings"

	"civicsync-api/apperrors"
	"civicsync-api/models"
	"civicsync-api/validation"
)

type LocationInput struct {
	Address     string    `json:"address" validate:"required,max=200"`
	City        string    `json:"city" validate:"max=100"`
	State       string    `json:"state" validate:"max=100"`
	ZipCode     string    `json:"zipCode" validate:"max=20"`
	Coordinates []float64 `json:"coordinates" validate:"required"`
}

func (l *LocationInput) normalize() {
	l.Address = strings.TrimSpace(l.Address)
	l.City = strings.TrimSpace(l.City)
	l.State = strings.TrimSpace(l.State)
	l.ZipCode = strings.TrimSpace(l.ZipCode)
}

func (l LocationInput) toModel() models.Location {
	return models.Location{
		Address:     l.Address,
		City:        l.City,
		State:       l.State,
		ZipCode:     l.ZipCode,
		Coordinates: models.NewPoint(l.Coordinates[0], l.Coordinates[1]),
	}
}

type CreateIssueInput struct {
	Title       string        `json:"title" validate:"required,min=5,max=100"`
	Description string        `json:"description" validate:"required,min=10,max=1000"`
	Category    string        `json:"category" validate:"required,issue_category"`
	Priority    string        `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	Location    LocationInput `json:"location"`
	// Images already committed to file storage.
	Images []models.Image `json:"-"`
}

func (in *CreateIssueInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.Priority = strings.TrimSpace(in.Priority)
	in.Location.normalize()
}

// Validate trims the input and returns every failing field.
func (in *CreateIssueInput) Validate() []apperrors.FieldError {
	in.normalize()
	errs := validation.Struct(in)
	if in.Location.Coordinates != nil {
		errs = append(errs, validation.Coordinates("location.coordinates", in.Location.Coordinates)...)
	}
	return errs
}

// UpdateIssueInput is a partial update; nil fields are left unchanged.
type UpdateIssueInput struct {
	Title           *string        `json:"title" validate:"omitnil,min=5,max=100"`
	Description     *string        `json:"description" validate:"omitnil,min=10,max=1000"`
	Category        *string        `json:"category" validate:"omitnil,issue_category"`
	Priority        *string        `json:"priority" validate:"omitnil,oneof=low medium high critical"`
	Location        *LocationInput `json:"location"`
	Status          *string        `json:"status" validate:"omitnil,oneof=pending in_progress resolved rejected"`
	StatusNote      *string        `json:"statusNote" validate:"omitnil,max=500"`
	RejectionReason *string        `json:"rejectionReason" validate:"omitnil,max=500"`
	// AssignedTo is a user id; an empty string clears the assignment.
	AssignedTo *string `json:"assignedTo" validate:"omitempty,mongodb"`
}

func (in *UpdateIssueInput) normalize() {
	for _, p := range []*string{in.Title, in.Description, in.Category, in.Priority, in.Status, in.StatusNote, in.RejectionReason, in.AssignedTo} {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	if in.Location != nil {
		in.Location.normalize()
	}
}

func (in *UpdateIssueInput) Validate() []apperrors.FieldError {
	in.normalize()
	errs := validation.Struct(in)
	if in.Location != nil && in.Location.Coordinates != nil {
		errs = append(errs, validation.Coordinates("location.coordinates", in.Location.Coordinates)...)
	}
	return errs
}

type commentInput struct {
	Text string `json:"text" validate:"required,max=500"`
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone" validate:"omitempty,len=10,numeric"`
}

func (in *RegisterInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
