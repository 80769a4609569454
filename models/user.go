package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// Role enum
type Role string

const (
	RoleCitizen        Role = "citizen"
	RoleMunicipalStaff Role = "municipal_staff"
	RoleAdmin          Role = "admin"
)

// IsValidRole reports whether r names a known role.
func IsValidRole(r string) bool {
	switch Role(r) {
	case RoleCitizen, RoleMunicipalStaff, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password,omitempty" json:"-"`
	Phone     string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Avatar    string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Role      Role               `bson:"role" json:"role"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) HashPassword() error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

func (u *User) ComparePassword(candidate string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(candidate))
	return err == nil
}

// Summary is the display projection handed out alongside issues and comments.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar}
}

// UserSummary is the minimal user projection used to decorate responses.
type UserSummary struct {
	ID     primitive.ObjectID `bson:"_id" json:"id"`
	Name   string             `bson:"name" json:"name"`
	Email  string             `bson:"email,omitempty" json:"email,omitempty"`
	Avatar string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
}

// Caller identifies the authenticated user an operation runs on behalf of.
type Caller struct {
	ID   primitive.ObjectID
	Role Role
}

// IsStaff reports whether the caller may manage issues they do not own.
func (c Caller) IsStaff() bool {
	return c.Role == RoleAdmin || c.Role == RoleMunicipalStaff
}

// IsAdmin reports whether the caller has the admin role.
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}
