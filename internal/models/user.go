package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser      = "user"
	RoleGuide     = "guide"
	RoleLeadGuide = "lead-guide"
	RoleAdmin     = "admin"
)

var Roles = []string{RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin}

const DefaultPhoto = "default.jpg"

type User struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name                 string             `bson:"name" json:"name"`
	Email                string             `bson:"email" json:"email"`
	Photo                string             `bson:"photo" json:"photo"`
	Role                 string             `bson:"role" json:"role"`
	Password             string             `bson:"password" json:"-"` // bcrypt hash, never serialized
	PasswordChangedAt    *time.Time         `bson:"passwordChangedAt,omitempty" json:"-"`
	PasswordResetToken   string             `bson:"passwordResetToken,omitempty" json:"-"`
	PasswordResetExpires *time.Time         `bson:"passwordResetExpires,omitempty" json:"-"`
	Active               bool               `bson:"active" json:"-"`
}

// ChangedPasswordAfter reports whether the password was changed after a token
// issued at issuedAt. Comparison is done at second precision, like the token.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Unix() < u.PasswordChangedAt.Unix()
}

func (u *User) HasRole(roles ...string) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// UserRef is the populated subset of a user embedded in reviews and bookings.
type UserRef struct {
	ID    primitive.ObjectID `bson:"_id" json:"id"`
	Name  string             `bson:"name" json:"name"`
	Email string             `bson:"email,omitempty" json:"email,omitempty"`
	Photo string             `bson:"photo" json:"photo"`
	Role  string             `bson:"role,omitempty" json:"role,omitempty"`
}

func (u *User) Ref() *UserRef {
	return &UserRef{ID: u.ID, Name: u.Name, Email: u.Email, Photo: u.Photo, Role: u.Role}
}
