package models

import (
	"time"

	"github.com/google/uuid"
)

// ProfileIdentity is the identity-relevant projection of a profile row.
// AuthSubject is set exactly once, on first contact.
type ProfileIdentity struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Email       string    `json:"email" db:"email"`
	AuthSubject string    `json:"auth_subject" db:"auth_subject"`
}

// NewProfile carries everything written when a profile is provisioned on first contact
type NewProfile struct {
	ID          uuid.UUID
	Email       string
	AuthSubject string
	FirstName   string
	LastName    string
	CreatedAt   time.Time
}

// TableName returns the table name for profiles
func (ProfileIdentity) TableName() string {
	return "profiles"
}

// NewProfileFor creates a NewProfile with a fresh internal id
func NewProfileFor(authSubject, email, firstName, lastName string) *NewProfile {
	return &NewProfile{
		ID:          uuid.New(),
		Email:       email,
		AuthSubject: authSubject,
		FirstName:   firstName,
		LastName:    lastName,
		CreatedAt:   time.Now().UTC(),
	}
}

// Identity returns the identity projection of a new profile
func (p *NewProfile) Identity() *ProfileIdentity {
	return &ProfileIdentity{
		ID:          p.ID,
		Email:       p.Email,
		AuthSubject: p.AuthSubject,
	}
}
