package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of identity action being audited
type AuditAction string

const (
	AuditActionIdentityProvisioned AuditAction = "identity.provisioned"
)

// AuditEvent is an append-only record of identity lifecycle actions
type AuditEvent struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	ProfileID   uuid.UUID       `json:"profile_id" db:"profile_id"`
	Action      AuditAction     `json:"action" db:"action"`
	Provider    string          `json:"provider" db:"provider"`
	AuthSubject string          `json:"auth_subject" db:"auth_subject"`
	Details     json.RawMessage `json:"details,omitempty" db:"details"`
	RequestID   string          `json:"request_id,omitempty" db:"request_id"`
	Timestamp   time.Time       `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for audit events
func (AuditEvent) TableName() string {
	return "auth_audit_events"
}

// NewAuditEvent creates a new AuditEvent stamped with the current time
func NewAuditEvent(profileID uuid.UUID, action AuditAction, provider, authSubject string) *AuditEvent {
	return &AuditEvent{
		ID:          uuid.New(),
		ProfileID:   profileID,
		Action:      action,
		Provider:    provider,
		AuthSubject: authSubject,
		Timestamp:   time.Now().UTC(),
	}
}

// WithDetails attaches JSON-encoded details to the event
func (e *AuditEvent) WithDetails(details map[string]interface{}) *AuditEvent {
	if len(details) == 0 {
		return e
	}
	if b, err := json.Marshal(details); err == nil {
		e.Details = b
	}
	return e
}
