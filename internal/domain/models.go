package domain

import "time"

// EventKind names a session-level occurrence worth reporting downstream.
type EventKind string

const (
	EventSessionRenewed       EventKind = "session.renewed"
	EventSessionRenewalFailed EventKind = "session.renewal_failed"
	EventMaintenanceEntered   EventKind = "maintenance.entered"
)

// ClientEvent describes something the session client did on behalf of its callers.
type ClientEvent struct {
	ID         string    `json:"id"`
	Kind       EventKind `json:"kind"`
	Method     string    `json:"method,omitempty"`
	URL        string    `json:"url,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	Waiters    int       `json:"waiters,omitempty"`
	Target     string    `json:"target,omitempty"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
