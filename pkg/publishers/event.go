package publishers

import (
	"time"

	"github.com/starnight-hq/starnight-client/internal/domain"
)

// Event represents the payload published downstream.
type Event struct {
	Source      string             `json:"source"`
	Session     domain.ClientEvent `json:"session_event"`
	PublishedAt time.Time          `json:"published_at"`
}

// NewEvent wraps a client event emitted by source (usually the app name).
func NewEvent(source string, evt domain.ClientEvent) Event {
	return Event{
		Source:      source,
		Session:     evt,
		PublishedAt: time.Now().UTC(),
	}
}

// Kind is the session event kind as a plain string.
func (e Event) Kind() string { return string(e.Session.Kind) }
