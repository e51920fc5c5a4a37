package warnings

import (
	"context"
	"time"
)

// EventKind names a change in a member's warning state.
type EventKind string

const (
	EventIssued    EventKind = "issued"
	EventContained EventKind = "contained"
	EventRemoved   EventKind = "removed"
	EventCleared   EventKind = "cleared"
	EventExpired   EventKind = "expired"
)

// Event is published after the warning state of a member changes.
type Event struct {
	Kind          EventKind `json:"kind"`
	TenantID      string    `json:"guild_id"`
	SubjectID     string    `json:"user_id"`
	ModeratorID   string    `json:"moderator_id,omitempty"`
	PreviousLevel int       `json:"previous_level"`
	Level         int       `json:"level"`
	ExpiresAt     time.Time `json:"expires_at,omitempty"`
	At            time.Time `json:"at"`
}

// Notifier receives warning events. It must not block.
type Notifier interface {
	WarningEvent(ctx context.Context, ev Event)
}

// SetNotifier registers n for every future change. Nil disables events.
func (e *Escalator) SetNotifier(n Notifier) {
	e.notify = n
}

func (e *Escalator) emit(ctx context.Context, ev Event) {
	if e.notify == nil {
		return
	}
	ev.At = e.now().UTC()
	e.notify.WarningEvent(ctx, ev)
}
