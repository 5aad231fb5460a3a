package control

import (
	"context"
	"time"
)

// TransitionEntry is a single persisted on/off transition record.
//
// The history is an append-only audit trail; nothing is read back into the
// controller at startup.
type TransitionEntry struct {
	// ID is the auto-incremented primary key for the history row.
	ID int64 `json:"id"`

	// Device is the device name the transition belongs to.
	Device string `json:"device"`

	// Action is "on" or "off".
	Action string `json:"action"`

	// Trigger identifies what caused the transition (manual, timer,
	// emergency).
	Trigger string `json:"trigger"`

	// SessionSeconds is the length of the session that ended, for off
	// records. Zero for on records.
	SessionSeconds float64 `json:"session_seconds"`

	// CreatedAt is the timestamp of the transition (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// Transition history actions.
const (
	HistoryActionOn  = "on"
	HistoryActionOff = "off"
)

// TransitionRepository stores and retrieves device transition history.
//
// Implementations must be thread-safe and use UTC timestamps.
type TransitionRepository interface {
	// Record appends a transition record.
	Record(ctx context.Context, entry TransitionEntry) error

	// GetHistory returns recent transition records for the device, ordered
	// newest first. Implementations may clamp the limit.
	GetHistory(ctx context.Context, device string, limit int) ([]TransitionEntry, error)
}
