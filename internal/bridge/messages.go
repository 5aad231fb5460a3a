package bridge

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/quarrydown/pinguard/internal/control"
)

// MQTT message types for the command bridge.

// Command actions accepted on {base}/command/{device}.
const (
	ActionTurnOn         = "turn_on"
	ActionTurnOff        = "turn_off"
	ActionTurnOnDuration = "turn_on_duration"
	ActionStatus         = "status"
	ActionStatistics     = "statistics"
	ActionHistory        = "history"
	ActionEmergencyStop  = "emergency_stop"
)

// CommandMessage is received on a device command topic.
// Topic: {base}/command/{device}
type CommandMessage struct {
	// RequestID correlates the command with its result. Optional.
	RequestID string `json:"request_id,omitempty"`

	// Action is one of the Action* constants.
	Action string `json:"action"`

	// DurationSeconds is required for turn_on_duration and ignored otherwise.
	DurationSeconds float64 `json:"duration_seconds,omitempty"`

	// Limit caps the number of records returned by history. Zero applies
	// the server default; the store clamps oversized values.
	Limit int `json:"limit,omitempty"`
}

// ResultMessage is published after each command.
// Topic: {base}/result/{device}
type ResultMessage struct {
	// RequestID is echoed from the command, if present.
	RequestID string `json:"request_id,omitempty"`

	// Timestamp is when the result was produced (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Device is the device the command addressed.
	Device string `json:"device"`

	// Action is echoed from the command.
	Action string `json:"action"`

	// Success indicates whether the command was executed.
	Success bool `json:"success"`

	// Data carries the response payload for query actions (status,
	// statistics, history).
	Data json.RawMessage `json:"data,omitempty"`

	// Error contains details when Success is false.
	Error *ResultError `json:"error,omitempty"`
}

// ResultError contains error details for failed commands.
type ResultError struct {
	// Code is one of the ErrCode* constants.
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// RetryAfterSeconds is set for COOLDOWN_ACTIVE failures.
	RetryAfterSeconds float64 `json:"retry_after_seconds,omitempty"`

	// MaxSeconds is set for DURATION_EXCEEDS_MAX failures.
	MaxSeconds float64 `json:"max_seconds,omitempty"`
}

// Error codes for command failures.
const (
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeAlreadyOn          = "ALREADY_ON"
	ErrCodeAlreadyOff         = "ALREADY_OFF"
	ErrCodeCooldownActive     = "COOLDOWN_ACTIVE"
	ErrCodeCycleLimitExceeded = "CYCLE_LIMIT_EXCEEDED"
	ErrCodeDurationExceedsMax = "DURATION_EXCEEDS_MAX"
	ErrCodeInvalidDuration    = "INVALID_DURATION"
	ErrCodeHardwareFault      = "HARDWARE_FAULT"
	ErrCodeInvalidCommand     = "INVALID_COMMAND"
	ErrCodeHistoryUnavailable = "HISTORY_UNAVAILABLE"
	ErrCodeBridgeError        = "BRIDGE_ERROR"
)

// StateMessage is published whenever a device transitions.
// Topic: {base}/state/{device}
// QoS: configured default, Retained: Yes
type StateMessage struct {
	// Device is the device name.
	Device string `json:"device"`

	// Timestamp is when the transition happened (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// IsOn is the state after the transition.
	IsOn bool `json:"is_on"`

	// Trigger is what caused the transition (manual, timer, emergency).
	Trigger string `json:"trigger,omitempty"`

	// SessionSeconds is the length of the session that ended, for
	// off-transitions.
	SessionSeconds float64 `json:"session_seconds,omitempty"`
}

// resultError maps a controller error to a ResultError with the
// machine-readable code clients switch on.
func resultError(err error) *ResultError {
	re := &ResultError{
		Code:    ErrCodeBridgeError,
		Message: err.Error(),
	}

	var cdErr *control.CooldownError
	var dErr *control.DurationError

	switch {
	case errors.As(err, &cdErr):
		re.Code = ErrCodeCooldownActive
		re.RetryAfterSeconds = cdErr.Remaining.Seconds()
	case errors.As(err, &dErr):
		re.Code = ErrCodeDurationExceedsMax
		re.MaxSeconds = dErr.Max.Seconds()
	case errors.Is(err, control.ErrNotFound):
		re.Code = ErrCodeNotFound
	case errors.Is(err, control.ErrAlreadyOn):
		re.Code = ErrCodeAlreadyOn
	case errors.Is(err, control.ErrAlreadyOff):
		re.Code = ErrCodeAlreadyOff
	case errors.Is(err, control.ErrCycleLimitExceeded):
		re.Code = ErrCodeCycleLimitExceeded
	case errors.Is(err, control.ErrInvalidDuration):
		re.Code = ErrCodeInvalidDuration
	case errors.Is(err, control.ErrHardwareFault):
		re.Code = ErrCodeHardwareFault
	}

	return re
}
