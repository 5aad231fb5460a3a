package control

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors for the control package.
//
// All are returned as structured values and can be checked with
// errors.Is(); the carrier types below additionally expose details via
// errors.As().
var (
	// ErrNotFound is returned when a device name is not registered.
	ErrNotFound = errors.New("control: device not found")

	// ErrAlreadyRegistered is returned when registering a device whose name
	// is already taken.
	ErrAlreadyRegistered = errors.New("control: device already registered")

	// ErrPinInUse is returned when registering a device on a pin that is
	// already claimed by another device.
	ErrPinInUse = errors.New("control: pin already in use")

	// ErrAlreadyOn is returned when turning on a device that is on.
	ErrAlreadyOn = errors.New("control: device already on")

	// ErrAlreadyOff is returned when turning off a device that is off.
	ErrAlreadyOff = errors.New("control: device already off")

	// ErrCooldownActive is returned when a device is still inside its
	// mandatory post-off cooldown. Use errors.As with *CooldownError for
	// the remaining time.
	ErrCooldownActive = errors.New("control: cooldown active")

	// ErrCycleLimitExceeded is returned when the device has completed its
	// maximum number of cycles within the last hour.
	ErrCycleLimitExceeded = errors.New("control: cycle limit exceeded")

	// ErrDurationExceedsMax is returned when a timed activation requests
	// more than the configured max runtime. Use errors.As with
	// *DurationError for the configured maximum.
	ErrDurationExceedsMax = errors.New("control: duration exceeds max runtime")

	// ErrInvalidDuration is returned when a timed activation requests a
	// non-positive duration.
	ErrInvalidDuration = errors.New("control: duration must be positive")

	// ErrInvalidConfig is returned when device configuration validation
	// fails.
	ErrInvalidConfig = errors.New("control: invalid device config")

	// ErrHardwareFault is returned when the pin driver fails to actuate.
	// The operation is not retried internally; the caller decides.
	ErrHardwareFault = errors.New("control: hardware fault")
)

// CooldownError reports a denied activation with the cooldown time left.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("control: cooldown active, %.1fs remaining", e.Remaining.Seconds())
}

// Unwrap makes errors.Is(err, ErrCooldownActive) succeed.
func (e *CooldownError) Unwrap() error { return ErrCooldownActive }

// DurationError reports a timed request that exceeds the configured cap.
type DurationError struct {
	Requested time.Duration
	Max       time.Duration
}

func (e *DurationError) Error() string {
	return fmt.Sprintf("control: requested duration %s exceeds max runtime %s", e.Requested, e.Max)
}

// Unwrap makes errors.Is(err, ErrDurationExceedsMax) succeed.
func (e *DurationError) Unwrap() error { return ErrDurationExceedsMax }

// HardwareError reports a pin driver failure during actuation.
type HardwareError struct {
	Pin int
	Op  string // "set_level" or "cleanup"
	Err error
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("control: hardware fault on pin %d during %s: %v", e.Pin, e.Op, e.Err)
}

// Unwrap exposes both the ErrHardwareFault sentinel and the driver error.
func (e *HardwareError) Unwrap() []error { return []error{ErrHardwareFault, e.Err} }
