package control

import (
	"fmt"
	"time"

	"github.com/quarrydown/pinguard/internal/gpio"
)

// cycleWindow is the sliding window over which MaxCyclesPerHour is enforced.
const cycleWindow = time.Hour

// ActiveState is the electrical level that corresponds to a device being
// logically "on". Relay boards are commonly active-low.
type ActiveState string

// ActiveState values.
const (
	ActiveHigh ActiveState = "HIGH"
	ActiveLow  ActiveState = "LOW"
)

// DeviceConfig describes one controllable output device. It is immutable
// after registration.
type DeviceConfig struct {
	// Name is the unique key the device is addressed by.
	Name string `json:"name"`

	// Pin is the output pin number (chip line offset). A pin belongs to at
	// most one registered device.
	Pin int `json:"pin"`

	// ActiveState is the level that turns the device on.
	ActiveState ActiveState `json:"active_state"`

	// InitialState is the level driven at registration. Empty means the
	// inactive level.
	InitialState ActiveState `json:"initial_state,omitempty"`

	// DeviceType is a free-form classification (buzzer, relay, pump, ...).
	DeviceType string `json:"device_type,omitempty"`

	// Description is free-form operator documentation.
	Description string `json:"description,omitempty"`

	// MaxRuntime caps the duration of a single timed activation.
	// Zero means unlimited.
	MaxRuntime time.Duration `json:"max_runtime,omitempty"`

	// Cooldown is the mandatory idle time after an off-transition before
	// the device may be turned on again. Zero disables the check.
	Cooldown time.Duration `json:"cooldown,omitempty"`

	// MaxCyclesPerHour caps completed on->off cycles in a sliding one-hour
	// window. Zero means unlimited.
	MaxCyclesPerHour int `json:"max_cycles_per_hour,omitempty"`
}

// Validate checks the configuration for structural errors.
func (c DeviceConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if c.Pin < 0 {
		return fmt.Errorf("%w: pin must be non-negative, got %d", ErrInvalidConfig, c.Pin)
	}
	if c.ActiveState != ActiveHigh && c.ActiveState != ActiveLow {
		return fmt.Errorf("%w: active_state must be HIGH or LOW, got %q", ErrInvalidConfig, c.ActiveState)
	}
	if c.InitialState != "" && c.InitialState != ActiveHigh && c.InitialState != ActiveLow {
		return fmt.Errorf("%w: initial_state must be HIGH or LOW, got %q", ErrInvalidConfig, c.InitialState)
	}
	if c.MaxRuntime < 0 {
		return fmt.Errorf("%w: max_runtime must be non-negative", ErrInvalidConfig)
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("%w: cooldown must be non-negative", ErrInvalidConfig)
	}
	if c.MaxCyclesPerHour < 0 {
		return fmt.Errorf("%w: max_cycles_per_hour must be non-negative", ErrInvalidConfig)
	}
	return nil
}

// activeLevel returns the electrical level that turns the device on.
func (c DeviceConfig) activeLevel() gpio.Level {
	if c.ActiveState == ActiveLow {
		return gpio.Low
	}
	return gpio.High
}

// inactiveLevel returns the electrical level that turns the device off.
func (c DeviceConfig) inactiveLevel() gpio.Level {
	return c.activeLevel().Invert()
}

// initialLevel returns the level to drive at registration.
func (c DeviceConfig) initialLevel() gpio.Level {
	switch c.InitialState {
	case ActiveHigh:
		return gpio.High
	case ActiveLow:
		return gpio.Low
	default:
		return c.inactiveLevel()
	}
}

// deviceState is the mutable per-device state. It is owned by the
// Controller and only touched while the device's lock is held.
type deviceState struct {
	isOn        bool
	activatedAt time.Time // zero exactly when isOn is false
	lastOffAt   time.Time // zero until the first off-transition

	totalRuntime time.Duration
	totalCycles  int

	// cycleTimes holds off-transition timestamps inside the sliding
	// window. Expired entries are pruned lazily on each off-transition
	// and activation check.
	cycleTimes []time.Time

	// timer is non-nil only while an auto-off timer is armed.
	timer *autoOffTimer
}

// Status is a point-in-time snapshot of a device, safe for callers to
// retain. Zero time values mean "never".
type Status struct {
	Name       string `json:"name"`
	Pin        int    `json:"pin"`
	DeviceType string `json:"device_type,omitempty"`
	IsOn       bool   `json:"is_on"`

	// SessionRuntime is how long the current activation has been running.
	// Zero when the device is off.
	SessionRuntime time.Duration `json:"session_runtime"`

	// AutoOffIn is the time until the armed auto-off timer fires.
	// Zero when no timer is pending.
	AutoOffIn time.Duration `json:"auto_off_in"`

	// CooldownRemaining is the time until the device may be turned on
	// again. Zero when no cooldown applies.
	CooldownRemaining time.Duration `json:"cooldown_remaining"`

	LastOn  time.Time `json:"last_on,omitzero"`
	LastOff time.Time `json:"last_off,omitzero"`
}

// Statistics summarises a device's usage.
type Statistics struct {
	Name string `json:"name"`
	IsOn bool   `json:"is_on"`

	// TotalRuntime includes the currently running session, if any.
	TotalRuntime time.Duration `json:"total_runtime"`

	// SessionRuntime is the runtime of the current session, zero when off.
	SessionRuntime time.Duration `json:"session_runtime"`

	// TotalCycles counts completed on->off cycles since registration.
	TotalCycles int `json:"total_cycles"`

	// CyclesLastHour counts completed cycles inside the sliding window.
	CyclesLastHour int `json:"cycles_last_hour"`
}

// Info describes a registered device: its immutable configuration plus the
// current on/off flag.
type Info struct {
	DeviceConfig
	IsOn bool `json:"is_on"`
}

// Trigger identifies what caused a transition.
type Trigger string

// Trigger values.
const (
	TriggerManual    Trigger = "manual"
	TriggerTimer     Trigger = "timer"
	TriggerEmergency Trigger = "emergency"
)

// TransitionEvent describes one observed on/off transition. Events for a
// single device are delivered in the order the transitions happened.
type TransitionEvent struct {
	Device  string    `json:"device"`
	Pin     int       `json:"pin"`
	IsOn    bool      `json:"is_on"`
	Trigger Trigger   `json:"trigger"`
	At      time.Time `json:"at"`

	// SessionRuntime is the length of the session that just ended.
	// Only set on off-transitions.
	SessionRuntime time.Duration `json:"session_runtime,omitempty"`
}

// TransitionSink receives transition events from the Controller.
//
// The sink is invoked while the device's lock is held so that per-device
// event order matches transition order; implementations must be fast and
// must not call back into the Controller.
type TransitionSink interface {
	DeviceTransition(ev TransitionEvent)
}

// StopResult is the per-device outcome of an emergency stop.
type StopResult struct {
	Name string `json:"name"`

	// WasOn reports whether the device was on and has been stopped; false
	// means the stop was a no-op.
	WasOn bool `json:"was_on"`

	// Err carries an actuation fault, if any. The bookkeeping
	// off-transition is completed regardless.
	Err error `json:"-"`
}
