package control

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/quarrydown/pinguard/internal/gpio"
)

// Logger defines the logging interface used by the Controller.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Controller is the single in-process authority over its output pins.
//
// It owns the device registry, consults the safety evaluator before every
// actuation, drives the hardware abstraction, and schedules/cancels
// auto-off timers.
//
// Thread Safety: all public methods are safe for concurrent use. Each
// device carries its own lock, so operations on different devices proceed
// independently; operations on the same device are serialized and the
// observed per-device state sequence is linearizable. The registry map has
// a separate read-write lock guarding structural mutation.
type Controller struct {
	driver gpio.Driver
	logger Logger
	sink   TransitionSink

	mu      sync.RWMutex
	devices map[string]*managedDevice
	pins    map[int]string // pin -> owning device name

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// managedDevice pairs an immutable config with its lock-guarded state.
type managedDevice struct {
	cfg DeviceConfig

	mu    sync.Mutex
	state deviceState
}

// New creates a Controller driving pins through the given driver.
func New(driver gpio.Driver) *Controller {
	return &Controller{
		driver:  driver,
		logger:  noopLogger{},
		devices: make(map[string]*managedDevice),
		pins:    make(map[int]string),
		now:     time.Now,
	}
}

// SetLogger sets the logger for the controller.
func (c *Controller) SetLogger(logger Logger) {
	c.logger = logger
}

// SetSink sets the transition sink. It must be called before the first
// operation; the sink is invoked under the device lock and must not call
// back into the Controller.
func (c *Controller) SetSink(sink TransitionSink) {
	c.sink = sink
}

// Register adds a new device and drives its pin to the configured initial
// level. It fails if the name is taken, the pin is claimed by another
// device, or the initial actuation faults (in which case nothing is
// registered).
func (c *Controller) Register(cfg DeviceConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.devices[cfg.Name]; exists {
		return fmt.Errorf("%w: %q", ErrAlreadyRegistered, cfg.Name)
	}
	if owner, exists := c.pins[cfg.Pin]; exists {
		return fmt.Errorf("%w: pin %d is held by %q", ErrPinInUse, cfg.Pin, owner)
	}

	if err := c.driver.SetLevel(cfg.Pin, cfg.initialLevel()); err != nil {
		return &HardwareError{Pin: cfg.Pin, Op: "set_level", Err: err}
	}

	c.devices[cfg.Name] = &managedDevice{cfg: cfg}
	c.pins[cfg.Pin] = cfg.Name

	c.logger.Info("device registered",
		"device", cfg.Name,
		"pin", cfg.Pin,
		"type", cfg.DeviceType,
		"active_state", cfg.ActiveState,
	)
	return nil
}

// TurnOn turns a device on with no time bound; it stays on until an
// explicit TurnOff. The runtime cap does not apply to unbounded
// activations.
func (c *Controller) TurnOn(name string) error {
	d, err := c.device(name)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := c.onLocked(d); err != nil {
		return err
	}
	c.logger.Info("device turned on", "device", name)
	return nil
}

// TurnOnFor turns a device on and arms an auto-off timer that fires after
// duration. The request is additionally validated against the device's max
// runtime. A manual TurnOff before expiry cancels the timer.
func (c *Controller) TurnOnFor(name string, duration time.Duration) error {
	d, err := c.device(name)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := checkDuration(d.cfg, duration); err != nil {
		return err
	}
	if err := c.onLocked(d); err != nil {
		return err
	}
	d.state.timer = c.armAutoOff(d, duration)

	c.logger.Info("device turned on with auto-off",
		"device", name,
		"duration", duration,
	)
	return nil
}

// TurnOff turns a device off, accumulating runtime and cycle bookkeeping
// and cancelling any pending auto-off timer.
func (c *Controller) TurnOff(name string) error {
	d, err := c.device(name)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.state.isOn {
		return fmt.Errorf("%w: %q", ErrAlreadyOff, name)
	}
	if err := c.offLocked(d, TriggerManual); err != nil {
		return err
	}
	c.logger.Info("device turned off", "device", name)
	return nil
}

// EmergencyStop unconditionally turns a device off, bypassing cooldown and
// cycle guards. Stopping an already-off device is a successful no-op.
//
// The bookkeeping off-transition is completed even when actuation faults;
// the fault is still surfaced in the returned error so the caller can act
// on it.
func (c *Controller) EmergencyStop(name string) (StopResult, error) {
	d, err := c.device(name)
	if err != nil {
		return StopResult{Name: name}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.state.isOn {
		// Defensive: a timer should never outlive the on state.
		d.state.timer.cancel()
		d.state.timer = nil
		return StopResult{Name: name, WasOn: false}, nil
	}

	c.logger.Warn("emergency stop", "device", name)
	err = c.offLocked(d, TriggerEmergency)
	return StopResult{Name: name, WasOn: true, Err: err}, err
}

// EmergencyStopAll applies EmergencyStop to every registered device. It
// never fails as a whole; per-device faults are collected in the results.
func (c *Controller) EmergencyStopAll() []StopResult {
	c.logger.Warn("emergency stop all devices")

	names := c.deviceNames()
	results := make([]StopResult, 0, len(names))
	for _, name := range names {
		res, err := c.EmergencyStop(name)
		if err != nil && !errors.Is(err, ErrNotFound) {
			c.logger.Error("emergency stop fault", "device", name, "error", err)
		}
		results = append(results, res)
	}
	return results
}

// Status returns a read-only snapshot of a device. It does not mutate
// state.
func (c *Controller) Status(name string) (Status, error) {
	d, err := c.device(name)
	if err != nil {
		return Status{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := c.now()
	st := Status{
		Name:       d.cfg.Name,
		Pin:        d.cfg.Pin,
		DeviceType: d.cfg.DeviceType,
		IsOn:       d.state.isOn,
		LastOff:    d.state.lastOffAt,
	}
	if d.state.isOn {
		st.LastOn = d.state.activatedAt
		st.SessionRuntime = now.Sub(d.state.activatedAt)
		st.AutoOffIn = d.state.timer.remaining(now)
	} else {
		st.CooldownRemaining = cooldownRemaining(d.cfg, &d.state, now)
	}
	return st, nil
}

// Statistics returns usage statistics for a device. The reported total
// runtime includes the currently running session, if any.
func (c *Controller) Statistics(name string) (Statistics, error) {
	d, err := c.device(name)
	if err != nil {
		return Statistics{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := c.now()
	stats := Statistics{
		Name:           d.cfg.Name,
		IsOn:           d.state.isOn,
		TotalRuntime:   d.state.totalRuntime,
		TotalCycles:    d.state.totalCycles,
		CyclesLastHour: cyclesInWindow(d.state.cycleTimes, now),
	}
	if d.state.isOn {
		stats.SessionRuntime = now.Sub(d.state.activatedAt)
		stats.TotalRuntime += stats.SessionRuntime
	}
	return stats, nil
}

// Info returns a device's configuration plus its current on/off flag.
func (c *Controller) Info(name string) (Info, error) {
	d, err := c.device(name)
	if err != nil {
		return Info{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return Info{DeviceConfig: d.cfg, IsOn: d.state.isOn}, nil
}

// ListDevices returns all registered devices ordered by name.
func (c *Controller) ListDevices() []Info {
	names := c.deviceNames()

	infos := make([]Info, 0, len(names))
	for _, name := range names {
		if info, err := c.Info(name); err == nil {
			infos = append(infos, info)
		}
	}
	return infos
}

// DeviceCount returns the number of registered devices.
func (c *Controller) DeviceCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.devices)
}

// Close shuts the controller down: every device is emergency-stopped, all
// pins are released, and the driver is closed. The controller must not be
// used afterwards.
func (c *Controller) Close() error {
	var errs []error
	for _, res := range c.EmergencyStopAll() {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}

	c.mu.Lock()
	pins := make([]int, 0, len(c.pins))
	for pin := range c.pins {
		pins = append(pins, pin)
	}
	c.mu.Unlock()

	for _, pin := range pins {
		if err := c.driver.Cleanup(pin); err != nil {
			errs = append(errs, &HardwareError{Pin: pin, Op: "cleanup", Err: err})
		}
	}
	if err := c.driver.Close(); err != nil {
		errs = append(errs, err)
	}

	c.logger.Info("controller closed", "devices", len(pins))
	return errors.Join(errs...)
}

// device looks up a registered device by name.
func (c *Controller) device(name string) (*managedDevice, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, ok := c.devices[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return d, nil
}

// deviceNames returns all registered device names, sorted for stable
// iteration order.
func (c *Controller) deviceNames() []string {
	c.mu.RLock()
	names := make([]string, 0, len(c.devices))
	for name := range c.devices {
		names = append(names, name)
	}
	c.mu.RUnlock()

	sort.Strings(names)
	return names
}

// onLocked performs the on-transition. Caller holds d.mu.
func (c *Controller) onLocked(d *managedDevice) error {
	now := c.now()
	if err := checkActivation(d.cfg, &d.state, now); err != nil {
		return err
	}

	if err := c.driver.SetLevel(d.cfg.Pin, d.cfg.activeLevel()); err != nil {
		return &HardwareError{Pin: d.cfg.Pin, Op: "set_level", Err: err}
	}

	d.state.isOn = true
	d.state.activatedAt = now

	c.emit(TransitionEvent{
		Device:  d.cfg.Name,
		Pin:     d.cfg.Pin,
		IsOn:    true,
		Trigger: TriggerManual,
		At:      now,
	})
	return nil
}

// offLocked performs the off-transition: actuation, runtime accumulation,
// cycle bookkeeping, and timer cancellation. Caller holds d.mu and has
// verified the device is on.
//
// An actuation fault aborts the transition for manual and timer triggers
// (the pending timer stays armed and will retry the off). An emergency
// trigger completes the bookkeeping regardless and returns the fault.
func (c *Controller) offLocked(d *managedDevice, trigger Trigger) error {
	now := c.now()

	var hwErr error
	if err := c.driver.SetLevel(d.cfg.Pin, d.cfg.inactiveLevel()); err != nil {
		hwErr = &HardwareError{Pin: d.cfg.Pin, Op: "set_level", Err: err}
		if trigger != TriggerEmergency {
			return hwErr
		}
	}

	session := now.Sub(d.state.activatedAt)
	d.state.totalRuntime += session
	d.state.totalCycles++
	d.state.cycleTimes = pruneCycles(append(d.state.cycleTimes, now), now)
	d.state.lastOffAt = now
	d.state.isOn = false
	d.state.activatedAt = time.Time{}
	d.state.timer.cancel()
	d.state.timer = nil

	c.emit(TransitionEvent{
		Device:         d.cfg.Name,
		Pin:            d.cfg.Pin,
		IsOn:           false,
		Trigger:        trigger,
		At:             now,
		SessionRuntime: session,
	})
	return hwErr
}

// emit delivers a transition event to the sink, if one is set.
func (c *Controller) emit(ev TransitionEvent) {
	if c.sink != nil {
		c.sink.DeviceTransition(ev)
	}
}
