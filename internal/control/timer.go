package control

import "time"

// autoOffTimer is an armed auto-off action for a single device.
//
// The fired callback re-enters the Controller through the same per-device
// lock used by manual operations, so a race between "user turns off" and
// "timer fires" resolves by lock order: whichever path wins performs the
// off-transition, the loser observes the identity mismatch and becomes a
// no-op. Cancellation is idempotent.
type autoOffTimer struct {
	timer    *time.Timer
	deadline time.Time
}

// armAutoOff schedules an off-transition for the device after duration.
// Called with the device lock held; the returned handle must be stored in
// the device state before the lock is released.
func (c *Controller) armAutoOff(d *managedDevice, duration time.Duration) *autoOffTimer {
	t := &autoOffTimer{
		deadline: c.now().Add(duration),
	}
	t.timer = time.AfterFunc(duration, func() {
		c.autoOff(d, t)
	})
	return t
}

// cancel stops the underlying timer. Cancelling a fired or already
// cancelled timer is a no-op.
func (t *autoOffTimer) cancel() {
	if t != nil {
		t.timer.Stop()
	}
}

// remaining returns the time until the deadline, clamped at zero.
func (t *autoOffTimer) remaining(now time.Time) time.Duration {
	if t == nil {
		return 0
	}
	r := t.deadline.Sub(now)
	if r < 0 {
		return 0
	}
	return r
}

// autoOff is the timer callback. It takes the device lock and performs the
// off-transition only if this exact timer is still the pending one; a
// manual off (or a manual off followed by a fresh on) clears or replaces
// the handle, making a stale callback harmless.
func (c *Controller) autoOff(d *managedDevice, t *autoOffTimer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state.timer != t {
		// Lost the race against a manual operation.
		return
	}
	d.state.timer = nil

	if !d.state.isOn {
		return
	}

	if err := c.offLocked(d, TriggerTimer); err != nil {
		c.logger.Error("auto-off failed", "device", d.cfg.Name, "error", err)
		return
	}
	c.logger.Info("device auto-off", "device", d.cfg.Name)
}
