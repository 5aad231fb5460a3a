package control

import "time"

// The safety evaluator is pure decision logic over (config, state, now).
// It never touches hardware and never mutates state; the Controller calls
// it while holding the device's lock and only actuates on a nil result.

// checkActivation decides whether an on-transition is permitted right now.
// Rules are evaluated in order: already-on, cooldown, cycle cap.
func checkActivation(cfg DeviceConfig, st *deviceState, now time.Time) error {
	if st.isOn {
		return ErrAlreadyOn
	}
	if remaining := cooldownRemaining(cfg, st, now); remaining > 0 {
		return &CooldownError{Remaining: remaining}
	}
	if cfg.MaxCyclesPerHour > 0 && cyclesInWindow(st.cycleTimes, now) >= cfg.MaxCyclesPerHour {
		return ErrCycleLimitExceeded
	}
	return nil
}

// checkDuration validates an explicit timed request against the runtime
// cap. Unbounded activations are never capped; the limit is a request-time
// pre-check on timed requests only.
func checkDuration(cfg DeviceConfig, d time.Duration) error {
	if d <= 0 {
		return ErrInvalidDuration
	}
	if cfg.MaxRuntime > 0 && d > cfg.MaxRuntime {
		return &DurationError{Requested: d, Max: cfg.MaxRuntime}
	}
	return nil
}

// cooldownRemaining returns how long until the device may be turned on
// again, or zero when no cooldown applies.
func cooldownRemaining(cfg DeviceConfig, st *deviceState, now time.Time) time.Duration {
	if cfg.Cooldown == 0 || st.lastOffAt.IsZero() {
		return 0
	}
	remaining := cfg.Cooldown - now.Sub(st.lastOffAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// cyclesInWindow counts cycle timestamps newer than now minus the window.
func cyclesInWindow(times []time.Time, now time.Time) int {
	cutoff := now.Add(-cycleWindow)
	count := 0
	for _, t := range times {
		if t.After(cutoff) {
			count++
		}
	}
	return count
}

// pruneCycles drops expired entries. Timestamps are appended in order, so
// the slice stays sorted and the first live entry ends the scan.
func pruneCycles(times []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-cycleWindow)
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return times
	}
	return append(times[:0], times[i:]...)
}
