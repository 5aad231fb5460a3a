package gpio

import "sync"

// MockDriver is a Driver that performs no I/O.
//
// It records every level change per pin so tests can assert on the exact
// sequence of electrical transitions. SetLevelErr and CleanupErr inject
// failures for error-path testing; when unset every operation succeeds.
type MockDriver struct {
	mu      sync.Mutex
	levels  map[int]Level
	history map[int][]Level
	cleaned map[int]bool
	closed  bool

	// SetLevelErr, if set, is returned by every SetLevel call.
	SetLevelErr error

	// CleanupErr, if set, is returned by every Cleanup call.
	CleanupErr error
}

// NewMockDriver creates an empty mock driver.
func NewMockDriver() *MockDriver {
	return &MockDriver{
		levels:  make(map[int]Level),
		history: make(map[int][]Level),
		cleaned: make(map[int]bool),
	}
}

// SetLevel records the level change.
func (d *MockDriver) SetLevel(pin int, level Level) error {
	if d.SetLevelErr != nil {
		return d.SetLevelErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.levels[pin] = level
	d.history[pin] = append(d.history[pin], level)
	d.cleaned[pin] = false
	return nil
}

// Cleanup marks the pin released.
func (d *MockDriver) Cleanup(pin int) error {
	if d.CleanupErr != nil {
		return d.CleanupErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cleaned[pin] = true
	return nil
}

// Close marks the driver closed.
func (d *MockDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Level returns the last level driven on the pin, and whether the pin has
// ever been driven.
func (d *MockDriver) Level(pin int) (Level, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	level, ok := d.levels[pin]
	return level, ok
}

// History returns a copy of the sequence of levels driven on the pin.
func (d *MockDriver) History(pin int) []Level {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Level, len(d.history[pin]))
	copy(out, d.history[pin])
	return out
}

// Cleaned reports whether Cleanup was called for the pin after its last
// level change.
func (d *MockDriver) Cleaned(pin int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cleaned[pin]
}

// Closed reports whether Close was called.
func (d *MockDriver) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
