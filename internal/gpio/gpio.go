package gpio

// Level is the electrical level of an output pin.
type Level int

// Electrical levels.
const (
	Low  Level = 0
	High Level = 1
)

// String returns "HIGH" or "LOW".
func (l Level) String() string {
	if l == High {
		return "HIGH"
	}
	return "LOW"
}

// Invert returns the opposite level.
func (l Level) Invert() Level {
	if l == High {
		return Low
	}
	return High
}

// Driver drives output pins.
//
// Implementations must be safe for concurrent use from multiple goroutines
// as long as no two callers drive the same pin at the same time; the
// controller guarantees per-pin exclusivity.
type Driver interface {
	// SetLevel drives the pin to the given electrical level, configuring
	// it as an output on first use.
	SetLevel(pin int, level Level) error

	// Cleanup releases the pin, returning it to a safe inactive state.
	// Releasing a pin that was never driven is a no-op.
	Cleanup(pin int) error

	// Close releases all pins and any underlying chip handle.
	Close() error
}
