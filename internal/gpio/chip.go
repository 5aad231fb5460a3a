//go:build linux

package gpio

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// ChipDriver drives pins through the Linux GPIO character device.
//
// Lines are requested as outputs lazily on first SetLevel and cached for
// the lifetime of the driver. Cleanup reconfigures a line back to input
// (matching Raspberry Pi boot defaults) before releasing it, so externally
// wired hardware is not left driven after shutdown.
type ChipDriver struct {
	chip *gpiocdev.Chip

	mu    sync.Mutex
	lines map[int]*gpiocdev.Line
}

// NewChipDriver opens the named GPIO chip (e.g. "gpiochip0").
func NewChipDriver(chipName string) (*ChipDriver, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %q: %w", chipName, err)
	}
	return &ChipDriver{
		chip:  chip,
		lines: make(map[int]*gpiocdev.Line),
	}, nil
}

// SetLevel drives the pin, requesting it as an output on first use.
func (d *ChipDriver) SetLevel(pin int, level Level) error {
	line, err := d.line(pin, level)
	if err != nil {
		return err
	}
	if err := line.SetValue(int(level)); err != nil {
		return fmt.Errorf("set pin %d to %s: %w", pin, level, err)
	}
	return nil
}

// line returns the cached output line for pin, requesting it if needed.
// The initial level is only applied when the line is first requested.
func (d *ChipDriver) line(pin int, initial Level) (*gpiocdev.Line, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if line, ok := d.lines[pin]; ok {
		return line, nil
	}

	line, err := d.chip.RequestLine(pin, gpiocdev.AsOutput(int(initial)))
	if err != nil {
		return nil, fmt.Errorf("request pin %d as output: %w", pin, err)
	}
	d.lines[pin] = line
	return line, nil
}

// Cleanup reconfigures the pin to input and releases it.
func (d *ChipDriver) Cleanup(pin int) error {
	d.mu.Lock()
	line, ok := d.lines[pin]
	delete(d.lines, pin)
	d.mu.Unlock()

	if !ok {
		return nil
	}

	var errs []error
	if err := line.Reconfigure(gpiocdev.AsInput); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", pin, err))
	}
	if err := line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close pin %d: %w", pin, err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}

// Close releases all requested lines and the chip handle.
func (d *ChipDriver) Close() error {
	d.mu.Lock()
	pins := make([]int, 0, len(d.lines))
	for pin := range d.lines {
		pins = append(pins, pin)
	}
	d.mu.Unlock()

	var errs []error
	for _, pin := range pins {
		if err := d.Cleanup(pin); err != nil {
			errs = append(errs, err)
		}
	}
	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
