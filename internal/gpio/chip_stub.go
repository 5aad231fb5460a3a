//go:build !linux

package gpio

import "errors"

// ChipDriver is not available on non-Linux platforms.
type ChipDriver struct{}

// NewChipDriver returns an error on non-Linux platforms.
func NewChipDriver(string) (*ChipDriver, error) {
	return nil, errors.New("gpio: character device driver requires Linux")
}

// SetLevel is not implemented on non-Linux platforms.
func (d *ChipDriver) SetLevel(int, Level) error {
	return errors.New("gpio: not supported on this platform")
}

// Cleanup is not implemented on non-Linux platforms.
func (d *ChipDriver) Cleanup(int) error { return nil }

// Close is not implemented on non-Linux platforms.
func (d *ChipDriver) Close() error { return nil }
