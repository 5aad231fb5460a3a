// Package gpio provides output pin control with hardware abstraction.
//
// The Driver interface is the only contract the rest of the system depends
// on. Two implementations exist:
//
//   - ChipDriver drives real pins through the Linux GPIO character device
//     (go-gpiocdev). It is only available on Linux builds.
//   - MockDriver performs no I/O and records every level change, enabling
//     deterministic testing and development on machines without GPIO
//     hardware.
//
// Which driver to use is decided once at process startup from
// configuration; nothing in this package inspects the runtime environment.
//
// Pins are independent: driving one pin never touches the state of another,
// so callers holding distinct pins may use a single Driver concurrently.
package gpio
