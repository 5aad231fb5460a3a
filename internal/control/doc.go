// Package control implements the GPIO device safety controller.
//
// The Controller exposes named, persistent logical devices (buzzers,
// relays, pumps, motors) bound to physical output pins, turns them on and
// off (optionally timed), and enforces safety limits under concurrent
// access from network commands and internally scheduled auto-off timers.
//
// # Architecture
//
//	┌────────────────────────────────────────────────────────────────────┐
//	│                            Controller                              │
//	│                                                                    │
//	│  ┌─────────────────┐   ┌─────────────────┐   ┌─────────────────┐   │
//	│  │    Registry     │   │ Safety Evaluator│   │ Auto-off Timers │   │
//	│  │ (controller.go) │──▶│   (safety.go)   │   │   (timer.go)    │   │
//	│  │                 │   │                 │   │                 │   │
//	│  │ • name → device │   │ • cooldown      │   │ • time.AfterFunc│   │
//	│  │ • pin ownership │   │ • cycle cap     │   │ • identity check│   │
//	│  │ • per-dev locks │   │ • runtime cap   │   │ • idempot. stop │   │
//	│  └─────────────────┘   └─────────────────┘   └─────────────────┘   │
//	│           │                                                        │
//	└───────────│────────────────────────────────────────────────────────┘
//	            │                          │
//	            ▼                          ▼
//	┌──────────────────────┐   ┌──────────────────────────────┐
//	│  gpio.Driver         │   │  TransitionSink (optional)   │
//	│  (chip or mock)      │   │  history / telemetry / MQTT  │
//	└──────────────────────┘   └──────────────────────────────┘
//
// # Safety limits
//
// Each device carries three independent limits, all optional:
//
//   - MaxRuntime caps the duration an explicit timed activation may
//     request. Unbounded TurnOn is not capped.
//   - Cooldown enforces a minimum idle time after every off-transition
//     before the next on-transition.
//   - MaxCyclesPerHour caps completed on→off cycles in a sliding one-hour
//     window.
//
// Limits are evaluated by pure functions in safety.go before any hardware
// actuation; only permitted requests reach the pin driver.
//
// # Concurrency
//
// Each device has its own mutex, so operations on different devices never
// block each other. The registry map is guarded separately by a read-write
// lock. Auto-off timer callbacks re-enter through the same per-device
// lock, so a race between a manual off and a firing timer resolves by lock
// order and the loser is a no-op.
//
// # Usage
//
//	ctrl := control.New(gpio.NewMockDriver())
//	ctrl.SetLogger(log)
//
//	err := ctrl.Register(control.DeviceConfig{
//	    Name:        "pump_relay",
//	    Pin:         27,
//	    ActiveState: control.ActiveLow,
//	    DeviceType:  "relay",
//	    MaxRuntime:  5 * time.Minute,
//	    Cooldown:    time.Minute,
//	})
//
//	err = ctrl.TurnOnFor("pump_relay", 30*time.Second)
//	st, _ := ctrl.Status("pump_relay")
//	ctrl.EmergencyStopAll()
package control
