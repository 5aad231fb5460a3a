// Package bridge exposes the GPIO controller over MQTT.
//
// The bridge is the service's remote control surface. It subscribes to
// per-device command topics, executes each command against the controller,
// and publishes a result message for every command received. Device state
// is mirrored to retained topics so late subscribers always see current
// state.
//
// # Topic Surface
//
//	{base}/command/{device}   inbound commands (JSON CommandMessage)
//	{base}/result/{device}    per-command results (JSON ResultMessage)
//	{base}/state/{device}     retained device state (JSON StateMessage)
//	{base}/system/stop        emergency stop of every device
//
// # Data Flow
//
//	MQTT broker ──command──▶ Bridge ──▶ Controller ──▶ GPIO driver
//	                           │              │
//	                           ◀────result────┘
//	                           │
//	MQTT broker ◀──retained state── event worker ◀── TransitionSink
//
// The bridge implements control.TransitionSink. Sink callbacks run under
// the controller's device lock, so they only enqueue into a buffered
// channel; a dedicated worker goroutine performs the actual publishes.
//
// # Error Reporting
//
// Controller errors are mapped to stable machine-readable codes
// (COOLDOWN_ACTIVE, CYCLE_LIMIT_EXCEEDED, ...) in the result payload, with
// retry hints where the controller provides them.
package bridge
