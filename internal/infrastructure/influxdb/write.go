package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteStateChange records a device on/off transition.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - device: Device name (e.g., "pump_relay")
//   - deviceType: Device category tag (e.g., "relay", "buzzer")
//   - isOn: New state after the transition
//   - trigger: What caused it ("manual", "timer", "emergency")
//
// Example:
//
//	client.WriteStateChange("pump_relay", "relay", true, "manual")
func (c *Client) WriteStateChange(device, deviceType string, isOn bool, trigger string) {
	if !c.IsConnected() {
		return
	}

	state := 0
	if isOn {
		state = 1
	}

	point := write.NewPoint(
		"gpio_state",
		map[string]string{
			"device":      device,
			"device_type": deviceType,
			"trigger":     trigger,
		},
		map[string]interface{}{
			"state": state,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteCycle records a completed on/off cycle with its session runtime.
//
// Used for tracking duty cycles and cumulative wear on switched hardware.
//
// Parameters:
//   - device: Device name
//   - deviceType: Device category tag
//   - sessionSeconds: Length of the session that just ended
func (c *Client) WriteCycle(device, deviceType string, sessionSeconds float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"gpio_cycle",
		map[string]string{
			"device":      device,
			"device_type": deviceType,
		},
		map[string]interface{}{
			"session_seconds": sessionSeconds,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
