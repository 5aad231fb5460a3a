package mqtt

import "fmt"

// DefaultBaseTopic is the topic prefix used when none is configured.
const DefaultBaseTopic = "pinguard"

// Topics builds Pinguard MQTT topic names under a configurable base.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{Base: "pinguard"}
//	topics.DeviceCommand("pump_relay") // "pinguard/command/pump_relay"
//
// The topic scheme:
//
//	{base}/command/{device}   commands to the controller (subscribe)
//	{base}/result/{device}    per-command results (publish)
//	{base}/state/{device}     retained device state (publish)
//	{base}/system/status      retained service status + LWT (publish)
//	{base}/system/stop        emergency stop all (subscribe)
type Topics struct {
	Base string
}

func (t Topics) base() string {
	if t.Base == "" {
		return DefaultBaseTopic
	}
	return t.Base
}

// DeviceCommand returns the command topic for a device.
//
// Example: pinguard/command/pump_relay
func (t Topics) DeviceCommand(device string) string {
	return fmt.Sprintf("%s/command/%s", t.base(), device)
}

// DeviceResult returns the topic command results are published to.
//
// Example: pinguard/result/pump_relay
func (t Topics) DeviceResult(device string) string {
	return fmt.Sprintf("%s/result/%s", t.base(), device)
}

// DeviceState returns the retained state topic for a device.
//
// Example: pinguard/state/pump_relay
func (t Topics) DeviceState(device string) string {
	return fmt.Sprintf("%s/state/%s", t.base(), device)
}

// SystemStatus returns the retained service status topic, also used for
// the Last Will and Testament.
//
// Example: pinguard/system/status
func (t Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", t.base())
}

// SystemStop returns the emergency-stop-all topic.
//
// Example: pinguard/system/stop
func (t Topics) SystemStop() string {
	return fmt.Sprintf("%s/system/stop", t.base())
}

// AllDeviceCommands returns a pattern matching every device command topic.
//
// Pattern: pinguard/command/+
func (t Topics) AllDeviceCommands() string {
	return fmt.Sprintf("%s/command/+", t.base())
}

// CommandDevice extracts the device name from a command topic, or ""
// if the topic does not match the command scheme.
func (t Topics) CommandDevice(topic string) string {
	prefix := fmt.Sprintf("%s/command/", t.base())
	if len(topic) <= len(prefix) || topic[:len(prefix)] != prefix {
		return ""
	}
	device := topic[len(prefix):]
	for i := 0; i < len(device); i++ {
		if device[i] == '/' {
			return ""
		}
	}
	return device
}
