package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/quarrydown/pinguard/internal/control"
	"github.com/quarrydown/pinguard/internal/infrastructure/mqtt"
)

// eventBufferSize is the capacity of the transition event queue. The
// controller emits events under the device lock, so delivery to the broker
// is decoupled through this buffer.
const eventBufferSize = 64

// historyQueryTimeout bounds the history lookup performed for a history
// command.
const historyQueryTimeout = 5 * time.Second

// MessageBus is the subset of the MQTT client the bridge needs.
type MessageBus interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// DeviceController is the subset of the GPIO controller the bridge drives.
type DeviceController interface {
	TurnOn(name string) error
	TurnOff(name string) error
	TurnOnFor(name string, d time.Duration) error
	Status(name string) (control.Status, error)
	Statistics(name string) (control.Statistics, error)
	ListDevices() []control.Info
	EmergencyStop(name string) (control.StopResult, error)
	EmergencyStopAll() []control.StopResult
}

// Logger is the minimal logging interface the bridge uses.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output. Used when no logger is configured.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Bridge exposes the GPIO controller over MQTT.
//
// It subscribes to per-device command topics and the system stop topic,
// publishes a result for every command, and keeps a retained state topic
// per device current by consuming controller transition events.
type Bridge struct {
	bus     MessageBus
	ctrl    DeviceController
	history control.TransitionRepository
	topics  mqtt.Topics
	qos     byte
	logger  Logger

	events   chan control.TransitionEvent
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// New creates a bridge over the given bus and controller.
func New(bus MessageBus, ctrl DeviceController, baseTopic string, qos byte) *Bridge {
	return &Bridge{
		bus:    bus,
		ctrl:   ctrl,
		topics: mqtt.Topics{Base: baseTopic},
		qos:    qos,
		logger: noopLogger{},
		events: make(chan control.TransitionEvent, eventBufferSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// SetLogger sets the logger. Safe to call before Start only.
func (b *Bridge) SetLogger(logger Logger) {
	if logger != nil {
		b.logger = logger
	}
}

// SetHistory makes transition history queryable via the history action.
// Without a repository the action reports HISTORY_UNAVAILABLE. Safe to
// call before Start only.
func (b *Bridge) SetHistory(repo control.TransitionRepository) {
	b.history = repo
}

// Start subscribes to the command topics, publishes the initial retained
// state for every registered device, and launches the event worker.
//
// The worker stops when ctx is cancelled.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.bus.Subscribe(b.topics.AllDeviceCommands(), b.qos, b.handleCommand); err != nil {
		return fmt.Errorf("subscribing to device commands: %w", err)
	}
	if err := b.bus.Subscribe(b.topics.SystemStop(), b.qos, b.handleSystemStop); err != nil {
		return fmt.Errorf("subscribing to system stop: %w", err)
	}

	b.publishInitialStates()

	go b.runEventWorker(ctx)

	b.logger.Info("MQTT bridge started",
		"command_topic", b.topics.AllDeviceCommands(),
		"stop_topic", b.topics.SystemStop(),
	)
	return nil
}

// Stop unsubscribes from the command topics, signals the event worker to
// exit, and waits for it to drain the queue. It does not depend on the
// Start context being cancelled, so error paths that unwind before
// shutdown still terminate cleanly. Safe to call more than once.
func (b *Bridge) Stop() {
	if err := b.bus.Unsubscribe(b.topics.AllDeviceCommands()); err != nil {
		b.logger.Warn("unsubscribing from device commands", "error", err)
	}
	if err := b.bus.Unsubscribe(b.topics.SystemStop()); err != nil {
		b.logger.Warn("unsubscribing from system stop", "error", err)
	}
	b.stopOnce.Do(func() { close(b.stop) })
	<-b.done
}

// DeviceTransition implements control.TransitionSink.
//
// Called under the device lock, so it must not block: the event goes into
// a buffered queue and is published by the worker. If the queue is full the
// event is dropped; the retained state topic self-corrects on the next
// transition.
func (b *Bridge) DeviceTransition(ev control.TransitionEvent) {
	select {
	case b.events <- ev:
	default:
		b.logger.Warn("transition event queue full, dropping event",
			"device", ev.Device,
			"is_on", ev.IsOn,
		)
	}
}

// runEventWorker publishes queued transition events until ctx is cancelled
// or Stop is called, then drains what is left in the queue.
func (b *Bridge) runEventWorker(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case ev := <-b.events:
			b.publishState(ev)
		case <-ctx.Done():
			b.drainEvents()
			return
		case <-b.stop:
			b.drainEvents()
			return
		}
	}
}

// drainEvents publishes everything left in the queue without blocking.
func (b *Bridge) drainEvents() {
	for {
		select {
		case ev := <-b.events:
			b.publishState(ev)
		default:
			return
		}
	}
}

// publishInitialStates publishes a retained state message for every
// registered device so subscribers see current state before the first
// transition.
func (b *Bridge) publishInitialStates() {
	for _, info := range b.ctrl.ListDevices() {
		msg := StateMessage{
			Device:    info.Name,
			Timestamp: time.Now().UTC(),
			IsOn:      info.IsOn,
		}
		b.publishStateMessage(msg)
	}
}

// publishState converts a transition event to a retained state message.
func (b *Bridge) publishState(ev control.TransitionEvent) {
	msg := StateMessage{
		Device:         ev.Device,
		Timestamp:      ev.At.UTC(),
		IsOn:           ev.IsOn,
		Trigger:        string(ev.Trigger),
		SessionSeconds: ev.SessionRuntime.Seconds(),
	}
	b.publishStateMessage(msg)
}

func (b *Bridge) publishStateMessage(msg StateMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("marshalling state message", "device", msg.Device, "error", err)
		return
	}
	topic := b.topics.DeviceState(msg.Device)
	if err := b.bus.Publish(topic, payload, b.qos, true); err != nil {
		b.logger.Warn("publishing device state", "topic", topic, "error", err)
	}
}

// handleCommand processes one message from a device command topic.
func (b *Bridge) handleCommand(topic string, payload []byte) error {
	device := b.topics.CommandDevice(topic)
	if device == "" {
		return fmt.Errorf("unexpected command topic %q", topic)
	}

	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.publishResult(ResultMessage{
			Device:  device,
			Success: false,
			Error: &ResultError{
				Code:    ErrCodeInvalidCommand,
				Message: fmt.Sprintf("malformed command payload: %v", err),
			},
		})
		return nil
	}

	result := b.execute(device, cmd)
	b.publishResult(result)
	return nil
}

// execute dispatches a command to the controller and builds the result.
func (b *Bridge) execute(device string, cmd CommandMessage) ResultMessage {
	result := ResultMessage{
		RequestID: cmd.RequestID,
		Timestamp: time.Now().UTC(),
		Device:    device,
		Action:    cmd.Action,
	}

	var err error
	switch cmd.Action {
	case ActionTurnOn:
		err = b.ctrl.TurnOn(device)

	case ActionTurnOff:
		err = b.ctrl.TurnOff(device)

	case ActionTurnOnDuration:
		duration := time.Duration(cmd.DurationSeconds * float64(time.Second))
		err = b.ctrl.TurnOnFor(device, duration)

	case ActionStatus:
		var status control.Status
		status, err = b.ctrl.Status(device)
		if err == nil {
			result.Data, err = json.Marshal(status)
		}

	case ActionStatistics:
		var stats control.Statistics
		stats, err = b.ctrl.Statistics(device)
		if err == nil {
			result.Data, err = json.Marshal(stats)
		}

	case ActionHistory:
		if b.history == nil {
			result.Error = &ResultError{
				Code:    ErrCodeHistoryUnavailable,
				Message: "transition history is not enabled",
			}
			return result
		}
		ctx, cancel := context.WithTimeout(context.Background(), historyQueryTimeout)
		defer cancel()

		var entries []control.TransitionEntry
		entries, err = b.history.GetHistory(ctx, device, cmd.Limit)
		if err == nil {
			result.Data, err = json.Marshal(entries)
		}

	case ActionEmergencyStop:
		var stop control.StopResult
		stop, err = b.ctrl.EmergencyStop(device)
		if err == nil {
			result.Data, err = json.Marshal(stop)
		}

	default:
		result.Error = &ResultError{
			Code:    ErrCodeInvalidCommand,
			Message: fmt.Sprintf("unknown action %q", cmd.Action),
		}
		return result
	}

	if err != nil {
		result.Error = resultError(err)
		b.logger.Debug("command failed",
			"device", device,
			"action", cmd.Action,
			"code", result.Error.Code,
		)
		return result
	}

	result.Success = true
	return result
}

// handleSystemStop stops every device. The aggregate outcome is published
// on the system status topic's result channel per device.
func (b *Bridge) handleSystemStop(_ string, _ []byte) error {
	b.logger.Warn("emergency stop all requested via MQTT")

	results := b.ctrl.EmergencyStopAll()
	for _, res := range results {
		msg := ResultMessage{
			Timestamp: time.Now().UTC(),
			Device:    res.Name,
			Action:    ActionEmergencyStop,
			Success:   res.Err == nil,
		}
		if res.Err != nil {
			msg.Error = resultError(res.Err)
		}
		if data, err := json.Marshal(res); err == nil {
			msg.Data = data
		}
		b.publishResult(msg)
	}
	return nil
}

func (b *Bridge) publishResult(result ResultMessage) {
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(result)
	if err != nil {
		b.logger.Error("marshalling result message", "device", result.Device, "error", err)
		return
	}
	topic := b.topics.DeviceResult(result.Device)
	if err := b.bus.Publish(topic, payload, b.qos, false); err != nil {
		b.logger.Warn("publishing command result", "topic", topic, "error", err)
	}
}
