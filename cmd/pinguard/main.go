// Pinguard - GPIO Device Safety Controller
//
// This is the main entry point for the Pinguard service. Pinguard is the
// single in-process authority over a set of GPIO output pins on a
// single-board computer:
//   - Safety-interlocked actuation (cooldown, cycle caps, runtime caps)
//   - Remote control and state mirroring over MQTT
//   - Transition history in SQLite and telemetry in InfluxDB
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/quarrydown/pinguard/internal/bridge"
	"github.com/quarrydown/pinguard/internal/control"
	"github.com/quarrydown/pinguard/internal/gpio"
	"github.com/quarrydown/pinguard/internal/infrastructure/config"
	"github.com/quarrydown/pinguard/internal/infrastructure/database"
	"github.com/quarrydown/pinguard/internal/infrastructure/influxdb"
	"github.com/quarrydown/pinguard/internal/infrastructure/logging"
	"github.com/quarrydown/pinguard/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// historyRecordTimeout bounds each SQLite insert performed by the history
// worker.
const historyRecordTimeout = 5 * time.Second

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Pinguard",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the GPIO driver
	driver, err := openDriver(cfg.GPIO)
	if err != nil {
		return fmt.Errorf("opening gpio driver: %w", err)
	}
	log.Info("gpio driver ready", "driver", cfg.GPIO.Driver, "chip", cfg.GPIO.Chip)

	// Transition sinks are assembled before the controller so the sink is
	// in place before the first actuation.
	var sinks multiSink

	// Transition history (optional)
	var historyRepo control.TransitionRepository
	if cfg.History.Enabled {
		db, dbErr := database.Open(database.Config{
			Path:        cfg.History.Path,
			WALMode:     cfg.History.WALMode,
			BusyTimeout: cfg.History.BusyTimeout,
		})
		if dbErr != nil {
			return fmt.Errorf("opening history database: %w", dbErr)
		}
		defer func() {
			log.Info("closing history database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing history database", "error", closeErr)
			}
		}()
		log.Info("history database connected", "path", cfg.History.Path)

		repo, repoErr := control.NewSQLiteTransitionRepository(ctx, db.DB)
		if repoErr != nil {
			return fmt.Errorf("initialising transition history: %w", repoErr)
		}
		historyRepo = repo

		recorder := newHistoryRecorder(repo, log)
		recorder.Start()
		defer recorder.Stop()
		sinks = append(sinks, recorder)
	} else {
		log.Info("transition history disabled")
	}

	// InfluxDB telemetry (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		sinks = append(sinks, newTelemetryWriter(influxClient, cfg.Devices))
	} else {
		log.Info("InfluxDB disabled")
	}

	// Controller
	ctrl := control.New(driver)
	ctrl.SetLogger(log)
	defer func() {
		log.Info("closing controller")
		if closeErr := ctrl.Close(); closeErr != nil {
			log.Error("error closing controller", "error", closeErr)
		}
	}()

	// MQTT bridge (optional)
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		mqttBridge := bridge.New(mqttClient, ctrl, cfg.MQTT.BaseTopic, byte(cfg.MQTT.QoS))
		mqttBridge.SetLogger(log)
		if historyRepo != nil {
			mqttBridge.SetHistory(historyRepo)
		}
		sinks = append(sinks, mqttBridge)
		ctrl.SetSink(sinks)

		// Register devices before Start so the initial retained state
		// covers every device.
		if regErr := registerDevices(ctrl, cfg.Devices); regErr != nil {
			return regErr
		}

		if startErr := mqttBridge.Start(ctx); startErr != nil {
			return fmt.Errorf("starting MQTT bridge: %w", startErr)
		}
		defer func() {
			log.Info("stopping MQTT bridge")
			mqttBridge.Stop()
		}()

		if hcErr := mqttClient.HealthCheck(ctx); hcErr != nil {
			return fmt.Errorf("health check failed: mqtt: %w", hcErr)
		}
	} else {
		log.Info("MQTT disabled, running standalone")
		ctrl.SetSink(sinks)
		if regErr := registerDevices(ctrl, cfg.Devices); regErr != nil {
			return regErr
		}
	}

	log.Info("initialisation complete, waiting for shutdown signal",
		"devices", ctrl.DeviceCount(),
	)

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. MQTT bridge, then MQTT client
	// 2. Controller (emergency stop + pin release)
	// 3. InfluxDB (if enabled)
	// 4. History recorder and database (if enabled)

	log.Info("Pinguard stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses PINGUARD_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("PINGUARD_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// openDriver opens the configured GPIO backend. The mock driver exists for
// development on machines without a GPIO character device.
func openDriver(cfg config.GPIOConfig) (gpio.Driver, error) {
	switch cfg.Driver {
	case "chip":
		return gpio.NewChipDriver(cfg.Chip)
	case "mock":
		return gpio.NewMockDriver(), nil
	default:
		return nil, fmt.Errorf("unknown gpio driver %q", cfg.Driver)
	}
}

// registerDevices registers every configured device with the controller.
func registerDevices(ctrl *control.Controller, specs []config.DeviceSpec) error {
	for _, spec := range specs {
		if err := ctrl.Register(deviceConfigFromSpec(spec)); err != nil {
			return fmt.Errorf("registering device %q: %w", spec.Name, err)
		}
	}
	return nil
}

// deviceConfigFromSpec converts a YAML device declaration to the
// controller's config type.
func deviceConfigFromSpec(spec config.DeviceSpec) control.DeviceConfig {
	return control.DeviceConfig{
		Name:             spec.Name,
		Pin:              spec.Pin,
		ActiveState:      control.ActiveState(strings.ToUpper(spec.ActiveState)),
		InitialState:     control.ActiveState(strings.ToUpper(spec.InitialState)),
		DeviceType:       spec.DeviceType,
		Description:      spec.Description,
		MaxRuntime:       spec.MaxRuntime(),
		Cooldown:         spec.Cooldown(),
		MaxCyclesPerHour: spec.Safety.MaxCyclesPerHour,
	}
}

// multiSink fans a transition event out to every registered sink.
type multiSink []control.TransitionSink

// DeviceTransition implements control.TransitionSink.
func (m multiSink) DeviceTransition(ev control.TransitionEvent) {
	for _, sink := range m {
		sink.DeviceTransition(ev)
	}
}

// historyRecorder persists transition events to the history repository.
//
// Sink callbacks run under the controller's device lock, so the SQLite
// insert is moved off the caller through a buffered queue and a worker
// goroutine.
type historyRecorder struct {
	repo   control.TransitionRepository
	logger *logging.Logger

	events chan control.TransitionEvent
	stop   chan struct{}
	done   chan struct{}
}

func newHistoryRecorder(repo control.TransitionRepository, logger *logging.Logger) *historyRecorder {
	return &historyRecorder{
		repo:   repo,
		logger: logger,
		events: make(chan control.TransitionEvent, 64),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the worker.
func (h *historyRecorder) Start() {
	go func() {
		defer close(h.done)
		for {
			select {
			case ev := <-h.events:
				h.record(ev)
			case <-h.stop:
				for {
					select {
					case ev := <-h.events:
						h.record(ev)
					default:
						return
					}
				}
			}
		}
	}()
}

// Stop drains the queue and waits for the worker to exit. Events enqueued
// before Stop is called are persisted; the controller shutdown runs before
// this in the defer chain, so emergency-stop transitions make it to disk.
func (h *historyRecorder) Stop() {
	close(h.stop)
	<-h.done
}

// DeviceTransition implements control.TransitionSink.
func (h *historyRecorder) DeviceTransition(ev control.TransitionEvent) {
	select {
	case h.events <- ev:
	default:
		h.logger.Warn("history queue full, dropping transition",
			"device", ev.Device,
		)
	}
}

func (h *historyRecorder) record(ev control.TransitionEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), historyRecordTimeout)
	defer cancel()

	action := control.HistoryActionOn
	if !ev.IsOn {
		action = control.HistoryActionOff
	}
	entry := control.TransitionEntry{
		Device:         ev.Device,
		Action:         action,
		Trigger:        string(ev.Trigger),
		SessionSeconds: ev.SessionRuntime.Seconds(),
		CreatedAt:      ev.At,
	}
	if err := h.repo.Record(ctx, entry); err != nil {
		h.logger.Error("recording transition history",
			"device", ev.Device,
			"error", err,
		)
	}
}

// telemetryWriter mirrors transition events to InfluxDB. The client's
// writes are batched and non-blocking, so this sink needs no queue.
type telemetryWriter struct {
	client      *influxdb.Client
	deviceTypes map[string]string
}

func newTelemetryWriter(client *influxdb.Client, specs []config.DeviceSpec) *telemetryWriter {
	types := make(map[string]string, len(specs))
	for _, spec := range specs {
		types[spec.Name] = spec.DeviceType
	}
	return &telemetryWriter{client: client, deviceTypes: types}
}

// DeviceTransition implements control.TransitionSink.
func (w *telemetryWriter) DeviceTransition(ev control.TransitionEvent) {
	deviceType := w.deviceTypes[ev.Device]
	w.client.WriteStateChange(ev.Device, deviceType, ev.IsOn, string(ev.Trigger))
	if !ev.IsOn {
		w.client.WriteCycle(ev.Device, deviceType, ev.SessionRuntime.Seconds())
	}
}
