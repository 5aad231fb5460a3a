package main

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/quarrydown/pinguard/internal/control"
	"github.com/quarrydown/pinguard/internal/infrastructure/config"
	"github.com/quarrydown/pinguard/internal/infrastructure/logging"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("PINGUARD_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_StandaloneStartupAndShutdown runs a full startup/shutdown cycle
// with the mock GPIO driver and all external services disabled.
func TestRun_StandaloneStartupAndShutdown(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")

	configContent := `
service:
  id: pinguard-test

gpio:
  driver: mock

devices:
  - name: buzzer
    pin: 17
    active_state: HIGH
    device_type: buzzer
  - name: pump
    pin: 22
    active_state: LOW
    device_type: pump
    max_runtime_seconds: 300
    safety:
      cooldown_seconds: 5
      max_cycles_per_hour: 10

mqtt:
  enabled: false

history:
  enabled: true
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

influxdb:
  enabled: false

logging:
  level: info
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("PINGUARD_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	// The history database should have been created on startup.
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("history database not created: %v", err)
	}
}

// TestRun_BadDeviceConfig verifies run fails when a configured device is
// rejected by the controller.
func TestRun_BadDeviceConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
service:
  id: pinguard-test

gpio:
  driver: mock

devices:
  - name: broken
    pin: 17
    active_state: SIDEWAYS

mqtt:
  enabled: false

history:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("PINGUARD_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with an invalid device active_state")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("PINGUARD_CONFIG", "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("PINGUARD_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

func TestOpenDriver_Mock(t *testing.T) {
	driver, err := openDriver(config.GPIOConfig{Driver: "mock"})
	if err != nil {
		t.Fatalf("openDriver(mock) error = %v", err)
	}
	if driver == nil {
		t.Fatal("openDriver(mock) returned nil driver")
	}
}

func TestOpenDriver_Unknown(t *testing.T) {
	if _, err := openDriver(config.GPIOConfig{Driver: "telepathy"}); err == nil {
		t.Fatal("openDriver should reject an unknown driver")
	}
}

func TestDeviceConfigFromSpec(t *testing.T) {
	spec := config.DeviceSpec{
		Name:              "pump",
		Pin:               22,
		ActiveState:       "low",
		InitialState:      "high",
		DeviceType:        "pump",
		Description:       "irrigation pump relay",
		MaxRuntimeSeconds: 300,
		Safety: config.DeviceSafetyConfig{
			CooldownSeconds:  5,
			MaxCyclesPerHour: 10,
		},
	}

	cfg := deviceConfigFromSpec(spec)

	if cfg.ActiveState != control.ActiveLow {
		t.Errorf("ActiveState = %q, want %q", cfg.ActiveState, control.ActiveLow)
	}
	if cfg.InitialState != control.ActiveHigh {
		t.Errorf("InitialState = %q, want %q", cfg.InitialState, control.ActiveHigh)
	}
	if cfg.MaxRuntime != 5*time.Minute {
		t.Errorf("MaxRuntime = %v, want 5m", cfg.MaxRuntime)
	}
	if cfg.Cooldown != 5*time.Second {
		t.Errorf("Cooldown = %v, want 5s", cfg.Cooldown)
	}
	if cfg.MaxCyclesPerHour != 10 {
		t.Errorf("MaxCyclesPerHour = %d, want 10", cfg.MaxCyclesPerHour)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

// recordingSink captures events for multiSink fanout assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []control.TransitionEvent
}

func (s *recordingSink) DeviceTransition(ev control.TransitionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestMultiSinkFanout(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	sinks := multiSink{a, b}

	sinks.DeviceTransition(control.TransitionEvent{Device: "buzzer", IsOn: true})

	if a.count() != 1 || b.count() != 1 {
		t.Errorf("fanout counts = %d, %d, want 1, 1", a.count(), b.count())
	}
}

// fakeRepo records history entries in memory.
type fakeRepo struct {
	mu      sync.Mutex
	entries []control.TransitionEntry
}

func (r *fakeRepo) Record(_ context.Context, entry control.TransitionEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeRepo) GetHistory(context.Context, string, int) ([]control.TransitionEntry, error) {
	return nil, nil
}

func (r *fakeRepo) recorded() []control.TransitionEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]control.TransitionEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

func TestHistoryRecorder(t *testing.T) {
	repo := &fakeRepo{}
	recorder := newHistoryRecorder(repo, logging.Default())
	recorder.Start()

	at := time.Now()
	recorder.DeviceTransition(control.TransitionEvent{
		Device:  "buzzer",
		IsOn:    true,
		Trigger: control.TriggerManual,
		At:      at,
	})
	recorder.DeviceTransition(control.TransitionEvent{
		Device:         "buzzer",
		IsOn:           false,
		Trigger:        control.TriggerTimer,
		At:             at.Add(3 * time.Second),
		SessionRuntime: 3 * time.Second,
	})

	recorder.Stop()

	entries := repo.recorded()
	if len(entries) != 2 {
		t.Fatalf("recorded %d entries, want 2", len(entries))
	}
	if entries[0].Action != control.HistoryActionOn || entries[0].Trigger != string(control.TriggerManual) {
		t.Errorf("first entry = %+v, want on/manual", entries[0])
	}
	if entries[1].Action != control.HistoryActionOff || entries[1].SessionSeconds != 3 {
		t.Errorf("second entry = %+v, want off with 3s session", entries[1])
	}
}
