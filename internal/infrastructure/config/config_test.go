package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
service:
  id: "test-service"
gpio:
  driver: "mock"
devices:
  - name: "buzzer"
    pin: 17
    active_state: "HIGH"
    device_type: "buzzer"
    max_runtime_seconds: 300
    safety:
      cooldown_seconds: 5
      max_cycles_per_hour: 30
mqtt:
  enabled: true
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
  base_topic: "pinguard"
history:
  enabled: true
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Service.ID != "test-service" {
		t.Errorf("Service.ID = %q, want %q", cfg.Service.ID, "test-service")
	}

	if cfg.History.Path != "/tmp/test.db" {
		t.Errorf("History.Path = %q, want %q", cfg.History.Path, "/tmp/test.db")
	}

	if len(cfg.Devices) != 1 {
		t.Fatalf("Devices = %d entries, want 1", len(cfg.Devices))
	}
	dev := cfg.Devices[0]
	if dev.Name != "buzzer" || dev.Pin != 17 {
		t.Errorf("device = %+v", dev)
	}
	if dev.MaxRuntime() != 300*time.Second {
		t.Errorf("MaxRuntime() = %v, want 300s", dev.MaxRuntime())
	}
	if dev.Cooldown() != 5*time.Second {
		t.Errorf("Cooldown() = %v, want 5s", dev.Cooldown())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
service:
  id: ""
gpio:
  driver: "mock"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty service.id, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Devices = []DeviceSpec{
			{Name: "buzzer", Pin: 17, ActiveState: "HIGH"},
			{Name: "relay", Pin: 27, ActiveState: "LOW"},
		}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing service ID",
			mutate:  func(c *Config) { c.Service.ID = "" },
			wantErr: true,
		},
		{
			name:    "unknown gpio driver",
			mutate:  func(c *Config) { c.GPIO.Driver = "sysfs" },
			wantErr: true,
		},
		{
			name: "chip driver without chip name",
			mutate: func(c *Config) {
				c.GPIO.Driver = "chip"
				c.GPIO.Chip = ""
			},
			wantErr: true,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name: "mqtt enabled without base topic",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.BaseTopic = ""
			},
			wantErr: true,
		},
		{
			name: "history enabled without path",
			mutate: func(c *Config) {
				c.History.Enabled = true
				c.History.Path = ""
			},
			wantErr: true,
		},
		{
			name: "influxdb enabled without token",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.URL = "http://localhost:8086"
				c.InfluxDB.Token = ""
			},
			wantErr: true,
		},
		{
			name:    "device without name",
			mutate:  func(c *Config) { c.Devices[0].Name = "" },
			wantErr: true,
		},
		{
			name:    "duplicate device name",
			mutate:  func(c *Config) { c.Devices[1].Name = c.Devices[0].Name },
			wantErr: true,
		},
		{
			name:    "duplicate pin",
			mutate:  func(c *Config) { c.Devices[1].Pin = c.Devices[0].Pin },
			wantErr: true,
		},
		{
			name:    "negative pin",
			mutate:  func(c *Config) { c.Devices[0].Pin = -1 },
			wantErr: true,
		},
		{
			name:    "negative cooldown",
			mutate:  func(c *Config) { c.Devices[0].Safety.CooldownSeconds = -1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("PINGUARD_GPIO_DRIVER", "chip")
	t.Setenv("PINGUARD_GPIO_CHIP", "gpiochip4")
	t.Setenv("PINGUARD_MQTT_HOST", "mqtt.example.com")
	t.Setenv("PINGUARD_MQTT_PORT", "8883")
	t.Setenv("PINGUARD_MQTT_USERNAME", "testuser")
	t.Setenv("PINGUARD_MQTT_PASSWORD", "testpass")
	t.Setenv("PINGUARD_HISTORY_PATH", "/custom/path.db")
	t.Setenv("PINGUARD_INFLUXDB_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	if cfg.GPIO.Driver != "chip" || cfg.GPIO.Chip != "gpiochip4" {
		t.Errorf("GPIO = %+v, want chip/gpiochip4", cfg.GPIO)
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}

	if cfg.MQTT.Broker.Port != 8883 {
		t.Errorf("MQTT.Broker.Port = %d, want 8883", cfg.MQTT.Broker.Port)
	}

	if cfg.MQTT.Auth.Username != "testuser" || cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth = %+v", cfg.MQTT.Auth)
	}

	if cfg.History.Path != "/custom/path.db" {
		t.Errorf("History.Path = %q, want %q", cfg.History.Path, "/custom/path.db")
	}

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Service.ID == "" {
		t.Error("defaultConfig should have non-empty Service.ID")
	}

	if cfg.GPIO.Driver != "mock" {
		t.Errorf("defaultConfig GPIO.Driver = %q, want mock", cfg.GPIO.Driver)
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.MQTT.BaseTopic != "pinguard" {
		t.Errorf("defaultConfig MQTT.BaseTopic = %q, want pinguard", cfg.MQTT.BaseTopic)
	}
}
