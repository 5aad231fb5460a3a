package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Pinguard.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	GPIO     GPIOConfig     `yaml:"gpio"`
	Devices  []DeviceSpec   `yaml:"devices"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	History  HistoryConfig  `yaml:"history"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServiceConfig contains service identity settings.
type ServiceConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// GPIOConfig selects the pin driver.
type GPIOConfig struct {
	// Driver is "chip" for the Linux character device driver or "mock"
	// for the in-memory driver used in development and tests.
	Driver string `yaml:"driver"`

	// Chip is the gpiochip device name used by the chip driver.
	Chip string `yaml:"chip"`
}

// DeviceSpec declares a GPIO device to register at startup.
type DeviceSpec struct {
	Name         string `yaml:"name"`
	Pin          int    `yaml:"pin"`
	ActiveState  string `yaml:"active_state"`
	InitialState string `yaml:"initial_state"`
	DeviceType   string `yaml:"device_type"`
	Description  string `yaml:"description"`

	// MaxRuntimeSeconds caps the duration a timed activation may request.
	// Zero means unlimited.
	MaxRuntimeSeconds int `yaml:"max_runtime_seconds"`

	Safety DeviceSafetyConfig `yaml:"safety"`
}

// DeviceSafetyConfig contains the per-device safety limits.
type DeviceSafetyConfig struct {
	CooldownSeconds  int `yaml:"cooldown_seconds"`
	MaxCyclesPerHour int `yaml:"max_cycles_per_hour"`
}

// MaxRuntime returns the runtime cap as a Duration.
func (d DeviceSpec) MaxRuntime() time.Duration {
	return time.Duration(d.MaxRuntimeSeconds) * time.Second
}

// Cooldown returns the cooldown as a Duration.
func (d DeviceSpec) Cooldown() time.Duration {
	return time.Duration(d.Safety.CooldownSeconds) * time.Second
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	BaseTopic string              `yaml:"base_topic"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// HistoryConfig contains transition history database settings.
type HistoryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: PINGUARD_SECTION_KEY
// For example: PINGUARD_MQTT_HOST, PINGUARD_HISTORY_PATH
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			ID:       "pinguard-001",
			Name:     "Pinguard",
			Timezone: "UTC",
		},
		GPIO: GPIOConfig{
			Driver: "mock",
			Chip:   "gpiochip0",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "pinguard",
			},
			QoS:       1,
			BaseTopic: "pinguard",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		History: HistoryConfig{
			Path:        "./data/pinguard.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: PINGUARD_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// GPIO
	if v := os.Getenv("PINGUARD_GPIO_DRIVER"); v != "" {
		cfg.GPIO.Driver = v
	}
	if v := os.Getenv("PINGUARD_GPIO_CHIP"); v != "" {
		cfg.GPIO.Chip = v
	}

	// MQTT
	if v := os.Getenv("PINGUARD_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("PINGUARD_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("PINGUARD_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("PINGUARD_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// History
	if v := os.Getenv("PINGUARD_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}

	// InfluxDB
	if v := os.Getenv("PINGUARD_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Service.ID == "" {
		errs = append(errs, "service.id is required")
	}

	switch c.GPIO.Driver {
	case "chip", "mock":
	default:
		errs = append(errs, "gpio.driver must be \"chip\" or \"mock\"")
	}
	if c.GPIO.Driver == "chip" && c.GPIO.Chip == "" {
		errs = append(errs, "gpio.chip is required for the chip driver")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.BaseTopic == "" {
		errs = append(errs, "mqtt.base_topic is required when mqtt is enabled")
	}

	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, "history.path is required when history is enabled")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required when influxdb is enabled (set PINGUARD_INFLUXDB_TOKEN)")
		}
	}

	// Device declarations are validated again at registration; the checks
	// here catch config mistakes before any hardware is touched.
	seenNames := make(map[string]bool, len(c.Devices))
	seenPins := make(map[int]bool, len(c.Devices))
	for i, dev := range c.Devices {
		if dev.Name == "" {
			errs = append(errs, fmt.Sprintf("devices[%d].name is required", i))
			continue
		}
		if seenNames[dev.Name] {
			errs = append(errs, fmt.Sprintf("devices[%d]: duplicate name %q", i, dev.Name))
		}
		seenNames[dev.Name] = true

		if dev.Pin < 0 {
			errs = append(errs, fmt.Sprintf("devices[%d] (%s): pin must not be negative", i, dev.Name))
		}
		if seenPins[dev.Pin] {
			errs = append(errs, fmt.Sprintf("devices[%d] (%s): pin %d already assigned", i, dev.Name, dev.Pin))
		}
		seenPins[dev.Pin] = true

		if dev.MaxRuntimeSeconds < 0 {
			errs = append(errs, fmt.Sprintf("devices[%d] (%s): max_runtime_seconds must not be negative", i, dev.Name))
		}
		if dev.Safety.CooldownSeconds < 0 {
			errs = append(errs, fmt.Sprintf("devices[%d] (%s): safety.cooldown_seconds must not be negative", i, dev.Name))
		}
		if dev.Safety.MaxCyclesPerHour < 0 {
			errs = append(errs, fmt.Sprintf("devices[%d] (%s): safety.max_cycles_per_hour must not be negative", i, dev.Name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
