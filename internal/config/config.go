// Package config loads daemon configuration from environment variables.
// The variable names match what the deployment's .env / container
// environment already provides.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Config holds every tunable the daemon consumes. All fields have working
// defaults so the daemon starts with an empty environment (in simulation
// mode, with remote calls failing loudly rather than silently).
type Config struct {
	// Remote service
	APIURL      string `env:"API_URL"`
	APIEndpoint string `env:"API_ENDPOINT"`
	DeviceID    string `env:"DEVICE_ID" envDefault:"raspberry-pi-001"`
	CompanyID   string `env:"COMPANY_ID"`

	// Storage
	DatabasePath string `env:"DATABASE_PATH" envDefault:"callpanel.db"`

	// Application
	Port        int           `env:"PORT" envDefault:"3000"`
	BulbHold    time.Duration `env:"TIME_ON_BULB" envDefault:"2s"`
	Environment string        `env:"ENVIRONMENT" envDefault:"development"`

	// GPIO
	EnableGPIO      bool          `env:"ENABLE_GPIO" envDefault:"true"`
	SwitchPins      []int         `env:"SWITCH_PINS" envDefault:"17,27,22,5,6"`
	BulbPins        []int         `env:"BULB_PINS" envDefault:"23,24,25,16,26"`
	PollInterval    time.Duration `env:"POLL_INTERVAL" envDefault:"10ms"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`

	// Optional MQTT event stream; empty broker disables it.
	MQTTBroker string `env:"MQTT_BROKER"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse environment")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the invariants the rest of the daemon relies on.
func (c Config) Validate() error {
	if len(c.SwitchPins) == 0 {
		return errors.New("config: no switch pins configured")
	}
	if len(c.SwitchPins) != len(c.BulbPins) {
		return errors.Errorf("config: %d switch pins but %d bulb pins; lines must pair up",
			len(c.SwitchPins), len(c.BulbPins))
	}
	if c.BulbHold < 0 {
		return errors.New("config: TIME_ON_BULB must not be negative")
	}
	if c.PollInterval <= 0 {
		return errors.New("config: POLL_INTERVAL must be positive")
	}
	return nil
}

// IsProd reports whether the daemon runs in the production environment.
// Non-production enables debug logging.
func (c Config) IsProd() bool {
	return c.Environment == "production"
}
