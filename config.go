package statecast

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"statecast/transport"
)

// Config is the setup-time surface of the engine. It is read once; nothing
// here changes after the first tick.
type Config struct {
	// ObserverAddr is the host:port the observer listens on for datagrams.
	ObserverAddr string `env:"STATECAST_OBSERVER_ADDR" envDefault:"127.0.0.1:8000"`
	// MaxPayload caps a single outgoing message in bytes.
	MaxPayload int `env:"STATECAST_MAX_PAYLOAD" envDefault:"32768"`
	// TickRate is the host's intended ticks per second. Informational unless
	// Engine.Run drives the loop.
	TickRate int `env:"STATECAST_TICK_RATE" envDefault:"15"`
	// Workers bounds parallel serialization; 0 means hardware concurrency.
	Workers int `env:"STATECAST_WORKERS" envDefault:"0"`
	// SerialCollect disables the fan-out entirely. Frames are byte-identical
	// either way; the toggle exists for debugging and benchmarks.
	SerialCollect bool `env:"STATECAST_SERIAL_COLLECT" envDefault:"false"`
}

// DefaultConfig returns the configuration used when no environment is set.
func DefaultConfig() Config {
	return Config{
		ObserverAddr: "127.0.0.1:8000",
		MaxPayload:   transport.DefaultMaxPayload,
		TickRate:     15,
	}
}

// ConfigFromEnv reads STATECAST_* variables over the defaults.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.ObserverAddr == "" {
		return fmt.Errorf("config: observer address must not be empty")
	}
	if c.MaxPayload <= 0 {
		return fmt.Errorf("config: max payload must be positive, got %d", c.MaxPayload)
	}
	if c.TickRate <= 0 {
		return fmt.Errorf("config: tick rate must be positive, got %d", c.TickRate)
	}
	if c.Workers < 0 {
		return fmt.Errorf("config: workers must not be negative, got %d", c.Workers)
	}
	return nil
}
