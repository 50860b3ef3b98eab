package command

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/pixil98/go-errors"
)

type Config struct {
	TickInterval string           `json:"tick_interval"`
	LogLevel     string           `json:"log_level"`
	Backend      BackendConfig    `json:"backend"`
	Nats         NatsConfig       `json:"nats"`
	Device       DeviceConfig     `json:"device"`
	Sync         SyncConfig       `json:"sync"`
	Sensors      SensorsConfig    `json:"sensors"`
	Views        ViewsConfig      `json:"views"`
	Console      bool             `json:"console"`
	Listeners    []ListenerConfig `json:"listeners"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	if c.TickInterval != "" {
		d, err := time.ParseDuration(c.TickInterval)
		if err != nil {
			el.Add(fmt.Errorf("parsing tick_interval: %w", err))
		} else if d < time.Second {
			el.Add(fmt.Errorf("tick_interval must be at least 1 second"))
		}
	}

	if c.LogLevel != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
			el.Add(fmt.Errorf("parsing log_level: %w", err))
		}
	}

	for i, l := range c.Listeners {
		err := l.validate()
		if err != nil {
			el.Add(fmt.Errorf("listener %d: %w", i, err))
		}
	}

	el.Add(c.Backend.validate())
	el.Add(c.Nats.validate())
	el.Add(c.Device.validate())
	el.Add(c.Sync.validate())
	el.Add(c.Sensors.validate())
	el.Add(c.Views.validate())

	return el.Err()
}

func (c *Config) tickInterval() time.Duration {
	d, err := time.ParseDuration(c.TickInterval)
	if err != nil {
		return 0
	}
	return d
}

func (c *Config) logLevel() slog.Level {
	var lvl slog.Level
	_ = lvl.UnmarshalText([]byte(c.LogLevel))
	return lvl
}
