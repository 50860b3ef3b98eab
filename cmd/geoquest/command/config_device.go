package command

import (
	"fmt"
	"strings"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-geoquest/internal/device"
)

// DeviceConfig configures the websocket the phone connects to.
type DeviceConfig struct {
	Port           uint16 `json:"port"`
	Path           string `json:"path"`
	AcquireTimeout string `json:"acquire_timeout"`
}

func (c *DeviceConfig) validate() error {
	el := errors.NewErrorList()

	if c.Port == 0 {
		el.Add(fmt.Errorf("device port must be set to a positive integer"))
	}
	if c.Path != "" && !strings.HasPrefix(c.Path, "/") {
		el.Add(fmt.Errorf("device path must start with /"))
	}
	if c.AcquireTimeout != "" {
		_, err := time.ParseDuration(c.AcquireTimeout)
		if err != nil {
			el.Add(fmt.Errorf("parsing device acquire_timeout: %w", err))
		}
	}

	return el.Err()
}

func (c *DeviceConfig) buildBridge(bus device.Bus) (*device.Bridge, error) {
	var opts []device.BridgeOpt
	if c.Path != "" {
		opts = append(opts, device.WithPath(c.Path))
	}
	if c.AcquireTimeout != "" {
		d, err := time.ParseDuration(c.AcquireTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing device acquire_timeout: %w", err)
		}
		opts = append(opts, device.WithAcquireTimeout(d))
	}

	return device.NewBridge(bus, c.Port, opts...), nil
}
