package command

import (
	"fmt"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-geoquest/internal/messages"
	"github.com/pixil98/go-geoquest/internal/sensor"
)

type SensorsConfig struct {
	DefaultOrientation sensor.DeviceOrientation `json:"default_orientation"`
	CameraWidth        int                      `json:"camera_width"`
	CameraHeight       int                      `json:"camera_height"`
}

func (c *SensorsConfig) validate() error {
	el := errors.NewErrorList()

	if c.CameraWidth < 0 || c.CameraHeight < 0 {
		el.Add(fmt.Errorf("camera size must not be negative"))
	}
	if (c.CameraWidth == 0) != (c.CameraHeight == 0) {
		el.Add(fmt.Errorf("camera_width and camera_height must be set together"))
	}

	return el.Err()
}

func (c *SensorsConfig) buildHub(dev *sensor.NatsDevice, observers sensor.Observers, notifier messages.Notifier) *sensor.Hub {
	opts := []sensor.HubOpt{
		sensor.WithGeoSource(dev),
		sensor.WithOrientationSource(dev),
		sensor.WithCameraSource(dev),
		sensor.WithScreen(dev),
		sensor.WithDeviceOrientation(c.DefaultOrientation),
	}
	if c.CameraWidth > 0 {
		opts = append(opts, sensor.WithCameraSize(c.CameraWidth, c.CameraHeight))
	}

	return sensor.NewHub(observers, notifier, opts...)
}
