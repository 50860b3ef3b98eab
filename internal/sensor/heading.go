package sensor

import (
	"fmt"

	"github.com/pixil98/go-geoquest/internal/game"
)

// DeviceOrientation is the natural orientation of the device's screen.
type DeviceOrientation int

const (
	Portrait DeviceOrientation = iota
	Landscape
)

func (d *DeviceOrientation) UnmarshalText(text []byte) error {
	switch string(text) {
	case "portrait":
		*d = Portrait
	case "landscape":
		*d = Landscape
	default:
		return fmt.Errorf("unknown device orientation: %s", text)
	}
	return nil
}

func (d DeviceOrientation) String() string {
	if d == Landscape {
		return "landscape"
	}
	return "portrait"
}

// offset is the angle between the device's natural orientation and portrait.
func (d DeviceOrientation) offset() float64 {
	if d == Landscape {
		return 90
	}
	return 0
}

// Heading converts the raw alpha rotation into a north-referenced compass
// heading in [0, 360). Alpha grows counter-clockwise while headings grow
// clockwise; screenAngle is the current screen rotation.
func Heading(alpha, screenAngle float64, d DeviceOrientation) float64 {
	return game.NormalizeDegrees(360 - alpha + screenAngle - d.offset())
}
