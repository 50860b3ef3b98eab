package render

import (
	"fmt"
	"math"

	"github.com/pixil98/go-geoquest/internal/game"
)

const (
	// Perspective is the camera distance of the AR overlay in pixels.
	Perspective = 800.0
	// MaxDistance is the distance in meters rendered at full depth.
	MaxDistance = 100.0
)

// Style places an AR element relative to the camera.
type Style struct {
	Hidden   bool
	Distance float64
	Bearing  float64
	// Diff is the heading minus the bearing, in (-180, 180].
	Diff    float64
	RotateY float64
	X, Y, Z float64
}

// Transform renders the style as a CSS transform.
func (s Style) Transform() string {
	if s.Hidden {
		return ""
	}
	return fmt.Sprintf("rotateY(%.2fdeg) translate3d(%.2fpx, %.2fpx, %.2fpx)", s.RotateY, s.X, s.Y, s.Z)
}

// ARStyle computes where an object at target appears for a camera at own
// facing heading. Objects 90 degrees or more off the heading are hidden.
func ARStyle(own game.LatLng, heading float64, target game.LatLng) Style {
	s := Style{
		Distance: game.Distance(own, target),
		Bearing:  game.Bearing(own, target),
	}

	s.Diff = game.NormalizeDegrees(heading - s.Bearing)
	if s.Diff > 180 {
		s.Diff -= 360
	}
	if math.Abs(s.Diff) >= 90 {
		s.Hidden = true
		return s
	}

	angle := -s.Diff * math.Pi / 180
	depth := Perspective * s.Distance / MaxDistance

	s.RotateY = s.Diff
	s.X = math.Sin(angle) * depth
	s.Y = 0
	s.Z = Perspective - math.Cos(angle)*depth
	return s
}
