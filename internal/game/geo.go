package game

import (
	"fmt"
	"math"
	"time"
)

// EarthRadius is the mean earth radius in meters.
const EarthRadius = 6371000.0

// Bounds is a rectangular query window. Bounds crossing the antimeridian are
// not supported: west must not exceed east.
type Bounds struct {
	SouthWest LatLng
	NorthEast LatLng
}

// BoundsAround returns a square window of radius degrees centred on ll.
func BoundsAround(ll LatLng, radius float64) Bounds {
	return Bounds{
		SouthWest: LatLng{Lat: ll.Lat - radius, Lng: ll.Lng - radius},
		NorthEast: LatLng{Lat: ll.Lat + radius, Lng: ll.Lng + radius},
	}
}

// Validate checks south <= north and west <= east.
func (b Bounds) Validate() error {
	if b.SouthWest.Lat > b.NorthEast.Lat {
		return fmt.Errorf("south %f is north of %f", b.SouthWest.Lat, b.NorthEast.Lat)
	}
	if b.SouthWest.Lng > b.NorthEast.Lng {
		return fmt.Errorf("west %f is east of %f", b.SouthWest.Lng, b.NorthEast.Lng)
	}
	return nil
}

// Contains reports whether ll lies within the bounds, edges included.
func (b Bounds) Contains(ll LatLng) bool {
	return ll.Lat >= b.SouthWest.Lat && ll.Lat <= b.NorthEast.Lat &&
		ll.Lng >= b.SouthWest.Lng && ll.Lng <= b.NorthEast.Lng
}

// Position is a single geolocation sample.
type Position struct {
	LatLng
	Accuracy  float64
	Timestamp time.Time
}

// Orientation is a single device orientation sample. Heading is the derived
// compass heading in [0, 360) with north at 0.
type Orientation struct {
	Absolute bool
	Alpha    float64
	Beta     float64
	Gamma    float64
	Heading  float64
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b LatLng) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadius * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Bearing returns the initial great-circle bearing from a to b in degrees,
// normalized into [0, 360).
func Bearing(a, b LatLng) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)
	return NormalizeDegrees(math.Atan2(y, x) * 180 / math.Pi)
}

// NormalizeDegrees maps any angle into [0, 360).
func NormalizeDegrees(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return d
}
