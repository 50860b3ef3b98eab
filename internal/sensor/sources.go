package sensor

import (
	"context"
	"errors"
	"fmt"

	"github.com/pixil98/go-geoquest/internal/game"
)

// ErrUnsupported is returned by sources the device does not provide.
var ErrUnsupported = errors.New("sensor not supported")

// GeoErrorCode classifies geolocation failures.
type GeoErrorCode int

const (
	GeoUnknown GeoErrorCode = iota
	GeoPermissionDenied
	GeoUnavailable
	GeoTimeout
)

// GeoError is a single failed geolocation sample.
type GeoError struct {
	Code   GeoErrorCode
	Detail string
}

func (e *GeoError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message(), e.Detail)
	}
	return e.Message()
}

// Message is the user-visible description of the failure.
func (e *GeoError) Message() string {
	switch e.Code {
	case GeoPermissionDenied:
		return "Permission for tracking location denied."
	case GeoUnavailable:
		return "Position unavailable."
	case GeoTimeout:
		return "Timeout acquiring location."
	default:
		return "Unknown error acquiring location."
	}
}

// GeoSource delivers geolocation samples until the returned stop function is
// called. A failed sample is reported through onError and does not end the
// watch.
type GeoSource interface {
	WatchPosition(ctx context.Context, onSample func(game.Position), onError func(error)) (func(), error)
}

// OrientationSource delivers raw orientation samples. Heading is left unset.
type OrientationSource interface {
	WatchOrientation(ctx context.Context, onSample func(game.Orientation)) (func(), error)
}

// CameraSource acquires and releases the rear-facing camera stream.
type CameraSource interface {
	AcquireCamera(ctx context.Context, width, height int) (string, error)
	ReleaseCamera() error
}

// Screen reports the current screen rotation in degrees.
type Screen interface {
	Angle() float64
}
