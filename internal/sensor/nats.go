package sensor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pixil98/go-geoquest/internal/device"
	"github.com/pixil98/go-geoquest/internal/game"
)

// Bus is the message bus the device bridge publishes samples on.
type Bus interface {
	WaitReady(ctx context.Context) error
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func(data []byte)) (func(), error)
	Request(ctx context.Context, subject string, data []byte) ([]byte, error)
}

// NatsDevice provides every sensor source from samples published by the
// device bridge.
type NatsDevice struct {
	bus Bus

	mu     sync.RWMutex
	screen device.ScreenInfo
}

func NewNatsDevice(bus Bus) *NatsDevice {
	return &NatsDevice{bus: bus}
}

func (d *NatsDevice) WatchPosition(ctx context.Context, onSample func(game.Position), onError func(error)) (func(), error) {
	if err := d.bus.WaitReady(ctx); err != nil {
		return nil, err
	}

	unsubSamples, err := d.bus.Subscribe(device.SubjectPosition, func(data []byte) {
		var s device.PositionSample
		if err := json.Unmarshal(data, &s); err != nil {
			slog.Warn("decoding position sample", "error", err)
			return
		}
		onSample(game.Position{
			LatLng:    game.LatLng{Lat: s.Latitude, Lng: s.Longitude},
			Accuracy:  s.Accuracy,
			Timestamp: s.Time(),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", device.SubjectPosition, err)
	}

	unsubErrors, err := d.bus.Subscribe(device.SubjectPositionError, func(data []byte) {
		var e device.PositionError
		if err := json.Unmarshal(data, &e); err != nil {
			onError(fmt.Errorf("decoding position error: %w", err))
			return
		}
		onError(&GeoError{Code: geoErrorCode(e.Code), Detail: e.Message})
	})
	if err != nil {
		unsubSamples()
		return nil, fmt.Errorf("subscribing to %s: %w", device.SubjectPositionError, err)
	}

	return func() {
		unsubSamples()
		unsubErrors()
	}, nil
}

func geoErrorCode(code int) GeoErrorCode {
	switch code {
	case device.PositionErrorPermissionDenied:
		return GeoPermissionDenied
	case device.PositionErrorUnavailable:
		return GeoUnavailable
	case device.PositionErrorTimeout:
		return GeoTimeout
	default:
		return GeoUnknown
	}
}

// WatchOrientation delivers orientation samples and keeps track of the screen
// rotation reported alongside them.
func (d *NatsDevice) WatchOrientation(ctx context.Context, onSample func(game.Orientation)) (func(), error) {
	if err := d.bus.WaitReady(ctx); err != nil {
		return nil, err
	}

	unsubScreen, err := d.bus.Subscribe(device.SubjectScreen, func(data []byte) {
		var s device.ScreenInfo
		if err := json.Unmarshal(data, &s); err != nil {
			slog.Warn("decoding screen info", "error", err)
			return
		}
		d.mu.Lock()
		d.screen = s
		d.mu.Unlock()
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", device.SubjectScreen, err)
	}

	unsubSamples, err := d.bus.Subscribe(device.SubjectOrientation, func(data []byte) {
		var s device.OrientationSample
		if err := json.Unmarshal(data, &s); err != nil {
			slog.Warn("decoding orientation sample", "error", err)
			return
		}
		onSample(game.Orientation{
			Absolute: s.Absolute,
			Alpha:    s.Alpha,
			Beta:     s.Beta,
			Gamma:    s.Gamma,
		})
	})
	if err != nil {
		unsubScreen()
		return nil, fmt.Errorf("subscribing to %s: %w", device.SubjectOrientation, err)
	}

	return func() {
		unsubSamples()
		unsubScreen()
	}, nil
}

// Angle returns the last reported screen rotation.
func (d *NatsDevice) Angle() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.screen.Angle
}

// AcquireCamera asks the device for a rear-facing stream of the given size.
func (d *NatsDevice) AcquireCamera(ctx context.Context, width, height int) (string, error) {
	req, err := json.Marshal(device.CameraRequest{Width: width, Height: height, Facing: "environment"})
	if err != nil {
		return "", err
	}

	data, err := d.bus.Request(ctx, device.SubjectCameraAcquire, req)
	if err != nil {
		return "", fmt.Errorf("acquiring camera: %w", err)
	}

	var reply device.CameraReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return "", fmt.Errorf("decoding camera reply: %w", err)
	}
	if reply.Error != "" {
		return "", errors.New(reply.Error)
	}
	if reply.URL == "" {
		return "", fmt.Errorf("camera reply without stream url")
	}
	return reply.URL, nil
}

func (d *NatsDevice) ReleaseCamera() error {
	return d.bus.Publish(device.SubjectCameraRelease, nil)
}
