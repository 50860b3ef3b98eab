package device

import (
	"encoding/json"
	"fmt"
	"time"
)

// Bus subjects carrying device samples.
const (
	SubjectPosition      = "device.position"
	SubjectPositionError = "device.position.error"
	SubjectOrientation   = "device.orientation"
	SubjectScreen        = "device.screen"
	SubjectCameraAcquire = "device.camera.acquire"
	SubjectCameraRelease = "device.camera.release"
)

// FrameType tags websocket frames exchanged with the device.
type FrameType string

const (
	FramePosition      FrameType = "position"
	FramePositionError FrameType = "position_error"
	FrameOrientation   FrameType = "orientation"
	FrameScreen        FrameType = "screen"
	FrameCamera        FrameType = "camera"
	FrameCameraError   FrameType = "camera_error"

	CommandCameraStart FrameType = "camera_start"
	CommandCameraStop  FrameType = "camera_stop"
)

// Frame is the websocket envelope.
type Frame struct {
	Type FrameType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Geolocation error codes reported by the device.
const (
	PositionErrorPermissionDenied = 1
	PositionErrorUnavailable      = 2
	PositionErrorTimeout          = 3
)

type PositionSample struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
	// Timestamp is in milliseconds since the unix epoch.
	Timestamp int64 `json:"timestamp"`
}

func (p PositionSample) Time() time.Time {
	return time.UnixMilli(p.Timestamp)
}

func (p PositionSample) validate() error {
	if p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("latitude %f out of range", p.Latitude)
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("longitude %f out of range", p.Longitude)
	}
	return nil
}

type PositionError struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

type OrientationSample struct {
	Alpha    float64 `json:"alpha"`
	Beta     float64 `json:"beta"`
	Gamma    float64 `json:"gamma"`
	Absolute bool    `json:"absolute"`
}

// ScreenInfo describes the device display. Angle is the screen rotation in
// degrees.
type ScreenInfo struct {
	Angle  float64 `json:"angle"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
}

// CameraRequest asks the device for a camera stream.
type CameraRequest struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Facing string `json:"facing"`
}

// CameraReply answers a CameraRequest with either a stream URL or an error.
type CameraReply struct {
	URL   string `json:"url,omitempty"`
	Error string `json:"error,omitempty"`
}

// decodeSample validates a device frame and returns the bus subject and payload
// to publish for it.
func decodeSample(f Frame) (string, []byte, error) {
	var (
		subject string
		payload any
	)

	switch f.Type {
	case FramePosition:
		var p PositionSample
		if err := json.Unmarshal(f.Data, &p); err != nil {
			return "", nil, fmt.Errorf("decoding position: %w", err)
		}
		if err := p.validate(); err != nil {
			return "", nil, err
		}
		subject, payload = SubjectPosition, p
	case FramePositionError:
		var p PositionError
		if err := json.Unmarshal(f.Data, &p); err != nil {
			return "", nil, fmt.Errorf("decoding position error: %w", err)
		}
		subject, payload = SubjectPositionError, p
	case FrameOrientation:
		var o OrientationSample
		if err := json.Unmarshal(f.Data, &o); err != nil {
			return "", nil, fmt.Errorf("decoding orientation: %w", err)
		}
		subject, payload = SubjectOrientation, o
	case FrameScreen:
		var s ScreenInfo
		if err := json.Unmarshal(f.Data, &s); err != nil {
			return "", nil, fmt.Errorf("decoding screen: %w", err)
		}
		subject, payload = SubjectScreen, s
	default:
		return "", nil, fmt.Errorf("unknown frame type %q", f.Type)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", nil, err
	}
	return subject, data, nil
}
