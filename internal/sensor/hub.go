package sensor

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/pixil98/go-geoquest/internal/game"
	"github.com/pixil98/go-geoquest/internal/messages"
)

// Observers receives sensor change notifications.
type Observers interface {
	NotifyPositionChanged()
	NotifyOrientationChanged()
	NotifyCameraChanged()
}

// Hub turns device sensor streams into pollable state and notifies observers
// of every change.
type Hub struct {
	geo       GeoSource
	orient    OrientationSource
	camera    CameraSource
	screen    Screen
	observers Observers
	notifier  messages.Notifier

	deviceOrientation DeviceOrientation
	cameraWidth       int
	cameraHeight      int

	// lifeMu serializes start and stop transitions.
	lifeMu      sync.Mutex
	stopGeo     func()
	stopOrient  func()
	cameraOn    bool
	geoDisabled bool

	mu          sync.RWMutex
	position    game.Position
	orientation game.Orientation
	cameraURL   string
}

type HubOpt func(*Hub)

func WithGeoSource(s GeoSource) HubOpt {
	return func(h *Hub) {
		h.geo = s
	}
}

func WithOrientationSource(s OrientationSource) HubOpt {
	return func(h *Hub) {
		h.orient = s
	}
}

func WithCameraSource(s CameraSource) HubOpt {
	return func(h *Hub) {
		h.camera = s
	}
}

func WithScreen(s Screen) HubOpt {
	return func(h *Hub) {
		h.screen = s
	}
}

// WithDeviceOrientation sets the natural orientation used for heading
// compensation.
func WithDeviceOrientation(d DeviceOrientation) HubOpt {
	return func(h *Hub) {
		h.deviceOrientation = d
	}
}

// WithCameraSize sets the requested camera stream dimensions.
func WithCameraSize(width, height int) HubOpt {
	return func(h *Hub) {
		h.cameraWidth = width
		h.cameraHeight = height
	}
}

func NewHub(observers Observers, notifier messages.Notifier, opts ...HubOpt) *Hub {
	h := &Hub{
		observers:    observers,
		notifier:     notifier,
		cameraWidth:  640,
		cameraHeight: 480,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Start tracks location and orientation until ctx ends, then stops every
// sensor.
func (h *Hub) Start(ctx context.Context) error {
	if err := h.StartLocationTracking(ctx); err != nil {
		return err
	}
	if err := h.StartOrientationTracking(ctx); err != nil {
		h.StopLocationTracking()
		return err
	}

	<-ctx.Done()

	h.StopCamera()
	h.StopOrientationTracking()
	h.StopLocationTracking()
	return nil
}

// StartLocationTracking begins the geolocation watch. Starting an active watch
// is a no-op. Without a usable source the position stays zeroed.
func (h *Hub) StartLocationTracking(ctx context.Context) error {
	h.lifeMu.Lock()
	defer h.lifeMu.Unlock()

	if h.stopGeo != nil || h.geoDisabled {
		return nil
	}

	var stop func()
	var err error
	if h.geo == nil {
		err = ErrUnsupported
	} else {
		stop, err = h.geo.WatchPosition(ctx, h.onPosition, h.onPositionError)
	}
	if errors.Is(err, ErrUnsupported) {
		slog.WarnContext(ctx, "geolocation not supported, position stays zeroed")
		h.geoDisabled = true
		h.mu.Lock()
		h.position = game.Position{}
		h.mu.Unlock()
		return nil
	}
	if err != nil {
		return err
	}

	h.stopGeo = stop
	slog.DebugContext(ctx, "location tracking started")
	return nil
}

func (h *Hub) StopLocationTracking() {
	h.lifeMu.Lock()
	defer h.lifeMu.Unlock()

	if h.stopGeo == nil {
		return
	}
	h.stopGeo()
	h.stopGeo = nil
	slog.Debug("location tracking stopped")
}

func (h *Hub) onPosition(p game.Position) {
	h.mu.Lock()
	h.position = p
	h.mu.Unlock()

	h.observers.NotifyPositionChanged()
}

func (h *Hub) onPositionError(err error) {
	msg := (&GeoError{Code: GeoUnknown}).Message()
	var ge *GeoError
	if errors.As(err, &ge) {
		msg = ge.Message()
	}

	slog.Warn("geolocation sample failed", "error", err)
	h.notifier.Add(messages.ClassDanger, msg)
}

// StartOrientationTracking begins the orientation watch. Starting an active
// watch is a no-op.
func (h *Hub) StartOrientationTracking(ctx context.Context) error {
	h.lifeMu.Lock()
	defer h.lifeMu.Unlock()

	if h.stopOrient != nil || h.orient == nil {
		return nil
	}

	stop, err := h.orient.WatchOrientation(ctx, h.onOrientation)
	if errors.Is(err, ErrUnsupported) {
		slog.WarnContext(ctx, "orientation not supported")
		return nil
	}
	if err != nil {
		return err
	}

	h.stopOrient = stop
	return nil
}

// StopOrientationTracking ends the watch and resets the orientation.
func (h *Hub) StopOrientationTracking() {
	h.lifeMu.Lock()
	defer h.lifeMu.Unlock()

	if h.stopOrient == nil {
		return
	}
	h.stopOrient()
	h.stopOrient = nil

	h.mu.Lock()
	h.orientation = game.Orientation{}
	h.mu.Unlock()
}

func (h *Hub) onOrientation(o game.Orientation) {
	var angle float64
	if h.screen != nil {
		angle = h.screen.Angle()
	}
	o.Heading = Heading(o.Alpha, angle, h.deviceOrientation)

	h.mu.Lock()
	h.orientation = o
	h.mu.Unlock()

	h.observers.NotifyOrientationChanged()
}

// StartCamera acquires the camera stream. Starting an active camera is a no-op.
// On failure the user is told and the camera stays off.
func (h *Hub) StartCamera(ctx context.Context) error {
	if err := h.startCamera(ctx); err != nil {
		h.notifier.Add(messages.ClassDanger, err.Error())
		return err
	}
	return nil
}

func (h *Hub) startCamera(ctx context.Context) error {
	h.lifeMu.Lock()

	if h.cameraOn {
		h.lifeMu.Unlock()
		return nil
	}
	if h.camera == nil {
		h.lifeMu.Unlock()
		return ErrUnsupported
	}

	url, err := h.camera.AcquireCamera(ctx, h.cameraWidth, h.cameraHeight)
	if err != nil {
		h.lifeMu.Unlock()
		return err
	}

	h.cameraOn = true
	h.mu.Lock()
	h.cameraURL = url
	h.mu.Unlock()
	h.lifeMu.Unlock()

	h.observers.NotifyCameraChanged()
	return nil
}

// StopCamera releases the camera stream.
func (h *Hub) StopCamera() {
	h.lifeMu.Lock()

	if !h.cameraOn {
		h.lifeMu.Unlock()
		return
	}
	if err := h.camera.ReleaseCamera(); err != nil {
		slog.Warn("releasing camera", "error", err)
	}

	h.cameraOn = false
	h.mu.Lock()
	h.cameraURL = ""
	h.mu.Unlock()
	h.lifeMu.Unlock()

	h.observers.NotifyCameraChanged()
}

// Position returns the most recent geolocation sample.
func (h *Hub) Position() game.Position {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.position
}

// Orientation returns the most recent orientation sample.
func (h *Hub) Orientation() game.Orientation {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.orientation
}

// CameraURL returns the active camera stream URL, or "" when the camera is off.
func (h *Hub) CameraURL() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cameraURL
}
