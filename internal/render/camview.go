package render

import (
	"log/slog"
	"sync"

	"github.com/pixil98/go-geoquest/internal/game"
)

// DefaultARRadius is the half size in degrees of the area fetched around the
// player while the AR view is active.
const DefaultARRadius = 0.001

// Element is an AR overlay element for a game object.
type Element struct {
	ID    game.ID
	Name  string
	Icon  string
	Style Style
}

// ElementHandle is an element placed on an ARSurface.
type ElementHandle interface {
	Update(e Element)
	Remove()
}

// ARSurface is the camera overlay the AR view draws on.
type ARSurface interface {
	SetStream(url string)
	AddElement(e Element) ElementHandle
}

// CamView overlays nearby game objects on the camera stream.
type CamView struct {
	surface  ARSurface
	store    Store
	sensors  Sensors
	radius   float64
	iconPath string

	mu       sync.Mutex
	own      game.LatLng
	heading  float64
	elements *Reconciler[ElementHandle]
}

type CamViewOpt func(*CamView)

func WithARRadius(radius float64) CamViewOpt {
	return func(v *CamView) {
		v.radius = radius
	}
}

func WithARIconPath(path string) CamViewOpt {
	return func(v *CamView) {
		v.iconPath = path
	}
}

func NewCamView(surface ARSurface, store Store, sensors Sensors, opts ...CamViewOpt) *CamView {
	v := &CamView{
		surface:  surface,
		store:    store,
		sensors:  sensors,
		radius:   DefaultARRadius,
		iconPath: DefaultIconPath,
	}
	for _, opt := range opts {
		opt(v)
	}

	v.elements = NewReconciler[ElementHandle](arRenderer{v})
	return v
}

func (v *CamView) OnCameraChanged() {
	v.surface.SetStream(v.sensors.CameraURL())
}

// OnPositionChanged moves the fetched area to follow the player.
func (v *CamView) OnPositionChanged() {
	p := v.sensors.Position()
	if !hasFix(p) {
		return
	}

	err := v.store.SetBounds(game.BoundsAround(p.LatLng, v.radius))
	if err != nil {
		slog.Warn("setting ar bounds", "position", p.LatLng, "error", err)
	}
	v.redraw()
}

func (v *CamView) OnObjectsChanged() {
	v.redraw()
}

func (v *CamView) OnOrientationChanged() {
	v.redraw()
}

func (v *CamView) redraw() {
	v.mu.Lock()
	defer v.mu.Unlock()

	objs := others(v.store.Objects(), v.store.PlayerID())
	v.own = v.sensors.Position().LatLng
	v.heading = v.sensors.Orientation().Heading
	v.elements.Reconcile(objs)
}

// Len returns the number of overlay elements.
func (v *CamView) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.elements.Len()
}

func (v *CamView) element(o *game.Object) Element {
	return Element{
		ID:    o.ID,
		Name:  DisplayName(o.Name),
		Icon:  iconURL(v.iconPath, o.Image),
		Style: ARStyle(v.own, v.heading, o.LatLng()),
	}
}

// arRenderer is only used with CamView.mu held.
type arRenderer struct {
	v *CamView
}

func (r arRenderer) Create(o *game.Object) ElementHandle {
	return r.v.surface.AddElement(r.v.element(o))
}

func (r arRenderer) Update(h ElementHandle, o *game.Object) {
	h.Update(r.v.element(o))
}

func (r arRenderer) Remove(h ElementHandle) {
	h.Remove()
}
