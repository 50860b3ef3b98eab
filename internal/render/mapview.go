package render

import (
	"log/slog"
	"sync"
	"text/template"

	"github.com/pixil98/go-geoquest/internal/game"
)

const DefaultIconPath = "/api/data/avatar_%s.svg"

// Marker is a map marker for a game object.
type Marker struct {
	ID       game.ID
	Position game.LatLng
	Icon     string
	Popup    string
}

// MarkerHandle is a marker placed on a MapSurface.
type MarkerHandle interface {
	Update(m Marker)
	Remove()
}

// MapSurface is the map widget the map view draws on.
type MapSurface interface {
	AddMarker(m Marker) MarkerHandle
	// ShowSelf draws the player's own marker with an accuracy circle.
	ShowSelf(ll game.LatLng, accuracy float64)
	Center(ll game.LatLng)
	Viewport() game.Bounds
}

// MapView shows the game objects in the map viewport and reports the
// viewport to the store.
type MapView struct {
	surface  MapSurface
	store    Store
	sensors  Sensors
	popup    *template.Template
	iconPath string

	mu      sync.Mutex
	own     *game.LatLng
	markers *Reconciler[MarkerHandle]
}

type MapViewOpt func(*MapView)

func WithPopupTemplate(tmpl *template.Template) MapViewOpt {
	return func(v *MapView) {
		v.popup = tmpl
	}
}

// WithIconPath sets the format of marker icon URLs. It receives the object image.
func WithIconPath(path string) MapViewOpt {
	return func(v *MapView) {
		v.iconPath = path
	}
}

func NewMapView(surface MapSurface, store Store, sensors Sensors, opts ...MapViewOpt) (*MapView, error) {
	v := &MapView{
		surface:  surface,
		store:    store,
		sensors:  sensors,
		iconPath: DefaultIconPath,
	}
	for _, opt := range opts {
		opt(v)
	}

	if v.popup == nil {
		tmpl, err := ParseTemplate(DefaultPopupTemplate)
		if err != nil {
			return nil, err
		}
		v.popup = tmpl
	}

	v.markers = NewReconciler[MarkerHandle](mapRenderer{v})
	return v, nil
}

// SyncViewport reports the current viewport to the store.
func (v *MapView) SyncViewport() {
	v.OnViewportChanged(v.surface.Viewport())
}

// OnViewportChanged is called by the surface when the user pans or zooms.
func (v *MapView) OnViewportChanged(b game.Bounds) {
	err := v.store.SetBounds(b)
	if err != nil {
		slog.Warn("ignoring map viewport", "bounds", b, "error", err)
	}
}

// OnObjectsChanged reconciles the markers with the store. The store is read
// with the view locked so the last notification always draws the newest table.
func (v *MapView) OnObjectsChanged() {
	v.mu.Lock()
	defer v.mu.Unlock()

	objs := others(v.store.Objects(), v.store.PlayerID())
	c := v.markers.Reconcile(objs)
	slog.Debug("map markers reconciled", "created", c.Created, "updated", c.Updated, "removed", c.Removed)
}

func (v *MapView) OnPositionChanged() {
	p := v.sensors.Position()
	if !hasFix(p) {
		return
	}

	v.mu.Lock()
	ll := p.LatLng
	v.own = &ll
	v.mu.Unlock()

	v.surface.ShowSelf(p.LatLng, p.Accuracy)
	v.surface.Center(p.LatLng)
}

// Len returns the number of markers on the map.
func (v *MapView) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.markers.Len()
}

func (v *MapView) marker(o *game.Object) Marker {
	m := Marker{
		ID:       o.ID,
		Position: o.LatLng(),
		Icon:     iconURL(v.iconPath, o.Image),
	}

	popup, err := ExpandTemplate(v.popup, newPopupData(o, v.own))
	if err != nil {
		slog.Warn("rendering marker popup", "object", o.ID, "error", err)
		popup = o.Name
	}
	m.Popup = popup
	return m
}

// mapRenderer is only used with MapView.mu held.
type mapRenderer struct {
	v *MapView
}

func (r mapRenderer) Create(o *game.Object) MarkerHandle {
	return r.v.surface.AddMarker(r.v.marker(o))
}

func (r mapRenderer) Update(h MarkerHandle, o *game.Object) {
	h.Update(r.v.marker(o))
}

func (r mapRenderer) Remove(h MarkerHandle) {
	h.Remove()
}
