package view

import "sync"

// ObjectsObserver is notified after the game object table changed.
type ObjectsObserver interface {
	OnObjectsChanged()
}

// PositionObserver is notified after a new geolocation sample was stored.
type PositionObserver interface {
	OnPositionChanged()
}

// OrientationObserver is notified after a new orientation sample was stored.
type OrientationObserver interface {
	OnOrientationChanged()
}

// CameraObserver is notified after the camera stream started or stopped.
type CameraObserver interface {
	OnCameraChanged()
}

// Registry broadcasts state change notifications to registered components in
// registration order. Notifications carry no payload; observers read current
// state from the store or sensor hub.
type Registry struct {
	mu         sync.RWMutex
	components []any
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a component. It receives every notification for which it
// implements the matching observer interface.
func (r *Registry) Register(component any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components = append(r.components, component)
}

// snapshot copies the component list so observers run without the lock held
// and may register further components.
func (r *Registry) snapshot() []any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]any, len(r.components))
	copy(out, r.components)
	return out
}

func (r *Registry) NotifyObjectsChanged() {
	for _, c := range r.snapshot() {
		if o, ok := c.(ObjectsObserver); ok {
			o.OnObjectsChanged()
		}
	}
}

func (r *Registry) NotifyPositionChanged() {
	for _, c := range r.snapshot() {
		if o, ok := c.(PositionObserver); ok {
			o.OnPositionChanged()
		}
	}
}

func (r *Registry) NotifyOrientationChanged() {
	for _, c := range r.snapshot() {
		if o, ok := c.(OrientationObserver); ok {
			o.OnOrientationChanged()
		}
	}
}

func (r *Registry) NotifyCameraChanged() {
	for _, c := range r.snapshot() {
		if o, ok := c.(CameraObserver); ok {
			o.OnCameraChanged()
		}
	}
}
