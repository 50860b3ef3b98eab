package render

import (
	"maps"
	"slices"

	"github.com/pixil98/go-geoquest/internal/game"
)

// Renderer creates, updates and removes the rendered element for an object.
type Renderer[H any] interface {
	Create(o *game.Object) H
	Update(h H, o *game.Object)
	Remove(h H)
}

// Changes counts what a reconciliation pass did.
type Changes struct {
	Created int
	Updated int
	Removed int
}

// Reconciler keeps rendered elements in step with a set of objects, touching
// only what changed. It is not safe for concurrent use.
type Reconciler[H any] struct {
	renderer Renderer[H]
	visible  func(*game.Object) bool
	handles  map[game.ID]H
}

type ReconcilerOpt[H any] func(*Reconciler[H])

// WithVisibility replaces the default visibility test, which is the object's
// OnMap flag.
func WithVisibility[H any](visible func(*game.Object) bool) ReconcilerOpt[H] {
	return func(r *Reconciler[H]) {
		r.visible = visible
	}
}

func NewReconciler[H any](renderer Renderer[H], opts ...ReconcilerOpt[H]) *Reconciler[H] {
	r := &Reconciler[H]{
		renderer: renderer,
		visible:  func(o *game.Object) bool { return o.OnMap },
		handles:  map[game.ID]H{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile renders objs. Elements of objects seen before are updated, new
// visible objects get an element and elements of objects that are gone or no
// longer visible are removed. Objects are visited in id order.
func (r *Reconciler[H]) Reconcile(objs map[game.ID]*game.Object) Changes {
	var c Changes
	ids := slices.Sorted(maps.Keys(objs))

	for _, id := range ids {
		o := objs[id]
		h, ok := r.handles[id]
		if !ok || !r.visible(o) {
			continue
		}
		r.renderer.Update(h, o)
		c.Updated++
	}

	for _, id := range ids {
		o := objs[id]
		if _, ok := r.handles[id]; ok || !r.visible(o) {
			continue
		}
		r.handles[id] = r.renderer.Create(o)
		c.Created++
	}

	for _, id := range slices.Sorted(maps.Keys(r.handles)) {
		if o, ok := objs[id]; ok && r.visible(o) {
			continue
		}
		r.renderer.Remove(r.handles[id])
		delete(r.handles, id)
		c.Removed++
	}

	return c
}

// Len returns the number of rendered elements.
func (r *Reconciler[H]) Len() int {
	return len(r.handles)
}

// Has reports whether id currently has a rendered element.
func (r *Reconciler[H]) Has(id game.ID) bool {
	_, ok := r.handles[id]
	return ok
}
