package gamestate

import (
	"context"
	"maps"
	"sync"

	"github.com/pixil98/go-geoquest/internal/api"
	"github.com/pixil98/go-geoquest/internal/game"
	"github.com/pixil98/go-geoquest/internal/messages"
)

type queryResult struct {
	objs []*game.Object
	err  error
}

type fakeBackend struct {
	mu sync.Mutex

	results map[game.Kind]queryResult
	// gates, when set for a kind, hold its query until a value is received.
	gates   map[game.Kind]chan struct{}
	queries []api.SpatialQuery

	self    *game.Object
	selfErr error

	positions   []game.LatLng
	positionErr error

	actionRes *api.ActionResult
	actionErr error
	actions   []string

	worlds      []game.World
	registerErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		results: map[game.Kind]queryResult{},
		gates:   map[game.Kind]chan struct{}{},
	}
}

func (b *fakeBackend) Query(ctx context.Context, kind game.Kind, q api.SpatialQuery) ([]*game.Object, error) {
	b.mu.Lock()
	b.queries = append(b.queries, q)
	gate := b.gates[kind]
	b.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	r := b.results[kind]
	return r.objs, r.err
}

func (b *fakeBackend) queryCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queries)
}

func (b *fakeBackend) Self(context.Context) (*game.Object, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.self, b.selfErr
}

func (b *fakeBackend) Worlds(context.Context) ([]game.World, error) {
	return b.worlds, nil
}

func (b *fakeBackend) UpdatePosition(_ context.Context, _ game.ID, ll game.LatLng) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.positions = append(b.positions, ll)
	return b.positionErr
}

func (b *fakeBackend) sentPositions() []game.LatLng {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]game.LatLng(nil), b.positions...)
}

func (b *fakeBackend) action(name string) (*api.ActionResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.actions = append(b.actions, name)
	return b.actionRes, b.actionErr
}

func (b *fakeBackend) Collect(_ context.Context, id game.ID) (*api.ActionResult, error) {
	return b.action("collect " + id.String())
}

func (b *fakeBackend) Talk(_ context.Context, id game.ID) (*api.ActionResult, error) {
	return b.action("talk " + id.String())
}

func (b *fakeBackend) JoinWorld(_ context.Context, world game.ID) (*api.ActionResult, error) {
	return b.action("join " + world.String())
}

func (b *fakeBackend) Register(context.Context, string, string) error {
	return b.registerErr
}

type fakeCredentials struct {
	mu       sync.Mutex
	username string
	remember bool
	cleared  int
}

func (c *fakeCredentials) SetCredentials(username, _ string, remember bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.username = username
	c.remember = remember
	return nil
}

func (c *fakeCredentials) ClearCredentials() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.username = ""
	c.cleared++
	return nil
}

func (c *fakeCredentials) HasCredentials() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username != ""
}

type fakePositions struct {
	mu  sync.Mutex
	pos game.Position
}

func (p *fakePositions) set(lat, lng float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pos = game.Position{LatLng: game.LatLng{Lat: lat, Lng: lng}}
}

func (p *fakePositions) Position() game.Position {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos
}

// tableRecorder keeps a copy of the table seen at every notification.
type tableRecorder struct {
	mu     sync.Mutex
	store  *Store
	tables []map[game.ID]*game.Object
}

func (r *tableRecorder) NotifyObjectsChanged() {
	t := r.store.Objects()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables = append(r.tables, maps.Clone(t))
}

func (r *tableRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tables)
}

func (r *tableRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables = nil
}

func (r *tableRecorder) last() map[game.ID]*game.Object {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.tables) == 0 {
		return nil
	}
	return r.tables[len(r.tables)-1]
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *fakeNotifier) Add(cls messages.Class, text string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, string(cls)+": "+text)
	return ""
}

func (n *fakeNotifier) got() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

func (n *fakeNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = nil
}
