package gamestate

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/pixil98/go-geoquest/internal/api"
	"github.com/pixil98/go-geoquest/internal/game"
	"github.com/pixil98/go-geoquest/internal/messages"
)

const DefaultPositionInterval = 5 * time.Second

// ErrSuperseded is returned when the identity changed while a login was in
// progress.
var ErrSuperseded = errors.New("identity changed while request was in flight")

// Backend is the REST backend the store synchronizes against.
type Backend interface {
	Query(ctx context.Context, kind game.Kind, q api.SpatialQuery) ([]*game.Object, error)
	Self(ctx context.Context) (*game.Object, error)
	Worlds(ctx context.Context) ([]game.World, error)
	UpdatePosition(ctx context.Context, id game.ID, ll game.LatLng) error
	Collect(ctx context.Context, id game.ID) (*api.ActionResult, error)
	Talk(ctx context.Context, id game.ID) (*api.ActionResult, error)
	JoinWorld(ctx context.Context, world game.ID) (*api.ActionResult, error)
	Register(ctx context.Context, username, password string) error
}

// Credentials holds the credentials attached to authenticated requests.
type Credentials interface {
	SetCredentials(username, password string, remember bool) error
	ClearCredentials() error
	HasCredentials() bool
}

// PositionSource provides the device's current position.
type PositionSource interface {
	Position() game.Position
}

// Observers receives table change notifications.
type Observers interface {
	NotifyObjectsChanged()
}

// Store owns the local copy of nearby game objects and the player identity, and
// keeps them in sync with the backend.
type Store struct {
	backend   Backend
	creds     Credentials
	positions PositionSource
	observers Observers
	notifier  messages.Notifier

	kinds            []game.Kind
	positionInterval time.Duration
	onMapOnly        bool
	resyncOnTick     bool
	remember         bool
	now              func() time.Time

	// Background requests run on ctx and are tracked by wg.
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	asyncMu sync.Mutex
	closed  bool

	mu       sync.Mutex
	playerID game.ID
	worldID  game.ID
	bounds   game.Bounds
	objects  map[game.ID]*game.Object
	// epoch changes with every identity change. Work started under an older
	// epoch must not touch the state.
	epoch       uint64
	round       *round
	syncFailing bool

	ownPosition      *game.LatLng
	lastPositionSent time.Time
	pendingPosition  *game.LatLng
}

type StoreOpt func(*Store)

// WithKinds sets the kinds queried in every round, in merge order.
func WithKinds(kinds ...game.Kind) StoreOpt {
	return func(s *Store) {
		s.kinds = slices.Clone(kinds)
	}
}

// WithPositionInterval sets the minimum time between position updates sent to
// the backend.
func WithPositionInterval(d time.Duration) StoreOpt {
	return func(s *Store) {
		s.positionInterval = d
	}
}

// WithOnMapOnly restricts queries to objects shown on the map.
func WithOnMapOnly(onMapOnly bool) StoreOpt {
	return func(s *Store) {
		s.onMapOnly = onMapOnly
	}
}

// WithResyncOnTick starts a sync on every tick while logged in.
func WithResyncOnTick(resync bool) StoreOpt {
	return func(s *Store) {
		s.resyncOnTick = resync
	}
}

// WithRemember persists credentials given to Login.
func WithRemember(remember bool) StoreOpt {
	return func(s *Store) {
		s.remember = remember
	}
}

// WithClock replaces the store's time source.
func WithClock(now func() time.Time) StoreOpt {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(backend Backend, creds Credentials, positions PositionSource, observers Observers, notifier messages.Notifier, opts ...StoreOpt) *Store {
	s := &Store{
		backend:          backend,
		creds:            creds,
		positions:        positions,
		observers:        observers,
		notifier:         notifier,
		kinds:            slices.Clone(game.DefaultKinds),
		positionInterval: DefaultPositionInterval,
		now:              time.Now,
		playerID:         game.NoPlayer,
		objects:          map[game.ID]*game.Object{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.kinds) == 0 {
		s.kinds = slices.Clone(game.DefaultKinds)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Start runs until ctx ends, then cancels outstanding requests and waits for
// them to finish.
func (s *Store) Start(ctx context.Context) error {
	<-ctx.Done()

	s.asyncMu.Lock()
	s.closed = true
	s.asyncMu.Unlock()

	s.cancel()
	s.wg.Wait()
	return nil
}

// Wait blocks until no background request is running.
func (s *Store) Wait() {
	s.wg.Wait()
}

func (s *Store) goAsync(f func(ctx context.Context)) {
	s.asyncMu.Lock()
	defer s.asyncMu.Unlock()

	if s.closed {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		f(s.ctx)
	}()
}

// Objects returns the current table. The objects must not be modified.
func (s *Store) Objects() map[game.ID]*game.Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.objects)
}

func (s *Store) Object(id game.ID) (*game.Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[id]
	return o, ok
}

// Self returns the player's own object if it is in the table.
func (s *Store) Self() (*game.Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[s.playerID]
	return o, ok && s.playerID != game.NoPlayer
}

func (s *Store) PlayerID() game.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerID
}

func (s *Store) WorldID() game.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.worldID
}

func (s *Store) Bounds() game.Bounds {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bounds
}

// SetBounds replaces the query bounds and requests a sync.
func (s *Store) SetBounds(b game.Bounds) error {
	if err := b.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.bounds = b
	s.mu.Unlock()

	s.RequestSync()
	return nil
}

// RequestSync starts a sync round. While a round is in flight further requests
// are coalesced into a single follow-up round. When logged out the table is
// cleared without contacting the backend.
func (s *Store) RequestSync() {
	s.mu.Lock()

	if s.playerID == game.NoPlayer {
		s.objects = map[game.ID]*game.Object{}
		s.mu.Unlock()
		s.observers.NotifyObjectsChanged()
		return
	}

	if s.round != nil {
		s.round.again = true
		s.mu.Unlock()
		return
	}

	r := s.newRoundLocked()
	s.mu.Unlock()

	s.dispatch(r)
}

func (s *Store) newRoundLocked() *round {
	q := api.SpatialQuery{
		Bounds:    s.bounds,
		World:     s.worldID,
		Self:      s.playerID,
		OnMapOnly: s.onMapOnly,
	}
	r := newRound(s.epoch, q, slices.Clone(s.kinds))
	s.round = r
	return r
}

func (s *Store) dispatch(r *round) {
	slog.Debug("starting sync round", "epoch", r.epoch, "bounds", r.query.Bounds, "kinds", r.kinds)

	for i, kind := range r.kinds {
		s.goAsync(func(ctx context.Context) {
			objs, err := s.backend.Query(ctx, kind, r.query)
			s.complete(r, i, objs, err)
		})
	}
}

func (s *Store) complete(r *round, i int, objs []*game.Object, err error) {
	s.mu.Lock()

	if s.round != r {
		s.mu.Unlock()
		slog.Debug("dropping stale sync result", "kind", r.kinds[i], "epoch", r.epoch)
		return
	}

	if !r.record(i, objs, err, errors.Is(err, api.ErrUnauthorized)) {
		s.mu.Unlock()
		return
	}
	s.round = nil

	if r.unauthorized {
		s.mu.Unlock()
		s.authFailed(r.epoch)
		return
	}

	if err := r.err(); err != nil {
		wasFailing := s.syncFailing
		s.syncFailing = true
		var next *round
		if r.again {
			next = s.newRoundLocked()
		}
		s.mu.Unlock()

		slog.Warn("sync round failed", "epoch", r.epoch, "error", err)
		if !wasFailing {
			s.notifier.Add(messages.ClassWarning, "Could not update game objects.")
		}
		if next != nil {
			s.dispatch(next)
		}
		return
	}

	merged := r.merge()
	if own, ok := merged[s.playerID]; ok && s.ownPosition != nil {
		merged[s.playerID] = own.MovedTo(*s.ownPosition)
	}
	s.objects = merged
	s.syncFailing = false

	var next *round
	if r.again {
		next = s.newRoundLocked()
	}
	s.mu.Unlock()

	slog.Debug("sync round complete", "epoch", r.epoch, "objects", len(merged))
	s.observers.NotifyObjectsChanged()

	if next != nil {
		s.dispatch(next)
	}
}

// OnPositionChanged moves the player's own object to the device position and
// reports it to the backend at most once per position interval.
func (s *Store) OnPositionChanged() {
	ll := s.positions.Position().LatLng

	s.mu.Lock()
	if s.playerID == game.NoPlayer {
		s.mu.Unlock()
		return
	}

	s.ownPosition = &ll
	own, moved := s.objects[s.playerID]
	if moved {
		s.objects[s.playerID] = own.MovedTo(ll)
	}

	send := s.gatePositionLocked(ll)
	id, epoch := s.playerID, s.epoch
	s.mu.Unlock()

	if moved {
		s.observers.NotifyObjectsChanged()
	}
	if send {
		s.sendPosition(id, ll, epoch)
	}
}

// gatePositionLocked reports whether ll may be sent now. Otherwise it is kept
// as the pending position, replacing an older pending one.
func (s *Store) gatePositionLocked(ll game.LatLng) bool {
	now := s.now()
	if !s.lastPositionSent.IsZero() && now.Sub(s.lastPositionSent) < s.positionInterval {
		s.pendingPosition = &ll
		return false
	}
	s.lastPositionSent = now
	s.pendingPosition = nil
	return true
}

func (s *Store) sendPosition(id game.ID, ll game.LatLng, epoch uint64) {
	s.goAsync(func(ctx context.Context) {
		err := s.backend.UpdatePosition(ctx, id, ll)
		switch {
		case err == nil:
		case errors.Is(err, api.ErrUnauthorized):
			s.authFailed(epoch)
		default:
			slog.Warn("updating position", "player", id, "error", err)
		}
	})
}

// Tick sends a position held back by rate limiting once its window has passed
// and, if configured, refreshes the table.
func (s *Store) Tick(ctx context.Context) error {
	s.mu.Lock()
	loggedIn := s.playerID != game.NoPlayer

	var (
		send  bool
		ll    game.LatLng
		id    = s.playerID
		epoch = s.epoch
	)
	if loggedIn && s.pendingPosition != nil && s.now().Sub(s.lastPositionSent) >= s.positionInterval {
		ll, send = *s.pendingPosition, true
		s.pendingPosition = nil
		s.lastPositionSent = s.now()
	}
	s.mu.Unlock()

	if send {
		slog.DebugContext(ctx, "sending held back position", "player", id)
		s.sendPosition(id, ll, epoch)
	}
	if loggedIn && s.resyncOnTick {
		s.RequestSync()
	}
	return nil
}

// resetLocked forgets the identity and everything derived from it.
func (s *Store) resetLocked() {
	s.playerID = game.NoPlayer
	s.worldID = ""
	s.objects = map[game.ID]*game.Object{}
	s.round = nil
	s.epoch++
	s.syncFailing = false
	s.ownPosition = nil
	s.pendingPosition = nil
	s.lastPositionSent = time.Time{}
}

// authFailed forces a logout after a 401 received for a request issued under
// epoch. Failures from an identity that is already gone are ignored, so
// concurrent rejections produce a single notification.
func (s *Store) authFailed(epoch uint64) {
	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	hadCredentials := s.creds.HasCredentials()
	s.resetLocked()
	s.mu.Unlock()

	if err := s.creds.ClearCredentials(); err != nil {
		slog.Warn("clearing credentials", "error", err)
	}

	msg := "You need to login for this to work."
	if hadCredentials {
		msg = "Login failed."
	}
	slog.Warn("request not authorized, logging out", "epoch", epoch)
	s.notifier.Add(messages.ClassDanger, msg)
	s.observers.NotifyObjectsChanged()
}
