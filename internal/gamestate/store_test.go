package gamestate

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/pixil98/go-geoquest/internal/api"
	"github.com/pixil98/go-geoquest/internal/game"
	"github.com/pixil98/go-testutil"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	store     *Store
	backend   *fakeBackend
	creds     *fakeCredentials
	positions *fakePositions
	tables    *tableRecorder
	notes     *fakeNotifier
	clock     *fakeClock
}

func newHarness(t *testing.T, opts ...StoreOpt) *harness {
	t.Helper()

	h := &harness{
		backend:   newFakeBackend(),
		creds:     &fakeCredentials{},
		positions: &fakePositions{},
		tables:    &tableRecorder{},
		notes:     &fakeNotifier{},
		clock:     &fakeClock{now: time.Unix(1000, 0)},
	}
	opts = append([]StoreOpt{WithClock(h.clock.Now)}, opts...)
	h.store = NewStore(h.backend, h.creds, h.positions, h.tables, h.notes, opts...)
	h.tables.store = h.store

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.store.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

var exampleBounds = game.Bounds{
	SouthWest: game.LatLng{Lat: 10, Lng: 10},
	NorthEast: game.LatLng{Lat: 20, Lng: 20},
}

func player(id game.ID, lat, lng float64) *game.Object {
	return &game.Object{ID: id, Kind: game.KindPlayer, Latitude: lat, Longitude: lng, OnMap: true, World: "1", Player: &game.PlayerData{}}
}

func item(id game.ID, lat, lng float64) *game.Object {
	return &game.Object{ID: id, Kind: game.KindItem, Latitude: lat, Longitude: lng, OnMap: true, World: "1", Item: &game.ItemData{}}
}

func npc(id game.ID, lat, lng float64) *game.Object {
	return &game.Object{ID: id, Kind: game.KindNPC, Latitude: lat, Longitude: lng, OnMap: true, World: "1", NPC: &game.NPCData{}}
}

// login logs in as player 5 at (15,15) in world 1 and forgets what happened
// on the way.
func (h *harness) login(t *testing.T) {
	t.Helper()

	h.backend.self = player("5", 15, 15)
	if err := h.store.SetBounds(exampleBounds); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.store.Login(context.Background(), "nik", "pw"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.store.Wait()
	h.tables.reset()
	h.notes.reset()
}

func ids(table map[game.ID]*game.Object) []game.ID {
	out := make([]game.ID, 0, len(table))
	for id := range table {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestStore_ExampleRoundAnyArrivalOrder(t *testing.T) {
	orders := [][]game.Kind{
		{game.KindPlayer, game.KindItem, game.KindNPC},
		{game.KindPlayer, game.KindNPC, game.KindItem},
		{game.KindItem, game.KindPlayer, game.KindNPC},
		{game.KindItem, game.KindNPC, game.KindPlayer},
		{game.KindNPC, game.KindPlayer, game.KindItem},
		{game.KindNPC, game.KindItem, game.KindPlayer},
	}

	for _, order := range orders {
		t.Run(fmt.Sprint(order), func(t *testing.T) {
			h := newHarness(t)
			h.login(t)

			h.backend.results[game.KindPlayer] = queryResult{objs: []*game.Object{player("5", 15, 15)}}
			h.backend.results[game.KindItem] = queryResult{objs: []*game.Object{item("9", 16, 16)}}
			h.backend.results[game.KindNPC] = queryResult{objs: []*game.Object{}}
			for _, k := range order {
				h.backend.gates[k] = make(chan struct{})
			}

			base := h.backend.queryCount()
			h.store.RequestSync()
			waitFor(t, "queries", func() bool { return h.backend.queryCount() == base+3 })

			for i, k := range order {
				close(h.backend.gates[k])
				if i < len(order)-1 {
					time.Sleep(10 * time.Millisecond)
					testutil.AssertEqual(t, "notifications before last response", h.tables.count(), 0)
					testutil.AssertEqual(t, "table before last response", len(h.store.Objects()), 0)
				}
			}
			h.store.Wait()

			testutil.AssertEqual(t, "notifications", h.tables.count(), 1)
			table := h.tables.last()
			testutil.AssertEqual(t, "ids", ids(table), []game.ID{"5", "9"})
			testutil.AssertEqual(t, "player position", table["5"].LatLng(), game.LatLng{Lat: 15, Lng: 15})
			testutil.AssertEqual(t, "item position", table["9"].LatLng(), game.LatLng{Lat: 16, Lng: 16})
		})
	}
}

func TestStore_QueryCarriesBoundsWorldAndSelf(t *testing.T) {
	h := newHarness(t, WithOnMapOnly(true))
	h.login(t)

	q := h.backend.queries[len(h.backend.queries)-1]
	testutil.AssertEqual(t, "query", q, api.SpatialQuery{Bounds: exampleBounds, World: "1", Self: "5", OnMapOnly: true})
}

func TestStore_RoundNeverCompletes(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	h.backend.results[game.KindPlayer] = queryResult{objs: []*game.Object{player("5", 15, 15)}}
	h.backend.gates[game.KindNPC] = make(chan struct{})

	base := h.backend.queryCount()
	h.store.RequestSync()
	waitFor(t, "queries", func() bool { return h.backend.queryCount() == base+3 })
	time.Sleep(20 * time.Millisecond)

	testutil.AssertEqual(t, "notifications", h.tables.count(), 0)
	testutil.AssertEqual(t, "table", len(h.store.Objects()), 0)
}

func TestStore_PartialFailureKeepsTable(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	h.backend.results[game.KindPlayer] = queryResult{objs: []*game.Object{player("5", 15, 15)}}
	h.backend.results[game.KindItem] = queryResult{objs: []*game.Object{item("9", 16, 16)}}
	h.store.RequestSync()
	h.store.Wait()
	h.tables.reset()

	h.backend.results[game.KindItem] = queryResult{err: errors.New("connection refused")}
	h.store.RequestSync()
	h.store.Wait()
	h.store.RequestSync()
	h.store.Wait()

	testutil.AssertEqual(t, "notifications", h.tables.count(), 0)
	testutil.AssertEqual(t, "table kept", ids(h.store.Objects()), []game.ID{"5", "9"})
	testutil.AssertEqual(t, "identity kept", h.store.PlayerID(), game.ID("5"))
	testutil.AssertEqual(t, "one warning", h.notes.got(), []string{"warning: Could not update game objects."})
}

func TestStore_SelfInclusion(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	// The backend answers the "OR id == self" branch even though the player
	// is far outside the bounds.
	h.backend.results[game.KindPlayer] = queryResult{objs: []*game.Object{player("5", -40, 170)}}

	far := game.Bounds{SouthWest: game.LatLng{Lat: 50, Lng: 0}, NorthEast: game.LatLng{Lat: 51, Lng: 1}}
	if err := h.store.SetBounds(far); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.store.Wait()

	self, ok := h.store.Self()
	testutil.AssertEqual(t, "self present", ok, true)
	testutil.AssertEqual(t, "self position", self.LatLng(), game.LatLng{Lat: -40, Lng: 170})

	q := h.backend.queries[len(h.backend.queries)-1]
	testutil.AssertEqual(t, "self in query", q.Self, game.ID("5"))
}

func TestStore_MergeOrder(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	// The same id returned by two kinds: the later kind in merge order wins.
	h.backend.results[game.KindPlayer] = queryResult{objs: []*game.Object{player("5", 15, 15), item("7", 1, 1)}}
	h.backend.results[game.KindItem] = queryResult{objs: []*game.Object{item("7", 2, 2)}}
	h.store.RequestSync()
	h.store.Wait()

	o, _ := h.store.Object("7")
	testutil.AssertEqual(t, "later kind wins", o.LatLng(), game.LatLng{Lat: 2, Lng: 2})
}

func TestStore_RequestsCoalesce(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	gate := make(chan struct{})
	h.backend.gates[game.KindPlayer] = gate
	h.store.RequestSync()
	waitFor(t, "first round", func() bool { return h.backend.queryCount() == 6 })

	for i := 0; i < 5; i++ {
		h.store.RequestSync()
	}
	testutil.AssertEqual(t, "no extra queries while in flight", h.backend.queryCount(), 6)

	close(gate)
	h.store.Wait()

	// login round + first round + one coalesced follow-up
	testutil.AssertEqual(t, "queries", h.backend.queryCount(), 9)
	testutil.AssertEqual(t, "notifications", h.tables.count(), 2)
}

func TestStore_LoggedOutSyncClears(t *testing.T) {
	h := newHarness(t)

	h.store.RequestSync()
	h.store.Wait()

	testutil.AssertEqual(t, "no queries", h.backend.queryCount(), 0)
	testutil.AssertEqual(t, "notified", h.tables.count(), 1)
	testutil.AssertEqual(t, "empty", len(h.store.Objects()), 0)
}

func TestStore_SetBoundsInvalid(t *testing.T) {
	h := newHarness(t)
	inverted := game.Bounds{SouthWest: exampleBounds.NorthEast, NorthEast: exampleBounds.SouthWest}

	testutil.AssertErrorContains(t, h.store.SetBounds(inverted), "is north of")
	testutil.AssertEqual(t, "bounds unchanged", h.store.Bounds(), game.Bounds{})
}

func TestStore_PositionRateLimit(t *testing.T) {
	h := newHarness(t)
	h.backend.results[game.KindPlayer] = queryResult{objs: []*game.Object{player("5", 15, 15)}}
	h.login(t)

	h.positions.set(15.1, 15)
	h.store.OnPositionChanged()
	h.store.Wait()

	// Samples inside the window are held back; only the latest survives.
	for _, lat := range []float64{15.2, 15.3, 15.4} {
		h.clock.advance(time.Second)
		h.positions.set(lat, 15)
		h.store.OnPositionChanged()
	}
	h.store.Wait()
	testutil.AssertEqual(t, "sent inside window", h.backend.sentPositions(), []game.LatLng{{Lat: 15.1, Lng: 15}})

	self, _ := h.store.Self()
	testutil.AssertEqual(t, "own object moves immediately", self.LatLng(), game.LatLng{Lat: 15.4, Lng: 15})

	// Tick before the window passed does nothing.
	if err := h.store.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.store.Wait()
	testutil.AssertEqual(t, "tick inside window", len(h.backend.sentPositions()), 1)

	h.clock.advance(2 * time.Second)
	if err := h.store.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.store.Wait()
	testutil.AssertEqual(t, "latest sent", h.backend.sentPositions(), []game.LatLng{
		{Lat: 15.1, Lng: 15},
		{Lat: 15.4, Lng: 15},
	})

	// Nothing left pending.
	h.clock.advance(10 * time.Second)
	if err := h.store.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.store.Wait()
	testutil.AssertEqual(t, "no resend", len(h.backend.sentPositions()), 2)
}

func TestStore_PositionIgnoredWhenLoggedOut(t *testing.T) {
	h := newHarness(t)

	h.positions.set(1, 1)
	h.store.OnPositionChanged()
	h.store.Wait()

	testutil.AssertEqual(t, "nothing sent", len(h.backend.sentPositions()), 0)
	testutil.AssertEqual(t, "no notification", h.tables.count(), 0)
}

func TestStore_Logout(t *testing.T) {
	h := newHarness(t)
	h.backend.results[game.KindPlayer] = queryResult{objs: []*game.Object{player("5", 15, 15)}}
	h.backend.results[game.KindItem] = queryResult{objs: []*game.Object{item("9", 16, 16)}}
	h.login(t)
	testutil.AssertEqual(t, "table before logout", len(h.store.Objects()), 2)

	h.store.Logout()
	h.store.Wait()

	testutil.AssertEqual(t, "table", len(h.store.Objects()), 0)
	testutil.AssertEqual(t, "player", h.store.PlayerID(), game.NoPlayer)
	testutil.AssertEqual(t, "credentials", h.creds.HasCredentials(), false)
	testutil.AssertEqual(t, "notice", h.notes.got(), []string{"info: You have been logged out."})
	testutil.AssertEqual(t, "observers told", h.tables.count(), 1)
}

func TestStore_LogoutDropsInFlightRound(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	h.backend.results[game.KindPlayer] = queryResult{objs: []*game.Object{player("5", 15, 15)}}
	gate := make(chan struct{})
	h.backend.gates[game.KindPlayer] = gate
	h.store.RequestSync()
	waitFor(t, "round", func() bool { return h.backend.queryCount() == 6 })

	h.store.Logout()
	close(gate)
	h.store.Wait()

	testutil.AssertEqual(t, "stale round dropped", len(h.store.Objects()), 0)
	testutil.AssertEqual(t, "only the logout notification", h.tables.count(), 1)
}

func TestStore_UnauthorizedForcesLogoutOnce(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	unauthorized := fmt.Errorf("GET /x: %w", api.ErrUnauthorized)
	for _, k := range game.DefaultKinds {
		h.backend.results[k] = queryResult{err: unauthorized}
	}
	h.backend.positionErr = unauthorized

	h.positions.set(15.5, 15)
	h.store.OnPositionChanged()
	h.store.RequestSync()
	h.store.Wait()

	testutil.AssertEqual(t, "player", h.store.PlayerID(), game.NoPlayer)
	testutil.AssertEqual(t, "table", len(h.store.Objects()), 0)
	testutil.AssertEqual(t, "one notice", h.notes.got(), []string{"danger: Login failed."})
	testutil.AssertEqual(t, "credentials discarded", h.creds.HasCredentials(), false)
}

func TestStore_UnauthorizedWithoutCredentials(t *testing.T) {
	h := newHarness(t)
	h.backend.actionErr = fmt.Errorf("GET /gameobject/9/collect: %w", api.ErrUnauthorized)

	_, err := h.store.Collect(context.Background(), "9")
	if !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	_, err = h.store.Collect(context.Background(), "9")
	if !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	testutil.AssertEqual(t, "one notice per failure", h.notes.got(), []string{
		"danger: You need to login for this to work.",
		"danger: You need to login for this to work.",
	})
}
