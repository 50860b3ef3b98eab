package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pixil98/go-geoquest/internal/game"
	"github.com/pixil98/go-testutil"
)

type headerDecorator struct {
	value string
}

func (d *headerDecorator) Decorate(req *http.Request) {
	req.Header.Set("Authorization", d.value)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL+"/api/", WithDecorator(&headerDecorator{value: "Basic test"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

const playerDocument = `{
	"data": [
		{
			"id": "5",
			"type": "gameobject_player",
			"attributes": {"latitude": 15, "longitude": 15, "name": "nik", "image": "avatar_default", "level": 3},
			"relationships": {
				"world": {"data": {"id": "1", "type": "world"}},
				"inventory": {"data": [{"id": 9, "type": "gameobject_item"}]}
			}
		}
	],
	"included": [
		{"id": "1", "type": "world", "attributes": {"name": "Earth"}},
		{
			"id": 9,
			"type": "gameobject_item",
			"attributes": {"latitude": 16, "longitude": 16, "isonmap": false, "collectible": true},
			"relationships": {"world": {"data": {"id": 1, "type": "world"}}}
		}
	]
}`

func TestClient_Query(t *testing.T) {
	var gotPath, gotAuth string
	var gotFilter []Filter
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.Unmarshal([]byte(r.URL.Query().Get("filter")), &gotFilter); err != nil {
			t.Errorf("filter is not json: %v", err)
		}
		_, _ = io.WriteString(w, playerDocument)
	})

	q := SpatialQuery{
		Bounds: game.Bounds{SouthWest: game.LatLng{Lat: 10, Lng: 10}, NorthEast: game.LatLng{Lat: 20, Lng: 20}},
		World:  "1",
		Self:   "5",
	}
	objs, err := c.Query(context.Background(), game.KindPlayer, q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertEqual(t, "path", gotPath, "/api/gameobject_player")
	testutil.AssertEqual(t, "auth", gotAuth, "Basic test")
	testutil.AssertEqual(t, "filter top level", len(gotFilter), 1)
	testutil.AssertEqual(t, "filter branches", len(gotFilter[0].Or), 2)

	testutil.AssertEqual(t, "object count", len(objs), 2)

	player := objs[0]
	testutil.AssertEqual(t, "player id", player.ID, game.ID("5"))
	testutil.AssertEqual(t, "player kind", player.Kind, game.KindPlayer)
	testutil.AssertEqual(t, "player position", player.LatLng(), game.LatLng{Lat: 15, Lng: 15})
	testutil.AssertEqual(t, "player world", player.World, game.ID("1"))
	testutil.AssertEqual(t, "player on map by default", player.OnMap, true)
	testutil.AssertEqual(t, "player inventory", player.Player.Inventory, []game.ID{"9"})

	var level int
	found, err := player.Extras.Get("level", &level)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "extra found", found, true)
	testutil.AssertEqual(t, "extra level", level, 3)

	item := objs[1]
	testutil.AssertEqual(t, "item id", item.ID, game.ID("9"))
	testutil.AssertEqual(t, "item on map", item.OnMap, false)
	testutil.AssertEqual(t, "item collectible", item.Item.Collectible, true)
	testutil.AssertEqual(t, "item world", item.World, game.ID("1"))
}

func TestClient_Errors(t *testing.T) {
	tests := map[string]struct {
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		"unauthorized": {
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrUnauthorized) {
					t.Errorf("expected ErrUnauthorized, got %v", err)
				}
			},
		},
		"server error": {
			status: http.StatusInternalServerError,
			check: func(t *testing.T, err error) {
				var se *StatusError
				if !errors.As(err, &se) {
					t.Fatalf("expected StatusError, got %v", err)
				}
				testutil.AssertEqual(t, "code", se.Code, http.StatusInternalServerError)
			},
		},
		"missing data member": {
			status: http.StatusOK,
			body:   `{"objects": []}`,
			check: func(t *testing.T, err error) {
				var se *ShapeError
				if !errors.As(err, &se) {
					t.Fatalf("expected ShapeError, got %v", err)
				}
				testutil.AssertErrorContains(t, err, "data member missing")
			},
		},
		"missing coordinates": {
			status: http.StatusOK,
			body:   `{"data": [{"id": "1", "type": "gameobject_npc", "attributes": {"name": "x"}}]}`,
			check: func(t *testing.T, err error) {
				testutil.AssertErrorContains(t, err, "latitude missing")
			},
		},
		"wrong attribute type": {
			status: http.StatusOK,
			body:   `{"data": [{"id": "1", "type": "gameobject_npc", "attributes": {"latitude": "north", "longitude": 1}}]}`,
			check: func(t *testing.T, err error) {
				testutil.AssertErrorContains(t, err, `attribute "latitude"`)
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := c.Query(context.Background(), game.KindNPC, SpatialQuery{})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			tt.check(t, err)
		})
	}
}

func TestClient_Self(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		testutil.AssertEqual(t, "path", r.URL.Path, "/api/gameobject_player/self")
		_, _ = io.WriteString(w, `{"data": {"id": 5, "type": "gameobject_player",
			"attributes": {"latitude": 1.5, "longitude": 2.5, "name": "nik"},
			"relationships": {"world": {"data": {"id": 2, "type": "world"}}}}}`)
	})

	self, err := c.Self(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "id", self.ID, game.ID("5"))
	testutil.AssertEqual(t, "world", self.World, game.ID("2"))
	testutil.AssertEqual(t, "name", self.Name, "nik")
}

func TestClient_Worlds(t *testing.T) {
	tests := map[string]string{
		"bare array": `[{"id": 1, "attributes": {"name": "Earth"}}, {"id": 2, "attributes": {"name": "Mars"}}]`,
		"document":   `{"data": [{"id": "1", "type": "world", "attributes": {"name": "Earth"}}, {"id": "2", "type": "world", "attributes": {"name": "Mars"}}]}`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			})

			worlds, err := c.Worlds(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "worlds", worlds, []game.World{{ID: "1", Name: "Earth"}, {ID: "2", Name: "Mars"}})
		})
	}
}

func TestClient_Actions(t *testing.T) {
	tests := map[string]struct {
		call       func(c *Client) (*ActionResult, error)
		body       string
		expPath    string
		expMessage string
		expObject  game.ID
	}{
		"collect": {
			call:       func(c *Client) (*ActionResult, error) { return c.Collect(context.Background(), "9") },
			body:       `{"message": "You picked up a lamp.", "gameobject": 9}`,
			expPath:    "/api/gameobject/9/collect",
			expMessage: "You picked up a lamp.",
			expObject:  "9",
		},
		"talk plain text": {
			call:       func(c *Client) (*ActionResult, error) { return c.Talk(context.Background(), "3") },
			body:       `Hello traveller!`,
			expPath:    "/api/gameobject/3/talk",
			expMessage: "Hello traveller!",
		},
		"join world": {
			call:    func(c *Client) (*ActionResult, error) { return c.JoinWorld(context.Background(), "2") },
			body:    `{}`,
			expPath: "/api/world/2/player_join",
		},
		"update position": {
			call: func(c *Client) (*ActionResult, error) {
				return nil, c.UpdatePosition(context.Background(), "5", game.LatLng{Lat: 52.5, Lng: -13.25})
			},
			expPath: "/api/gameobject/5/update_position/52.5,-13.25",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var gotPath string
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				_, _ = io.WriteString(w, tt.body)
			})

			res, err := tt.call(c)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "path", gotPath, tt.expPath)
			if res != nil {
				testutil.AssertEqual(t, "message", res.Message, tt.expMessage)
				testutil.AssertEqual(t, "object", res.GameObject, tt.expObject)
			}
		})
	}
}

func TestClient_Register(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		testutil.AssertEqual(t, "method", r.Method, http.MethodPost)
		testutil.AssertEqual(t, "path", r.URL.Path, "/api/user/register")
		testutil.AssertEqual(t, "no credentials", r.Header.Get("Authorization"), "")

		var reg registration
		if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		testutil.AssertEqual(t, "username", reg.Username, "nik")
		w.WriteHeader(http.StatusCreated)
	})

	if err := c.Register(context.Background(), "nik", "secret"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "metrics recorded", c.Metrics().Len(), 1)
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient("not a url")
	testutil.AssertErrorContains(t, err, "must be absolute")
}
