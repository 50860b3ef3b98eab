package api

import (
	"encoding/json"
	"testing"

	"github.com/pixil98/go-geoquest/internal/game"
	"github.com/pixil98/go-testutil"
)

func TestFlexID_UnmarshalJSON(t *testing.T) {
	tests := map[string]struct {
		in     string
		exp    flexID
		expErr string
	}{
		"string": {in: `"42"`, exp: "42"},
		"number": {in: `42`, exp: "42"},
		"null":   {in: `null`, exp: ""},
		"object": {in: `{}`, expErr: "id must be a string or number"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var id flexID
			err := json.Unmarshal([]byte(tt.in), &id)
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "id", id, tt.exp)
		})
	}
}

func TestParseCollection(t *testing.T) {
	tests := map[string]struct {
		body   string
		expIDs []game.ID
		expErr string
	}{
		"empty data": {
			body:   `{"data": []}`,
			expIDs: []game.ID{},
		},
		"null world relationship": {
			body:   `{"data": [{"id": 3, "type": "gameobject_npc", "attributes": {"latitude": 1, "longitude": 1, "talkable": true}, "relationships": {"world": {"data": null}}}]}`,
			expIDs: []game.ID{"3"},
		},
		"included users are skipped": {
			body:   `{"data": [], "included": [{"id": 1, "type": "user", "attributes": {"username": "nik"}}]}`,
			expIDs: []game.ID{},
		},
		"null data": {
			body:   `{"data": null}`,
			expErr: "data member missing",
		},
		"not json": {
			body:   `<html>`,
			expErr: "invalid character",
		},
		"missing id": {
			body:   `{"data": [{"type": "gameobject_npc", "attributes": {"latitude": 1, "longitude": 1}}]}`,
			expErr: "resource without id",
		},
		"latitude out of range": {
			body:   `{"data": [{"id": 1, "type": "gameobject_item", "attributes": {"latitude": 100, "longitude": 1}}]}`,
			expErr: "latitude 100.000000 out of range",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			objs, err := parseCollection([]byte(tt.body))
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			ids := make([]game.ID, 0, len(objs))
			for _, o := range objs {
				ids = append(ids, o.ID)
			}
			testutil.AssertEqual(t, "ids", ids, tt.expIDs)
		})
	}
}

func TestParseAction(t *testing.T) {
	tests := map[string]struct {
		body       string
		expMessage string
		expObject  game.ID
		expErr     string
	}{
		"empty":       {body: ``},
		"json":        {body: `{"message": "Got it", "gameobject": "9"}`, expMessage: "Got it", expObject: "9"},
		"quoted text": {body: `"Hello there"`, expMessage: "Hello there"},
		"plain text":  {body: `Hello there`, expMessage: "Hello there"},
		"broken json": {body: `{"message": `, expErr: "unexpected end of JSON input"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			res, err := parseAction([]byte(tt.body))
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "message", res.Message, tt.expMessage)
			testutil.AssertEqual(t, "object", res.GameObject, tt.expObject)
		})
	}
}
