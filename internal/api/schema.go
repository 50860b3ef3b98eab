package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pixil98/go-geoquest/internal/game"
)

// flexID accepts identifiers encoded as JSON strings or numbers.
type flexID string

func (id *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = flexID(n.String())
	return nil
}

// resourceRef is a JSON:API resource identifier.
type resourceRef struct {
	ID   flexID `json:"id"`
	Type string `json:"type"`
}

// relationship holds either a single reference, a list or null.
type relationship struct {
	Data json.RawMessage `json:"data"`
}

func (r relationship) refs() ([]resourceRef, error) {
	data := bytes.TrimSpace(r.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	if data[0] == '[' {
		var refs []resourceRef
		if err := json.Unmarshal(data, &refs); err != nil {
			return nil, err
		}
		return refs, nil
	}
	var ref resourceRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return nil, err
	}
	return []resourceRef{ref}, nil
}

// resource is a JSON:API resource object.
type resource struct {
	ID            flexID                     `json:"id"`
	Type          string                     `json:"type"`
	Attributes    map[string]json.RawMessage `json:"attributes"`
	Relationships map[string]relationship    `json:"relationships"`
}

// collectionDocument is the response to a collection query.
type collectionDocument struct {
	Data     *[]resource `json:"data"`
	Included []resource  `json:"included"`
}

// singleDocument is the response for a single resource.
type singleDocument struct {
	Data     *resource  `json:"data"`
	Included []resource `json:"included"`
}

// attributes consumed into dedicated Object fields.
var knownAttributes = map[string]bool{
	"latitude":        true,
	"longitude":       true,
	"isonmap":         true,
	"name":            true,
	"image":           true,
	"collectible":     true,
	"talkable":        true,
	"gameobject_type": true,
}

func (r *resource) parseObject() (*game.Object, error) {
	if r.ID == "" {
		return nil, fmt.Errorf("resource without id")
	}
	if r.Type == "" {
		return nil, fmt.Errorf("resource %s without type", r.ID)
	}

	o := &game.Object{
		ID:    game.ID(r.ID),
		Kind:  game.Kind(r.Type),
		OnMap: true,
	}

	lat, ok, err := attr[float64](r.Attributes, "latitude")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s %s: latitude missing", r.Type, r.ID)
	}
	lng, ok, err := attr[float64](r.Attributes, "longitude")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s %s: longitude missing", r.Type, r.ID)
	}
	o.Latitude, o.Longitude = lat, lng

	if v, ok, err := attr[bool](r.Attributes, "isonmap"); err != nil {
		return nil, err
	} else if ok {
		o.OnMap = v
	}
	if o.Name, _, err = attr[string](r.Attributes, "name"); err != nil {
		return nil, err
	}
	if o.Image, _, err = attr[string](r.Attributes, "image"); err != nil {
		return nil, err
	}

	if rel, ok := r.Relationships["world"]; ok {
		refs, err := rel.refs()
		if err != nil {
			return nil, fmt.Errorf("%s %s: world relationship: %w", r.Type, r.ID, err)
		}
		if len(refs) > 0 {
			o.World = game.ID(refs[0].ID)
		}
	}

	switch o.Kind {
	case game.KindPlayer:
		o.Player = &game.PlayerData{}
		if rel, ok := r.Relationships["inventory"]; ok {
			refs, err := rel.refs()
			if err != nil {
				return nil, fmt.Errorf("%s %s: inventory relationship: %w", r.Type, r.ID, err)
			}
			for _, ref := range refs {
				o.Player.Inventory = append(o.Player.Inventory, game.ID(ref.ID))
			}
		}
	case game.KindItem:
		o.Item = &game.ItemData{}
		if o.Item.Collectible, _, err = attr[bool](r.Attributes, "collectible"); err != nil {
			return nil, err
		}
	case game.KindNPC:
		o.NPC = &game.NPCData{}
		if o.NPC.Talkable, _, err = attr[bool](r.Attributes, "talkable"); err != nil {
			return nil, err
		}
	}

	for k, v := range r.Attributes {
		if knownAttributes[k] {
			continue
		}
		if o.Extras == nil {
			o.Extras = game.Extras{}
		}
		o.Extras[k] = v
	}

	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("%s %s: %w", r.Type, r.ID, err)
	}
	return o, nil
}

// attr decodes an optional attribute. A JSON null counts as absent.
func attr[T any](attrs map[string]json.RawMessage, name string) (T, bool, error) {
	var v T
	raw, ok := attrs[name]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return v, false, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, fmt.Errorf("attribute %q: %w", name, err)
	}
	return v, true, nil
}

// parseCollection decodes a collection document into game objects in scan
// order: primary data first, then included resources. Included resources that
// are not game objects are skipped.
func parseCollection(body []byte) ([]*game.Object, error) {
	var doc collectionDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	if doc.Data == nil {
		return nil, fmt.Errorf("data member missing")
	}

	objs := make([]*game.Object, 0, len(*doc.Data)+len(doc.Included))
	for i := range *doc.Data {
		o, err := (*doc.Data)[i].parseObject()
		if err != nil {
			return nil, fmt.Errorf("data[%d]: %w", i, err)
		}
		objs = append(objs, o)
	}
	for i := range doc.Included {
		if !game.Kind(doc.Included[i].Type).IsGameObject() {
			continue
		}
		o, err := doc.Included[i].parseObject()
		if err != nil {
			return nil, fmt.Errorf("included[%d]: %w", i, err)
		}
		objs = append(objs, o)
	}
	return objs, nil
}

func parseSingle(body []byte) (*game.Object, error) {
	var doc singleDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	if doc.Data == nil {
		return nil, fmt.Errorf("data member missing")
	}
	return doc.Data.parseObject()
}

// parseWorlds accepts either a bare array of worlds or a document wrapping it
// in data.
func parseWorlds(body []byte) ([]game.World, error) {
	body = bytes.TrimSpace(body)
	var list []resource
	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, err
		}
	} else {
		var doc collectionDocument
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, err
		}
		if doc.Data == nil {
			return nil, fmt.Errorf("data member missing")
		}
		list = *doc.Data
	}

	worlds := make([]game.World, 0, len(list))
	for i, r := range list {
		if r.ID == "" {
			return nil, fmt.Errorf("world %d without id", i)
		}
		name, _, err := attr[string](r.Attributes, "name")
		if err != nil {
			return nil, fmt.Errorf("world %s: %w", r.ID, err)
		}
		worlds = append(worlds, game.World{ID: game.ID(r.ID), Name: name})
	}
	return worlds, nil
}

// ActionResult is the payload returned by object and world actions.
type ActionResult struct {
	Message    string
	GameObject game.ID
	Raw        json.RawMessage
}

type actionPayload struct {
	Message    string `json:"message"`
	GameObject flexID `json:"gameobject"`
}

func parseAction(body []byte) (*ActionResult, error) {
	res := &ActionResult{Raw: json.RawMessage(bytes.Clone(body))}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return res, nil
	}
	if trimmed[0] != '{' {
		// Plain text actions return their narrative verbatim.
		res.Message = string(trimmed)
		if s, err := strconv.Unquote(string(trimmed)); err == nil {
			res.Message = s
		}
		return res, nil
	}

	var p actionPayload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, err
	}
	res.Message = p.Message
	res.GameObject = game.ID(p.GameObject)
	return res, nil
}
