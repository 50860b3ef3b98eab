package game

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pixil98/go-errors"
)

// ID is a stable, server-assigned game object identifier.
type ID string

// NoPlayer is the identity used while nobody is logged in.
const NoPlayer ID = ""

func (id ID) String() string {
	return string(id)
}

// Kind is the type tag distinguishing game object variants. Its value is the
// resource type used by the backend, which is also the collection path.
type Kind string

const (
	KindPlayer Kind = "gameobject_player"
	KindItem   Kind = "gameobject_item"
	KindNPC    Kind = "gameobject_npc"
)

// DefaultKinds are the kinds fetched in every sync round, in merge order.
var DefaultKinds = []Kind{KindPlayer, KindItem, KindNPC}

// IsGameObject reports whether resources of this kind belong in the object table.
// Related resources such as worlds or users share the JSON:API envelope but are
// not spatial entities.
func (k Kind) IsGameObject() bool {
	return strings.HasPrefix(string(k), "gameobject")
}

// ParseKind validates a configured kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.IsGameObject() {
		return "", fmt.Errorf("unknown game object kind %q", s)
	}
	return k, nil
}

// LatLng is a WGS84 coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

// Object is a spatial game entity. Objects held by the store are never modified
// in place; changes produce a new Object through Clone.
type Object struct {
	ID        ID
	Kind      Kind
	Latitude  float64
	Longitude float64
	OnMap     bool
	Name      string
	Image     string
	World     ID

	// Variant data, set according to Kind.
	Player *PlayerData
	Item   *ItemData
	NPC    *NPCData

	// Extras holds attributes not modelled above.
	Extras Extras
}

// PlayerData holds fields specific to player objects.
type PlayerData struct {
	Inventory []ID
}

// ItemData holds fields specific to item objects.
type ItemData struct {
	Collectible bool
}

// NPCData holds fields specific to non-player characters.
type NPCData struct {
	Talkable bool
}

// LatLng returns the object's coordinates.
func (o *Object) LatLng() LatLng {
	return LatLng{Lat: o.Latitude, Lng: o.Longitude}
}

// Clone returns a deep copy of the object.
func (o *Object) Clone() *Object {
	c := *o
	if o.Player != nil {
		p := *o.Player
		p.Inventory = slices.Clone(o.Player.Inventory)
		c.Player = &p
	}
	if o.Item != nil {
		i := *o.Item
		c.Item = &i
	}
	if o.NPC != nil {
		n := *o.NPC
		c.NPC = &n
	}
	if o.Extras != nil {
		c.Extras = make(Extras, len(o.Extras))
		for k, v := range o.Extras {
			c.Extras[k] = slices.Clone(v)
		}
	}
	return &c
}

// MovedTo returns a copy of the object placed at ll.
func (o *Object) MovedTo(ll LatLng) *Object {
	c := o.Clone()
	c.Latitude = ll.Lat
	c.Longitude = ll.Lng
	return c
}

// Validate checks the invariants every parsed object must satisfy.
func (o *Object) Validate() error {
	el := errors.NewErrorList()

	if o.ID == "" {
		el.Add(fmt.Errorf("object id is required"))
	}
	if !o.Kind.IsGameObject() {
		el.Add(fmt.Errorf("object kind %q is invalid", o.Kind))
	}
	if o.Latitude < -90 || o.Latitude > 90 {
		el.Add(fmt.Errorf("latitude %f out of range", o.Latitude))
	}
	if o.Longitude < -180 || o.Longitude > 180 {
		el.Add(fmt.Errorf("longitude %f out of range", o.Longitude))
	}

	switch o.Kind {
	case KindPlayer:
		if o.Player == nil {
			el.Add(fmt.Errorf("player data missing"))
		}
	case KindItem:
		if o.Item == nil {
			el.Add(fmt.Errorf("item data missing"))
		}
	case KindNPC:
		if o.NPC == nil {
			el.Add(fmt.Errorf("npc data missing"))
		}
	}

	return el.Err()
}
