package api

import (
	"encoding/json"

	"github.com/pixil98/go-geoquest/internal/game"
)

// Filter is one node of the backend's boolean query predicate. A node is
// either a comparison (Name, Op, Val) or a conjunction/disjunction.
type Filter struct {
	Name string   `json:"name,omitempty"`
	Op   string   `json:"op,omitempty"`
	Val  any      `json:"val,omitempty"`
	And  []Filter `json:"and,omitempty"`
	Or   []Filter `json:"or,omitempty"`
}

func Eq(name string, val any) Filter {
	return Filter{Name: name, Op: "eq", Val: val}
}

func Ge(name string, val float64) Filter {
	return Filter{Name: name, Op: "ge", Val: val}
}

func Le(name string, val float64) Filter {
	return Filter{Name: name, Op: "le", Val: val}
}

// Has matches a to-one relationship whose target satisfies f.
func Has(name string, f Filter) Filter {
	return Filter{Name: name, Op: "has", Val: f}
}

func And(fs ...Filter) Filter {
	return Filter{And: fs}
}

func Or(fs ...Filter) Filter {
	return Filter{Or: fs}
}

// SpatialQuery selects objects inside bounds that belong to world, plus the
// object self regardless of its position.
type SpatialQuery struct {
	Bounds    game.Bounds
	World     game.ID
	Self      game.ID
	OnMapOnly bool
}

// Filters builds the filter list sent with a spatial query.
func (q SpatialQuery) Filters() []Filter {
	spatial := []Filter{
		Ge("latitude", q.Bounds.SouthWest.Lat),
		Le("latitude", q.Bounds.NorthEast.Lat),
		Ge("longitude", q.Bounds.SouthWest.Lng),
		Le("longitude", q.Bounds.NorthEast.Lng),
		Has("world", Eq("id", q.World.String())),
	}
	if q.OnMapOnly {
		spatial = append(spatial, Eq("isonmap", true))
	}

	return []Filter{
		Or(
			And(spatial...),
			Eq("id", q.Self.String()),
		),
	}
}

// Encode returns the JSON form of the query's filter list.
func (q SpatialQuery) Encode() (string, error) {
	b, err := json.Marshal(q.Filters())
	if err != nil {
		return "", err
	}
	return string(b), nil
}
