package gamestate

import (
	"fmt"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-geoquest/internal/api"
	"github.com/pixil98/go-geoquest/internal/game"
)

// round is one synchronization pass: a query per kind, all issued together.
// The table is replaced only after every query of the round succeeded.
type round struct {
	epoch   uint64
	query   api.SpatialQuery
	kinds   []game.Kind
	results [][]*game.Object
	pending int
	errs    []error

	unauthorized bool
	// again is set when a sync was requested while the round was in flight.
	again bool
}

func newRound(epoch uint64, query api.SpatialQuery, kinds []game.Kind) *round {
	return &round{
		epoch:   epoch,
		query:   query,
		kinds:   kinds,
		results: make([][]*game.Object, len(kinds)),
		pending: len(kinds),
	}
}

// record stores the outcome of the i-th query and reports whether it was the
// last one outstanding.
func (r *round) record(i int, objs []*game.Object, err error, unauthorized bool) bool {
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", r.kinds[i], err))
		r.unauthorized = r.unauthorized || unauthorized
	} else {
		r.results[i] = objs
	}
	r.pending--
	return r.pending == 0
}

// err summarises the failed queries of the round.
func (r *round) err() error {
	el := errors.NewErrorList()
	for _, err := range r.errs {
		el.Add(err)
	}
	return el.Err()
}

// merge builds the round's table. Kinds are merged in configured order and
// within a kind in response order; a later occurrence of an id wins.
func (r *round) merge() map[game.ID]*game.Object {
	n := 0
	for _, objs := range r.results {
		n += len(objs)
	}

	merged := make(map[game.ID]*game.Object, n)
	for _, objs := range r.results {
		for _, o := range objs {
			merged[o.ID] = o
		}
	}
	return merged
}
