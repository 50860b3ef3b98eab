package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-geoquest/internal/game"
	"github.com/pixil98/go-geoquest/internal/gamestate"
	"github.com/pixil98/go-geoquest/internal/messages"
)

// SyncConfig tunes how the store keeps the object table in sync.
type SyncConfig struct {
	PositionInterval string   `json:"position_interval"`
	Kinds            []string `json:"kinds"`
	OnMapOnly        *bool    `json:"on_map_only"`
	ResyncOnTick     bool     `json:"resync_on_tick"`
}

func (c *SyncConfig) validate() error {
	el := errors.NewErrorList()

	if c.PositionInterval != "" {
		d, err := time.ParseDuration(c.PositionInterval)
		if err != nil {
			el.Add(fmt.Errorf("parsing position_interval: %w", err))
		} else if d < 0 {
			el.Add(fmt.Errorf("position_interval must not be negative"))
		}
	}

	for _, k := range c.Kinds {
		_, err := game.ParseKind(k)
		el.Add(err)
	}

	return el.Err()
}

func (c *SyncConfig) buildStore(
	backend gamestate.Backend,
	creds gamestate.Credentials,
	positions gamestate.PositionSource,
	observers gamestate.Observers,
	notifier messages.Notifier,
	remember bool,
) (*gamestate.Store, error) {
	opts := []gamestate.StoreOpt{
		gamestate.WithResyncOnTick(c.ResyncOnTick),
		gamestate.WithRemember(remember),
	}

	if c.PositionInterval != "" {
		d, err := time.ParseDuration(c.PositionInterval)
		if err != nil {
			return nil, fmt.Errorf("parsing position_interval: %w", err)
		}
		opts = append(opts, gamestate.WithPositionInterval(d))
	}

	if len(c.Kinds) > 0 {
		kinds := make([]game.Kind, 0, len(c.Kinds))
		for _, k := range c.Kinds {
			kind, err := game.ParseKind(k)
			if err != nil {
				return nil, err
			}
			kinds = append(kinds, kind)
		}
		opts = append(opts, gamestate.WithKinds(kinds...))
	}

	if c.OnMapOnly != nil {
		opts = append(opts, gamestate.WithOnMapOnly(*c.OnMapOnly))
	}

	return gamestate.NewStore(backend, creds, positions, observers, notifier, opts...), nil
}
