package command

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pixil98/go-geoquest/internal/game"
	"github.com/pixil98/go-geoquest/internal/gamestate"
	"github.com/pixil98/go-geoquest/internal/sensor"
)

// session logs in when the app starts and, for the AR view, starts the
// camera once the device reports its first position.
type session struct {
	store   *gamestate.Store
	hub     *sensor.Hub
	backend BackendConfig
	views   *views

	fixOnce sync.Once
	fix     chan struct{}
}

func newSession(store *gamestate.Store, hub *sensor.Hub, backend BackendConfig, v *views) *session {
	return &session{
		store:   store,
		hub:     hub,
		backend: backend,
		views:   v,
		fix:     make(chan struct{}),
	}
}

func (s *session) Start(ctx context.Context) error {
	var err error
	switch {
	case s.backend.Register:
		err = s.store.Register(ctx, s.backend.Username, s.backend.Password)
	case s.backend.Username != "":
		err = s.store.Login(ctx, s.backend.Username, s.backend.Password)
	default:
		err = s.store.Resume(ctx)
	}
	if err != nil {
		slog.WarnContext(ctx, "logging in", "error", err)
	}

	if s.store.PlayerID() != game.NoPlayer {
		s.loadWorlds(ctx)
	}

	if s.views.camera {
		select {
		case <-ctx.Done():
			return nil
		case <-s.fix:
		}
		if err := s.hub.StartCamera(ctx); err != nil {
			slog.WarnContext(ctx, "starting camera", "error", err)
		}
	}

	<-ctx.Done()
	return nil
}

func (s *session) loadWorlds(ctx context.Context) {
	worlds, err := s.store.Worlds(ctx)
	if err != nil {
		slog.WarnContext(ctx, "listing worlds", "error", err)
		return
	}
	s.views.panel.SetWorlds(worlds)
	// redraw with the world names
	s.views.panel.OnObjectsChanged()
}

// OnPositionChanged waits for a real fix, which also means a device is
// connected.
func (s *session) OnPositionChanged() {
	if s.hub.Position().Timestamp.IsZero() {
		return
	}
	s.fixOnce.Do(func() {
		close(s.fix)
	})
}
