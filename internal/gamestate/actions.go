package gamestate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pixil98/go-geoquest/internal/api"
	"github.com/pixil98/go-geoquest/internal/game"
	"github.com/pixil98/go-geoquest/internal/messages"
)

// Login stores the credentials, looks up the player and starts a sync.
func (s *Store) Login(ctx context.Context, username, password string) error {
	if err := s.creds.SetCredentials(username, password, s.remember); err != nil {
		return fmt.Errorf("storing credentials: %w", err)
	}
	return s.identify(ctx, true)
}

// Resume logs in with credentials kept from an earlier run, if any.
func (s *Store) Resume(ctx context.Context) error {
	if !s.creds.HasCredentials() {
		return nil
	}
	return s.identify(ctx, true)
}

// Logout discards credentials and identity and clears the table.
func (s *Store) Logout() {
	if err := s.creds.ClearCredentials(); err != nil {
		slog.Warn("clearing credentials", "error", err)
	}

	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()

	s.notifier.Add(messages.ClassInfo, "You have been logged out.")
	s.RequestSync()
}

// Register creates a user and logs in with it.
func (s *Store) Register(ctx context.Context, username, password string) error {
	if err := s.backend.Register(ctx, username, password); err != nil {
		slog.WarnContext(ctx, "registering user", "username", username, "error", err)
		s.notifier.Add(messages.ClassDanger, "Registration failed.")
		return fmt.Errorf("registering %s: %w", username, err)
	}
	return s.Login(ctx, username, password)
}

// JoinWorld moves the player into world. The player object may change with the
// world, so identity is looked up again.
func (s *Store) JoinWorld(ctx context.Context, world game.ID) (*api.ActionResult, error) {
	epoch := s.currentEpoch()

	res, err := s.backend.JoinWorld(ctx, world)
	if err != nil {
		return nil, s.failed(ctx, epoch, "join world", err)
	}
	if err := s.identify(ctx, false); err != nil {
		return res, err
	}
	return res, nil
}

// Collect picks up an item and refreshes the table once the server answers.
func (s *Store) Collect(ctx context.Context, id game.ID) (*api.ActionResult, error) {
	return s.act(ctx, "collect item", func(ctx context.Context) (*api.ActionResult, error) {
		return s.backend.Collect(ctx, id)
	})
}

// Talk talks to an NPC and refreshes the table.
func (s *Store) Talk(ctx context.Context, id game.ID) (*api.ActionResult, error) {
	return s.act(ctx, "talk", func(ctx context.Context) (*api.ActionResult, error) {
		return s.backend.Talk(ctx, id)
	})
}

// Worlds lists the worlds the player can join.
func (s *Store) Worlds(ctx context.Context) ([]game.World, error) {
	epoch := s.currentEpoch()

	worlds, err := s.backend.Worlds(ctx)
	if err != nil {
		return nil, s.failed(ctx, epoch, "list worlds", err)
	}
	return worlds, nil
}

func (s *Store) act(ctx context.Context, what string, f func(context.Context) (*api.ActionResult, error)) (*api.ActionResult, error) {
	epoch := s.currentEpoch()

	res, err := f(ctx)
	if err != nil {
		// The server answered, so the action may still have changed the world.
		var se *api.StatusError
		if errors.As(err, &se) {
			s.RequestSync()
		}
		return nil, s.failed(ctx, epoch, what, err)
	}

	s.RequestSync()
	return res, nil
}

// identify looks up the player's own object and adopts its identity.
func (s *Store) identify(ctx context.Context, announce bool) error {
	epoch := s.currentEpoch()

	self, err := s.backend.Self(ctx)
	if err != nil {
		return s.failed(ctx, epoch, "look up player", err)
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return ErrSuperseded
	}
	if self.ID != s.playerID || self.World != s.worldID {
		s.playerID = self.ID
		s.worldID = self.World
		s.round = nil
		s.epoch++
	}
	s.mu.Unlock()

	slog.InfoContext(ctx, "logged in", "player", self.ID, "world", self.World)
	if announce {
		s.notifier.Add(messages.ClassSuccess, "Login successful.")
	}
	s.RequestSync()
	return nil
}

// failed applies the failure policy to a request issued under epoch and
// returns the error for the caller.
func (s *Store) failed(ctx context.Context, epoch uint64, what string, err error) error {
	if errors.Is(err, api.ErrUnauthorized) {
		s.authFailed(epoch)
	} else {
		slog.WarnContext(ctx, "request failed", "action", what, "error", err)
		s.notifier.Add(messages.ClassWarning, fmt.Sprintf("Could not %s.", what))
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (s *Store) currentEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}
