package render

import (
	"github.com/pixil98/go-geoquest/internal/game"
)

// Store is the part of the game state store the views read from.
type Store interface {
	Objects() map[game.ID]*game.Object
	PlayerID() game.ID
	SetBounds(b game.Bounds) error
}

// Sensors is the part of the sensor hub the views read from.
type Sensors interface {
	Position() game.Position
	Orientation() game.Orientation
	CameraURL() string
}

// others returns objs without the logged in player, who is drawn separately.
func others(objs map[game.ID]*game.Object, self game.ID) map[game.ID]*game.Object {
	if self == game.NoPlayer {
		return objs
	}
	delete(objs, self)
	return objs
}

func hasFix(p game.Position) bool {
	return !p.Timestamp.IsZero()
}
