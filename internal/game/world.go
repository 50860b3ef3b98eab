package game

// World is a game world a player can join. Objects only see objects of the
// same world.
type World struct {
	ID   ID
	Name string
}
