// Package room implements the room registry (component D): a fixed-size
// table of rooms, each binding up to two player slots and one game
// position.
package room

import "github.com/dscraft07/nimserver/internal/game"

// Room binds up to two player-registry slot indices to one game.
type Room struct {
	ID     int
	Name   string
	Active bool

	// Players holds the two player-slot indices occupying this room.
	// -1 means the seat is empty. These are non-owning lookups into the
	// server's player registry (spec.md §9).
	Players [2]int

	Game *game.Position
}

// PlayerCount returns how many seats are occupied.
func (r *Room) PlayerCount() int {
	n := 0
	for _, p := range r.Players {
		if p != -1 {
			n++
		}
	}
	return n
}

// IsFull reports whether both seats are occupied.
func (r *Room) IsFull() bool {
	return r.PlayerCount() == game.PlayersPerRoom
}

// SeatOf returns the seat index (0 or 1) of the given player slot index,
// or -1 if the player is not seated in this room.
func (r *Room) SeatOf(slotIndex int) int {
	for seat, p := range r.Players {
		if p == slotIndex {
			return seat
		}
	}
	return -1
}

// Opponent returns the other seat's player-slot index, or -1 if that seat
// is empty or slotIndex is not seated here.
func (r *Room) Opponent(slotIndex int) int {
	seat := r.SeatOf(slotIndex)
	if seat == -1 {
		return -1
	}
	return r.Players[1-seat]
}

// AddPlayer seats a player slot index in the first empty seat. Returns
// false if the room is already full.
func (r *Room) AddPlayer(slotIndex int) bool {
	for seat, p := range r.Players {
		if p == -1 {
			r.Players[seat] = slotIndex
			return true
		}
	}
	return false
}

// RemovePlayer clears the seat occupied by slotIndex, if any.
func (r *Room) RemovePlayer(slotIndex int) {
	seat := r.SeatOf(slotIndex)
	if seat != -1 {
		r.Players[seat] = -1
	}
}

func newRoom(id int) *Room {
	return &Room{ID: id, Players: [2]int{-1, -1}, Game: game.New()}
}

// reset restores a room to its free state for reuse.
func (r *Room) reset() {
	id := r.ID
	*r = *newRoom(id)
}
