// Package game implements the pure misère-Nim state machine: the payload
// the session engine exercises. No I/O, no hidden state.
package game

// Phase is the lifecycle state of one game position.
type Phase int

const (
	Waiting Phase = iota
	Playing
	Paused
	Finished
)

// Tunable constants (spec.md §6).
const (
	InitialStones   = 21
	MinTake         = 1
	MaxTake         = 3
	SkipsPerPlayer  = 1
	PlayersPerRoom  = 2
)

// Position is one room's game state. All operations are total: they return
// a bool indicating legality and never panic or mutate on failure.
type Position struct {
	Phase   Phase
	Stones  int
	Current int // 0 or 1
	Skips   [2]int
	Winner  int // valid only when Phase == Finished; -1 otherwise
}

// New returns a fresh position in the Waiting phase.
func New() *Position {
	return &Position{Phase: Waiting, Winner: -1}
}

// Start transitions WAITING -> PLAYING. Legal only from Waiting.
func (p *Position) Start() bool {
	if p.Phase != Waiting {
		return false
	}
	p.Stones = InitialStones
	p.Current = 0
	p.Skips = [2]int{SkipsPerPlayer, SkipsPerPlayer}
	p.Winner = -1
	p.Phase = Playing
	return true
}

// Take removes k stones on behalf of player. Legal iff playing, it is
// player's turn, and 1<=k<=min(3,stones).
func (p *Position) Take(player, k int) bool {
	if p.Phase != Playing || player != p.Current {
		return false
	}
	if k < MinTake || k > MaxTake || k > p.Stones {
		return false
	}
	p.Stones -= k
	if p.Stones == 0 {
		p.Phase = Finished
		p.Winner = 1 - player // misère: last mover loses
		return true
	}
	p.Current = 1 - p.Current
	return true
}

// Skip passes player's turn using one of their skip credits. Legal iff
// playing, it is player's turn, and they have a skip remaining.
func (p *Position) Skip(player int) bool {
	if p.Phase != Playing || player != p.Current {
		return false
	}
	if p.Skips[player] <= 0 {
		return false
	}
	p.Skips[player]--
	p.Current = 1 - p.Current
	return true
}

// Pause moves PLAYING -> PAUSED, preserving all fields for a lossless resume.
func (p *Position) Pause() bool {
	if p.Phase != Playing {
		return false
	}
	p.Phase = Paused
	return true
}

// Resume moves PAUSED -> PLAYING.
func (p *Position) Resume() bool {
	if p.Phase != Paused {
		return false
	}
	p.Phase = Playing
	return true
}

// ForfeitWinner ends the game immediately in favor of the opponent of
// loser, used when a player leaves or fails to reconnect in time. Legal
// from Playing or Paused.
func (p *Position) ForfeitWinner(loser int) bool {
	if p.Phase != Playing && p.Phase != Paused {
		return false
	}
	p.Phase = Finished
	p.Winner = 1 - loser
	return true
}
