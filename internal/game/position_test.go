package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartFromWaiting(t *testing.T) {
	p := New()
	require.True(t, p.Start())
	assert.Equal(t, Playing, p.Phase)
	assert.Equal(t, InitialStones, p.Stones)
	assert.Equal(t, 0, p.Current)
	assert.Equal(t, [2]int{1, 1}, p.Skips)
}

func TestStartIllegalUnlessWaiting(t *testing.T) {
	p := New()
	require.True(t, p.Start())
	assert.False(t, p.Start())
}

func TestTakeTogglesTurn(t *testing.T) {
	p := New()
	p.Start()
	require.True(t, p.Take(0, 3))
	assert.Equal(t, 18, p.Stones)
	assert.Equal(t, 1, p.Current)
}

func TestTakeRejectsWrongPlayer(t *testing.T) {
	p := New()
	p.Start()
	assert.False(t, p.Take(1, 1))
}

func TestTakeRejectsOutOfRange(t *testing.T) {
	p := New()
	p.Start()
	assert.False(t, p.Take(0, 0))
	assert.False(t, p.Take(0, 4))
}

func TestMisereLastStoneLoses(t *testing.T) {
	p := &Position{Phase: Playing, Stones: 1, Current: 0, Winner: -1}
	require.True(t, p.Take(0, 1))
	assert.Equal(t, Finished, p.Phase)
	assert.Equal(t, 1, p.Winner) // player 0 took the last stone and loses
}

func TestFullGameStonesSumTo21(t *testing.T) {
	p := New()
	p.Start()
	taken := 0
	moves := []int{3, 3, 3, 3, 3, 3, 3}
	player := 0
	for _, k := range moves {
		require.True(t, p.Take(player, k))
		taken += k
		player = 1 - player
	}
	assert.Equal(t, InitialStones, taken)
	assert.Equal(t, Finished, p.Phase)
}

func TestSkipRequiresCredit(t *testing.T) {
	p := New()
	p.Start()
	require.True(t, p.Skip(0))
	assert.Equal(t, 0, p.Skips[0])
	assert.Equal(t, 1, p.Current)
	// player 0 is not current anymore, so a second skip attempt by them fails
	assert.False(t, p.Skip(0))
	// once player 0 is current again, the spent credit blocks the skip
	require.True(t, p.Take(1, 1))
	assert.False(t, p.Skip(0))
	assert.Equal(t, 0, p.Current)
}

func TestPauseResumeRoundTrip(t *testing.T) {
	p := New()
	p.Start()
	p.Take(0, 2)
	snapshot := *p
	require.True(t, p.Pause())
	assert.Equal(t, Paused, p.Phase)
	require.True(t, p.Resume())
	assert.Equal(t, Playing, p.Phase)
	assert.Equal(t, snapshot.Stones, p.Stones)
	assert.Equal(t, snapshot.Current, p.Current)
	assert.Equal(t, snapshot.Skips, p.Skips)
}

func TestForfeitWinner(t *testing.T) {
	p := New()
	p.Start()
	require.True(t, p.ForfeitWinner(0))
	assert.Equal(t, Finished, p.Phase)
	assert.Equal(t, 1, p.Winner)
}
