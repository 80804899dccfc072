package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBasic(t *testing.T) {
	msg, err := Parse("LOGIN;alice")
	require.NoError(t, err)
	assert.Equal(t, CmdLogin, msg.Command)
	assert.Equal(t, []string{"alice"}, msg.Params)
}

func TestParseCommandIsCaseInsensitive(t *testing.T) {
	msg, err := Parse("ping")
	require.NoError(t, err)
	assert.Equal(t, CmdPing, msg.Command)
}

func TestParseNoParams(t *testing.T) {
	msg, err := Parse("LIST_ROOMS")
	require.NoError(t, err)
	assert.Empty(t, msg.Params)
}

func TestParseRejectsTooManyParams(t *testing.T) {
	line := "CMD;" + strings.Repeat("a;", 11)
	_, err := Parse(line)
	assert.ErrorIs(t, err, ErrTooManyParams)
}

func TestParseRejectsOversizedParam(t *testing.T) {
	_, err := Parse("CMD;" + strings.Repeat("a", MaxParamLen+1))
	assert.ErrorIs(t, err, ErrParamTooLong)
}

func TestParseRejectsOversizedFrame(t *testing.T) {
	_, err := Parse(strings.Repeat("a", MaxMessageLen+1))
	assert.ErrorIs(t, err, ErrFrameTooLong)
}

func TestParseRejectsEmptyCommand(t *testing.T) {
	_, err := Parse("")
	assert.ErrorIs(t, err, ErrEmptyCommand)
}

func TestValidateNickname(t *testing.T) {
	cases := []struct {
		nick string
		ok   bool
	}{
		{"alice", true},
		{"Alice_42", true},
		{"", false},
		{"_alice", false},   // must start with a letter
		{"1alice", false},   // must start with a letter
		{"al ice", false},   // no spaces
		{strings.Repeat("a", 33), false},
		{strings.Repeat("a", 32), true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, ValidateNickname(tc.nick), "nick=%q", tc.nick)
	}
}

func TestValidateRoomName(t *testing.T) {
	cases := []struct {
		name string
		ok   bool
	}{
		{"room one", true},
		{"room_1", true},
		{"", false},
		{"room;1", false},
		{strings.Repeat("a", 65), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, ValidateRoomName(tc.name), "name=%q", tc.name)
	}
}

func TestRoomsEmptyPayload(t *testing.T) {
	assert.Equal(t, "ROOMS;0\n", Rooms(nil))
}

func TestRoomsWithEntries(t *testing.T) {
	got := Rooms([]RoomSummary{{ID: 0, Name: "r1", Players: 1, Capacity: 2}})
	assert.Equal(t, "ROOMS;1;0,r1,1,2\n", got)
}

func TestEmissionHelpersEndWithNewline(t *testing.T) {
	for _, s := range []string{
		LoginOK(), LoginErr(CodeNicknameTaken), RoomCreated(0),
		RoomJoined(0, "bob"), LeaveOK(), GameStart(21, 1, "bob"),
		TakeOK(18, 0), SkipOK(1), OpponentTake(3, 18), OpponentSkip(18),
		GameOver("bob", "alice"), Ping(), Pong(),
		PlayerStatus("alice", "DISCONNECTED"), Error(CodeInvalidFormat, ""),
		WaitOpponent(), GameResumed(10, 1, 1, 1), ServerShutdown(),
	} {
		assert.True(t, strings.HasSuffix(s, "\n"))
	}
}
