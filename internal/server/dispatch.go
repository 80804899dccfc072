package server

import (
	"strconv"
	"time"

	"github.com/dscraft07/nimserver/internal/game"
	"github.com/dscraft07/nimserver/internal/player"
	"github.com/dscraft07/nimserver/internal/protocol"
	"github.com/dscraft07/nimserver/internal/room"
)

// dispatch is component F: it routes one parsed frame to the handler for
// the player's current state, per spec.md §4.3/§4.6.
func (s *Server) dispatch(slot *player.Slot, msg *protocol.Message, now time.Time) {
	if msg.Command == protocol.CmdLogin {
		s.handleLogin(slot, msg, now)
		return
	}

	if slot.State == player.Connecting {
		s.sendError(slot, protocol.CodeNotLoggedIn, now)
		return
	}

	switch msg.Command {
	case protocol.CmdListRooms:
		s.handleListRooms(slot)
	case protocol.CmdCreateRoom:
		s.handleCreateRoom(slot, msg, now)
	case protocol.CmdJoinRoom:
		s.handleJoinRoom(slot, msg, now)
	case protocol.CmdLeaveRoom:
		s.handleLeaveRoom(slot, now)
	case protocol.CmdTake:
		s.handleTake(slot, msg, now)
	case protocol.CmdSkip:
		s.handleSkip(slot, now)
	case protocol.CmdPing:
		if slot.Conn != nil {
			slot.Conn.Send(protocol.Pong())
		}
	case protocol.CmdPong:
		slot.AwaitingPong = false
	case protocol.CmdLogout:
		s.handleLogout(slot, now)
	default:
		s.sendError(slot, protocol.CodeUnknownCommand, now)
	}
}

// --- reply helpers: each one writes the *_ERR/ERROR reply and folds the
// failure into the invalid-message counter, escalating to a disconnect once
// the session reaches MaxInvalidMessages (spec.md §4.6). ---

func (s *Server) countInvalid(slot *player.Slot, code protocol.Code, now time.Time, disconnectMsg string) {
	if !code.IsInvalidCounted() && code != protocol.CodeInvalidFormat {
		return
	}
	slot.InvalidCount++
	if slot.InvalidCount >= MaxInvalidMessages {
		if slot.Conn != nil {
			slot.Conn.Send(protocol.Error(protocol.CodeInvalidFormat, disconnectMsg))
		}
		s.disconnectSlot(slot, now, false)
	}
}

func (s *Server) sendError(slot *player.Slot, code protocol.Code, now time.Time) {
	if slot.Conn != nil {
		slot.Conn.Send(protocol.Error(code, ""))
	}
	s.countInvalid(slot, code, now, msgTooManyInvalid)
}

func (s *Server) sendLoginErr(slot *player.Slot, code protocol.Code, now time.Time) {
	if slot.Conn != nil {
		slot.Conn.Send(protocol.LoginErr(code))
	}
	s.countInvalid(slot, code, now, msgTooManyInvalid)
}

func (s *Server) sendRoomErr(slot *player.Slot, code protocol.Code, now time.Time) {
	if slot.Conn != nil {
		slot.Conn.Send(protocol.RoomErr(code))
	}
	s.countInvalid(slot, code, now, msgTooManyInvalid)
}

func (s *Server) sendTakeErr(slot *player.Slot, code protocol.Code, now time.Time) {
	if slot.Conn != nil {
		slot.Conn.Send(protocol.TakeErr(code))
	}
	s.countInvalid(slot, code, now, msgTooManyInvalid)
}

func (s *Server) sendSkipErr(slot *player.Slot, code protocol.Code, now time.Time) {
	if slot.Conn != nil {
		slot.Conn.Send(protocol.SkipErr(code))
	}
	s.countInvalid(slot, code, now, msgTooManyInvalid)
}

func (s *Server) handleLogin(slot *player.Slot, msg *protocol.Message, now time.Time) {
	if slot.State != player.Connecting {
		s.sendLoginErr(slot, protocol.CodeAlreadyLoggedIn, now)
		return
	}

	nick := msg.Param(0)
	if !protocol.ValidateNickname(nick) {
		s.sendLoginErr(slot, protocol.CodeNicknameInvalid, now)
		return
	}

	if dormant := s.players.FindDisconnectedByNickname(nick); dormant != nil {
		s.reconnect(slot, dormant, now)
		return
	}

	if s.players.FindLiveByNickname(nick) != nil {
		s.sendLoginErr(slot, protocol.CodeNicknameTaken, now)
		return
	}

	slot.Nickname = nick
	slot.State = player.Lobby
	if slot.Conn != nil {
		slot.Conn.Send(protocol.LoginOK())
	}
}

// reconnect binds an incoming connection's fresh slot to the identity and
// (if any) live room of a dormant, previously-disconnected slot, then frees
// the dormant one. Per the resolved open question, a room whose game has
// already finished is not resumed — the reconnecting player returns to the
// lobby instead of a dead game.
func (s *Server) reconnect(newSlot, dormant *player.Slot, now time.Time) {
	nick := dormant.Nickname
	roomID := dormant.RoomID
	dormantIdx := dormant.Index
	s.players.Free(dormant)

	newSlot.Nickname = nick
	newSlot.InvalidCount = 0

	rm := s.rooms.Get(roomID)
	if rm == nil || !rm.Active || rm.Game.Phase == game.Finished {
		if rm != nil && rm.Active {
			rm.RemovePlayer(dormantIdx)
			if rm.PlayerCount() == 0 {
				s.rooms.Deactivate(rm)
			}
		}
		newSlot.RoomID = -1
		newSlot.State = player.Lobby
		if newSlot.Conn != nil {
			newSlot.Conn.Send(protocol.LoginOK())
		}
		return
	}

	rm.RemovePlayer(dormantIdx)
	rm.AddPlayer(newSlot.Index)
	newSlot.RoomID = rm.ID
	seat := rm.SeatOf(newSlot.Index)
	oppIdx := rm.Opponent(newSlot.Index)

	wasPaused := rm.Game.Phase == game.Paused
	if wasPaused {
		rm.Game.Resume()
		newSlot.State = player.InGame
	} else {
		newSlot.State = player.InRoom
	}

	if newSlot.Conn != nil {
		newSlot.Conn.Send(protocol.LoginOK())
	}
	if oppIdx != -1 {
		if opp := s.players.Get(oppIdx); opp.Conn != nil {
			opp.Conn.Send(protocol.PlayerStatus(nick, "RECONNECTED"))
		}
	}
	if wasPaused && newSlot.Conn != nil {
		yourTurn := 0
		if rm.Game.Current == seat {
			yourTurn = 1
		}
		newSlot.Conn.Send(protocol.GameResumed(rm.Game.Stones, yourTurn, rm.Game.Skips[seat], rm.Game.Skips[1-seat]))
	}
}

// handleListRooms has no state guard beyond the generic not-logged-in check
// in dispatch: the original server accepts LIST_ROOMS from any logged-in
// state (LOBBY, IN_ROOM, IN_GAME), not just LOBBY.
func (s *Server) handleListRooms(slot *player.Slot) {
	list := s.rooms.List()
	summaries := make([]protocol.RoomSummary, len(list))
	for i, r := range list {
		summaries[i] = protocol.RoomSummary{ID: r.ID, Name: r.Name, Players: r.Players, Capacity: r.Capacity}
	}
	if slot.Conn != nil {
		slot.Conn.Send(protocol.Rooms(summaries))
	}
}

func (s *Server) handleCreateRoom(slot *player.Slot, msg *protocol.Message, now time.Time) {
	if slot.State != player.Lobby {
		s.sendRoomErr(slot, protocol.CodeGameInProgress, now)
		return
	}
	name := msg.Param(0)
	if !protocol.ValidateRoomName(name) {
		s.sendRoomErr(slot, protocol.CodeInvalidParams, now)
		return
	}
	if s.rooms.NameTaken(name) {
		s.sendRoomErr(slot, protocol.CodeRoomNameTaken, now)
		return
	}
	rm := s.rooms.Create(name)
	if rm == nil {
		s.sendRoomErr(slot, protocol.CodeMaxRooms, now)
		return
	}
	rm.AddPlayer(slot.Index)
	slot.RoomID = rm.ID
	slot.State = player.InRoom
	if slot.Conn != nil {
		slot.Conn.Send(protocol.RoomCreated(rm.ID))
		slot.Conn.Send(protocol.WaitOpponent())
	}
}

func (s *Server) handleJoinRoom(slot *player.Slot, msg *protocol.Message, now time.Time) {
	if slot.State != player.Lobby {
		s.sendRoomErr(slot, protocol.CodeGameInProgress, now)
		return
	}
	id, err := strconv.Atoi(msg.Param(0))
	if err != nil {
		s.sendRoomErr(slot, protocol.CodeInvalidParams, now)
		return
	}
	rm := s.rooms.Get(id)
	if rm == nil || !rm.Active {
		s.sendRoomErr(slot, protocol.CodeRoomNotFound, now)
		return
	}
	if rm.IsFull() {
		s.sendRoomErr(slot, protocol.CodeRoomFull, now)
		return
	}
	if rm.Game.Phase != game.Waiting {
		s.sendRoomErr(slot, protocol.CodeGameInProgress, now)
		return
	}

	rm.AddPlayer(slot.Index)
	slot.RoomID = rm.ID
	slot.State = player.InRoom

	var oppName string
	if oppIdx := rm.Opponent(slot.Index); oppIdx != -1 {
		oppName = s.players.Get(oppIdx).Nickname
	}
	if slot.Conn != nil {
		slot.Conn.Send(protocol.RoomJoined(rm.ID, oppName))
	}

	if rm.IsFull() {
		s.startGame(rm)
	}
}

func (s *Server) startGame(rm *room.Room) {
	rm.Game.Start()
	for seat, idx := range rm.Players {
		slot := s.players.Get(idx)
		if slot == nil {
			continue
		}
		slot.State = player.InGame

		oppName := ""
		if oppIdx := rm.Players[1-seat]; oppIdx != -1 {
			oppName = s.players.Get(oppIdx).Nickname
		}
		yourTurn := 0
		if rm.Game.Current == seat {
			yourTurn = 1
		}
		if slot.Conn != nil {
			slot.Conn.Send(protocol.GameStart(rm.Game.Stones, yourTurn, oppName))
		}
	}
}

func (s *Server) handleLeaveRoom(slot *player.Slot, now time.Time) {
	if slot.RoomID == -1 {
		s.sendRoomErr(slot, protocol.CodeNotInRoom, now)
		return
	}
	// Open question resolution: the leaver gets LEAVE_OK, never GAME_OVER —
	// endRoomAsLoss only ever sends GAME_OVER to the opponent.
	s.endRoomAsLoss(slot, now)
	slot.State = player.Lobby
	if slot.Conn != nil {
		slot.Conn.Send(protocol.LeaveOK())
	}
}

func (s *Server) handleTake(slot *player.Slot, msg *protocol.Message, now time.Time) {
	if slot.State != player.InGame {
		s.sendTakeErr(slot, protocol.CodeNotInGame, now)
		return
	}
	rm := s.rooms.Get(slot.RoomID)
	if rm == nil || rm.Game.Phase != game.Playing {
		s.sendTakeErr(slot, protocol.CodeNotInGame, now)
		return
	}
	seat := rm.SeatOf(slot.Index)
	if seat != rm.Game.Current {
		s.sendTakeErr(slot, protocol.CodeNotYourTurn, now)
		return
	}
	k, err := strconv.Atoi(msg.Param(0))
	if err != nil {
		s.sendTakeErr(slot, protocol.CodeInvalidParams, now)
		return
	}
	if !rm.Game.Take(seat, k) {
		s.sendTakeErr(slot, protocol.CodeInvalidMove, now)
		return
	}

	var opp *player.Slot
	if oppIdx := rm.Opponent(slot.Index); oppIdx != -1 {
		opp = s.players.Get(oppIdx)
	}

	if rm.Game.Phase == game.Finished {
		winnerIdx := rm.Players[rm.Game.Winner]
		loserIdx := rm.Players[1-rm.Game.Winner]
		winner := s.players.Get(winnerIdx)
		loser := s.players.Get(loserIdx)

		if slot.Conn != nil {
			slot.Conn.Send(protocol.TakeOK(rm.Game.Stones, 0))
		}
		if opp != nil && opp.Conn != nil {
			opp.Conn.Send(protocol.OpponentTake(k, rm.Game.Stones))
		}
		if winner.Conn != nil {
			winner.Conn.Send(protocol.GameOver(winner.Nickname, loser.Nickname))
		}
		if loser.Conn != nil {
			loser.Conn.Send(protocol.GameOver(winner.Nickname, loser.Nickname))
		}
		winner.State, loser.State = player.Lobby, player.Lobby
		winner.RoomID, loser.RoomID = -1, -1
		rm.RemovePlayer(winnerIdx)
		rm.RemovePlayer(loserIdx)
		s.rooms.Deactivate(rm)
		return
	}

	yourTurn := 0
	if rm.Game.Current == seat {
		yourTurn = 1
	}
	if slot.Conn != nil {
		slot.Conn.Send(protocol.TakeOK(rm.Game.Stones, yourTurn))
	}
	if opp != nil && opp.Conn != nil {
		opp.Conn.Send(protocol.OpponentTake(k, rm.Game.Stones))
	}
}

func (s *Server) handleSkip(slot *player.Slot, now time.Time) {
	if slot.State != player.InGame {
		s.sendSkipErr(slot, protocol.CodeNotInGame, now)
		return
	}
	rm := s.rooms.Get(slot.RoomID)
	if rm == nil || rm.Game.Phase != game.Playing {
		s.sendSkipErr(slot, protocol.CodeNotInGame, now)
		return
	}
	seat := rm.SeatOf(slot.Index)
	if seat != rm.Game.Current {
		s.sendSkipErr(slot, protocol.CodeNotYourTurn, now)
		return
	}
	if !rm.Game.Skip(seat) {
		s.sendSkipErr(slot, protocol.CodeNoSkipsLeft, now)
		return
	}

	yourTurn := 0
	if rm.Game.Current == seat {
		yourTurn = 1
	}
	if slot.Conn != nil {
		slot.Conn.Send(protocol.SkipOK(yourTurn))
	}
	if oppIdx := rm.Opponent(slot.Index); oppIdx != -1 {
		if opp := s.players.Get(oppIdx); opp.Conn != nil {
			opp.Conn.Send(protocol.OpponentSkip(rm.Game.Stones))
		}
	}
}

// handleLogout is always a graceful disconnect: LOGOUT_OK isn't in the wire
// catalog, so the socket closing is the acknowledgement, same as the
// original server.
func (s *Server) handleLogout(slot *player.Slot, now time.Time) {
	s.disconnectSlot(slot, now, true)
}
