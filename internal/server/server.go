// Package server wires the protocol, game, player and room packages into a
// running TCP service: one listener, a pool of per-connection reader/writer
// goroutines, and a single serializing event loop that owns all player and
// room state (spec.md §5).
package server

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dscraft07/nimserver/internal/config"
	"github.com/dscraft07/nimserver/internal/game"
	"github.com/dscraft07/nimserver/internal/player"
	"github.com/dscraft07/nimserver/internal/protocol"
	"github.com/dscraft07/nimserver/internal/room"
)

// Server is the whole running game server.
type Server struct {
	cfg *config.Config
	log *zap.Logger
	ln  net.Listener

	players *player.Registry
	rooms   *room.Registry

	events     chan event
	nextConnID uint64

	// connIndex maps a live TCP connection to the slot it is currently
	// bound to. Entries are only ever read or written from the central
	// loop goroutine.
	connIndex map[uint64]*player.Slot

	quit  chan struct{}
	ready chan struct{}
}

// New builds a Server from its config and logger. It does not start
// listening; call Run for that.
func New(cfg *config.Config, log *zap.Logger) *Server {
	return &Server{
		cfg:       cfg,
		log:       log,
		players:   player.NewRegistry(cfg.MaxClients),
		rooms:     room.NewRegistry(cfg.MaxRooms),
		events:    make(chan event, 256),
		connIndex: make(map[uint64]*player.Slot),
		quit:      make(chan struct{}),
		ready:     make(chan struct{}),
	}
}

// Ready is closed once the listener is accepting connections. Tests that
// need the bound address (e.g. after requesting port 0) should wait on
// this before dialing.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the listener's bound address. Only valid after Ready closes.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Run listens and runs the central event loop until ctx is cancelled. It
// returns nil on a clean shutdown.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.BindAddress, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	s.ln = ln
	s.log.Info("listening", zap.String("addr", addr), zap.Int("max_clients", s.cfg.MaxClients), zap.Int("max_rooms", s.cfg.MaxRooms))
	close(s.ready)

	go s.acceptLoop()

	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			close(s.quit)
			s.shutdown()
			return nil
		case ev := <-s.events:
			s.handleEvent(ev)
		case t := <-ticker.C:
			s.handleTick(t)
		}
	}
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
			}
			s.log.Warn("accept failed", zap.Error(err))
			return
		}
		if tc, ok := conn.(*net.TCPConn); ok {
			// Fine-grained idle/interval/count knobs aren't portable
			// through the stdlib net package; period is the closest
			// portable approximation (spec.md §9).
			tc.SetKeepAlive(true)
			tc.SetKeepAlivePeriod(KeepAlivePeriod)
		}
		id := atomic.AddUint64(&s.nextConnID, 1)
		handle := newConnHandle(id, conn)
		go handle.writePump()
		go handle.readPump(s.events)
		s.events <- acceptEvent{handle: handle}
	}
}

func (s *Server) shutdown() {
	for _, slot := range s.players.All() {
		if slot.Conn != nil {
			slot.Conn.Send(protocol.ServerShutdown())
			slot.Conn.Close()
		}
	}
	s.ln.Close()
}

func (s *Server) handleEvent(ev event) {
	switch e := ev.(type) {
	case acceptEvent:
		s.onAccept(e)
	case frameEvent:
		s.onFrame(e)
	case invalidByteEvent:
		s.onInvalidByte(e)
	case disconnectEvent:
		s.onDisconnect(e)
	}
}

func (s *Server) onAccept(ev acceptEvent) {
	now := time.Now()
	slot := s.players.Alloc()
	if slot == nil {
		ev.handle.Send(protocol.LoginErr(protocol.CodeServerFull))
		ev.handle.Close()
		return
	}
	slot.Conn = ev.handle
	slot.State = player.Connecting
	slot.LastActivity = now
	s.connIndex[ev.handle.id] = slot
}

func (s *Server) onFrame(ev frameEvent) {
	slot, ok := s.connIndex[ev.connID]
	if !ok {
		return
	}
	now := time.Now()
	if slot.CountMessage(now, MaxMessagesPerSec) {
		// Over the per-second budget: drop the frame silently (spec.md
		// §4.5 step 5), but it still counts toward the invalid tally.
		s.countInvalid(slot, protocol.CodeInvalidFormat, now, msgTooManyInvalid)
		return
	}
	slot.TouchActivity(now)

	msg, err := protocol.Parse(ev.line)
	if err != nil {
		s.sendError(slot, protocol.CodeInvalidFormat, now)
		return
	}
	s.dispatch(slot, msg, now)
}

func (s *Server) onInvalidByte(ev invalidByteEvent) {
	slot, ok := s.connIndex[ev.connID]
	if !ok {
		return
	}
	// The whitelist violation itself gets no per-byte reply, only the
	// final disconnect once the invalid tally tips over (spec.md §4.5
	// step 1, §8 scenario 6).
	s.countInvalid(slot, protocol.CodeInvalidFormat, time.Now(), msgBinaryNotAllowed)
}

func (s *Server) onDisconnect(ev disconnectEvent) {
	slot, ok := s.connIndex[ev.connID]
	if !ok {
		return
	}
	s.log.Debug("connection lost", zap.Uint64("conn_id", ev.connID), zap.Int("cause", int(ev.cause)))
	s.disconnectSlot(slot, time.Now(), false)
}

// forgetConn removes the slot's current connection from connIndex, if it is
// still registered there.
func (s *Server) forgetConn(slot *player.Slot) {
	if h, ok := slot.Conn.(*connHandle); ok {
		delete(s.connIndex, h.id)
	}
}

// disconnectSlot is the single place a player's connection goes away,
// voluntarily (LOGOUT) or not (read error, protocol violation, timeout).
//
// A live game (PLAYING or PAUSED) survives an involuntary disconnect: it is
// paused and the slot parks as DISCONNECTED for the reconnect window.
// Anything else — LOGOUT, or no live game to preserve — ends any game the
// player was in as a loss and frees the slot immediately.
func (s *Server) disconnectSlot(slot *player.Slot, now time.Time, voluntary bool) {
	s.forgetConn(slot)

	if !voluntary && slot.RoomID != -1 {
		if rm := s.rooms.Get(slot.RoomID); rm != nil && (rm.Game.Phase == game.Playing || rm.Game.Phase == game.Paused) {
			if rm.Game.Phase == game.Playing {
				rm.Game.Pause()
			}
			slot.State = player.Disconnected
			slot.DisconnectedAt = now
			if oppIdx := rm.Opponent(slot.Index); oppIdx != -1 {
				if opp := s.players.Get(oppIdx); opp.Conn != nil {
					opp.Conn.Send(protocol.PlayerStatus(slot.Nickname, "DISCONNECTED"))
				}
			}
			if slot.Conn != nil {
				slot.Conn.Close()
				slot.Conn = nil
			}
			return
		}
	}

	s.endRoomAsLoss(slot, now)
	if slot.Conn != nil {
		slot.Conn.Close()
		slot.Conn = nil
	}
	s.players.Free(slot)
}

// endRoomAsLoss removes slot from its room, forfeiting any live game to the
// opponent (who is also unseated and sent to LOBBY). If the game isn't live,
// only slot's seat is cleared. The room is deactivated once empty. A no-op
// beyond clearing RoomID if slot isn't seated.
func (s *Server) endRoomAsLoss(slot *player.Slot, now time.Time) {
	if slot.RoomID == -1 {
		return
	}
	rm := s.rooms.Get(slot.RoomID)
	if rm == nil {
		slot.RoomID = -1
		return
	}
	seat := rm.SeatOf(slot.Index)
	if seat == -1 {
		slot.RoomID = -1
		return
	}

	if rm.Game.Phase == game.Playing || rm.Game.Phase == game.Paused {
		rm.Game.ForfeitWinner(seat)
		if oppIdx := rm.Opponent(slot.Index); oppIdx != -1 {
			if opp := s.players.Get(oppIdx); opp != nil {
				if opp.Conn != nil {
					opp.Conn.Send(protocol.GameOver(opp.Nickname, slot.Nickname))
				}
				opp.State = player.Lobby
				opp.RoomID = -1
				rm.RemovePlayer(oppIdx)
			}
		}
	}

	rm.RemovePlayer(slot.Index)
	if rm.PlayerCount() == 0 {
		s.rooms.Deactivate(rm)
	}
	slot.RoomID = -1
}
