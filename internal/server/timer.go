package server

import (
	"time"

	"github.com/dscraft07/nimserver/internal/player"
	"github.com/dscraft07/nimserver/internal/protocol"
)

// handleTick runs the per-second liveness and timeout sweep (spec.md §4.6,
// §6): unauthenticated connections that never LOGIN, ping/pong liveness,
// and reaping reconnect windows that ran out.
func (s *Server) handleTick(now time.Time) {
	for _, slot := range s.players.All() {
		switch slot.State {
		case player.Connecting:
			if now.Sub(slot.LastActivity) > LoginTimeout {
				s.disconnectSlot(slot, now, false)
			}
		case player.Disconnected:
			if now.Sub(slot.DisconnectedAt) > ReconnectWindow {
				s.reapDisconnected(slot, now)
			}
		default:
			s.checkLiveness(slot, now)
		}
	}
}

func (s *Server) checkLiveness(slot *player.Slot, now time.Time) {
	if slot.AwaitingPong {
		if now.Sub(slot.LastPingSent) > PongTimeout {
			s.disconnectSlot(slot, now, false)
		}
		return
	}
	if now.Sub(slot.LastActivity) >= PingInterval {
		if slot.Conn != nil {
			slot.Conn.Send(protocol.Ping())
		}
		slot.AwaitingPong = true
		slot.LastPingSent = now
	}
}

// reapDisconnected is the reconnect-window expiry path: the dormant slot's
// connection is already closed, so there is nothing left to do but forfeit
// any paused game and free the slot.
func (s *Server) reapDisconnected(slot *player.Slot, now time.Time) {
	s.endRoomAsLoss(slot, now)
	s.players.Free(slot)
}
