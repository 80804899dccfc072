package server

import (
	"bytes"
	"net"
	"sync"
	"time"

	"github.com/dscraft07/nimserver/internal/protocol"
)

// connHandle is the transport side of one TCP connection: a reader pump
// that turns a raw byte stream into frameEvents (or a disconnectEvent), and
// a writer pump that drains queued replies onto the socket. It satisfies
// player.Conn so a Slot can hold one directly.
//
// Framing lives here, not on the Slot, so nothing outside this goroutine
// pair ever touches the raw buffer — grounded on FenixDeveloper-vector-racer-v2's
// readPump/writePump split.
type connHandle struct {
	id   uint64
	conn net.Conn

	out    chan string
	once   sync.Once
	closed bool
	mu     sync.Mutex
}

func newConnHandle(id uint64, c net.Conn) *connHandle {
	return &connHandle{id: id, conn: c, out: make(chan string, 32)}
}

// Send queues a line for delivery. Safe to call after the handle has begun
// closing; it simply reports an error instead of panicking on a closed
// channel.
func (h *connHandle) Send(line string) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return net.ErrClosed
	}
	h.mu.Unlock()
	select {
	case h.out <- line:
		return nil
	default:
		// Outbound backlog is full; the peer isn't draining. Drop rather
		// than block the central loop.
		return net.ErrClosed
	}
}

// Close stops further sends; the writer pump flushes anything already
// queued and then closes the socket itself.
func (h *connHandle) Close() error {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		h.mu.Unlock()
		close(h.out)
	})
	return nil
}

func (h *connHandle) RemoteAddr() string {
	return h.conn.RemoteAddr().String()
}

func (h *connHandle) writePump() {
	for line := range h.out {
		h.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if _, err := h.conn.Write([]byte(line)); err != nil {
			// Can't do much about a write failure; the reader side will
			// observe the broken connection and report it.
			break
		}
	}
	h.conn.Close()
}

// readPump is the only place raw bytes are touched. It applies the ordered
// checks from spec.md §4.5: byte whitelist, buffer-fit, flood-without-
// terminator, then line extraction; each extracted line becomes a
// frameEvent on events.
func (h *connHandle) readPump(events chan<- event) {
	buf := make([]byte, 0, InboundBufferCap)
	chunk := make([]byte, 4096)

readLoop:
	for {
		n, err := h.conn.Read(chunk)
		if err != nil {
			cause := causeReadError
			if err.Error() == "EOF" {
				cause = causePeerClose
			}
			events <- disconnectEvent{connID: h.id, cause: cause}
			return
		}
		data := chunk[:n]

		for _, b := range data {
			if !protocol.IsPrintableWireByte(b) {
				events <- invalidByteEvent{connID: h.id}
				continue readLoop
			}
		}

		if len(buf)+len(data) > InboundBufferCap-1 {
			events <- disconnectEvent{connID: h.id, cause: causeBufferOverflow}
			return
		}
		buf = append(buf, data...)

		if len(buf) > MaxUnterminated && !bytes.ContainsRune(buf, '\n') {
			events <- disconnectEvent{connID: h.id, cause: causeFloodNoTerminator}
			return
		}

		for {
			idx := bytes.IndexByte(buf, '\n')
			if idx == -1 {
				break
			}
			line := bytes.TrimSuffix(buf[:idx], []byte("\r"))
			buf = buf[idx+1:]
			events <- frameEvent{connID: h.id, line: string(line)}
		}
	}
}
