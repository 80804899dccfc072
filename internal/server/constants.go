package server

import "time"

// Fixed constants from spec.md §6. None of these are configurable.
const (
	ReconnectWindow = 30 * time.Second
	PingInterval    = 10 * time.Second
	PongTimeout     = 5 * time.Second
	LoginTimeout    = 30 * time.Second

	MaxInvalidMessages = 3
	MaxMessagesPerSec  = 20
	MaxUnterminated    = 256
	InboundBufferCap   = 1024

	TickInterval = 1 * time.Second

	KeepAlivePeriod = 10 * time.Second
)

// Fixed disconnect messages for the two invalid-message escalation paths
// (spec.md §8 scenarios 5 and 6 use distinct text for the same code).
const (
	msgTooManyInvalid   = "Too many invalid messages"
	msgBinaryNotAllowed = "Binary data not allowed"
)
