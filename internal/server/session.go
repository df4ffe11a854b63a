// Package server tracks the per-connection Session record: identity,
// privilege, and room membership for one live transport.
package server

import "github.com/google/uuid"

// sender abstracts the outbound half of a connection so the router and
// broadcast engine can be exercised without a live transport. Send reports
// whether the payload was accepted; a closed or saturated peer returns false
// and is skipped silently. Kick force-closes the transport, which drives the
// peer's normal disconnect path.
type sender interface {
	Send(payload []byte) bool
	Kick()
}

// Session is the server-side state attached to one live connection. It is
// created on registration and destroyed when the transport closes; all
// fields are owned by the hub's dispatch goroutine.
type Session struct {
	id   string
	conn sender

	name          string
	roomPin       string
	isRoomAdmin   bool
	isGlobalAdmin bool
}

// NewSession wraps a connection in a fresh session with no room membership
// and no privileges.
func NewSession(conn sender) *Session {
	return &Session{
		id:   uuid.NewString(),
		conn: conn,
	}
}

// ID returns the session's unique identity, used as a stable key in logs.
func (s *Session) ID() string {
	return s.id
}

// Name returns the display name chosen at join time, or "" before any join.
func (s *Session) Name() string {
	return s.name
}

// RoomPin returns the pin of the joined room, or "" when not in a room.
func (s *Session) RoomPin() string {
	return s.roomPin
}

// IsRoomAdmin reports whether the session moderates its current room.
func (s *Session) IsRoomAdmin() bool {
	return s.isRoomAdmin
}

// IsGlobalAdmin reports whether the session holds cross-room privilege.
func (s *Session) IsGlobalAdmin() bool {
	return s.isGlobalAdmin
}
