// Package server implements the PinChat relay: a room-based WebSocket chat
// server where clients join rooms by pin, exchange filtered text messages,
// and room or global admins moderate content and membership.
//
// The implementation is organized into specialized files for the wire
// protocol, the content filter, rooms and their registry, the event router,
// the connection hub, and the HTTP surface, to keep the codebase
// maintainable and testable as the project grows. All room and session
// state is in-memory and ephemeral; only the profanity word lists persist,
// through the FilterStore.
package server
