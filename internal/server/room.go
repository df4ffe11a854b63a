// Package server models chat rooms and the registry that owns them. Rooms
// are created on the first join to an unseen pin and deleted when their last
// member disconnects; nothing about them survives the process.
package server

import "sync"

// Room is one isolated chat channel. It holds non-owning references to the
// member sessions; session lifetime is tied to the connection, not the room.
//
// The displayNames set backs the public roster. It can drift from members
// when two sessions share a name, because a single departure removes the
// shared name for both. That drift is long-standing observable behavior and
// is kept rather than silently fixed.
type Room struct {
	pin          string
	creatorName  string
	filterLevel  FilterLevel
	members      map[*Session]struct{}
	displayNames map[string]struct{}
	history      []*Message
}

func newRoom(pin, creatorName string, level FilterLevel) *Room {
	return &Room{
		pin:          pin,
		creatorName:  creatorName,
		filterLevel:  level,
		members:      make(map[*Session]struct{}),
		displayNames: make(map[string]struct{}),
	}
}

// Pin returns the room's lookup key.
func (r *Room) Pin() string {
	return r.pin
}

// CreatorName returns the display name recorded at room creation. Matching
// it grants room-admin privilege on join.
func (r *Room) CreatorName() string {
	return r.creatorName
}

// FilterLevel returns the room's current moderation strictness.
func (r *Room) FilterLevel() FilterLevel {
	return r.filterLevel
}

// MemberCount returns the number of connected sessions in the room.
func (r *Room) MemberCount() int {
	return len(r.members)
}

// History returns the room's message history in insertion order. The
// returned slice is the room's own; callers must not mutate it.
func (r *Room) History() []*Message {
	return r.history
}

func (r *Room) addMember(s *Session) {
	r.members[s] = struct{}{}
	r.displayNames[s.name] = struct{}{}
}

func (r *Room) removeMember(s *Session) {
	delete(r.members, s)
	delete(r.displayNames, s.name)
}

func (r *Room) appendMessage(m *Message) {
	r.history = append(r.history, m)
}

// deleteMessage removes the history entry with the given id, preserving the
// order of the rest. It reports whether an entry was removed; an absent id
// is a no-op, never a fault.
func (r *Room) deleteMessage(id string) bool {
	for i, m := range r.history {
		if m.ID == id {
			r.history = append(r.history[:i], r.history[i+1:]...)
			return true
		}
	}
	return false
}

// roster returns the current display names. Iteration order of the
// underlying set is not sorted, and clients do not rely on it.
func (r *Room) roster() []string {
	names := make([]string, 0, len(r.displayNames))
	for name := range r.displayNames {
		names = append(names, name)
	}
	return names
}

// Registry maps room pins to live rooms. Mutation happens only on the hub's
// dispatch goroutine; the lock exists so observers such as metrics and tests
// can read concurrently.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewRegistry returns an empty room registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// GetOrCreate returns the room for pin, creating it with the given creator
// and filter level if it does not exist. Creation is idempotent: a second
// join to the same pin never overwrites the recorded creator or level.
func (reg *Registry) GetOrCreate(pin, creatorName string, level FilterLevel) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[pin]
	if !ok {
		room = newRoom(pin, creatorName, level)
		reg.rooms[pin] = room
	}
	return room
}

// Get returns the room for pin, or nil when absent.
func (reg *Registry) Get(pin string) *Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.rooms[pin]
}

// RemoveIfEmpty deletes the room only when its member set is empty. Called
// after every departure; the room's history is discarded with it.
func (reg *Registry) RemoveIfEmpty(pin string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if room, ok := reg.rooms[pin]; ok && len(room.members) == 0 {
		delete(reg.rooms, pin)
	}
}

// Len returns the number of live rooms.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}
