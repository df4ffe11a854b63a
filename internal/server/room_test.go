package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetOrCreate(t *testing.T) {
	reg := NewRegistry()

	room := reg.GetOrCreate("1234", "Alice", FilterSwears)
	require.NotNil(t, room)
	assert.Equal(t, "1234", room.Pin())
	assert.Equal(t, "Alice", room.CreatorName())
	assert.Equal(t, FilterSwears, room.FilterLevel())
	assert.Equal(t, 0, room.MemberCount())
	assert.Empty(t, room.History())

	// A second join to the same pin must not overwrite creator or level.
	again := reg.GetOrCreate("1234", "Bob", FilterBoth)
	assert.Same(t, room, again)
	assert.Equal(t, "Alice", again.CreatorName())
	assert.Equal(t, FilterSwears, again.FilterLevel())

	assert.Equal(t, 1, reg.Len())
}

func TestRegistryGetAbsent(t *testing.T) {
	reg := NewRegistry()
	assert.Nil(t, reg.Get("0000"))
}

func TestRegistryRemoveIfEmpty(t *testing.T) {
	reg := NewRegistry()
	room := reg.GetOrCreate("1234", "Alice", FilterNone)

	sess := NewSession(&fakeConn{})
	sess.name = "Alice"
	room.addMember(sess)

	// Occupied rooms survive the call.
	reg.RemoveIfEmpty("1234")
	assert.NotNil(t, reg.Get("1234"))

	room.removeMember(sess)
	reg.RemoveIfEmpty("1234")
	assert.Nil(t, reg.Get("1234"))
	assert.Equal(t, 0, reg.Len())

	// Removing an absent pin is a no-op.
	reg.RemoveIfEmpty("1234")
}

func TestRoomRoster(t *testing.T) {
	room := newRoom("1234", "Alice", FilterNone)

	a := NewSession(&fakeConn{})
	a.name = "Alice"
	b := NewSession(&fakeConn{})
	b.name = "Bob"
	room.addMember(a)
	room.addMember(b)

	assert.ElementsMatch(t, []string{"Alice", "Bob"}, room.roster())

	room.removeMember(a)
	assert.ElementsMatch(t, []string{"Bob"}, room.roster())
}

// Two sessions sharing a name collapse to one roster entry, and one leaving
// removes the shared name. Long-standing behavior, locked in on purpose.
func TestRoomRosterDuplicateNames(t *testing.T) {
	room := newRoom("1234", "Alice", FilterNone)

	a := NewSession(&fakeConn{})
	a.name = "Alice"
	b := NewSession(&fakeConn{})
	b.name = "Alice"
	room.addMember(a)
	room.addMember(b)

	assert.Equal(t, 2, room.MemberCount())
	assert.Equal(t, []string{"Alice"}, room.roster())

	room.removeMember(a)
	assert.Equal(t, 1, room.MemberCount())
	assert.Empty(t, room.roster())
}

func TestRoomDeleteMessage(t *testing.T) {
	room := newRoom("1234", "Alice", FilterNone)

	first := NewMessage(MessageChat, "Alice", "one")
	second := NewMessage(MessageChat, "Alice", "two")
	third := NewMessage(MessageChat, "Alice", "three")
	room.appendMessage(first)
	room.appendMessage(second)
	room.appendMessage(third)

	require.True(t, room.deleteMessage(second.ID))
	require.Len(t, room.History(), 2)
	assert.Equal(t, first.ID, room.History()[0].ID)
	assert.Equal(t, third.ID, room.History()[1].ID)

	// Absent ids remove nothing.
	assert.False(t, room.deleteMessage("missing"))
	assert.Len(t, room.History(), 2)
}

func TestNewMessageIDs(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := newMessageID()
		_, dup := seen[id]
		assert.False(t, dup, "duplicate message id %s", id)
		seen[id] = struct{}{}
	}
}
