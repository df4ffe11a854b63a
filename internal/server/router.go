// Package server implements the Router, the state machine at the heart of
// the relay. Every parsed inbound event passes through HandleEvent, which
// validates it against the session's privilege and membership state, mutates
// the room registry, and triggers outbound sends. The hub funnels all calls
// through one goroutine, so each handler runs atomically with respect to
// every other mutation of shared state.
package server

import (
	"log/slog"
)

// Router dispatches typed inbound events to room, session, and filter state.
// The registry, filter store, and global-admin set are owned here and
// injected at construction so tests can build isolated instances.
type Router struct {
	log      *slog.Logger
	registry *Registry
	store    FilterStore
	metrics  *Metrics

	adminPassword string
	globalAdmins  map[*Session]struct{}
	filterData    FilterData
}

// NewRouter wires a router to its collaborators. adminPassword is the shared
// secret that grants global-admin privilege.
func NewRouter(log *slog.Logger, registry *Registry, store FilterStore, metrics *Metrics, adminPassword string) *Router {
	return &Router{
		log:           log,
		registry:      registry,
		store:         store,
		metrics:       metrics,
		adminPassword: adminPassword,
		globalAdmins:  make(map[*Session]struct{}),
	}
}

// LoadFilterData reads the word lists from the store into memory. A load
// failure leaves filtering effectively disabled until a global admin
// replaces the lists; the process keeps running.
func (rt *Router) LoadFilterData() {
	data, err := rt.store.Load()
	if err != nil {
		rt.log.Warn("filter word lists unavailable, filtering disabled", "err", err)
		return
	}
	rt.filterData = data
	rt.log.Info("filter word lists loaded", "swears", len(data.Swears), "slurs", len(data.Slurs))
}

// FilterData returns the current in-memory word lists.
func (rt *Router) FilterData() FilterData {
	return rt.filterData
}

// HandleEvent runs one state transition for an inbound event. Authorization
// failures on admin-gated events are silent no-ops: a non-admin attempting a
// kick or deletion gets no reply at all.
func (rt *Router) HandleEvent(sess *Session, ev InboundEvent) {
	switch ev := ev.(type) {
	case GlobalAdminLoginEvent:
		rt.handleGlobalAdminLogin(sess, ev)
	case UpdateFilterDataEvent:
		rt.handleUpdateFilterData(sess, ev)
	case JoinEvent:
		rt.handleJoin(sess, ev)
	case LeaveEvent:
		rt.handleLeave(sess, ev)
	case ChatEvent:
		rt.handleChat(sess, ev)
	case UpdateProfanityFilterEvent:
		rt.handleUpdateProfanityFilter(sess, ev)
	case DeleteMessageEvent:
		rt.handleDeleteMessage(sess, ev)
	case KickUserEvent:
		rt.handleKickUser(sess, ev)
	case UnknownEvent:
		rt.log.Warn("unknown event type", "session", sess.id, "kind", ev.Kind)
		rt.send(sess, newError("Unknown message type: "+ev.Kind))
	}
}

// HandleDisconnect runs the cleanup sequence when a transport closes, for
// any reason. The hub guarantees it runs at most once per session and never
// concurrently with HandleEvent for the same session.
func (rt *Router) HandleDisconnect(sess *Session) {
	if sess.isGlobalAdmin {
		delete(rt.globalAdmins, sess)
		sess.isGlobalAdmin = false
	}
	if sess.roomPin == "" || sess.name == "" {
		return
	}

	rt.departRoom(sess)

	if rt.metrics != nil {
		rt.metrics.ActiveRooms.Set(float64(rt.registry.Len()))
	}
}

// departRoom removes the session from its current room, announces the
// departure, and deletes the room if it empties. The caller remains
// responsible for resetting the session's room fields.
func (rt *Router) departRoom(sess *Session) {
	room := rt.registry.Get(sess.roomPin)
	if room == nil {
		return
	}

	room.removeMember(sess)

	leave := NewMessage(MessageLeave, sess.name, sess.name+" has left the chat")
	room.appendMessage(leave)
	rt.broadcast(room, leave, nil)
	rt.broadcastRoster(room)

	if room.MemberCount() == 0 {
		rt.registry.RemoveIfEmpty(sess.roomPin)
		rt.log.Info("room deleted, no users remaining", "room", sess.roomPin)
	}
}

func (rt *Router) handleGlobalAdminLogin(sess *Session, ev GlobalAdminLoginEvent) {
	if ev.Password != rt.adminPassword {
		rt.send(sess, newGlobalAdminStatus(false, nil, "Invalid password"))
		return
	}

	rt.grantGlobalAdmin(sess)

	// Word lists may have failed to load at startup; retry before handing
	// them to the admin console.
	if len(rt.filterData.Swears) == 0 && len(rt.filterData.Slurs) == 0 {
		rt.LoadFilterData()
	}

	data := rt.filterData
	rt.send(sess, newGlobalAdminStatus(true, &data, ""))
	rt.log.Info("global admin logged in", "session", sess.id)
}

func (rt *Router) handleUpdateFilterData(sess *Session, ev UpdateFilterDataEvent) {
	if !sess.isGlobalAdmin {
		return
	}

	// The in-memory lists are replaced before persisting. On a save failure
	// they intentionally stay replaced: memory and disk diverge until the
	// admin retries, and only the actor hears about it.
	rt.filterData = ev.FilterData

	if err := rt.store.Save(rt.filterData); err != nil {
		rt.log.Error("persist filter word lists", "err", err)
		rt.send(sess, newError("Failed to save filter data"))
		return
	}

	for admin := range rt.globalAdmins {
		rt.send(admin, newFilterDataUpdated(rt.filterData))
	}
	rt.log.Info("filter word lists updated", "session", sess.id)
}

func (rt *Router) handleJoin(sess *Session, ev JoinEvent) {
	if ev.GlobalAdminPassword != "" && ev.GlobalAdminPassword == rt.adminPassword {
		rt.grantGlobalAdmin(sess)
	}

	// A session is a member of at most one room; switching rooms departs
	// the old one first so it can empty out and be deleted.
	if sess.roomPin != "" && sess.roomPin != ev.Room {
		rt.departRoom(sess)
	}

	room := rt.registry.GetOrCreate(ev.Room, ev.Name, ParseFilterLevel(ev.ProfanityFilter))

	sess.name = ev.Name
	sess.roomPin = ev.Room
	sess.isRoomAdmin = ev.Name == room.creatorName || sess.isGlobalAdmin
	room.addMember(sess)

	rt.log.Info("user joined room",
		"room", ev.Room, "name", ev.Name,
		"admin", sess.isRoomAdmin, "globalAdmin", sess.isGlobalAdmin)

	rt.sendHistory(sess, room)
	rt.send(sess, newAdminStatus(sess.isRoomAdmin, sess.isGlobalAdmin, room.creatorName))
	rt.send(sess, newRoomSettings(room.filterLevel))
	rt.broadcastRoster(room)

	join := NewMessage(MessageJoin, ev.Name, ev.Message)
	room.appendMessage(join)
	rt.broadcast(room, join, sess)

	ack := NewMessage(MessageJoin, ev.Name, "You joined the chat")
	ack.IsYou = true
	rt.send(sess, ack)

	if rt.metrics != nil {
		rt.metrics.ActiveRooms.Set(float64(rt.registry.Len()))
	}
}

// handleLeave records and announces the departure but does not touch
// membership or the roster. The client disconnects right after sending
// leave, and the close path does the actual removal; changing that would
// alter the broadcast sequences clients observe.
func (rt *Router) handleLeave(sess *Session, ev LeaveEvent) {
	pin := ev.Room
	if pin == "" {
		pin = sess.roomPin
	}

	room := rt.registry.Get(pin)
	if room == nil {
		return
	}

	leave := NewMessage(MessageLeave, ev.Name, ev.Name+" has left the chat")
	room.appendMessage(leave)
	rt.broadcast(room, leave, sess)
}

func (rt *Router) handleChat(sess *Session, ev ChatEvent) {
	pin := ev.Room
	if pin == "" {
		pin = sess.roomPin
	}

	room := rt.registry.Get(pin)
	if room == nil {
		return
	}

	body, wasFiltered := FilterProfanity(ev.Message, room.filterLevel, rt.filterData)

	msg := NewMessage(MessageChat, ev.Name, body)
	msg.Filtered = wasFiltered
	room.appendMessage(msg)
	rt.broadcast(room, msg, sess)

	if rt.metrics != nil {
		rt.metrics.MessagesReceived.Inc()
	}
}

func (rt *Router) handleUpdateProfanityFilter(sess *Session, ev UpdateProfanityFilterEvent) {
	if !sess.isRoomAdmin {
		return
	}
	room := rt.registry.Get(sess.roomPin)
	if room == nil || ev.FilterLevel == "" {
		return
	}

	room.filterLevel = ParseFilterLevel(ev.FilterLevel)
	rt.broadcast(room, newRoomSettings(room.filterLevel), nil)
	rt.log.Info("room filter level changed", "room", room.pin, "level", room.filterLevel)
}

func (rt *Router) handleDeleteMessage(sess *Session, ev DeleteMessageEvent) {
	if !sess.isRoomAdmin {
		return
	}
	room := rt.registry.Get(sess.roomPin)
	if room == nil {
		return
	}

	room.deleteMessage(ev.MessageID)
	rt.broadcast(room, newMessageDeleted(ev.MessageID), nil)
	rt.log.Info("message deleted", "room", room.pin, "messageId", ev.MessageID, "by", sess.name)
}

func (rt *Router) handleKickUser(sess *Session, ev KickUserEvent) {
	if !sess.isRoomAdmin {
		return
	}
	room := rt.registry.Get(sess.roomPin)
	if room == nil {
		return
	}

	for member := range room.members {
		if member.name == ev.UserName && member != sess {
			rt.send(member, newKicked("You have been kicked from room "+sess.roomPin))
			member.conn.Kick()
		}
	}
	rt.log.Info("user kicked", "room", room.pin, "target", ev.UserName, "by", sess.name)
}

func (rt *Router) grantGlobalAdmin(sess *Session) {
	sess.isGlobalAdmin = true
	rt.globalAdmins[sess] = struct{}{}
}
