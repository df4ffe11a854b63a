// Package server contains the broadcast engine: fan-out of encoded frames to
// a room's member set with exclusion and liveness checks.
package server

// send encodes an event and hands it to one session's transport.
// Fire-and-forget: a closed or saturated peer is skipped silently and will
// surface through its own disconnect path.
func (rt *Router) send(sess *Session, ev OutboundEvent) {
	raw, err := EncodeEvent(ev)
	if err != nil {
		rt.log.Error("encode outbound frame", "session", sess.id, "err", err)
		return
	}
	if sess.conn.Send(raw) && rt.metrics != nil {
		rt.metrics.BroadcastsSent.Inc()
	}
}

// broadcast sends an event to every member of the room, skipping exclude if
// given. There is no retry and no delivery confirmation.
func (rt *Router) broadcast(room *Room, ev OutboundEvent, exclude *Session) {
	raw, err := EncodeEvent(ev)
	if err != nil {
		rt.log.Error("encode broadcast frame", "room", room.pin, "err", err)
		return
	}
	for member := range room.members {
		if member == exclude {
			continue
		}
		if member.conn.Send(raw) && rt.metrics != nil {
			rt.metrics.BroadcastsSent.Inc()
		}
	}
}

// broadcastRoster sends the room's current display names to every member.
func (rt *Router) broadcastRoster(room *Room) {
	rt.broadcast(room, newUserList(room.roster()), nil)
}

// sendHistory replays the room's stored messages, in insertion order, to one
// session. Used only at join time.
func (rt *Router) sendHistory(sess *Session, room *Room) {
	for _, msg := range room.history {
		rt.send(sess, msg)
	}
}
