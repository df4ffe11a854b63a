// Package server defines the typed wire protocol exchanged with chat clients.
// Every frame is a single JSON object carrying a "type" discriminator; inbound
// frames decode into a closed set of event variants so the router can dispatch
// with an exhaustive type switch instead of string comparisons.
package server

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"time"
)

// InboundEvent is implemented by every parsed client-to-server event.
type InboundEvent interface {
	inboundEvent()
}

// GlobalAdminLoginEvent requests global-admin privilege for this session.
type GlobalAdminLoginEvent struct {
	Password string `json:"password"`
}

// UpdateFilterDataEvent replaces the process-wide profanity word lists.
// Only honored for sessions holding global-admin privilege.
type UpdateFilterDataEvent struct {
	FilterData FilterData `json:"filterData"`
}

// JoinEvent enters (and creates, if needed) the room identified by the pin.
type JoinEvent struct {
	Room                string `json:"room"`
	Name                string `json:"name"`
	Message             string `json:"message"`
	GlobalAdminPassword string `json:"globalAdminPassword"`
	ProfanityFilter     string `json:"profanityFilter"`
}

// LeaveEvent announces a departure. It is a notification only; membership
// changes when the transport closes, which the client is expected to do
// immediately after sending this.
type LeaveEvent struct {
	Room string `json:"room"`
	Name string `json:"name"`
}

// ChatEvent carries a chat line for the sender's room.
type ChatEvent struct {
	Room    string `json:"room"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// UpdateProfanityFilterEvent changes the room's filter level. Room admins only.
type UpdateProfanityFilterEvent struct {
	FilterLevel string `json:"filterLevel"`
}

// DeleteMessageEvent removes one entry from the room's history. Room admins only.
type DeleteMessageEvent struct {
	MessageID string `json:"messageId"`
}

// KickUserEvent force-disconnects every room member with the given display
// name, except the actor. Room admins only.
type KickUserEvent struct {
	UserName string `json:"userName"`
}

// UnknownEvent preserves the discriminator of a frame whose type was not
// recognized so the router can report it back to the sender.
type UnknownEvent struct {
	Kind string
}

func (GlobalAdminLoginEvent) inboundEvent()      {}
func (UpdateFilterDataEvent) inboundEvent()      {}
func (JoinEvent) inboundEvent()                  {}
func (LeaveEvent) inboundEvent()                 {}
func (ChatEvent) inboundEvent()                  {}
func (UpdateProfanityFilterEvent) inboundEvent() {}
func (DeleteMessageEvent) inboundEvent()         {}
func (KickUserEvent) inboundEvent()              {}
func (UnknownEvent) inboundEvent()               {}

// ParseInbound decodes one raw frame into its event variant. Frames with an
// unrecognized type decode into UnknownEvent; only malformed JSON is an error.
func ParseInbound(raw []byte) (InboundEvent, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	switch env.Type {
	case "globalAdminLogin":
		var ev GlobalAdminLoginEvent
		return ev, json.Unmarshal(raw, &ev)
	case "updateFilterData":
		var ev UpdateFilterDataEvent
		return ev, json.Unmarshal(raw, &ev)
	case "join":
		var ev JoinEvent
		return ev, json.Unmarshal(raw, &ev)
	case "leave":
		var ev LeaveEvent
		return ev, json.Unmarshal(raw, &ev)
	case "message":
		var ev ChatEvent
		return ev, json.Unmarshal(raw, &ev)
	case "updateProfanityFilter":
		var ev UpdateProfanityFilterEvent
		return ev, json.Unmarshal(raw, &ev)
	case "deleteMessage":
		var ev DeleteMessageEvent
		return ev, json.Unmarshal(raw, &ev)
	case "kickUser":
		var ev KickUserEvent
		return ev, json.Unmarshal(raw, &ev)
	default:
		return UnknownEvent{Kind: env.Type}, nil
	}
}

// OutboundEvent is implemented by every server-to-client frame.
type OutboundEvent interface {
	outboundEvent()
}

// GlobalAdminStatusEvent answers a globalAdminLogin attempt. FilterData is
// present on success, Error on failure.
type GlobalAdminStatusEvent struct {
	Type          string      `json:"type"`
	IsGlobalAdmin bool        `json:"isGlobalAdmin"`
	FilterData    *FilterData `json:"filterData,omitempty"`
	Error         string      `json:"error,omitempty"`
}

// FilterDataUpdatedEvent notifies global admins of replaced word lists.
type FilterDataUpdatedEvent struct {
	Type       string     `json:"type"`
	FilterData FilterData `json:"filterData"`
}

// ErrorEvent reports a request-scoped failure to one session.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// UserListEvent carries the current roster of a room.
type UserListEvent struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

// AdminStatusEvent tells a joining session its privilege standing.
type AdminStatusEvent struct {
	Type          string `json:"type"`
	IsAdmin       bool   `json:"isAdmin"`
	IsGlobalAdmin bool   `json:"isGlobalAdmin"`
	AdminName     string `json:"adminName"`
}

// RoomSettingsEvent announces the room's current profanity filter level.
type RoomSettingsEvent struct {
	Type            string      `json:"type"`
	ProfanityFilter FilterLevel `json:"profanityFilter"`
}

// MessageDeletedEvent announces a moderated deletion to a room.
type MessageDeletedEvent struct {
	Type      string `json:"type"`
	MessageID string `json:"messageId"`
}

// KickedEvent is the last frame a kicked session receives before its
// transport is closed.
type KickedEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (GlobalAdminStatusEvent) outboundEvent() {}
func (FilterDataUpdatedEvent) outboundEvent() {}
func (ErrorEvent) outboundEvent()             {}
func (UserListEvent) outboundEvent()          {}
func (AdminStatusEvent) outboundEvent()       {}
func (RoomSettingsEvent) outboundEvent()      {}
func (MessageDeletedEvent) outboundEvent()    {}
func (KickedEvent) outboundEvent()            {}
func (*Message) outboundEvent()               {}

func newGlobalAdminStatus(granted bool, data *FilterData, errMsg string) GlobalAdminStatusEvent {
	return GlobalAdminStatusEvent{Type: "globalAdminStatus", IsGlobalAdmin: granted, FilterData: data, Error: errMsg}
}

func newFilterDataUpdated(data FilterData) FilterDataUpdatedEvent {
	return FilterDataUpdatedEvent{Type: "filterDataUpdated", FilterData: data}
}

func newError(message string) ErrorEvent {
	return ErrorEvent{Type: "error", Message: message}
}

func newUserList(users []string) UserListEvent {
	return UserListEvent{Type: "userList", Users: users}
}

func newAdminStatus(isAdmin, isGlobalAdmin bool, adminName string) AdminStatusEvent {
	return AdminStatusEvent{Type: "adminStatus", IsAdmin: isAdmin, IsGlobalAdmin: isGlobalAdmin, AdminName: adminName}
}

func newRoomSettings(level FilterLevel) RoomSettingsEvent {
	return RoomSettingsEvent{Type: "roomSettings", ProfanityFilter: level}
}

func newMessageDeleted(messageID string) MessageDeletedEvent {
	return MessageDeletedEvent{Type: "messageDeleted", MessageID: messageID}
}

func newKicked(message string) KickedEvent {
	return KickedEvent{Type: "kicked", Message: message}
}

// Message kinds, reused as the wire discriminator of history entries.
const (
	MessageJoin  = "join"
	MessageLeave = "leave"
	MessageChat  = "message"
)

// Message is one immutable entry in a room's history. Join and leave
// notices share the shape of chat lines so clients render them uniformly.
type Message struct {
	ID        string    `json:"id"`
	Kind      string    `json:"type"`
	Name      string    `json:"name"`
	Body      string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Filtered  bool      `json:"filtered,omitempty"`
	IsYou     bool      `json:"isYou,omitempty"`
}

// NewMessage builds a history entry with a fresh id and timestamp.
func NewMessage(kind, name, body string) *Message {
	return &Message{
		ID:        newMessageID(),
		Kind:      kind,
		Name:      name,
		Body:      body,
		Timestamp: time.Now().UTC(),
	}
}

// newMessageID returns a millisecond timestamp with a random fractional
// tie-break. Collisions within the same millisecond are treated as
// negligible, not impossible.
func newMessageID() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + "." + strconv.Itoa(rand.Intn(1_000_000_000))
}

// EncodeEvent serializes an outbound event to a single text frame.
func EncodeEvent(ev OutboundEvent) ([]byte, error) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return raw, nil
}
