package engine

import "encoding/json"

type EventType string

// Inbound event types, produced by clients.
const (
	EvtJoin           EventType = "join"
	EvtCreateRoom     EventType = "create_room"
	EvtJoinRoom       EventType = "join_room"
	EvtSendMessage    EventType = "send_message"
	EvtSendFile       EventType = "send_file"
	EvtMessageRead    EventType = "message_read"
	EvtAddReaction    EventType = "add_reaction"
	EvtTyping         EventType = "typing"
	EvtPrivateMessage EventType = "private_message"
)

// Outbound event types, consumed by clients.
const (
	EvtRoomList       EventType = "room_list"
	EvtRoomJoined     EventType = "room_joined"
	EvtRoomMessages   EventType = "room_messages"
	EvtReceiveMessage EventType = "receive_message"
	EvtReadUpdate     EventType = "message_read_update"
	EvtReactionUpdate EventType = "reaction_update"
	EvtTypingUsers    EventType = "typing_users"
	EvtUserList       EventType = "user_list"
	EvtUserJoined     EventType = "user_joined"
	EvtUserLeft       EventType = "user_left"
	EvtSendAck        EventType = "send_ack"
	EvtError          EventType = "error"
)

// Event is the wire envelope for both directions: a type tag plus an
// event-specific JSON payload.
type Event struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEvent wraps a payload into an envelope. Payloads are plain structs,
// slices, or maps owned by the caller; a marshal failure here would be a
// programming error, so the data is left empty rather than propagated.
func NewEvent(t EventType, payload any) Event {
	data, _ := json.Marshal(payload)
	return Event{Type: t, Data: data}
}

// Inbound payloads.

type JoinPayload struct {
	Username string `json:"username"`
}

type CreateRoomPayload struct {
	Name string `json:"name"`
}

type JoinRoomPayload struct {
	Name string `json:"name"`
}

type SendMessagePayload struct {
	Content string `json:"content"`
	Room    string `json:"room,omitempty"`
	TempID  string `json:"tempId,omitempty"`
}

type SendFilePayload struct {
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
	FileData string `json:"fileData"`
	Room     string `json:"room,omitempty"`
}

type MessageReadPayload struct {
	Room      string `json:"room"`
	MessageID int64  `json:"messageId"`
}

type AddReactionPayload struct {
	Room      string `json:"room"`
	MessageID int64  `json:"messageId"`
	Emoji     string `json:"emoji"`
}

type TypingPayload struct {
	IsTyping bool `json:"isTyping"`
}

type PrivateMessagePayload struct {
	To      string `json:"to"`
	Content string `json:"content"`
}

// Outbound payloads. List-shaped events (room_list, user_list, typing_users,
// room_messages) carry bare JSON arrays, matching what clients already render.

type RoomJoinedPayload struct {
	Room string `json:"room"`
}

type UserEventPayload struct {
	Username string `json:"username"`
	ID       string `json:"id"`
}

type ReadUpdatePayload struct {
	MessageID int64    `json:"messageId"`
	ReadBy    []string `json:"readBy"`
}

type ReactionUpdatePayload struct {
	MessageID int64               `json:"messageId"`
	Reactions map[string][]string `json:"reactions"`
}

type SendAckPayload struct {
	TempID string `json:"tempId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
