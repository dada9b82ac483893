// Package engine implements the server-side synchronization core of the chat
// relay: connection identity, room membership, bounded per-room message
// history, typing aggregation, and the fan-out contract for every inbound
// client event.
package engine

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chat-relay/internal/metrics"
)

// DefaultPageLimit is the history page size used for join replays and as the
// backfill API default.
const DefaultPageLimit = 20

// Sender delivers outbound events. The transport implements it; the engine
// resolves room membership itself and always passes explicit connection ids,
// so the transport never needs to know about rooms.
type Sender interface {
	Unicast(connID string, ev Event)
	Multicast(connIDs []string, ev Event)
	Broadcast(ev Event)
}

// Options tune the engine. Zero values fall back to the original deployment's
// constants.
type Options struct {
	DefaultRoom  string
	HistoryLimit int
}

// Engine owns all relay state. Every inbound event is handled to completion
// under one mutex, so two events never interleave: id assignment, the
// changed-flags from the stores, and the per-room event order observed by
// clients all rely on that serialization. The stores themselves are not
// goroutine-safe and must only be reached through Engine methods.
type Engine struct {
	mu     sync.Mutex
	log    zerolog.Logger
	sender Sender

	rooms    *Directory
	registry *Registry
	ledger   *Ledger
	typing   *TypingSet

	defaultRoom string
}

func New(log zerolog.Logger, sender Sender, opts Options) *Engine {
	if opts.DefaultRoom == "" {
		opts.DefaultRoom = "General"
	}
	rooms := NewDirectory(opts.DefaultRoom)
	return &Engine{
		log:         log,
		sender:      sender,
		rooms:       rooms,
		registry:    NewRegistry(rooms, opts.DefaultRoom),
		ledger:      NewLedger(rooms, opts.HistoryLimit),
		typing:      NewTypingSet(),
		defaultRoom: opts.DefaultRoom,
	}
}

// HandleEvent decodes one inbound envelope from connID and routes it.
// Malformed envelopes are dropped; domain errors surface only as a unicast
// error event back to the offender.
func (e *Engine) HandleEvent(connID string, raw []byte) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		e.log.Debug().Str("conn", connID).Err(err).Msg("dropping malformed event")
		return
	}
	metrics.EventsTotal.WithLabelValues(string(ev.Type)).Inc()

	switch ev.Type {
	case EvtJoin:
		var p JoinPayload
		if decode(ev.Data, &p) {
			e.Join(connID, p.Username)
		}
	case EvtCreateRoom:
		var p CreateRoomPayload
		if decode(ev.Data, &p) {
			e.CreateRoom(connID, p.Name)
		}
	case EvtJoinRoom:
		var p JoinRoomPayload
		if decode(ev.Data, &p) {
			e.JoinRoom(connID, p.Name)
		}
	case EvtSendMessage:
		var p SendMessagePayload
		if decode(ev.Data, &p) {
			e.SendMessage(connID, p)
		}
	case EvtSendFile:
		var p SendFilePayload
		if decode(ev.Data, &p) {
			e.SendFile(connID, p)
		}
	case EvtMessageRead:
		var p MessageReadPayload
		if decode(ev.Data, &p) {
			e.MessageRead(connID, p)
		}
	case EvtAddReaction:
		var p AddReactionPayload
		if decode(ev.Data, &p) {
			e.AddReaction(connID, p)
		}
	case EvtTyping:
		var p TypingPayload
		if decode(ev.Data, &p) {
			e.Typing(connID, p.IsTyping)
		}
	case EvtPrivateMessage:
		var p PrivateMessagePayload
		if decode(ev.Data, &p) {
			e.PrivateMessage(connID, p)
		}
	default:
		e.log.Debug().Str("conn", connID).Str("type", string(ev.Type)).Msg("unknown event type")
	}
}

// Join registers a connection under username in the default room, replays
// current state to it, and announces the arrival.
func (e *Engine) Join(connID, username string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	username = strings.TrimSpace(username)
	if username == "" {
		e.fail(connID, fmt.Errorf("%w: username is required", ErrValidation))
		return
	}
	c, err := e.registry.Register(connID, username)
	if err != nil {
		e.fail(connID, err)
		return
	}

	e.sender.Unicast(connID, NewEvent(EvtRoomList, e.rooms.List()))
	e.sender.Unicast(connID, NewEvent(EvtUserList, e.registry.List()))
	e.sender.Unicast(connID, NewEvent(EvtRoomMessages, e.ledger.Page(e.defaultRoom, DefaultPageLimit, 0)))

	e.sender.Broadcast(NewEvent(EvtUserList, e.registry.List()))
	e.sender.Broadcast(NewEvent(EvtUserJoined, UserEventPayload{Username: c.Username, ID: c.ID}))

	e.log.Info().Str("conn", connID).Str("username", username).Msg("user joined")
}

// CreateRoom adds a room to the directory. Creating an existing room is a
// no-op and emits nothing.
func (e *Engine) CreateRoom(connID, name string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		e.fail(connID, fmt.Errorf("%w: room name is required", ErrValidation))
		return
	}
	if e.rooms.Create(name) {
		e.sender.Broadcast(NewEvent(EvtRoomList, e.rooms.List()))
		e.log.Info().Str("room", name).Msg("room created")
	}
}

// JoinRoom moves the connection into an existing room, releases its typing
// footprint in the old room, and replays the new room's recent history.
func (e *Engine) JoinRoom(connID, name string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.registry.Lookup(connID)
	if err != nil {
		e.log.Debug().Str("conn", connID).Msg("join_room from unregistered connection")
		return
	}
	if !e.rooms.Exists(name) {
		e.fail(connID, fmt.Errorf("%w: %s", ErrUnknownRoom, name))
		return
	}

	oldRoom := c.Room
	if err := e.registry.SetRoom(connID, name); err != nil {
		e.fail(connID, err)
		return
	}
	if oldRoom != name {
		e.clearTyping(oldRoom, connID)
	}

	e.sender.Unicast(connID, NewEvent(EvtRoomJoined, RoomJoinedPayload{Room: name}))
	e.sender.Unicast(connID, NewEvent(EvtRoomMessages, e.ledger.Page(name, DefaultPageLimit, 0)))
	e.sender.Broadcast(NewEvent(EvtUserList, e.registry.List()))

	e.log.Info().Str("conn", connID).Str("room", name).Msg("joined room")
}

// SendMessage appends a text message to the sender's room (or an explicit
// override room), acks the sender's tempId, and fans the message out to the
// room.
func (e *Engine) SendMessage(connID string, p SendMessagePayload) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.registry.Lookup(connID)
	if err != nil {
		e.log.Debug().Str("conn", connID).Msg("send_message from unregistered connection")
		return
	}
	content := strings.TrimSpace(p.Content)
	if content == "" {
		e.fail(connID, fmt.Errorf("%w: message text is required", ErrValidation))
		return
	}
	room := p.Room
	if room == "" {
		room = c.Room
	}

	m, err := e.ledger.Append(room, &Message{
		Sender:   c.Username,
		SenderID: c.ID,
		Kind:     KindText,
		Content:  content,
		ReadBy:   []string{c.Username},
	})
	if err != nil {
		e.fail(connID, err)
		return
	}
	metrics.MessagesTotal.WithLabelValues(string(KindText)).Inc()

	e.clearTyping(c.Room, connID)
	if p.TempID != "" {
		e.sender.Unicast(connID, NewEvent(EvtSendAck, SendAckPayload{TempID: p.TempID}))
	}
	e.sender.Multicast(e.registry.InRoom(room), NewEvent(EvtReceiveMessage, m))
}

// SendFile appends a file message carried inline as base64. No send ack: the
// room fan-out itself confirms delivery for files.
func (e *Engine) SendFile(connID string, p SendFilePayload) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.registry.Lookup(connID)
	if err != nil {
		e.log.Debug().Str("conn", connID).Msg("send_file from unregistered connection")
		return
	}
	room := p.Room
	if room == "" {
		room = c.Room
	}

	m, err := e.ledger.Append(room, &Message{
		Sender:   c.Username,
		SenderID: c.ID,
		Kind:     KindFile,
		FileName: p.FileName,
		FileType: p.FileType,
		FileData: p.FileData,
		ReadBy:   []string{c.Username},
	})
	if err != nil {
		e.fail(connID, err)
		return
	}
	metrics.MessagesTotal.WithLabelValues(string(KindFile)).Inc()

	e.clearTyping(c.Room, connID)
	e.sender.Multicast(e.registry.InRoom(room), NewEvent(EvtReceiveMessage, m))
}

// MessageRead records a read receipt. A stale or evicted message id, or a
// receipt that changes nothing, emits nothing.
func (e *Engine) MessageRead(connID string, p MessageReadPayload) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.registry.Lookup(connID)
	if err != nil {
		return
	}
	m, changed, err := e.ledger.MarkRead(p.Room, p.MessageID, c.Username)
	if err != nil {
		e.log.Debug().Str("room", p.Room).Int64("message", p.MessageID).Msg("read receipt for missing message")
		return
	}
	if changed {
		e.sender.Multicast(e.registry.InRoom(p.Room), NewEvent(EvtReadUpdate, ReadUpdatePayload{
			MessageID: m.ID,
			ReadBy:    m.ReadBy,
		}))
	}
}

// AddReaction records an emoji reaction, fanning out only on a real change.
func (e *Engine) AddReaction(connID string, p AddReactionPayload) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.registry.Lookup(connID)
	if err != nil {
		return
	}
	m, changed, err := e.ledger.AddReaction(p.Room, p.MessageID, p.Emoji, c.Username)
	if err != nil {
		e.log.Debug().Str("room", p.Room).Int64("message", p.MessageID).Msg("reaction for missing message")
		return
	}
	if changed {
		e.sender.Multicast(e.registry.InRoom(p.Room), NewEvent(EvtReactionUpdate, ReactionUpdatePayload{
			MessageID: m.ID,
			Reactions: m.Reactions,
		}))
	}
}

// Typing flips the connection's typing flag. The typer list goes out only on
// a visible transition, not on every keystroke event.
func (e *Engine) Typing(connID string, isTyping bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.registry.Lookup(connID)
	if err != nil {
		return
	}
	if e.typing.SetTyping(c.Room, connID, c.Username, isTyping) {
		e.sender.Multicast(e.registry.InRoom(c.Room), NewEvent(EvtTypingUsers, e.typing.Typers(c.Room)))
	}
}

// PrivateMessage delivers a direct message to the recipient connection and
// echoes it to the sender. Fire-and-forget: nothing is stored, so private
// traffic is invisible to read receipts and reactions.
func (e *Engine) PrivateMessage(connID string, p PrivateMessagePayload) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.registry.Lookup(connID)
	if err != nil {
		return
	}
	m := &Message{
		ID:        e.ledger.NextID(),
		Sender:    c.Username,
		SenderID:  c.ID,
		Timestamp: time.Now().UTC(),
		Kind:      KindText,
		Content:   p.Content,
		IsPrivate: true,
		To:        p.To,
	}
	ev := NewEvent(EvtPrivateMessage, m)
	e.sender.Unicast(connID, ev)
	if p.To != connID {
		if _, err := e.registry.Lookup(p.To); err == nil {
			e.sender.Unicast(p.To, ev)
		}
	}
}

// Disconnect releases everything tied to the connection. Idempotent: a
// second disconnect for the same id is a no-op, and a released connection
// can never trigger a future broadcast.
func (e *Engine) Disconnect(connID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.registry.Unregister(connID)
	if err != nil {
		return
	}
	typingChanged := e.typing.Clear(c.Room, connID)

	e.sender.Broadcast(NewEvent(EvtUserLeft, UserEventPayload{Username: c.Username, ID: c.ID}))
	e.sender.Broadcast(NewEvent(EvtUserList, e.registry.List()))
	if typingChanged {
		e.sender.Multicast(e.registry.InRoom(c.Room), NewEvent(EvtTypingUsers, e.typing.Typers(c.Room)))
	}

	e.log.Info().Str("conn", connID).Str("username", c.Username).Msg("user left")
}

// Messages is the history backfill query: limit newest messages before
// offset, oldest-first.
func (e *Engine) Messages(room string, limit, offset int) []*Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Page(room, limit, offset)
}

// Users returns a registry snapshot.
func (e *Engine) Users() []*Connection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.List()
}

// Rooms returns a directory snapshot.
func (e *Engine) Rooms() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rooms.List()
}

// Stats is a point-in-time snapshot of engine state, for the scheduled
// reporter and gauges.
type Stats struct {
	Connections int
	Rooms       int
	Messages    int
	Typing      int
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		Connections: e.registry.Len(),
		Rooms:       e.rooms.Len(),
		Messages:    e.ledger.Total(),
		Typing:      e.typing.Len(),
	}
}

// clearTyping drops the connection's typing entry and notifies the room if
// the visible typer list changed. Callers hold e.mu.
func (e *Engine) clearTyping(room, connID string) {
	if e.typing.Clear(room, connID) {
		e.sender.Multicast(e.registry.InRoom(room), NewEvent(EvtTypingUsers, e.typing.Typers(room)))
	}
}

// fail converts a domain error into a unicast error event for the offending
// connection. Nothing is ever broadcast on failure.
func (e *Engine) fail(connID string, err error) {
	e.log.Debug().Str("conn", connID).Err(err).Msg("event rejected")
	e.sender.Unicast(connID, NewEvent(EvtError, ErrorPayload{Message: err.Error()}))
}

func decode(data json.RawMessage, v any) bool {
	if len(data) == 0 {
		return false
	}
	return json.Unmarshal(data, v) == nil
}
