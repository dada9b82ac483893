package engine

import (
	"fmt"
	"time"
)

// DefaultCapacity is the per-room history cap carried over from the original
// deployment. Oldest entries are dropped first once a room reaches it.
const DefaultCapacity = 100

// Ledger is the per-room bounded message history. Ids are assigned from a
// process-wide counter seeded with wall-clock milliseconds, so they are
// unique across the system and strictly increasing within every room.
// Not safe for concurrent use; the engine serializes access.
type Ledger struct {
	rooms    *Directory
	capacity int
	byRoom   map[string][]*Message
	lastID   int64
}

func NewLedger(rooms *Directory, capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ledger{
		rooms:    rooms,
		capacity: capacity,
		byRoom:   make(map[string][]*Message),
		lastID:   time.Now().UnixMilli(),
	}
}

// NextID hands out the next message id. Also used for private messages,
// which share the id space but are never stored.
func (l *Ledger) NextID() int64 {
	l.lastID++
	return l.lastID
}

// Append assigns an id and timestamp to draft, stores it, and returns a copy.
// An empty room name stores into the unscoped legacy bucket without a
// directory check.
func (l *Ledger) Append(room string, draft *Message) (*Message, error) {
	if room != "" && !l.rooms.Exists(room) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRoom, room)
	}
	m := draft.clone()
	m.ID = l.NextID()
	m.Room = room
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	if m.Reactions == nil {
		m.Reactions = make(map[string][]string)
	}

	msgs := l.byRoom[room]
	if len(msgs) >= l.capacity {
		drop := len(msgs) - l.capacity + 1
		msgs = append(msgs[:0:0], msgs[drop:]...)
	}
	l.byRoom[room] = append(msgs, m)
	return m.clone(), nil
}

// MarkRead adds username to the message's readBy set. The changed flag is
// false when the username was already present, so callers can suppress
// redundant fan-out.
func (l *Ledger) MarkRead(room string, messageID int64, username string) (*Message, bool, error) {
	m := l.find(room, messageID)
	if m == nil {
		return nil, false, fmt.Errorf("%w: message %d", ErrNotFound, messageID)
	}
	for _, u := range m.ReadBy {
		if u == username {
			return m.clone(), false, nil
		}
	}
	m.ReadBy = append(m.ReadBy, username)
	return m.clone(), true, nil
}

// AddReaction records username's emoji reaction. Idempotent per
// (message, emoji, username) triple.
func (l *Ledger) AddReaction(room string, messageID int64, emoji, username string) (*Message, bool, error) {
	m := l.find(room, messageID)
	if m == nil {
		return nil, false, fmt.Errorf("%w: message %d", ErrNotFound, messageID)
	}
	if m.Reactions == nil {
		m.Reactions = make(map[string][]string)
	}
	for _, u := range m.Reactions[emoji] {
		if u == username {
			return m.clone(), false, nil
		}
	}
	m.Reactions[emoji] = append(m.Reactions[emoji], username)
	return m.clone(), true, nil
}

// Page returns up to limit messages, oldest-first, with offset counted back
// from the newest entry. An exhausted or unknown room yields an empty page.
func (l *Ledger) Page(room string, limit, offset int) []*Message {
	msgs := l.byRoom[room]
	if limit <= 0 || offset < 0 {
		return []*Message{}
	}
	end := len(msgs) - offset
	if end <= 0 {
		return []*Message{}
	}
	start := end - limit
	if start < 0 {
		start = 0
	}
	out := make([]*Message, 0, end-start)
	for _, m := range msgs[start:end] {
		out = append(out, m.clone())
	}
	return out
}

// Len reports the number of stored messages in room.
func (l *Ledger) Len(room string) int {
	return len(l.byRoom[room])
}

// Total reports the number of stored messages across all rooms.
func (l *Ledger) Total() int {
	n := 0
	for _, msgs := range l.byRoom {
		n += len(msgs)
	}
	return n
}

func (l *Ledger) find(room string, messageID int64) *Message {
	for _, m := range l.byRoom[room] {
		if m.ID == messageID {
			return m
		}
	}
	return nil
}
