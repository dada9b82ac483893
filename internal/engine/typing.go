package engine

import "sort"

// TypingSet tracks which connections are typing in each room. The observable
// unit is the username set: a user typing from two devices appears once, and
// transitions are reported against that set so callers only broadcast when
// the visible list actually changes. Not safe for concurrent use; the engine
// serializes access.
type TypingSet struct {
	byRoom map[string]map[string]string // room -> connID -> username
}

func NewTypingSet() *TypingSet {
	return &TypingSet{byRoom: make(map[string]map[string]string)}
}

// SetTyping flips the typing flag for a connection and reports whether the
// room's visible username set changed.
func (t *TypingSet) SetTyping(room, connID, username string, isTyping bool) bool {
	if !isTyping {
		return t.Clear(room, connID)
	}
	conns := t.byRoom[room]
	if conns == nil {
		conns = make(map[string]string)
		t.byRoom[room] = conns
	}
	visible := t.hasUser(room, username)
	conns[connID] = username
	return !visible
}

// Clear drops the connection's typing entry regardless of prior state and
// reports whether the username disappeared from the room's visible set. Used
// on stop-typing, message send, room switch, and disconnect.
func (t *TypingSet) Clear(room, connID string) bool {
	conns := t.byRoom[room]
	username, ok := conns[connID]
	if !ok {
		return false
	}
	delete(conns, connID)
	if len(conns) == 0 {
		delete(t.byRoom, room)
	}
	return !t.hasUser(room, username)
}

// Typers returns the sorted usernames currently typing in room.
func (t *TypingSet) Typers(room string) []string {
	seen := make(map[string]struct{})
	users := make([]string, 0, len(t.byRoom[room]))
	for _, u := range t.byRoom[room] {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

// Len reports the number of typing connections across all rooms.
func (t *TypingSet) Len() int {
	n := 0
	for _, conns := range t.byRoom {
		n += len(conns)
	}
	return n
}

func (t *TypingSet) hasUser(room, username string) bool {
	for _, u := range t.byRoom[room] {
		if u == username {
			return true
		}
	}
	return false
}
