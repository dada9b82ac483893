package engine

import (
	"fmt"
	"sort"
)

// Registry tracks live connections and the room each one is in. Keyed by
// connection id, not username: the same user may be connected from several
// devices and none of them are deduplicated. Not safe for concurrent use;
// the engine serializes access.
type Registry struct {
	rooms       *Directory
	defaultRoom string
	conns       map[string]*Connection
}

func NewRegistry(rooms *Directory, defaultRoom string) *Registry {
	return &Registry{
		rooms:       rooms,
		defaultRoom: defaultRoom,
		conns:       make(map[string]*Connection),
	}
}

// Register creates a connection in the default room.
func (r *Registry) Register(connID, username string) (*Connection, error) {
	if _, ok := r.conns[connID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateConnection, connID)
	}
	c := &Connection{ID: connID, Username: username, Room: r.defaultRoom}
	r.conns[connID] = c
	return c, nil
}

func (r *Registry) Lookup(connID string) (*Connection, error) {
	c, ok := r.conns[connID]
	if !ok {
		return nil, fmt.Errorf("%w: connection %s", ErrNotFound, connID)
	}
	return c, nil
}

// SetRoom moves a connection into roomName. Moving into the current room is
// a no-op.
func (r *Registry) SetRoom(connID, roomName string) error {
	if !r.rooms.Exists(roomName) {
		return fmt.Errorf("%w: %s", ErrUnknownRoom, roomName)
	}
	c, ok := r.conns[connID]
	if !ok {
		return fmt.Errorf("%w: connection %s", ErrNotFound, connID)
	}
	c.Room = roomName
	return nil
}

// Unregister removes a connection and returns its last state so the caller
// can release the room/typing footprint.
func (r *Registry) Unregister(connID string) (*Connection, error) {
	c, ok := r.conns[connID]
	if !ok {
		return nil, fmt.Errorf("%w: connection %s", ErrNotFound, connID)
	}
	delete(r.conns, connID)
	return c, nil
}

// List returns a stable snapshot of all connections, ordered by username
// then id.
func (r *Registry) List() []*Connection {
	out := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		cc := *c
		out = append(out, &cc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Username != out[j].Username {
			return out[i].Username < out[j].Username
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// InRoom returns the ids of every connection currently in room.
func (r *Registry) InRoom(room string) []string {
	var ids []string
	for id, c := range r.conns {
		if c.Room == room {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) Len() int {
	return len(r.conns)
}
