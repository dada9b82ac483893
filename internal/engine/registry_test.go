package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() (*Registry, *Directory) {
	rooms := NewDirectory("General")
	rooms.Create("Random")
	return NewRegistry(rooms, "General"), rooms
}

func TestRegistryRegisterPlacesInDefaultRoom(t *testing.T) {
	r, _ := newTestRegistry()

	c, err := r.Register("c1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "General", c.Room)
	assert.Equal(t, "alice", c.Username)

	_, err = r.Register("c1", "alice")
	assert.ErrorIs(t, err, ErrDuplicateConnection)
}

func TestRegistryMultiDeviceUsernames(t *testing.T) {
	r, _ := newTestRegistry()

	_, err := r.Register("c1", "alice")
	require.NoError(t, err)
	_, err = r.Register("c2", "alice")
	require.NoError(t, err, "same username on a second connection is allowed")

	assert.Len(t, r.List(), 2)
}

func TestRegistrySetRoom(t *testing.T) {
	r, _ := newTestRegistry()
	_, err := r.Register("c1", "alice")
	require.NoError(t, err)

	require.NoError(t, r.SetRoom("c1", "Random"))
	c, err := r.Lookup("c1")
	require.NoError(t, err)
	assert.Equal(t, "Random", c.Room)

	// idempotent re-entry
	require.NoError(t, r.SetRoom("c1", "Random"))

	assert.ErrorIs(t, r.SetRoom("c1", "Nowhere"), ErrUnknownRoom)
	assert.ErrorIs(t, r.SetRoom("ghost", "Random"), ErrNotFound)
}

func TestRegistryUnregisterReturnsPriorState(t *testing.T) {
	r, _ := newTestRegistry()
	_, err := r.Register("c1", "alice")
	require.NoError(t, err)
	require.NoError(t, r.SetRoom("c1", "Random"))

	c, err := r.Unregister("c1")
	require.NoError(t, err)
	assert.Equal(t, "Random", c.Room, "caller needs the last room for cleanup")

	_, err = r.Unregister("c1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.Lookup("c1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryInRoom(t *testing.T) {
	r, _ := newTestRegistry()
	for _, id := range []string{"c1", "c2", "c3"} {
		_, err := r.Register(id, "user-"+id)
		require.NoError(t, err)
	}
	require.NoError(t, r.SetRoom("c2", "Random"))

	assert.Equal(t, []string{"c1", "c3"}, r.InRoom("General"))
	assert.Equal(t, []string{"c2"}, r.InRoom("Random"))
	assert.Empty(t, r.InRoom("Nowhere"))
}

func TestDirectoryCreateIdempotentAndOrdered(t *testing.T) {
	d := NewDirectory("General")

	assert.True(t, d.Create("Random"))
	assert.False(t, d.Create("Random"), "re-creating is a no-op, never an error")
	assert.True(t, d.Create("Alpha"))

	assert.Equal(t, []string{"General", "Random", "Alpha"}, d.List(), "insertion order, default room first")
	assert.True(t, d.Exists("General"))
	assert.False(t, d.Exists("Zeta"))
}
