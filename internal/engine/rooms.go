package engine

// Directory is the set of valid room names, in insertion order with the
// default room first. Rooms are never deleted. Not safe for concurrent use;
// the engine serializes access.
type Directory struct {
	names []string
	index map[string]struct{}
}

func NewDirectory(defaultRoom string) *Directory {
	d := &Directory{index: make(map[string]struct{})}
	d.Create(defaultRoom)
	return d
}

// Create adds a room and reports whether it was new. Creating an existing
// room is a no-op, never an error.
func (d *Directory) Create(name string) bool {
	if _, ok := d.index[name]; ok {
		return false
	}
	d.index[name] = struct{}{}
	d.names = append(d.names, name)
	return true
}

func (d *Directory) Exists(name string) bool {
	_, ok := d.index[name]
	return ok
}

// List returns a snapshot of room names in creation order.
func (d *Directory) List() []string {
	return append([]string(nil), d.names...)
}

func (d *Directory) Len() int {
	return len(d.names)
}
