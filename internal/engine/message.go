package engine

import "time"

type MessageKind string

const (
	KindText   MessageKind = "text"
	KindFile   MessageKind = "file"
	KindSystem MessageKind = "system"
)

// Connection is one live client session. A username may own several
// connections at once; they are tracked independently.
type Connection struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Room     string `json:"room"`
}

// Message is a single ledger entry. ReadBy and Reactions grow monotonically;
// file fields are only set for KindFile. Private messages reuse this shape on
// the wire but are never stored.
type Message struct {
	ID        int64               `json:"id"`
	Room      string              `json:"room,omitempty"`
	Sender    string              `json:"sender"`
	SenderID  string              `json:"senderId"`
	Timestamp time.Time           `json:"timestamp"`
	Kind      MessageKind         `json:"kind"`
	Content   string              `json:"content,omitempty"`
	FileName  string              `json:"fileName,omitempty"`
	FileType  string              `json:"fileType,omitempty"`
	FileData  string              `json:"fileData,omitempty"`
	IsPrivate bool                `json:"isPrivate,omitempty"`
	To        string              `json:"to,omitempty"`
	ReadBy    []string            `json:"readBy,omitempty"`
	Reactions map[string][]string `json:"reactions,omitempty"`
}

// clone returns a deep copy so the ledger's internal state never escapes to
// callers or the fan-out path.
func (m *Message) clone() *Message {
	out := *m
	if m.ReadBy != nil {
		out.ReadBy = append([]string(nil), m.ReadBy...)
	}
	if m.Reactions != nil {
		out.Reactions = make(map[string][]string, len(m.Reactions))
		for emoji, users := range m.Reactions {
			out.Reactions[emoji] = append([]string(nil), users...)
		}
	}
	return &out
}
