package ws

import "docsync/backend/internal/ot/delta"

// Client→server message type strings.
const (
	TypeJoinDocument   = "join-document"
	TypeSubmitEdit     = "submit-edit"
	TypeSetTitle       = "set-title"
	TypeCursorPosition = "cursor-position"
	TypeHeartbeat      = "heartbeat"
)

// ClientMessage is the inbound wire envelope. Fields beyond Type and DocID
// are populated per message type.
type ClientMessage struct {
	Type     string      `json:"type"`
	DocID    string      `json:"docId"`
	Title    string      `json:"title,omitempty"`
	Ops      delta.Delta `json:"ops,omitempty"`
	Position any         `json:"position,omitempty"`
}

// ErrorMessage reports a session-local failure to the sender only.
type ErrorMessage struct {
	Type    string `json:"type"` // always "error"
	DocID   string `json:"docId,omitempty"`
	Code    string `json:"code"`
	Content string `json:"content,omitempty"`
}

func (m ErrorMessage) MessageType() string { return m.Type }

// PresenceMessage pushes the live roster of a document room.
type PresenceMessage struct {
	Type    string           `json:"type"` // always "presence"
	DocID   string           `json:"docId"`
	Members []PresenceMember `json:"members"`
}

type PresenceMember struct {
	ConnID string `json:"connId"`
	Name   string `json:"name,omitempty"`
}

func (m PresenceMessage) MessageType() string { return m.Type }
