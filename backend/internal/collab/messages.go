package collab

import (
	"time"

	"docsync/backend/internal/ot/delta"
)

// Server→client message type strings.
const (
	TypeSnapshot       = "document-snapshot"
	TypeEditBroadcast  = "edit-broadcast"
	TypeEditAck        = "edit-ack"
	TypeTitleBroadcast = "title-broadcast"
	TypePeerJoined     = "peer-joined"
	TypePeerLeft       = "peer-left"
	TypeSaveAck        = "save-ack"
	TypeCursorUpdate   = "cursor-update"
)

// Outbound is a server→client message. The transport layer serializes it as
// is; every concrete message carries its own "type" field.
type Outbound interface {
	MessageType() string
}

// Peer is one attached connection as the session sees it. Enqueue must never
// block; it reports false when the peer's queue is full and the message was
// dropped.
type Peer interface {
	ConnID() string
	Enqueue(msg Outbound) bool
}

// SnapshotMessage is sent once to a joining connection. Its revision is
// exactly the session revision at attach time.
type SnapshotMessage struct {
	Type     string `json:"type"`
	DocID    string `json:"docId"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Revision uint64 `json:"revision"`
}

// EditBroadcast pushes an accepted operation to every peer except its origin.
type EditBroadcast struct {
	Type      string      `json:"type"`
	DocID     string      `json:"docId"`
	Revision  uint64      `json:"revision"` // revision after applying Ops
	Origin    string      `json:"origin"`   // connection that submitted
	Ops       delta.Delta `json:"ops"`
	AppliedAt time.Time   `json:"appliedAt,omitempty"`
}

// EditAck confirms acceptance to the origin only. Content deltas are never
// echoed back.
type EditAck struct {
	Type     string `json:"type"`
	DocID    string `json:"docId"`
	Revision uint64 `json:"revision"`
}

// TitleBroadcast goes to all attached peers including the origin; title
// changes are idempotent and safe to echo.
type TitleBroadcast struct {
	Type   string `json:"type"`
	DocID  string `json:"docId"`
	Title  string `json:"title"`
	Origin string `json:"origin,omitempty"`
}

type PeerJoined struct {
	Type     string    `json:"type"`
	DocID    string    `json:"docId"`
	ConnID   string    `json:"connId"`
	JoinedAt time.Time `json:"joinedAt"`
}

type PeerLeft struct {
	Type   string `json:"type"`
	DocID  string `json:"docId"`
	ConnID string `json:"connId"`
}

// SaveAck is broadcast after a successful autosave flush.
type SaveAck struct {
	Type     string    `json:"type"`
	DocID    string    `json:"docId"`
	Revision uint64    `json:"revision"`
	SavedAt  time.Time `json:"savedAt"`
}

// CursorUpdate relays another peer's cursor position.
type CursorUpdate struct {
	Type     string `json:"type"`
	DocID    string `json:"docId"`
	ConnID   string `json:"connId"`
	Position any    `json:"position"`
}

func (m SnapshotMessage) MessageType() string { return m.Type }
func (m EditBroadcast) MessageType() string   { return m.Type }
func (m EditAck) MessageType() string         { return m.Type }
func (m TitleBroadcast) MessageType() string  { return m.Type }
func (m PeerJoined) MessageType() string      { return m.Type }
func (m PeerLeft) MessageType() string        { return m.Type }
func (m SaveAck) MessageType() string         { return m.Type }
func (m CursorUpdate) MessageType() string    { return m.Type }
