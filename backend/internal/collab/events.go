package collab

import (
	"time"

	"docsync/backend/internal/ot/delta"
)

const (
	EventEditApplied   = "EDIT_APPLIED"
	EventTitleChanged  = "TITLE_CHANGED"
	EventSnapshotSaved = "SNAPSHOT_SAVED"
)

// DocEvent is the Kafka-facing record of something that happened to a
// document. Keyed by docID on the wire so one document's events stay in one
// partition.
type DocEvent struct {
	EventType   string      `json:"eventType"`
	DocID       string      `json:"docId"`
	OperationID string      `json:"operationId,omitempty"`
	Revision    uint64      `json:"revision,omitempty"`
	Origin      string      `json:"origin,omitempty"`
	Title       string      `json:"title,omitempty"`
	Ops         delta.Delta `json:"ops,omitempty"`
	At          time.Time   `json:"at"`
}
