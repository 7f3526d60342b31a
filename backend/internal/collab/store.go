package collab

import (
	"context"
	"time"
)

// StoredDocument is the durable shape of a document: the latest snapshot the
// store holds. The in-memory session copy is authoritative once loaded; the
// stored copy may lag by at most one autosave interval.
type StoredDocument struct {
	DocID     string
	Title     string
	Content   string
	Revision  uint64
	UpdatedAt time.Time
}

// DocumentStore is the persistence boundary consumed by the registry and the
// autosaver. Implementations live in internal/store.
type DocumentStore interface {
	// Load returns the latest stored snapshot, or ErrDocumentNotFound.
	Load(ctx context.Context, docID string) (StoredDocument, error)

	// Save persists a snapshot. Saving the same (docID, revision) twice must
	// be harmless.
	Save(ctx context.Context, docID, title, content string, revision uint64) error
}

// Defaults for documents that do not exist in the store yet.
const (
	DefaultTitle   = "Untitled Document"
	DefaultContent = "Welcome to Collaborative Editor!\n"
)
