package collab

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Session is the live in-memory state of one open document plus its attached
// peers. The Registry exclusively owns all sessions; every mutation goes
// through mu, so per-session changes are serialized while sessions for
// different documents proceed fully in parallel.
type Session struct {
	docID string

	loadOnce  sync.Once
	loadErr   error
	saveOnce  sync.Once
	stopSaver chan struct{}
	done      chan struct{} // closed once teardown's final flush has landed

	// flushMu serializes store writes for this session so an older snapshot
	// can never land after a newer one. It is never held together with mu.
	flushMu sync.Mutex

	mu         sync.Mutex
	title      string
	buf        Buffer
	revision   uint64
	savedRev   uint64 // last revision successfully flushed to the store
	titleDirty bool
	modifiedAt time.Time
	peers      map[string]Peer
	closed     bool
}

func newSession(docID string) *Session {
	return &Session{
		docID:     docID,
		stopSaver: make(chan struct{}),
		done:      make(chan struct{}),
		peers:     make(map[string]Peer),
	}
}

func (s *Session) DocID() string { return s.docID }

// load pulls the document from the store, falling back to the default
// template when the store has never seen it. The store read happens without
// holding mu; only the swap-in takes the lock.
func (s *Session) load(ctx context.Context, store DocumentStore) error {
	doc, err := store.Load(ctx, s.docID)
	switch {
	case err == nil:
	case errors.Is(err, ErrDocumentNotFound):
		doc = StoredDocument{DocID: s.docID, Title: DefaultTitle, Content: DefaultContent}
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	s.title = doc.Title
	s.buf = NewPieceTable(doc.Content)
	s.revision = doc.Revision
	s.savedRev = doc.Revision
	s.modifiedAt = time.Now()
	s.mu.Unlock()
	return nil
}

// Snapshot returns a consistent view of the current authoritative state.
func (s *Session) Snapshot() (title, content string, revision uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title, s.buf.String(), s.revision
}

// Revision returns the current revision counter.
func (s *Session) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// PeerCount reports how many connections are attached.
func (s *Session) PeerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

// SetTitle updates the document title and echoes it to every attached peer
// including the origin.
func (s *Session) SetTitle(origin, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.peers[origin]; !ok {
		return ErrNotAttached
	}
	s.title = title
	s.titleDirty = true
	s.modifiedAt = time.Now()
	s.broadcastLocked("", TitleBroadcast{Type: TypeTitleBroadcast, DocID: s.docID, Title: title, Origin: origin})
	return nil
}

// RelayCursor forwards a cursor position to every other peer.
func (s *Session) RelayCursor(origin string, position any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastLocked(origin, CursorUpdate{Type: TypeCursorUpdate, DocID: s.docID, ConnID: origin, Position: position})
}

func (s *Session) snapshotLocked() SnapshotMessage {
	return SnapshotMessage{
		Type:     TypeSnapshot,
		DocID:    s.docID,
		Title:    s.title,
		Content:  s.buf.String(),
		Revision: s.revision,
	}
}

// broadcastLocked enqueues msg to every peer except the one named by except
// (empty string means everyone). Callers hold mu, which is what makes the
// delivery order identical for all peers.
func (s *Session) broadcastLocked(except string, msg Outbound) {
	for id, p := range s.peers {
		if id == except {
			continue
		}
		p.Enqueue(msg)
	}
}
