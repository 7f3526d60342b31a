package collab

import (
	"context"
	"fmt"
	"log"
	"time"
)

// DefaultAutosaveInterval matches the editor's historical 2s save cadence,
// consolidated to one timer per session instead of one per connection.
const DefaultAutosaveInterval = 2 * time.Second

// Autosaver periodically flushes dirty sessions to the document store. A
// failed flush is logged and retried on the next tick; it never blocks edit
// delivery and never fails the session.
type Autosaver struct {
	store    DocumentStore
	interval time.Duration
	events   *EventDispatcher // optional
}

func NewAutosaver(store DocumentStore, interval time.Duration, events *EventDispatcher) *Autosaver {
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	return &Autosaver{store: store, interval: interval, events: events}
}

// run is the per-session autosave loop; the registry starts it on first open
// and stops it through the session's stop channel on teardown.
func (a *Autosaver) run(s *Session) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := a.Flush(context.Background(), s, false); err != nil {
				log.Printf("autosave flush failed doc=%s: %v", s.docID, err)
			}
		case <-s.stopSaver:
			return
		}
	}
}

// Flush persists the session's current content and revision. Clean sessions
// are skipped unless force is set (session teardown flushes
// unconditionally). The store write runs without the session lock; only the
// state reads and the post-save bookkeeping take it. Flushes for one session
// are serialized by flushMu, so an in-flight tick can never finish after the
// teardown flush and overwrite the final revision with an older one.
func (a *Autosaver) Flush(ctx context.Context, s *Session, force bool) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	if s.buf == nil {
		// never loaded, nothing to persist
		s.mu.Unlock()
		return nil
	}
	dirty := s.revision != s.savedRev || s.titleDirty
	if !dirty && !force {
		s.mu.Unlock()
		return nil
	}
	title := s.title
	content := s.buf.String()
	rev := s.revision
	s.mu.Unlock()

	if err := a.store.Save(ctx, s.docID, title, content, rev); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	savedAt := time.Now()
	s.mu.Lock()
	if rev >= s.savedRev {
		s.savedRev = rev
		s.titleDirty = false
	}
	s.broadcastLocked("", SaveAck{Type: TypeSaveAck, DocID: s.docID, Revision: rev, SavedAt: savedAt})
	s.mu.Unlock()

	if a.events != nil {
		a.events.EnqueueSnapshotSaved(ctx, s.docID, rev)
	}
	return nil
}
