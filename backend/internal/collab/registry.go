package collab

import (
	"context"
	"log"
	"sync"
	"time"
)

// Registry tracks which sessions are open and owns their lifecycle: created
// on first join, destroyed when the last connection detaches (with a final
// flush). It is the Session Registry of the service.
type Registry struct {
	store DocumentStore
	saver *Autosaver

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(store DocumentStore, saver *Autosaver) *Registry {
	return &Registry{
		store:    store,
		saver:    saver,
		sessions: make(map[string]*Session),
	}
}

// OpenSession returns the live session for docID, loading the document from
// the store on cold start. A missing document becomes the default template;
// an unreachable store fails with ErrStoreUnavailable and leaves no session
// behind, so a later open retries the load.
func (r *Registry) OpenSession(ctx context.Context, docID string) (*Session, error) {
	s := r.getOrCreate(docID)

	s.loadOnce.Do(func() {
		s.loadErr = s.load(ctx, r.store)
	})
	if s.loadErr != nil {
		r.mu.Lock()
		if r.sessions[docID] == s {
			delete(r.sessions, docID)
		}
		r.mu.Unlock()
		return nil, s.loadErr
	}

	// one autosave loop per session, not per connection
	if r.saver != nil {
		s.saveOnce.Do(func() {
			go r.saver.run(s)
		})
	}
	return s, nil
}

func (r *Registry) getOrCreate(docID string) *Session {
	for {
		r.mu.Lock()
		s := r.sessions[docID]
		if s == nil {
			s = newSession(docID)
			r.sessions[docID] = s
			r.mu.Unlock()
			return s
		}
		r.mu.Unlock()

		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if !closed {
			return s
		}
		// the session is tearing down; wait for its final flush to land so
		// the fresh session loads the departed peers' last edits
		<-s.done
	}
}

// Lookup returns the live session for docID without opening one.
func (r *Registry) Lookup(docID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[docID]
	return s, ok
}

// Attach adds a peer to the session's connection set. The joiner gets a
// snapshot whose revision is exactly the session revision at this moment;
// everyone else gets peer-joined. Both happen under the session lock, so no
// later edit broadcast can slip in front of the snapshot.
func (r *Registry) Attach(s *Session, p Peer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.peers[p.ConnID()] = p
	p.Enqueue(s.snapshotLocked())
	s.broadcastLocked(p.ConnID(), PeerJoined{Type: TypePeerJoined, DocID: s.docID, ConnID: p.ConnID(), JoinedAt: time.Now()})
	return nil
}

// Detach removes a peer. Remaining peers get peer-left; removing the last
// peer tears the session down with one unconditional final flush.
func (r *Registry) Detach(ctx context.Context, s *Session, p Peer) {
	s.mu.Lock()
	if _, ok := s.peers[p.ConnID()]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.peers, p.ConnID())
	if len(s.peers) > 0 {
		s.broadcastLocked("", PeerLeft{Type: TypePeerLeft, DocID: s.docID, ConnID: p.ConnID()})
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	r.destroy(ctx, s)
}

// destroy flushes the closed session and only then unregisters it. The order
// matters: while the flush is in flight the closed session stays in the map,
// so a racing open waits on done instead of loading stale store content.
func (r *Registry) destroy(ctx context.Context, s *Session) {
	close(s.stopSaver)
	if r.saver != nil {
		if err := r.saver.Flush(ctx, s, true); err != nil {
			log.Printf("final flush failed doc=%s: %v", s.docID, err)
		}
	}

	r.mu.Lock()
	if r.sessions[s.docID] == s {
		delete(r.sessions, s.docID)
	}
	r.mu.Unlock()
	close(s.done)
}
