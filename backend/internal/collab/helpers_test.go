package collab

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakePeer records every enqueued message in order.
type fakePeer struct {
	id string

	mu   sync.Mutex
	msgs []Outbound
}

func newFakePeer(id string) *fakePeer { return &fakePeer{id: id} }

func (p *fakePeer) ConnID() string { return p.id }

func (p *fakePeer) Enqueue(msg Outbound) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return true
}

func (p *fakePeer) messages() []Outbound {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Outbound, len(p.msgs))
	copy(out, p.msgs)
	return out
}

func (p *fakePeer) ofType(t string) []Outbound {
	var out []Outbound
	for _, m := range p.messages() {
		if m.MessageType() == t {
			out = append(out, m)
		}
	}
	return out
}

type savedDoc struct {
	Title    string
	Content  string
	Revision uint64
}

// fakeStore is an in-memory DocumentStore with switchable failure modes.
// Setting saveStarted/saveRelease (before any concurrency) turns Save into a
// gate: it signals saveStarted, then blocks until saveRelease is closed.
type fakeStore struct {
	mu       sync.Mutex
	docs     map[string]savedDoc
	failLoad bool
	failSave bool
	saves    []savedDoc // every successful Save, in order

	saveStarted chan struct{}
	saveRelease chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[string]savedDoc)}
}

func (s *fakeStore) Load(ctx context.Context, docID string) (StoredDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLoad {
		return StoredDocument{}, errors.New("connection refused")
	}
	doc, ok := s.docs[docID]
	if !ok {
		return StoredDocument{}, ErrDocumentNotFound
	}
	return StoredDocument{DocID: docID, Title: doc.Title, Content: doc.Content, Revision: doc.Revision, UpdatedAt: time.Now()}, nil
}

func (s *fakeStore) Save(ctx context.Context, docID, title, content string, revision uint64) error {
	if s.saveStarted != nil {
		select {
		case s.saveStarted <- struct{}{}:
		default:
		}
	}
	if s.saveRelease != nil {
		<-s.saveRelease
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return errors.New("connection refused")
	}
	doc := savedDoc{Title: title, Content: content, Revision: revision}
	s.docs[docID] = doc
	s.saves = append(s.saves, doc)
	return nil
}

func (s *fakeStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saves)
}

func (s *fakeStore) lastSave() (savedDoc, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.saves) == 0 {
		return savedDoc{}, false
	}
	return s.saves[len(s.saves)-1], true
}

// newTestRig wires a registry, sequencer and coordinator over a fakeStore
// with a long autosave interval so ticks never interfere with tests.
func newTestRig(store *fakeStore) (*Registry, *Sequencer, *Coordinator) {
	saver := NewAutosaver(store, time.Hour, nil)
	registry := NewRegistry(store, saver)
	sequencer := NewSequencer(nil)
	coordinator := NewCoordinator(registry, sequencer, nil)
	return registry, sequencer, coordinator
}
