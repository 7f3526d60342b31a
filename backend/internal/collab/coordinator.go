package collab

import (
	"context"
	"sync"

	"docsync/backend/internal/ot/delta"
)

// Coordinator wires connection lifecycle to the registry and the sequencer.
// It keeps the peer→session index so a closing connection can be detached
// from every session it joined.
type Coordinator struct {
	registry  *Registry
	sequencer *Sequencer
	events    *EventDispatcher // optional

	mu     sync.Mutex
	joined map[string]map[string]*Session // connID -> docID -> session
}

func NewCoordinator(registry *Registry, sequencer *Sequencer, events *EventDispatcher) *Coordinator {
	return &Coordinator{
		registry:  registry,
		sequencer: sequencer,
		events:    events,
		joined:    make(map[string]map[string]*Session),
	}
}

// JoinDocument opens (or finds) the session for docID and attaches the peer.
// The joining peer alone receives the initial snapshot; join failures are
// surfaced to the requester only.
func (c *Coordinator) JoinDocument(ctx context.Context, p Peer, docID string) error {
	var err error
	// an attach can race a last-peer teardown; reopen once
	for range 2 {
		var s *Session
		s, err = c.registry.OpenSession(ctx, docID)
		if err != nil {
			return err
		}
		if err = c.registry.Attach(s, p); err == nil {
			c.mu.Lock()
			if c.joined[p.ConnID()] == nil {
				c.joined[p.ConnID()] = make(map[string]*Session)
			}
			c.joined[p.ConnID()][docID] = s
			c.mu.Unlock()
			return nil
		}
	}
	return err
}

// SubmitEdit hands an operation for a joined document to the sequencer.
func (c *Coordinator) SubmitEdit(ctx context.Context, p Peer, docID string, ops delta.Delta) (AppliedOp, error) {
	s, ok := c.lookup(p, docID)
	if !ok {
		return AppliedOp{}, ErrNotAttached
	}
	return c.sequencer.Submit(ctx, s, p, ops)
}

// SetTitle updates the session title and echoes it to all peers including
// the origin.
func (c *Coordinator) SetTitle(ctx context.Context, p Peer, docID, title string) error {
	s, ok := c.lookup(p, docID)
	if !ok {
		return ErrNotAttached
	}
	if err := s.SetTitle(p.ConnID(), title); err != nil {
		return err
	}
	if c.events != nil {
		c.events.EnqueueTitleChanged(ctx, docID, title, p.ConnID())
	}
	return nil
}

// RelayCursor forwards a cursor position to the other peers of the session.
func (c *Coordinator) RelayCursor(p Peer, docID string, position any) {
	if s, ok := c.lookup(p, docID); ok {
		s.RelayCursor(p.ConnID(), position)
	}
}

// ConnectionClosed detaches the peer from every session it joined. Operations
// already accepted by the sequencer were broadcast under the session lock, so
// remaining peers keep them regardless of this teardown.
func (c *Coordinator) ConnectionClosed(ctx context.Context, p Peer) {
	c.mu.Lock()
	sessions := c.joined[p.ConnID()]
	delete(c.joined, p.ConnID())
	c.mu.Unlock()

	for _, s := range sessions {
		c.registry.Detach(ctx, s, p)
	}
}

func (c *Coordinator) lookup(p Peer, docID string) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.joined[p.ConnID()][docID]
	return s, ok
}
