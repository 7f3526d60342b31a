package collab

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docsync/backend/internal/ot/delta"
)

// AppliedOp records one accepted edit operation after sequencing.
type AppliedOp struct {
	OperationID string      `json:"operationId"`
	DocID       string      `json:"docId"`
	Revision    uint64      `json:"revision"`
	Origin      string      `json:"origin"` // connection that submitted
	Ops         delta.Delta `json:"ops"`
	AppliedAt   time.Time   `json:"appliedAt"`
}

// Sequencer orders and relays edit operations within a session. For any two
// operations accepted into the same session, application order and broadcast
// order are identical and equal to acceptance order: the revision increment,
// the content mutation and the per-peer enqueues all happen under one hold
// of the session lock.
//
// No transform or merge runs here; concurrent edits to overlapping regions
// compose last-write-wins. That is a documented weakness of the protocol,
// and OT/CRDT merging is the natural evolution point.
type Sequencer struct {
	events *EventDispatcher // optional firehose; nil disables publishing
}

func NewSequencer(events *EventDispatcher) *Sequencer {
	return &Sequencer{events: events}
}

// Submit validates, sequences, applies and broadcasts one operation. The
// origin receives an ack with the assigned revision, never the operation
// itself; every other attached peer receives the edit-broadcast.
func (q *Sequencer) Submit(ctx context.Context, s *Session, p Peer, ops delta.Delta) (AppliedOp, error) {
	if err := ops.Validate(); err != nil {
		return AppliedOp{}, fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}

	s.mu.Lock()
	if _, ok := s.peers[p.ConnID()]; !ok {
		s.mu.Unlock()
		return AppliedOp{}, ErrNotAttached
	}
	if err := s.buf.Apply(ops); err != nil {
		s.mu.Unlock()
		return AppliedOp{}, fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}

	s.revision++
	s.modifiedAt = time.Now()
	applied := AppliedOp{
		OperationID: uuid.NewString(),
		DocID:       s.docID,
		Revision:    s.revision,
		Origin:      p.ConnID(),
		Ops:         ops,
		AppliedAt:   s.modifiedAt,
	}

	s.broadcastLocked(p.ConnID(), EditBroadcast{
		Type:      TypeEditBroadcast,
		DocID:     s.docID,
		Revision:  applied.Revision,
		Origin:    applied.Origin,
		Ops:       ops,
		AppliedAt: applied.AppliedAt,
	})
	p.Enqueue(EditAck{Type: TypeEditAck, DocID: s.docID, Revision: applied.Revision})
	s.mu.Unlock()

	if q.events != nil {
		q.events.EnqueueEditApplied(ctx, applied)
	}
	return applied, nil
}
