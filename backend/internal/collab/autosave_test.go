package collab

import (
	"context"
	"errors"
	"testing"

	"docsync/backend/internal/ot/delta"
)

func TestFlush_SkipsCleanSession(t *testing.T) {
	store := newFakeStore()
	registry, _, _ := newTestRig(store)
	saver := NewAutosaver(store, 0, nil)
	a := newFakePeer("a")
	s := openWithPeers(t, registry, "doc1", a)

	if err := saver.Flush(context.Background(), s, false); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if got := store.saveCount(); got != 0 {
		t.Fatalf("clean session saved %d times, want 0", got)
	}
	if got := len(a.ofType(TypeSaveAck)); got != 0 {
		t.Fatalf("clean flush sent %d save-acks, want 0", got)
	}
}

func TestFlush_PersistsDirtySessionOnce(t *testing.T) {
	store := newFakeStore()
	registry, sequencer, _ := newTestRig(store)
	saver := NewAutosaver(store, 0, nil)
	a, b := newFakePeer("a"), newFakePeer("b")
	s := openWithPeers(t, registry, "doc1", a, b)

	if _, err := sequencer.Submit(context.Background(), s, a, delta.Delta{delta.Insert("x")}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if err := saver.Flush(context.Background(), s, false); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if got := store.saveCount(); got != 1 {
		t.Fatalf("store saved %d times, want 1", got)
	}
	saved, _ := store.lastSave()
	if saved.Revision != 1 {
		t.Fatalf("saved revision = %d, want 1", saved.Revision)
	}

	// save-ack reaches every attached peer
	for _, p := range []*fakePeer{a, b} {
		acks := p.ofType(TypeSaveAck)
		if len(acks) != 1 {
			t.Fatalf("peer %s received %d save-acks, want 1", p.ConnID(), len(acks))
		}
		if got := acks[0].(SaveAck).Revision; got != 1 {
			t.Fatalf("save-ack revision = %d, want 1", got)
		}
	}

	// a second tick with no further edits writes nothing
	if err := saver.Flush(context.Background(), s, false); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if got := store.saveCount(); got != 1 {
		t.Fatalf("no-op flush wrote again: %d saves, want 1", got)
	}
}

func TestFlush_TitleOnlyChangeIsDirty(t *testing.T) {
	store := newFakeStore()
	registry, _, _ := newTestRig(store)
	saver := NewAutosaver(store, 0, nil)
	a := newFakePeer("a")
	s := openWithPeers(t, registry, "doc1", a)

	if err := s.SetTitle("a", "New Title"); err != nil {
		t.Fatalf("SetTitle() error = %v", err)
	}
	if err := saver.Flush(context.Background(), s, false); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	saved, ok := store.lastSave()
	if !ok || saved.Title != "New Title" {
		t.Fatalf("flushed title = %q, want %q", saved.Title, "New Title")
	}
}

func TestFlush_FailureRetriesNextTick(t *testing.T) {
	store := newFakeStore()
	registry, sequencer, _ := newTestRig(store)
	saver := NewAutosaver(store, 0, nil)
	a := newFakePeer("a")
	s := openWithPeers(t, registry, "doc1", a)

	if _, err := sequencer.Submit(context.Background(), s, a, delta.Delta{delta.Insert("x")}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	store.mu.Lock()
	store.failSave = true
	store.mu.Unlock()
	if err := saver.Flush(context.Background(), s, false); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("Flush() = %v, want ErrStoreUnavailable", err)
	}
	if got := len(a.ofType(TypeSaveAck)); got != 0 {
		t.Fatalf("failed flush sent %d save-acks, want 0", got)
	}

	// edits keep flowing while the store is down
	if _, err := sequencer.Submit(context.Background(), s, a, delta.Delta{delta.Insert("y")}); err != nil {
		t.Fatalf("Submit() during outage error = %v", err)
	}

	// next tick succeeds and persists the latest state
	store.mu.Lock()
	store.failSave = false
	store.mu.Unlock()
	if err := saver.Flush(context.Background(), s, false); err != nil {
		t.Fatalf("Flush() after recovery error = %v", err)
	}
	saved, _ := store.lastSave()
	if saved.Revision != 2 {
		t.Fatalf("saved revision = %d, want 2", saved.Revision)
	}
}

func TestFlush_StalledTickNeverOverwritesFinalFlush(t *testing.T) {
	store := newFakeStore()
	store.saveStarted = make(chan struct{}, 2)
	store.saveRelease = make(chan struct{})
	registry, sequencer, _ := newTestRig(store)
	saver := NewAutosaver(store, 0, nil)
	a := newFakePeer("a")
	s := openWithPeers(t, registry, "doc1", a)

	if _, err := sequencer.Submit(context.Background(), s, a, delta.Delta{delta.Insert("one")}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	// a periodic flush stalls inside the store write at revision 1
	tickDone := make(chan error, 1)
	go func() { tickDone <- saver.Flush(context.Background(), s, false) }()
	<-store.saveStarted

	if _, err := sequencer.Submit(context.Background(), s, a, delta.Delta{delta.Insert("two")}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	_, finalContent, finalRev := s.Snapshot()

	// the last peer leaves while the tick is still stalled
	detached := make(chan struct{})
	go func() {
		registry.Detach(context.Background(), s, a)
		close(detached)
	}()

	close(store.saveRelease)
	if err := <-tickDone; err != nil {
		t.Fatalf("tick Flush() error = %v", err)
	}
	<-detached

	// the teardown flush runs after the stalled tick, so the store must end
	// at the final revision, not the older one
	saved, _ := store.lastSave()
	if saved.Revision != finalRev || saved.Content != finalContent {
		t.Fatalf("store ends at (%q, %d), want (%q, %d)", saved.Content, saved.Revision, finalContent, finalRev)
	}
	if got := store.saveCount(); got != 2 {
		t.Fatalf("store saved %d times, want 2", got)
	}
}

func TestFlush_ForceWritesCleanSession(t *testing.T) {
	store := newFakeStore()
	registry, _, _ := newTestRig(store)
	saver := NewAutosaver(store, 0, nil)
	a := newFakePeer("a")
	s := openWithPeers(t, registry, "doc1", a)

	if err := saver.Flush(context.Background(), s, true); err != nil {
		t.Fatalf("Flush(force) error = %v", err)
	}
	if got := store.saveCount(); got != 1 {
		t.Fatalf("forced flush wrote %d times, want 1", got)
	}
}
