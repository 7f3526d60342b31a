package store

import (
	"context"
	"sync"
	"time"

	"docsync/backend/internal/collab"
)

// MemoryStore is a map-backed DocumentStore for tests and single-node dev
// runs without MySQL.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]collab.StoredDocument
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]collab.StoredDocument)}
}

func (s *MemoryStore) Load(ctx context.Context, docID string) (collab.StoredDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[docID]
	if !ok {
		return collab.StoredDocument{}, collab.ErrDocumentNotFound
	}
	return doc, nil
}

func (s *MemoryStore) Save(ctx context.Context, docID, title, content string, revision uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[docID] = collab.StoredDocument{
		DocID:     docID,
		Title:     title,
		Content:   content,
		Revision:  revision,
		UpdatedAt: time.Now(),
	}
	return nil
}

// Seed preloads a document, bypassing Save's timestamping rules. Test helper.
func (s *MemoryStore) Seed(doc collab.StoredDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.DocID] = doc
}
