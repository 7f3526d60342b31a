package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"docsync/backend/internal/collab"
)

// MySQLStore persists documents in two tables: documents holds the current
// snapshot per document, document_snapshots keeps the per-revision history.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func (s *MySQLStore) Load(ctx context.Context, docID string) (collab.StoredDocument, error) {
	var doc collab.StoredDocument
	doc.DocID = docID
	err := s.db.QueryRowContext(ctx,
		`SELECT title, content, revision, updated_at FROM documents WHERE id = ?`,
		docID,
	).Scan(&doc.Title, &doc.Content, &doc.Revision, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return collab.StoredDocument{}, collab.ErrDocumentNotFound
	}
	if err != nil {
		return collab.StoredDocument{}, fmt.Errorf("load document %s: %w", docID, err)
	}
	return doc, nil
}

func (s *MySQLStore) Save(ctx context.Context, docID, title, content string, revision uint64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, title, content, revision, updated_at)
		VALUES (?, ?, ?, ?, NOW())
		ON DUPLICATE KEY UPDATE title = VALUES(title), content = VALUES(content),
			revision = VALUES(revision), updated_at = NOW()`,
		docID, title, content, revision,
	)
	if err != nil {
		return fmt.Errorf("save document %s: %w", docID, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO document_snapshots (document_id, revision, content)
		VALUES (?, ?, ?)`,
		docID, revision, content,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			// same revision flushed twice (forced final flush after a clean
			// autosave); the history row already exists
			return nil
		}
		return fmt.Errorf("save snapshot %s@%d: %w", docID, revision, err)
	}
	return nil
}
