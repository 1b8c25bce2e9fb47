// Package bolt is the local replicated store: the durable local copy
// of every bookmark and tag document, with optimistic-concurrency
// revision checks on writes.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	bbolt "go.etcd.io/bbolt"

	"github.com/tidemark/tidemark/internal/domain"
	"github.com/tidemark/tidemark/internal/logger"
)

// Store wraps a bbolt database with one bucket per collection.
type Store struct {
	db       *bbolt.DB
	logger   logger.Logger
	onChange func(domain.Collection)
}

// Open opens (or creates) the database file and ensures every
// collection bucket exists.
func Open(path string, log logger.Logger) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open local store at %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, col := range domain.Collections {
			if _, err := tx.CreateBucketIfNotExists([]byte(col)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", col, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, logger: log}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetOnChange registers a hook fired after every successful local
// mutation (Put, Remove, and non-bypass BulkPut). The sync
// orchestrator uses it for debounced sync triggering. Bypass bulk
// writes do not fire it; they ingest already-reconciled remote data
// and must not re-trigger the pass that produced them.
func (s *Store) SetOnChange(fn func(domain.Collection)) {
	s.onChange = fn
}

// GetAll returns every live document of the collection.
func (s *Store) GetAll(ctx context.Context, col domain.Collection) ([]domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var docs []domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(col))
		if b == nil {
			return fmt.Errorf("unknown collection %q", col)
		}
		return b.ForEach(func(_, v []byte) error {
			var doc domain.Document
			if err := json.Unmarshal(v, &doc); err != nil {
				// A corrupt row must not take the whole collection down.
				s.logger.Warn("skipping unreadable document",
					logger.String("collection", string(col)),
					logger.Error(err))
				return nil
			}
			docs = append(docs, doc)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read collection %s: %w", col, err)
	}
	return docs, nil
}

// Get returns the document with the given id, or domain.ErrNotFound.
func (s *Store) Get(ctx context.Context, col domain.Collection, id string) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var doc domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(col))
		if b == nil {
			return fmt.Errorf("unknown collection %q", col)
		}
		v := b.Get([]byte(id))
		if v == nil {
			return fmt.Errorf("document %s/%s: %w", col, id, domain.ErrNotFound)
		}
		return json.Unmarshal(v, &doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Put creates or replaces a document. When the incoming document
// carries a revision that is stale relative to the stored one, the
// write fails with domain.ErrConflict. A document without a revision
// is an unconditional insert-or-replace. On success the stored copy
// carries a fresh revision token.
func (s *Store) Put(ctx context.Context, col domain.Collection, doc domain.Document) (domain.Document, error) {
	stored, err := s.put(ctx, col, doc, false)
	if err != nil {
		return nil, err
	}
	s.notify(col)
	return stored, nil
}

// Remove deletes a document, failing with domain.ErrNotFound when absent.
func (s *Store) Remove(ctx context.Context, col domain.Collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(col))
		if b == nil {
			return fmt.Errorf("unknown collection %q", col)
		}
		if b.Get([]byte(id)) == nil {
			return fmt.Errorf("document %s/%s: %w", col, id, domain.ErrNotFound)
		}
		return b.Delete([]byte(id))
	})
	if err != nil {
		return err
	}
	s.notify(col)
	return nil
}

// BulkPut applies documents one by one. With bypassRevisionCheck set
// (used only when ingesting already-reconciled remote data) revision
// conflicts are not raised; the incoming document always wins.
func (s *Store) BulkPut(ctx context.Context, col domain.Collection, docs []domain.Document, bypassRevisionCheck bool) ([]domain.PutResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]domain.PutResult, 0, len(docs))
	for _, doc := range docs {
		_, err := s.put(ctx, col, doc, bypassRevisionCheck)
		results = append(results, domain.PutResult{ID: doc.ID(), Err: err})
	}
	if !bypassRevisionCheck {
		s.notify(col)
	}
	return results, nil
}

func (s *Store) put(ctx context.Context, col domain.Collection, doc domain.Document, bypass bool) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := doc.ID()
	if id == "" {
		return nil, &domain.ValidationError{Reason: "document has no id"}
	}

	stored := doc.Clone()
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(col))
		if b == nil {
			return fmt.Errorf("unknown collection %q", col)
		}

		if !bypass && doc.Rev() != "" {
			current := b.Get([]byte(id))
			if current != nil {
				var existing domain.Document
				if err := json.Unmarshal(current, &existing); err == nil && existing.Rev() != doc.Rev() {
					return fmt.Errorf("document %s/%s: %w", col, id, domain.ErrConflict)
				}
			}
		}

		stored.SetRev(uuid.NewString())
		data, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("failed to encode document %s: %w", id, err)
		}
		return b.Put([]byte(id), data)
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *Store) notify(col domain.Collection) {
	if s.onChange != nil {
		s.onChange(col)
	}
}
