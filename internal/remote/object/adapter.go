// Package object implements a per-document remote backend on Redis. Each
// record lives under its own key and a per-collection set tracks membership,
// so individual documents can be read and written without touching the rest
// of the collection.
package object

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/tidemark/tidemark/internal/domain"
)

const keyPrefix = "tidemark"

type Adapter struct {
	name   string
	client *redis.Client
}

func New(name string, client *redis.Client) *Adapter {
	return &Adapter{name: name, client: client}
}

func (a *Adapter) Name() string { return a.name }

func docKey(col domain.Collection, id string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, col, id)
}

func allKey(col domain.Collection) string {
	return fmt.Sprintf("%s:%s:all", keyPrefix, col)
}

// Get retrieves a single document by its remote id.
func (a *Adapter) Get(ctx context.Context, col domain.Collection, id string) (domain.Document, error) {
	data, err := a.client.Get(ctx, docKey(col, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s %s: %w", col, id, domain.ErrNotFound)
		}
		return nil, &domain.TransientError{Op: "get " + string(col), Err: err}
	}

	doc, err := domain.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", col, id, err)
	}
	return doc, nil
}

// GetAll retrieves every document in the collection. Members whose record
// has vanished are skipped.
func (a *Adapter) GetAll(ctx context.Context, col domain.Collection) ([]domain.Document, error) {
	ids, err := a.client.SMembers(ctx, allKey(col)).Result()
	if err != nil {
		return nil, &domain.TransientError{Op: "list " + string(col), Err: err}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	docs := make([]domain.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := a.Get(ctx, col, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Save writes a single document and records its membership.
func (a *Adapter) Save(ctx context.Context, col domain.Collection, doc domain.Document) error {
	id := doc.ID()
	if id == "" {
		return &domain.ValidationError{Reason: "document without id in " + string(col)}
	}
	data, err := doc.Encode()
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", col, id, err)
	}

	pipe := a.client.TxPipeline()
	pipe.Set(ctx, docKey(col, id), data, 0)
	pipe.SAdd(ctx, allKey(col), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return &domain.TransientError{Op: "save " + string(col), Err: err}
	}
	return nil
}

// SaveMany writes a batch of documents in one pipeline round trip.
func (a *Adapter) SaveMany(ctx context.Context, col domain.Collection, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}

	pipe := a.client.TxPipeline()
	for _, doc := range docs {
		id := doc.ID()
		if id == "" {
			return &domain.ValidationError{Reason: "document without id in " + string(col)}
		}
		data, err := doc.Encode()
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", col, id, err)
		}
		pipe.Set(ctx, docKey(col, id), data, 0)
		pipe.SAdd(ctx, allKey(col), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return &domain.TransientError{Op: "save " + string(col), Err: err}
	}
	return nil
}

// Delete removes a document and its membership entry.
func (a *Adapter) Delete(ctx context.Context, col domain.Collection, id string) error {
	pipe := a.client.TxPipeline()
	pipe.Del(ctx, docKey(col, id))
	pipe.SRem(ctx, allKey(col), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return &domain.TransientError{Op: "delete " + string(col), Err: err}
	}
	return nil
}
