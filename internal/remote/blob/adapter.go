// Package blob stores an entire collection as a single JSON document on a
// remote transport. Concurrent writers are reconciled by merging the
// current remote snapshot into the outgoing one before every save.
package blob

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidemark/tidemark/internal/domain"
	"github.com/tidemark/tidemark/internal/logger"
	"github.com/tidemark/tidemark/internal/merge"
	"github.com/tidemark/tidemark/internal/remote"
	"github.com/tidemark/tidemark/internal/retry"
)

type Adapter struct {
	name      string
	transport remote.Transport
	policy    retry.Policy
	logger    logger.Logger
}

func New(name string, transport remote.Transport, policy retry.Policy, log logger.Logger) *Adapter {
	return &Adapter{
		name:      name,
		transport: transport,
		policy:    policy,
		logger:    log,
	}
}

func (a *Adapter) Name() string { return a.name }

// Load fetches and decodes the snapshot at resource. A missing resource
// is an empty collection, not an error. Records without an id are
// dropped rather than failing the whole load.
func (a *Adapter) Load(ctx context.Context, resource string) ([]domain.Document, error) {
	var payload []byte
	err := retry.Do(ctx, a.policy, remote.Retryable, func() error {
		var err error
		payload, err = a.transport.Get(ctx, resource)
		if remote.MethodNotAllowed(err) {
			// The raw fallback gets exactly one shot, outside the
			// retry budget.
			payload, err = a.transport.GetRaw(ctx, resource)
			if err != nil {
				return retry.Permanent(err)
			}
			return nil
		}
		return err
	})
	if err != nil {
		if remote.NotFound(err) {
			return nil, nil
		}
		return nil, remote.Classify(a.name, "load "+resource, err)
	}

	return a.decode(resource, payload)
}

// Save merges docs over the live remote snapshot and writes the result
// back. Every document must carry an id before it leaves the process.
func (a *Adapter) Save(ctx context.Context, resource string, docs []domain.Document) error {
	for _, doc := range docs {
		if doc.ID() == "" {
			return &domain.ValidationError{Reason: "document without id in " + resource}
		}
	}

	current, err := a.Load(ctx, resource)
	if err != nil {
		// A stale snapshot still beats losing the write. Merge against
		// what we have and let the next sync reconcile.
		a.logger.Warn("snapshot refresh failed before save",
			logger.String("resource", resource), logger.Error(err))
		current = nil
	}
	merged := merge.MergeSnapshots(current, docs)

	payload, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encode %s: %w", resource, err)
	}

	err = retry.Do(ctx, a.policy, remote.Retryable, func() error {
		err := a.transport.Put(ctx, resource, payload)
		if remote.MethodNotAllowed(err) {
			if rawErr := a.transport.PutRaw(ctx, resource, payload); rawErr != nil {
				return retry.Permanent(rawErr)
			}
			return nil
		}
		return err
	})
	if err != nil {
		return remote.Classify(a.name, "save "+resource, err)
	}
	return nil
}

func (a *Adapter) decode(resource string, payload []byte) ([]domain.Document, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", resource, err)
	}

	docs := make([]domain.Document, 0, len(raw))
	dropped := 0
	for _, entry := range raw {
		// Non-object entries and records without an id are dropped,
		// never allowed to fail the whole load.
		var fields map[string]any
		if err := json.Unmarshal(entry, &fields); err != nil {
			dropped++
			continue
		}
		doc := domain.Normalize(fields)
		if doc.ID() == "" {
			dropped++
			continue
		}
		docs = append(docs, doc)
	}
	if dropped > 0 {
		a.logger.Warn("dropped malformed records",
			logger.String("resource", resource), logger.Int("count", dropped))
	}
	return docs, nil
}
