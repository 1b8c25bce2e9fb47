package syncer

import (
	"context"

	"github.com/tidemark/tidemark/internal/domain"
	"github.com/tidemark/tidemark/internal/remote/blob"
	"github.com/tidemark/tidemark/internal/remote/object"
	"github.com/tidemark/tidemark/internal/retry"
	"github.com/tidemark/tidemark/internal/schema"
)

// Backend is one remote replication target. Pull returns the backend's
// current view of a collection in the local field layout; Push replaces
// that view with the provided documents.
type Backend interface {
	Name() string
	Pull(ctx context.Context, col domain.Collection) ([]domain.Document, error)
	Push(ctx context.Context, col domain.Collection, docs []domain.Document) error
}

// ObjectBackend replicates collections document-by-document through an
// object store adapter. The adapter itself does no retrying, so transient
// failures are retried here.
type ObjectBackend struct {
	adapter    *object.Adapter
	translator *schema.Translator
	policy     retry.Policy
}

func NewObjectBackend(adapter *object.Adapter, tr *schema.Translator, policy retry.Policy) *ObjectBackend {
	return &ObjectBackend{adapter: adapter, translator: tr, policy: policy}
}

func (b *ObjectBackend) Name() string { return b.adapter.Name() }

func (b *ObjectBackend) Pull(ctx context.Context, col domain.Collection) ([]domain.Document, error) {
	var docs []domain.Document
	err := retry.Do(ctx, b.policy, domain.IsTransient, func() error {
		var err error
		docs, err = b.adapter.GetAll(ctx, col)
		return err
	})
	if err != nil {
		return nil, err
	}
	return b.translator.ToLocalAll(docs), nil
}

func (b *ObjectBackend) Push(ctx context.Context, col domain.Collection, docs []domain.Document) error {
	out := b.translator.ToRemoteAll(docs)
	return retry.Do(ctx, b.policy, domain.IsTransient, func() error {
		return b.adapter.SaveMany(ctx, col, out)
	})
}

// BlobBackend replicates whole collections as single remote files. The
// blob adapter retries internally, so no extra retry layer sits here.
type BlobBackend struct {
	adapter    *blob.Adapter
	translator *schema.Translator
	resources  map[domain.Collection]string
}

// DefaultResources maps collections to the snapshot files a blob
// endpoint stores them in.
func DefaultResources() map[domain.Collection]string {
	return map[domain.Collection]string{
		domain.Bookmarks: "collection.json",
		domain.Tags:      "tag.json",
	}
}

func NewBlobBackend(adapter *blob.Adapter, tr *schema.Translator, resources map[domain.Collection]string) *BlobBackend {
	if resources == nil {
		resources = DefaultResources()
	}
	return &BlobBackend{adapter: adapter, translator: tr, resources: resources}
}

func (b *BlobBackend) Name() string { return b.adapter.Name() }

func (b *BlobBackend) Pull(ctx context.Context, col domain.Collection) ([]domain.Document, error) {
	docs, err := b.adapter.Load(ctx, b.resources[col])
	if err != nil {
		return nil, err
	}
	return b.translator.ToLocalAll(docs), nil
}

func (b *BlobBackend) Push(ctx context.Context, col domain.Collection, docs []domain.Document) error {
	return b.adapter.Save(ctx, b.resources[col], b.translator.ToRemoteAll(docs))
}
