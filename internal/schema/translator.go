// Package schema maps documents between the local field layout and the
// layout a remote backend expects. Translation is lossless within the
// mapped fields: ToLocal(ToRemote(doc)) restores the original document
// minus its local revision token.
package schema

import (
	"github.com/tidemark/tidemark/internal/docid"
	"github.com/tidemark/tidemark/internal/domain"
)

// Translator renames fields on the way out and back, escapes and
// unescapes document ids, and strips local-only bookkeeping before a
// document leaves the process.
type Translator struct {
	toRemote map[string]string
	toLocal  map[string]string
}

// New builds a translator from a local-to-remote field rename map.
func New(renames map[string]string) *Translator {
	t := &Translator{
		toRemote: make(map[string]string, len(renames)),
		toLocal:  make(map[string]string, len(renames)),
	}
	for local, remote := range renames {
		t.toRemote[local] = remote
		t.toLocal[remote] = local
	}
	return t
}

// Identity translates field names one-to-one. Ids are still escaped and
// revisions stripped.
func Identity() *Translator {
	return New(nil)
}

// WebDAV matches the field layout the blob format uses, where the local
// title field is stored as name.
func WebDAV() *Translator {
	return New(map[string]string{"title": "name"})
}

// ToRemote converts a local document into its remote form: renamed
// fields, unescaped id, no revision token.
func (t *Translator) ToRemote(doc domain.Document) domain.Document {
	out := make(domain.Document, len(doc))
	for k, v := range doc {
		if k == domain.FieldRev {
			continue
		}
		if remote, ok := t.toRemote[k]; ok {
			k = remote
		}
		out[k] = v
	}
	if id := out.ID(); id != "" {
		out.SetID(docid.Unescape(id))
	}
	return out
}

// ToLocal converts a remote document into its local form: fields renamed
// back, id escaped into the storable namespace, well-known fields
// normalized. Any revision token the remote happens to carry is dropped,
// revisions never cross backends.
func (t *Translator) ToLocal(doc domain.Document) domain.Document {
	out := make(domain.Document, len(doc))
	for k, v := range doc {
		if k == domain.FieldRev {
			continue
		}
		if local, ok := t.toLocal[k]; ok {
			k = local
		}
		out[k] = v
	}
	if id := out.ID(); id != "" {
		out.SetID(docid.Escape(id))
	}
	return domain.Normalize(out)
}

// ToRemoteAll translates a slice of local documents.
func (t *Translator) ToRemoteAll(docs []domain.Document) []domain.Document {
	out := make([]domain.Document, 0, len(docs))
	for _, doc := range docs {
		out = append(out, t.ToRemote(doc))
	}
	return out
}

// ToLocalAll translates a slice of remote documents.
func (t *Translator) ToLocalAll(docs []domain.Document) []domain.Document {
	out := make([]domain.Document, 0, len(docs))
	for _, doc := range docs {
		out = append(out, t.ToLocal(doc))
	}
	return out
}
