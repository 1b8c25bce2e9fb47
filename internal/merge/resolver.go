// Package merge reconciles a local document set with a remote snapshot
// of the same logical collection. The policy is last-writer-wins with
// per-field tie-breaking: local-biased on ties, remote-biased on strict
// newness. Ambiguous conflicts are reported as data, never resolved
// silently.
package merge

import "github.com/tidemark/tidemark/internal/domain"

// Conflict pairs the two versions of a document the resolver refused
// to pick between. The calling collaborator presents it to the user.
type Conflict struct {
	Local  domain.Document `json:"local"`
	Remote domain.Document `json:"remote"`
}

// Skip records a remote document that required no write.
type Skip struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Result is the resolver's full report for one collection.
type Result struct {
	// ToSave holds remote documents that should be applied locally.
	ToSave []domain.Document

	// Conflicts holds pairs where the local version is authoritative
	// (strictly newer) or the pair is ambiguous (equal timestamps,
	// differing fields). The remote write is suppressed either way.
	Conflicts []Conflict

	// Skipped holds remote documents identical to their local twin.
	Skipped []Skip
}

// Resolve computes the reconciliation of localDocs against remoteDocs
// (already schema-translated to the local shape). Local documents with
// no remote counterpart are left untouched; the caller owns the
// authoritative superset.
func Resolve(localDocs, remoteDocs []domain.Document) Result {
	byID := make(map[string]domain.Document, len(localDocs))
	for _, l := range localDocs {
		byID[l.ID()] = l
	}

	var res Result
	for _, r := range remoteDocs {
		l, exists := byID[r.ID()]
		if !exists {
			// Pure addition.
			res.ToSave = append(res.ToSave, r.Clone())
			continue
		}

		if l.Equal(r) {
			res.Skipped = append(res.Skipped, Skip{ID: r.ID(), Reason: "identical"})
			continue
		}

		lu, ru := l.UpdatedAt(), r.UpdatedAt()
		switch {
		case lu > 0 && ru > 0 && lu > ru:
			// Local is authoritative; never destroy a newer local edit.
			res.Conflicts = append(res.Conflicts, Conflict{Local: l, Remote: r})

		case lu > 0 && ru > 0 && lu == ru && !l.EqualIgnoringTimestamps(r):
			// Same instant, different content: ambiguous, surface it.
			res.Conflicts = append(res.Conflicts, Conflict{Local: l, Remote: r})

		default:
			// Remote is strictly newer, or timestamps are absent.
			doc := r.Clone()
			if doc.CreatedAt() == 0 && l.CreatedAt() > 0 {
				// Carry the stored value verbatim, not a re-parsed one.
				doc[domain.FieldCreatedAt] = l[domain.FieldCreatedAt]
			}
			res.ToSave = append(res.ToSave, doc)
		}
	}
	return res
}

// MergeSnapshots merges incoming documents into a base snapshot using
// the additive last-writer-wins rule the blob adapter needs before a
// whole-file write: base wins ties, incoming wins only with a strictly
// newer updatedAt, and documents present on one side only are kept.
func MergeSnapshots(base, incoming []domain.Document) []domain.Document {
	merged := make([]domain.Document, len(base))
	index := make(map[string]int, len(base))
	for i, doc := range base {
		merged[i] = doc
		index[doc.ID()] = i
	}

	for _, doc := range incoming {
		i, exists := index[doc.ID()]
		if !exists {
			index[doc.ID()] = len(merged)
			merged = append(merged, doc)
			continue
		}
		if doc.UpdatedAt() > merged[i].UpdatedAt() {
			merged[i] = doc
		}
	}
	return merged
}
