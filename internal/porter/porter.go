// Package porter imports and exports the full dataset as JSON. Imports
// accept either a flat bookmark array or a structured dump with separate
// bookmark and tag sections, and merge through the same conflict rules
// as a remote sync so re-importing an export is a no-op.
package porter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tidemark/tidemark/internal/domain"
	"github.com/tidemark/tidemark/internal/logger"
	"github.com/tidemark/tidemark/internal/merge"
)

// Store is the subset of the local store the porter needs.
type Store interface {
	GetAll(ctx context.Context, col domain.Collection) ([]domain.Document, error)
	BulkPut(ctx context.Context, col domain.Collection, docs []domain.Document, bypassRevisionCheck bool) ([]domain.PutResult, error)
}

type Porter struct {
	store  Store
	logger logger.Logger
}

func New(store Store, log logger.Logger) *Porter {
	return &Porter{store: store, logger: log}
}

// Report summarizes an import.
type Report struct {
	Bookmarks int      `json:"bookmarks"`
	Tags      int      `json:"tags"`
	Skipped   int      `json:"skipped"`
	Conflicts int      `json:"conflicts"`
	Warnings  []string `json:"warnings,omitempty"`
}

type dump struct {
	Bookmarks []map[string]any `json:"bookmarks"`
	Tags      []map[string]any `json:"tags"`
}

// Import parses payload and merges its records into the store. Records
// without an id get a fresh one. Tags whose name collides with an
// existing tag are still inserted; the collision is only reported as a
// warning.
func (p *Porter) Import(ctx context.Context, payload []byte) (*Report, error) {
	bookmarks, tags, err := parse(payload)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	report.Warnings = append(report.Warnings, p.duplicateTagNames(ctx, tags)...)

	n, err := p.importCollection(ctx, domain.Tags, tags, report)
	if err != nil {
		return nil, err
	}
	report.Tags = n

	n, err = p.importCollection(ctx, domain.Bookmarks, bookmarks, report)
	if err != nil {
		return nil, err
	}
	report.Bookmarks = n

	p.logger.Info("import complete",
		logger.Int("bookmarks", report.Bookmarks),
		logger.Int("tags", report.Tags),
		logger.Int("skipped", report.Skipped))
	return report, nil
}

func (p *Porter) importCollection(ctx context.Context, col domain.Collection, raw []map[string]any, report *Report) (int, error) {
	if len(raw) == 0 {
		return 0, nil
	}

	incoming := make([]domain.Document, 0, len(raw))
	for _, entry := range raw {
		doc := domain.Normalize(entry)
		if doc.ID() == "" {
			doc.SetID(uuid.NewString())
		}
		incoming = append(incoming, doc)
	}

	local, err := p.store.GetAll(ctx, col)
	if err != nil {
		return 0, err
	}

	res := merge.Resolve(local, incoming)
	report.Skipped += len(res.Skipped)
	report.Conflicts += len(res.Conflicts)
	for _, c := range res.Conflicts {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%s %s: local version kept", col, c.Local.ID()))
	}

	if len(res.ToSave) == 0 {
		return 0, nil
	}
	results, err := p.store.BulkPut(ctx, col, res.ToSave, true)
	if err != nil {
		return 0, err
	}
	written := 0
	for _, pr := range results {
		if pr.Err != nil {
			return written, pr.Err
		}
		written++
	}
	return written, nil
}

// duplicateTagNames reports name collisions between incoming and stored
// tags. Names are compared case-insensitively.
func (p *Porter) duplicateTagNames(ctx context.Context, tags []map[string]any) []string {
	if len(tags) == 0 {
		return nil
	}
	existing, err := p.store.GetAll(ctx, domain.Tags)
	if err != nil {
		return nil
	}

	seen := map[string][]string{}
	for _, t := range existing {
		if name, ok := t["name"].(string); ok {
			key := strings.ToLower(name)
			seen[key] = append(seen[key], t.ID())
		}
	}
	var warnings []string
	for _, raw := range tags {
		name, ok := raw["name"].(string)
		if !ok || name == "" {
			continue
		}
		key := strings.ToLower(name)
		id, _ := raw["id"].(string)
		if ids := seen[key]; len(ids) > 0 && !contains(ids, id) {
			warnings = append(warnings, fmt.Sprintf("duplicate tag name %q", name))
		}
		seen[key] = append(seen[key], id)
	}
	return warnings
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// parse accepts either a flat bookmark array or a structured dump.
func parse(payload []byte) (bookmarks, tags []map[string]any, err error) {
	trimmed := strings.TrimLeftFunc(string(payload), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(payload, &bookmarks); err != nil {
			return nil, nil, &domain.ValidationError{Reason: "malformed bookmark array: " + err.Error()}
		}
		return bookmarks, nil, nil
	}

	var d dump
	if err := json.Unmarshal(payload, &d); err != nil {
		return nil, nil, &domain.ValidationError{Reason: "malformed import payload: " + err.Error()}
	}
	return d.Bookmarks, d.Tags, nil
}

// Export renders the full dataset as an indented JSON dump.
func (p *Porter) Export(ctx context.Context) ([]byte, error) {
	bookmarks, err := p.store.GetAll(ctx, domain.Bookmarks)
	if err != nil {
		return nil, err
	}
	tags, err := p.store.GetAll(ctx, domain.Tags)
	if err != nil {
		return nil, err
	}
	if bookmarks == nil {
		bookmarks = []domain.Document{}
	}
	if tags == nil {
		tags = []domain.Document{}
	}

	out := map[string]any{
		"bookmarks": bookmarks,
		"tags":      tags,
	}
	return json.MarshalIndent(out, "", "  ")
}
