package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Collection identifies one logical document set.
type Collection string

const (
	Bookmarks Collection = "bookmarks"
	Tags      Collection = "tags"
)

// Collections lists every known collection in sync order.
// Tags sync first so bookmarks never reference tags the
// local store has not seen yet.
var Collections = []Collection{Tags, Bookmarks}

// Well-known field keys carried by every document.
const (
	FieldID        = "id"
	FieldRev       = "_rev"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
	FieldTagIDs    = "tagIds"
)

// Document is the canonical local shape of a bookmark or tag:
// a field map produced by Normalize at every ingestion boundary
// (HTTP API, import, remote pull). Timestamps are Unix milliseconds,
// the id is a string, and the revision token lives under FieldRev.
type Document map[string]any

// ID returns the document id, or "" when absent.
func (d Document) ID() string {
	s, _ := d[FieldID].(string)
	return s
}

// SetID sets the document id.
func (d Document) SetID(id string) {
	d[FieldID] = id
}

// Rev returns the local revision token, or "" when the document
// has never been persisted locally.
func (d Document) Rev() string {
	s, _ := d[FieldRev].(string)
	return s
}

// SetRev sets the local revision token.
func (d Document) SetRev(rev string) {
	d[FieldRev] = rev
}

// ClearRev strips the local revision token. Revisions are only
// trusted by the store that issued them and never cross a backend
// boundary.
func (d Document) ClearRev() {
	delete(d, FieldRev)
}

// CreatedAt returns the creation timestamp in Unix milliseconds,
// or 0 when absent.
func (d Document) CreatedAt() int64 {
	return tsField(d, FieldCreatedAt)
}

// UpdatedAt returns the last-modification timestamp in Unix
// milliseconds, or 0 when absent.
func (d Document) UpdatedAt() int64 {
	return tsField(d, FieldUpdatedAt)
}

// Touch sets updatedAt (and createdAt when missing) to now.
func (d Document) Touch(now time.Time) {
	ms := now.UnixMilli()
	if d.CreatedAt() == 0 {
		d[FieldCreatedAt] = ms
	}
	d[FieldUpdatedAt] = ms
}

// TagIDs returns the tagIds field as a string slice. Missing or
// malformed entries resolve to empty, never an error.
func (d Document) TagIDs() []string {
	raw, ok := d[FieldTagIDs].([]string)
	if ok {
		return raw
	}
	anys, ok := d[FieldTagIDs].([]any)
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(anys))
	for _, v := range anys {
		if s, ok := v.(string); ok {
			ids = append(ids, s)
		}
	}
	return ids
}

// Clone returns a shallow copy of the document. Field values are
// shared; callers replace fields, they do not mutate them in place.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Encode serializes the document for storage on the wire or at rest.
func (d Document) Encode() ([]byte, error) {
	return json.Marshal(d)
}

// Decode parses a stored document and normalizes its well-known fields.
func Decode(data []byte) (Document, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return Normalize(raw), nil
}

// Equal reports deep structural equality of all fields except the
// local-only revision token. Values are compared through their
// canonical JSON encoding, so documents that round-tripped through
// different stores still compare equal.
func (d Document) Equal(other Document) bool {
	return fieldsEqual(d, other, FieldRev)
}

// EqualIgnoringTimestamps is Equal with id, revision and both
// timestamps excluded. Used to decide whether an equal-timestamp
// pair is an ambiguous conflict or a harmless no-op.
func (d Document) EqualIgnoringTimestamps(other Document) bool {
	return fieldsEqual(d, other, FieldRev, FieldID, FieldCreatedAt, FieldUpdatedAt)
}

func fieldsEqual(a, b Document, ignore ...string) bool {
	skip := make(map[string]bool, len(ignore))
	for _, k := range ignore {
		skip[k] = true
	}
	keys := make(map[string]bool, len(a)+len(b))
	for k := range a {
		keys[k] = true
	}
	for k := range b {
		keys[k] = true
	}
	for k := range keys {
		if skip[k] {
			continue
		}
		if !jsonEqual(a[k], b[k]) {
			return false
		}
	}
	return true
}

// jsonEqual compares two field values through their JSON encoding.
// Go's encoder sorts map keys, so the encoding is canonical.
func jsonEqual(a, b any) bool {
	ja, err := json.Marshal(a)
	if err != nil {
		return false
	}
	jb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}

// Normalize coerces a raw document into canonical form: the id
// becomes a string, createdAt/updatedAt become Unix milliseconds
// (accepting ISO-8601 strings, epoch seconds, epoch millis and
// numeric strings), and tagIds becomes []string. The input map is
// not modified.
func Normalize(raw Document) Document {
	doc := raw.Clone()

	if v, ok := doc[FieldID]; ok {
		doc[FieldID] = stringify(v)
	}
	for _, key := range []string{FieldCreatedAt, FieldUpdatedAt} {
		v, ok := doc[key]
		if !ok {
			continue
		}
		if _, canonical := v.(int64); canonical {
			// Already normalized. Re-running the seconds heuristic
			// would rescale the value.
			continue
		}
		if ms, ok := ParseTimestamp(v); ok {
			doc[key] = ms
		} else {
			delete(doc, key)
		}
	}
	if _, ok := doc[FieldTagIDs]; ok {
		doc[FieldTagIDs] = doc.TagIDs()
	}
	return doc
}

// ParseTimestamp converts an accepted timestamp representation to
// Unix milliseconds. Epoch numbers below 1e11 are treated as
// seconds, larger ones as milliseconds.
func ParseTimestamp(v any) (int64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case time.Time:
		if t.IsZero() {
			return 0, false
		}
		return t.UnixMilli(), true
	case int64:
		return epochMillis(t), true
	case int:
		return epochMillis(int64(t)), true
	case float64:
		return epochMillis(int64(t)), true
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return epochMillis(n), true
		}
		return 0, false
	case string:
		if t == "" {
			return 0, false
		}
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed.UnixMilli(), true
		}
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed.UnixMilli(), true
		}
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return epochMillis(n), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// epochMillis distinguishes epoch seconds from epoch milliseconds.
// Anything below 1e11 (year ~5138 in seconds, 1973 in millis) is
// read as seconds.
func epochMillis(n int64) int64 {
	if n <= 0 {
		return 0
	}
	if n < 1e11 {
		return n * 1000
	}
	return n
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

// tsField reads a timestamp field. A stored int64 is already canonical
// milliseconds and is returned verbatim; only foreign representations
// go through ParseTimestamp.
func tsField(d Document, key string) int64 {
	if ms, ok := d[key].(int64); ok {
		return ms
	}
	ms, _ := ParseTimestamp(d[key])
	return ms
}
