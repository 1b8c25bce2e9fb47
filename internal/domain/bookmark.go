package domain

import "encoding/json"

// Bookmark is the typed ingestion shape for the bookmarks collection.
// Internal components operate on the canonical Document form; this
// struct exists for the HTTP surface and import/export payloads.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is the canonical unique identifier. Never mutated once
	// assigned; ids beginning with the reserved prefix are escaped
	// before persistence.
	ID string `json:"id"`

	// Rev is the local store's revision token. Absent on documents
	// not yet persisted locally; never crosses a backend boundary.
	Rev string `json:"_rev,omitempty"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Description string   `json:"description,omitempty"`
	Favicon     string   `json:"favicon,omitempty"`
	TagIDs      []string `json:"tagIds"`

	// ─────────────────────────────
	// Metadata
	// ─────────────────────────────

	// CreatedAt / UpdatedAt are Unix milliseconds.
	CreatedAt int64 `json:"createdAt,omitempty"`
	UpdatedAt int64 `json:"updatedAt,omitempty"`

	// LastVisited is Unix milliseconds of the most recent visit, 0 if never.
	LastVisited int64 `json:"lastVisited,omitempty"`
	VisitCount  int   `json:"visitCount"`

	// IsValid records the result of the last URL liveness check.
	IsValid bool `json:"isValid"`
}

// Tag is the typed ingestion shape for the tags collection.
type Tag struct {
	ID        string `json:"id"`
	Rev       string `json:"_rev,omitempty"`
	Name      string `json:"name"`
	Color     string `json:"color,omitempty"`
	CreatedAt int64  `json:"createdAt,omitempty"`
	UpdatedAt int64  `json:"updatedAt,omitempty"`
}

// Doc converts the bookmark to its canonical Document form.
func (b Bookmark) Doc() Document {
	return structToDoc(b)
}

// Doc converts the tag to its canonical Document form.
func (t Tag) Doc() Document {
	return structToDoc(t)
}

// BookmarkFromDoc converts a canonical document back to the typed shape.
// Unknown fields are dropped.
func BookmarkFromDoc(d Document) Bookmark {
	var b Bookmark
	docToStruct(d, &b)
	return b
}

// TagFromDoc converts a canonical document back to the typed shape.
func TagFromDoc(d Document) Tag {
	var t Tag
	docToStruct(d, &t)
	return t
}

// structToDoc round-trips through JSON so the Document carries the
// same field names and value kinds a remote snapshot would.
func structToDoc(v any) Document {
	data, err := json.Marshal(v)
	if err != nil {
		return Document{}
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}
	}
	return Normalize(doc)
}

func docToStruct(d Document, out any) {
	data, err := json.Marshal(d)
	if err != nil {
		return
	}
	_ = json.Unmarshal(data, out)
}
