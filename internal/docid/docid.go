// Package docid escapes document identifiers that would collide with
// the local store's reserved "_" prefix. Both functions are pure and
// total, and Unescape(Escape(s)) == s holds for every string; callers
// apply them at most once per persistence boundary (the schema
// translator owns that boundary).
package docid

import "strings"

const (
	// ReservedPrefix is reserved for the local store's internal documents.
	ReservedPrefix = "_"

	escapedUnderscore = "%5F"
	escapedPercent    = "%25"
)

// Escape rewrites a leading "_" to "%5F". A leading "%" is rewritten
// to "%25" so that ids which already look escaped stay reversible.
// All other ids pass through unchanged.
func Escape(id string) string {
	switch {
	case strings.HasPrefix(id, ReservedPrefix):
		return escapedUnderscore + id[len(ReservedPrefix):]
	case strings.HasPrefix(id, "%"):
		return escapedPercent + id[1:]
	default:
		return id
	}
}

// Unescape is the inverse of Escape: a leading "%5F" becomes "_" and
// a leading "%25" becomes "%".
func Unescape(id string) string {
	switch {
	case strings.HasPrefix(id, escapedUnderscore):
		return ReservedPrefix + id[len(escapedUnderscore):]
	case strings.HasPrefix(id, escapedPercent):
		return "%" + id[len(escapedPercent):]
	default:
		return id
	}
}
