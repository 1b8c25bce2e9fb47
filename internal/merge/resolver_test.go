package merge

import (
	"testing"

	"github.com/tidemark/tidemark/internal/domain"
)

func TestResolveAddition(t *testing.T) {
	remote := []domain.Document{{"id": "new", "title": "Fresh", "updatedAt": int64(100)}}

	res := Resolve(nil, remote)
	if len(res.ToSave) != 1 || res.ToSave[0].ID() != "new" {
		t.Fatalf("ToSave = %v, want the remote addition", res.ToSave)
	}
	if len(res.Conflicts) != 0 || len(res.Skipped) != 0 {
		t.Errorf("addition should produce no conflicts or skips, got %v / %v", res.Conflicts, res.Skipped)
	}
}

func TestResolveIdenticalSkipped(t *testing.T) {
	local := []domain.Document{{"id": "a", "title": "Same", "updatedAt": int64(100), "_rev": "local-rev"}}
	remote := []domain.Document{{"id": "a", "title": "Same", "updatedAt": int64(100)}}

	res := Resolve(local, remote)
	if len(res.ToSave) != 0 {
		t.Errorf("ToSave = %v, want empty for identical docs", res.ToSave)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Reason != "identical" {
		t.Errorf("Skipped = %v, want one identical skip", res.Skipped)
	}
}

func TestResolveIdempotentAgainstOwnSnapshot(t *testing.T) {
	snapshot := []domain.Document{
		{"id": "a", "title": "One", "updatedAt": int64(100), "_rev": "r1"},
		{"id": "b", "title": "Two", "updatedAt": int64(200), "_rev": "r2"},
		{"id": "c", "title": "Three"},
	}
	// The just-pushed remote copy carries no local revision tokens.
	remote := make([]domain.Document, 0, len(snapshot))
	for _, doc := range snapshot {
		r := doc.Clone()
		r.ClearRev()
		remote = append(remote, r)
	}

	res := Resolve(snapshot, remote)
	if len(res.ToSave) != 0 {
		t.Errorf("ToSave = %v, want zero entries when merging own snapshot", res.ToSave)
	}
	if len(res.Skipped) != len(snapshot) {
		t.Errorf("Skipped %d records, want all %d", len(res.Skipped), len(snapshot))
	}
}

func TestResolveLocalBiasOnTie(t *testing.T) {
	local := []domain.Document{{"id": "a", "updatedAt": int64(100), "title": "X"}}
	remote := []domain.Document{{"id": "a", "updatedAt": int64(100), "title": "Y"}}

	res := Resolve(local, remote)
	if len(res.Conflicts) != 1 {
		t.Fatalf("Conflicts = %v, want one tie conflict", res.Conflicts)
	}
	if len(res.ToSave) != 0 {
		t.Errorf("ToSave = %v, want no automatic write on an ambiguous tie", res.ToSave)
	}
	if got := res.Conflicts[0].Local["title"]; got != "X" {
		t.Errorf("conflict local title = %v, want the untouched X", got)
	}
}

func TestResolveLocalNewerConflicts(t *testing.T) {
	local := []domain.Document{{"id": "a", "updatedAt": int64(200), "title": "Newer"}}
	remote := []domain.Document{{"id": "a", "updatedAt": int64(100), "title": "Older"}}

	res := Resolve(local, remote)
	if len(res.Conflicts) != 1 {
		t.Fatalf("Conflicts = %v, want one (local authoritative)", res.Conflicts)
	}
	if len(res.ToSave) != 0 {
		t.Error("a newer local edit must never be overwritten")
	}
}

func TestResolveRemoteStrictlyNewerWins(t *testing.T) {
	local := []domain.Document{{"id": "b", "updatedAt": int64(100), "title": "Old"}}
	remote := []domain.Document{{"id": "b", "updatedAt": int64(200), "title": "New"}}

	res := Resolve(local, remote)
	if len(res.ToSave) != 1 || res.ToSave[0]["title"] != "New" {
		t.Fatalf("ToSave = %v, want the strictly newer remote version", res.ToSave)
	}
	if len(res.Conflicts) != 0 {
		t.Errorf("Conflicts = %v, want none", res.Conflicts)
	}
}

func TestResolvePreservesLocalCreationTimestamp(t *testing.T) {
	local := []domain.Document{{"id": "b", "createdAt": int64(50), "updatedAt": int64(100)}}
	remote := []domain.Document{{"id": "b", "updatedAt": int64(200), "title": "New"}}

	res := Resolve(local, remote)
	if len(res.ToSave) != 1 {
		t.Fatalf("ToSave = %v, want one entry", res.ToSave)
	}
	if got := res.ToSave[0].CreatedAt(); got != 50 {
		t.Errorf("createdAt = %v, want the local 50 preserved", got)
	}
}

func TestResolveMissingTimestampsFavorRemote(t *testing.T) {
	local := []domain.Document{{"id": "c", "title": "Old"}}
	remote := []domain.Document{{"id": "c", "title": "New"}}

	res := Resolve(local, remote)
	if len(res.ToSave) != 1 || res.ToSave[0]["title"] != "New" {
		t.Errorf("ToSave = %v, want remote applied when timestamps are absent", res.ToSave)
	}
}

func TestResolveEqualTimestampOnlyCreatedAtDiffers(t *testing.T) {
	// Equal updatedAt and equal content is not a conflict even if the
	// creation timestamps disagree.
	local := []domain.Document{{"id": "d", "createdAt": int64(10), "updatedAt": int64(100), "title": "T"}}
	remote := []domain.Document{{"id": "d", "createdAt": int64(20), "updatedAt": int64(100), "title": "T"}}

	res := Resolve(local, remote)
	if len(res.Conflicts) != 0 {
		t.Errorf("Conflicts = %v, want none when only createdAt differs", res.Conflicts)
	}
	if len(res.ToSave) != 1 {
		t.Errorf("ToSave = %v, want the remote copy applied", res.ToSave)
	}
}

func TestResolveLeavesLocalOnlyDocsAlone(t *testing.T) {
	local := []domain.Document{
		{"id": "kept", "title": "LocalOnly", "updatedAt": int64(100)},
	}

	res := Resolve(local, nil)
	if len(res.ToSave) != 0 || len(res.Conflicts) != 0 || len(res.Skipped) != 0 {
		t.Errorf("Resolve(local, nil) = %+v, want an empty result", res)
	}
}

func TestResolveDuplicateNamesNotDeduplicated(t *testing.T) {
	remote := []domain.Document{
		{"id": "t1", "name": "Work"},
		{"id": "t2", "name": "Work"},
	}

	res := Resolve(nil, remote)
	if len(res.ToSave) != 2 {
		t.Errorf("ToSave = %v, want both records despite the duplicate name", res.ToSave)
	}
}

func TestMergeSnapshotsBaseWinsTies(t *testing.T) {
	base := []domain.Document{{"id": "a", "updatedAt": int64(100), "title": "Remote"}}
	incoming := []domain.Document{{"id": "a", "updatedAt": int64(100), "title": "Local"}}

	merged := MergeSnapshots(base, incoming)
	if len(merged) != 1 || merged[0]["title"] != "Remote" {
		t.Errorf("merged = %v, want the base version on a tie", merged)
	}
}

func TestMergeSnapshotsIncomingWinsStrictNewness(t *testing.T) {
	base := []domain.Document{{"id": "a", "updatedAt": int64(100), "title": "Remote"}}
	incoming := []domain.Document{
		{"id": "a", "updatedAt": int64(200), "title": "Local"},
		{"id": "b", "updatedAt": int64(50), "title": "New"},
	}

	merged := MergeSnapshots(base, incoming)
	if len(merged) != 2 {
		t.Fatalf("merged %d docs, want 2", len(merged))
	}
	if merged[0]["title"] != "Local" {
		t.Errorf("merged[0] = %v, want the strictly newer incoming version", merged[0])
	}
}
