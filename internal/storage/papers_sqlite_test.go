package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/peerflow/peerflow/internal/fault"
	"github.com/peerflow/peerflow/internal/paper"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func storedPaper(t *testing.T, db *DB, id string) *paper.Paper {
	t.Helper()
	p, err := paper.Create(paper.CreateInput{
		Title:        "Sparse Solvers on Tiled Architectures",
		Abstract:     "We tile, then solve.",
		ResearchArea: "high performance computing",
		Authors:      []paper.Author{{Name: "N. Adeyemi", IdentityRef: "user-na", IsCorresponding: true}},
		CreatedBy:    "user-na",
	}, id, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.InsertPaper(p); err != nil {
		t.Fatalf("InsertPaper failed: %v", err)
	}
	return p
}

func TestInsertAndGetPaper(t *testing.T) {
	db := openTestDB(t)
	p := storedPaper(t, db, "paper-1")

	got, err := db.GetPaper("paper-1")
	if err != nil {
		t.Fatalf("GetPaper failed: %v", err)
	}
	if got.Title != p.Title || got.Status != paper.StatusDraft || got.Version != 1 {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if len(got.Authors) != 1 || got.Authors[0].IdentityRef != "user-na" {
		t.Errorf("authors not preserved: %+v", got.Authors)
	}
	if got.RowVersion != 1 {
		t.Errorf("fresh paper row version = %d, want 1", got.RowVersion)
	}
}

func TestGetPaper_NotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := db.GetPaper("nope")
	if !fault.Is(err, fault.KindNotFound) {
		t.Errorf("expected not_found fault, got %v", err)
	}
}

func TestUpdatePaper_OptimisticConcurrency(t *testing.T) {
	db := openTestDB(t)
	storedPaper(t, db, "paper-1")

	// Two readers load the same row version.
	first, err := db.GetPaper("paper-1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := db.GetPaper("paper-1")
	if err != nil {
		t.Fatal(err)
	}

	first.Title = "First writer wins"
	if err := db.UpdatePaper(first); err != nil {
		t.Fatalf("first update failed: %v", err)
	}

	second.Title = "Second writer silently overwrites"
	err = db.UpdatePaper(second)
	if !fault.Is(err, fault.KindConflict) {
		t.Fatalf("expected conflict fault for stale writer, got %v", err)
	}

	got, err := db.GetPaper("paper-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "First writer wins" {
		t.Errorf("stale write leaked through: %q", got.Title)
	}
	if got.RowVersion != 2 {
		t.Errorf("row version = %d, want 2", got.RowVersion)
	}
}

func TestUpdatePaper_BumpsCallerVersion(t *testing.T) {
	db := openTestDB(t)
	storedPaper(t, db, "paper-1")

	p, err := db.GetPaper("paper-1")
	if err != nil {
		t.Fatal(err)
	}
	p.Abstract = "edit one"
	if err := db.UpdatePaper(p); err != nil {
		t.Fatal(err)
	}
	// Same loaded aggregate can keep writing without re-fetching.
	p.Abstract = "edit two"
	if err := db.UpdatePaper(p); err != nil {
		t.Errorf("sequential updates on the same handle should succeed: %v", err)
	}
}

func TestDeletePaper(t *testing.T) {
	db := openTestDB(t)
	storedPaper(t, db, "paper-1")

	if err := db.DeletePaper("paper-1"); err != nil {
		t.Fatalf("DeletePaper failed: %v", err)
	}
	if _, err := db.GetPaper("paper-1"); !fault.Is(err, fault.KindNotFound) {
		t.Errorf("expected not_found after delete, got %v", err)
	}
	if err := db.DeletePaper("paper-1"); !fault.Is(err, fault.KindNotFound) {
		t.Errorf("double delete should be not_found, got %v", err)
	}
}

func TestCounters(t *testing.T) {
	db := openTestDB(t)
	storedPaper(t, db, "paper-1")

	for i := 0; i < 3; i++ {
		if err := db.IncrementViews("paper-1"); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.IncrementDownloads("paper-1"); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetPaper("paper-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Metrics.Views != 3 || got.Metrics.Downloads != 1 {
		t.Errorf("counters = %d views / %d downloads, want 3/1", got.Metrics.Views, got.Metrics.Downloads)
	}

	// Counter bumps must not invalidate a loaded row version.
	got.Abstract = "still editable"
	if err := db.UpdatePaper(got); err != nil {
		t.Errorf("counter increments should not conflict with edits: %v", err)
	}
}

func TestListPapersByStatus(t *testing.T) {
	db := openTestDB(t)
	storedPaper(t, db, "paper-1")
	p2 := storedPaper(t, db, "paper-2")

	p2loaded, err := db.GetPaper(p2.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := p2loaded.Submit(paper.SubmissionTarget{ConferenceRef: "conf"}, testNow); err != nil {
		t.Fatal(err)
	}
	if err := db.UpdatePaper(p2loaded); err != nil {
		t.Fatal(err)
	}

	drafts, err := db.ListPapersByStatus(paper.StatusDraft)
	if err != nil {
		t.Fatal(err)
	}
	if len(drafts) != 1 || drafts[0].ID != "paper-1" {
		t.Errorf("expected only paper-1 in drafts, got %d papers", len(drafts))
	}
}

func TestListVersionChain(t *testing.T) {
	db := openTestDB(t)
	parent := storedPaper(t, db, "paper-1")

	child, err := parent.Fork("paper-2", "tightened proofs", "user-na", testNow)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.InsertPaper(child); err != nil {
		t.Fatal(err)
	}

	chain, err := db.ListVersionChain("paper-2")
	if err != nil {
		t.Fatalf("ListVersionChain failed: %v", err)
	}
	if len(chain) != 2 || chain[0].ID != "paper-1" || chain[1].ID != "paper-2" {
		t.Errorf("unexpected chain: %d entries", len(chain))
	}
}
