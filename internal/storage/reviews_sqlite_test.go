package storage

import (
	"database/sql"
	"testing"
	"time"

	"github.com/peerflow/peerflow/internal/fault"
	"github.com/peerflow/peerflow/internal/paper"
	"github.com/peerflow/peerflow/internal/review"
)

func assignTestReview(t *testing.T, db *DB, id, paperID, reviewerID string, cycle int, due time.Time) *review.Review {
	t.Helper()
	r, err := review.NewAssigned(id, paperID, reviewerID, "editor-1", cycle, due, false, testNow)
	if err != nil {
		t.Fatal(err)
	}
	err = db.WithTx(func(tx *sql.Tx) error {
		if err := InsertAssignmentTx(tx, paperID, paper.Assignment{
			ReviewerID:   reviewerID,
			Cycle:        cycle,
			Status:       paper.AssignmentActive,
			AssignedDate: testNow,
			DueDate:      due,
		}); err != nil {
			return err
		}
		return InsertReviewTx(tx, r)
	})
	if err != nil {
		t.Fatalf("storing review: %v", err)
	}
	return r
}

func TestAssignmentRace_SecondWriterLoses(t *testing.T) {
	db := openTestDB(t)
	storedPaper(t, db, "paper-1")
	due := testNow.AddDate(0, 0, 14)

	assignTestReview(t, db, "rev-1", "paper-1", "reviewer-a", 1, due)

	// Same (paper, reviewer, cycle): the constraint rejects the duplicate
	// and the transaction rolls back both writes.
	r2, err := review.NewAssigned("rev-2", "paper-1", "reviewer-a", "editor-2", 1, due, false, testNow)
	if err != nil {
		t.Fatal(err)
	}
	err = db.WithTx(func(tx *sql.Tx) error {
		if err := InsertAssignmentTx(tx, "paper-1", paper.Assignment{
			ReviewerID: "reviewer-a", Cycle: 1, Status: paper.AssignmentActive,
			AssignedDate: testNow, DueDate: due,
		}); err != nil {
			return err
		}
		return InsertReviewTx(tx, r2)
	})
	if !fault.Is(err, fault.KindAlreadyAssigned) {
		t.Fatalf("expected already_assigned fault, got %v", err)
	}

	reviews, err := db.ListReviewsForPaper("paper-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(reviews) != 1 {
		t.Errorf("expected exactly one review after the race, got %d", len(reviews))
	}
	p, err := db.GetPaper("paper-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.AssignedReviewers) != 1 {
		t.Errorf("expected exactly one assignment entry, got %d", len(p.AssignedReviewers))
	}
}

func TestAssignmentNextCycle_Allowed(t *testing.T) {
	db := openTestDB(t)
	storedPaper(t, db, "paper-1")
	due := testNow.AddDate(0, 0, 14)

	assignTestReview(t, db, "rev-1", "paper-1", "reviewer-a", 1, due)
	assignTestReview(t, db, "rev-2", "paper-1", "reviewer-a", 2, due)

	reviews, err := db.ListReviewsForPaper("paper-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(reviews) != 2 {
		t.Errorf("same reviewer in a later cycle should be allowed, got %d reviews", len(reviews))
	}
}

func TestReassignmentAfterDecline_Allowed(t *testing.T) {
	db := openTestDB(t)
	storedPaper(t, db, "paper-1")
	due := testNow.AddDate(0, 0, 14)

	r1 := assignTestReview(t, db, "rev-1", "paper-1", "reviewer-a", 1, due)
	if err := r1.Decline("conflict of interest"); err != nil {
		t.Fatal(err)
	}
	err := db.WithTx(func(tx *sql.Tx) error {
		if err := UpdateReviewTx(tx, r1); err != nil {
			return err
		}
		return UpdateAssignmentStatusTx(tx, "paper-1", "reviewer-a", 1, paper.AssignmentDeclined)
	})
	if err != nil {
		t.Fatal(err)
	}

	// The declined slot does not block a fresh assignment of the same
	// reviewer in the same cycle.
	assignTestReview(t, db, "rev-2", "paper-1", "reviewer-a", 1, due)

	got, err := db.GetReviewByKey("paper-1", "reviewer-a", 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "rev-2" || got.Status == review.StatusWithdrawn {
		t.Errorf("expected the live review rev-2, got %s (%s)", got.ID, got.Status)
	}

	withdrawn, err := db.GetReview("rev-1")
	if err != nil {
		t.Fatal(err)
	}
	if withdrawn.Status != review.StatusWithdrawn {
		t.Errorf("rev-1 status = %s, want withdrawn", withdrawn.Status)
	}
}

func TestReviewRoundTrip(t *testing.T) {
	db := openTestDB(t)
	storedPaper(t, db, "paper-1")
	due := testNow.AddDate(0, 0, 14)
	r := assignTestReview(t, db, "rev-1", "paper-1", "reviewer-a", 1, due)

	if err := r.SaveDraft(review.DraftPatch{
		Rating: review.Rating{Clarity: review.CategoryRating{Score: 4, Comment: "clean"}},
	}); err != nil {
		t.Fatal(err)
	}
	if err := r.AddComment("methods", "needs a baseline", 3, testNow); err != nil {
		t.Fatal(err)
	}
	if err := db.UpdateReview(r); err != nil {
		t.Fatalf("UpdateReview failed: %v", err)
	}

	got, err := db.GetReview("rev-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != review.StatusInProgress {
		t.Errorf("status = %s, want in_progress", got.Status)
	}
	if got.Rating.Clarity.Score != 4 || got.Rating.Clarity.Comment != "clean" {
		t.Errorf("rating not preserved: %+v", got.Rating.Clarity)
	}
	if len(got.Comments) != 1 || got.Comments[0].Section != "methods" {
		t.Errorf("comments not preserved: %+v", got.Comments)
	}
	if got.DueDate != due {
		t.Errorf("due date = %v, want %v", got.DueDate, due)
	}
}

func TestGetReviewByKey(t *testing.T) {
	db := openTestDB(t)
	storedPaper(t, db, "paper-1")
	assignTestReview(t, db, "rev-1", "paper-1", "reviewer-a", 1, testNow.AddDate(0, 0, 14))

	got, err := db.GetReviewByKey("paper-1", "reviewer-a", 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "rev-1" {
		t.Errorf("got review %s, want rev-1", got.ID)
	}

	if _, err := db.GetReviewByKey("paper-1", "reviewer-a", 2); !fault.Is(err, fault.KindNotFound) {
		t.Errorf("expected not_found for wrong cycle, got %v", err)
	}
}

func TestListOverdueReviews(t *testing.T) {
	db := openTestDB(t)
	storedPaper(t, db, "paper-1")

	soon := testNow.AddDate(0, 0, 7)
	later := testNow.AddDate(0, 0, 30)
	assignTestReview(t, db, "rev-soon", "paper-1", "reviewer-a", 1, soon)
	assignTestReview(t, db, "rev-later", "paper-1", "reviewer-b", 1, later)

	overdue, err := db.ListOverdueReviews(testNow.AddDate(0, 0, 10))
	if err != nil {
		t.Fatal(err)
	}
	if len(overdue) != 1 || overdue[0].ID != "rev-soon" {
		t.Errorf("expected only rev-soon overdue, got %d reviews", len(overdue))
	}

	// Completing the review removes it from the overdue view.
	r, err := db.GetReview("rev-soon")
	if err != nil {
		t.Fatal(err)
	}
	full := review.Rating{
		Originality:      review.CategoryRating{Score: 3},
		Significance:     review.CategoryRating{Score: 3},
		TechnicalQuality: review.CategoryRating{Score: 3},
		Clarity:          review.CategoryRating{Score: 3},
		Overall:          review.CategoryRating{Score: 3},
	}
	if err := r.Submit(full, "ok", review.Recommendation{Decision: review.RecommendReject}, testNow); err != nil {
		t.Fatal(err)
	}
	if err := db.UpdateReview(r); err != nil {
		t.Fatal(err)
	}

	overdue, err = db.ListOverdueReviews(testNow.AddDate(0, 0, 10))
	if err != nil {
		t.Fatal(err)
	}
	if len(overdue) != 0 {
		t.Errorf("completed reviews must not show as overdue, got %d", len(overdue))
	}
}

func TestCountActiveReviews(t *testing.T) {
	db := openTestDB(t)
	storedPaper(t, db, "paper-1")
	storedPaper(t, db, "paper-2")
	storedPaper(t, db, "paper-3")

	future := testNow.AddDate(0, 0, 14)
	assignTestReview(t, db, "rev-1", "paper-1", "reviewer-a", 1, future)
	assignTestReview(t, db, "rev-2", "paper-2", "reviewer-a", 1, future)
	// Past-due reviews no longer count against load.
	assignTestReview(t, db, "rev-3", "paper-3", "reviewer-a", 1, testNow.AddDate(0, 0, 1))

	n, err := db.CountActiveReviews("reviewer-a", testNow.AddDate(0, 0, 7))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("active load = %d, want 2", n)
	}
}

func TestActiveReviewerIDs(t *testing.T) {
	db := openTestDB(t)
	storedPaper(t, db, "paper-1")
	due := testNow.AddDate(0, 0, 14)
	assignTestReview(t, db, "rev-1", "paper-1", "reviewer-a", 1, due)
	assignTestReview(t, db, "rev-2", "paper-1", "reviewer-b", 1, due)

	err := db.WithTx(func(tx *sql.Tx) error {
		return UpdateAssignmentStatusTx(tx, "paper-1", "reviewer-b", 1, paper.AssignmentDeclined)
	})
	if err != nil {
		t.Fatal(err)
	}

	active, err := db.ActiveReviewerIDs("paper-1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if !active["reviewer-a"] || active["reviewer-b"] || len(active) != 1 {
		t.Errorf("unexpected active set: %v", active)
	}
}

func TestCompletedReviewIDsOnPaper(t *testing.T) {
	db := openTestDB(t)
	storedPaper(t, db, "paper-1")
	r := assignTestReview(t, db, "rev-1", "paper-1", "reviewer-a", 1, testNow.AddDate(0, 0, 14))

	p, err := db.GetPaper("paper-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.ReviewIDs) != 0 {
		t.Error("open reviews should not appear in the paper's review id set")
	}

	full := review.Rating{
		Originality:      review.CategoryRating{Score: 4},
		Significance:     review.CategoryRating{Score: 4},
		TechnicalQuality: review.CategoryRating{Score: 4},
		Clarity:          review.CategoryRating{Score: 4},
		Overall:          review.CategoryRating{Score: 4},
	}
	if err := r.Submit(full, "well executed", review.Recommendation{Decision: review.RecommendAccept}, testNow); err != nil {
		t.Fatal(err)
	}
	if err := db.UpdateReview(r); err != nil {
		t.Fatal(err)
	}

	p, err = db.GetPaper("paper-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.ReviewIDs) != 1 || p.ReviewIDs[0] != "rev-1" {
		t.Errorf("review ids = %v, want [rev-1]", p.ReviewIDs)
	}
}
