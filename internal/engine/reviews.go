package engine

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/peerflow/peerflow/internal/fault"
	"github.com/peerflow/peerflow/internal/identity"
	"github.com/peerflow/peerflow/internal/notify"
	"github.com/peerflow/peerflow/internal/paper"
	"github.com/peerflow/peerflow/internal/review"
	"github.com/peerflow/peerflow/internal/storage"
)

// SaveReviewDraft merges partial rating and text into the review. The first
// draft moves the review to in_progress. Only the assigned reviewer may
// draft.
func (e *Engine) SaveReviewDraft(caller identity.Caller, reviewID string, patch review.DraftPatch) (*review.Review, error) {
	r, err := e.ownReview(caller, reviewID)
	if err != nil {
		return nil, err
	}
	if err := r.SaveDraft(patch); err != nil {
		return nil, err
	}
	if err := e.db.UpdateReview(r); err != nil {
		return nil, err
	}
	return r, nil
}

// AddReviewComment attaches an inline comment to an open review.
func (e *Engine) AddReviewComment(caller identity.Caller, reviewID, section, text string, pageNumber int) (*review.Review, error) {
	r, err := e.ownReview(caller, reviewID)
	if err != nil {
		return nil, err
	}
	if err := r.AddComment(section, text, pageNumber, e.now()); err != nil {
		return nil, err
	}
	if err := e.db.UpdateReview(r); err != nil {
		return nil, err
	}
	return r, nil
}

// SubmitReview completes the review with full ratings, summary text, and a
// recommendation. The review row and the paper's assignment entry move to
// completed in one transaction; the paper's derived progress is refreshed
// afterwards. A repeated submit fails with already_submitted rather than
// overwriting the first.
func (e *Engine) SubmitReview(caller identity.Caller, reviewID string, rating review.Rating, reviewText string, rec review.Recommendation) (*review.Review, error) {
	r, err := e.ownReview(caller, reviewID)
	if err != nil {
		return nil, err
	}
	now := e.now()
	if err := r.Submit(rating, reviewText, rec, now); err != nil {
		return nil, err
	}

	err = e.db.WithTx(func(tx *sql.Tx) error {
		if err := storage.UpdateReviewTx(tx, r); err != nil {
			return err
		}
		return storage.UpdateAssignmentStatusTx(tx, r.PaperID, r.ReviewerID, r.Cycle, paper.AssignmentCompleted)
	})
	if err != nil {
		return nil, err
	}

	// Bookkeeping on the paper row, after the review commit. A lost
	// concurrency race here retries internally; the review itself is
	// already durable.
	err = e.retryPaperUpdate(r.PaperID, func(p *paper.Paper) error {
		p.AppendChange(r.ReviewerID,
			fmt.Sprintf("review completed for cycle %d", r.Cycle), now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.notifier.Notify(notify.Event{
		Type:       notify.EventReviewCompleted,
		PaperID:    r.PaperID,
		ReviewerID: r.ReviewerID,
		Detail:     string(rec.Decision),
		At:         now,
	})
	return r, nil
}

// GetReview loads one review by id.
func (e *Engine) GetReview(id string) (*review.Review, error) {
	return e.db.GetReview(id)
}

// ListReviewsForPaper returns the paper's reviews across all cycles.
func (e *Engine) ListReviewsForPaper(paperID string) ([]*review.Review, error) {
	return e.db.ListReviewsForPaper(paperID)
}

// ListReviewsForReviewer returns the reviewer's reviews, newest first.
func (e *Engine) ListReviewsForReviewer(reviewerID string) ([]*review.Review, error) {
	return e.db.ListReviewsForReviewer(reviewerID)
}

// ListOverdueReviews returns open reviews past their due date. Lateness is
// derived from the due date at query time; nothing is stored.
func (e *Engine) ListOverdueReviews(caller identity.Caller) ([]*review.Review, error) {
	if !caller.IsEditor() {
		return nil, fault.New(fault.KindAuthorization, "only editors can list overdue reviews")
	}
	return e.db.ListOverdueReviews(e.now())
}

// ReviewView is a review as shown to paper authors. For blind reviews the
// reviewer identity is replaced by a stable pseudonymous handle.
type ReviewView struct {
	Review         *review.Review `json:"review"`
	ReviewerHandle string         `json:"reviewer_handle,omitempty"`
}

// AuthorViews renders the paper's reviews for its authors, masking blind
// reviewer identities. Non-blind reviews pass through unchanged.
func (e *Engine) AuthorViews(paperID string) ([]ReviewView, error) {
	reviews, err := e.db.ListReviewsForPaper(paperID)
	if err != nil {
		return nil, err
	}
	views := make([]ReviewView, 0, len(reviews))
	for _, r := range reviews {
		v := ReviewView{Review: r}
		if r.IsBlind {
			masked := *r
			masked.ReviewerID = ""
			v.Review = &masked
			if e.pseudo != nil {
				v.ReviewerHandle = e.pseudo.Handle(r.PaperID, r.ReviewerID)
			}
		}
		views = append(views, v)
	}
	return views, nil
}

// ReviewerLoad reports a reviewer's derived current load and remaining
// capacity.
func (e *Engine) ReviewerLoad(reviewerID string, now time.Time) (load, slots int, err error) {
	profile, err := e.db.GetReviewer(reviewerID)
	if err != nil {
		return 0, 0, err
	}
	load, err = e.db.CountActiveReviews(reviewerID, now)
	if err != nil {
		return 0, 0, err
	}
	return load, profile.AvailableSlots(load), nil
}

// ownReview loads a review and checks the caller is its assigned reviewer.
func (e *Engine) ownReview(caller identity.Caller, reviewID string) (*review.Review, error) {
	r, err := e.db.GetReview(reviewID)
	if err != nil {
		return nil, err
	}
	if !caller.Owns(r.ReviewerID) && !caller.IsAdmin() {
		return nil, fault.New(fault.KindAuthorization,
			"only the assigned reviewer can modify review %s", reviewID)
	}
	return r, nil
}
