package engine

import (
	"database/sql"
	"time"

	"github.com/peerflow/peerflow/internal/fault"
	"github.com/peerflow/peerflow/internal/identity"
	"github.com/peerflow/peerflow/internal/notify"
	"github.com/peerflow/peerflow/internal/paper"
	"github.com/peerflow/peerflow/internal/review"
	"github.com/peerflow/peerflow/internal/reviewer"
	"github.com/peerflow/peerflow/internal/storage"
)

// assignableStatuses are the paper states in which reviewers can be matched
// and assigned.
var assignableStatuses = map[paper.Status]bool{
	paper.StatusSubmitted:   true,
	paper.StatusUnderReview: true,
}

// MatchReviewers ranks eligible reviewers for the paper's current cycle.
// Editors only. The result is advisory: AssignReviewer re-validates
// eligibility at call time, because load and willingness can change between
// match and assign.
func (e *Engine) MatchReviewers(caller identity.Caller, paperID, expertiseFilter string, maxResults int) ([]reviewer.Candidate, error) {
	if !caller.IsEditor() {
		return nil, fault.New(fault.KindAuthorization, "only editors can match reviewers")
	}
	p, err := e.db.GetPaper(paperID)
	if err != nil {
		return nil, err
	}
	if !assignableStatuses[p.Status] {
		return nil, fault.New(fault.KindInvalidState,
			"paper %s is %s; reviewers are matched for submitted or under_review papers", p.ID, p.Status)
	}

	pool, active, err := e.candidatePool(p)
	if err != nil {
		return nil, err
	}
	return reviewer.Match(reviewer.MatchRequest{
		ResearchArea:    p.ResearchArea,
		ExpertiseFilter: expertiseFilter,
		MaxResults:      maxResults,
		ActiveOnPaper:   active,
	}, pool), nil
}

// AssignReviewer assigns one reviewer to the paper's current cycle with the
// given due date. Editors only. Eligibility is re-checked at call time, and
// the storage uniqueness guard turns a lost assignment race into an
// already_assigned fault with nothing persisted.
func (e *Engine) AssignReviewer(caller identity.Caller, paperID, reviewerID string, dueDate time.Time, isBlind bool) (*review.Review, error) {
	if !caller.IsEditor() {
		return nil, fault.New(fault.KindAuthorization, "only editors can assign reviewers")
	}
	p, err := e.db.GetPaper(paperID)
	if err != nil {
		return nil, err
	}
	if !assignableStatuses[p.Status] {
		return nil, fault.New(fault.KindInvalidState,
			"paper %s is %s; reviewers are assigned to submitted or under_review papers", p.ID, p.Status)
	}

	profile, err := e.db.GetReviewer(reviewerID)
	if err != nil {
		return nil, err
	}
	now := e.now()
	load, err := e.db.CountActiveReviews(reviewerID, now)
	if err != nil {
		return nil, err
	}
	active, err := e.db.ActiveReviewerIDs(paperID, p.ReviewCycle)
	if err != nil {
		return nil, err
	}
	cand := reviewer.Candidate{Profile: profile, CurrentLoad: load}
	if err := reviewer.Eligible(cand, p.ResearchArea, active[reviewerID]); err != nil {
		return nil, err
	}

	r, err := review.NewAssigned(e.newID(), paperID, reviewerID, caller.ID, p.ReviewCycle, dueDate, isBlind, now)
	if err != nil {
		return nil, err
	}
	assignment := paper.Assignment{
		ReviewerID:   reviewerID,
		Cycle:        p.ReviewCycle,
		Status:       paper.AssignmentActive,
		AssignedDate: r.AssignmentDate,
		DueDate:      r.DueDate,
		IsBlind:      isBlind,
	}

	// Both rows land in one transaction. A concurrent assignment of the
	// same reviewer to the same cycle violates the assignments primary key
	// and rolls the whole thing back.
	err = e.db.WithTx(func(tx *sql.Tx) error {
		if err := storage.InsertAssignmentTx(tx, paperID, assignment); err != nil {
			return err
		}
		return storage.InsertReviewTx(tx, r)
	})
	if err != nil {
		return nil, err
	}

	e.notifier.Notify(notify.Event{
		Type:       notify.EventReviewerAssigned,
		PaperID:    paperID,
		ReviewerID: reviewerID,
		Detail:     "due " + r.DueDate.Format(time.RFC3339),
		At:         now,
	})
	return r, nil
}

// DeclineAssignment withdraws an assigned review before any draft work. The
// slot reopens: the reviewer drops out of progress counts and may not hold
// another active assignment for the same cycle until reassigned.
func (e *Engine) DeclineAssignment(caller identity.Caller, reviewID, reason string) (*review.Review, error) {
	r, err := e.db.GetReview(reviewID)
	if err != nil {
		return nil, err
	}
	if !caller.Owns(r.ReviewerID) && !caller.IsAdmin() {
		return nil, fault.New(fault.KindAuthorization,
			"only the assigned reviewer can decline review %s", reviewID)
	}
	if err := r.Decline(reason); err != nil {
		return nil, err
	}

	err = e.db.WithTx(func(tx *sql.Tx) error {
		if err := storage.UpdateReviewTx(tx, r); err != nil {
			return err
		}
		return storage.UpdateAssignmentStatusTx(tx, r.PaperID, r.ReviewerID, r.Cycle, paper.AssignmentDeclined)
	})
	if err != nil {
		return nil, err
	}

	e.notifier.Notify(notify.Event{
		Type:       notify.EventAssignmentDeclined,
		PaperID:    r.PaperID,
		ReviewerID: r.ReviewerID,
		Detail:     r.WithdrawReason,
		At:         e.now(),
	})
	return r, nil
}

// candidatePool loads every reviewer profile with its derived current load.
func (e *Engine) candidatePool(p *paper.Paper) ([]reviewer.Candidate, map[string]bool, error) {
	profiles, err := e.db.ListReviewers()
	if err != nil {
		return nil, nil, err
	}
	now := e.now()
	pool := make([]reviewer.Candidate, 0, len(profiles))
	for _, profile := range profiles {
		load, err := e.db.CountActiveReviews(profile.ID, now)
		if err != nil {
			return nil, nil, err
		}
		pool = append(pool, reviewer.Candidate{Profile: profile, CurrentLoad: load})
	}
	active, err := e.db.ActiveReviewerIDs(p.ID, p.ReviewCycle)
	if err != nil {
		return nil, nil, err
	}
	return pool, active, nil
}
