package engine

import (
	"database/sql"
	"fmt"

	"github.com/peerflow/peerflow/internal/fault"
	"github.com/peerflow/peerflow/internal/identity"
	"github.com/peerflow/peerflow/internal/notify"
	"github.com/peerflow/peerflow/internal/paper"
	"github.com/peerflow/peerflow/internal/storage"
)

// CreatePaper creates a version-1 draft owned by the caller.
func (e *Engine) CreatePaper(caller identity.Caller, input paper.CreateInput) (*paper.Paper, error) {
	if caller.ID == "" {
		return nil, fault.New(fault.KindAuthorization, "caller identity is required")
	}
	input.CreatedBy = caller.ID

	p, err := paper.Create(input, e.newID(), e.now())
	if err != nil {
		return nil, err
	}
	if err := e.db.InsertPaper(p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetPaper loads one paper with its assignments, review ids, and citation
// links.
func (e *Engine) GetPaper(id string) (*paper.Paper, error) {
	return e.db.GetPaper(id)
}

// EditPaper applies a content patch to a paper in an editable state. The
// write is guarded by optimistic concurrency: a concurrent edit of the same
// paper surfaces as a conflict fault and the caller retries from a fresh
// read.
func (e *Engine) EditPaper(caller identity.Caller, paperID string, patch paper.Patch) (*paper.Paper, error) {
	return e.mutatePaper(caller, paperID, "updated content", func(p *paper.Paper) error {
		return p.ApplyPatch(patch, e.now())
	})
}

// SubmitPaper submits a draft or revision to the given target. Resubmitting
// after a revision request opens the next review cycle.
func (e *Engine) SubmitPaper(caller identity.Caller, paperID string, target paper.SubmissionTarget) (*paper.Paper, error) {
	return e.mutatePaper(caller, paperID, "submitted to "+target.ConferenceRef, func(p *paper.Paper) error {
		return p.Submit(target, e.now())
	})
}

// StartReview moves a submitted paper under review. Editors only.
func (e *Engine) StartReview(caller identity.Caller, paperID string) (*paper.Paper, error) {
	if !caller.IsEditor() {
		return nil, fault.New(fault.KindAuthorization, "only editors can start a review")
	}
	return e.updatePaper(caller, paperID, "review started", func(p *paper.Paper) error {
		return p.StartReview(e.now())
	})
}

// Decide applies an editorial decision to a paper under review. Editors
// only. The resulting status change is announced to the notifier.
func (e *Engine) Decide(caller identity.Caller, paperID string, decision paper.Decision) (*paper.Paper, error) {
	if !caller.IsEditor() {
		return nil, fault.New(fault.KindAuthorization, "only editors can decide on a paper")
	}
	p, err := e.updatePaper(caller, paperID, "decision: "+string(decision), func(p *paper.Paper) error {
		return p.Decide(decision, e.now())
	})
	if err != nil {
		return nil, err
	}
	e.notifier.Notify(notify.Event{
		Type:    notify.EventPaperDecision,
		PaperID: p.ID,
		Detail:  string(decision),
		At:      e.now(),
	})
	return p, nil
}

// Publish moves an accepted paper to published. Editors only.
func (e *Engine) Publish(caller identity.Caller, paperID string) (*paper.Paper, error) {
	if !caller.IsEditor() {
		return nil, fault.New(fault.KindAuthorization, "only editors can publish a paper")
	}
	return e.updatePaper(caller, paperID, "published", func(p *paper.Paper) error {
		return p.Publish(e.now())
	})
}

// ForkPaper creates the next version of a paper as a fresh draft. The
// parent is marked superseded in the same transaction; it becomes immutable
// but remains queryable for provenance.
func (e *Engine) ForkPaper(caller identity.Caller, paperID, changesDescription string) (*paper.Paper, error) {
	parent, err := e.db.GetPaper(paperID)
	if err != nil {
		return nil, err
	}
	if !caller.CanEditPaper(parent.CreatedBy) {
		return nil, fault.New(fault.KindAuthorization,
			"caller %s cannot fork paper %s", caller.ID, paperID)
	}

	child, err := parent.Fork(e.newID(), changesDescription, caller.ID, e.now())
	if err != nil {
		return nil, err
	}
	err = e.db.WithTx(func(tx *sql.Tx) error {
		if err := storage.UpdatePaperTx(tx, parent); err != nil {
			return err
		}
		return storage.InsertPaperTx(tx, child)
	})
	if err != nil {
		return nil, err
	}
	return child, nil
}

// DeletePaper removes a paper that never entered the review pipeline.
func (e *Engine) DeletePaper(caller identity.Caller, paperID string) error {
	p, err := e.db.GetPaper(paperID)
	if err != nil {
		return err
	}
	if !caller.CanEditPaper(p.CreatedBy) {
		return fault.New(fault.KindAuthorization,
			"caller %s cannot delete paper %s", caller.ID, paperID)
	}
	if err := p.CanDelete(); err != nil {
		return err
	}
	return e.db.DeletePaper(paperID)
}

// RecordView bumps the paper's view counter. Counters are plain increments
// outside the optimistic-concurrency guard, so concurrent reads never make
// content edits fail.
func (e *Engine) RecordView(paperID string) error {
	return e.db.IncrementViews(paperID)
}

// RecordDownload bumps the paper's download counter.
func (e *Engine) RecordDownload(paperID string) error {
	return e.db.IncrementDownloads(paperID)
}

// VersionChain returns the paper's fork lineage, oldest version first.
func (e *Engine) VersionChain(paperID string) ([]*paper.Paper, error) {
	return e.db.ListVersionChain(paperID)
}

// ReviewProgress reports completed and total assignments for the paper's
// current review cycle.
func (e *Engine) ReviewProgress(paperID string) (completed, total int, err error) {
	p, err := e.db.GetPaper(paperID)
	if err != nil {
		return 0, 0, err
	}
	completed, total = p.ReviewProgress()
	return completed, total, nil
}

// mutatePaper is the owner-gated read-modify-write path for paper content.
func (e *Engine) mutatePaper(caller identity.Caller, paperID, change string, fn func(*paper.Paper) error) (*paper.Paper, error) {
	p, err := e.db.GetPaper(paperID)
	if err != nil {
		return nil, err
	}
	if !caller.CanEditPaper(p.CreatedBy) {
		return nil, fault.New(fault.KindAuthorization,
			"caller %s cannot modify paper %s", caller.ID, paperID)
	}
	return e.applyPaperUpdate(caller, p, change, fn)
}

// updatePaper is the read-modify-write path for callers already authorized
// by role.
func (e *Engine) updatePaper(caller identity.Caller, paperID, change string, fn func(*paper.Paper) error) (*paper.Paper, error) {
	p, err := e.db.GetPaper(paperID)
	if err != nil {
		return nil, err
	}
	return e.applyPaperUpdate(caller, p, change, fn)
}

func (e *Engine) applyPaperUpdate(caller identity.Caller, p *paper.Paper, change string, fn func(*paper.Paper) error) (*paper.Paper, error) {
	if err := fn(p); err != nil {
		return nil, err
	}
	p.AppendChange(caller.ID, change, e.now())
	if err := e.db.UpdatePaper(p); err != nil {
		return nil, err
	}
	return p, nil
}

// retryPaperUpdate re-applies internal paper bookkeeping, retrying a
// bounded number of times when the paper row moved underneath it. Used for
// derived updates like review completion, where the caller did not choose
// the write and should not be asked to retry it.
func (e *Engine) retryPaperUpdate(paperID string, fn func(*paper.Paper) error) error {
	for attempt := 0; ; attempt++ {
		p, err := e.db.GetPaper(paperID)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		err = e.db.UpdatePaper(p)
		if err == nil {
			return nil
		}
		if fault.KindOf(err) != fault.KindConflict || attempt >= conflictRetries {
			return fmt.Errorf("updating paper %s: %w", paperID, err)
		}
	}
}
