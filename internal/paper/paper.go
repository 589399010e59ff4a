// Package paper defines the paper aggregate and its lifecycle rules.
package paper

import (
	"fmt"
	"strings"
	"time"

	"github.com/peerflow/peerflow/internal/fault"
)

// Author is one entry in a paper's ordered author list. Name may be free
// text; IdentityRef, when set, points at an identity-provider id.
type Author struct {
	Name            string `json:"name"`
	IdentityRef     string `json:"identity_ref,omitempty"`
	IsCorresponding bool   `json:"is_corresponding"`
}

// AssignmentStatus tracks one reviewer's assignment entry on a paper.
type AssignmentStatus string

const (
	AssignmentActive    AssignmentStatus = "assigned"
	AssignmentDeclined  AssignmentStatus = "declined"
	AssignmentCompleted AssignmentStatus = "completed"
)

// Assignment records one reviewer assigned to one review cycle of a paper.
type Assignment struct {
	ReviewerID   string           `json:"reviewer_id"`
	Cycle        int              `json:"cycle"`
	Status       AssignmentStatus `json:"status"`
	AssignedDate time.Time        `json:"assigned_date"`
	DueDate      time.Time        `json:"due_date"`
	IsBlind      bool             `json:"is_blind"`
}

// Active reports whether the assignment still expects a review.
func (a Assignment) Active() bool {
	return a.Status == AssignmentActive
}

// Metrics are the paper's monotonic usage counters, incremented only through
// dedicated operations.
type Metrics struct {
	Views         int `json:"views"`
	Downloads     int `json:"downloads"`
	CitationCount int `json:"citation_count"`
}

// ChangeLogEntry is one append-only provenance record.
type ChangeLogEntry struct {
	At          time.Time `json:"at"`
	By          string    `json:"by"`
	Description string    `json:"description"`
}

// SubmissionTarget records where a paper was submitted.
type SubmissionTarget struct {
	ConferenceRef string `json:"conference_ref"`
	Track         string `json:"track,omitempty"`
}

// Paper represents one version of one submission. Forked revisions are new
// Paper records linked through ParentPaperID.
type Paper struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Abstract      string `json:"abstract"`
	ResearchArea  string `json:"research_area"`
	Methodology   string `json:"methodology,omitempty"`
	Status        Status `json:"status"`
	Version       int    `json:"version"`
	ParentPaperID string `json:"parent_paper_id,omitempty"`

	// SupersededByID is set when a newer version was forked from this
	// paper. A superseded paper is immutable but stays queryable.
	SupersededByID string `json:"superseded_by_id,omitempty"`

	Authors               []Author `json:"authors"`
	CorrespondingAuthorID string   `json:"corresponding_author_id,omitempty"`

	AssignedReviewers []Assignment `json:"assigned_reviewers"`
	ReviewIDs         []string     `json:"review_ids"`
	CitationIDs       []string     `json:"citation_ids"`

	Metrics     Metrics          `json:"metrics"`
	ReviewCycle int              `json:"review_cycle"`
	ChangeLog   []ChangeLogEntry `json:"change_log"`

	Submission     *SubmissionTarget `json:"submission,omitempty"`
	SubmissionDate time.Time         `json:"submission_date,omitempty"`

	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// RowVersion supports optimistic concurrency in the storage layer.
	// It never travels in external representations.
	RowVersion int64 `json:"-"`
}

// CreateInput describes the fields needed to create a version-1 paper.
type CreateInput struct {
	Title        string
	Abstract     string
	ResearchArea string
	Methodology  string
	Authors      []Author
	CreatedBy    string
}

// Create builds a new draft paper at version 1.
func Create(input CreateInput, id string, now time.Time) (*Paper, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	now = now.UTC()
	p := &Paper{
		ID:           id,
		Title:        strings.TrimSpace(input.Title),
		Abstract:     strings.TrimSpace(input.Abstract),
		ResearchArea: strings.TrimSpace(input.ResearchArea),
		Methodology:  strings.TrimSpace(input.Methodology),
		Status:       StatusDraft,
		Version:      1,
		Authors:      input.Authors,
		ReviewCycle:  1,
		CreatedBy:    input.CreatedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, a := range input.Authors {
		if a.IsCorresponding && a.IdentityRef != "" {
			p.CorrespondingAuthorID = a.IdentityRef
			break
		}
	}
	return p, nil
}

func validateCreateInput(input CreateInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return fault.New(fault.KindValidation, "title is required")
	}
	if strings.TrimSpace(input.ResearchArea) == "" {
		return fault.New(fault.KindValidation, "research area is required")
	}
	if len(input.Authors) == 0 {
		return fault.New(fault.KindValidation, "at least one author is required")
	}
	if input.CreatedBy == "" {
		return fault.New(fault.KindValidation, "creator id is required")
	}
	return nil
}

// Patch holds optional replacement values for editable paper content.
type Patch struct {
	Title        *string
	Abstract     *string
	ResearchArea *string
	Methodology  *string
	Authors      []Author // replaces the full list when non-nil
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Abstract == nil && p.ResearchArea == nil &&
		p.Methodology == nil && p.Authors == nil
}

// Submit moves the paper into the submitted state, recording the target.
// Legal only from draft or revision_requested. Resubmission after a revision
// request opens the next review cycle.
func (p *Paper) Submit(target SubmissionTarget, now time.Time) error {
	if target.ConferenceRef == "" {
		return fault.New(fault.KindValidation, "submission target is required")
	}
	if p.Superseded() {
		return p.supersededFault("submit")
	}
	if !p.Status.Editable() {
		return p.stateFault("submit")
	}
	if p.Status == StatusRevisionRequested {
		p.ReviewCycle++
	}
	p.Status = StatusSubmitted
	p.Submission = &target
	p.SubmissionDate = now.UTC()
	p.touch(now)
	return nil
}

// StartReview moves a submitted paper under review.
func (p *Paper) StartReview(now time.Time) error {
	if !p.Status.CanTransition(StatusUnderReview) {
		return p.stateFault("start review")
	}
	p.Status = StatusUnderReview
	p.touch(now)
	return nil
}

// Decision is an editor's verdict on a paper under review.
type Decision string

const (
	DecisionAccept           Decision = "accept"
	DecisionReject           Decision = "reject"
	DecisionRequestRevisions Decision = "request_revisions"
)

// decisionStatus maps a decision to the resulting paper status.
var decisionStatus = map[Decision]Status{
	DecisionAccept:           StatusAccepted,
	DecisionReject:           StatusRejected,
	DecisionRequestRevisions: StatusRevisionRequested,
}

// Decide applies an editorial decision. The engine never makes this
// transition automatically; it is always an explicit editor action.
func (p *Paper) Decide(d Decision, now time.Time) error {
	target, ok := decisionStatus[d]
	if !ok {
		return fault.New(fault.KindValidation, "unknown decision %q", d)
	}
	if !p.Status.CanTransition(target) {
		return p.stateFault(string(d))
	}
	p.Status = target
	p.touch(now)
	return nil
}

// Publish moves an accepted paper to published.
func (p *Paper) Publish(now time.Time) error {
	if !p.Status.CanTransition(StatusPublished) {
		return p.stateFault("publish")
	}
	p.Status = StatusPublished
	p.touch(now)
	return nil
}

// ApplyPatch edits paper content. Legal only in editable states on papers
// that have not been superseded.
func (p *Paper) ApplyPatch(patch Patch, now time.Time) error {
	if p.Superseded() {
		return p.supersededFault("edit")
	}
	if p.Status.Terminal() {
		return fault.New(fault.KindImmutablePaper,
			"paper %s is %s and can no longer be edited", p.ID, p.Status)
	}
	if !p.Status.Editable() {
		return p.stateFault("edit")
	}
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return fault.New(fault.KindValidation, "title cannot be empty")
		}
		p.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Abstract != nil {
		p.Abstract = strings.TrimSpace(*patch.Abstract)
	}
	if patch.ResearchArea != nil {
		if strings.TrimSpace(*patch.ResearchArea) == "" {
			return fault.New(fault.KindValidation, "research area cannot be empty")
		}
		p.ResearchArea = strings.TrimSpace(*patch.ResearchArea)
	}
	if patch.Methodology != nil {
		p.Methodology = strings.TrimSpace(*patch.Methodology)
	}
	if patch.Authors != nil {
		if len(patch.Authors) == 0 {
			return fault.New(fault.KindValidation, "author list cannot be emptied")
		}
		p.Authors = patch.Authors
	}
	p.touch(now)
	return nil
}

// CanDelete reports whether the paper may still be deleted. Papers that have
// entered the review pipeline or been superseded are retained for
// provenance.
func (p *Paper) CanDelete() error {
	if p.Superseded() {
		return p.supersededFault("delete")
	}
	if p.Status.Editable() {
		return nil
	}
	return fault.New(fault.KindImmutablePaper,
		"paper %s is %s and cannot be deleted", p.ID, p.Status)
}

// Superseded reports whether a newer version was forked from this paper.
func (p *Paper) Superseded() bool {
	return p.SupersededByID != ""
}

// Fork creates the next version of this paper and marks this paper
// superseded. A superseded parent is immutable from then on but remains
// queryable for provenance. Legal from draft (author-initiated) or
// revision_requested (revision resubmitted as a new version).
func (p *Paper) Fork(id, changesDescription, by string, now time.Time) (*Paper, error) {
	if p.Superseded() {
		return nil, p.supersededFault("fork")
	}
	if !p.Status.Editable() {
		return nil, fault.New(fault.KindInvalidState,
			"paper %s is %s; only draft or revision_requested papers can be forked", p.ID, p.Status)
	}
	if strings.TrimSpace(changesDescription) == "" {
		return nil, fault.New(fault.KindValidation, "changes description is required")
	}

	now = now.UTC()
	child := &Paper{
		ID:            id,
		Title:         p.Title,
		Abstract:      p.Abstract,
		ResearchArea:  p.ResearchArea,
		Methodology:   p.Methodology,
		Status:        StatusDraft,
		Version:       p.Version + 1,
		ParentPaperID: p.ID,

		Authors:               append([]Author(nil), p.Authors...),
		CorrespondingAuthorID: p.CorrespondingAuthorID,

		ReviewCycle: 1,
		CreatedBy:   by,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	child.ChangeLog = append(child.ChangeLog, ChangeLogEntry{
		At:          now,
		By:          by,
		Description: changesDescription,
	})

	p.SupersededByID = id
	p.AppendChange(by, "superseded by version "+child.versionLabel(), now)
	p.touch(now)
	return child, nil
}

func (p *Paper) versionLabel() string {
	return fmt.Sprintf("%d (%s)", p.Version, p.ID)
}

// ActiveAssignment returns the reviewer's active assignment in the current
// cycle, or nil. The invariant is at most one active entry per reviewer per
// cycle; the storage layer enforces it, this is the in-memory view.
func (p *Paper) ActiveAssignment(reviewerID string) *Assignment {
	for i := range p.AssignedReviewers {
		a := &p.AssignedReviewers[i]
		if a.ReviewerID == reviewerID && a.Cycle == p.ReviewCycle && a.Active() {
			return a
		}
	}
	return nil
}

// ReviewProgress reports completed and total assignments for the current
// cycle. Declined assignments drop out of both counts.
func (p *Paper) ReviewProgress() (completed, total int) {
	for _, a := range p.AssignedReviewers {
		if a.Cycle != p.ReviewCycle || a.Status == AssignmentDeclined {
			continue
		}
		total++
		if a.Status == AssignmentCompleted {
			completed++
		}
	}
	return completed, total
}

// AppendChange records an append-only change log entry.
func (p *Paper) AppendChange(by, description string, now time.Time) {
	p.ChangeLog = append(p.ChangeLog, ChangeLogEntry{
		At:          now.UTC(),
		By:          by,
		Description: description,
	})
}

func (p *Paper) touch(now time.Time) {
	p.UpdatedAt = now.UTC()
}

func (p *Paper) supersededFault(op string) error {
	return fault.New(fault.KindImmutablePaper,
		"paper %s was superseded by %s; %s is not allowed", p.ID, p.SupersededByID, op)
}

func (p *Paper) stateFault(op string) error {
	if p.Status.Terminal() {
		return fault.New(fault.KindImmutablePaper,
			"paper %s is %s; %s is not allowed", p.ID, p.Status, op)
	}
	return fault.New(fault.KindInvalidState,
		"paper %s is %s; %s is not allowed", p.ID, p.Status, op)
}
