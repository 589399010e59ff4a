// Package review defines the review aggregate: one reviewer's evaluation of
// one paper in one review cycle.
package review

import (
	"strings"
	"time"

	"github.com/peerflow/peerflow/internal/fault"
)

// Status represents a review's position in its lifecycle. Lateness is not a
// status: it is derived from DueDate at query time.
type Status string

const (
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusWithdrawn  Status = "withdrawn"
)

// Terminal reports whether the review can no longer change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusWithdrawn
}

// RecommendationDecision is a reviewer's verdict.
type RecommendationDecision string

const (
	RecommendAccept        RecommendationDecision = "accept"
	RecommendMinorRevision RecommendationDecision = "minor_revision"
	RecommendMajorRevision RecommendationDecision = "major_revision"
	RecommendReject        RecommendationDecision = "reject"
)

// validDecisions lists the accepted recommendation decisions.
var validDecisions = map[RecommendationDecision]bool{
	RecommendAccept:        true,
	RecommendMinorRevision: true,
	RecommendMajorRevision: true,
	RecommendReject:        true,
}

// Recommendation is the reviewer's overall verdict with confidence 1-5.
type Recommendation struct {
	Decision   RecommendationDecision `json:"decision"`
	Confidence int                    `json:"confidence,omitempty"`
	Rationale  string                 `json:"rationale,omitempty"`
}

// Comment is one inline remark attached to a review before completion.
type Comment struct {
	Section    string    `json:"section"`
	Text       string    `json:"text"`
	PageNumber int       `json:"page_number,omitempty"`
	At         time.Time `json:"at"`
}

// Review represents one reviewer's evaluation of one paper version in one
// review cycle. Identity is the (PaperID, ReviewerID, Cycle) triple.
type Review struct {
	ID           string `json:"id"`
	PaperID      string `json:"paper_id"`
	ReviewerID   string `json:"reviewer_id"`
	AssignedByID string `json:"assigned_by_id"`
	Cycle        int    `json:"cycle"`
	IsBlind      bool   `json:"is_blind"`

	Status         Status    `json:"status"`
	AssignmentDate time.Time `json:"assignment_date"`
	DueDate        time.Time `json:"due_date"`
	CompletedDate  time.Time `json:"completed_date,omitempty"`
	WithdrawReason string    `json:"withdraw_reason,omitempty"`

	Rating         Rating          `json:"rating"`
	ReviewText     string          `json:"review_text,omitempty"`
	Recommendation *Recommendation `json:"recommendation,omitempty"`
	AverageRating  float64         `json:"average_rating,omitempty"`

	Comments []Comment `json:"comments,omitempty"`
}

// NewAssigned creates a review in the assigned state. Validation of reviewer
// eligibility happens in the matcher; this only checks structural fields.
func NewAssigned(id, paperID, reviewerID, assignedByID string, cycle int, dueDate time.Time, isBlind bool, now time.Time) (*Review, error) {
	if paperID == "" || reviewerID == "" {
		return nil, fault.New(fault.KindValidation, "paper id and reviewer id are required")
	}
	if cycle < 1 {
		return nil, fault.New(fault.KindValidation, "cycle must be positive, got %d", cycle)
	}
	if !dueDate.After(now) {
		return nil, fault.New(fault.KindValidation, "due date must be in the future")
	}
	return &Review{
		ID:             id,
		PaperID:        paperID,
		ReviewerID:     reviewerID,
		AssignedByID:   assignedByID,
		Cycle:          cycle,
		IsBlind:        isBlind,
		Status:         StatusAssigned,
		AssignmentDate: now.UTC(),
		DueDate:        dueDate.UTC(),
	}, nil
}

// DraftPatch holds partial review content saved before submission.
type DraftPatch struct {
	Rating     Rating
	ReviewText *string
}

// SaveDraft merges partial content into the review. The first draft moves
// the review from assigned to in_progress.
func (r *Review) SaveDraft(patch DraftPatch) error {
	switch r.Status {
	case StatusAssigned:
		r.Status = StatusInProgress
	case StatusInProgress:
		// stay
	case StatusCompleted:
		return fault.New(fault.KindImmutableReview,
			"review %s is completed and can no longer change", r.ID)
	default:
		return fault.New(fault.KindImmutableReview,
			"review %s is %s; drafts are not allowed", r.ID, r.Status)
	}

	r.Rating.Merge(patch.Rating)
	if patch.ReviewText != nil {
		r.ReviewText = *patch.ReviewText
	}
	return nil
}

// Decline withdraws an assigned review. Legal only before any draft work;
// a withdrawn review never transitions again, but the reviewer may be
// assigned afresh for the same paper and cycle.
func (r *Review) Decline(reason string) error {
	if r.Status != StatusAssigned {
		return fault.New(fault.KindInvalidState,
			"review %s is %s; only assigned reviews can be declined", r.ID, r.Status)
	}
	r.Status = StatusWithdrawn
	r.WithdrawReason = strings.TrimSpace(reason)
	return nil
}

// Submit completes the review. Requires all five rating categories, a
// non-empty summary, and a valid recommendation decision. Completed reviews
// are immutable; a second submit fails rather than overwriting.
func (r *Review) Submit(rating Rating, reviewText string, rec Recommendation, now time.Time) error {
	if r.Status == StatusCompleted {
		return fault.New(fault.KindAlreadySubmitted,
			"review %s has already been submitted", r.ID)
	}
	if r.Status == StatusWithdrawn {
		return fault.New(fault.KindImmutableReview,
			"review %s was withdrawn and cannot be submitted", r.ID)
	}
	if err := rating.ValidateComplete(); err != nil {
		return err
	}
	if strings.TrimSpace(reviewText) == "" {
		return fault.New(fault.KindValidation, "review summary is required")
	}
	if !validDecisions[rec.Decision] {
		return fault.New(fault.KindValidation, "unknown recommendation decision %q", rec.Decision)
	}
	// Confidence 0 means the reviewer did not state one.
	if rec.Confidence < 0 || rec.Confidence > 5 {
		return fault.New(fault.KindValidation, "confidence must be 1 to 5 when given, got %d", rec.Confidence)
	}

	r.Rating = rating
	r.ReviewText = strings.TrimSpace(reviewText)
	r.Recommendation = &rec
	r.AverageRating = rating.Average()
	r.Status = StatusCompleted
	r.CompletedDate = now.UTC()
	return nil
}

// AddComment attaches an inline comment. Allowed any time before completion.
func (r *Review) AddComment(section, text string, pageNumber int, now time.Time) error {
	if r.Status.Terminal() {
		return fault.New(fault.KindImmutableReview,
			"review %s is %s; comments are closed", r.ID, r.Status)
	}
	if strings.TrimSpace(text) == "" {
		return fault.New(fault.KindValidation, "comment text is required")
	}
	if pageNumber < 0 {
		return fault.New(fault.KindValidation, "page number cannot be negative")
	}
	r.Comments = append(r.Comments, Comment{
		Section:    strings.TrimSpace(section),
		Text:       strings.TrimSpace(text),
		PageNumber: pageNumber,
		At:         now.UTC(),
	})
	return nil
}

// IsLate reports whether the review is overdue: still open past its due
// date. Lateness is a derived classification, never a stored transition.
func (r *Review) IsLate(now time.Time) bool {
	if r.Status != StatusAssigned && r.Status != StatusInProgress {
		return false
	}
	return r.DueDate.Before(now)
}

// Active reports whether the review still counts against reviewer load.
func (r *Review) Active() bool {
	return r.Status == StatusAssigned || r.Status == StatusInProgress
}
