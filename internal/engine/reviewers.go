package engine

import (
	"strings"

	"github.com/peerflow/peerflow/internal/fault"
	"github.com/peerflow/peerflow/internal/identity"
	"github.com/peerflow/peerflow/internal/reviewer"
)

// RegisterReviewer creates or replaces a reviewer profile. Reviewers manage
// their own profile; editors can manage anyone's.
func (e *Engine) RegisterReviewer(caller identity.Caller, p reviewer.Profile) error {
	if !caller.Owns(p.ID) && !caller.IsEditor() {
		return fault.New(fault.KindAuthorization,
			"caller %s cannot manage reviewer profile %s", caller.ID, p.ID)
	}
	if strings.TrimSpace(p.ID) == "" {
		return fault.New(fault.KindValidation, "reviewer id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fault.New(fault.KindValidation, "reviewer name is required")
	}
	if p.MaximumReviewsPerYear < 0 {
		return fault.New(fault.KindValidation, "maximum reviews per year cannot be negative")
	}
	return e.db.UpsertReviewer(p)
}

// GetReviewer loads one reviewer profile.
func (e *Engine) GetReviewer(id string) (reviewer.Profile, error) {
	return e.db.GetReviewer(id)
}

// ListReviewers returns all reviewer profiles.
func (e *Engine) ListReviewers() ([]reviewer.Profile, error) {
	return e.db.ListReviewers()
}
