package paper

// Status represents a paper's position in the submission lifecycle.
type Status string

const (
	StatusDraft             Status = "draft"
	StatusSubmitted         Status = "submitted"
	StatusUnderReview       Status = "under_review"
	StatusAccepted          Status = "accepted"
	StatusRejected          Status = "rejected"
	StatusRevisionRequested Status = "revision_requested"
	StatusPublished         Status = "published"
)

// transitions is the legal status transition table. A paper's observed status
// sequence is always a walk over this table.
var transitions = map[Status][]Status{
	StatusDraft:             {StatusSubmitted},
	StatusSubmitted:         {StatusUnderReview},
	StatusUnderReview:       {StatusAccepted, StatusRejected, StatusRevisionRequested},
	StatusRevisionRequested: {StatusSubmitted},
	StatusAccepted:          {StatusPublished},
	StatusRejected:          {},
	StatusPublished:         {},
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether a transition from s to target is legal.
func (s Status) CanTransition(target Status) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Editable reports whether a paper in this status accepts content edits
// and deletion.
func (s Status) Editable() bool {
	return s == StatusDraft || s == StatusRevisionRequested
}

// Terminal reports whether this status ends the lifecycle for this paper
// version. Terminal papers are immutable.
func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected || s == StatusPublished
}
