package reviewer

import (
	"sort"

	"github.com/peerflow/peerflow/internal/fault"
)

// DefaultMaxResults is the number of candidates returned when the caller
// does not ask for a specific count.
const DefaultMaxResults = 3

// Candidate pairs a profile with its derived load for one match run.
type Candidate struct {
	Profile     Profile `json:"profile"`
	CurrentLoad int     `json:"current_load"`
}

// AvailableSlots returns the candidate's remaining capacity.
func (c Candidate) AvailableSlots() int {
	return c.Profile.AvailableSlots(c.CurrentLoad)
}

// MatchRequest describes one matching run for a paper.
type MatchRequest struct {
	ResearchArea    string
	ExpertiseFilter string          // optional keyword narrowing the pool
	MaxResults      int             // 0 means DefaultMaxResults
	ActiveOnPaper   map[string]bool // reviewer ids with an active assignment this cycle
}

// Match filters the pool down to eligible candidates and ranks them:
// available slots descending, verified profiles breaking ties. Returns at
// most MaxResults candidates.
func Match(req MatchRequest, pool []Candidate) []Candidate {
	max := req.MaxResults
	if max <= 0 {
		max = DefaultMaxResults
	}

	var eligible []Candidate
	for _, c := range pool {
		if Eligible(c, req.ResearchArea, req.ActiveOnPaper[c.Profile.ID]) != nil {
			continue
		}
		if req.ExpertiseFilter != "" && !c.Profile.HasExpertise(req.ExpertiseFilter) {
			continue
		}
		eligible = append(eligible, c)
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		si, sj := eligible[i].AvailableSlots(), eligible[j].AvailableSlots()
		if si != sj {
			return si > sj
		}
		return eligible[i].Profile.Verified && !eligible[j].Profile.Verified
	})

	if len(eligible) > max {
		eligible = eligible[:max]
	}
	return eligible
}

// Eligible checks every eligibility rule for assigning the candidate to a
// paper in the given research area. Returns nil when eligible, otherwise a
// fault describing the first failing rule. Assign re-runs this at call time
// rather than trusting a stale candidate list.
func Eligible(c Candidate, researchArea string, activeOnPaper bool) error {
	p := c.Profile
	if !p.WillingToReview {
		return fault.New(fault.KindInvalidState, "reviewer %s is not accepting reviews", p.ID)
	}
	if !p.CoversArea(researchArea) {
		return fault.New(fault.KindInvalidState,
			"reviewer %s does not cover research area %q", p.ID, researchArea)
	}
	if activeOnPaper {
		return fault.New(fault.KindAlreadyAssigned,
			"reviewer %s already has an active assignment on this paper", p.ID)
	}
	if c.AvailableSlots() <= 0 {
		return fault.New(fault.KindInvalidState,
			"reviewer %s has no available review slots", p.ID)
	}
	return nil
}
