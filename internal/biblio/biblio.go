// Package biblio provides pure, stateless bibliometric computations.
package biblio

import "sort"

// HIndex computes the h-index of a citation count list: the largest h such
// that at least h entries have h or more citations each. An empty list has
// h-index 0.
func HIndex(citationCounts []int) int {
	counts := append([]int(nil), citationCounts...)
	sort.Sort(sort.Reverse(sort.IntSlice(counts)))

	h := 0
	for i, c := range counts {
		if c >= i+1 {
			h = i + 1
		} else {
			break
		}
	}
	return h
}

// Quality score weights. The score is bounded to [0, 100] and monotonic in
// each input: verification and full-text availability add fixed credit, and
// the citation component grows with total citations but saturates.
const (
	verifiedWeight = 25.0
	fullTextWeight = 15.0
	citationWeight = 60.0

	// citationHalfPoint is the citation count at which the citation
	// component reaches half its weight.
	citationHalfPoint = 20.0
)

// QualityInputs are the inputs to QualityScore.
type QualityInputs struct {
	IsVerified     bool
	HasFullText    bool
	TotalCitations int
}

// QualityScore aggregates verification, full-text availability, and citation
// volume into a 0-100 score.
func QualityScore(in QualityInputs) float64 {
	score := 0.0
	if in.IsVerified {
		score += verifiedWeight
	}
	if in.HasFullText {
		score += fullTextWeight
	}
	if in.TotalCitations > 0 {
		n := float64(in.TotalCitations)
		score += citationWeight * n / (n + citationHalfPoint)
	}
	if score > 100 {
		score = 100
	}
	return score
}
