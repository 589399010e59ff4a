// Package reviewer defines reviewer profiles and the paper-reviewer matcher.
package reviewer

import "strings"

// Profile is the read model of a person who can review. CurrentLoad is
// never stored on the profile: it is derived from open reviews with future
// due dates and supplied alongside the profile at match time.
type Profile struct {
	ID                    string   `json:"id"`
	Name                  string   `json:"name"`
	WillingToReview       bool     `json:"willing_to_review"`
	ReviewAreas           []string `json:"review_areas"`
	MaximumReviewsPerYear int      `json:"maximum_reviews_per_year"`
	Expertise             []string `json:"expertise"`
	Verified              bool     `json:"verified"`
}

// CoversArea reports whether the profile's review areas cover the paper's
// research area. Matching is case-insensitive, exact or substring in either
// direction, so "machine learning" covers "Machine Learning for Healthcare".
func (p Profile) CoversArea(researchArea string) bool {
	area := strings.ToLower(strings.TrimSpace(researchArea))
	if area == "" {
		return false
	}
	for _, ra := range p.ReviewAreas {
		own := strings.ToLower(strings.TrimSpace(ra))
		if own == "" {
			continue
		}
		if own == area || strings.Contains(area, own) || strings.Contains(own, area) {
			return true
		}
	}
	return false
}

// HasExpertise reports whether any expertise entry matches the keyword
// (case-insensitive substring).
func (p Profile) HasExpertise(keyword string) bool {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return true
	}
	for _, e := range p.Expertise {
		if strings.Contains(strings.ToLower(e), kw) {
			return true
		}
	}
	return false
}

// AvailableSlots returns the remaining review capacity given the reviewer's
// current load. Never negative.
func (p Profile) AvailableSlots(currentLoad int) int {
	slots := p.MaximumReviewsPerYear - currentLoad
	if slots < 0 {
		return 0
	}
	return slots
}
