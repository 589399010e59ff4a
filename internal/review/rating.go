package review

import "github.com/peerflow/peerflow/internal/fault"

// CategoryRating is one scored rating category. A zero Score means the
// category has not been rated yet.
type CategoryRating struct {
	Score   int    `json:"score"`
	Comment string `json:"comment,omitempty"`
}

// Set reports whether the category has been rated.
func (c CategoryRating) Set() bool {
	return c.Score != 0
}

// Rating holds the five named rating categories. The average is defined only
// when all five are present.
type Rating struct {
	Originality      CategoryRating `json:"originality"`
	Significance     CategoryRating `json:"significance"`
	TechnicalQuality CategoryRating `json:"technical_quality"`
	Clarity          CategoryRating `json:"clarity"`
	Overall          CategoryRating `json:"overall"`
}

// categories returns the categories in canonical order with their names.
func (r *Rating) categories() []struct {
	name string
	cat  *CategoryRating
} {
	return []struct {
		name string
		cat  *CategoryRating
	}{
		{"originality", &r.Originality},
		{"significance", &r.Significance},
		{"technical_quality", &r.TechnicalQuality},
		{"clarity", &r.Clarity},
		{"overall", &r.Overall},
	}
}

// Merge copies the set categories of other into r, leaving the rest alone.
func (r *Rating) Merge(other Rating) {
	dst := r.categories()
	src := other.categories()
	for i := range dst {
		if src[i].cat.Set() {
			*dst[i].cat = *src[i].cat
		}
	}
}

// Complete reports whether all five categories are rated.
func (r *Rating) Complete() bool {
	for _, c := range r.categories() {
		if !c.cat.Set() {
			return false
		}
	}
	return true
}

// ValidateComplete checks that all five categories are present with scores
// in the 1-5 range.
func (r *Rating) ValidateComplete() error {
	for _, c := range r.categories() {
		if !c.cat.Set() {
			return fault.New(fault.KindValidation, "rating category %s is required", c.name)
		}
		if c.cat.Score < 1 || c.cat.Score > 5 {
			return fault.New(fault.KindValidation,
				"rating category %s must be between 1 and 5, got %d", c.name, c.cat.Score)
		}
	}
	return nil
}

// Average returns the mean of the five category scores, or 0 if any
// category is missing.
func (r *Rating) Average() float64 {
	if !r.Complete() {
		return 0
	}
	sum := 0
	for _, c := range r.categories() {
		sum += c.cat.Score
	}
	return float64(sum) / 5.0
}
