package citation

import (
	"testing"

	"github.com/peerflow/peerflow/internal/fault"
)

func TestNormalizeDOI(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"10.1/X", "10.1/x"},
		{"https://doi.org/10.1/x", "10.1/x"},
		{"doi:10.1/x", "10.1/x"},
		{"  10.1/x  ", "10.1/x"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeDOI(c.in); got != c.want {
			t.Errorf("NormalizeDOI(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeArxivID(t *testing.T) {
	if got := NormalizeArxivID("arXiv:2101.00001"); got != "2101.00001" {
		t.Errorf("NormalizeArxivID = %q, want 2101.00001", got)
	}
}

func TestValidateForCreate(t *testing.T) {
	c := Citation{
		Title:       "A Foundational Result",
		Identifiers: Identifiers{DOI: "https://doi.org/10.1/X"},
	}
	if err := c.ValidateForCreate(); err != nil {
		t.Fatalf("ValidateForCreate failed: %v", err)
	}
	if c.Identifiers.DOI != "10.1/x" {
		t.Errorf("DOI not normalized: %q", c.Identifiers.DOI)
	}
	if c.Type != TypeOther {
		t.Errorf("type should default to other, got %s", c.Type)
	}
}

func TestValidateForCreate_Errors(t *testing.T) {
	missing := Citation{}
	if err := missing.ValidateForCreate(); !fault.Is(err, fault.KindValidation) {
		t.Errorf("missing title: expected validation fault, got %v", err)
	}

	negative := Citation{Title: "T", Metrics: Metrics{TotalCitations: -1}}
	if err := negative.ValidateForCreate(); !fault.Is(err, fault.KindValidation) {
		t.Errorf("negative citations: expected validation fault, got %v", err)
	}
}
