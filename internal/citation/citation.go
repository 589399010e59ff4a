// Package citation defines the citation entity and its deduplication keys.
package citation

import (
	"strings"
	"time"

	"github.com/peerflow/peerflow/internal/fault"
)

// Type classifies what kind of work a citation points at.
type Type string

const (
	TypeJournalArticle Type = "journal_article"
	TypeConference     Type = "conference_paper"
	TypePreprint       Type = "preprint"
	TypeBook           Type = "book"
	TypeOther          Type = "other"
)

// Identifiers are the external keys of a citation. DOI and arXiv id, when
// present, are unique across all citations; creation is gated on that.
type Identifiers struct {
	DOI     string `json:"doi,omitempty"`
	ArxivID string `json:"arxiv_id,omitempty"`
}

// Quality captures verification state and the derived quality score.
type Quality struct {
	IsVerified   bool    `json:"is_verified"`
	HasFullText  bool    `json:"has_full_text"`
	QualityScore float64 `json:"quality_score"`
}

// Metrics holds citation-level counters.
type Metrics struct {
	TotalCitations int `json:"total_citations"`
}

// Citation is one cited work, linkable to zero or more papers.
type Citation struct {
	ID              string      `json:"id"`
	Identifiers     Identifiers `json:"identifiers"`
	Type            Type        `json:"type"`
	Title           string      `json:"title"`
	Authors         []string    `json:"authors,omitempty"`
	PublicationYear int         `json:"publication_year,omitempty"`
	Metrics         Metrics     `json:"metrics"`
	Quality         Quality     `json:"quality"`
	PaperIDs        []string    `json:"paper_ids,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

// Link ties a citation to a paper with the context it was cited in.
// Identity is the (CitationID, PaperID) pair.
type Link struct {
	CitationID string    `json:"citation_id"`
	PaperID    string    `json:"paper_id"`
	Context    string    `json:"context,omitempty"`
	Relevance  string    `json:"relevance,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NormalizeDOI lowercases a DOI and strips resolver URL prefixes so the
// uniqueness check compares like with like.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(strings.ToLower(doi))
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "doi:"} {
		doi = strings.TrimPrefix(doi, prefix)
	}
	return doi
}

// NormalizeArxivID trims and lowercases an arXiv id, stripping the scheme
// prefix if callers pass the canonical "arXiv:" form.
func NormalizeArxivID(id string) string {
	id = strings.TrimSpace(strings.ToLower(id))
	return strings.TrimPrefix(id, "arxiv:")
}

// ValidateForCreate checks the fields required to create a citation and
// normalizes its identifiers in place.
func (c *Citation) ValidateForCreate() error {
	if strings.TrimSpace(c.Title) == "" {
		return fault.New(fault.KindValidation, "citation title is required")
	}
	if c.Type == "" {
		c.Type = TypeOther
	}
	if c.Metrics.TotalCitations < 0 {
		return fault.New(fault.KindValidation, "total citations cannot be negative")
	}
	c.Identifiers.DOI = NormalizeDOI(c.Identifiers.DOI)
	c.Identifiers.ArxivID = NormalizeArxivID(c.Identifiers.ArxivID)
	return nil
}
