package engine

import (
	"database/sql"
	"strings"

	"github.com/peerflow/peerflow/internal/biblio"
	"github.com/peerflow/peerflow/internal/citation"
	"github.com/peerflow/peerflow/internal/fault"
	"github.com/peerflow/peerflow/internal/identity"
	"github.com/peerflow/peerflow/internal/storage"
)

// CreateCitation validates, normalizes, scores, and stores a citation. A
// DOI or arXiv id already held by another citation fails the create with
// duplicate_citation.
func (e *Engine) CreateCitation(caller identity.Caller, c *citation.Citation) (*citation.Citation, error) {
	if caller.ID == "" {
		return nil, fault.New(fault.KindAuthorization, "caller identity is required")
	}
	if err := c.ValidateForCreate(); err != nil {
		return nil, err
	}
	c.ID = e.newID()
	c.CreatedAt = e.now().UTC()
	c.Quality.QualityScore = biblio.QualityScore(biblio.QualityInputs{
		IsVerified:     c.Quality.IsVerified,
		HasFullText:    c.Quality.HasFullText,
		TotalCitations: c.Metrics.TotalCitations,
	})
	if err := e.db.InsertCitation(c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetCitation loads one citation with the ids of the papers it links to.
func (e *Engine) GetCitation(id string) (*citation.Citation, error) {
	return e.db.GetCitation(id)
}

// UpdateCitationQuality sets verification and full-text flags and
// recomputes the derived quality score.
func (e *Engine) UpdateCitationQuality(caller identity.Caller, id string, verified, hasFullText bool) (*citation.Citation, error) {
	if !caller.IsEditor() {
		return nil, fault.New(fault.KindAuthorization, "only editors can verify citations")
	}
	c, err := e.db.GetCitation(id)
	if err != nil {
		return nil, err
	}
	c.Quality.IsVerified = verified
	c.Quality.HasFullText = hasFullText
	c.Quality.QualityScore = biblio.QualityScore(biblio.QualityInputs{
		IsVerified:     verified,
		HasFullText:    hasFullText,
		TotalCitations: c.Metrics.TotalCitations,
	})
	if err := e.db.UpdateCitationQuality(id, c.Quality); err != nil {
		return nil, err
	}
	return c, nil
}

// LinkCitation ties a citation to a paper and refreshes the paper's derived
// citation count, all in one transaction. Linking the same pair twice fails
// with duplicate_link and leaves the count untouched.
func (e *Engine) LinkCitation(caller identity.Caller, citationID, paperID, context, relevance string) (*citation.Link, error) {
	if caller.ID == "" {
		return nil, fault.New(fault.KindAuthorization, "caller identity is required")
	}
	if _, err := e.db.GetCitation(citationID); err != nil {
		return nil, err
	}
	if _, err := e.db.GetPaper(paperID); err != nil {
		return nil, err
	}

	link := citation.Link{
		CitationID: citationID,
		PaperID:    paperID,
		Context:    strings.TrimSpace(context),
		Relevance:  strings.TrimSpace(relevance),
		CreatedAt:  e.now().UTC(),
	}
	err := e.db.WithTx(func(tx *sql.Tx) error {
		if err := storage.InsertLinkTx(tx, link); err != nil {
			return err
		}
		count, err := storage.CountLinksForPaperTx(tx, paperID)
		if err != nil {
			return err
		}
		return storage.SetCitationCountTx(tx, paperID, count)
	})
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// ListCitationsForPaper returns the citations linked to a paper.
func (e *Engine) ListCitationsForPaper(paperID string) ([]*citation.Citation, error) {
	return e.db.ListCitationsForPaper(paperID)
}

// HIndexForAuthor computes the author's h-index from the citation counts of
// their papers. Papers with no linked citations count as zero.
func (e *Engine) HIndexForAuthor(authorID string) (int, error) {
	counts, err := e.db.CitationCountsForCreator(authorID)
	if err != nil {
		return 0, err
	}
	return biblio.HIndex(counts), nil
}
