package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/peerflow/peerflow/internal/citation"
	"github.com/peerflow/peerflow/internal/fault"
)

const citationColumns = `id, doi, arxiv_id, type, title, authors_json,
	publication_year, total_citations, is_verified, has_full_text, quality_score, created_at`

// InsertCitation stores a new citation. The partial unique indexes on doi
// and arxiv_id are the duplicate-detection gate.
func (d *DB) InsertCitation(c *citation.Citation) error {
	authorsJSON, err := json.Marshal(c.Authors)
	if err != nil {
		return fmt.Errorf("marshaling authors for %s: %w", c.ID, err)
	}

	_, err = d.db.Exec(`
		INSERT INTO citations (
			id, doi, arxiv_id, type, title, authors_json,
			publication_year, total_citations, is_verified, has_full_text, quality_score, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID, nullIfEmpty(c.Identifiers.DOI), nullIfEmpty(c.Identifiers.ArxivID),
		string(c.Type), c.Title, string(authorsJSON),
		c.PublicationYear, c.Metrics.TotalCitations,
		boolToInt(c.Quality.IsVerified), boolToInt(c.Quality.HasFullText),
		c.Quality.QualityScore, encodeTime(c.CreatedAt),
	)
	if isUniqueViolation(err, "citations.doi") {
		return fault.Wrap(fault.KindDuplicateCitation, err,
			"a citation with DOI %s already exists", c.Identifiers.DOI)
	}
	if isUniqueViolation(err, "citations.arxiv_id") {
		return fault.Wrap(fault.KindDuplicateCitation, err,
			"a citation with arXiv id %s already exists", c.Identifiers.ArxivID)
	}
	if isUniqueViolation(err, "citations.id") {
		return fault.Wrap(fault.KindConflict, err, "citation %s already exists", c.ID)
	}
	if err != nil {
		return fmt.Errorf("inserting citation %s: %w", c.ID, err)
	}
	return nil
}

// GetCitation loads one citation with its linked paper ids.
func (d *DB) GetCitation(id string) (*citation.Citation, error) {
	row := d.db.QueryRow("SELECT "+citationColumns+" FROM citations WHERE id = ?", id)
	c, err := scanCitation(row)
	if err == sql.ErrNoRows {
		return nil, fault.New(fault.KindNotFound, "citation %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading citation %s: %w", id, err)
	}

	rows, err := d.db.Query(
		"SELECT paper_id FROM citation_links WHERE citation_id = ? ORDER BY created_at", id)
	if err != nil {
		return nil, fmt.Errorf("listing links for citation %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var paperID string
		if err := rows.Scan(&paperID); err != nil {
			return nil, err
		}
		c.PaperIDs = append(c.PaperIDs, paperID)
	}
	return c, rows.Err()
}

// UpdateCitationQuality stores recomputed quality fields.
func (d *DB) UpdateCitationQuality(id string, q citation.Quality) error {
	res, err := d.db.Exec(`
		UPDATE citations SET is_verified = ?, has_full_text = ?, quality_score = ?
		WHERE id = ?
	`, boolToInt(q.IsVerified), boolToInt(q.HasFullText), q.QualityScore, id)
	if err != nil {
		return fmt.Errorf("updating citation quality for %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fault.New(fault.KindNotFound, "citation %s not found", id)
	}
	return nil
}

// InsertLinkTx records a citation-paper link inside a transaction. The
// (citation_id, paper_id) primary key rejects duplicate links.
func InsertLinkTx(tx *sql.Tx, l citation.Link) error {
	_, err := tx.Exec(`
		INSERT INTO citation_links (citation_id, paper_id, context, relevance, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, l.CitationID, l.PaperID, nullIfEmpty(l.Context), nullIfEmpty(l.Relevance), encodeTime(l.CreatedAt))
	if isUniqueViolation(err, "citation_links") {
		return fault.Wrap(fault.KindDuplicateLink, err,
			"citation %s is already linked to paper %s", l.CitationID, l.PaperID)
	}
	if err != nil {
		return fmt.Errorf("inserting citation link: %w", err)
	}
	return nil
}

// CountLinksForPaperTx returns the number of citations linked to a paper.
func CountLinksForPaperTx(tx *sql.Tx, paperID string) (int, error) {
	var n int
	err := tx.QueryRow("SELECT COUNT(*) FROM citation_links WHERE paper_id = ?", paperID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting links for paper %s: %w", paperID, err)
	}
	return n, nil
}

// ListCitationsForPaper returns citations linked to a paper.
func (d *DB) ListCitationsForPaper(paperID string) ([]*citation.Citation, error) {
	rows, err := d.db.Query(`
		SELECT `+citationColumns+` FROM citations
		WHERE id IN (SELECT citation_id FROM citation_links WHERE paper_id = ?)
		ORDER BY publication_year DESC, title
	`, paperID)
	if err != nil {
		return nil, fmt.Errorf("listing citations for paper %s: %w", paperID, err)
	}
	defer rows.Close()

	var citations []*citation.Citation
	for rows.Next() {
		c, err := scanCitation(rows)
		if err != nil {
			return nil, err
		}
		citations = append(citations, c)
	}
	return citations, rows.Err()
}

// CitationCountsForCreator returns, for each paper created by the given
// user, its total-citation tally. Feeds the h-index computation.
func (d *DB) CitationCountsForCreator(createdBy string) ([]int, error) {
	rows, err := d.db.Query(`
		SELECT COUNT(cl.citation_id) FROM papers p
		LEFT JOIN citation_links cl ON cl.paper_id = p.id
		WHERE p.created_by = ?
		GROUP BY p.id
	`, createdBy)
	if err != nil {
		return nil, fmt.Errorf("counting citations for %s: %w", createdBy, err)
	}
	defer rows.Close()

	var counts []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		counts = append(counts, n)
	}
	return counts, rows.Err()
}

// listLinkedCitationIDs returns the citation ids linked to a paper.
func (d *DB) listLinkedCitationIDs(paperID string) ([]string, error) {
	rows, err := d.db.Query(
		"SELECT citation_id FROM citation_links WHERE paper_id = ? ORDER BY created_at", paperID)
	if err != nil {
		return nil, fmt.Errorf("listing citation links for %s: %w", paperID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanCitation(row rowScanner) (*citation.Citation, error) {
	var c citation.Citation
	var doi, arxivID, authorsJSON, createdAt sql.NullString
	var ctype string
	var verified, fullText int

	err := row.Scan(&c.ID, &doi, &arxivID, &ctype, &c.Title, &authorsJSON,
		&c.PublicationYear, &c.Metrics.TotalCitations, &verified, &fullText,
		&c.Quality.QualityScore, &createdAt)
	if err != nil {
		return nil, err
	}

	c.Identifiers.DOI = doi.String
	c.Identifiers.ArxivID = arxivID.String
	c.Type = citation.Type(ctype)
	c.Quality.IsVerified = verified != 0
	c.Quality.HasFullText = fullText != 0
	if authorsJSON.Valid && authorsJSON.String != "" {
		if err := json.Unmarshal([]byte(authorsJSON.String), &c.Authors); err != nil {
			return nil, fmt.Errorf("unmarshaling authors for %s: %w", c.ID, err)
		}
	}
	if c.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at for %s: %w", c.ID, err)
	}
	return &c, nil
}
