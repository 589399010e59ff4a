package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/peerflow/peerflow/internal/fault"
	"github.com/peerflow/peerflow/internal/paper"
)

// paperColumns is the standard field list for paper SELECT queries.
const paperColumns = `id, title, abstract, research_area, methodology, status,
	version, parent_paper_id, superseded_by_id, authors_json, corresponding_author_id,
	review_cycle, change_log_json, submission_json, submission_date,
	views, downloads, citation_count, created_by, created_at, updated_at, row_version`

// InsertPaper stores a new paper.
func (d *DB) InsertPaper(p *paper.Paper) error {
	return insertPaper(d.db, p)
}

// InsertPaperTx stores a new paper inside a transaction.
func InsertPaperTx(tx *sql.Tx, p *paper.Paper) error {
	return insertPaper(tx, p)
}

func insertPaper(q querier, p *paper.Paper) error {
	authorsJSON, err := json.Marshal(p.Authors)
	if err != nil {
		return fmt.Errorf("marshaling authors for %s: %w", p.ID, err)
	}
	changeLogJSON, err := json.Marshal(p.ChangeLog)
	if err != nil {
		return fmt.Errorf("marshaling change log for %s: %w", p.ID, err)
	}
	var submissionJSON []byte
	if p.Submission != nil {
		submissionJSON, err = json.Marshal(p.Submission)
		if err != nil {
			return fmt.Errorf("marshaling submission for %s: %w", p.ID, err)
		}
	}

	_, err = q.Exec(`
		INSERT INTO papers (
			id, title, abstract, research_area, methodology, status,
			version, parent_paper_id, superseded_by_id, authors_json, corresponding_author_id,
			review_cycle, change_log_json, submission_json, submission_date,
			views, downloads, citation_count, created_by, created_at, updated_at, row_version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
	`,
		p.ID, p.Title, p.Abstract, p.ResearchArea, p.Methodology, string(p.Status),
		p.Version, nullIfEmpty(p.ParentPaperID), nullIfEmpty(p.SupersededByID),
		string(authorsJSON), nullIfEmpty(p.CorrespondingAuthorID),
		p.ReviewCycle, string(changeLogJSON), nullIfEmptyBytes(submissionJSON), encodeTime(p.SubmissionDate),
		p.Metrics.Views, p.Metrics.Downloads, p.Metrics.CitationCount,
		p.CreatedBy, encodeTime(p.CreatedAt), encodeTime(p.UpdatedAt),
	)
	if isUniqueViolation(err, "papers.id") {
		return fault.Wrap(fault.KindConflict, err, "paper %s already exists", p.ID)
	}
	if err != nil {
		return fmt.Errorf("inserting paper %s: %w", p.ID, err)
	}
	return nil
}

// GetPaper loads a paper with its assignments, completed review ids, and
// citation links.
func (d *DB) GetPaper(id string) (*paper.Paper, error) {
	row := d.db.QueryRow("SELECT "+paperColumns+" FROM papers WHERE id = ?", id)
	p, err := scanPaper(row)
	if err == sql.ErrNoRows {
		return nil, fault.New(fault.KindNotFound, "paper %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading paper %s: %w", id, err)
	}

	if p.AssignedReviewers, err = d.listAssignments(id); err != nil {
		return nil, err
	}
	if p.ReviewIDs, err = d.listCompletedReviewIDs(id); err != nil {
		return nil, err
	}
	if p.CitationIDs, err = d.listLinkedCitationIDs(id); err != nil {
		return nil, err
	}
	return p, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPaper(row rowScanner) (*paper.Paper, error) {
	var p paper.Paper
	var status, authorsJSON string
	var parentID, supersededID, correspondingID sql.NullString
	var changeLogJSON, submissionJSON sql.NullString
	var submissionDate, createdAt, updatedAt sql.NullString

	err := row.Scan(
		&p.ID, &p.Title, &p.Abstract, &p.ResearchArea, &p.Methodology, &status,
		&p.Version, &parentID, &supersededID, &authorsJSON, &correspondingID,
		&p.ReviewCycle, &changeLogJSON, &submissionJSON, &submissionDate,
		&p.Metrics.Views, &p.Metrics.Downloads, &p.Metrics.CitationCount,
		&p.CreatedBy, &createdAt, &updatedAt, &p.RowVersion,
	)
	if err != nil {
		return nil, err
	}

	p.Status = paper.Status(status)
	p.ParentPaperID = parentID.String
	p.SupersededByID = supersededID.String
	p.CorrespondingAuthorID = correspondingID.String

	if err := json.Unmarshal([]byte(authorsJSON), &p.Authors); err != nil {
		return nil, fmt.Errorf("unmarshaling authors for %s: %w", p.ID, err)
	}
	if changeLogJSON.Valid && changeLogJSON.String != "" {
		if err := json.Unmarshal([]byte(changeLogJSON.String), &p.ChangeLog); err != nil {
			return nil, fmt.Errorf("unmarshaling change log for %s: %w", p.ID, err)
		}
	}
	if submissionJSON.Valid && submissionJSON.String != "" {
		p.Submission = &paper.SubmissionTarget{}
		if err := json.Unmarshal([]byte(submissionJSON.String), p.Submission); err != nil {
			return nil, fmt.Errorf("unmarshaling submission for %s: %w", p.ID, err)
		}
	}
	if p.SubmissionDate, err = decodeTime(submissionDate); err != nil {
		return nil, fmt.Errorf("parsing submission date for %s: %w", p.ID, err)
	}
	if p.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at for %s: %w", p.ID, err)
	}
	if p.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at for %s: %w", p.ID, err)
	}
	return &p, nil
}

// UpdatePaper writes a paper back, conditioned on the row version the
// caller read. A concurrent writer that committed first makes this fail
// with a conflict fault; the caller re-fetches and retries.
func (d *DB) UpdatePaper(p *paper.Paper) error {
	return updatePaper(d.db, p)
}

// UpdatePaperTx is UpdatePaper inside a transaction.
func UpdatePaperTx(tx *sql.Tx, p *paper.Paper) error {
	return updatePaper(tx, p)
}

func updatePaper(q querier, p *paper.Paper) error {
	authorsJSON, err := json.Marshal(p.Authors)
	if err != nil {
		return fmt.Errorf("marshaling authors for %s: %w", p.ID, err)
	}
	changeLogJSON, err := json.Marshal(p.ChangeLog)
	if err != nil {
		return fmt.Errorf("marshaling change log for %s: %w", p.ID, err)
	}
	var submissionJSON []byte
	if p.Submission != nil {
		submissionJSON, err = json.Marshal(p.Submission)
		if err != nil {
			return fmt.Errorf("marshaling submission for %s: %w", p.ID, err)
		}
	}

	res, err := q.Exec(`
		UPDATE papers SET
			title = ?, abstract = ?, research_area = ?, methodology = ?, status = ?,
			version = ?, parent_paper_id = ?, superseded_by_id = ?, authors_json = ?,
			corresponding_author_id = ?,
			review_cycle = ?, change_log_json = ?, submission_json = ?, submission_date = ?,
			created_by = ?, updated_at = ?, row_version = row_version + 1
		WHERE id = ? AND row_version = ?
	`,
		p.Title, p.Abstract, p.ResearchArea, p.Methodology, string(p.Status),
		p.Version, nullIfEmpty(p.ParentPaperID), nullIfEmpty(p.SupersededByID),
		string(authorsJSON), nullIfEmpty(p.CorrespondingAuthorID),
		p.ReviewCycle, string(changeLogJSON), nullIfEmptyBytes(submissionJSON), encodeTime(p.SubmissionDate),
		p.CreatedBy, encodeTime(p.UpdatedAt),
		p.ID, p.RowVersion,
	)
	if err != nil {
		return fmt.Errorf("updating paper %s: %w", p.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating paper %s: %w", p.ID, err)
	}
	if n == 0 {
		var exists int
		if err := q.QueryRow("SELECT COUNT(*) FROM papers WHERE id = ?", p.ID).Scan(&exists); err != nil {
			return fmt.Errorf("checking paper %s: %w", p.ID, err)
		}
		if exists == 0 {
			return fault.New(fault.KindNotFound, "paper %s not found", p.ID)
		}
		return fault.New(fault.KindConflict,
			"paper %s was modified concurrently; re-fetch and retry", p.ID)
	}
	p.RowVersion++
	return nil
}

// DeletePaper removes a paper and its dependent rows. The engine verifies
// the lifecycle rule (only editable papers may be deleted) before calling.
func (d *DB) DeletePaper(id string) error {
	return d.WithTx(func(tx *sql.Tx) error {
		for _, stmt := range []string{
			"DELETE FROM citation_links WHERE paper_id = ?",
			"DELETE FROM reviews WHERE paper_id = ?",
			"DELETE FROM assignments WHERE paper_id = ?",
		} {
			if _, err := tx.Exec(stmt, id); err != nil {
				return fmt.Errorf("deleting paper %s dependents: %w", id, err)
			}
		}
		res, err := tx.Exec("DELETE FROM papers WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting paper %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fault.New(fault.KindNotFound, "paper %s not found", id)
		}
		return nil
	})
}

// ListPapersByStatus returns papers in the given status, newest first.
func (d *DB) ListPapersByStatus(status paper.Status) ([]*paper.Paper, error) {
	rows, err := d.db.Query(
		"SELECT "+paperColumns+" FROM papers WHERE status = ? ORDER BY created_at DESC",
		string(status))
	if err != nil {
		return nil, fmt.Errorf("listing papers: %w", err)
	}
	defer rows.Close()
	return collectPapers(rows)
}

// ListPapersByCreator returns papers created by the given user, newest first.
func (d *DB) ListPapersByCreator(createdBy string) ([]*paper.Paper, error) {
	rows, err := d.db.Query(
		"SELECT "+paperColumns+" FROM papers WHERE created_by = ? ORDER BY created_at DESC",
		createdBy)
	if err != nil {
		return nil, fmt.Errorf("listing papers: %w", err)
	}
	defer rows.Close()
	return collectPapers(rows)
}

// ListVersionChain returns a paper and all its ancestors, oldest first.
func (d *DB) ListVersionChain(id string) ([]*paper.Paper, error) {
	var chain []*paper.Paper
	for id != "" {
		p, err := d.GetPaper(id)
		if err != nil {
			return nil, err
		}
		chain = append([]*paper.Paper{p}, chain...)
		id = p.ParentPaperID
	}
	return chain, nil
}

func collectPapers(rows *sql.Rows) ([]*paper.Paper, error) {
	var papers []*paper.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// IncrementViews bumps the paper's view counter. Counters are monotonic and
// owned by this operation; they bypass the row-version guard on purpose so
// reads never conflict with content edits.
func (d *DB) IncrementViews(id string) error {
	return d.incrementCounter(id, "views")
}

// IncrementDownloads bumps the paper's download counter.
func (d *DB) IncrementDownloads(id string) error {
	return d.incrementCounter(id, "downloads")
}

func (d *DB) incrementCounter(id, column string) error {
	res, err := d.db.Exec("UPDATE papers SET "+column+" = "+column+" + 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("incrementing %s for %s: %w", column, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fault.New(fault.KindNotFound, "paper %s not found", id)
	}
	return nil
}

// SetCitationCount records the paper's linked-citation total.
func SetCitationCountTx(tx *sql.Tx, id string, count int) error {
	_, err := tx.Exec("UPDATE papers SET citation_count = ? WHERE id = ?", count, id)
	if err != nil {
		return fmt.Errorf("setting citation count for %s: %w", id, err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullIfEmptyBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
