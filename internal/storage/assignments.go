package storage

import (
	"database/sql"
	"fmt"

	"github.com/peerflow/peerflow/internal/fault"
	"github.com/peerflow/peerflow/internal/paper"
)

// InsertAssignmentTx records a reviewer assignment inside a transaction.
// The (paper_id, reviewer_id, cycle) unique index rejects double assignment
// while the previous entry, if any, is not declined.
func InsertAssignmentTx(tx *sql.Tx, paperID string, a paper.Assignment) error {
	_, err := tx.Exec(`
		INSERT INTO assignments (paper_id, reviewer_id, cycle, status, assigned_date, due_date, is_blind)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		paperID, a.ReviewerID, a.Cycle, string(a.Status),
		encodeTime(a.AssignedDate), encodeTime(a.DueDate), boolToInt(a.IsBlind),
	)
	if isUniqueViolation(err, "assignments.paper_id") {
		return fault.Wrap(fault.KindAlreadyAssigned, err,
			"reviewer %s is already assigned to paper %s in cycle %d",
			a.ReviewerID, paperID, a.Cycle)
	}
	if err != nil {
		return fmt.Errorf("inserting assignment: %w", err)
	}
	return nil
}

// UpdateAssignmentStatusTx moves the reviewer's open assignment entry to a
// new status. Declined entries are history and never transition again.
func UpdateAssignmentStatusTx(tx *sql.Tx, paperID, reviewerID string, cycle int, status paper.AssignmentStatus) error {
	res, err := tx.Exec(`
		UPDATE assignments SET status = ?
		WHERE paper_id = ? AND reviewer_id = ? AND cycle = ? AND status != ?
	`, string(status), paperID, reviewerID, cycle, string(paper.AssignmentDeclined))
	if err != nil {
		return fmt.Errorf("updating assignment status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fault.New(fault.KindNotFound,
			"no assignment for reviewer %s on paper %s cycle %d", reviewerID, paperID, cycle)
	}
	return nil
}

// listAssignments returns all assignment entries of a paper, all cycles.
func (d *DB) listAssignments(paperID string) ([]paper.Assignment, error) {
	rows, err := d.db.Query(`
		SELECT reviewer_id, cycle, status, assigned_date, due_date, is_blind
		FROM assignments WHERE paper_id = ? ORDER BY cycle, assigned_date
	`, paperID)
	if err != nil {
		return nil, fmt.Errorf("listing assignments for %s: %w", paperID, err)
	}
	defer rows.Close()

	var assignments []paper.Assignment
	for rows.Next() {
		var a paper.Assignment
		var status string
		var isBlind int
		var assigned, due sql.NullString

		if err := rows.Scan(&a.ReviewerID, &a.Cycle, &status, &assigned, &due, &isBlind); err != nil {
			return nil, err
		}
		a.Status = paper.AssignmentStatus(status)
		a.IsBlind = isBlind != 0
		if a.AssignedDate, err = decodeTime(assigned); err != nil {
			return nil, fmt.Errorf("parsing assigned date: %w", err)
		}
		if a.DueDate, err = decodeTime(due); err != nil {
			return nil, fmt.Errorf("parsing due date: %w", err)
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}
