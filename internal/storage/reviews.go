package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/peerflow/peerflow/internal/fault"
	"github.com/peerflow/peerflow/internal/paper"
	"github.com/peerflow/peerflow/internal/review"
)

// reviewColumns is the standard field list for review SELECT queries.
const reviewColumns = `id, paper_id, reviewer_id, assigned_by_id, cycle, is_blind,
	status, assignment_date, due_date, completed_date, withdraw_reason,
	rating_json, review_text, recommendation_json, average_rating, comments_json`

// openReviewStatuses selects reviews that still count as active work.
const openReviewStatuses = "('assigned', 'in_progress')"

// InsertReviewTx stores a new review inside a transaction. The partial
// unique index on (paper_id, reviewer_id, cycle) turns the assignment race
// into an already-assigned fault for the losing writer. Withdrawn reviews
// sit outside the index, so a reassignment after a decline inserts cleanly.
func InsertReviewTx(tx *sql.Tx, r *review.Review) error {
	ratingJSON, recJSON, commentsJSON, err := marshalReviewBlobs(r)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO reviews (
			id, paper_id, reviewer_id, assigned_by_id, cycle, is_blind,
			status, assignment_date, due_date, completed_date, withdraw_reason,
			rating_json, review_text, recommendation_json, average_rating, comments_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID, r.PaperID, r.ReviewerID, nullIfEmpty(r.AssignedByID), r.Cycle, boolToInt(r.IsBlind),
		string(r.Status), encodeTime(r.AssignmentDate), encodeTime(r.DueDate),
		encodeTime(r.CompletedDate), nullIfEmpty(r.WithdrawReason),
		ratingJSON, nullIfEmpty(r.ReviewText), recJSON, nullIfZero(r.AverageRating), commentsJSON,
	)
	if isUniqueViolation(err, "reviews.paper_id") {
		return fault.Wrap(fault.KindAlreadyAssigned, err,
			"reviewer %s is already assigned to paper %s in cycle %d",
			r.ReviewerID, r.PaperID, r.Cycle)
	}
	if isUniqueViolation(err, "reviews.id") {
		return fault.Wrap(fault.KindConflict, err, "review %s already exists", r.ID)
	}
	if err != nil {
		return fmt.Errorf("inserting review %s: %w", r.ID, err)
	}
	return nil
}

// GetReview loads one review by id.
func (d *DB) GetReview(id string) (*review.Review, error) {
	row := d.db.QueryRow("SELECT "+reviewColumns+" FROM reviews WHERE id = ?", id)
	r, err := scanReview(row)
	if err == sql.ErrNoRows {
		return nil, fault.New(fault.KindNotFound, "review %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading review %s: %w", id, err)
	}
	return r, nil
}

// GetReviewByKey loads the current review for a (paper, reviewer, cycle)
// triple. A withdrawn review followed by a reassignment leaves two rows for
// the same triple; the live one wins.
func (d *DB) GetReviewByKey(paperID, reviewerID string, cycle int) (*review.Review, error) {
	row := d.db.QueryRow(
		"SELECT "+reviewColumns+" FROM reviews WHERE paper_id = ? AND reviewer_id = ? AND cycle = ?"+
			" ORDER BY CASE WHEN status = ? THEN 1 ELSE 0 END, assignment_date DESC LIMIT 1",
		paperID, reviewerID, cycle, string(review.StatusWithdrawn))
	r, err := scanReview(row)
	if err == sql.ErrNoRows {
		return nil, fault.New(fault.KindNotFound,
			"no review for reviewer %s on paper %s cycle %d", reviewerID, paperID, cycle)
	}
	if err != nil {
		return nil, fmt.Errorf("loading review: %w", err)
	}
	return r, nil
}

// UpdateReview writes a review back. Reviews are single-writer (only the
// assigned reviewer mutates them before completion), so no version guard.
func (d *DB) UpdateReview(r *review.Review) error {
	return updateReview(d.db, r)
}

// UpdateReviewTx is UpdateReview inside a transaction.
func UpdateReviewTx(tx *sql.Tx, r *review.Review) error {
	return updateReview(tx, r)
}

func updateReview(q querier, r *review.Review) error {
	ratingJSON, recJSON, commentsJSON, err := marshalReviewBlobs(r)
	if err != nil {
		return err
	}

	res, err := q.Exec(`
		UPDATE reviews SET
			status = ?, completed_date = ?, withdraw_reason = ?,
			rating_json = ?, review_text = ?, recommendation_json = ?,
			average_rating = ?, comments_json = ?
		WHERE id = ?
	`,
		string(r.Status), encodeTime(r.CompletedDate), nullIfEmpty(r.WithdrawReason),
		ratingJSON, nullIfEmpty(r.ReviewText), recJSON, nullIfZero(r.AverageRating), commentsJSON,
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("updating review %s: %w", r.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fault.New(fault.KindNotFound, "review %s not found", r.ID)
	}
	return nil
}

// ListReviewsForPaper returns all reviews of a paper, all cycles.
func (d *DB) ListReviewsForPaper(paperID string) ([]*review.Review, error) {
	rows, err := d.db.Query(
		"SELECT "+reviewColumns+" FROM reviews WHERE paper_id = ? ORDER BY cycle, assignment_date",
		paperID)
	if err != nil {
		return nil, fmt.Errorf("listing reviews for paper %s: %w", paperID, err)
	}
	defer rows.Close()
	return collectReviews(rows)
}

// ListReviewsForReviewer returns all reviews assigned to a reviewer.
func (d *DB) ListReviewsForReviewer(reviewerID string) ([]*review.Review, error) {
	rows, err := d.db.Query(
		"SELECT "+reviewColumns+" FROM reviews WHERE reviewer_id = ? ORDER BY assignment_date",
		reviewerID)
	if err != nil {
		return nil, fmt.Errorf("listing reviews for reviewer %s: %w", reviewerID, err)
	}
	defer rows.Close()
	return collectReviews(rows)
}

// ListOverdueReviews returns open reviews whose due date has passed.
// Lateness lives in this query, not in a stored status.
func (d *DB) ListOverdueReviews(now time.Time) ([]*review.Review, error) {
	rows, err := d.db.Query(
		"SELECT "+reviewColumns+" FROM reviews WHERE status IN "+openReviewStatuses+
			" AND due_date < ? ORDER BY due_date",
		now.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("listing overdue reviews: %w", err)
	}
	defer rows.Close()
	return collectReviews(rows)
}

// CountActiveReviews derives a reviewer's current load: open reviews with a
// due date that has not yet passed.
func (d *DB) CountActiveReviews(reviewerID string, now time.Time) (int, error) {
	var n int
	err := d.db.QueryRow(
		"SELECT COUNT(*) FROM reviews WHERE reviewer_id = ? AND status IN "+openReviewStatuses+
			" AND due_date >= ?",
		reviewerID, now.UTC().Format(time.RFC3339)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting active reviews for %s: %w", reviewerID, err)
	}
	return n, nil
}

// ActiveReviewerIDs returns the reviewers with an active assignment on the
// paper in the given cycle.
func (d *DB) ActiveReviewerIDs(paperID string, cycle int) (map[string]bool, error) {
	rows, err := d.db.Query(
		"SELECT reviewer_id FROM assignments WHERE paper_id = ? AND cycle = ? AND status = ?",
		paperID, cycle, string(paper.AssignmentActive))
	if err != nil {
		return nil, fmt.Errorf("listing active reviewers for %s: %w", paperID, err)
	}
	defer rows.Close()

	active := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		active[id] = true
	}
	return active, rows.Err()
}

// listCompletedReviewIDs returns ids of completed reviews of a paper, the
// set recordReviewCompletion maintains on the aggregate.
func (d *DB) listCompletedReviewIDs(paperID string) ([]string, error) {
	rows, err := d.db.Query(
		"SELECT id FROM reviews WHERE paper_id = ? AND status = ? ORDER BY completed_date",
		paperID, string(review.StatusCompleted))
	if err != nil {
		return nil, fmt.Errorf("listing completed reviews for %s: %w", paperID, err)
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

func collectReviews(rows *sql.Rows) ([]*review.Review, error) {
	var reviews []*review.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func scanReview(row rowScanner) (*review.Review, error) {
	var r review.Review
	var status string
	var isBlind int
	var assignedBy, withdrawReason, reviewText sql.NullString
	var assignmentDate, dueDate, completedDate sql.NullString
	var ratingJSON, recJSON, commentsJSON sql.NullString
	var avgRating sql.NullFloat64

	err := row.Scan(
		&r.ID, &r.PaperID, &r.ReviewerID, &assignedBy, &r.Cycle, &isBlind,
		&status, &assignmentDate, &dueDate, &completedDate, &withdrawReason,
		&ratingJSON, &reviewText, &recJSON, &avgRating, &commentsJSON,
	)
	if err != nil {
		return nil, err
	}

	r.AssignedByID = assignedBy.String
	r.IsBlind = isBlind != 0
	r.Status = review.Status(status)
	r.WithdrawReason = withdrawReason.String
	r.ReviewText = reviewText.String
	r.AverageRating = avgRating.Float64

	if r.AssignmentDate, err = decodeTime(assignmentDate); err != nil {
		return nil, fmt.Errorf("parsing assignment date for %s: %w", r.ID, err)
	}
	if r.DueDate, err = decodeTime(dueDate); err != nil {
		return nil, fmt.Errorf("parsing due date for %s: %w", r.ID, err)
	}
	if r.CompletedDate, err = decodeTime(completedDate); err != nil {
		return nil, fmt.Errorf("parsing completed date for %s: %w", r.ID, err)
	}
	if ratingJSON.Valid && ratingJSON.String != "" {
		if err := json.Unmarshal([]byte(ratingJSON.String), &r.Rating); err != nil {
			return nil, fmt.Errorf("unmarshaling rating for %s: %w", r.ID, err)
		}
	}
	if recJSON.Valid && recJSON.String != "" {
		r.Recommendation = &review.Recommendation{}
		if err := json.Unmarshal([]byte(recJSON.String), r.Recommendation); err != nil {
			return nil, fmt.Errorf("unmarshaling recommendation for %s: %w", r.ID, err)
		}
	}
	if commentsJSON.Valid && commentsJSON.String != "" {
		if err := json.Unmarshal([]byte(commentsJSON.String), &r.Comments); err != nil {
			return nil, fmt.Errorf("unmarshaling comments for %s: %w", r.ID, err)
		}
	}
	return &r, nil
}

func marshalReviewBlobs(r *review.Review) (rating, rec, comments any, err error) {
	ratingJSON, err := json.Marshal(r.Rating)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshaling rating for %s: %w", r.ID, err)
	}
	var recJSON []byte
	if r.Recommendation != nil {
		recJSON, err = json.Marshal(r.Recommendation)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshaling recommendation for %s: %w", r.ID, err)
		}
	}
	var commentsJSON []byte
	if len(r.Comments) > 0 {
		commentsJSON, err = json.Marshal(r.Comments)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshaling comments for %s: %w", r.ID, err)
		}
	}
	return string(ratingJSON), nullIfEmptyBytes(recJSON), nullIfEmptyBytes(commentsJSON), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfZero(f float64) any {
	if f == 0 {
		return nil
	}
	return f
}
