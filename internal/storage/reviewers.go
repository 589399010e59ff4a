package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/peerflow/peerflow/internal/fault"
	"github.com/peerflow/peerflow/internal/reviewer"
)

const reviewerColumns = `id, name, willing_to_review, review_areas_json,
	maximum_reviews_per_year, expertise_json, verified`

// UpsertReviewer stores or replaces a reviewer profile.
func (d *DB) UpsertReviewer(p reviewer.Profile) error {
	areasJSON, err := json.Marshal(p.ReviewAreas)
	if err != nil {
		return fmt.Errorf("marshaling review areas for %s: %w", p.ID, err)
	}
	expertiseJSON, err := json.Marshal(p.Expertise)
	if err != nil {
		return fmt.Errorf("marshaling expertise for %s: %w", p.ID, err)
	}

	_, err = d.db.Exec(`
		INSERT OR REPLACE INTO reviewers (
			id, name, willing_to_review, review_areas_json,
			maximum_reviews_per_year, expertise_json, verified
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID, p.Name, boolToInt(p.WillingToReview), string(areasJSON),
		p.MaximumReviewsPerYear, string(expertiseJSON), boolToInt(p.Verified),
	)
	if err != nil {
		return fmt.Errorf("upserting reviewer %s: %w", p.ID, err)
	}
	return nil
}

// GetReviewer loads one reviewer profile.
func (d *DB) GetReviewer(id string) (reviewer.Profile, error) {
	row := d.db.QueryRow("SELECT "+reviewerColumns+" FROM reviewers WHERE id = ?", id)
	p, err := scanReviewer(row)
	if err == sql.ErrNoRows {
		return reviewer.Profile{}, fault.New(fault.KindNotFound, "reviewer %s not found", id)
	}
	if err != nil {
		return reviewer.Profile{}, fmt.Errorf("loading reviewer %s: %w", id, err)
	}
	return p, nil
}

// ListReviewers returns all reviewer profiles.
func (d *DB) ListReviewers() ([]reviewer.Profile, error) {
	rows, err := d.db.Query("SELECT " + reviewerColumns + " FROM reviewers ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing reviewers: %w", err)
	}
	defer rows.Close()

	var profiles []reviewer.Profile
	for rows.Next() {
		p, err := scanReviewer(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func scanReviewer(row rowScanner) (reviewer.Profile, error) {
	var p reviewer.Profile
	var willing, verified int
	var areasJSON string
	var expertiseJSON sql.NullString

	err := row.Scan(&p.ID, &p.Name, &willing, &areasJSON,
		&p.MaximumReviewsPerYear, &expertiseJSON, &verified)
	if err != nil {
		return reviewer.Profile{}, err
	}

	p.WillingToReview = willing != 0
	p.Verified = verified != 0
	if err := json.Unmarshal([]byte(areasJSON), &p.ReviewAreas); err != nil {
		return reviewer.Profile{}, fmt.Errorf("unmarshaling review areas for %s: %w", p.ID, err)
	}
	if expertiseJSON.Valid && expertiseJSON.String != "" {
		if err := json.Unmarshal([]byte(expertiseJSON.String), &p.Expertise); err != nil {
			return reviewer.Profile{}, fmt.Errorf("unmarshaling expertise for %s: %w", p.ID, err)
		}
	}
	return p, nil
}
