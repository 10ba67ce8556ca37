package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

const compatibilityColumns = `
	id, slot1_id, slot2_id, overall, compatible_with_me, im_compatible_with,
	mutual_question_count, required_overall, required_compatible_with_me,
	required_im_compatible_with, their_required_compatibility, my_required_compatibility,
	required_mutual_count, slot1_required_completeness, slot2_required_completeness,
	last_calculated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanCompatibility(s scanner) (*Compatibility, error) {
	c := &Compatibility{}
	err := s.Scan(
		&c.ID, &c.Slot1ID, &c.Slot2ID, &c.Overall, &c.CompatibleWithMe, &c.ImCompatibleWith,
		&c.MutualQuestionCount, &c.RequiredOverall, &c.RequiredCompatibleWithMe,
		&c.RequiredImCompatibleWith, &c.TheirRequiredCompatibility, &c.MyRequiredCompatibility,
		&c.RequiredMutualCount, &c.Slot1RequiredCompleteness, &c.Slot2RequiredCompleteness,
		&c.LastCalculatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetCompatibility retrieves the row for a pair stored in either orientation.
// It reads the last committed state.
func (db *DB) GetCompatibility(ctx context.Context, a, b string) (*Compatibility, error) {
	c, err := scanCompatibility(db.reader.QueryRowContext(ctx, `
		SELECT `+compatibilityColumns+` FROM compatibilities
		WHERE (slot1_id = ? AND slot2_id = ?) OR (slot1_id = ? AND slot2_id = ?)
		LIMIT 1
	`, a, b, b, a))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// ListCompatibilitiesForUser returns every row touching the user in either slot
func (db *DB) ListCompatibilitiesForUser(ctx context.Context, userID string) ([]Compatibility, error) {
	rows, err := db.reader.QueryContext(ctx, `
		SELECT `+compatibilityColumns+` FROM compatibilities
		WHERE slot1_id = ? OR slot2_id = ?
	`, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Compatibility
	for rows.Next() {
		c, err := scanCompatibility(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// CountCompatibilities returns the number of stored pairs
func (db *DB) CountCompatibilities(ctx context.Context) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM compatibilities`).Scan(&n)
	return n, err
}

// InsertCompatibilities writes new rows with one prepared statement
func InsertCompatibilities(ctx context.Context, q Querier, rows []Compatibility) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := q.PrepareContext(ctx, `
		INSERT INTO compatibilities (`+compatibilityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range rows {
		c := &rows[i]
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if _, err := stmt.ExecContext(ctx,
			c.ID, c.Slot1ID, c.Slot2ID, c.Overall, c.CompatibleWithMe, c.ImCompatibleWith,
			c.MutualQuestionCount, c.RequiredOverall, c.RequiredCompatibleWithMe,
			c.RequiredImCompatibleWith, c.TheirRequiredCompatibility, c.MyRequiredCompatibility,
			c.RequiredMutualCount, c.Slot1RequiredCompleteness, c.Slot2RequiredCompleteness,
			c.LastCalculatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert pair %s/%s: %w", c.Slot1ID, c.Slot2ID, err)
		}
	}
	return nil
}

// UpdateCompatibilities overwrites existing rows by ID with one prepared statement
func UpdateCompatibilities(ctx context.Context, q Querier, rows []Compatibility) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := q.PrepareContext(ctx, `
		UPDATE compatibilities SET
			overall = ?, compatible_with_me = ?, im_compatible_with = ?,
			mutual_question_count = ?, required_overall = ?, required_compatible_with_me = ?,
			required_im_compatible_with = ?, their_required_compatibility = ?,
			my_required_compatibility = ?, required_mutual_count = ?,
			slot1_required_completeness = ?, slot2_required_completeness = ?,
			last_calculated_at = ?
		WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare update: %w", err)
	}
	defer stmt.Close()

	for i := range rows {
		c := &rows[i]
		if _, err := stmt.ExecContext(ctx,
			c.Overall, c.CompatibleWithMe, c.ImCompatibleWith,
			c.MutualQuestionCount, c.RequiredOverall, c.RequiredCompatibleWithMe,
			c.RequiredImCompatibleWith, c.TheirRequiredCompatibility,
			c.MyRequiredCompatibility, c.RequiredMutualCount,
			c.Slot1RequiredCompleteness, c.Slot2RequiredCompleteness,
			c.LastCalculatedAt, c.ID,
		); err != nil {
			return fmt.Errorf("failed to update pair %s: %w", c.ID, err)
		}
	}
	return nil
}

// DeleteCompatibilitiesForUser removes every row touching the user
func DeleteCompatibilitiesForUser(ctx context.Context, q Querier, userID string) (int64, error) {
	result, err := q.ExecContext(ctx, `
		DELETE FROM compatibilities WHERE slot1_id = ? OR slot2_id = ?
	`, userID, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
