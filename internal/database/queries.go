package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vijay-prabhu/matchcompat/internal/scoring"
)

// maxParams keeps IN clauses well below SQLite's bound parameter limit
const maxParams = 500

// CreateUser inserts a new user
func (db *DB) CreateUser(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	u.CreatedAt = time.Now().UTC()

	_, err := db.ExecContext(ctx, `
		INSERT INTO users (id, username, excluded, created_at) VALUES (?, ?, ?, ?)
	`, u.ID, u.Username, u.Excluded, u.CreatedAt)
	return err
}

// GetUser retrieves a user by ID or username
func (db *DB) GetUser(ctx context.Context, ref string) (*User, error) {
	u := &User{}
	err := db.QueryRowContext(ctx, `
		SELECT id, username, excluded, created_at FROM users
		WHERE id = ? OR username = ?
		LIMIT 1
	`, ref, ref).Scan(&u.ID, &u.Username, &u.Excluded, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ListUsers returns all users ordered by username
func (db *DB) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, username, excluded, created_at FROM users ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u := User{}
		if err := rows.Scan(&u.ID, &u.Username, &u.Excluded, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SetUserExcluded toggles whether a user takes part in matching
func (db *DB) SetUserExcluded(ctx context.Context, id string, excluded bool) error {
	result, err := db.ExecContext(ctx, `UPDATE users SET excluded = ? WHERE id = ?`, excluded, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("user not found: %s", id)
	}
	return nil
}

// EligibleUserIDs returns non-excluded users with at least one answer,
// leaving out the given user
func (db *DB) EligibleUserIDs(ctx context.Context, except string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT u.id FROM users u
		WHERE u.excluded = 0 AND u.id <> ?
		  AND EXISTS (SELECT 1 FROM answers a WHERE a.user_id = u.id)
		ORDER BY u.id
	`, except)
	if err != nil {
		return nil, err
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

// SaveAnswer inserts or replaces a user's answer and reports whether it was new
func (db *DB) SaveAnswer(ctx context.Context, userID string, a scoring.Answer) (bool, error) {
	var wasNew bool
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM answers WHERE user_id = ? AND question_id = ?
		`, userID, a.QuestionID).Scan(&exists)
		if err != nil {
			return err
		}
		wasNew = exists == 0

		now := time.Now().UTC()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO answers (
				user_id, question_id, me_value, me_open_to_all, me_importance,
				looking_for_value, looking_for_open_to_all, looking_for_importance,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id, question_id) DO UPDATE SET
				me_value = excluded.me_value,
				me_open_to_all = excluded.me_open_to_all,
				me_importance = excluded.me_importance,
				looking_for_value = excluded.looking_for_value,
				looking_for_open_to_all = excluded.looking_for_open_to_all,
				looking_for_importance = excluded.looking_for_importance,
				updated_at = excluded.updated_at
		`,
			userID, a.QuestionID, a.MeValue, a.MeOpenToAll, a.MeImportance,
			a.LookingForValue, a.LookingForOpenToAll, a.LookingForImportance,
			now, now,
		)
		return err
	})
	return wasNew, err
}

// CountAnswers returns how many questions a user has answered
func (db *DB) CountAnswers(ctx context.Context, userID string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM answers WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}

// ListAnswers returns a user's answers ordered by question
func (db *DB) ListAnswers(ctx context.Context, userID string) ([]scoring.Answer, error) {
	byUser, err := db.AnswersForUsers(ctx, []string{userID})
	if err != nil {
		return nil, err
	}
	return byUser[userID], nil
}

// AnswersForUsers loads answers for many users at once, keyed by user ID
func (db *DB) AnswersForUsers(ctx context.Context, userIDs []string) (map[string][]scoring.Answer, error) {
	out := make(map[string][]scoring.Answer, len(userIDs))
	for _, ids := range chunk(userIDs, maxParams) {
		rows, err := db.QueryContext(ctx, `
			SELECT user_id, question_id, me_value, me_open_to_all, me_importance,
			       looking_for_value, looking_for_open_to_all, looking_for_importance
			FROM answers WHERE user_id IN (`+placeholders(len(ids))+`)
			ORDER BY user_id, question_id
		`, toArgs(ids)...)
		if err != nil {
			return nil, err
		}

		for rows.Next() {
			var userID string
			a := scoring.Answer{}
			if err := rows.Scan(
				&userID, &a.QuestionID, &a.MeValue, &a.MeOpenToAll, &a.MeImportance,
				&a.LookingForValue, &a.LookingForOpenToAll, &a.LookingForImportance,
			); err != nil {
				rows.Close()
				return nil, err
			}
			out[userID] = append(out[userID], a)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return out, nil
}

// DeleteAnswer removes a user's answer to a question
func (db *DB) DeleteAnswer(ctx context.Context, userID, questionID string) error {
	result, err := db.ExecContext(ctx, `
		DELETE FROM answers WHERE user_id = ? AND question_id = ?
	`, userID, questionID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("answer not found: %s/%s", userID, questionID)
	}
	return nil
}

// SetRequired adds or removes a required-question mark
func (db *DB) SetRequired(ctx context.Context, userID, questionID string, required bool) error {
	if !required {
		_, err := db.ExecContext(ctx, `
			DELETE FROM required_questions WHERE user_id = ? AND question_id = ?
		`, userID, questionID)
		return err
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO required_questions (user_id, question_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id, question_id) DO NOTHING
	`, userID, questionID, time.Now().UTC())
	return err
}

// RequiredForUsers loads required-question sets for many users, keyed by user ID
func (db *DB) RequiredForUsers(ctx context.Context, userIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(userIDs))
	for _, ids := range chunk(userIDs, maxParams) {
		rows, err := db.QueryContext(ctx, `
			SELECT user_id, question_id FROM required_questions
			WHERE user_id IN (`+placeholders(len(ids))+`)
			ORDER BY user_id, question_id
		`, toArgs(ids)...)
		if err != nil {
			return nil, err
		}

		for rows.Next() {
			var userID, questionID string
			if err := rows.Scan(&userID, &questionID); err != nil {
				rows.Close()
				return nil, err
			}
			out[userID] = append(out[userID], questionID)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return out, nil
}

// GetControls reads the scoring constants
func (db *DB) GetControls(ctx context.Context) (scoring.Constants, error) {
	var c scoring.Constants
	err := db.QueryRowContext(ctx, `
		SELECT adjust_magnitude, importance_exponent, open_to_all_weight
		FROM controls WHERE id = 1
	`).Scan(&c.AdjustMagnitude, &c.ImportanceExponent, &c.OpenToAllWeight)
	if err == sql.ErrNoRows {
		return scoring.DefaultConstants(), nil
	}
	return c, err
}

// UpdateControls stores new scoring constants
func (db *DB) UpdateControls(ctx context.Context, c scoring.Constants) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO controls (id, adjust_magnitude, importance_exponent, open_to_all_weight, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			adjust_magnitude = excluded.adjust_magnitude,
			importance_exponent = excluded.importance_exponent,
			open_to_all_weight = excluded.open_to_all_weight,
			updated_at = excluded.updated_at
	`, c.AdjustMagnitude, c.ImportanceExponent, c.OpenToAllWeight, time.Now().UTC())
	return err
}

// GetStats returns aggregate counts
func (db *DB) GetStats(ctx context.Context) (*Stats, error) {
	s := &Stats{Jobs: make(map[JobStatus]int)}

	err := db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM users u WHERE u.excluded = 0
				AND EXISTS (SELECT 1 FROM answers a WHERE a.user_id = u.id)),
			(SELECT COUNT(*) FROM answers),
			(SELECT COUNT(*) FROM required_questions),
			(SELECT COUNT(*) FROM compatibilities)
	`).Scan(&s.Users, &s.EligibleUsers, &s.Answers, &s.RequiredMarks, &s.Compatibilities)
	if err != nil {
		return nil, err
	}
	s.ExpectedPairs = s.EligibleUsers * (s.EligibleUsers - 1) / 2

	counts, err := db.CountJobs(ctx)
	if err != nil {
		return nil, err
	}
	s.Jobs = counts
	return s, nil
}

// Parties loads answers and required marks for ids, keyed by user ID.
// Users with neither get an empty party.
func (db *DB) Parties(ctx context.Context, ids []string) (map[string]scoring.Party, error) {
	answers, err := db.AnswersForUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}
	required, err := db.RequiredForUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load required questions: %w", err)
	}

	parties := make(map[string]scoring.Party, len(ids))
	for _, id := range ids {
		parties[id] = scoring.Party{
			Answers:  scoring.NewAnswerSet(answers[id]),
			Required: scoring.NewQuestionSet(required[id]...),
		}
	}
	return parties, nil
}
