package engine

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/vijay-prabhu/matchcompat/internal/database"
	"github.com/vijay-prabhu/matchcompat/internal/scoring"
)

// Seed is a TOML file of users to load in bulk
type Seed struct {
	Users []SeedUser `toml:"users"`
}

// SeedUser is one user with their answers and required questions
type SeedUser struct {
	Username string           `toml:"username"`
	Excluded bool             `toml:"excluded"`
	Required []string         `toml:"required"`
	Answers  []scoring.Answer `toml:"answers"`
}

// ImportResult summarizes an import
type ImportResult struct {
	UsersCreated  int `json:"users_created"`
	UsersExisting int `json:"users_existing"`
	Answers       int `json:"answers"`
	RequiredMarks int `json:"required_marks"`
	Enqueued      int `json:"enqueued"`
}

// LoadSeed reads a seed file
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var seed Seed
	if err := toml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &seed, seed.Validate()
}

// Validate checks every user and answer, reporting all problems at once
func (s *Seed) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(s.Users))
	for i, u := range s.Users {
		if u.Username == "" {
			errs = append(errs, fmt.Errorf("users[%d]: username is required", i))
			continue
		}
		if seen[u.Username] {
			errs = append(errs, fmt.Errorf("users[%d]: duplicate username %q", i, u.Username))
		}
		seen[u.Username] = true
		for _, a := range u.Answers {
			if err := a.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("%s/%s: %w", u.Username, a.QuestionID, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Import creates missing users, stores their answers and required marks,
// and enqueues everyone who is match-ready. Existing users are updated in
// place.
func (e *Engine) Import(ctx context.Context, seed *Seed) (*ImportResult, error) {
	if err := seed.Validate(); err != nil {
		return nil, err
	}

	result := &ImportResult{}
	for _, su := range seed.Users {
		u, err := e.db.GetUser(ctx, su.Username)
		if err != nil {
			return result, fmt.Errorf("failed to look up %s: %w", su.Username, err)
		}
		if u == nil {
			u = &database.User{Username: su.Username}
			if err := e.db.CreateUser(ctx, u); err != nil {
				return result, fmt.Errorf("failed to create %s: %w", su.Username, err)
			}
			result.UsersCreated++
		} else {
			result.UsersExisting++
		}

		if su.Excluded != u.Excluded {
			if err := e.db.SetUserExcluded(ctx, u.ID, su.Excluded); err != nil {
				return result, fmt.Errorf("failed to update %s: %w", su.Username, err)
			}
		}

		for _, a := range su.Answers {
			if _, err := e.db.SaveAnswer(ctx, u.ID, a); err != nil {
				return result, fmt.Errorf("failed to save answer %s/%s: %w", su.Username, a.QuestionID, err)
			}
			result.Answers++
		}
		for _, q := range su.Required {
			if err := e.db.SetRequired(ctx, u.ID, q, true); err != nil {
				return result, fmt.Errorf("failed to mark %s/%s required: %w", su.Username, q, err)
			}
			result.RequiredMarks++
		}

		res, err := e.queue.Enqueue(ctx, u.ID, false)
		if err != nil {
			return result, err
		}
		if !res.Skipped {
			result.Enqueued++
		}
	}

	e.log.Info("import finished",
		"users_created", result.UsersCreated,
		"users_existing", result.UsersExisting,
		"answers", result.Answers,
		"enqueued", result.Enqueued,
	)
	return result, nil
}
