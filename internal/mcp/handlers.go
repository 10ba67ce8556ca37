package mcp

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/vijay-prabhu/matchcompat/internal/database"
	"github.com/vijay-prabhu/matchcompat/internal/engine"
	"github.com/vijay-prabhu/matchcompat/internal/output"
	"github.com/vijay-prabhu/matchcompat/internal/scoring"
)

const defaultMatchLimit = 20

var validate = validator.New()

func (s *Server) registerHandlers() {
	s.handlers["read_compatibility"] = s.handleReadCompatibility
	s.handlers["get_matches"] = s.handleGetMatches
	s.handlers["submit_answer"] = s.handleSubmitAnswer
	s.handlers["job_status"] = s.handleJobStatus
	s.handlers["enqueue_user"] = s.handleEnqueueUser
	s.handlers["run_tick"] = s.handleRunTick
	s.handlers["get_constants"] = s.handleGetConstants
	s.handlers["get_stats"] = s.handleGetStats
}

// decode unmarshals and validates tool arguments. Missing arguments decode
// to the zero value, so required fields still fail validation.
func decode(params json.RawMessage, v interface{}) error {
	if len(params) > 0 {
		if err := json.Unmarshal(params, v); err != nil {
			return fmt.Errorf("invalid parameters: %w", err)
		}
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}

type readCompatibilityParams struct {
	User            string `json:"user" validate:"required"`
	Other           string `json:"other" validate:"required"`
	RequiredOnly    bool   `json:"required_only"`
	ExcludeRequired bool   `json:"exclude_required"`
}

func (s *Server) handleReadCompatibility(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p readCompatibilityParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	return s.engine.ReadCompatibility(ctx, p.User, p.Other, scoring.ReadOptions{
		RequiredOnly:    p.RequiredOnly,
		ExcludeRequired: p.ExcludeRequired,
	})
}

type getMatchesParams struct {
	User         string  `json:"user" validate:"required"`
	SortBy       string  `json:"sort_by" validate:"omitempty,oneof=overall compatible_with_me im_compatible_with"`
	RequiredOnly bool    `json:"required_only"`
	Min          float64 `json:"min" validate:"min=0,max=100"`
	Max          float64 `json:"max" validate:"min=0,max=100"`
	Limit        int     `json:"limit" validate:"min=0"`
	Offset       int     `json:"offset" validate:"min=0"`
}

type matchesResult struct {
	User    string         `json:"user"`
	Matches []engine.Match `json:"matches"`
}

func (s *Server) handleGetMatches(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p getMatchesParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if p.Limit == 0 {
		p.Limit = defaultMatchLimit
	}

	matches, err := s.engine.Matches(ctx, p.User, engine.MatchOptions{
		SortBy:       p.SortBy,
		RequiredOnly: p.RequiredOnly,
		Min:          p.Min,
		Max:          p.Max,
		Limit:        p.Limit,
		Offset:       p.Offset,
	})
	if err != nil {
		return nil, err
	}
	return matchesResult{User: p.User, Matches: matches}, nil
}

type submitAnswerParams struct {
	User string `json:"user" validate:"required"`
	scoring.Answer
}

func (s *Server) handleSubmitAnswer(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p submitAnswerParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	return s.engine.SubmitAnswer(ctx, p.User, p.Answer)
}

type userParams struct {
	User string `json:"user" validate:"required"`
}

func (s *Server) handleJobStatus(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p userParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	job, err := s.engine.JobStatus(ctx, p.User)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return fmt.Sprintf("%s has never been queued", p.User), nil
	}
	return job, nil
}

type enqueueParams struct {
	User  string `json:"user" validate:"required"`
	Force bool   `json:"force"`
}

func (s *Server) handleEnqueueUser(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p enqueueParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	return s.engine.Enqueue(ctx, p.User, p.Force)
}

type runTickParams struct {
	MaxItems   int `json:"max_items" validate:"min=0"`
	MaxSeconds int `json:"max_seconds" validate:"min=0"`
}

func (s *Server) handleRunTick(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p runTickParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	return s.engine.ScheduledTick(ctx, p.MaxItems, time.Duration(p.MaxSeconds)*time.Second), nil
}

func (s *Server) handleGetConstants(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	return s.engine.CurrentConstants(ctx)
}

func (s *Server) handleGetStats(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	stats, err := s.engine.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return stats, nil
}

// Resource handlers

func (s *Server) handleReadResource(ctx context.Context, uri string) (string, error) {
	switch uri {
	case uriSummary:
		stats, err := s.engine.Stats(ctx)
		if err != nil {
			return "", err
		}
		return render(stats)
	case uriQueue:
		return s.getResourceQueue(ctx)
	case uriConstants:
		c, err := s.engine.CurrentConstants(ctx)
		if err != nil {
			return "", err
		}
		return render(c)
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

func (s *Server) getResourceQueue(ctx context.Context) (string, error) {
	stats, err := s.engine.Stats(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Recalculation Queue\n===================\n\n")
	for _, status := range database.AllJobStatuses {
		fmt.Fprintf(&b, "%-12s %d\n", status, stats.Jobs[status])
	}

	pending := database.JobPending
	jobs, err := s.engine.ListJobs(ctx, database.JobListOptions{Status: &pending, Limit: 10})
	if err != nil {
		return "", err
	}
	if len(jobs) == 0 {
		b.WriteString("\nNothing pending.\n")
		return b.String(), nil
	}

	b.WriteString("\nOldest pending:\n")
	text, err := render(jobs)
	if err != nil {
		return "", err
	}
	b.WriteString(text)
	return b.String(), nil
}

func render(data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := output.TableTo(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
