package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vijay-prabhu/matchcompat/internal/cache"
	"github.com/vijay-prabhu/matchcompat/internal/config"
	"github.com/vijay-prabhu/matchcompat/internal/database"
	"github.com/vijay-prabhu/matchcompat/internal/logger"
	"github.com/vijay-prabhu/matchcompat/internal/pairstore"
	"github.com/vijay-prabhu/matchcompat/internal/queue"
	"github.com/vijay-prabhu/matchcompat/internal/recalc"
	"github.com/vijay-prabhu/matchcompat/internal/scoring"
)

func setupTestEngine(t *testing.T, tweak func(*config.Config)) (*Engine, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "matchcompat-engine-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	cfg := config.Default()
	cfg.Database.Path = filepath.Join(tmpDir, "test.db")
	cfg.Scoring.MatchReadyThreshold = 2
	if tweak != nil {
		tweak(cfg)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to open database: %v", err)
	}

	e := New(cfg, db, cache.NewMemory(time.Minute), logger.Nop())
	cleanup := func() {
		e.Close()
		os.RemoveAll(tmpDir)
	}
	return e, cleanup
}

func mustUser(t *testing.T, e *Engine, name string) *database.User {
	t.Helper()
	u, err := e.AddUser(context.Background(), name)
	if err != nil {
		t.Fatalf("AddUser failed: %v", err)
	}
	return u
}

func mustAnswer(t *testing.T, e *Engine, user string, a scoring.Answer) *AnswerOutcome {
	t.Helper()
	out, err := e.SubmitAnswer(context.Background(), user, a)
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	return out
}

func ans(q string, self, want int) scoring.Answer {
	return scoring.Answer{
		QuestionID:           q,
		MeValue:              self,
		MeImportance:         3,
		LookingForValue:      want,
		LookingForImportance: 4,
	}
}

func TestSubmitAnswerRejectsInvalid(t *testing.T) {
	e, cleanup := setupTestEngine(t, nil)
	defer cleanup()
	mustUser(t, e, "alice")

	bad := ans("q1", 3, 3)
	bad.LookingForImportance = 7
	_, err := e.SubmitAnswer(context.Background(), "alice", bad)
	if !errors.Is(err, scoring.ErrInvalidAnswer) {
		t.Errorf("expected ErrInvalidAnswer, got %v", err)
	}

	_, err = e.SubmitAnswer(context.Background(), "nobody", ans("q1", 3, 3))
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSubmitAnswerEnqueueFlow(t *testing.T) {
	e, cleanup := setupTestEngine(t, nil)
	defer cleanup()
	ctx := context.Background()
	mustUser(t, e, "alice")

	out := mustAnswer(t, e, "alice", ans("q1", 3, 3))
	if !out.WasNew || out.Decision.Enqueue || out.Enqueue != nil {
		t.Errorf("expected no enqueue below threshold, got %+v", out)
	}

	out = mustAnswer(t, e, "alice", ans("q2", 3, 3))
	if out.Decision.Reason != queue.ReasonMatchReady || out.Enqueue == nil || !out.Enqueue.Created {
		t.Errorf("expected job created at threshold, got %+v", out)
	}

	out = mustAnswer(t, e, "alice", ans("q2", 4, 2))
	if out.WasNew || !out.Decision.Force || !out.Enqueue.Updated {
		t.Errorf("expected forced update, got %+v", out)
	}

	job, err := e.JobStatus(ctx, "alice")
	if err != nil {
		t.Fatalf("JobStatus failed: %v", err)
	}
	if job == nil || job.Status != database.JobPending || job.Username != "alice" {
		t.Errorf("unexpected job: %+v", job)
	}
}

func TestOnboardingRunsInline(t *testing.T) {
	e, cleanup := setupTestEngine(t, func(cfg *config.Config) {
		cfg.Scoring.OnboardingQuestions = []string{"q2"}
		cfg.Scoring.InlineOnboarding = true
	})
	defer cleanup()
	ctx := context.Background()

	mustUser(t, e, "alice")
	mustUser(t, e, "bob")
	mustAnswer(t, e, "bob", ans("q1", 2, 4))

	mustAnswer(t, e, "alice", ans("q1", 3, 3))
	out := mustAnswer(t, e, "alice", ans("q2", 3, 3))
	if !out.Decision.Inline || out.Inline == nil || out.InlineError != "" {
		t.Fatalf("expected inline recalculation, got %+v", out)
	}
	if out.Inline.Written.Inserted != 1 {
		t.Errorf("expected one pair written, got %+v", out.Inline.Written)
	}

	job, err := e.JobStatus(ctx, "alice")
	if err != nil {
		t.Fatalf("JobStatus failed: %v", err)
	}
	if job.Status != database.JobCompleted || job.Attempts != 1 {
		t.Errorf("expected completed job, got %+v", job)
	}

	v, err := e.ReadCompatibility(ctx, "bob", "alice", scoring.ReadOptions{})
	if err != nil {
		t.Fatalf("ReadCompatibility failed: %v", err)
	}
	if v.Source == pairstore.SourceLive {
		t.Errorf("expected stored pair after inline run, got %s", v.Source)
	}
}

func TestReadCompatibility(t *testing.T) {
	e, cleanup := setupTestEngine(t, nil)
	defer cleanup()
	ctx := context.Background()

	mustUser(t, e, "alice")
	mustUser(t, e, "bob")
	mustAnswer(t, e, "alice", ans("q1", 3, 3))
	mustAnswer(t, e, "alice", ans("q2", 1, 5))
	mustAnswer(t, e, "bob", ans("q1", 3, 3))
	mustAnswer(t, e, "bob", ans("q2", 5, 1))
	for _, name := range []string{"alice", "bob"} {
		if _, err := e.SetRequired(ctx, name, "q1", true); err != nil {
			t.Fatalf("SetRequired failed: %v", err)
		}
	}

	t.Run("conflicting flags", func(t *testing.T) {
		_, err := e.ReadCompatibility(ctx, "alice", "bob", scoring.ReadOptions{RequiredOnly: true, ExcludeRequired: true})
		if !errors.Is(err, scoring.ErrInvalidRequest) {
			t.Errorf("expected ErrInvalidRequest, got %v", err)
		}
	})

	t.Run("same user", func(t *testing.T) {
		_, err := e.ReadCompatibility(ctx, "alice", "alice", scoring.ReadOptions{})
		if !errors.Is(err, scoring.ErrInvalidRequest) {
			t.Errorf("expected ErrInvalidRequest, got %v", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := e.ReadCompatibility(ctx, "alice", "carol", scoring.ReadOptions{})
		if !errors.Is(err, ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("live before recalculation", func(t *testing.T) {
		v, err := e.ReadCompatibility(ctx, "alice", "bob", scoring.ReadOptions{})
		if err != nil {
			t.Fatalf("ReadCompatibility failed: %v", err)
		}
		if v.Source != pairstore.SourceLive || v.Result.MutualCount != 2 {
			t.Errorf("unexpected view: %+v", v)
		}
	})

	t.Run("exclude required", func(t *testing.T) {
		v, err := e.ReadCompatibility(ctx, "alice", "bob", scoring.ReadOptions{ExcludeRequired: true})
		if err != nil {
			t.Fatalf("ReadCompatibility failed: %v", err)
		}
		if v.Result.MutualCount != 1 {
			t.Errorf("expected only q2 to count, got %+v", v.Result)
		}
	})

	t.Run("required only after recalculation", func(t *testing.T) {
		if _, err := e.Recalculate(ctx, "alice", recalc.Options{}); err != nil {
			t.Fatalf("Recalculate failed: %v", err)
		}
		v, err := e.ReadCompatibility(ctx, "bob", "alice", scoring.ReadOptions{RequiredOnly: true})
		if err != nil {
			t.Fatalf("ReadCompatibility failed: %v", err)
		}
		if v.Source != pairstore.SourceStore || v.Result.MutualCount != 1 {
			t.Errorf("unexpected view: %+v", v)
		}
		if v.Result.CompatibleWithMe != 100 || v.Result.ImCompatibleWith != 100 {
			t.Errorf("expected perfect required match on q1, got %+v", v.Result)
		}
	})
}

func TestUpdateConstants(t *testing.T) {
	e, cleanup := setupTestEngine(t, nil)
	defer cleanup()
	ctx := context.Background()

	if err := e.UpdateConstants(ctx, scoring.Constants{AdjustMagnitude: 0, ImportanceExponent: 2, OpenToAllWeight: 0.5}); err == nil {
		t.Error("expected invalid constants to be rejected")
	}

	c, err := e.CurrentConstants(ctx)
	if err != nil {
		t.Fatalf("CurrentConstants failed: %v", err)
	}
	if c != scoring.DefaultConstants() {
		t.Errorf("expected defaults, got %+v", c)
	}

	updated := scoring.Constants{AdjustMagnitude: 10, ImportanceExponent: 1, OpenToAllWeight: 0.25}
	if err := e.UpdateConstants(ctx, updated); err != nil {
		t.Fatalf("UpdateConstants failed: %v", err)
	}
	c, err = e.CurrentConstants(ctx)
	if err != nil {
		t.Fatalf("CurrentConstants failed: %v", err)
	}
	if c != updated {
		t.Errorf("expected %+v, got %+v", updated, c)
	}

	// A change made behind the engine's back shows up after invalidation
	external := scoring.Constants{AdjustMagnitude: 3, ImportanceExponent: 2, OpenToAllWeight: 1}
	if err := e.DB().UpdateControls(ctx, external); err != nil {
		t.Fatalf("UpdateControls failed: %v", err)
	}
	if c, _ := e.CurrentConstants(ctx); c != updated {
		t.Errorf("expected cached constants before invalidation, got %+v", c)
	}
	e.InvalidateConstants()
	if c, _ := e.CurrentConstants(ctx); c != external {
		t.Errorf("expected reloaded constants, got %+v", c)
	}
}

func TestScheduledTick(t *testing.T) {
	e, cleanup := setupTestEngine(t, nil)
	defer cleanup()
	ctx := context.Background()

	for _, name := range []string{"alice", "bob", "carol"} {
		mustUser(t, e, name)
		mustAnswer(t, e, name, ans("q1", 3, 3))
		mustAnswer(t, e, name, ans("q2", 2, 4))
	}

	summary := e.ScheduledTick(ctx, 2, time.Minute)
	if summary.Completed != 2 || summary.Remaining != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	summary = e.ScheduledTick(ctx, 0, 0)
	if summary.Completed != 1 || summary.Remaining != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	stats, err := e.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Compatibilities != 3 || stats.Jobs[database.JobCompleted] != 3 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestMatches(t *testing.T) {
	e, cleanup := setupTestEngine(t, nil)
	defer cleanup()
	ctx := context.Background()

	mustUser(t, e, "alice")
	mustAnswer(t, e, "alice", ans("q1", 3, 3))
	for name, self := range map[string]int{"bob": 3, "carol": 4, "dave": 1, "erin": 3} {
		mustUser(t, e, name)
		mustAnswer(t, e, name, scoring.Answer{
			QuestionID: "q1", MeValue: self, MeImportance: 3, LookingForValue: 3, LookingForImportance: 3,
		})
	}
	if _, err := e.Recalculate(ctx, "alice", recalc.Options{}); err != nil {
		t.Fatalf("Recalculate failed: %v", err)
	}
	if _, err := e.SetExcluded(ctx, "erin", true); err != nil {
		t.Fatalf("SetExcluded failed: %v", err)
	}

	matches, err := e.Matches(ctx, "alice", MatchOptions{SortBy: SortCompatibleWithMe})
	if err != nil {
		t.Fatalf("Matches failed: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches without erin, got %+v", matches)
	}
	if matches[0].Username != "bob" || matches[2].Username != "dave" {
		t.Errorf("expected bob first and dave last, got %+v", matches)
	}

	// carol is one step off (80), dave two (60)
	matches, err = e.Matches(ctx, "alice", MatchOptions{SortBy: SortCompatibleWithMe, Min: 70})
	if err != nil {
		t.Fatalf("Matches failed: %v", err)
	}
	if len(matches) != 2 || matches[1].Username != "carol" {
		t.Errorf("expected bob and carol, got %+v", matches)
	}

	matches, err = e.Matches(ctx, "alice", MatchOptions{SortBy: SortCompatibleWithMe, Offset: 1, Limit: 1})
	if err != nil {
		t.Fatalf("Matches failed: %v", err)
	}
	if len(matches) != 1 || matches[0].Username != "carol" {
		t.Errorf("expected carol on the second page, got %+v", matches)
	}

	if _, err := e.Matches(ctx, "alice", MatchOptions{SortBy: "height"}); !errors.Is(err, scoring.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}

	for _, opts := range []MatchOptions{{Offset: -1}, {Limit: -1}} {
		if _, err := e.Matches(ctx, "alice", opts); !errors.Is(err, scoring.ErrInvalidRequest) {
			t.Errorf("%+v: expected ErrInvalidRequest, got %v", opts, err)
		}
	}
}

func TestImport(t *testing.T) {
	e, cleanup := setupTestEngine(t, nil)
	defer cleanup()
	ctx := context.Background()

	seed := `
[[users]]
username = "alice"
required = ["q1"]

  [[users.answers]]
  question_id = "q1"
  me_value = 3
  me_importance = 3
  looking_for_value = 3
  looking_for_importance = 5

  [[users.answers]]
  question_id = "q2"
  me_value = 2
  me_importance = 2
  looking_for_value = 6
  looking_for_open_to_all = true
  looking_for_importance = 1

[[users]]
username = "bob"

  [[users.answers]]
  question_id = "q1"
  me_value = 4
  me_importance = 3
  looking_for_value = 2
  looking_for_importance = 4
`
	path := filepath.Join(t.TempDir(), "seed.toml")
	if err := os.WriteFile(path, []byte(seed), 0644); err != nil {
		t.Fatalf("failed to write seed: %v", err)
	}

	s, err := LoadSeed(path)
	if err != nil {
		t.Fatalf("LoadSeed failed: %v", err)
	}
	res, err := e.Import(ctx, s)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if res.UsersCreated != 2 || res.Answers != 3 || res.RequiredMarks != 1 || res.Enqueued != 1 {
		t.Errorf("unexpected import result: %+v", res)
	}

	// Importing again updates in place
	res, err = e.Import(ctx, s)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if res.UsersCreated != 0 || res.UsersExisting != 2 {
		t.Errorf("unexpected second import: %+v", res)
	}
}

func TestSeedValidate(t *testing.T) {
	s := &Seed{Users: []SeedUser{
		{Username: ""},
		{Username: "alice", Answers: []scoring.Answer{{QuestionID: "q1", MeValue: 9, MeImportance: 3, LookingForValue: 3, LookingForImportance: 3}}},
		{Username: "alice"},
	}}
	err := s.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	if !errors.Is(err, scoring.ErrInvalidAnswer) {
		t.Errorf("expected joined ErrInvalidAnswer, got %v", err)
	}
}
