package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vijay-prabhu/matchcompat/internal/scoring"
)

func setupTestDB(t *testing.T) (*DB, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "matchcompat-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	db, err := Open(dbPath)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to open database: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.RemoveAll(tmpDir)
	}

	return db, cleanup
}

func createUser(t *testing.T, db *DB, name string) *User {
	t.Helper()
	u := &User{Username: name}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return u
}

func TestOpen(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	for _, table := range []string{"users", "answers", "required_questions", "controls", "compatibilities", "recalculation_jobs"} {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query tables: %v", err)
		}
		if count != 1 {
			t.Errorf("expected %s table to exist", table)
		}
	}
}

func TestControlsSeeded(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	c, err := db.GetControls(ctx)
	if err != nil {
		t.Fatalf("GetControls failed: %v", err)
	}
	if c != scoring.DefaultConstants() {
		t.Errorf("expected default constants, got %+v", c)
	}

	updated := scoring.Constants{AdjustMagnitude: 4, ImportanceExponent: 3, OpenToAllWeight: 0.25}
	if err := db.UpdateControls(ctx, updated); err != nil {
		t.Fatalf("UpdateControls failed: %v", err)
	}
	c, err = db.GetControls(ctx)
	if err != nil {
		t.Fatalf("GetControls failed: %v", err)
	}
	if c != updated {
		t.Errorf("expected %+v, got %+v", updated, c)
	}
}

func TestAnswerCRUD(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	u := createUser(t, db, "alice")

	a := scoring.Answer{QuestionID: "q1", MeValue: 3, MeImportance: 3, LookingForValue: 4, LookingForImportance: 5}
	wasNew, err := db.SaveAnswer(ctx, u.ID, a)
	if err != nil {
		t.Fatalf("SaveAnswer failed: %v", err)
	}
	if !wasNew {
		t.Error("expected first save to be new")
	}

	a.LookingForValue = 2
	wasNew, err = db.SaveAnswer(ctx, u.ID, a)
	if err != nil {
		t.Fatalf("SaveAnswer failed: %v", err)
	}
	if wasNew {
		t.Error("expected second save to be an update")
	}

	answers, err := db.ListAnswers(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListAnswers failed: %v", err)
	}
	if len(answers) != 1 || answers[0] != a {
		t.Errorf("expected [%+v], got %+v", a, answers)
	}

	n, err := db.CountAnswers(ctx, u.ID)
	if err != nil {
		t.Fatalf("CountAnswers failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 answer, got %d", n)
	}

	if err := db.DeleteAnswer(ctx, u.ID, "q1"); err != nil {
		t.Fatalf("DeleteAnswer failed: %v", err)
	}
	if err := db.DeleteAnswer(ctx, u.ID, "q1"); err == nil {
		t.Error("expected error deleting missing answer")
	}
}

func TestRequiredMarks(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	u := createUser(t, db, "alice")
	for _, q := range []string{"q2", "q1", "q1"} {
		if err := db.SetRequired(ctx, u.ID, q, true); err != nil {
			t.Fatalf("SetRequired failed: %v", err)
		}
	}

	req, err := db.RequiredForUsers(ctx, []string{u.ID})
	if err != nil {
		t.Fatalf("RequiredForUsers failed: %v", err)
	}
	if got := req[u.ID]; len(got) != 2 || got[0] != "q1" || got[1] != "q2" {
		t.Errorf("expected [q1 q2], got %v", got)
	}

	if err := db.SetRequired(ctx, u.ID, "q1", false); err != nil {
		t.Fatalf("SetRequired failed: %v", err)
	}
	req, err = db.RequiredForUsers(ctx, []string{u.ID})
	if err != nil {
		t.Fatalf("RequiredForUsers failed: %v", err)
	}
	if got := req[u.ID]; len(got) != 1 || got[0] != "q2" {
		t.Errorf("expected [q2], got %v", got)
	}
}

func TestEligibleUserIDs(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")
	createUser(t, db, "dave") // no answers

	a := scoring.Answer{QuestionID: "q1", MeValue: 3, MeImportance: 3, LookingForValue: 3, LookingForImportance: 3}
	for _, u := range []*User{alice, bob, carol} {
		if _, err := db.SaveAnswer(ctx, u.ID, a); err != nil {
			t.Fatalf("SaveAnswer failed: %v", err)
		}
	}
	if err := db.SetUserExcluded(ctx, carol.ID, true); err != nil {
		t.Fatalf("SetUserExcluded failed: %v", err)
	}

	ids, err := db.EligibleUserIDs(ctx, alice.ID)
	if err != nil {
		t.Fatalf("EligibleUserIDs failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != bob.ID {
		t.Errorf("expected only bob, got %v", ids)
	}
}

func TestCompatibilityCRUD(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	row := Compatibility{
		Slot1ID:          alice.ID,
		Slot2ID:          bob.ID,
		Overall:          63.25,
		CompatibleWithMe: 50,
		ImCompatibleWith: 80,
		LastCalculatedAt: time.Now().UTC(),
	}
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		return InsertCompatibilities(ctx, tx, []Compatibility{row})
	})
	if err != nil {
		t.Fatalf("InsertCompatibilities failed: %v", err)
	}

	// Either lookup order finds the same row
	for _, pair := range [][2]string{{alice.ID, bob.ID}, {bob.ID, alice.ID}} {
		got, err := db.GetCompatibility(ctx, pair[0], pair[1])
		if err != nil {
			t.Fatalf("GetCompatibility failed: %v", err)
		}
		if got == nil || got.Slot1ID != alice.ID || got.CompatibleWithMe != 50 {
			t.Errorf("unexpected row for %v: %+v", pair, got)
		}
	}

	stored, err := db.GetCompatibility(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("GetCompatibility failed: %v", err)
	}
	stored.Overall = 70
	if err := UpdateCompatibilities(ctx, db, []Compatibility{*stored}); err != nil {
		t.Fatalf("UpdateCompatibilities failed: %v", err)
	}

	list, err := db.ListCompatibilitiesForUser(ctx, bob.ID)
	if err != nil {
		t.Fatalf("ListCompatibilitiesForUser failed: %v", err)
	}
	if len(list) != 1 || list[0].Overall != 70 {
		t.Errorf("expected one updated row, got %+v", list)
	}

	n, err := DeleteCompatibilitiesForUser(ctx, db, bob.ID)
	if err != nil {
		t.Fatalf("DeleteCompatibilitiesForUser failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 row deleted, got %d", n)
	}
	got, err := db.GetCompatibility(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("GetCompatibility failed: %v", err)
	}
	if got != nil {
		t.Error("expected row to be gone")
	}
}

func TestPairReadsDuringWriteTransaction(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	// Hold the only write connection with an uncommitted insert
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}
	defer tx.Rollback()
	row := Compatibility{Slot1ID: alice.ID, Slot2ID: bob.ID, Overall: 50, LastCalculatedAt: time.Now().UTC()}
	if err := InsertCompatibilities(ctx, tx, []Compatibility{row}); err != nil {
		t.Fatalf("InsertCompatibilities failed: %v", err)
	}

	readCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	rows, err := db.ListCompatibilitiesForUser(readCtx, alice.ID)
	if err != nil {
		t.Fatalf("ListCompatibilitiesForUser blocked behind the write: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected the uncommitted row to be invisible, got %+v", rows)
	}
	got, err := db.GetCompatibility(readCtx, alice.ID, bob.ID)
	if err != nil || got != nil {
		t.Errorf("expected no committed row, got %+v %v", got, err)
	}

	if _, err := db.Reader().ExecContext(ctx, `DELETE FROM compatibilities`); err == nil {
		t.Error("expected the read pool to reject writes")
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	got, err = db.GetCompatibility(ctx, bob.ID, alice.ID)
	if err != nil || got == nil {
		t.Errorf("expected the committed row, got %+v %v", got, err)
	}
}

func TestJobLifecycle(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	for _, u := range []*User{alice, bob} {
		if err := InsertJob(ctx, db, &Job{UserID: u.ID}); err != nil {
			t.Fatalf("InsertJob failed: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	job, err := db.ClaimNextJob(ctx)
	if err != nil {
		t.Fatalf("ClaimNextJob failed: %v", err)
	}
	if job == nil || job.UserID != alice.ID {
		t.Fatalf("expected alice's job first, got %+v", job)
	}
	if job.Status != JobProcessing || job.Attempts != 1 || job.LastAttemptAt == nil {
		t.Errorf("unexpected claimed job: %+v", job)
	}

	if err := db.TransitionJob(ctx, job.ID, JobProcessing, JobCompleted, ""); err != nil {
		t.Fatalf("TransitionJob failed: %v", err)
	}
	err = db.TransitionJob(ctx, job.ID, JobProcessing, JobFailed, "boom")
	if !errors.Is(err, ErrJobConflict) {
		t.Errorf("expected ErrJobConflict, got %v", err)
	}

	next, err := db.ClaimNextJob(ctx)
	if err != nil {
		t.Fatalf("ClaimNextJob failed: %v", err)
	}
	if next == nil || next.UserID != bob.ID {
		t.Fatalf("expected bob's job, got %+v", next)
	}

	none, err := db.ClaimNextJob(ctx)
	if err != nil {
		t.Fatalf("ClaimNextJob failed: %v", err)
	}
	if none != nil {
		t.Errorf("expected no pending jobs, got %+v", none)
	}

	counts, err := db.CountJobs(ctx)
	if err != nil {
		t.Fatalf("CountJobs failed: %v", err)
	}
	if counts[JobCompleted] != 1 || counts[JobProcessing] != 1 || counts[JobPending] != 0 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestReleaseAndResetJobOrder(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	for _, u := range []*User{alice, bob} {
		if err := InsertJob(ctx, db, &Job{UserID: u.ID}); err != nil {
			t.Fatalf("InsertJob failed: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	job, err := db.ClaimNextJob(ctx)
	if err != nil || job == nil || job.UserID != alice.ID {
		t.Fatalf("expected alice's job, got %+v %v", job, err)
	}
	time.Sleep(2 * time.Millisecond)
	if err := db.ReleaseJob(ctx, job.ID, "bob-id"); err != nil {
		t.Fatalf("ReleaseJob failed: %v", err)
	}
	if err := db.ReleaseJob(ctx, job.ID, "bob-id"); !errors.Is(err, ErrJobConflict) {
		t.Errorf("expected ErrJobConflict releasing a pending job, got %v", err)
	}

	jobs, err := db.ListJobs(ctx, JobListOptions{})
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(jobs) != 2 || jobs[0].UserID != bob.ID || jobs[1].UserID != alice.ID {
		t.Fatalf("expected bob ahead of released alice, got %+v", jobs)
	}
	if jobs[1].ResumeAfter != "bob-id" || !jobs[1].QueuedAt.After(jobs[1].CreatedAt) {
		t.Errorf("unexpected released job: %+v", jobs[1])
	}

	// Resetting a pending job keeps its place but drops the cursor
	if err := ResetJob(ctx, db, jobs[1].ID); err != nil {
		t.Fatalf("ResetJob failed: %v", err)
	}
	got, err := db.GetJobForUser(ctx, alice.ID)
	if err != nil {
		t.Fatalf("GetJobForUser failed: %v", err)
	}
	if got.ResumeAfter != "" || !got.QueuedAt.Equal(jobs[1].QueuedAt) {
		t.Errorf("unexpected reset job: %+v", got)
	}
}

func TestGetStats(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	a := scoring.Answer{QuestionID: "q1", MeValue: 3, MeImportance: 3, LookingForValue: 3, LookingForImportance: 3}
	for _, name := range []string{"alice", "bob", "carol"} {
		u := createUser(t, db, name)
		if _, err := db.SaveAnswer(ctx, u.ID, a); err != nil {
			t.Fatalf("SaveAnswer failed: %v", err)
		}
	}

	stats, err := db.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.Users != 3 || stats.EligibleUsers != 3 || stats.Answers != 3 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.ExpectedPairs != 3 {
		t.Errorf("expected 3 expected pairs, got %d", stats.ExpectedPairs)
	}
	if stats.Coverage() != 0 {
		t.Errorf("expected 0 coverage, got %v", stats.Coverage())
	}
}
