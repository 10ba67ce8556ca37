package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/vijay-prabhu/matchcompat/internal/database"
	"github.com/vijay-prabhu/matchcompat/internal/engine"
	"github.com/vijay-prabhu/matchcompat/internal/queue"
	"github.com/vijay-prabhu/matchcompat/internal/scoring"
)

func TestOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	err := OutputTo(&buf, "json", scoring.DefaultConstants())
	if err != nil {
		t.Fatalf("OutputTo failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"adjust_magnitude": 5`) {
		t.Errorf("unexpected JSON output:\n%s", buf.String())
	}
}

func TestOutputUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := OutputTo(&buf, "yaml", scoring.DefaultConstants()); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestTableUnsupportedType(t *testing.T) {
	var buf bytes.Buffer
	if err := TableTo(&buf, 42); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestMatchesTable(t *testing.T) {
	var buf bytes.Buffer
	matches := []engine.Match{
		{UserID: "u1", Username: "bob", Result: scoring.Result{Overall: 92.5, CompatibleWithMe: 90, ImCompatibleWith: 95, MutualCount: 4}},
	}
	if err := TableTo(&buf, matches); err != nil {
		t.Fatalf("TableTo failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"bob", "92.5%", "95.0%"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestEmptyTables(t *testing.T) {
	tests := []struct {
		name     string
		data     interface{}
		expected string
	}{
		{"users", []database.User{}, "No users found."},
		{"jobs", []database.Job{}, "No jobs found."},
		{"matches", []engine.Match{}, "No matches found."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := TableTo(&buf, tt.data); err != nil {
				t.Fatalf("TableTo failed: %v", err)
			}
			if strings.TrimSpace(buf.String()) != tt.expected {
				t.Errorf("got %q, want %q", buf.String(), tt.expected)
			}
		})
	}
}

func TestEnqueueResult(t *testing.T) {
	tests := []struct {
		result   queue.EnqueueResult
		expected string
	}{
		{queue.EnqueueResult{Skipped: true, Reason: queue.ReasonInsufficientAnswers}, "Not enqueued (insufficient_answers)"},
		{queue.EnqueueResult{Created: true}, "Enqueued (new job)"},
		{queue.EnqueueResult{Updated: true}, "Enqueued (job reset to pending)"},
		{queue.EnqueueResult{}, "Already pending"},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		if err := TableTo(&buf, tt.result); err != nil {
			t.Fatalf("TableTo failed: %v", err)
		}
		if strings.TrimSpace(buf.String()) != tt.expected {
			t.Errorf("%+v: got %q, want %q", tt.result, buf.String(), tt.expected)
		}
	}
}

func TestFormatAge(t *testing.T) {
	if got := formatAge(time.Now()); got != "just now" {
		t.Errorf("formatAge(now) = %q", got)
	}
	if got := formatAge(time.Now().Add(-90 * time.Minute)); got != "1h ago" {
		t.Errorf("formatAge(-90m) = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	if got := truncate("a long error message", 10); got != "a long ..." {
		t.Errorf("truncate(long) = %q", got)
	}
}
