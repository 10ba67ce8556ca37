package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/vijay-prabhu/matchcompat/internal/database"
	"github.com/vijay-prabhu/matchcompat/internal/engine"
	"github.com/vijay-prabhu/matchcompat/internal/pairstore"
	"github.com/vijay-prabhu/matchcompat/internal/queue"
	"github.com/vijay-prabhu/matchcompat/internal/recalc"
	"github.com/vijay-prabhu/matchcompat/internal/scoring"
	"github.com/vijay-prabhu/matchcompat/internal/worker"
)

// Table writes data as a formatted table to stdout
func Table(data interface{}) error {
	return TableTo(os.Stdout, data)
}

// TableTo writes data as a formatted table to the given writer
func TableTo(w io.Writer, data interface{}) error {
	switch v := data.(type) {
	case []database.User:
		return usersTable(w, v)
	case []database.Job:
		return jobsTable(w, v)
	case *engine.JobView:
		return jobDetail(w, v)
	case []engine.Match:
		return matchesTable(w, v)
	case *pairstore.View:
		return pairDetail(w, v)
	case scoring.Constants:
		return constantsTable(w, v)
	case *database.Stats:
		return statsTable(w, v)
	case worker.TickSummary:
		return tickSummary(w, v)
	case *recalc.Result:
		return recalcResult(w, v)
	case []*recalc.Result:
		return recalcResults(w, v)
	case queue.EnqueueResult:
		return enqueueResult(w, v)
	case *engine.AnswerOutcome:
		return answerOutcome(w, v)
	case *engine.ImportResult:
		return importResult(w, v)
	default:
		return fmt.Errorf("unsupported data type for table output: %T", data)
	}
}

func render(w io.Writer, header []string, rows [][]string) error {
	cells := make([]any, len(header))
	for i, h := range header {
		cells[i] = h
	}

	table := tablewriter.NewWriter(w)
	table.Header(cells...)
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func usersTable(w io.Writer, users []database.User) error {
	if len(users) == 0 {
		fmt.Fprintln(w, "No users found.")
		return nil
	}

	rows := make([][]string, 0, len(users))
	for _, u := range users {
		excluded := ""
		if u.Excluded {
			excluded = "yes"
		}
		rows = append(rows, []string{u.Username, u.ID, excluded, u.CreatedAt.Format("Jan 02, 2006")})
	}
	return render(w, []string{"Username", "ID", "Excluded", "Created"}, rows)
}

func jobsTable(w io.Writer, jobs []database.Job) error {
	if len(jobs) == 0 {
		fmt.Fprintln(w, "No jobs found.")
		return nil
	}

	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, []string{
			j.UserID,
			string(j.Status),
			strconv.Itoa(j.Attempts),
			formatAge(j.UpdatedAt),
			truncate(j.ErrorMessage, 40),
		})
	}
	return render(w, []string{"User", "Status", "Attempts", "Updated", "Error"}, rows)
}

func jobDetail(w io.Writer, j *engine.JobView) error {
	fmt.Fprintf(w, "User:        %s (%s)\n", j.Username, j.UserID)
	fmt.Fprintf(w, "Status:      %s\n", j.Status)
	fmt.Fprintf(w, "Attempts:    %d\n", j.Attempts)
	if j.LastAttemptAt != nil {
		fmt.Fprintf(w, "Last try:    %s\n", formatAge(*j.LastAttemptAt))
	}
	fmt.Fprintf(w, "Updated:     %s\n", formatAge(j.UpdatedAt))
	if j.LastError != "" {
		fmt.Fprintf(w, "Error:       %s\n", j.LastError)
	}
	return nil
}

func matchesTable(w io.Writer, matches []engine.Match) error {
	if len(matches) == 0 {
		fmt.Fprintln(w, "No matches found.")
		return nil
	}

	rows := make([][]string, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, []string{
			m.Username,
			percent(m.Result.Overall),
			percent(m.Result.CompatibleWithMe),
			percent(m.Result.ImCompatibleWith),
			strconv.Itoa(m.Result.MutualCount),
		})
	}
	return render(w, []string{"User", "Overall", "Compatible With Me", "I'm Compatible With", "Mutual"}, rows)
}

func pairDetail(w io.Writer, v *pairstore.View) error {
	fmt.Fprintf(w, "Pair:        %s -> %s\n", v.UserID, v.OtherID)
	fmt.Fprintf(w, "Scope:       %s\n", v.Scope)
	fmt.Fprintf(w, "Source:      %s\n", v.Source)
	if v.LastCalculatedAt != nil {
		fmt.Fprintf(w, "Calculated:  %s\n", formatAge(*v.LastCalculatedAt))
	}
	fmt.Fprintln(w)

	b := v.Bundle
	rows := [][]string{
		{"Overall", percent(v.Result.Overall)},
		{"Compatible with me", percent(v.Result.CompatibleWithMe)},
		{"I'm compatible with", percent(v.Result.ImCompatibleWith)},
		{"Mutual questions", strconv.Itoa(v.Result.MutualCount)},
	}
	if v.Scope == scoring.ScopeAll {
		rows = append(rows,
			[]string{"Required overall", percent(b.RequiredOverall)},
			[]string{"Required mutual", strconv.Itoa(b.RequiredMutualCount)},
			[]string{"Their required fit", percent(b.TheirRequiredCompatibility)},
			[]string{"My required fit", percent(b.MyRequiredCompatibility)},
			[]string{"My completeness", percent(b.MyCompleteness * 100)},
			[]string{"Their completeness", percent(b.TheirCompleteness * 100)},
		)
	}
	return render(w, []string{"Measure", "Value"}, rows)
}

func constantsTable(w io.Writer, c scoring.Constants) error {
	return render(w, []string{"Constant", "Value"}, [][]string{
		{"adjust_magnitude", formatFloat(c.AdjustMagnitude)},
		{"importance_exponent", formatFloat(c.ImportanceExponent)},
		{"open_to_all_weight", formatFloat(c.OpenToAllWeight)},
	})
}

func statsTable(w io.Writer, s *database.Stats) error {
	fmt.Fprintln(w, "Compatibility Statistics")
	fmt.Fprintln(w, strings.Repeat("-", 30))
	fmt.Fprintf(w, "Users:                  %d\n", s.Users)
	fmt.Fprintf(w, "Eligible users:         %d\n", s.EligibleUsers)
	fmt.Fprintf(w, "Answers:                %d\n", s.Answers)
	fmt.Fprintf(w, "Required marks:         %d\n", s.RequiredMarks)
	fmt.Fprintf(w, "Stored pairs:           %d of %d\n", s.Compatibilities, s.ExpectedPairs)
	if s.ExpectedPairs > 0 {
		fmt.Fprintf(w, "Coverage:               %.1f%%\n", s.Coverage())
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Jobs")
	for _, status := range database.AllJobStatuses {
		fmt.Fprintf(w, "  %-20s  %d\n", status, s.Jobs[status])
	}
	return nil
}

func tickSummary(w io.Writer, s worker.TickSummary) error {
	fmt.Fprintf(w, "Processed %d job(s) in %s\n", s.Processed, s.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "  completed: %d\n", s.Completed)
	fmt.Fprintf(w, "  failed:    %d\n", s.Failed)
	fmt.Fprintf(w, "  released:  %d\n", s.Released)
	if s.Conflicts > 0 {
		fmt.Fprintf(w, "  conflicts: %d\n", s.Conflicts)
	}
	fmt.Fprintf(w, "  remaining: %d\n", s.Remaining)
	if s.BudgetExhausted {
		fmt.Fprintln(w, "Time budget exhausted; remaining jobs stay queued.")
	}
	return nil
}

func recalcResult(w io.Writer, r *recalc.Result) error {
	if r == nil {
		fmt.Fprintln(w, "Nothing recalculated.")
		return nil
	}
	fmt.Fprintf(w, "Recalculated %s: %d of %d candidates in %s\n",
		r.UserID, r.Scored, r.Candidates, r.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  inserted %d, updated %d, unchanged %d, deleted %d\n",
		r.Written.Inserted, r.Written.Updated+r.Written.Swapped, r.Written.Unchanged, r.Written.Deleted)
	if r.PairErrors > 0 {
		fmt.Fprintf(w, "  %d pair(s) failed to score\n", r.PairErrors)
	}
	if r.Partial {
		fmt.Fprintln(w, "  partial run; remaining pairs were not written")
	}
	return nil
}

func recalcResults(w io.Writer, results []*recalc.Result) error {
	if len(results) == 0 {
		fmt.Fprintln(w, "No eligible users.")
		return nil
	}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.UserID,
			strconv.Itoa(r.Scored),
			strconv.Itoa(r.Written.Inserted),
			strconv.Itoa(r.Written.Updated + r.Written.Swapped),
			strconv.Itoa(r.Written.Unchanged),
			strconv.Itoa(r.PairErrors),
		})
	}
	return render(w, []string{"User", "Scored", "Inserted", "Updated", "Unchanged", "Errors"}, rows)
}

func enqueueResult(w io.Writer, r queue.EnqueueResult) error {
	switch {
	case r.Skipped:
		fmt.Fprintf(w, "Not enqueued (%s)\n", r.Reason)
	case r.Created:
		fmt.Fprintln(w, "Enqueued (new job)")
	case r.Updated:
		fmt.Fprintln(w, "Enqueued (job reset to pending)")
	default:
		fmt.Fprintln(w, "Already pending")
	}
	return nil
}

func answerOutcome(w io.Writer, o *engine.AnswerOutcome) error {
	kind := "updated"
	if o.WasNew {
		kind = "added"
	}
	fmt.Fprintf(w, "Answer %s for %s (%s)\n", o.QuestionID, o.UserID, kind)
	if !o.Decision.Enqueue {
		fmt.Fprintf(w, "Not enqueued (%s)\n", o.Decision.Reason)
		return nil
	}
	if o.Enqueue != nil {
		fmt.Fprintf(w, "Queue: %s (%s)\n", o.Enqueue.Outcome(), o.Decision.Reason)
	}
	if o.Inline != nil {
		if err := recalcResult(w, o.Inline); err != nil {
			return err
		}
	}
	if o.InlineError != "" {
		fmt.Fprintf(w, "Inline recalculation failed: %s\n", o.InlineError)
	}
	return nil
}

func importResult(w io.Writer, r *engine.ImportResult) error {
	fmt.Fprintf(w, "Users created:   %d\n", r.UsersCreated)
	fmt.Fprintf(w, "Users existing:  %d\n", r.UsersExisting)
	fmt.Fprintf(w, "Answers:         %d\n", r.Answers)
	fmt.Fprintf(w, "Required marks:  %d\n", r.RequiredMarks)
	fmt.Fprintf(w, "Enqueued:        %d\n", r.Enqueued)
	return nil
}

func percent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatAge(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Format("Jan 02, 2006")
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
