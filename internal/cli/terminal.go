package cli

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/vijay-prabhu/matchcompat/internal/recalc"
)

// ANSI color codes
const (
	ColorReset  = "\033[0m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorCyan   = "\033[36m"
	ColorWhite  = "\033[37m"
)

// Spinner frames for animated progress
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Terminal provides terminal-aware output utilities
type Terminal struct {
	IsTerminal   bool
	UseColor     bool
	spinnerIndex int
}

// NewTerminal creates a new Terminal instance
func NewTerminal() *Terminal {
	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	return &Terminal{
		IsTerminal: isTerminal,
		UseColor:   isTerminal,
	}
}

// ClearLine clears the current line (terminal only)
func (t *Terminal) ClearLine() {
	if t.IsTerminal {
		fmt.Print("\r\033[K")
	}
}

// Spinner returns the next spinner frame
func (t *Terminal) Spinner() string {
	if !t.IsTerminal {
		return ""
	}
	frame := spinnerFrames[t.spinnerIndex]
	t.spinnerIndex = (t.spinnerIndex + 1) % len(spinnerFrames)
	return frame
}

// Color wraps text in ANSI color codes (terminal only)
func (t *Terminal) Color(color, text string) string {
	if !t.UseColor {
		return text
	}
	return color + text + ColorReset
}

// FormatETA formats a duration as a human-readable ETA string
func FormatETA(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		if s > 0 {
			return fmt.Sprintf("%dm%ds", m, s)
		}
		return fmt.Sprintf("%dm", m)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}

// PhaseColor returns the color for a recalculation phase
func PhaseColor(phase recalc.ProgressPhase) string {
	switch phase {
	case recalc.PhaseLoading:
		return ColorCyan
	case recalc.PhaseScoring:
		return ColorBlue
	case recalc.PhaseWriting:
		return ColorGreen
	default:
		return ColorWhite
	}
}

// ProgressPrinter renders recalculation progress on one line in a
// terminal, or as occasional plain lines otherwise
func (t *Terminal) ProgressPrinter() recalc.ProgressCallback {
	var last recalc.Progress
	return func(p recalc.Progress) {
		t.ClearLine()

		var msg string
		switch p.Phase {
		case recalc.PhaseLoading:
			msg = fmt.Sprintf("%s %s for %s...", t.Spinner(), p.Description, p.UserID)
		case recalc.PhaseScoring:
			eta := ""
			if d := p.ETA(); d > 0 {
				eta = fmt.Sprintf(" (ETA: %s)", FormatETA(d))
			}
			msg = fmt.Sprintf("Scoring %s: %d/%d pairs (%d%%)%s", p.UserID, p.Current, p.Total, p.Percentage(), eta)
		case recalc.PhaseWriting:
			msg = fmt.Sprintf("%s Writing %d pairs for %s", t.Spinner(), p.Total, p.UserID)
		default:
			msg = p.Description
		}
		msg = t.Color(PhaseColor(p.Phase), msg)

		if t.IsTerminal {
			fmt.Print(msg)
			os.Stdout.Sync()
		} else if p.Phase != last.Phase || p.UserID != last.UserID {
			fmt.Println(msg)
		}
		last = p
	}
}

// Done clears any progress line left on screen
func (t *Terminal) Done() {
	t.ClearLine()
}
