package recalc

import "time"

// ProgressPhase represents the current recalculation phase
type ProgressPhase string

const (
	PhaseLoading ProgressPhase = "loading"
	PhaseScoring ProgressPhase = "scoring"
	PhaseWriting ProgressPhase = "writing"
)

// Progress represents the current recalculation progress
type Progress struct {
	Phase       ProgressPhase
	UserID      string
	Current     int       // Current pair being scored
	Total       int       // Total pairs for this user
	Description string    // Human-readable description
	StartedAt   time.Time // When scoring started (for ETA calculation)
}

// ProgressCallback is called with progress updates during a recalculation
type ProgressCallback func(Progress)

// ETA returns the estimated time remaining based on current progress
func (p Progress) ETA() time.Duration {
	if p.Current == 0 || p.Total == 0 || p.StartedAt.IsZero() {
		return 0
	}
	elapsed := time.Since(p.StartedAt)
	rate := float64(p.Current) / elapsed.Seconds()
	if rate <= 0 {
		return 0
	}
	remaining := p.Total - p.Current
	return time.Duration(float64(remaining)/rate) * time.Second
}

// Percentage returns the completion percentage (0-100)
func (p Progress) Percentage() int {
	if p.Total == 0 {
		return 0
	}
	return (p.Current * 100) / p.Total
}
