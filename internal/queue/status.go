package queue

import (
	"fmt"
	"unicode/utf8"

	"github.com/vijay-prabhu/matchcompat/internal/database"
)

// maxErrorLen bounds the stored failure message
const maxErrorLen = 500

// transitions lists the moves the worker may make. Any status can go back
// to pending through Enqueue, which is checked separately.
var transitions = map[database.JobStatus][]database.JobStatus{
	database.JobPending:    {database.JobProcessing},
	database.JobProcessing: {database.JobCompleted, database.JobFailed, database.JobPending},
}

// CanTransition reports whether a job may move from one status to another
func CanTransition(from, to database.JobStatus) bool {
	if to == database.JobPending {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ParseStatus validates a status name from user input
func ParseStatus(s string) (database.JobStatus, error) {
	for _, st := range database.AllJobStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// truncateError cuts msg to maxErrorLen bytes without splitting a rune
func truncateError(msg string) string {
	if len(msg) <= maxErrorLen {
		return msg
	}
	n := maxErrorLen
	for n > 0 && !utf8.RuneStart(msg[n]) {
		n--
	}
	return msg[:n]
}
