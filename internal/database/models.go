package database

import (
	"database/sql"
	"time"
)

// JobStatus represents the state of a recalculation job
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// AllJobStatuses lists every status in lifecycle order
var AllJobStatuses = []JobStatus{JobPending, JobProcessing, JobCompleted, JobFailed}

// User is a participant in matching
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Excluded  bool      `json:"excluded"`
	CreatedAt time.Time `json:"created_at"`
}

// Job is the single outstanding recalculation request for a user
type Job struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	Status        JobStatus  `json:"status"`
	Attempts      int        `json:"attempts"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	ResumeAfter   string     `json:"resume_after,omitempty"`
	QueuedAt      time.Time  `json:"queued_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Compatibility is one stored pair in its canonical slot orientation.
// Directional fields are from slot1's point of view.
type Compatibility struct {
	ID                         string    `json:"id"`
	Slot1ID                    string    `json:"slot1_id"`
	Slot2ID                    string    `json:"slot2_id"`
	Overall                    float64   `json:"overall"`
	CompatibleWithMe           float64   `json:"compatible_with_me"`
	ImCompatibleWith           float64   `json:"im_compatible_with"`
	MutualQuestionCount        int       `json:"mutual_question_count"`
	RequiredOverall            float64   `json:"required_overall"`
	RequiredCompatibleWithMe   float64   `json:"required_compatible_with_me"`
	RequiredImCompatibleWith   float64   `json:"required_im_compatible_with"`
	TheirRequiredCompatibility float64   `json:"their_required_compatibility"`
	MyRequiredCompatibility    float64   `json:"my_required_compatibility"`
	RequiredMutualCount        int       `json:"required_mutual_count"`
	Slot1RequiredCompleteness  float64   `json:"slot1_required_completeness"`
	Slot2RequiredCompleteness  float64   `json:"slot2_required_completeness"`
	LastCalculatedAt           time.Time `json:"last_calculated_at"`
}

// SameScores reports whether two rows carry identical computed values
func (c *Compatibility) SameScores(o *Compatibility) bool {
	return c.Overall == o.Overall &&
		c.CompatibleWithMe == o.CompatibleWithMe &&
		c.ImCompatibleWith == o.ImCompatibleWith &&
		c.MutualQuestionCount == o.MutualQuestionCount &&
		c.RequiredOverall == o.RequiredOverall &&
		c.RequiredCompatibleWithMe == o.RequiredCompatibleWithMe &&
		c.RequiredImCompatibleWith == o.RequiredImCompatibleWith &&
		c.TheirRequiredCompatibility == o.TheirRequiredCompatibility &&
		c.MyRequiredCompatibility == o.MyRequiredCompatibility &&
		c.RequiredMutualCount == o.RequiredMutualCount &&
		c.Slot1RequiredCompleteness == o.Slot1RequiredCompleteness &&
		c.Slot2RequiredCompleteness == o.Slot2RequiredCompleteness
}

// JobListOptions filters job listings
type JobListOptions struct {
	Status *JobStatus
	Limit  int
}

// Stats holds aggregate counts for reporting
type Stats struct {
	Users           int               `json:"users"`
	EligibleUsers   int               `json:"eligible_users"`
	Answers         int               `json:"answers"`
	RequiredMarks   int               `json:"required_marks"`
	Compatibilities int               `json:"compatibilities"`
	ExpectedPairs   int               `json:"expected_pairs"`
	Jobs            map[JobStatus]int `json:"jobs"`
}

// Coverage is the share of expected pairs that have a stored row
func (s *Stats) Coverage() float64 {
	if s.ExpectedPairs == 0 {
		return 0
	}
	return float64(s.Compatibilities) / float64(s.ExpectedPairs) * 100
}

// TimePtr converts sql.NullTime to *time.Time
func TimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}
