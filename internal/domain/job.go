package domain

import "time"

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Valid reports whether s is one of the known lifecycle states.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	default:
		return false
	}
}

// Job encapsulates one image edit request and its progress through the provider.
type Job struct {
	ID                string
	Prompt            string
	Model             string
	OriginalImageRef  string
	ResultImageRef    string
	Status            JobStatus
	ErrorMessage      string
	ExternalRequestID string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Clone returns a copy that shares no state with j.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	return &c
}

// JobPatch carries the mutable fields applied together with a status change.
// Empty strings leave the stored value untouched.
type JobPatch struct {
	ResultImageRef    string
	ErrorMessage      string
	ExternalRequestID string
}

// Transition describes a compare-and-set status change.
type Transition struct {
	From  JobStatus
	To    JobStatus
	Patch JobPatch
	At    time.Time
}

// JobPage is one window of a creation-descending job listing.
type JobPage struct {
	Items []Job
	Total int
}
