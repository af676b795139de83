package domain

import (
	"strings"
	"time"
)

// JobState represents the pipeline position of a job.
type JobState string

const (
	StateInit             JobState = "init"
	StateIdentityResolved JobState = "identity_resolved"
	StateDownloaded       JobState = "downloaded"
	StateTrimmed          JobState = "trimmed"
	StatePromoted         JobState = "promoted"
	StatePublished        JobState = "published"
	StateFailed           JobState = "failed"
)

// Terminal returns true for states a job never leaves.
func (s JobState) Terminal() bool {
	return s == StatePublished || s == StateFailed
}

// Job is the context threaded through every stage of one request.
type Job struct {
	ID        string
	Request   JobRequest
	Identity  VideoIdentity
	State     JobState
	Log       JobLog
	Temp      *TempArtifacts
	StartedAt time.Time
}

// Logf appends a line to the job log.
func (j *Job) Logf(format string, args ...any) {
	j.Log.Printf(format, args...)
}

// Token is a short job-unique string used to qualify temp paths.
func (j *Job) Token() string {
	t := strings.ReplaceAll(j.ID, "-", "")
	if len(t) > 8 {
		t = t[:8]
	}
	return t
}

func (j *Job) advance(next JobState) {
	if j.State.Terminal() {
		return
	}
	j.Logf("State: %s -> %s", j.State, next)
	j.State = next
}

// JobResult is the terminal outcome of a job: either a published file or an error.
type JobResult struct {
	JobID     string
	PublicURL string
	Filename  string
	Err       *JobError
}

// HTTPStatus returns the response status for the result.
func (r JobResult) HTTPStatus() int {
	if r.Err != nil {
		return r.Err.Kind.HTTPStatus()
	}
	return 200
}
