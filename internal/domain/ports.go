package domain

import "context"

// CommandResult is the outcome of one external invocation.
type CommandResult struct {
	ExitCode int
	Output   []string
	// Diagnosis is empty on success.
	Diagnosis string
	// Missing is set when the executable could not be found or started.
	Missing bool
}

// Success returns true if the command exited 0.
func (r CommandResult) Success() bool {
	return r.ExitCode == 0
}

// Err converts a failed result into a stage failure. Missing executables
// are dependency failures, anything else is reported by the tool itself.
func (r CommandResult) Err(stage string) *JobError {
	if r.Success() {
		return nil
	}
	kind := KindExtraction
	if r.Missing {
		kind = KindDependency
	}
	return JobErrorf(kind, "%s failed: %s", stage, r.Diagnosis)
}

// JobLog is the append-only record of a single job.
type JobLog interface {
	Printf(format string, args ...any)
	Path() string
	Close() error
}

// JobLogOpener creates the log for a new job.
type JobLogOpener interface {
	Open(name string) (JobLog, error)
}

// CommandRunner is the driven port for external process execution.
type CommandRunner interface {
	Run(ctx context.Context, log JobLog, path string, args []string) CommandResult
}

// Downloader fetches the full video into the temp directory and returns the
// selected artifact. Every file it finds is registered in job.Temp.
type Downloader interface {
	Download(ctx context.Context, job *Job) (string, error)
}

// Trimmer cuts the requested range of source into the output directory.
type Trimmer interface {
	Trim(ctx context.Context, job *Job, source string) (string, error)
}

// Promoter moves a full download into the output directory.
type Promoter interface {
	Promote(job *Job, source string) (string, error)
}
