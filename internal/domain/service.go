package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxLogContext = 2048

// Settings are the directory parameters of the orchestrator.
type Settings struct {
	OutputDir    string
	OutputFolder string
	TempDir      string
}

// JobService orchestrates download, trim and publish for a single request.
type JobService struct {
	downloader Downloader
	trimmer    Trimmer
	promoter   Promoter
	logs       JobLogOpener
	settings   Settings

	now   func() time.Time
	newID func() string
}

// NewJobService creates a new JobService.
func NewJobService(d Downloader, t Trimmer, p Promoter, logs JobLogOpener, settings Settings) *JobService {
	return &JobService{
		downloader: d,
		trimmer:    t,
		promoter:   p,
		logs:       logs,
		settings:   settings,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Run decodes a JSON request body and processes it.
func (s *JobService) Run(ctx context.Context, body []byte, baseURL string) JobResult {
	req, err := DecodeRequest(body)
	var details string
	if err != nil {
		details = truncate(string(body), maxLogContext)
	}
	return s.process(ctx, req, err, details, baseURL)
}

// Reject records a request whose body never reached decoding, so it still
// gets its job log.
func (s *JobService) Reject(err error) JobResult {
	return s.process(context.Background(), JobRequest{}, err, "", "")
}

// Execute processes an already decoded request.
func (s *JobService) Execute(ctx context.Context, req JobRequest, baseURL string) JobResult {
	return s.process(ctx, req, nil, "", baseURL)
}

func (s *JobService) process(ctx context.Context, req JobRequest, reqErr error, details, baseURL string) (res JobResult) {
	job := s.startJob(req)
	defer job.Log.Close()
	res.JobID = job.ID

	defer func() {
		if r := recover(); r != nil {
			res = s.fail(job, JobErrorf(KindInternal, "internal error: %v", r), "panic during job processing")
		}
	}()

	if reqErr != nil {
		return s.fail(job, reqErr, details)
	}
	if err := req.Validate(); err != nil {
		return s.fail(job, err, requestDetails(req))
	}
	id, ok := ExtractID(req.SourceURL)
	if !ok {
		return s.fail(job, validationError(ErrNoVideoID, "Could not extract YouTube Video ID from URL."), req.SourceURL)
	}

	job.Identity = NewIdentity(id, req.CustomName)
	job.advance(StateIdentityResolved)
	if req.CustomName != "" {
		job.Logf("Starting YouTube download job (Job ID: %s). Video ID: %s, Custom Name: %s", job.ID, id, req.CustomName)
	} else {
		job.Logf("Starting YouTube download job (Job ID: %s). Video ID: %s", job.ID, id)
	}

	if err := s.ensureDirs(); err != nil {
		return s.fail(job, err, "")
	}

	// Runs before the result is handed back, on every path.
	defer job.Temp.Cleanup(job.Log)

	final, err := s.pipeline(ctx, job)
	if err != nil {
		return s.fail(job, err, "YouTube processing failed.")
	}

	res.Filename = filepath.Base(final)
	res.PublicURL = s.publicURL(baseURL, res.Filename)
	job.advance(StatePublished)
	job.Logf("Processing successful. Final URL: %s", res.PublicURL)
	return res
}

func (s *JobService) pipeline(ctx context.Context, job *Job) (string, error) {
	job.Logf("Attempting full download for URL: %s", job.Request.SourceURL)
	artifact, err := s.downloader.Download(ctx, job)
	if err != nil {
		return "", err
	}
	job.advance(StateDownloaded)

	var final string
	if job.Request.HasRange() {
		job.Logf("Cutting segment from downloaded file...")
		final, err = s.trimmer.Trim(ctx, job, artifact)
		if err != nil {
			return "", err
		}
		job.advance(StateTrimmed)
	} else {
		job.Logf("No time segment requested. Moving full download to final destination.")
		final, err = s.promoter.Promote(job, artifact)
		if err != nil {
			return "", err
		}
		job.advance(StatePromoted)
	}

	if info, err := os.Stat(final); err != nil || info.IsDir() {
		return "", JobErrorf(KindIntegrity, "Processing finished, but final output file path is missing or invalid.")
	}
	return final, nil
}

func (s *JobService) startJob(req JobRequest) *Job {
	job := &Job{
		ID:        s.newID(),
		Request:   req,
		State:     StateInit,
		Temp:      NewTempArtifacts(),
		StartedAt: s.now(),
	}

	name := fmt.Sprintf("yt_%s_%d", logSubject(req), job.StartedAt.Unix())
	jl, err := s.logs.Open(name)
	if err != nil {
		log.Printf("job %s: job log unavailable: %v", job.ID, err)
		jl = &processLog{prefix: fmt.Sprintf("job %s: ", job.ID)}
	}
	job.Log = jl
	return job
}

// logSubject picks the most descriptive name available before validation.
func logSubject(req JobRequest) string {
	if req.CustomName != "" {
		return SanitizeName(req.CustomName)
	}
	if id, ok := ExtractID(req.SourceURL); ok {
		return id
	}
	return FallbackName
}

func (s *JobService) ensureDirs() error {
	dirs := []struct{ label, path string }{
		{"output", s.settings.OutputDir},
		{"temp", s.settings.TempDir},
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d.path, 0775); err != nil {
			return NewJobError(KindFilesystem, fmt.Sprintf("Failed to create %s directory: %s.", d.label, d.path), err)
		}
		probe, err := os.CreateTemp(d.path, ".write-probe-*")
		if err != nil {
			return NewJobError(KindFilesystem, fmt.Sprintf("%s directory not writable: %s", capitalize(d.label), d.path), err)
		}
		probe.Close()
		os.Remove(probe.Name())
	}
	return nil
}

func (s *JobService) fail(job *Job, err error, details string) JobResult {
	je := asJobError(err)
	job.State = StateFailed

	msg := fmt.Sprintf("Error (HTTP %d): %s", je.Kind.HTTPStatus(), je.Message)
	if details != "" {
		msg += "\nContext/Details:\n" + truncate(details, maxLogContext)
	}
	if je.Err != nil && je.Err.Error() != je.Message {
		msg += "\nCause: " + je.Err.Error()
	}
	job.Logf("%s", msg)

	return JobResult{JobID: job.ID, Err: je}
}

func (s *JobService) publicURL(baseURL, filename string) string {
	var parts []string
	for _, p := range []string{strings.TrimRight(baseURL, "/"), s.settings.OutputFolder, url.PathEscape(filename)} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "/")
}

func requestDetails(req JobRequest) string {
	data, err := json.Marshal(req)
	if err != nil {
		return ""
	}
	return string(data)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "... (truncated)"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// processLog is the fallback JobLog when the job's file cannot be opened.
type processLog struct {
	prefix string
}

func (l *processLog) Printf(format string, args ...any) {
	log.Printf(l.prefix+format, args...)
}

func (l *processLog) Path() string { return "" }

func (l *processLog) Close() error { return nil }
