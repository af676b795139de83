package domain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testJobID = "a1b2c3d4-e5f6-4789-9abc-def012345678"

// fakeDownloader writes one temp file per suffix, like yt-dlp would.
type fakeDownloader struct {
	tempDir  string
	suffixes []string
	err      error
	panicMsg string
	calls    int
}

func (f *fakeDownloader) Download(ctx context.Context, job *Job) (string, error) {
	f.calls++
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	var paths []string
	for _, s := range f.suffixes {
		p := filepath.Join(f.tempDir, job.Identity.ID+"_"+job.Token()+s)
		if err := os.WriteFile(p, []byte("video-data"), 0644); err != nil {
			return "", err
		}
		paths = append(paths, p)
	}
	job.Temp.Add(paths...)
	if f.err != nil {
		return "", f.err
	}
	return paths[0], nil
}

type fakeTrimmer struct {
	outputDir string
	err       error
	skipWrite bool
	calls     int
	source    string
}

func (f *fakeTrimmer) Trim(ctx context.Context, job *Job, source string) (string, error) {
	f.calls++
	f.source = source
	if f.err != nil {
		return "", f.err
	}
	out := filepath.Join(f.outputDir, job.Identity.BaseName+"_segment.mp4")
	if !f.skipWrite {
		if err := os.WriteFile(out, []byte("segment"), 0644); err != nil {
			return "", err
		}
	}
	return out, nil
}

type fakePromoter struct {
	outputDir string
	err       error
	calls     int
}

func (f *fakePromoter) Promote(job *Job, source string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	dst := filepath.Join(f.outputDir, job.Identity.BaseName+filepath.Ext(source))
	if err := os.Rename(source, dst); err != nil {
		return "", err
	}
	job.Temp.Forget(source)
	return dst, nil
}

type fakeOpener struct {
	names []string
	logs  []*memLog
	err   error
}

func (f *fakeOpener) Open(name string) (JobLog, error) {
	f.names = append(f.names, name)
	if f.err != nil {
		return nil, f.err
	}
	l := &memLog{}
	f.logs = append(f.logs, l)
	return l, nil
}

func (f *fakeOpener) last() *memLog {
	if len(f.logs) == 0 {
		return &memLog{}
	}
	return f.logs[len(f.logs)-1]
}

type testEnv struct {
	svc        *JobService
	downloader *fakeDownloader
	trimmer    *fakeTrimmer
	promoter   *fakePromoter
	opener     *fakeOpener
	outputDir  string
	tempDir    string
}

func setupService(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	env := &testEnv{
		outputDir: filepath.Join(root, "youtube_downloads"),
		tempDir:   filepath.Join(root, "temp_yt_downloads"),
		opener:    &fakeOpener{},
	}
	// stages write into the dirs the service creates
	env.downloader = &fakeDownloader{tempDir: env.tempDir, suffixes: []string{".mp4"}}
	env.trimmer = &fakeTrimmer{outputDir: env.outputDir}
	env.promoter = &fakePromoter{outputDir: env.outputDir}

	env.svc = NewJobService(env.downloader, env.trimmer, env.promoter, env.opener, Settings{
		OutputDir:    env.outputDir,
		OutputFolder: "youtube_downloads",
		TempDir:      env.tempDir,
	})
	env.svc.now = func() time.Time { return time.Unix(1700000000, 0) }
	env.svc.newID = func() string { return testJobID }
	return env
}

func filesIn(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("read %s: %v", dir, err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestJobService_Run_TrimmedSegment(t *testing.T) {
	env := setupService(t)

	body := `{"url":"https://www.youtube.com/watch?v=dQw4w9WgXcQ","name":"Intro Clip","start_time":30,"end_time":45}`
	res := env.svc.Run(context.Background(), []byte(body), "https://dl.example.com/")

	if res.Err != nil {
		t.Fatalf("Run() error = %v", res.Err)
	}
	if res.JobID != testJobID {
		t.Errorf("JobID = %q", res.JobID)
	}
	if res.Filename != "Intro_Clip_segment.mp4" {
		t.Errorf("Filename = %q", res.Filename)
	}
	if res.PublicURL != "https://dl.example.com/youtube_downloads/Intro_Clip_segment.mp4" {
		t.Errorf("PublicURL = %q", res.PublicURL)
	}
	if env.trimmer.calls != 1 || env.promoter.calls != 0 {
		t.Errorf("trimmer calls = %d, promoter calls = %d", env.trimmer.calls, env.promoter.calls)
	}
	if !strings.HasPrefix(filepath.Base(env.trimmer.source), "dQw4w9WgXcQ_a1b2c3d4") {
		t.Errorf("trimmer source = %q", env.trimmer.source)
	}
	if got := filesIn(t, env.tempDir); len(got) != 0 {
		t.Errorf("temp dir not cleaned: %v", got)
	}
	if got := filesIn(t, env.outputDir); len(got) != 1 || got[0] != "Intro_Clip_segment.mp4" {
		t.Errorf("output dir = %v", got)
	}

	if len(env.opener.names) != 1 || env.opener.names[0] != "yt_Intro_Clip_1700000000" {
		t.Errorf("log names = %v", env.opener.names)
	}
	log := env.opener.last()
	if !log.closed {
		t.Error("job log not closed")
	}
	for _, want := range []string{
		"Job ID: " + testJobID,
		"State: downloaded -> trimmed",
		"State: trimmed -> published",
		"Final URL: https://dl.example.com/youtube_downloads/Intro_Clip_segment.mp4",
	} {
		if !log.contains(want) {
			t.Errorf("log missing %q: %v", want, log.lines)
		}
	}
}

func TestJobService_Run_FullDownload(t *testing.T) {
	env := setupService(t)

	res := env.svc.Run(context.Background(), []byte(`{"url":"https://youtu.be/dQw4w9WgXcQ"}`), "http://localhost:8080")

	if res.Err != nil {
		t.Fatalf("Run() error = %v", res.Err)
	}
	if res.Filename != "dQw4w9WgXcQ.mp4" {
		t.Errorf("Filename = %q", res.Filename)
	}
	if res.PublicURL != "http://localhost:8080/youtube_downloads/dQw4w9WgXcQ.mp4" {
		t.Errorf("PublicURL = %q", res.PublicURL)
	}
	if env.trimmer.calls != 0 || env.promoter.calls != 1 {
		t.Errorf("trimmer calls = %d, promoter calls = %d", env.trimmer.calls, env.promoter.calls)
	}
	if _, err := os.Stat(filepath.Join(env.outputDir, "dQw4w9WgXcQ.mp4")); err != nil {
		t.Errorf("promoted file missing: %v", err)
	}
	if got := filesIn(t, env.tempDir); len(got) != 0 {
		t.Errorf("temp dir not cleaned: %v", got)
	}
	if env.opener.names[0] != "yt_dQw4w9WgXcQ_1700000000" {
		t.Errorf("log name = %q", env.opener.names[0])
	}
	if !env.opener.last().contains("State: promoted -> published") {
		t.Errorf("publish transition not logged: %v", env.opener.last().lines)
	}
}

func TestJobService_Run_StageFailuresCleanUp(t *testing.T) {
	downloadErr := JobErrorf(KindExtraction, "yt-dlp download failed: Command failed: ERROR: Video unavailable")
	missingErr := JobErrorf(KindDependency, "yt-dlp download failed: Executable not found or inaccessible.")
	trimErr := JobErrorf(KindIntegrity, "Failed to cut video segment (output file small/missing).")
	promoteErr := JobErrorf(KindFilesystem, "Failed to move full download to output directory. Copy error: boom")

	tests := []struct {
		name         string
		body         string
		suffixes     []string
		downloadErr  error
		trimErr      error
		promoteErr   error
		wantErr      *JobError
		wantTrimmer  int
		wantPromoter int
	}{
		{
			name:        "download fails leaving partials",
			body:        `{"url":"https://youtu.be/dQw4w9WgXcQ","start_time":1,"end_time":2}`,
			suffixes:    []string{".mp4.part", ".f137.mp4"},
			downloadErr: downloadErr,
			wantErr:     downloadErr,
		},
		{
			name:        "downloader missing",
			body:        `{"url":"https://youtu.be/dQw4w9WgXcQ"}`,
			suffixes:    nil,
			downloadErr: missingErr,
			wantErr:     missingErr,
		},
		{
			name:        "trim fails",
			body:        `{"url":"https://youtu.be/dQw4w9WgXcQ","start_time":1,"end_time":2}`,
			suffixes:    []string{".mp4", ".webm"},
			trimErr:     trimErr,
			wantErr:     trimErr,
			wantTrimmer: 1,
		},
		{
			name:         "promote fails",
			body:         `{"url":"https://youtu.be/dQw4w9WgXcQ"}`,
			suffixes:     []string{".mp4"},
			promoteErr:   promoteErr,
			wantErr:      promoteErr,
			wantPromoter: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupService(t)
			env.downloader.suffixes = tt.suffixes
			env.downloader.err = tt.downloadErr
			env.trimmer.err = tt.trimErr
			env.promoter.err = tt.promoteErr

			res := env.svc.Run(context.Background(), []byte(tt.body), "")

			if res.Err != tt.wantErr {
				t.Fatalf("Err = %v, want %v", res.Err, tt.wantErr)
			}
			if res.HTTPStatus() != 500 {
				t.Errorf("status = %d, want 500", res.HTTPStatus())
			}
			if res.PublicURL != "" || res.Filename != "" {
				t.Errorf("failed job returned location %q / %q", res.PublicURL, res.Filename)
			}
			if env.trimmer.calls != tt.wantTrimmer || env.promoter.calls != tt.wantPromoter {
				t.Errorf("trimmer calls = %d, promoter calls = %d", env.trimmer.calls, env.promoter.calls)
			}
			if got := filesIn(t, env.tempDir); len(got) != 0 {
				t.Errorf("temp dir not cleaned: %v", got)
			}
			if got := filesIn(t, env.outputDir); len(got) != 0 {
				t.Errorf("output dir not empty: %v", got)
			}

			log := env.opener.last()
			if !log.contains("Error (HTTP 500): " + tt.wantErr.Message) {
				t.Errorf("error not logged: %v", log.lines)
			}
			if !log.closed {
				t.Error("job log not closed")
			}
		})
	}
}

func TestJobService_Run_ValidationFailures(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantMsg     string
		wantLogName string
	}{
		{
			name:        "invalid json",
			body:        `{"url":`,
			wantMsg:     "Invalid JSON received:",
			wantLogName: "yt_download_1700000000",
		},
		{
			name:        "missing url",
			body:        `{"name":"My Clip"}`,
			wantMsg:     "A valid 'url' is required.",
			wantLogName: "yt_My_Clip_1700000000",
		},
		{
			name:        "not youtube",
			body:        `{"url":"https://vimeo.com/123456"}`,
			wantMsg:     "Could not extract YouTube Video ID from URL.",
			wantLogName: "yt_download_1700000000",
		},
		{
			name:        "inverted range",
			body:        `{"url":"https://youtu.be/dQw4w9WgXcQ","start_time":10,"end_time":5}`,
			wantMsg:     "'start_time' must be less than 'end_time'.",
			wantLogName: "yt_dQw4w9WgXcQ_1700000000",
		},
		{
			name:        "non-numeric start",
			body:        `{"url":"https://youtu.be/dQw4w9WgXcQ","start_time":"soon"}`,
			wantMsg:     "'start_time' must be numeric or null.",
			wantLogName: "yt_dQw4w9WgXcQ_1700000000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupService(t)

			res := env.svc.Run(context.Background(), []byte(tt.body), "")

			if res.Err == nil {
				t.Fatal("Run() expected error")
			}
			if res.Err.Kind != KindValidation || res.HTTPStatus() != 400 {
				t.Errorf("kind = %s, status = %d", res.Err.Kind, res.HTTPStatus())
			}
			if !strings.HasPrefix(res.Err.Message, tt.wantMsg) {
				t.Errorf("message = %q, want prefix %q", res.Err.Message, tt.wantMsg)
			}
			if env.downloader.calls != 0 {
				t.Error("downloader invoked for invalid request")
			}
			if len(env.opener.names) != 1 || env.opener.names[0] != tt.wantLogName {
				t.Errorf("log names = %v, want %s", env.opener.names, tt.wantLogName)
			}
			if !env.opener.last().contains("Error (HTTP 400)") {
				t.Errorf("validation error not logged: %v", env.opener.last().lines)
			}
			if _, err := os.Stat(env.tempDir); !os.IsNotExist(err) {
				t.Error("directories touched before validation passed")
			}
		})
	}
}

func TestJobService_Reject(t *testing.T) {
	tests := []struct {
		name       string
		err        *JobError
		wantStatus int
	}{
		{"too large", NewJobError(KindTooLarge, "Request body too large.", ErrBodyTooLarge), 413},
		{"unreadable", NewJobError(KindValidation, "Failed to read request body.", ErrBodyRead), 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupService(t)

			res := env.svc.Reject(tt.err)

			if res.JobID != testJobID {
				t.Errorf("JobID = %q, want %q", res.JobID, testJobID)
			}
			if res.Err == nil || res.Err.Message != tt.err.Message {
				t.Fatalf("Err = %v, want %q", res.Err, tt.err.Message)
			}
			if res.HTTPStatus() != tt.wantStatus {
				t.Errorf("status = %d, want %d", res.HTTPStatus(), tt.wantStatus)
			}
			if len(env.opener.names) != 1 || env.opener.names[0] != "yt_download_1700000000" {
				t.Errorf("log names = %v", env.opener.names)
			}
			want := fmt.Sprintf("Error (HTTP %d): %s", tt.wantStatus, tt.err.Message)
			if !env.opener.last().contains(want) {
				t.Errorf("rejection not logged: %v", env.opener.last().lines)
			}
			if env.downloader.calls != 0 {
				t.Error("downloader invoked for rejected request")
			}
		})
	}
}

func TestJobService_Run_TruncatesLoggedBody(t *testing.T) {
	env := setupService(t)

	body := `{"url":"` + strings.Repeat("x", 5000)
	env.svc.Run(context.Background(), []byte(body), "")

	log := env.opener.last()
	var errLine string
	for _, l := range log.lines {
		if strings.HasPrefix(l, "Error (HTTP 400)") {
			errLine = l
		}
	}
	if !strings.Contains(errLine, "Context/Details:\n") || !strings.Contains(errLine, "... (truncated)") {
		t.Errorf("error line not truncated: %.200q", errLine)
	}
	if len(errLine) > 2048+500 {
		t.Errorf("error line length = %d", len(errLine))
	}
}

func TestJobService_Run_MissingFinalFile(t *testing.T) {
	env := setupService(t)
	env.trimmer.skipWrite = true

	res := env.svc.Run(context.Background(), []byte(`{"url":"https://youtu.be/dQw4w9WgXcQ","end_time":5}`), "")

	if res.Err == nil || res.Err.Kind != KindIntegrity {
		t.Fatalf("Err = %v, want integrity error", res.Err)
	}
	if res.Err.Message != "Processing finished, but final output file path is missing or invalid." {
		t.Errorf("message = %q", res.Err.Message)
	}
	if got := filesIn(t, env.tempDir); len(got) != 0 {
		t.Errorf("temp dir not cleaned: %v", got)
	}
}

func TestJobService_Run_RecoversPanic(t *testing.T) {
	env := setupService(t)
	env.downloader.panicMsg = "nil map write"

	res := env.svc.Run(context.Background(), []byte(`{"url":"https://youtu.be/dQw4w9WgXcQ"}`), "")

	if res.Err == nil || res.Err.Kind != KindInternal {
		t.Fatalf("Err = %v, want internal error", res.Err)
	}
	if !strings.Contains(res.Err.Message, "nil map write") {
		t.Errorf("message = %q", res.Err.Message)
	}
	if res.JobID != testJobID {
		t.Errorf("JobID = %q", res.JobID)
	}
	if !env.opener.last().closed {
		t.Error("job log not closed after panic")
	}
}

func TestJobService_Run_LogUnavailable(t *testing.T) {
	env := setupService(t)
	env.opener.err = errors.New("read-only file system")

	res := env.svc.Run(context.Background(), []byte(`{"url":"https://youtu.be/dQw4w9WgXcQ"}`), "")

	if res.Err != nil {
		t.Fatalf("Run() error = %v, job must not fail on log errors", res.Err)
	}
}

func TestJobService_Run_OutputDirUnusable(t *testing.T) {
	env := setupService(t)
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	env.svc.settings.OutputDir = filepath.Join(blocker, "out")

	res := env.svc.Run(context.Background(), []byte(`{"url":"https://youtu.be/dQw4w9WgXcQ"}`), "")

	if res.Err == nil || res.Err.Kind != KindFilesystem {
		t.Fatalf("Err = %v, want filesystem error", res.Err)
	}
	if !strings.HasPrefix(res.Err.Message, "Failed to create output directory") {
		t.Errorf("message = %q", res.Err.Message)
	}
	if env.downloader.calls != 0 {
		t.Error("downloader invoked without usable directories")
	}
}

func TestJobService_Execute(t *testing.T) {
	env := setupService(t)
	start, end := 5.0, 10.0

	res := env.svc.Execute(context.Background(), JobRequest{
		SourceURL:  "https://youtube.com/shorts/abcdefghijk",
		CustomName: "short",
		StartTime:  &start,
		EndTime:    &end,
	}, "")

	if res.Err != nil {
		t.Fatalf("Execute() error = %v", res.Err)
	}
	if res.PublicURL != "youtube_downloads/short_segment.mp4" {
		t.Errorf("PublicURL = %q", res.PublicURL)
	}
}

func TestJobService_PublicURL(t *testing.T) {
	tests := []struct {
		base     string
		folder   string
		filename string
		want     string
	}{
		{"http://host", "youtube_downloads", "a.mp4", "http://host/youtube_downloads/a.mp4"},
		{"http://host/", "youtube_downloads", "a.mp4", "http://host/youtube_downloads/a.mp4"},
		{"http://host/media//", "dl", "a.mp4", "http://host/media/dl/a.mp4"},
		{"", "youtube_downloads", "a.mp4", "youtube_downloads/a.mp4"},
		{"http://host", "", "a.mp4", "http://host/a.mp4"},
		{"http://host", "dl", "a b#1.mp4", "http://host/dl/a%20b%231.mp4"},
	}

	for _, tt := range tests {
		s := &JobService{settings: Settings{OutputFolder: tt.folder}}
		if got := s.publicURL(tt.base, tt.filename); got != tt.want {
			t.Errorf("publicURL(%q, %q) = %q, want %q", tt.base, tt.filename, got, tt.want)
		}
	}
}
