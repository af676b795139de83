package processor

import (
	"context"
	"os"
	"regexp"
	"strings"

	"github.com/cwygoda/ytclip/internal/domain"
)

const (
	YtDlpInstallURL  = "https://github.com/yt-dlp/yt-dlp#installation"
	FFmpegInstallURL = "https://ffmpeg.org/download.html"
)

var ytdlpVersion = regexp.MustCompile(`^\d{4}\.\d{2}\.\d{2}`)

// ToolStatus is the result of probing one external tool.
type ToolStatus struct {
	Name       string
	Path       string
	OK         bool
	Missing    bool
	Version    string
	Detail     string
	InstallURL string
}

// DirStatus reports whether a working directory is usable.
type DirStatus struct {
	Label    string
	Path     string
	Writable bool
}

// Report collects every prerequisite check.
type Report struct {
	Tools []ToolStatus
	Dirs  []DirStatus
}

// OK returns true if every tool works and every directory is writable.
func (r Report) OK() bool {
	for _, t := range r.Tools {
		if !t.OK {
			return false
		}
	}
	for _, d := range r.Dirs {
		if !d.Writable {
			return false
		}
	}
	return true
}

// Doctor checks the prerequisites of the download pipeline.
type Doctor struct {
	runner     domain.CommandRunner
	ytdlpPath  string
	ffmpegPath string
	outputDir  string
	tempDir    string
}

// NewDoctor creates a new Doctor.
func NewDoctor(runner domain.CommandRunner, ytdlpPath, ffmpegPath, outputDir, tempDir string) *Doctor {
	return &Doctor{
		runner:     runner,
		ytdlpPath:  ytdlpPath,
		ffmpegPath: ffmpegPath,
		outputDir:  outputDir,
		tempDir:    tempDir,
	}
}

// Check probes both tools and both directories.
func (d *Doctor) Check(ctx context.Context) Report {
	return Report{
		Tools: []ToolStatus{
			d.probe(ctx, "yt-dlp", d.ytdlpPath, "--version", YtDlpInstallURL, func(out string) bool {
				return ytdlpVersion.MatchString(out)
			}),
			d.probe(ctx, "ffmpeg", d.ffmpegPath, "-version", FFmpegInstallURL, func(out string) bool {
				return strings.Contains(strings.ToLower(out), "ffmpeg version")
			}),
		},
		Dirs: []DirStatus{
			CheckDir("output", d.outputDir),
			CheckDir("temp", d.tempDir),
		},
	}
}

func (d *Doctor) probe(ctx context.Context, name, path, flag, installURL string, valid func(string) bool) ToolStatus {
	st := ToolStatus{Name: name, Path: path, InstallURL: installURL}
	res := d.runner.Run(ctx, nopLog{}, path, []string{flag})

	var first string
	if len(res.Output) > 0 {
		first = strings.TrimSpace(res.Output[0])
	}

	switch {
	case res.Success() && valid(first):
		st.OK = true
		st.Version = first
	case res.Missing:
		st.Missing = true
		st.Detail = res.Diagnosis
	case res.Success():
		st.Detail = "unexpected version output: " + first
	default:
		st.Detail = res.Diagnosis
	}
	return st
}

// CheckDir creates path if needed and verifies a file can be written into it.
func CheckDir(label, path string) DirStatus {
	st := DirStatus{Label: label, Path: path}
	if err := os.MkdirAll(path, 0775); err != nil {
		return st
	}
	f, err := os.CreateTemp(path, ".write-probe-*")
	if err != nil {
		return st
	}
	f.Close()
	os.Remove(f.Name())
	st.Writable = true
	return st
}

type nopLog struct{}

func (nopLog) Printf(string, ...any) {}
func (nopLog) Path() string          { return "" }
func (nopLog) Close() error          { return nil }
