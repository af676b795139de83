package processor

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/cwygoda/ytclip/internal/domain"
)

// in-progress files yt-dlp leaves next to the artifact
var partialPattern = regexp.MustCompile(`(?i)\.(part|ytdl|part-frag\d+)$`)

// DownloadOptions configures the yt-dlp invocation.
type DownloadOptions struct {
	YtDlpPath     string
	FFmpegPath    string
	TempDir       string
	Format        string
	MergeFormat   string
	CookiesPath   string
	UserAgent     string
	ExtractorArgs string
}

// YouTubeDownloader fetches full videos with yt-dlp into the temp directory.
type YouTubeDownloader struct {
	runner domain.CommandRunner
	opts   DownloadOptions
}

// NewYouTubeDownloader creates a new YouTube downloader.
func NewYouTubeDownloader(runner domain.CommandRunner, opts DownloadOptions) *YouTubeDownloader {
	if opts.MergeFormat == "" {
		opts.MergeFormat = "mp4"
	}
	return &YouTubeDownloader{runner: runner, opts: opts}
}

// artifactPrefix is the basename every file of this job's download starts with.
func (d *YouTubeDownloader) artifactPrefix(job *domain.Job) string {
	return job.Identity.ID + "_" + job.Token()
}

// Args builds the yt-dlp argument list for a job.
func (d *YouTubeDownloader) Args(job *domain.Job) []string {
	template := filepath.Join(d.opts.TempDir, d.artifactPrefix(job)+".%(ext)s")

	args := []string{
		"-o", template,
		"-f", d.opts.Format,
		"--merge-output-format", d.opts.MergeFormat,
	}
	if d.opts.FFmpegPath != "" {
		args = append(args, "--ffmpeg-location", d.opts.FFmpegPath)
	}

	switch {
	case d.opts.CookiesPath == "":
		job.Logf("No cookies file configured. May encounter bot detection.")
	case d.cookiesReadable():
		args = append(args, "--cookies", d.opts.CookiesPath)
		job.Logf("Using cookies file: %s", d.opts.CookiesPath)
	default:
		job.Logf("Warning: Cookies file not found at %s. May encounter bot detection.", d.opts.CookiesPath)
	}

	// Temp files age from download time, not the server's Last-Modified.
	args = append(args, "--no-playlist", "--no-overwrites", "--no-mtime", "--no-progress")
	if d.opts.UserAgent != "" {
		args = append(args, "--user-agent", d.opts.UserAgent)
	}
	if d.opts.ExtractorArgs != "" {
		args = append(args, "--extractor-args", d.opts.ExtractorArgs)
	}
	return append(args, "-v", job.Request.SourceURL)
}

func (d *YouTubeDownloader) cookiesReadable() bool {
	f, err := os.Open(d.opts.CookiesPath)
	if err != nil {
		return false
	}
	defer f.Close()
	info, err := f.Stat()
	return err == nil && !info.IsDir()
}

// Download runs yt-dlp and returns the path of the downloaded artifact.
func (d *YouTubeDownloader) Download(ctx context.Context, job *domain.Job) (string, error) {
	res := d.runner.Run(ctx, job.Log, d.opts.YtDlpPath, d.Args(job))

	// Register before checking the result so failed runs stay cleanable.
	found, listErr := d.listArtifacts(job)
	job.Temp.Add(found...)

	if !res.Success() {
		return "", res.Err("yt-dlp download")
	}
	if listErr != nil {
		return "", domain.NewJobError(domain.KindFilesystem, "Failed to read temp directory: "+listErr.Error(), listErr)
	}

	var candidates []string
	for _, path := range found {
		if !partialPattern.MatchString(path) {
			candidates = append(candidates, path)
		}
	}

	var selected string
	switch len(candidates) {
	case 0:
		job.Logf("yt-dlp reported success, but no suitable file found matching pattern: %s",
			filepath.Join(d.opts.TempDir, d.artifactPrefix(job)+".*"))
		return "", domain.JobErrorf(domain.KindIntegrity, "Download completed, but couldn't locate the final video file in temp directory.")
	case 1:
		selected = candidates[0]
		if !d.hasMergeExt(selected) {
			job.Logf("Warning: Downloaded file extension is not %s: %s. yt-dlp might not have merged correctly.",
				d.opts.MergeFormat, filepath.Base(selected))
		}
	default:
		job.Logf("Warning: Multiple files found after download: %s. Using the first %s or first overall.",
			strings.Join(candidates, ", "), d.opts.MergeFormat)
		selected = candidates[0]
		for _, c := range candidates {
			if d.hasMergeExt(c) {
				selected = c
				break
			}
		}
		job.Logf("Selected file for processing: %s", selected)
	}

	if info, err := os.Stat(selected); err == nil {
		job.Logf("Full download successful: %s (%s)", selected, humanize.Bytes(uint64(info.Size())))
	}
	return selected, nil
}

// listArtifacts returns every regular file in the temp directory belonging
// to this job's download, in name order.
func (d *YouTubeDownloader) listArtifacts(job *domain.Job) ([]string, error) {
	entries, err := os.ReadDir(d.opts.TempDir)
	if err != nil {
		return nil, err
	}

	prefix := d.artifactPrefix(job) + "."
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		files = append(files, filepath.Join(d.opts.TempDir, entry.Name()))
	}
	return files, nil
}

func (d *YouTubeDownloader) hasMergeExt(path string) bool {
	return strings.EqualFold(strings.TrimPrefix(filepath.Ext(path), "."), d.opts.MergeFormat)
}

var _ domain.Downloader = (*YouTubeDownloader)(nil)
