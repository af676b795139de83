package processor

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/cwygoda/ytclip/internal/domain"
)

// MinSegmentSize is the smallest cut output accepted as a real video.
const MinSegmentSize = 1024

const streamCopyNote = " (Note: Cutting with '-c copy' requires cuts near keyframes. Re-encoding might be needed for precise cuts, but is much slower and not implemented here.)"

// FFmpegTrimmer cuts segments out of full downloads with stream copy.
type FFmpegTrimmer struct {
	ffmpegPath string
	outputDir  string
	runner     domain.CommandRunner
	minSize    int64
}

// TrimmerOption is a functional option for configuring FFmpegTrimmer.
type TrimmerOption func(*FFmpegTrimmer)

// WithFFmpegPath sets a custom ffmpeg executable path.
func WithFFmpegPath(path string) TrimmerOption {
	return func(t *FFmpegTrimmer) {
		t.ffmpegPath = path
	}
}

// WithCommandRunner sets a custom command runner.
func WithCommandRunner(runner domain.CommandRunner) TrimmerOption {
	return func(t *FFmpegTrimmer) {
		t.runner = runner
	}
}

// NewFFmpegTrimmer creates a trimmer writing into outputDir.
func NewFFmpegTrimmer(outputDir string, opts ...TrimmerOption) *FFmpegTrimmer {
	t := &FFmpegTrimmer{
		ffmpegPath: "ffmpeg",
		outputDir:  outputDir,
		runner:     NewRunner(),
		minSize:    MinSegmentSize,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SegmentFilename names a cut: <base>_segment_<start|"start">_<end|"end">.mp4,
// with the decimal point written as "p".
func SegmentFilename(base string, start, end *float64) string {
	startPart, endPart := "start", "end"
	if start != nil {
		startPart = formatBound(*start)
	}
	if end != nil {
		endPart = formatBound(*end)
	}
	return base + "_segment_" + startPart + "_" + endPart + ".mp4"
}

func formatBound(v float64) string {
	return strings.ReplaceAll(strconv.FormatFloat(v, 'f', 1, 64), ".", "p")
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// Args builds the ffmpeg argument list. Seeking happens before -i, which is
// fast and keyframe-accurate under stream copy.
func (t *FFmpegTrimmer) Args(source, output string, start, end *float64) []string {
	args := []string{"-y"}
	if start != nil {
		args = append(args, "-ss", seconds(*start))
	}
	args = append(args, "-i", source)
	if end != nil {
		if start != nil {
			args = append(args, "-t", seconds(*end-*start))
		} else {
			args = append(args, "-to", seconds(*end))
		}
	}
	return append(args, "-map", "0", "-c", "copy", "-movflags", "+faststart", output)
}

// Trim cuts the job's requested range out of source.
func (t *FFmpegTrimmer) Trim(ctx context.Context, job *domain.Job, source string) (string, error) {
	start, end := job.Request.StartTime, job.Request.EndTime
	if start != nil && end != nil && *end-*start <= 0 {
		return "", domain.JobErrorf(domain.KindValidation, "Calculated duration for cut is not positive.")
	}

	output := filepath.Join(t.outputDir, SegmentFilename(job.Identity.BaseName, start, end))
	res := t.runner.Run(ctx, job.Log, t.ffmpegPath, t.Args(source, output, start, end))

	info, statErr := os.Stat(output)
	if res.Success() && statErr == nil && info.Size() >= t.minSize {
		job.Logf("Segment cut successfully: %s (%s)", output, humanize.Bytes(uint64(info.Size())))
		return output, nil
	}

	if statErr == nil {
		if err := os.Remove(output); err != nil {
			job.Logf("Warning: failed to remove partial output %s: %v", output, err)
		} else {
			job.Logf("Removed partial output %s (%s)", output, humanize.Bytes(uint64(info.Size())))
		}
	}

	if !res.Success() {
		je := res.Err("ffmpeg cut")
		if strings.Contains(strings.ToLower(res.Diagnosis), "copy") {
			je.Message += streamCopyNote
		}
		return "", je
	}
	return "", domain.JobErrorf(domain.KindIntegrity, "Failed to cut video segment (output file small/missing).")
}

var _ domain.Trimmer = (*FFmpegTrimmer)(nil)
