package processor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cwygoda/ytclip/internal/domain"
)

// FilePromoter publishes full downloads into the output directory.
type FilePromoter struct {
	outputDir string
}

// NewFilePromoter creates a new FilePromoter.
func NewFilePromoter(outputDir string) *FilePromoter {
	return &FilePromoter{outputDir: outputDir}
}

// Promote moves source to <outputDir>/<baseName>.<original ext>. Ownership of
// the file leaves the job's temp set once it is no longer in the temp dir.
func (p *FilePromoter) Promote(job *domain.Job, source string) (string, error) {
	dst := filepath.Join(p.outputDir, job.Identity.BaseName+filepath.Ext(source))

	err := os.Rename(source, dst)
	if err == nil {
		job.Temp.Forget(source)
		job.Logf("Move successful: %s", dst)
		return dst, nil
	}

	// Cross-device fallback
	job.Logf("Rename failed (%v), attempting copy...", err)
	if err := copyFile(source, dst); err != nil {
		os.Remove(dst)
		return "", domain.NewJobError(domain.KindFilesystem,
			fmt.Sprintf("Failed to move full download to output directory. Copy error: %v", err), err)
	}
	job.Logf("Copy succeeded.")

	if err := os.Remove(source); err != nil {
		job.Logf("Warning: could not remove %s after copy: %v", source, err)
	} else {
		job.Temp.Forget(source)
	}
	return dst, nil
}

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

var _ domain.Promoter = (*FilePromoter)(nil)
