package domain

import (
	"errors"
	"io/fs"
	"os"
	"slices"
	"strings"
)

// TempArtifacts tracks files a job created in the temp directory. Every
// tracked path is deleted by Cleanup unless ownership moved elsewhere via
// Forget. Stages only add; the orchestrator alone cleans up.
type TempArtifacts struct {
	paths []string
}

// NewTempArtifacts returns an empty set.
func NewTempArtifacts() *TempArtifacts {
	return &TempArtifacts{}
}

// Add registers paths for cleanup. Duplicates and empty paths are ignored.
func (t *TempArtifacts) Add(paths ...string) {
	for _, p := range paths {
		if p == "" || slices.Contains(t.paths, p) {
			continue
		}
		t.paths = append(t.paths, p)
	}
}

// Forget drops a path whose ownership moved to the output location.
func (t *TempArtifacts) Forget(path string) bool {
	i := slices.Index(t.paths, path)
	if i < 0 {
		return false
	}
	t.paths = slices.Delete(t.paths, i, i+1)
	return true
}

// Paths returns the tracked paths in registration order.
func (t *TempArtifacts) Paths() []string {
	return slices.Clone(t.paths)
}

// Cleanup deletes every tracked path that still exists.
func (t *TempArtifacts) Cleanup(log JobLog) {
	if len(t.paths) == 0 {
		return
	}
	log.Printf("Cleaning up temp files: %s", strings.Join(t.paths, ", "))
	for _, p := range t.paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Printf("Warning: failed to remove temp file %s: %v", p, err)
		}
	}
	t.paths = nil
}
