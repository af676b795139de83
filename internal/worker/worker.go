package worker

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
)

// Janitor removes temp files left behind by jobs that never reached their
// cleanup, e.g. after a crash or kill.
type Janitor struct {
	tempDir  string
	maxAge   time.Duration
	interval time.Duration
	now      func() time.Time
}

// New creates a janitor for tempDir. Files younger than maxAge are left
// alone; maxAge must exceed the longest a live job can run.
func New(tempDir string, maxAge, interval time.Duration) *Janitor {
	return &Janitor{
		tempDir:  tempDir,
		maxAge:   maxAge,
		interval: interval,
		now:      time.Now,
	}
}

// Run sweeps once immediately, then on every interval until context is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	log.Printf("janitor started, sweeping %s every %s (max age %s)", j.tempDir, j.interval, j.maxAge)
	j.Sweep()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("janitor shutting down")
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}

// Sweep deletes stale regular files in the temp directory and returns how
// many were removed.
func (j *Janitor) Sweep() int {
	entries, err := os.ReadDir(j.tempDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("janitor: read %s: %v", j.tempDir, err)
		}
		return 0
	}

	cutoff := j.now().Add(-j.maxAge)
	var removed int
	var freed uint64
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(j.tempDir, entry.Name())
		if err := os.Remove(path); err != nil {
			log.Printf("janitor: remove %s: %v", path, err)
			continue
		}
		removed++
		freed += uint64(info.Size())
	}

	if removed > 0 {
		log.Printf("janitor: removed %d stale temp files (%s)", removed, humanize.Bytes(freed))
	}
	return removed
}
