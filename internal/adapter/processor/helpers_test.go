package processor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/cwygoda/ytclip/internal/domain"
)

const testJobID = "a1b2c3d4-e5f6-4789-9abc-def012345678"

// memLog implements domain.JobLog for testing.
type memLog struct {
	mu    sync.Mutex
	lines []string
}

func (l *memLog) Printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *memLog) Path() string { return "" }
func (l *memLog) Close() error { return nil }

func (l *memLog) contains(sub string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, sub) {
			return true
		}
	}
	return false
}

func newTestJob(req domain.JobRequest, videoID string) (*domain.Job, *memLog) {
	log := &memLog{}
	return &domain.Job{
		ID:       testJobID,
		Request:  req,
		Identity: domain.NewIdentity(videoID, req.CustomName),
		State:    domain.StateIdentityResolved,
		Log:      log,
		Temp:     domain.NewTempArtifacts(),
	}, log
}

// writeScript creates an executable shell script standing in for a tool.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func floatPtr(v float64) *float64 { return &v }
