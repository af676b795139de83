// Package joblog writes one timestamped log file per job.
package joblog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cwygoda/ytclip/internal/domain"
)

const (
	timeLayout  = "2006-01-02 15:04:05"
	maxAttempts = 100
)

// Opener creates job logs in a directory.
type Opener struct {
	dir string
	now func() time.Time
}

// NewOpener creates an Opener writing into dir.
func NewOpener(dir string) *Opener {
	return &Opener{dir: dir, now: time.Now}
}

// Open creates <dir>/<name>.log. Existing files are never appended to; a
// numeric suffix is added until the name is free.
func (o *Opener) Open(name string) (domain.JobLog, error) {
	if err := os.MkdirAll(o.dir, 0775); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	for i := 0; i < maxAttempts; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d", name, i)
		}
		path := filepath.Join(o.dir, candidate+".log")

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("open job log: %w", err)
		}
		return &File{f: f, path: path, now: o.now}, nil
	}
	return nil, fmt.Errorf("open job log: no free name for %s", name)
}

// File is a job log backed by a file.
type File struct {
	mu     sync.Mutex
	f      *os.File
	path   string
	now    func() time.Time
	closed bool
}

// Printf writes one line prefixed with the local time. Write errors are
// dropped; the log never fails a job.
func (l *File) Printf(format string, args ...any) {
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	line := "[" + l.now().Format(timeLayout) + "] " + msg + "\n"

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.f.WriteString(line)
}

// Path returns the log file location.
func (l *File) Path() string {
	return l.path
}

// Close closes the underlying file. It is safe to call more than once.
func (l *File) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.f.Close()
}

var _ domain.JobLogOpener = (*Opener)(nil)
