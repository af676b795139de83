package processor

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/cwygoda/ytclip/internal/domain"
)

const (
	waitDelay      = 5 * time.Second
	exitTerminated = -1
)

// Runner executes external commands without a shell. stdout and stderr are
// captured into one buffer in emission order.
type Runner struct{}

// NewRunner creates a new Runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Run executes path with args and returns the classified result. A non-zero
// exit is a normal result, not an error.
func (r *Runner) Run(ctx context.Context, log domain.JobLog, path string, args []string) domain.CommandResult {
	log.Printf("Executing Command: %s", shellquote.Join(append([]string{path}, args...)...))

	cmd := exec.CommandContext(ctx, path, args...)
	// grandchildren may hold the pipe open after the process is killed
	cmd.WaitDelay = waitDelay
	var out bytes.Buffer
	// same writer for both: exec serializes writes, preserving order
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	res := domain.CommandResult{Output: splitLines(out.String())}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		if ctx.Err() != nil {
			res.Output = append(res.Output, "error: command terminated: "+ctx.Err().Error())
		}
	case ctx.Err() != nil:
		res.ExitCode = exitTerminated
		res.Output = append(res.Output, "error: command not started: "+ctx.Err().Error())
	default:
		// never started: missing binary, permissions, bad path
		res.ExitCode = ExitNotFound
		res.Output = append(res.Output, err.Error())
	}

	res.Missing = MissingExecutable(path, res.ExitCode, res.Output)
	res.Diagnosis = Classify(path, res.ExitCode, res.Output)

	if res.Success() {
		log.Printf("Result: exit code 0")
	} else {
		log.Printf("Result: Command Execution Failed (Return Code: %d). Full Output:\n%s", res.ExitCode, strings.Join(res.Output, "\n"))
	}
	return res
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\r\n")
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

var _ domain.CommandRunner = (*Runner)(nil)
