package processor

import (
	"fmt"
	"regexp"
	"strings"
)

// ExitNotFound is the shell's "command not found" status.
const ExitNotFound = 127

const (
	tracebackContextLines = 10
	previewLength         = 500
)

// Lines a tool prints when it gives up. Matched from the last line backwards
// since the fatal line usually follows its context.
var failureLine = regexp.MustCompile(`(?i)^(error|fatal|traceback|unsupported url|unable to extract|private video|video unavailable|copyright|download aborted|invalid time|permission denied|no such file|conversion failed|muxing failed)`)

// MissingExecutable reports whether a failed run means the executable itself
// could not be found or started.
func MissingExecutable(path string, exitCode int, output []string) bool {
	if exitCode == 0 {
		return false
	}
	if exitCode == ExitNotFound {
		return true
	}
	if path == "" {
		return false
	}
	lowerPath := strings.ToLower(path)
	for _, line := range output {
		l := strings.ToLower(line)
		if (strings.Contains(l, "no such file or directory") || strings.Contains(l, "not found")) &&
			strings.Contains(l, lowerPath) {
			return true
		}
	}
	return false
}

// Classify turns captured output into a human-readable diagnosis. It returns
// "" for a zero exit code. First match wins: missing executable, interpreter
// traceback, last known failure line, then a generic preview.
func Classify(path string, exitCode int, output []string) string {
	if exitCode == 0 {
		return ""
	}

	if MissingExecutable(path, exitCode, output) {
		return fmt.Sprintf("Executable not found or inaccessible. Path used: '%s'. Verify path and OS permissions.", path)
	}

	for _, line := range output {
		if strings.Contains(strings.ToLower(line), "traceback") {
			from := max(len(output)-tracebackContextLines, 0)
			return "Command failed: " + strings.Join(output[from:], " | ")
		}
	}

	for i := len(output) - 1; i >= 0; i-- {
		line := strings.TrimSpace(output[i])
		if failureLine.MatchString(line) {
			return "Command failed: " + line
		}
	}

	preview := strings.Join(strings.Fields(strings.Join(output, "\n")), " ")
	if r := []rune(preview); len(r) > previewLength {
		preview = string(r[:previewLength])
	}
	return fmt.Sprintf("Command failed with exit code %d; preview: %s", exitCode, preview)
}
