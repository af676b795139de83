package domain

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// FallbackName is used when a name sanitizes to nothing.
const FallbackName = "download"

const maxNameLength = 150

// VideoIdentity names a job's temp and output files.
type VideoIdentity struct {
	ID       string
	BaseName string
}

// NewIdentity derives the identity for a video ID and optional custom name.
func NewIdentity(id, customName string) VideoIdentity {
	base := id
	if strings.TrimSpace(customName) != "" {
		base = SanitizeName(customName)
	}
	return VideoIdentity{ID: id, BaseName: base}
}

// Tried in order; first match wins.
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/watch\?v=([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtu\.be/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/embed/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/v/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/shorts/([a-zA-Z0-9_-]{11})`),
}

// ExtractID returns the 11-character video ID embedded in a YouTube URL.
func ExtractID(rawURL string) (string, bool) {
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(rawURL); m != nil {
			return m[1], true
		}
	}
	return "", false
}

var hostileChars = regexp.MustCompile(`[\x00-\x1F\x7F/?<>\\:*|"]`)

func isEdgeTrimmed(r rune) bool {
	return strings.ContainsRune("._- ", r) || unicode.IsSpace(r)
}

// SanitizeName makes a user-supplied name safe to use as a file basename.
// The result never contains a path separator, is at most 150 code points
// and is never empty.
func SanitizeName(raw string) string {
	s := strings.ToValidUTF8(raw, "")
	s = hostileChars.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.TrimFunc(s, isEdgeTrimmed)

	if utf8.RuneCountInString(s) > maxNameLength {
		s = string([]rune(s)[:maxNameLength])
		// truncation can expose a trailing separator
		s = strings.TrimFunc(s, isEdgeTrimmed)
	}

	if s == "" || strings.ContainsAny(s, `/\`) {
		return FallbackName
	}
	return s
}
