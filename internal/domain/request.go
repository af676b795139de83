package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// JobRequest is a validated-on-demand description of one download.
type JobRequest struct {
	SourceURL  string
	CustomName string
	StartTime  *float64
	EndTime    *float64
}

// HasRange reports whether a trim was requested.
func (r JobRequest) HasRange() bool {
	return r.StartTime != nil || r.EndTime != nil
}

type rawRequest struct {
	URL       any             `json:"url"`
	Name      any             `json:"name"`
	StartTime json.RawMessage `json:"start_time"`
	EndTime   json.RawMessage `json:"end_time"`
}

// DecodeRequest parses a JSON request body. On a non-JSON error the partially
// decoded request is still returned so the caller can name the job log.
func DecodeRequest(body []byte) (JobRequest, error) {
	var raw rawRequest
	if err := json.Unmarshal(body, &raw); err != nil {
		return JobRequest{}, validationError(ErrInvalidJSON, "Invalid JSON received: "+err.Error())
	}

	var req JobRequest
	if s, ok := raw.URL.(string); ok {
		req.SourceURL = strings.TrimSpace(s)
	}
	if s, ok := raw.Name.(string); ok {
		req.CustomName = strings.TrimSpace(s)
	}

	start, ok := parseSeconds(raw.StartTime)
	if !ok {
		return req, validationError(ErrInvalidStart, "'start_time' must be numeric or null.")
	}
	req.StartTime = start

	end, ok := parseSeconds(raw.EndTime)
	if !ok {
		return req, validationError(ErrInvalidEnd, "'end_time' must be numeric or null.")
	}
	req.EndTime = end

	return req, nil
}

// parseSeconds accepts a JSON number, a numeric string or null.
func parseSeconds(raw json.RawMessage) (*float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, true
	}

	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, false
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, false
		}
		v, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false
		}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, false
	}
	return &v, true
}

// Validate checks the time range and source URL. It never touches the
// filesystem or runs commands.
func (r JobRequest) Validate() error {
	if r.StartTime != nil && *r.StartTime < 0 {
		return validationError(ErrInvalidStart, "'start_time' must be a non-negative number (seconds).")
	}
	if r.EndTime != nil && *r.EndTime <= 0 {
		return validationError(ErrInvalidEnd, "'end_time' must be a positive number greater than 0.")
	}
	if r.StartTime != nil && r.EndTime != nil && *r.StartTime >= *r.EndTime {
		return validationError(ErrInvalidRange, "'start_time' must be less than 'end_time'.")
	}
	if !isValidURL(r.SourceURL) {
		return validationError(ErrInvalidURL, "A valid 'url' is required.")
	}
	return nil
}

func isValidURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}
