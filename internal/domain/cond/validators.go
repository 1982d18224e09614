package cond

import (
	"net/http"
	"strings"
	"time"
)

// EvalIfMatch evaluates an If-Match header against the current etag.
// A missing header passes; "*" requires the resource to exist.
func EvalIfMatch(r *http.Request, etag string, exists bool) bool {
	value := r.Header.Get("If-Match")
	if value == "" {
		return true
	}
	if strings.TrimSpace(value) == "*" {
		return exists
	}
	if !exists || etag == "" {
		return false
	}
	for _, candidate := range splitETags(value) {
		// If-Match uses the strong comparison: weak tags never match.
		if strings.HasPrefix(candidate, "W/") || strings.HasPrefix(etag, "W/") {
			continue
		}
		if candidate == etag {
			return true
		}
	}
	return false
}

// EvalIfNoneMatch evaluates an If-None-Match header against the current etag.
// Returns false when the request must not proceed (i.e. a match was found).
func EvalIfNoneMatch(r *http.Request, etag string, exists bool) bool {
	value := r.Header.Get("If-None-Match")
	if value == "" {
		return true
	}
	if strings.TrimSpace(value) == "*" {
		return !exists
	}
	if !exists || etag == "" {
		return true
	}
	for _, candidate := range splitETags(value) {
		if etagsEqual(candidate, etag) {
			return false
		}
	}
	return true
}

// EvalIfModifiedSince reports whether the resource changed since the header
// timestamp. A missing or unparsable header counts as modified.
func EvalIfModifiedSince(r *http.Request, modified time.Time) bool {
	value := r.Header.Get("If-Modified-Since")
	if value == "" {
		return true
	}
	since, err := http.ParseTime(value)
	if err != nil {
		return true
	}
	// HTTP dates have second precision.
	return modified.Truncate(time.Second).After(since)
}

// EvalIfUnmodifiedSince reports whether the request may proceed.
func EvalIfUnmodifiedSince(r *http.Request, modified time.Time) bool {
	value := r.Header.Get("If-Unmodified-Since")
	if value == "" {
		return true
	}
	since, err := http.ParseTime(value)
	if err != nil {
		return true
	}
	return !modified.Truncate(time.Second).After(since)
}

func splitETags(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
