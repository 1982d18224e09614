package cond

import (
	"strconv"
	"strings"
	"time"
)

// ParseTimeout parses a DAV Timeout header (RFC 4918 10.7). It returns the
// first understood entry. infinite is true for "Infinite"; a zero duration
// with infinite false means no header was present.
func ParseTimeout(value string) (d time.Duration, infinite bool, err error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false, nil
	}

	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if strings.EqualFold(entry, "Infinite") {
			return 0, true, nil
		}
		rest, ok := cutPrefixFold(entry, "Second-")
		if !ok {
			continue
		}
		secs, perr := strconv.ParseInt(rest, 10, 64)
		if perr != nil || secs < 0 {
			return 0, false, ErrBadTimeout
		}
		return time.Duration(secs) * time.Second, false, nil
	}
	return 0, false, ErrBadTimeout
}

// FormatTimeout renders a lock timeout for response headers and bodies.
func FormatTimeout(d time.Duration, infinite bool) string {
	if infinite {
		return "Infinite"
	}
	return "Second-" + strconv.FormatInt(int64(d/time.Second), 10)
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}
