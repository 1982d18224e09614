// Package davpath models request paths as seen by the DAV layer.
//
// A Path is always absolute, percent-decoded, and normalized. The configured
// URL prefix is stripped on parse and re-applied when rendering hrefs, so the
// rest of the server never sees it. Trailing-slash (collection) state is
// tracked explicitly because RFC 4918 gives it meaning.
package davpath

import (
	"net/url"
	"strings"
)

// Path is a normalized DAV request path.
type Path struct {
	segments   []string
	prefix     string
	collection bool
}

// Parse builds a Path from an escaped URL path, stripping prefix.
// The input is expected to be the escaped form (url.URL.EscapedPath) so that
// encoded slashes inside segment names survive decoding.
func Parse(escaped, prefix string) (*Path, error) {
	if escaped == "" || escaped[0] != '/' {
		return nil, ErrInvalidPath
	}
	if strings.ContainsAny(escaped, "\x00") {
		return nil, ErrInvalidPath
	}

	prefix = strings.TrimSuffix(prefix, "/")
	if prefix != "" {
		if !strings.HasPrefix(escaped, prefix) {
			return nil, ErrPrefixMismatch
		}
		rest := escaped[len(prefix):]
		if rest != "" && rest[0] != '/' {
			return nil, ErrPrefixMismatch
		}
		escaped = rest
		if escaped == "" {
			escaped = "/"
		}
	}

	collection := strings.HasSuffix(escaped, "/")

	var segments []string
	for _, raw := range strings.Split(escaped, "/") {
		if raw == "" {
			continue // collapse duplicate and boundary slashes
		}
		seg, err := url.PathUnescape(raw)
		if err != nil {
			return nil, ErrInvalidPath
		}
		switch seg {
		case ".":
			continue
		case "..":
			// Never allow escaping the tree, not even transiently.
			return nil, ErrInvalidPath
		}
		if strings.Contains(seg, "/") || strings.Contains(seg, "\x00") {
			return nil, ErrInvalidPath
		}
		segments = append(segments, seg)
	}

	if len(segments) == 0 {
		collection = true
	}

	return &Path{segments: segments, prefix: prefix, collection: collection}, nil
}

// String returns the decoded path without the prefix, e.g. "/a/b".
func (p *Path) String() string {
	if len(p.segments) == 0 {
		return "/"
	}
	s := "/" + strings.Join(p.segments, "/")
	if p.collection {
		s += "/"
	}
	return s
}

// FSPath returns the decoded path without a trailing slash, suitable as a
// filesystem backend key. The root is "/".
func (p *Path) FSPath() string {
	if len(p.segments) == 0 {
		return "/"
	}
	return "/" + strings.Join(p.segments, "/")
}

// IsCollection reports whether the request path carried a trailing slash.
func (p *Path) IsCollection() bool { return p.collection }

// IsRoot reports whether the path addresses the tree root.
func (p *Path) IsRoot() bool { return len(p.segments) == 0 }

// AddSlash marks the path as a collection.
func (p *Path) AddSlash() { p.collection = true }

// Name returns the final path segment, or "" for the root.
func (p *Path) Name() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

// Parent returns the parent path, always as a collection. The root is its
// own parent.
func (p *Path) Parent() *Path {
	if len(p.segments) == 0 {
		return &Path{prefix: p.prefix, collection: true}
	}
	parent := make([]string, len(p.segments)-1)
	copy(parent, p.segments[:len(p.segments)-1])
	return &Path{segments: parent, prefix: p.prefix, collection: true}
}

// Join returns a child path with name appended. The child is not a
// collection unless marked afterwards.
func (p *Path) Join(name string) *Path {
	child := make([]string, len(p.segments)+1)
	copy(child, p.segments)
	child[len(p.segments)] = name
	return &Path{segments: child, prefix: p.prefix}
}

// IsAncestorOf reports whether p is a strict ancestor of other.
func (p *Path) IsAncestorOf(other *Path) bool {
	if len(p.segments) >= len(other.segments) {
		return false
	}
	for i, seg := range p.segments {
		if other.segments[i] != seg {
			return false
		}
	}
	return true
}

// EncodedWithPrefix returns the percent-encoded path including the prefix,
// for use in hrefs and Content-Location headers.
func (p *Path) EncodedWithPrefix() string {
	var b strings.Builder
	b.WriteString(p.prefix)
	if len(p.segments) == 0 {
		b.WriteString("/")
		return b.String()
	}
	for _, seg := range p.segments {
		b.WriteString("/")
		b.WriteString(url.PathEscape(seg))
	}
	if p.collection {
		b.WriteString("/")
	}
	return b.String()
}
