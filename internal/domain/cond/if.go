// Package cond implements WebDAV conditional request evaluation: the DAV If
// header (RFC 4918 10.4), the HTTP validator headers, and Timeout parsing.
package cond

import (
	"strings"
)

// Condition is one clause inside an If list: a state token or an etag,
// optionally negated.
type Condition struct {
	Not   bool
	Token string // state token, e.g. urn:uuid:...
	ETag  string // entity tag including quotes, e.g. "abc" or W/"abc"
}

// List is one parenthesized group of conditions, optionally scoped to a
// tagged resource.
type List struct {
	ResourceTag string // "" means the request URI
	Conditions  []Condition
}

// IfHeader is a parsed If header.
type IfHeader struct {
	Lists []List
}

// parser is a tiny scanner over the header value.
type parser struct {
	s   string
	pos int
}

func (p *parser) skipWS() {
	for p.pos < len(p.s) && (p.s[p.pos] == ' ' || p.s[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) eof() bool {
	p.skipWS()
	return p.pos >= len(p.s)
}

func (p *parser) peek() byte {
	p.skipWS()
	if p.pos >= len(p.s) {
		return 0
	}
	return p.s[p.pos]
}

// readAngled reads <...> and returns the inner text.
func (p *parser) readAngled() (string, error) {
	p.skipWS()
	if p.pos >= len(p.s) || p.s[p.pos] != '<' {
		return "", ErrBadIfHeader
	}
	end := strings.IndexByte(p.s[p.pos:], '>')
	if end < 0 {
		return "", ErrBadIfHeader
	}
	inner := p.s[p.pos+1 : p.pos+end]
	p.pos += end + 1
	if inner == "" {
		return "", ErrBadIfHeader
	}
	return inner, nil
}

// readETag reads [...] and returns the entity tag text.
func (p *parser) readETag() (string, error) {
	p.skipWS()
	if p.pos >= len(p.s) || p.s[p.pos] != '[' {
		return "", ErrBadIfHeader
	}
	end := strings.IndexByte(p.s[p.pos:], ']')
	if end < 0 {
		return "", ErrBadIfHeader
	}
	inner := strings.TrimSpace(p.s[p.pos+1 : p.pos+end])
	p.pos += end + 1
	if inner == "" {
		return "", ErrBadIfHeader
	}
	return inner, nil
}

func (p *parser) readList() (List, error) {
	var l List
	p.skipWS()
	if p.pos >= len(p.s) || p.s[p.pos] != '(' {
		return l, ErrBadIfHeader
	}
	p.pos++

	for {
		p.skipWS()
		if p.pos >= len(p.s) {
			return l, ErrBadIfHeader
		}
		if p.s[p.pos] == ')' {
			p.pos++
			break
		}

		var c Condition
		if strings.HasPrefix(strings.ToLower(p.s[p.pos:]), "not") {
			c.Not = true
			p.pos += 3
			p.skipWS()
			if p.pos >= len(p.s) {
				return l, ErrBadIfHeader
			}
		}

		switch p.s[p.pos] {
		case '<':
			tok, err := p.readAngled()
			if err != nil {
				return l, err
			}
			c.Token = tok
		case '[':
			etag, err := p.readETag()
			if err != nil {
				return l, err
			}
			c.ETag = etag
		default:
			return l, ErrBadIfHeader
		}
		l.Conditions = append(l.Conditions, c)
	}

	if len(l.Conditions) == 0 {
		return l, ErrBadIfHeader
	}
	return l, nil
}

// ParseIf parses an If header value. Returns nil for an empty value.
func ParseIf(value string) (*IfHeader, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	p := &parser{s: value}
	var h IfHeader
	tag := ""

	for !p.eof() {
		switch p.peek() {
		case '<':
			ref, err := p.readAngled()
			if err != nil {
				return nil, err
			}
			tag = ref
			// A resource tag must be followed by at least one list.
			if p.peek() != '(' {
				return nil, ErrBadIfHeader
			}
		case '(':
			l, err := p.readList()
			if err != nil {
				return nil, err
			}
			l.ResourceTag = tag
			h.Lists = append(h.Lists, l)
		default:
			return nil, ErrBadIfHeader
		}
	}

	if len(h.Lists) == 0 {
		return nil, ErrBadIfHeader
	}
	return &h, nil
}

// StateTokens returns every positively referenced state token. These are the
// tokens the client claims to hold; the lock layer checks ownership.
func (h *IfHeader) StateTokens() []string {
	if h == nil {
		return nil
	}
	var tokens []string
	for _, l := range h.Lists {
		for _, c := range l.Conditions {
			if c.Token != "" && !c.Not {
				tokens = append(tokens, c.Token)
			}
		}
	}
	return tokens
}

// ResourceState describes one resource as seen by the evaluator.
type ResourceState struct {
	ETag   string   // current etag, "" when unmapped
	Tokens []string // live lock tokens covering the resource
	Found  bool     // resource exists
}

// Resolver maps a resource tag ("" = request URI) to its current state.
type Resolver func(tag string) ResourceState

// Eval evaluates the header: true when any list holds, where every condition
// in a list must hold against the list's resource. A nil header is true.
func (h *IfHeader) Eval(resolve Resolver) bool {
	if h == nil {
		return true
	}
	for _, l := range h.Lists {
		if evalList(l, resolve(l.ResourceTag)) {
			return true
		}
	}
	return false
}

func evalList(l List, st ResourceState) bool {
	for _, c := range l.Conditions {
		var holds bool
		switch {
		case c.Token != "":
			holds = st.Found && containsToken(st.Tokens, c.Token)
		case c.ETag != "":
			holds = st.Found && st.ETag != "" && etagsEqual(st.ETag, c.ETag)
		}
		if c.Not {
			holds = !holds
		}
		if !holds {
			return false
		}
	}
	return true
}

func containsToken(tokens []string, token string) bool {
	for _, t := range tokens {
		if t == token {
			return true
		}
	}
	return false
}

// etagsEqual compares entity tags, treating weak tags as equal to their
// strong form (If headers use the weak comparison function).
func etagsEqual(a, b string) bool {
	return strings.TrimPrefix(a, "W/") == strings.TrimPrefix(b, "W/")
}
