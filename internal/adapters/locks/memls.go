package locks

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okhani/dav/pkg/metrics"
)

// Default MemLS configuration constants.
const (
	defaultJanitorInterval = 30 * time.Second
	defaultMaxTimeout      = 24 * time.Hour
)

// MemLS is the in-memory lock table. Expired locks become invisible
// immediately; the janitor reclaims their memory in the background.
type MemLS struct {
	mu     sync.Mutex
	byTok  map[string]*Lock
	byPath map[string][]*Lock

	janitorInterval time.Duration
	maxTimeout      time.Duration
	clock           func() time.Time

	stopCh chan struct{}
	done   chan struct{}
}

// NewMemLS creates a lock table and starts its janitor.
func NewMemLS(opts ...Option) *MemLS {
	m := &MemLS{
		byTok:           map[string]*Lock{},
		byPath:          map[string][]*Lock{},
		janitorInterval: defaultJanitorInterval,
		maxTimeout:      defaultMaxTimeout,
		clock:           time.Now,
		stopCh:          make(chan struct{}),
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.janitor()
	return m
}

func (m *MemLS) janitor() {
	defer close(m.done)
	ticker := time.NewTicker(m.janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *MemLS) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock()
	for tok, l := range m.byTok {
		if l.expired(now) {
			m.removeLocked(tok)
			metrics.RecordLockExpired()
		}
	}
	metrics.UpdateLocksActive(len(m.byTok))
}

func (l *Lock) expired(now time.Time) bool {
	return !l.NoExpiry && now.After(l.Expires)
}

// covers reports whether l applies to path.
func (l *Lock) covers(path string) bool {
	if l.Path == path {
		return true
	}
	return l.Infinite && isAncestor(l.Path, path)
}

func isAncestor(ancestor, path string) bool {
	if ancestor == "/" {
		return path != "/"
	}
	return strings.HasPrefix(path, ancestor+"/")
}

// covering collects live locks applying to path; deep extends the question
// to the whole subtree. Callers hold the lock.
func (m *MemLS) covering(path string, deep bool) []*Lock {
	now := m.clock()
	var out []*Lock
	for _, l := range m.byTok {
		if l.expired(now) {
			continue
		}
		if l.covers(path) || (deep && isAncestor(path, l.Path)) {
			out = append(out, l)
		}
	}
	return out
}

func (m *MemLS) removeLocked(token string) {
	l, ok := m.byTok[token]
	if !ok {
		return
	}
	delete(m.byTok, token)
	list := m.byPath[l.Path]
	for i, cand := range list {
		if cand.Token == token {
			m.byPath[l.Path] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(m.byPath[l.Path]) == 0 {
		delete(m.byPath, l.Path)
	}
}

// Lock implements System.
func (m *MemLS) Lock(_ context.Context, req Request) (Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, held := range m.covering(req.Path, req.Infinite) {
		if held.Scope == Shared && req.Scope == Shared {
			continue
		}
		metrics.RecordLockDenied()
		return Lock{}, ErrLocked
	}

	duration := req.Duration
	noExpiry := req.NoExpiry
	if noExpiry && m.maxTimeout > 0 {
		// Infinite requests are granted the cap instead.
		noExpiry = false
		duration = m.maxTimeout
	}
	if duration <= 0 || duration > m.maxTimeout {
		duration = m.maxTimeout
	}

	l := &Lock{
		Token:     "urn:uuid:" + uuid.NewString(),
		Path:      req.Path,
		Principal: req.Principal,
		Scope:     req.Scope,
		Infinite:  req.Infinite,
		OwnerXML:  req.OwnerXML,
		Duration:  duration,
		NoExpiry:  noExpiry,
	}
	if !noExpiry {
		l.Expires = m.clock().Add(duration)
	}
	m.byTok[l.Token] = l
	m.byPath[l.Path] = append(m.byPath[l.Path], l)

	metrics.RecordLockGranted()
	metrics.UpdateLocksActive(len(m.byTok))
	return *l, nil
}

// Refresh implements System.
func (m *MemLS) Refresh(_ context.Context, path, token string, duration time.Duration, noExpiry bool) (Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.byTok[token]
	if !ok || l.expired(m.clock()) || !l.covers(path) {
		return Lock{}, ErrNoSuchLock
	}

	if noExpiry && m.maxTimeout > 0 {
		noExpiry = false
		duration = m.maxTimeout
	}
	if duration <= 0 || duration > m.maxTimeout {
		duration = m.maxTimeout
	}
	l.Duration = duration
	l.NoExpiry = noExpiry
	if noExpiry {
		l.Expires = time.Time{}
	} else {
		l.Expires = m.clock().Add(duration)
	}

	metrics.RecordLockRefreshed()
	return *l, nil
}

// Unlock implements System.
func (m *MemLS) Unlock(_ context.Context, path, token, principal string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.byTok[token]
	if !ok || l.expired(m.clock()) || !l.covers(path) {
		return ErrNoSuchLock
	}
	if l.Principal != "" && l.Principal != principal {
		return ErrForbidden
	}
	m.removeLocked(token)
	metrics.UpdateLocksActive(len(m.byTok))
	return nil
}

// Check implements System.
func (m *MemLS) Check(_ context.Context, path, principal string, deep bool, submitted []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, held := range m.covering(path, deep) {
		if !tokenSubmitted(held, principal, submitted) {
			return ErrLocked
		}
	}
	return nil
}

func tokenSubmitted(held *Lock, principal string, submitted []string) bool {
	for _, tok := range submitted {
		if tok != held.Token {
			continue
		}
		if held.Principal != "" && held.Principal != principal {
			return false
		}
		return true
	}
	return false
}

// Discover implements System.
func (m *MemLS) Discover(_ context.Context, path string) []Lock {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Lock
	for _, l := range m.covering(path, false) {
		out = append(out, *l)
	}
	return out
}

// Move implements System.
func (m *MemLS) Move(_ context.Context, oldPath, newPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rebound := map[string][]*Lock{}
	for p, list := range m.byPath {
		var np string
		switch {
		case p == oldPath:
			np = newPath
		case isAncestor(oldPath, p):
			np = newPath + p[len(oldPath):]
		default:
			continue
		}
		for _, l := range list {
			l.Path = np
		}
		rebound[np] = list
		delete(m.byPath, p)
	}
	for p, list := range rebound {
		m.byPath[p] = list
	}
}

// Clear implements System.
func (m *MemLS) Clear(_ context.Context, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for tok, l := range m.byTok {
		if l.Path == path || isAncestor(path, l.Path) {
			m.removeLocked(tok)
		}
	}
	metrics.UpdateLocksActive(len(m.byTok))
}

// Close implements System.
func (m *MemLS) Close() error {
	select {
	case <-m.stopCh:
		return nil
	default:
		close(m.stopCh)
	}
	<-m.done
	return nil
}
