package fs

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okhani/dav/internal/domain/props"
	"github.com/okhani/dav/pkg/metrics"
)

// memNode is one node of the in-memory tree.
type memNode struct {
	name      string
	dir       bool
	children  map[string]*memNode
	data      []byte
	created   time.Time
	modified  time.Time
	version   uint64
	deadProps map[xml.Name]props.Property
}

// MemFS is an in-memory FileSystem. It is the default backend for the litmus
// server and the one the test suites run against. File bodies are replaced
// wholesale on write, so readers opened earlier keep a consistent snapshot.
type MemFS struct {
	mu    sync.RWMutex
	root  *memNode
	nodes int
	bytes int64
	clock func() time.Time
}

// MemOption applies a configuration option to MemFS.
type MemOption func(*MemFS)

// WithClock overrides the time source. Used by tests.
func WithClock(clock func() time.Time) MemOption {
	return func(m *MemFS) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// NewMemFS creates an empty in-memory filesystem.
func NewMemFS(opts ...MemOption) *MemFS {
	m := &MemFS{clock: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	m.root = &memNode{
		name:     "",
		dir:      true,
		children: map[string]*memNode{},
		created:  m.clock(),
		modified: m.clock(),
	}
	m.nodes = 1
	m.publishTotals()
	return m
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// walk resolves path to a node. Callers hold the lock.
func (m *MemFS) walk(path string) (*memNode, error) {
	node := m.root
	for _, seg := range splitPath(path) {
		if !node.dir {
			return nil, ErrNotDir
		}
		child, ok := node.children[seg]
		if !ok {
			return nil, ErrNotFound
		}
		node = child
	}
	return node, nil
}

// walkParent resolves the parent collection of path. Callers hold the lock.
func (m *MemFS) walkParent(path string) (*memNode, string, error) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return nil, "", ErrForbidden // the root has no parent
	}
	node := m.root
	for _, seg := range segs[:len(segs)-1] {
		child, ok := node.children[seg]
		if !ok {
			return nil, "", ErrParentNotFound
		}
		if !child.dir {
			return nil, "", ErrNotDir
		}
		node = child
	}
	return node, segs[len(segs)-1], nil
}

func (m *MemFS) meta(n *memNode) Metadata {
	return Metadata{
		Name:     n.name,
		Size:     int64(len(n.data)),
		Modified: n.modified,
		Created:  n.created,
		Dir:      n.dir,
		ETag:     n.etag(),
	}
}

func (n *memNode) etag() string {
	return fmt.Sprintf(`"%x-%x"`, n.version, n.modified.UnixNano())
}

func (n *memNode) countSubtree() (nodes int, bytes int64) {
	nodes = 1
	bytes = int64(len(n.data))
	for _, c := range n.children {
		cn, cb := c.countSubtree()
		nodes += cn
		bytes += cb
	}
	return nodes, bytes
}

func (m *MemFS) publishTotals() {
	metrics.UpdateFSNodes(m.nodes)
	metrics.UpdateFSBytes(m.bytes)
}

// Stat implements FileSystem.
func (m *MemFS) Stat(_ context.Context, path string) (Metadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	node, err := m.walk(path)
	if err != nil {
		return Metadata{}, err
	}
	return m.meta(node), nil
}

// Open implements FileSystem.
func (m *MemFS) Open(_ context.Context, path string) (io.ReadSeekCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	node, err := m.walk(path)
	if err != nil {
		return nil, err
	}
	if node.dir {
		return nil, ErrIsDir
	}
	return &memReader{Reader: bytes.NewReader(node.data)}, nil
}

type memReader struct {
	*bytes.Reader
}

func (*memReader) Close() error { return nil }

// Create implements FileSystem.
func (m *MemFS) Create(_ context.Context, path string) (io.WriteCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	parent, name, err := m.walkParent(path)
	if err != nil {
		return nil, err
	}
	if existing, ok := parent.children[name]; ok && existing.dir {
		return nil, ErrIsDir
	}
	return &memWriter{fs: m, path: path}, nil
}

// memWriter buffers writes and commits them to the tree on Close.
type memWriter struct {
	fs   *MemFS
	path string
	buf  bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *memWriter) Close() error {
	start := time.Now()
	defer func() {
		metrics.RecordFSOpLatency("put", float64(time.Since(start).Milliseconds()))
	}()

	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()

	parent, name, err := w.fs.walkParent(w.path)
	if err != nil {
		metrics.RecordFSError("put", "parent_gone")
		return err
	}
	now := w.fs.clock()
	node, ok := parent.children[name]
	if ok {
		if node.dir {
			metrics.RecordFSError("put", "is_dir")
			return ErrIsDir
		}
		w.fs.bytes += int64(w.buf.Len()) - int64(len(node.data))
		node.data = w.buf.Bytes()
		node.modified = now
		node.version++
	} else {
		parent.children[name] = &memNode{
			name:     name,
			data:     w.buf.Bytes(),
			created:  now,
			modified: now,
		}
		parent.modified = now
		w.fs.nodes++
		w.fs.bytes += int64(w.buf.Len())
	}
	w.fs.publishTotals()
	return nil
}

// Mkdir implements FileSystem.
func (m *MemFS) Mkdir(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	parent, name, err := m.walkParent(path)
	if err != nil {
		if err == ErrForbidden {
			return ErrExists // MKCOL on the root
		}
		return err
	}
	if _, ok := parent.children[name]; ok {
		return ErrExists
	}
	now := m.clock()
	parent.children[name] = &memNode{
		name:     name,
		dir:      true,
		children: map[string]*memNode{},
		created:  now,
		modified: now,
	}
	parent.modified = now
	m.nodes++
	m.publishTotals()
	return nil
}

// RemoveAll implements FileSystem.
func (m *MemFS) RemoveAll(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	parent, name, err := m.walkParent(path)
	if err != nil {
		if err == ErrForbidden {
			return ErrForbidden // never delete the root
		}
		return ErrNotFound
	}
	node, ok := parent.children[name]
	if !ok {
		return ErrNotFound
	}
	gone, goneBytes := node.countSubtree()
	delete(parent.children, name)
	parent.modified = m.clock()
	m.nodes -= gone
	m.bytes -= goneBytes
	m.publishTotals()
	return nil
}

// Rename implements FileSystem.
func (m *MemFS) Rename(_ context.Context, oldPath, newPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldParent, oldName, err := m.walkParent(oldPath)
	if err != nil {
		return err
	}
	node, ok := oldParent.children[oldName]
	if !ok {
		return ErrNotFound
	}
	newParent, newName, err := m.walkParent(newPath)
	if err != nil {
		return err
	}
	if _, exists := newParent.children[newName]; exists {
		return ErrExists
	}

	now := m.clock()
	delete(oldParent.children, oldName)
	oldParent.modified = now
	node.name = newName
	newParent.children[newName] = node
	newParent.modified = now
	return nil
}

// ReadDir implements FileSystem.
func (m *MemFS) ReadDir(_ context.Context, path string) ([]DirEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	node, err := m.walk(path)
	if err != nil {
		return nil, err
	}
	if !node.dir {
		return nil, ErrNotDir
	}
	entries := make([]DirEntry, 0, len(node.children))
	for name, child := range node.children {
		entries = append(entries, DirEntry{Name: name, Meta: m.meta(child)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// DeadProps implements FileSystem.
func (m *MemFS) DeadProps(_ context.Context, path string) ([]props.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	node, err := m.walk(path)
	if err != nil {
		return nil, err
	}
	out := make([]props.Property, 0, len(node.deadProps))
	for _, p := range node.deadProps {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].XMLName, out[j].XMLName
		if a.Space != b.Space {
			return a.Space < b.Space
		}
		return a.Local < b.Local
	})
	return out, nil
}

// PatchDeadProps implements FileSystem.
func (m *MemFS) PatchDeadProps(_ context.Context, path string, patches []props.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, err := m.walk(path)
	if err != nil {
		return err
	}
	if node.deadProps == nil {
		node.deadProps = map[xml.Name]props.Property{}
	}
	for _, patch := range patches {
		for _, p := range patch.Props {
			if patch.Remove {
				delete(node.deadProps, p.XMLName)
			} else {
				node.deadProps[p.XMLName] = p
			}
		}
	}
	node.modified = m.clock()
	node.version++
	return nil
}

// TreeSize implements Sizer.
func (m *MemFS) TreeSize(_ context.Context) (int, int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nodes, m.bytes
}
