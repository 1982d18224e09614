package fs

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/okhani/dav/internal/domain/props"
	"github.com/okhani/dav/pkg/metrics"
)

// OSFS serves a rooted local directory. Paths are confined to the root;
// symbolic links are hidden by default, matching the behavior litmus and
// most clients expect from a DAV share.
//
// Dead properties live in an in-memory sidecar keyed by path. They survive
// renames but not process restarts.
type OSFS struct {
	root         string
	hideSymlinks bool

	mu   sync.Mutex
	dead map[string]map[xml.Name]props.Property
}

// OSOption applies a configuration option to OSFS.
type OSOption func(*OSFS)

// WithSymlinksVisible exposes symlinks instead of hiding them.
func WithSymlinksVisible() OSOption {
	return func(o *OSFS) {
		o.hideSymlinks = false
	}
}

// NewOSFS creates a backend rooted at dir.
func NewOSFS(dir string, opts ...OSOption) (*OSFS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, ErrNotDir
	}
	o := &OSFS{
		root:         abs,
		hideSymlinks: true,
		dead:         map[string]map[xml.Name]props.Property{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// resolve maps a decoded DAV path onto the local filesystem.
func (o *OSFS) resolve(path string) (string, error) {
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return "", ErrForbidden
		}
	}
	return filepath.Join(o.root, filepath.FromSlash(path)), nil
}

func mapOSError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, iofs.ErrNotExist):
		return ErrNotFound
	case errors.Is(err, iofs.ErrExist):
		return ErrExists
	case errors.Is(err, iofs.ErrPermission):
		return ErrForbidden
	default:
		return err
	}
}

func (o *OSFS) lstat(local string) (os.FileInfo, error) {
	info, err := os.Lstat(local)
	if err != nil {
		return nil, mapOSError(err)
	}
	if o.hideSymlinks && info.Mode()&os.ModeSymlink != 0 {
		return nil, ErrNotFound
	}
	return info, nil
}

func osMeta(info os.FileInfo) Metadata {
	return Metadata{
		Name:     info.Name(),
		Size:     info.Size(),
		Modified: info.ModTime(),
		// ctime is not portable; creation approximated by mtime.
		Created: info.ModTime(),
		Dir:     info.IsDir(),
		ETag:    fmt.Sprintf(`"%x-%x"`, info.ModTime().UnixNano(), info.Size()),
	}
}

// Stat implements FileSystem.
func (o *OSFS) Stat(_ context.Context, path string) (Metadata, error) {
	local, err := o.resolve(path)
	if err != nil {
		return Metadata{}, err
	}
	info, err := o.lstat(local)
	if err != nil {
		return Metadata{}, err
	}
	return osMeta(info), nil
}

// Open implements FileSystem.
func (o *OSFS) Open(_ context.Context, path string) (io.ReadSeekCloser, error) {
	local, err := o.resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := o.lstat(local)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, ErrIsDir
	}
	f, err := os.Open(local)
	if err != nil {
		return nil, mapOSError(err)
	}
	return f, nil
}

// Create implements FileSystem.
func (o *OSFS) Create(_ context.Context, path string) (io.WriteCloser, error) {
	local, err := o.resolve(path)
	if err != nil {
		return nil, err
	}
	parentInfo, err := o.lstat(filepath.Dir(local))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrParentNotFound
		}
		return nil, err
	}
	if !parentInfo.IsDir() {
		return nil, ErrNotDir
	}
	if info, err := o.lstat(local); err == nil && info.IsDir() {
		return nil, ErrIsDir
	}
	f, err := os.Create(local)
	if err != nil {
		metrics.RecordFSError("put", "create")
		return nil, mapOSError(err)
	}
	return f, nil
}

// Mkdir implements FileSystem.
func (o *OSFS) Mkdir(_ context.Context, path string) error {
	local, err := o.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Mkdir(local, 0o755); err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return ErrParentNotFound
		}
		return mapOSError(err)
	}
	return nil
}

// RemoveAll implements FileSystem.
func (o *OSFS) RemoveAll(_ context.Context, path string) error {
	local, err := o.resolve(path)
	if err != nil {
		return err
	}
	if local == o.root {
		return ErrForbidden
	}
	if _, err := o.lstat(local); err != nil {
		return err
	}
	if err := os.RemoveAll(local); err != nil {
		return mapOSError(err)
	}
	o.dropDead(path)
	return nil
}

// Rename implements FileSystem.
func (o *OSFS) Rename(_ context.Context, oldPath, newPath string) error {
	oldLocal, err := o.resolve(oldPath)
	if err != nil {
		return err
	}
	newLocal, err := o.resolve(newPath)
	if err != nil {
		return err
	}
	if _, err := o.lstat(oldLocal); err != nil {
		return err
	}
	if _, err := o.lstat(newLocal); err == nil {
		return ErrExists
	}
	if err := os.Rename(oldLocal, newLocal); err != nil {
		return mapOSError(err)
	}
	o.moveDead(oldPath, newPath)
	return nil
}

// ReadDir implements FileSystem.
func (o *OSFS) ReadDir(_ context.Context, path string) ([]DirEntry, error) {
	local, err := o.resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := o.lstat(local)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, ErrNotDir
	}
	dirents, err := os.ReadDir(local)
	if err != nil {
		return nil, mapOSError(err)
	}
	entries := make([]DirEntry, 0, len(dirents))
	for _, de := range dirents {
		if o.hideSymlinks && de.Type()&os.ModeSymlink != 0 {
			continue
		}
		fi, err := de.Info()
		if err != nil {
			continue // racing delete
		}
		entries = append(entries, DirEntry{Name: de.Name(), Meta: osMeta(fi)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// DeadProps implements FileSystem.
func (o *OSFS) DeadProps(ctx context.Context, path string) ([]props.Property, error) {
	if _, err := o.Stat(ctx, path); err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	stored := o.dead[path]
	out := make([]props.Property, 0, len(stored))
	for _, p := range stored {
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
func (o *OSFS) PatchDeadProps(ctx context.Context, path string, patches []props.Patch) error {
	if _, err := o.Stat(ctx, path); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	stored := o.dead[path]
	if stored == nil {
		stored = map[xml.Name]props.Property{}
		o.dead[path] = stored
	}
	for _, patch := range patches {
		for _, p := range patch.Props {
			if patch.Remove {
				delete(stored, p.XMLName)
			} else {
				stored[p.XMLName] = p
			}
		}
	}
	return nil
}

func (o *OSFS) dropDead(path string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	prefix := strings.TrimSuffix(path, "/") + "/"
	for k := range o.dead {
		if k == path || strings.HasPrefix(k, prefix) {
			delete(o.dead, k)
		}
	}
}

func (o *OSFS) moveDead(oldPath, newPath string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	prefix := strings.TrimSuffix(oldPath, "/") + "/"
	moved := map[string]map[xml.Name]props.Property{}
	for k, v := range o.dead {
		switch {
		case k == oldPath:
			moved[newPath] = v
			delete(o.dead, k)
		case strings.HasPrefix(k, prefix):
			moved[newPath+k[len(oldPath):]] = v
			delete(o.dead, k)
		}
	}
	for k, v := range moved {
		o.dead[k] = v
	}
}
