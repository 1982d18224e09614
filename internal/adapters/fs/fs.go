// Package fs defines the filesystem backend contract for the DAV layer and
// provides the in-memory and local-directory implementations.
package fs

import (
	"context"
	"io"
	"time"

	"github.com/okhani/dav/internal/domain/props"
)

// Metadata describes one resource.
type Metadata struct {
	Name     string
	Size     int64
	Modified time.Time
	Created  time.Time
	Dir      bool
	ETag     string
}

// DirEntry is one child of a collection.
type DirEntry struct {
	Name string
	Meta Metadata
}

// FileSystem provides access to a resource tree. Paths are absolute, slash
// separated, decoded, and carry no trailing slash ("/" is the root).
type FileSystem interface {
	// Stat returns metadata for path. ErrNotFound when unmapped.
	Stat(ctx context.Context, path string) (Metadata, error)

	// Open opens a file for reading. ErrIsDir on collections.
	Open(ctx context.Context, path string) (io.ReadSeekCloser, error)

	// Create opens a file for writing, creating or truncating it. The write
	// becomes visible on Close. ErrParentNotFound when the parent is
	// unmapped, ErrNotDir when the parent is a file, ErrIsDir when path
	// names a collection.
	Create(ctx context.Context, path string) (io.WriteCloser, error)

	// Mkdir creates a collection. ErrExists / ErrParentNotFound per RFC
	// 4918 9.3.1.
	Mkdir(ctx context.Context, path string) error

	// RemoveAll removes path recursively. ErrNotFound when unmapped.
	RemoveAll(ctx context.Context, path string) error

	// Rename moves a subtree. The destination must not exist; callers
	// resolve Overwrite semantics first.
	Rename(ctx context.Context, oldPath, newPath string) error

	// ReadDir lists a collection. ErrNotDir on files.
	ReadDir(ctx context.Context, path string) ([]DirEntry, error)

	// DeadProps returns the dead properties stored on path.
	DeadProps(ctx context.Context, path string) ([]props.Property, error)

	// PatchDeadProps applies PROPPATCH patches in order. The whole patch
	// set applies atomically.
	PatchDeadProps(ctx context.Context, path string, patches []props.Patch) error
}

// Sizer is an optional backend interface reporting tree totals for stats.
type Sizer interface {
	TreeSize(ctx context.Context) (nodes int, bytes int64)
}
