// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() returning a Config with defaults.
// - Load() layers defaults, an optional YAML file, and environment variables.
// - External errors must be wrapped via this package's error kinds.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`

	// LogFile, when set, mirrors logs to a rotating file.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// Prefix is the URL prefix the DAV tree is served under, e.g. "/dav".
	// Empty means the tree is mounted at the server root.
	Prefix string `koanf:"prefix" validate:"omitempty,startswith=/"`

	// Backend selects the storage backend.
	Backend string `koanf:"backend" validate:"oneof=memory os"`

	// Root is the directory served when Backend is "os".
	Root string `koanf:"root" validate:"required_if=Backend os"`

	// HideSymlinks makes the os backend treat symlinks as absent.
	HideSymlinks bool `koanf:"hide_symlinks"`

	// LocksEnabled turns the LOCK/UNLOCK methods on.
	LocksEnabled bool `koanf:"locks_enabled"`

	// MaxLockTimeoutS caps client-requested lock timeouts, in seconds.
	MaxLockTimeoutS int `koanf:"max_lock_timeout_s" validate:"min=1"`

	// AllowInfiniteDepth permits PROPFIND with Depth: infinity.
	AllowInfiniteDepth bool `koanf:"allow_infinite_depth"`

	// JournalSize bounds the in-memory change journal.
	JournalSize int `koanf:"journal_size" validate:"min=1"`

	// WorkerCount sets the number of journal workers.
	WorkerCount int `koanf:"worker_count" validate:"min=0"`

	// RecentChanges sets how many recent changes the activity store keeps.
	RecentChanges int `koanf:"recent_changes" validate:"min=1"`

	// AuthUsername and AuthPassword enable HTTP basic auth when both set.
	AuthUsername string `koanf:"auth_username"`
	AuthPassword string `koanf:"auth_password"`

	// AuthRealm names the basic auth realm.
	AuthRealm string `koanf:"auth_realm"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":4918",
		Prefix:             "",
		Backend:            "memory",
		HideSymlinks:       true,
		LocksEnabled:       true,
		MaxLockTimeoutS:    86400,
		AllowInfiniteDepth: false,
		JournalSize:        10_000,
		WorkerCount:        0,
		RecentChanges:      256,
		AuthRealm:          "dav",
	}
}
