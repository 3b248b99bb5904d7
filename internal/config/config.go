package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Options holds the process-wide daemon configuration. It is constructed
// once at startup and read-only thereafter.
type Options struct {
	// LockFD is a file descriptor on which the parent process holds an
	// exclusive advisory lock. When non-negative, the daemon exits as soon
	// as the lock is no longer held. -1 disables the check.
	LockFD int `koanf:"lock_fd"`

	// SigwinchPID is a process to ping with SIGWINCH during idle periods.
	// When non-negative, the daemon exits if signal delivery fails.
	// -1 disables the check.
	SigwinchPID int `koanf:"sigwinch_pid"`

	// NumThreads is the number of workers scanning the worktree for
	// unstaged and untracked files. Non-positive means one per CPU.
	NumThreads int `koanf:"num_threads"`

	// DirtyMaxIndexSize caps the index size for which unstaged and
	// untracked status is computed; larger repositories report both as
	// unknown. Negative means no cap.
	DirtyMaxIndexSize int `koanf:"dirty_max_index_size"`
}

func defaults() map[string]any {
	return map[string]any{
		"lock_fd":              -1,
		"sigwinch_pid":         -1,
		"num_threads":          -1,
		"dirty_max_index_size": -1,
	}
}

// Load reads configuration from the given YAML file path and environment
// variables. An empty path or missing file is not an error; defaults are
// used. Priority: environment variables > file > defaults.
func Load(path string) (*Options, error) {
	k := koanf.New(".")

	// confmap.Provider wraps an in-memory map and never fails.
	_ = k.Load(confmap.Provider(defaults(), "."), nil)

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("loading config %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider("SOKUHO_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "SOKUHO_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env config: %w", err)
	}

	return unmarshal(k)
}

// LoadFromReader reads configuration from an io.Reader containing YAML.
// Environment variables are not applied. Useful for testing.
func LoadFromReader(r io.Reader) (*Options, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	k := koanf.New(".")
	_ = k.Load(confmap.Provider(defaults(), "."), nil)

	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return unmarshal(k)
}

func unmarshal(k *koanf.Koanf) (*Options, error) {
	var opts Options
	if err := k.Unmarshal("", &opts); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &opts, nil
}

// Validate checks option values. A validation failure is fatal for the
// daemon: no request is served with invalid configuration.
func (o *Options) Validate() error {
	if o.LockFD < -1 {
		return fmt.Errorf("lock_fd must be a file descriptor or -1, got %d", o.LockFD)
	}
	if o.SigwinchPID < -1 {
		return fmt.Errorf("sigwinch_pid must be a process id or -1, got %d", o.SigwinchPID)
	}
	return nil
}

// EffectiveThreads resolves NumThreads to a usable worker count.
func (o *Options) EffectiveThreads() int {
	if o.NumThreads > 0 {
		return o.NumThreads
	}
	return runtime.NumCPU()
}
