package gitrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/wasabi0522/sokuho/internal/config"
)

// Tristate is a yes/no/unknown flag. Unknown means the value was not
// computed because the index exceeded the configured size cap.
type Tristate int8

const (
	TriUnknown Tristate = -1
	TriFalse   Tristate = 0
	TriTrue    Tristate = 1
)

// Field returns the protocol representation: "-1", "0" or "1".
func (t Tristate) Field() string {
	switch t {
	case TriTrue:
		return "1"
	case TriFalse:
		return "0"
	default:
		return "-1"
	}
}

func triFromBool(b bool) Tristate {
	if b {
		return TriTrue
	}
	return TriFalse
}

// Status is the full answer to one request. It is constructed fresh per
// request and never mutated afterwards. When IsRepo is false all other
// fields are zero and must not be reported.
type Status struct {
	IsRepo         bool     `json:"is_repo"`
	Workdir        string   `json:"workdir,omitempty"`
	HeadCommit     string   `json:"head_commit,omitempty"`
	LocalBranch    string   `json:"local_branch,omitempty"`
	UpstreamBranch string   `json:"upstream_branch,omitempty"`
	RemoteURL      string   `json:"remote_url,omitempty"`
	State          State    `json:"state,omitempty"`
	HasStaged      bool     `json:"has_staged"`
	HasUnstaged    Tristate `json:"has_unstaged"`
	HasUntracked   Tristate `json:"has_untracked"`
	Ahead          int      `json:"ahead"`
	Behind         int      `json:"behind"`
	FirstTag       string   `json:"first_tag,omitempty"`
}

// Logger defines an interface for logging best-effort operation failures.
type Logger interface {
	Warn(msg string, args ...any)
}

// nopLogger discards all log messages.
type nopLogger struct{}

func (nopLogger) Warn(string, ...any) {}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for best-effort operation warnings.
func WithLogger(l Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithLocator sets the repository locator, sharing its cache with other
// engines.
func WithLocator(l *Locator) Option {
	return func(e *Engine) { e.locator = l }
}

// Engine computes repository status under the given options. Safe for use
// from a single dispatching goroutine; the parallelism lives inside one
// status computation, not across them.
type Engine struct {
	opts    *config.Options
	locator *Locator
	logger  Logger
}

// NewEngine creates an Engine with its own locator cache.
func NewEngine(opts *config.Options, eopts ...Option) *Engine {
	e := &Engine{
		opts:    opts,
		locator: NewLocator(),
		logger:  nopLogger{},
	}
	for _, o := range eopts {
		o(e)
	}
	return e
}

// bestEffort logs a warning if a best-effort operation fails.
// Does nothing if err is nil.
func (e *Engine) bestEffort(op string, err error) {
	if err == nil {
		return
	}
	e.logger.Warn("best-effort operation failed", "op", op, "error", err)
}

// Status answers one request. A path outside any repository yields a
// Status with IsRepo false and a nil error; an error is returned only
// when a repository was found but could not be read.
func (e *Engine) Status(ctx context.Context, path string) (*Status, error) {
	repo, err := e.locator.Locate(path)
	if errors.Is(err, ErrNotRepository) {
		return &Status{}, nil
	}
	if err != nil {
		return nil, err
	}
	return e.repoStatus(ctx, repo)
}

func (e *Engine) repoStatus(ctx context.Context, repo *Repo) (*Status, error) {
	info, err := repo.readState()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", repo.Root, err)
	}

	st := &Status{
		IsRepo:         true,
		Workdir:        repo.Root,
		LocalBranch:    info.LocalBranch,
		UpstreamBranch: info.UpstreamBranch,
		RemoteURL:      info.RemoteURL,
		State:          info.State,
	}
	if info.HasCommit {
		st.HeadCommit = info.Commit.String()
	}

	if err := e.diff(ctx, repo, info, st); err != nil {
		return nil, fmt.Errorf("%s: %w", repo.Root, err)
	}

	if info.HasCommit && info.UpstreamRef != "" {
		ahead, behind, err := repo.divergence(info.Commit, info.UpstreamRef)
		e.bestEffort("counting divergence", err)
		st.Ahead, st.Behind = ahead, behind
	}
	if info.HasCommit {
		tag, err := repo.firstTag(info.Commit)
		e.bestEffort("resolving tags", err)
		st.FirstTag = tag
	}
	return st, nil
}
