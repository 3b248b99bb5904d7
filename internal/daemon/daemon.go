// Package daemon runs the request/response loop: it reads one status
// request at a time, asks the engine, and writes one response, preserving
// input order. Per-request failures are contained — an unreadable
// repository answers as "not a repository" — while liveness loss is fatal
// to the process.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/wasabi0522/sokuho/internal/gitrepo"
	"github.com/wasabi0522/sokuho/internal/protocol"
	"github.com/wasabi0522/sokuho/internal/watchdog"
)

//go:generate moq -out engine_mock.go . Engine

// Engine answers a single status request.
type Engine interface {
	Status(ctx context.Context, path string) (*gitrepo.Status, error)
}

var _ Engine = (*gitrepo.Engine)(nil)

// Logger defines an interface for logging contained failures.
type Logger interface {
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Warn(string, ...any) {}

// Option configures a Daemon.
type Option func(*Daemon)

// WithLogger sets the logger for contained per-request failures.
func WithLogger(l Logger) Option {
	return func(d *Daemon) { d.logger = l }
}

// WithWatchdog attaches a liveness watchdog; its failure terminates Run.
func WithWatchdog(w *watchdog.Watchdog) Option {
	return func(d *Daemon) { d.watchdog = w }
}

// Daemon dispatches requests from an input stream to the engine.
type Daemon struct {
	engine   Engine
	watchdog *watchdog.Watchdog
	logger   Logger
}

// New creates a Daemon around engine.
func New(engine Engine, opts ...Option) *Daemon {
	d := &Daemon{engine: engine, logger: nopLogger{}}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Run serves requests from in on out until end of input (nil) or a fatal
// condition (non-nil). Requests are handled strictly one at a time and
// responses are emitted in request order.
func (d *Daemon) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	watchErr := make(chan error, 1)
	if d.watchdog != nil {
		go func() { watchErr <- d.watchdog.Run(ctx) }()
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- d.serve(ctx, in, out) }()

	select {
	case err := <-serveErr:
		return err
	case err := <-watchErr:
		if err != nil {
			return err
		}
		// Watchdog stopped cleanly (context canceled); wait for the loop.
		return <-serveErr
	}
}

func (d *Daemon) serve(ctx context.Context, in io.Reader, out io.Writer) error {
	dec := protocol.NewDecoder(in)
	enc := protocol.NewEncoder(out)
	for {
		req, err := dec.Next()
		var malformed *protocol.MalformedRecordError
		switch {
		case errors.As(err, &malformed):
			d.logger.Warn("skipping malformed request", "error", err)
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return fmt.Errorf("reading request: %w", err)
		}

		if d.watchdog != nil {
			d.watchdog.Touch()
		}
		resp := d.handle(ctx, req)
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
		if d.watchdog != nil {
			// A long diff must not count as idleness.
			d.watchdog.Touch()
		}
	}
}

// handle computes one response. Engine failures are contained: the
// request is answered as "not a repository" and the daemon keeps serving.
func (d *Daemon) handle(ctx context.Context, req protocol.Request) protocol.Response {
	st, err := d.engine.Status(ctx, req.Path)
	if err != nil {
		d.logger.Warn("status computation failed", "path", req.Path, "error", err)
		return protocol.Response{ID: req.ID}
	}
	return toResponse(req.ID, st)
}

func toResponse(id string, st *gitrepo.Status) protocol.Response {
	if !st.IsRepo {
		return protocol.Response{ID: id}
	}
	staged := gitrepo.TriFalse
	if st.HasStaged {
		staged = gitrepo.TriTrue
	}
	return protocol.Response{
		ID:             id,
		IsRepo:         true,
		Workdir:        st.Workdir,
		HeadCommit:     st.HeadCommit,
		LocalBranch:    st.LocalBranch,
		UpstreamBranch: st.UpstreamBranch,
		RemoteURL:      st.RemoteURL,
		State:          st.State.String(),
		HasStaged:      staged.Field(),
		HasUnstaged:    st.HasUnstaged.Field(),
		HasUntracked:   st.HasUntracked.Field(),
		Ahead:          st.Ahead,
		Behind:         st.Behind,
		FirstTag:       st.FirstTag,
	}
}
