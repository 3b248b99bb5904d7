// Package watchdog terminates the daemon when its supervising process
// goes away. The supervisor advertises its liveness either by holding an
// exclusive advisory lock on an inherited file descriptor or by being
// able to receive a SIGWINCH ping; the watchdog probes the configured
// signal whenever the daemon has been idle for a full interval.
package watchdog

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/wasabi0522/sokuho/internal/config"
)

//go:generate moq -out checker_mock.go . Checker

// Checker probes an external liveness signal. A non-nil error means the
// supervisor is gone and the daemon must exit.
type Checker interface {
	Check() error
}

var _ Checker = (*LockChecker)(nil)
var _ Checker = (*SignalChecker)(nil)

// LockChecker verifies that some other process still holds an exclusive
// advisory lock on a file descriptor.
type LockChecker struct {
	fd int
}

// NewLockChecker returns a LockChecker for the given descriptor.
func NewLockChecker(fd int) *LockChecker {
	return &LockChecker{fd: fd}
}

// Check attempts a non-blocking flock. Failing to acquire the lock means
// the holder is alive; acquiring it means the holder released it or died.
func (c *LockChecker) Check() error {
	err := unix.Flock(c.fd, unix.LOCK_EX|unix.LOCK_NB)
	if err == nil {
		_ = unix.Flock(c.fd, unix.LOCK_UN)
		return fmt.Errorf("fd %d: advisory lock is no longer held", c.fd)
	}
	if errors.Is(err, unix.EWOULDBLOCK) {
		return nil
	}
	return fmt.Errorf("flock fd %d: %w", c.fd, err)
}

// SignalChecker verifies that a process can still receive SIGWINCH.
type SignalChecker struct {
	pid int
}

// NewSignalChecker returns a SignalChecker for the given process id.
func NewSignalChecker(pid int) *SignalChecker {
	return &SignalChecker{pid: pid}
}

// Check sends SIGWINCH. Delivery failure means the process is gone.
func (c *SignalChecker) Check() error {
	if err := unix.Kill(c.pid, unix.SIGWINCH); err != nil {
		return fmt.Errorf("sending SIGWINCH to pid %d: %w", c.pid, err)
	}
	return nil
}

// multi runs several checkers; the first failure wins.
type multi []Checker

func (m multi) Check() error {
	for _, c := range m {
		if err := c.Check(); err != nil {
			return err
		}
	}
	return nil
}

// FromOptions builds the checker configured by opts. Returns nil when
// neither lock_fd nor sigwinch_pid is set; when both are set, both are
// probed and either failure is fatal.
func FromOptions(opts *config.Options) Checker {
	var checkers multi
	if opts.LockFD >= 0 {
		checkers = append(checkers, NewLockChecker(opts.LockFD))
	}
	if opts.SigwinchPID >= 0 {
		checkers = append(checkers, NewSignalChecker(opts.SigwinchPID))
	}
	switch len(checkers) {
	case 0:
		return nil
	case 1:
		return checkers[0]
	default:
		return checkers
	}
}
