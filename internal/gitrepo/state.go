package gitrepo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5/plumbing"
)

// State classifies the in-progress operation of a repository. Exactly one
// value applies at a time.
type State int

const (
	StateNone State = iota
	StateRebasing
	StateMerging
	StateCherryPicking
	StateReverting
	StateBisecting
)

var stateStrings = [...]string{
	StateNone:          "",
	StateRebasing:      "rebasing",
	StateMerging:       "merging",
	StateCherryPicking: "cherry-picking",
	StateReverting:     "reverting",
	StateBisecting:     "bisecting",
}

// String returns the protocol representation of the state; StateNone is
// the empty string.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateStrings) {
		return ""
	}
	return stateStrings[s]
}

// MarshalText implements encoding.TextMarshaler for JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// headInfo is the result of reading HEAD, branch configuration and the
// operation markers.
type headInfo struct {
	Commit         plumbing.Hash
	HasCommit      bool
	LocalBranch    string
	UpstreamBranch string
	UpstreamRef    plumbing.ReferenceName
	RemoteURL      string
	State          State
}

// readState reads HEAD and resolves the branch, its configured upstream
// and the upstream remote's URL. A repository with no commits yet leaves
// Commit unset; a detached HEAD leaves LocalBranch empty.
func (r *Repo) readState() (*headInfo, error) {
	info := &headInfo{State: r.operationState()}

	headRef, err := r.repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return nil, fmt.Errorf("reading HEAD: %w", err)
	}

	if headRef.Type() == plumbing.SymbolicReference {
		target := headRef.Target()
		if target.IsBranch() {
			info.LocalBranch = target.Short()
		}
		if resolved, err := r.repo.Reference(target, true); err == nil {
			info.Commit = resolved.Hash()
			info.HasCommit = true
		}
		// An unresolvable branch target means an unborn HEAD; report the
		// branch with no commit rather than failing the request.
	} else {
		info.Commit = headRef.Hash()
		info.HasCommit = !info.Commit.IsZero()
	}

	if info.LocalBranch != "" {
		r.readUpstream(info)
	}
	return info, nil
}

// readUpstream fills in the upstream branch and remote URL from the
// repository configuration. Best effort: a missing or odd configuration
// simply means no upstream.
func (r *Repo) readUpstream(info *headInfo) {
	cfg, err := r.repo.Config()
	if err != nil {
		return
	}
	branch, ok := cfg.Branches[info.LocalBranch]
	if !ok || branch.Remote == "" || branch.Merge == "" {
		return
	}
	short := branch.Merge.Short()
	info.UpstreamBranch = short
	if branch.Remote == "." {
		// Upstream is a local branch.
		info.UpstreamRef = branch.Merge
		return
	}
	info.UpstreamRef = plumbing.NewRemoteReferenceName(branch.Remote, short)
	if remote, ok := cfg.Remotes[branch.Remote]; ok && len(remote.URLs) > 0 {
		info.RemoteURL = remote.URLs[0]
	}
}

// operationState checks the administrative directory for in-progress
// operation markers. When markers conflict the first match wins, in this
// order: rebase, merge, cherry-pick, revert, bisect.
func (r *Repo) operationState() State {
	exists := func(name string) bool {
		_, err := os.Stat(filepath.Join(r.GitDir, name))
		return err == nil
	}
	switch {
	case exists("rebase-merge"), exists("rebase-apply"):
		return StateRebasing
	case exists("MERGE_HEAD"):
		return StateMerging
	case exists("CHERRY_PICK_HEAD"):
		return StateCherryPicking
	case exists("REVERT_HEAD"):
		return StateReverting
	case exists("BISECT_LOG"):
		return StateBisecting
	default:
		return StateNone
	}
}
