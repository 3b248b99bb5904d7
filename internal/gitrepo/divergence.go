package gitrepo

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// divergence counts the commits reachable from HEAD but not from the
// upstream tip (ahead) and vice versa (behind), relative to their merge
// base. An upstream that is configured but has no local tracking ref yet
// (never fetched) counts as zero divergence.
func (r *Repo) divergence(head plumbing.Hash, upstream plumbing.ReferenceName) (ahead, behind int, err error) {
	ref, err := r.repo.Reference(upstream, true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("resolving %s: %w", upstream, err)
	}
	if ref.Hash() == head {
		return 0, 0, nil
	}

	local, err := r.repo.CommitObject(head)
	if err != nil {
		return 0, 0, fmt.Errorf("reading commit %s: %w", head, err)
	}
	remote, err := r.repo.CommitObject(ref.Hash())
	if err != nil {
		return 0, 0, fmt.Errorf("reading commit %s: %w", ref.Hash(), err)
	}

	bases, err := local.MergeBase(remote)
	if err != nil {
		return 0, 0, fmt.Errorf("finding merge base: %w", err)
	}
	ignore := make([]plumbing.Hash, len(bases))
	for i, base := range bases {
		ignore[i] = base.Hash
	}

	if ahead, err = countCommits(local, ignore); err != nil {
		return 0, 0, err
	}
	if behind, err = countCommits(remote, ignore); err != nil {
		return 0, 0, err
	}
	return ahead, behind, nil
}

// countCommits counts commits reachable from tip, pruning at the ignored
// hashes. With the merge bases ignored this yields one side of the
// symmetric difference.
func countCommits(tip *object.Commit, ignore []plumbing.Hash) (int, error) {
	count := 0
	iter := object.NewCommitPreorderIter(tip, nil, ignore)
	err := iter.ForEach(func(*object.Commit) error {
		count++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walking commits from %s: %w", tip.Hash, err)
	}
	return count, nil
}

// firstTag returns the tag name sorting first in bytewise lexicographic
// order among all tags pointing, directly or through annotated tag
// objects, at head. Empty if no tag points at head.
func (r *Repo) firstTag(head plumbing.Hash) (string, error) {
	iter, err := r.repo.Tags()
	if err != nil {
		return "", fmt.Errorf("listing tags: %w", err)
	}
	defer iter.Close()

	best := ""
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		if best != "" && name >= best {
			// Cannot improve the answer; skip the peel.
			return nil
		}
		target, err := r.peelTag(ref.Hash())
		if err != nil {
			// An unresolvable tag cannot point at HEAD; skip it.
			return nil
		}
		if target == head {
			best = name
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("iterating tags: %w", err)
	}
	return best, nil
}

// peelTag follows annotated tag objects until a non-tag object is reached.
func (r *Repo) peelTag(h plumbing.Hash) (plumbing.Hash, error) {
	for {
		tag, err := r.repo.TagObject(h)
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return h, nil
		}
		if err != nil {
			return h, err
		}
		h = tag.Target
	}
}
