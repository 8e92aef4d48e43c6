package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mmr-tortoise/git-publish/internal/gitx"
	"github.com/mmr-tortoise/git-publish/internal/model"
)

// resolveBranch runs the branch resolution state machine inside the
// publish worktree and returns the resolved PublishTarget carrying the
// Orphan/Repoint decision.
//
//	Start ──fresh──────────────────────▶ Orphan
//	Start ──fetch target (depth 1)──ok─▶ Repoint
//	                       └──missing──▶ Orphan
//
// Both paths end with the same terminal state: the worktree is on the
// run's temporary branch, the index is empty, and the working directory
// holds nothing but .git, so stale files from a previous publish can
// never leak into the new commit.
//
// History is preserved by default (Repoint) because installers pin
// commit hashes: a commit that becomes unreachable from every branch is
// eligible for garbage collection on the remote, which would break
// installs referencing it. Fresh mode trades that safety for a
// single-commit branch and therefore must force-push.
func resolveBranch(ctx context.Context, s *session, remote, branch string, fresh bool) (model.PublishTarget, error) {
	target := model.PublishTarget{Branch: branch, Mode: model.ModeOrphan}

	if !fresh {
		found, err := s.publishWT.FetchBranch(ctx, remote, branch, s.tempBranch)
		if err != nil {
			return target, fmt.Errorf("failed to fetch %s/%s: %w", remote, branch, err)
		}
		if found {
			target.Mode = model.ModeRepoint
		}
	}

	switch target.Mode {
	case model.ModeRepoint:
		// Repoint HEAD at the fetched branch without checking out its
		// files; the packaging pipeline populates the tree itself.
		if err := s.publishWT.PointHeadAt(ctx, s.tempBranch); err != nil {
			return target, err
		}
	case model.ModeOrphan:
		if err := s.publishWT.CheckoutOrphan(ctx, s.tempBranch); err != nil {
			return target, err
		}
	}

	// Full tree reset: empty the index and scrub the working directory.
	// The detached checkout's files (and, in orphan mode, git's
	// carried-over staging) must all go.
	if err := s.publishWT.ClearIndex(ctx); err != nil {
		return target, err
	}
	if err := scrubWorktreeDir(s.publishWT); err != nil {
		return target, err
	}

	return target, nil
}

// scrubWorktreeDir deletes every entry in the worktree's directory
// except the .git link file that ties it to the repository.
func scrubWorktreeDir(wt *gitx.Worktree) error {
	entries, err := os.ReadDir(wt.Dir)
	if err != nil {
		return fmt.Errorf("failed to read worktree directory: %w", err)
	}

	for _, entry := range entries {
		if entry.Name() == ".git" {
			continue
		}
		if err := os.RemoveAll(filepath.Join(wt.Dir, entry.Name())); err != nil {
			return fmt.Errorf("failed to clear worktree entry %s: %w", entry.Name(), err)
		}
	}
	return nil
}
