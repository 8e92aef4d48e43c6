package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mmr-tortoise/git-publish/internal/gitx"
)

// session owns the disposable resources of one publish run: a uniquely
// named temporary directory tree, the pack and publish worktrees inside
// it, and the run's temporary local branch name.
//
// The namespace combines wall-clock time and the process id, so
// concurrent invocations on the same machine (or the same repository)
// never collide on worktree paths or branch names.
type session struct {
	repo *gitx.Repo

	// baseDir is the per-run namespace under the system temp directory.
	baseDir string

	// stagingDir receives the pack tool's tarball.
	stagingDir string

	// tempBranch is the run's local branch name, deleted in Release.
	tempBranch string

	// packWT runs the pack tool; publishWT becomes the target branch.
	packWT    *gitx.Worktree
	publishWT *gitx.Worktree

	released bool
}

// newSession creates the run namespace and both worktrees, each checked
// out detached at the repository's current HEAD.
//
// On partial failure, anything already created is released before the
// error is returned, so the caller never has to clean up a half-built
// session.
func newSession(ctx context.Context, repo *gitx.Repo, logf func(string, ...interface{})) (*session, error) {
	id := fmt.Sprintf("%d-%d", time.Now().UnixNano(), os.Getpid())

	s := &session{
		repo:       repo,
		baseDir:    filepath.Join(os.TempDir(), "git-publish-"+id),
		tempBranch: "git-publish/" + id,
	}
	s.stagingDir = filepath.Join(s.baseDir, "staging")

	if err := os.MkdirAll(s.stagingDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	var err error
	s.packWT, err = repo.AddWorktreeDetached(ctx, filepath.Join(s.baseDir, "pack"))
	if err != nil {
		s.Release(logf)
		return nil, err
	}

	s.publishWT, err = repo.AddWorktreeDetached(ctx, filepath.Join(s.baseDir, "publish"))
	if err != nil {
		s.Release(logf)
		return nil, err
	}

	return s, nil
}

// Release tears down everything the session created: both worktrees
// (forced, they hold extracted or uncommitted content), the temporary
// branch, and the namespace directory. It is idempotent and runs on
// every exit path.
//
// Cleanup uses a fresh context: the run's own context may already be
// cancelled by the time the deferred Release fires, and best-effort
// cleanup should still proceed. Failures are logged, never returned:
// the first error of the run stays authoritative.
func (s *session) Release(logf func(string, ...interface{})) {
	if s.released {
		return
	}
	s.released = true

	ctx := context.Background()

	// Worktrees first: git refuses to delete a branch that is still
	// checked out in a worktree.
	for _, wt := range []*gitx.Worktree{s.publishWT, s.packWT} {
		if wt == nil {
			continue
		}
		if err := wt.Remove(ctx, true); err != nil {
			logf("cleanup: failed to remove worktree %s: %v", wt.Dir, err)
		}
	}

	// The branch only exists once branch resolution has run; earlier
	// aborts have nothing to delete.
	if s.repo.BranchExists(ctx, s.tempBranch) {
		if err := s.repo.DeleteBranch(ctx, s.tempBranch); err != nil {
			logf("cleanup: temporary branch %s not deleted: %v", s.tempBranch, err)
		}
	}

	if err := os.RemoveAll(s.baseDir); err != nil {
		logf("cleanup: failed to remove %s: %v", s.baseDir, err)
	}
}
