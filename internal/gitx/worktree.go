package gitx

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmr-tortoise/git-publish/internal/model"
)

// Worktree is a linked checkout of the repository at its own directory,
// sharing the repository's object database. One publish run owns two:
// the pack worktree (where the pack tool and its lifecycle hooks run,
// isolated from the user's files) and the publish worktree (which is
// repointed to the target branch and pushed).
type Worktree struct {
	repo *Repo

	// Dir is the absolute path of the worktree's working directory.
	Dir string
}

// AddWorktreeDetached creates a new worktree at dir, checked out
// detached at the repository's current HEAD. Detached is deliberate:
// the worktree must not occupy any branch name, since git allows a
// branch to be checked out in at most one worktree.
//
// Returns a CLIError with KindWorktreeCreationFailed on failure (old
// git, disk exhaustion, unborn HEAD). Nothing has been pushed at that
// point, so aborting is side-effect free.
func (r *Repo) AddWorktreeDetached(ctx context.Context, dir string) (*Worktree, error) {
	if _, err := r.run.Run(ctx, r.Root, "worktree", "add", "--detach", dir, "HEAD"); err != nil {
		return nil, model.WrapCLIError(model.KindWorktreeCreationFailed,
			fmt.Sprintf("failed to create temporary worktree at %s", dir), err)
	}
	return &Worktree{repo: r, Dir: dir}, nil
}

// Remove deletes the worktree. force allows removal of worktrees with
// uncommitted or untracked content, which the publish worktree always
// has by the time cleanup runs.
func (w *Worktree) Remove(ctx context.Context, force bool) error {
	args := []string{"worktree", "remove", w.Dir}
	if force {
		args = []string{"worktree", "remove", "--force", w.Dir}
	}
	_, err := w.repo.run.Run(ctx, w.repo.Root, args...)
	return err
}

// FetchBranch fetches remote branch into the local branch name with
// depth 1. A shallow fetch is enough: the fetched tip only serves as
// the parent of the one commit this run creates.
//
// The boolean result distinguishes "branch does not exist on the
// remote" (false, nil) from a real transport failure. Git reports the
// missing-ref case with "couldn't find remote ref" on stderr.
func (w *Worktree) FetchBranch(ctx context.Context, remote, branch, local string) (bool, error) {
	refspec := fmt.Sprintf("%s:%s", branch, local)
	_, err := w.repo.run.Run(ctx, w.Dir, "fetch", "--depth", "1", remote, refspec)
	if err == nil {
		return true, nil
	}

	var execErr *ExecError
	if errors.As(err, &execErr) && strings.Contains(execErr.Stderr, "couldn't find remote ref") {
		return false, nil
	}
	return false, err
}

// CheckoutOrphan switches the worktree to a new orphan branch: a branch
// with no parent commit. The index and working files carried over from
// HEAD are not touched by git here; the caller scrubs them separately.
func (w *Worktree) CheckoutOrphan(ctx context.Context, branch string) error {
	_, err := w.repo.run.Run(ctx, w.Dir, "checkout", "--orphan", branch)
	return err
}

// PointHeadAt repoints the worktree's HEAD at the given local branch
// without checking out its file contents. `git symbolic-ref` updates
// only the HEAD reference; the index and working directory keep their
// previous state, which the caller scrubs next.
func (w *Worktree) PointHeadAt(ctx context.Context, branch string) error {
	_, err := w.repo.run.Run(ctx, w.Dir, "symbolic-ref", "HEAD", "refs/heads/"+branch)
	return err
}

// ClearIndex empties the worktree's index of all tracked entries via
// `git read-tree --empty`. Files on disk are unaffected.
func (w *Worktree) ClearIndex(ctx context.Context) error {
	_, err := w.repo.run.Run(ctx, w.Dir, "read-tree", "--empty")
	return err
}

// AddAll stages everything in the worktree's working directory.
func (w *Worktree) AddAll(ctx context.Context) error {
	_, err := w.repo.run.Run(ctx, w.Dir, "add", "-A")
	return err
}

// HasStagedChanges reports whether the worktree has any changes
// relative to its HEAD. An empty porcelain status after AddAll means
// the packaged content is byte-identical to the existing branch tip.
func (w *Worktree) HasStagedChanges(ctx context.Context) (bool, error) {
	entries, err := w.repo.StatusEntries(ctx, w.Dir)
	if err != nil {
		return false, err
	}
	return len(entries) > 0, nil
}

// Commit creates a commit with the given identity and message,
// bypassing repository commit hooks. The identity is applied with -c
// config overrides so both author and committer carry it, leaving the
// user's own git identity untouched.
func (w *Worktree) Commit(ctx context.Context, name, email, message string) error {
	_, err := w.repo.run.Run(ctx, w.Dir,
		"-c", "user.name="+name,
		"-c", "user.email="+email,
		"commit", "--no-verify", "-m", message)
	return err
}

// Head returns the worktree's current HEAD commit hash.
func (w *Worktree) Head(ctx context.Context) (string, error) {
	return w.repo.run.Output(ctx, w.Dir, "rev-parse", "HEAD")
}

// Push pushes the worktree's HEAD to the named branch on the remote,
// bypassing push hooks. force is passed only in orphan mode, where the
// rewritten history is non-fast-forward by construction.
//
// Returns a CLIError with KindPushRejected carrying git's own stderr
// text, which names the actual reason (non-fast-forward, permissions).
func (w *Worktree) Push(ctx context.Context, remote, branch string, force bool) error {
	args := []string{"push", "--no-verify"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, remote, "HEAD:refs/heads/"+branch)

	if _, err := w.repo.run.Run(ctx, w.Dir, args...); err != nil {
		return model.WrapCLIError(model.KindPushRejected,
			fmt.Sprintf("push to %s/%s was rejected", remote, branch), err)
	}
	return nil
}
