package gitx

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mmr-tortoise/git-publish/internal/model"
)

// Repo represents an opened Git repository, anchored at its toplevel
// directory. All repository-scoped queries and mutations go through it.
type Repo struct {
	run *Runner

	// Root is the absolute path to the repository toplevel.
	Root string
}

// OpenRepo resolves the repository containing dir.
//
// Uses `git rev-parse --show-toplevel`, which works from any
// subdirectory and from linked worktrees. Returns a CLIError with
// KindNotARepository when dir is not inside a Git repository; this is
// the fixed user-facing message the whole tool contract depends on.
func OpenRepo(ctx context.Context, run *Runner, dir string) (*Repo, error) {
	out, err := run.Output(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, model.NewCLIError(model.KindNotARepository, "Not in a git repository.")
	}
	return &Repo{run: run, Root: out}, nil
}

// Subdir returns the POSIX-relative path from the repository root to
// workDir. Empty string means workDir is the root itself, i.e. not a
// monorepo subpackage.
func (r *Repo) Subdir(workDir string) (string, error) {
	rel, err := filepath.Rel(r.Root, workDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s relative to repository root: %w", workDir, err)
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}

// CurrentBranch returns the current branch name. When HEAD is detached
// it falls back to the exact tag name if one points at HEAD, and to
// "HEAD" otherwise.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	out, err := r.run.Output(ctx, r.Root, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	if out != "HEAD" {
		return out, nil
	}

	// Detached HEAD: CI checkouts of tags land here. An exact tag match
	// gives a meaningful branch-name component; otherwise keep "HEAD".
	tag, tagErr := r.run.Output(ctx, r.Root, "describe", "--tags", "--exact-match")
	if tagErr == nil && tag != "" {
		return tag, nil
	}
	return "HEAD", nil
}

// Head returns the current HEAD commit hash. A brand-new repository
// with zero commits has an unborn HEAD; that case returns an empty
// string with no error, since downstream stages treat the hash as
// optional context, not a requirement.
func (r *Repo) Head(ctx context.Context) (string, error) {
	out, err := r.run.Output(ctx, r.Root, "rev-parse", "--verify", "--quiet", "HEAD")
	if err != nil {
		return "", nil
	}
	return out, nil
}

// RemoteURL resolves the URL of the named remote. Returns a CLIError
// with KindRemoteNotFound when the remote is not configured; this check
// runs before any worktree is created so a typo'd --remote aborts with
// zero side effects.
func (r *Repo) RemoteURL(ctx context.Context, name string) (string, error) {
	out, err := r.run.Output(ctx, r.Root, "remote", "get-url", name)
	if err != nil {
		return "", model.WrapCLIError(model.KindRemoteNotFound,
			fmt.Sprintf("remote %q is not configured", name), err)
	}
	return out, nil
}

// StatusEntries runs `git status --porcelain` in dir and returns the
// non-empty entry lines.
func (r *Repo) StatusEntries(ctx context.Context, dir string) ([]string, error) {
	out, err := r.run.Run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return nil, err
	}

	var entries []string
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) != "" {
			entries = append(entries, line)
		}
	}
	return entries, nil
}

// TrackedChanges returns the status entries for tracked files only.
// Untracked files (porcelain "??" entries) are explicitly ignored:
// they cannot leak into the publish because packaging runs from a clean
// worktree checkout of HEAD, so they must not block it either.
func (r *Repo) TrackedChanges(ctx context.Context, dir string) ([]string, error) {
	entries, err := r.StatusEntries(ctx, dir)
	if err != nil {
		return nil, err
	}

	var tracked []string
	for _, entry := range entries {
		if !strings.HasPrefix(entry, "??") {
			tracked = append(tracked, entry)
		}
	}
	return tracked, nil
}

// DeleteBranch force-deletes a local branch reference. Used during
// cleanup on the run's temporary branch, after its worktree has been
// removed (git refuses to delete a branch that is checked out).
func (r *Repo) DeleteBranch(ctx context.Context, branch string) error {
	_, err := r.run.Run(ctx, r.Root, "branch", "-D", branch)
	return err
}

// BranchExists checks whether a local branch with the given name exists.
// Uses `git rev-parse --verify` and only inspects the exit code.
func (r *Repo) BranchExists(ctx context.Context, branch string) bool {
	_, err := r.run.Run(ctx, r.Root, "rev-parse", "--verify", "--quiet", "refs/heads/"+branch)
	return err == nil
}
