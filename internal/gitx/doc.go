// Package gitx provides Git repository and worktree operations for the
// git-publish CLI.
//
// All Git operations are performed via os/exec calls to the git binary,
// rather than using a Git library like go-git. This approach:
//   - Avoids CGO dependencies (libgit2)
//   - Uses the exact same Git behavior the user sees in their terminal
//   - Covers operations Go Git libraries handle poorly or not at all:
//     linked worktrees, orphan checkouts, symbolic-ref manipulation,
//     shallow fetches into arbitrary local refs, hook-bypassing
//     commit and push
//
// The Runner resolves the git executable once; Repo wraps
// repository-scoped queries (toplevel, branch, head, remotes, status)
// and Worktree wraps the per-checkout mutations the publish engine
// performs inside its disposable worktrees.
package gitx
