// Package publish implements the publish orchestration engine for the
// git-publish CLI.
//
// One Publisher.Run call executes the full stage sequence:
//
//	probe → guard → worktree isolation → branch resolution →
//	packaging → commit & push → cleanup (always)
//
// The engine coordinates four external stateful systems (the local
// Git repository, the remote Git endpoint, the package manager's pack
// tool, and the filesystem) under two guarantees:
//
//   - Isolation: the user's working directory is only ever read.
//     Packing (including prepare/prepack lifecycle hooks) runs inside a
//     disposable pack worktree; the commit is built inside a disposable
//     publish worktree.
//   - Re-entrancy: temporary paths and branch names are derived from
//     wall-clock time and the process id, and every temporary resource
//     is released on all exit paths, so repeated or concurrent runs
//     never corrupt prior state.
package publish
