package model

import (
	"fmt"
	"sort"
)

// ErrorKind classifies the fatal conditions a publish run can hit.
// Every kind maps to exit code 1; the kind exists so tests and JSON
// output can distinguish failures without string matching.
type ErrorKind string

const (
	// KindGeneral is the fallback for errors outside the publish taxonomy
	// (I/O failures, unexpected subprocess errors).
	KindGeneral ErrorKind = "general"

	// KindNotARepository indicates the working directory is not inside
	// a Git repository.
	KindNotARepository ErrorKind = "not-a-repository"

	// KindDirtyWorkingTree indicates uncommitted changes to tracked
	// files. Untracked files do not trigger this condition.
	KindDirtyWorkingTree ErrorKind = "dirty-working-tree"

	// KindManifestMissing indicates package.json was not found in the
	// working directory.
	KindManifestMissing ErrorKind = "manifest-missing"

	// KindManifestUnparseable indicates package.json exists but could
	// not be parsed or fails validation (missing name, bad version).
	KindManifestUnparseable ErrorKind = "manifest-unparseable"

	// KindPrivatePackageBlocked indicates the manifest declares
	// "private": true and --force was not given.
	KindPrivatePackageBlocked ErrorKind = "private-package-blocked"

	// KindRemoteNotFound indicates the configured remote name has no
	// resolvable URL.
	KindRemoteNotFound ErrorKind = "remote-not-found"

	// KindWorktreeCreationFailed indicates a temporary worktree could
	// not be created (old git, disk exhaustion, unborn HEAD).
	KindWorktreeCreationFailed ErrorKind = "worktree-creation-failed"

	// KindPackagingFailed indicates the external pack tool exited
	// non-zero or produced no tarball.
	KindPackagingFailed ErrorKind = "packaging-failed"

	// KindPackagingAmbiguous indicates the pack tool produced more than
	// one tarball, so the output cannot be identified.
	KindPackagingAmbiguous ErrorKind = "packaging-ambiguous"

	// KindNoPublishableFiles indicates the tarball contained zero
	// regular files.
	KindNoPublishableFiles ErrorKind = "no-publishable-files"

	// KindPushRejected indicates the remote refused the push
	// (non-fast-forward, permissions).
	KindPushRejected ErrorKind = "push-rejected"
)

// ExitCode defines the CLI exit code contract: 0 on success, 1 on any
// fatal error. The ErrorKind carries the finer-grained classification.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitFailure indicates any fatal error.
	ExitFailure ExitCode = 1
)

// CLIError is the error type carried across stage boundaries. It pairs
// a human-readable message with an ErrorKind and an optional underlying
// error for errors.Is/errors.As chains.
type CLIError struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with the given kind and message.
func NewCLIError(kind ErrorKind, message string) *CLIError {
	return &CLIError{Kind: kind, Message: message}
}

// WrapCLIError creates a CLIError that wraps an existing error.
func WrapCLIError(kind ErrorKind, message string, err error) *CLIError {
	return &CLIError{Kind: kind, Message: message, Err: err}
}

// PublishRequest is the immutable configuration for one publish run,
// derived from CLI flags before any repository inspection happens.
type PublishRequest struct {
	// WorkDir is the directory the user invoked the tool from.
	WorkDir string

	// Branch is the explicit target branch name. Empty means derive the
	// default ("npm/<branchOrTag>", suffixed with the package name when
	// publishing from a monorepo subdirectory).
	Branch string

	// Remote is the git remote to fetch from and push to.
	Remote string

	// Tag overrides the detected branch/tag name used for default
	// branch derivation and the commit message. Useful in detached-HEAD
	// CI checkouts where no branch name is available.
	Tag string

	// PackageManager overrides lockfile-based detection when non-empty.
	// Must name one of the supported managers.
	PackageManager string

	// Fresh discards remote history: the target branch ends up with
	// exactly one commit, force-pushed.
	Fresh bool

	// DryRun runs the read-only probes and prints the plan without
	// mutating any local or remote state.
	DryRun bool

	// Force bypasses the private-package guard.
	Force bool
}

// RepositoryContext holds everything the run needs to know about the
// repository, resolved once by the environment probe and read-only
// afterward.
type RepositoryContext struct {
	// WorkDir is the absolute working directory.
	WorkDir string

	// Root is the absolute path to the repository toplevel.
	Root string

	// Subdir is the POSIX-relative path from Root to WorkDir.
	// Empty when the working directory is the repository root,
	// i.e. not a monorepo subpackage.
	Subdir string

	// Branch is the current branch name, or the exact tag name when
	// HEAD is detached at a tag, or "HEAD" otherwise.
	Branch string

	// Commit is the current HEAD commit hash. Empty on a brand-new
	// repository with zero commits.
	Commit string

	// RemoteURL is the resolved URL of the configured remote.
	RemoteURL string
}

// BranchMode is the branch resolution decision: whether the target
// branch is created fresh with no history or repointed at the existing
// remote branch.
type BranchMode string

const (
	// ModeOrphan means the temporary branch has no parent history.
	// Used when --fresh is given or the target branch does not exist
	// on the remote. Pushing an orphan branch over existing history
	// requires force.
	ModeOrphan BranchMode = "orphan"

	// ModeRepoint means the target branch was fetched from the remote
	// and the new commit extends its history.
	ModeRepoint BranchMode = "repoint"
)

// String returns the string representation of BranchMode.
func (m BranchMode) String() string {
	return string(m)
}

// PublishTarget is the resolved destination of the run: the branch name
// plus the orphan-vs-repoint decision made by the branch resolution
// engine.
type PublishTarget struct {
	// Branch is the name of the branch on the remote.
	Branch string

	// Mode records how the local temporary branch was created.
	Mode BranchMode
}

// PackedFile is one regular file extracted from the pack tarball.
type PackedFile struct {
	// Path is the file's path relative to the package root, using
	// forward slashes.
	Path string `json:"path"`

	// Size is the file's size in bytes as declared by the tarball.
	Size int64 `json:"size"`
}

// PackedFileManifest is the ordered set of files extracted from the
// pack tarball. It exists for reporting and for the "no files"
// invariant check; it is never persisted.
type PackedFileManifest []PackedFile

// Sort orders the manifest lexicographically by path, giving
// deterministic, human-diffable output across runs.
func (m PackedFileManifest) Sort() {
	sort.Slice(m, func(i, j int) bool { return m[i].Path < m[j].Path })
}

// TotalSize returns the sum of all file sizes in bytes.
func (m PackedFileManifest) TotalSize() int64 {
	var total int64
	for _, f := range m {
		total += f.Size
	}
	return total
}

// Paths returns the file paths in manifest order.
func (m PackedFileManifest) Paths() []string {
	paths := make([]string, len(m))
	for i, f := range m {
		paths[i] = f.Path
	}
	return paths
}

// PublishResult describes a completed (or simulated) publish run.
// It is the payload of the --json output mode.
type PublishResult struct {
	// Branch is the target branch name on the remote.
	Branch string `json:"branch"`

	// Remote is the remote name that was pushed to.
	Remote string `json:"remote"`

	// Mode is the branch resolution decision. Empty on dry run.
	Mode BranchMode `json:"mode,omitempty"`

	// Commit is the commit hash now at the tip of the published branch.
	// Empty on dry run.
	Commit string `json:"commit,omitempty"`

	// Files lists the published files. Empty on dry run.
	Files PackedFileManifest `json:"files,omitempty"`

	// TotalSize is the aggregate size of Files in bytes.
	TotalSize int64 `json:"totalSize"`

	// PackageManager is the detected package manager name.
	PackageManager string `json:"packageManager"`

	// WorkspacePackage reports that the published subdirectory matches
	// a pnpm workspace member glob declared at the repository root.
	WorkspacePackage bool `json:"workspacePackage"`

	// InstallCommand is the copy-pasteable install command. Only set
	// when the remote URL matches a recognized hosting shorthand.
	InstallCommand string `json:"installCommand,omitempty"`

	// DryRun reports whether this was a simulation.
	DryRun bool `json:"dryRun"`

	// SkippedCommit reports that the packaged content was byte-identical
	// to the existing branch tip, so no new commit was created.
	SkippedCommit bool `json:"skippedCommit"`
}
