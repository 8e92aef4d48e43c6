package gitx

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/mmr-tortoise/git-publish/internal/model"
)

// Runner executes git commands. It resolves the git executable once at
// construction so a missing binary fails fast, before any repository
// state is touched.
type Runner struct {
	// gitPath is the absolute path to the git executable.
	gitPath string
}

// NewRunner locates the git executable on PATH and returns a Runner.
func NewRunner() (*Runner, error) {
	p, err := exec.LookPath("git")
	if err != nil {
		return nil, model.WrapCLIError(model.KindGeneral,
			"no 'git' executable found on PATH", err)
	}
	return &Runner{gitPath: p}, nil
}

// ExecError describes a git command that ran and exited non-zero.
// It preserves the command's stderr, which is where git puts its
// human-readable diagnostics (e.g. push rejection reasons).
type ExecError struct {
	// Args are the git arguments that were run (without "git" itself).
	Args []string

	// Stderr is the trimmed stderr output of the failed command.
	Stderr string

	// Err is the underlying exec error.
	Err error
}

// Error satisfies the error interface.
func (e *ExecError) Error() string {
	msg := fmt.Sprintf("git %s failed", strings.Join(e.Args, " "))
	if e.Stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Stderr)
	}
	return msg
}

// Unwrap returns the underlying exec error.
func (e *ExecError) Unwrap() error {
	return e.Err
}

// Run executes a git command in the given directory and returns its
// stdout on success.
//
// The dir parameter is passed to git via the -C flag, which causes git
// to change to that directory before doing anything else. This avoids
// mutating the process's working directory, so concurrent operations on
// different worktrees within one run cannot interfere.
//
// The context cancels the subprocess; a user interrupt between stages
// terminates whatever git command is in flight.
func (r *Runner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", dir}, args...)

	// #nosec G204 -- args are constructed internally, not from user input
	cmd := exec.CommandContext(ctx, r.gitPath, fullArgs...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &ExecError{
			Args:   args,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}

	return stdout.String(), nil
}

// Output runs a git command and returns its stdout with surrounding
// whitespace trimmed. Most rev-parse style queries want exactly this.
func (r *Runner) Output(ctx context.Context, dir string, args ...string) (string, error) {
	out, err := r.Run(ctx, dir, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
