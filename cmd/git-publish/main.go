// Package main is the entry point for the git-publish CLI.
//
// This binary publishes the installable contents of an npm-ecosystem
// package to a dedicated branch of its own Git repository, so unreleased
// revisions can be installed from a Git URL. It delegates all
// functionality to the internal/cli package, which defines the cobra
// command tree.
//
// Build-time variables (version, commit, date) are injected via ldflags
// by GoReleaser during the release process. During development, they
// default to "dev", "none", and "unknown" respectively.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mmr-tortoise/git-publish/internal/cli"
)

// version, commit, and date are set by GoReleaser at build time
// via ldflags. They provide binary identification for --version output.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Inject build-time version info into the CLI package.
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	// A user interrupt (Ctrl-C, SIGTERM) cancels the context, which
	// terminates any in-flight git or pack subprocess. The deferred
	// cleanup in the publish engine still runs on the normal unwind,
	// so temporary worktrees and branches are removed even when the
	// run is interrupted mid-stage.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := cli.NewRootCommand()
	code := cli.Execute(ctx, rootCmd)
	stop()
	os.Exit(int(code))
}
