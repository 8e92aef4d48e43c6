// Package cli implements the cobra-based CLI for git-publish.
//
// git-publish is a single-purpose tool, so the root command itself runs
// the publish (publish.go); this file defines the command shell, global
// flags, and error/exit-code handling.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/git-publish/internal/model"
)

// Global flag variables bound to cobra persistent flags on the root
// command.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	// When true, the publish result is printed as structured JSON for
	// machine consumption. When false (default), output is
	// human-readable text.
	jsonOutput bool

	// verbose enables detailed logging output for debugging.
	// When true, per-stage information is printed to stderr.
	verbose bool
)

// Version, Commit, and Date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
// This is the entry point for the entire CLI application.
func NewRootCommand() *cobra.Command {
	rootCmd := newPublishCommand()

	rootCmd.Use = "git-publish"
	rootCmd.Short = "Publish package contents to a Git branch"
	rootCmd.Long = `git-publish packages the current npm/yarn/pnpm/bun package exactly the way
a registry publish would (manifest file lists, ignore rules, prepare/prepack
hooks) and pushes the result to a dedicated branch of the repository, so the
revision can be installed from a Git URL:

  npm install 'org/repo#npm/main'

Packaging runs in a disposable Git worktree, so lifecycle hooks never touch
your working directory, and the run is safe to repeat.`

	// SilenceUsage prevents cobra from printing usage on every error.
	// SilenceErrors prevents cobra from printing errors automatically;
	// we format errors ourselves (text or JSON based on --json).
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)

	// PersistentFlags so a future subcommand split inherits them.
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	return rootCmd
}

// Execute runs the root command and returns the process exit code:
// ExitSuccess, or ExitFailure after printing the error. The ctx
// carries interrupt cancellation from main, so an in-flight git or
// pack subprocess dies with the user's Ctrl-C.
func Execute(ctx context.Context, rootCmd *cobra.Command) model.ExitCode {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var cliErr *model.CLIError
		if errors.As(err, &cliErr) {
			printError(cliErr.Message, cliErr.Err, string(cliErr.Kind))
		} else {
			printError(err.Error(), nil, string(model.KindGeneral))
		}
		return model.ExitFailure
	}
	return model.ExitSuccess
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(message string, underlying error, kind string) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
				"kind":    kind,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// Errors go to stderr even in JSON mode; stdout is reserved for
		// successful command output.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		// Text format: "Error: <message>" on stderr, with the
		// underlying cause appended when one exists (e.g. git's own
		// push rejection text).
		if underlying != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", message)
		}
	}
}

// VerboseLog prints a message to stderr only when verbose mode is
// enabled.
func VerboseLog(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}
