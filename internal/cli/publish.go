// The command layer stays thin: it translates flags into a
// model.PublishRequest, hands it to the publish engine, and renders
// the result. All orchestration lives in internal/publish.

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/git-publish/internal/model"
	"github.com/mmr-tortoise/git-publish/internal/publish"
)

// publishFlags holds the flag values for the publish run.
type publishFlags struct {
	branch  string // --branch: explicit target branch, bypassing derivation
	remote  string // --remote: push/fetch remote
	tag     string // --tag: name override for detached-HEAD checkouts
	manager string // --package-manager: bypass lockfile detection
	fresh   bool   // --fresh: discard history, force-push one commit
	dryRun  bool   // --dry-run: simulate without mutating anything
	force   bool   // --force: bypass the private-package guard
}

// newPublishCommand creates the cobra command that performs the
// publish. NewRootCommand dresses it up as the root command.
func newPublishCommand() *cobra.Command {
	flags := &publishFlags{}

	cmd := &cobra.Command{
		Args: cobra.NoArgs,

		// RunE so errors flow to the Execute handler in root.go.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd.Context(), flags)
		},

		Example: `  git-publish
  git-publish --fresh
  git-publish --branch releases/canary --remote upstream
  git-publish --dry-run --verbose`,
	}

	cmd.Flags().StringVarP(&flags.branch, "branch", "b", "", "Target branch name (default: npm/<branch>[-<package>])")
	cmd.Flags().StringVarP(&flags.remote, "remote", "r", "origin", "Git remote to fetch from and push to")
	cmd.Flags().StringVar(&flags.tag, "tag", "", "Use this tag name instead of the detected branch")
	cmd.Flags().StringVar(&flags.manager, "package-manager", "", "Package manager to pack with (npm|yarn|pnpm|bun, default: detected)")
	cmd.Flags().BoolVar(&flags.fresh, "fresh", false, "Discard branch history and force-push a single commit")
	cmd.Flags().BoolVarP(&flags.dryRun, "dry-run", "n", false, "Preview the publish without changing anything")
	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Publish even if the package is marked private")

	return cmd
}

// newRequest converts parsed flags into the immutable request the
// engine consumes.
func newRequest(workDir string, flags *publishFlags) model.PublishRequest {
	return model.PublishRequest{
		WorkDir:        workDir,
		Branch:         flags.branch,
		Remote:         flags.remote,
		Tag:            flags.tag,
		PackageManager: flags.manager,
		Fresh:          flags.fresh,
		DryRun:         flags.dryRun,
		Force:          flags.force,
	}
}

// runPublish executes the publish engine and renders its result.
func runPublish(ctx context.Context, flags *publishFlags) error {
	cwd, err := os.Getwd()
	if err != nil {
		return model.WrapCLIError(model.KindGeneral, "failed to get current directory", err)
	}

	p := &publish.Publisher{Logf: VerboseLog}
	if IsJSONOutput() {
		// In JSON mode stdout carries exactly one JSON document; the
		// engine's progress listing goes to stderr instead.
		p.Out = os.Stderr
	}

	result, err := p.Run(ctx, newRequest(cwd, flags))
	if err != nil {
		return err
	}

	printResult(result)
	return nil
}

// printResult outputs the publish result in text or JSON format.
func printResult(result *model.PublishResult) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	if result.DryRun {
		fmt.Printf("Dry run complete. Would publish to %q on %q.\n", result.Branch, result.Remote)
		if result.InstallCommand != "" {
			fmt.Printf("\nInstall with:\n  %s\n", result.InstallCommand)
		}
		return
	}

	short := result.Commit
	if len(short) > 7 {
		short = short[:7]
	}
	fmt.Printf("\nPublished to %q on %q (%s)\n", result.Branch, result.Remote, short)

	if result.InstallCommand != "" {
		fmt.Printf("\nInstall with:\n  %s\n", result.InstallCommand)
	}
}
