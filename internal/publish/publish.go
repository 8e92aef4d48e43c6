package publish

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/docker/go-units"

	"github.com/mmr-tortoise/git-publish/internal/gitx"
	"github.com/mmr-tortoise/git-publish/internal/manifest"
	"github.com/mmr-tortoise/git-publish/internal/model"
	"github.com/mmr-tortoise/git-publish/internal/pm"
)

// Default bot identity for publish commits. Distinct from the user's
// own git identity so publish commits are visibly attributable to the
// tool.
const (
	defaultBotName  = "git-publish"
	defaultBotEmail = "git-publish@users.noreply.github.com"
)

// Publisher executes publish runs. The zero value is usable; all fields
// are optional overrides, injected mainly by tests.
type Publisher struct {
	// Git runs git commands. Defaults to a fresh runner resolved from
	// PATH.
	Git *gitx.Runner

	// Packer produces the package tarball. Defaults to the detected
	// package manager's pack command.
	Packer Packer

	// Out receives the user-facing progress output (file listing,
	// summary lines). Defaults to os.Stdout.
	Out io.Writer

	// ErrOut receives warnings. Defaults to os.Stderr.
	ErrOut io.Writer

	// Logf is the verbose logger. Defaults to a no-op.
	Logf func(format string, args ...interface{})

	// BotName and BotEmail override the commit identity.
	BotName  string
	BotEmail string
}

// Run executes one publish according to req and returns the result.
//
// All fatal conditions abort the remaining stages immediately; the
// deferred session release still removes both worktrees, the temporary
// branch, and the staging directory.
func (p *Publisher) Run(ctx context.Context, req model.PublishRequest) (*model.PublishResult, error) {
	p.applyDefaults()

	if p.Git == nil {
		runner, err := gitx.NewRunner()
		if err != nil {
			return nil, err
		}
		p.Git = runner
	}

	// ---- Environment probe -------------------------------------------

	workDir, err := filepath.Abs(req.WorkDir)
	if err != nil {
		return nil, model.WrapCLIError(model.KindGeneral, "failed to resolve working directory", err)
	}

	repo, err := gitx.OpenRepo(ctx, p.Git, workDir)
	if err != nil {
		return nil, err
	}

	repoCtx, err := p.probe(ctx, repo, workDir, req)
	if err != nil {
		return nil, err
	}
	p.Logf("Repository root: %s", repoCtx.Root)
	if repoCtx.Subdir != "" {
		p.Logf("Monorepo subpackage: %s", repoCtx.Subdir)
	}

	manager, err := resolveManager(workDir, repoCtx.Root, req)
	if err != nil {
		return nil, err
	}
	p.Logf("Package manager: %s", manager)

	workspaceMember := false
	if globs, wsErr := pm.Workspaces(repoCtx.Root); wsErr == nil && len(globs) > 0 {
		workspaceMember = pm.Member(globs, repoCtx.Subdir)
		p.Logf("pnpm workspace globs: %v (member: %t)", globs, workspaceMember)
	}

	// ---- Preflight guard ---------------------------------------------

	tracked, err := repo.TrackedChanges(ctx, repoCtx.Root)
	if err != nil {
		return nil, err
	}
	if len(tracked) > 0 {
		return nil, model.NewCLIError(model.KindDirtyWorkingTree,
			"working tree has uncommitted changes; commit or stash them first")
	}

	man, err := manifest.Load(workDir)
	if err != nil {
		return nil, err
	}
	p.Logf("Package: %s@%s", man.Name, man.Version)
	if hooks := man.LifecycleHooks(); len(hooks) > 0 {
		p.Logf("Lifecycle hooks that will run during packing: %v", hooks)
	}

	if man.Private && !req.Force {
		return nil, model.NewCLIError(model.KindPrivatePackageBlocked,
			fmt.Sprintf("package %q is marked private; pass --force to publish anyway", man.Name))
	}

	// ---- Target resolution -------------------------------------------

	targetBranch := req.Branch
	if targetBranch == "" {
		targetBranch = DeriveBranchName(repoCtx.Branch, man.Name, repoCtx.Subdir != "")
	}
	p.Logf("Target branch: %s on %s (%s)", targetBranch, req.Remote, repoCtx.RemoteURL)

	result := &model.PublishResult{
		Branch:           targetBranch,
		Remote:           req.Remote,
		PackageManager:   manager.String(),
		InstallCommand:   InstallCommand(manager, repoCtx.RemoteURL, targetBranch),
		WorkspacePackage: workspaceMember,
		DryRun:           req.DryRun,
	}

	if req.DryRun {
		// Every mutating sub-step is skipped; the read-only checks above
		// already ran, so the user sees the full plan.
		plan := fmt.Sprintf("Dry run: would publish %s to %s/%s", man.Name, req.Remote, targetBranch)
		if workspaceMember {
			plan += " (pnpm workspace package)"
		}
		fmt.Fprintln(p.Out, plan)
		return result, nil
	}

	// ---- Worktree isolation ------------------------------------------

	s, err := newSession(ctx, repo, p.Logf)
	if err != nil {
		return nil, err
	}
	defer s.Release(p.Logf)
	p.Logf("Pack worktree: %s", s.packWT.Dir)
	p.Logf("Publish worktree: %s", s.publishWT.Dir)

	// ---- Branch resolution -------------------------------------------

	target, err := resolveBranch(ctx, s, req.Remote, targetBranch, req.Fresh)
	if err != nil {
		return nil, err
	}
	result.Mode = target.Mode
	p.Logf("Branch resolution: %s", target.Mode)

	// ---- Packaging pipeline ------------------------------------------

	packer := p.Packer
	if packer == nil {
		packer = NewManagerPacker(manager)
	}

	packDir := filepath.Join(s.packWT.Dir, filepath.FromSlash(repoCtx.Subdir))
	p.Logf("Running pack in %s", packDir)
	if err := packer.Pack(ctx, packDir, s.stagingDir); err != nil {
		return nil, err
	}

	tarball, err := findTarball(s.stagingDir)
	if err != nil {
		return nil, err
	}
	p.Logf("Tarball: %s", tarball)

	files, err := extractTarball(tarball, s.publishWT.Dir)
	if err != nil {
		return nil, err
	}
	result.Files = files
	result.TotalSize = files.TotalSize()

	p.printFiles(files)

	// ---- Commit & push -----------------------------------------------

	if err := s.publishWT.AddAll(ctx); err != nil {
		return nil, err
	}

	staged, err := s.publishWT.HasStagedChanges(ctx)
	if err != nil {
		return nil, err
	}
	if staged {
		message := commitMessage(repoCtx)
		if err := s.publishWT.Commit(ctx, p.BotName, p.BotEmail, message); err != nil {
			return nil, err
		}
	} else {
		// Identical content: push the existing tip unchanged instead of
		// stacking a redundant empty commit.
		result.SkippedCommit = true
		fmt.Fprintf(p.ErrOut, "Warning: package content is identical to %s/%s; pushing without a new commit\n",
			req.Remote, targetBranch)
	}

	if err := s.publishWT.Push(ctx, req.Remote, target.Branch, target.Mode == model.ModeOrphan); err != nil {
		return nil, err
	}

	head, err := s.publishWT.Head(ctx)
	if err != nil {
		return nil, err
	}
	result.Commit = head
	p.Logf("Published commit: %s", head)

	return result, nil
}

// applyDefaults fills in the optional collaborator fields.
func (p *Publisher) applyDefaults() {
	if p.Out == nil {
		p.Out = os.Stdout
	}
	if p.ErrOut == nil {
		p.ErrOut = os.Stderr
	}
	if p.Logf == nil {
		p.Logf = func(string, ...interface{}) {}
	}
	if p.BotName == "" {
		p.BotName = defaultBotName
	}
	if p.BotEmail == "" {
		p.BotEmail = defaultBotEmail
	}
}

// resolveManager honors an explicit override from the request, falling
// back to lockfile detection.
func resolveManager(workDir, root string, req model.PublishRequest) (pm.Manager, error) {
	if req.PackageManager == "" {
		return pm.Detect(workDir, root), nil
	}

	manager, err := pm.Parse(req.PackageManager)
	if err != nil {
		return "", model.WrapCLIError(model.KindGeneral, "invalid package manager override", err)
	}
	return manager, nil
}

// probe resolves the repository context once; every later stage reads
// from this immutable value instead of re-querying git.
func (p *Publisher) probe(ctx context.Context, repo *gitx.Repo, workDir string, req model.PublishRequest) (*model.RepositoryContext, error) {
	subdir, err := repo.Subdir(workDir)
	if err != nil {
		return nil, err
	}

	branch := req.Tag
	if branch == "" {
		branch, err = repo.CurrentBranch(ctx)
		if err != nil {
			return nil, err
		}
	}

	head, err := repo.Head(ctx)
	if err != nil {
		return nil, err
	}

	// Resolved before any worktree exists: a bad --remote aborts with
	// zero side effects.
	remoteURL, err := repo.RemoteURL(ctx, req.Remote)
	if err != nil {
		return nil, err
	}

	return &model.RepositoryContext{
		WorkDir:   workDir,
		Root:      repo.Root,
		Subdir:    subdir,
		Branch:    branch,
		Commit:    head,
		RemoteURL: remoteURL,
	}, nil
}

// commitMessage builds the publish commit message, referencing the
// source branch and, when available, the short source commit hash.
func commitMessage(repoCtx *model.RepositoryContext) string {
	message := fmt.Sprintf("Published from %q", repoCtx.Branch)
	if repoCtx.Commit != "" {
		short := repoCtx.Commit
		if len(short) > 7 {
			short = short[:7]
		}
		message = fmt.Sprintf("%s (%s)", message, short)
	}
	return message
}

// printFiles writes the packaged file listing with human-readable sizes
// and the aggregate total.
func (p *Publisher) printFiles(files model.PackedFileManifest) {
	fmt.Fprintln(p.Out, "Publishing files:")
	for _, f := range files {
		fmt.Fprintf(p.Out, "  %-48s %s\n", f.Path, units.HumanSize(float64(f.Size)))
	}
	fmt.Fprintf(p.Out, "  %d file(s), %s total\n", len(files), units.HumanSize(float64(files.TotalSize())))
}
