package publish

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/git-publish/internal/model"
)

// stubPacker is a Packer that mimics a package manager's pack command
// without needing npm installed. It optionally writes "build artifacts"
// into the pack directory first (simulating a prepack lifecycle hook),
// then tars every regular file under the directory (except .git) into
// a tarball with the conventional synthetic "package/" root.
type stubPacker struct {
	// hookFiles are written into the pack directory before taring,
	// simulating what a prepare/prepack hook would produce.
	hookFiles map[string]string
}

func (s *stubPacker) Pack(_ context.Context, dir, destDir string) error {
	for name, body := range s.hookFiles {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(p, []byte(body), 0644); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == ".git" {
			// In a linked worktree .git is a file, not a directory.
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		body, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		hdr := &tar.Header{
			Name: "package/" + filepath.ToSlash(rel),
			Mode: 0644,
			Size: int64(len(body)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		_, err = tw.Write(body)
		return err
	})
	if err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(destDir, "test-pkg-1.0.0.tgz"), buf.Bytes(), 0644)
}

// runTestGit runs a git command in dir and fails the test on error.
func runTestGit(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v failed: %s", args, string(output))
	return string(output)
}

// setupPublishRepo creates a git repository containing a minimal
// package (package.json + index.js), committed, with a bare "origin"
// remote. Returns the repo directory and the bare remote path.
func setupPublishRepo(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()
	runTestGit(t, dir, "init", "-b", "main")
	runTestGit(t, dir, "config", "user.email", "test@example.com")
	runTestGit(t, dir, "config", "user.name", "Test User")

	writeFile(t, dir, "package.json", `{"name":"test-pkg","version":"1.0.0"}`)
	writeFile(t, dir, "index.js", "module.exports = 1\n")

	runTestGit(t, dir, "add", ".")
	runTestGit(t, dir, "commit", "-m", "initial commit")

	bare := filepath.Join(t.TempDir(), "remote.git")
	runTestGit(t, dir, "init", "--bare", bare)
	runTestGit(t, dir, "remote", "add", "origin", bare)

	return dir, bare
}

func writeFile(t *testing.T, dir string, name, content string) {
	t.Helper()

	p := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

// newTestPublisher builds a Publisher wired with the stub packer and
// silenced output streams.
func newTestPublisher(packer Packer) *Publisher {
	return &Publisher{
		Packer: packer,
		Out:    &bytes.Buffer{},
		ErrOut: &bytes.Buffer{},
	}
}

func baseRequest(dir string) model.PublishRequest {
	return model.PublishRequest{WorkDir: dir, Remote: "origin"}
}

// remoteCommitCount returns the commit count of a branch in the bare
// remote.
func remoteCommitCount(t *testing.T, bare, branch string) string {
	t.Helper()
	return strings.TrimSpace(runTestGit(t, bare, "rev-list", "--count", branch))
}

// remoteTree returns the sorted recursive file list of a branch tip in
// the bare remote.
func remoteTree(t *testing.T, bare, branch string) []string {
	t.Helper()

	out := runTestGit(t, bare, "ls-tree", "-r", "--name-only", branch)
	return strings.Fields(out)
}

// TestPublishFresh covers the first-publish scenario: clean repo, one
// file, --fresh against an empty remote. The remote branch must end up
// with exactly one commit containing the packaged files.
func TestPublishFresh(t *testing.T) {
	dir, bare := setupPublishRepo(t)
	p := newTestPublisher(&stubPacker{})

	req := baseRequest(dir)
	req.Fresh = true

	res, err := p.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "npm/main", res.Branch)
	assert.Equal(t, model.ModeOrphan, res.Mode)
	assert.Equal(t, "npm", res.PackageManager)
	assert.NotEmpty(t, res.Commit)
	assert.False(t, res.SkippedCommit)

	assert.Equal(t, "1", remoteCommitCount(t, bare, "npm/main"))
	assert.Equal(t, []string{"index.js", "package.json"}, remoteTree(t, bare, "npm/main"))
}

// TestPublishHistoryPreserved covers the incremental scenario: a second
// publish with a real content change adds exactly one commit on top of
// the existing branch history.
func TestPublishHistoryPreserved(t *testing.T) {
	dir, bare := setupPublishRepo(t)
	p := newTestPublisher(&stubPacker{})

	_, err := p.Run(context.Background(), baseRequest(dir))
	require.NoError(t, err)
	require.Equal(t, "1", remoteCommitCount(t, bare, "npm/main"))

	writeFile(t, dir, "index.js", "module.exports = 2\n")
	runTestGit(t, dir, "commit", "-am", "bump")

	res, err := p.Run(context.Background(), baseRequest(dir))
	require.NoError(t, err)

	assert.Equal(t, model.ModeRepoint, res.Mode)
	assert.False(t, res.SkippedCommit)
	assert.Equal(t, "2", remoteCommitCount(t, bare, "npm/main"))
}

// TestPublishIdempotent covers the no-op republish: identical content
// pushes the unchanged tip without a redundant commit, and still
// reports success.
func TestPublishIdempotent(t *testing.T) {
	dir, bare := setupPublishRepo(t)
	p := newTestPublisher(&stubPacker{})

	first, err := p.Run(context.Background(), baseRequest(dir))
	require.NoError(t, err)

	second, err := p.Run(context.Background(), baseRequest(dir))
	require.NoError(t, err)

	assert.True(t, second.SkippedCommit)
	assert.Equal(t, first.Commit, second.Commit, "branch tip must be unchanged")
	assert.Equal(t, "1", remoteCommitCount(t, bare, "npm/main"))
}

// TestPublishFreshResetsHistory covers the fresh-reset property: no
// matter how much history the branch has, --fresh leaves exactly one
// commit.
func TestPublishFreshResetsHistory(t *testing.T) {
	dir, bare := setupPublishRepo(t)
	p := newTestPublisher(&stubPacker{})

	// Build two commits of branch history.
	_, err := p.Run(context.Background(), baseRequest(dir))
	require.NoError(t, err)
	writeFile(t, dir, "index.js", "module.exports = 2\n")
	runTestGit(t, dir, "commit", "-am", "bump")
	_, err = p.Run(context.Background(), baseRequest(dir))
	require.NoError(t, err)
	require.Equal(t, "2", remoteCommitCount(t, bare, "npm/main"))

	req := baseRequest(dir)
	req.Fresh = true
	res, err := p.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, model.ModeOrphan, res.Mode)
	assert.Equal(t, "1", remoteCommitCount(t, bare, "npm/main"))
}

// TestPublishIsolation covers the isolation property: a lifecycle hook
// writing build artifacts during packing must land in the published
// tree but never in the user's working directory.
func TestPublishIsolation(t *testing.T) {
	dir, bare := setupPublishRepo(t)
	p := newTestPublisher(&stubPacker{hookFiles: map[string]string{
		"dist/built.js": "built artifact\n",
	}})

	_, err := p.Run(context.Background(), baseRequest(dir))
	require.NoError(t, err)

	// The artifact is in the published branch tree.
	assert.Contains(t, remoteTree(t, bare, "npm/main"), "dist/built.js")

	// The user's working directory never saw it, and the tree is still
	// pristine: no tracked changes, no new untracked files.
	_, statErr := os.Stat(filepath.Join(dir, "dist"))
	assert.True(t, os.IsNotExist(statErr), "hook output must not leak into the user's tree")
	assert.Empty(t, strings.TrimSpace(runTestGit(t, dir, "status", "--porcelain")))
}

// TestPublishPrivateGuard covers the private-package guard: blocked
// without --force, allowed with it.
func TestPublishPrivateGuard(t *testing.T) {
	dir, bare := setupPublishRepo(t)
	writeFile(t, dir, "package.json", `{"name":"test-pkg","version":"1.0.0","private":true}`)
	runTestGit(t, dir, "commit", "-am", "mark private")

	p := newTestPublisher(&stubPacker{})

	_, err := p.Run(context.Background(), baseRequest(dir))
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.KindPrivatePackageBlocked, cliErr.Kind)
	assert.Contains(t, strings.ToLower(cliErr.Message), "private")

	req := baseRequest(dir)
	req.Force = true
	_, err = p.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "1", remoteCommitCount(t, bare, "npm/main"))
}

// TestPublishDirtyTree covers the preflight guard: tracked
// modifications block publishing, untracked files do not.
func TestPublishDirtyTree(t *testing.T) {
	dir, _ := setupPublishRepo(t)
	p := newTestPublisher(&stubPacker{})

	// Untracked file: allowed.
	writeFile(t, dir, "scratch.txt", "notes")
	_, err := p.Run(context.Background(), baseRequest(dir))
	require.NoError(t, err)

	// Tracked modification: blocked.
	writeFile(t, dir, "index.js", "changed\n")
	_, err = p.Run(context.Background(), baseRequest(dir))
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.KindDirtyWorkingTree, cliErr.Kind)
}

// TestPublishDryRun verifies the pure-simulation overlay: probes run,
// the plan is reported, and neither the remote nor the local repository
// is mutated.
func TestPublishDryRun(t *testing.T) {
	dir, bare := setupPublishRepo(t)
	out := &bytes.Buffer{}
	p := newTestPublisher(&stubPacker{})
	p.Out = out

	req := baseRequest(dir)
	req.DryRun = true

	res, err := p.Run(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	assert.Equal(t, "npm/main", res.Branch)
	assert.Empty(t, res.Commit)
	assert.Contains(t, out.String(), "Dry run")

	// The remote has no publish branch and the local repo no temp refs.
	branches := runTestGit(t, bare, "for-each-ref", "--format=%(refname)")
	assert.NotContains(t, branches, "npm/main")
	localBranches := runTestGit(t, dir, "branch", "--list", "git-publish/*")
	assert.Empty(t, strings.TrimSpace(localBranches))
}

// TestPublishMonorepoBranchName covers the monorepo naming rule: the
// derived branch combines the source branch and the package name.
func TestPublishMonorepoBranchName(t *testing.T) {
	dir, bare := setupPublishRepo(t)

	writeFile(t, dir, "packages/test-pkg/package.json", `{"name":"@org/test-pkg","version":"1.0.0"}`)
	writeFile(t, dir, "packages/test-pkg/main.js", "x\n")
	runTestGit(t, dir, "add", ".")
	runTestGit(t, dir, "commit", "-m", "add subpackage")

	p := newTestPublisher(&stubPacker{})

	req := baseRequest(filepath.Join(dir, "packages", "test-pkg"))
	res, err := p.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "npm/main-@org/test-pkg", res.Branch)
	assert.Equal(t, "1", remoteCommitCount(t, bare, "npm/main-@org/test-pkg"))

	// The subpackage's own files were published, not the repo root's.
	assert.Contains(t, remoteTree(t, bare, "npm/main-@org/test-pkg"), "main.js")
}

// TestPublishWorkspaceSignal verifies the pnpm workspace wiring: a
// subpackage covered by a workspace glob is flagged in the result,
// while the repository root is not.
func TestPublishWorkspaceSignal(t *testing.T) {
	dir, _ := setupPublishRepo(t)
	writeFile(t, dir, "pnpm-workspace.yaml", "packages:\n  - \"packages/*\"\n")
	writeFile(t, dir, "packages/test-pkg/package.json", `{"name":"@org/test-pkg","version":"1.0.0"}`)
	writeFile(t, dir, "packages/test-pkg/main.js", "x\n")
	runTestGit(t, dir, "add", ".")
	runTestGit(t, dir, "commit", "-m", "add workspace")

	p := newTestPublisher(&stubPacker{})

	res, err := p.Run(context.Background(), baseRequest(filepath.Join(dir, "packages", "test-pkg")))
	require.NoError(t, err)
	assert.True(t, res.WorkspacePackage)

	root, err := p.Run(context.Background(), baseRequest(dir))
	require.NoError(t, err)
	assert.False(t, root.WorkspacePackage)
}

// TestPublishManagerOverride verifies the explicit package-manager
// override: it wins over lockfile detection, and unknown names are
// rejected before anything is mutated.
func TestPublishManagerOverride(t *testing.T) {
	dir, _ := setupPublishRepo(t)
	writeFile(t, dir, "package-lock.json", "{}")
	runTestGit(t, dir, "add", ".")
	runTestGit(t, dir, "commit", "-m", "add lockfile")

	p := newTestPublisher(&stubPacker{})

	req := baseRequest(dir)
	req.PackageManager = "yarn"
	res, err := p.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "yarn", res.PackageManager)

	req.PackageManager = "cargo"
	_, err = p.Run(context.Background(), req)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.KindGeneral, cliErr.Kind)
}

// TestPublishExplicitBranch verifies the branch override flag.
func TestPublishExplicitBranch(t *testing.T) {
	dir, bare := setupPublishRepo(t)
	p := newTestPublisher(&stubPacker{})

	req := baseRequest(dir)
	req.Branch = "releases/canary"

	res, err := p.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "releases/canary", res.Branch)
	assert.Equal(t, "1", remoteCommitCount(t, bare, "releases/canary"))
}

// TestPublishCleanup verifies the recovery discipline: after a failed
// packaging stage, no worktrees, temp branches, or staging directories
// survive.
func TestPublishCleanup(t *testing.T) {
	dir, _ := setupPublishRepo(t)
	p := newTestPublisher(failingPacker{})

	_, err := p.Run(context.Background(), baseRequest(dir))
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.KindPackagingFailed, cliErr.Kind)

	// No temporary branch left behind.
	localBranches := runTestGit(t, dir, "branch", "--list", "git-publish/*")
	assert.Empty(t, strings.TrimSpace(localBranches))

	// No worktrees beyond the main checkout.
	worktrees := runTestGit(t, dir, "worktree", "list", "--porcelain")
	assert.Equal(t, 1, strings.Count(worktrees, "worktree "), "only the main checkout should remain")
}

// failingPacker always fails, standing in for a broken pack setup.
type failingPacker struct{}

func (failingPacker) Pack(context.Context, string, string) error {
	return model.NewCLIError(model.KindPackagingFailed, "npm pack failed: boom")
}

// TestPublishMissingManifest verifies the manifest guard through the
// full engine.
func TestPublishMissingManifest(t *testing.T) {
	dir := t.TempDir()
	runTestGit(t, dir, "init", "-b", "main")
	runTestGit(t, dir, "config", "user.email", "test@example.com")
	runTestGit(t, dir, "config", "user.name", "Test User")
	writeFile(t, dir, "README.md", "# no package here\n")
	runTestGit(t, dir, "add", ".")
	runTestGit(t, dir, "commit", "-m", "initial")
	runTestGit(t, dir, "remote", "add", "origin", filepath.Join(t.TempDir(), "remote.git"))

	p := newTestPublisher(&stubPacker{})

	_, err := p.Run(context.Background(), baseRequest(dir))
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.KindManifestMissing, cliErr.Kind)
}

// TestPublishRemoteNotFound verifies that a bad remote name aborts
// before any worktree is created.
func TestPublishRemoteNotFound(t *testing.T) {
	dir, _ := setupPublishRepo(t)
	p := newTestPublisher(&stubPacker{})

	req := baseRequest(dir)
	req.Remote = "upstream"

	_, err := p.Run(context.Background(), req)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.KindRemoteNotFound, cliErr.Kind)
}
