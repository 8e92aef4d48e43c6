package publish

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mmr-tortoise/git-publish/internal/model"
	"github.com/mmr-tortoise/git-publish/internal/pm"
)

// Packer produces the package tarball. The production implementation
// shells out to the detected package manager's pack command; tests
// inject a stub so the pipeline can be exercised without npm installed.
type Packer interface {
	// Pack packages the package rooted at dir, writing the resulting
	// tarball into destDir. dir is inside the disposable pack worktree,
	// so lifecycle hooks (prepare/prepack) may freely write build
	// artifacts without touching the user's files.
	Pack(ctx context.Context, dir, destDir string) error
}

// managerPacker drives the external package manager's pack command.
type managerPacker struct {
	manager pm.Manager
}

// NewManagerPacker returns a Packer backed by the given package
// manager's CLI.
func NewManagerPacker(manager pm.Manager) Packer {
	return &managerPacker{manager: manager}
}

// Pack runs the manager's pack command with dir as working directory.
// The tool's own manifest file-list and ignore-rule handling decides
// what goes into the tarball; nothing is reimplemented here.
func (p *managerPacker) Pack(ctx context.Context, dir, destDir string) error {
	name, args := p.manager.PackCommand(destDir)

	// #nosec G204 -- command shape is fixed per manager, not user input
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var output strings.Builder
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(output.String())
		msg := fmt.Sprintf("%s pack failed", name)
		if detail != "" {
			msg = fmt.Sprintf("%s: %s", msg, detail)
		}
		return model.WrapCLIError(model.KindPackagingFailed, msg, err)
	}
	return nil
}

// tarballExtensions are the archive suffixes pack tools emit. npm, pnpm
// and bun write .tgz; some tools spell out .tar.gz.
var tarballExtensions = []string{".tgz", ".tar.gz"}

// findTarball locates the single tarball the pack tool wrote into
// destDir. The file name is manager-dependent (usually
// <name>-<version>.tgz), so discovery scans for the archive extension.
//
// Exactly one match is required: zero means the tool silently produced
// nothing (KindPackagingFailed), multiple means the output cannot be
// identified (KindPackagingAmbiguous).
func findTarball(destDir string) (string, error) {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return "", model.WrapCLIError(model.KindPackagingFailed,
			"failed to read packaging output directory", err)
	}

	var matches []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		for _, ext := range tarballExtensions {
			if strings.HasSuffix(entry.Name(), ext) {
				matches = append(matches, filepath.Join(destDir, entry.Name()))
				break
			}
		}
	}

	switch len(matches) {
	case 0:
		return "", model.NewCLIError(model.KindPackagingFailed,
			"pack command produced no tarball")
	case 1:
		return matches[0], nil
	default:
		return "", model.NewCLIError(model.KindPackagingAmbiguous,
			fmt.Sprintf("pack command produced %d tarballs, expected exactly one", len(matches)))
	}
}
