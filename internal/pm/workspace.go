package pm

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// workspaceFileName is pnpm's workspace definition file at the
// repository root.
const workspaceFileName = "pnpm-workspace.yaml"

// workspaceFile mirrors the subset of pnpm-workspace.yaml we read.
type workspaceFile struct {
	// Packages lists the workspace member globs, e.g. "packages/*".
	Packages []string `yaml:"packages"`
}

// Workspaces reads the pnpm workspace member globs declared at root.
//
// Returns nil with no error when the file does not exist; absence just
// means the repository is not a pnpm workspace. The globs are reported
// verbatim; the publish engine only uses them as a monorepo signal in
// verbose output, never for path matching.
func Workspaces(root string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(root, workspaceFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", workspaceFileName, err)
	}

	var ws workspaceFile
	if err := yaml.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", workspaceFileName, err)
	}

	return ws.Packages, nil
}

// Member reports whether the POSIX-relative subdir is covered by one of
// the workspace member globs. Handles the pattern shapes pnpm
// workspaces use: literal paths, single-star globs ("packages/*", one
// directory level), and trailing "/**" (any depth). The repository
// root itself (empty subdir) is never a member.
func Member(globs []string, subdir string) bool {
	if subdir == "" {
		return false
	}

	for _, glob := range globs {
		if strings.HasSuffix(glob, "/**") {
			if strings.HasPrefix(subdir, strings.TrimSuffix(glob, "**")) {
				return true
			}
			continue
		}
		if ok, err := path.Match(glob, subdir); err == nil && ok {
			return true
		}
	}
	return false
}
