package pm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Manager identifies a JavaScript package manager.
type Manager string

const (
	// Npm is the default manager when no lockfile is found.
	Npm Manager = "npm"

	// Yarn covers yarn classic (v1) lockfiles.
	Yarn Manager = "yarn"

	// Pnpm is detected via pnpm-lock.yaml.
	Pnpm Manager = "pnpm"

	// Bun is detected via bun.lockb or bun.lock.
	Bun Manager = "bun"
)

// String returns the string representation of the Manager.
// This is also the name of the executable to invoke.
func (m Manager) String() string {
	return string(m)
}

// IsValid checks whether the Manager value is one of the supported
// managers.
func (m Manager) IsValid() bool {
	switch m {
	case Npm, Yarn, Pnpm, Bun:
		return true
	default:
		return false
	}
}

// Parse converts a string to a Manager. Returns an error if the string
// does not match any supported manager.
func Parse(s string) (Manager, error) {
	m := Manager(strings.ToLower(s))
	if !m.IsValid() {
		return "", fmt.Errorf("unknown package manager: %q (valid: npm, yarn, pnpm, bun)", s)
	}
	return m, nil
}

// lockfileMarker associates a lockfile name with the manager it implies.
type lockfileMarker struct {
	file    string
	manager Manager
}

// lockfileMarkers is the detection priority order within a directory.
// Most specific / least ambiguous first: bun and pnpm lockfiles only
// ever belong to their own manager, yarn.lock is also written by some
// yarn-compatible tools, and npm's lockfiles come last because npm is
// the fallback anyway.
var lockfileMarkers = []lockfileMarker{
	{"bun.lockb", Bun},
	{"bun.lock", Bun},
	{"pnpm-lock.yaml", Pnpm},
	{"yarn.lock", Yarn},
	{"package-lock.json", Npm},
	{"npm-shrinkwrap.json", Npm},
}

// Detect determines the package manager governing workDir by searching
// workDir and its ancestors, up to and including repoRoot, for lockfile
// markers. The first marker found wins. Falls back to npm when no
// lockfile exists anywhere on the path.
//
// The upward search matters for monorepos: a subpackage usually has no
// lockfile of its own; the workspace root owns it.
func Detect(workDir, repoRoot string) Manager {
	dir := filepath.Clean(workDir)
	root := filepath.Clean(repoRoot)

	for {
		for _, marker := range lockfileMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker.file)); err == nil {
				return marker.manager
			}
		}

		if dir == root {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached the filesystem root without hitting repoRoot.
			break
		}
		dir = parent
	}

	return Npm
}

// PackCommand returns the executable name and arguments that pack the
// package in the current directory into a tarball written to destDir.
//
// npm, pnpm and bun accept a destination directory; yarn classic only
// accepts an explicit output file name, so it is pointed at a fixed
// file inside destDir; tarball discovery scans destDir either way.
func (m Manager) PackCommand(destDir string) (name string, args []string) {
	switch m {
	case Pnpm:
		return "pnpm", []string{"pack", "--pack-destination", destDir}
	case Yarn:
		return "yarn", []string{"pack", "--filename", filepath.Join(destDir, "package.tgz")}
	case Bun:
		return "bun", []string{"pm", "pack", "--destination", destDir}
	default:
		return "npm", []string{"pack", "--pack-destination", destDir}
	}
}

// InstallVerb returns the manager's install-a-dependency command prefix,
// used when printing the copy-pasteable install command.
func (m Manager) InstallVerb() string {
	switch m {
	case Yarn:
		return "yarn add"
	case Pnpm:
		return "pnpm add"
	case Bun:
		return "bun add"
	default:
		return "npm install"
	}
}
