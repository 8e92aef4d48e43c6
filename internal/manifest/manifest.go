package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/tidwall/jsonc"

	"github.com/mmr-tortoise/git-publish/internal/model"
)

// FileName is the package descriptor file name at the package root.
const FileName = "package.json"

// Manifest is the parsed representation of a package.json, restricted
// to the fields a publish run inspects. Unknown fields are silently
// ignored during parsing; the file the pack tool ships is the original
// on-disk bytes, never this struct re-serialized.
type Manifest struct {
	// Name is the package name, e.g. "@org/test-pkg". Required.
	Name string `json:"name"`

	// Version is the declared package version. Optional, but must be
	// valid semver when present.
	Version string `json:"version"`

	// Private marks the package as not-for-publication. Publishing a
	// private package requires the --force flag.
	Private bool `json:"private"`

	// Files is the declared allow-list of paths/patterns the pack tool
	// includes. The publish engine never expands these itself; the
	// pack tool's tarball is the source of truth.
	Files []string `json:"files"`

	// Scripts maps lifecycle script names to shell commands. Used only
	// to report which prepare/prepack hooks will run during packing.
	Scripts map[string]string `json:"scripts"`
}

// Load reads and validates the package.json in dir.
//
// Returns a CLIError with KindManifestMissing when the file does not
// exist, and KindManifestUnparseable when it cannot be parsed or fails
// validation.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.NewCLIError(model.KindManifestMissing,
				fmt.Sprintf("no %s found in %s", FileName, dir))
		}
		return nil, model.WrapCLIError(model.KindManifestMissing,
			fmt.Sprintf("failed to read %s", path), err)
	}

	var m Manifest
	// jsonc.ToJSON strips comments and trailing commas while preserving
	// byte offsets, then standard encoding/json does the parsing.
	if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
		return nil, model.WrapCLIError(model.KindManifestUnparseable,
			fmt.Sprintf("failed to parse %s", path), err)
	}

	if err := m.validate(); err != nil {
		return nil, model.WrapCLIError(model.KindManifestUnparseable,
			fmt.Sprintf("invalid %s", path), err)
	}

	return &m, nil
}

// validate checks the fields the publish run depends on.
func (m *Manifest) validate() error {
	if m.Name == "" {
		return fmt.Errorf("missing required field %q", "name")
	}

	// npm requires strict semver (no leading "v", all three components).
	// A manifest a registry would reject should fail here too, before
	// any worktree is created.
	if m.Version != "" {
		if _, err := semver.StrictNewVersion(m.Version); err != nil {
			return fmt.Errorf("invalid version %q: %w", m.Version, err)
		}
	}

	return nil
}

// HasScript reports whether the manifest declares the named lifecycle
// script.
func (m *Manifest) HasScript(name string) bool {
	_, ok := m.Scripts[name]
	return ok
}

// LifecycleHooks returns the prepare/prepack-family scripts the pack
// tool will run, in execution order. Used for verbose reporting only;
// the hooks themselves are executed by the pack tool inside the
// disposable pack worktree.
func (m *Manifest) LifecycleHooks() []string {
	var hooks []string
	for _, name := range []string{"prepare", "prepack", "prepublishOnly"} {
		if m.HasScript(name) {
			hooks = append(hooks, name)
		}
	}
	return hooks
}
