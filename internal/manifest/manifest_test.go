package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/git-publish/internal/model"
)

// writeManifest writes a package.json with the given content into a
// fresh temp directory and returns the directory path.
func writeManifest(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644)
	require.NoError(t, err)
	return dir
}

// kindOf extracts the ErrorKind from an error, failing the test if the
// error is not a CLIError.
func kindOf(t *testing.T, err error) model.ErrorKind {
	t.Helper()

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	return cliErr.Kind
}

func TestLoadValid(t *testing.T) {
	dir := writeManifest(t, `{
		"name": "@org/test-pkg",
		"version": "1.2.3",
		"files": ["dist"],
		"scripts": {"prepack": "npm run build"}
	}`)

	m, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "@org/test-pkg", m.Name)
	assert.Equal(t, "1.2.3", m.Version)
	assert.False(t, m.Private)
	assert.Equal(t, []string{"dist"}, m.Files)
	assert.True(t, m.HasScript("prepack"))
	assert.False(t, m.HasScript("prepare"))
}

// TestLoadJSONC verifies that comments and trailing commas, invalid in
// strict JSON but common in real-world files, are tolerated.
func TestLoadJSONC(t *testing.T) {
	dir := writeManifest(t, `{
		// package descriptor
		"name": "test-pkg",
		"version": "1.0.0",
	}`)

	m, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "test-pkg", m.Name)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Equal(t, model.KindManifestMissing, kindOf(t, err))
}

func TestLoadMalformed(t *testing.T) {
	dir := writeManifest(t, `{"name": `)

	_, err := Load(dir)
	require.Error(t, err)
	assert.Equal(t, model.KindManifestUnparseable, kindOf(t, err))
}

func TestLoadMissingName(t *testing.T) {
	dir := writeManifest(t, `{"version": "1.0.0"}`)

	_, err := Load(dir)
	require.Error(t, err)
	assert.Equal(t, model.KindManifestUnparseable, kindOf(t, err))
}

// TestLoadInvalidVersion verifies npm's strict semver rules: a leading
// "v" or missing components must be rejected.
func TestLoadInvalidVersion(t *testing.T) {
	for _, version := range []string{"v1.0.0", "1.0", "banana"} {
		dir := writeManifest(t, `{"name": "test-pkg", "version": "`+version+`"}`)

		_, err := Load(dir)
		require.Error(t, err, "version %q should be rejected", version)
		assert.Equal(t, model.KindManifestUnparseable, kindOf(t, err))
	}
}

// TestLoadVersionOptional verifies that a manifest without a version
// still loads; unreleased packages are the whole point of the tool.
func TestLoadVersionOptional(t *testing.T) {
	dir := writeManifest(t, `{"name": "test-pkg"}`)

	m, err := Load(dir)
	require.NoError(t, err)
	assert.Empty(t, m.Version)
}

func TestLoadPrivate(t *testing.T) {
	dir := writeManifest(t, `{"name": "test-pkg", "version": "1.0.0", "private": true}`)

	m, err := Load(dir)
	require.NoError(t, err)
	assert.True(t, m.Private)
}

func TestLifecycleHooks(t *testing.T) {
	m := &Manifest{Scripts: map[string]string{
		"prepack": "tsc",
		"prepare": "husky install",
		"test":    "jest",
	}}

	// Order is execution order, not map order.
	assert.Equal(t, []string{"prepare", "prepack"}, m.LifecycleHooks())

	// Non-lifecycle scripts must not be reported.
	assert.NotContains(t, m.LifecycleHooks(), "test")

	none := &Manifest{}
	assert.Empty(t, none.LifecycleHooks())
}
