// Package manifest reads and validates package.json descriptors for
// the git-publish CLI.
//
// The loader is tolerant of JSONC-style input (comments, trailing
// commas) via github.com/tidwall/jsonc, and validates the version
// field with Masterminds/semver using npm's strict semver rules.
//
// The parsed Manifest is read-only metadata for the publish run. The
// bytes that end up in the published branch come from the pack tool's
// tarball, never from re-serializing this struct.
package manifest
