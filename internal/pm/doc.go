// Package pm handles package-manager detection and command knowledge
// for the git-publish CLI.
//
// The supported managers are npm, yarn (classic), pnpm and bun.
// Detection is lockfile-based: the working directory and its ancestors
// up to the repository root are scanned for lockfile markers in a fixed
// priority order. The package also knows each manager's pack command
// shape and install-command verb, and reads pnpm-workspace.yaml as an
// additional monorepo signal.
//
// The managers themselves are external collaborators invoked as
// subprocesses; this package never reimplements their packing or
// ignore-rule semantics.
package pm
