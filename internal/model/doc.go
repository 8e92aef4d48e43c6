// Package model defines the domain types and value objects for the
// git-publish CLI.
//
// This package contains pure data structures with no external dependencies.
// All entities (PublishRequest, RepositoryContext, PublishTarget,
// PackedFileManifest, PublishResult) are transient representations of one
// publish run. Nothing here is persisted; the only durable artifact of a
// run is the pushed Git branch itself.
//
// The package also defines the fatal-error taxonomy (ErrorKind) and a
// custom error type (CLIError) that carries a kind for proper CLI error
// reporting.
package model
