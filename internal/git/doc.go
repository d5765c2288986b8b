// Package git synchronizes a local working copy with a remote repository and
// extracts path-filtered commit history from it.
//
// Two backends implement the same contract:
//   - the command backend drives the git executable through a Runner
//   - the embedded backend uses go-git and needs no external binary
//
// Engine builds the higher level operations (clone-or-fetch, shallow clone
// escalation, submodule handling) on top of a Backend. Errors returned from
// this package are classified with the foundation/errors categories and have
// credentials redacted from their messages.
package git
