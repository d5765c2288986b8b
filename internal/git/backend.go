package git

import (
	"context"
	"fmt"
)

// BackendKind names a Backend implementation.
type BackendKind string

const (
	// BackendCommand drives the git executable.
	BackendCommand BackendKind = "cmd"
	// BackendEmbedded uses the go-git library in process.
	BackendEmbedded BackendKind = "gogit"
)

// LogQuery selects revisions for Backend.Log.
type LogQuery struct {
	// Tip is the revision to walk back from; HEAD when empty.
	Tip string
	// Exclude removes revisions reachable from it (the A in A..B).
	Exclude string
	// Limit caps the number of revisions; zero means no cap.
	Limit int
	// Paths restricts history to revisions touching any of the paths.
	Paths []string
}

// Backend is the set of repository primitives the Engine composes. A Backend
// is bound to one working directory and one RepositoryConfig. Both
// implementations must behave identically as observed through the Engine.
type Backend interface {
	Kind() BackendKind
	Dir() string
	// At returns a backend of the same kind bound to a nested repository
	// (a submodule) at dir, relative to Dir.
	At(dir string, cfg *RepositoryConfig) Backend

	Version(ctx context.Context) (string, error)
	LsRemote(ctx context.Context) error
	Clone(ctx context.Context) error
	RemoteURL(ctx context.Context) (string, error)
	Fetch(ctx context.Context, refSpec string) error
	FetchToDepth(ctx context.Context, depth int) error
	GC(ctx context.Context) error
	// Clean removes untracked files and directories below dir (relative).
	Clean(ctx context.Context, dir string) error
	ResetHard(ctx context.Context, revision string) error
	// RemoteBranchesContaining lists remote-tracking branches (origin/x)
	// whose history includes revision.
	RemoteBranchesContaining(ctx context.Context, revision string) ([]string, error)
	CheckoutBranch(ctx context.Context, branch string) error

	CurrentBranch(ctx context.Context) (string, error)
	CurrentRevision(ctx context.Context) (string, error)
	// CommitCount counts revisions reachable from HEAD of the repository at
	// dir (relative; "" for the top level).
	CommitCount(ctx context.Context, dir string) (int, error)
	Log(ctx context.Context, q LogQuery) ([]*Revision, error)
	ModifiedFiles(ctx context.Context, sha string) ([]ModifiedFile, error)
	Refs(ctx context.Context) ([]Ref, error)

	SubmoduleURLs(ctx context.Context) (map[string]string, error)
	// SubmodulePaths maps submodule names to paths from .gitmodules. A
	// working copy without a manifest has none.
	SubmodulePaths(ctx context.Context) (map[string]string, error)
	SubmoduleFolders(ctx context.Context) ([]string, error)
	RemoveSubmoduleSection(ctx context.Context, name string) error
	RemoveSubmoduleManifestSection(ctx context.Context, name string) error
	SetSubmoduleManifestURL(ctx context.Context, name, url string) error
	Untrack(ctx context.Context, path string) error
	// SubmoduleCheckoutAll discards local modifications in every
	// initialised submodule, recursively.
	SubmoduleCheckoutAll(ctx context.Context) error
	SubmoduleInit(ctx context.Context) error
	// SubmoduleSync copies URLs from .gitmodules into the local config, for
	// nested submodules too.
	SubmoduleSync(ctx context.Context) error
	SubmoduleUpdate(ctx context.Context) error
}

// BackendOptions carries the shared construction parameters.
type BackendOptions struct {
	Output Output
	Runner Runner
	// GitBinary is the executable used by the command backend.
	GitBinary string
	// AllowFileProtocol lets submodule commands clone from local paths.
	AllowFileProtocol bool
}

// NewBackend constructs the backend selected by kind.
func NewBackend(kind BackendKind, dir string, cfg *RepositoryConfig, opts BackendOptions) (Backend, error) {
	switch kind {
	case BackendCommand, "":
		return NewCmdBackend(dir, cfg, opts), nil
	case BackendEmbedded:
		return NewGoGitBackend(dir, cfg, opts), nil
	default:
		return nil, fmt.Errorf("unknown git backend %q", kind)
	}
}
