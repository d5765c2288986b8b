package git

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/TWChennai/gocd-git-path-material-plugin/internal/foundation/errors"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/logfields"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/metrics"
)

// DefaultBranchRefPrefix selects remote-tracking branches of origin.
const DefaultBranchRefPrefix = "refs/remotes/" + RemoteName + "/"

// Engine synchronizes one working directory with its remote and reads
// history from it. An Engine assumes exclusive use of its directory for the
// duration of each call; callers serialize access.
type Engine struct {
	backend  Backend
	cfg      *RepositoryConfig
	out      Output
	recorder metrics.Recorder
}

// Submodule pairs a submodule path with an engine bound to its working copy.
type Submodule struct {
	Path   string
	Engine *Engine
}

// NewEngine composes an engine over b. Console messages go to out.Stdout.
func NewEngine(b Backend, cfg *RepositoryConfig, out Output) *Engine {
	return &Engine{backend: b, cfg: cfg, out: out, recorder: metrics.NoopRecorder{}}
}

// WithRecorder reports shallow-clone escalations to r.
func (e *Engine) WithRecorder(r metrics.Recorder) *Engine {
	if r != nil {
		e.recorder = r
	}
	return e
}

func (e *Engine) Dir() string               { return e.backend.Dir() }
func (e *Engine) Config() *RepositoryConfig { return e.cfg }

func (e *Engine) console(format string, args ...any) {
	e.out.stdout()(fmt.Sprintf(format, args...))
}

func (e *Engine) logger() *slog.Logger {
	return slog.With(
		logfields.Path(e.backend.Dir()),
		logfields.URL(e.cfg.RedactedURL()),
		logfields.Backend(string(e.backend.Kind())),
	)
}

func (e *Engine) Version(ctx context.Context) (string, error) {
	return e.backend.Version(ctx)
}

// CheckConnection lists the remote's references without touching the
// working directory.
func (e *Engine) CheckConnection(ctx context.Context) error {
	return e.backend.LsRemote(ctx)
}

// CloneOrFetch converges the working directory onto the configured remote
// branch. A directory that is not a repository, or is one whose origin is not
// the effective URL, is wiped and cloned afresh.
func (e *Engine) CloneOrFetch(ctx context.Context, refSpec string) error {
	if !e.isRepository() || !e.isSameRepository(ctx) {
		if err := e.setupWorkingDir(); err != nil {
			return err
		}
		e.logger().Info("Cloning repository", logfields.Branch(e.cfg.EffectiveBranch()))
		if err := e.backend.Clone(ctx); err != nil {
			return err
		}
	}
	return e.FetchAndReset(ctx, refSpec, e.cfg.RemoteBranch())
}

func (e *Engine) isRepository() bool {
	fi, err := os.Stat(filepath.Join(e.backend.Dir(), ".git"))
	return err == nil && fi.IsDir()
}

func (e *Engine) isSameRepository(ctx context.Context) bool {
	url, err := e.backend.RemoteURL(ctx)
	if err != nil {
		e.logger().Debug("Cannot read remote url, recloning", logfields.Error(err))
		return false
	}
	if url != e.cfg.EffectiveURL() {
		e.logger().Info("Working copy points at another remote, recloning")
		return false
	}
	return true
}

func (e *Engine) setupWorkingDir() error {
	dir := e.backend.Dir()
	_ = os.RemoveAll(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.FileSystemError("could not create directory: " + dir).
			WithCause(err).
			WithContext("path", dir).
			Build()
	}
	return nil
}

// FetchAndReset fetches, collects garbage, and unless checkout is disabled
// resets the working copy (and its submodules) to revision.
func (e *Engine) FetchAndReset(ctx context.Context, refSpec, revision string) error {
	if err := e.Fetch(ctx, refSpec); err != nil {
		return err
	}
	if err := e.GC(ctx); err != nil {
		return err
	}
	if e.cfg.NoCheckout {
		return nil
	}

	e.console("[GIT] Reset working directory %s", e.backend.Dir())
	if err := e.CleanAllUnversionedFiles(ctx); err != nil {
		return err
	}
	if e.SubmoduleEnabled() {
		if err := e.RemoveSubmoduleSections(ctx); err != nil {
			return err
		}
	}
	if err := e.ResetHard(ctx, revision); err != nil {
		return err
	}
	if e.SubmoduleEnabled() {
		if err := e.CheckoutAllModifiedFilesInSubmodules(ctx); err != nil {
			return err
		}
		if err := e.UpdateSubmodulesWithInit(ctx); err != nil {
			return err
		}
	}
	return e.CleanAllUnversionedFiles(ctx)
}

func (e *Engine) Fetch(ctx context.Context, refSpec string) error {
	e.console("[GIT] Fetching changes")
	return e.backend.Fetch(ctx, refSpec)
}

func (e *Engine) fetchToDepth(ctx context.Context, depth int) error {
	shown := strconv.Itoa(depth)
	if depth == UnboundedDepth {
		shown = "[INFINITE]"
	}
	e.console("[GIT] Fetching to commit depth %s", shown)
	return e.backend.FetchToDepth(ctx, depth)
}

func (e *Engine) GC(ctx context.Context) error {
	e.console("[GIT] Performing git gc")
	return e.backend.GC(ctx)
}

// ResetHard moves the working copy to revision. With a shallow clone policy
// the missing history is fetched first, in at most two steps.
func (e *Engine) ResetHard(ctx context.Context, revision string) error {
	if sc := e.cfg.ShallowClone; sc != nil {
		if err := e.unshallowIfNecessary(ctx, sc.AdditionalDepth, revision); err != nil {
			return err
		}
	}
	e.console("[GIT] Updating working copy to revision %s", revision)
	return e.backend.ResetHard(ctx, revision)
}

func (e *Engine) unshallowIfNecessary(ctx context.Context, additionalDepth int, revision string) error {
	if e.branchContains(ctx, revision) {
		return nil
	}

	e.console("[GIT] Working copy is shallow clone missing revision %s", revision)
	e.recorder.IncShallowEscalation(metrics.EscalationAdditional)
	if err := e.fetchToDepth(ctx, additionalDepth); err != nil {
		return err
	}
	if e.branchContains(ctx, revision) {
		return nil
	}

	e.console("[GIT] Working copy is shallow clone still missing revision %s, fetching full repo...", revision)
	e.recorder.IncShallowEscalation(metrics.EscalationFull)
	e.logger().Warn("Fetching full history", logfields.Revision(revision))
	return e.fetchToDepth(ctx, UnboundedDepth)
}

// branchContains reports whether the remote branch includes revision. Any
// failure, including an unknown revision, counts as not contained.
func (e *Engine) branchContains(ctx context.Context, revision string) bool {
	branches, err := e.backend.RemoteBranchesContaining(ctx, revision)
	if err != nil {
		return false
	}
	for _, b := range branches {
		if strings.Contains(b, e.cfg.RemoteBranch()) {
			return true
		}
	}
	return false
}

// CleanAllUnversionedFiles removes untracked files in every configured
// submodule and then in the top-level working copy. A configured submodule
// whose directory is missing has nothing to clean.
func (e *Engine) CleanAllUnversionedFiles(ctx context.Context) error {
	e.console("[GIT] Cleaning all unversioned files in working copy")
	if e.SubmoduleEnabled() {
		byPath, err := e.configuredSubmodules(ctx)
		if err != nil {
			return err
		}
		for _, path := range sortedKeys(byPath) {
			if _, err := os.Stat(filepath.Join(e.backend.Dir(), path)); err != nil {
				continue
			}
			if err := e.backend.Clean(ctx, path); err != nil {
				return err
			}
		}
	}
	return e.backend.Clean(ctx, "")
}

func (e *Engine) CheckoutRemoteBranchToLocal(ctx context.Context) error {
	return e.backend.CheckoutBranch(ctx, e.cfg.EffectiveBranch())
}

func (e *Engine) WorkingRepositoryURL(ctx context.Context) (string, error) {
	return e.backend.RemoteURL(ctx)
}

func (e *Engine) CurrentBranch(ctx context.Context) (string, error) {
	return e.backend.CurrentBranch(ctx)
}

func (e *Engine) CurrentRevision(ctx context.Context) (string, error) {
	return e.backend.CurrentRevision(ctx)
}

// CommitCount counts revisions reachable from HEAD, excluding submodule
// history.
func (e *Engine) CommitCount(ctx context.Context) (int, error) {
	return e.backend.CommitCount(ctx, "")
}

func (e *Engine) SubmoduleCommitCount(ctx context.Context, folder string) (int, error) {
	return e.backend.CommitCount(ctx, folder)
}

// AllRevisions returns the history of HEAD, newest first.
func (e *Engine) AllRevisions(ctx context.Context) ([]*Revision, error) {
	return e.log(ctx, LogQuery{})
}

// LatestRevision returns the newest revision of HEAD touching any of paths,
// or nil when there is none. No paths means the whole tree.
func (e *Engine) LatestRevision(ctx context.Context, paths []string) (*Revision, error) {
	return e.first(e.log(ctx, LogQuery{Limit: 1, Paths: paths}))
}

// RevisionsSince returns the revisions on the remote branch after revision
// that touch any of paths, newest first.
func (e *Engine) RevisionsSince(ctx context.Context, revision string, paths []string) ([]*Revision, error) {
	return e.log(ctx, LogQuery{Exclude: revision, Tip: e.cfg.RemoteBranch(), Paths: paths})
}

// RevisionDetails returns sha with its modified files, or nil.
func (e *Engine) RevisionDetails(ctx context.Context, sha string) (*Revision, error) {
	return e.first(e.log(ctx, LogQuery{Limit: 1, Tip: sha}))
}

func (e *Engine) first(revisions []*Revision, err error) (*Revision, error) {
	if err != nil || len(revisions) == 0 {
		return nil, err
	}
	return revisions[0], nil
}

func (e *Engine) log(ctx context.Context, q LogQuery) ([]*Revision, error) {
	revisions, err := e.backend.Log(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, rev := range revisions {
		files, err := e.backend.ModifiedFiles(ctx, rev.SHA)
		if err != nil {
			return nil, err
		}
		rev.ModifiedFiles = append(rev.ModifiedFiles, files...)
	}
	return revisions, nil
}

// BranchToRevisionMap maps the names of refs containing prefix, with the
// prefix removed, to the revisions they point at. HEAD is never included.
// An empty prefix selects origin's remote-tracking branches.
func (e *Engine) BranchToRevisionMap(ctx context.Context, prefix string) (map[string]string, error) {
	if prefix == "" {
		prefix = DefaultBranchRefPrefix
	}
	refs, err := e.backend.Refs(ctx)
	if err != nil {
		return nil, err
	}
	branches := make(map[string]string)
	for _, ref := range refs {
		if !strings.Contains(ref.Name, prefix) {
			continue
		}
		if branch := strings.ReplaceAll(ref.Name, prefix, ""); branch != "HEAD" {
			branches[branch] = ref.SHA
		}
	}
	return branches, nil
}

// SubmoduleEnabled reports whether the working copy has a submodule manifest.
func (e *Engine) SubmoduleEnabled() bool {
	_, err := os.Stat(filepath.Join(e.backend.Dir(), ".gitmodules"))
	return err == nil
}

// SubmoduleURLs maps initialised submodule names to their URLs.
func (e *Engine) SubmoduleURLs(ctx context.Context) (map[string]string, error) {
	return e.backend.SubmoduleURLs(ctx)
}

func (e *Engine) SubmoduleFolders(ctx context.Context) ([]string, error) {
	return e.backend.SubmoduleFolders(ctx)
}

// SubmodulePaths maps submodule names to their paths as declared in
// .gitmodules.
func (e *Engine) SubmodulePaths(ctx context.Context) (map[string]string, error) {
	return e.backend.SubmodulePaths(ctx)
}

// configuredSubmodules maps the path of every initialised submodule to its
// URL.
func (e *Engine) configuredSubmodules(ctx context.Context) (map[string]string, error) {
	urls, err := e.backend.SubmoduleURLs(ctx)
	if err != nil {
		return nil, err
	}
	paths, err := e.backend.SubmodulePaths(ctx)
	if err != nil {
		return nil, err
	}
	return submoduleURLsByPath(urls, paths), nil
}

// SubmoduleStatus prints the submodule paths to the console and returns them.
func (e *Engine) SubmoduleStatus(ctx context.Context) ([]string, error) {
	e.console("[GIT] Git sub-module status")
	folders, err := e.backend.SubmoduleFolders(ctx)
	if err != nil {
		return nil, err
	}
	for _, f := range folders {
		e.console(" %s", f)
	}
	return folders, nil
}

func (e *Engine) CheckoutAllModifiedFilesInSubmodules(ctx context.Context) error {
	e.console("[GIT] Removing modified files in submodules")
	return e.backend.SubmoduleCheckoutAll(ctx)
}

// UpdateSubmodulesWithInit registers, syncs, and checks out every submodule.
func (e *Engine) UpdateSubmodulesWithInit(ctx context.Context) error {
	e.console("[GIT] Updating git sub-modules")
	if err := e.backend.SubmoduleInit(ctx); err != nil {
		return err
	}
	if err := e.backend.SubmoduleSync(ctx); err != nil {
		return err
	}
	if err := e.backend.SubmoduleUpdate(ctx); err != nil {
		return err
	}
	e.console("[GIT] Cleaning unversioned files and sub-modules")
	_, err := e.SubmoduleStatus(ctx)
	return err
}

// RemoveSubmoduleSections drops every submodule section from the local
// config so that a later init starts from the manifest.
func (e *Engine) RemoveSubmoduleSections(ctx context.Context) error {
	e.console("[GIT] Cleaning submodule configurations in .git/config")
	urls, err := e.SubmoduleURLs(ctx)
	if err != nil {
		return err
	}
	for _, name := range sortedKeys(urls) {
		if err := e.backend.RemoveSubmoduleSection(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// RemoveSubmodule unregisters folder from the config, the manifest, and the
// index, then deletes its directory. A directory that cannot be deleted is
// left behind.
func (e *Engine) RemoveSubmodule(ctx context.Context, folder string) error {
	if err := e.backend.RemoveSubmoduleSection(ctx, folder); err != nil {
		return err
	}
	if err := e.backend.RemoveSubmoduleManifestSection(ctx, folder); err != nil {
		return err
	}
	if err := e.backend.Untrack(ctx, folder); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(e.backend.Dir(), folder)); err != nil {
		e.logger().Warn("Failed to delete submodule directory", logfields.Path(folder), logfields.Error(err))
	}
	return nil
}

func (e *Engine) ChangeSubmoduleURL(ctx context.Context, name, url string) error {
	return e.backend.SetSubmoduleManifestURL(ctx, name, url)
}

// Submodules returns an engine for each submodule working copy, sharing this
// engine's backend kind and output.
func (e *Engine) Submodules(ctx context.Context) ([]Submodule, error) {
	folders, err := e.backend.SubmoduleFolders(ctx)
	if err != nil {
		return nil, err
	}
	urls, err := e.configuredSubmodules(ctx)
	if err != nil {
		return nil, err
	}
	subs := make([]Submodule, 0, len(folders))
	for _, folder := range folders {
		cfg := NewRepositoryConfig(urls[folder])
		cfg.RecursiveSubmoduleUpdate = e.cfg.RecursiveSubmoduleUpdate
		subs = append(subs, Submodule{
			Path: folder,
			Engine: &Engine{
				backend:  e.backend.At(folder, cfg),
				cfg:      cfg,
				out:      e.out,
				recorder: e.recorder,
			},
		})
	}
	return subs, nil
}
