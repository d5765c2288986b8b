package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/go-git/go-git/v5/utils/merkletrie"

	"github.com/TWChennai/gocd-git-path-material-plugin/internal/util/sets"
)

const (
	embeddedVersion = "go-git/v5 (embedded)"
	// gcPruneExpiry mirrors the default gc.pruneExpire of the git tool.
	gcPruneExpiry = 14 * 24 * time.Hour
)

var errStopWalk = errors.New("stop walk")

// GoGitBackend implements Backend in process with go-git.
type GoGitBackend struct {
	dir string
	cfg *RepositoryConfig
	out Output
}

// NewGoGitBackend binds an embedded backend to dir.
func NewGoGitBackend(dir string, cfg *RepositoryConfig, opts BackendOptions) *GoGitBackend {
	return &GoGitBackend{dir: dir, cfg: cfg, out: opts.Output}
}

func (b *GoGitBackend) Kind() BackendKind { return BackendEmbedded }
func (b *GoGitBackend) Dir() string       { return b.dir }

func (b *GoGitBackend) At(dir string, cfg *RepositoryConfig) Backend {
	return &GoGitBackend{dir: filepath.Join(b.dir, dir), cfg: cfg, out: b.out}
}

// fail wraps a go-git error in the same failure shape the command backend
// produces, with secrets masked.
func (b *GoGitBackend) fail(op string, err error) error {
	secrets := b.cfg.Redactables()
	msg := Redact(fmt.Sprintf("go-git %s failed: %v (in %s)", op, err, b.dir), secrets)
	cause := err
	if Redact(err.Error(), secrets) != err.Error() {
		cause = errors.New(Redact(err.Error(), secrets))
	}
	return &CommandFailure{
		Command:  Redact("go-git "+op, secrets),
		Dir:      b.dir,
		ExitCode: 1,
		Message:  msg,
		Err:      cause,
	}
}

func (b *GoGitBackend) open() (*git.Repository, error) {
	return git.PlainOpen(b.dir)
}

func (b *GoGitBackend) openAt(dir string) (*git.Repository, error) {
	return git.PlainOpen(filepath.Join(b.dir, dir))
}

func (b *GoGitBackend) auth() transport.AuthMethod {
	if !b.cfg.IsRemoteURL() || !b.cfg.HasCredentials() {
		return nil
	}
	return &http.BasicAuth{Username: b.cfg.Username, Password: b.cfg.Password}
}

func (b *GoGitBackend) progress() *sinkWriter {
	return &sinkWriter{sink: redactingSink(b.out.stderr(), b.cfg.Redactables())}
}

func (b *GoGitBackend) resolve(repo *git.Repository, rev string) (plumbing.Hash, error) {
	h, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: %s: %v", ErrNoRevision, rev, err)
	}
	return *h, nil
}

func (b *GoGitBackend) Version(ctx context.Context) (string, error) {
	return embeddedVersion, nil
}

func (b *GoGitBackend) LsRemote(ctx context.Context) error {
	rem := git.NewRemote(memory.NewStorage(), &ggitcfg.RemoteConfig{
		Name: RemoteName,
		URLs: []string{b.cfg.EffectiveURL()},
	})
	_, err := rem.ListContext(ctx, &git.ListOptions{Auth: b.auth()})
	if err != nil && !errors.Is(err, transport.ErrEmptyRemoteRepository) {
		return b.fail("ls-remote "+b.cfg.EffectiveURL(), err)
	}
	return nil
}

func (b *GoGitBackend) Clone(ctx context.Context) error {
	opts := &git.CloneOptions{
		URL:           b.cfg.EffectiveURL(),
		Auth:          b.auth(),
		RemoteName:    RemoteName,
		ReferenceName: plumbing.NewBranchReferenceName(b.cfg.EffectiveBranch()),
		NoCheckout:    b.cfg.NoCheckout,
		Progress:      b.progress(),
	}
	if b.cfg.ShallowClone != nil {
		opts.Depth = b.cfg.ShallowClone.DefaultDepth
		opts.SingleBranch = true
	}
	if _, err := git.PlainCloneContext(ctx, b.dir, false, opts); err != nil {
		return b.fail("clone "+b.cfg.EffectiveURL(), err)
	}
	return nil
}

func (b *GoGitBackend) RemoteURL(ctx context.Context) (string, error) {
	repo, err := b.open()
	if err != nil {
		return "", b.fail("config remote."+RemoteName+".url", err)
	}
	rem, err := repo.Remote(RemoteName)
	if err != nil {
		return "", b.fail("config remote."+RemoteName+".url", err)
	}
	urls := rem.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("no url configured for remote %s", RemoteName)
	}
	return urls[0], nil
}

func (b *GoGitBackend) fetch(ctx context.Context, op string, opts *git.FetchOptions) error {
	repo, err := b.open()
	if err != nil {
		return b.fail(op, err)
	}
	opts.RemoteName = RemoteName
	opts.Auth = b.auth()
	opts.Progress = b.progress()
	if err := repo.FetchContext(ctx, opts); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return b.fail(op, err)
	}
	return nil
}

func (b *GoGitBackend) Fetch(ctx context.Context, refSpec string) error {
	opts := &git.FetchOptions{Prune: true}
	if refSpec != "" {
		rs := ggitcfg.RefSpec(refSpec)
		if err := rs.Validate(); err != nil {
			return b.fail("fetch "+refSpec, err)
		}
		opts.RefSpecs = []ggitcfg.RefSpec{rs}
	}
	return b.fetch(ctx, strings.TrimSpace("fetch "+RemoteName+" "+refSpec), opts)
}

func (b *GoGitBackend) FetchToDepth(ctx context.Context, depth int) error {
	return b.fetch(ctx, fmt.Sprintf("fetch %s --depth=%d", RemoteName, depth), &git.FetchOptions{Depth: depth})
}

// GC prunes unreachable loose objects. go-git cannot prune shallow
// repositories safely, so those are left alone; failures are reported on the
// error stream and never fail the sync.
func (b *GoGitBackend) GC(ctx context.Context) error {
	repo, err := b.open()
	if err != nil {
		return b.fail("gc", err)
	}
	if shallow, _ := repo.Storer.Shallow(); len(shallow) > 0 {
		return nil
	}
	err = repo.Prune(git.PruneOptions{
		OnlyObjectsOlderThan: time.Now().Add(-gcPruneExpiry),
		Handler:              repo.DeleteObject,
	})
	if err != nil {
		b.out.stderr()("gc: " + Redact(err.Error(), b.cfg.Redactables()))
	}
	return nil
}

func (b *GoGitBackend) Clean(ctx context.Context, dir string) error {
	repo, err := b.openAt(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil
	}
	if err != nil {
		return b.fail("clean -dff", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return b.fail("clean -dff", err)
	}
	if err := wt.Clean(&git.CleanOptions{Dir: true}); err != nil {
		return b.fail("clean -dff", err)
	}
	return nil
}

func (b *GoGitBackend) ResetHard(ctx context.Context, revision string) error {
	op := "reset --hard " + revision
	repo, err := b.open()
	if err != nil {
		return b.fail(op, err)
	}
	hash, err := b.resolve(repo, revision)
	if err != nil {
		return b.fail(op, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return b.fail(op, err)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: hash, Mode: git.HardReset}); err != nil {
		return b.fail(op, err)
	}
	b.out.stdout()("HEAD is now at " + hash.String()[:7])
	return nil
}

func (b *GoGitBackend) RemoteBranchesContaining(ctx context.Context, revision string) ([]string, error) {
	op := "branch -r --contains " + revision
	repo, err := b.open()
	if err != nil {
		return nil, b.fail(op, err)
	}
	target, err := b.resolve(repo, revision)
	if err != nil {
		return nil, b.fail(op, err)
	}
	iter, err := repo.References()
	if err != nil {
		return nil, b.fail(op, err)
	}
	var tips []*plumbing.Reference
	_ = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() == plumbing.HashReference && ref.Name().IsRemote() {
			tips = append(tips, ref)
		}
		return nil
	})

	var branches []string
	for _, ref := range tips {
		found := false
		err := ancestors(repo, ref.Hash(), nil, func(c *object.Commit) error {
			if c.Hash == target {
				found = true
				return errStopWalk
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopWalk) {
			return nil, b.fail(op, err)
		}
		if found {
			branches = append(branches, strings.TrimPrefix(ref.Name().String(), "refs/remotes/"))
		}
	}
	sort.Strings(branches)
	return branches, nil
}

func (b *GoGitBackend) CheckoutBranch(ctx context.Context, branch string) error {
	op := "checkout -f " + branch
	repo, err := b.open()
	if err != nil {
		return b.fail(op, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return b.fail(op, err)
	}
	err = wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(branch), Force: true})
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		var remote *plumbing.Reference
		remote, err = repo.Reference(plumbing.NewRemoteReferenceName(RemoteName, branch), true)
		if err == nil {
			err = wt.Checkout(&git.CheckoutOptions{
				Branch: plumbing.NewBranchReferenceName(branch),
				Hash:   remote.Hash(),
				Create: true,
				Force:  true,
			})
		}
	}
	if err != nil {
		return b.fail(op, err)
	}
	return nil
}

func (b *GoGitBackend) CurrentBranch(ctx context.Context) (string, error) {
	repo, err := b.open()
	if err != nil {
		return "", b.fail("rev-parse --abbrev-ref HEAD", err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", b.fail("rev-parse --abbrev-ref HEAD", err)
	}
	if !head.Name().IsBranch() {
		return "HEAD", nil
	}
	return head.Name().Short(), nil
}

func (b *GoGitBackend) CurrentRevision(ctx context.Context) (string, error) {
	repo, err := b.open()
	if err != nil {
		return "", b.fail("log -1", err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", b.fail("log -1", err)
	}
	return head.Hash().String(), nil
}

func (b *GoGitBackend) CommitCount(ctx context.Context, dir string) (int, error) {
	repo, err := b.openAt(dir)
	if err != nil {
		return 0, b.fail("rev-list HEAD --count", err)
	}
	head, err := repo.Head()
	if err != nil {
		return 0, b.fail("rev-list HEAD --count", err)
	}
	n := 0
	err = ancestors(repo, head.Hash(), nil, func(*object.Commit) error {
		n++
		return ctx.Err()
	})
	if err != nil {
		return 0, b.fail("rev-list HEAD --count", err)
	}
	return n, nil
}

func (b *GoGitBackend) Log(ctx context.Context, q LogQuery) ([]*Revision, error) {
	tipRev := q.Tip
	if tipRev == "" {
		tipRev = "HEAD"
	}
	op := "log " + tipRev
	if q.Exclude != "" {
		op = "log " + q.Exclude + ".." + tipRev
	}

	repo, err := b.open()
	if err != nil {
		return nil, b.fail(op, err)
	}
	tip, err := b.resolve(repo, tipRev)
	if err != nil {
		return nil, b.fail(op, err)
	}

	excluded := sets.New[plumbing.Hash]()
	if q.Exclude != "" {
		ex, err := b.resolve(repo, q.Exclude)
		if err != nil {
			return nil, b.fail(op, err)
		}
		err = ancestors(repo, ex, nil, func(c *object.Commit) error {
			excluded.Add(c.Hash)
			return ctx.Err()
		})
		if err != nil {
			return nil, b.fail(op, err)
		}
	}

	var commits []*object.Commit
	err = ancestors(repo, tip, excluded, func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(q.Paths) > 0 {
			ok, err := touchesPaths(repo, c, q.Paths)
			if err != nil || !ok {
				return err
			}
		}
		commits = append(commits, c)
		return nil
	})
	if err != nil {
		return nil, b.fail(op, err)
	}

	sort.SliceStable(commits, func(i, j int) bool {
		return commits[i].Committer.When.After(commits[j].Committer.When)
	})
	if q.Limit > 0 && len(commits) > q.Limit {
		commits = commits[:q.Limit]
	}

	revisions := make([]*Revision, 0, len(commits))
	for _, c := range commits {
		revisions = append(revisions, &Revision{
			SHA:           c.Hash.String(),
			Timestamp:     c.Author.When,
			Author:        fmt.Sprintf("%s <%s>", c.Author.Name, c.Author.Email),
			Email:         c.Author.Email,
			Comment:       trimComment(c.Message),
			MergeCommit:   len(presentParents(repo, c)) > 1,
			ModifiedFiles: []ModifiedFile{},
		})
	}
	return revisions, nil
}

// ModifiedFiles reports the files changed by sha. For merges only files that
// differ from every parent are listed, with the action relative to the first
// parent.
func (b *GoGitBackend) ModifiedFiles(ctx context.Context, sha string) ([]ModifiedFile, error) {
	op := "diff-tree " + sha
	repo, err := b.open()
	if err != nil {
		return nil, b.fail(op, err)
	}
	hash, err := b.resolve(repo, sha)
	if err != nil {
		return nil, b.fail(op, err)
	}
	c, err := repo.CommitObject(hash)
	if err != nil {
		return nil, b.fail(op, err)
	}
	perParent, err := changesByParent(repo, c)
	if err != nil {
		return nil, b.fail(op, err)
	}

	files := []ModifiedFile{}
	for name, action := range perParent[0] {
		inAll := true
		for _, other := range perParent[1:] {
			if _, ok := other[name]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			files = append(files, ModifiedFile{Path: name, Action: actionOf(action)})
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func (b *GoGitBackend) Refs(ctx context.Context) ([]Ref, error) {
	repo, err := b.open()
	if err != nil {
		return nil, b.fail("show-ref", err)
	}
	iter, err := repo.References()
	if err != nil {
		return nil, b.fail("show-ref", err)
	}
	var refs []Ref
	_ = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() == plumbing.HashReference && ref.Name() != plumbing.HEAD {
			refs = append(refs, Ref{Name: ref.Name().String(), SHA: ref.Hash().String()})
		}
		return nil
	})
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

func (b *GoGitBackend) SubmoduleURLs(ctx context.Context) (map[string]string, error) {
	urls := map[string]string{}
	repo, err := b.open()
	if err != nil {
		return urls, nil
	}
	cfg, err := repo.Config()
	if err != nil {
		return urls, nil
	}
	for name, s := range cfg.Submodules {
		if s.URL != "" {
			urls[name] = s.URL
		}
	}
	return urls, nil
}

func (b *GoGitBackend) SubmodulePaths(ctx context.Context) (map[string]string, error) {
	paths := map[string]string{}
	data, err := os.ReadFile(filepath.Join(b.dir, ".gitmodules"))
	if err != nil {
		return paths, nil
	}
	m := ggitcfg.NewModules()
	if err := m.Unmarshal(data); err != nil {
		return nil, b.fail("config -f .gitmodules", err)
	}
	for name, s := range m.Submodules {
		if s.Path != "" {
			paths[name] = s.Path
		}
	}
	return paths, nil
}

func (b *GoGitBackend) SubmoduleFolders(ctx context.Context) ([]string, error) {
	repo, err := b.open()
	if err != nil {
		return nil, b.fail("submodule status", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, b.fail("submodule status", err)
	}
	subs, err := wt.Submodules()
	if err != nil {
		return nil, b.fail("submodule status", err)
	}
	folders := make([]string, 0, len(subs))
	for _, s := range subs {
		folders = append(folders, s.Config().Path)
	}
	sort.Strings(folders)
	return folders, nil
}

func (b *GoGitBackend) RemoveSubmoduleSection(ctx context.Context, name string) error {
	op := "config --remove-section submodule." + name
	repo, err := b.open()
	if err != nil {
		return b.fail(op, err)
	}
	cfg, err := repo.Config()
	if err != nil {
		return b.fail(op, err)
	}
	if _, ok := cfg.Submodules[name]; !ok {
		return b.fail(op, errors.New("no such section"))
	}
	delete(cfg.Submodules, name)
	if err := repo.SetConfig(cfg); err != nil {
		return b.fail(op, err)
	}
	return nil
}

// editManifest rewrites .gitmodules through fn.
func (b *GoGitBackend) editManifest(op string, fn func(m *ggitcfg.Modules) error) error {
	path := filepath.Join(b.dir, ".gitmodules")
	data, err := os.ReadFile(path)
	if err != nil {
		return b.fail(op, err)
	}
	m := ggitcfg.NewModules()
	if err := m.Unmarshal(data); err != nil {
		return b.fail(op, err)
	}
	if err := fn(m); err != nil {
		return b.fail(op, err)
	}
	data, err = m.Marshal()
	if err != nil {
		return b.fail(op, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return b.fail(op, err)
	}
	return nil
}

func (b *GoGitBackend) RemoveSubmoduleManifestSection(ctx context.Context, name string) error {
	return b.editManifest("config -f .gitmodules --remove-section submodule."+name, func(m *ggitcfg.Modules) error {
		if _, ok := m.Submodules[name]; !ok {
			return errors.New("no such section")
		}
		delete(m.Submodules, name)
		return nil
	})
}

func (b *GoGitBackend) SetSubmoduleManifestURL(ctx context.Context, name, url string) error {
	return b.editManifest("config --file .gitmodules submodule."+name+".url", func(m *ggitcfg.Modules) error {
		s, ok := m.Submodules[name]
		if !ok {
			s = &ggitcfg.Submodule{Name: name, Path: name}
			m.Submodules[name] = s
		}
		s.URL = url
		return nil
	})
}

func (b *GoGitBackend) Untrack(ctx context.Context, path string) error {
	op := "rm --cached " + path
	repo, err := b.open()
	if err != nil {
		return b.fail(op, err)
	}
	idx, err := repo.Storer.Index()
	if err != nil {
		return b.fail(op, err)
	}
	if _, err := idx.Remove(path); err != nil {
		return b.fail(op, err)
	}
	if err := repo.Storer.SetIndex(idx); err != nil {
		return b.fail(op, err)
	}
	return nil
}

// populatedSubmodules opens every checked-out submodule of repo, rooted at
// dir. Submodules without a working copy are skipped.
func populatedSubmodules(repo *git.Repository, dir string) (map[string]*git.Repository, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return nil, err
	}
	subs, err := wt.Submodules()
	if err != nil {
		return nil, err
	}
	out := make(map[string]*git.Repository, len(subs))
	for _, s := range subs {
		path := filepath.Join(dir, s.Config().Path)
		if _, err := os.Stat(filepath.Join(path, ".git")); err != nil {
			continue
		}
		sub, err := git.PlainOpen(path)
		if err != nil {
			return nil, err
		}
		out[path] = sub
	}
	return out, nil
}

func (b *GoGitBackend) SubmoduleCheckoutAll(ctx context.Context) error {
	repo, err := b.open()
	if err != nil {
		return b.fail("submodule foreach --recursive checkout", err)
	}
	if err := checkoutSubmodules(ctx, repo, b.dir); err != nil {
		return b.fail("submodule foreach --recursive checkout", err)
	}
	return nil
}

func checkoutSubmodules(ctx context.Context, repo *git.Repository, dir string) error {
	subs, err := populatedSubmodules(repo, dir)
	if err != nil {
		return err
	}
	for path, sub := range subs {
		if err := ctx.Err(); err != nil {
			return err
		}
		wt, err := sub.Worktree()
		if err != nil {
			return err
		}
		if err := wt.Reset(&git.ResetOptions{Mode: git.HardReset}); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := checkoutSubmodules(ctx, sub, path); err != nil {
			return err
		}
	}
	return nil
}

func (b *GoGitBackend) SubmoduleInit(ctx context.Context) error {
	repo, err := b.open()
	if err != nil {
		return b.fail("submodule init", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return b.fail("submodule init", err)
	}
	subs, err := wt.Submodules()
	if err != nil {
		return b.fail("submodule init", err)
	}
	for _, s := range subs {
		if err := s.Init(); err != nil && !errors.Is(err, git.ErrSubmoduleAlreadyInitialized) {
			return b.fail("submodule init", err)
		}
		b.out.stdout()(fmt.Sprintf("Submodule '%s' (%s) registered for path '%s'",
			s.Config().Name, Redact(s.Config().URL, b.cfg.Redactables()), s.Config().Path))
	}
	return nil
}

func (b *GoGitBackend) SubmoduleSync(ctx context.Context) error {
	repo, err := b.open()
	if err != nil {
		return b.fail("submodule sync", err)
	}
	if err := syncSubmodules(repo, b.dir); err != nil {
		return b.fail("submodule sync", err)
	}
	return nil
}

// syncSubmodules copies manifest URLs into the local config of repo and into
// the origin remote of each checked-out submodule, recursively.
func syncSubmodules(repo *git.Repository, dir string) error {
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	subs, err := wt.Submodules()
	if err != nil || len(subs) == 0 {
		return err
	}
	cfg, err := repo.Config()
	if err != nil {
		return err
	}
	for _, s := range subs {
		if local, ok := cfg.Submodules[s.Config().Name]; ok {
			local.URL = s.Config().URL
		}
	}
	if err := repo.SetConfig(cfg); err != nil {
		return err
	}

	populated, err := populatedSubmodules(repo, dir)
	if err != nil {
		return err
	}
	urls := make(map[string]string, len(subs))
	for _, s := range subs {
		urls[filepath.Join(dir, s.Config().Path)] = s.Config().URL
	}
	for path, sub := range populated {
		subCfg, err := sub.Config()
		if err != nil {
			return err
		}
		if rem, ok := subCfg.Remotes[RemoteName]; ok {
			rem.URLs = []string{urls[path]}
			if err := sub.SetConfig(subCfg); err != nil {
				return err
			}
		}
		if err := syncSubmodules(sub, path); err != nil {
			return err
		}
	}
	return nil
}

func (b *GoGitBackend) SubmoduleUpdate(ctx context.Context) error {
	repo, err := b.open()
	if err != nil {
		return b.fail("submodule update", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return b.fail("submodule update", err)
	}
	subs, err := wt.Submodules()
	if err != nil {
		return b.fail("submodule update", err)
	}
	opts := &git.SubmoduleUpdateOptions{Auth: b.auth()}
	if b.cfg.RecursiveSubmoduleUpdate {
		opts.Init = true
		opts.RecurseSubmodules = git.DefaultSubmoduleRecursionDepth
	}
	if err := subs.UpdateContext(ctx, opts); err != nil {
		return b.fail("submodule update", err)
	}
	return nil
}

// ancestors visits every commit reachable from tip once, breadth first.
// Commits in stop are neither visited nor expanded. Parents cut off by a
// shallow boundary end the walk along that line. A visit returning
// errStopWalk ends the walk early and the error is passed through.
func ancestors(repo *git.Repository, tip plumbing.Hash, stop sets.Set[plumbing.Hash], visit func(*object.Commit) error) error {
	if stop.Has(tip) {
		return nil
	}
	seen := sets.New(tip)
	queue := []plumbing.Hash{tip}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		c, err := repo.CommitObject(h)
		if err != nil {
			if h != tip && errors.Is(err, plumbing.ErrObjectNotFound) {
				continue
			}
			return err
		}
		if err := visit(c); err != nil {
			return err
		}
		for _, p := range c.ParentHashes {
			if !seen.Has(p) && !stop.Has(p) {
				seen.Add(p)
				queue = append(queue, p)
			}
		}
	}
	return nil
}

func presentParents(repo *git.Repository, c *object.Commit) []*object.Commit {
	var parents []*object.Commit
	for _, h := range c.ParentHashes {
		if p, err := repo.CommitObject(h); err == nil {
			parents = append(parents, p)
		}
	}
	return parents
}

// changesByParent diffs c against each available parent, or against the
// empty tree for a root commit. The result always has at least one entry.
func changesByParent(repo *git.Repository, c *object.Commit) ([]map[string]merkletrie.Action, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}
	parents := presentParents(repo, c)
	if len(parents) == 0 {
		changes, err := object.DiffTree(nil, tree)
		if err != nil {
			return nil, err
		}
		m, err := changeMap(changes)
		if err != nil {
			return nil, err
		}
		return []map[string]merkletrie.Action{m}, nil
	}

	out := make([]map[string]merkletrie.Action, 0, len(parents))
	for _, p := range parents {
		pt, err := p.Tree()
		if err != nil {
			return nil, err
		}
		changes, err := object.DiffTree(pt, tree)
		if err != nil {
			return nil, err
		}
		m, err := changeMap(changes)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func changeMap(changes object.Changes) (map[string]merkletrie.Action, error) {
	m := make(map[string]merkletrie.Action, len(changes))
	for _, ch := range changes {
		action, err := ch.Action()
		if err != nil {
			return nil, err
		}
		name := ch.To.Name
		if name == "" {
			name = ch.From.Name
		}
		m[name] = action
	}
	return m, nil
}

func actionOf(a merkletrie.Action) Action {
	switch a {
	case merkletrie.Insert:
		return ActionAdded
	case merkletrie.Modify:
		return ActionModified
	case merkletrie.Delete:
		return ActionDeleted
	default:
		return ActionUnknown
	}
}

// touchesPaths reports whether c changes any of paths relative to every
// parent. A merge that matches one parent exactly on those paths is skipped.
func touchesPaths(repo *git.Repository, c *object.Commit, paths []string) (bool, error) {
	perParent, err := changesByParent(repo, c)
	if err != nil {
		return false, err
	}
	for _, m := range perParent {
		touched := false
		for name := range m {
			if matchesPath(name, paths) {
				touched = true
				break
			}
		}
		if !touched {
			return false, nil
		}
	}
	return true, nil
}

// matchesPath applies literal pathspec semantics: a path matches itself and
// everything below it.
func matchesPath(name string, paths []string) bool {
	for _, p := range paths {
		p = strings.Trim(strings.TrimSpace(p), "/")
		if p == "" || p == "." || name == p || strings.HasPrefix(name, p+"/") {
			return true
		}
	}
	return false
}

// sinkWriter adapts a Sink to the io.Writer go-git reports progress on.
// Progress updates are terminated by either \r or \n.
type sinkWriter struct {
	sink Sink
	buf  []byte
}

func (w *sinkWriter) Write(p []byte) (int, error) {
	for _, c := range p {
		if c == '\n' || c == '\r' {
			w.flush()
			continue
		}
		w.buf = append(w.buf, c)
	}
	return len(p), nil
}

func (w *sinkWriter) flush() {
	if line := strings.TrimSpace(string(w.buf)); line != "" {
		w.sink(line)
	}
	w.buf = w.buf[:0]
}
