package git

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// CmdBackend implements Backend by running the git executable.
type CmdBackend struct {
	dir               string
	cfg               *RepositoryConfig
	runner            Runner
	out               Output
	gitBinary         string
	allowFileProtocol bool
}

// NewCmdBackend binds a command backend to dir.
func NewCmdBackend(dir string, cfg *RepositoryConfig, opts BackendOptions) *CmdBackend {
	runner := opts.Runner
	if runner == nil {
		runner = NewExecRunner(nil)
	}
	bin := opts.GitBinary
	if bin == "" {
		bin = "git"
	}
	return &CmdBackend{
		dir:               dir,
		cfg:               cfg,
		runner:            runner,
		out:               opts.Output,
		gitBinary:         bin,
		allowFileProtocol: opts.AllowFileProtocol,
	}
}

func (b *CmdBackend) Kind() BackendKind { return BackendCommand }
func (b *CmdBackend) Dir() string       { return b.dir }

func (b *CmdBackend) At(dir string, cfg *RepositoryConfig) Backend {
	return &CmdBackend{
		dir:               filepath.Join(b.dir, dir),
		cfg:               cfg,
		runner:            b.runner,
		out:               b.out,
		gitBinary:         b.gitBinary,
		allowFileProtocol: b.allowFileProtocol,
	}
}

// run executes a mutating command in the working directory and streams its
// output to the configured sinks.
func (b *CmdBackend) run(ctx context.Context, args ...string) error {
	_, err := b.runner.Run(ctx, Command{
		Name:    b.gitBinary,
		Args:    args,
		Dir:     b.dir,
		Secrets: b.cfg.Redactables(),
		Stdout:  b.out.stdout(),
		Stderr:  b.out.stderr(),
	})
	return err
}

// query captures output without streaming it.
func (b *CmdBackend) query(ctx context.Context, dir string, args ...string) (*CommandResult, error) {
	return b.runner.Run(ctx, Command{
		Name:    b.gitBinary,
		Args:    args,
		Dir:     dir,
		Secrets: b.cfg.Redactables(),
	})
}

func (b *CmdBackend) Version(ctx context.Context) (string, error) {
	res, err := b.query(ctx, "", "--version")
	if err != nil {
		return "", err
	}
	return res.First(), nil
}

func (b *CmdBackend) LsRemote(ctx context.Context) error {
	_, err := b.query(ctx, "", "ls-remote", b.cfg.EffectiveURL())
	return err
}

func (b *CmdBackend) Clone(ctx context.Context) error {
	target, err := filepath.Abs(b.dir)
	if err != nil {
		return err
	}
	args := []string{"clone", "--branch=" + b.cfg.EffectiveBranch()}
	if b.cfg.NoCheckout {
		args = append(args, "--no-checkout")
	}
	if b.cfg.ShallowClone != nil {
		args = append(args, "--depth="+strconv.Itoa(b.cfg.ShallowClone.DefaultDepth))
	}
	args = append(args, b.cfg.EffectiveURL(), target)
	_, err = b.runner.Run(ctx, Command{
		Name:    b.gitBinary,
		Args:    args,
		Secrets: b.cfg.Redactables(),
		Stdout:  b.out.stdout(),
		Stderr:  b.out.stderr(),
	})
	return err
}

func (b *CmdBackend) RemoteURL(ctx context.Context) (string, error) {
	res, err := b.query(ctx, b.dir, "config", "remote."+RemoteName+".url")
	if err != nil {
		return "", err
	}
	if len(res.Stdout) == 0 {
		return "", fmt.Errorf("no url configured for remote %s", RemoteName)
	}
	return res.First(), nil
}

func (b *CmdBackend) Fetch(ctx context.Context, refSpec string) error {
	args := []string{"fetch", RemoteName, "--prune", "--recurse-submodules=no"}
	if refSpec != "" {
		args = append(args, refSpec)
	}
	return b.run(ctx, args...)
}

func (b *CmdBackend) FetchToDepth(ctx context.Context, depth int) error {
	return b.run(ctx, "fetch", RemoteName, "--depth="+strconv.Itoa(depth), "--recurse-submodules=no")
}

func (b *CmdBackend) GC(ctx context.Context) error {
	return b.run(ctx, "gc", "--auto")
}

func (b *CmdBackend) Clean(ctx context.Context, dir string) error {
	_, err := b.runner.Run(ctx, Command{
		Name:    b.gitBinary,
		Args:    []string{"clean", "-dff"},
		Dir:     filepath.Join(b.dir, dir),
		Secrets: b.cfg.Redactables(),
		Stdout:  b.out.stdout(),
		Stderr:  b.out.stderr(),
	})
	return err
}

func (b *CmdBackend) ResetHard(ctx context.Context, revision string) error {
	return b.run(ctx, "reset", "--hard", revision)
}

func (b *CmdBackend) RemoteBranchesContaining(ctx context.Context, revision string) ([]string, error) {
	res, err := b.query(ctx, b.dir, "branch", "-r", "--contains", revision)
	if err != nil {
		return nil, err
	}
	branches := make([]string, 0, len(res.Stdout))
	for _, l := range res.Stdout {
		if l = strings.TrimSpace(l); l != "" {
			branches = append(branches, l)
		}
	}
	return branches, nil
}

func (b *CmdBackend) CheckoutBranch(ctx context.Context, branch string) error {
	return b.run(ctx, "checkout", "-f", branch)
}

func (b *CmdBackend) CurrentBranch(ctx context.Context) (string, error) {
	res, err := b.query(ctx, b.dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return res.First(), nil
}

func (b *CmdBackend) CurrentRevision(ctx context.Context) (string, error) {
	res, err := b.query(ctx, b.dir, "log", "-1", "--pretty=format:%H", "--no-decorate", "--no-color")
	if err != nil {
		return "", err
	}
	return res.First(), nil
}

func (b *CmdBackend) CommitCount(ctx context.Context, dir string) (int, error) {
	res, err := b.query(ctx, filepath.Join(b.dir, dir), "rev-list", "HEAD", "--count")
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(res.First()))
	if err != nil {
		return 0, &ParseError{Parser: "git rev-list", Line: res.First(), Output: res.Stdout}
	}
	return n, nil
}

// logArgs builds `git log --date=iso --pretty=medium` for q.
func logArgs(q LogQuery) []string {
	args := []string{"log", "--date=iso", "--pretty=medium", "--no-decorate", "--no-color"}
	if q.Limit > 0 {
		args = append(args, "-"+strconv.Itoa(q.Limit))
	}
	switch {
	case q.Exclude != "":
		tip := q.Tip
		if tip == "" {
			tip = "HEAD"
		}
		args = append(args, q.Exclude+".."+tip)
	case q.Tip != "":
		args = append(args, q.Tip)
	}
	if len(q.Paths) > 0 {
		args = append(args, "--")
		for _, p := range q.Paths {
			args = append(args, strings.TrimSpace(p))
		}
	}
	return args
}

func (b *CmdBackend) Log(ctx context.Context, q LogQuery) ([]*Revision, error) {
	res, err := b.query(ctx, b.dir, logArgs(q)...)
	if err != nil {
		return nil, err
	}
	return ParseLog(res.Stdout)
}

func (b *CmdBackend) ModifiedFiles(ctx context.Context, sha string) ([]ModifiedFile, error) {
	res, err := b.query(ctx, b.dir, "diff-tree", "--name-status", "--root", "-r", "-c", sha)
	if err != nil {
		return nil, err
	}
	return ParseDiffTree(sha, res.Stdout)
}

func (b *CmdBackend) Refs(ctx context.Context) ([]Ref, error) {
	res, err := b.query(ctx, b.dir, "show-ref")
	if err != nil {
		return nil, err
	}
	refs := make([]Ref, 0, len(res.Stdout))
	for _, l := range res.Stdout {
		sha, name, ok := strings.Cut(l, " ")
		if !ok {
			return nil, &ParseError{Parser: "git show-ref", Line: l, Output: res.Stdout}
		}
		refs = append(refs, Ref{Name: name, SHA: sha})
	}
	return refs, nil
}

// SubmoduleURLs reads submodule URLs from the local config. git exits
// non-zero when no key matches, which is reported as an empty map.
func (b *CmdBackend) SubmoduleURLs(ctx context.Context) (map[string]string, error) {
	res, err := b.query(ctx, b.dir, "config", "--get-regexp", `^submodule\..+\.url`)
	if err != nil {
		return map[string]string{}, nil
	}
	return ParseSubmoduleURLs(res.Stdout)
}

// SubmodulePaths reads submodule paths from .gitmodules. A missing manifest
// or one without paths is reported as an empty map.
func (b *CmdBackend) SubmodulePaths(ctx context.Context) (map[string]string, error) {
	res, err := b.query(ctx, b.dir, "config", "-f", ".gitmodules", "--get-regexp", `^submodule\..+\.path`)
	if err != nil {
		return map[string]string{}, nil
	}
	return ParseSubmodulePaths(res.Stdout)
}

func (b *CmdBackend) SubmoduleFolders(ctx context.Context) ([]string, error) {
	res, err := b.query(ctx, b.dir, "submodule", "status")
	if err != nil {
		return nil, err
	}
	return ParseSubmoduleStatus(res.Stdout)
}

func (b *CmdBackend) RemoveSubmoduleSection(ctx context.Context, name string) error {
	return b.run(ctx, "config", "--remove-section", "submodule."+name)
}

func (b *CmdBackend) RemoveSubmoduleManifestSection(ctx context.Context, name string) error {
	return b.run(ctx, "config", "-f", ".gitmodules", "--remove-section", "submodule."+name)
}

func (b *CmdBackend) SetSubmoduleManifestURL(ctx context.Context, name, url string) error {
	return b.run(ctx, "config", "--file", ".gitmodules", "submodule."+name+".url", url)
}

func (b *CmdBackend) Untrack(ctx context.Context, path string) error {
	return b.run(ctx, "rm", "--cached", path)
}

func (b *CmdBackend) SubmoduleCheckoutAll(ctx context.Context) error {
	return b.run(ctx, "submodule", "foreach", "--recursive", "git", "checkout", ".")
}

func (b *CmdBackend) SubmoduleInit(ctx context.Context) error {
	return b.run(ctx, "submodule", "init")
}

func (b *CmdBackend) SubmoduleSync(ctx context.Context) error {
	if err := b.run(ctx, "submodule", "sync"); err != nil {
		return err
	}
	return b.run(ctx, "submodule", "foreach", "--recursive", "git", "submodule", "sync")
}

func (b *CmdBackend) SubmoduleUpdate(ctx context.Context) error {
	return b.run(ctx, b.submoduleArgs("submodule", "update")...)
}

func (b *CmdBackend) submoduleArgs(args ...string) []string {
	if !b.allowFileProtocol {
		return args
	}
	return append([]string{"-c", "protocol.file.allow=always"}, args...)
}
