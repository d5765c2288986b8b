package helpers

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// fixtureEpoch is the first commit time of every fixture repository.
var fixtureEpoch = time.Date(2015, 1, 25, 11, 17, 15, 0, time.UTC)

// RequireGit skips the test when no git executable is on PATH.
func RequireGit(t testing.TB) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git executable not available")
	}
}

// GitRepo is a throwaway repository built with the git executable. Commits
// get strictly increasing timestamps one minute apart so history order is
// deterministic.
type GitRepo struct {
	t       testing.TB
	Dir     string
	commits int
}

// SetupTestGitRepo initializes a repository on branch master in a fresh
// temporary directory.
func SetupTestGitRepo(t testing.TB) *GitRepo {
	t.Helper()
	return InitGitRepo(t, t.TempDir())
}

// InitGitRepo initializes a repository on branch master at dir.
func InitGitRepo(t testing.TB, dir string) *GitRepo {
	t.Helper()
	RequireGit(t)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create %s: %v", dir, err)
	}
	r := &GitRepo{t: t, Dir: dir}
	r.Git("init", "--initial-branch=master")
	r.Git("config", "user.name", "Fixture Author")
	r.Git("config", "user.email", "author@example.com")
	r.Git("config", "commit.gpgsign", "false")
	return r
}

func (r *GitRepo) env() []string {
	when := fixtureEpoch.Add(time.Duration(r.commits) * time.Minute)
	stamp := fmt.Sprintf("@%d +0000", when.Unix())
	return append(os.Environ(),
		"GIT_CONFIG_NOSYSTEM=1",
		"GIT_CONFIG_GLOBAL="+os.DevNull,
		"GIT_AUTHOR_DATE="+stamp,
		"GIT_COMMITTER_DATE="+stamp,
	)
}

// Git runs git in the repository and returns trimmed stdout. The test fails
// on a non-zero exit.
func (r *GitRepo) Git(args ...string) string {
	r.t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	cmd.Env = r.env()
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		r.t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, stderr.String())
	}
	return strings.TrimSpace(string(out))
}

// WriteFile writes content to a path relative to the repository root.
func (r *GitRepo) WriteFile(name, content string) {
	r.t.Helper()
	path := filepath.Join(r.Dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.t.Fatalf("create parent of %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		r.t.Fatalf("write %s: %v", name, err)
	}
}

// Commit stages everything and commits it, returning the new revision.
func (r *GitRepo) Commit(message string) string {
	r.t.Helper()
	r.Git("add", "-A")
	r.Git("commit", "--allow-empty", "-m", message)
	r.commits++
	return r.Head()
}

// CommitFile writes one file and commits it.
func (r *GitRepo) CommitFile(name, content, message string) string {
	r.t.Helper()
	r.WriteFile(name, content)
	return r.Commit(message)
}

// Head returns the revision HEAD points at.
func (r *GitRepo) Head() string {
	r.t.Helper()
	return r.Git("rev-parse", "HEAD")
}

// Checkout switches branches, creating the branch when create is set.
func (r *GitRepo) Checkout(branch string, create bool) {
	r.t.Helper()
	if create {
		r.Git("checkout", "-b", branch)
		return
	}
	r.Git("checkout", branch)
}

// Merge merges branch into the current branch with a merge commit and
// returns it.
func (r *GitRepo) Merge(branch, message string) string {
	r.t.Helper()
	r.Git("merge", "--no-ff", "-m", message, branch)
	r.commits++
	return r.Head()
}

// AddSubmodule registers url as a submodule at path and commits it.
func (r *GitRepo) AddSubmodule(url, path string) string {
	r.t.Helper()
	r.Git("-c", "protocol.file.allow=always", "submodule", "add", url, path)
	return r.Commit("add submodule " + path)
}

// AddNamedSubmodule registers url as a submodule called name at path, so
// the submodule's name and path differ, and commits it.
func (r *GitRepo) AddNamedSubmodule(name, url, path string) string {
	r.t.Helper()
	r.Git("-c", "protocol.file.allow=always", "submodule", "add", "--name", name, url, path)
	return r.Commit("add submodule " + name + " at " + path)
}
