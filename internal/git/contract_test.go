package git

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	helpers "github.com/TWChennai/gocd-git-path-material-plugin/internal/testutil/testutils"
)

// Both backends must be indistinguishable through the Engine. Every test in
// this file runs once per backend against repositories built with git.

var contractBackends = []BackendKind{BackendCommand, BackendEmbedded}

func forEachBackend(t *testing.T, fn func(t *testing.T, kind BackendKind)) {
	for _, kind := range contractBackends {
		t.Run(string(kind), func(t *testing.T) {
			helpers.RequireGit(t)
			fn(t, kind)
		})
	}
}

func contractEngine(t *testing.T, kind BackendKind, cfg *RepositoryConfig, dir string) *Engine {
	t.Helper()
	out := Output{Stdout: Discard, Stderr: Discard}
	b, err := NewBackend(kind, dir, cfg, BackendOptions{Output: out, AllowFileProtocol: true})
	require.NoError(t, err)
	return NewEngine(b, cfg, out)
}

func workDir(t *testing.T) string {
	return filepath.Join(t.TempDir(), "working-copy")
}

var fixtureStart = time.Date(2015, 1, 25, 11, 17, 15, 0, time.UTC)

func TestContractCloneAndInspect(t *testing.T) {
	forEachBackend(t, func(t *testing.T, kind BackendKind) {
		src := helpers.SetupTestGitRepo(t)
		first := src.CommitFile("a.txt", "a\n", "1")

		e := contractEngine(t, kind, NewRepositoryConfig(src.Dir), workDir(t))
		require.NoError(t, e.CloneOrFetch(t.Context(), ""))

		url, err := e.WorkingRepositoryURL(t.Context())
		require.NoError(t, err)
		assert.Equal(t, src.Dir, url)

		count, err := e.CommitCount(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		head, err := e.CurrentRevision(t.Context())
		require.NoError(t, err)
		assert.Equal(t, first, head)

		branch, err := e.CurrentBranch(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "master", branch)

		rev, err := e.RevisionDetails(t.Context(), first)
		require.NoError(t, err)
		require.NotNil(t, rev)
		assert.Equal(t, first, rev.SHA)
		assert.Equal(t, "1", rev.Comment)
		assert.Equal(t, "Fixture Author <author@example.com>", rev.Author)
		assert.Equal(t, "author@example.com", rev.Email)
		assert.True(t, rev.Timestamp.Equal(fixtureStart), "timestamp %s", rev.Timestamp)
		assert.False(t, rev.MergeCommit)
		assert.Equal(t, []ModifiedFile{{Path: "a.txt", Action: ActionAdded}}, rev.ModifiedFiles)
	})
}

func TestContractPollPicksUpNewRevisions(t *testing.T) {
	forEachBackend(t, func(t *testing.T, kind BackendKind) {
		src := helpers.SetupTestGitRepo(t)
		first := src.CommitFile("a.txt", "a\n", "1")

		e := contractEngine(t, kind, NewRepositoryConfig(src.Dir), workDir(t))
		require.NoError(t, e.CloneOrFetch(t.Context(), ""))

		latest, err := e.LatestRevision(t.Context(), nil)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, first, latest.SHA)

		second := src.CommitFile("a.txt", "a\nb\n", "2")
		src.WriteFile("b.txt", "b\n")
		third := src.CommitFile("a.txt", "a\nb\nc\n", "3\n\nwith a body")

		require.NoError(t, e.CloneOrFetch(t.Context(), ""))

		count, err := e.CommitCount(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		since, err := e.RevisionsSince(t.Context(), first, nil)
		require.NoError(t, err)
		require.Len(t, since, 2)
		assert.Equal(t, third, since[0].SHA)
		assert.Equal(t, second, since[1].SHA)
		assert.Equal(t, "3\n\nwith a body", since[0].Comment)
		assert.Equal(t, []ModifiedFile{
			{Path: "a.txt", Action: ActionModified},
			{Path: "b.txt", Action: ActionAdded},
		}, since[0].ModifiedFiles)
		assert.Equal(t, []ModifiedFile{{Path: "a.txt", Action: ActionModified}}, since[1].ModifiedFiles)

		all, err := e.AllRevisions(t.Context())
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{third, second, first}, []string{all[0].SHA, all[1].SHA, all[2].SHA})

		none, err := e.RevisionsSince(t.Context(), third, nil)
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestContractPathFilters(t *testing.T) {
	forEachBackend(t, func(t *testing.T, kind BackendKind) {
		src := helpers.SetupTestGitRepo(t)
		base := src.CommitFile("service/main.go", "package main\n", "service")
		docs := src.CommitFile("docs/readme.md", "# docs\n", "docs")
		src.CommitFile("other.txt", "x\n", "other")
		require.NoError(t, os.Remove(filepath.Join(src.Dir, "docs", "readme.md")))
		deleted := src.Commit("remove docs")

		e := contractEngine(t, kind, NewRepositoryConfig(src.Dir), workDir(t))
		require.NoError(t, e.CloneOrFetch(t.Context(), ""))

		latest, err := e.LatestRevision(t.Context(), []string{"service"})
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, base, latest.SHA)

		latest, err = e.LatestRevision(t.Context(), []string{" docs ", "service"})
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, deleted, latest.SHA)
		assert.Equal(t, []ModifiedFile{{Path: "docs/readme.md", Action: ActionDeleted}}, latest.ModifiedFiles)

		since, err := e.RevisionsSince(t.Context(), base, []string{"docs"})
		require.NoError(t, err)
		require.Len(t, since, 2)
		assert.Equal(t, deleted, since[0].SHA)
		assert.Equal(t, docs, since[1].SHA)

		missing, err := e.LatestRevision(t.Context(), []string{"nothing-here"})
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}

func TestContractMergeCommit(t *testing.T) {
	forEachBackend(t, func(t *testing.T, kind BackendKind) {
		lines := []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}
		src := helpers.SetupTestGitRepo(t)
		src.CommitFile("file.txt", strings.Join(lines, "\n")+"\n", "base")

		src.Checkout("test-branch", true)
		branchLines := append([]string{"one"}, lines[1:]...)
		src.CommitFile("file.txt", strings.Join(branchLines, "\n")+"\n", "branch change")

		src.Checkout("master", false)
		masterLines := append(append([]string{}, lines[:9]...), "ten")
		src.CommitFile("file.txt", strings.Join(masterLines, "\n")+"\n", "master change")

		src.Checkout("test-branch", false)
		merge := src.Merge("master", "Merge branch 'master' into test-branch")

		cfg := NewRepositoryConfig(src.Dir)
		cfg.Branch = "test-branch"
		e := contractEngine(t, kind, cfg, workDir(t))
		require.NoError(t, e.CloneOrFetch(t.Context(), ""))

		rev, err := e.LatestRevision(t.Context(), nil)
		require.NoError(t, err)
		require.NotNil(t, rev)
		assert.Equal(t, merge, rev.SHA)
		assert.True(t, rev.MergeCommit)
		assert.Equal(t, "Merge branch 'master' into test-branch", rev.Comment)
		assert.Equal(t, []ModifiedFile{{Path: "file.txt", Action: ActionModified}}, rev.ModifiedFiles)
	})
}

func TestContractBranchToRevisionMap(t *testing.T) {
	forEachBackend(t, func(t *testing.T, kind BackendKind) {
		src := helpers.SetupTestGitRepo(t)
		master := src.CommitFile("a.txt", "a\n", "1")
		src.Checkout("feature", true)
		feature := src.CommitFile("b.txt", "b\n", "2")
		src.Checkout("master", false)

		e := contractEngine(t, kind, NewRepositoryConfig(src.Dir), workDir(t))
		require.NoError(t, e.CloneOrFetch(t.Context(), ""))

		branches, err := e.BranchToRevisionMap(t.Context(), "")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"master": master, "feature": feature}, branches)
	})
}

func TestContractReclonesWhenRemoteChanges(t *testing.T) {
	forEachBackend(t, func(t *testing.T, kind BackendKind) {
		first := helpers.SetupTestGitRepo(t)
		first.CommitFile("a.txt", "a\n", "first repo")
		second := helpers.SetupTestGitRepo(t)
		want := second.CommitFile("z.txt", "z\n", "second repo")

		dir := workDir(t)
		require.NoError(t, contractEngine(t, kind, NewRepositoryConfig(first.Dir), dir).CloneOrFetch(t.Context(), ""))

		e := contractEngine(t, kind, NewRepositoryConfig(second.Dir), dir)
		require.NoError(t, e.CloneOrFetch(t.Context(), ""))

		head, err := e.CurrentRevision(t.Context())
		require.NoError(t, err)
		assert.Equal(t, want, head)
		helpers.NewWorkingCopyAssertions(t, dir).Exists("z.txt").Missing("a.txt")
	})
}

func TestContractResetCleansUntrackedFiles(t *testing.T) {
	forEachBackend(t, func(t *testing.T, kind BackendKind) {
		src := helpers.SetupTestGitRepo(t)
		src.CommitFile("a.txt", "a\n", "1")

		dir := workDir(t)
		e := contractEngine(t, kind, NewRepositoryConfig(src.Dir), dir)
		require.NoError(t, e.CloneOrFetch(t.Context(), ""))

		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("local edit\n"), 0o644))
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "build"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "build", "out.bin"), []byte("x"), 0o644))

		require.NoError(t, e.CloneOrFetch(t.Context(), ""))
		helpers.NewWorkingCopyAssertions(t, dir).
			FileContains("a.txt", "a").
			FileNotContains("a.txt", "local edit").
			Missing("build/out.bin")
	})
}

func TestContractNoCheckoutLeavesWorkingTreeEmpty(t *testing.T) {
	forEachBackend(t, func(t *testing.T, kind BackendKind) {
		src := helpers.SetupTestGitRepo(t)
		src.CommitFile("a.txt", "a\n", "1")

		cfg := NewRepositoryConfig(src.Dir)
		cfg.NoCheckout = true
		dir := workDir(t)
		e := contractEngine(t, kind, cfg, dir)
		require.NoError(t, e.CloneOrFetch(t.Context(), ""))

		helpers.NewWorkingCopyAssertions(t, dir).IsRepository("").Missing("a.txt")
		count, err := e.CommitCount(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestContractSubmodules(t *testing.T) {
	forEachBackend(t, func(t *testing.T, kind BackendKind) {
		sub := helpers.SetupTestGitRepo(t)
		sub.CommitFile("lib.txt", "lib\n", "sub 1")
		sub.CommitFile("lib.txt", "lib v2\n", "sub 2")

		src := helpers.SetupTestGitRepo(t)
		src.CommitFile("main.txt", "main\n", "main 1")
		src.AddSubmodule(sub.Dir, "sub")

		dir := workDir(t)
		e := contractEngine(t, kind, NewRepositoryConfig(src.Dir), dir)
		require.NoError(t, e.CloneOrFetch(t.Context(), ""))
		assert.True(t, e.SubmoduleEnabled())

		folders, err := e.SubmoduleFolders(t.Context())
		require.NoError(t, err)
		assert.Equal(t, []string{"sub"}, folders)

		count, err := e.CommitCount(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		subCount, err := e.SubmoduleCommitCount(t.Context(), "sub")
		require.NoError(t, err)
		assert.Equal(t, 2, subCount)
		helpers.NewWorkingCopyAssertions(t, dir).FileContains("sub/lib.txt", "lib v2")

		urls, err := e.SubmoduleURLs(t.Context())
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"sub": sub.Dir}, urls)

		// a second sync starts from a clean submodule config
		require.NoError(t, e.CloneOrFetch(t.Context(), ""))
		folders, err = e.SubmoduleFolders(t.Context())
		require.NoError(t, err)
		assert.Equal(t, []string{"sub"}, folders)

		subs, err := e.Submodules(t.Context())
		require.NoError(t, err)
		require.Len(t, subs, 1)
		n, err := subs[0].Engine.CommitCount(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}

func TestContractCheckConnection(t *testing.T) {
	forEachBackend(t, func(t *testing.T, kind BackendKind) {
		src := helpers.SetupTestGitRepo(t)
		src.CommitFile("a.txt", "a\n", "1")

		ok := contractEngine(t, kind, NewRepositoryConfig(src.Dir), workDir(t))
		require.NoError(t, ok.CheckConnection(t.Context()))

		bad := contractEngine(t, kind, NewRepositoryConfig(filepath.Join(t.TempDir(), "missing")), workDir(t))
		var cf *CommandFailure
		require.ErrorAs(t, bad.CheckConnection(t.Context()), &cf)

		v, err := ok.Version(t.Context())
		require.NoError(t, err)
		assert.NotEmpty(t, v)
	})
}

func TestContractSubmoduleNamedApartFromPath(t *testing.T) {
	forEachBackend(t, func(t *testing.T, kind BackendKind) {
		lib := helpers.SetupTestGitRepo(t)
		lib.CommitFile("lib.txt", "lib\n", "lib 1")

		src := helpers.SetupTestGitRepo(t)
		src.CommitFile("main.txt", "main\n", "main 1")
		src.AddNamedSubmodule("libname", lib.Dir, "vendor/lib")

		dir := workDir(t)
		e := contractEngine(t, kind, NewRepositoryConfig(src.Dir), dir)
		require.NoError(t, e.CloneOrFetch(t.Context(), ""))

		require.NoError(t, os.WriteFile(filepath.Join(dir, "vendor", "lib", "scratch.txt"), []byte("untracked\n"), 0o644))
		require.NoError(t, e.CloneOrFetch(t.Context(), ""))
		helpers.NewWorkingCopyAssertions(t, dir).
			Missing("vendor/lib/scratch.txt").
			FileContains("vendor/lib/lib.txt", "lib")

		paths, err := e.SubmodulePaths(t.Context())
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"libname": "vendor/lib"}, paths)

		folders, err := e.SubmoduleFolders(t.Context())
		require.NoError(t, err)
		assert.Equal(t, []string{"vendor/lib"}, folders)

		subs, err := e.Submodules(t.Context())
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.Equal(t, "vendor/lib", subs[0].Path)
		assert.Equal(t, lib.Dir, subs[0].Engine.Config().URL)
	})
}

func shallowFixture(t *testing.T) (*helpers.GitRepo, string) {
	src := helpers.SetupTestGitRepo(t)
	oldest := src.CommitFile("a.txt", "0\n", "0")
	for i := 1; i <= 5; i++ {
		src.CommitFile("a.txt", strings.Repeat("x", i)+"\n", "more")
	}
	return src, oldest
}

func shallowEngine(t *testing.T, kind BackendKind, src *helpers.GitRepo) (*Engine, *Lines, *recordingRecorder) {
	t.Helper()
	cfg := NewRepositoryConfig("file://" + src.Dir)
	sc, err := NewShallowClone(2, 3)
	require.NoError(t, err)
	cfg.ShallowClone = sc

	console := &Lines{}
	out := Output{Stdout: console.Sink(), Stderr: Discard}
	b, err := NewBackend(kind, workDir(t), cfg, BackendOptions{Output: out})
	require.NoError(t, err)
	rec := &recordingRecorder{}
	return NewEngine(b, cfg, out).WithRecorder(rec), console, rec
}

func TestContractShallowCloneEscalation(t *testing.T) {
	forEachBackend(t, func(t *testing.T, kind BackendKind) {
		src, oldest := shallowFixture(t)
		e, console, rec := shallowEngine(t, kind, src)
		require.NoError(t, e.CloneOrFetch(t.Context(), ""))

		count, err := e.CommitCount(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		require.NoError(t, e.ResetHard(t.Context(), oldest))
		head, err := e.CurrentRevision(t.Context())
		require.NoError(t, err)
		assert.Equal(t, oldest, head)
		assert.Contains(t, console.Lines(), "[GIT] Fetching to commit depth 3")
		assert.Contains(t, console.Lines(), "[GIT] Fetching to commit depth [INFINITE]")
		assert.Len(t, rec.escalations, 2)
	})
}

func TestContractShallowCloneUnknownRevision(t *testing.T) {
	forEachBackend(t, func(t *testing.T, kind BackendKind) {
		src, _ := shallowFixture(t)
		e, console, rec := shallowEngine(t, kind, src)
		require.NoError(t, e.CloneOrFetch(t.Context(), ""))
		head, err := e.CurrentRevision(t.Context())
		require.NoError(t, err)

		missing := strings.Repeat("0123456789", 4)
		err = e.ResetHard(t.Context(), missing)
		var cf *CommandFailure
		require.ErrorAs(t, err, &cf)
		assert.Contains(t, cf.Command, missing)
		assert.Contains(t, console.Lines(), "[GIT] Working copy is shallow clone still missing revision "+missing+", fetching full repo...")
		assert.Len(t, rec.escalations, 2)

		count, err := e.CommitCount(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 6, count)
		after, err := e.CurrentRevision(t.Context())
		require.NoError(t, err)
		assert.Equal(t, head, after)
	})
}
