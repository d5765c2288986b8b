package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TWChennai/gocd-git-path-material-plugin/internal/foundation/errors"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/material"
	helpers "github.com/TWChennai/gocd-git-path-material-plugin/internal/testutil/testutils"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runWithin(t, nil, args...)
}

// runWithin runs the command line with parent as the commands' parent context.
func runWithin(t *testing.T, parent context.Context, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cli := &CLI{}
	g := NewGlobal(&out)
	g.Context = parent
	parser, err := kong.New(cli, kong.Name("gitpath"), kong.Bind(g), kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	require.NoError(t, err)
	err = ctx.Run(g, cli)
	return out.String(), err
}

func writeConfig(t *testing.T, url string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "gitpath.yaml")
	doc := fmt.Sprintf(`version: "1"
workspace: %s
materials:
  - name: app
    url: %s
    paths: [src/]
`, filepath.Join(dir, "work"), url)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestInitThenValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gitpath.yaml")

	out, err := run(t, "-c", path, "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)

	_, err = run(t, "-c", path, "init")
	require.Error(t, err)

	out, err = run(t, "-c", path, "validate")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestValidateReportsMissingDirectory(t *testing.T) {
	path := writeConfig(t, filepath.Join(t.TempDir(), "missing"))

	out, err := run(t, "-c", path, "validate")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))

	var problems []MaterialProblem
	require.NoError(t, json.Unmarshal([]byte(out), &problems))
	require.Len(t, problems, 1)
	assert.Equal(t, "app", problems[0].Material)
	assert.Equal(t, "Invalid URL. Directory does not exist", problems[0].Message)
}

func TestHistoryCommands(t *testing.T) {
	repo := helpers.SetupTestGitRepo(t)
	first := repo.CommitFile("src/a.go", "package a\n", "first")
	repo.CommitFile("README.md", "readme\n", "docs only")
	second := repo.CommitFile("src/b.go", "package a\n", "second")

	for _, backend := range []string{"cmd", "gogit"} {
		t.Run(backend, func(t *testing.T) {
			path := writeConfig(t, repo.Dir)
			out, err := run(t, "-c", path, "--backend", backend, "latest", "app")
			require.NoError(t, err)
			var latest material.LatestRevisionResponse
			require.NoError(t, json.Unmarshal([]byte(out), &latest))
			require.NotNil(t, latest.Revision)
			assert.Equal(t, second, latest.Revision.Revision)

			out, err = run(t, "-c", path, "--backend", backend, "since", "app", first)
			require.NoError(t, err)
			var since material.RevisionsResponse
			require.NoError(t, json.Unmarshal([]byte(out), &since))
			require.Len(t, since.Revisions, 1)
			assert.Equal(t, second, since.Revisions[0].Revision)
		})
	}
}

func TestHistoryCommandsStopWhenCancelled(t *testing.T) {
	repo := helpers.SetupTestGitRepo(t)
	repo.CommitFile("src/a.go", "package a\n", "first")
	path := writeConfig(t, repo.Dir)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	out, err := runWithin(t, ctx, "-c", path, "latest", "app")
	require.Error(t, err)
	assert.Empty(t, out)

	dest := filepath.Join(t.TempDir(), "dest")
	out, err = runWithin(t, ctx, "-c", path, "checkout", "app", "HEAD", "--dest", dest)
	require.Error(t, err)
	var resp material.CheckoutResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, material.StatusFailure, resp.Status)
	helpers.NewWorkingCopyAssertions(t, dest).Missing("src/a.go")
}

func TestCheckAndCheckout(t *testing.T) {
	repo := helpers.SetupTestGitRepo(t)
	first := repo.CommitFile("src/a.go", "package a\n", "first")
	repo.CommitFile("src/a.go", "package b\n", "second")
	path := writeConfig(t, repo.Dir)

	out, err := run(t, "-c", path, "check", "app")
	require.NoError(t, err)
	var status material.ConnectionStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, material.StatusSuccess, status.Status)

	dest := filepath.Join(t.TempDir(), "dest")
	out, err = run(t, "-c", path, "checkout", "app", first, "--dest", dest)
	require.NoError(t, err)
	var resp material.CheckoutResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, material.StatusSuccess, resp.Status)
	helpers.NewWorkingCopyAssertions(t, dest).FileContains("src/a.go", "package a")
}

func TestUnknownMaterialAndBackend(t *testing.T) {
	path := writeConfig(t, t.TempDir())

	_, err := run(t, "-c", path, "latest", "nope")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))

	_, err = run(t, "-c", path, "--backend", "svn", "latest", "app")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "gitpath ")
}
