package git

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var threeCommitLog = strings.Join([]string{
	"commit 24ce45d1a1427b643ae859777417bbc9f0d7cec8",
	"Author: Siddhartha Gupta <siddhartha.gupta@example.com>",
	"Date:   2015-01-25 17:11:26 +0530",
	"",
	"    3",
	"    ",
	"    multi-line comment",
	"",
	"commit 1320a78055558603a2e29d803ae4a1d6a93d1fa1",
	"Author: Siddhartha Gupta <siddhartha.gupta@example.com>",
	"Date:   2015-01-25 17:09:32 +0530",
	"",
	"    2",
	"",
	"commit 012e893acea10b140688d11beaa728e8c60bd9f6",
	"Author: Siddhartha Gupta <siddhartha.gupta@example.com>",
	"Date:   2015-01-25 16:47:15 +0530",
	"",
	"    1",
}, "\n")

func logLines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func TestParseLogThreeCommits(t *testing.T) {
	revs, err := ParseLog(logLines(threeCommitLog))
	require.NoError(t, err)
	require.Len(t, revs, 3)

	assert.Equal(t, "24ce45d1a1427b643ae859777417bbc9f0d7cec8", revs[0].SHA)
	assert.Equal(t, "1320a78055558603a2e29d803ae4a1d6a93d1fa1", revs[1].SHA)
	assert.Equal(t, "012e893acea10b140688d11beaa728e8c60bd9f6", revs[2].SHA)

	assert.Equal(t, "Siddhartha Gupta <siddhartha.gupta@example.com>", revs[0].Author)
	assert.Equal(t, "siddhartha.gupta@example.com", revs[0].Email)
	assert.Equal(t, "3\n\nmulti-line comment", revs[0].Comment)
	assert.Equal(t, "2", revs[1].Comment)
	assert.Equal(t, "1", revs[2].Comment)

	want := time.Date(2015, 1, 25, 11, 17, 15, 0, time.UTC)
	assert.True(t, revs[2].Timestamp.Equal(want), "got %s", revs[2].Timestamp)
	for _, r := range revs {
		assert.False(t, r.MergeCommit)
		assert.NotNil(t, r.ModifiedFiles)
		assert.Empty(t, r.ModifiedFiles)
	}
}

func TestParseLogMergeCommit(t *testing.T) {
	out := `commit 66a1b17514622a8e4a620a033cca3715ef870e71
Merge: 5c9a3f2 0a7d2b1
Author: Dev <dev@example.com>
Date:   2016-10-23 18:54:51 +0000

    Merge branch 'master' into test-branch`

	revs, err := ParseLog(logLines(out))
	require.NoError(t, err)
	require.Len(t, revs, 1)
	assert.True(t, revs[0].MergeCommit)
	assert.Equal(t, "Merge branch 'master' into test-branch", revs[0].Comment)
}

func TestParseLogEmpty(t *testing.T) {
	revs, err := ParseLog(nil)
	require.NoError(t, err)
	assert.Empty(t, revs)
}

func TestParseLogRejectsFieldBeforeHeader(t *testing.T) {
	_, err := ParseLog([]string{"Author: Dev <dev@example.com>"})
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "git log", pe.Parser)
}

func TestParseLogRejectsUnknownDate(t *testing.T) {
	_, err := ParseLog([]string{
		"commit 012e893acea10b140688d11beaa728e8c60bd9f6",
		"Date:   yesterday afternoon",
	})
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "yesterday afternoon", pe.Line)
}

func TestParseCommitDateLayouts(t *testing.T) {
	want := time.Date(2015, 1, 25, 11, 17, 15, 0, time.UTC)
	for _, in := range []string{
		"2015-01-25T16:47:15+05:30",
		"2015-01-25 16:47:15 +0530",
		"2015-01-25T11:17:15",
	} {
		got, err := parseCommitDate(in)
		require.NoError(t, err, in)
		assert.True(t, got.Equal(want), "%s parsed as %s", in, got)
	}
}

func TestParseDiffTree(t *testing.T) {
	sha := "66a1b17514622a8e4a620a033cca3715ef870e71"
	files, err := ParseDiffTree(sha, []string{
		sha,
		"A\tadded.txt",
		"M\tdir/modified.txt",
		"D\tdeleted.txt",
		"T\ttype-change",
		"MM\tmerged file.txt",
	})
	require.NoError(t, err)
	assert.Equal(t, []ModifiedFile{
		{Path: "added.txt", Action: ActionAdded},
		{Path: "dir/modified.txt", Action: ActionModified},
		{Path: "deleted.txt", Action: ActionDeleted},
		{Path: "type-change", Action: ActionUnknown},
		{Path: "merged file.txt", Action: ActionModified},
	}, files)
}

func TestParseDiffTreeRejectsMalformedLine(t *testing.T) {
	_, err := ParseDiffTree("abc", []string{"not-a-status-line"})
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "git diff-tree", pe.Parser)
}

func TestActionFor(t *testing.T) {
	tests := map[byte]Action{
		'A': ActionAdded,
		'M': ActionModified,
		'D': ActionDeleted,
		'T': ActionUnknown,
		'C': ActionUnknown,
		'U': ActionUnknown,
		'R': ActionUnknown,
	}
	for in, want := range tests {
		assert.Equal(t, want, ActionFor(in), string(in))
	}
}

func TestParseSubmoduleStatus(t *testing.T) {
	folders, err := ParseSubmoduleStatus([]string{
		" 4a5b6c7d8e9f0a1b2c3d4e5f6a7b8c9d0e1f2a3b sub-1 (heads/master)",
		"-0123456789abcdef0123456789abcdef01234567 libs/sub 2",
		"+fedcba9876543210fedcba9876543210fedcba98 sub-3",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"sub-1", "libs/sub 2", "sub-3"}, folders)

	_, err = ParseSubmoduleStatus([]string{"garbage"})
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

func TestParseSubmoduleURLs(t *testing.T) {
	urls, err := ParseSubmoduleURLs([]string{
		"submodule.sub-1.url /tmp/sub-1",
		"submodule.libs/core.url https://example.com/core.git",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"sub-1":     "/tmp/sub-1",
		"libs/core": "https://example.com/core.git",
	}, urls)

	_, err = ParseSubmoduleURLs([]string{"core.bare false"})
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

func TestParseSubmodulePaths(t *testing.T) {
	paths, err := ParseSubmodulePaths([]string{
		"submodule.libname.path vendor/lib",
		"submodule.sub.path sub",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"libname": "vendor/lib", "sub": "sub"}, paths)

	byPath := submoduleURLsByPath(map[string]string{
		"libname": "/repos/lib",
		"legacy":  "/repos/legacy",
	}, paths)
	assert.Equal(t, map[string]string{"vendor/lib": "/repos/lib", "legacy": "/repos/legacy"}, byPath)

	_, err = ParseSubmodulePaths([]string{"submodule.libname.url /repos/lib"})
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}
