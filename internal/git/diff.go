package git

import "regexp"

// diffTreePattern matches `diff-tree --name-status -r -c` lines: a status code
// of up to three letters (one per parent in combined mode), whitespace, path.
var diffTreePattern = regexp.MustCompile(`^(\S{1,3})\s+(.+)$`)

// ParseDiffTree classifies the files of one revision. The header line equal to
// sha is skipped; any other line that does not match is a ParseError.
func ParseDiffTree(sha string, lines []string) ([]ModifiedFile, error) {
	files := []ModifiedFile{}
	for _, line := range lines {
		if line == sha {
			continue
		}
		m := diffTreePattern.FindStringSubmatch(line)
		if m == nil {
			return nil, &ParseError{Parser: "git diff-tree", Line: line, Output: lines}
		}
		files = append(files, ModifiedFile{Path: m[2], Action: ActionFor(m[1][0])})
	}
	return files, nil
}

// ActionFor maps the first character of a status code to an Action.
func ActionFor(status byte) Action {
	switch status {
	case 'A':
		return ActionAdded
	case 'M':
		return ActionModified
	case 'D':
		return ActionDeleted
	default:
		return ActionUnknown
	}
}
