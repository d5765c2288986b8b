package git

import (
	"regexp"
	"strings"
)

var (
	commitPattern  = regexp.MustCompile(`^commit\s+(\w+)$`)
	mergePattern   = regexp.MustCompile(`^Merge:\s+(.+)$`)
	authorPattern  = regexp.MustCompile(`^Author:\s+(.+)$`)
	datePattern    = regexp.MustCompile(`^Date:\s+(.+)$`)
	commentPattern = regexp.MustCompile(`^\s{4}(.*)$`)
)

// ParseLog converts `git log --date=iso --pretty=medium` output into revisions
// in the order git printed them. Every matched line updates the most recently
// opened revision; lines matching no shape (the blank separators) are skipped.
// Modified files are left empty for the caller to fill.
func ParseLog(lines []string) ([]*Revision, error) {
	var revisions []*Revision
	current := func(line string) (*Revision, error) {
		if len(revisions) == 0 {
			return nil, &ParseError{Parser: "git log", Line: line, Output: lines}
		}
		return revisions[len(revisions)-1], nil
	}

	for _, line := range lines {
		if m := commitPattern.FindStringSubmatch(line); m != nil {
			revisions = append(revisions, &Revision{SHA: m[1], ModifiedFiles: []ModifiedFile{}})
			continue
		}

		switch {
		case mergePattern.MatchString(line):
			rev, err := current(line)
			if err != nil {
				return nil, err
			}
			rev.MergeCommit = true
		case authorPattern.MatchString(line):
			rev, err := current(line)
			if err != nil {
				return nil, err
			}
			rev.Author = authorPattern.FindStringSubmatch(line)[1]
			rev.Email = emailOf(rev.Author)
		case datePattern.MatchString(line):
			rev, err := current(line)
			if err != nil {
				return nil, err
			}
			ts, err := parseCommitDate(datePattern.FindStringSubmatch(line)[1])
			if err != nil {
				return nil, err
			}
			rev.Timestamp = ts
		case commentPattern.MatchString(line):
			rev, err := current(line)
			if err != nil {
				return nil, err
			}
			text := commentPattern.FindStringSubmatch(line)[1]
			if rev.Comment == "" {
				rev.Comment = text
			} else {
				rev.Comment += "\n" + text
			}
		}
	}
	return revisions, nil
}

// trimComment drops the trailing newline git adds to commit messages.
func trimComment(message string) string {
	return strings.TrimRight(message, "\n")
}
