package git

import (
	"regexp"
	"time"
)

// Action classifies a file change in a revision.
type Action string

const (
	ActionAdded    Action = "added"
	ActionModified Action = "modified"
	ActionDeleted  Action = "deleted"
	ActionUnknown  Action = "unknown"
)

// ModifiedFile is a path touched by a revision.
type ModifiedFile struct {
	Path   string
	Action Action
}

// Revision is one commit as reported to callers.
type Revision struct {
	SHA           string
	Timestamp     time.Time
	Author        string // raw "Name <email>"
	Email         string
	Comment       string
	MergeCommit   bool
	ModifiedFiles []ModifiedFile
}

// Ref is a named reference and the revision it points at.
type Ref struct {
	Name string
	SHA  string
}

var emailPattern = regexp.MustCompile(`<([^<>]*)>\s*$`)

// emailOf extracts the address from a "Name <email>" author line.
func emailOf(author string) string {
	if m := emailPattern.FindStringSubmatch(author); m != nil {
		return m[1]
	}
	return ""
}

