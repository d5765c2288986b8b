package material

import (
	"time"

	"github.com/TWChennai/gocd-git-path-material-plugin/internal/git"
)

// TimestampLayout renders revision times as UTC ISO-8601 with milliseconds.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// RevisionJSON is the wire form of a revision.
type RevisionJSON struct {
	Revision        string             `json:"revision"`
	Timestamp       string             `json:"timestamp"`
	User            string             `json:"user"`
	RevisionComment string             `json:"revisionComment"`
	ModifiedFiles   []ModifiedFileJSON `json:"modifiedFiles"`
}

// ModifiedFileJSON is the wire form of a modified file.
type ModifiedFileJSON struct {
	FileName string `json:"fileName"`
	Action   string `json:"action"`
}

// LatestRevisionResponse answers a latest-revision query. Revision is nil
// when no revision touches the material's paths.
type LatestRevisionResponse struct {
	Revision *RevisionJSON `json:"revision,omitempty"`
}

// RevisionsResponse answers a revisions-since query.
type RevisionsResponse struct {
	Revisions []RevisionJSON `json:"revisions"`
}

// CheckoutResponse answers a checkout.
type CheckoutResponse struct {
	Status   Status   `json:"status"`
	Messages []string `json:"messages"`
}

// FormatTimestamp renders t in the wire layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ToJSON converts a revision to its wire form.
func ToJSON(rev *git.Revision) RevisionJSON {
	files := make([]ModifiedFileJSON, 0, len(rev.ModifiedFiles))
	for _, f := range rev.ModifiedFiles {
		files = append(files, ModifiedFileJSON{FileName: f.Path, Action: string(f.Action)})
	}
	return RevisionJSON{
		Revision:        rev.SHA,
		Timestamp:       FormatTimestamp(rev.Timestamp),
		User:            rev.Author,
		RevisionComment: rev.Comment,
		ModifiedFiles:   files,
	}
}

// NewLatestRevisionResponse wraps rev, which may be nil.
func NewLatestRevisionResponse(rev *git.Revision) LatestRevisionResponse {
	if rev == nil {
		return LatestRevisionResponse{}
	}
	j := ToJSON(rev)
	return LatestRevisionResponse{Revision: &j}
}

// NewRevisionsResponse converts revs in order.
func NewRevisionsResponse(revs []*git.Revision) RevisionsResponse {
	out := make([]RevisionJSON, 0, len(revs))
	for _, r := range revs {
		out = append(out, ToJSON(r))
	}
	return RevisionsResponse{Revisions: out}
}
