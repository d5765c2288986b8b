package git

import "time"

// dateLayouts are tried in order. The first is ISO-8601 with an offset, the
// second is what `git log --date=iso` prints, the last is a naive UTC form.
var dateLayouts = []struct {
	layout string
	loc    *time.Location
}{
	{"2006-01-02T15:04:05Z07:00", nil},
	{"2006-01-02 15:04:05 -0700", nil},
	{"2006-01-02T15:04:05", time.UTC},
}

// parseCommitDate parses a log date line value. Unrecognised formats are
// reported as a ParseError rather than guessed.
func parseCommitDate(value string) (time.Time, error) {
	for _, l := range dateLayouts {
		var (
			t   time.Time
			err error
		)
		if l.loc != nil {
			t, err = time.ParseInLocation(l.layout, value, l.loc)
		} else {
			t, err = time.Parse(l.layout, value)
		}
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, &ParseError{Parser: "git log date", Line: value, Output: []string{value}}
}
