package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"JobID", KeyJobID, "123", JobID("123")},
		{"Material", KeyMaterial, "app", Material("app")},
		{"Repository", KeyRepo, "repo1", Repository("repo1")},
		{"URL", KeyURL, "https://example", URL("https://example")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"Branch", KeyBranch, "main", Branch("main")},
		{"Revision", KeyRevision, "abc", Revision("abc")},
		{"RefSpec", KeyRefSpec, "+refs/heads/*:refs/remotes/origin/*", RefSpec("+refs/heads/*:refs/remotes/origin/*")},
		{"Command", KeyCommand, "git fetch", Command("git fetch")},
		{"Backend", KeyBackend, "cmd", Backend("cmd")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}

// TestNumericHelpers verifies keys for numeric & float helpers.
func TestNumericHelpers(t *testing.T) {
	if v := Depth(2); v.Key != KeyDepth || v.Value.Int64() != 2 {
		t.Fatalf("Depth mismatch: %v", v)
	}
	if v := Count(7); v.Key != KeyCount {
		t.Fatalf("Count key mismatch: %s", v.Key)
	}
	if v := DurationMS(12.5); v.Key != KeyDurationMS {
		t.Fatalf("DurationMS key mismatch: %s", v.Key)
	}
}

// TestErrorHelper ensures Error() handles nil and non-nil errors predictably.
func TestErrorHelper(t *testing.T) {
	attr := Error(nil)
	if attr.Key != KeyError {
		t.Fatalf("Error key mismatch: %s", attr.Key)
	}
	if attr.Value.String() != "" {
		t.Fatalf("Expected empty error string, got %s", attr.Value.String())
	}
	attr = Error(errors.New("err-test"))
	if attr.Value.String() != "err-test" {
		t.Fatalf("Expected 'err-test', got %s", attr.Value.String())
	}
}
