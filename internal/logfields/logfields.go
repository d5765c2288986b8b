package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyJobID      = "job_id"
	KeyMaterial   = "material"
	KeyRepo       = "repository"
	KeyURL        = "url"
	KeyPath       = "path"
	KeyBranch     = "branch"
	KeyRevision   = "revision"
	KeyRefSpec    = "refspec"
	KeyCommand    = "command"
	KeyDepth      = "depth"
	KeyCount      = "count"
	KeyBackend    = "backend"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func JobID(id string) slog.Attr       { return slog.String(KeyJobID, id) }
func Material(name string) slog.Attr  { return slog.String(KeyMaterial, name) }
func Repository(r string) slog.Attr   { return slog.String(KeyRepo, r) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Branch(b string) slog.Attr       { return slog.String(KeyBranch, b) }
func Revision(sha string) slog.Attr   { return slog.String(KeyRevision, sha) }
func RefSpec(spec string) slog.Attr   { return slog.String(KeyRefSpec, spec) }
func Command(cmd string) slog.Attr    { return slog.String(KeyCommand, cmd) }
func Depth(d int) slog.Attr           { return slog.Int(KeyDepth, d) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Backend(name string) slog.Attr   { return slog.String(KeyBackend, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
