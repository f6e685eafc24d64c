package logfields

import "log/slog"

// Canonical log field names shared by every package.
const (
	KeyFile       = "file"
	KeyPath       = "path"
	KeyField      = "field"
	KeyKind       = "kind"
	KeyStage      = "stage"
	KeyListType   = "list_type"
	KeyTemplate   = "template"
	KeyRecords    = "records"
	KeyRequestID  = "request_id"
	KeySocket     = "socket"
	KeyDurationMS = "duration_ms"
	KeyCacheHit   = "cache_hit"
	KeyRepo       = "repository"
	KeyError      = "error"
)

func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Field(f string) slog.Attr        { return slog.String(KeyField, f) }
func Kind(k string) slog.Attr         { return slog.String(KeyKind, k) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func ListType(name string) slog.Attr  { return slog.String(KeyListType, name) }
func Template(name string) slog.Attr  { return slog.String(KeyTemplate, name) }
func Records(n int) slog.Attr         { return slog.Int(KeyRecords, n) }
func RequestID(id string) slog.Attr   { return slog.String(KeyRequestID, id) }
func Socket(p string) slog.Attr       { return slog.String(KeySocket, p) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func CacheHit(hit bool) slog.Attr     { return slog.Bool(KeyCacheHit, hit) }
func Repository(r string) slog.Attr   { return slog.String(KeyRepo, r) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
