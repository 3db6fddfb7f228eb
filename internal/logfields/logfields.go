package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyDocument     = "document"
	KeyDescriptor   = "descriptor"
	KeyDeclaredPath = "declared_path"
	KeyResolvedPath = "resolved_path"
	KeyTargetPath   = "target_path"
	KeyMediaSource  = "media_source"
	KeyMediaDest    = "media_dest"
	KeyBuildID      = "build_id"
	KeyDocType      = "doc_type"
	KeySuffix       = "suffix"
	KeyPath         = "path"
	KeyCount        = "count"
	KeyDurationMS   = "duration_ms"
	KeyError        = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Document(name string) slog.Attr  { return slog.String(KeyDocument, name) }
func Descriptor(p string) slog.Attr   { return slog.String(KeyDescriptor, p) }
func DeclaredPath(p string) slog.Attr { return slog.String(KeyDeclaredPath, p) }
func ResolvedPath(p string) slog.Attr { return slog.String(KeyResolvedPath, p) }
func TargetPath(p string) slog.Attr   { return slog.String(KeyTargetPath, p) }
func MediaSource(p string) slog.Attr  { return slog.String(KeyMediaSource, p) }
func MediaDest(p string) slog.Attr    { return slog.String(KeyMediaDest, p) }
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func DocType(t string) slog.Attr      { return slog.String(KeyDocType, t) }
func Suffix(s string) slog.Attr       { return slog.String(KeySuffix, s) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
