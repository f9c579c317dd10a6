// Package logfields centralizes slog attribute keys used across the build.
package logfields

import "log/slog"

const (
	KeyFile     = "file"
	KeyURL      = "url"
	KeyPage     = "page"
	KeyStage    = "stage"
	KeyLocation = "location"
	KeyCount    = "count"
	KeyBuildID  = "build_id"
	KeyDuration = "duration_ms"
	KeyPath     = "path"
	KeyError    = "error"
)

func File(f string) slog.Attr       { return slog.String(KeyFile, f) }
func URL(u string) slog.Attr        { return slog.String(KeyURL, u) }
func Page(p string) slog.Attr       { return slog.String(KeyPage, p) }
func Stage(s string) slog.Attr      { return slog.String(KeyStage, s) }
func Location(l string) slog.Attr   { return slog.String(KeyLocation, l) }
func Count(n int) slog.Attr         { return slog.Int(KeyCount, n) }
func BuildID(id string) slog.Attr   { return slog.String(KeyBuildID, id) }
func Path(p string) slog.Attr       { return slog.String(KeyPath, p) }
func DurationMS(ms int64) slog.Attr { return slog.Int64(KeyDuration, ms) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
