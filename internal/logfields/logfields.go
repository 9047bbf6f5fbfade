// Package logfields centralizes canonical slog field names so log keys do
// not drift across packages.
package logfields

import "log/slog"

// Canonical log field name constants.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPackage    = "package"
	KeyRoot       = "root"
	KeyPath       = "path"
	KeyFile       = "file"
	KeySection    = "section"
	KeyCategory   = "category"
	KeyEcosystem  = "ecosystem"
	KeyRule       = "rule"
	KeyName       = "name"
	KeyURL        = "url"
	KeyError      = "error"
)

// Granular helpers returning slog.Attr so callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Package(pkg string) slog.Attr    { return slog.String(KeyPackage, pkg) }
func Root(dir string) slog.Attr       { return slog.String(KeyRoot, dir) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func Section(s string) slog.Attr      { return slog.String(KeySection, s) }
func Category(c string) slog.Attr     { return slog.String(KeyCategory, c) }
func Ecosystem(e string) slog.Attr    { return slog.String(KeyEcosystem, e) }
func Rule(r string) slog.Attr         { return slog.String(KeyRule, r) }
func Name(n string) slog.Attr         { return slog.String(KeyName, n) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
