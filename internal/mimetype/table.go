// Package mimetype maps file extensions to MIME types for the static streamer.
//
// The table is built once at startup and never mutated afterwards, so it can
// be shared across request goroutines without locking. It deliberately avoids
// the process-global registry in the standard mime package: platform tables
// differ (notably, some omit .webp) and a registry mutated at runtime is
// shared state this server does not want.
package mimetype

import (
	"path/filepath"
	"strings"
)

// Fallback is returned for extensions the table does not know.
const Fallback = "application/octet-stream"

// defaults covers the asset types a development front door commonly serves.
var defaults = map[string]string{
	".avif":  "image/avif",
	".css":   "text/css; charset=utf-8",
	".csv":   "text/csv; charset=utf-8",
	".gif":   "image/gif",
	".htm":   "text/html; charset=utf-8",
	".html":  "text/html; charset=utf-8",
	".ico":   "image/vnd.microsoft.icon",
	".jpeg":  "image/jpeg",
	".jpg":   "image/jpeg",
	".js":    "text/javascript; charset=utf-8",
	".json":  "application/json",
	".mjs":   "text/javascript; charset=utf-8",
	".mp3":   "audio/mpeg",
	".mp4":   "video/mp4",
	".pdf":   "application/pdf",
	".png":   "image/png",
	".svg":   "image/svg+xml",
	".ttf":   "font/ttf",
	".txt":   "text/plain; charset=utf-8",
	".wasm":  "application/wasm",
	".webm":  "video/webm",
	".webp":  "image/webp",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".xml":   "text/xml; charset=utf-8",
	".zip":   "application/zip",
}

// Table is an immutable extension-to-MIME lookup. The zero value is not
// usable; construct one with New.
type Table struct {
	types map[string]string
}

// New builds a Table from the built-in defaults with the given overrides
// merged on top. Override keys must include the leading dot ('.webp');
// matching is case-insensitive. The input map is copied, so callers may
// discard or reuse it.
func New(overrides map[string]string) Table {
	types := make(map[string]string, len(defaults)+len(overrides))
	for ext, typ := range defaults {
		types[ext] = typ
	}
	for ext, typ := range overrides {
		types[strings.ToLower(ext)] = typ
	}
	return Table{types: types}
}

// Lookup returns the MIME type for the file name's extension, or Fallback
// when the extension is unknown or absent.
func (t Table) Lookup(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return Fallback
	}
	if typ, ok := t.types[ext]; ok {
		return typ
	}
	return Fallback
}
