package app

import (
	"log/slog"
	"mime"
)

// Minimal containers ship without /etc/mime.types, so the types served by the
// static handler are registered explicitly.
func init() {
	for ext, typ := range map[string]string{
		".css":   "text/css; charset=utf-8",
		".svg":   "image/svg+xml",
		".woff2": "font/woff2",
	} {
		ensureMimeType(ext, typ)
	}
}

func ensureMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		slog.Default().Warn("register mime type", slog.String("ext", ext), slog.Any("error", err))
	}
}
