package app

import (
	"log/slog"
	"mime"
)

// Some minimal container images ship without /etc/mime.types, which leaves
// embedded assets served as text/plain and blocked by nosniff.
var assetTypes = map[string]string{
	".css": "text/css; charset=utf-8",
	".csv": "text/csv; charset=utf-8",
	".pdf": "application/pdf",
}

func init() {
	for ext, typ := range assetTypes {
		ensureMimeType(ext, typ)
	}
}

func ensureMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		slog.Warn("register mime type", slog.String("ext", ext), slog.Any("error", err))
	}
}
