package mediaserver

import (
	"path/filepath"
	"sort"
	"strings"

	"example.com/mediaserve/internal/http1"
)

// mediaTypes is the allow-list of servable extensions. Anything else is rejected.
var mediaTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".csv":  "text/plain",
	".txt":  "text/plain",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// ContentTypeFor determines the content type of a file from the extension after its
// last dot, case-insensitively. Unknown or missing extensions are a client error.
func ContentTypeFor(name string) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return "", http1.NewClientError("file %q has no extension (supported: %s)", name, strings.Join(SupportedExtensions(), ", "))
	}
	ct, ok := mediaTypes[ext]
	if !ok {
		return "", http1.NewClientError("unsupported file extension %q (supported: %s)", ext, strings.Join(SupportedExtensions(), ", "))
	}
	return ct, nil
}

// SupportedExtensions returns the allow-listed extensions, sorted, including the
// leading dot.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(mediaTypes))
	for ext := range mediaTypes {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
