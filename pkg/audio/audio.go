// Package audio holds the supported audio formats and their MIME types,
// shared by the library walker and the streaming handlers.
package audio

import (
	"path/filepath"
	"strings"
)

// mimeTypes maps supported audio extensions to their streaming MIME type.
var mimeTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".opus": "audio/opus",
	".wma":  "audio/x-ms-wma",
	".wv":   "audio/x-wavpack",
}

// IsAudioFile reports whether the filename has a supported audio extension.
func IsAudioFile(name string) bool {
	_, ok := mimeTypes[strings.ToLower(filepath.Ext(name))]
	return ok
}

// MIMEType returns the MIME type for an audio filename, or
// application/octet-stream for unknown extensions.
func MIMEType(name string) string {
	if mt, ok := mimeTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return mt
	}
	return "application/octet-stream"
}

// Extensions returns the supported extensions, lowercased with leading dot.
func Extensions() []string {
	exts := make([]string, 0, len(mimeTypes))
	for ext := range mimeTypes {
		exts = append(exts, ext)
	}
	return exts
}
