// Package tags maps the editor's logical metadata fields onto physical tags
// and reads/writes them through taglib, which handles the per-format
// details (ID3, Vorbis comments, MP4 atoms).
package tags

import (
	"fmt"

	"go.senan.xyz/taglib"
)

// fieldKeys maps logical field names to taglib tag keys.
var fieldKeys = map[string]string{
	"title":       taglib.Title,
	"artist":      taglib.Artist,
	"album":       taglib.Album,
	"albumartist": taglib.AlbumArtist,
	"date":        taglib.Date,
	"genre":       taglib.Genre,
	"track":       taglib.TrackNumber,
	"disc":        taglib.DiscNumber,
	"composer":    taglib.Composer,
}

// fieldOrder is the presentation order of the logical fields.
var fieldOrder = []string{
	"title", "artist", "album", "albumartist",
	"date", "genre", "track", "disc", "composer",
}

// Fields returns the logical field names in presentation order.
func Fields() []string {
	out := make([]string, len(fieldOrder))
	copy(out, fieldOrder)
	return out
}

// IsField reports whether name is a known logical field.
func IsField(name string) bool {
	_, ok := fieldKeys[name]
	return ok
}

// ReadFields reads the logical metadata fields from an audio file. Fields
// missing from the file come back as empty strings.
func ReadFields(path string) (map[string]string, error) {
	raw, err := taglib.ReadTags(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags from %s: %w", path, err)
	}

	fields := make(map[string]string, len(fieldKeys))
	for name, key := range fieldKeys {
		fields[name] = firstTag(raw, key)
	}
	return fields, nil
}

// WriteFields writes the given logical fields to an audio file. An empty
// value clears the tag. Unknown field names are rejected.
func WriteFields(path string, fields map[string]string) error {
	out := make(map[string][]string, len(fields))
	for name, value := range fields {
		key, ok := fieldKeys[name]
		if !ok {
			return fmt.Errorf("unknown metadata field %q", name)
		}
		if value == "" {
			out[key] = nil
		} else {
			out[key] = []string{value}
		}
	}

	if err := taglib.WriteTags(path, out, 0); err != nil {
		return fmt.Errorf("failed to write tags to %s: %w", path, err)
	}
	return nil
}

// ReadArtwork returns the embedded cover art, or nil if the file has none.
func ReadArtwork(path string) ([]byte, error) {
	data, err := taglib.ReadImage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artwork from %s: %w", path, err)
	}
	return data, nil
}

// WriteArtwork embeds artwork image data into an audio file.
func WriteArtwork(path string, imageData []byte) error {
	if len(imageData) == 0 {
		return nil
	}
	if err := taglib.WriteImage(path, imageData); err != nil {
		return fmt.Errorf("failed to write artwork to %s: %w", path, err)
	}
	return nil
}

func firstTag(tags map[string][]string, key string) string {
	if vals, ok := tags[key]; ok && len(vals) > 0 {
		return vals[0]
	}
	return ""
}
