// Package inference proposes ranked candidate values for missing metadata
// fields. It combines filename and folder pattern analysis, sibling-file
// consensus, and MusicBrainz lookups into a single suggestion list per field.
package inference

// Field identifies a logical metadata field the engine can infer.
type Field string

const (
	FieldTitle       Field = "title"
	FieldArtist      Field = "artist"
	FieldAlbum       Field = "album"
	FieldAlbumArtist Field = "albumartist"
	FieldDate        Field = "date"
	FieldGenre       Field = "genre"
	FieldTrack       Field = "track"
	FieldDisc        Field = "disc"
	FieldComposer    Field = "composer"
)

// Fields returns every inferable field in a stable order.
func Fields() []Field {
	return []Field{
		FieldTitle, FieldArtist, FieldAlbum, FieldAlbumArtist,
		FieldDate, FieldGenre, FieldTrack, FieldDisc, FieldComposer,
	}
}

// ParseField maps a field name to its Field, reporting whether it is known.
func ParseField(name string) (Field, bool) {
	f := Field(name)
	switch f {
	case FieldTitle, FieldArtist, FieldAlbum, FieldAlbumArtist,
		FieldDate, FieldGenre, FieldTrack, FieldDisc, FieldComposer:
		return f, true
	}
	return "", false
}

// DefaultThresholds returns the minimum confidence a suggestion must reach
// to be surfaced, per field. InferField actually filters at half these
// values so borderline suggestions still appear, just ranked low.
func DefaultThresholds() map[Field]float64 {
	return map[Field]float64{
		FieldArtist:      70,
		FieldAlbum:       65,
		FieldTitle:       75,
		FieldTrack:       80,
		FieldDate:        60,
		FieldGenre:       55,
		FieldAlbumArtist: 65,
		FieldDisc:        75,
		FieldComposer:    70,
	}
}

// Candidate is one proposed value for a metadata field with a confidence
// score (0-100) and provenance. MBID, TagCount, Sources and AgreementCount
// are present only for candidates from the stages that produce them.
type Candidate struct {
	Value          string   `json:"value"`
	Confidence     float64  `json:"confidence"`
	Source         string   `json:"source"`
	Evidence       []string `json:"evidence"`
	MBID           string   `json:"mbid,omitempty"`
	TagCount       int      `json:"tag_count,omitempty"`
	Sources        []string `json:"sources,omitempty"`
	AgreementCount int      `json:"agreement_count,omitempty"`
}

// Candidate sources. Everything except sourceMusicBrainz counts as a
// local origin when synthesis looks for cross-source consensus.
const (
	sourceFilenamePattern  = "filename_pattern"
	sourceFilenameCleaned  = "filename_cleaned"
	sourceArtistRemoval    = "artist_removal"
	sourceFolderStructure  = "folder_structure"
	sourceFolderPattern    = "folder_pattern"
	sourceFolderName       = "folder_name"
	sourceFilename         = "filename"
	sourceFolder           = "folder"
	sourceParenthetical    = "parenthetical"
	sourceExistingMetadata = "existing_metadata"
	sourceSiblingPattern   = "sibling_pattern"
	sourceOpusPattern      = "opus_pattern"
	sourceKnownComposer    = "known_composer"
	sourceMusicBrainz      = "musicbrainz"
	sourceConsensus        = "consensus"
)
