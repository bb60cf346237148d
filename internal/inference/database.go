package inference

import "context"

// MusicDatabase is the external reference-data lookup the engine consults
// when local evidence is weak. Implemented by internal/musicbrainz; defined
// here, where it is consumed.
type MusicDatabase interface {
	SearchRecordings(ctx context.Context, artist, title string) ([]Recording, error)
	SearchArtists(ctx context.Context, name string) ([]ArtistMatch, error)
	SearchReleases(ctx context.Context, artist, album string) ([]ReleaseMatch, error)
	SearchWorks(ctx context.Context, title string) ([]WorkMatch, error)
}

// Recording is one result from a recording search.
type Recording struct {
	ID       string
	Title    string
	Score    int // search match score 0-100
	Artists  []CreditedArtist
	Releases []ReleaseMatch
}

// CreditedArtist is one entry of a recording's artist credit.
type CreditedArtist struct {
	ID   string
	Name string
}

// ReleaseMatch is one result from a release search, or a release
// associated with a recording result.
type ReleaseMatch struct {
	ID    string
	Title string
	Date  string // "2004" or "2004-03-20"
}

// ArtistMatch is one result from an artist search.
type ArtistMatch struct {
	ID   string
	Name string
	Tags []ArtistTag
}

// ArtistTag is a folksonomy tag attached to an artist, with its usage count.
type ArtistTag struct {
	Name  string
	Count int
}

// WorkMatch is one result from a work search (classical repertoire).
type WorkMatch struct {
	ID             string
	Title          string
	Disambiguation string
	Composers      []CreditedArtist
}
