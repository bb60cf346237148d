package inference

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

// mockDatabase records calls and serves canned results.
type mockDatabase struct {
	recordings []Recording
	artists    []ArtistMatch
	releases   []ReleaseMatch
	works      []WorkMatch
	err        error

	calls      int
	lastArtist string
	lastTitle  string
}

func (m *mockDatabase) SearchRecordings(_ context.Context, artist, title string) ([]Recording, error) {
	m.calls++
	m.lastArtist, m.lastTitle = artist, title
	return m.recordings, m.err
}

func (m *mockDatabase) SearchArtists(_ context.Context, name string) ([]ArtistMatch, error) {
	m.calls++
	m.lastArtist = name
	return m.artists, m.err
}

func (m *mockDatabase) SearchReleases(_ context.Context, artist, album string) ([]ReleaseMatch, error) {
	m.calls++
	m.lastArtist = artist
	return m.releases, m.err
}

func (m *mockDatabase) SearchWorks(_ context.Context, title string) ([]WorkMatch, error) {
	m.calls++
	m.lastTitle = title
	return m.works, m.err
}

func TestInferFieldLocalScenarios(t *testing.T) {
	engine := New(nil, nil, nil)

	tests := []struct {
		name      string
		path      string
		field     Field
		existing  map[Field]string
		wantValue string
		wantConf  float64
	}{
		{
			name:      "numbered title",
			path:      "/music/Queen/A Night at the Opera/03 - Bohemian Rhapsody.mp3",
			field:     FieldTitle,
			wantValue: "Bohemian Rhapsody",
			wantConf:  85,
		},
		{
			name:      "track word",
			path:      "/music/Unknown/Track05.flac",
			field:     FieldTrack,
			wantValue: "5",
			wantConf:  85,
		},
		{
			name:      "artist album folder",
			path:      "/music/Pink Floyd - The Wall/05 - Hey You.mp3",
			field:     FieldAlbum,
			existing:  map[Field]string{FieldArtist: "Pink Floyd"},
			wantValue: "The Wall",
			wantConf:  95,
		},
		{
			name:      "parenthesized year",
			path:      "Song (2004).mp3",
			field:     FieldDate,
			wantValue: "2004",
			wantConf:  85,
		},
		{
			name:      "disc marker",
			path:      "/music/Unknown/CD2 - Intro.mp3",
			field:     FieldDisc,
			wantValue: "2",
			wantConf:  90,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.InferField(context.Background(), tt.path, tt.field, tt.existing, FolderContext{})
			if len(got) == 0 {
				t.Fatal("expected suggestions")
			}
			if got[0].Value != tt.wantValue || got[0].Confidence != tt.wantConf {
				t.Errorf("top = %q @%.1f, want %q @%.1f",
					got[0].Value, got[0].Confidence, tt.wantValue, tt.wantConf)
			}
		})
	}
}

func TestInferFieldGenreWithoutContext(t *testing.T) {
	db := &mockDatabase{}
	engine := New(db, nil, nil)

	got := engine.InferField(context.Background(), "/music/Unknown/song.mp3", FieldGenre, nil, FolderContext{})
	if len(got) != 0 {
		t.Errorf("expected no suggestions, got %v", got)
	}
	if db.calls != 0 {
		t.Errorf("database consulted %d times without a usable query", db.calls)
	}
}

func TestInferFieldGateSkipsStrongLocal(t *testing.T) {
	db := &mockDatabase{}
	engine := New(db, nil, nil)

	got := engine.InferField(context.Background(),
		"/music/Radiohead/OK Computer/01 - Airbag.mp3", FieldArtist, nil, FolderContext{})
	if len(got) == 0 || got[0].Value != "Radiohead" {
		t.Fatalf("unexpected suggestions %v", got)
	}
	if db.calls != 0 {
		t.Errorf("database consulted despite strong local evidence")
	}
}

func TestInferFieldConsensusBoost(t *testing.T) {
	db := &mockDatabase{
		recordings: []Recording{{ID: "rec-1", Title: "Airbag", Score: 90}},
	}
	engine := New(db, nil, nil)

	existing := map[Field]string{FieldArtist: "Radiohead"}
	got := engine.InferField(context.Background(), "/music/Misc/Demo.Mix.Airbag.mp3", FieldTitle, existing, FolderContext{})

	if len(got) == 0 {
		t.Fatal("expected suggestions")
	}
	top := got[0]
	if top.Value != "Airbag" {
		t.Fatalf("top value = %q, want Airbag", top.Value)
	}
	if top.Source != sourceConsensus {
		t.Errorf("top source = %q, want consensus", top.Source)
	}
	// Local 65 and external 90 agree across origins: max + 15, capped at 95.
	if top.Confidence != 95 {
		t.Errorf("top confidence = %.1f, want 95", top.Confidence)
	}
	if top.AgreementCount != 2 {
		t.Errorf("agreement count = %d, want 2", top.AgreementCount)
	}

	if db.calls != 1 {
		t.Errorf("database calls = %d, want 1", db.calls)
	}
	if db.lastArtist != "Radiohead" || db.lastTitle != "Airbag" {
		t.Errorf("queried %q / %q", db.lastArtist, db.lastTitle)
	}
}

func TestInferFieldDeterminism(t *testing.T) {
	db := &mockDatabase{
		recordings: []Recording{
			{ID: "rec-1", Title: "Airbag", Score: 90},
			{ID: "rec-2", Title: "Airbag (Remastered)", Score: 80},
		},
	}
	engine := New(db, nil, nil)

	existing := map[Field]string{FieldArtist: "Radiohead"}
	run := func() []Candidate {
		return engine.InferField(context.Background(), "/music/Misc/Demo.Mix.Airbag.mp3", FieldTitle, existing, FolderContext{})
	}

	first := run()
	for i := 0; i < 10; i++ {
		if next := run(); !reflect.DeepEqual(first, next) {
			t.Fatalf("run %d differs:\n%v\nvs\n%v", i, first, next)
		}
	}
}

func TestInferFieldThresholdAndCap(t *testing.T) {
	engine := New(nil, nil, nil)

	got := engine.InferField(context.Background(),
		"/music/Unknown/1970 1971 1972 1973 1974 1975.mp3", FieldDate, nil, FolderContext{})

	if len(got) != maxSuggestions {
		t.Fatalf("len = %d, want %d", len(got), maxSuggestions)
	}
	cutoff := DefaultThresholds()[FieldDate] / 2
	for i, c := range got {
		if c.Confidence < cutoff {
			t.Errorf("suggestion %d at %.1f is below cutoff %.1f", i, c.Confidence, cutoff)
		}
		if i > 0 && c.Confidence > got[i-1].Confidence {
			t.Errorf("not sorted descending at %d", i)
		}
	}
}

func TestInferFieldCustomThreshold(t *testing.T) {
	engine := New(nil, nil, map[Field]float64{FieldTitle: 170})

	got := engine.InferField(context.Background(),
		"/music/Queen/A Night at the Opera/03 - Bohemian Rhapsody.mp3", FieldTitle, nil, FolderContext{})

	// Cutoff 85 keeps only the 85-confidence suggestion.
	if len(got) != 1 || got[0].Confidence != 85 {
		t.Errorf("got %v, want the single suggestion at 85", got)
	}
}

func TestInferFieldUnknownField(t *testing.T) {
	engine := New(nil, nil, nil)

	got := engine.InferField(context.Background(), "/music/a/b.mp3", Field("bogus"), nil, FolderContext{})
	if len(got) != 0 {
		t.Errorf("expected no suggestions for unknown field, got %v", got)
	}
}

func TestInferFieldLookupFailureDegrades(t *testing.T) {
	db := &mockDatabase{err: errors.New("boom")}
	engine := New(db, nil, nil)

	existing := map[Field]string{FieldArtist: "Radiohead"}
	got := engine.InferField(context.Background(), "/music/Unknown/song.mp3", FieldGenre, existing, FolderContext{})
	if len(got) != 0 {
		t.Errorf("expected no suggestions on lookup failure, got %v", got)
	}
	if db.calls != 1 {
		t.Errorf("database calls = %d, want 1", db.calls)
	}
}

func TestInferFieldGenreFromArtistTags(t *testing.T) {
	db := &mockDatabase{
		artists: []ArtistMatch{{
			ID:   "ar-1",
			Name: "Radiohead",
			Tags: []ArtistTag{
				{Name: "alternative rock", Count: 12},
				{Name: "rock", Count: 8},
				{Name: "electronic", Count: 0},
				{Name: "britpop", Count: 3},
			},
		}},
	}
	engine := New(db, nil, nil)

	existing := map[Field]string{FieldArtist: "Radiohead"}
	got := engine.InferField(context.Background(), "/music/Unknown/song.mp3", FieldGenre, existing, FolderContext{})

	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (zero-count tag dropped, fourth tag cut)", len(got))
	}
	if got[0].Value != "alternative rock" || got[0].Confidence != 72 {
		t.Errorf("got[0] = %q @%.1f, want alternative rock @72", got[0].Value, got[0].Confidence)
	}
	if got[1].Value != "rock" || got[1].Confidence != 68 {
		t.Errorf("got[1] = %q @%.1f, want rock @68", got[1].Value, got[1].Confidence)
	}
	if got[0].TagCount != 12 {
		t.Errorf("tag count = %d, want 12", got[0].TagCount)
	}
}

func TestInferFieldDateFromReleases(t *testing.T) {
	db := &mockDatabase{
		releases: []ReleaseMatch{
			{ID: "rel-1", Title: "OK Computer", Date: "1997-06-16"},
			{ID: "rel-2", Title: "OK Computer", Date: "bad-date"},
		},
	}
	engine := New(db, nil, nil)

	existing := map[Field]string{FieldArtist: "Radiohead", FieldAlbum: "OK Computer"}
	got := engine.InferField(context.Background(), "/music/Unknown/song.mp3", FieldDate, existing, FolderContext{})

	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Value != "1997" || got[0].Confidence != 85 || got[0].MBID != "rel-1" {
		t.Errorf("got %+v, want 1997 @85 with rel-1", got[0])
	}
}

func TestInferFieldComposerFromWorks(t *testing.T) {
	db := &mockDatabase{
		works: []WorkMatch{{
			ID:        "w-1",
			Title:     "Symphony No. 5",
			Composers: []CreditedArtist{{ID: "c-1", Name: "Ludwig van Beethoven"}},
		}},
	}
	engine := New(db, nil, nil)

	existing := map[Field]string{FieldTitle: "Symphony No. 5"}
	got := engine.InferField(context.Background(), "/music/x/untitled.mp3", FieldComposer, existing, FolderContext{})

	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Value != "Ludwig van Beethoven" || got[0].Confidence != 90 || got[0].MBID != "c-1" {
		t.Errorf("got %+v, want Ludwig van Beethoven @90 with c-1", got[0])
	}
	if db.lastTitle != "Symphony No. 5" {
		t.Errorf("queried work %q", db.lastTitle)
	}
}

func TestSynthesizeBoosts(t *testing.T) {
	localA := Candidate{Value: "The Wall", Confidence: 70, Source: sourceFolderPattern}
	localB := Candidate{Value: "the wall", Confidence: 60, Source: sourceFilenamePattern}
	external := Candidate{Value: "The Wall", Confidence: 80, Source: sourceMusicBrainz}

	t.Run("same origin agreement", func(t *testing.T) {
		out := synthesize([]Candidate{localA, localB}, nil)
		if len(out) != 1 {
			t.Fatalf("len = %d, want 1", len(out))
		}
		if out[0].Confidence != 75 {
			t.Errorf("confidence = %.1f, want max+5 = 75", out[0].Confidence)
		}
		if out[0].Source != sourceConsensus || out[0].AgreementCount != 2 {
			t.Errorf("got %+v", out[0])
		}
	})

	t.Run("cross origin agreement", func(t *testing.T) {
		out := synthesize([]Candidate{localA}, []Candidate{external})
		if len(out) != 1 {
			t.Fatalf("len = %d, want 1", len(out))
		}
		if out[0].Confidence != 95 {
			t.Errorf("confidence = %.1f, want max+15 = 95", out[0].Confidence)
		}
		if len(out[0].Sources) != 2 {
			t.Errorf("sources = %v, want both", out[0].Sources)
		}
	})

	t.Run("boost capped at 95", func(t *testing.T) {
		hi := Candidate{Value: "X", Confidence: 92, Source: sourceFolderName}
		ext := Candidate{Value: "X", Confidence: 94, Source: sourceMusicBrainz}
		out := synthesize([]Candidate{hi}, []Candidate{ext})
		if out[0].Confidence != 95 {
			t.Errorf("confidence = %.1f, want cap 95", out[0].Confidence)
		}
	})

	t.Run("singletons pass through", func(t *testing.T) {
		out := synthesize([]Candidate{localA}, nil)
		if len(out) != 1 || !reflect.DeepEqual(out[0], localA) {
			t.Errorf("got %v, want unchanged %v", out, localA)
		}
	})

	t.Run("first seen order kept", func(t *testing.T) {
		a := Candidate{Value: "beta", Confidence: 50, Source: sourceFilenamePattern}
		b := Candidate{Value: "alpha", Confidence: 60, Source: sourceFolderName}
		out := synthesize([]Candidate{a, b}, nil)
		if len(out) != 2 || out[0].Value != "beta" || out[1].Value != "alpha" {
			t.Errorf("got %v, want first-seen order", out)
		}
	})
}

func TestFinalScoresContextBoost(t *testing.T) {
	ev := buildEvidence("/music/Queen/Greatest Hits/Queen - Bohemian Rhapsody.mp3", nil, FolderContext{})

	// "Queen" appears in both the filename and the grandparent folder.
	in := []Candidate{{Value: "Queen", Confidence: 70, Source: sourceFilenamePattern}}
	out := finalScores(in, ev, FieldArtist)

	if out[0].Confidence != 80 {
		t.Errorf("confidence = %.1f, want 70 + 2*5 = 80", out[0].Confidence)
	}
}

func TestFinalScoresAlbumArtistAgreement(t *testing.T) {
	existing := map[Field]string{FieldAlbumArtist: "Queen"}
	ev := buildEvidence("/music/Unknown/song.mp3", existing, FolderContext{})

	in := []Candidate{{Value: "queen", Confidence: 70, Source: sourceFilenamePattern}}
	out := finalScores(in, ev, FieldArtist)

	if out[0].Confidence != 80 {
		t.Errorf("confidence = %.1f, want +10 albumartist agreement", out[0].Confidence)
	}
}

func TestShouldQuery(t *testing.T) {
	strong := []Candidate{{Value: "x", Confidence: 85}}
	weak := []Candidate{{Value: "x", Confidence: 50}}

	tests := []struct {
		name     string
		field    Field
		local    []Candidate
		existing map[Field]string
		want     bool
	}{
		{"track never", FieldTrack, nil, nil, false},
		{"disc never", FieldDisc, nil, nil, false},
		{"empty local", FieldTitle, nil, nil, true},
		{"weak local", FieldTitle, weak, nil, true},
		{"strong title", FieldTitle, strong, nil, false},
		{"genre needs context", FieldGenre, strong, nil, false},
		{"genre with artist", FieldGenre, strong, map[Field]string{FieldArtist: "a"}, true},
		{"date needs both", FieldDate, strong, map[Field]string{FieldArtist: "a"}, false},
		{"date with both", FieldDate, strong, map[Field]string{FieldArtist: "a", FieldAlbum: "b"}, true},
		{"composer needs title", FieldComposer, strong, nil, false},
		{"composer with title", FieldComposer, strong, map[Field]string{FieldTitle: "t"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			existing := tt.existing
			if existing == nil {
				existing = map[Field]string{}
			}
			if got := shouldQuery(tt.field, tt.local, existing); got != tt.want {
				t.Errorf("shouldQuery(%s) = %v, want %v", tt.field, got, tt.want)
			}
		})
	}
}
