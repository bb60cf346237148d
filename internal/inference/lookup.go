package inference

import (
	"context"
	"regexp"
	"strings"
)

// shouldQuery decides whether the external database is worth consulting for
// this field given what local inference produced. Track and disc numbers are
// purely local. Weak or absent local evidence always triggers a lookup;
// genre and date additionally need enough known context to build a query.
func shouldQuery(field Field, local []Candidate, existing map[Field]string) bool {
	switch field {
	case FieldTrack, FieldDisc:
		return false
	}

	if len(local) == 0 {
		return true
	}
	if local[0].Confidence < 70 {
		return true
	}

	switch field {
	case FieldGenre:
		return existing[FieldArtist] != "" || existing[FieldAlbum] != ""
	case FieldDate:
		return existing[FieldArtist] != "" && existing[FieldAlbum] != ""
	case FieldComposer:
		return existing[FieldTitle] != ""
	}

	return false
}

// queryDatabase issues the field-appropriate search and maps the results
// into candidates. Lookup failures are logged and degrade to no candidates;
// they never propagate out of the pipeline.
func (e *Engine) queryDatabase(ctx context.Context, ev Evidence, field Field, local []Candidate) []Candidate {
	switch field {
	case FieldTitle, FieldArtist, FieldAlbum:
		artist := ev.Existing[FieldArtist]
		if artist == "" && field == FieldArtist && len(local) > 0 {
			artist = local[0].Value
		}

		title := ev.Existing[FieldTitle]
		if title == "" && field == FieldTitle && len(local) > 0 {
			title = local[0].Value
		}
		if title == "" {
			if titleCandidates := inferTitle(ev); len(titleCandidates) > 0 {
				title = titleCandidates[0].Value
			}
		}

		if artist == "" || title == "" {
			return nil
		}

		recordings, err := e.db.SearchRecordings(ctx, artist, title)
		if err != nil {
			e.log.Warn("recording search failed: %v", err)
			return nil
		}
		return recordingCandidates(recordings, field)

	case FieldGenre:
		artist := ev.Existing[FieldArtist]
		if artist == "" {
			return nil
		}
		artists, err := e.db.SearchArtists(ctx, artist)
		if err != nil {
			e.log.Warn("artist search failed: %v", err)
			return nil
		}
		return genreCandidates(artists)

	case FieldDate:
		artist := ev.Existing[FieldArtist]
		album := ev.Existing[FieldAlbum]
		if artist == "" || album == "" {
			return nil
		}
		releases, err := e.db.SearchReleases(ctx, artist, album)
		if err != nil {
			e.log.Warn("release search failed: %v", err)
			return nil
		}
		return dateCandidates(releases)

	case FieldComposer:
		work := ev.Existing[FieldTitle]
		if work == "" {
			// Fall back to the last part of the strongest filename split.
			for _, seg := range ev.Segments {
				if len(seg.Parts) >= 2 {
					work = strings.TrimSpace(seg.Parts[len(seg.Parts)-1])
					break
				}
			}
		}
		if work == "" {
			return nil
		}
		works, err := e.db.SearchWorks(ctx, work)
		if err != nil {
			e.log.Warn("work search failed: %v", err)
			return nil
		}
		return composerCandidates(works)
	}

	return nil
}

// recordingCandidates maps recording search results to candidates for the
// requested field. Only the top 3 recordings are considered.
func recordingCandidates(recordings []Recording, field Field) []Candidate {
	var candidates []Candidate

	for _, rec := range recordings[:min(len(recordings), 3)] {
		score := float64(rec.Score)

		switch field {
		case FieldTitle:
			if rec.Title != "" {
				candidates = append(candidates, Candidate{
					Value:      rec.Title,
					Confidence: min(score, 90),
					Source:     sourceMusicBrainz,
					Evidence:   []string{"mb_recording"},
					MBID:       rec.ID,
				})
			}

		case FieldArtist:
			if len(rec.Artists) > 0 && rec.Artists[0].Name != "" {
				candidates = append(candidates, Candidate{
					Value:      rec.Artists[0].Name,
					Confidence: min(score*0.9, 85),
					Source:     sourceMusicBrainz,
					Evidence:   []string{"mb_artist_credit"},
					MBID:       rec.Artists[0].ID,
				})
			}

		case FieldAlbum:
			for _, rel := range rec.Releases[:min(len(rec.Releases), 2)] {
				if rel.Title != "" {
					candidates = append(candidates, Candidate{
						Value:      rel.Title,
						Confidence: min(score*0.8, 80),
						Source:     sourceMusicBrainz,
						Evidence:   []string{"mb_release"},
						MBID:       rel.ID,
					})
				}
			}
		}
	}

	return candidates
}

// genreCandidates extracts up to 3 used tags from the top artist match.
func genreCandidates(artists []ArtistMatch) []Candidate {
	var candidates []Candidate

	for _, artist := range artists[:min(len(artists), 1)] {
		for _, tag := range artist.Tags[:min(len(artist.Tags), 3)] {
			if tag.Count > 0 && tag.Name != "" {
				candidates = append(candidates, Candidate{
					Value:      tag.Name,
					Confidence: min(60+float64(tag.Count), 80),
					Source:     sourceMusicBrainz,
					Evidence:   []string{"mb_artist_tag"},
					TagCount:   tag.Count,
				})
			}
		}
	}

	return candidates
}

var yearPrefixRe = regexp.MustCompile(`^(\d{4})`)

// dateCandidates extracts the year prefix from up to 3 release dates.
func dateCandidates(releases []ReleaseMatch) []Candidate {
	var candidates []Candidate

	for _, rel := range releases[:min(len(releases), 3)] {
		if m := yearPrefixRe.FindStringSubmatch(rel.Date); m != nil {
			candidates = append(candidates, Candidate{
				Value:      m[1],
				Confidence: 85,
				Source:     sourceMusicBrainz,
				Evidence:   []string{"mb_release_date"},
				MBID:       rel.ID,
			})
		}
	}

	return candidates
}

var disambiguationComposerRe = regexp.MustCompile(`by ([A-Z][a-zA-Z\s\.]+)`)

// composerCandidates extracts composers from up to 3 work matches, falling
// back to a name mentioned in the disambiguation text.
func composerCandidates(works []WorkMatch) []Candidate {
	var candidates []Candidate

	for _, work := range works[:min(len(works), 3)] {
		if len(work.Composers) > 0 && work.Composers[0].Name != "" {
			candidates = append(candidates, Candidate{
				Value:      work.Composers[0].Name,
				Confidence: 90,
				Source:     sourceMusicBrainz,
				Evidence:   []string{"mb_work_composer"},
				MBID:       work.Composers[0].ID,
			})
			continue
		}

		if len(candidates) == 0 && work.Disambiguation != "" {
			if m := disambiguationComposerRe.FindStringSubmatch(work.Disambiguation); m != nil {
				candidates = append(candidates, Candidate{
					Value:      strings.TrimSpace(m[1]),
					Confidence: 70,
					Source:     sourceMusicBrainz,
					Evidence:   []string{"mb_work_disambiguation"},
				})
			}
		}
	}

	return candidates
}
