package inference

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// localCandidates dispatches to the per-field heuristic. Unknown fields
// yield no candidates rather than an error.
func localCandidates(ev Evidence, field Field) []Candidate {
	switch field {
	case FieldTitle:
		return inferTitle(ev)
	case FieldArtist:
		return inferArtist(ev)
	case FieldAlbum:
		return inferAlbum(ev)
	case FieldTrack:
		return inferTrack(ev)
	case FieldDate:
		return inferDate(ev)
	case FieldGenre:
		return inferGenre(ev)
	case FieldAlbumArtist:
		return inferAlbumArtist(ev)
	case FieldDisc:
		return inferDisc(ev)
	case FieldComposer:
		return inferComposer(ev)
	}
	return nil
}

var artistPrefixSeparators = []string{" - ", " — ", " · ", "_"}

// inferTitle proposes titles from filename segments, from the stem with
// leading track numbers stripped, and from the stem with a known artist
// prefix stripped.
func inferTitle(ev Evidence) []Candidate {
	var candidates []Candidate

	for _, seg := range ev.Segments {
		parts := seg.Parts

		switch {
		case len(parts) == 2:
			if pureNumberRe.MatchString(strings.TrimSpace(parts[0])) {
				// "01 - Title"
				candidates = append(candidates, Candidate{
					Value:      strings.TrimSpace(parts[1]),
					Confidence: 85,
					Source:     sourceFilenamePattern,
					Evidence:   []string{"track_number_prefix"},
				})
			} else {
				// Likely "Artist - Title"
				candidates = append(candidates, Candidate{
					Value:      strings.TrimSpace(parts[1]),
					Confidence: 75,
					Source:     sourceFilenamePattern,
					Evidence:   []string{"two_part_split"},
				})
			}
		case len(parts) >= 3:
			if pureNumberRe.MatchString(strings.TrimSpace(parts[0])) {
				// "01 - Artist - Title"
				candidates = append(candidates, Candidate{
					Value:      strings.TrimSpace(parts[len(parts)-1]),
					Confidence: 80,
					Source:     sourceFilenamePattern,
					Evidence:   []string{"track_prefix_multipart"},
				})
			} else {
				candidates = append(candidates, Candidate{
					Value:      strings.TrimSpace(parts[len(parts)-1]),
					Confidence: 65,
					Source:     sourceFilenamePattern,
					Evidence:   []string{"last_segment"},
				})
			}
		}
	}

	if stripped := leadingNumRe.ReplaceAllString(ev.Stem, ""); stripped != ev.Stem {
		candidates = append(candidates, Candidate{
			Value:      strings.TrimSpace(stripped),
			Confidence: 70,
			Source:     sourceFilenameCleaned,
			Evidence:   []string{"track_number_removed"},
		})
	}

	if artist := ev.Existing[FieldArtist]; artist != "" {
		for _, sep := range artistPrefixSeparators {
			prefix := artist + sep
			if strings.HasPrefix(ev.Stem, prefix) {
				candidates = append(candidates, Candidate{
					Value:      strings.TrimSpace(ev.Stem[len(prefix):]),
					Confidence: 90,
					Source:     sourceArtistRemoval,
					Evidence:   []string{"known_artist_prefix"},
				})
				break
			}
		}
	}

	cleaned := candidates[:0]
	for _, c := range candidates {
		if c.Value = cleanTitle(c.Value); c.Value != "" {
			cleaned = append(cleaned, c)
		}
	}

	return dedupeCandidates(cleaned)
}

// inferArtist proposes artists from the folder hierarchy (the /Artist/Album/
// convention), from filename segments, and from an existing albumartist tag.
func inferArtist(ev Evidence) []Candidate {
	var candidates []Candidate

	if len(ev.FolderParts) >= 2 {
		candidates = append(candidates, Candidate{
			Value:      ev.FolderParts[len(ev.FolderParts)-2],
			Confidence: 80,
			Source:     sourceFolderStructure,
			Evidence:   []string{"parent_folder"},
		})
	}
	if ev.ParentFolder != "" {
		candidates = append(candidates, Candidate{
			Value:      ev.ParentFolder,
			Confidence: 75,
			Source:     sourceFolderStructure,
			Evidence:   []string{"grandparent_folder"},
		})
	}

	for _, seg := range ev.Segments {
		parts := seg.Parts
		if len(parts) < 2 {
			continue
		}

		first := strings.TrimSpace(parts[0])
		if !pureNumberRe.MatchString(first) {
			candidates = append(candidates, Candidate{
				Value:      first,
				Confidence: 70,
				Source:     sourceFilenamePattern,
				Evidence:   []string{"first_segment"},
			})
		}

		// "01 - Artist - Title": the part after the track number
		if len(parts) >= 3 && pureNumberRe.MatchString(first) {
			candidates = append(candidates, Candidate{
				Value:      strings.TrimSpace(parts[1]),
				Confidence: 75,
				Source:     sourceFilenamePattern,
				Evidence:   []string{"middle_segment_after_track"},
			})
		}
	}

	if aa := ev.Existing[FieldAlbumArtist]; aa != "" {
		candidates = append(candidates, Candidate{
			Value:      aa,
			Confidence: 85,
			Source:     sourceExistingMetadata,
			Evidence:   []string{"albumartist_fallback"},
		})
	}

	return dedupeCandidates(candidates)
}

// inferAlbum proposes albums from the folder name (including the
// "Artist - Album" convention), filename middles, and parenthetical content.
func inferAlbum(ev Evidence) []Candidate {
	var candidates []Candidate

	if folder := ev.FolderName; folder != "" {
		if strings.Contains(folder, " - ") {
			parts := strings.SplitN(folder, " - ", 2)
			artist := ev.Existing[FieldArtist]
			if artist != "" && strings.EqualFold(parts[0], artist) {
				candidates = append(candidates, Candidate{
					Value:      parts[1],
					Confidence: 95,
					Source:     sourceFolderPattern,
					Evidence:   []string{"artist_album_folder"},
				})
			} else {
				candidates = append(candidates, Candidate{
					Value:      parts[1],
					Confidence: 80,
					Source:     sourceFolderPattern,
					Evidence:   []string{"two_part_folder"},
				})
			}
		} else {
			candidates = append(candidates, Candidate{
				Value:      folder,
				Confidence: 85,
				Source:     sourceFolderName,
				Evidence:   []string{"direct_folder"},
			})
		}
	}

	for _, seg := range ev.Segments {
		if len(seg.Parts) >= 3 {
			candidates = append(candidates, Candidate{
				Value:      strings.TrimSpace(seg.Parts[len(seg.Parts)/2]),
				Confidence: 60,
				Source:     sourceFilenamePattern,
				Evidence:   []string{"middle_segment"},
			})
		}
	}

	for _, m := range parenRe.FindAllStringSubmatch(ev.Filename, -1) {
		if !fourDigitRe.MatchString(m[1]) {
			candidates = append(candidates, Candidate{
				Value:      m[1],
				Confidence: 55,
				Source:     sourceParenthetical,
				Evidence:   []string{"parentheses_content"},
			})
		}
	}

	return dedupeCandidates(candidates)
}

// Track number patterns, tried in order of reliability.
var trackPatterns = []struct {
	re         *regexp.Regexp
	confidence float64
}{
	{regexp.MustCompile(`^(\d{1,3})[\s\-_.]+`), 95},       // "01 - ", "1. "
	{regexp.MustCompile(`^(\d{1,3})\s*$`), 90},            // just a number
	{regexp.MustCompile(`^\[(\d{1,3})\]`), 85},            // "[01]"
	{regexp.MustCompile(`(?i)^track[\s_]*(\d{1,3})`), 85}, // "track01", "Track_1"
	{regexp.MustCompile(`[\s\-_](\d{1,3})[\s\-_]`), 70},   // number in the middle
}

// inferTrack extracts track numbers from the stem and, when siblings share a
// leading-number scheme, from that scheme. Leading zeros are stripped.
func inferTrack(ev Evidence) []Candidate {
	var candidates []Candidate

	for _, p := range trackPatterns {
		if m := p.re.FindStringSubmatch(ev.Stem); m != nil {
			candidates = append(candidates, Candidate{
				Value:      stripLeadingZeros(m[1]),
				Confidence: p.confidence,
				Source:     sourceFilenamePattern,
				Evidence:   []string{"pattern:" + p.re.String()},
			})
		}
	}

	if ev.Siblings.TrackPattern == "prefix_number" {
		if m := trackPatterns[0].re.FindStringSubmatch(ev.Stem); m != nil {
			candidates = append(candidates, Candidate{
				Value:      stripLeadingZeros(m[1]),
				Confidence: 90,
				Source:     sourceSiblingPattern,
				Evidence:   []string{"consistent_numbering"},
			})
		}
	}

	return dedupeCandidates(candidates)
}

var (
	yearRe      = regexp.MustCompile(`\b(19[5-9]\d|20[0-2]\d)\b`)
	parenYearRe = regexp.MustCompile(`\((\d{4})\)`)
	fourDigitRe = regexp.MustCompile(`^\d{4}$`)
)

// inferDate looks for plausible 4-digit years in the filename, the folder
// name, and parenthesized content, rejecting anything outside 1950..next year.
func inferDate(ev Evidence) []Candidate {
	var candidates []Candidate

	for _, m := range yearRe.FindAllStringSubmatch(ev.Filename, -1) {
		candidates = append(candidates, Candidate{
			Value:      m[1],
			Confidence: 75,
			Source:     sourceFilename,
			Evidence:   []string{"year_in_filename"},
		})
	}

	for _, m := range yearRe.FindAllStringSubmatch(ev.FolderName, -1) {
		candidates = append(candidates, Candidate{
			Value:      m[1],
			Confidence: 80,
			Source:     sourceFolderName,
			Evidence:   []string{"year_in_folder"},
		})
	}

	for _, m := range parenYearRe.FindAllStringSubmatch(ev.Filename+" "+ev.FolderName, -1) {
		if yearRe.MatchString(m[1]) {
			candidates = append(candidates, Candidate{
				Value:      m[1],
				Confidence: 85,
				Source:     sourceParenthetical,
				Evidence:   []string{"year_in_parentheses"},
			})
		}
	}

	maxYear := time.Now().Year() + 1
	valid := candidates[:0]
	for _, c := range candidates {
		if y := yearValue(c.Value); y >= 1950 && y <= maxYear {
			valid = append(valid, c)
		}
	}

	return dedupeCandidates(valid)
}

func yearValue(s string) int {
	y := 0
	for _, r := range s {
		y = y*10 + int(r-'0')
	}
	return y
}

// inferGenre has no reliable local signal; genre is deferred entirely to
// the external lookup.
func inferGenre(Evidence) []Candidate {
	return nil
}

// inferAlbumArtist uses an existing artist tag directly and re-emits every
// artist candidate at slightly lower confidence.
func inferAlbumArtist(ev Evidence) []Candidate {
	var candidates []Candidate

	if artist := ev.Existing[FieldArtist]; artist != "" {
		candidates = append(candidates, Candidate{
			Value:      artist,
			Confidence: 80,
			Source:     sourceExistingMetadata,
			Evidence:   []string{"artist_as_albumartist"},
		})
	}

	for _, ac := range inferArtist(ev) {
		evidence := make([]string, 0, len(ac.Evidence)+1)
		evidence = append(evidence, ac.Evidence...)
		evidence = append(evidence, "inferred_as_artist")
		candidates = append(candidates, Candidate{
			Value:      ac.Value,
			Confidence: ac.Confidence * 0.9,
			Source:     ac.Source,
			Evidence:   evidence,
		})
	}

	return dedupeCandidates(candidates)
}

// Disc number patterns checked against both filename and folder name.
var discPatterns = []struct {
	re         *regexp.Regexp
	confidence float64
}{
	{regexp.MustCompile(`(?i)\bCD[\s]?(\d{1,2})\b`), 90},
	{regexp.MustCompile(`(?i)\bDisc[\s]?(\d{1,2})\b`), 90},
	{regexp.MustCompile(`(?i)\bDisk[\s]?(\d{1,2})\b`), 90},
	{regexp.MustCompile(`(?i)\bD(\d{1,2})\b`), 70},
	{regexp.MustCompile(`\[(\d{1,2})\]`), 60},
}

// inferDisc extracts disc numbers from "CD2"/"Disc 1" style markers in the
// filename or the containing folder.
func inferDisc(ev Evidence) []Candidate {
	var candidates []Candidate

	texts := []struct {
		text   string
		source string
	}{
		{ev.Stem, sourceFilename},
		{ev.FolderName, sourceFolder},
	}

	for _, t := range texts {
		for _, p := range discPatterns {
			if m := p.re.FindStringSubmatch(t.text); m != nil {
				candidates = append(candidates, Candidate{
					Value:      stripLeadingZeros(m[1]),
					Confidence: p.confidence,
					Source:     t.source,
					Evidence:   []string{"pattern:" + p.re.String()},
				})
			}
		}
	}

	return dedupeCandidates(candidates)
}

var (
	composerWorkRe = regexp.MustCompile(`^([A-Z][a-zA-Z\s\.,]+)\s*[-_]\s*([^-_]+(?:\s*[Oo]p\.?\s*\d+[a-zA-Z]?))\s*[-_]\s*(.+)`)
	composerHeadRe = regexp.MustCompile(`^([A-Z][a-zA-Z\s\.,]+?)(?:\s*[-_]|\s+(?:Op|BWV|K|D|Hob|RV|S))`)
	properNameRe   = regexp.MustCompile(`^[A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)*$`)

	// Opus and catalogue number notations that mark classical repertoire.
	opusPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Op\.?\s*\d+[a-zA-Z]?`),
		regexp.MustCompile(`(?i)BWV\s*\d+`),
		regexp.MustCompile(`(?i)K\.?\s*\d+`),
		regexp.MustCompile(`(?i)D\.?\s*\d+`),
		regexp.MustCompile(`(?i)Hob\.?\s*[IVX]+:\d+`),
		regexp.MustCompile(`(?i)RV\s*\d+`),
		regexp.MustCompile(`(?i)S\.?\s*\d+`),
	}

	classicalWorkWords = []string{"symphony", "concerto", "sonata", "quartet", "opus", "suite"}

	knownComposers = []string{
		"Bach", "Mozart", "Beethoven", "Brahms", "Chopin", "Debussy",
		"Handel", "Haydn", "Liszt", "Mahler", "Mendelssohn", "Prokofiev",
		"Rachmaninoff", "Ravel", "Schubert", "Schumann", "Shostakovich",
		"Sibelius", "Strauss", "Stravinsky", "Tchaikovsky", "Vivaldi", "Wagner",
	}
)

// inferComposer targets classical music: composer-work-movement filenames,
// opus and catalogue numbers, Classical/ folder layouts, and a short list of
// recognizable composer names.
func inferComposer(ev Evidence) []Candidate {
	var candidates []Candidate

	if m := composerWorkRe.FindStringSubmatch(ev.Stem); m != nil {
		candidates = append(candidates, Candidate{
			Value:      strings.TrimSpace(m[1]),
			Confidence: 85,
			Source:     sourceFilenamePattern,
			Evidence:   []string{"classical_pattern"},
		})
	}

	for _, re := range opusPatterns {
		if re.MatchString(ev.Stem) {
			if m := composerHeadRe.FindStringSubmatch(ev.Stem); m != nil {
				candidates = append(candidates, Candidate{
					Value:      strings.TrimSpace(m[1]),
					Confidence: 80,
					Source:     sourceOpusPattern,
					Evidence:   []string{"opus_number_found"},
				})
			}
			break
		}
	}

	for i, part := range ev.FolderParts {
		switch strings.ToLower(part) {
		case "classical", "classic", "klassik":
			if i+1 < len(ev.FolderParts) {
				candidates = append(candidates, Candidate{
					Value:      ev.FolderParts[i+1],
					Confidence: 75,
					Source:     sourceFolderStructure,
					Evidence:   []string{"classical_folder_structure"},
				})
			}
		default:
			continue
		}
		break
	}

	folderLower := strings.ToLower(ev.FolderName)
	for _, word := range classicalWorkWords {
		if strings.Contains(folderLower, word) && ev.ParentFolder != "" {
			candidates = append(candidates, Candidate{
				Value:      ev.ParentFolder,
				Confidence: 70,
				Source:     sourceFolderStructure,
				Evidence:   []string{"classical_work_folder"},
			})
			break
		}
	}

	for _, m := range parenRe.FindAllStringSubmatch(ev.Filename, -1) {
		if name := strings.TrimSpace(m[1]); properNameRe.MatchString(name) {
			candidates = append(candidates, Candidate{
				Value:      name,
				Confidence: 65,
				Source:     sourceParenthetical,
				Evidence:   []string{"composer_in_parentheses"},
			})
		}
	}

	searchText := strings.ToLower(ev.Filename + " " + ev.FolderName + " " + ev.ParentFolder)
	for _, composer := range knownComposers {
		if strings.Contains(searchText, strings.ToLower(composer)) {
			candidates = append(candidates, Candidate{
				Value:      composer,
				Confidence: 90,
				Source:     sourceKnownComposer,
				Evidence:   []string{"recognized_classical_composer"},
			})
			break
		}
	}

	return dedupeCandidates(candidates)
}

var (
	audioExtRe     = regexp.MustCompile(`(?i)\.(mp3|flac|m4a|wav|wma|wv)$`)
	leadingJunkRe  = regexp.MustCompile(`^[\d\s\-_.]+`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	qualityMarkers = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\[?\d{3,4}kbps\]?`),
		regexp.MustCompile(`(?i)\[?320\]?`),
		regexp.MustCompile(`(?i)\[?FLAC\]?`),
		regexp.MustCompile(`(?i)\[?MP3\]?`),
		regexp.MustCompile(`(?i)\(Explicit\)`),
		regexp.MustCompile(`(?i)\[Explicit\]`),
	}
)

// cleanTitle strips audio extensions, leading digit runs, quality markers
// and stray separators from a title candidate.
func cleanTitle(title string) string {
	title = audioExtRe.ReplaceAllString(title, "")
	title = leadingJunkRe.ReplaceAllString(title, "")
	title = whitespaceRe.ReplaceAllString(title, " ")
	title = strings.Trim(title, " -_.")

	for _, re := range qualityMarkers {
		title = re.ReplaceAllString(title, "")
	}

	return strings.TrimSpace(title)
}

func stripLeadingZeros(s string) string {
	if stripped := strings.TrimLeft(s, "0"); stripped != "" {
		return stripped
	}
	return "0"
}

// dedupeCandidates removes duplicates by case-insensitive trimmed value,
// keeping the highest-confidence one, and sorts descending by confidence.
func dedupeCandidates(candidates []Candidate) []Candidate {
	best := make(map[string]Candidate)
	var order []string

	for _, c := range candidates {
		key := strings.ToLower(strings.TrimSpace(c.Value))
		cur, ok := best[key]
		if !ok {
			best[key] = c
			order = append(order, key)
		} else if c.Confidence > cur.Confidence {
			best[key] = c
		}
	}

	out := make([]Candidate, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}
