package inference

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// FolderFile is one audio file in the same directory as the file under
// inference, supplied by the caller.
type FolderFile struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// FolderContext carries the sibling audio files of the file under inference.
// The engine never touches the filesystem itself.
type FolderContext struct {
	Files []FolderFile
}

// Segment is one way of splitting the filename stem, with a confidence for
// how likely the split reflects the file's real naming scheme.
type Segment struct {
	Parts      []string
	Delimiter  string
	Confidence float64
}

// SiblingPatterns summarizes naming patterns shared by sibling files.
type SiblingPatterns struct {
	CommonPrefix string
	PrefixCount  int
	TrackPattern string // "prefix_number" when siblings share leading track numbers
}

// Evidence is the precomputed, read-only fact base every per-field
// heuristic works from. Built once per InferField call.
type Evidence struct {
	Filepath     string
	Filename     string
	Stem         string // filename without extension
	Extension    string // lowercased, with dot
	FolderName   string
	ParentFolder string
	FolderParts  []string // ordered path components of the containing directory
	Existing     map[Field]string
	Segments     []Segment // sorted by confidence descending
	Siblings     SiblingPatterns
	SiblingCount int
}

// Delimiters tried when segmenting a filename stem, most conventional first.
var segmentDelimiters = []string{" - ", "-", "_", "~", " · ", " — ", ".", " "}

var (
	parenRe       = regexp.MustCompile(`\(([^)]+)\)`)
	bracketRe     = regexp.MustCompile(`\[([^\]]+)\]`)
	leadingNumRe  = regexp.MustCompile(`^\d{1,3}[\s\-_.]+`)
	siblingNumRe  = regexp.MustCompile(`^(\d{1,3})[\s\-_.]+.+`)
	pureNumberRe  = regexp.MustCompile(`^\d{1,3}$`)
	parenthetical = "parenthetical"
)

// buildEvidence assembles the Evidence for one file. Pure function: the
// folder context already contains the sibling filenames.
func buildEvidence(path string, existing map[Field]string, folder FolderContext) Evidence {
	if existing == nil {
		existing = map[Field]string{}
	}

	filename := filepath.Base(path)
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)

	dir := filepath.Dir(path)
	folderName := componentName(filepath.Base(dir))
	parentFolder := ""
	if parent := filepath.Dir(dir); parent != dir {
		parentFolder = componentName(filepath.Base(parent))
	}

	return Evidence{
		Filepath:     path,
		Filename:     filename,
		Stem:         stem,
		Extension:    strings.ToLower(ext),
		FolderName:   folderName,
		ParentFolder: parentFolder,
		FolderParts:  splitFolderParts(dir),
		Existing:     existing,
		Segments:     extractSegments(stem),
		Siblings:     analyzeSiblings(folder.Files, filename),
		SiblingCount: len(folder.Files),
	}
}

// splitFolderParts decomposes a directory path into its component names.
func splitFolderParts(dir string) []string {
	var parts []string
	for _, p := range strings.Split(filepath.ToSlash(dir), "/") {
		if name := componentName(p); name != "" {
			parts = append(parts, name)
		}
	}
	return parts
}

func componentName(p string) string {
	if p == "." || p == ".." || p == "/" || p == string(filepath.Separator) {
		return ""
	}
	return p
}

// extractSegments splits the stem under each candidate delimiter, keeping
// splits that yield 2-6 parts, plus parenthesized and bracketed substrings
// as one-part pseudo-segments.
func extractSegments(stem string) []Segment {
	var segments []Segment

	for _, delim := range segmentDelimiters {
		parts := strings.Split(stem, delim)
		if len(parts) >= 2 && len(parts) <= 6 {
			segments = append(segments, Segment{
				Parts:      parts,
				Delimiter:  delim,
				Confidence: delimiterConfidence(delim, parts),
			})
		}
	}

	for _, re := range []*regexp.Regexp{parenRe, bracketRe} {
		for _, m := range re.FindAllStringSubmatch(stem, -1) {
			segments = append(segments, Segment{
				Parts:      []string{m[1]},
				Delimiter:  parenthetical,
				Confidence: 60,
			})
		}
	}

	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Confidence > segments[j].Confidence
	})
	return segments
}

// delimiterConfidence scores a split by delimiter strength, segment quality
// and part count.
func delimiterConfidence(delim string, parts []string) float64 {
	confidence := 50.0

	switch delim {
	case " - ":
		confidence += 30
	case "-":
		confidence += 20
	case "_":
		confidence += 10
	}

	valid := 0
	for _, p := range parts {
		if n := utf8.RuneCountInString(strings.TrimSpace(p)); n >= 2 && n <= 100 {
			valid++
		}
	}
	confidence += float64(valid) / float64(len(parts)) * 20

	if len(parts) > 4 {
		confidence -= float64(len(parts)-4) * 10
	}

	return min(confidence, 100)
}

// analyzeSiblings looks for a common literal prefix and a shared
// leading-track-number pattern across the sibling filenames.
func analyzeSiblings(files []FolderFile, current string) SiblingPatterns {
	var patterns SiblingPatterns

	var names []string
	for _, f := range files {
		if f.Name != current {
			names = append(names, f.Name)
		}
	}
	if len(names) == 0 {
		return patterns
	}

	if prefix := commonPrefix(names); utf8.RuneCountInString(prefix) > 3 {
		patterns.CommonPrefix = prefix
		patterns.PrefixCount = len(names)
	}

	matches := 0
	for _, name := range append(append([]string{}, names...), current) {
		if siblingNumRe.MatchString(name) {
			matches++
		}
	}
	if float64(matches) > float64(len(names))*0.7 {
		patterns.TrackPattern = "prefix_number"
	}

	return patterns
}

func commonPrefix(names []string) string {
	prefix := names[0]
	for _, name := range names[1:] {
		for !strings.HasPrefix(name, prefix) {
			prefix = prefix[:len(prefix)-1]
			if prefix == "" {
				return ""
			}
		}
	}
	return prefix
}
