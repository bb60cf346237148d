package inference

import (
	"math"
	"sort"
	"strings"
)

// synthesize merges local and external candidates, collapsing groups that
// agree on the same normalized value into a single consensus candidate.
// Agreement across a local and an external source earns a bigger boost than
// agreement within one side. Group order follows first appearance, keeping
// the output deterministic.
func synthesize(local, external []Candidate) []Candidate {
	all := make([]Candidate, 0, len(local)+len(external))
	all = append(all, local...)
	all = append(all, external...)

	groups := make(map[string][]Candidate)
	var order []string
	for _, c := range all {
		key := strings.ToLower(strings.TrimSpace(c.Value))
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], c)
	}

	out := make([]Candidate, 0, len(order))
	for _, key := range order {
		group := groups[key]
		if len(group) == 1 {
			out = append(out, group[0])
			continue
		}

		var sources []string
		seen := make(map[string]bool)
		maxConfidence := 0.0
		hasLocal, hasExternal := false, false
		for _, c := range group {
			if !seen[c.Source] {
				seen[c.Source] = true
				sources = append(sources, c.Source)
			}
			maxConfidence = max(maxConfidence, c.Confidence)
			if c.Source == sourceMusicBrainz {
				hasExternal = true
			} else {
				hasLocal = true
			}
		}

		boost := 5.0
		if hasLocal && hasExternal {
			boost = 15
		}

		out = append(out, Candidate{
			Value:          group[0].Value, // keep the first member's casing
			Confidence:     min(maxConfidence+boost, 95),
			Source:         sourceConsensus,
			Evidence:       []string{"multiple_sources_agree"},
			Sources:        sources,
			AgreementCount: len(group),
		})
	}

	return out
}

// finalScores applies contextual confidence adjustments, rounds to whole
// numbers, and sorts descending by confidence (stable).
func finalScores(candidates []Candidate, ev Evidence, field Field) []Candidate {
	filename := strings.ToLower(ev.Filename)
	folder := strings.ToLower(ev.FolderName)
	parent := strings.ToLower(ev.ParentFolder)

	for i := range candidates {
		c := &candidates[i]
		value := strings.ToLower(c.Value)

		appearances := 0
		if strings.Contains(filename, value) {
			appearances++
		}
		if strings.Contains(folder, value) {
			appearances++
		}
		if parent != "" && strings.Contains(parent, value) {
			appearances++
		}
		if appearances > 1 {
			c.Confidence = min(c.Confidence+float64(appearances)*5, 100)
		}

		if field == FieldArtist {
			if aa := ev.Existing[FieldAlbumArtist]; aa != "" && strings.EqualFold(c.Value, aa) {
				c.Confidence = min(c.Confidence+10, 100)
			}
		}

		c.Confidence = math.Round(c.Confidence)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	return candidates
}
