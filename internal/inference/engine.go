package inference

import (
	"context"

	"metaremote/internal/logger"
)

const maxSuggestions = 5

// Engine runs the inference pipeline: evidence building, local per-field
// heuristics, the external lookup gate, synthesis, and final scoring.
// A single Engine serves all requests; all per-call state lives on the
// call stack.
type Engine struct {
	db         MusicDatabase
	log        *logger.Logger
	thresholds map[Field]float64
}

// New creates an Engine. db may be nil to disable external lookups.
// Nil thresholds fall back to DefaultThresholds.
func New(db MusicDatabase, log *logger.Logger, thresholds map[Field]float64) *Engine {
	if thresholds == nil {
		thresholds = DefaultThresholds()
	}
	if log == nil {
		log = logger.New(false)
	}
	return &Engine{
		db:         db,
		log:        log,
		thresholds: thresholds,
	}
}

// InferField produces up to 5 ranked suggestions for one metadata field of
// one file. It never fails: malformed evidence and lookup errors degrade to
// fewer (or zero) suggestions.
func (e *Engine) InferField(ctx context.Context, path string, field Field, existing map[Field]string, folder FolderContext) []Candidate {
	ev := buildEvidence(path, existing, folder)

	local := localCandidates(ev, field)

	var external []Candidate
	if e.db != nil && shouldQuery(field, local, ev.Existing) {
		external = e.queryDatabase(ctx, ev, field, local)
	}

	merged := synthesize(local, external)
	final := finalScores(merged, ev, field)

	// Surface anything above half the field threshold; the full threshold
	// is the bar for a confident suggestion, not for showing one at all.
	threshold, ok := e.thresholds[field]
	if !ok {
		threshold = 70
	}
	cutoff := threshold / 2

	out := make([]Candidate, 0, maxSuggestions)
	for _, c := range final {
		if c.Confidence < cutoff {
			continue
		}
		out = append(out, c)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

// Thresholds returns the engine's per-field confidence thresholds.
func (e *Engine) Thresholds() map[Field]float64 {
	return e.thresholds
}
