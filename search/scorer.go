package search

import (
	"github.com/darianrosebrook/sterling/bytestate"
	"github.com/darianrosebrook/sterling/hashing"
)

// Scorer ranks frontier candidates for expansion order only. Its output
// never appears on a hashed surface and never changes legality — only the
// order `NodeExpand` events are emitted in (spec.md §1 Non-goals "value
// scorers are advisory inputs with digest binding only", §4.6, P8).
type Scorer interface {
	// Score returns an ordering key for state; lower sorts first, matching
	// container/heap's min-heap convention. It must be a pure function of
	// state — no clock, RNG, or external I/O (spec.md §5 determinism rules).
	Score(state *bytestate.ByteStateV1) (float64, error)
	// Descriptor identifies this scorer for the tape header's scorer_digest
	// and the bundle's optional scorer_descriptor.json (spec.md §6).
	Descriptor() ScorerDescriptor
}

// ScorerDescriptor is the scorer's digest binding.
type ScorerDescriptor struct {
	Name   string
	Digest hashing.Digest
}

// Snapshot renders the descriptor as the canonical content of the bundle's
// optional scorer_descriptor.json artifact (spec.md §6).
func (d ScorerDescriptor) Snapshot() map[string]any {
	return map[string]any{
		"name":   d.Name,
		"digest": string(d.Digest),
	}
}

// NoOpScorer assigns every candidate the same score, so the frontier
// degrades to pure FIFO-by-insertion-order. It gives P8's "replacing the
// scorer" comparison a baseline to replace when a caller has no value
// model of its own yet.
type NoOpScorer struct{}

func (NoOpScorer) Score(*bytestate.ByteStateV1) (float64, error) { return 0, nil }

func (NoOpScorer) Descriptor() ScorerDescriptor {
	d, _ := hashing.Bytes(hashing.PrefixScorerDescriptor, map[string]any{"scorer": "noop.v1"})
	return ScorerDescriptor{Name: "noop.v1", Digest: d}
}
