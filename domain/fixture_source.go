package domain

import (
	"github.com/darianrosebrook/sterling/bytestate"
	"github.com/darianrosebrook/sterling/search"
)

// FixtureSource is a search.SuccessorSource returning a fixed candidate list
// regardless of state, generalizing the single-operator fixtures scattered
// across this repo's own engine/bundle tests into one reusable type. A real
// domain's successor source depends on state (argument selection is
// domain-specific, spec.md §6); this fixture exists only to drive the core's
// own tests against FixtureCompiler-shaped episodes.
type FixtureSource struct {
	List []search.Candidate
}

// Candidates implements search.SuccessorSource.
func (s FixtureSource) Candidates(*bytestate.ByteStateV1) []search.Candidate {
	return s.List
}
