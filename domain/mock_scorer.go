package domain

import (
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/darianrosebrook/sterling/bytestate"
	"github.com/darianrosebrook/sterling/search"
)

var _ search.Scorer = (*MockScorer)(nil)

// MockScorer is a hand-written test double for search.Scorer, matching
// MockCompiler's override/Cant-flag shape. Used to exercise property P8
// ("replacing the scorer is advisory-only") without writing a second real
// scorer implementation per test.
type MockScorer struct {
	T *testing.T

	CantScore bool

	ScoreF      func(state *bytestate.ByteStateV1) (float64, error)
	Descriptor_ search.ScorerDescriptor
}

// NewMockScorer mirrors NewMockCompiler's ctrl-accepting shape.
func NewMockScorer(ctrl *gomock.Controller) *MockScorer {
	return &MockScorer{}
}

// Score implements search.Scorer.
func (m *MockScorer) Score(state *bytestate.ByteStateV1) (float64, error) {
	if m.ScoreF != nil {
		return m.ScoreF(state)
	}
	if m.CantScore && m.T != nil {
		m.T.Fatal("unexpected Score")
	}
	return 0, nil
}

// Descriptor implements search.Scorer.
func (m *MockScorer) Descriptor() search.ScorerDescriptor {
	return m.Descriptor_
}
