package domain

import (
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/darianrosebrook/sterling/bytestate"
	"github.com/darianrosebrook/sterling/code32"
	"github.com/darianrosebrook/sterling/policy"
)

var _ Compiler = (*MockCompiler)(nil)

// MockCompiler is a hand-written test double for Compiler, grounded on the
// teacher's blockmock.ChainVM shape: an optional per-method function
// override, plus a Cant*/T pair that fails the test if a method is invoked
// with neither an override nor permission to be a no-op.
type MockCompiler struct {
	T *testing.T

	CantCompile   bool
	CantDecompile bool

	CompileF   func(payload []byte, schema bytestate.ByteStateSchema, registry *code32.Registry, pol policy.PolicySnapshot) (*bytestate.ByteStateV1, error)
	DecompileF func(state *bytestate.ByteStateV1, schema bytestate.ByteStateSchema, registry *code32.Registry) ([]byte, error)
}

// NewMockCompiler mirrors validatorsmock.NewState's shape: it accepts a
// *gomock.Controller so call sites written against a generated-mock
// constructor compile unchanged, even though this particular double is
// hand-written and never registers expectations on ctrl.
func NewMockCompiler(ctrl *gomock.Controller) *MockCompiler {
	return &MockCompiler{}
}

// Compile implements Compiler.
func (m *MockCompiler) Compile(payload []byte, schema bytestate.ByteStateSchema, registry *code32.Registry, pol policy.PolicySnapshot) (*bytestate.ByteStateV1, error) {
	if m.CompileF != nil {
		return m.CompileF(payload, schema, registry, pol)
	}
	if m.CantCompile && m.T != nil {
		m.T.Fatal("unexpected Compile")
	}
	return nil, nil
}

// Decompile implements Compiler.
func (m *MockCompiler) Decompile(state *bytestate.ByteStateV1, schema bytestate.ByteStateSchema, registry *code32.Registry) ([]byte, error) {
	if m.DecompileF != nil {
		return m.DecompileF(state, schema, registry)
	}
	if m.CantDecompile && m.T != nil {
		m.T.Fatal("unexpected Decompile")
	}
	return nil, nil
}
