package domain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/darianrosebrook/sterling/bytestate"
	"github.com/darianrosebrook/sterling/code32"
	"github.com/darianrosebrook/sterling/policy"
)

func TestMockCompilerUsesOverride(t *testing.T) {
	schema := romeSchema()
	wantState, err := bytestate.New(schema)
	require.NoError(t, err)

	m := NewMockCompiler(nil)
	m.CompileF = func([]byte, bytestate.ByteStateSchema, *code32.Registry, policy.PolicySnapshot) (*bytestate.ByteStateV1, error) {
		return wantState, nil
	}

	got, err := m.Compile(nil, schema, nil, policy.Default())
	require.NoError(t, err)
	require.Same(t, wantState, got)
}

func TestMockCompilerFailsTestWhenUnexpectedWithCantFlag(t *testing.T) {
	ok := t.Run("decompile", func(st *testing.T) {
		m := NewMockCompiler(nil)
		m.T = st
		m.CantDecompile = true
		_, _ = m.Decompile(nil, romeSchema(), nil)
	})
	require.False(t, ok, "Decompile should fail the subtest once CantDecompile is set")
}

func TestMockCompilerDefaultsToNilNilWithoutCantFlag(t *testing.T) {
	m := NewMockCompiler(nil)
	state, err := m.Compile(nil, romeSchema(), nil, policy.Default())
	require.NoError(t, err)
	require.Nil(t, state)
}
