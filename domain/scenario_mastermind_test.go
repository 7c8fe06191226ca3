package domain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/darianrosebrook/sterling/bytestate"
	"github.com/darianrosebrook/sterling/code32"
	"github.com/darianrosebrook/sterling/operator"
)

// TestMastermindProbeStatusChangeLeavesIdentityHashUnchanged exercises spec.md
// §8 scenario 2: a probe operator that only ever writes the status plane
// (resolving provisional slots to confirmed) must change evidence_hash
// exactly once per probe while leaving identity_hash untouched (P2).
func TestMastermindProbeStatusChangeLeavesIdentityHashUnchanged(t *testing.T) {
	schema := bytestate.ByteStateSchema{
		SchemaVersion:  "domain.fixture.mastermind.v1",
		DomainID:       3,
		LayerCount:     2,
		SlotCount:      16,
		LayerSemantics: []string{"guess", "feedback"},
		PaddingCode:    code32.Padding,
		OrderingRule:   "row_major",
	}
	lanes := schema.Slots()

	state, err := bytestate.New(schema)
	require.NoError(t, err)
	status := state.ViewStatusU8()
	for i := range status {
		status[i] = 128 // provisional
	}
	identityBefore := append([]byte(nil), state.IdentityBytes()...)
	identityHashBefore, err := bytestate.IdentityHash(state)
	require.NoError(t, err)
	evidenceHashBefore, err := bytestate.EvidenceHash(state)
	require.NoError(t, err)

	probe := &operator.Operator{
		OpID:              code32.New(3, 80, 1, 0),
		Name:              "probe_feedback",
		Category:          operator.CategoryP,
		ArgSlotCount:      0,
		PreconditionMask:  make([]uint32, lanes),
		PreconditionValue: make([]uint32, lanes),
		EffectMask:        make([]uint32, lanes), // all zero: no identity effect
		EffectValue:       make([]uint32, lanes),
		StatusEffectMask:  make([]uint8, lanes),
		StatusEffectValue: make([]uint8, lanes),
	}
	probe.StatusEffectMask[16] = 0xFF // first feedback-layer slot
	probe.StatusEffectValue[16] = 255 // resolved

	set := operator.NewSet(lanes)
	require.NoError(t, set.Add(probe))

	next, record, err := operator.Apply(state, probe.OpID, nil, nil, set, nil, false)
	require.NoError(t, err)
	require.Equal(t, identityBefore, next.IdentityBytes(), "identity plane must be byte-for-byte unchanged by a status-only probe")

	identityHashAfter, err := bytestate.IdentityHash(next)
	require.NoError(t, err)
	require.Equal(t, identityHashBefore, identityHashAfter)

	evidenceHashAfter, err := bytestate.EvidenceHash(next)
	require.NoError(t, err)
	require.NotEqual(t, evidenceHashBefore, evidenceHashAfter, "evidence_hash must change when the status plane changes")

	require.Equal(t, uint8(255), next.ViewStatusU8()[16])
	require.Equal(t, record.NewStatus, next.StatusBytes())
}
