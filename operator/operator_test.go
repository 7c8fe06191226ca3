package operator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/darianrosebrook/sterling/code32"
)

func plainOp(id code32.Code32, lanes int) *Operator {
	return &Operator{
		OpID:              id,
		Name:              id.String(),
		Category:          CategoryS,
		ArgSlotCount:      0,
		PreconditionMask:  zeroMask(lanes),
		PreconditionValue: zeroMask(lanes),
		EffectMask:        zeroMask(lanes),
		EffectValue:       zeroMask(lanes),
	}
}

func TestSetAddRejectsLaneCountMismatch(t *testing.T) {
	set := NewSet(4)
	op := plainOp(code32.New(5, 1, 1, 0), 2)
	require.ErrorIs(t, set.Add(op), ErrLaneCountMismatch)
}

func TestSetAddRejectsDuplicateOpID(t *testing.T) {
	set := NewSet(4)
	id := code32.New(5, 1, 1, 0)
	require.NoError(t, set.Add(plainOp(id, 4)))
	require.ErrorIs(t, set.Add(plainOp(id, 4)), ErrDuplicateOperator)
}

func TestSetLookupMiss(t *testing.T) {
	set := NewSet(4)
	_, ok := set.Lookup(code32.New(9, 9, 9, 0))
	require.False(t, ok)
}

func TestSetDigestOrderIndependent(t *testing.T) {
	id1 := code32.New(5, 1, 1, 0)
	id2 := code32.New(5, 1, 2, 0)

	set1 := NewSet(4)
	require.NoError(t, set1.Add(plainOp(id1, 4)))
	require.NoError(t, set1.Add(plainOp(id2, 4)))
	d1, err := set1.Digest()
	require.NoError(t, err)

	set2 := NewSet(4)
	require.NoError(t, set2.Add(plainOp(id2, 4)))
	require.NoError(t, set2.Add(plainOp(id1, 4)))
	d2, err := set2.Digest()
	require.NoError(t, err)

	require.Equal(t, d1, d2, "operator_set_digest must be insertion-order independent")
	require.Regexp(t, `^sha256:[0-9a-f]{64}$`, string(d1))
}

func TestSetDigestChangesWithContent(t *testing.T) {
	set := NewSet(4)
	id := code32.New(5, 1, 1, 0)
	require.NoError(t, set.Add(plainOp(id, 4)))
	d1, err := set.Digest()
	require.NoError(t, err)

	set2 := NewSet(4)
	op2 := plainOp(id, 4)
	op2.Category = CategoryM
	require.NoError(t, set2.Add(op2))
	d2, err := set2.Digest()
	require.NoError(t, err)

	require.NotEqual(t, d1, d2)
}

func TestSetLen(t *testing.T) {
	set := NewSet(4)
	require.Equal(t, 0, set.Len())
	require.NoError(t, set.Add(plainOp(code32.New(5, 1, 1, 0), 4)))
	require.Equal(t, 1, set.Len())
}

// TestSetDigestChangesWithMaskValues guards against the operator_set_digest
// collision a Snapshot that only records has_status_fx/has_index booleans
// would allow: two sets whose entries differ only in precondition/effect
// content must never hash the same.
func TestSetDigestChangesWithMaskValues(t *testing.T) {
	id := code32.New(5, 1, 1, 0)

	set1 := NewSet(4)
	op1 := plainOp(id, 4)
	op1.EffectValue = []uint32{1, 0, 0, 0}
	require.NoError(t, set1.Add(op1))
	d1, err := set1.Digest()
	require.NoError(t, err)

	set2 := NewSet(4)
	op2 := plainOp(id, 4)
	op2.EffectValue = []uint32{2, 0, 0, 0}
	require.NoError(t, set2.Add(op2))
	d2, err := set2.Digest()
	require.NoError(t, err)

	require.NotEqual(t, d1, d2, "effect_value must be bound into operator_set_digest")
}

// TestSnapshotCarriesStatusEffectLanes asserts the canonical map actually
// contains the mask/value content, not just a presence flag, and that a nil
// status effect encodes as nil rather than an empty array.
func TestSnapshotCarriesStatusEffectLanes(t *testing.T) {
	set := NewSet(2)
	withStatus := plainOp(code32.New(5, 1, 1, 0), 2)
	withStatus.StatusEffectMask = []uint8{0xFF, 0x00}
	withStatus.StatusEffectValue = []uint8{0x40, 0x00}
	require.NoError(t, set.Add(withStatus))

	noStatus := plainOp(code32.New(5, 1, 2, 0), 2)
	require.NoError(t, set.Add(noStatus))

	snap := set.Snapshot()
	entries, ok := snap["entries"].([]any)
	require.True(t, ok)
	require.Len(t, entries, 2)

	first := entries[0].(map[string]any)
	require.Equal(t, []byte{0xFF, 0x00}, first["status_effect_mask"])
	require.Equal(t, []byte{0x40, 0x00}, first["status_effect_value"])

	second := entries[1].(map[string]any)
	require.Nil(t, second["status_effect_mask"])
	require.Nil(t, second["status_effect_value"])
}

func TestMaxArgSlotCountTracksWidestOperator(t *testing.T) {
	set := NewSet(2)
	narrow := plainOp(code32.New(5, 1, 1, 0), 2)
	narrow.ArgSlotCount = 1
	wide := plainOp(code32.New(5, 1, 2, 0), 2)
	wide.ArgSlotCount = 3
	require.NoError(t, set.Add(narrow))
	require.NoError(t, set.Add(wide))

	require.Equal(t, 3, set.MaxArgSlotCount())
}
