package bytestate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/darianrosebrook/sterling/code32"
)

func testSchema() ByteStateSchema {
	return ByteStateSchema{
		SchemaVersion:  "rome.v1",
		DomainID:       2,
		LayerCount:     4,
		SlotCount:      32,
		LayerSemantics: []string{"position", "visited", "path", "goal"},
		PaddingCode:    code32.Padding,
		OrderingRule:   "row_major",
	}
}

func TestNewIsAllPaddingAndHole(t *testing.T) {
	s, err := New(testSchema())
	require.NoError(t, err)

	for _, u := range s.ViewIdentityU32() {
		require.Equal(t, uint32(0), u)
	}
	for _, st := range s.ViewStatusU8() {
		require.Equal(t, uint8(StatusHole), st)
	}
}

func TestEqualsComparesIdentityOnly(t *testing.T) {
	schema := testSchema()
	a, err := New(schema)
	require.NoError(t, err)
	b := a.Clone()

	// Flip a status byte only.
	b.status[0] = byte(StatusCertified)

	require.True(t, Equals(a, b), "status-only change must not affect equality")

	ha, err := IdentityHash(a)
	require.NoError(t, err)
	hb, err := IdentityHash(b)
	require.NoError(t, err)
	require.Equal(t, ha, hb, "identity hash must be invariant under status changes (P2)")

	ea, err := EvidenceHash(a)
	require.NoError(t, err)
	eb, err := EvidenceHash(b)
	require.NoError(t, err)
	require.NotEqual(t, ea, eb, "evidence hash must change when status changes (P2)")
}

func TestEvidenceHashChangesOnIdentityChange(t *testing.T) {
	schema := testSchema()
	a, err := New(schema)
	require.NoError(t, err)
	b := a.Clone()
	b.identity[0] = 0xFF

	require.False(t, Equals(a, b))

	ea, err := EvidenceHash(a)
	require.NoError(t, err)
	eb, err := EvidenceHash(b)
	require.NoError(t, err)
	require.NotEqual(t, ea, eb)
}

func TestFromPlanesDefensiveCopy(t *testing.T) {
	schema := testSchema()
	identity := make([]byte, schema.IdentityBytes())
	status := make([]byte, schema.StatusBytes())

	s, err := FromPlanes(schema, identity, status)
	require.NoError(t, err)

	identity[0] = 0xAB
	require.NotEqual(t, byte(0xAB), s.IdentityBytes()[0], "FromPlanes must copy, not alias, caller buffers")
}

func TestFromPlanesLengthMismatch(t *testing.T) {
	schema := testSchema()
	_, err := FromPlanes(schema, []byte{1, 2, 3}, make([]byte, schema.StatusBytes()))
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestByteOrderStabilityP9(t *testing.T) {
	schema := testSchema()
	s, err := New(schema)
	require.NoError(t, err)

	// Write a distinctive Code32 into slot 0 and check the byte/uint32 views
	// agree, per property P9.
	c := code32.New(2, 64, 0x34, 0x12)
	u32 := code32.ToUint32(c)

	copy(s.identity[0:4], []byte{c[0], c[1], c[2], c[3]})

	view := s.ViewIdentityU32()
	require.Equal(t, u32, view[0])
	require.Equal(t, s.identity[0], byte(u32&0xFF))
}
