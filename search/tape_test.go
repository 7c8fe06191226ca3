package search

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/darianrosebrook/sterling/hashing"
)

func testTapeHeader() Header {
	return Header{
		RegistryDigest:    hashing.MustParseDigest("sha256:" + repeatChar("1", 64)),
		OperatorSetDigest: hashing.MustParseDigest("sha256:" + repeatChar("2", 64)),
		PolicyDigest:      hashing.MustParseDigest("sha256:" + repeatChar("3", 64)),
		ScorerDigest:      hashing.MustParseDigest("sha256:" + repeatChar("4", 64)),
		FixtureHash:       hashing.MustParseDigest("sha256:" + repeatChar("5", 64)),
	}
}

func repeatChar(s string, n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = s[0]
	}
	return string(out)
}

func TestTapeHeadChainHashWithNoEventsIsHeaderHash(t *testing.T) {
	tape, err := NewTape(testTapeHeader())
	require.NoError(t, err)
	require.Equal(t, tape.headerHash, tape.HeadChainHash())
}

func TestTapeAppendExtendsChain(t *testing.T) {
	tape, err := NewTape(testTapeHeader())
	require.NoError(t, err)

	c0, err := tape.Append(EventNodeExpand, map[string]any{"state_id": "root", "depth": int64(0)})
	require.NoError(t, err)
	require.NotEqual(t, tape.headerHash, c0)

	c1, err := tape.Append(EventGoalFound, map[string]any{"state_id": "root", "depth": int64(0)})
	require.NoError(t, err)
	require.NotEqual(t, c0, c1)
	require.Equal(t, c1, tape.HeadChainHash())
}

func TestTapeDeterministicAcrossIndependentRuns(t *testing.T) {
	build := func() hashing.Digest {
		tape, err := NewTape(testTapeHeader())
		require.NoError(t, err)
		_, err = tape.Append(EventNodeExpand, map[string]any{"state_id": "root", "depth": int64(0)})
		require.NoError(t, err)
		_, err = tape.Append(EventGoalFound, map[string]any{"state_id": "root", "depth": int64(0)})
		require.NoError(t, err)
		return tape.HeadChainHash()
	}
	require.Equal(t, build(), build())
}

func TestVerifyChainDetectsTamperedEvent(t *testing.T) {
	tape, err := NewTape(testTapeHeader())
	require.NoError(t, err)
	_, err = tape.Append(EventNodeExpand, map[string]any{"state_id": "root", "depth": int64(0)})
	require.NoError(t, err)
	_, err = tape.Append(EventGoalFound, map[string]any{"state_id": "root", "depth": int64(0)})
	require.NoError(t, err)

	ok, err := VerifyChain(tape.Header(), tape.Events(), tape.Chain())
	require.NoError(t, err)
	require.True(t, ok)

	tampered := append([]Event(nil), tape.Events()...)
	tampered[0] = Event{Kind: tampered[0].Kind, Payload: map[string]any{"state_id": "root", "depth": int64(99)}}

	ok, err = VerifyChain(tape.Header(), tampered, tape.Chain())
	require.NoError(t, err)
	require.False(t, ok, "tampering one event must change the head chain digest (P4)")
}

func TestVerifyChainRejectsHeaderSubstitution(t *testing.T) {
	tape, err := NewTape(testTapeHeader())
	require.NoError(t, err)
	_, err = tape.Append(EventNodeExpand, map[string]any{"state_id": "root", "depth": int64(0)})
	require.NoError(t, err)

	otherHeader := testTapeHeader()
	otherHeader.FixtureHash = hashing.MustParseDigest("sha256:" + repeatChar("9", 64))

	ok, err := VerifyChain(otherHeader, tape.Events(), tape.Chain())
	require.NoError(t, err)
	require.False(t, ok)
}
