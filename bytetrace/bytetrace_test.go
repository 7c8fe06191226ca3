package bytetrace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/darianrosebrook/sterling/code32"
	"github.com/darianrosebrook/sterling/hashing"
)

func testHeader() Header {
	return Header{
		SchemaVersion:     "rome.v1",
		DomainID:          2,
		LayerCount:        2,
		SlotCount:         2,
		ArgSlotCount:      1,
		RegistryDigest:    hashing.MustParseDigest("sha256:" + repeat("a", 64)),
		OperatorSetDigest: hashing.MustParseDigest("sha256:" + repeat("b", 64)),
		PolicyDigest:      hashing.MustParseDigest("sha256:" + repeat("c", 64)),
		FixtureHash:       hashing.MustParseDigest("sha256:" + repeat("d", 64)),
	}
}

func repeat(s string, n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = s[0]
	}
	return string(out)
}

func writeSampleTrace(t *testing.T, path string, frames []Frame) (hashing.Digest, Footer) {
	t.Helper()
	w := NewWriter(path, testHeader(), Envelope{"note": "test run"})
	for _, f := range frames {
		require.NoError(t, w.AppendFrame(f))
	}
	footer := Footer{FinalIdentityHash: "sha256:" + repeat("e", 64), FinalEvidenceHash: "sha256:" + repeat("f", 64)}
	hash, err := w.Close(footer)
	require.NoError(t, err)
	return hash, footer
}

func sampleFrame(n int) Frame {
	identity := make([]byte, 4*n)
	status := make([]byte, n)
	for i := 0; i < n; i++ {
		identity[i*4] = byte(i + 1)
	}
	return Frame{
		OpID:     code32.New(5, 1, 1, 0),
		Args:     []code32.Code32{code32.New(1, 1, 1, 0)},
		Identity: identity,
		Status:   status,
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trace.bst1")

	frames := []Frame{sampleFrame(4), sampleFrame(4)}
	hash, footer := writeSampleTrace(t, path, frames)

	trace, err := Open(path, hash)
	require.NoError(t, err)
	require.Equal(t, hash, trace.PayloadHash)
	require.Len(t, trace.Frames, 2)
	require.Equal(t, footer, trace.Footer)
	require.Equal(t, "test run", trace.Envelope["note"])

	require.Equal(t, testHeader().SchemaVersion, trace.Header.SchemaVersion)
	require.Equal(t, testHeader().RegistryDigest, trace.Header.RegistryDigest)
	require.Equal(t, 2, trace.Header.StepCount)
}

func TestOpenRejectsMismatchedExpectedHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trace.bst1")
	writeSampleTrace(t, path, []Frame{sampleFrame(4)})

	_, err := Open(path, hashing.MustParseDigest("sha256:"+repeat("0", 64)))
	var te *TraceError
	require.ErrorAs(t, err, &te)
	require.Equal(t, TraceHashMismatch, te.Kind)
}

func TestOpenRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trace.bst1")

	// envelope_len=0, then garbage where magic should be.
	raw := []byte{0, 0, 'X', 'X', 'X', 'X'}
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	_, err := Open(path, "")
	var te *TraceError
	require.ErrorAs(t, err, &te)
	require.Equal(t, BadMagic, te.Kind)
}

func TestEnvelopeExcludedFromPayloadHash(t *testing.T) {
	dir := t.TempDir()
	path1 := filepath.Join(dir, "a.bst1")
	path2 := filepath.Join(dir, "b.bst1")

	frames := []Frame{sampleFrame(4)}

	w1 := NewWriter(path1, testHeader(), Envelope{"note": "first"})
	require.NoError(t, w1.AppendFrame(frames[0]))
	hash1, err := w1.Close(Footer{})
	require.NoError(t, err)

	w2 := NewWriter(path2, testHeader(), Envelope{"note": "second", "extra": "field"})
	require.NoError(t, w2.AppendFrame(frames[0]))
	hash2, err := w2.Close(Footer{})
	require.NoError(t, err)

	require.Equal(t, hash1, hash2, "payload hash must not depend on envelope contents")
}

func TestDivergenceLocalizesToStepAndRegion(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.bst1")
	pathB := filepath.Join(dir, "b.bst1")

	frameA := sampleFrame(4)
	frameB := sampleFrame(4)
	frameB.Identity[4] = frameA.Identity[4] + 1 // diverge inside lane 1's first byte

	_, _ = writeSampleTrace(t, pathA, []Frame{sampleFrame(4), frameA})
	_, _ = writeSampleTrace(t, pathB, []Frame{sampleFrame(4), frameB})

	traceA, err := Open(pathA, "")
	require.NoError(t, err)
	traceB, err := Open(pathB, "")
	require.NoError(t, err)

	loc, differ, err := Diverge(traceA, traceB)
	require.NoError(t, err)
	require.True(t, differ)
	require.Equal(t, 1, loc.Step)
	require.Equal(t, RegionIdentity, loc.Region)
	require.Equal(t, 0, loc.Layer)
	require.Equal(t, 1, loc.Slot)
}

func TestDivergeReportsNoDifferenceForIdenticalTraces(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.bst1")
	pathB := filepath.Join(dir, "b.bst1")

	frames := []Frame{sampleFrame(4)}
	writeSampleTrace(t, pathA, frames)
	writeSampleTrace(t, pathB, frames)

	traceA, err := Open(pathA, "")
	require.NoError(t, err)
	traceB, err := Open(pathB, "")
	require.NoError(t, err)

	_, differ, err := Diverge(traceA, traceB)
	require.NoError(t, err)
	require.False(t, differ)
}

func TestFirstDifferingByteAcrossWordBoundary(t *testing.T) {
	a := make([]byte, 20)
	b := make([]byte, 20)
	b[17] = 1

	off, differ := FirstDifferingByte(a, b)
	require.True(t, differ)
	require.Equal(t, 17, off)
}

func TestFirstDifferingByteIdentical(t *testing.T) {
	a := []byte("identical bytes!")
	b := []byte("identical bytes!")
	_, differ := FirstDifferingByte(a, b)
	require.False(t, differ)
}
