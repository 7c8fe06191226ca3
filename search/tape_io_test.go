package search

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildSampleTape(t *testing.T) *Tape {
	t.Helper()
	tape, err := NewTape(testTapeHeader())
	require.NoError(t, err)
	_, err = tape.Append(EventFrontierPush, map[string]any{
		"state_id": "root", "parent_id": "", "incoming_op_id": int64(0),
		"incoming_args": []any{}, "depth": int64(0),
	})
	require.NoError(t, err)
	_, err = tape.Append(EventNodeExpand, map[string]any{"state_id": "root", "depth": int64(0)})
	require.NoError(t, err)
	_, err = tape.Append(EventGoalFound, map[string]any{"state_id": "root", "depth": int64(0)})
	require.NoError(t, err)
	return tape
}

func TestTapeWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tape.bin")

	tape := buildSampleTape(t)
	require.NoError(t, tape.WriteFile(path))

	loaded, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, tape.Header(), loaded.Header())
	require.Equal(t, tape.HeadChainHash(), loaded.HeadChainHash())
	require.Len(t, loaded.Events(), 3)
	require.Equal(t, EventGoalFound, loaded.Events()[2].Kind)
}

func TestTapeReadDetectsTamperedTrailingDigest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tape.bin")

	tape := buildSampleTape(t)
	require.NoError(t, tape.WriteFile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	_, err = ReadFile(path)
	var te *TapeError
	require.ErrorAs(t, err, &te)
	require.Equal(t, ChainMismatch, te.Kind)
}
