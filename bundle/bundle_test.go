package bundle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/darianrosebrook/sterling/bytestate"
	"github.com/darianrosebrook/sterling/code32"
	"github.com/darianrosebrook/sterling/hashing"
	"github.com/darianrosebrook/sterling/operator"
	"github.com/darianrosebrook/sterling/policy"
	"github.com/darianrosebrook/sterling/search"
)

func repeatChar(s string, n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = s[0]
	}
	return string(out)
}

func testFixtureHash() hashing.Digest {
	return hashing.MustParseDigest("sha256:" + repeatChar("7", 64))
}

type oneStepSource struct {
	op *operator.Operator
}

func (s oneStepSource) Candidates(*bytestate.ByteStateV1) []search.Candidate {
	return []search.Candidate{{OpID: s.op.OpID}}
}

// buildFixture assembles one tiny, fully wired episode: a 1-lane schema, a
// single "0 -> 1" operator, a frozen registry, a best-first run that reaches
// the goal in one hop, and a matching minimal bytetrace.
func buildFixture(t *testing.T, profile policy.Profile) Inputs {
	t.Helper()

	schema := bytestate.ByteStateSchema{
		SchemaVersion:  "bundle.test.v1",
		DomainID:       11,
		LayerCount:     1,
		SlotCount:      1,
		LayerSemantics: []string{"flag"},
		PaddingCode:    code32.Padding,
		OrderingRule:   "row_major",
	}
	initial, err := bytestate.New(schema)
	require.NoError(t, err)

	registry := code32.NewRegistry(code32.Epoch("bundle-test"))
	_, err = registry.Freeze()
	require.NoError(t, err)

	op := &operator.Operator{
		OpID:              code32.New(11, 1, 1, 0),
		Name:              "flip",
		Category:          operator.CategoryM,
		ArgSlotCount:      0,
		PreconditionMask:  []uint32{0xFFFFFFFF},
		PreconditionValue: []uint32{0},
		EffectMask:        []uint32{0xFFFFFFFF},
		EffectValue:       []uint32{1},
	}
	set := operator.NewSet(schema.Slots())
	require.NoError(t, set.Add(op))

	pol := policy.Default()
	pol.Profile = profile

	isGoal := func(s *bytestate.ByteStateV1) bool { return s.ViewIdentityU32()[0] == 1 }

	dir := t.TempDir()
	tracePath := filepath.Join(dir, "scratch.bst1")
	result, err := search.Run(initial, isGoal, registry, set, pol, search.NoOpScorer{}, oneStepSource{op: op}, nil, testFixtureHash(), tracePath)
	require.NoError(t, err)
	require.Equal(t, search.StateGoalFound, result.State)

	tapeBytes, err := result.Tape.Encode()
	require.NoError(t, err)

	scorerDesc := search.NoOpScorer{}.Descriptor()

	return Inputs{
		Profile:           profile,
		Truncated:         result.Truncated,
		TraceBytes:        result.TraceBytes,
		TracePayloadHash:  result.TracePayloadHash,
		TapeBytes:         tapeBytes,
		TapeHeadChainHash: result.Tape.HeadChainHash(),
		Graph:             result.Graph,
		Registry:          registry,
		Operators:         set,
		Policy:            pol,
		Schema:            schema,
		Fixture:           map[string]any{"scenario": "bundle-test"},
		FixtureHash:       testFixtureHash(),
		Scorer:            &scorerDesc,
	}
}

func TestWriteThenVerifyBaseProfile(t *testing.T) {
	in := buildFixture(t, policy.Base)
	dir := t.TempDir()

	report, err := Write(dir, in)
	require.NoError(t, err)
	require.Equal(t, policy.Base, report.Profile)
	require.Len(t, report.Artifacts, 9, "8 required + 1 optional scorer descriptor")

	for _, name := range []string{FileByteTrace, FileSearchTape, FileSearchGraph, FileOperatorRegistry,
		FileRegistrySnapshot, FilePolicySnapshot, FileSchemaBundle, FileFixture, FileScorerDescriptor} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, "missing artifact %s", name)
	}

	loaded, err := Verify(dir)
	require.NoError(t, err)
	require.Equal(t, report.RegistryDigest, loaded.RegistryDigest)
	require.Equal(t, report.TapeHeadChainHash, loaded.TapeHeadChainHash)
	require.Empty(t, loaded.Faults)
}

func TestWriteThenVerifyCertProfile(t *testing.T) {
	in := buildFixture(t, policy.Cert)
	dir := t.TempDir()

	_, err := Write(dir, in)
	require.NoError(t, err)

	report, err := Verify(dir)
	require.NoError(t, err)
	require.Equal(t, policy.Cert, report.Profile)
	require.Empty(t, report.Faults)
}

func TestVerifyDetectsTamperedArtifactUnderBase(t *testing.T) {
	in := buildFixture(t, policy.Base)
	dir := t.TempDir()
	_, err := Write(dir, in)
	require.NoError(t, err)

	path := filepath.Join(dir, FileSchemaBundle)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw = append(raw, ' ')
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	_, err = Verify(dir)
	var ve *VerifyError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, DigestMismatch, ve.Kind)
}

// TestVerifyDetectsPoisonedRegistrySnapshot exercises spec.md §8 scenario 5:
// tampering one byte of registry_snapshot.json in a persisted bundle must
// fail closed with HashMismatch (DigestMismatch) naming that exact path; the
// bundle here is written under the Cert profile.
func TestVerifyDetectsPoisonedRegistrySnapshot(t *testing.T) {
	in := buildFixture(t, policy.Cert)
	dir := t.TempDir()
	_, err := Write(dir, in)
	require.NoError(t, err)

	path := filepath.Join(dir, FileRegistrySnapshot)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[0] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	_, err = Verify(dir)
	var ve *VerifyError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, DigestMismatch, ve.Kind)
	require.Equal(t, FileRegistrySnapshot, ve.Path)
}

func TestVerifyDetectsGraphMismatchUnderCert(t *testing.T) {
	in := buildFixture(t, policy.Cert)
	dir := t.TempDir()
	report, err := Write(dir, in)
	require.NoError(t, err)

	// Overwrite the persisted graph with a structurally different but
	// still-valid-looking canonical JSON document, then patch its recorded
	// artifact digest so the Base-level digest check passes and only the
	// Cert-only tape<->graph equivalence check can catch the substitution.
	fakeGraph := []byte(`{"edges":[],"fixture_hash":"` + string(report.FixtureHash) + `","health":{"budget_exhausted":false,"dead_end_count":0,"depth_histogram":{},"expansions":0,"frontier_peak":0,"unique_states":0},"nodes":[],"operator_set_digest":"` + string(report.OperatorSetDigest) + `","policy_digest":"` + string(report.PolicyDigest) + `","registry_digest":"` + string(report.RegistryDigest) + `","scorer_digest":"` + string(report.ScorerDigest) + `"}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileSearchGraph), fakeGraph, 0o600))

	fakeDigest, err := hashing.Raw(hashing.PrefixBundleArtifact, fakeGraph)
	require.NoError(t, err)
	report.Artifacts[FileSearchGraph] = fakeDigest
	reportBytes, err := hashing.Canonicalize(report.canonical())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileVerificationReport), reportBytes, 0o600))

	_, err = Verify(dir)
	var ve *VerifyError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, GraphMismatch, ve.Kind)
}

func TestVerifyUnderDevProfileIsSoft(t *testing.T) {
	in := buildFixture(t, policy.DEV)
	dir := t.TempDir()
	_, err := Write(dir, in)
	require.NoError(t, err)

	path := filepath.Join(dir, FileSchemaBundle)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw = append(raw, ' ')
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	report, err := Verify(dir)
	require.NoError(t, err, "DEV profile mismatches must not block the caller")
	require.NotEmpty(t, report.Faults)
}

func TestVerifyReportsMissingArtifact(t *testing.T) {
	in := buildFixture(t, policy.Base)
	dir := t.TempDir()
	_, err := Write(dir, in)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, FileFixture)))

	_, err = Verify(dir)
	var ve *VerifyError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, ArtifactMissing, ve.Kind)
}
