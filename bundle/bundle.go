// Package bundle implements the ArtifactBundle: the content-addressed
// directory an episode's outputs are persisted to, plus Base/Cert
// verification (spec.md §4.7, §6). It is the terminal package in the
// module's one-way dependency order (hashing → code32 → bytestate →
// operator → bytetrace → search → bundle) — every other package's digest
// and wire-format surface is assembled here into one directory.
package bundle

import (
	"os"
	"path/filepath"

	"github.com/darianrosebrook/sterling/bytestate"
	"github.com/darianrosebrook/sterling/code32"
	"github.com/darianrosebrook/sterling/hashing"
	"github.com/darianrosebrook/sterling/operator"
	"github.com/darianrosebrook/sterling/policy"
	"github.com/darianrosebrook/sterling/search"
)

// File names fixed by spec.md §4.7's named-file directory layout.
const (
	FileVerificationReport = "verification_report.json"
	FileByteTrace          = "bytetrace.bst1"
	FileSearchTape         = "search_tape.bin"
	FileSearchGraph        = "search_graph.json"
	FileOperatorRegistry   = "operator_registry.json"
	FileRegistrySnapshot   = "registry_snapshot.json"
	FilePolicySnapshot     = "policy_snapshot.json"
	FileSchemaBundle       = "schema_bundle.json"
	FileFixture            = "fixture.json"
	FileScorerDescriptor   = "scorer_descriptor.json" // optional
)

// Inputs collects everything an episode produced, in the form each
// contributing package already hands back: raw wire bytes for the two
// binary artifacts (already written/encoded by bytetrace.Writer and
// search.Tape), and the live objects for everything expressed as JSON, so
// Write always derives digests from the same canonical content it persists
// rather than trusting separately-passed-in values that could drift.
type Inputs struct {
	Profile   policy.Profile
	Truncated bool

	// TraceBytes is the already-encoded .bst1 payload (bytetrace.Writer.Close
	// writes this same image to its own path; Write places an identical copy
	// here). TracePayloadHash is the digest bytetrace.Writer.Close returned.
	TraceBytes       []byte
	TracePayloadHash hashing.Digest

	// TapeBytes is search.Tape.Encode()'s wire image; TapeHeadChainHash is
	// search.Tape.HeadChainHash().
	TapeBytes         []byte
	TapeHeadChainHash hashing.Digest

	Graph       *search.Graph
	Registry    *code32.Registry
	Operators   *operator.Set
	Policy      policy.PolicySnapshot
	Schema      bytestate.ByteStateSchema
	Fixture     map[string]any
	FixtureHash hashing.Digest

	// Scorer is optional; nil omits scorer_descriptor.json entirely.
	Scorer *search.ScorerDescriptor
}

// Report is the decoded form of verification_report.json, returned by both
// Write and Verify.
type Report struct {
	SchemaVersion     string
	Profile           policy.Profile
	Truncated         bool
	RegistryDigest    hashing.Digest
	OperatorSetDigest hashing.Digest
	PolicyDigest      hashing.Digest
	SchemaDigest      hashing.Digest
	ScorerDigest      hashing.Digest
	FixtureHash       hashing.Digest
	TracePayloadHash  hashing.Digest
	TapeHeadChainHash hashing.Digest
	GraphDigest       hashing.Digest
	Artifacts         map[string]hashing.Digest
	// Faults records non-fatal verification mismatches recorded under the
	// DEV profile (spec.md §4.7 "Under DEV, they are recorded to the report
	// but do not block the caller"). Always empty for a freshly written
	// bundle; populated only by Verify.
	Faults []string
}

// Write assembles every artifact byte-for-byte, computes each digest from
// the exact bytes persisted, writes every file atomically, then reads the
// whole directory back and re-verifies it — the same write-then-verify
// discipline as bytetrace.Writer.Close (spec.md §4.7 "Write path: compute
// each hash, assemble report, write atomically, verify by reading back").
func Write(dir string, in Inputs) (*Report, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &VerifyError{Kind: IOFailure, Path: dir}
	}

	registrySnap, err := in.Registry.Snapshot()
	if err != nil {
		return nil, err
	}
	registryDigest, err := in.Registry.Digest()
	if err != nil {
		return nil, err
	}
	operatorDigest, err := in.Operators.Digest()
	if err != nil {
		return nil, err
	}
	policyDigest, err := in.Policy.Digest()
	if err != nil {
		return nil, err
	}
	policySnap, err := in.Policy.Snapshot()
	if err != nil {
		return nil, err
	}
	schemaDigest, err := in.Schema.Digest()
	if err != nil {
		return nil, err
	}
	schemaSnap, err := in.Schema.Snapshot()
	if err != nil {
		return nil, err
	}
	graphBytes, err := in.Graph.Encode()
	if err != nil {
		return nil, err
	}
	graphDigest, err := in.Graph.Digest()
	if err != nil {
		return nil, err
	}
	fixtureBytes, err := hashing.Canonicalize(in.Fixture)
	if err != nil {
		return nil, err
	}
	operatorBytes, err := hashing.Canonicalize(in.Operators.Snapshot())
	if err != nil {
		return nil, err
	}
	registryBytes, err := hashing.Canonicalize(registrySnap)
	if err != nil {
		return nil, err
	}
	policyBytes, err := hashing.Canonicalize(policySnap)
	if err != nil {
		return nil, err
	}
	schemaBytes, err := hashing.Canonicalize(schemaSnap)
	if err != nil {
		return nil, err
	}

	files := map[string][]byte{
		FileByteTrace:        in.TraceBytes,
		FileSearchTape:       in.TapeBytes,
		FileSearchGraph:      graphBytes,
		FileOperatorRegistry: operatorBytes,
		FileRegistrySnapshot: registryBytes,
		FilePolicySnapshot:   policyBytes,
		FileSchemaBundle:     schemaBytes,
		FileFixture:          fixtureBytes,
	}

	var scorerDigest hashing.Digest
	if in.Scorer != nil {
		scorerDigest = in.Scorer.Digest
		scorerBytes, err := hashing.Canonicalize(in.Scorer.Snapshot())
		if err != nil {
			return nil, err
		}
		files[FileScorerDescriptor] = scorerBytes
	}

	artifactDigests := make(map[string]hashing.Digest, len(files))
	for name, content := range files {
		d, err := hashing.Raw(hashing.PrefixBundleArtifact, content)
		if err != nil {
			return nil, err
		}
		artifactDigests[name] = d
		if err := atomicWriteFile(filepath.Join(dir, name), content); err != nil {
			return nil, &VerifyError{Kind: IOFailure, Path: name}
		}
	}

	report := &Report{
		SchemaVersion:     "verification_report.v1",
		Profile:           in.Profile,
		Truncated:         in.Truncated,
		RegistryDigest:    registryDigest,
		OperatorSetDigest: operatorDigest,
		PolicyDigest:      policyDigest,
		SchemaDigest:      schemaDigest,
		ScorerDigest:      scorerDigest,
		FixtureHash:       in.FixtureHash,
		TracePayloadHash:  in.TracePayloadHash,
		TapeHeadChainHash: in.TapeHeadChainHash,
		GraphDigest:       graphDigest,
		Artifacts:         artifactDigests,
	}

	reportBytes, err := hashing.Canonicalize(report.canonical())
	if err != nil {
		return nil, err
	}
	if err := atomicWriteFile(filepath.Join(dir, FileVerificationReport), reportBytes); err != nil {
		return nil, &VerifyError{Kind: IOFailure, Path: FileVerificationReport}
	}

	if _, err := Verify(dir); err != nil {
		return nil, err
	}

	return report, nil
}

func (r *Report) canonical() map[string]any {
	artifacts := map[string]any{}
	for name, d := range r.Artifacts {
		artifacts[name] = map[string]any{
			"digest": string(d),
			"prefix": string(hashing.PrefixBundleArtifact),
		}
	}
	return map[string]any{
		"schema_version":       r.SchemaVersion,
		"profile":              string(r.Profile),
		"truncated":            r.Truncated,
		"registry_digest":      string(r.RegistryDigest),
		"operator_set_digest":  string(r.OperatorSetDigest),
		"policy_digest":        string(r.PolicyDigest),
		"schema_digest":        string(r.SchemaDigest),
		"scorer_digest":        string(r.ScorerDigest),
		"fixture_hash":         string(r.FixtureHash),
		"trace_payload_hash":   string(r.TracePayloadHash),
		"tape_head_chain_hash": string(r.TapeHeadChainHash),
		"graph_digest":         string(r.GraphDigest),
		"artifacts":            artifacts,
	}
}

// atomicWriteFile writes data to a temp file alongside path, fsyncs, then
// renames into place (same idiom as bytetrace.atomicWriteFile and
// search.atomicWriteFile).
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
