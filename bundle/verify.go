package bundle

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/darianrosebrook/sterling/hashing"
	"github.com/darianrosebrook/sterling/policy"
	"github.com/darianrosebrook/sterling/search"
)

// Verify reads a bundle directory back, recomputes every artifact's digest,
// and — for the Cert profile — additionally checks the tape's internal
// chain, its header bindings against the report's recorded digests, and
// byte-for-byte equivalence between the persisted search_graph.json and a
// fresh reconstruction from the tape alone (spec.md §4.7, P7).
//
// Under the DEV profile, mismatches are appended to the returned report's
// Faults and Verify returns a nil error; under Base and Cert, the first
// mismatch is returned immediately as a *VerifyError (spec.md "all
// verification failures are fatal for Cert"; Base is equally strict about
// digest equality, just without the additional Cert-only checks).
func Verify(dir string) (*Report, error) {
	reportPath := filepath.Join(dir, FileVerificationReport)
	raw, err := os.ReadFile(reportPath)
	if err != nil {
		return nil, &VerifyError{Kind: ArtifactMissing, Path: FileVerificationReport}
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, &VerifyError{Kind: MalformedReport, Path: FileVerificationReport}
	}

	report := &Report{
		SchemaVersion:     stringField(obj, "schema_version"),
		Profile:           policy.Profile(stringField(obj, "profile")),
		Truncated:         boolField(obj, "truncated"),
		RegistryDigest:    hashing.Digest(stringField(obj, "registry_digest")),
		OperatorSetDigest: hashing.Digest(stringField(obj, "operator_set_digest")),
		PolicyDigest:      hashing.Digest(stringField(obj, "policy_digest")),
		SchemaDigest:      hashing.Digest(stringField(obj, "schema_digest")),
		ScorerDigest:      hashing.Digest(stringField(obj, "scorer_digest")),
		FixtureHash:       hashing.Digest(stringField(obj, "fixture_hash")),
		TracePayloadHash:  hashing.Digest(stringField(obj, "trace_payload_hash")),
		TapeHeadChainHash: hashing.Digest(stringField(obj, "tape_head_chain_hash")),
		GraphDigest:       hashing.Digest(stringField(obj, "graph_digest")),
		Artifacts:         map[string]hashing.Digest{},
	}

	artifactsObj, _ := obj["artifacts"].(map[string]any)
	for name, v := range artifactsObj {
		entry, _ := v.(map[string]any)
		report.Artifacts[name] = hashing.Digest(stringField(entry, "digest"))
	}

	soft := report.Profile == policy.DEV

	for name, wantDigest := range report.Artifacts {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if soft {
				report.Faults = append(report.Faults, "missing artifact: "+name)
				continue
			}
			return nil, &VerifyError{Kind: ArtifactMissing, Path: name}
		}
		got, err := hashing.Raw(hashing.PrefixBundleArtifact, content)
		if err != nil {
			return nil, err
		}
		if got != wantDigest {
			if soft {
				report.Faults = append(report.Faults, "digest mismatch: "+name)
				continue
			}
			return nil, &VerifyError{Kind: DigestMismatch, Path: name}
		}
	}

	if report.Profile != policy.Cert {
		return report, nil
	}

	if err := verifyCert(dir, report); err != nil {
		if soft {
			report.Faults = append(report.Faults, err.Error())
			return report, nil
		}
		return nil, err
	}
	return report, nil
}

// verifyCert implements the Cert-only checks (spec.md §4.7): tape chain
// integrity, header bindings matching the recorded digests, and
// reconstruct_graph(tape) == persisted_graph byte-for-byte (P7).
func verifyCert(dir string, report *Report) error {
	tape, err := search.ReadFile(filepath.Join(dir, FileSearchTape))
	if err != nil {
		return &VerifyError{Kind: ChainInvalid, Path: FileSearchTape}
	}

	header := tape.Header()
	if header.RegistryDigest != report.RegistryDigest ||
		header.OperatorSetDigest != report.OperatorSetDigest ||
		header.PolicyDigest != report.PolicyDigest ||
		header.ScorerDigest != report.ScorerDigest ||
		header.FixtureHash != report.FixtureHash {
		return &VerifyError{Kind: HeaderBindingMismatch, Path: FileSearchTape}
	}
	if tape.HeadChainHash() != report.TapeHeadChainHash {
		return &VerifyError{Kind: ChainInvalid, Path: FileSearchTape}
	}

	persistedGraphBytes, err := os.ReadFile(filepath.Join(dir, FileSearchGraph))
	if err != nil {
		return &VerifyError{Kind: ArtifactMissing, Path: FileSearchGraph}
	}

	reconstructed := search.BuildGraph(tape.Header(), tape.Events())
	reconstructedBytes, err := reconstructed.Encode()
	if err != nil {
		return err
	}

	if len(reconstructedBytes) != len(persistedGraphBytes) || string(reconstructedBytes) != string(persistedGraphBytes) {
		return &VerifyError{Kind: GraphMismatch, Path: FileSearchGraph}
	}
	return nil
}

func stringField(obj map[string]any, key string) string {
	v, _ := obj[key].(string)
	return v
}

func boolField(obj map[string]any, key string) bool {
	v, _ := obj[key].(bool)
	return v
}
