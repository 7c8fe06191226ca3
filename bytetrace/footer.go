package bytetrace

import (
	"encoding/json"

	"github.com/darianrosebrook/sterling/hashing"
)

// Footer is the closing canonical-JSON block (spec.md §3 ByteTraceV1:
// "footer : canonical JSON with hashes"). FinalIdentityHash/FinalEvidenceHash
// bind the terminal ByteState into the trace independent of any external
// bundle artifact; Truncated records whether the episode closed via a budget
// (spec.md §5 "closes the trace, and writes the bundle with a
// truncated=true flag").
type Footer struct {
	FinalIdentityHash string
	FinalEvidenceHash string
	Truncated         bool
}

func (f Footer) canonical() map[string]any {
	return map[string]any{
		"final_identity_hash": f.FinalIdentityHash,
		"final_evidence_hash": f.FinalEvidenceHash,
		"truncated":           f.Truncated,
	}
}

func (f Footer) encode() ([]byte, error) {
	return hashing.Canonicalize(f.canonical())
}

func decodeFooter(raw []byte) (Footer, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Footer{}, err
	}
	truncated, _ := obj["truncated"].(bool)
	return Footer{
		FinalIdentityHash: stringField(obj, "final_identity_hash"),
		FinalEvidenceHash: stringField(obj, "final_evidence_hash"),
		Truncated:         truncated,
	}, nil
}
