package bytetrace

import (
	"encoding/json"

	"github.com/darianrosebrook/sterling/hashing"
)

// Envelope is caller-supplied observability metadata. It is canonical JSON
// on the wire but, unlike header/body/footer, it is never part of the
// payload hash (spec.md §3 ByteTraceV1): a caller may attach run
// annotations (hostname, invocation id, free-form notes) without perturbing
// the deterministic surface. The core never populates it itself — doing so
// would mean reading a clock or environment, forbidden in a deterministic
// path (spec.md §9) — callers own its contents entirely.
type Envelope map[string]any

func (e Envelope) encode() ([]byte, error) {
	if e == nil {
		e = Envelope{}
	}
	canon := make(map[string]any, len(e))
	for k, v := range e {
		canon[k] = v
	}
	return hashing.Canonicalize(canon)
}

func decodeEnvelope(raw []byte) (Envelope, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	return Envelope(obj), nil
}
