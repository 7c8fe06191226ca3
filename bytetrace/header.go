// Package bytetrace implements ByteTraceV1: the fixed-layout, byte-for-byte
// replayable trace format (spec.md §3 ByteTraceV1, §4.5).
package bytetrace

import (
	"encoding/binary"
	"encoding/json"

	"github.com/darianrosebrook/sterling/hashing"
)

// Header is carried immutably once the first frame is emitted (spec.md §4.5
// writer state machine). Besides the fields spec.md §3 names by name
// (schema_version, domain_id, registry_digest, operator_set_digest,
// policy_digest, fixture_hash, step_count, bytes_per_step), LayerCount,
// SlotCount and ArgSlotCount are carried too: the stride formula in §4.5
// (bytes_per_step = 4 + 4·arg_slot_count + 4·L·S + L·S) and the divergence
// localizer's layer/slot mapping are both unsolvable from bytes_per_step
// alone, so the three factors are persisted rather than re-derived.
type Header struct {
	SchemaVersion     string
	DomainID          uint8
	LayerCount        int
	SlotCount         int
	ArgSlotCount      int
	RegistryDigest    hashing.Digest
	OperatorSetDigest hashing.Digest
	PolicyDigest      hashing.Digest
	FixtureHash       hashing.Digest
	StepCount         int
	// IndexDigests binds each relational operator's RelationalIndex content
	// digest into the header (spec.md §4.4/§9 relational-index Open
	// Question, resolved in DESIGN.md), keyed by operator name.
	IndexDigests map[string]string
}

// BytesPerStep computes the fixed frame stride for this header's shape.
func (h Header) BytesPerStep() int {
	return 4 + 4*h.ArgSlotCount + 4*h.LayerCount*h.SlotCount + h.LayerCount*h.SlotCount
}

func (h Header) canonical() map[string]any {
	indexDigests := make(map[string]any, len(h.IndexDigests))
	for k, v := range h.IndexDigests {
		indexDigests[k] = v
	}
	return map[string]any{
		"schema_version":      h.SchemaVersion,
		"domain_id":           int64(h.DomainID),
		"layer_count":         int64(h.LayerCount),
		"slot_count":          int64(h.SlotCount),
		"arg_slot_count":      int64(h.ArgSlotCount),
		"registry_digest":     string(h.RegistryDigest),
		"operator_set_digest": string(h.OperatorSetDigest),
		"policy_digest":       string(h.PolicyDigest),
		"fixture_hash":        string(h.FixtureHash),
		"step_count":          int64(h.StepCount),
		"bytes_per_step":      int64(h.BytesPerStep()),
		"index_digests":       indexDigests,
	}
}

func (h Header) encode() ([]byte, error) {
	return hashing.Canonicalize(h.canonical())
}

func decodeHeader(raw []byte) (Header, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Header{}, err
	}
	h := Header{
		SchemaVersion:     stringField(obj, "schema_version"),
		DomainID:          uint8(intField(obj, "domain_id")),
		LayerCount:        int(intField(obj, "layer_count")),
		SlotCount:         int(intField(obj, "slot_count")),
		ArgSlotCount:      int(intField(obj, "arg_slot_count")),
		RegistryDigest:    hashing.Digest(stringField(obj, "registry_digest")),
		OperatorSetDigest: hashing.Digest(stringField(obj, "operator_set_digest")),
		PolicyDigest:      hashing.Digest(stringField(obj, "policy_digest")),
		FixtureHash:       hashing.Digest(stringField(obj, "fixture_hash")),
		StepCount:         int(intField(obj, "step_count")),
	}
	if idx, ok := obj["index_digests"].(map[string]any); ok {
		h.IndexDigests = make(map[string]string, len(idx))
		for k, v := range idx {
			if s, ok := v.(string); ok {
				h.IndexDigests[k] = s
			}
		}
	}
	return h, nil
}

// stringField/intField extract fields from a decoded JSON map. encoding/json
// decodes all canonical-JSON numbers as float64, which is safe here because
// every numeric field in a Header/Footer is an exact small integer.
func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

func intField(obj map[string]any, key string) int64 {
	f, _ := obj[key].(float64)
	return int64(f)
}

func putUint16LenPrefixed(dst []byte, payload []byte) []byte {
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(payload)))
	dst = append(dst, lenBuf[:]...)
	return append(dst, payload...)
}
