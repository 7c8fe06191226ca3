// Package bytestate implements the two-plane packed tensor ByteStateV1 and
// its fixed-per-domain ByteStateSchema (spec.md §3, §4.3).
package bytestate

import (
	"errors"

	"github.com/darianrosebrook/sterling/code32"
	"github.com/darianrosebrook/sterling/hashing"
)

// OrderingRule names the deterministic slot-ordering convention a schema
// uses. The core never interprets it beyond carrying it in the schema
// digest — it is a contract between the domain compiler and itself.
type OrderingRule string

var (
	ErrLayerCount    = errors.New("bytestate: layer_count must be >= 1")
	ErrSlotCount     = errors.New("bytestate: slot_count must be >= 1")
	ErrLayerSemantic = errors.New("bytestate: layer_semantics must have exactly layer_count entries")
	ErrOrderingRule  = errors.New("bytestate: ordering_rule must be non-empty")
)

// ByteStateSchema is fixed per domain (spec.md §3). No ragged tensors: every
// layer has exactly SlotCount slots.
type ByteStateSchema struct {
	SchemaVersion  string
	DomainID       uint8
	LayerCount     int
	SlotCount      int
	LayerSemantics []string
	PaddingCode    code32.Code32
	OrderingRule   OrderingRule
}

// ByteOrder is fixed by spec.md §3: "byte_order = little". There is no
// field for it because it is never a choice.
const ByteOrder = "little"

// Validate enforces the no-ragged-tensor invariant and the presence of a
// deterministic ordering rule.
func (s ByteStateSchema) Validate() error {
	if s.LayerCount < 1 {
		return ErrLayerCount
	}
	if s.SlotCount < 1 {
		return ErrSlotCount
	}
	if len(s.LayerSemantics) != s.LayerCount {
		return ErrLayerSemantic
	}
	if s.OrderingRule == "" {
		return ErrOrderingRule
	}
	return nil
}

// Slots returns the total lane count L*S.
func (s ByteStateSchema) Slots() int {
	return s.LayerCount * s.SlotCount
}

// IdentityBytes returns the size in bytes of the identity plane.
func (s ByteStateSchema) IdentityBytes() int {
	return s.Slots() * 4
}

// StatusBytes returns the size in bytes of the status plane.
func (s ByteStateSchema) StatusBytes() int {
	return s.Slots()
}

// Digest computes the schema's content-addressed digest, bound into the
// bundle's schema_bundle.json artifact.
func (s ByteStateSchema) Digest() (hashing.Digest, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	return hashing.Bytes(hashing.PrefixByteStateSchema, s.canonical())
}

// Snapshot returns the canonical content Digest hashes — the
// `schema_bundle.json` artifact (spec.md §4.7) is exactly this value,
// canonicalized and written to disk, so the artifact's own content hash
// always matches Digest().
func (s ByteStateSchema) Snapshot() (map[string]any, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s.canonical(), nil
}

func (s ByteStateSchema) canonical() map[string]any {
	semantics := make([]any, len(s.LayerSemantics))
	for i, ls := range s.LayerSemantics {
		semantics[i] = ls
	}
	return map[string]any{
		"schema_version":  s.SchemaVersion,
		"domain_id":       int64(s.DomainID),
		"layer_count":     int64(s.LayerCount),
		"slot_count":      int64(s.SlotCount),
		"layer_semantics": semantics,
		"padding_code":    int64(code32.ToUint32(s.PaddingCode)),
		"ordering_rule":   string(s.OrderingRule),
		"byte_order":      ByteOrder,
	}
}
