// Package operator implements masked byte-level operator application over
// ByteStateV1 (spec.md §3 Operator, §4.4).
package operator

import (
	"errors"
	"sort"

	"github.com/darianrosebrook/sterling/code32"
	"github.com/darianrosebrook/sterling/hashing"
)

// Category tags an operator's taxonomy per spec.md §3/§9: dispatch is by
// op_id integer lookup, never by subclassing.
type Category string

const (
	CategoryS Category = "S" // structural
	CategoryM Category = "M" // movement
	CategoryP Category = "P" // probe
	CategoryK Category = "K" // constraint
	CategoryC Category = "C" // commit/control
)

// RelationalIndex is the pure callback an operator's effect may consult for
// relational lookups (graph traversal, constraint propagation). It may not
// mutate state or read clocks/RNG/environment (spec.md §4.4).
type RelationalIndex interface {
	// Lookup returns an additional identity-plane overlay to apply after the
	// declared mask/value effect, keyed by the current identity plane. It
	// must be a pure function of identity.
	Lookup(identity []uint32) (overlay map[int]uint32, err error)
	// Digest identifies this index's content for §4.4/§9's recommended (and
	// here, Cert-enforced) index-digest binding.
	Digest() hashing.Digest
}

// Operator is one registry entry (spec.md §3).
type Operator struct {
	OpID         code32.Code32
	Name         string
	Category     Category
	ArgSlotCount int

	// Masks/values are length L*S (one entry per identity-plane lane).
	PreconditionMask  []uint32
	PreconditionValue []uint32
	EffectMask        []uint32
	EffectValue       []uint32

	// Status masks/values are length L*S (one entry per status-plane lane);
	// nil means "no status effect".
	StatusEffectMask  []uint8
	StatusEffectValue []uint8

	CostModel      string
	ContractEpoch  string

	// Index is set only for operators whose effect consults a
	// RelationalIndex (spec.md Open Question #2, resolved in DESIGN.md).
	Index RelationalIndex
}

var (
	ErrDuplicateOperator = errors.New("operator: duplicate op_id in set")
	ErrLaneCountMismatch = errors.New("operator: mask/value slices must match lane count")
)

// Set is the operator registry artifact (spec.md §6): a frozen, digest-bound
// table of Operators keyed by op_id.
type Set struct {
	lanes int
	byID  map[code32.Code32]*Operator
	order []code32.Code32 // insertion order, for deterministic digest input
}

// NewSet builds a Set for a schema with the given lane count (L*S).
func NewSet(lanes int) *Set {
	return &Set{lanes: lanes, byID: make(map[code32.Code32]*Operator)}
}

// Add registers op, validating that every mask/value slice has exactly
// `lanes` entries.
func (s *Set) Add(op *Operator) error {
	if len(op.PreconditionMask) != s.lanes || len(op.PreconditionValue) != s.lanes ||
		len(op.EffectMask) != s.lanes || len(op.EffectValue) != s.lanes {
		return ErrLaneCountMismatch
	}
	if op.StatusEffectMask != nil && (len(op.StatusEffectMask) != s.lanes || len(op.StatusEffectValue) != s.lanes) {
		return ErrLaneCountMismatch
	}
	if _, exists := s.byID[op.OpID]; exists {
		return ErrDuplicateOperator
	}
	s.byID[op.OpID] = op
	s.order = append(s.order, op.OpID)
	return nil
}

// Lookup returns the operator for op_id, or ok=false if unregistered.
func (s *Set) Lookup(opID code32.Code32) (*Operator, bool) {
	op, ok := s.byID[opID]
	return op, ok
}

// Digest computes the operator_set_digest bound into every trace header
// (spec.md §3 Operator).
func (s *Set) Digest() (hashing.Digest, error) {
	return hashing.Bytes(hashing.PrefixOperatorRegistry, s.Snapshot())
}

// Snapshot returns the canonical content Digest hashes — the
// `operator_registry.json` bundle artifact (spec.md §4.7/§6) is exactly
// this value, canonicalized and written to disk, so the artifact's own
// content hash always matches Digest(). Every mask/value lane spec.md §6
// names as an operator-registry entry field (precondition_mask/value,
// effect_mask/value, status_effect_mask/value) is included: two operator
// sets whose masks or values differ, but whose names/categories happen to
// match, must never collide on operator_set_digest.
func (s *Set) Snapshot() map[string]any {
	ids := append([]code32.Code32(nil), s.order...)
	sort.Slice(ids, func(i, j int) bool { return code32.ToUint32(ids[i]) < code32.ToUint32(ids[j]) })

	entries := make([]any, 0, len(ids))
	for _, id := range ids {
		op := s.byID[id]
		entries = append(entries, map[string]any{
			"op_id":               int64(code32.ToUint32(id)),
			"name":                op.Name,
			"category":            string(op.Category),
			"arg_slot_count":      int64(op.ArgSlotCount),
			"cost_model":          op.CostModel,
			"contract_epoch":      op.ContractEpoch,
			"precondition_mask":   uint32LaneToAny(op.PreconditionMask),
			"precondition_value":  uint32LaneToAny(op.PreconditionValue),
			"effect_mask":         uint32LaneToAny(op.EffectMask),
			"effect_value":        uint32LaneToAny(op.EffectValue),
			"status_effect_mask":  statusLaneToAny(op.StatusEffectMask),
			"status_effect_value": statusLaneToAny(op.StatusEffectValue),
			"has_index":           op.Index != nil,
		})
	}
	return map[string]any{
		"entries": entries,
	}
}

// uint32LaneToAny converts an identity-plane mask/value slice into the
// []any form hashing.Canonicalize accepts (it has no []uint32 case, only
// []any and []byte).
func uint32LaneToAny(lane []uint32) []any {
	out := make([]any, len(lane))
	for i, v := range lane {
		out[i] = v
	}
	return out
}

// statusLaneToAny converts a status-plane mask/value slice ([]uint8, i.e.
// []byte) to canonical form, preserving nil ("no status effect") rather
// than coercing it to an empty array.
func statusLaneToAny(lane []uint8) any {
	if lane == nil {
		return nil
	}
	return []byte(lane)
}

// MaxArgSlotCount returns the widest ArgSlotCount among registered
// operators — the fixed arg-slot width a ByteTraceV1 header must declare so
// every operator's StepRecord fits within one frame stride (spec.md §4.5).
func (s *Set) MaxArgSlotCount() int {
	max := 0
	for _, op := range s.byID {
		if op.ArgSlotCount > max {
			max = op.ArgSlotCount
		}
	}
	return max
}

// Len returns the number of registered operators.
func (s *Set) Len() int { return len(s.byID) }
