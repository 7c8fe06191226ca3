package operator

import (
	"encoding/binary"
	"fmt"

	"github.com/darianrosebrook/sterling/bytestate"
	"github.com/darianrosebrook/sterling/code32"
)

// ApplyErrorKind enumerates the fail-closed reasons Apply can reject a call
// (spec.md §4.4, §7 ApplyError taxonomy).
type ApplyErrorKind int

const (
	UnknownOperator ApplyErrorKind = iota
	ArgsArity
	PreconditionFailed
	EffectMaskViolation
	RegistryMissing
	IndexDigestUnsynced
)

func (k ApplyErrorKind) String() string {
	switch k {
	case UnknownOperator:
		return "unknown_operator"
	case ArgsArity:
		return "args_arity"
	case PreconditionFailed:
		return "precondition_failed"
	case EffectMaskViolation:
		return "effect_mask_violation"
	case RegistryMissing:
		return "registry_missing"
	case IndexDigestUnsynced:
		return "index_digest_unsynced"
	default:
		return "unknown"
	}
}

// ApplyError is the single typed error Apply returns; each of its six
// fail-closed reasons is represented by Kind.
type ApplyError struct {
	Kind   ApplyErrorKind
	Detail string
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("operator: apply failed: %s: %s", e.Kind, e.Detail)
}

// StepRecord holds exactly the bytes written into a trace frame (spec.md
// §4.4): operator code, args padded to ArgSlotCount, the new identity
// plane, and the new status plane.
type StepRecord struct {
	OpID         code32.Code32
	ArgsPadded   []code32.Code32
	NewIdentity  []byte
	NewStatus    []byte
}

// Apply applies op_id with args to state, dispatching through set and
// validating args against registry. It fails closed per spec.md §4.4.
// cert selects whether relational-index digest mismatches and
// registry-missing args are enforced (Cert) or only best-effort checked.
func Apply(state *bytestate.ByteStateV1, opID code32.Code32, args []code32.Code32, registry *code32.Registry, set *Set, headerIndexDigests map[string]string, cert bool) (*bytestate.ByteStateV1, *StepRecord, error) {
	op, ok := set.Lookup(opID)
	if !ok {
		return nil, nil, &ApplyError{Kind: UnknownOperator, Detail: opID.String()}
	}
	if len(args) != op.ArgSlotCount {
		return nil, nil, &ApplyError{Kind: ArgsArity, Detail: fmt.Sprintf("want %d got %d", op.ArgSlotCount, len(args))}
	}

	if cert && registry != nil {
		for _, a := range args {
			if code32.IsSentinel(a) {
				continue
			}
			if _, err := registry.ConceptFor(a, true); err != nil {
				return nil, nil, &ApplyError{Kind: RegistryMissing, Detail: a.String()}
			}
		}
	}

	if op.Index != nil && cert {
		bound, ok := headerIndexDigests[op.Name]
		if !ok || bound != string(op.Index.Digest()) {
			return nil, nil, &ApplyError{Kind: IndexDigestUnsynced, Detail: op.Name}
		}
	}

	identity := state.ViewIdentityU32()
	if !preconditionSatisfied(identity, op.PreconditionMask, op.PreconditionValue) {
		return nil, nil, &ApplyError{Kind: PreconditionFailed, Detail: op.Name}
	}

	newIdentity := make([]uint32, len(identity))
	copy(newIdentity, identity)
	applyIdentityEffect(newIdentity, op.EffectMask, op.EffectValue)

	if op.Index != nil {
		overlay, err := op.Index.Lookup(newIdentity)
		if err != nil {
			return nil, nil, &ApplyError{Kind: EffectMaskViolation, Detail: err.Error()}
		}
		for lane, v := range overlay {
			if op.EffectMask[lane] == 0 {
				// A relational overlay may only touch lanes the declared
				// mask already claims; otherwise it is an undeclared write.
				if cert {
					return nil, nil, &ApplyError{Kind: EffectMaskViolation, Detail: fmt.Sprintf("lane %d outside effect_mask", lane)}
				}
				continue
			}
			newIdentity[lane] = (newIdentity[lane] &^ op.EffectMask[lane]) | (v & op.EffectMask[lane])
		}
	}

	if cert {
		if err := verifyEffectMaskRespected(identity, newIdentity, op.EffectMask); err != nil {
			return nil, nil, err
		}
	}

	newStatus := append([]byte(nil), state.StatusBytes()...)
	if op.StatusEffectMask != nil {
		applyStatusEffect(newStatus, op.StatusEffectMask, op.StatusEffectValue)
	}

	newIdentityBytes := make([]byte, len(newIdentity)*4)
	for i, v := range newIdentity {
		binary.LittleEndian.PutUint32(newIdentityBytes[i*4:i*4+4], v)
	}

	newState, err := bytestate.FromPlanes(state.Schema(), newIdentityBytes, newStatus)
	if err != nil {
		return nil, nil, &ApplyError{Kind: EffectMaskViolation, Detail: err.Error()}
	}

	argsPadded := make([]code32.Code32, op.ArgSlotCount)
	copy(argsPadded, args)

	rec := &StepRecord{
		OpID:        opID,
		ArgsPadded:  argsPadded,
		NewIdentity: newIdentityBytes,
		NewStatus:   newStatus,
	}
	return newState, rec, nil
}

// preconditionSatisfied implements the branchless, vectorizable check from
// spec.md §4.4: AND_i ((id & pre_mask[i]) == (pre_val[i] & pre_mask[i])).
func preconditionSatisfied(identity, mask, value []uint32) bool {
	for i := range identity {
		if (identity[i] & mask[i]) != (value[i] & mask[i]) {
			return false
		}
	}
	return true
}

// applyIdentityEffect implements new_id = (id & ~eff_mask) | (eff_val & eff_mask).
func applyIdentityEffect(identity []uint32, mask, value []uint32) {
	for i := range identity {
		identity[i] = (identity[i] &^ mask[i]) | (value[i] & mask[i])
	}
}

// applyStatusEffect implements new_st = (st & ~mask) | (val & mask).
func applyStatusEffect(status []byte, mask, value []uint8) {
	for i := range status {
		status[i] = (status[i] &^ mask[i]) | (value[i] & mask[i])
	}
}

// verifyEffectMaskRespected computes the runtime delta between before/after
// identity planes and rejects any lane that changed outside the declared
// effect_mask (spec.md §4.4 "runtime-computed delta outside effect_mask ->
// fail in Cert").
func verifyEffectMaskRespected(before, after, mask []uint32) error {
	for i := range before {
		if before[i] == after[i] {
			continue
		}
		if mask[i] == 0 {
			return &ApplyError{Kind: EffectMaskViolation, Detail: fmt.Sprintf("lane %d changed outside effect_mask", i)}
		}
		// Any changed bits must be a subset of the mask.
		changed := before[i] ^ after[i]
		if changed&^mask[i] != 0 {
			return &ApplyError{Kind: EffectMaskViolation, Detail: fmt.Sprintf("lane %d changed bits outside effect_mask", i)}
		}
	}
	return nil
}
