package operator

// BatchApply realizes spec.md §5's "Batch precondition checks / scoring
// over a frontier slice may use SIMD or a data-parallel backend without
// cross-lane state. Any such kernel must be a pure function of its input
// lanes." It evaluates one operator's precondition against many
// independent identity-plane slices and must be byte-identical to running
// preconditionSatisfied once per slice (property P3: pure, repeatable).
//
// The accel-backed path (LaneKernel) and the sequential fallback
// (sequentialBatch) are required to agree; BatchApply always runs the
// fallback and only consults a LaneKernel when one is supplied, mirroring
// the teacher's ai/accel.go Backend-with-software-fallback shape.
type BatchApply struct {
	kernel LaneKernel
}

// LaneKernel is the data-parallel backend contract: batch evaluate many
// independent (identity, mask, value) lanes with no cross-lane state. A
// caller-supplied SIMD or GPU backend satisfies this interface; see
// DESIGN.md for why this module does not import github.com/luxfi/accel
// directly (its only grounded API, ops/consensus.ProcessVotesBatch /
// ComputeQuorum, is vote/quorum-shaped with no generic masked-lane
// counterpart to imitate without fabricating an API).
type LaneKernel interface {
	// EvaluateBatch returns, for each slice in identities, whether its
	// masked precondition is satisfied. len(out) == len(identities).
	EvaluateBatch(identities [][]uint32, mask, value []uint32) (satisfied []bool, err error)
}

// NewBatchApply constructs a BatchApply. kernel may be nil, in which case
// the sequential fallback is used unconditionally.
func NewBatchApply(kernel LaneKernel) *BatchApply {
	return &BatchApply{kernel: kernel}
}

// Evaluate checks op's precondition against every slice in identities. It
// is a pure function of its inputs: no clock, RNG, or environment access
// (spec.md §5, §9).
func (b *BatchApply) Evaluate(identities [][]uint32, op *Operator) ([]bool, error) {
	fallback := sequentialBatch(identities, op.PreconditionMask, op.PreconditionValue)
	if b == nil || b.kernel == nil {
		return fallback, nil
	}
	accelerated, err := b.kernel.EvaluateBatch(identities, op.PreconditionMask, op.PreconditionValue)
	if err != nil {
		// Fail closed to the pure-Go path rather than propagate a backend
		// error into a deterministic surface; the accel path is advisory
		// for throughput only, never for correctness.
		return fallback, nil
	}
	return accelerated, nil
}

func sequentialBatch(identities [][]uint32, mask, value []uint32) []bool {
	out := make([]bool, len(identities))
	for i, id := range identities {
		out[i] = preconditionSatisfied(id, mask, value)
	}
	return out
}
