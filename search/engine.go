package search

import (
	"os"

	"github.com/darianrosebrook/sterling/bytestate"
	"github.com/darianrosebrook/sterling/bytetrace"
	"github.com/darianrosebrook/sterling/code32"
	"github.com/darianrosebrook/sterling/hashing"
	"github.com/darianrosebrook/sterling/operator"
	"github.com/darianrosebrook/sterling/policy"
)

// Candidate is one (op_id, args) pair a SuccessorSource considers legal to
// try from a given state. Apply still enforces the operator's own
// precondition; a candidate that fails precondition simply prunes.
type Candidate struct {
	OpID code32.Code32
	Args []code32.Code32
}

// SuccessorSource enumerates candidates for a state. The engine does not
// itself enumerate concept-argument combinations — argument selection is
// domain-specific — so callers supply this alongside the domain compiler
// (spec.md §6 "domain collaborator interface").
type SuccessorSource interface {
	Candidates(state *bytestate.ByteStateV1) []Candidate
}

// EngineState mirrors spec.md §5's search state machine: Idle -> Running ->
// (GoalFound | Exhausted | BudgetExhausted | Error) -> Finalized.
type EngineState string

const (
	StateGoalFound       EngineState = "GoalFound"
	StateExhausted       EngineState = "Exhausted"
	StateBudgetExhausted EngineState = "BudgetExhausted"
	StateError           EngineState = "Error"
)

// Result is the outcome of one Run.
type Result struct {
	State     EngineState
	Tape      *Tape
	Graph     *Graph
	Truncated bool

	// TraceBytes is the fully assembled, read-back-verified ByteTraceV1
	// payload (bytetrace.Writer.Close's own durability discipline applies —
	// see tracePath below). TracePayloadHash is the digest that call
	// returned, the same value a bundle's verification_report.json binds as
	// trace_payload_hash.
	TraceBytes       []byte
	TracePayloadHash hashing.Digest
}

// Run executes a best-first search from initial until isGoal reports true,
// the frontier empties, or a policy budget is exhausted (spec.md §4.6).
// registry and operators are the frozen, digest-bound artifacts every step
// binds into the tape header; headerIndexDigests carries any relational
// operator index digests (spec.md Open Question #2) through to Apply.
//
// Run doubles as the trace writer's only caller (spec.md §2 control flow:
// "Operator application produces step events fed to (5) Trace writer; (6)
// Search orchestrates steps"): every successful operator.Apply produces a
// StepRecord, and Run feeds it straight into a bytetrace.Writer opened at
// tracePath, alongside the tape event it already appends. tracePath must
// name a writable, not-yet-existing location — the same atomic
// write-then-verify file a caller later folds into an ArtifactBundle via
// Result.TraceBytes/TracePayloadHash.
func Run(
	initial *bytestate.ByteStateV1,
	isGoal func(*bytestate.ByteStateV1) bool,
	registry *code32.Registry,
	operators *operator.Set,
	pol policy.PolicySnapshot,
	scorer Scorer,
	source SuccessorSource,
	headerIndexDigests map[string]string,
	fixtureHash hashing.Digest,
	tracePath string,
) (*Result, error) {
	if err := pol.Validate(); err != nil {
		return nil, err
	}

	registryDigest, err := registry.Digest()
	if err != nil {
		return nil, err
	}
	operatorDigest, err := operators.Digest()
	if err != nil {
		return nil, err
	}
	policyDigest, err := pol.Digest()
	if err != nil {
		return nil, err
	}
	scorerDesc := scorer.Descriptor()

	tape, err := NewTape(Header{
		RegistryDigest:    registryDigest,
		OperatorSetDigest: operatorDigest,
		PolicyDigest:      policyDigest,
		ScorerDigest:      scorerDesc.Digest,
		FixtureHash:       fixtureHash,
	})
	if err != nil {
		return nil, err
	}

	schema := initial.Schema()
	trace := bytetrace.NewWriter(tracePath, bytetrace.Header{
		SchemaVersion:     schema.SchemaVersion,
		DomainID:          schema.DomainID,
		LayerCount:        schema.LayerCount,
		SlotCount:         schema.SlotCount,
		ArgSlotCount:      operators.MaxArgSlotCount(),
		RegistryDigest:    registryDigest,
		OperatorSetDigest: operatorDigest,
		PolicyDigest:      policyDigest,
		FixtureHash:       fixtureHash,
		IndexDigests:      headerIndexDigests,
	}, bytetrace.Envelope{})
	if err := trace.AppendFrame(bytetrace.Frame{
		OpID:     code32.InitialState,
		Identity: initial.IdentityBytes(),
		Status:   initial.StatusBytes(),
	}); err != nil {
		return nil, err
	}

	cert := pol.Profile == policy.Cert

	frontier := NewFrontier()
	visited := map[hashing.Digest]bool{}

	root, err := newNode(initial, "", code32.Padding, nil, 0)
	if err != nil {
		return nil, err
	}
	visited[root.StateID] = true

	rootScore, err := scorer.Score(initial)
	if err != nil {
		return nil, err
	}
	frontier.Push(root, rootScore)
	if _, err := tape.Append(EventFrontierPush, frontierPushPayload(root)); err != nil {
		return nil, err
	}

	var (
		state      EngineState
		truncated  bool
		stepCount  int
		expansions int
		finalState = initial
	)

loop:
	for {
		if expansions >= pol.ExpansionBudget {
			if _, err := tape.Append(EventBudgetExhausted, map[string]any{"kind": string(BudgetExpansion)}); err != nil {
				return nil, err
			}
			state, truncated = StateBudgetExhausted, true
			break loop
		}

		node, ok := frontier.Pop()
		if !ok {
			state = StateExhausted
			break loop
		}
		expansions++
		finalState = node.State()

		if _, err := tape.Append(EventNodeExpand, map[string]any{
			"state_id": string(node.StateID),
			"depth":    int64(node.Depth),
		}); err != nil {
			return nil, err
		}

		if isGoal(node.State()) {
			if _, err := tape.Append(EventGoalFound, map[string]any{
				"state_id": string(node.StateID),
				"depth":    int64(node.Depth),
			}); err != nil {
				return nil, err
			}
			state = StateGoalFound
			break loop
		}

		for _, c := range source.Candidates(node.State()) {
			newState, rec, applyErr := operator.Apply(node.State(), c.OpID, c.Args, registry, operators, headerIndexDigests, cert)
			if applyErr != nil {
				if _, err := tape.Append(EventPrune, map[string]any{
					"state_id": string(node.StateID),
					"op_id":    int64(code32.ToUint32(c.OpID)),
					"reason":   applyErr.Error(),
				}); err != nil {
					return nil, err
				}
				continue
			}

			// The step budget counts transitions actually emitted, not
			// candidates attempted (spec.md §8 scenario 6): a pruned
			// candidate above never reaches here, so it never consumes a
			// budget slot.
			if stepCount >= pol.StepBudget {
				if _, err := tape.Append(EventBudgetExhausted, map[string]any{"kind": string(BudgetStep)}); err != nil {
					return nil, err
				}
				state, truncated = StateBudgetExhausted, true
				break loop
			}
			stepCount++
			finalState = newState

			if err := trace.AppendFrame(bytetrace.Frame{
				OpID:     rec.OpID,
				Args:     rec.ArgsPadded,
				Identity: rec.NewIdentity,
				Status:   rec.NewStatus,
			}); err != nil {
				return nil, err
			}

			childID, err := bytestate.IdentityHash(newState)
			if err != nil {
				return nil, err
			}

			if _, err := tape.Append(EventOperatorApply, map[string]any{
				"parent_state_id": string(node.StateID),
				"op_id":           int64(code32.ToUint32(c.OpID)),
				"args":            code32ArgsToInts(c.Args),
				"result_state_id": string(childID),
			}); err != nil {
				return nil, err
			}

			if visited[childID] {
				if _, err := tape.Append(EventPrune, map[string]any{
					"state_id": string(childID),
					"reason":   "duplicate",
				}); err != nil {
					return nil, err
				}
				continue
			}
			visited[childID] = true

			child, err := newNode(newState, node.StateID, c.OpID, c.Args, node.Depth+1)
			if err != nil {
				return nil, err
			}
			score, err := scorer.Score(newState)
			if err != nil {
				return nil, err
			}
			frontier.Push(child, score)
			if _, err := tape.Append(EventFrontierPush, frontierPushPayload(child)); err != nil {
				return nil, err
			}
		}
	}

	// graph is derived purely from the tape (spec.md §4.6 "a pure function
	// of the tape"), never from live engine state such as frontier.Peak() —
	// the event stream's FrontierPush/NodeExpand ordering already tracks
	// frontier size exactly, so BuildGraph's running count reproduces it.
	graph := BuildGraph(tape.Header(), tape.Events())

	identityHash, err := bytestate.IdentityHash(finalState)
	if err != nil {
		return nil, err
	}
	evidenceHash, err := bytestate.EvidenceHash(finalState)
	if err != nil {
		return nil, err
	}
	tracePayloadHash, err := trace.Close(bytetrace.Footer{
		FinalIdentityHash: string(identityHash),
		FinalEvidenceHash: string(evidenceHash),
		Truncated:         truncated,
	})
	if err != nil {
		return nil, err
	}
	traceBytes, err := os.ReadFile(tracePath)
	if err != nil {
		return nil, err
	}

	return &Result{
		State:            state,
		Tape:             tape,
		Graph:            graph,
		Truncated:        truncated,
		TraceBytes:       traceBytes,
		TracePayloadHash: tracePayloadHash,
	}, nil
}

func frontierPushPayload(n Node) map[string]any {
	return map[string]any{
		"state_id":        string(n.StateID),
		"parent_id":       string(n.ParentID),
		"incoming_op_id":  int64(code32.ToUint32(n.IncomingOpID)),
		"incoming_args":   code32ArgsToInts(n.IncomingArgs),
		"depth":           int64(n.Depth),
	}
}

func code32ArgsToInts(args []code32.Code32) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = int64(code32.ToUint32(a))
	}
	return out
}
