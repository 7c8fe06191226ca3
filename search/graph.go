package search

import (
	"strconv"

	"github.com/darianrosebrook/sterling/hashing"
)

// GraphNode is one vertex of a derived SearchGraph (spec.md §3 "nodes +
// edges with stable, ordered serialization").
type GraphNode struct {
	StateID hashing.Digest
	Depth   int
}

// GraphEdge connects a parent to a child via the operator that produced it.
type GraphEdge struct {
	From hashing.Digest
	To   hashing.Digest
	OpID uint32
	Args []uint32
}

// HealthMetrics are informational only; they never influence frontier
// ordering (spec.md §4.6).
type HealthMetrics struct {
	Expansions      int
	UniqueStates    int
	FrontierPeak    int
	DepthHistogram  map[int]int
	DeadEndCount    int
	BudgetExhausted bool
}

// Graph is the SearchGraph: a pure, deterministic derivation of the tape
// (spec.md §3 "SearchGraph -- deterministic derived view", §4.6 "a pure
// function of the tape").
type Graph struct {
	RegistryDigest    hashing.Digest
	OperatorSetDigest hashing.Digest
	PolicyDigest      hashing.Digest
	ScorerDigest      hashing.Digest
	FixtureHash       hashing.Digest

	Nodes  []GraphNode
	Edges  []GraphEdge
	Health HealthMetrics
}

// BuildGraph reconstructs a Graph from a tape's header and events alone,
// without consulting any live ByteStateV1 or engine state — the
// reconstruction path Cert profile uses to assert
// reconstruct_graph(tape) == persisted_graph (spec.md P7).
func BuildGraph(header Header, events []Event) *Graph {
	g := &Graph{
		RegistryDigest:    header.RegistryDigest,
		OperatorSetDigest: header.OperatorSetDigest,
		PolicyDigest:      header.PolicyDigest,
		ScorerDigest:      header.ScorerDigest,
		FixtureHash:       header.FixtureHash,
		Health:            HealthMetrics{DepthHistogram: map[int]int{}},
	}

	seenNode := map[hashing.Digest]bool{}
	runningFrontierSize := 0

	for _, ev := range events {
		switch ev.Kind {
		case EventFrontierPush:
			runningFrontierSize++
			if runningFrontierSize > g.Health.FrontierPeak {
				g.Health.FrontierPeak = runningFrontierSize
			}
			id := hashing.Digest(stringField(ev.Payload, "state_id"))
			depth := int(intFieldGraph(ev.Payload, "depth"))
			if !seenNode[id] {
				seenNode[id] = true
				g.Nodes = append(g.Nodes, GraphNode{StateID: id, Depth: depth})
				g.Health.UniqueStates++
				g.Health.DepthHistogram[depth]++
			}
			parent := stringField(ev.Payload, "parent_id")
			if parent != "" {
				g.Edges = append(g.Edges, GraphEdge{
					From: hashing.Digest(parent),
					To:   id,
					OpID: uint32(intFieldGraph(ev.Payload, "incoming_op_id")),
					Args: uint32Slice(ev.Payload, "incoming_args"),
				})
			}
		case EventNodeExpand:
			g.Health.Expansions++
			runningFrontierSize--
		case EventGoalFound:
			// Goal membership is derivable from the node set plus the event
			// log itself (a reader scans for EventGoalFound); the graph does
			// not separately flag goal nodes, matching spec.md's node shape
			// of (state_id, parent_id, incoming_op_id, depth) only.
		case EventPrune:
			if stringField(ev.Payload, "reason") != "duplicate" {
				g.Health.DeadEndCount++
			}
		case EventBudgetExhausted:
			g.Health.BudgetExhausted = true
		}
	}

	return g
}

func intFieldGraph(obj map[string]any, key string) int64 {
	switch v := obj[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}

func uint32Slice(obj map[string]any, key string) []uint32 {
	raw, ok := obj[key].([]any)
	if !ok {
		return nil
	}
	out := make([]uint32, 0, len(raw))
	for _, v := range raw {
		switch t := v.(type) {
		case float64:
			out = append(out, uint32(t))
		case int64:
			out = append(out, uint32(t))
		}
	}
	return out
}

// canonical renders the graph into the same shape persisted as
// search_graph.json, for Digest and for Cert's byte-for-byte comparison
// (spec.md §4.6 "byte-for-byte over canonical JSON").
func (g *Graph) canonical() map[string]any {
	nodes := make([]any, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes = append(nodes, map[string]any{
			"state_id": string(n.StateID),
			"depth":    int64(n.Depth),
		})
	}
	edges := make([]any, 0, len(g.Edges))
	for _, e := range g.Edges {
		args := make([]any, 0, len(e.Args))
		for _, a := range e.Args {
			args = append(args, int64(a))
		}
		edges = append(edges, map[string]any{
			"from":  string(e.From),
			"to":    string(e.To),
			"op_id": int64(e.OpID),
			"args":  args,
		})
	}
	depthHist := map[string]any{}
	for depth, count := range g.Health.DepthHistogram {
		depthHist[strconv.Itoa(depth)] = int64(count)
	}
	return map[string]any{
		"registry_digest":     string(g.RegistryDigest),
		"operator_set_digest": string(g.OperatorSetDigest),
		"policy_digest":       string(g.PolicyDigest),
		"scorer_digest":       string(g.ScorerDigest),
		"fixture_hash":        string(g.FixtureHash),
		"nodes":               nodes,
		"edges":               edges,
		"health": map[string]any{
			"expansions":       int64(g.Health.Expansions),
			"unique_states":    int64(g.Health.UniqueStates),
			"frontier_peak":    int64(g.Health.FrontierPeak),
			"depth_histogram":  depthHist,
			"dead_end_count":   int64(g.Health.DeadEndCount),
			"budget_exhausted": g.Health.BudgetExhausted,
		},
	}
}

// Encode renders the graph as canonical JSON (the persisted
// search_graph.json contents).
func (g *Graph) Encode() ([]byte, error) {
	return hashing.Canonicalize(g.canonical())
}

// Digest computes the content-addressed digest of this graph's canonical
// encoding, bound into the bundle's verification_report.json.
func (g *Graph) Digest() (hashing.Digest, error) {
	return hashing.Bytes(hashing.PrefixSearchGraph, g.canonical())
}
