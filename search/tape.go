package search

import (
	"github.com/darianrosebrook/sterling/hashing"
)

// EventKind enumerates the typed SearchTape events (spec.md §3 "append-only
// list of typed events (FrontierPush, NodeExpand, Prune, GoalFound, …)",
// §4.6 "emit tape events in the fixed order NodeExpand -> (OperatorApply |
// Prune)* -> (GoalFound)?").
type EventKind string

const (
	EventFrontierPush    EventKind = "FrontierPush"
	EventNodeExpand      EventKind = "NodeExpand"
	EventOperatorApply   EventKind = "OperatorApply"
	EventPrune           EventKind = "Prune"
	EventGoalFound       EventKind = "GoalFound"
	EventBudgetExhausted EventKind = "BudgetExhausted"
)

// Event is one tape entry: a kind plus its canonical-JSON-able payload.
// Payload must never contain a float (scorer output is advisory and lives
// outside the hashed surface entirely, spec.md §5 "Floats... Forbidden in
// any hashed surface").
type Event struct {
	Kind    EventKind
	Payload map[string]any
}

// Header binds the four digests (registry, operator set, policy, scorer)
// plus the fixture hash used by Cert-profile replay comparisons — the five
// bindings spec.md §4.6 requires every SearchTape to carry.
type Header struct {
	RegistryDigest    hashing.Digest
	OperatorSetDigest hashing.Digest
	PolicyDigest      hashing.Digest
	ScorerDigest      hashing.Digest
	FixtureHash       hashing.Digest
}

func (h Header) canonical() map[string]any {
	return map[string]any{
		"registry_digest":     string(h.RegistryDigest),
		"operator_set_digest": string(h.OperatorSetDigest),
		"policy_digest":       string(h.PolicyDigest),
		"scorer_digest":       string(h.ScorerDigest),
		"fixture_hash":        string(h.FixtureHash),
	}
}

// Tape is the append-only, chain-hashed SearchTape (spec.md §3, §4.6). The
// chain hash formula is c_i = H(DOMAIN_SEARCH_TAPE || c_{i-1} ||
// canonical(event_i)), with c_{-1} = H(header); hashing.Raw already
// prepends the domain separator for the given prefix, so chaining reduces
// to Raw(PrefixSearchTape, prev_bytes || canonical(event)).
type Tape struct {
	header     Header
	headerHash hashing.Digest
	events     []Event
	chain      []hashing.Digest
}

// NewTape opens a tape for header, computing c_{-1} = H(header).
func NewTape(header Header) (*Tape, error) {
	hh, err := hashing.Bytes(hashing.PrefixSearchTape, header.canonical())
	if err != nil {
		return nil, err
	}
	return &Tape{header: header, headerHash: hh}, nil
}

// Header returns the tape's header.
func (t *Tape) Header() Header { return t.header }

// Events returns the tape's events in append order.
func (t *Tape) Events() []Event { return t.events }

// Chain returns the per-event chain hashes (chain[i] = c_i), parallel to
// Events().
func (t *Tape) Chain() []hashing.Digest { return t.chain }

// HeadChainHash returns c_n for the last appended event, or c_{-1} = H(header)
// if no events have been appended yet.
func (t *Tape) HeadChainHash() hashing.Digest {
	if len(t.chain) == 0 {
		return t.headerHash
	}
	return t.chain[len(t.chain)-1]
}

// Append adds one event and extends the chain. It returns the new head
// chain hash.
func (t *Tape) Append(kind EventKind, payload map[string]any) (hashing.Digest, error) {
	canon, err := hashing.Canonicalize(payload)
	if err != nil {
		return "", err
	}
	return t.appendCanonical(kind, canon, payload)
}

// appendCanonical extends the chain using an already-serialized canonical
// payload. ReadFile/ParseTape use this directly: the payload bytes
// recovered from disk are the ones the original chain hash was computed
// over, but decoding them back into a map[string]any through
// encoding/json necessarily turns every integer into a float64 — which
// hashing.Canonicalize rejects outright (spec.md §5 "Floats... Forbidden
// in any hashed surface"). Re-deriving the chain from the original bytes,
// not from a re-canonicalized decode, is what makes replay of a persisted
// tape reproduce the same chain it was written with.
func (t *Tape) appendCanonical(kind EventKind, canon []byte, payload map[string]any) (hashing.Digest, error) {
	prev := t.HeadChainHash()
	c, err := hashing.Raw(hashing.PrefixSearchTape, hashing.Concat([]byte(string(prev)), canon))
	if err != nil {
		return "", err
	}
	t.events = append(t.events, Event{Kind: kind, Payload: payload})
	t.chain = append(t.chain, c)
	return c, nil
}

// VerifyChain recomputes the chain from header and events and reports
// whether it matches the tape's recorded chain (property P4: "tampering
// any single byte in any event changes the head chain digest"). It
// re-canonicalizes each event's Payload, so it only applies to tapes whose
// events still carry their original int64-typed values — a tape loaded
// from disk via ParseTape has already had its chain verified against the
// trailing digest at load time using the original payload bytes, and its
// decoded Payload fields are float64 (see appendCanonical), which
// Canonicalize rejects.
func VerifyChain(header Header, events []Event, chain []hashing.Digest) (bool, error) {
	if len(events) != len(chain) {
		return false, nil
	}
	hh, err := hashing.Bytes(hashing.PrefixSearchTape, header.canonical())
	if err != nil {
		return false, err
	}
	prev := hh
	for i, ev := range events {
		canon, err := hashing.Canonicalize(ev.Payload)
		if err != nil {
			return false, err
		}
		c, err := hashing.Raw(hashing.PrefixSearchTape, hashing.Concat([]byte(string(prev)), canon))
		if err != nil {
			return false, err
		}
		if c != chain[i] {
			return false, nil
		}
		prev = c
	}
	return true, nil
}
