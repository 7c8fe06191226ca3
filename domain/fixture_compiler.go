package domain

import (
	"crypto/sha256"
	"encoding/json"

	"github.com/darianrosebrook/sterling/bytestate"
	"github.com/darianrosebrook/sterling/code32"
	"github.com/darianrosebrook/sterling/policy"
)

// FixturePayload is the wire shape FixtureCompiler compiles/decompiles: one
// concept name per identity slot, empty string meaning "padding" (spec.md
// §8's worked examples all reduce to this — Rome's current/goal/visited
// slots, Mastermind's peg/feedback slots, EscapeGame's occupancy slots are
// all just named concepts placed into fixed slot positions).
type FixturePayload struct {
	Slots []string `json:"slots"`
}

// FixtureCompiler is not a real domain: it is a direct generalization of
// spec.md §8's worked examples, kept in-module so the core's own tests (and
// the bundle package's Cert round-trip tests) have a concrete Compiler to
// exercise without fabricating a full domain (spec.md §1 Non-goals: "domain
// compilers" stay out of scope).
//
// Compile/Decompile only ever look concepts up in an already-frozen
// registry (Bind happens before an episode starts, per spec.md §1 "evolution
// happens only between episodes") — this compiler never allocates new
// identities, so CapacityExceeded is declared in CompileErrorKind for
// interface completeness but is never returned here; it belongs to
// Registry.Bind, which runs before any Compiler call.
type FixtureCompiler struct{}

// conceptIDForName derives a stable ConceptID from a concept name. This is a
// fixture convenience, not part of the core's hashed surface — a real domain
// owns its own ConceptID assignment.
func conceptIDForName(name string) code32.ConceptID {
	return code32.ConceptID(sha256.Sum256([]byte(name)))
}

// Compile implements Compiler. payload must be the canonical JSON encoding
// of a FixturePayload whose Slots length equals schema.Slots().
func (FixtureCompiler) Compile(payload []byte, schema bytestate.ByteStateSchema, registry *code32.Registry, pol policy.PolicySnapshot) (*bytestate.ByteStateV1, error) {
	if registry == nil {
		return nil, &CompileError{Kind: RegistryMissing, Detail: "nil registry"}
	}
	if err := pol.Validate(); err != nil {
		return nil, &CompileError{Kind: PayloadInvalid, Detail: err.Error()}
	}

	var p FixturePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, &CompileError{Kind: PayloadInvalid, Detail: err.Error()}
	}
	if len(p.Slots) != schema.Slots() {
		return nil, &CompileError{Kind: SchemaMismatch, Detail: "slot count does not match schema"}
	}

	state, err := bytestate.New(schema)
	if err != nil {
		return nil, &CompileError{Kind: SchemaMismatch, Detail: err.Error()}
	}

	identity := state.ViewIdentityU32()
	cert := pol.Profile == policy.Cert
	for i, name := range p.Slots {
		if name == "" {
			identity[i] = code32.ToUint32(schema.PaddingCode)
			continue
		}
		code, err := registry.CodeFor(conceptIDForName(name), cert)
		if err != nil {
			return nil, &CompileError{Kind: RegistryMissing, Detail: name}
		}
		identity[i] = code32.ToUint32(code)
	}
	return state, nil
}

// Decompile implements Compiler, recovering the concept name for every
// non-padding slot. A code with no bound concept under the Cert profile
// fails closed with RegistryMissing; under non-Cert profiles the lookup
// fault is folded into the same error, since a fixture round-trip test has
// no tape to record a DEV-style fault onto.
func (FixtureCompiler) Decompile(state *bytestate.ByteStateV1, schema bytestate.ByteStateSchema, registry *code32.Registry) ([]byte, error) {
	if registry == nil {
		return nil, &CompileError{Kind: RegistryMissing, Detail: "nil registry"}
	}
	if state.Schema().SchemaVersion != schema.SchemaVersion || state.Schema().Slots() != schema.Slots() {
		return nil, &CompileError{Kind: SchemaMismatch, Detail: "state schema does not match"}
	}

	identity := state.ViewIdentityU32()
	slots := make([]string, len(identity))
	for i, code := range identity {
		c := code32.FromUint32(code)
		if c == schema.PaddingCode || code32.IsSentinel(c) {
			slots[i] = ""
			continue
		}
		concept, err := registry.ConceptFor(c, true)
		if err != nil {
			return nil, &CompileError{Kind: RegistryMissing, Detail: c.String()}
		}
		slots[i] = concept.String()
	}

	return json.Marshal(FixturePayload{Slots: slots})
}
