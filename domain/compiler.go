// Package domain declares the compilation boundary a real domain collaborator
// implements (spec.md §6) plus the in-module fixtures used to test against
// it: a FixtureCompiler generalizing the spec's own worked examples
// (Rome/Mastermind/EscapeGame-shaped) and a hand-written MockCompiler for
// boundary tests that don't need real compile/decompile semantics. Writing a
// real domain compiler is explicitly out of scope (spec.md §1 Non-goals);
// this package exists so the core's consumer-facing interface has something
// concrete to compile and test against.
package domain

import (
	"fmt"

	"github.com/darianrosebrook/sterling/bytestate"
	"github.com/darianrosebrook/sterling/code32"
	"github.com/darianrosebrook/sterling/policy"
)

// CompileErrorKind enumerates the fail-closed reasons Compile/Decompile may
// reject a call (spec.md §6, §7 CompileError taxonomy).
type CompileErrorKind int

const (
	SchemaMismatch CompileErrorKind = iota
	RegistryMissing
	CapacityExceeded
	PayloadInvalid
	NonDeterministicInput
)

func (k CompileErrorKind) String() string {
	switch k {
	case SchemaMismatch:
		return "schema_mismatch"
	case RegistryMissing:
		return "registry_missing"
	case CapacityExceeded:
		return "capacity_exceeded"
	case PayloadInvalid:
		return "payload_invalid"
	case NonDeterministicInput:
		return "non_deterministic_input"
	default:
		return "unknown"
	}
}

// CompileError is the single typed error Compile/Decompile returns.
type CompileError struct {
	Kind   CompileErrorKind
	Detail string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("domain: compile failed: %s: %s", e.Kind, e.Detail)
}

// Compiler is the domain collaborator interface the core consumes (spec.md
// §6): it never appears on the core's own hashed surfaces, but every
// compile_state/decompile call it makes must be pure (P1) so that episodes
// built from equal payloads produce byte-identical ByteState planes.
type Compiler interface {
	// Compile translates a domain-owned payload into a ByteState under
	// schema, resolving any domain concepts through registry. Equal inputs
	// must yield byte-identical output (P1).
	Compile(payload []byte, schema bytestate.ByteStateSchema, registry *code32.Registry, pol policy.PolicySnapshot) (*bytestate.ByteStateV1, error)
	// Decompile is Compile's inverse, required for Cert profile round-trip
	// tests (spec.md §6).
	Decompile(state *bytestate.ByteStateV1, schema bytestate.ByteStateSchema, registry *code32.Registry) ([]byte, error)
}
