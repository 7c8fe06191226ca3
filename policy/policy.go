// Package policy defines PolicySnapshot, the frozen, digest-bound
// configuration every component in the carrier core consumes instead of
// reading environment variables or global state (spec.md §1, §5, §6).
package policy

import (
	"errors"

	"github.com/darianrosebrook/sterling/hashing"
)

// Profile selects the verification/propagation strictness a run operates
// under (spec.md §4.7, §7).
type Profile string

const (
	// DEV records faults/mismatches to the report but does not block the
	// caller; used only for local iteration, never for a published bundle.
	DEV Profile = "DEV"
	// Base requires digest equality for every listed artifact.
	Base Profile = "Base"
	// Cert additionally requires tape<->graph equivalence and rejects any
	// unknown-identity lookup or unsynced index digest.
	Cert Profile = "Cert"
)

var (
	ErrInvalidProfile     = errors.New("policy: profile must be one of DEV, Base, Cert")
	ErrInvalidStepBudget  = errors.New("policy: step budget must be >= 1")
	ErrInvalidExpBudget   = errors.New("policy: expansion budget must be >= 1")
	ErrInvalidWallClock   = errors.New("policy: wall-clock budget must be >= 1ms")
)

// PolicySnapshot is the frozen configuration bound into every trace and
// tape header via its content-addressed Digest.
type PolicySnapshot struct {
	Profile Profile

	// StepBudget bounds the number of TransitionEvents a single episode may
	// emit before BudgetExhausted fires.
	StepBudget int
	// ExpansionBudget bounds the number of frontier pops a search episode
	// may perform.
	ExpansionBudget int
	// WallClockBudgetMillis is a wall-clock limit in milliseconds. Validate
	// rejects values below 1 and Digest binds it; search.Run reads no clock
	// and does not enforce it.
	WallClockBudgetMillis int64
}

// Default mirrors the teacher's config.DefaultParams() — a conservative,
// always-valid starting point a caller tailors rather than hand-assembles
// from zero.
func Default() PolicySnapshot {
	return PolicySnapshot{
		Profile:               Base,
		StepBudget:            10_000,
		ExpansionBudget:       10_000,
		WallClockBudgetMillis: 30_000,
	}
}

// Validate rejects a snapshot that cannot be enforced deterministically.
func (p PolicySnapshot) Validate() error {
	switch p.Profile {
	case DEV, Base, Cert:
	default:
		return ErrInvalidProfile
	}
	if p.StepBudget < 1 {
		return ErrInvalidStepBudget
	}
	if p.ExpansionBudget < 1 {
		return ErrInvalidExpBudget
	}
	if p.WallClockBudgetMillis < 1 {
		return ErrInvalidWallClock
	}
	return nil
}

// Digest computes the content-addressed policy_digest bound into every
// trace/tape header and the bundle's verification report.
func (p PolicySnapshot) Digest() (hashing.Digest, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	return hashing.Bytes(hashing.PrefixPolicySnapshot, p.canonical())
}

// Snapshot returns the canonical content Digest hashes — the
// `policy_snapshot.json` bundle artifact (spec.md §4.7) is exactly this
// value, canonicalized and written to disk, so the artifact's own content
// hash always matches Digest().
func (p PolicySnapshot) Snapshot() (map[string]any, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p.canonical(), nil
}

func (p PolicySnapshot) canonical() map[string]any {
	return map[string]any{
		"profile":                  string(p.Profile),
		"step_budget":              int64(p.StepBudget),
		"expansion_budget":         int64(p.ExpansionBudget),
		"wall_clock_budget_millis": p.WallClockBudgetMillis,
	}
}
