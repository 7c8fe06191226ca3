package search

import "fmt"

// TapeErrorKind enumerates fail-closed reasons a persisted SearchTape can be
// rejected (spec.md §7 TraceError taxonomy, adapted to the tape's own wire
// format rather than ByteTraceV1's).
type TapeErrorKind int

const (
	MalformedHeader TapeErrorKind = iota
	MalformedRecord
	ChainMismatch
	IOFailure
)

func (k TapeErrorKind) String() string {
	switch k {
	case MalformedHeader:
		return "malformed_header"
	case MalformedRecord:
		return "malformed_record"
	case ChainMismatch:
		return "chain_mismatch"
	case IOFailure:
		return "io_failure"
	default:
		return "unknown"
	}
}

// TapeError is the typed error for SearchTape parse/verify failures.
type TapeError struct {
	Kind   TapeErrorKind
	Detail string
}

func (e *TapeError) Error() string {
	return fmt.Sprintf("search: tape error: %s: %s", e.Kind, e.Detail)
}

// BudgetKind names which policy budget BudgetExhaustedError reports
// (spec.md §5 "Budgets are pre-declared in the policy snapshot", §7
// "BudgetExhausted{kind}").
type BudgetKind string

const (
	BudgetStep       BudgetKind = "step"
	BudgetExpansion  BudgetKind = "expansion"
	BudgetWallClock  BudgetKind = "wall_clock"
)

// BudgetExhaustedError is the typed form of a budget exhaustion. Run does
// not return it: exhaustion is recorded as a BudgetExhausted tape event and
// a non-error Result, per spec.md §5's "closes the trace, and writes the
// bundle with a truncated=true flag" — exhaustion during a run is not itself
// an error.
type BudgetExhaustedError struct {
	Kind BudgetKind
}

func (e *BudgetExhaustedError) Error() string {
	return fmt.Sprintf("search: budget exhausted: %s", e.Kind)
}
