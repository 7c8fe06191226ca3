// Package runtime provides the carrier core's single wiring struct: the
// frozen registry/operator/policy artifacts plus logging and metrics handles
// every component needs, passed explicitly rather than read from global
// state (spec.md §9 "Global state. Forbidden.", SPEC_FULL.md §3
// "CarrierRuntime{EpochID, Registry, OperatorSet, Policy, Logger, Metrics}").
//
// Grounded on the teacher's runtime.Runtime (chain wiring: IDs, validators,
// logging, metrics, all as plain exported fields on one struct a VM carries
// around instead of a global). This module has no chains, validators, or
// warp signing, so CarrierRuntime keeps only the fields this domain's
// components actually consume: the frozen identity registry, the frozen
// operator set, the policy snapshot, a logger, and a metrics registry.
package runtime

import (
	"errors"

	"github.com/luxfi/metric"
	"go.uber.org/zap"

	"github.com/darianrosebrook/sterling/code32"
	"github.com/darianrosebrook/sterling/log"
	"github.com/darianrosebrook/sterling/operator"
	"github.com/darianrosebrook/sterling/policy"
	"github.com/darianrosebrook/sterling/telemetry"
)

var (
	// ErrRegistryNil is returned when New is given a nil registry.
	ErrRegistryNil = errors.New("runtime: registry must not be nil")
	// ErrRegistryNotFrozen mirrors code32's own frozen-registry invariant:
	// a runtime must wire a sealed, digest-bound registry, never one still
	// open for Bind calls (spec.md §1 Non-goals: "evolution happens only
	// between episodes").
	ErrRegistryNotFrozen = errors.New("runtime: registry must be frozen before wiring into a runtime")
	// ErrOperatorSetNil is returned when New is given a nil operator set.
	ErrOperatorSetNil = errors.New("runtime: operator set must not be nil")
)

// CarrierRuntime is the explicit, passed-everywhere bundle every
// domain-facing entry point (compile, apply, search, bundle) accepts
// instead of reaching for a package-level variable.
type CarrierRuntime struct {
	// EpochID names the frozen registry/schema generation this runtime was
	// built for (spec.md §1 Non-goals: schemas/registries are frozen per
	// epoch).
	EpochID code32.Epoch

	// Registry is the frozen Code32<->ConceptID mapping for EpochID.
	Registry *code32.Registry

	// OperatorSet is the frozen operator registry artifact for EpochID.
	OperatorSet *operator.Set

	// Policy is the frozen budget/profile configuration every component
	// consumes instead of reading environment variables.
	Policy policy.PolicySnapshot

	// Logger is the structured logger every component routes output
	// through. Never nil after New.
	Logger log.Logger

	// Metrics is the counters/gauges/averagers registry every component may
	// register instruments against. Never nil after New (a caller who
	// passes nil gets an all-no-op *telemetry.Registry, matching
	// telemetry.New's own nil-Registerer fallback).
	Metrics *telemetry.Registry

	// MetricsRegistry is the richer metrics façade a caller may want beyond
	// raw prometheus instruments, the way the teacher's ChainContext and
	// core/runtime.Runtime both carry a metric.Registry/MultiGatherer handle
	// alongside their own prometheus wiring. The carrier core never calls
	// methods on it itself; it is exposed purely for the caller's own
	// gatherer composition.
	MetricsRegistry metric.Registry
}

// New validates and assembles a CarrierRuntime. registry must already be
// frozen (code32.Registry.Freeze) and pol must validate; logger and metrics
// may be nil, in which case New substitutes a no-op logger and an all-no-op
// metrics registry respectively, so every component downstream can assume
// both fields are always usable. metricsRegistry is stored as-is — it is the
// caller's own façade handle, never inspected by this module.
func New(epoch code32.Epoch, registry *code32.Registry, ops *operator.Set, pol policy.PolicySnapshot, logger log.Logger, metrics *telemetry.Registry, metricsRegistry metric.Registry) (*CarrierRuntime, error) {
	if registry == nil {
		return nil, ErrRegistryNil
	}
	if ops == nil {
		return nil, ErrOperatorSetNil
	}
	if _, err := registry.Digest(); err != nil {
		return nil, ErrRegistryNotFrozen
	}
	if err := pol.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = log.NewNoOp()
	}
	// Scope every log line this runtime's components emit to its epoch, the
	// way the teacher's node-compatibility logger carries structured zap
	// fields through WithFields rather than re-stating the epoch at every
	// call site.
	logger = logger.WithFields(zap.String("epoch", string(epoch)))
	if metrics == nil {
		metrics = telemetry.New(nil)
	}

	return &CarrierRuntime{
		EpochID:         epoch,
		Registry:        registry,
		OperatorSet:     ops,
		Policy:          pol,
		Logger:          logger,
		Metrics:         metrics,
		MetricsRegistry: metricsRegistry,
	}, nil
}
