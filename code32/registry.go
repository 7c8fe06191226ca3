package code32

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	ids "github.com/luxfi/ids"

	"github.com/darianrosebrook/sterling/hashing"
)

// ConceptID is the content-addressed long identity of a concept (spec.md
// GLOSSARY). It is not used on the hot path — only Code32 is — but every
// Code32 is bijective with exactly one ConceptID within an epoch.
type ConceptID = ids.ID

// Epoch names a frozen registry/schema generation. Schemas and registries
// are frozen per epoch; evolution happens between episodes only
// (spec.md §1 Non-goals).
type Epoch string

func (e Epoch) String() string { return string(e) }

// capacityBucket is the 65536-slot local-ID space for one (domain,kind) pair.
const capacityBucket = 1 << 16

// capacityWarnThreshold is the 90% fill ratio at which Registry.Bind starts
// returning warn=true alongside a successful binding.
const capacityWarnThreshold = 0.90

var (
	// ErrUnknownIdentity is returned by ConceptFor/CodeFor when the lookup
	// misses under the Cert profile (spec.md §4.2: "missing lookup in Cert
	// profile is a hard error").
	ErrUnknownIdentity = errors.New("code32: unknown identity")
	// ErrAlreadyBound is returned when Bind is called twice for the same
	// Code32 or ConceptID within one epoch (append-only, never remapped).
	ErrAlreadyBound = errors.New("code32: code or concept already bound in this epoch")
	// ErrCapacityExceeded is returned when a (domain,kind) bucket would
	// exceed 65536 local IDs (spec.md P10).
	ErrCapacityExceeded = errors.New("code32: capacity exceeded for (domain,kind)")
	// ErrReservedDomain is returned when a caller attempts to bind a Code32
	// whose domain byte is 0 (reserved for system sentinels).
	ErrReservedDomain = errors.New("code32: domain 0 is reserved for system sentinels")
	// ErrRegistryFrozen is returned by Bind once the registry has been
	// sealed via Freeze; schemas/registries are frozen per epoch
	// (spec.md §1 Non-goals).
	ErrRegistryFrozen = errors.New("code32: registry is frozen for this epoch")
)

// UnknownIdentityFault is the typed, non-fatal record emitted to the tape
// under the DEV profile in place of ErrUnknownIdentity (spec.md §4.2).
type UnknownIdentityFault struct {
	Code    Code32
	Concept ConceptID
	Lookup  string // "code_for" or "concept_for"
}

func (f UnknownIdentityFault) Error() string {
	return fmt.Sprintf("code32: unknown identity fault in %s lookup", f.Lookup)
}

type bucketKey struct {
	domain uint8
	kind   uint8
}

// Registry is the immutable-per-epoch, append-only, bijective mapping
// between Code32 and ConceptID (spec.md §3 "Registry (per epoch)").
type Registry struct {
	mu sync.RWMutex

	epoch Epoch

	codeToConcept map[Code32]ConceptID
	conceptToCode map[ConceptID]Code32

	counts map[bucketKey]int

	frozen bool
	digest hashing.Digest
}

// NewRegistry creates an empty, writable registry for the given epoch.
func NewRegistry(epoch Epoch) *Registry {
	return &Registry{
		epoch:         epoch,
		codeToConcept: make(map[Code32]ConceptID),
		conceptToCode: make(map[ConceptID]Code32),
		counts:        make(map[bucketKey]int),
	}
}

// Epoch returns the epoch this registry is frozen for.
func (r *Registry) Epoch() Epoch { return r.epoch }

// Bind appends a new (code, concept) pair. It fails once the registry is
// frozen, if either side is already bound, if code's domain is the reserved
// system domain, or if binding would exceed the 65536-per-(domain,kind)
// capacity ceiling (spec.md P10). A capacity fill at or above 90% still
// succeeds but is reported via the returned warning flag.
func (r *Registry) Bind(code Code32, concept ConceptID) (warn bool, err error) {
	if IsSentinel(code) || code.Domain() == SystemDomain {
		return false, ErrReservedDomain
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return false, ErrRegistryFrozen
	}
	if _, exists := r.codeToConcept[code]; exists {
		return false, ErrAlreadyBound
	}
	if _, exists := r.conceptToCode[concept]; exists {
		return false, ErrAlreadyBound
	}

	key := bucketKey{domain: code.Domain(), kind: code.Kind()}
	if r.counts[key] >= capacityBucket {
		return false, ErrCapacityExceeded
	}

	r.codeToConcept[code] = concept
	r.conceptToCode[concept] = code
	r.counts[key]++

	warn = float64(r.counts[key])/float64(capacityBucket) >= capacityWarnThreshold
	return warn, nil
}

// CapacityCheck reports the current fill ratio for (domain,kind) and
// whether the bucket has reached its ceiling, without binding anything.
func (r *Registry) CapacityCheck(domain, kind uint8) (count int, warn bool, exceeded bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count = r.counts[bucketKey{domain: domain, kind: kind}]
	warn = float64(count)/float64(capacityBucket) >= capacityWarnThreshold
	exceeded = count >= capacityBucket
	return count, warn, exceeded
}

// CodeFor is the constant-time concept->code lookup. cert selects whether a
// miss is a hard error (Cert profile) or returns a fault for the caller to
// record on the tape (DEV profile).
func (r *Registry) CodeFor(concept ConceptID, cert bool) (Code32, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	code, ok := r.conceptToCode[concept]
	if !ok {
		if cert {
			return Code32{}, ErrUnknownIdentity
		}
		return Code32{}, UnknownIdentityFault{Concept: concept, Lookup: "code_for"}
	}
	return code, nil
}

// ConceptFor is the constant-time code->concept lookup, mirroring CodeFor.
func (r *Registry) ConceptFor(code Code32, cert bool) (ConceptID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	concept, ok := r.codeToConcept[code]
	if !ok {
		if cert {
			return ConceptID{}, ErrUnknownIdentity
		}
		return ConceptID{}, UnknownIdentityFault{Code: code, Lookup: "concept_for"}
	}
	return concept, nil
}

// Freeze seals the registry against further Bind calls and memoizes its
// content-addressed digest. Evolution happens only between episodes, never
// at runtime (spec.md §1 Non-goals).
func (r *Registry) Freeze() (hashing.Digest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return r.digest, nil
	}

	d, err := r.computeDigestLocked()
	if err != nil {
		return "", err
	}
	r.digest = d
	r.frozen = true
	return d, nil
}

// Digest returns the registry's content-addressed digest. The registry must
// have been frozen first.
func (r *Registry) Digest() (hashing.Digest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.frozen {
		return "", fmt.Errorf("code32: registry not yet frozen")
	}
	return r.digest, nil
}

// computeDigestLocked recomputes the digest deterministically from the
// sorted list of (code, concept_id) pairs (spec.md §4.2), assuming the
// caller already holds r.mu.
func (r *Registry) computeDigestLocked() (hashing.Digest, error) {
	return hashing.Bytes(hashing.PrefixIdentityRegistry, r.canonicalLocked())
}

// canonicalLocked builds the same canonical map computeDigestLocked hashes,
// assuming the caller already holds r.mu.
func (r *Registry) canonicalLocked() map[string]any {
	type pair struct {
		Code    uint32
		Concept string
	}
	pairs := make([]pair, 0, len(r.codeToConcept))
	for code, concept := range r.codeToConcept {
		pairs = append(pairs, pair{Code: ToUint32(code), Concept: concept.String()})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Code < pairs[j].Code })

	entries := make([]any, 0, len(pairs))
	for _, p := range pairs {
		entries = append(entries, map[string]any{
			"code":    int64(p.Code),
			"concept": p.Concept,
		})
	}

	return map[string]any{
		"epoch":   r.epoch.String(),
		"entries": entries,
	}
}

// Snapshot returns the canonical content this registry's digest is computed
// over — the `registry_snapshot.json` bundle artifact (spec.md §4.7) is
// exactly this value, canonicalized and written to disk, so the artifact's
// own content hash always matches Digest().
func (r *Registry) Snapshot() (map[string]any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.frozen {
		return nil, fmt.Errorf("code32: registry not yet frozen")
	}
	return r.canonicalLocked(), nil
}

// Len returns the number of bound (code, concept) pairs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.codeToConcept)
}
