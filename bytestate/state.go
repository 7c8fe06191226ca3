package bytestate

import (
	"bytes"
	"encoding/binary"
	"errors"
	"unsafe"

	"github.com/darianrosebrook/sterling/code32"
	"github.com/darianrosebrook/sterling/hashing"
)

// Status is the fixed, governance-wide enum carried by the status plane
// (spec.md §3). Status semantics never vary per domain.
type Status uint8

const (
	StatusHole        Status = 0
	StatusShadow      Status = 64
	StatusProvisional Status = 128
	StatusPromoted    Status = 192
	StatusCertified   Status = 255
)

var ErrLengthMismatch = errors.New("bytestate: identity/status plane length does not match schema")

// ByteStateV1 is the two-plane packed tensor: an identity plane
// (uint8[L*S*4], viewable as uint32[L*S]) and a status plane (uint8[L*S]).
type ByteStateV1 struct {
	schema   ByteStateSchema
	identity []byte // len == schema.IdentityBytes()
	status   []byte // len == schema.StatusBytes()
}

// New constructs an all-padding ByteStateV1 with status=Hole everywhere, per
// spec.md §4.3 ("Construction from a ByteStateSchema produces an
// all-padding tensor with status=0").
func New(schema ByteStateSchema) (*ByteStateV1, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	s := &ByteStateV1{
		schema:   schema,
		identity: make([]byte, schema.IdentityBytes()),
		status:   make([]byte, schema.StatusBytes()),
	}
	pad := code32.ToUint32(schema.PaddingCode)
	for i := 0; i < schema.Slots(); i++ {
		binary.LittleEndian.PutUint32(s.identity[i*4:i*4+4], pad)
	}
	return s, nil
}

// FromPlanes constructs a ByteStateV1 from caller-owned identity/status
// byte slices, defensively copying them (ByteState is a value type — the
// caller's buffers remain independently valid, spec.md §5).
func FromPlanes(schema ByteStateSchema, identity, status []byte) (*ByteStateV1, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if len(identity) != schema.IdentityBytes() || len(status) != schema.StatusBytes() {
		return nil, ErrLengthMismatch
	}
	s := &ByteStateV1{
		schema:   schema,
		identity: append([]byte(nil), identity...),
		status:   append([]byte(nil), status...),
	}
	return s, nil
}

// Schema returns the schema this state was constructed with.
func (s *ByteStateV1) Schema() ByteStateSchema { return s.schema }

// IdentityBytes returns the raw identity plane bytes (caller must not
// mutate; use Clone if a mutable copy is needed).
func (s *ByteStateV1) IdentityBytes() []byte { return s.identity }

// StatusBytes returns the raw status plane bytes (caller must not mutate).
func (s *ByteStateV1) StatusBytes() []byte { return s.status }

// ViewIdentityU32 returns a zero-copy little-endian uint32 view of the
// identity plane (spec.md §4.3). Valid only on little-endian hosts, which
// is the only host class spec.md P9 claims byte-order stability for.
func (s *ByteStateV1) ViewIdentityU32() []uint32 {
	n := len(s.identity) / 4
	return unsafe.Slice((*uint32)(unsafe.Pointer(&s.identity[0])), n)
}

// ViewStatusU8 returns a zero-copy view of the status plane.
func (s *ByteStateV1) ViewStatusU8() []uint8 {
	return s.status
}

// Clone returns a deep, independent copy (used by operator.Apply to produce
// the new value without aliasing the old one).
func (s *ByteStateV1) Clone() *ByteStateV1 {
	return &ByteStateV1{
		schema:   s.schema,
		identity: append([]byte(nil), s.identity...),
		status:   append([]byte(nil), s.status...),
	}
}

// Equals compares identity planes only (spec.md §3 "Equality compares
// identity only").
func Equals(a, b *ByteStateV1) bool {
	return bytes.Equal(a.identity, b.identity)
}

// IdentityHash is the state (identity) hash: domain prefix
// BYTESTATE_IDENTITY over the identity plane only, invariant under status
// changes (property P2).
func IdentityHash(s *ByteStateV1) (hashing.Digest, error) {
	return hashing.Raw(hashing.PrefixByteStateIdentity, s.identity)
}

// EvidenceHash concatenates identity ‖ status under prefix
// BYTESTATE_EVIDENCE; it changes iff identity ∪ status changes (property
// P2).
func EvidenceHash(s *ByteStateV1) (hashing.Digest, error) {
	return hashing.Raw(hashing.PrefixByteStateEvidence, hashing.Concat(s.identity, s.status))
}
