package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Digest is the wire form of every hash in the carrier core: "sha256:<64 hex>".
type Digest string

func (d Digest) String() string { return string(d) }

// Bytes computes the domain-prefixed SHA-256 digest of canonical-JSON value
// v under prefix. It serves the canonical-JSON surfaces (registry,
// operator-set, schema, policy and graph digests, the tape header); the
// identity/evidence hashes, trace payload hash, tape chain links and bundle
// artifact hashes go through Raw instead.
func Bytes(prefix Prefix, v any) (Digest, error) {
	if !prefix.valid() {
		return "", &HashInputError{Kind: UnknownPrefix, Detail: string(prefix)}
	}
	canon, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	return hashRaw(prefix, canon), nil
}

// Raw computes the domain-prefixed SHA-256 digest of an already-serialized
// byte slice (e.g. a fixed-stride trace body) without passing it through the
// canonical-JSON encoder. Used where the hashed surface is itself a binary
// layout, not JSON (ByteTrace payload, SearchTape chain links).
func Raw(prefix Prefix, data []byte) (Digest, error) {
	if !prefix.valid() {
		return "", &HashInputError{Kind: UnknownPrefix, Detail: string(prefix)}
	}
	return hashRaw(prefix, data), nil
}

func hashRaw(prefix Prefix, data []byte) Digest {
	h := sha256.New()
	h.Write(prefix.domainSeparator())
	h.Write(data)
	sum := h.Sum(nil)
	return Digest("sha256:" + hex.EncodeToString(sum))
}

// Concat joins multiple byte slices before hashing, used by the evidence
// hash (identity ‖ status) and the tape chain hash (prev ‖ canonical(event)).
func Concat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// MustParseDigest is a test/fixture helper; it panics on malformed input and
// must never be called on a hot path.
func MustParseDigest(s string) Digest {
	if len(s) < 7 || s[:7] != "sha256:" {
		panic(fmt.Sprintf("hashing: malformed digest %q", s))
	}
	if _, err := hex.DecodeString(s[7:]); err != nil {
		panic(fmt.Sprintf("hashing: malformed digest %q: %v", s, err))
	}
	return Digest(s)
}
