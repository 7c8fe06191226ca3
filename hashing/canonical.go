package hashing

import (
	"errors"
	"fmt"
	"sort"
)

// HashInputErrorKind enumerates the ways an input can be rejected before it
// ever reaches SHA-256.
type HashInputErrorKind int

const (
	UnknownPrefix HashInputErrorKind = iota
	DuplicatedPrefix
	NonCanonicalInput
)

func (k HashInputErrorKind) String() string {
	switch k {
	case UnknownPrefix:
		return "unknown_prefix"
	case DuplicatedPrefix:
		return "duplicated_prefix"
	case NonCanonicalInput:
		return "non_canonical_input"
	default:
		return "unknown"
	}
}

// HashInputError is returned for unknown prefixes, duplicated prefixes, or
// attempts to hash a non-canonical form (spec.md §4.1).
type HashInputError struct {
	Kind   HashInputErrorKind
	Detail string
}

func (e *HashInputError) Error() string {
	return fmt.Sprintf("hashing: %s: %s", e.Kind, e.Detail)
}

var errNonCanonical = errors.New("hashing: value is not representable in canonical form")

// Canonicalize renders v as canonical JSON: UTF-8, object keys sorted
// lexicographically, no optional whitespace, no trailing commas, integers
// exact, and no floating point anywhere in the tree. v must be built from
// nil, bool, string, int64-representable integers, []any, or
// map[string]any — the same restricted domain the teacher's JSONCodec
// assumes for wire-stable structures.
func Canonicalize(v any) ([]byte, error) {
	buf := make([]byte, 0, 256)
	buf, err := appendCanonical(buf, v)
	if err != nil {
		return nil, &HashInputError{Kind: NonCanonicalInput, Detail: err.Error()}
	}
	return buf, nil
}

func appendCanonical(buf []byte, v any) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return append(buf, "null"...), nil
	case bool:
		if t {
			return append(buf, "true"...), nil
		}
		return append(buf, "false"...), nil
	case string:
		return appendCanonicalString(buf, t), nil
	case int:
		return appendInt(buf, int64(t)), nil
	case int32:
		return appendInt(buf, int64(t)), nil
	case int64:
		return appendInt(buf, t), nil
	case uint8:
		return appendInt(buf, int64(t)), nil
	case uint16:
		return appendInt(buf, int64(t)), nil
	case uint32:
		return appendInt(buf, int64(t)), nil
	case uint64:
		if t > (1<<63 - 1) {
			return nil, fmt.Errorf("uint64 value %d exceeds exact integer range", t)
		}
		return appendInt(buf, int64(t)), nil
	case float32, float64:
		return nil, errNonCanonical
	case []byte:
		// Encoded as an array of byte values, never as a base64 string, so the
		// hashed surface never depends on an encoding-library choice.
		arr := make([]any, len(t))
		for i, b := range t {
			arr[i] = b
		}
		return appendCanonical(buf, arr)
	case []any:
		return appendCanonicalArray(buf, t)
	case map[string]any:
		return appendCanonicalObject(buf, t)
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", errNonCanonical, v)
	}
}

func appendInt(buf []byte, n int64) []byte {
	return append(buf, fmt.Sprintf("%d", n)...)
}

func appendCanonicalArray(buf []byte, arr []any) ([]byte, error) {
	buf = append(buf, '[')
	for i, elem := range arr {
		if i > 0 {
			buf = append(buf, ',')
		}
		var err error
		buf, err = appendCanonical(buf, elem)
		if err != nil {
			return nil, err
		}
	}
	buf = append(buf, ']')
	return buf, nil
}

func appendCanonicalObject(buf []byte, obj map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf = append(buf, '{')
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = appendCanonicalString(buf, k)
		buf = append(buf, ':')
		var err error
		buf, err = appendCanonical(buf, obj[k])
		if err != nil {
			return nil, err
		}
	}
	buf = append(buf, '}')
	return buf, nil
}

// appendCanonicalString writes a JSON string literal using the minimal
// escape set (", \, and control characters). Unlike encoding/json's default,
// it does not HTML-escape <, > or &.
func appendCanonicalString(buf []byte, s string) []byte {
	buf = append(buf, '"')
	for _, r := range s {
		switch r {
		case '"':
			buf = append(buf, '\\', '"')
		case '\\':
			buf = append(buf, '\\', '\\')
		case '\n':
			buf = append(buf, '\\', 'n')
		case '\r':
			buf = append(buf, '\\', 'r')
		case '\t':
			buf = append(buf, '\\', 't')
		default:
			if r < 0x20 {
				buf = append(buf, fmt.Sprintf("\\u%04x", r)...)
			} else {
				buf = append(buf, string(r)...)
			}
		}
	}
	buf = append(buf, '"')
	return buf
}
