package search

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/darianrosebrook/sterling/hashing"
)

// WriteFile persists t to path as the SearchTape wire format (spec.md §6:
// "framed records of {event_kind, payload_len, canonical_json_payload} plus
// a trailing chain digest, written in little-endian"). The header is
// prefixed so the file is self-describing; this module's own extension of
// the named format, in the same spirit as ByteTraceV1's header framing
// (bytetrace.Writer). Persistence is atomic: temp file, fsync, rename —
// the same durability idiom used throughout this module (bytetrace.Writer,
// grounded on the teacher pack's quantumlife-canon-core
// storelog.FileLog.Flush).
func (t *Tape) WriteFile(path string) error {
	out, err := t.Encode()
	if err != nil {
		return err
	}
	return atomicWriteFile(path, out)
}

// Encode renders the tape as the wire image WriteFile persists, without
// touching disk — used by the bundle writer, which places this same byte
// image at search_tape.bin inside the bundle directory.
func (t *Tape) Encode() ([]byte, error) {
	headerBytes, err := hashing.Canonicalize(t.header.canonical())
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, 1024)
	out = appendUint16Prefixed(out, headerBytes)

	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(t.events)))
	out = append(out, countBuf[:]...)

	for _, ev := range t.events {
		payload, err := hashing.Canonicalize(ev.Payload)
		if err != nil {
			return nil, err
		}
		out = appendUint16Prefixed(out, []byte(ev.Kind))
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
		out = append(out, lenBuf[:]...)
		out = append(out, payload...)
	}

	out = appendUint16Prefixed(out, []byte(t.HeadChainHash()))
	return out, nil
}

// ReadFile parses a SearchTape file written by WriteFile and verifies its
// internal chain against the trailing chain digest.
func ReadFile(path string) (*Tape, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &TapeError{Kind: IOFailure, Detail: err.Error()}
	}
	return ParseTape(raw)
}

// ParseTape decodes an in-memory SearchTape wire image.
func ParseTape(raw []byte) (*Tape, error) {
	off := 0
	headerBytes, off, err := readUint16Prefixed(raw, off)
	if err != nil {
		return nil, &TapeError{Kind: MalformedHeader, Detail: err.Error()}
	}

	var headerObj map[string]any
	if err := json.Unmarshal(headerBytes, &headerObj); err != nil {
		return nil, &TapeError{Kind: MalformedHeader, Detail: err.Error()}
	}
	header := Header{
		RegistryDigest:    hashing.Digest(stringField(headerObj, "registry_digest")),
		OperatorSetDigest: hashing.Digest(stringField(headerObj, "operator_set_digest")),
		PolicyDigest:      hashing.Digest(stringField(headerObj, "policy_digest")),
		ScorerDigest:      hashing.Digest(stringField(headerObj, "scorer_digest")),
		FixtureHash:       hashing.Digest(stringField(headerObj, "fixture_hash")),
	}

	if off+4 > len(raw) {
		return nil, &TapeError{Kind: MalformedRecord, Detail: "truncated before record count"}
	}
	count := int(binary.LittleEndian.Uint32(raw[off : off+4]))
	off += 4

	tape, err := NewTape(header)
	if err != nil {
		return nil, err
	}

	for i := 0; i < count; i++ {
		kindBytes, next, err := readUint16Prefixed(raw, off)
		if err != nil {
			return nil, &TapeError{Kind: MalformedRecord, Detail: err.Error()}
		}
		off = next

		if off+4 > len(raw) {
			return nil, &TapeError{Kind: MalformedRecord, Detail: "truncated payload length"}
		}
		payloadLen := int(binary.LittleEndian.Uint32(raw[off : off+4]))
		off += 4
		if off+payloadLen > len(raw) {
			return nil, &TapeError{Kind: MalformedRecord, Detail: "truncated payload"}
		}
		payloadBytes := raw[off : off+payloadLen]
		off += payloadLen

		var payload map[string]any
		if err := json.Unmarshal(payloadBytes, &payload); err != nil {
			return nil, &TapeError{Kind: MalformedRecord, Detail: err.Error()}
		}
		if _, err := tape.appendCanonical(EventKind(kindBytes), payloadBytes, payload); err != nil {
			return nil, err
		}
	}

	trailingBytes, _, err := readUint16Prefixed(raw, off)
	if err != nil {
		return nil, &TapeError{Kind: MalformedRecord, Detail: err.Error()}
	}
	trailing := hashing.Digest(trailingBytes)
	if trailing != tape.HeadChainHash() {
		return nil, &TapeError{Kind: ChainMismatch, Detail: string(trailing)}
	}

	return tape, nil
}

func appendUint16Prefixed(dst []byte, payload []byte) []byte {
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(payload)))
	dst = append(dst, lenBuf[:]...)
	return append(dst, payload...)
}

func readUint16Prefixed(raw []byte, off int) ([]byte, int, error) {
	if off+2 > len(raw) {
		return nil, off, &TapeError{Kind: IOFailure, Detail: "truncated length prefix"}
	}
	n := int(binary.LittleEndian.Uint16(raw[off : off+2]))
	off += 2
	if off+n > len(raw) {
		return nil, off, &TapeError{Kind: IOFailure, Detail: "truncated field"}
	}
	return raw[off : off+n], off + n, nil
}

func stringField(obj map[string]any, key string) string {
	v, _ := obj[key].(string)
	return v
}

// atomicWriteFile writes data to a temp file alongside path, fsyncs, then
// renames into place (same idiom as bytetrace.atomicWriteFile).
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
