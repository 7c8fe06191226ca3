package bytetrace

import (
	"encoding/binary"
	"os"

	"github.com/darianrosebrook/sterling/hashing"
)

// Trace is a fully parsed, hash-verified ByteTraceV1 (spec.md §4.5 reader:
// "parses envelope length, skips envelope, verifies magic, parses header
// and footer, recomputes payload hash").
type Trace struct {
	Envelope    Envelope
	Header      Header
	Frames      []Frame
	Footer      Footer
	PayloadHash hashing.Digest

	rawPayload      []byte
	headerTotalBytes int
}

// Open reads, parses, and hash-verifies the trace at path. expected is the
// payload hash recorded for this artifact elsewhere (typically the bundle's
// verification_report.json); a mismatch fails closed with TraceHashMismatch
// (spec.md §4.5 "any mismatch is a fail-closed TraceHashMismatch"). Pass ""
// to skip the comparison (e.g. when Open is itself the first time the hash
// is being established).
func Open(path string, expected hashing.Digest) (*Trace, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &TraceError{Kind: IOFailure, Detail: err.Error()}
	}
	return Parse(raw, expected)
}

// Parse decodes an in-memory trace byte slice. It is split out from Open so
// callers that already hold the bytes (e.g. a bundle reader that opened the
// containing directory) don't need a second file read.
func Parse(raw []byte, expected hashing.Digest) (*Trace, error) {
	if len(raw) < 2 {
		return nil, &TraceError{Kind: IOFailure, Detail: "truncated: missing envelope length"}
	}
	envelopeLen := int(binary.LittleEndian.Uint16(raw[0:2]))
	off := 2
	if off+envelopeLen > len(raw) {
		return nil, &TraceError{Kind: IOFailure, Detail: "truncated: envelope"}
	}
	envelopeBytes := raw[off : off+envelopeLen]
	off += envelopeLen

	payload := raw[off:]

	if len(payload) < 4 || string(payload[0:4]) != string(magic[:]) {
		return nil, &TraceError{Kind: BadMagic, Detail: "missing BST1 magic"}
	}

	headerTotalBytes := 4 + 2
	if len(payload) < headerTotalBytes {
		return nil, &TraceError{Kind: MalformedHeader, Detail: "truncated before header_len"}
	}
	headerLen := int(binary.LittleEndian.Uint16(payload[4:6]))
	if headerTotalBytes+headerLen > len(payload) {
		return nil, &TraceError{Kind: MalformedHeader, Detail: "truncated header"}
	}
	headerBytes := payload[headerTotalBytes : headerTotalBytes+headerLen]
	headerTotalBytes += headerLen

	header, err := decodeHeader(headerBytes)
	if err != nil {
		return nil, &TraceError{Kind: MalformedHeader, Detail: err.Error()}
	}

	bodyLen := header.StepCount * header.BytesPerStep()
	if headerTotalBytes+bodyLen > len(payload) {
		return nil, &TraceError{Kind: FrameLengthMismatch, Detail: "truncated body"}
	}
	bodyBytes := payload[headerTotalBytes : headerTotalBytes+bodyLen]

	frames := make([]Frame, header.StepCount)
	stride := header.BytesPerStep()
	for i := 0; i < header.StepCount; i++ {
		frames[i] = DecodeFrame(header, bodyBytes[i*stride:(i+1)*stride])
	}

	footerOff := headerTotalBytes + bodyLen
	if footerOff+2 > len(payload) {
		return nil, &TraceError{Kind: MalformedFooter, Detail: "truncated before footer_len"}
	}
	footerLen := int(binary.LittleEndian.Uint16(payload[footerOff : footerOff+2]))
	footerOff += 2
	if footerOff+footerLen > len(payload) {
		return nil, &TraceError{Kind: MalformedFooter, Detail: "truncated footer"}
	}
	footerBytes := payload[footerOff : footerOff+footerLen]

	footer, err := decodeFooter(footerBytes)
	if err != nil {
		return nil, &TraceError{Kind: MalformedFooter, Detail: err.Error()}
	}

	envelope, err := decodeEnvelope(envelopeBytes)
	if err != nil {
		return nil, &TraceError{Kind: IOFailure, Detail: err.Error()}
	}

	payloadHash, err := hashing.Raw(hashing.PrefixByteTrace, payload)
	if err != nil {
		return nil, err
	}
	if expected != "" && payloadHash != expected {
		return nil, &TraceError{Kind: TraceHashMismatch, Detail: string(payloadHash)}
	}

	return &Trace{
		Envelope:         envelope,
		Header:           header,
		Frames:           frames,
		Footer:           footer,
		PayloadHash:      payloadHash,
		rawPayload:       payload,
		headerTotalBytes: headerTotalBytes,
	}, nil
}
