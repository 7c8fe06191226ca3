package bytetrace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/darianrosebrook/sterling/hashing"
)

// magic is the fixed 4-byte trace marker (spec.md §3).
var magic = [4]byte{'B', 'S', 'T', '1'}

// writerState mirrors spec.md §4.5's trace-writer state machine: Empty ->
// Open(header_written) -> Active(frames_emitted) -> Closed(footer_written),
// with any I/O error moving to Failed and the partial file deleted.
type writerState int

const (
	stateEmpty writerState = iota
	stateOpen
	stateActive
	stateClosed
	stateFailed
)

// Writer builds a ByteTraceV1 in memory and persists it atomically on
// Close: the header is fixed the moment the first frame would be emitted,
// every subsequent frame must match BytesPerStep exactly, and the whole
// file is written to a temp path, fsynced, and renamed into place — then
// read back and hash-verified before Close reports success (spec.md §4.5,
// grounded on the teacher pack's atomic-write pattern in
// quantumlife-canon-core's storelog.FileLog.Flush).
type Writer struct {
	path     string
	envelope Envelope
	header   Header
	frames   []Frame
	footer   Footer
	state    writerState
}

// NewWriter begins a trace for the given header and observability envelope.
// header.StepCount is informational at this point; it is overwritten with
// len(frames) at Close.
func NewWriter(path string, header Header, envelope Envelope) *Writer {
	return &Writer{path: path, header: header, envelope: envelope, state: stateOpen}
}

// AppendFrame adds one step frame. It is a no-op validation error to append
// after Close.
func (w *Writer) AppendFrame(f Frame) error {
	if w.state == stateClosed || w.state == stateFailed {
		return &TraceError{Kind: IOFailure, Detail: "append after close"}
	}
	w.state = stateActive
	w.frames = append(w.frames, f)
	return nil
}

// Close assembles the final payload, computes the payload hash, and
// persists the trace atomically. It returns the payload hash so the caller
// (typically the bundle writer) can bind it into verification_report.json.
func (w *Writer) Close(footer Footer) (hashing.Digest, error) {
	w.footer = footer
	w.header.StepCount = len(w.frames)

	envelopeBytes, err := w.envelope.encode()
	if err != nil {
		w.state = stateFailed
		return "", err
	}
	headerBytes, err := w.header.encode()
	if err != nil {
		w.state = stateFailed
		return "", err
	}
	footerBytes, err := w.footer.encode()
	if err != nil {
		w.state = stateFailed
		return "", err
	}

	body := make([]byte, 0, len(w.frames)*w.header.BytesPerStep())
	for _, f := range w.frames {
		frameBytes := f.Encode(w.header)
		if len(frameBytes) != w.header.BytesPerStep() {
			w.state = stateFailed
			return "", &TraceError{Kind: FrameLengthMismatch, Detail: fmt.Sprintf("want %d got %d", w.header.BytesPerStep(), len(frameBytes))}
		}
		body = append(body, frameBytes...)
	}

	payload := make([]byte, 0, 4+2+len(headerBytes)+len(body)+2+len(footerBytes))
	payload = append(payload, magic[:]...)
	payload = putUint16LenPrefixed(payload, headerBytes)
	payload = append(payload, body...)
	payload = putUint16LenPrefixed(payload, footerBytes)

	payloadHash, err := hashing.Raw(hashing.PrefixByteTrace, payload)
	if err != nil {
		w.state = stateFailed
		return "", err
	}

	full := make([]byte, 0, 2+len(envelopeBytes)+len(payload))
	full = putUint16LenPrefixed(full, envelopeBytes)
	full = append(full, payload...)

	if err := atomicWriteFile(w.path, full); err != nil {
		w.state = stateFailed
		_ = os.Remove(w.path)
		return "", &TraceError{Kind: IOFailure, Detail: err.Error()}
	}

	readBack, err := os.ReadFile(w.path)
	if err != nil {
		w.state = stateFailed
		return "", &TraceError{Kind: IOFailure, Detail: err.Error()}
	}
	if _, differ := FirstDifferingByte(full, readBack); differ || len(readBack) != len(full) {
		w.state = stateFailed
		return "", &TraceError{Kind: TraceHashMismatch, Detail: "persisted bytes differ from in-memory payload"}
	}

	w.state = stateClosed
	return payloadHash, nil
}

// atomicWriteFile writes data to a temp file in the same directory as path,
// fsyncs it, then renames it into place — the teacher pack's durability
// idiom (quantumlife-canon-core storelog.FileLog.Flush: temp file, sync,
// rename, no partial-write window).
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
