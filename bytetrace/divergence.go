package bytetrace

import "fmt"

// Region names which part of a frame a divergence falls into (spec.md §4.5
// "Ranges: [0,4) operator code, [4, 4+4·arg_slot_count) operator args, then
// identity bytes, then status bytes.").
type Region string

const (
	RegionOperatorCode Region = "operator_code"
	RegionArgs         Region = "args"
	RegionIdentity     Region = "identity"
	RegionStatus       Region = "status"
)

// DivergenceLocation is the O(1)-computed result of mapping a first
// differing payload byte to (step, region, layer, slot). Layer/Slot are
// only meaningful when Region is RegionIdentity or RegionStatus.
type DivergenceLocation struct {
	Step   int
	Region Region
	Layer  int
	Slot   int
}

// FirstDifferingByte returns the offset of the first byte at which a and b
// differ, scanning word-at-a-time so it is O(n) worst case and O(1) once a
// mismatch is found within the current word (spec.md §4.5 "O(n/word) with
// SIMD" — this module scans in 8-byte words using the stdlib; a SIMD
// backend may replace the inner loop without changing the result).
func FirstDifferingByte(a, b []byte) (offset int, differ bool) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	const wordSize = 8
	i := 0
	for ; i+wordSize <= n; i += wordSize {
		if !bytesEqual(a[i:i+wordSize], b[i:i+wordSize]) {
			break
		}
	}
	for ; i < n; i++ {
		if a[i] != b[i] {
			return i, true
		}
	}
	if len(a) != len(b) {
		return n, true
	}
	return 0, false
}

func bytesEqual(a, b []byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Locate maps a byte offset within this trace's full payload (magic ‖
// header_len ‖ header ‖ body ‖ footer_len ‖ footer) to a step/region/
// layer/slot, per spec.md §4.5's fixed-stride arithmetic. It returns an
// error if offset falls outside the body (e.g. the header or footer
// diverged, which this localizer does not further decompose).
func (t *Trace) Locate(offset int) (DivergenceLocation, error) {
	bytesPerStep := t.Header.BytesPerStep()
	offsetInBody := offset - t.headerTotalBytes
	if offsetInBody < 0 || bytesPerStep == 0 {
		return DivergenceLocation{}, fmt.Errorf("bytetrace: offset %d is outside the frame body", offset)
	}
	step := offsetInBody / bytesPerStep
	offsetInFrame := offsetInBody % bytesPerStep

	argsStart := 4
	argsEnd := argsStart + 4*t.Header.ArgSlotCount
	identityEnd := argsEnd + 4*t.Header.LayerCount*t.Header.SlotCount

	switch {
	case offsetInFrame < argsStart:
		return DivergenceLocation{Step: step, Region: RegionOperatorCode}, nil
	case offsetInFrame < argsEnd:
		return DivergenceLocation{Step: step, Region: RegionArgs}, nil
	case offsetInFrame < identityEnd:
		lane := (offsetInFrame - argsEnd) / 4
		return DivergenceLocation{
			Step:   step,
			Region: RegionIdentity,
			Layer:  lane / t.Header.SlotCount,
			Slot:   lane % t.Header.SlotCount,
		}, nil
	default:
		lane := offsetInFrame - identityEnd
		return DivergenceLocation{
			Step:   step,
			Region: RegionStatus,
			Layer:  lane / t.Header.SlotCount,
			Slot:   lane % t.Header.SlotCount,
		}, nil
	}
}

// Diverge compares two traces' raw payload bytes and, if they differ,
// localizes the first differing byte using a's header/stride shape. Both
// traces must share the same header shape for the localization to be
// meaningful; this is the caller's responsibility (replay verification
// compares traces produced from the same header, registry, and operator
// set, spec.md §4.5).
func Diverge(a, b *Trace) (DivergenceLocation, bool, error) {
	offset, differ := FirstDifferingByte(a.rawPayload, b.rawPayload)
	if !differ {
		return DivergenceLocation{}, false, nil
	}
	loc, err := a.Locate(offset)
	if err != nil {
		return DivergenceLocation{}, true, err
	}
	return loc, true, nil
}
