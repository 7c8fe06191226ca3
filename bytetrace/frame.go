package bytetrace

import (
	"encoding/binary"

	"github.com/darianrosebrook/sterling/code32"
)

// Frame is one fixed-stride step record: operator code, args zero-padded to
// ArgSlotCount, the post-step identity plane, and the post-step status plane
// (spec.md §4.5). InitialStateEvent and TerminalEvent frames use the
// op_id sentinels code32.InitialState / code32.Terminal with zero args, so
// every frame in a trace has exactly the same width.
type Frame struct {
	OpID     code32.Code32
	Args     []code32.Code32 // length == header.ArgSlotCount after padding
	Identity []byte          // length == 4*L*S
	Status   []byte          // length == L*S
}

// Encode renders f as exactly h.BytesPerStep() bytes.
func (f Frame) Encode(h Header) []byte {
	out := make([]byte, 0, h.BytesPerStep())

	opBuf := *code32.ViewBytes(&f.OpID)
	out = append(out, opBuf[:]...)

	for i := 0; i < h.ArgSlotCount; i++ {
		arg := code32.Padding
		if i < len(f.Args) {
			arg = f.Args[i]
		}
		argBuf := *code32.ViewBytes(&arg)
		out = append(out, argBuf[:]...)
	}

	out = append(out, f.Identity...)
	out = append(out, f.Status...)
	return out
}

// DecodeFrame parses exactly h.BytesPerStep() bytes into a Frame.
func DecodeFrame(h Header, raw []byte) Frame {
	identityBytes := 4 * h.LayerCount * h.SlotCount
	statusBytes := h.LayerCount * h.SlotCount

	opID := code32.FromUint32(binary.LittleEndian.Uint32(raw[0:4]))

	args := make([]code32.Code32, h.ArgSlotCount)
	off := 4
	for i := 0; i < h.ArgSlotCount; i++ {
		args[i] = code32.FromUint32(binary.LittleEndian.Uint32(raw[off : off+4]))
		off += 4
	}

	identity := append([]byte(nil), raw[off:off+identityBytes]...)
	off += identityBytes
	status := append([]byte(nil), raw[off:off+statusBytes]...)

	return Frame{OpID: opID, Args: args, Identity: identity, Status: status}
}
