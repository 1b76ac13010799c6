package script

import (
	"encoding/binary"
	"fmt"
)

// maxScriptSize is the per-program limit from the correctly-spends
// contract (spec §4.2 step 1).
const maxScriptSize = 10000

// maxPushSize rejects any single literal push larger than this.
const maxPushSize = 520

// Chunk is one parsed instruction: either a data push (Data non-nil, Op
// the pushdata opcode that produced it) or a bare opcode.
type Chunk struct {
	Op          Opcode
	Data        []byte
	StartOffset int // offset of Op within the program
}

// IsPush reports whether this chunk only pushes bytes onto the stack,
// i.e. it is not an operator. This is the P2SH "scriptSig must be
// push-only" test (spec §4.2's correctly-spends step 6); it is
// deliberately broader than isLiteralPush below, since OP_1NEGATE and
// OP_1..OP_16 also only push and are allowed in a push-only scriptSig.
func (c Chunk) IsPush() bool {
	return c.Op <= OP_16
}

// isLiteralPush reports whether op is one of the parser's literal-data
// push opcodes: a bare [1,75] length byte or OP_PUSHDATA1/2/4. Unlike
// IsPush, this excludes OP_RESERVED (0x50), which numerically falls
// inside IsPush's range but is not a push at all — it must fail
// execution rather than be dispatched as a push of nil data.
func isLiteralPush(op Opcode) bool {
	return (op >= 1 && op <= 75) || op == OP_PUSHDATA1 || op == OP_PUSHDATA2 || op == OP_PUSHDATA4
}

// Parse splits prog into its chunk sequence. It rejects programs over
// maxScriptSize and pushes whose declared length would run past the end
// of the program or exceed maxPushSize.
func Parse(prog []byte) ([]Chunk, error) {
	if len(prog) > maxScriptSize {
		return nil, fmt.Errorf("script: program of %d bytes exceeds %d-byte limit", len(prog), maxScriptSize)
	}
	var chunks []Chunk
	i := 0
	for i < len(prog) {
		start := i
		op := Opcode(prog[i])
		i++
		switch {
		case op >= 1 && op <= 75:
			n := int(op)
			data, next, err := takePush(prog, i, n)
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, Chunk{Op: op, Data: data, StartOffset: start})
			i = next
		case op == OP_PUSHDATA1:
			if i >= len(prog) {
				return nil, fmt.Errorf("script: OP_PUSHDATA1 missing length byte")
			}
			n := int(prog[i])
			data, next, err := takePush(prog, i+1, n)
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, Chunk{Op: op, Data: data, StartOffset: start})
			i = next
		case op == OP_PUSHDATA2:
			if i+2 > len(prog) {
				return nil, fmt.Errorf("script: OP_PUSHDATA2 missing length bytes")
			}
			n := int(binary.LittleEndian.Uint16(prog[i : i+2]))
			data, next, err := takePush(prog, i+2, n)
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, Chunk{Op: op, Data: data, StartOffset: start})
			i = next
		case op == OP_PUSHDATA4:
			// Four distinct length bytes, little-endian (spec §9's
			// OP_PUSHDATA4 off-by-index fix: the earlier draft this
			// module descends from reread the same two bytes twice).
			if i+4 > len(prog) {
				return nil, fmt.Errorf("script: OP_PUSHDATA4 missing length bytes")
			}
			n := int(binary.LittleEndian.Uint32(prog[i : i+4]))
			data, next, err := takePush(prog, i+4, n)
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, Chunk{Op: op, Data: data, StartOffset: start})
			i = next
		default:
			chunks = append(chunks, Chunk{Op: op, StartOffset: start})
		}
	}
	return chunks, nil
}

func takePush(prog []byte, from, n int) (data []byte, next int, err error) {
	if n > maxPushSize {
		return nil, 0, fmt.Errorf("script: push of %d bytes exceeds %d-byte limit", n, maxPushSize)
	}
	if from+n > len(prog) {
		return nil, 0, fmt.Errorf("script: push of %d bytes runs past end of program", n)
	}
	return prog[from : from+n], from + n, nil
}
