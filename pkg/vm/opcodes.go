package vm

import "fmt"

// Opcode identifies one stack-machine instruction.
type Opcode int

const (
	OpNop Opcode = iota

	// Stack
	OpPush        // push immediate (int, float, bool, colour, or label address)
	OpPushSlot    // push [i:l]  — read a frame slot
	OpPushIndexed // push +[i:l] — pop an index, read slot i+index
	OpPop         // pop [i:l]   — pop into a frame slot
	OpPopIndexed  // pop +[i:l]  — pop an index, then pop a value into slot i+index
	OpDup
	OpDrop

	// Arithmetic (typed by operand runtime tag)
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg

	// Comparison / logic
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpNot

	// Control
	OpJmp
	OpJz
	OpJnz
	OpCall
	OpRet
	OpHalt

	// Frame
	OpOFrame
	OpCFrame

	// Conversion
	OpItof
	OpFtoi
	OpItoc
	OpCtoi
	OpBtoi
	OpItob

	// Graphics / IO
	OpClear
	OpWritePixel
	OpWriteBox
	OpWriteLine
	OpReadPixel
	OpWidth
	OpHeight
	OpRand
	OpPrint
	OpDelay
)

var opcodeNames = [...]string{
	OpNop:         "nop",
	OpPush:        "push",
	OpPushSlot:    "push",
	OpPushIndexed: "push",
	OpPop:         "pop",
	OpPopIndexed:  "pop",
	OpDup:         "dup",
	OpDrop:        "drop",
	OpAdd:         "add",
	OpSub:         "sub",
	OpMul:         "mul",
	OpDiv:         "div",
	OpMod:         "mod",
	OpNeg:         "neg",
	OpEq:          "eq",
	OpNe:          "ne",
	OpLt:          "lt",
	OpLe:          "le",
	OpGt:          "gt",
	OpGe:          "ge",
	OpAnd:         "and",
	OpOr:          "or",
	OpNot:         "not",
	OpJmp:         "jmp",
	OpJz:          "jz",
	OpJnz:         "jnz",
	OpCall:        "call",
	OpRet:         "ret",
	OpHalt:        "halt",
	OpOFrame:      "oframe",
	OpCFrame:      "cframe",
	OpItof:        "itof",
	OpFtoi:        "ftoi",
	OpItoc:        "itoc",
	OpCtoi:        "ctoi",
	OpBtoi:        "btoi",
	OpItob:        "itob",
	OpClear:       "clear",
	OpWritePixel:  "write_pixel",
	OpWriteBox:    "write_box",
	OpWriteLine:   "write_line",
	OpReadPixel:   "read_pixel",
	OpWidth:       "width",
	OpHeight:      "height",
	OpRand:        "rand",
	OpPrint:       "print",
	OpDelay:       "delay",
}

func (op Opcode) String() string {
	if int(op) >= 0 && int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", int(op))
}

// Instruction is one decoded instruction. The operand fields are meaningful
// per opcode: Imm for pushes of immediates, Slot/Level for slot addressing,
// Target for jump/call destinations, NArgs for call.
type Instruction struct {
	Op     Opcode
	Imm    Value
	Slot   int
	Level  int
	Target int
	NArgs  int
}

func (in Instruction) String() string {
	switch in.Op {
	case OpPush:
		return fmt.Sprintf("push %s", in.Imm)
	case OpPushSlot:
		return fmt.Sprintf("push [%d:%d]", in.Slot, in.Level)
	case OpPushIndexed:
		return fmt.Sprintf("push +[%d:%d]", in.Slot, in.Level)
	case OpPop:
		return fmt.Sprintf("pop [%d:%d]", in.Slot, in.Level)
	case OpPopIndexed:
		return fmt.Sprintf("pop +[%d:%d]", in.Slot, in.Level)
	case OpJmp, OpJz, OpJnz:
		return fmt.Sprintf("%s %d", in.Op, in.Target)
	case OpCall:
		return fmt.Sprintf("call %d, %d", in.Target, in.NArgs)
	case OpOFrame:
		return fmt.Sprintf("oframe %d", in.Slot)
	}
	return in.Op.String()
}
