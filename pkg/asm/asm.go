// Package asm parses textual Pixardis assembly into the machine's
// executable instruction vector, resolving labels to absolute indices.
package asm

import (
	"fmt"
	"strconv"
	"strings"

	"pixardis/pkg/vm"
)

// zeroOperandOps maps mnemonics that take no operands to their opcode.
var zeroOperandOps = map[string]vm.Opcode{
	"nop":         vm.OpNop,
	"dup":         vm.OpDup,
	"drop":        vm.OpDrop,
	"add":         vm.OpAdd,
	"sub":         vm.OpSub,
	"mul":         vm.OpMul,
	"div":         vm.OpDiv,
	"mod":         vm.OpMod,
	"neg":         vm.OpNeg,
	"eq":          vm.OpEq,
	"ne":          vm.OpNe,
	"lt":          vm.OpLt,
	"le":          vm.OpLe,
	"gt":          vm.OpGt,
	"ge":          vm.OpGe,
	"and":         vm.OpAnd,
	"or":          vm.OpOr,
	"not":         vm.OpNot,
	"ret":         vm.OpRet,
	"halt":        vm.OpHalt,
	"cframe":      vm.OpCFrame,
	"itof":        vm.OpItof,
	"ftoi":        vm.OpFtoi,
	"itoc":        vm.OpItoc,
	"ctoi":        vm.OpCtoi,
	"btoi":        vm.OpBtoi,
	"itob":        vm.OpItob,
	"clear":       vm.OpClear,
	"write_pixel": vm.OpWritePixel,
	"write_box":   vm.OpWriteBox,
	"write_line":  vm.OpWriteLine,
	"read_pixel":  vm.OpReadPixel,
	"width":       vm.OpWidth,
	"height":      vm.OpHeight,
	"rand":        vm.OpRand,
	"print":       vm.OpPrint,
	"delay":       vm.OpDelay,
}

// jumpOps maps the label-operand control mnemonics to their opcode.
var jumpOps = map[string]vm.Opcode{
	"jmp": vm.OpJmp,
	"jz":  vm.OpJz,
	"jnz": vm.OpJnz,
}

// Assembler resolves labels over two passes and emits the instruction vector.
type Assembler struct {
	labels map[string]int
}

type parsedLine struct {
	lineNo   int
	label    string
	mnemonic string
	operands []string
}

func NewAssembler() *Assembler {
	return &Assembler{labels: make(map[string]int)}
}

// Assemble is a convenience wrapper over a one-shot Assembler.
func Assemble(code string) ([]vm.Instruction, error) {
	return NewAssembler().Assemble(code)
}

// Assemble parses the program. Pass 1 records each label's instruction
// index; pass 2 emits instructions with label operands resolved. Unknown
// mnemonics, malformed operands, duplicate and unresolved labels fail with
// an error naming the offending line.
func (a *Assembler) Assemble(code string) ([]vm.Instruction, error) {
	lines := strings.Split(code, "\n")

	if err := a.pass1(lines); err != nil {
		return nil, err
	}
	return a.pass2(lines)
}

func (a *Assembler) pass1(lines []string) error {
	index := 0
	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}
		if p.label != "" {
			if _, exists := a.labels[p.label]; exists {
				return fmt.Errorf("duplicate label %q on line %d", p.label, lineNo)
			}
			a.labels[p.label] = index
		}
		if p.mnemonic != "" {
			index++
		}
	}
	return nil
}

func (a *Assembler) pass2(lines []string) ([]vm.Instruction, error) {
	var program []vm.Instruction
	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, err
		}
		if p.mnemonic == "" {
			continue
		}
		in, err := a.encode(p)
		if err != nil {
			return nil, err
		}
		program = append(program, in)
	}
	return program, nil
}

// parseLine splits one raw source line into an optional leading label, a
// mnemonic and its operands. Comments start with "//". Operands are
// separated by commas and/or spaces.
func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := raw
	if idx := strings.Index(line, "//"); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return p, nil
	}

	// Leading label: "name:" optionally followed by an instruction.
	if idx := strings.Index(line, ":"); idx >= 0 {
		candidate := strings.TrimSpace(line[:idx])
		if isLabelName(candidate) && !strings.ContainsAny(candidate, " \t") {
			p.label = candidate
			line = strings.TrimSpace(line[idx+1:])
			if line == "" {
				return p, nil
			}
		}
	}

	fields := strings.Fields(strings.ReplaceAll(line, ",", " "))
	p.mnemonic = fields[0]
	p.operands = fields[1:]
	return p, nil
}

func isLabelName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		alpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
		digit := r >= '0' && r <= '9'
		if i == 0 && !alpha {
			return false
		}
		if !alpha && !digit {
			return false
		}
	}
	return true
}

func (a *Assembler) encode(p parsedLine) (vm.Instruction, error) {
	if op, ok := zeroOperandOps[p.mnemonic]; ok {
		if len(p.operands) != 0 {
			return vm.Instruction{}, fmt.Errorf("%s takes no operands on line %d", p.mnemonic, p.lineNo)
		}
		return vm.Instruction{Op: op}, nil
	}

	if op, ok := jumpOps[p.mnemonic]; ok {
		if len(p.operands) != 1 {
			return vm.Instruction{}, fmt.Errorf("%s expects exactly one label operand on line %d", p.mnemonic, p.lineNo)
		}
		target, err := a.resolveLabel(p.operands[0], p.lineNo)
		if err != nil {
			return vm.Instruction{}, err
		}
		return vm.Instruction{Op: op, Target: target}, nil
	}

	switch p.mnemonic {
	case "push":
		if len(p.operands) != 1 {
			return vm.Instruction{}, fmt.Errorf("push expects exactly one operand on line %d", p.lineNo)
		}
		return a.encodePush(p.operands[0], p.lineNo)

	case "pop":
		if len(p.operands) != 1 {
			return vm.Instruction{}, fmt.Errorf("pop expects exactly one operand on line %d", p.lineNo)
		}
		return encodePop(p.operands[0], p.lineNo)

	case "call":
		if len(p.operands) != 2 {
			return vm.Instruction{}, fmt.Errorf("call expects a label and an argument count on line %d", p.lineNo)
		}
		target, err := a.resolveLabel(p.operands[0], p.lineNo)
		if err != nil {
			return vm.Instruction{}, err
		}
		nargs, err := strconv.Atoi(p.operands[1])
		if err != nil || nargs < 0 {
			return vm.Instruction{}, fmt.Errorf("invalid call argument count %q on line %d", p.operands[1], p.lineNo)
		}
		return vm.Instruction{Op: vm.OpCall, Target: target, NArgs: nargs}, nil

	case "oframe":
		if len(p.operands) != 1 {
			return vm.Instruction{}, fmt.Errorf("oframe expects exactly one operand on line %d", p.lineNo)
		}
		count, err := strconv.Atoi(p.operands[0])
		if err != nil || count < 0 {
			return vm.Instruction{}, fmt.Errorf("invalid oframe size %q on line %d", p.operands[0], p.lineNo)
		}
		return vm.Instruction{Op: vm.OpOFrame, Slot: count}, nil
	}

	return vm.Instruction{}, fmt.Errorf("unknown instruction on line %d: %s", p.lineNo, p.mnemonic)
}

func (a *Assembler) resolveLabel(name string, lineNo int) (int, error) {
	if idx, ok := a.labels[name]; ok {
		return idx, nil
	}
	return 0, fmt.Errorf("unresolved label %q on line %d", name, lineNo)
}

// encodePush handles every push form: integer, float, bool and colour
// immediates, label references, and direct or indexed slot references.
func (a *Assembler) encodePush(operand string, lineNo int) (vm.Instruction, error) {
	switch {
	case strings.HasPrefix(operand, "+["):
		slot, level, err := parseSlotRef(operand[1:], lineNo)
		if err != nil {
			return vm.Instruction{}, err
		}
		return vm.Instruction{Op: vm.OpPushIndexed, Slot: slot, Level: level}, nil

	case strings.HasPrefix(operand, "["):
		slot, level, err := parseSlotRef(operand, lineNo)
		if err != nil {
			return vm.Instruction{}, err
		}
		return vm.Instruction{Op: vm.OpPushSlot, Slot: slot, Level: level}, nil

	case strings.HasPrefix(operand, "#"):
		if len(operand) != 7 {
			return vm.Instruction{}, fmt.Errorf("malformed colour immediate %q on line %d", operand, lineNo)
		}
		c, err := strconv.ParseUint(operand[1:], 16, 32)
		if err != nil {
			return vm.Instruction{}, fmt.Errorf("malformed colour immediate %q on line %d", operand, lineNo)
		}
		return vm.Instruction{Op: vm.OpPush, Imm: vm.ColourValue(uint32(c))}, nil

	case operand == "true":
		return vm.Instruction{Op: vm.OpPush, Imm: vm.BoolValue(true)}, nil

	case operand == "false":
		return vm.Instruction{Op: vm.OpPush, Imm: vm.BoolValue(false)}, nil
	}

	if v, err := strconv.ParseInt(operand, 10, 32); err == nil {
		return vm.Instruction{Op: vm.OpPush, Imm: vm.IntValue(int32(v))}, nil
	}
	if f, err := strconv.ParseFloat(operand, 64); err == nil && strings.ContainsAny(operand, ".eE") {
		return vm.Instruction{Op: vm.OpPush, Imm: vm.FloatValue(f)}, nil
	}
	if isLabelName(operand) {
		target, err := a.resolveLabel(operand, lineNo)
		if err != nil {
			return vm.Instruction{}, err
		}
		return vm.Instruction{Op: vm.OpPush, Imm: vm.AddressValue(target)}, nil
	}

	return vm.Instruction{}, fmt.Errorf("malformed push operand %q on line %d", operand, lineNo)
}

func encodePop(operand string, lineNo int) (vm.Instruction, error) {
	if strings.HasPrefix(operand, "+[") {
		slot, level, err := parseSlotRef(operand[1:], lineNo)
		if err != nil {
			return vm.Instruction{}, err
		}
		return vm.Instruction{Op: vm.OpPopIndexed, Slot: slot, Level: level}, nil
	}
	slot, level, err := parseSlotRef(operand, lineNo)
	if err != nil {
		return vm.Instruction{}, err
	}
	return vm.Instruction{Op: vm.OpPop, Slot: slot, Level: level}, nil
}

// parseSlotRef parses "[slot]" or "[slot:level]". Level 0 addresses the
// current frame, level 1 the global frame.
func parseSlotRef(ref string, lineNo int) (slot, level int, err error) {
	if !strings.HasPrefix(ref, "[") || !strings.HasSuffix(ref, "]") {
		return 0, 0, fmt.Errorf("malformed slot reference %q on line %d", ref, lineNo)
	}
	body := ref[1 : len(ref)-1]
	slotText := body
	levelText := "0"
	if idx := strings.Index(body, ":"); idx >= 0 {
		slotText = body[:idx]
		levelText = body[idx+1:]
	}
	slot, err = strconv.Atoi(slotText)
	if err != nil || slot < 0 {
		return 0, 0, fmt.Errorf("malformed slot reference %q on line %d", ref, lineNo)
	}
	level, err = strconv.Atoi(levelText)
	if err != nil || level < 0 || level > 1 {
		return 0, 0, fmt.Errorf("malformed slot reference %q on line %d", ref, lineNo)
	}
	return slot, level, nil
}

// Listing renders an assembled program as a numbered listing, one
// instruction per line, for debugging front-ends.
func Listing(program []vm.Instruction) string {
	var sb strings.Builder
	for i, in := range program {
		fmt.Fprintf(&sb, "[%4d] %s\n", i, in)
	}
	return sb.String()
}
