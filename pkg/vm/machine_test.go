package vm

import (
	"reflect"
	"strings"
	"testing"
)

func newTestMachine(t *testing.T, w, h int) *Machine {
	t.Helper()
	m, err := New(w, h, 0, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

// run loads prog and steps until halt or error, with a generous bound.
func run(t *testing.T, m *Machine, prog []Instruction) error {
	t.Helper()
	m.LoadProgram(prog)
	for i := 0; i < 1000 && !m.Halted(); i++ {
		if err := m.Step(100); err != nil {
			return err
		}
	}
	if !m.Halted() {
		t.Fatal("program did not halt")
	}
	return nil
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		op   Opcode
		want Value
	}{
		{"int add", IntValue(2), IntValue(3), OpAdd, IntValue(5)},
		{"int sub", IntValue(2), IntValue(3), OpSub, IntValue(-1)},
		{"int mul", IntValue(6), IntValue(7), OpMul, IntValue(42)},
		{"int div", IntValue(100), IntValue(10), OpDiv, IntValue(10)},
		{"int mod", IntValue(10), IntValue(3), OpMod, IntValue(1)},
		{"float add", FloatValue(1.5), FloatValue(2.25), OpAdd, FloatValue(3.75)},
		{"float div", FloatValue(1), FloatValue(4), OpDiv, FloatValue(0.25)},
		{"colour add saturates", ColourValue(0xFF0010), ColourValue(0x020020), OpAdd, ColourValue(0xFF0030)},
		{"colour sub clamps", ColourValue(0x100000), ColourValue(0x200001), OpSub, ColourValue(0x000000)},
		{"colour scale", ColourValue(0x010203), IntValue(100), OpMul, ColourValue(0x64C8FF)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine(t, 4, 4)
			err := run(t, m, []Instruction{
				{Op: OpPush, Imm: tt.a},
				{Op: OpPush, Imm: tt.b},
				{Op: tt.op},
				{Op: OpHalt},
			})
			if err != nil {
				t.Fatal(err)
			}
			if m.StackDepth() != 1 {
				t.Fatalf("stack depth %d, want 1", m.StackDepth())
			}
			got := m.stack[0]
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("result %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestArithmeticErrors(t *testing.T) {
	tests := []struct {
		name    string
		prog    []Instruction
		wantMsg string
	}{
		{
			"int division by zero",
			[]Instruction{{Op: OpPush, Imm: IntValue(1)}, {Op: OpPush, Imm: IntValue(0)}, {Op: OpDiv}, {Op: OpHalt}},
			"division by zero",
		},
		{
			"float division by zero",
			[]Instruction{{Op: OpPush, Imm: FloatValue(1)}, {Op: OpPush, Imm: FloatValue(0)}, {Op: OpDiv}, {Op: OpHalt}},
			"division by zero",
		},
		{
			"mixed tags",
			[]Instruction{{Op: OpPush, Imm: IntValue(1)}, {Op: OpPush, Imm: FloatValue(1)}, {Op: OpAdd}, {Op: OpHalt}},
			"matching operands",
		},
		{
			"stack underflow",
			[]Instruction{{Op: OpAdd}, {Op: OpHalt}},
			"underflow",
		},
		{
			"rand zero bound",
			[]Instruction{{Op: OpPush, Imm: IntValue(0)}, {Op: OpRand}, {Op: OpHalt}},
			"rand bound must be positive",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine(t, 4, 4)
			m.LoadProgram(tt.prog)
			err := m.Step(100)
			if err == nil {
				t.Fatal("expected a runtime error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
			// The machine stays stopped and returns the same error again.
			if err2 := m.Step(1); err2 != err {
				t.Errorf("stopped machine returned a different error: %v", err2)
			}
		})
	}
}

func TestComparisons(t *testing.T) {
	tests := []struct {
		a, b Value
		op   Opcode
		want bool
	}{
		{IntValue(1), IntValue(2), OpLt, true},
		{IntValue(2), IntValue(2), OpLe, true},
		{IntValue(3), IntValue(2), OpGt, true},
		{IntValue(2), IntValue(3), OpGe, false},
		{IntValue(2), IntValue(2), OpEq, true},
		{FloatValue(1.5), FloatValue(1.5), OpEq, true},
		{ColourValue(0xFF0000), ColourValue(0xFF0000), OpEq, true},
		{BoolValue(true), BoolValue(false), OpNe, true},
	}
	for _, tt := range tests {
		m := newTestMachine(t, 4, 4)
		err := run(t, m, []Instruction{
			{Op: OpPush, Imm: tt.a},
			{Op: OpPush, Imm: tt.b},
			{Op: tt.op},
			{Op: OpHalt},
		})
		if err != nil {
			t.Fatal(err)
		}
		got := m.stack[0]
		if got.Tag != TagBool || got.Bool() != tt.want {
			t.Errorf("%+v %s %+v = %+v, want %t", tt.a, tt.op, tt.b, got, tt.want)
		}
	}
}

// Calls open a frame seeded with the captured arguments; ret leaves exactly
// one value (the result) above the caller's stack.
func TestCallFrames(t *testing.T) {
	m := newTestMachine(t, 4, 4)
	// main: push 7; call double(1 arg)@5; halt
	// double: oframe 1; push [0:0]; push 2; mul; ret
	prog := []Instruction{
		{Op: OpOFrame, Slot: 0},
		{Op: OpPush, Imm: IntValue(7)},
		{Op: OpCall, Target: 5, NArgs: 1},
		{Op: OpCFrame},
		{Op: OpHalt},
		{Op: OpOFrame, Slot: 1},
		{Op: OpPushSlot, Slot: 0, Level: 0},
		{Op: OpPush, Imm: IntValue(2)},
		{Op: OpMul},
		{Op: OpRet},
	}
	if err := run(t, m, prog); err != nil {
		t.Fatal(err)
	}
	if m.StackDepth() != 1 {
		t.Fatalf("stack depth after return = %d, want exactly the result", m.StackDepth())
	}
	if got := m.stack[0]; got.Int != 14 {
		t.Errorf("result %+v, want 14", got)
	}
	if m.FrameDepth() != 0 {
		t.Errorf("frame depth %d, want 0 after cframe", m.FrameDepth())
	}
}

func TestGlobalFrameAccess(t *testing.T) {
	m := newTestMachine(t, 4, 4)
	// Global slot 0 starts at 5; the callee increments it via level 1.
	prog := []Instruction{
		{Op: OpOFrame, Slot: 1},
		{Op: OpPush, Imm: IntValue(5)},
		{Op: OpPop, Slot: 0, Level: 0},
		{Op: OpCall, Target: 6, NArgs: 0},
		{Op: OpDrop},
		{Op: OpHalt},
		{Op: OpOFrame, Slot: 0},
		{Op: OpPushSlot, Slot: 0, Level: 1},
		{Op: OpPush, Imm: IntValue(1)},
		{Op: OpAdd},
		{Op: OpPop, Slot: 0, Level: 1},
		{Op: OpPush, Imm: IntValue(0)},
		{Op: OpRet},
	}
	if err := run(t, m, prog); err != nil {
		t.Fatal(err)
	}
	if got := m.locals[0]; got.Int != 6 {
		t.Errorf("global slot = %+v, want 6", got)
	}
}

func TestRecursionCap(t *testing.T) {
	m, err := New(4, 4, 0, 16)
	if err != nil {
		t.Fatal(err)
	}
	// f: oframe 0; call f, 0  -- infinite recursion
	prog := []Instruction{
		{Op: OpCall, Target: 1, NArgs: 0},
		{Op: OpOFrame, Slot: 0},
		{Op: OpCall, Target: 1, NArgs: 0},
	}
	m.LoadProgram(prog)
	stepErr := m.Step(1000)
	if stepErr == nil {
		t.Fatal("expected a call depth error")
	}
	if !strings.Contains(stepErr.Error(), "call depth") {
		t.Errorf("error %q does not mention the call depth cap", stepErr)
	}
	// State stays inspectable after the fault.
	if m.FrameDepth() == 0 {
		t.Error("frames should be preserved for inspection after the fault")
	}
}

func TestIndexedSlotAccess(t *testing.T) {
	m := newTestMachine(t, 4, 4)
	prog := []Instruction{
		{Op: OpOFrame, Slot: 3},
		{Op: OpPush, Imm: IntValue(11)},
		{Op: OpPush, Imm: IntValue(1)}, // index
		{Op: OpPopIndexed, Slot: 0, Level: 0},
		{Op: OpPush, Imm: IntValue(1)}, // index
		{Op: OpPushIndexed, Slot: 0, Level: 0},
		{Op: OpHalt},
	}
	if err := run(t, m, prog); err != nil {
		t.Fatal(err)
	}
	if got := m.stack[0]; got.Int != 11 {
		t.Errorf("indexed read %+v, want 11", got)
	}
}

func TestIndexedSlotOutOfBounds(t *testing.T) {
	m := newTestMachine(t, 4, 4)
	prog := []Instruction{
		{Op: OpOFrame, Slot: 2},
		{Op: OpPush, Imm: IntValue(5)}, // index beyond the frame
		{Op: OpPushIndexed, Slot: 0, Level: 0},
		{Op: OpHalt},
	}
	m.LoadProgram(prog)
	err := m.Step(10)
	if err == nil || !strings.Contains(err.Error(), "out of bounds") {
		t.Errorf("expected an out-of-bounds error, got %v", err)
	}
}

func TestConversions(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		op   Opcode
		want Value
	}{
		{"itof", IntValue(3), OpItof, FloatValue(3)},
		{"ftoi truncates", FloatValue(3.9), OpFtoi, IntValue(3)},
		{"itoc masks", IntValue(0x12345678 & 0x7FFFFFFF), OpItoc, ColourValue(0x345678)},
		{"ctoi", ColourValue(0x102030), OpCtoi, IntValue(0x102030)},
		{"btoi", BoolValue(true), OpBtoi, IntValue(1)},
		{"itob", IntValue(2), OpItob, BoolValue(true)},
		{"itob zero", IntValue(0), OpItob, BoolValue(false)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMachine(t, 4, 4)
			err := run(t, m, []Instruction{
				{Op: OpPush, Imm: tt.in},
				{Op: tt.op},
				{Op: OpHalt},
			})
			if err != nil {
				t.Fatal(err)
			}
			if got := m.stack[0]; !reflect.DeepEqual(got, tt.want) {
				t.Errorf("result %+v, want %+v", got, tt.want)
			}
		})
	}
}

// delay consumes instruction ticks rather than wall-clock time: `delay n`
// costs n cycles before the next opcode executes.
func TestDelayCountsTicks(t *testing.T) {
	m := newTestMachine(t, 4, 4)
	prog := []Instruction{
		{Op: OpPush, Imm: IntValue(5)},
		{Op: OpDelay},
		{Op: OpPush, Imm: IntValue(1)},
		{Op: OpPrint},
		{Op: OpHalt},
	}
	m.LoadProgram(prog)

	// push + delay + 5 ticks = 7 cycles; nothing printed yet.
	if err := m.Step(7); err != nil {
		t.Fatal(err)
	}
	if len(m.PrintOutput()) != 0 {
		t.Fatal("print fired during the delay window")
	}
	// Two more cycles: push 1, print.
	if err := m.Step(2); err != nil {
		t.Fatal(err)
	}
	if got := m.PrintOutput(); len(got) != 1 || got[0] != "1" {
		t.Fatalf("print output %v, want [1]", got)
	}
}

// The delay countdown survives step boundaries.
func TestDelaySpansSteps(t *testing.T) {
	prog := []Instruction{
		{Op: OpPush, Imm: IntValue(10)},
		{Op: OpDelay},
		{Op: OpPush, Imm: IntValue(42)},
		{Op: OpPrint},
		{Op: OpHalt},
	}

	split := newTestMachine(t, 4, 4)
	split.LoadProgram(prog)
	for i := 0; i < 5; i++ {
		if err := split.Step(3); err != nil {
			t.Fatal(err)
		}
	}

	whole := newTestMachine(t, 4, 4)
	whole.LoadProgram(prog)
	if err := whole.Step(15); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(split.PrintOutput(), whole.PrintOutput()) {
		t.Errorf("split schedule %v differs from whole schedule %v", split.PrintOutput(), whole.PrintOutput())
	}
}

func TestRandDeterministicPerSeed(t *testing.T) {
	roll := func(seed uint64) []string {
		m, err := New(4, 4, seed, 0)
		if err != nil {
			t.Fatal(err)
		}
		var prog []Instruction
		for i := 0; i < 8; i++ {
			prog = append(prog,
				Instruction{Op: OpPush, Imm: IntValue(1000)},
				Instruction{Op: OpRand},
				Instruction{Op: OpPrint},
			)
		}
		prog = append(prog, Instruction{Op: OpHalt})
		if err := run(t, m, prog); err != nil {
			t.Fatal(err)
		}
		return m.PrintOutput()
	}

	a, b := roll(7), roll(7)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("same seed produced different streams: %v vs %v", a, b)
	}
	if reflect.DeepEqual(roll(7), roll(8)) {
		t.Error("different seeds produced identical streams")
	}
}

func TestRandBounds(t *testing.T) {
	m := newTestMachine(t, 4, 4)
	var prog []Instruction
	for i := 0; i < 100; i++ {
		prog = append(prog,
			Instruction{Op: OpPush, Imm: IntValue(10)},
			Instruction{Op: OpRand},
			Instruction{Op: OpPrint},
		)
	}
	prog = append(prog, Instruction{Op: OpHalt})
	if err := run(t, m, prog); err != nil {
		t.Fatal(err)
	}
	for _, line := range m.PrintOutput() {
		switch line {
		case "0", "1", "2", "3", "4", "5", "6", "7", "8", "9":
		default:
			t.Fatalf("rand produced %q outside [0,10)", line)
		}
	}
}

func TestPrintFormatsByTag(t *testing.T) {
	m := newTestMachine(t, 4, 4)
	prog := []Instruction{
		{Op: OpPush, Imm: IntValue(-42)},
		{Op: OpPrint},
		{Op: OpPush, Imm: FloatValue(2.5)},
		{Op: OpPrint},
		{Op: OpPush, Imm: BoolValue(true)},
		{Op: OpPrint},
		{Op: OpPush, Imm: ColourValue(0x102030)},
		{Op: OpPrint},
		{Op: OpPush, Imm: ColourValue(0xAB01FF)},
		{Op: OpPrint},
		{Op: OpHalt},
	}
	if err := run(t, m, prog); err != nil {
		t.Fatal(err)
	}
	want := []string{"-42", "2.5", "true", "#102030", "#AB01FF"}
	if !reflect.DeepEqual(m.PrintOutput(), want) {
		t.Errorf("print output %v, want %v", m.PrintOutput(), want)
	}
}

func TestPixelBoundsError(t *testing.T) {
	m := newTestMachine(t, 8, 8)
	prog := []Instruction{
		{Op: OpPush, Imm: ColourValue(0xFFFFFF)},
		{Op: OpPush, Imm: IntValue(0)}, // y
		{Op: OpPush, Imm: IntValue(8)}, // x == width -> out of bounds
		{Op: OpWritePixel},
		{Op: OpHalt},
	}
	m.LoadProgram(prog)
	err := m.Step(10)
	if err == nil || !strings.Contains(err.Error(), "outside") {
		t.Errorf("expected a bounds error, got %v", err)
	}
}

// Loading a new program preserves the framebuffer but resets execution.
func TestLoadPreservesFramebuffer(t *testing.T) {
	m := newTestMachine(t, 4, 4)
	first := []Instruction{
		{Op: OpPush, Imm: ColourValue(0x336699)},
		{Op: OpClear},
		{Op: OpHalt},
	}
	if err := run(t, m, first); err != nil {
		t.Fatal(err)
	}

	m.LoadProgram([]Instruction{{Op: OpHalt}})
	if m.PC() != 0 || m.Halted() {
		t.Error("load must reset the PC and the halted flag")
	}
	c, err := m.Display().ReadPixel(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if c != 0x336699 {
		t.Errorf("framebuffer lost across load: %06X", c)
	}
}

func TestHaltIsClean(t *testing.T) {
	m := newTestMachine(t, 4, 4)
	m.LoadProgram([]Instruction{{Op: OpHalt}})
	if err := m.Step(100); err != nil {
		t.Fatalf("clean halt must not error: %v", err)
	}
	if !m.Halted() {
		t.Fatal("machine should be halted")
	}
	// Stepping a halted machine is a successful no-op.
	if err := m.Step(100); err != nil {
		t.Errorf("stepping a halted machine must succeed: %v", err)
	}
}

func TestPCOutOfRange(t *testing.T) {
	m := newTestMachine(t, 4, 4)
	m.LoadProgram([]Instruction{{Op: OpNop}})
	err := m.Step(10)
	if err == nil || !strings.Contains(err.Error(), "program counter") {
		t.Errorf("running off the end must fault, got %v", err)
	}
}
