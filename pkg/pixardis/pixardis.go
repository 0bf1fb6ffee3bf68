// Package pixardis is the embedding facade over the Pixardis pipeline:
// compile source to assembly, load it into a machine, advance execution in
// bounded bursts, and read the framebuffer and print output back out.
package pixardis

import (
	"fmt"

	"pixardis/pkg/asm"
	"pixardis/pkg/compiler"
	"pixardis/pkg/vm"
)

// CompileResult mirrors compiler.Result for hosts that only import the
// facade.
type CompileResult = compiler.Result

// Compile lowers Pixardis source to stack-machine assembly, or reports
// every diagnostic when the source does not compile.
func Compile(source string) CompileResult {
	return compiler.Compile(source)
}

// StepResult reports the outcome of one execution burst.
type StepResult struct {
	Success bool
	Error   string
}

// Option configures a Machine at creation time.
type Option func(*config)

type config struct {
	seed     uint64
	frameCap int
}

// WithSeed fixes the RNG seed; identical seeds and cycle schedules produce
// bit-identical framebuffers and print output.
func WithSeed(seed uint64) Option {
	return func(c *config) { c.seed = seed }
}

// WithFrameCap bounds recursion depth.
func WithFrameCap(n int) Option {
	return func(c *config) { c.frameCap = n }
}

// Machine owns a virtual machine with an attached W×H framebuffer.
type Machine struct {
	m        *vm.Machine
	width    int
	height   int
	seed     uint64
	frameCap int
}

// NewMachine creates a machine with a cleared framebuffer. The default seed
// is fixed, so hosts get reproducible runs unless they opt out.
func NewMachine(width, height int, opts ...Option) (*Machine, error) {
	cfg := config{seed: vm.DefaultSeed, frameCap: vm.DefaultFrameCap}
	for _, opt := range opts {
		opt(&cfg)
	}
	inner, err := vm.New(width, height, cfg.seed, cfg.frameCap)
	if err != nil {
		return nil, err
	}
	return &Machine{m: inner, width: width, height: height, seed: cfg.seed, frameCap: cfg.frameCap}, nil
}

// LoadProgram assembles the textual program and installs it, replacing any
// previous program atomically: on an assembly error the machine keeps its
// old program. The framebuffer is preserved across loads.
func (x *Machine) LoadProgram(assembly string) error {
	program, err := asm.Assemble(assembly)
	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}
	x.m.LoadProgram(program)
	return nil
}

// Step advances execution by up to n instructions. Success is true when n
// instructions ran or the program halted cleanly; otherwise Error carries
// the runtime fault and the machine stays stopped but inspectable.
func (x *Machine) Step(n int) StepResult {
	if err := x.m.Step(n); err != nil {
		return StepResult{Success: false, Error: err.Error()}
	}
	return StepResult{Success: true}
}

// Run steps until clean halt, runtime error, or cycle budget exhaustion.
func (x *Machine) Run(maxCycles int) error {
	return x.m.Run(maxCycles)
}

// Halted reports whether the program reached a clean halt.
func (x *Machine) Halted() bool { return x.m.Halted() }

// Framebuffer returns the machine's pixels: 3·W·H bytes, row-major,
// top-left origin, 8-bit R,G,B. The view is valid until the next machine
// mutation; copy for a stable snapshot.
func (x *Machine) Framebuffer() []byte { return x.m.Display().Pixels() }

func (x *Machine) Width() int  { return x.width }
func (x *Machine) Height() int { return x.height }

// PrintOutput returns the lines accumulated by `print` since the last
// ClearPrintOutput.
func (x *Machine) PrintOutput() []string { return x.m.PrintOutput() }

func (x *Machine) ClearPrintOutput() { x.m.ClearPrintOutput() }

// VM exposes the underlying machine for inspection after a runtime fault.
func (x *Machine) VM() *vm.Machine { return x.m }

// Reset discards all machine state and starts over with a fresh VM of the
// same dimensions, seed and frame cap. No program is loaded afterwards.
func (x *Machine) Reset() {
	inner, err := vm.New(x.width, x.height, x.seed, x.frameCap)
	if err != nil {
		// Dimensions were validated at construction; they cannot fail now.
		panic(err)
	}
	x.m = inner
}
