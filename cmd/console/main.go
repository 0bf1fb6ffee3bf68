// Command console compiles a Pixardis program and runs it headless,
// printing the program's print output to stdout when it halts.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"pixardis/pkg/pixardis"
)

func main() {
	width := flag.Int("width", 64, "display width in pixels")
	height := flag.Int("height", 48, "display height in pixels")
	seed := flag.Uint64("seed", 0, "RNG seed (0 selects the fixed default)")
	cycles := flag.Int("cycles", 10_000_000, "maximum instruction cycles")
	showAsm := flag.Bool("show-asm", false, "print the generated assembly before running")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: console [flags] <program.pix>")
		flag.Usage()
		os.Exit(2)
	}

	source, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("failed to read source file: %v", err)
	}

	result := pixardis.Compile(string(source))
	if !result.Success {
		for i, msg := range result.Errors {
			if i > 0 {
				fmt.Fprintln(os.Stderr)
			}
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(1)
	}
	if *showAsm {
		fmt.Print(result.Assembly)
	}

	machine, err := pixardis.NewMachine(*width, *height, pixardis.WithSeed(*seed))
	if err != nil {
		log.Fatalf("failed to create machine: %v", err)
	}
	if err := machine.LoadProgram(result.Assembly); err != nil {
		log.Fatal(err)
	}

	runErr := machine.Run(*cycles)
	for _, line := range machine.PrintOutput() {
		fmt.Println(line)
	}
	if runErr != nil {
		log.Fatalf("run failed: %v", runErr)
	}
}
