package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pixardis/pkg/asm"
	"pixardis/pkg/compiler"
	"pixardis/pkg/pixardis"
)

func main() {
	inPath := flag.String("in", "", "input source (.pix) or assembly (.pasm) file path")
	outPath := flag.String("out", "", "output assembly file path (default: input with .pasm extension)")
	runProgram := flag.Bool("run", false, "run the compiled program headless")
	width := flag.Int("width", 64, "display width in pixels")
	height := flag.Int("height", 48, "display height in pixels")
	seed := flag.Uint64("seed", 0, "RNG seed (0 selects the fixed default)")
	cycles := flag.Int("cycles", 10_000_000, "maximum instruction cycles when running")
	showAsm := flag.Bool("show-asm", false, "print the generated assembly")
	listing := flag.Bool("listing", false, "print a numbered instruction listing")
	flag.Parse()

	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: provide -in <file>, optionally with -run")
		flag.Usage()
		os.Exit(2)
	}

	source, err := os.ReadFile(*inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read input file %q: %v\n", *inPath, err)
		os.Exit(1)
	}

	assembly := string(source)
	if strings.HasSuffix(*inPath, ".pix") {
		result := compiler.Compile(string(source))
		if !result.Success {
			for i, msg := range result.Errors {
				if i > 0 {
					fmt.Fprintln(os.Stderr)
				}
				fmt.Fprintln(os.Stderr, msg)
			}
			os.Exit(1)
		}
		assembly = result.Assembly

		output := *outPath
		if output == "" {
			output = defaultOutputPath(*inPath)
		}
		if err := os.WriteFile(output, []byte(assembly), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write assembly file %q: %v\n", output, err)
			os.Exit(1)
		}
		fmt.Printf("compiled %s -> %s\n", *inPath, output)
	}

	if *showAsm {
		fmt.Print(assembly)
	}
	if *listing {
		program, err := asm.Assemble(assembly)
		if err != nil {
			fmt.Fprintf(os.Stderr, "assembly failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(asm.Listing(program))
	}

	if !*runProgram {
		return
	}

	machine, err := pixardis.NewMachine(*width, *height, pixardis.WithSeed(*seed))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create machine: %v\n", err)
		os.Exit(1)
	}
	if err := machine.LoadProgram(assembly); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := machine.Run(*cycles); err != nil {
		for _, line := range machine.PrintOutput() {
			fmt.Println(line)
		}
		fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
		os.Exit(1)
	}
	for _, line := range machine.PrintOutput() {
		fmt.Println(line)
	}
}

func defaultOutputPath(inPath string) string {
	ext := filepath.Ext(inPath)
	if ext == "" {
		return inPath + ".pasm"
	}
	return strings.TrimSuffix(inPath, ext) + ".pasm"
}
