// Command pixc is the compile-only front-end: Pixardis source in, stack
// machine assembly out.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pixardis/pkg/compiler"
)

func main() {
	outPath := flag.String("out", "", "output assembly file path (default: input with .pasm extension)")
	stdout := flag.Bool("stdout", false, "write the assembly to stdout instead of a file")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: pixc [flags] <program.pix>")
		flag.Usage()
		os.Exit(2)
	}
	inPath := flag.Arg(0)

	source, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read source file %q: %v\n", inPath, err)
		os.Exit(1)
	}

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

	if *stdout {
		fmt.Print(result.Assembly)
		return
	}

	output := *outPath
	if output == "" {
		ext := filepath.Ext(inPath)
		output = strings.TrimSuffix(inPath, ext) + ".pasm"
	}
	if err := os.WriteFile(output, []byte(result.Assembly), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write %q: %v\n", output, err)
		os.Exit(1)
	}
	fmt.Printf("compiled %s -> %s\n", inPath, output)
}
