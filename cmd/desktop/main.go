// Command desktop runs a Pixardis program in a window. Each display frame
// it steps the machine a fixed number of cycles and blits the framebuffer,
// which is what makes `__delay`-paced animations run at a steady rate.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"

	"pixardis/pkg/pixardis"
)

type Game struct {
	machine        *pixardis.Machine
	screenImg      *ebiten.Image // reused framebuffer canvas
	rgba           []byte        // reused RGBA staging buffer
	cyclesPerFrame int
	scale          int
	showPrints     bool
	lastErr        string
}

func (g *Game) Update() error {
	if g.lastErr != "" || g.machine.Halted() {
		return nil
	}
	if res := g.machine.Step(g.cyclesPerFrame); !res.Success {
		g.lastErr = res.Error
		log.Printf("runtime error: %s", res.Error)
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	w, h := g.machine.Width(), g.machine.Height()
	if g.screenImg == nil {
		g.screenImg = ebiten.NewImage(w, h)
		g.rgba = make([]byte, 4*w*h)
	}

	fb := g.machine.Framebuffer()
	for i := 0; i < w*h; i++ {
		g.rgba[i*4+0] = fb[i*3+0]
		g.rgba[i*4+1] = fb[i*3+1]
		g.rgba[i*4+2] = fb[i*3+2]
		g.rgba[i*4+3] = 0xFF
	}
	g.screenImg.WritePixels(g.rgba)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(g.scale), float64(g.scale))
	screen.DrawImage(g.screenImg, op)

	if g.showPrints {
		lines := g.machine.PrintOutput()
		const maxLines = 8
		if len(lines) > maxLines {
			lines = lines[len(lines)-maxLines:]
		}
		face := basicfont.Face7x13
		for i, line := range lines {
			text.Draw(screen, line, face, 4, 14+i*14, color.White)
		}
	}
	if g.lastErr != "" {
		text.Draw(screen, g.lastErr, basicfont.Face7x13, 4, h*g.scale-6, color.RGBA{R: 0xFF, G: 0x40, B: 0x40, A: 0xFF})
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.machine.Width() * g.scale, g.machine.Height() * g.scale
}

func main() {
	width := flag.Int("width", 64, "display width in pixels")
	height := flag.Int("height", 48, "display height in pixels")
	scale := flag.Int("scale", 8, "window scale factor")
	cycles := flag.Int("cycles", 2000, "instruction cycles per display frame")
	seed := flag.Uint64("seed", 0, "RNG seed (0 selects the fixed default)")
	showAsm := flag.Bool("show-asm", false, "print the generated assembly")
	showPrints := flag.Bool("prints", true, "overlay the program's print output")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: desktop [flags] <program.pix>")
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

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(*width**scale, *height**scale)
	ebiten.SetWindowTitle("Pixardis")

	game := &Game{
		machine:        machine,
		cyclesPerFrame: *cycles,
		scale:          *scale,
		showPrints:     *showPrints,
	}
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
