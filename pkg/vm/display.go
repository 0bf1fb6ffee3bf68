package vm

import (
	"fmt"
	"image"
)

// Display is the machine's framebuffer: W×H packed RGB triples in row-major
// order with the origin at the top-left, ready for host blitting.
//
// The drawing methods take source coordinates, where (0,0) is the
// bottom-left corner and y grows upward; they flip to the internal layout
// with yi = (H-1) - y.
type Display struct {
	width  int
	height int
	pix    []byte // 3*width*height bytes, RGB
}

func NewDisplay(width, height int) (*Display, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("display dimensions must be positive, got %dx%d", width, height)
	}
	return &Display{
		width:  width,
		height: height,
		pix:    make([]byte, 3*width*height),
	}, nil
}

func (d *Display) Width() int  { return d.width }
func (d *Display) Height() int { return d.height }

// Pixels returns the backing RGB byte slice. The view is invalidated by the
// next drawing operation; hosts copy if they need a stable snapshot.
func (d *Display) Pixels() []byte { return d.pix }

func (d *Display) offset(x, y int) int {
	yi := (d.height - 1) - y
	return 3 * (yi*d.width + x)
}

func (d *Display) inBounds(x, y int) bool {
	return x >= 0 && x < d.width && y >= 0 && y < d.height
}

// Clear fills the whole framebuffer with one colour.
func (d *Display) Clear(c uint32) {
	r, g, b := byte(c>>16), byte(c>>8), byte(c)
	for i := 0; i < len(d.pix); i += 3 {
		d.pix[i] = r
		d.pix[i+1] = g
		d.pix[i+2] = b
	}
}

// WritePixel sets one pixel. Coordinates outside the display are an error.
func (d *Display) WritePixel(x, y int, c uint32) error {
	if !d.inBounds(x, y) {
		return fmt.Errorf("pixel (%d,%d) outside %dx%d display", x, y, d.width, d.height)
	}
	i := d.offset(x, y)
	d.pix[i] = byte(c >> 16)
	d.pix[i+1] = byte(c >> 8)
	d.pix[i+2] = byte(c)
	return nil
}

// ReadPixel returns the packed colour at (x,y).
func (d *Display) ReadPixel(x, y int) (uint32, error) {
	if !d.inBounds(x, y) {
		return 0, fmt.Errorf("pixel (%d,%d) outside %dx%d display", x, y, d.width, d.height)
	}
	i := d.offset(x, y)
	return uint32(d.pix[i])<<16 | uint32(d.pix[i+1])<<8 | uint32(d.pix[i+2]), nil
}

// WriteBox fills a w×h rectangle anchored at (x,y). The anchor must be in
// bounds; the filled area is clipped to the display.
func (d *Display) WriteBox(x, y, w, h int, c uint32) error {
	if !d.inBounds(x, y) {
		return fmt.Errorf("box anchor (%d,%d) outside %dx%d display", x, y, d.width, d.height)
	}
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			if d.inBounds(x+dx, y+dy) {
				_ = d.WritePixel(x+dx, y+dy, c)
			}
		}
	}
	return nil
}

// WriteLine draws a straight segment from (x0,y0) to (x1,y1) with Bresenham
// stepping. Both endpoints must be in bounds.
func (d *Display) WriteLine(x0, y0, x1, y1 int, c uint32) error {
	if !d.inBounds(x0, y0) {
		return fmt.Errorf("line start (%d,%d) outside %dx%d display", x0, y0, d.width, d.height)
	}
	if !d.inBounds(x1, y1) {
		return fmt.Errorf("line end (%d,%d) outside %dx%d display", x1, y1, d.width, d.height)
	}

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	x, y := x0, y0
	for {
		_ = d.WritePixel(x, y, c)
		if x == x1 && y == y1 {
			return nil
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Image returns the framebuffer as an *image.RGBA for host rendering.
func (d *Display) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, d.width, d.height))
	for i := 0; i < d.width*d.height; i++ {
		img.Pix[i*4+0] = d.pix[i*3+0]
		img.Pix[i*4+1] = d.pix[i*3+1]
		img.Pix[i*4+2] = d.pix[i*3+2]
		img.Pix[i*4+3] = 0xFF
	}
	return img
}
