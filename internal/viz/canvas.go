package viz

import (
	"math"
	"strings"

	"github.com/san-kum/ellipsim/internal/geometry"
)

// Braille Patterns: 2x4 dots per cell
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		for j := range c.Grid[i] {
			c.Grid[i][j] = 0x2800
		}
	}
	return c
}

// Set lights a pixel at (x, y) in sub-pixel coordinates. The canvas
// resolution in sub-pixels is (Width*2) x (Height*4).
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col := x / 2
	row := y / 4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

// Blob lights a 3x3 block, used for particle markers.
func (c *Canvas) Blob(x, y int) {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			c.Set(x+dx, y+dy)
		}
	}
}

// Clear resets the canvas to empty braille cells.
func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = 0x2800
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// Projection maps embedding coordinates onto the sub-pixel grid so
// that the full curve fits with a small margin. Terminal cells are
// roughly twice as tall as wide, which the braille density already
// compensates for.
type Projection struct {
	scaleX, scaleY float64
	cx, cy         int
}

func NewProjection(c *Canvas, e *geometry.Ellipse) Projection {
	cw := float64(c.Width * 2)
	ch := float64(c.Height * 4)
	margin := 0.92
	return Projection{
		scaleX: margin * cw / (2 * e.A),
		scaleY: margin * ch / (2 * e.B),
		cx:     c.Width,
		cy:     c.Height * 2,
	}
}

func (p Projection) Map(x, y float64) (int, int) {
	return p.cx + int(x*p.scaleX), p.cy - int(y*p.scaleY)
}

// DrawEllipse traces the curve by sampling the radius at fine angular
// resolution.
func (c *Canvas) DrawEllipse(e *geometry.Ellipse, p Projection) {
	const samples = 720
	for k := 0; k < samples; k++ {
		phi := 2 * math.Pi * float64(k) / samples
		r := e.Radius(phi)
		sin, cos := math.Sincos(phi)
		c.Set(p.Map(r*cos, r*sin))
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
