// Package export renders stored runs as standalone SVG images.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/ellipsim/internal/geometry"
)

// frame maps embedding coordinates into an SVG viewport with a 10%
// margin around the curve.
type frame struct {
	width, height  float64
	scaleX, scaleY float64
}

func newFrame(e *geometry.Ellipse, width, height int) frame {
	return frame{
		width:  float64(width),
		height: float64(height),
		scaleX: 0.9 * float64(width) / (2 * e.A),
		scaleY: 0.9 * float64(height) / (2 * e.B),
	}
}

func (f frame) mapPoint(x, y float64) (float64, float64) {
	return f.width/2 + x*f.scaleX, f.height/2 - y*f.scaleY
}

// SnapshotSVG draws the curve and one frame of particle positions.
// Particle markers are scaled by the physical radius but never drop
// below a visible minimum.
func SnapshotSVG(e *geometry.Ellipse, phis []float64, radius float64, width, height int) string {
	f := newFrame(e, width, height)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	sb.WriteString(`<path fill="none" stroke="#444466" stroke-width="1.5" d="`)
	writeEllipsePath(&sb, e, f)
	sb.WriteString("\"/>\n")

	marker := radius * f.scaleX
	if marker < 2.5 {
		marker = 2.5
	}
	sb.WriteString(`<g fill="#00ff88">` + "\n")
	for _, phi := range phis {
		r := e.Radius(phi)
		sin, cos := math.Sincos(phi)
		cx, cy := f.mapPoint(r*cos, r*sin)
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f"/>
`, cx, cy, marker))
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// TrajectorySVG draws the embedded path of each particle across the
// stored snapshot series, with the curve underneath. With dense
// trajectories the paths tile the whole curve; the value is in sparse
// early-time frames and in low-N runs.
func TrajectorySVG(e *geometry.Ellipse, phi [][]float64, width, height int) string {
	f := newFrame(e, width, height)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	sb.WriteString(`<path fill="none" stroke="#333355" stroke-width="1" d="`)
	writeEllipsePath(&sb, e, f)
	sb.WriteString("\"/>\n")

	if len(phi) > 0 {
		n := len(phi[0])
		for i := 0; i < n; i++ {
			hue := 360 * i / n
			sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="hsl(%d,80%%,60%%)" stroke-width="1.2" d="M`, hue))
			for k := range phi {
				r := e.Radius(phi[k][i])
				sin, cos := math.Sincos(phi[k][i])
				x, y := f.mapPoint(r*cos, r*sin)
				if k == 0 {
					sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
				} else {
					sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
				}
			}
			sb.WriteString("\"/>\n")
		}
	}

	sb.WriteString("</svg>")
	return sb.String()
}

func writeEllipsePath(sb *strings.Builder, e *geometry.Ellipse, f frame) {
	const samples = 360
	for k := 0; k <= samples; k++ {
		phi := 2 * math.Pi * float64(k) / samples
		r := e.Radius(phi)
		sin, cos := math.Sincos(phi)
		x, y := f.mapPoint(r*cos, r*sin)
		if k == 0 {
			sb.WriteString(fmt.Sprintf("M%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}
	sb.WriteString(" Z")
}
