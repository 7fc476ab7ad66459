package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"
)

// ConservationChart renders the stored energy and momentum series of
// a finished run as stacked drift charts.
func ConservationChart(times, energy, momentum []float64, width, height int) string {
	if len(energy) == 0 {
		return "no conservation data"
	}

	eDrift := make([]float64, len(energy))
	pDrift := make([]float64, len(momentum))
	for i := range energy {
		eDrift[i] = math.Abs(energy[i] - energy[0])
	}
	for i := range momentum {
		pDrift[i] = math.Abs(momentum[i] - momentum[0])
	}

	var b strings.Builder
	b.WriteString(asciigraph.Plot(eDrift,
		asciigraph.Height(height), asciigraph.Width(width),
		asciigraph.Caption(fmt.Sprintf("|E - E0|  (E0 = %.6g)", energy[0]))))
	b.WriteString("\n\n")
	b.WriteString(asciigraph.Plot(pDrift,
		asciigraph.Height(height), asciigraph.Width(width),
		asciigraph.Caption(fmt.Sprintf("|P - P0|  (P0 = %.6g)", momentum[0]))))
	b.WriteString("\n")
	if len(times) > 0 {
		b.WriteString(fmt.Sprintf("\nt ∈ [%.3g, %.3g]s over %d snapshots\n",
			times[0], times[len(times)-1], len(times)))
	}
	return b.String()
}
