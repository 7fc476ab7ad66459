package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/ellipsim/internal/sim"
)

// ExportData is the flat JSON view of one run for external tooling.
type ExportData struct {
	Metadata   RunMetadata `json:"metadata"`
	Times      []float64   `json:"times"`
	Phi        [][]float64 `json:"phi"`
	PhiDot     [][]float64 `json:"phidot"`
	Energy     []float64   `json:"total_energy"`
	Momentum   []float64   `json:"total_momentum"`
	Collisions []int       `json:"collisions"`
}

// ExportJSON writes the full result to w.
func ExportJSON(w io.Writer, meta RunMetadata, result *sim.Result) error {
	data := ExportData{
		Metadata:   meta,
		Times:      result.Times,
		Phi:        result.Phi,
		PhiDot:     result.PhiDot,
		Energy:     result.Energy,
		Momentum:   result.Momentum,
		Collisions: result.Collisions,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// ExportRunJSON re-exports a stored run in full: metadata plus the
// trajectory and conservation series read back from disk.
func (s *Store) ExportRunJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	times, phi, phidot, err := s.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	_, energy, momentum, collisions, err := s.LoadConservation(runID)
	if err != nil {
		return err
	}
	return ExportJSON(w, *meta, &sim.Result{
		Times:      times,
		Phi:        phi,
		PhiDot:     phidot,
		Energy:     energy,
		Momentum:   momentum,
		Collisions: collisions,
	})
}
