// Package storage persists run output for the downstream analysis
// tooling: per-run directories holding metadata, the snapshot
// trajectory matrix, and the conservation series.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/san-kum/ellipsim/internal/geometry"
	"github.com/san-kum/ellipsim/internal/sim"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata is the run-constant record written next to the series.
type RunMetadata struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	A            float64   `json:"a"`
	B            float64   `json:"b"`
	Eccentricity float64   `json:"eccentricity"`
	N            int       `json:"n"`
	Integrator   string    `json:"integrator"`
	Seed         int64     `json:"seed"`

	TotalCollisions    int     `json:"total_collisions"`
	FinalEnergyError   float64 `json:"final_energy_error"`
	FinalMomentumError float64 `json:"final_momentum_error"`
	StepsTaken         int     `json:"steps_taken"`
	WallSeconds        float64 `json:"wall_seconds"`
	Reason             string  `json:"reason"`
}

// Save writes one run directory: metadata.json, trajectory.csv with
// the unwrapped and wrapped angles plus embedding coordinates, and
// conservation.csv with the per-snapshot totals. Returns the run ID.
func (s *Store) Save(integrator string, seed int64, result *sim.Result) (string, error) {
	runID := fmt.Sprintf("run_%d", time.Now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:                 runID,
		Timestamp:          time.Now(),
		A:                  result.A,
		B:                  result.B,
		Eccentricity:       result.Eccentricity,
		N:                  result.N,
		Integrator:         integrator,
		Seed:               seed,
		TotalCollisions:    result.TotalCollisions,
		FinalEnergyError:   result.FinalEnergyError,
		FinalMomentumError: result.FinalMomentumError,
		StepsTaken:         result.StepsTaken,
		WallSeconds:        result.WallTime.Seconds(),
		Reason:             string(result.Reason),
	}
	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}

	if err := s.writeTrajectory(filepath.Join(runDir, "trajectory.csv"), result); err != nil {
		return "", err
	}
	if err := s.writeConservation(filepath.Join(runDir, "conservation.csv"), result); err != nil {
		return "", err
	}
	return runID, nil
}

func (s *Store) writeTrajectory(path string, result *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	e, err := geometry.New(result.A, result.B)
	if err != nil {
		return err
	}

	header := []string{"time"}
	for i := 0; i < result.N; i++ {
		header = append(header,
			fmt.Sprintf("phi%d", i),
			fmt.Sprintf("phidot%d", i),
			fmt.Sprintf("x%d", i),
			fmt.Sprintf("y%d", i),
		)
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for k := range result.Times {
		row := []string{formatFloat(result.Times[k])}
		for i := 0; i < result.N; i++ {
			phi := result.Phi[k][i]
			r := e.Radius(phi)
			sin, cos := math.Sincos(phi)
			row = append(row,
				formatFloat(phi),
				formatFloat(result.PhiDot[k][i]),
				formatFloat(r*cos),
				formatFloat(r*sin),
			)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) writeConservation(path string, result *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"time", "total_energy", "total_momentum", "collisions"}); err != nil {
		return err
	}
	for k := range result.Times {
		row := []string{
			formatFloat(result.Times[k]),
			formatFloat(result.Energy[k]),
			formatFloat(result.Momentum[k]),
			strconv.Itoa(result.Collisions[k]),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// List returns metadata for every stored run, skipping unreadable
// entries the way a campaign directory accumulates them.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	return runs, nil
}

// Load reads one run's metadata.
func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadTrajectory reads back the snapshot series: times and the per
// snapshot angle and velocity rows. The embedding columns are
// derivable and skipped.
func (s *Store) LoadTrajectory(runID string) (times []float64, phi, phidot [][]float64, err error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "trajectory.csv"))
	if err != nil {
		return nil, nil, nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, nil, err
	}
	if len(rows) < 2 {
		return nil, nil, nil, fmt.Errorf("storage: empty trajectory in %s", runID)
	}
	n := (len(rows[0]) - 1) / 4

	for k, row := range rows {
		if k == 0 {
			continue
		}
		if len(row) != 1+4*n {
			return nil, nil, nil, fmt.Errorf("storage: malformed trajectory row %d in %s", k, runID)
		}
		t, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			return nil, nil, nil, err
		}
		phis := make([]float64, n)
		dots := make([]float64, n)
		for i := 0; i < n; i++ {
			if phis[i], err = strconv.ParseFloat(row[1+4*i], 64); err != nil {
				return nil, nil, nil, err
			}
			if dots[i], err = strconv.ParseFloat(row[2+4*i], 64); err != nil {
				return nil, nil, nil, err
			}
		}
		times = append(times, t)
		phi = append(phi, phis)
		phidot = append(phidot, dots)
	}
	return times, phi, phidot, nil
}

// LoadConservation reads back the conservation series for plotting
// and analysis.
func (s *Store) LoadConservation(runID string) (times, energy, momentum []float64, collisions []int, err error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "conservation.csv"))
	if err != nil {
		return nil, nil, nil, nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	for k, row := range rows {
		if k == 0 || len(row) < 4 {
			continue
		}
		t, err1 := strconv.ParseFloat(row[0], 64)
		e, err2 := strconv.ParseFloat(row[1], 64)
		p, err3 := strconv.ParseFloat(row[2], 64)
		c, err4 := strconv.Atoi(row[3])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			return nil, nil, nil, nil, fmt.Errorf("storage: malformed conservation row %d in %s", k, runID)
		}
		times = append(times, t)
		energy = append(energy, e)
		momentum = append(momentum, p)
		collisions = append(collisions, c)
	}
	return times, energy, momentum, collisions, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 17, 64)
}
