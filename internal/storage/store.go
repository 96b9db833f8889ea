package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/json"
	"github.com/san-kum/gravsim/internal/sim"
	"github.com/san-kum/gravsim/internal/snapshot"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
)

var ErrRunNotFound = errors.New("storage: run not found")

var csvHeader = []string{"time", "step", "id", "x", "y", "vx", "vy", "mass"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	G           float64            `json:"g"`
	Softening   float64            `json:"softening"`
	Dt          float64            `json:"dt"`
	Duration    float64            `json:"duration"`
	Integrator  string             `json:"integrator"`
	Evaluator   string             `json:"evaluator"`
	Theta       float64            `json:"theta,omitempty"`
	Bodies      int                `json:"bodies"`
	Steps       int64              `json:"steps"`
	Status      string             `json:"status"`
	Error       string             `json:"error,omitempty"`
	EnergyDrift float64            `json:"energy_drift"`
	Metrics     map[string]float64 `json:"metrics"`
}

// Save writes a batch run under a fresh run ID. runErr is the error the run
// finished with, if any; its partial samples are still stored.
func (s *Store) Save(cfg *config.Config, result *sim.Result, runErr error) (string, error) {
	runID := uuid.NewString()
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:          runID,
		Name:        cfg.Name,
		Timestamp:   time.Now().UTC(),
		Seed:        cfg.Seed,
		G:           cfg.G,
		Softening:   cfg.Softening,
		Dt:          cfg.Dt,
		Duration:    cfg.Duration,
		Integrator:  cfg.Integrator,
		Evaluator:   cfg.Evaluator,
		Steps:       result.StepsTaken,
		Status:      "completed",
		EnergyDrift: result.EnergyDrift,
		Metrics:     result.Metrics,
	}
	if cfg.Evaluator == "barneshut" {
		meta.Theta = cfg.Theta
	}
	if first := firstSample(result); first != nil {
		meta.Bodies = first.Len()
	}
	if runErr != nil {
		meta.Status = "failed"
		if errors.Is(runErr, dynamo.ErrNumericalInstability) {
			meta.Status = "faulted"
		}
		meta.Error = runErr.Error()
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(runDir, metadataFile), data, 0644); err != nil {
		return "", err
	}

	if err := writeSamples(filepath.Join(runDir, statesFile), result.Samples); err != nil {
		return "", err
	}
	return runID, nil
}

func writeSamples(path string, samples []*snapshot.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, snap := range samples {
		t := formatFloat(snap.Time)
		step := strconv.FormatInt(snap.Step, 10)
		for _, b := range snap.Bodies {
			row := []string{
				t, step, strconv.Itoa(int(b.ID)),
				formatFloat(b.Pos.X), formatFloat(b.Pos.Y),
				formatFloat(b.Vel.X), formatFloat(b.Vel.Y),
				formatFloat(b.Mass),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// List returns all stored runs, newest first.
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
		meta, err := s.readMeta(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

// Load returns the metadata of runID. A unique prefix of the ID is enough.
func (s *Store) Load(runID string) (*RunMetadata, error) {
	id, err := s.resolve(runID)
	if err != nil {
		return nil, err
	}
	return s.readMeta(id)
}

// LoadSamples reads the sampled states of a run, one snapshot per
// recorded step, in file order.
func (s *Store) LoadSamples(runID string, radiusScale float64) ([]*snapshot.Snapshot, error) {
	id, err := s.resolve(runID)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(s.baseDir, id, statesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(csvHeader)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", statesFile, err)
	}
	if len(records) < 2 {
		return []*snapshot.Snapshot{}, nil
	}
	if radiusScale <= 0 {
		radiusScale = snapshot.DefaultRadiusScale
	}

	samples := make([]*snapshot.Snapshot, 0)
	var cur *snapshot.Snapshot
	for i, rec := range records[1:] {
		vals, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", statesFile, i+2, err)
		}
		step := int64(vals[1])
		if cur == nil || cur.Step != step {
			cur = &snapshot.Snapshot{Step: step, Time: vals[0]}
			samples = append(samples, cur)
		}
		cur.Bodies = append(cur.Bodies, snapshot.BodyView{
			ID:     dynamo.Handle(vals[2]),
			Pos:    r2.Vec{X: vals[3], Y: vals[4]},
			Vel:    r2.Vec{X: vals[5], Y: vals[6]},
			Mass:   vals[7],
			Radius: snapshot.Radius(vals[7], radiusScale),
		})
	}
	return samples, nil
}

func (s *Store) readMeta(id string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, id, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) resolve(prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("%w: empty run id", ErrRunNotFound)
	}
	if _, err := os.Stat(filepath.Join(s.baseDir, prefix, metadataFile)); err == nil {
		return prefix, nil
	}
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	}
	var match string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			if match != "" {
				return "", fmt.Errorf("storage: run id prefix %q is ambiguous", prefix)
			}
			match = e.Name()
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	}
	return match, nil
}

func parseRecord(rec []string) ([]float64, error) {
	vals := make([]float64, len(rec))
	for i, field := range rec {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", csvHeader[i], err)
		}
		vals[i] = v
	}
	return vals, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func firstSample(result *sim.Result) *snapshot.Snapshot {
	if len(result.Samples) == 0 {
		return nil
	}
	return result.Samples[0]
}
