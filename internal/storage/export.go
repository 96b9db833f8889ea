package storage

import (
	"io"
	"os"
	"path/filepath"

	"github.com/san-kum/gravsim/internal/json"
	"github.com/san-kum/gravsim/internal/snapshot"
)

type ExportData struct {
	Run     RunMetadata    `json:"run"`
	Samples []ExportSample `json:"samples"`
}

type ExportSample struct {
	Step   int64        `json:"step"`
	Time   float64      `json:"time"`
	Bodies []ExportBody `json:"bodies"`
}

type ExportBody struct {
	ID   int        `json:"id"`
	Pos  [2]float64 `json:"pos"`
	Vel  [2]float64 `json:"vel"`
	Mass float64    `json:"mass"`
}

// ExportJSON writes a run and its samples as one indented JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	samples, err := s.LoadSamples(meta.ID, 0)
	if err != nil {
		return err
	}

	data := ExportData{
		Run:     *meta,
		Samples: make([]ExportSample, len(samples)),
	}
	for i, snap := range samples {
		data.Samples[i] = exportSample(snap)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportCSV copies the raw sample table of a run to w.
func (s *Store) ExportCSV(w io.Writer, runID string) error {
	id, err := s.resolve(runID)
	if err != nil {
		return err
	}
	f, err := os.Open(filepath.Join(s.baseDir, id, statesFile))
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}

func exportSample(snap *snapshot.Snapshot) ExportSample {
	out := ExportSample{
		Step:   snap.Step,
		Time:   snap.Time,
		Bodies: make([]ExportBody, len(snap.Bodies)),
	}
	for i, b := range snap.Bodies {
		out.Bodies[i] = ExportBody{
			ID:   int(b.ID),
			Pos:  [2]float64{b.Pos.X, b.Pos.Y},
			Vel:  [2]float64{b.Vel.X, b.Vel.Y},
			Mass: b.Mass,
		}
	}
	return out
}
