// Package config loads confidence-scan experiment definitions for the batch
// CLI from YAML files.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Experiment describes a scan over the confidence axis: for each confidence
// value, a batch of samples is simulated with every agent sharing that
// confidence, and the mean largest-cluster fraction is reported. This is the
// standard way of locating the consensus transition of the model.
type Experiment struct {
	// NumAgents is the population size for every point of the scan.
	NumAgents int `yaml:"num_agents"`

	// Samples is the number of independent runs per confidence value.
	Samples int `yaml:"samples"`

	// Seed is the base seed; every scan point derives its own seed from it
	// so points are independent but the whole experiment stays reproducible.
	Seed uint64 `yaml:"seed"`

	// OutDir, when set, receives one raw output file per scan point in the
	// shared record format, named out_n<agents>_e<confidence>.dat.
	OutDir string `yaml:"out_dir"`

	Scan Scan `yaml:"scan"`
}

// Scan defines the confidence values visited: Steps evenly spaced points
// from From to To inclusive.
type Scan struct {
	From  float64 `yaml:"from"`
	To    float64 `yaml:"to"`
	Steps int     `yaml:"steps"`
}

// Load reads and validates an experiment file, applying defaults for
// omitted fields.
func Load(path string) (*Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read experiment file: %w", err)
	}

	exp := &Experiment{
		NumAgents: 1024,
		Samples:   100,
		Scan:      Scan{From: 0, To: 0.5, Steps: 51},
	}
	if err := yaml.Unmarshal(data, exp); err != nil {
		return nil, fmt.Errorf("parse experiment file: %w", err)
	}

	if err := exp.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return exp, nil
}

func (e *Experiment) validate() error {
	if e.NumAgents < 1 {
		return fmt.Errorf("num_agents must be >= 1, got %d", e.NumAgents)
	}
	if e.Samples < 1 {
		return fmt.Errorf("samples must be >= 1, got %d", e.Samples)
	}
	if e.Scan.Steps < 1 {
		return fmt.Errorf("scan.steps must be >= 1, got %d", e.Scan.Steps)
	}
	if e.Scan.From < 0 || e.Scan.To < e.Scan.From {
		return fmt.Errorf("scan range [%g, %g] is invalid", e.Scan.From, e.Scan.To)
	}
	return nil
}

// Points returns the confidence values of the scan, evenly spaced and
// inclusive of both endpoints. A single-step scan yields just From.
func (e *Experiment) Points() []float64 {
	points := make([]float64, e.Scan.Steps)
	if e.Scan.Steps == 1 {
		points[0] = e.Scan.From
		return points
	}

	span := e.Scan.To - e.Scan.From
	for i := range points {
		points[i] = e.Scan.From + span*float64(i)/float64(e.Scan.Steps-1)
	}
	return points
}
