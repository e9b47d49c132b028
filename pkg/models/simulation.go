package models

import (
	"fmt"
	"time"
)

// RunParams describes one batch of independent Hegselmann-Krause simulations.
// A "sample" is a full run from fresh random initial conditions to convergence;
// all samples of a batch share one generator stream, so a batch is fully
// reproducible from (NumAgents, MinConfidence, MaxConfidence, Seed).
type RunParams struct {
	NumAgents     int     `json:"numAgents"`
	MinConfidence float64 `json:"minConfidence"`
	MaxConfidence float64 `json:"maxConfidence"`
	Seed          uint64  `json:"seed"`
	Samples       int     `json:"samples"`
}

// Validate rejects parameter sets that cannot produce a meaningful simulation.
func (p RunParams) Validate() error {
	if p.NumAgents < 1 {
		return fmt.Errorf("numAgents must be >= 1, got %d", p.NumAgents)
	}
	if p.MinConfidence < 0 {
		return fmt.Errorf("minConfidence must be >= 0, got %g", p.MinConfidence)
	}
	if p.MaxConfidence < p.MinConfidence {
		return fmt.Errorf("maxConfidence (%g) must be >= minConfidence (%g)",
			p.MaxConfidence, p.MinConfidence)
	}
	if p.Samples < 1 {
		return fmt.Errorf("samples must be >= 1, got %d", p.Samples)
	}
	return nil
}

// Cluster is one final opinion cluster: the opinion of its first member and
// the number of agents that settled within the reporting tolerance of it.
type Cluster struct {
	Position float64 `json:"position"`
	Size     int     `json:"size"`
}

// RunResult is the outcome of a single converged sample.
type RunResult struct {
	RunID           string    `json:"runId"`
	Sample          int       `json:"sample"` // 0-based index within the batch
	Params          RunParams `json:"params"`
	Sweeps          int       `json:"sweeps"` // sweeps needed to converge
	Clusters        []Cluster `json:"clusters"`
	LargestFraction float64   `json:"largestFraction"` // size of largest cluster / numAgents
	CreatedAt       time.Time `json:"createdAt"`
}

// SweepDivergence reports how far apart the naive and tree sweep variants
// drifted for one agent after running side by side.
type SweepDivergence struct {
	Agent      int     `json:"agent"`
	Naive      float64 `json:"naive"`
	Tree       float64 `json:"tree"`
	Delta      float64 `json:"delta"`
	OnBoundary bool    `json:"onBoundary"` // another opinion sits exactly at this agent's radius
}
