// Package simulation implements the Hegselmann-Krause bounded-confidence
// opinion model with heterogeneous confidences and synchronous update.
//
// Two interchangeable sweep implementations are provided:
//
//	SweepNaive iterates over all agents to find those within the confidence
//	           interval, O(n) per agent and O(n^2) per sweep.
//	SweepTree  answers the same interval query through the ordered opinion
//	           index, O(log n) per agent and O(n log n) per sweep.
//
// Both use the closed interval |opinion_i - opinion_j| <= confidence_i, so
// for identical initial conditions they produce numerically equivalent
// trajectories and can be cross-checked against each other.
package simulation

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/sociophysics/hk-engine/internal/opinionset"
)

// Agent holds a scalar opinion and a fixed interaction radius.
// The opinion is rewritten once per sweep; the confidence is drawn once at
// initialization and never changes.
type Agent struct {
	Opinion    float64 `json:"opinion"`
	Confidence float64 `json:"confidence"`
}

// Simulator owns one realization of the model: the agent population, the
// ordered opinion index, the seeded generator, and the sweep counters.
// It is not safe for concurrent use.
type Simulator struct {
	numAgents     int
	agents        []Agent
	minConfidence float64
	maxConfidence float64

	// opinions mirrors the multiset of current opinion values. Population
	// and index are always rebuilt together; Reset re-establishes the pair.
	opinions *opinionset.Set

	// AccumulatedChange is the total absolute opinion movement during the
	// most recently completed sweep, the convergence signal consumed by
	// drivers. It is overwritten at the start of every sweep and may be
	// zeroed externally between sweeps.
	AccumulatedChange float64

	steps int
	rng   *rand.Rand
}

// New constructs a simulator with n agents, opinions uniform in [0,1) and
// confidences uniform in [minConfidence, maxConfidence), drawn from a PCG
// stream seeded with seed. Two simulators built with identical arguments
// produce bit-identical populations and trajectories.
func New(n int, minConfidence, maxConfidence float64, seed uint64) *Simulator {
	s := &Simulator{
		numAgents:     n,
		minConfidence: minConfidence,
		maxConfidence: maxConfidence,
		opinions:      opinionset.New(),
		rng:           rand.New(rand.NewPCG(seed, seed)),
	}
	s.Reset()
	return s
}

// NewFromAgents constructs a simulator around an explicitly given population,
// bypassing random initialization. Used for deterministic scenarios in tests
// and the comparison API. Reset is not meaningful on such a simulator.
func NewFromAgents(agents []Agent) *Simulator {
	s := &Simulator{
		numAgents: len(agents),
		agents:    append([]Agent(nil), agents...),
		opinions:  opinionset.New(),
		rng:       rand.New(rand.NewPCG(0, 0)),
	}
	s.rebuildIndex()
	return s
}

// Reset redraws every agent from the continuing generator stream (it does not
// reseed), rebuilds the opinion index, and zeroes the sweep counters. The
// simulator is then ready for a fresh sample.
func (s *Simulator) Reset() {
	scale := func(x, lo, hi float64) float64 {
		return x*(hi-lo) + lo
	}

	s.agents = s.agents[:0]
	for i := 0; i < s.numAgents; i++ {
		s.agents = append(s.agents, Agent{
			Opinion:    s.rng.Float64(),
			Confidence: scale(s.rng.Float64(), s.minConfidence, s.maxConfidence),
		})
	}

	s.rebuildIndex()
	s.AccumulatedChange = 0
	s.steps = 0
}

// rebuildIndex clears the opinion index and reinserts the whole population.
func (s *Simulator) rebuildIndex() {
	s.opinions.Clear()
	for i := range s.agents {
		s.opinions.Insert(s.agents[i].Opinion)
	}
	if s.opinions.Size() != s.numAgents {
		panic(fmt.Sprintf("simulation: index holds %d opinions for %d agents",
			s.opinions.Size(), s.numAgents))
	}
}

// newOpinionsNaive computes every agent's next opinion by scanning the full
// population. The self-opinion is always within its own closed interval, so
// the neighbor count is at least 1 and the average is always defined.
func (s *Simulator) newOpinionsNaive() []float64 {
	next := make([]float64, len(s.agents))
	for i := range s.agents {
		a := &s.agents[i]
		var sum float64
		var count int
		for j := range s.agents {
			if math.Abs(a.Opinion-s.agents[j].Opinion) <= a.Confidence {
				sum += s.agents[j].Opinion
				count++
			}
		}
		next[i] = sum / float64(count)
	}
	return next
}

// newOpinionsTree computes every agent's next opinion through a range
// aggregation over the ordered index.
func (s *Simulator) newOpinionsTree() []float64 {
	next := make([]float64, len(s.agents))
	for i := range s.agents {
		a := &s.agents[i]
		sum, count := s.opinions.RangeAggregate(a.Opinion-a.Confidence, a.Opinion+a.Confidence)
		next[i] = sum / float64(count)
	}
	return next
}

// apply writes back a vector of new opinions computed from the pre-sweep
// snapshot. Index maintenance is skipped for bit-identical values, which is
// the common case once the system has converged.
func (s *Simulator) apply(next []float64) {
	s.AccumulatedChange = 0
	for i, newOpinion := range next {
		oldOpinion := s.agents[i].Opinion
		if oldOpinion != newOpinion {
			s.opinions.Remove(oldOpinion)
			s.opinions.Insert(newOpinion)
		}
		s.AccumulatedChange += math.Abs(oldOpinion - newOpinion)
		s.agents[i].Opinion = newOpinion
	}
	s.steps++
}

// SweepNaive performs one synchronous update using the O(n^2) reference path.
func (s *Simulator) SweepNaive() {
	s.apply(s.newOpinionsNaive())
}

// SweepTree performs one synchronous update using the indexed path.
func (s *Simulator) SweepTree() {
	s.apply(s.newOpinionsTree())
}

// Sweep performs one synchronous update using the production (tree) path.
func (s *Simulator) Sweep() {
	s.SweepTree()
}

// Steps returns the number of completed sweeps since the last Reset.
func (s *Simulator) Steps() int {
	return s.steps
}

// NumAgents returns the configured population size.
func (s *Simulator) NumAgents() int {
	return s.numAgents
}

// IndexSize returns the total multiplicity held by the opinion index.
func (s *Simulator) IndexSize() int {
	return s.opinions.Size()
}

// Opinions returns a copy of the current opinion vector in agent order.
func (s *Simulator) Opinions() []float64 {
	out := make([]float64, len(s.agents))
	for i := range s.agents {
		out[i] = s.agents[i].Opinion
	}
	return out
}

// Agents returns a copy of the current population.
func (s *Simulator) Agents() []Agent {
	return append([]Agent(nil), s.agents...)
}
