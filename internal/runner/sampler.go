// Package runner executes batches of independent simulations to convergence,
// tracking progress for the API and broadcasting convergence alerts.
package runner

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sociophysics/hk-engine/internal/db"
	"github.com/sociophysics/hk-engine/internal/metrics"
	"github.com/sociophysics/hk-engine/internal/simulation"
	"github.com/sociophysics/hk-engine/pkg/models"
)

// ConvergenceThreshold is the accumulated-change level below which a sample
// counts as converged.
const ConvergenceThreshold = 1e-4

// MaxSweeps bounds a single sample. Reasonable confidence ranges converge in
// tens to hundreds of sweeps; hitting the cap indicates pathological
// parameters and is reported as an error rather than looping forever.
const MaxSweeps = 100000

// ConvergenceAlert is emitted when one sample reaches convergence.
type ConvergenceAlert struct {
	RunID           string  `json:"runId"`
	Sample          int     `json:"sample"`
	Sweeps          int     `json:"sweeps"`
	NumClusters     int     `json:"numClusters"`
	LargestFraction float64 `json:"largestFraction"`
	Timestamp       string  `json:"timestamp"`
}

// Progress represents the runner's current state for the API.
type Progress struct {
	IsRunning        bool  `json:"isRunning"`
	CurrentSample    int64 `json:"currentSample"`
	TotalSamples     int64 `json:"totalSamples"`
	CompletedSamples int64 `json:"completedSamples"`
	TotalSweeps      int64 `json:"totalSweeps"`
}

// SampleRunner runs one batch at a time in the background. Progress counters
// are atomic so they can be read while a batch is executing.
type SampleRunner struct {
	dbStore   *db.PostgresStore
	alertFunc func(alert ConvergenceAlert) // Optional broadcast callback

	isRunning        atomic.Bool
	currentSample    atomic.Int64
	totalSamples     atomic.Int64
	completedSamples atomic.Int64
	totalSweeps      atomic.Int64
}

func NewSampleRunner(dbStore *db.PostgresStore, alertFunc func(ConvergenceAlert)) *SampleRunner {
	return &SampleRunner{
		dbStore:   dbStore,
		alertFunc: alertFunc,
	}
}

// GetProgress returns the current batch progress (thread-safe).
func (r *SampleRunner) GetProgress() Progress {
	return Progress{
		IsRunning:        r.isRunning.Load(),
		CurrentSample:    r.currentSample.Load(),
		TotalSamples:     r.totalSamples.Load(),
		CompletedSamples: r.completedSamples.Load(),
		TotalSweeps:      r.totalSweeps.Load(),
	}
}

// RunBatch launches a batch asynchronously and returns immediately. Only one
// batch runs at a time; a second request while one is active is rejected.
func (r *SampleRunner) RunBatch(ctx context.Context, params models.RunParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if !r.isRunning.CompareAndSwap(false, true) {
		return fmt.Errorf("a batch is already in progress")
	}

	r.currentSample.Store(0)
	r.completedSamples.Store(0)
	r.totalSweeps.Store(0)
	r.totalSamples.Store(int64(params.Samples))

	go func() {
		defer r.isRunning.Store(false)

		log.Printf("[Runner] Starting batch: n=%d confidence=[%g, %g) seed=%d samples=%d",
			params.NumAgents, params.MinConfidence, params.MaxConfidence,
			params.Seed, params.Samples)

		err := RunSamples(ctx, params, nil, func(result models.RunResult) {
			r.currentSample.Store(int64(result.Sample))
			r.completedSamples.Add(1)
			r.totalSweeps.Add(int64(result.Sweeps))

			if r.dbStore != nil {
				if err := r.dbStore.SaveRun(ctx, result); err != nil {
					log.Printf("[Runner] Failed to persist sample %d: %v", result.Sample, err)
				}
			}

			if r.alertFunc != nil {
				r.alertFunc(ConvergenceAlert{
					RunID:           result.RunID,
					Sample:          result.Sample,
					Sweeps:          result.Sweeps,
					NumClusters:     len(result.Clusters),
					LargestFraction: result.LargestFraction,
					Timestamp:       result.CreatedAt.UTC().Format(time.RFC3339),
				})
			}
		})
		if err != nil {
			log.Printf("[Runner] Batch aborted: %v", err)
			return
		}

		log.Printf("[Runner] Batch complete: %d samples, %d total sweeps",
			r.completedSamples.Load(), r.totalSweeps.Load())
	}()

	return nil
}

// RunSamples executes params.Samples independent simulations synchronously,
// each from fresh initial conditions drawn from one continuing generator
// stream. When out is non-nil, every converged sample appends its record in
// the shared output format:
//
//	# sweeps: <count>
//	# <cluster positions>
//	<cluster sizes>
//
// onResult, if non-nil, is invoked after each converged sample.
func RunSamples(ctx context.Context, params models.RunParams, out io.Writer, onResult func(models.RunResult)) error {
	if err := params.Validate(); err != nil {
		return err
	}

	sim := simulation.New(params.NumAgents, params.MinConfidence, params.MaxConfidence, params.Seed)

	for sample := 0; sample < params.Samples; sample++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if sample > 0 {
			sim.Reset()
		}

		sweeps := 0
		for {
			sim.Sweep()
			sweeps++
			if sim.AccumulatedChange < ConvergenceThreshold {
				break
			}
			if sweeps >= MaxSweeps {
				return fmt.Errorf("sample %d did not converge within %d sweeps (last change %g)",
					sample, MaxSweeps, sim.AccumulatedChange)
			}
		}

		if out != nil {
			if _, err := fmt.Fprintf(out, "# sweeps: %d\n", sweeps); err != nil {
				return err
			}
			if err := sim.WriteClusterSizes(out); err != nil {
				return err
			}
		}

		if onResult != nil {
			clusters := sim.Clusters()
			onResult(models.RunResult{
				RunID:           uuid.NewString(),
				Sample:          sample,
				Params:          params,
				Sweeps:          sweeps,
				Clusters:        clusters,
				LargestFraction: metrics.LargestFraction(sim.ClusterSizes()),
				CreatedAt:       time.Now(),
			})
		}
	}

	return nil
}
