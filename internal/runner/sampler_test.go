package runner

import (
	"context"
	"strings"
	"testing"

	"github.com/sociophysics/hk-engine/pkg/models"
)

func TestRunSamplesOutputFormat(t *testing.T) {
	params := models.RunParams{
		NumAgents:     50,
		MinConfidence: 0.25,
		MaxConfidence: 0.25,
		Seed:          1,
		Samples:       2,
	}

	var buf strings.Builder
	var results []models.RunResult
	err := RunSamples(context.Background(), params, &buf, func(r models.RunResult) {
		results = append(results, r)
	})
	if err != nil {
		t.Fatalf("RunSamples: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("Expected 6 output lines (3 per sample), got %d:\n%s", len(lines), buf.String())
	}
	for sample := 0; sample < 2; sample++ {
		if !strings.HasPrefix(lines[sample*3], "# sweeps: ") {
			t.Errorf("Line %d = %q, want sweep-count comment", sample*3, lines[sample*3])
		}
		if !strings.HasPrefix(lines[sample*3+1], "# ") {
			t.Errorf("Line %d = %q, want cluster-position comment", sample*3+1, lines[sample*3+1])
		}
		if strings.HasPrefix(lines[sample*3+2], "#") {
			t.Errorf("Line %d = %q, want plain cluster sizes", sample*3+2, lines[sample*3+2])
		}
	}

	for _, r := range results {
		total := 0
		for _, c := range r.Clusters {
			total += c.Size
		}
		if total != params.NumAgents {
			t.Errorf("Sample %d: cluster mass %d, want %d", r.Sample, total, params.NumAgents)
		}
		if r.Sweeps < 1 {
			t.Errorf("Sample %d converged in %d sweeps", r.Sample, r.Sweeps)
		}
		if r.RunID == "" {
			t.Errorf("Sample %d has no run id", r.Sample)
		}
	}
}

func TestRunSamplesDeterministic(t *testing.T) {
	params := models.RunParams{
		NumAgents:     64,
		MinConfidence: 0.2,
		MaxConfidence: 0.3,
		Seed:          13,
		Samples:       3,
	}

	var a, b strings.Builder
	if err := RunSamples(context.Background(), params, &a, nil); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if err := RunSamples(context.Background(), params, &b, nil); err != nil {
		t.Fatalf("second batch: %v", err)
	}

	if a.String() != b.String() {
		t.Error("Identical parameters produced different batch output")
	}
}

func TestRunSamplesRejectsBadParams(t *testing.T) {
	err := RunSamples(context.Background(), models.RunParams{NumAgents: 0, Samples: 1}, nil, nil)
	if err == nil {
		t.Error("Expected validation error for zero agents")
	}
}

func TestRunSamplesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	params := models.RunParams{
		NumAgents:     10,
		MinConfidence: 0.3,
		MaxConfidence: 0.3,
		Seed:          1,
		Samples:       5,
	}
	if err := RunSamples(ctx, params, nil, nil); err == nil {
		t.Error("Expected context error for cancelled batch")
	}
}

func TestRunBatchRejectsConcurrentBatches(t *testing.T) {
	r := NewSampleRunner(nil, nil)
	r.isRunning.Store(true) // simulate an active batch
	defer r.isRunning.Store(false)

	params := models.RunParams{
		NumAgents:     10,
		MinConfidence: 0.3,
		MaxConfidence: 0.3,
		Seed:          1,
		Samples:       1,
	}
	if err := r.RunBatch(context.Background(), params); err == nil {
		t.Error("Expected rejection while a batch is in progress")
	}
}
