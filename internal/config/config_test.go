package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeExperiment(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "experiment.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write experiment file: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeExperiment(t, "seed: 7\n")

	exp, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if exp.NumAgents != 1024 {
		t.Errorf("NumAgents = %d, want default 1024", exp.NumAgents)
	}
	if exp.Samples != 100 {
		t.Errorf("Samples = %d, want default 100", exp.Samples)
	}
	if exp.Seed != 7 {
		t.Errorf("Seed = %d, want 7", exp.Seed)
	}
	if exp.Scan.Steps != 51 {
		t.Errorf("Scan.Steps = %d, want default 51", exp.Scan.Steps)
	}
}

func TestLoadFullExperiment(t *testing.T) {
	path := writeExperiment(t, `
num_agents: 256
samples: 10
seed: 3
out_dir: data
scan:
  from: 0.1
  to: 0.3
  steps: 5
`)

	exp, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := []float64{0.1, 0.15, 0.2, 0.25, 0.3}
	points := exp.Points()
	if len(points) != len(want) {
		t.Fatalf("Points() returned %d values, want %d", len(points), len(want))
	}
	for i := range want {
		if math.Abs(points[i]-want[i]) > 1e-12 {
			t.Errorf("point %d = %v, want %v", i, points[i], want[i])
		}
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero agents", "num_agents: 0\n"},
		{"zero samples", "samples: 0\n"},
		{"reversed scan", "scan:\n  from: 0.5\n  to: 0.1\n  steps: 3\n"},
		{"negative confidence", "scan:\n  from: -0.1\n  to: 0.5\n  steps: 3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeExperiment(t, tt.content)); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestSingleStepScan(t *testing.T) {
	path := writeExperiment(t, "scan:\n  from: 0.25\n  to: 0.25\n  steps: 1\n")

	exp, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	points := exp.Points()
	if len(points) != 1 || points[0] != 0.25 {
		t.Errorf("Points() = %v, want [0.25]", points)
	}
}
