package metrics

import (
	"math"
	"testing"
)

func TestLargestFraction(t *testing.T) {
	tests := []struct {
		name     string
		sizes    []int
		expected float64
	}{
		{"Consensus", []int{100}, 1.0},
		{"Even split", []int{50, 50}, 0.5},
		{"Dominant cluster", []int{75, 20, 5}, 0.75},
		{"Empty", nil, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LargestFraction(tt.sizes); math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("LargestFraction() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestEffectiveClusters(t *testing.T) {
	if got := EffectiveClusters([]int{100}); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("Consensus should score 1.0, got %v", got)
	}
	if got := EffectiveClusters([]int{25, 25, 25, 25}); math.Abs(got-4.0) > 1e-9 {
		t.Errorf("Four equal clusters should score 4.0, got %v", got)
	}
	// Uneven split scores between 1 and the cluster count.
	got := EffectiveClusters([]int{90, 10})
	if got <= 1.0 || got >= 2.0 {
		t.Errorf("Uneven split should score in (1, 2), got %v", got)
	}
}

func TestSizeEntropy(t *testing.T) {
	if got := SizeEntropy([]int{64}); got != 0 {
		t.Errorf("Consensus entropy = %v, want 0", got)
	}
	if got := SizeEntropy([]int{32, 32}); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("Two equal clusters: entropy = %v, want 1 bit", got)
	}
}

func TestAssignClusters(t *testing.T) {
	opinions := []float64{0.25, 0.250000001, 0.75, 0.25, 0.750000002}
	labels := AssignClusters(opinions, 1e-5)

	want := []int{0, 0, 1, 0, 1}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("labels = %v, want %v", labels, want)
		}
	}
}

func TestPartitionAgreement(t *testing.T) {
	identical := []int{0, 0, 1, 1, 2}
	if got := PartitionAgreement(identical, identical); got != 1.0 {
		t.Errorf("Identical partitions: agreement = %v, want 1.0", got)
	}

	a := []int{0, 0, 0, 1, 1, 1}
	b := []int{0, 1, 0, 1, 0, 1}
	if got := PartitionAgreement(a, b); got >= 1.0 {
		t.Errorf("Dissimilar partitions should score below 1.0, got %v", got)
	}

	// Label values are irrelevant, only the grouping structure counts.
	c := []int{5, 5, 9, 9}
	d := []int{1, 1, 0, 0}
	if got := PartitionAgreement(c, d); got != 1.0 {
		t.Errorf("Relabelled partitions: agreement = %v, want 1.0", got)
	}
}
