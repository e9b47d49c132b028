// Package metrics provides summary statistics over final opinion-cluster
// configurations, used by run reporting and by the naive/tree parity harness.
package metrics

import "math"

// LargestFraction returns the size of the largest cluster divided by the
// total population, the order parameter <S> used when scanning the model
// over confidence values. Returns 0 for an empty partition.
func LargestFraction(sizes []int) float64 {
	total := 0
	largest := 0
	for _, s := range sizes {
		total += s
		if s > largest {
			largest = s
		}
	}
	if total == 0 {
		return 0
	}
	return float64(largest) / float64(total)
}

// EffectiveClusters returns the participation ratio 1 / sum(p_i^2) of the
// cluster-size distribution. A population split into k equal clusters scores
// exactly k; a consensus population scores 1.
func EffectiveClusters(sizes []int) float64 {
	total := 0
	for _, s := range sizes {
		total += s
	}
	if total == 0 {
		return 0
	}

	var sumSq float64
	for _, s := range sizes {
		p := float64(s) / float64(total)
		sumSq += p * p
	}
	if sumSq == 0 {
		return 0
	}
	return 1.0 / sumSq
}

// SizeEntropy returns the Shannon entropy (in bits) of the cluster-size
// distribution. 0 for consensus, log2(k) for k equal clusters.
func SizeEntropy(sizes []int) float64 {
	total := 0
	for _, s := range sizes {
		total += s
	}
	if total == 0 {
		return 0
	}

	var ent float64
	for _, s := range sizes {
		if s == 0 {
			continue
		}
		p := float64(s) / float64(total)
		ent -= p * math.Log2(p)
	}
	return ent
}

// AssignClusters labels each opinion with a cluster index using the same
// greedy single-linkage rule as the cluster reporter: an opinion joins the
// first cluster whose representative lies within tol, else it opens a new
// one. The labels form a partition usable with PartitionAgreement.
func AssignClusters(opinions []float64, tol float64) []int {
	labels := make([]int, len(opinions))
	var reps []float64

	for i, o := range opinions {
		assigned := -1
		for c, rep := range reps {
			if math.Abs(o-rep) < tol {
				assigned = c
				break
			}
		}
		if assigned < 0 {
			assigned = len(reps)
			reps = append(reps, o)
		}
		labels[i] = assigned
	}
	return labels
}

// PartitionAgreement computes the Rand index between two partitions of the
// same population: the fraction of agent pairs on which the partitions agree
// (both co-clustered or both separated). 1 means identical structure.
// Used to quantify how far the naive and indexed sweep variants drift apart.
func PartitionAgreement(a, b []int) float64 {
	n := len(a)
	if n != len(b) || n < 2 {
		return 1.0
	}

	agreeing := 0
	pairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sameA := a[i] == a[j]
			sameB := b[i] == b[j]
			if sameA == sameB {
				agreeing++
			}
			pairs++
		}
	}
	return float64(agreeing) / float64(pairs)
}
