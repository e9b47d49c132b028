package simulation

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/sociophysics/hk-engine/pkg/models"
)

// ClusterTolerance is the absolute opinion distance below which two agents
// are reported as belonging to the same final cluster. It is chosen far
// smaller than any physically meaningful opinion gap.
const ClusterTolerance = 1e-5

// Clusters groups the current population into opinion clusters using greedy
// single-pass single-linkage: each agent joins the first cluster whose
// representative (first-inserted member) lies within ClusterTolerance, else
// it opens a new cluster. The result is an ephemeral view of the current
// state, order-dependent when clusters themselves are within tolerance of
// each other.
func (s *Simulator) Clusters() []models.Cluster {
	var clusters []models.Cluster
	for i := range s.agents {
		opinion := s.agents[i].Opinion
		joined := false
		for c := range clusters {
			if math.Abs(opinion-clusters[c].Position) < ClusterTolerance {
				clusters[c].Size++
				joined = true
				break
			}
		}
		if !joined {
			clusters = append(clusters, models.Cluster{Position: opinion, Size: 1})
		}
	}
	return clusters
}

// ClusterSizes returns only the member counts of Clusters. Their sum always
// equals the population size.
func (s *Simulator) ClusterSizes() []int {
	clusters := s.Clusters()
	sizes := make([]int, len(clusters))
	for i, c := range clusters {
		sizes[i] = c.Size
	}
	return sizes
}

// WriteClusterSizes appends the final cluster statistics of one converged run
// to w in the two-line record format consumed by downstream analysis: a
// comment line with each cluster's representative opinion, then a line with
// the positionally aligned cluster sizes.
//
//	# 0.2501 0.7498
//	312 712
//
// I/O errors are returned to the caller unretried.
func (s *Simulator) WriteClusterSizes(w io.Writer) error {
	clusters := s.Clusters()

	positions := make([]string, len(clusters))
	sizes := make([]string, len(clusters))
	for i, c := range clusters {
		positions[i] = strconv.FormatFloat(c.Position, 'g', -1, 64)
		sizes[i] = strconv.Itoa(c.Size)
	}

	if _, err := fmt.Fprintf(w, "# %s\n", strings.Join(positions, " ")); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s\n", strings.Join(sizes, " "))
	return err
}
