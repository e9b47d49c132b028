// Package opinionset provides the ordered aggregation index at the heart of
// the O(n log n) sweep: a multiset of float64 opinion values with
// multiplicities, supporting sum-and-count queries over a closed interval.
//
// Keys are compared by exact value. Two opinions that differ by less than
// machine epsilon but are not bit-identical occupy distinct keys; the sweep
// engine relies on this when it skips index maintenance for unchanged agents.
// NaN keys cannot occur: opinions are drawn finite and every update is a
// finite average of finite values, so a plain < comparator is sufficient.
package opinionset

import (
	"fmt"
	"math"

	"github.com/google/btree"
)

// btreeDegree trades pointer chasing against node copy cost. 16 is a
// reasonable middle ground for the population sizes this engine targets.
const btreeDegree = 16

type entry struct {
	opinion float64
	count   int
}

// Set is an ordered multiset of opinion values.
// It is not safe for concurrent use; the Simulator owns it exclusively.
type Set struct {
	tree *btree.BTreeG[entry]
	size int
}

// New returns an empty opinion set.
func New() *Set {
	return &Set{
		tree: btree.NewG(btreeDegree, func(a, b entry) bool {
			return a.opinion < b.opinion
		}),
	}
}

// Insert adds one occurrence of v, creating the key if absent.
func (s *Set) Insert(v float64) {
	e, ok := s.tree.Get(entry{opinion: v})
	if !ok {
		e = entry{opinion: v}
	}
	e.count++
	s.tree.ReplaceOrInsert(e)
	s.size++
}

// Remove deletes one occurrence of v, pruning the key when its multiplicity
// reaches zero. Removing a value that is not present means the index has
// desynchronized from the population; that is a programming defect, not a
// runtime condition, so Remove panics rather than returning an error.
func (s *Set) Remove(v float64) {
	e, ok := s.tree.Get(entry{opinion: v})
	if !ok || e.count < 1 {
		panic(fmt.Sprintf("opinionset: removed opinion %v was not in the index", v))
	}
	e.count--
	if e.count == 0 {
		s.tree.Delete(e)
	} else {
		s.tree.ReplaceOrInsert(e)
	}
	s.size--
}

// RangeAggregate returns the multiplicity-weighted sum and the total
// multiplicity of all keys in the closed interval [lo, hi]. An empty range
// yields (0, 0); callers dividing by the count must guard that case.
// Cost is logarithmic in the number of distinct keys plus linear in the
// distinct keys inside the interval, independent of total multiplicity.
func (s *Set) RangeAggregate(lo, hi float64) (sum float64, count int) {
	s.tree.AscendGreaterOrEqual(entry{opinion: lo}, func(e entry) bool {
		if e.opinion > hi {
			return false
		}
		sum += float64(e.count) * e.opinion
		count += e.count
		return true
	})
	return sum, count
}

// Size returns the total multiplicity across all keys. After initialization
// and after every completed sweep this equals the population size.
func (s *Set) Size() int {
	return s.size
}

// Distinct returns the number of distinct opinion values currently held.
func (s *Set) Distinct() int {
	return s.tree.Len()
}

// Clear empties the set.
func (s *Set) Clear() {
	s.tree.Clear(false)
	s.size = 0
}

// Min returns the smallest key, or NaN if the set is empty.
func (s *Set) Min() float64 {
	e, ok := s.tree.Min()
	if !ok {
		return math.NaN()
	}
	return e.opinion
}

// Max returns the largest key, or NaN if the set is empty.
func (s *Set) Max() float64 {
	e, ok := s.tree.Max()
	if !ok {
		return math.NaN()
	}
	return e.opinion
}
