// sirius: molecular formula identification from MS and MS/MS data.
// Copyright (c) 2016-2018 haihaba.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.

// You should have received a copy of the GNU Lesser General Public
// License along with this program. If not, see
// <https://github.com/haihaba/sirius/blob/master/LICENSE.txt>.

package solver

import (
	"sort"
	"time"

	"github.com/willf/bitset"

	"github.com/haihaba/sirius/fragment"
)

// DPSolver solves the maximum colorful subtree problem exactly with a
// dynamic program over color subsets. The table size is exponential in
// the number of colors, so graphs beyond the configured color limit
// fall back to the insertion heuristic and are marked non-optimal.
// The heuristic tree also bounds the result from below: the exact
// solution is replaced by it when it scores higher.
type DPSolver struct{}

// a table entry describes the best subtree rooted at a fixed vertex
// using exactly the colors of its key mask; prev and child link the
// combination step for reconstruction
type dpEntry struct {
	score     float64
	edge      *fragment.Edge
	prevMask  uint64
	childMask uint64
}

// BuildTree implements TreeBuilder.
func (DPSolver) BuildTree(g *fragment.FGraph, opts Options) *fragment.FTree {
	feasible := insert(g, opts)
	if g.Colors > opts.maxDPColors() || g.Colors > 64 {
		if feasible.score < opts.LowerBound {
			return nil
		}
		return feasible.toTree(g, false)
	}
	s, complete := dpSolve(g, opts)
	if !complete {
		// timeout: keep the best feasible tree seen
		if feasible.score < opts.LowerBound {
			return nil
		}
		return feasible.toTree(g, false)
	}
	if s.score < feasible.score {
		s = feasible
	}
	if s.score < opts.LowerBound {
		return nil
	}
	return s.toTree(g, true)
}

// dpSolve runs the subset dynamic program. Vertices are processed in
// ascending peak mass order so that every edge target is settled
// before its sources. It reports complete=false when the deadline was
// exceeded.
func dpSolve(g *fragment.FGraph, opts Options) (solution, bool) {
	deadline := opts.deadline()
	order := make([]*fragment.Vertex, len(g.Vertices))
	copy(order, g.Vertices)
	sort.Slice(order, func(i, j int) bool {
		if order[i].Peak.Mz != order[j].Peak.Mz {
			return order[i].Peak.Mz < order[j].Peak.Mz
		}
		return order[i].ID < order[j].ID
	})

	tables := make(map[*fragment.Vertex]map[uint64]dpEntry, len(order))
	for _, v := range order {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return solution{}, false
		}
		table := map[uint64]dpEntry{1 << uint(v.Color): {score: 0}}
		for _, e := range v.Out {
			if opts.Forbidden[e] {
				continue
			}
			child := tables[e.Target]
			// iterate deterministic snapshots of both tables; ties in
			// score must resolve identically across runs
			masks := sortedMasks(table)
			childMasks := sortedMasks(child)
			for _, mask := range masks {
				base := table[mask]
				for _, childMask := range childMasks {
					childEntry := child[childMask]
					if mask&childMask != 0 {
						continue
					}
					combined := mask | childMask
					score := base.score + childEntry.score + e.Weight
					if old, ok := table[combined]; !ok || score > old.score {
						table[combined] = dpEntry{score: score, edge: e, prevMask: mask, childMask: childMask}
					}
				}
			}
		}
		tables[v] = table
	}

	rootTable := tables[g.Root]
	bestMask, found := uint64(0), false
	for mask, entry := range rootTable {
		if !found || entry.score > rootTable[bestMask].score || (entry.score == rootTable[bestMask].score && mask < bestMask) {
			bestMask, found = mask, true
		}
	}
	s := emptySolution(g)
	if !found {
		return s, true
	}
	s.score += rootTable[bestMask].score
	collectEdges(tables, g.Root, bestMask, &s)
	sanityCheckColors(g, s)
	return s, true
}

func sortedMasks(table map[uint64]dpEntry) []uint64 {
	masks := make([]uint64, 0, len(table))
	for mask := range table {
		masks = append(masks, mask)
	}
	sort.Slice(masks, func(i, j int) bool { return masks[i] < masks[j] })
	return masks
}

// collectEdges walks the combination chain of (v, mask) and appends
// all chosen edges, recursing into attached child subtrees.
func collectEdges(tables map[*fragment.Vertex]map[uint64]dpEntry, v *fragment.Vertex, mask uint64, s *solution) {
	for {
		entry := tables[v][mask]
		if entry.edge == nil {
			return
		}
		s.edges = append(s.edges, entry.edge)
		collectEdges(tables, entry.edge.Target, entry.childMask, s)
		mask = entry.prevMask
	}
}

// sanityCheckColors asserts that no color is used twice in the
// solution.
func sanityCheckColors(g *fragment.FGraph, s solution) {
	used := bitset.New(uint(g.Colors))
	used.Set(uint(g.Root.Color))
	for _, e := range s.edges {
		c := uint(e.Target.Color)
		if used.Test(c) {
			panic("colorful subtree uses a color twice")
		}
		used.Set(c)
	}
}
