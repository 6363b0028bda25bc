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
	"math"

	"github.com/willf/bitset"

	"github.com/haihaba/sirius/fragment"
)

// InsertionSolver grows a tree greedily: starting from the root, it
// repeatedly attaches the best-scoring edge from the current tree to a
// vertex of an unused color, as long as the attachment improves the
// score. The result is feasible but not necessarily optimal; it serves
// as a fast stand-alone solver for large graphs and as the lower bound
// provider of the exact solver.
type InsertionSolver struct{}

// BuildTree implements TreeBuilder.
func (InsertionSolver) BuildTree(g *fragment.FGraph, opts Options) *fragment.FTree {
	s := insert(g, opts)
	if s.score < opts.LowerBound {
		return nil
	}
	return s.toTree(g, false)
}

func insert(g *fragment.FGraph, opts Options) solution {
	used := bitset.New(uint(g.Colors))
	used.Set(uint(g.Root.Color))
	inTree := map[*fragment.Vertex]bool{g.Root: true}
	treeVertices := []*fragment.Vertex{g.Root}
	s := emptySolution(g)
	for {
		var best *fragment.Edge
		bestWeight := math.Inf(-1)
		for _, v := range treeVertices {
			for _, e := range v.Out {
				if inTree[e.Target] || used.Test(uint(e.Target.Color)) || opts.Forbidden[e] {
					continue
				}
				if e.Weight > bestWeight || (e.Weight == bestWeight && e.Target.ID < best.Target.ID) {
					best = e
					bestWeight = e.Weight
				}
			}
		}
		if best == nil || bestWeight <= 0 {
			return s
		}
		s.edges = append(s.edges, best)
		s.score += bestWeight
		inTree[best.Target] = true
		treeVertices = append(treeVertices, best.Target)
		used.Set(uint(best.Target.Color))
	}
}
