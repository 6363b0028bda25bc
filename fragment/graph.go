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

package fragment

import (
	"github.com/haihaba/sirius/chem"
)

// mzEpsilon is the numeric tolerance below which two peak masses are
// considered equal during edge construction.
const mzEpsilon = 1e-5

// A Vertex is one (peak, sub-formula) pair of the fragmentation graph.
type Vertex struct {
	ID      int
	Color   int
	Peak    *ProcessedPeak
	Formula chem.MolecularFormula
	// FragmentScore is the summed fragment scorer contribution of
	// this vertex; it is folded into the weight of every in-edge.
	FragmentScore float64
	Out           []*Edge
	In            []*Edge
}

// An Edge is a neutral loss between two fragments.
type Edge struct {
	Source *Vertex
	Target *Vertex
	Loss   chem.MolecularFormula
	Weight float64
}

// An FGraph is the colored fragmentation DAG for one candidate
// precursor formula. The root vertex is the candidate at the parent
// peak; every other vertex's formula is a proper subset of the root
// formula. Colors are peak indices; a feasible tree uses each color at
// most once.
type FGraph struct {
	Root      *Vertex
	Vertices  []*Vertex
	RootScore float64
	Colors    int
	Input     *ProcessedInput
}

// NumberOfEdges returns the total edge count.
func (g *FGraph) NumberOfEdges() (n int) {
	for _, v := range g.Vertices {
		n += len(v.Out)
	}
	return n
}

// BuildGraph constructs the fragmentation graph for one candidate
// precursor formula. Only peak decompositions that are subsets of the
// candidate are retained; edges connect strict supersets to subsets
// with descending m/z, the parent peak counting as above all others.
// Edge weights combine the loss scorers of the edge with the fragment
// scorers of its target vertex.
func (a *Analysis) BuildGraph(input *ProcessedInput, candidate Decomposition) *FGraph {
	root := &Vertex{
		ID:      0,
		Color:   input.ParentPeak.Index,
		Peak:    input.ParentPeak,
		Formula: candidate.Formula,
	}
	root.FragmentScore = a.fragmentScore(input.ParentPeak, candidate.Formula, input)
	g := &FGraph{
		Root:     root,
		Vertices: []*Vertex{root},
		Colors:   len(input.Peaks),
		Input:    input,
	}
	g.RootScore = a.rootScore(candidate.Formula, input) + root.FragmentScore + candidate.Score

	for _, peak := range input.Peaks {
		if peak.IsParent {
			continue
		}
		for _, d := range peak.Decompositions {
			if !d.Formula.ProperSubsetOf(candidate.Formula) || d.Formula.IsEmpty() {
				continue
			}
			v := &Vertex{
				ID:      len(g.Vertices),
				Color:   peak.Index,
				Peak:    peak,
				Formula: d.Formula,
			}
			v.FragmentScore = a.fragmentScore(peak, d.Formula, input)
			g.Vertices = append(g.Vertices, v)
		}
	}

	for _, u := range g.Vertices {
		for _, v := range g.Vertices {
			if u == v || v == root {
				continue
			}
			if u != root && v.Peak.Mz > u.Peak.Mz-mzEpsilon {
				continue
			}
			if !v.Formula.ProperSubsetOf(u.Formula) {
				continue
			}
			diff, ok := u.Formula.Subtract(v.Formula)
			if !ok || diff.IsEmpty() {
				continue
			}
			e := &Edge{
				Source: u,
				Target: v,
				Loss:   diff,
				Weight: a.lossScore(diff, input) + v.FragmentScore,
			}
			u.Out = append(u.Out, e)
			v.In = append(v.In, e)
		}
	}
	return g
}
