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

// Package solver computes maximum colorful subtrees of fragmentation
// graphs: the maximum-weight rooted subtree using each color at most
// once. It provides an exact dynamic program over color subsets, a
// greedy insertion heuristic for large graphs and lower bounds, and a
// lazy k-best enumeration.
package solver

import (
	"log"
	"math"
	"time"

	"github.com/haihaba/sirius/fragment"
)

// Options configure a single tree computation.
type Options struct {
	// LowerBound discards solutions scoring below it. Use
	// DefaultOptions for an unbounded search.
	LowerBound float64
	// Timeout bounds the computation; zero means unbounded. On
	// timeout the best feasible tree seen so far is returned, marked
	// non-optimal.
	Timeout time.Duration
	// MaxDPColors bounds the color count for the exact dynamic
	// program; larger graphs are solved heuristically. Zero selects
	// the default of 18.
	MaxDPColors int
	// Forbidden edges are excluded from the solution; used by the
	// k-best enumeration.
	Forbidden map[*fragment.Edge]bool
}

// DefaultOptions returns options with no lower bound, no timeout and
// the default color limit.
func DefaultOptions() Options {
	return Options{LowerBound: math.Inf(-1)}
}

func (o Options) maxDPColors() int {
	if o.MaxDPColors == 0 {
		return 18
	}
	return o.MaxDPColors
}

func (o Options) deadline() time.Time {
	if o.Timeout == 0 {
		return time.Time{}
	}
	return time.Now().Add(o.Timeout)
}

// A TreeBuilder computes an optimal colorful subtree of a
// fragmentation graph. Implementations are stateless; a builder may be
// shared between goroutines.
type TreeBuilder interface {
	// BuildTree returns a feasible tree with maximal overall score of
	// at least the configured lower bound, or nil when no such tree
	// exists.
	BuildTree(g *fragment.FGraph, opts Options) *fragment.FTree
}

// a solution is a set of chosen graph edges forming an arborescence
// rooted at the graph root
type solution struct {
	edges []*fragment.Edge
	score float64 // overall: root score plus edge weights
}

func emptySolution(g *fragment.FGraph) solution {
	return solution{score: g.RootScore}
}

// toTree materializes a solution into a fragmentation tree and
// verifies its score against the source graph.
func (s solution) toTree(g *fragment.FGraph, optimal bool) *fragment.FTree {
	fragments := make(map[*fragment.Vertex]*fragment.TreeFragment)
	root := &fragment.TreeFragment{Formula: g.Root.Formula, Peak: g.Root.Peak}
	fragments[g.Root] = root
	// edges are attached parents first; iterate until settled
	remaining := append([]*fragment.Edge(nil), s.edges...)
	for len(remaining) > 0 {
		attached := false
		rest := remaining[:0]
		for _, e := range remaining {
			parent, ok := fragments[e.Source]
			if !ok {
				rest = append(rest, e)
				continue
			}
			child := &fragment.TreeFragment{
				Formula:        e.Target.Formula,
				Peak:           e.Target.Peak,
				IncomingLoss:   e.Loss,
				IncomingWeight: e.Weight,
			}
			parent.Children = append(parent.Children, child)
			fragments[e.Target] = child
			attached = true
		}
		if !attached {
			log.Panic("colorful subtree solution is not connected")
		}
		remaining = append([]*fragment.Edge(nil), rest...)
	}
	tree := &fragment.FTree{
		Root:    root,
		IonType: g.Input.IonType,
		Scoring: fragment.TreeScoring{
			RootScore:    g.RootScore,
			OverallScore: s.score,
		},
		Optimal: optimal,
	}
	verify(g, s, tree)
	return tree
}

// verify recomputes the solution score by re-summing the chosen edge
// weights against the source graph. A mismatch is a fatal internal
// error.
func verify(g *fragment.FGraph, s solution, tree *fragment.FTree) {
	sum := g.RootScore
	for _, e := range s.edges {
		sum += e.Weight
	}
	if math.Abs(sum-tree.Scoring.OverallScore) >= 1e-9 {
		log.Panicf("colorful subtree score mismatch: solution %v, recomputed %v", tree.Scoring.OverallScore, sum)
	}
	tree.VerifyScoring()
}
