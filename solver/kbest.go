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
	"container/heap"

	"github.com/haihaba/sirius/fragment"
)

// A KBestIterator lazily enumerates distinct trees of one graph in
// non-increasing overall score order. Trees are enumerated by
// re-solving with the edges of already reported trees forbidden one at
// a time and deduplicating by tree signature.
type KBestIterator struct {
	graph     *fragment.FGraph
	builder   TreeBuilder
	opts      Options
	remaining int
	seen      map[string]bool
	queue     candidateQueue
}

type kbestCandidate struct {
	tree      *fragment.FTree
	forbidden map[*fragment.Edge]bool
}

type candidateQueue []*kbestCandidate

func (q candidateQueue) Len() int { return len(q) }
func (q candidateQueue) Less(i, j int) bool {
	si, sj := q[i].tree.Scoring.OverallScore, q[j].tree.Scoring.OverallScore
	if si != sj {
		return si > sj
	}
	return q[i].tree.Signature() < q[j].tree.Signature()
}
func (q candidateQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *candidateQueue) Push(x interface{}) {
	*q = append(*q, x.(*kbestCandidate))
}
func (q *candidateQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// KBest returns an iterator over up to k distinct trees of the graph.
func KBest(g *fragment.FGraph, k int, builder TreeBuilder, opts Options) *KBestIterator {
	it := &KBestIterator{
		graph:     g,
		builder:   builder,
		opts:      opts,
		remaining: k,
		seen:      make(map[string]bool),
	}
	if tree := builder.BuildTree(g, opts); tree != nil {
		heap.Push(&it.queue, &kbestCandidate{tree: tree, forbidden: opts.Forbidden})
	}
	return it
}

// Next returns the next tree, or nil when the enumeration is
// exhausted.
func (it *KBestIterator) Next() *fragment.FTree {
	for it.remaining > 0 && it.queue.Len() > 0 {
		candidate := heap.Pop(&it.queue).(*kbestCandidate)
		it.expand(candidate)
		signature := candidate.tree.Signature()
		if it.seen[signature] {
			continue
		}
		it.seen[signature] = true
		it.remaining--
		return candidate.tree
	}
	return nil
}

// expand pushes one subproblem per edge of the candidate's tree, each
// forbidding that edge on top of the candidate's forbidden set.
func (it *KBestIterator) expand(candidate *kbestCandidate) {
	edges := treeEdges(it.graph, candidate.tree)
	for _, e := range edges {
		forbidden := make(map[*fragment.Edge]bool, len(candidate.forbidden)+1)
		for k := range candidate.forbidden {
			forbidden[k] = true
		}
		forbidden[e] = true
		opts := it.opts
		opts.Forbidden = forbidden
		if tree := it.builder.BuildTree(it.graph, opts); tree != nil {
			heap.Push(&it.queue, &kbestCandidate{tree: tree, forbidden: forbidden})
		}
	}
}

// treeEdges maps the fragments of a tree back to the graph edges they
// were built from.
func treeEdges(g *fragment.FGraph, tree *fragment.FTree) []*fragment.Edge {
	vertexOf := make(map[*fragment.TreeFragment]*fragment.Vertex)
	vertexOf[tree.Root] = g.Root
	var edges []*fragment.Edge
	var walk func(f *fragment.TreeFragment)
	walk = func(f *fragment.TreeFragment) {
		u := vertexOf[f]
		for _, child := range f.Children {
			for _, e := range u.Out {
				if e.Target.Peak == child.Peak && e.Target.Formula.Equals(child.Formula) {
					vertexOf[child] = e.Target
					edges = append(edges, e)
					break
				}
			}
			walk(child)
		}
	}
	walk(tree.Root)
	return edges
}
