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

package sirius

import (
	"sort"
	"sync/atomic"

	"github.com/exascience/pargo/parallel"

	"github.com/haihaba/sirius/fragment"
	"github.com/haihaba/sirius/solver"
)

// computeTrees computes the optimal tree of every candidate precursor
// formula in a worker pool and returns them sorted by descending
// overall score, ties broken by ascending root formula string. Nil
// trees (infeasible candidates) are dropped. The parallel workers are
// joined before ranking, so the result is deterministic.
func (s *Sirius) computeTrees(analysis *fragment.Analysis, input *fragment.ProcessedInput, candidates []fragment.Decomposition) []*fragment.FTree {
	if len(candidates) == 0 {
		return nil
	}
	trees := make([]*fragment.FTree, len(candidates))
	opts := solver.DefaultOptions()
	opts.Timeout = s.Profile.TreeTimeout
	opts.MaxDPColors = s.Profile.MaxDPColors
	workers := s.Profile.Parallelism
	if workers <= 0 {
		workers = 3
	}
	var done int64
	s.progress.Init(len(candidates))
	parallel.Range(0, len(candidates), workers, func(low, high int) {
		for i := low; i < high; i++ {
			graph := analysis.BuildGraph(input, candidates[i])
			trees[i] = s.builder.BuildTree(graph, opts)
			current := int(atomic.AddInt64(&done, 1))
			s.progress.Update(current, len(candidates), candidates[i].Formula.String())
		}
	})
	s.progress.Finished()
	kept := trees[:0]
	for _, t := range trees {
		if t != nil {
			kept = append(kept, t)
		}
	}
	sortTrees(kept)
	return kept
}

// sortTrees orders trees by descending overall score; equal scores are
// broken by the canonical root formula string.
func sortTrees(trees []*fragment.FTree) {
	sort.SliceStable(trees, func(i, j int) bool {
		si, sj := trees[i].Scoring.OverallScore, trees[j].Scoring.OverallScore
		if si != sj {
			return si > sj
		}
		return trees[i].Root.Formula.String() < trees[j].Root.Formula.String()
	})
}

// truncateTrees bounds a sorted tree list to the given size.
func truncateTrees(trees []*fragment.FTree, max int) []*fragment.FTree {
	if len(trees) > max {
		return trees[:max]
	}
	return trees
}
