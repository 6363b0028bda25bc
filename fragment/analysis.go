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
	"log"
	"math"

	"github.com/haihaba/sirius/chem"
	"github.com/haihaba/sirius/ms"
)

// An Analysis bundles the measurement profile with the scorer
// configuration for fragmentation pattern analysis. Analyses are
// values: WithTreeSize returns modified copies, so a single analysis
// can be shared between concurrent computations.
type Analysis struct {
	Profile ms.MeasurementProfile

	FragmentScorers []FragmentScorer
	LossScorers     []LossScorer
	RootScorers     []RootScorer

	// TreeSize is a constant bonus per fragment. Raising it makes the
	// solver prefer larger trees; the identification pipeline uses it
	// as its adaptive knob. It is threaded as a value rather than
	// mutated in place.
	TreeSize float64

	// NoiseThreshold drops merged peaks below this relative
	// intensity.
	NoiseThreshold float64
	// MaxPeaks bounds the number of peaks kept after merging.
	MaxPeaks    int
	MergePolicy ms.MergePolicy
}

// NewAnalysis returns an analysis with the default scorer set for the
// given measurement profile.
func NewAnalysis(profile ms.MeasurementProfile) *Analysis {
	return &Analysis{
		Profile: profile,
		FragmentScorers: []FragmentScorer{
			MassDeviationScorer{},
			PeakIntensityScorer{Scale: 3},
		},
		LossScorers: []LossScorer{
			DefaultLossSizeScorer(),
			DefaultCommonLossScorer(),
			LossRDBEScorer{Penalty: -1},
			DefaultFreeRadicalScorer(),
		},
		RootScorers: []RootScorer{
			DefaultChemicalPriorScorer(),
		},
		NoiseThreshold: 0.002,
		MaxPeaks:       60,
		MergePolicy:    ms.MergeSum,
	}
}

// WithTreeSize returns a copy of the analysis with the given tree size
// bonus.
func (a *Analysis) WithTreeSize(treeSize float64) *Analysis {
	c := *a
	c.TreeSize = treeSize
	return &c
}

func (a *Analysis) fragmentScore(peak *ProcessedPeak, formula chem.MolecularFormula, input *ProcessedInput) float64 {
	score := a.TreeSize
	for _, s := range a.FragmentScorers {
		score += s.ScoreFragment(peak, formula, input)
	}
	return score
}

func (a *Analysis) lossScore(loss chem.MolecularFormula, input *ProcessedInput) float64 {
	score := 0.0
	for _, s := range a.LossScorers {
		score += s.ScoreLoss(loss, input)
	}
	return score
}

func (a *Analysis) rootScore(formula chem.MolecularFormula, input *ProcessedInput) float64 {
	score := 0.0
	for _, s := range a.RootScorers {
		score += s.ScoreRoot(formula, input)
	}
	return score
}

// RecalculateScore recomputes the tree scoring from scratch: edge
// weights from the scorer configuration, root score, and the overall
// sum. Additional category scores are preserved. The stored incoming
// weights of the tree are updated in place.
func (a *Analysis) RecalculateScore(input *ProcessedInput, tree *FTree) {
	var walk func(f *TreeFragment)
	edgeSum := 0.0
	walk = func(f *TreeFragment) {
		for _, child := range f.Children {
			loss, ok := f.Formula.Subtract(child.Formula)
			if !ok || loss.IsEmpty() {
				log.Panicf("fragmentation tree invariant violated: %v is no proper subset of %v", child.Formula, f.Formula)
			}
			child.IncomingLoss = loss
			child.IncomingWeight = a.lossScore(loss, input) + a.fragmentScore(child.Peak, child.Formula, input)
			edgeSum += child.IncomingWeight
			walk(child)
		}
	}
	walk(tree.Root)
	rootScore := a.rootScore(tree.Root.Formula, input) + a.fragmentScore(tree.Root.Peak, tree.Root.Formula, input)
	tree.Scoring.RootScore = rootScore
	tree.Scoring.OverallScore = rootScore + edgeSum + tree.AdditionalScoreSum()
}

// VerifyScoring checks that the stored overall score equals root score
// plus edge weights plus additional scores. A mismatch beyond 1e-9 is
// an internal error.
func (t *FTree) VerifyScoring() {
	expected := t.Scoring.RootScore + t.EdgeWeightSum() + t.AdditionalScoreSum()
	if math.Abs(expected-t.Scoring.OverallScore) >= 1e-9 {
		log.Panicf("tree scoring mismatch: stored %v, recomputed %v", t.Scoring.OverallScore, expected)
	}
}
