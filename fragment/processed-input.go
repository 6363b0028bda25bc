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

// Package fragment builds and scores fragmentation graphs and trees:
// it preprocesses MS2 peaks, annotates them with candidate
// sub-formulas, constructs the colored fragmentation DAG per candidate
// precursor formula, and carries the pluggable peak and loss scorers.
package fragment

import (
	"github.com/haihaba/sirius/chem"
	"github.com/haihaba/sirius/ms"
)

// A Decomposition is one candidate formula for a peak, with its
// decomposition score.
type Decomposition struct {
	Formula chem.MolecularFormula
	Score   float64
}

// A ProcessedPeak is a merged and normalized MS2 peak annotated with
// its candidate sub-formulas. Index is the peak's color in the
// fragmentation graph.
type ProcessedPeak struct {
	Index             int
	Mz                float64
	RelativeIntensity float64
	SumIntensity      float64
	IsParent          bool
	// Origins are the raw peaks this peak was merged from, with
	// their MS2 scan numbers. Synthetic parent peaks have none.
	Origins []ms.OriginPeak
	// Decompositions holds the candidate sub-formulas whose ion mass
	// lies within the deviation window of Mz.
	Decompositions []Decomposition
}

// A ProcessedInput is the validated, merged and decomposed form of an
// experiment, the input of graph construction. It is recomputed per
// identification run and discarded afterwards.
type ProcessedInput struct {
	Experiment *ms.Ms2Experiment
	Profile    ms.MeasurementProfile
	IonType    chem.PrecursorIonType
	// Peaks are ordered by ascending m/z; the parent peak is last.
	Peaks      []*ProcessedPeak
	ParentPeak *ProcessedPeak
}

// ParentDecompositions returns the candidate precursor formulas of the
// parent peak.
func (in *ProcessedInput) ParentDecompositions() []Decomposition {
	return in.ParentPeak.Decompositions
}

// TotalIntensity returns the summed relative intensity of all real
// (non-synthetic) peaks.
func (in *ProcessedInput) TotalIntensity() (sum float64) {
	for _, p := range in.Peaks {
		if len(p.Origins) > 0 {
			sum += p.RelativeIntensity
		}
	}
	return sum
}
