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

package isotope

import (
	"sort"

	"github.com/haihaba/sirius/chem"
	"github.com/haihaba/sirius/decomp"
	"github.com/haihaba/sirius/ms"
)

// A ScoredFormula is a candidate formula with its isotope pattern
// score.
type ScoredFormula struct {
	Formula chem.MolecularFormula
	Score   float64
}

// A Pattern is one extracted isotope pattern with its scored candidate
// formulas, ordered by descending score.
type Pattern struct {
	MonoisotopicMass float64
	Peaks            ms.Spectrum
	Candidates       []ScoredFormula
}

// BestScore returns the score of the best candidate, or 0 when the
// pattern has no candidates.
func (p *Pattern) BestScore() float64 {
	if len(p.Candidates) == 0 {
		return 0
	}
	return p.Candidates[0].Score
}

// An Analysis extracts isotope patterns from MS1 spectra and scores
// candidate formulas against them.
type Analysis struct {
	Profile   ms.MeasurementProfile
	Generator Generator
	Extractor Extractor
	Scorer    PatternScorer
}

// NewAnalysis returns an MS1 analysis with default extractor, scorer
// and generator settings for the given measurement profile.
func NewAnalysis(profile ms.MeasurementProfile) *Analysis {
	return &Analysis{
		Profile:   profile,
		Generator: DefaultGenerator(),
		Extractor: DefaultExtractor(profile.StandardMs1Deviation),
		Scorer:    DefaultScorer(profile.StandardMs1Deviation),
	}
}

// Deisotope extracts isotope patterns from the experiment's MS1
// spectrum and scores all candidate formulas per pattern. When ionMass
// is positive, only the pattern at that precursor m/z is considered;
// otherwise the whole spectrum is scanned. Patterns are returned in
// descending order of their best score.
func (a *Analysis) Deisotope(experiment *ms.Ms2Experiment, ionMass float64) []*Pattern {
	spectrum := experiment.MergedMs1()
	if len(spectrum) == 0 {
		return nil
	}
	var raw []ms.Spectrum
	if ionMass > 0 {
		if pattern := a.Extractor.ExtractAt(spectrum, ionMass); len(pattern) > 0 {
			raw = append(raw, pattern)
		}
	} else {
		raw = a.Extractor.ExtractAll(spectrum)
	}
	patterns := make([]*Pattern, 0, len(raw))
	for _, peaks := range raw {
		patterns = append(patterns, a.scorePattern(peaks, experiment.IonType))
	}
	sort.SliceStable(patterns, func(i, j int) bool { return patterns[i].BestScore() > patterns[j].BestScore() })
	return patterns
}

func (a *Analysis) scorePattern(peaks ms.Spectrum, ionType chem.PrecursorIonType) *Pattern {
	mono := peaks[0].Mz
	neutral := ionType.IonMassToNeutralMass(mono)
	decomposer := decomp.For(a.Profile.Constraints.Alphabet())
	formulas := decomposer.Decompose(neutral, a.Profile.AllowedMassDeviation, a.Profile.Constraints)
	candidates := make([]ScoredFormula, 0, len(formulas))
	for _, f := range formulas {
		theoretical := a.Generator.SimulateIonized(f, ionType)
		score := a.Scorer.Score(peaks, theoretical)
		candidates = append(candidates, ScoredFormula{Formula: f, Score: score})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Formula.String() < candidates[j].Formula.String()
	})
	return &Pattern{MonoisotopicMass: mono, Peaks: peaks, Candidates: candidates}
}

// FilterCandidates keeps the leading candidates of the pattern while
// each score is positive, at least 0.666 of the best score, and at
// least half of its predecessor, stopping at the first violation. It
// returns the retained candidates and the best score. A pattern whose
// best score is not positive yields no candidates.
func FilterCandidates(pattern *Pattern) ([]ScoredFormula, float64) {
	if len(pattern.Candidates) == 0 || pattern.BestScore() <= 0 {
		return nil, 0
	}
	best := pattern.BestScore()
	n := 1
	for ; n < len(pattern.Candidates); n++ {
		score := pattern.Candidates[n].Score
		previous := pattern.Candidates[n-1].Score
		if score <= 0 || score/best < 0.666 || score/previous < 0.5 {
			break
		}
	}
	kept := make([]ScoredFormula, n)
	copy(kept, pattern.Candidates[:n])
	return kept, best
}
