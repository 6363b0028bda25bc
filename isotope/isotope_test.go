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
	"math"
	"testing"

	"github.com/haihaba/sirius/chem"
	"github.com/haihaba/sirius/ms"
)

func TestSimulateGlucose(t *testing.T) {
	glucose, _ := chem.ParseFormula("C6H12O6")
	pattern := DefaultGenerator().Simulate(glucose)
	if len(pattern) < 3 {
		t.Fatalf("pattern has %d peaks", len(pattern))
	}
	if math.Abs(pattern[0].Mz-180.06339) > 1e-4 {
		t.Errorf("monoisotopic peak at %v", pattern[0].Mz)
	}
	if math.Abs(pattern[1].Mz-pattern[0].Mz-1.0034) > 5e-3 {
		t.Errorf("+1 spacing %v", pattern[1].Mz-pattern[0].Mz)
	}
	sum := 0.0
	for _, p := range pattern {
		sum += p.Intensity
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("pattern intensities sum to %v", sum)
	}
	// six carbons contribute roughly 6.4 percent to the +1 peak
	ratio := pattern[1].Intensity / pattern[0].Intensity
	if ratio < 0.05 || ratio > 0.09 {
		t.Errorf("+1 ratio %v", ratio)
	}
	if pattern[0].Intensity < pattern[1].Intensity {
		t.Error("monoisotopic peak must dominate for glucose")
	}
}

func TestSimulateChlorine(t *testing.T) {
	f, _ := chem.ParseFormula("C6H5Cl")
	pattern := DefaultGenerator().Simulate(f)
	if len(pattern) < 3 {
		t.Fatalf("pattern has %d peaks", len(pattern))
	}
	// 37Cl gives a strong +2 peak near a third of the monoisotopic
	ratio := pattern[2].Intensity / pattern[0].Intensity
	if ratio < 0.25 || ratio > 0.40 {
		t.Errorf("+2 ratio %v", ratio)
	}
}

func TestSimulateIonized(t *testing.T) {
	glucose, _ := chem.ParseFormula("C6H12O6")
	g := DefaultGenerator()
	neutral := g.Simulate(glucose)
	ionized := g.SimulateIonized(glucose, chem.MustIonType("[M+H]+"))
	shift := ionized[0].Mz - neutral[0].Mz
	if math.Abs(shift-chem.ProtonMass) > 1e-9 {
		t.Errorf("ionization shift %v", shift)
	}
}

func TestExtractAt(t *testing.T) {
	dev := chem.Deviation{Ppm: 10, Abs: 5e-4}
	spectrum := ms.Spectrum{
		{180.9, 0.1},
		{181.0707, 100},
		{182.0740, 6.6},
		{183.0761, 1.4},
		{190.5, 50},
	}
	x := DefaultExtractor(dev)
	pattern := x.ExtractAt(spectrum, 181.0707)
	if len(pattern) != 3 {
		t.Fatalf("extracted %d peaks: %v", len(pattern), pattern)
	}
	if pattern[0].Mz != 181.0707 || pattern[2].Mz != 183.0761 {
		t.Errorf("extracted %v", pattern)
	}
	if p := x.ExtractAt(spectrum, 250.0); p != nil {
		t.Errorf("expected no pattern at 250, got %v", p)
	}
}

func TestExtractAllSkipsIsotopePeaks(t *testing.T) {
	dev := chem.Deviation{Ppm: 10, Abs: 5e-4}
	spectrum := ms.Spectrum{
		{181.0707, 100},
		{182.0740, 6.6},
	}
	patterns := DefaultExtractor(dev).ExtractAll(spectrum)
	if len(patterns) != 1 {
		t.Fatalf("extracted %d patterns", len(patterns))
	}
	if patterns[0][0].Mz != 181.0707 {
		t.Errorf("monoisotopic peak %v", patterns[0][0].Mz)
	}
}

func TestScorerPrefersMatchingPattern(t *testing.T) {
	profile := ms.MeasurementProfile{
		AllowedMassDeviation: chem.Deviation{Ppm: 10, Abs: 5e-4},
		StandardMs1Deviation: chem.Deviation{Ppm: 10, Abs: 5e-4},
		StandardMs2Deviation: chem.Deviation{Ppm: 10, Abs: 5e-4},
		Constraints:          chem.MustConstraints("CHNOP[20]S[20]"),
	}
	glucose, _ := chem.ParseFormula("C6H12O6")
	ion := chem.MustIonType("[M+H]+")
	g := DefaultGenerator()
	theoretical := g.SimulateIonized(glucose, ion)
	scorer := DefaultScorer(profile.StandardMs1Deviation)
	good := scorer.Score(theoretical, theoretical)
	distorted := theoretical.Clone()
	distorted[1].Mz += 0.01
	distorted[1].Intensity *= 3
	bad := scorer.Score(distorted, theoretical)
	if good <= bad {
		t.Errorf("matching pattern scores %v, distorted %v", good, bad)
	}
	if good <= 10 {
		t.Errorf("perfect match should score clearly positive, got %v", good)
	}
}

func TestDeisotopeAndFilter(t *testing.T) {
	profile := ms.MeasurementProfile{
		AllowedMassDeviation: chem.Deviation{Ppm: 10, Abs: 5e-4},
		StandardMs1Deviation: chem.Deviation{Ppm: 10, Abs: 5e-4},
		StandardMs2Deviation: chem.Deviation{Ppm: 10, Abs: 5e-4},
		Constraints:          chem.MustConstraints("CHNOP[20]S[20]"),
	}
	a := NewAnalysis(profile)
	glucose, _ := chem.ParseFormula("C6H12O6")
	ion := chem.MustIonType("[M+H]+")
	theoretical := a.Generator.SimulateIonized(glucose, ion)
	experiment := &ms.Ms2Experiment{
		Name:    "glucose",
		IonMass: theoretical[0].Mz,
		IonType: ion,
		Ms1:     []ms.Spectrum{theoretical},
	}
	patterns := a.Deisotope(experiment, experiment.IonMass)
	if len(patterns) != 1 {
		t.Fatalf("got %d patterns", len(patterns))
	}
	kept, best := FilterCandidates(patterns[0])
	if best <= 0 || len(kept) == 0 {
		t.Fatalf("filter kept %d candidates, best %v", len(kept), best)
	}
	if !kept[0].Formula.Equals(glucose) {
		t.Errorf("best candidate %v", kept[0].Formula)
	}
	// scores are non-increasing and obey the filter thresholds
	for i := 1; i < len(kept); i++ {
		if kept[i].Score > kept[i-1].Score {
			t.Error("candidates must be sorted by score")
		}
		if kept[i].Score <= 0 || kept[i].Score/best < 0.666 {
			t.Error("filter thresholds violated")
		}
	}
}

func TestFilterCandidatesRule(t *testing.T) {
	f := func(s string) chem.MolecularFormula {
		m, err := chem.ParseFormula(s)
		if err != nil {
			panic(err)
		}
		return m
	}
	pattern := &Pattern{Candidates: []ScoredFormula{
		{f("C6H12O6"), 30},
		{f("C7H16S"), 25},
		{f("C2H14NO5P"), 24},
		{f("C9H8O"), 10}, // 10/24 < 0.5: stop here
		{f("C3H4N4O2"), 9},
	}}
	kept, best := FilterCandidates(pattern)
	if best != 30 {
		t.Errorf("best score %v", best)
	}
	if len(kept) != 3 {
		t.Fatalf("kept %d candidates", len(kept))
	}
	negative := &Pattern{Candidates: []ScoredFormula{{f("C6H12O6"), -1}}}
	if kept, _ := FilterCandidates(negative); kept != nil {
		t.Error("non-positive best score keeps nothing")
	}
}
