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
	"math"
	"testing"

	"github.com/haihaba/sirius/chem"
	"github.com/haihaba/sirius/ms"
)

func testProfile() ms.MeasurementProfile {
	return ms.MeasurementProfile{
		AllowedMassDeviation: chem.Deviation{Ppm: 10, Abs: 5e-4},
		StandardMs1Deviation: chem.Deviation{Ppm: 10, Abs: 5e-4},
		StandardMs2Deviation: chem.Deviation{Ppm: 10, Abs: 5e-4},
		Constraints:          chem.MustConstraints("CHNOP[20]S[20]"),
	}
}

func glucoseExperiment() *ms.Ms2Experiment {
	spectrum := ms.Spectrum{{85.028, 0.4}, {163.06, 0.6}, {181.07, 1.0}}
	return &ms.Ms2Experiment{
		Name:    "glucose",
		IonMass: 181.0707,
		IonType: chem.MustIonType("[M+H]+"),
		Ms2:     []ms.Ms2Spectrum{{Spectrum: spectrum, PrecursorMz: 181.0707}},
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(nil); err == nil {
		t.Error("nil experiment must fail")
	}
	exp := glucoseExperiment()
	if err := Validate(exp); err != nil {
		t.Errorf("valid experiment rejected: %v", err)
	}
	noMs2 := *exp
	noMs2.Ms2 = nil
	if err := Validate(&noMs2); err == nil {
		t.Error("missing MS2 must fail")
	}
	noMass := exp.Clone()
	noMass.IonMass = 0
	if err := Validate(noMass); err == nil {
		t.Error("missing parent mass without MS1 must fail")
	}
}

func TestPreprocess(t *testing.T) {
	a := NewAnalysis(testProfile())
	input, err := a.Preprocess(glucoseExperiment())
	if err != nil {
		t.Fatal(err)
	}
	if input.ParentPeak == nil || !input.ParentPeak.IsParent {
		t.Fatal("no parent peak")
	}
	if input.ParentPeak.Mz != 181.07 {
		t.Errorf("parent peak at %v", input.ParentPeak.Mz)
	}
	if input.ParentPeak.Index != len(input.Peaks)-1 {
		t.Error("parent peak must be the last peak")
	}
	glucose, _ := chem.ParseFormula("C6H12O6")
	found := false
	for _, d := range input.ParentDecompositions() {
		if d.Formula.Equals(glucose) {
			found = true
		}
	}
	if !found {
		t.Error("glucose missing from parent decompositions")
	}
	// every fragment decomposition is dominated by a parent candidate
	for _, p := range input.Peaks {
		if p.IsParent {
			continue
		}
		for _, d := range p.Decompositions {
			dominated := false
			for _, pd := range input.ParentDecompositions() {
				if d.Formula.SubsetOf(pd.Formula) {
					dominated = true
					break
				}
			}
			if !dominated {
				t.Errorf("fragment %v of peak %v not dominated", d.Formula, p.Mz)
			}
		}
	}
}

func TestPreprocessSynthesizesParent(t *testing.T) {
	exp := glucoseExperiment()
	// remove the precursor peak from MS2
	exp.Ms2[0].Spectrum = ms.Spectrum{{85.028, 0.4}, {163.06, 0.6}}
	a := NewAnalysis(testProfile())
	input, err := a.Preprocess(exp)
	if err != nil {
		t.Fatal(err)
	}
	if input.ParentPeak == nil {
		t.Fatal("no parent peak")
	}
	if input.ParentPeak.Mz != exp.IonMass {
		t.Errorf("synthetic parent at %v", input.ParentPeak.Mz)
	}
	if len(input.ParentPeak.Origins) != 0 {
		t.Error("synthetic parent must have no origin peaks")
	}
}

func TestBuildGraphInvariants(t *testing.T) {
	a := NewAnalysis(testProfile())
	input, err := a.Preprocess(glucoseExperiment())
	if err != nil {
		t.Fatal(err)
	}
	glucose, _ := chem.ParseFormula("C6H12O6")
	candidate, ok := findDecomposition(input, glucose)
	if !ok {
		t.Fatal("glucose not decomposed")
	}
	g := a.BuildGraph(input, candidate)
	if !g.Root.Formula.Equals(glucose) {
		t.Errorf("root formula %v", g.Root.Formula)
	}
	for _, v := range g.Vertices {
		if v == g.Root {
			continue
		}
		if !v.Formula.ProperSubsetOf(glucose) {
			t.Errorf("vertex %v is no proper subset of the root", v.Formula)
		}
	}
	for _, u := range g.Vertices {
		for _, e := range u.Out {
			if !e.Target.Formula.ProperSubsetOf(e.Source.Formula) {
				t.Errorf("edge %v -> %v violates the subset invariant", e.Source.Formula, e.Target.Formula)
			}
			if e.Source != g.Root && e.Target.Peak.Mz >= e.Source.Peak.Mz {
				t.Errorf("edge %v -> %v violates the mass ordering", e.Source.Peak.Mz, e.Target.Peak.Mz)
			}
			loss, ok := e.Source.Formula.Subtract(e.Target.Formula)
			if !ok || !loss.Equals(e.Loss) {
				t.Errorf("edge loss %v inconsistent", e.Loss)
			}
		}
	}
	// the water loss from the precursor must be present
	waterLoss := false
	for _, e := range g.Root.Out {
		if e.Loss.String() == "H2O" {
			waterLoss = true
		}
	}
	if !waterLoss {
		t.Error("missing H2O loss from the root")
	}
}

func findDecomposition(input *ProcessedInput, f chem.MolecularFormula) (Decomposition, bool) {
	for _, d := range input.ParentDecompositions() {
		if d.Formula.Equals(f) {
			return d, true
		}
	}
	return Decomposition{}, false
}

func TestCommonLossScoring(t *testing.T) {
	a := NewAnalysis(testProfile())
	input, _ := a.Preprocess(glucoseExperiment())
	water, _ := chem.ParseFormula("H2O")
	methylene, _ := chem.ParseFormula("CH2")
	if a.lossScore(water, input) <= a.lossScore(methylene, input) {
		t.Error("water loss must score better than CH2")
	}
}

func TestTreeScoring(t *testing.T) {
	glucose, _ := chem.ParseFormula("C6H12O6")
	fragmentFormula, _ := chem.ParseFormula("C6H10O5")
	water, _ := chem.ParseFormula("H2O")
	root := &TreeFragment{Formula: glucose}
	child := &TreeFragment{Formula: fragmentFormula, IncomingLoss: water, IncomingWeight: 2.5}
	root.Children = append(root.Children, child)
	tree := &FTree{Root: root, Scoring: TreeScoring{RootScore: 1.0, OverallScore: 3.5}}
	tree.VerifyScoring()
	tree.AddAdditionalScore("isotope", 2)
	if tree.Scoring.OverallScore != 5.5 {
		t.Errorf("overall score %v", tree.Scoring.OverallScore)
	}
	tree.VerifyScoring()
	// replacing an additional score must not double count
	tree.AddAdditionalScore("isotope", 1)
	if tree.Scoring.OverallScore != 4.5 {
		t.Errorf("overall score %v", tree.Scoring.OverallScore)
	}
	if tree.NumberOfVertices() != 2 {
		t.Errorf("vertices %d", tree.NumberOfVertices())
	}
}

func TestWithTreeSizeDoesNotMutate(t *testing.T) {
	a := NewAnalysis(testProfile())
	b := a.WithTreeSize(2)
	if a.TreeSize != 0 {
		t.Error("WithTreeSize must not mutate the receiver")
	}
	if b.TreeSize != 2 {
		t.Error("WithTreeSize must thread the new value")
	}
	input, _ := a.Preprocess(glucoseExperiment())
	glucose, _ := chem.ParseFormula("C6H12O6")
	peak := input.ParentPeak
	delta := b.fragmentScore(peak, glucose, input) - a.fragmentScore(peak, glucose, input)
	if math.Abs(delta-2) > 1e-12 {
		t.Errorf("tree size bonus delta %v", delta)
	}
}

func TestSignatureDistinguishesTrees(t *testing.T) {
	glucose, _ := chem.ParseFormula("C6H12O6")
	a, _ := chem.ParseFormula("C6H10O5")
	b, _ := chem.ParseFormula("C4H4O2")
	water, _ := chem.ParseFormula("H2O")
	lossB, _ := glucose.Subtract(b)

	t1 := &FTree{Root: &TreeFragment{Formula: glucose, Children: []*TreeFragment{{Formula: a, IncomingLoss: water}}}}
	t2 := &FTree{Root: &TreeFragment{Formula: glucose, Children: []*TreeFragment{{Formula: b, IncomingLoss: lossB}}}}
	t3 := &FTree{Root: &TreeFragment{Formula: glucose, Children: []*TreeFragment{{Formula: a, IncomingLoss: water}}}}
	if t1.Signature() == t2.Signature() {
		t.Error("different trees share a signature")
	}
	if t1.Signature() != t3.Signature() {
		t.Error("equal trees must share a signature")
	}
}
