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
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/haihaba/sirius/chem"
	"github.com/haihaba/sirius/ms"
)

func mustFormula(t *testing.T, s string) chem.MolecularFormula {
	t.Helper()
	f, err := chem.ParseFormula(s)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func glucosePositive() *ms.Ms2Experiment {
	ms2 := ms.Spectrum{{85.028, 0.4}, {163.06, 0.6}, {181.07, 1.0}}
	return NewExperiment("glucose", 181.0707, chem.MustIonType("[M+H]+"), nil, ms2)
}

func newTestPipeline(t *testing.T) *Sirius {
	t.Helper()
	s, err := New("qtof")
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestIdentifyGlucose(t *testing.T) {
	s := newTestPipeline(t)
	results, err := s.Identify(glucosePositive(), 5, false, IsotopeOmit, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("no results")
	}
	top := results[0]
	if top.Formula != "C6H12O6" {
		t.Errorf("rank 1 formula %v", top.Formula)
	}
	if top.Rank != 1 {
		t.Errorf("rank %d", top.Rank)
	}
	if !top.Tree.Root.Formula.Equals(mustFormula(t, "C6H12O6")) {
		t.Errorf("tree root %v", top.Tree.Root.Formula)
	}
	// the water loss to C6H10O5 must be part of the tree
	foundWaterLoss := false
	for _, f := range top.Tree.Fragments() {
		if f != top.Tree.Root && f.Formula.String() == "C6H10O5" && f.IncomingLoss.String() == "H2O" {
			foundWaterLoss = true
		}
	}
	if !foundWaterLoss {
		t.Error("missing H2O loss to C6H10O5")
	}
	if top.ExplainedIntensity < 0.9 {
		t.Errorf("explained intensity %v", top.ExplainedIntensity)
	}
	// ranks are 1..n with non-increasing scores
	for i, r := range results {
		if r.Rank != i+1 {
			t.Errorf("rank %d at position %d", r.Rank, i)
		}
		if i > 0 && r.Score > results[i-1].Score {
			t.Errorf("scores increase at rank %d", r.Rank)
		}
	}
}

func TestIdentifyRestoresTreeSizeScore(t *testing.T) {
	s := newTestPipeline(t)
	before := s.TreeSizeScore()
	if _, err := s.Identify(glucosePositive(), 5, true, IsotopeOmit, nil); err != nil {
		t.Fatal(err)
	}
	if after := s.TreeSizeScore(); after != before {
		t.Errorf("tree size score changed from %v to %v", before, after)
	}
	// also on the error path
	bad := glucosePositive()
	bad.IonMass = 0
	if _, err := s.Identify(bad, 5, true, IsotopeOmit, nil); err == nil {
		t.Fatal("expected an error")
	}
	if after := s.TreeSizeScore(); after != before {
		t.Errorf("tree size score changed on error from %v to %v", before, after)
	}
}

func TestIdentifyIdempotent(t *testing.T) {
	s := newTestPipeline(t)
	first, err := s.Identify(glucosePositive(), 5, false, IsotopeOmit, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Identify(glucosePositive(), 5, false, IsotopeOmit, nil)
	if err != nil {
		t.Fatal(err)
	}
	type row struct {
		Rank    int
		Formula string
		Score   float64
	}
	flatten := func(results []*IdentificationResult) (rows []row) {
		for _, r := range results {
			rows = append(rows, row{r.Rank, r.Formula, r.Score})
		}
		return rows
	}
	if diff := cmp.Diff(flatten(first), flatten(second)); diff != "" {
		t.Errorf("identify is not idempotent:\n%v", diff)
	}
}

func TestIdentifyKOne(t *testing.T) {
	s := newTestPipeline(t)
	results, err := s.Identify(glucosePositive(), 1, false, IsotopeOmit, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("k=1 returned %d results", len(results))
	}
}

func TestIdentifyWhiteList(t *testing.T) {
	s := newTestPipeline(t)
	whiteList := []chem.MolecularFormula{
		mustFormula(t, "C6H12O6"),
		mustFormula(t, "C7H14O6"), // wrong mass: no feasible tree
	}
	results, err := s.Identify(glucosePositive(), 5, false, IsotopeOmit, whiteList)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("whitelist returned %d results", len(results))
	}
	if results[0].Formula != "C6H12O6" {
		t.Errorf("whitelist result %v", results[0].Formula)
	}
}

func TestAmbiguousIsotopePattern(t *testing.T) {
	s := newTestPipeline(t)
	ms1 := ms.Spectrum{
		{180.063, 80}, {181.0663, 5},
		{181.070, 100}, {182.0733, 7},
	}
	ms2 := ms.Spectrum{{163.06, 0.6}, {181.07, 1.0}}
	experiment := NewExperiment("ambiguous", 0, chem.UnknownIonType(1), ms1, ms2)
	_, err := s.Identify(experiment, 5, false, IsotopeScore, nil)
	if err == nil {
		t.Fatal("expected an error for an ambiguous isotope pattern")
	}
	if !strings.Contains(err.Error(), "parentmass") {
		t.Errorf("unexpected error message %v", err)
	}
}

func TestEmptyMs1IsNoOp(t *testing.T) {
	s := newTestPipeline(t)
	// isotope scoring with no MS1 data must behave like omit
	scored, err := s.Identify(glucosePositive(), 5, false, IsotopeScore, nil)
	if err != nil {
		t.Fatal(err)
	}
	omitted, err := s.Identify(glucosePositive(), 5, false, IsotopeOmit, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(scored) != len(omitted) {
		t.Fatalf("result counts differ: %d vs %d", len(scored), len(omitted))
	}
	for i := range scored {
		if scored[i].IsotopeScore() != 0 {
			t.Errorf("isotope score %v without MS1 data", scored[i].IsotopeScore())
		}
		if scored[i].Formula != omitted[i].Formula {
			t.Errorf("ranking differs at %d: %v vs %v", i, scored[i].Formula, omitted[i].Formula)
		}
	}
}

func TestIsotopeScoreMode(t *testing.T) {
	s := newTestPipeline(t)
	glucose := mustFormula(t, "C6H12O6")
	pattern := s.ms1.Generator.SimulateIonized(glucose, chem.MustIonType("[M+H]+"))
	ms1 := make(ms.Spectrum, len(pattern))
	copy(ms1, pattern)
	experiment := glucosePositive()
	experiment.Ms1 = []ms.Spectrum{ms1}

	results, err := s.Identify(experiment, 5, false, IsotopeScore, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("no results")
	}
	if results[0].Formula != "C6H12O6" {
		t.Errorf("rank 1 formula %v", results[0].Formula)
	}
	if results[0].IsotopeScore() <= 0 {
		t.Errorf("isotope score %v", results[0].IsotopeScore())
	}
	plain, err := s.Identify(glucosePositive(), 5, false, IsotopeOmit, nil)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Score <= plain[0].Score {
		t.Errorf("isotope score did not increase the overall score: %v vs %v", results[0].Score, plain[0].Score)
	}
}

func TestCompute(t *testing.T) {
	s := newTestPipeline(t)
	glucose := mustFormula(t, "C6H12O6")
	result, err := s.Compute(glucosePositive(), glucose, false)
	if err != nil {
		t.Fatal(err)
	}
	if result.Tree == nil {
		t.Fatal("no tree")
	}
	if !result.Tree.Root.Formula.Equals(glucose) {
		t.Errorf("tree root %v", result.Tree.Root.Formula)
	}
	if result.Rank != 0 {
		t.Errorf("rank %d", result.Rank)
	}
	// an infeasible formula yields a nil tree, not an error
	infeasible, err := s.Compute(glucosePositive(), mustFormula(t, "C20H40O20"), false)
	if err != nil {
		t.Fatal(err)
	}
	if infeasible.Tree != nil {
		t.Error("expected a nil tree for an infeasible formula")
	}
}

func TestComputeWithRecalibration(t *testing.T) {
	s := newTestPipeline(t)
	glucose := mustFormula(t, "C6H12O6")
	result, err := s.Compute(glucosePositive(), glucose, true)
	if err != nil {
		t.Fatal(err)
	}
	if result.Tree == nil || !result.Tree.Root.Formula.Equals(glucose) {
		t.Fatalf("unexpected result %v", result.Formula)
	}
}

// infoCounter counts adaptive loop restarts.
type infoCounter struct {
	mu    sync.Mutex
	count int
}

func (*infoCounter) Init(int)                {}
func (*infoCounter) Update(int, int, string) {}
func (*infoCounter) Finished()               {}
func (c *infoCounter) Info(message string) {
	if strings.Contains(message, "Repeat computation") {
		c.mu.Lock()
		c.count++
		c.mu.Unlock()
	}
}

func TestAdaptiveTreeSizeLoop(t *testing.T) {
	s := newTestPipeline(t)
	counter := &infoCounter{}
	s.SetProgress(counter)
	before := s.TreeSizeScore()
	// most of the intensity sits on peaks that cannot be explained
	// by any sub-formula, so neither sufficiency criterion can be
	// met and the loop must run until the tree size cap
	ms2 := ms.Spectrum{
		{50.45, 1.0}, {60.77, 1.0}, {70.33, 1.0}, {90.41, 1.0},
		{163.06, 0.6}, {181.07, 1.0},
	}
	experiment := NewExperiment("noisy", 181.0707, chem.MustIonType("[M+H]+"), nil, ms2)
	results, err := s.Identify(experiment, 5, false, IsotopeOmit, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("no results")
	}
	if counter.count < 1 {
		t.Error("adaptive loop never increased the tree size score")
	}
	if counter.count != 3 {
		t.Errorf("expected 3 restarts until the cap, got %d", counter.count)
	}
	if after := s.TreeSizeScore(); after != before {
		t.Errorf("tree size score changed from %v to %v", before, after)
	}
}

func TestIdentifyPrecursorAndIonization(t *testing.T) {
	s := newTestPipeline(t)
	// deprotonated glucose with unknown negative ionization
	ms2 := ms.Spectrum{{89.0244, 0.3}, {161.0455, 0.5}, {179.056, 1.0}}
	experiment := NewExperiment("glucose-neg", 179.056, chem.UnknownIonType(-1), nil, ms2)
	results, err := s.IdentifyPrecursorAndIonization(experiment, 5, false, IsotopeOmit)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("no results")
	}
	if results[0].Formula != "C6H12O6" {
		t.Errorf("rank 1 formula %v", results[0].Formula)
	}
	if ion := results[0].Tree.IonType.String(); ion != "[M-H]-" {
		t.Errorf("rank 1 ionization %v", ion)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Error("scores must be non-increasing across ion modes")
		}
	}
}

func TestProfiles(t *testing.T) {
	qtof, err := ProfileByName("qtof")
	if err != nil {
		t.Fatal(err)
	}
	if qtof.Measurement.AllowedMassDeviation.Ppm != 10 {
		t.Errorf("qtof deviation %v", qtof.Measurement.AllowedMassDeviation)
	}
	orbi, err := ProfileByName("orbitrap")
	if err != nil {
		t.Fatal(err)
	}
	if orbi.Measurement.AllowedMassDeviation.Ppm != 5 {
		t.Errorf("orbitrap deviation %v", orbi.Measurement.AllowedMassDeviation)
	}
	if _, err := ProfileByName("nonsense"); err == nil {
		t.Error("unknown profile must fail")
	}
}

func TestParseDeviation(t *testing.T) {
	d, err := ParseDeviation("10 ppm (0.0005 m/z)")
	if err != nil {
		t.Fatal(err)
	}
	if d.Ppm != 10 || d.Abs != 0.0005 {
		t.Errorf("parsed %v", d)
	}
	d, err = ParseDeviation("5")
	if err != nil {
		t.Fatal(err)
	}
	if d.Ppm != 5 {
		t.Errorf("parsed %v", d)
	}
	if _, err := ParseDeviation("ten ppm"); err == nil {
		t.Error("malformed deviation must fail")
	}
}

func TestDecomposeAPI(t *testing.T) {
	s := newTestPipeline(t)
	glucose := mustFormula(t, "C6H12O6")
	ion := chem.MustIonType("[M+H]+").Ionization()
	formulas := s.Decompose(ion.AddToMass(glucose.Mass()), ion, s.Profile.Measurement.Constraints, chem.Deviation{})
	found := false
	for _, f := range formulas {
		if f.Equals(glucose) {
			found = true
		}
	}
	if !found {
		t.Error("decompose must contain glucose")
	}
}

func TestSimulateIsotopePatternAPI(t *testing.T) {
	s := newTestPipeline(t)
	glucose := mustFormula(t, "C6H12O6")
	pattern := s.SimulateIsotopePattern(glucose, chem.MustIonType("[M+H]+").Ionization())
	if len(pattern) < 2 {
		t.Fatalf("pattern has %d peaks", len(pattern))
	}
	if math.Abs(pattern[0].Mz-181.07066) > 1e-4 {
		t.Errorf("monoisotopic ion at %v", pattern[0].Mz)
	}
}

func TestPredictElements(t *testing.T) {
	s := newTestPipeline(t)
	chlorobenzene := mustFormula(t, "C6H5Cl")
	ion := chem.MustIonType("[M+H]+")
	pattern := s.ms1.Generator.SimulateIonized(chlorobenzene, ion)
	experiment := NewExperiment("cb", pattern[0].Mz, ion, pattern, ms.Spectrum{{pattern[0].Mz, 1.0}})
	constraints := s.PredictElements(experiment)
	if !constraints.Alphabet().Contains(chem.Cl) {
		t.Error("strong +2 peak must predict chlorine")
	}
	// without MS1 the profile constraints are returned unchanged
	plain := s.PredictElements(glucosePositive())
	if plain.Alphabet().Contains(chem.Cl) {
		t.Error("no MS1 data must keep the default alphabet")
	}
}
