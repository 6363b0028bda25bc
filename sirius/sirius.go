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
	"fmt"

	"github.com/haihaba/sirius/chem"
	"github.com/haihaba/sirius/decomp"
	"github.com/haihaba/sirius/fragment"
	"github.com/haihaba/sirius/isotope"
	"github.com/haihaba/sirius/ms"
	"github.com/haihaba/sirius/recal"
	"github.com/haihaba/sirius/solver"
)

// IsotopeScoreName is the additional score category under which the
// isotope pattern score is recorded on a tree.
const IsotopeScoreName = "isotope"

const (
	// maxTreeSizeIncrease bounds how far the adaptive loop may raise
	// the tree size bonus above its configured value.
	maxTreeSizeIncrease = 3.0
	// treeSizeIncrease is the step of the adaptive loop.
	treeSizeIncrease = 1.0
	// minExplainedPeaks and minExplainedIntensity are the sufficiency
	// thresholds of the adaptive loop: a tree explaining this many
	// peaks or this much intensity stops the loop.
	minExplainedPeaks     = 15
	minExplainedIntensity = 0.7
	// minIsotopeFilterScore gates candidate filtering by isotope
	// patterns: below this best score the MS1 evidence is too weak to
	// exclude candidates.
	minIsotopeFilterScore = 10.0
)

// Sirius is the identification pipeline orchestrator. A Sirius
// instance is safe for sequential reuse across experiments; the
// profile is never mutated by an identification run.
type Sirius struct {
	Profile  Profile
	progress Progress
	ms1      *isotope.Analysis
	ms2      *fragment.Analysis
	builder  solver.TreeBuilder
}

// New returns a pipeline with the named built-in profile.
func New(profileName string) (*Sirius, error) {
	p, err := ProfileByName(profileName)
	if err != nil {
		return nil, err
	}
	return NewWithProfile(p), nil
}

// NewWithProfile returns a pipeline with the given profile.
func NewWithProfile(p Profile) *Sirius {
	return &Sirius{
		Profile:  p,
		progress: QuietProgress{},
		ms1:      isotope.NewAnalysis(p.Measurement),
		ms2:      fragment.NewAnalysis(p.Measurement).WithTreeSize(p.TreeSizeScore),
		builder:  solver.DPSolver{},
	}
}

// SetProgress installs a progress observer.
func (s *Sirius) SetProgress(p Progress) {
	s.progress = p
}

// SetTreeBuilder replaces the colorful subtree solver.
func (s *Sirius) SetTreeBuilder(b solver.TreeBuilder) {
	s.builder = b
}

// TreeSizeScore returns the configured tree size bonus. The adaptive
// loop threads raised values per computation, so this always reports
// the profile value, also while an identification is running.
func (s *Sirius) TreeSizeScore() float64 {
	return s.ms2.TreeSize
}

// lookAtMs1 checks the MS1 data. When the experiment has no ion mass,
// it is derived from the unique positive-scoring isotope pattern;
// ambiguity or absence of MS1 data is an input error. When deisotope
// is set the extracted patterns are returned for candidate filtering.
func (s *Sirius) lookAtMs1(experiment *ms.Ms2Experiment, deisotope bool) ([]*isotope.Pattern, error) {
	if experiment.IonMass == 0 {
		if len(experiment.Ms1) == 0 {
			return nil, fmt.Errorf("invalid input %v: please provide the parentmass of the measured compound", experiment.Name)
		}
		candidates := s.ms1.Deisotope(experiment, 0)
		if len(candidates) == 0 {
			return nil, fmt.Errorf("invalid input %v: please provide the parentmass of the measured compound", experiment.Name)
		}
		var chosen *isotope.Pattern
		for _, pattern := range candidates {
			if pattern.BestScore() > 0 {
				if chosen != nil {
					return nil, fmt.Errorf("invalid input %v: please provide the parentmass of the measured compound", experiment.Name)
				}
				chosen = pattern
			}
		}
		if chosen == nil {
			return nil, fmt.Errorf("invalid input %v: please provide the parentmass of the measured compound", experiment.Name)
		}
		candidates = []*isotope.Pattern{chosen}
		experiment.IonMass = candidates[0].MonoisotopicMass
		if deisotope {
			return candidates, nil
		}
		return nil, nil
	}
	if deisotope {
		return s.ms1.Deisotope(experiment, experiment.IonMass), nil
	}
	return nil, nil
}

// Identify returns a ranked list of molecular formula candidates for
// the measured compound, combining the isotope pattern analysis of the
// MS1 data with the fragmentation pattern analysis of the MS2 data.
// numberOfCandidates bounds the output size; recalibrating enables a
// second tree computation pass after mass recalibration; handling
// selects how isotope patterns are used; whiteList, when non-empty,
// restricts the candidates to the given neutral formulas.
func (s *Sirius) Identify(uexperiment *ms.Ms2Experiment, numberOfCandidates int, recalibrating bool, handling IsotopePatternHandling, whiteList []chem.MolecularFormula) ([]*IdentificationResult, error) {
	if err := fragment.Validate(uexperiment); err != nil {
		return nil, err
	}
	experiment := uexperiment.Clone()
	patterns, err := s.lookAtMs1(experiment, handling != IsotopeOmit)
	if err != nil {
		return nil, err
	}
	isoScores, bestIso := filterBestPattern(patterns)
	filtering := len(isoScores) > 0 && bestIso > minIsotopeFilterScore

	treeSize := s.Profile.TreeSizeScore
	maxTreeSize := treeSize + maxTreeSizeIncrease
	analysis := s.ms2.WithTreeSize(treeSize)
	input, err := analysis.Preprocess(experiment)
	if err != nil {
		return nil, err
	}

	maxCandidates := len(input.ParentDecompositions())
	if filtering {
		maxCandidates = len(isoScores)
	}
	if len(whiteList) > 0 && len(whiteList) < maxCandidates {
		maxCandidates = len(whiteList)
	}
	if maxCandidates == 0 {
		return nil, nil
	}
	outputSize := maxCandidates
	if numberOfCandidates < outputSize {
		outputSize = numberOfCandidates
	}
	computeN := outputSize
	if computeN < 5 {
		computeN = 5
	}

	var computed []*fragment.FTree
	for {
		candidates := selectCandidates(input, isoScores, filtering, whiteList)
		trees := s.computeTrees(analysis, input, candidates)
		trees = truncateTrees(trees, computeN)
		if handling == IsotopeScore {
			addIsotopeScores(trees, isoScores)
			sortTrees(trees)
		}
		if len(trees) == 0 || s.sufficient(treeSize, maxTreeSize, trees, computeN, func(*fragment.FTree) *fragment.ProcessedInput { return input }) {
			computed = trees
			break
		}
		s.progress.Info("Not enough peaks were explained. Repeat computation with less restricted constraints.")
		treeSize += treeSizeIncrease
		analysis = s.ms2.WithTreeSize(treeSize)
		input, err = analysis.Preprocess(experiment)
		if err != nil {
			return nil, err
		}
	}

	if recalibrating && len(computed) > 0 {
		s.progress.Info("recalibrate trees")
		for i, tree := range computed {
			if recalibrated := s.recalibrateTree(analysis, input, tree); recalibrated != nil {
				if handling == IsotopeScore {
					addIsotopeScores([]*fragment.FTree{recalibrated}, isoScores)
				}
				computed[i] = recalibrated
			}
			s.progress.Update(i+1, len(computed), "recalibrate "+tree.Root.Formula.String())
		}
	}

	sortTrees(computed)
	results := make([]*IdentificationResult, 0, outputSize)
	for _, tree := range computed {
		if len(results) >= outputSize {
			break
		}
		analysis.RecalculateScore(input, tree)
		tree.VerifyScoring()
		result := newResult(tree, len(results)+1)
		result.ExplainedIntensity = tree.ExplainedIntensityRatio(input)
		results = append(results, result)
	}
	return results, nil
}

// IdentifyPrecursorAndIonization behaves like Identify, but tries
// every known ion mode for the experiment's charge and ranks the trees
// of all ionizations together. For a neutral formula candidate the ion
// mode is always determined by its tree, so no white list is accepted.
func (s *Sirius) IdentifyPrecursorAndIonization(uexperiment *ms.Ms2Experiment, numberOfCandidates int, recalibrating bool, handling IsotopePatternHandling) ([]*IdentificationResult, error) {
	if err := fragment.Validate(uexperiment); err != nil {
		return nil, err
	}
	experiment := uexperiment.Clone()
	patterns, err := s.lookAtMs1(experiment, handling != IsotopeOmit)
	if err != nil {
		return nil, err
	}
	isoScores, bestIso := filterBestPattern(patterns)
	filtering := len(isoScores) > 0 && bestIso > minIsotopeFilterScore

	vion := experiment.IonType
	ionModes := chem.KnownIonModes(vion.Charge())
	if len(ionModes) == 0 {
		return nil, fmt.Errorf("invalid input %v: multiple charges are not supported", experiment.Name)
	}

	treeSize := s.Profile.TreeSizeScore
	maxTreeSize := treeSize + maxTreeSizeIncrease

	var computed []*fragment.FTree
	var inputs map[*fragment.FTree]*fragment.ProcessedInput
	var analysis *fragment.Analysis
	for {
		analysis = s.ms2.WithTreeSize(treeSize)
		var all []*fragment.FTree
		trees2inputs := make(map[*fragment.FTree]*fragment.ProcessedInput)
		for _, ionMode := range ionModes {
			ionExperiment := experiment.Clone()
			if vion.IsUnknown() {
				ionExperiment.IonType = chem.IonTypeFromIonization(ionMode)
			} else {
				ionExperiment.IonType = vion
			}
			ionExperiment.NeutralFormula = nil
			input, err := analysis.Preprocess(ionExperiment)
			if err != nil {
				return nil, err
			}
			candidates := selectCandidates(input, isoScores, filtering, nil)
			trees := truncateTrees(s.computeTrees(analysis, input, candidates), numberOfCandidates)
			if handling == IsotopeScore {
				addIsotopeScores(trees, isoScores)
			}
			for _, t := range trees {
				trees2inputs[t] = input
			}
			all = append(all, trees...)
			if !vion.IsUnknown() {
				break
			}
		}
		sortTrees(all)
		all = truncateTrees(all, numberOfCandidates)
		if len(all) == 0 || s.sufficient(treeSize, maxTreeSize, all, numberOfCandidates, func(t *fragment.FTree) *fragment.ProcessedInput { return trees2inputs[t] }) {
			computed = all
			inputs = trees2inputs
			break
		}
		s.progress.Info("Not enough peaks were explained. Repeat computation with less restricted constraints.")
		treeSize += treeSizeIncrease
	}

	if recalibrating && len(computed) > 0 {
		s.progress.Info("recalibrate trees")
		for i, tree := range computed {
			if recalibrated := s.recalibrateTree(analysis, inputs[tree], tree); recalibrated != nil {
				if handling == IsotopeScore {
					addIsotopeScores([]*fragment.FTree{recalibrated}, isoScores)
				}
				inputs[recalibrated] = inputs[tree]
				computed[i] = recalibrated
			}
		}
	}

	sortTrees(computed)
	results := make([]*IdentificationResult, 0, numberOfCandidates)
	for _, tree := range computed {
		if len(results) >= numberOfCandidates {
			break
		}
		analysis.RecalculateScore(inputs[tree], tree)
		tree.VerifyScoring()
		result := newResult(tree, len(results)+1)
		result.ExplainedIntensity = tree.ExplainedIntensityRatio(inputs[tree])
		results = append(results, result)
	}
	return results, nil
}

// Compute computes the fragmentation tree for a fixed neutral
// molecular formula, running the same adaptive tree size loop as
// Identify. The returned result has rank 0 and a nil tree when no
// feasible tree exists.
func (s *Sirius) Compute(uexperiment *ms.Ms2Experiment, formula chem.MolecularFormula, recalibrating bool) (*IdentificationResult, error) {
	if err := fragment.Validate(uexperiment); err != nil {
		return nil, err
	}
	experiment := uexperiment.Clone()
	if _, err := s.lookAtMs1(experiment, false); err != nil {
		return nil, err
	}

	treeSize := s.Profile.TreeSizeScore
	maxTreeSize := treeSize + maxTreeSizeIncrease
	var tree *fragment.FTree
	var analysis *fragment.Analysis
	var input *fragment.ProcessedInput
	for {
		analysis = s.ms2.WithTreeSize(treeSize)
		var err error
		input, err = analysis.Preprocess(experiment)
		if err != nil {
			return nil, err
		}
		candidate, ok := findCandidate(input, formula)
		if !ok {
			return newResult(nil, 0), nil
		}
		graph := analysis.BuildGraph(input, candidate)
		opts := solver.DefaultOptions()
		opts.Timeout = s.Profile.TreeTimeout
		opts.MaxDPColors = s.Profile.MaxDPColors
		tree = s.builder.BuildTree(graph, opts)
		if tree == nil {
			return newResult(nil, 0), nil
		}
		if treeSize >= maxTreeSize ||
			tree.NumberOfVertices() >= minExplainedPeaks ||
			tree.ExplainedIntensityRatio(input) >= minExplainedIntensity {
			break
		}
		treeSize += treeSizeIncrease
	}

	if recalibrating {
		if recalibrated := s.recalibrateTree(analysis, input, tree); recalibrated != nil {
			tree = recalibrated
		}
	}
	analysis.RecalculateScore(input, tree)
	tree.VerifyScoring()
	result := newResult(tree, 0)
	result.ExplainedIntensity = tree.ExplainedIntensityRatio(input)
	return result, nil
}

// recalibrateTree fits a recalibration from the tree's explained
// peaks, recomputes the tree on the corrected spectra and returns it,
// or nil when recalibration does not improve the tree.
func (s *Sirius) recalibrateTree(analysis *fragment.Analysis, input *fragment.ProcessedInput, tree *fragment.FTree) *fragment.FTree {
	spectral := recal.Hypothesis(s.Profile.Recalibration, input, tree)
	corrected := spectral.ApplyToExperiment(input.Experiment)
	correctedInput, err := analysis.Preprocess(corrected)
	if err != nil {
		return nil
	}
	candidate, ok := findCandidate(correctedInput, tree.Root.Formula)
	if !ok {
		return nil
	}
	graph := analysis.BuildGraph(correctedInput, candidate)
	opts := solver.DefaultOptions()
	opts.Timeout = s.Profile.TreeTimeout
	opts.MaxDPColors = s.Profile.MaxDPColors
	recalibrated := s.builder.BuildTree(graph, opts)
	if recalibrated == nil {
		return nil
	}
	if recalibrated.Scoring.OverallScore < tree.Scoring.OverallScore-tree.AdditionalScoreSum() {
		return nil
	}
	return recalibrated
}

// sufficient implements the acceptance test of the adaptive loop: the
// tree size cap was reached, or one of the best trees explains enough
// peaks or intensity.
func (s *Sirius) sufficient(treeSize, maxTreeSize float64, trees []*fragment.FTree, limit int, inputOf func(*fragment.FTree) *fragment.ProcessedInput) bool {
	if treeSize >= maxTreeSize {
		return true
	}
	for i, tree := range trees {
		if i >= limit {
			break
		}
		if tree.NumberOfVertices() >= minExplainedPeaks || tree.ExplainedIntensityRatio(inputOf(tree)) >= minExplainedIntensity {
			return true
		}
	}
	return false
}

// filterBestPattern applies the candidate filtering rule to the best
// pattern and returns the retained formula scores keyed by formula
// string, together with the best score.
func filterBestPattern(patterns []*isotope.Pattern) (map[string]float64, float64) {
	if len(patterns) == 0 {
		return nil, 0
	}
	kept, best := isotope.FilterCandidates(patterns[0])
	scores := make(map[string]float64, len(kept))
	for _, c := range kept {
		scores[c.Formula.String()] = c.Score
	}
	return scores, best
}

// selectCandidates returns the parent decompositions restricted to the
// isotope-filtered set and the white list.
func selectCandidates(input *fragment.ProcessedInput, isoScores map[string]float64, filtering bool, whiteList []chem.MolecularFormula) []fragment.Decomposition {
	var out []fragment.Decomposition
	for _, d := range input.ParentDecompositions() {
		if filtering {
			if _, ok := isoScores[d.Formula.String()]; !ok {
				continue
			}
		}
		if len(whiteList) > 0 && !containsFormula(whiteList, d.Formula) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func containsFormula(list []chem.MolecularFormula, f chem.MolecularFormula) bool {
	for _, g := range list {
		if g.Equals(f) {
			return true
		}
	}
	return false
}

func findCandidate(input *fragment.ProcessedInput, formula chem.MolecularFormula) (fragment.Decomposition, bool) {
	for _, d := range input.ParentDecompositions() {
		if d.Formula.Equals(formula) {
			return d, true
		}
	}
	return fragment.Decomposition{}, false
}

// addIsotopeScores attaches the isotope category score to every tree
// whose root formula has one.
func addIsotopeScores(trees []*fragment.FTree, isoScores map[string]float64) {
	for _, tree := range trees {
		if score, ok := isoScores[tree.Root.Formula.String()]; ok {
			tree.AddAdditionalScore(IsotopeScoreName, score)
		}
	}
}

// PredictElements inspects the MS1 isotope pattern for element
// signatures beyond the default alphabet: a strong +2 peak indicates
// chlorine or bromine. Without usable MS1 data the profile constraints
// are returned unchanged.
func (s *Sirius) PredictElements(experiment *ms.Ms2Experiment) chem.FormulaConstraints {
	constraints := s.Profile.Measurement.Constraints
	spectrum := experiment.MergedMs1()
	if len(spectrum) == 0 || experiment.IonMass == 0 {
		return constraints
	}
	pattern := s.ms1.Extractor.ExtractAt(spectrum, experiment.IonMass)
	if len(pattern) < 3 {
		return constraints
	}
	ratio := pattern[2].Intensity / pattern[0].Intensity
	alphabet := constraints.Alphabet()
	switch {
	case ratio > 0.8 && !alphabet.Contains(chem.Br):
		extended := chem.NewAlphabet(append(alphabet.Elements(), chem.Br)...)
		constraints = rebuildConstraints(constraints, extended, chem.Br, 4)
	case ratio > 0.25 && !alphabet.Contains(chem.Cl):
		extended := chem.NewAlphabet(append(alphabet.Elements(), chem.Cl)...)
		constraints = rebuildConstraints(constraints, extended, chem.Cl, 10)
	}
	return constraints
}

func rebuildConstraints(old chem.FormulaConstraints, alphabet *chem.ChemicalAlphabet, added *chem.Element, bound int) chem.FormulaConstraints {
	bounds := make([]int, alphabet.Len())
	for i, e := range alphabet.Elements() {
		if e == added {
			bounds[i] = bound
		} else {
			bounds[i] = old.UpperBound(e)
		}
	}
	return chem.NewConstraints(alphabet, bounds)
}

// Decompose returns all molecular formulas whose ionized mass lies
// within the deviation of the measured ion mass. A zero deviation
// selects the profile's allowed mass deviation.
func (s *Sirius) Decompose(mass float64, ion chem.Ionization, constraints chem.FormulaConstraints, dev chem.Deviation) []chem.MolecularFormula {
	if dev == (chem.Deviation{}) {
		dev = s.Profile.Measurement.AllowedMassDeviation
	}
	return decomp.For(constraints.Alphabet()).Decompose(ion.SubtractFromMass(mass), dev, constraints)
}

// SimulateIsotopePattern returns the theoretical isotope pattern of
// the neutral formula under the given ionization.
func (s *Sirius) SimulateIsotopePattern(formula chem.MolecularFormula, ion chem.Ionization) ms.Spectrum {
	return s.ms1.Generator.SimulateIonized(formula, chem.IonTypeFromIonization(ion))
}

// NewExperiment builds an experiment from a precursor mass, an ion
// type, an optional MS1 spectrum and any number of MS2 spectra.
func NewExperiment(name string, parentMass float64, ion chem.PrecursorIonType, ms1 ms.Spectrum, ms2 ...ms.Spectrum) *ms.Ms2Experiment {
	experiment := &ms.Ms2Experiment{
		Name:    name,
		IonMass: parentMass,
		IonType: ion,
	}
	if ms1 != nil {
		experiment.Ms1 = append(experiment.Ms1, ms1)
	}
	for i, spectrum := range ms2 {
		experiment.Ms2 = append(experiment.Ms2, ms.Ms2Spectrum{
			Spectrum:    spectrum,
			PrecursorMz: parentMass,
			ScanNumber:  i,
		})
	}
	return experiment
}
