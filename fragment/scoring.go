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

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/haihaba/sirius/chem"
)

// Scorers are pluggable strategies contributing additive log-odds to
// the fragmentation graph. Fragment scorers score a (peak, formula)
// node, loss scorers the neutral loss on an edge, root scorers the
// candidate precursor formula. Every scorer carries its parameters and
// a name under which it is registered in the profile.

// A FragmentScorer scores a candidate sub-formula assignment to a
// peak.
type FragmentScorer interface {
	Name() string
	ScoreFragment(peak *ProcessedPeak, formula chem.MolecularFormula, input *ProcessedInput) float64
}

// A LossScorer scores the neutral loss between a fragment and its
// parent fragment.
type LossScorer interface {
	Name() string
	ScoreLoss(loss chem.MolecularFormula, input *ProcessedInput) float64
}

// A RootScorer scores the candidate precursor formula itself.
type RootScorer interface {
	Name() string
	ScoreRoot(formula chem.MolecularFormula, input *ProcessedInput) float64
}

// MassDeviationScorer scores the deviation between a peak's measured
// m/z and the theoretical ion m/z of its formula with a Gaussian
// log-density, shifted so that a deviation at the edge of the allowed
// window scores zero.
type MassDeviationScorer struct{}

func (MassDeviationScorer) Name() string { return "massDeviation" }

func (MassDeviationScorer) ScoreFragment(peak *ProcessedPeak, formula chem.MolecularFormula, input *ProcessedInput) float64 {
	var theoretical float64
	var dev chem.Deviation
	if peak.IsParent {
		theoretical = input.IonType.NeutralMassToIonMass(formula.Mass())
		dev = input.Profile.AllowedMassDeviation
	} else {
		theoretical = input.IonType.Ionization().AddToMass(formula.Mass())
		dev = input.Profile.StandardMs2Deviation
	}
	tolerance := dev.Tolerance(theoretical)
	normal := distuv.Normal{Mu: 0, Sigma: tolerance / 3}
	return normal.LogProb(peak.Mz-theoretical) - normal.LogProb(tolerance)
}

// PeakIntensityScorer rewards explaining intense peaks. The reward is
// proportional to the square root of the relative intensity, which
// de-emphasizes the base peak without flattening the scale.
type PeakIntensityScorer struct {
	Scale float64
}

func (PeakIntensityScorer) Name() string { return "peakIntensity" }

func (s PeakIntensityScorer) ScoreFragment(peak *ProcessedPeak, _ chem.MolecularFormula, _ *ProcessedInput) float64 {
	return s.Scale * math.Sqrt(peak.RelativeIntensity)
}

// LossSizeScorer scores the mass of a neutral loss with a log-normal
// model: most genuine losses are small molecules between roughly 15
// and 80 Da, very large losses are implausible. The density is
// normalized at its mode, so every loss scores at most zero.
type LossSizeScorer struct {
	Mu    float64
	Sigma float64
}

// DefaultLossSizeScorer matches the empirical loss mass distribution
// of annotated reference trees.
func DefaultLossSizeScorer() LossSizeScorer {
	return LossSizeScorer{Mu: 4.02, Sigma: 0.557}
}

func (LossSizeScorer) Name() string { return "lossSize" }

func (s LossSizeScorer) ScoreLoss(loss chem.MolecularFormula, _ *ProcessedInput) float64 {
	mass := loss.Mass()
	if mass <= 0 {
		return 0
	}
	dist := distuv.LogNormal{Mu: s.Mu, Sigma: s.Sigma}
	mode := math.Exp(s.Mu - s.Sigma*s.Sigma)
	return dist.LogProb(mass) - dist.LogProb(mode)
}

// CommonLossScorer adds a bonus for neutral losses that occur
// frequently in fragmentation spectra and a penalty for a few known
// implausible ones.
type CommonLossScorer struct {
	Losses map[string]float64
}

// DefaultCommonLossScorer returns the built-in common loss table.
func DefaultCommonLossScorer() CommonLossScorer {
	return CommonLossScorer{Losses: map[string]float64{
		"H2":      0.6,
		"H2O":     2.0,
		"CH2":     -1.5,
		"CH3":     -0.5,
		"CH4":     0.8,
		"CO":      1.5,
		"CO2":     1.5,
		"CH2O":    1.1,
		"CH2O2":   1.2,
		"CH4O":    1.0,
		"C2H2":    0.9,
		"C2H4":    1.0,
		"C2H4O2":  1.2,
		"C2H2O":   1.0,
		"C3H6":    0.7,
		"C6H10O5": 1.5,
		"C6H10O4": 1.0,
		// keys are canonical Hill strings: NH3 renders as H3N,
		// H3PO4 as H3O4P
		"H3N":   1.5,
		"CHN":   1.0,
		"CH3N":  0.6,
		"CH5N":  0.6,
		"H2S":   0.8,
		"H3O4P": 1.0,
		"HO3P":  1.0,
		"O2S":   0.8,
		"O3S":   0.8,
		"ClH":   0.8,
	}}
}

func (CommonLossScorer) Name() string { return "commonLosses" }

func (s CommonLossScorer) ScoreLoss(loss chem.MolecularFormula, _ *ProcessedInput) float64 {
	return s.Losses[loss.String()]
}

// LossRDBEScorer penalizes losses with a negative ring and double bond
// equivalent, which cannot correspond to a connected neutral molecule.
type LossRDBEScorer struct {
	Penalty float64
}

func (LossRDBEScorer) Name() string { return "lossRDBE" }

func (s LossRDBEScorer) ScoreLoss(loss chem.MolecularFormula, _ *ProcessedInput) float64 {
	if rdbe := loss.RDBE(); rdbe < 0 {
		return s.Penalty * -rdbe
	}
	return 0
}

// FreeRadicalScorer penalizes radical losses, recognized by their
// half-integer RDBE. A handful of radicals are commonly observed and
// receive a reduced penalty.
type FreeRadicalScorer struct {
	Penalty       float64
	CommonPenalty float64
}

// DefaultFreeRadicalScorer returns the standard radical penalties.
func DefaultFreeRadicalScorer() FreeRadicalScorer {
	return FreeRadicalScorer{Penalty: -2.5, CommonPenalty: -1.0}
}

func (FreeRadicalScorer) Name() string { return "freeRadical" }

var commonRadicals = map[string]bool{"H": true, "CH3": true, "HO": true, "NO": true, "NO2": true, "Cl": true, "Br": true, "I": true}

func (s FreeRadicalScorer) ScoreLoss(loss chem.MolecularFormula, _ *ProcessedInput) float64 {
	rdbe := loss.RDBE()
	if rdbe == math.Trunc(rdbe) {
		return 0
	}
	if commonRadicals[loss.String()] {
		return s.CommonPenalty
	}
	return s.Penalty
}

// ChemicalPriorScorer scores the plausibility of a candidate precursor
// formula: negative RDBE, extreme hydrogen to carbon ratios and
// extreme heteroatom ratios are penalized.
type ChemicalPriorScorer struct {
	Penalty float64
}

// DefaultChemicalPriorScorer returns the standard prior.
func DefaultChemicalPriorScorer() ChemicalPriorScorer {
	return ChemicalPriorScorer{Penalty: -2.0}
}

func (ChemicalPriorScorer) Name() string { return "chemicalPrior" }

func (s ChemicalPriorScorer) ScoreRoot(formula chem.MolecularFormula, _ *ProcessedInput) float64 {
	score := 0.0
	if formula.RDBE() < 0 {
		score += s.Penalty
	}
	carbon := formula.CountOf(chem.C)
	hydrogen := formula.CountOf(chem.H)
	if carbon > 0 {
		if h2c := float64(hydrogen) / float64(carbon); h2c > 3.1 || h2c < 0.1 {
			score += s.Penalty
		}
		hetero := formula.AtomCount() - carbon - hydrogen
		if float64(hetero)/float64(carbon) > 2.5 {
			score += s.Penalty
		}
	} else if formula.AtomCount() > 3 {
		// carbon-free molecules of any size are rare in MS/MS data
		score += s.Penalty
	}
	return score
}
