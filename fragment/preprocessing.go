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
	"fmt"
	"sort"

	"github.com/haihaba/sirius/decomp"
	"github.com/haihaba/sirius/ms"
)

// Validate checks an experiment for structural errors that make any
// analysis impossible: missing MS2 spectra, a missing precursor mass
// (when no MS1 spectrum could supply one), or an unsupported charge.
func Validate(experiment *ms.Ms2Experiment) error {
	if experiment == nil {
		return fmt.Errorf("invalid input: no experiment")
	}
	if len(experiment.Ms2) == 0 {
		return fmt.Errorf("invalid input %v: no MS2 spectra", experiment.Name)
	}
	if experiment.IonMass <= 0 && len(experiment.Ms1) == 0 {
		return fmt.Errorf("invalid input %v: please provide the parentmass of the measured compound", experiment.Name)
	}
	if c := experiment.IonType.Charge(); c != 1 && c != -1 {
		return fmt.Errorf("invalid input %v: multiple charges are not supported", experiment.Name)
	}
	return nil
}

// Preprocess validates, merges, normalizes and decomposes the
// experiment's MS2 peaks. The experiment's ion mass must be set; the
// pipeline derives it from MS1 beforehand when necessary.
func (a *Analysis) Preprocess(experiment *ms.Ms2Experiment) (*ProcessedInput, error) {
	if err := Validate(experiment); err != nil {
		return nil, err
	}
	if experiment.IonMass <= 0 {
		return nil, fmt.Errorf("invalid input %v: please provide the parentmass of the measured compound", experiment.Name)
	}
	profile := a.Profile
	spectra := make([]ms.Spectrum, len(experiment.Ms2))
	for i, s := range experiment.Ms2 {
		spectra[i] = s.Spectrum
	}
	merged := ms.MergeSpectra(profile.StandardMs2Deviation, a.MergePolicy, spectra...)

	// locate or synthesize the parent peak before intensity filtering
	// so a weak precursor peak survives
	parentIndex := -1
	for i, p := range merged {
		if profile.AllowedMassDeviation.In(p.Mz, experiment.IonMass) {
			if parentIndex < 0 || p.Intensity > merged[parentIndex].Intensity {
				parentIndex = i
			}
		}
	}

	base := 0.0
	for _, p := range merged {
		if p.Intensity > base {
			base = p.Intensity
		}
	}
	if base == 0 {
		base = 1
	}

	input := &ProcessedInput{
		Experiment: experiment,
		Profile:    profile,
		IonType:    experiment.IonType,
	}
	parentMz := experiment.IonMass
	if parentIndex >= 0 {
		parentMz = merged[parentIndex].Mz
	}
	upperBound := parentMz + profile.StandardMs2Deviation.Tolerance(parentMz)
	for i, p := range merged {
		relative := p.Intensity / base
		if i != parentIndex && relative < a.NoiseThreshold {
			continue
		}
		if p.Mz > upperBound {
			continue
		}
		peak := &ProcessedPeak{
			Mz:                p.Mz,
			RelativeIntensity: relative,
			SumIntensity:      p.Intensity,
			Origins:           p.Origins,
			IsParent:          i == parentIndex,
		}
		input.Peaks = append(input.Peaks, peak)
	}
	if parentIndex < 0 {
		// the precursor was not measured in MS2: synthesize it
		input.Peaks = append(input.Peaks, &ProcessedPeak{
			Mz:                experiment.IonMass,
			RelativeIntensity: a.NoiseThreshold,
			IsParent:          true,
		})
	}
	sort.Slice(input.Peaks, func(i, j int) bool { return input.Peaks[i].Mz < input.Peaks[j].Mz })
	if a.MaxPeaks > 0 && len(input.Peaks) > a.MaxPeaks {
		input.limitPeaks(a.MaxPeaks)
	}
	for i, p := range input.Peaks {
		p.Index = i
		if p.IsParent {
			input.ParentPeak = p
		}
	}
	a.decomposePeaks(input)
	return input, nil
}

// limitPeaks keeps the parent peak and the most intense other peaks.
func (in *ProcessedInput) limitPeaks(max int) {
	byIntensity := make([]*ProcessedPeak, len(in.Peaks))
	copy(byIntensity, in.Peaks)
	sort.Slice(byIntensity, func(i, j int) bool {
		if byIntensity[i].IsParent != byIntensity[j].IsParent {
			return byIntensity[i].IsParent
		}
		return byIntensity[i].RelativeIntensity > byIntensity[j].RelativeIntensity
	})
	keep := make(map[*ProcessedPeak]bool, max)
	for _, p := range byIntensity[:max] {
		keep[p] = true
	}
	kept := in.Peaks[:0]
	for _, p := range in.Peaks {
		if keep[p] {
			kept = append(kept, p)
		}
	}
	in.Peaks = kept
}

// decomposePeaks annotates every peak with its candidate sub-formulas.
// The parent peak is decomposed through the full precursor ion type;
// fragment peaks only through its ionization, since in-source
// modifications happen before fragmentation. Fragment formulas that
// are not a subset of any parent candidate are dropped.
func (a *Analysis) decomposePeaks(input *ProcessedInput) {
	constraints := input.Profile.Constraints
	decomposer := decomp.For(constraints.Alphabet())

	parent := input.ParentPeak
	parentNeutral := input.IonType.IonMassToNeutralMass(parent.Mz)
	for _, f := range decomposer.Decompose(parentNeutral, input.Profile.AllowedMassDeviation, constraints) {
		parent.Decompositions = append(parent.Decompositions, Decomposition{Formula: f})
	}

	ionization := input.IonType.Ionization()
	for _, peak := range input.Peaks {
		if peak.IsParent {
			continue
		}
		neutral := ionization.SubtractFromMass(peak.Mz)
		for _, f := range decomposer.Decompose(neutral, input.Profile.StandardMs2Deviation, constraints) {
			dominated := false
			for _, pd := range parent.Decompositions {
				if f.SubsetOf(pd.Formula) {
					dominated = true
					break
				}
			}
			if dominated {
				peak.Decompositions = append(peak.Decompositions, Decomposition{Formula: f})
			}
		}
	}
}
