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

package recal

import (
	"github.com/haihaba/sirius/fragment"
	"github.com/haihaba/sirius/ms"
)

// A SpectralRecalibration holds one recalibration function per MS2
// scan plus a merged fallback function fitted over all scans. Scans
// with too few reference peaks use the merged function.
type SpectralRecalibration struct {
	perScan []Func
	merged  Func
}

// RecalibrateMz corrects a mass of the given scan.
func (r *SpectralRecalibration) RecalibrateMz(scan int, mz float64) float64 {
	if r == nil {
		return mz
	}
	if scan >= 0 && scan < len(r.perScan) && r.perScan[scan] != nil {
		return r.perScan[scan](mz)
	}
	if r.merged != nil {
		return r.merged(mz)
	}
	return mz
}

// Hypothesis fits a spectral recalibration from the peaks explained by
// a fragmentation tree: every tree fragment contributes its observed
// origin peaks paired with the theoretical ion mass of its formula.
// Scans with at least the strategy's minimal peak count get their own
// function; a merged function over all explained peaks serves as
// fallback.
func Hypothesis(strategy Strategy, input *fragment.ProcessedInput, tree *fragment.FTree) *SpectralRecalibration {
	scans := len(input.Experiment.Ms2)
	observed := make([]ms.Spectrum, scans)
	reference := make([]ms.Spectrum, scans)
	var mergedObserved, mergedReference ms.Spectrum

	minIntensity := 0.0
	if m, ok := strategy.(MedianSlope); ok {
		minIntensity = m.MinIntensity
	}
	ionization := input.IonType.Ionization()
	for _, f := range tree.Fragments() {
		if f.Peak == nil || f.Peak.RelativeIntensity < minIntensity {
			continue
		}
		var theoretical float64
		if f.Peak.IsParent {
			theoretical = input.IonType.NeutralMassToIonMass(f.Formula.Mass())
		} else {
			theoretical = ionization.AddToMass(f.Formula.Mass())
		}
		for _, origin := range f.Peak.Origins {
			if origin.Scan >= 0 && origin.Scan < scans {
				observed[origin.Scan] = append(observed[origin.Scan], ms.Peak{Mz: origin.Mz, Intensity: f.Peak.RelativeIntensity})
				reference[origin.Scan] = append(reference[origin.Scan], ms.Peak{Mz: theoretical, Intensity: f.Peak.RelativeIntensity})
			}
		}
		mergedObserved = append(mergedObserved, ms.Peak{Mz: f.Peak.Mz, Intensity: f.Peak.RelativeIntensity})
		mergedReference = append(mergedReference, ms.Peak{Mz: theoretical, Intensity: f.Peak.RelativeIntensity})
	}

	r := &SpectralRecalibration{perScan: make([]Func, scans)}
	for scan := 0; scan < scans; scan++ {
		if len(observed[scan]) >= strategy.MinPeaks() {
			r.perScan[scan] = strategy.Recalibrate(observed[scan], reference[scan])
		}
	}
	r.merged = strategy.Recalibrate(mergedObserved, mergedReference)
	return r
}

// ApplyToExperiment returns a copy of the experiment with all MS2
// masses corrected by the recalibration.
func (r *SpectralRecalibration) ApplyToExperiment(experiment *ms.Ms2Experiment) *ms.Ms2Experiment {
	corrected := experiment.Clone()
	for scan := range corrected.Ms2 {
		spectrum := corrected.Ms2[scan].Spectrum
		for i := range spectrum {
			spectrum[i].Mz = r.RecalibrateMz(scan, spectrum[i].Mz)
		}
		spectrum.Sort()
	}
	return corrected
}
