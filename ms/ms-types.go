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

// Package ms contains the mass spectrometry data model: peaks, spectra
// and experiments, together with the utilities to normalize and merge
// them, and the reader and writer for the .ms text file format.
package ms

import (
	"fmt"
	"sort"

	"github.com/haihaba/sirius/chem"
)

// A Peak is a single (m/z, intensity) pair. Intensities are
// non-negative and scale-free until a spectrum is normalized.
type Peak struct {
	Mz        float64
	Intensity float64
}

// A Spectrum is a list of peaks ordered by ascending m/z.
type Spectrum []Peak

// WrapSpectrum builds a spectrum from parallel m/z and intensity
// arrays. The arrays are copied; the result is sorted by m/z.
func WrapSpectrum(mz, intensities []float64) (Spectrum, error) {
	if len(mz) != len(intensities) {
		return nil, fmt.Errorf("cannot wrap spectrum: %d masses but %d intensities", len(mz), len(intensities))
	}
	s := make(Spectrum, len(mz))
	for i := range mz {
		if intensities[i] < 0 {
			return nil, fmt.Errorf("cannot wrap spectrum: negative intensity %v at m/z %v", intensities[i], mz[i])
		}
		s[i] = Peak{Mz: mz[i], Intensity: intensities[i]}
	}
	s.Sort()
	return s, nil
}

// Sort orders the peaks by ascending m/z.
func (s Spectrum) Sort() {
	sort.Slice(s, func(i, j int) bool { return s[i].Mz < s[j].Mz })
}

// Clone returns a deep copy of the spectrum.
func (s Spectrum) Clone() Spectrum {
	c := make(Spectrum, len(s))
	copy(c, s)
	return c
}

// TotalIntensity returns the sum of all peak intensities.
func (s Spectrum) TotalIntensity() (sum float64) {
	for _, p := range s {
		sum += p.Intensity
	}
	return sum
}

// MaxIntensity returns the intensity of the base peak, or 0 for an
// empty spectrum.
func (s Spectrum) MaxIntensity() (max float64) {
	for _, p := range s {
		if p.Intensity > max {
			max = p.Intensity
		}
	}
	return max
}

// An Ms2Spectrum is a fragmentation spectrum with its precursor m/z,
// collision energy description and scan number.
type Ms2Spectrum struct {
	Spectrum
	PrecursorMz     float64
	CollisionEnergy string
	ScanNumber      int
}

// An Ms2Experiment is one measured compound: an optional MS1 spectrum
// list, one or more MS2 spectra, the precursor ion mass, and the
// precursor ion type. Experiments are treated as immutable; Clone
// before modification.
type Ms2Experiment struct {
	Name           string
	IonMass        float64
	IonType        chem.PrecursorIonType
	NeutralFormula *chem.MolecularFormula
	Ms1            []Spectrum
	Ms2            []Ms2Spectrum
}

// Clone returns a deep copy of the experiment.
func (e *Ms2Experiment) Clone() *Ms2Experiment {
	c := *e
	c.Ms1 = make([]Spectrum, len(e.Ms1))
	for i, s := range e.Ms1 {
		c.Ms1[i] = s.Clone()
	}
	c.Ms2 = make([]Ms2Spectrum, len(e.Ms2))
	for i, s := range e.Ms2 {
		c.Ms2[i] = s
		c.Ms2[i].Spectrum = s.Spectrum.Clone()
	}
	if e.NeutralFormula != nil {
		f := *e.NeutralFormula
		c.NeutralFormula = &f
	}
	return &c
}

// MergedMs1 returns the first MS1 spectrum, or nil when the experiment
// has none. Multiple MS1 scans are merged by the isotope pattern
// extractor, not here.
func (e *Ms2Experiment) MergedMs1() Spectrum {
	if len(e.Ms1) == 0 {
		return nil
	}
	return e.Ms1[0]
}

// A MeasurementProfile carries the per-run measurement configuration
// shared by all analysis components.
type MeasurementProfile struct {
	// AllowedMassDeviation is the window used to decompose the
	// precursor mass.
	AllowedMassDeviation chem.Deviation
	// StandardMs1Deviation is the expected mass accuracy of MS1 peaks.
	StandardMs1Deviation chem.Deviation
	// StandardMs2Deviation is the expected mass accuracy of MS2 peaks.
	StandardMs2Deviation chem.Deviation
	// Constraints restrict the formulas considered during
	// decomposition.
	Constraints chem.FormulaConstraints
}
