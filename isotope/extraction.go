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
	"github.com/haihaba/sirius/chem"
	"github.com/haihaba/sirius/ms"
)

// An Extractor scans MS1 spectra for isotope patterns: peak clusters
// at roughly 1 Da spacing starting at a monoisotopic peak.
type Extractor struct {
	// Deviation is the expected MS1 mass accuracy.
	Deviation chem.Deviation
	// MaxPatternSize limits the number of isotope peaks per pattern.
	MaxPatternSize int
	// MinRelativeIntensity drops monoisotopic candidates below this
	// fraction of the base peak.
	MinRelativeIntensity float64
}

// DefaultExtractor returns an extractor for the given MS1 deviation.
func DefaultExtractor(dev chem.Deviation) Extractor {
	return Extractor{Deviation: dev, MaxPatternSize: 5, MinRelativeIntensity: 0.01}
}

// isotopePeakWindow is the deviation used to pick up higher isotope
// peaks. Isotopologue fine structure spreads the +k peaks around the
// nominal spacing, for chlorine and bromine by several mDa, so the
// window is much wider than the plain measurement accuracy.
func (x Extractor) isotopePeakWindow() chem.Deviation {
	d := x.Deviation.Multiply(2)
	if d.Abs < 0.01 {
		d.Abs = 0.01
	}
	return d
}

// ExtractAt extracts the isotope pattern whose monoisotopic peak lies
// within the deviation window around the given m/z. It returns nil
// when no peak is found there.
func (x Extractor) ExtractAt(spectrum ms.Spectrum, mz float64) ms.Spectrum {
	mono := spectrum.MostIntensePeakWithin(mz, x.Deviation)
	if mono < 0 {
		return nil
	}
	pattern := ms.Spectrum{spectrum[mono]}
	window := x.isotopePeakWindow()
	for k := 1; k < x.MaxPatternSize; k++ {
		expected := spectrum[mono].Mz + float64(k)*nominalSpacing
		i := spectrum.MostIntensePeakWithin(expected, window)
		if i < 0 {
			break
		}
		pattern = append(pattern, spectrum[i])
	}
	return pattern
}

// ExtractAll scans the whole spectrum for plausible monoisotopic peaks
// and returns one pattern per candidate. A peak is a monoisotopic
// candidate when it is sufficiently intense and no more intense peak
// sits one isotope spacing below it.
func (x Extractor) ExtractAll(spectrum ms.Spectrum) []ms.Spectrum {
	base := spectrum.MaxIntensity()
	window := x.isotopePeakWindow()
	var patterns []ms.Spectrum
	for i, p := range spectrum {
		if p.Intensity < x.MinRelativeIntensity*base {
			continue
		}
		if j := spectrum.MostIntensePeakWithin(p.Mz-nominalSpacing, window); j >= 0 && spectrum[j].Intensity > p.Intensity {
			continue
		}
		pattern := x.ExtractAt(spectrum, p.Mz)
		if len(pattern) > 0 && pattern[0].Mz == spectrum[i].Mz {
			patterns = append(patterns, pattern)
		}
	}
	return patterns
}
