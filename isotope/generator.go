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

// Package isotope simulates, extracts and scores isotope patterns, and
// runs the MS1 candidate analysis of the identification pipeline.
package isotope

import (
	"math"

	"github.com/haihaba/sirius/chem"
	"github.com/haihaba/sirius/ms"
)

// A Generator simulates theoretical isotope patterns of molecular
// formulas by folding the per-element isotopologue distributions.
type Generator struct {
	// MaxPeaks is the maximal number of isotope peaks to simulate.
	MaxPeaks int
	// Cutoff drops trailing peaks below this relative abundance.
	Cutoff float64
}

// DefaultGenerator simulates up to 5 peaks with a 1e-4 abundance
// cutoff, which covers all patterns a single MS1 scan can resolve.
func DefaultGenerator() Generator {
	return Generator{MaxPeaks: 5, Cutoff: 1e-4}
}

// an isotopologue distribution indexed by nominal mass offset; shift
// is the abundance-weighted exact mass shift of the bin
type distribution struct {
	abundance []float64
	shift     []float64
}

func (d distribution) truncated(maxPeaks int) distribution {
	if len(d.abundance) <= maxPeaks {
		return d
	}
	return distribution{abundance: d.abundance[:maxPeaks], shift: d.shift[:maxPeaks]}
}

func elementDistribution(e *chem.Element) distribution {
	maxOffset := 0
	for _, iso := range e.Isotopes {
		if offset := int(math.Round(iso.Mass - e.Mass)); offset > maxOffset {
			maxOffset = offset
		}
	}
	d := distribution{abundance: make([]float64, maxOffset+1), shift: make([]float64, maxOffset+1)}
	for _, iso := range e.Isotopes {
		offset := int(math.Round(iso.Mass - e.Mass))
		d.abundance[offset] += iso.Abundance
		d.shift[offset] += iso.Abundance * (iso.Mass - e.Mass - float64(offset)*nominalSpacing)
	}
	for k := range d.shift {
		if d.abundance[k] > 0 {
			d.shift[k] = d.shift[k]/d.abundance[k] + float64(k)*nominalSpacing
		}
	}
	return d
}

// nominalSpacing is the average mass difference between neighboring
// isotope peaks.
const nominalSpacing = 1.00235

func convolve(a, b distribution, maxPeaks int) distribution {
	n := len(a.abundance) + len(b.abundance) - 1
	if n > maxPeaks {
		n = maxPeaks
	}
	out := distribution{abundance: make([]float64, n), shift: make([]float64, n)}
	for i, pa := range a.abundance {
		if pa == 0 || i >= n {
			continue
		}
		for j, pb := range b.abundance {
			k := i + j
			if k >= n {
				break
			}
			p := pa * pb
			out.abundance[k] += p
			out.shift[k] += p * (a.shift[i] + b.shift[j])
		}
	}
	for k := range out.shift {
		if out.abundance[k] > 0 {
			out.shift[k] /= out.abundance[k]
		}
	}
	return out
}

// Simulate returns the isotope pattern of the neutral formula as a
// spectrum with one peak per nominal isotopologue, normalized so that
// intensities sum to 1.
func (g Generator) Simulate(formula chem.MolecularFormula) ms.Spectrum {
	mono := formula.Mass()
	dist := distribution{abundance: []float64{1}, shift: []float64{0}}
	for _, e := range formula.Alphabet().Elements() {
		count := formula.CountOf(e)
		if count == 0 {
			continue
		}
		single := elementDistribution(e).truncated(g.MaxPeaks)
		// fold count atoms of e by repeated doubling
		power := single
		for count > 0 {
			if count&1 == 1 {
				dist = convolve(dist, power, g.MaxPeaks)
			}
			count >>= 1
			if count > 0 {
				power = convolve(power, power, g.MaxPeaks)
			}
		}
	}
	n := len(dist.abundance)
	for n > 1 && dist.abundance[n-1] < g.Cutoff {
		n--
	}
	pattern := make(ms.Spectrum, n)
	total := 0.0
	for k := 0; k < n; k++ {
		total += dist.abundance[k]
	}
	for k := 0; k < n; k++ {
		pattern[k] = ms.Peak{Mz: mono + dist.shift[k], Intensity: dist.abundance[k] / total}
	}
	return pattern
}

// SimulateIonized returns the isotope pattern of the formula measured
// under the given precursor ion type: peak masses are shifted to ion
// m/z values.
func (g Generator) SimulateIonized(formula chem.MolecularFormula, ionType chem.PrecursorIonType) ms.Spectrum {
	pattern := g.Simulate(formula)
	shift := ionType.NeutralMassToIonMass(0)
	for i := range pattern {
		pattern[i].Mz += shift
	}
	return pattern
}
