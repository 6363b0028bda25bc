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

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/haihaba/sirius/chem"
	"github.com/haihaba/sirius/ms"
)

// A PatternScorer computes the log-odds that a measured isotope
// pattern was produced by a candidate formula's theoretical pattern.
// Mass deviations follow a Gaussian model, intensity ratios a
// log-normal model. Both terms are normalized so that a deviation at
// the edge of the allowed window scores zero; good matches score
// positive.
type PatternScorer struct {
	// Deviation is the expected MS1 mass accuracy.
	Deviation chem.Deviation
	// IntensitySigma is the standard deviation of log intensity
	// ratios between measurement and theory.
	IntensitySigma float64
}

// DefaultScorer returns a pattern scorer for the given MS1 deviation.
func DefaultScorer(dev chem.Deviation) PatternScorer {
	return PatternScorer{Deviation: dev, IntensitySigma: 0.25}
}

// Score compares a measured pattern against a theoretical one. Both
// patterns are truncated to their common length and normalized to sum
// 1 before scoring. A measured pattern longer than the theory is
// penalized for each unexplained peak.
func (s PatternScorer) Score(measured, theoretical ms.Spectrum) float64 {
	n := len(measured)
	if len(theoretical) < n {
		n = len(theoretical)
	}
	if n == 0 {
		return math.Inf(-1)
	}
	m := measured[:n].Normalized(ms.NormalizeToSum)
	t := theoretical[:n].Normalized(ms.NormalizeToSum)
	score := 0.0
	for k := 0; k < n; k++ {
		score += s.massScore(m[k].Mz, t[k].Mz)
		score += s.intensityScore(m[k].Intensity, t[k].Intensity)
	}
	// unexplained trailing measurement peaks
	score -= 2 * float64(len(measured)-n)
	return score
}

// massScore is the Gaussian log-density of the observed deviation,
// shifted so that a deviation of exactly the allowed tolerance scores
// zero. Sigma is a third of the tolerance.
func (s PatternScorer) massScore(measured, theoretical float64) float64 {
	tolerance := s.Deviation.Tolerance(theoretical)
	normal := distuv.Normal{Mu: 0, Sigma: tolerance / 3}
	return normal.LogProb(measured-theoretical) - normal.LogProb(tolerance)
}

// intensityScore is the log-normal log-density of the intensity ratio,
// shifted to zero at three sigma.
func (s PatternScorer) intensityScore(measured, theoretical float64) float64 {
	if theoretical <= 0 || measured <= 0 {
		return -2
	}
	normal := distuv.Normal{Mu: 0, Sigma: s.IntensitySigma}
	x := math.Log(measured / theoretical)
	return normal.LogProb(x) - normal.LogProb(3*s.IntensitySigma)
}
