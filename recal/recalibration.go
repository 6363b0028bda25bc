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

// Package recal fits mass recalibration functions from the peaks
// explained by a fragmentation tree and applies them to experiments.
package recal

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/haihaba/sirius/chem"
	"github.com/haihaba/sirius/ms"
)

// A Func maps a measured m/z to its corrected value.
type Func func(mz float64) float64

// Identity is the no-op recalibration.
func Identity(mz float64) float64 { return mz }

// A Strategy fits a univariate monotone recalibration function from
// observed peaks and their reference masses.
type Strategy interface {
	// MinPeaks is the minimal number of reference pairs required for
	// a fit.
	MinPeaks() int
	// Recalibrate fits a function mapping observed to reference
	// masses. Both spectra are parallel: peak i of observed
	// corresponds to peak i of reference. It returns Identity when
	// the data does not support a trustworthy fit.
	Recalibrate(observed, reference ms.Spectrum) Func
}

// MedianSlope is a robust linear recalibration: the Theil-Sen
// estimator (median pairwise slope, median intercept), refined by a
// Nelder-Mead minimization of the total absolute error. Fits whose
// correction exceeds a multiple of the expected deviation are
// distrusted and replaced by the identity.
type MedianSlope struct {
	// Deviation is the expected residual accuracy after
	// recalibration.
	Deviation chem.Deviation
	// MinPeakCount is the minimal number of reference pairs.
	MinPeakCount int
	// MinIntensity excludes low peaks from the fit; applied by the
	// peak collector.
	MinIntensity float64
}

// DefaultMedianSlope returns the standard recalibration settings.
func DefaultMedianSlope() MedianSlope {
	return MedianSlope{Deviation: chem.Deviation{Ppm: 2, Abs: 5e-4}, MinPeakCount: 8, MinIntensity: 0.01}
}

// MinPeaks implements Strategy.
func (m MedianSlope) MinPeaks() int { return m.MinPeakCount }

// Recalibrate implements Strategy.
func (m MedianSlope) Recalibrate(observed, reference ms.Spectrum) Func {
	n := len(observed)
	if n < m.MinPeakCount || n != len(reference) {
		return Identity
	}
	var slopes []float64
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dx := observed[j].Mz - observed[i].Mz
			if math.Abs(dx) < 1e-9 {
				continue
			}
			slopes = append(slopes, (reference[j].Mz-reference[i].Mz)/dx)
		}
	}
	if len(slopes) == 0 {
		return Identity
	}
	sort.Float64s(slopes)
	slope := stat.Quantile(0.5, stat.Empirical, slopes, nil)
	intercepts := make([]float64, n)
	for i := 0; i < n; i++ {
		intercepts[i] = reference[i].Mz - slope*observed[i].Mz
	}
	sort.Float64s(intercepts)
	intercept := stat.Quantile(0.5, stat.Empirical, intercepts, nil)

	slope, intercept = m.refine(observed, reference, slope, intercept)

	// distrust corrections far beyond the expected deviation
	for i := 0; i < n; i++ {
		corrected := slope*observed[i].Mz + intercept
		if math.Abs(corrected-observed[i].Mz) > 5*m.Deviation.Tolerance(observed[i].Mz) {
			return Identity
		}
	}
	return func(mz float64) float64 { return slope*mz + intercept }
}

// refine minimizes the total absolute residual around the Theil-Sen
// estimate.
func (m MedianSlope) refine(observed, reference ms.Spectrum, slope, intercept float64) (float64, float64) {
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			sum := 0.0
			for i := range observed {
				sum += math.Abs(reference[i].Mz - (x[0]*observed[i].Mz + x[1]))
			}
			return sum
		},
	}
	result, err := optimize.Minimize(problem, []float64{slope, intercept}, nil, &optimize.NelderMead{})
	if err != nil || result == nil {
		return slope, intercept
	}
	return result.X[0], result.X[1]
}
