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

// Package decomp enumerates all molecular formulas over a constrained
// chemical alphabet whose monoisotopic mass lies within a tolerance
// window around a target mass. It implements the residue table
// algorithm of Böcker and Lipták for the money changing problem,
// extended with real-valued mass verification.
package decomp

import (
	"fmt"
	"math"
	"unsafe"

	psync "github.com/exascience/pargo/sync"

	"github.com/haihaba/sirius/chem"
)

// precision of the integer mass discretization, in Da per unit
const precision = 1e-5

// slack, in integer mass units, added around integer intervals to
// absorb accumulated discretization error
const integerSlack = 20

const infinity = math.MaxInt64 / 2

// A Decomposer enumerates integer element compositions for a fixed
// chemical alphabet. It is immutable after construction and safe for
// concurrent use; construction builds the residue table, so decomposers
// are cached per alphabet (see For).
type Decomposer struct {
	alphabet *chem.ChemicalAlphabet
	weights  []int64
	// ert[i][r] is the smallest integer mass congruent r modulo
	// weights[0] that is decomposable over the elements 0..i
	ert [][]int64
}

// NewDecomposer builds a decomposer for the given alphabet. The
// alphabet must be non-empty and all element masses positive.
func NewDecomposer(alphabet *chem.ChemicalAlphabet) (*Decomposer, error) {
	elements := alphabet.Elements()
	if len(elements) == 0 {
		return nil, fmt.Errorf("cannot build decomposer: empty alphabet")
	}
	weights := make([]int64, len(elements))
	for i, e := range elements {
		if e.Mass <= 0 {
			return nil, fmt.Errorf("cannot build decomposer: element %v has non-positive mass", e)
		}
		weights[i] = int64(math.Round(e.Mass / precision))
	}
	d := &Decomposer{alphabet: alphabet, weights: weights}
	d.buildResidueTable()
	return d, nil
}

// buildResidueTable fills the extended residue table with the
// round-robin recurrence. Rows are processed element by element; for
// each residue class modulo gcd(a, weight) the cycle is walked once,
// starting at its minimal entry.
func (d *Decomposer) buildResidueTable() {
	a := d.weights[0]
	k := len(d.weights)
	d.ert = make([][]int64, k)
	first := make([]int64, a)
	first[0] = 0
	for r := int64(1); r < a; r++ {
		first[r] = infinity
	}
	d.ert[0] = first
	for i := 1; i < k; i++ {
		prev, cur := d.ert[i-1], make([]int64, a)
		copy(cur, prev)
		w := d.weights[i] % a
		g := gcd(a, d.weights[i])
		steps := a / g
		for p := int64(0); p < g; p++ {
			// locate the minimal entry on the cycle
			argmin, min := p, prev[p]
			r := p
			for j := int64(1); j < steps; j++ {
				r = (r + w) % a
				if prev[r] < min {
					argmin, min = r, prev[r]
				}
			}
			// one walk from the minimum settles the whole cycle
			n := min
			cur[argmin] = n
			r = argmin
			for j := int64(1); j < steps; j++ {
				r = (r + w) % a
				if n < infinity {
					n += d.weights[i]
				}
				if prev[r] < n {
					n = prev[r]
				}
				cur[r] = n
			}
		}
		d.ert[i] = cur
	}
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// decomposableWithin reports whether any integer mass in [lo, hi] is
// decomposable over the elements 0..i.
func (d *Decomposer) decomposableWithin(i int, lo, hi int64) bool {
	if hi < 0 {
		return false
	}
	if lo < 0 {
		lo = 0
	}
	a := d.weights[0]
	if hi-lo+1 >= a {
		lo = hi - a + 1
	}
	row := d.ert[i]
	for m := lo; m <= hi; m++ {
		if row[m%a] <= m {
			return true
		}
	}
	return false
}

// Decompose returns every formula over the decomposer's alphabet whose
// monoisotopic mass lies within dev of the target mass (closed
// interval) and that satisfies the constraints. The result is
// deterministic; infeasible inputs yield an empty slice.
func (d *Decomposer) Decompose(mass float64, dev chem.Deviation, constraints chem.FormulaConstraints) []chem.MolecularFormula {
	if mass <= 0 {
		return nil
	}
	tolerance := dev.Tolerance(mass)
	lo, hi := mass-tolerance, mass+tolerance
	elements := d.alphabet.Elements()
	bounds := make([]int, len(elements))
	for i, e := range elements {
		bounds[i] = constraints.UpperBound(e)
	}
	counts := make([]int, len(elements))
	var results []chem.MolecularFormula
	d.enumerate(len(elements)-1, lo, hi, bounds, counts, &results, constraints)
	return results
}

// enumerate recursively fixes the count of element i, pruning with the
// residue table, and collects complete formulas verified against the
// exact double-precision window.
func (d *Decomposer) enumerate(i int, lo, hi float64, bounds, counts []int, results *[]chem.MolecularFormula, constraints chem.FormulaConstraints) {
	elements := d.alphabet.Elements()
	if i == 0 {
		// a tiny epsilon keeps exactly-at-deviation masses inside the
		// closed interval despite rounding in the interval arithmetic
		const eps = 1e-9
		mass := elements[0].Mass
		cLo := int(math.Ceil((lo - eps) / mass))
		if cLo < 0 {
			cLo = 0
		}
		cHi := int(math.Floor((hi + eps) / mass))
		if cHi > bounds[0] {
			cHi = bounds[0]
		}
		for c := cLo; c <= cHi; c++ {
			m := float64(c) * mass
			if m < lo-eps || m > hi+eps {
				continue
			}
			counts[0] = c
			f := chem.NewFormula(d.alphabet, counts)
			if constraints.Satisfied(f) {
				*results = append(*results, f)
			}
		}
		counts[0] = 0
		return
	}
	mass := elements[i].Mass
	maxCount := int(math.Floor(hi / mass))
	if maxCount > bounds[i] {
		maxCount = bounds[i]
	}
	for c := 0; c <= maxCount; c++ {
		remLo := lo - float64(c)*mass
		remHi := hi - float64(c)*mass
		if remHi < 0 {
			break
		}
		intLo := int64(math.Floor(remLo/precision)) - integerSlack
		intHi := int64(math.Ceil(remHi/precision)) + integerSlack
		if !d.decomposableWithin(i-1, intLo, intHi) {
			continue
		}
		counts[i] = c
		d.enumerate(i-1, math.Max(remLo, 0), remHi, bounds, counts, results, constraints)
	}
	counts[i] = 0
}

type alphabetKey struct {
	alphabet *chem.ChemicalAlphabet
}

func (k alphabetKey) Hash() uint64 {
	return uint64(uintptr(unsafe.Pointer(k.alphabet)))
}

var decomposerCache = psync.NewMap(0)

// For returns the cached decomposer for the given alphabet, building
// it on first use. It panics on a malformed alphabet; use NewDecomposer
// when the alphabet is not known to be valid.
func For(alphabet *chem.ChemicalAlphabet) *Decomposer {
	if entry, ok := decomposerCache.Load(alphabetKey{alphabet}); ok {
		return entry.(*Decomposer)
	}
	d, err := NewDecomposer(alphabet)
	if err != nil {
		panic(err)
	}
	entry, _ := decomposerCache.LoadOrStore(alphabetKey{alphabet}, d)
	return entry.(*Decomposer)
}
