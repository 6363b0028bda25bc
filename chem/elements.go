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

package chem

import (
	"fmt"

	psync "github.com/exascience/pargo/sync"
)

// An Isotope is one naturally occurring isotope of an element, with its
// exact mass and natural abundance.
type Isotope struct {
	Mass      float64
	Abundance float64
}

// An Element is an entry of the periodic table. Elements are interned:
// two elements with the same symbol are always the same pointer, so
// they can be compared with ==.
type Element struct {
	Symbol      string
	Name        string
	NominalMass int
	Mass        float64 // monoisotopic mass
	Valence     int
	Isotopes    []Isotope
}

func (e *Element) String() string {
	return e.Symbol
}

type elementKey string

func (k elementKey) Hash() uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(k); i++ {
		h = (h ^ uint64(k[i])) * 1099511628211
	}
	return h
}

// The element table is process-wide and immutable after package
// initialization. It is safe for concurrent lookups.
var elementTable = psync.NewMap(0)

func registerElement(e *Element) *Element {
	entry, _ := elementTable.LoadOrStore(elementKey(e.Symbol), e)
	return entry.(*Element)
}

// ElementBySymbol looks up an element by its symbol, for example "C" or
// "Cl". It returns an error for unknown symbols.
func ElementBySymbol(symbol string) (*Element, error) {
	if entry, ok := elementTable.Load(elementKey(symbol)); ok {
		return entry.(*Element), nil
	}
	return nil, fmt.Errorf("unknown element symbol %v", symbol)
}

func mustElement(symbol string) *Element {
	e, err := ElementBySymbol(symbol)
	if err != nil {
		panic(err)
	}
	return e
}

// masses from the 2016 IUPAC atomic mass evaluation
var (
	// H is hydrogen.
	H = registerElement(&Element{
		Symbol: "H", Name: "hydrogen", NominalMass: 1, Mass: 1.00782503207, Valence: 1,
		Isotopes: []Isotope{{1.00782503207, 0.999885}, {2.0141017778, 0.000115}},
	})
	// C is carbon.
	C = registerElement(&Element{
		Symbol: "C", Name: "carbon", NominalMass: 12, Mass: 12.0, Valence: 4,
		Isotopes: []Isotope{{12.0, 0.9893}, {13.0033548378, 0.0107}},
	})
	// N is nitrogen.
	N = registerElement(&Element{
		Symbol: "N", Name: "nitrogen", NominalMass: 14, Mass: 14.0030740048, Valence: 3,
		Isotopes: []Isotope{{14.0030740048, 0.99636}, {15.0001088982, 0.00364}},
	})
	// O is oxygen.
	O = registerElement(&Element{
		Symbol: "O", Name: "oxygen", NominalMass: 16, Mass: 15.9949146196, Valence: 2,
		Isotopes: []Isotope{{15.9949146196, 0.99757}, {16.9991317, 0.00038}, {17.999161, 0.00205}},
	})
	// P is phosphorus.
	P = registerElement(&Element{
		Symbol: "P", Name: "phosphorus", NominalMass: 31, Mass: 30.97376163, Valence: 3,
		Isotopes: []Isotope{{30.97376163, 1.0}},
	})
	// S is sulfur.
	S = registerElement(&Element{
		Symbol: "S", Name: "sulfur", NominalMass: 32, Mass: 31.972071, Valence: 2,
		Isotopes: []Isotope{{31.972071, 0.9499}, {32.97145876, 0.0075}, {33.9678669, 0.0425}, {35.96708076, 0.0001}},
	})
	// F is fluorine.
	F = registerElement(&Element{
		Symbol: "F", Name: "fluorine", NominalMass: 19, Mass: 18.99840322, Valence: 1,
		Isotopes: []Isotope{{18.99840322, 1.0}},
	})
	// Cl is chlorine.
	Cl = registerElement(&Element{
		Symbol: "Cl", Name: "chlorine", NominalMass: 35, Mass: 34.96885268, Valence: 1,
		Isotopes: []Isotope{{34.96885268, 0.7576}, {36.96590259, 0.2424}},
	})
	// Br is bromine.
	Br = registerElement(&Element{
		Symbol: "Br", Name: "bromine", NominalMass: 79, Mass: 78.9183371, Valence: 1,
		Isotopes: []Isotope{{78.9183371, 0.5069}, {80.9162906, 0.4931}},
	})
	// I is iodine.
	I = registerElement(&Element{
		Symbol: "I", Name: "iodine", NominalMass: 127, Mass: 126.904473, Valence: 1,
		Isotopes: []Isotope{{126.904473, 1.0}},
	})
	// Na is sodium.
	Na = registerElement(&Element{
		Symbol: "Na", Name: "sodium", NominalMass: 23, Mass: 22.9897692809, Valence: 1,
		Isotopes: []Isotope{{22.9897692809, 1.0}},
	})
	// K is potassium.
	K = registerElement(&Element{
		Symbol: "K", Name: "potassium", NominalMass: 39, Mass: 38.96370668, Valence: 1,
		Isotopes: []Isotope{{38.96370668, 0.932581}, {39.96399848, 0.000117}, {40.96182576, 0.067302}},
	})
)
