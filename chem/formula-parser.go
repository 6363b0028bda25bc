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
)

// ParseFormula parses a molecular formula in Hill notation, for
// example "C6H12O6" or "CHNO2". Element symbols consist of an upper
// case letter followed by optional lower case letters; an omitted count
// means one.
func ParseFormula(s string) (MolecularFormula, error) {
	symbols, counts, err := scanFormula(s)
	if err != nil {
		return MolecularFormula{}, err
	}
	elements := make([]*Element, len(symbols))
	for i, symbol := range symbols {
		e, err := ElementBySymbol(symbol)
		if err != nil {
			return MolecularFormula{}, fmt.Errorf("cannot parse formula %v: %v", s, err)
		}
		elements[i] = e
	}
	alphabet := NewAlphabet(elements...)
	vec := make([]int, alphabet.Len())
	for i, e := range elements {
		vec[alphabet.IndexOf(e)] += counts[i]
	}
	return MolecularFormula{alphabet: alphabet, counts: vec}, nil
}

func scanFormula(s string) (symbols []string, counts []int, err error) {
	i := 0
	for i < len(s) {
		c := s[i]
		if c < 'A' || c > 'Z' {
			return nil, nil, fmt.Errorf("cannot parse formula %v: unexpected character %q at position %d", s, c, i)
		}
		j := i + 1
		for j < len(s) && s[j] >= 'a' && s[j] <= 'z' {
			j++
		}
		symbol := s[i:j]
		count := 0
		i = j
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			count = count*10 + int(s[i]-'0')
			i++
		}
		if i == j {
			count = 1
		}
		symbols = append(symbols, symbol)
		counts = append(counts, count)
	}
	return symbols, counts, nil
}
