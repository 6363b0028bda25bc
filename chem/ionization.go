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
	"strings"
)

// ElectronMass is the rest mass of an electron in Da.
const ElectronMass = 0.00054857990946

// ProtonMass is the mass of a proton, derived from the hydrogen atom
// mass so that protonation and deprotonation are exact inverses.
var ProtonMass = H.Mass - ElectronMass

// An Ionization is the charge-carrying adjustment of an ion: a charge
// of +1 or -1 together with the mass shift between the neutral molecule
// and the ion.
type Ionization struct {
	name   string
	charge int
	shift  float64
}

// Name returns the canonical name of the ionization, e.g. "[M+H]+".
func (i Ionization) Name() string { return i.name }

// Charge returns +1 or -1.
func (i Ionization) Charge() int { return i.charge }

// AddToMass returns the ion m/z of a neutral molecule with the given
// mass.
func (i Ionization) AddToMass(neutralMass float64) float64 {
	return neutralMass + i.shift
}

// SubtractFromMass returns the neutral mass corresponding to the given
// ion m/z.
func (i Ionization) SubtractFromMass(mz float64) float64 {
	return mz - i.shift
}

func (i Ionization) String() string { return i.name }

var (
	protonation   = Ionization{name: "[M+H]+", charge: 1, shift: ProtonMass}
	deprotonation = Ionization{name: "[M-H]-", charge: -1, shift: -ProtonMass}
	intrinsicPos  = Ionization{name: "[M]+", charge: 1, shift: -ElectronMass}
	intrinsicNeg  = Ionization{name: "[M]-", charge: -1, shift: ElectronMass}
	sodiated      = Ionization{name: "[M+Na]+", charge: 1, shift: Na.Mass - ElectronMass}
	potassiated   = Ionization{name: "[M+K]+", charge: 1, shift: K.Mass - ElectronMass}
	chlorinated   = Ionization{name: "[M+Cl]-", charge: -1, shift: Cl.Mass + ElectronMass}
)

// KnownIonModes returns all registered ionizations with the given
// charge, most common first. Only charges +1 and -1 are supported.
func KnownIonModes(charge int) []Ionization {
	switch charge {
	case 1:
		return []Ionization{protonation, sodiated, potassiated, intrinsicPos}
	case -1:
		return []Ionization{deprotonation, chlorinated, intrinsicNeg}
	}
	return nil
}

// A PrecursorIonType combines an ionization with an optional in-source
// modification of the precursor: adduct atoms attached before
// ionization and an in-source fragmentation loss. The zero value is not
// a valid ion type; use ParseIonType or UnknownIonType.
type PrecursorIonType struct {
	ionization   Ionization
	adduct       MolecularFormula
	inSourceLoss MolecularFormula
	unknown      bool
}

// IonTypeFromIonization wraps a plain ionization without in-source
// modifications.
func IonTypeFromIonization(ion Ionization) PrecursorIonType {
	return PrecursorIonType{ionization: ion}
}

// UnknownIonType returns the "unknown ionization" of the given charge,
// written [M+?]+ or [M+?]-. Its mass shift behaves like protonation or
// deprotonation, which is the dominant ion mode for either charge.
func UnknownIonType(charge int) PrecursorIonType {
	switch charge {
	case 1:
		return PrecursorIonType{ionization: Ionization{name: "[M+?]+", charge: 1, shift: ProtonMass}, unknown: true}
	case -1:
		return PrecursorIonType{ionization: Ionization{name: "[M+?]-", charge: -1, shift: -ProtonMass}, unknown: true}
	}
	panic(fmt.Sprintf("unsupported charge %d: only single charges are supported", charge))
}

// Ionization returns the charge-carrying part of the ion type.
func (p PrecursorIonType) Ionization() Ionization { return p.ionization }

// Charge returns the charge of the ion type.
func (p PrecursorIonType) Charge() int { return p.ionization.charge }

// IsUnknown reports whether this is the unknown ionization of its
// charge.
func (p PrecursorIonType) IsUnknown() bool { return p.unknown }

// modificationMass is the mass added to the neutral molecule by
// in-source modifications, excluding the charge carrier.
func (p PrecursorIonType) modificationMass() float64 {
	m := 0.0
	if !p.adduct.IsZero() {
		m += p.adduct.Mass()
	}
	if !p.inSourceLoss.IsZero() {
		m -= p.inSourceLoss.Mass()
	}
	return m
}

// NeutralMassToIonMass returns the measured precursor m/z expected for
// a neutral molecule of the given mass.
func (p PrecursorIonType) NeutralMassToIonMass(neutralMass float64) float64 {
	return p.ionization.AddToMass(neutralMass + p.modificationMass())
}

// IonMassToNeutralMass inverts NeutralMassToIonMass.
func (p PrecursorIonType) IonMassToNeutralMass(mz float64) float64 {
	return p.ionization.SubtractFromMass(mz) - p.modificationMass()
}

func (p PrecursorIonType) String() string {
	if p.adduct.IsZero() && p.inSourceLoss.IsZero() {
		return p.ionization.name
	}
	carrier := ""
	if i := strings.IndexByte(p.ionization.name, ']'); i > 2 {
		carrier = p.ionization.name[2:i]
	}
	sign := "+"
	if p.ionization.charge < 0 {
		sign = "-"
	}
	var buf strings.Builder
	buf.WriteString("[M")
	buf.WriteString(carrier)
	if !p.adduct.IsZero() {
		buf.WriteByte('+')
		buf.WriteString(p.adduct.String())
	}
	if !p.inSourceLoss.IsZero() {
		buf.WriteByte('-')
		buf.WriteString(p.inSourceLoss.String())
	}
	buf.WriteString("]")
	buf.WriteString(sign)
	return buf.String()
}

// ParseIonType parses an ion type name of the form [M<terms>]<charge>,
// for example "[M+H]+", "[M-H]-", "[M+Na]+" or "[M+H-H2O]+". The first
// term naming a known charge carrier determines the ionization; all
// further +terms are treated as adducts and -terms as in-source
// losses.
func ParseIonType(name string) (PrecursorIonType, error) {
	s := strings.TrimSpace(name)
	switch s {
	case "[M+?]+", "?+", "+":
		return UnknownIonType(1), nil
	case "[M+?]-", "?-", "-":
		return UnknownIonType(-1), nil
	}
	if len(s) < 4 || s[0] != '[' {
		return PrecursorIonType{}, fmt.Errorf("cannot parse ion type %v", name)
	}
	var charge int
	switch s[len(s)-1] {
	case '+':
		charge = 1
	case '-':
		charge = -1
	default:
		return PrecursorIonType{}, fmt.Errorf("cannot parse ion type %v: missing charge sign", name)
	}
	body := s[1 : len(s)-1]
	body = strings.TrimSuffix(body, "]")
	if !strings.HasPrefix(body, "M") {
		return PrecursorIonType{}, fmt.Errorf("cannot parse ion type %v: expected [M...]", name)
	}
	body = body[1:]

	var ion Ionization
	haveIon := false
	result := PrecursorIonType{}
	for len(body) > 0 {
		sign := body[0]
		if sign != '+' && sign != '-' {
			return PrecursorIonType{}, fmt.Errorf("cannot parse ion type %v: unexpected %q", name, sign)
		}
		body = body[1:]
		end := strings.IndexAny(body, "+-")
		if end < 0 {
			end = len(body)
		}
		term := body[:end]
		body = body[end:]
		if !haveIon {
			if carrier, ok := chargeCarrier(term, sign, charge); ok {
				ion = carrier
				haveIon = true
				continue
			}
		}
		f, err := ParseFormula(term)
		if err != nil {
			return PrecursorIonType{}, fmt.Errorf("cannot parse ion type %v: %v", name, err)
		}
		if sign == '+' {
			result.adduct = result.adduct.Add(f)
		} else {
			result.inSourceLoss = result.inSourceLoss.Add(f)
		}
	}
	if !haveIon {
		// [M]+ or [M]-: intrinsically charged
		if charge > 0 {
			ion = intrinsicPos
		} else {
			ion = intrinsicNeg
		}
	}
	result.ionization = ion
	return result, nil
}

func chargeCarrier(term string, sign byte, charge int) (Ionization, bool) {
	if charge > 0 && sign == '+' {
		switch term {
		case "H":
			return protonation, true
		case "Na":
			return sodiated, true
		case "K":
			return potassiated, true
		}
	}
	if charge < 0 {
		if sign == '-' && term == "H" {
			return deprotonation, true
		}
		if sign == '+' && term == "Cl" {
			return chlorinated, true
		}
	}
	return Ionization{}, false
}

// MustIonType is ParseIonType for known-good literals.
func MustIonType(name string) PrecursorIonType {
	p, err := ParseIonType(name)
	if err != nil {
		panic(err)
	}
	return p
}
