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
	"math"
	"testing"
)

func TestParseFormulaRoundTrip(t *testing.T) {
	for _, s := range []string{"C6H12O6", "H2O", "CHNO", "C2H5NO2S", "C20H17NO6", "ClH", "C6H5Cl3"} {
		f, err := ParseFormula(s)
		if err != nil {
			t.Fatalf("ParseFormula(%v) failed: %v", s, err)
		}
		g, err := ParseFormula(f.String())
		if err != nil {
			t.Fatalf("ParseFormula(%v) failed: %v", f.String(), err)
		}
		if !f.Equals(g) {
			t.Errorf("round trip of %v gives %v", s, g)
		}
	}
}

func TestFormulaMass(t *testing.T) {
	glucose, _ := ParseFormula("C6H12O6")
	if mass := glucose.Mass(); math.Abs(mass-180.06339) > 1e-4 {
		t.Errorf("glucose mass %v", mass)
	}
	water, _ := ParseFormula("H2O")
	if mass := water.Mass(); math.Abs(mass-18.010565) > 1e-5 {
		t.Errorf("water mass %v", mass)
	}
}

func TestFormulaHillOrder(t *testing.T) {
	f, _ := ParseFormula("O6H12C6")
	if f.String() != "C6H12O6" {
		t.Errorf("Hill order failed: %v", f.String())
	}
	// without carbon all elements sort alphabetically
	f, _ = ParseFormula("HCl")
	if f.String() != "ClH" {
		t.Errorf("Hill order without carbon failed: %v", f.String())
	}
}

func TestFormulaSubtract(t *testing.T) {
	glucose, _ := ParseFormula("C6H12O6")
	water, _ := ParseFormula("H2O")
	rest, ok := glucose.Subtract(water)
	if !ok {
		t.Fatal("glucose - water failed")
	}
	if rest.String() != "C6H10O5" {
		t.Errorf("glucose - water = %v", rest)
	}
	if _, ok := water.Subtract(glucose); ok {
		t.Error("water - glucose should fail")
	}
	if !water.ProperSubsetOf(glucose) {
		t.Error("water should be a proper subset of glucose")
	}
	if glucose.ProperSubsetOf(glucose) {
		t.Error("a formula is no proper subset of itself")
	}
}

func TestFormulaRDBE(t *testing.T) {
	benzene, _ := ParseFormula("C6H6")
	if rdbe := benzene.RDBE(); rdbe != 4 {
		t.Errorf("benzene RDBE %v", rdbe)
	}
	methyl, _ := ParseFormula("CH3")
	if rdbe := methyl.RDBE(); rdbe != 0.5 {
		t.Errorf("methyl radical RDBE %v", rdbe)
	}
}

func TestConstraints(t *testing.T) {
	c, err := ParseConstraints("CHNOP[5]S[20]")
	if err != nil {
		t.Fatal(err)
	}
	if b := c.UpperBound(P); b != 5 {
		t.Errorf("P bound %v", b)
	}
	if b := c.UpperBound(C); b != NoUpperBound {
		t.Errorf("C bound %v", b)
	}
	if b := c.UpperBound(Cl); b != 0 {
		t.Errorf("Cl bound %v", b)
	}
	glucose, _ := ParseFormula("C6H12O6")
	if !c.Satisfied(glucose) {
		t.Error("glucose should satisfy CHNOPS")
	}
	phosphate, _ := ParseFormula("H18P6O24")
	if c.Satisfied(phosphate) {
		t.Error("six phosphorus atoms exceed the bound")
	}
	if _, err := ParseConstraints("CHNOX"); err == nil {
		t.Error("unknown element should fail")
	}
}

func TestDeviationClosedInterval(t *testing.T) {
	d := Deviation{Ppm: 10, Abs: 5e-4}
	ref := 200.0
	tolerance := d.Tolerance(ref)
	if math.Abs(tolerance-0.002) > 1e-15 {
		t.Errorf("tolerance %v", tolerance)
	}
	if !d.In(ref+tolerance, ref) || !d.In(ref-tolerance, ref) {
		t.Error("exactly-at-deviation masses must be accepted")
	}
	if d.In(ref+tolerance+1e-9, ref) {
		t.Error("outside the window must be rejected")
	}
	// small masses fall back to the absolute term
	if got := d.Tolerance(10); got != 5e-4 {
		t.Errorf("absolute floor %v", got)
	}
}

func TestIonizationRoundTrip(t *testing.T) {
	names := []string{"[M+H]+", "[M-H]-", "[M]+", "[M]-", "[M+Na]+", "[M+K]+", "[M+Cl]-", "[M+H-H2O]+"}
	for _, name := range names {
		ion, err := ParseIonType(name)
		if err != nil {
			t.Fatalf("ParseIonType(%v): %v", name, err)
		}
		for _, mass := range []float64{100.0, 180.06339, 1000.5} {
			mz := ion.NeutralMassToIonMass(mass)
			back := ion.IonMassToNeutralMass(mz)
			if math.Abs(back-mass) >= 1e-9 {
				t.Errorf("%v: %v -> %v -> %v", name, mass, mz, back)
			}
		}
	}
}

func TestIonTypeNames(t *testing.T) {
	ion, err := ParseIonType("[M+H]+")
	if err != nil {
		t.Fatal(err)
	}
	if ion.Charge() != 1 || ion.IsUnknown() {
		t.Errorf("unexpected ion %v", ion)
	}
	if got := ion.String(); got != "[M+H]+" {
		t.Errorf("name %v", got)
	}
	protonated := ion.NeutralMassToIonMass(180.06339)
	if math.Abs(protonated-181.07066) > 1e-4 {
		t.Errorf("glucose [M+H]+ at %v", protonated)
	}
	unknown := UnknownIonType(-1)
	if !unknown.IsUnknown() || unknown.Charge() != -1 {
		t.Errorf("unexpected unknown ion %v", unknown)
	}
	if _, err := ParseIonType("M+H"); err == nil {
		t.Error("malformed ion name should fail")
	}
}

func TestKnownIonModes(t *testing.T) {
	pos := KnownIonModes(1)
	if len(pos) == 0 || pos[0].Name() != "[M+H]+" {
		t.Errorf("positive ion modes %v", pos)
	}
	neg := KnownIonModes(-1)
	if len(neg) == 0 || neg[0].Name() != "[M-H]-" {
		t.Errorf("negative ion modes %v", neg)
	}
	if KnownIonModes(2) != nil {
		t.Error("multiple charges are unsupported")
	}
}

func TestElementInterning(t *testing.T) {
	a, err := ElementBySymbol("C")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := ElementBySymbol("C")
	if a != b {
		t.Error("elements must be interned")
	}
	if a != C {
		t.Error("lookup must return the package-level element")
	}
	if _, err := ElementBySymbol("Xx"); err == nil {
		t.Error("unknown symbol should fail")
	}
}
