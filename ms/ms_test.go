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

package ms

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/haihaba/sirius/chem"
)

func TestWrapSpectrum(t *testing.T) {
	s, err := WrapSpectrum([]float64{300, 100, 200}, []float64{3, 1, 2})
	if err != nil {
		t.Fatal(err)
	}
	want := Spectrum{{100, 1}, {200, 2}, {300, 3}}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("WrapSpectrum mismatch:\n%v", diff)
	}
	if _, err := WrapSpectrum([]float64{1}, []float64{1, 2}); err == nil {
		t.Error("length mismatch should fail")
	}
	if _, err := WrapSpectrum([]float64{1}, []float64{-1}); err == nil {
		t.Error("negative intensity should fail")
	}
}

func TestNormalized(t *testing.T) {
	s := Spectrum{{100, 1}, {200, 3}}
	sum := s.Normalized(NormalizeToSum)
	if math.Abs(sum.TotalIntensity()-1) > 1e-12 {
		t.Errorf("sum normalization: %v", sum.TotalIntensity())
	}
	max := s.Normalized(NormalizeToMax)
	if max.MaxIntensity() != 1 {
		t.Errorf("max normalization: %v", max.MaxIntensity())
	}
	// the input must stay untouched
	if s[1].Intensity != 3 {
		t.Error("normalization must not modify its input")
	}
}

func TestNearestPeak(t *testing.T) {
	s := Spectrum{{100, 1}, {200, 1}, {300, 1}}
	if i := s.NearestPeak(210); i != 1 {
		t.Errorf("nearest to 210 is %d", i)
	}
	if i := s.NearestPeak(260); i != 2 {
		t.Errorf("nearest to 260 is %d", i)
	}
	if i := Spectrum(nil).NearestPeak(100); i != -1 {
		t.Errorf("nearest in empty spectrum is %d", i)
	}
}

func TestMostIntensePeakWithin(t *testing.T) {
	dev := chem.Deviation{Ppm: 10, Abs: 0.01}
	s := Spectrum{{99.995, 1}, {100.0, 5}, {100.005, 2}, {101, 10}}
	if i := s.MostIntensePeakWithin(100, dev); i != 1 {
		t.Errorf("most intense within window is %d", i)
	}
	if i := s.MostIntensePeakWithin(150, dev); i != -1 {
		t.Errorf("expected no peak, got %d", i)
	}
}

func TestMergeSpectra(t *testing.T) {
	dev := chem.Deviation{Ppm: 10, Abs: 0.01}
	a := Spectrum{{100.001, 1}, {200, 2}}
	b := Spectrum{{100.002, 3}, {300, 1}}
	merged := MergeSpectra(dev, MergeSum, a, b)
	if len(merged) != 3 {
		t.Fatalf("merged into %d peaks", len(merged))
	}
	if merged[0].Intensity != 4 {
		t.Errorf("summed intensity %v", merged[0].Intensity)
	}
	// the reported m/z is that of the most intense origin
	if merged[0].Mz != 100.002 {
		t.Errorf("merged m/z %v", merged[0].Mz)
	}
	if len(merged[0].Origins) != 2 {
		t.Errorf("origins %v", merged[0].Origins)
	}
	if merged[0].Origins[0].Scan != 0 || merged[0].Origins[1].Scan != 1 {
		t.Errorf("origin scans %v", merged[0].Origins)
	}
	maxMerged := MergeSpectra(dev, MergeMax, a, b)
	if maxMerged[0].Intensity != 3 {
		t.Errorf("max merged intensity %v", maxMerged[0].Intensity)
	}
}

const glucoseMs = `>compound glucose
>formula C6H12O6
>parentmass 181.0707
>ionization [M+H]+

>ms1
181.0707 100.0
182.0740 6.6

>collision 35
85.028 0.4
181.07 1.0
163.06 0.6
`

func TestReadMs(t *testing.T) {
	exp, err := ReadMs(strings.NewReader(glucoseMs), "glucose.ms")
	if err != nil {
		t.Fatal(err)
	}
	if exp.Name != "glucose" {
		t.Errorf("name %v", exp.Name)
	}
	if exp.NeutralFormula == nil || exp.NeutralFormula.String() != "C6H12O6" {
		t.Errorf("formula %v", exp.NeutralFormula)
	}
	if exp.IonMass != 181.0707 {
		t.Errorf("parentmass %v", exp.IonMass)
	}
	if exp.IonType.String() != "[M+H]+" {
		t.Errorf("ionization %v", exp.IonType)
	}
	if len(exp.Ms1) != 1 || len(exp.Ms1[0]) != 2 {
		t.Fatalf("ms1 %v", exp.Ms1)
	}
	if len(exp.Ms2) != 1 {
		t.Fatalf("ms2 %v", exp.Ms2)
	}
	spec := exp.Ms2[0]
	if spec.CollisionEnergy != "35" {
		t.Errorf("collision energy %v", spec.CollisionEnergy)
	}
	// peaks are sorted by m/z
	if spec.Spectrum[0].Mz != 85.028 || spec.Spectrum[2].Mz != 181.07 {
		t.Errorf("peaks %v", spec.Spectrum)
	}
}

func TestReadMsErrors(t *testing.T) {
	if _, err := ReadMs(strings.NewReader("100.0 1.0\n"), "x.ms"); err == nil {
		t.Error("peak outside a section should fail")
	}
	if _, err := ReadMs(strings.NewReader(">ms2\nabc 1.0\n"), "x.ms"); err == nil {
		t.Error("invalid m/z should fail")
	}
	if _, err := ReadMs(strings.NewReader(">formula C6H12X6\n"), "x.ms"); err == nil {
		t.Error("invalid formula should fail")
	}
}

func TestWriteMsRoundTrip(t *testing.T) {
	exp, err := ReadMs(strings.NewReader(glucoseMs), "glucose.ms")
	if err != nil {
		t.Fatal(err)
	}
	var buf strings.Builder
	if err := WriteMs(&buf, exp); err != nil {
		t.Fatal(err)
	}
	back, err := ReadMs(strings.NewReader(buf.String()), "glucose.ms")
	if err != nil {
		t.Fatal(err)
	}
	if back.Name != exp.Name || back.IonMass != exp.IonMass {
		t.Errorf("round trip header mismatch: %v %v", back.Name, back.IonMass)
	}
	if diff := cmp.Diff(exp.Ms2[0].Spectrum, back.Ms2[0].Spectrum); diff != "" {
		t.Errorf("round trip peaks mismatch:\n%v", diff)
	}
}

func TestCloneIsDeep(t *testing.T) {
	exp, _ := ReadMs(strings.NewReader(glucoseMs), "glucose.ms")
	clone := exp.Clone()
	clone.Ms2[0].Spectrum[0].Mz = 1
	if exp.Ms2[0].Spectrum[0].Mz == 1 {
		t.Error("clone must not share peak storage")
	}
}
