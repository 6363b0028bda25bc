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
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/haihaba/sirius/chem"
)

// The .ms text format stores one compound per file. Header lines start
// with '>' followed by a keyword; peak lines are "mz intensity" pairs
// that belong to the most recently opened spectrum section:
//
//	>compound bicuculline
//	>formula C20H17NO6
//	>parentmass 368.113616943359
//	>ionization [M+H]+
//	>ms1
//	368.1131897 247952.234
//	369.1163025 51246.41406
//	>collision 35
//	368.1130371 370.632904
//	...
//
// Comment lines start with '#'. Empty lines close the current section.

type msParseError struct {
	file string
	line int
	msg  string
}

func (e *msParseError) Error() string {
	return fmt.Sprintf("%v:%d: %v", e.file, e.line, e.msg)
}

// ReadMsFile parses one experiment from the .ms file at the given
// path. The experiment name defaults to the file name when the file
// has no >compound line.
func ReadMsFile(path string) (*Ms2Experiment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadMs(f, path)
}

// ReadMs parses one experiment in .ms format from the reader. The name
// parameter is used in error messages and as the default compound
// name.
func ReadMs(r io.Reader, name string) (*Ms2Experiment, error) {
	exp := &Ms2Experiment{Name: name}
	scanner := bufio.NewScanner(r)
	lineno := 0
	fail := func(format string, args ...interface{}) error {
		return &msParseError{file: name, line: lineno, msg: fmt.Sprintf(format, args...)}
	}

	const (
		sectionNone = iota
		sectionMs1
		sectionMs2
	)
	section := sectionNone
	ionTypeSet := false

	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			section = sectionNone
			continue
		}
		if line[0] == '#' {
			continue
		}
		if line[0] == '>' {
			fields := strings.Fields(line[1:])
			if len(fields) == 0 {
				return nil, fail("empty header line")
			}
			keyword := strings.ToLower(fields[0])
			value := strings.TrimSpace(strings.TrimPrefix(line[1:], fields[0]))
			switch keyword {
			case "compound":
				exp.Name = value
			case "formula":
				f, err := chem.ParseFormula(value)
				if err != nil {
					return nil, fail("%v", err)
				}
				exp.NeutralFormula = &f
			case "parentmass":
				m, err := strconv.ParseFloat(value, 64)
				if err != nil {
					return nil, fail("invalid parentmass %v", value)
				}
				exp.IonMass = m
			case "ionization", "ion":
				ion, err := chem.ParseIonType(value)
				if err != nil {
					return nil, fail("%v", err)
				}
				exp.IonType = ion
				ionTypeSet = true
			case "charge":
				if !ionTypeSet {
					c, err := strconv.Atoi(value)
					if err != nil || (c != 1 && c != -1) {
						return nil, fail("invalid charge %v: only +1 and -1 are supported", value)
					}
					exp.IonType = chem.UnknownIonType(c)
				}
			case "ms1":
				exp.Ms1 = append(exp.Ms1, nil)
				section = sectionMs1
			case "ms2", "collision":
				spec := Ms2Spectrum{ScanNumber: len(exp.Ms2), PrecursorMz: exp.IonMass}
				if keyword == "collision" {
					spec.CollisionEnergy = value
				}
				exp.Ms2 = append(exp.Ms2, spec)
				section = sectionMs2
			default:
				// unknown headers are skipped to stay forward compatible
			}
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fail("peak line needs m/z and intensity: %v", line)
		}
		mz, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fail("invalid m/z %v", fields[0])
		}
		intensity, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fail("invalid intensity %v", fields[1])
		}
		switch section {
		case sectionMs1:
			i := len(exp.Ms1) - 1
			exp.Ms1[i] = append(exp.Ms1[i], Peak{Mz: mz, Intensity: intensity})
		case sectionMs2:
			i := len(exp.Ms2) - 1
			exp.Ms2[i].Spectrum = append(exp.Ms2[i].Spectrum, Peak{Mz: mz, Intensity: intensity})
		default:
			return nil, fail("peak outside of a spectrum section")
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	for i := range exp.Ms1 {
		exp.Ms1[i].Sort()
	}
	for i := range exp.Ms2 {
		exp.Ms2[i].Spectrum.Sort()
		if exp.Ms2[i].PrecursorMz == 0 {
			exp.Ms2[i].PrecursorMz = exp.IonMass
		}
	}
	if !ionTypeSet {
		exp.IonType = chem.UnknownIonType(1)
	}
	return exp, nil
}

// WriteMs writes the experiment in .ms format.
func WriteMs(w io.Writer, exp *Ms2Experiment) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, ">compound %v\n", exp.Name)
	if exp.NeutralFormula != nil {
		fmt.Fprintf(bw, ">formula %v\n", exp.NeutralFormula)
	}
	if exp.IonMass > 0 {
		fmt.Fprintf(bw, ">parentmass %v\n", strconv.FormatFloat(exp.IonMass, 'f', -1, 64))
	}
	fmt.Fprintf(bw, ">ionization %v\n", exp.IonType)
	for _, s := range exp.Ms1 {
		fmt.Fprintln(bw, "\n>ms1")
		writePeaks(bw, s)
	}
	for _, s := range exp.Ms2 {
		if s.CollisionEnergy != "" {
			fmt.Fprintf(bw, "\n>collision %v\n", s.CollisionEnergy)
		} else {
			fmt.Fprintln(bw, "\n>ms2")
		}
		writePeaks(bw, s.Spectrum)
	}
	return bw.Flush()
}

func writePeaks(w io.Writer, s Spectrum) {
	for _, p := range s {
		fmt.Fprintf(w, "%v %v\n",
			strconv.FormatFloat(p.Mz, 'f', -1, 64),
			strconv.FormatFloat(p.Intensity, 'f', -1, 64))
	}
}
