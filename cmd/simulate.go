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

package cmd

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/haihaba/sirius/chem"
	"github.com/haihaba/sirius/sirius"
)

// SimulateHelp is the help string of the simulate command.
const SimulateHelp = "simulate parameters:\n" +
	"sirius simulate --formula neutral-formula\n" +
	"[--ion ion-type]\n" +
	"[--profile name-or-file]\n"

// Simulate implements the simulate command: it prints the theoretical
// isotope pattern of a molecular formula.
func Simulate() {
	var profileName, formulaString, ionName string

	var flags flag.FlagSet
	flags.StringVar(&formulaString, "formula", "", "neutral molecular formula")
	flags.StringVar(&ionName, "ion", "[M+H]+", "precursor ion type")
	flags.StringVar(&profileName, "profile", "", "name of a built-in profile or path of a profile file")
	parseFlags(flags, 2, SimulateHelp)

	if formulaString == "" {
		fmt.Fprintln(os.Stderr, "Missing --formula parameter.")
		fmt.Fprint(os.Stderr, SimulateHelp)
		os.Exit(1)
	}
	formula, err := chem.ParseFormula(formulaString)
	if err != nil {
		log.Println("Error:", err)
		os.Exit(1)
	}
	ionType, err := chem.ParseIonType(ionName)
	if err != nil {
		log.Println("Error:", err)
		os.Exit(1)
	}
	profile, err := loadProfile(profileName)
	if err != nil {
		log.Println("Error:", err)
		os.Exit(1)
	}

	pipe := sirius.NewWithProfile(profile)
	pattern := pipe.SimulateIsotopePattern(formula, ionType.Ionization())
	fmt.Println("mz\tintensity")
	for _, p := range pattern {
		fmt.Printf("%.6f\t%.6f\n", p.Mz, p.Intensity)
	}
}
