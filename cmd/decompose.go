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

// DecomposeHelp is the help string of the decompose command.
const DecomposeHelp = "decompose parameters:\n" +
	"sirius decompose --mass number\n" +
	"[--ion ion-type]\n" +
	"[--elements constraints]\n" +
	"[--ppm number]\n" +
	"[--profile name-or-file]\n"

// Decompose implements the decompose command: it lists all molecular
// formulas whose ionized mass lies near the given mass.
func Decompose() {
	var profileName, ionName, elements string
	var mass, ppm float64

	var flags flag.FlagSet
	flags.Float64Var(&mass, "mass", 0, "measured ion mass")
	flags.StringVar(&ionName, "ion", "[M+H]+", "precursor ion type")
	flags.StringVar(&elements, "elements", "", "allowed elements, e.g. CHNOPS[20]")
	flags.Float64Var(&ppm, "ppm", 0, "allowed mass deviation in ppm")
	flags.StringVar(&profileName, "profile", "", "name of a built-in profile or path of a profile file")
	parseFlags(flags, 2, DecomposeHelp)

	if mass <= 0 {
		fmt.Fprintln(os.Stderr, "Missing or invalid --mass parameter.")
		fmt.Fprint(os.Stderr, DecomposeHelp)
		os.Exit(1)
	}
	profile, err := loadProfile(profileName)
	if err != nil {
		log.Println("Error:", err)
		os.Exit(1)
	}
	constraints := profile.Measurement.Constraints
	if elements != "" {
		if constraints, err = chem.ParseConstraints(elements); err != nil {
			log.Println("Error:", err)
			os.Exit(1)
		}
	}
	ionType, err := chem.ParseIonType(ionName)
	if err != nil {
		log.Println("Error:", err)
		os.Exit(1)
	}
	dev := profile.Measurement.AllowedMassDeviation
	if ppm > 0 {
		dev = chem.NewDeviation(ppm)
	}

	pipe := sirius.NewWithProfile(profile)
	formulas := pipe.Decompose(mass, ionType.Ionization(), constraints, dev)
	fmt.Println("formula\tmass\tdeviation(ppm)")
	for _, f := range formulas {
		theoretical := ionType.Ionization().AddToMass(f.Mass())
		fmt.Printf("%v\t%.6f\t%.3f\n", f, theoretical, (mass-theoretical)/theoretical*1e6)
	}
}
