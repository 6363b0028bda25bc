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
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/haihaba/sirius/chem"
	"github.com/haihaba/sirius/ms"
	"github.com/haihaba/sirius/sirius"
	"github.com/haihaba/sirius/workspace"
)

// ComputeHelp is the help string of the compute command.
const ComputeHelp = "compute parameters:\n" +
	"sirius compute <ms-file> <output-directory-or-archive>\n" +
	"[--formula neutral-formula]\n" +
	"[--profile name-or-file]\n" +
	"[--no-recalibration]\n" +
	"[--log-path path]\n"

// Compute implements the compute command: the fragmentation tree of a
// single fixed molecular formula. The formula is taken from the
// --formula flag or from the >formula line of the input file.
func Compute() {
	var profileName, formulaString, logPath string
	var noRecalibration bool

	var flags flag.FlagSet
	flags.StringVar(&formulaString, "formula", "", "neutral molecular formula of the compound")
	flags.StringVar(&profileName, "profile", "", "name of a built-in profile or path of a profile file")
	flags.BoolVar(&noRecalibration, "no-recalibration", false, "disable mass recalibration")
	flags.StringVar(&logPath, "log-path", "", "directory for the log file")

	input := getFilename(os.Args[2], ComputeHelp)
	output := getFilename(os.Args[3], ComputeHelp)
	parseFlags(flags, 4, ComputeHelp)
	setLogOutput(logPath)

	profile, err := loadProfile(profileName)
	if err != nil {
		log.Println("Error:", err)
		os.Exit(1)
	}
	experiment, err := ms.ReadMsFile(input)
	if err != nil {
		log.Println("Error:", err)
		os.Exit(1)
	}
	var formula chem.MolecularFormula
	switch {
	case formulaString != "":
		if formula, err = chem.ParseFormula(formulaString); err != nil {
			log.Println("Error:", err)
			os.Exit(1)
		}
	case experiment.NeutralFormula != nil:
		formula = *experiment.NeutralFormula
	default:
		log.Println("Error: no molecular formula given; use --formula or a >formula line")
		os.Exit(1)
	}

	pipe := sirius.NewWithProfile(profile)
	pipe.SetProgress(sirius.LogProgress{})
	result, err := pipe.Compute(experiment, formula, !noRecalibration)
	if err != nil {
		log.Println("Error:", err)
		os.Exit(1)
	}
	if result.Tree == nil {
		log.Printf("No fragmentation tree exists for %v.", formula)
	}

	env, err := openEnvironment(output)
	if err != nil {
		log.Println("Error:", err)
		os.Exit(1)
	}
	writer := workspace.NewWriter(env)
	id := experiment.Name
	if id == "" {
		id = strings.TrimSuffix(filepath.Base(input), ".ms")
	}
	if err := writer.WriteExperiment(id, []*sirius.IdentificationResult{result}); err != nil {
		log.Println("Error:", err)
		os.Exit(1)
	}
	if err := writer.Close(); err != nil {
		log.Println("Error:", err)
		os.Exit(1)
	}
}
