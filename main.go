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

// sirius identifies the molecular formula of small molecules from
// tandem mass spectrometry data by combining isotope pattern analysis
// with fragmentation tree computation.
//
// Please see https://github.com/haihaba/sirius for a documentation of
// the tool and the API.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/haihaba/sirius/cmd"
)

func printHelp() {
	fmt.Fprintln(os.Stderr, "Available commands: identify, compute, decompose, simulate")
	fmt.Fprint(os.Stderr, "\n", cmd.IdentifyHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.ComputeHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.DecomposeHelp)
	fmt.Fprint(os.Stderr, "\n", cmd.SimulateHelp)
}

func main() {
	fmt.Fprintln(os.Stderr, cmd.ProgramMessage)
	if len(os.Args) < 2 {
		log.Println("Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, cmd.HelpMessage)
		printHelp()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "identify":
		cmd.Identify()
	case "compute":
		cmd.Compute()
	case "decompose":
		cmd.Decompose()
	case "simulate":
		cmd.Simulate()
	case "-h", "--h", "-help", "--help":
		printHelp()
	default:
		log.Printf("Unknown command %v.\n", os.Args[1])
		printHelp()
		os.Exit(1)
	}
}
