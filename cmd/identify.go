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
	"path/filepath"
	"strings"
	"time"

	"github.com/exascience/pargo/pipeline"

	"github.com/haihaba/sirius/chem"
	"github.com/haihaba/sirius/internal"
	"github.com/haihaba/sirius/ms"
	"github.com/haihaba/sirius/sirius"
	"github.com/haihaba/sirius/workspace"
)

// IdentifyHelp is the help string of the identify command.
const IdentifyHelp = "identify parameters:\n" +
	"sirius identify <ms-file-or-directory> <output-directory-or-archive>\n" +
	"[--profile name-or-file]\n" +
	"[--candidates number]\n" +
	"[--elements constraints]\n" +
	"[--ppm-max number]\n" +
	"[--isotopes omit|filter|score]\n" +
	"[--no-recalibration]\n" +
	"[--auto-charge]\n" +
	"[--tree-timeout duration]\n" +
	"[--threads number]\n" +
	"[--log-path path]\n" +
	"[--timed]\n"

type experimentOutcome struct {
	id         string
	experiment *ms.Ms2Experiment
	results    []*sirius.IdentificationResult
	err        error
}

// Identify implements the identify command: it parses every .ms file
// of the input, runs the identification pipeline per experiment and
// writes a project space. Experiments that fail to parse are reported
// and skipped.
func Identify() {
	var profileName, elements, isotopes, logPath, treeTimeout string
	var candidates, threads int
	var ppmMax float64
	var noRecalibration, autoCharge, timed bool

	var flags flag.FlagSet
	flags.StringVar(&profileName, "profile", "", "name of a built-in profile or path of a profile file")
	flags.IntVar(&candidates, "candidates", 5, "number of candidates in the output")
	flags.StringVar(&elements, "elements", "", "allowed elements, e.g. CHNOPS[20]")
	flags.Float64Var(&ppmMax, "ppm-max", 0, "allowed mass deviation of the precursor in ppm")
	flags.StringVar(&isotopes, "isotopes", "", "isotope pattern handling: omit, filter or score")
	flags.BoolVar(&noRecalibration, "no-recalibration", false, "disable mass recalibration")
	flags.BoolVar(&autoCharge, "auto-charge", false, "search all ion modes of the detected charge")
	flags.StringVar(&treeTimeout, "tree-timeout", "", "time budget per fragmentation tree, e.g. 30s")
	flags.IntVar(&threads, "threads", 0, "number of tree computation workers")
	flags.StringVar(&logPath, "log-path", "", "directory for the log file")
	flags.BoolVar(&timed, "timed", false, "measure and print timings")

	input := getFilename(os.Args[2], IdentifyHelp)
	output := getFilename(os.Args[3], IdentifyHelp)
	parseFlags(flags, 4, IdentifyHelp)
	setLogOutput(logPath)

	profile, err := loadProfile(profileName)
	if err != nil {
		log.Println("Error:", err)
		os.Exit(1)
	}
	if elements != "" {
		constraints, err := chem.ParseConstraints(elements)
		if err != nil {
			log.Println("Error:", err)
			os.Exit(1)
		}
		profile.Measurement.Constraints = constraints
	}
	if ppmMax > 0 {
		profile.Measurement.AllowedMassDeviation = chem.NewDeviation(ppmMax)
	}
	if isotopes != "" {
		handling, err := sirius.ParseIsotopeHandling(isotopes)
		if err != nil {
			log.Println("Error:", err)
			os.Exit(1)
		}
		profile.IsotopeHandling = handling
	}
	if treeTimeout != "" {
		d, err := time.ParseDuration(treeTimeout)
		if err != nil {
			log.Println("Error: invalid tree timeout:", err)
			os.Exit(1)
		}
		profile.TreeTimeout = d
	}
	if threads > 0 {
		profile.Parallelism = threads
	}

	files, err := experimentFiles(input)
	if err != nil {
		log.Println("Error:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		log.Println("Error: no .ms files found in", input)
		os.Exit(1)
	}

	env, err := openEnvironment(output)
	if err != nil {
		log.Println("Error:", err)
		os.Exit(1)
	}
	writer := workspace.NewWriter(env)

	timedRun(timed, fmt.Sprint("Identifying ", len(files), " experiment(s)."), func() {
		pipe := sirius.NewWithProfile(profile)
		pipe.SetProgress(sirius.LogProgress{})
		if err := writer.WriteProfile(profile); err != nil {
			log.Println("Error:", err)
			os.Exit(1)
		}
		var p pipeline.Pipeline
		p.Source(files)
		p.Add(
			pipeline.LimitedPar(0, pipeline.Receive(func(_ int, data interface{}) interface{} {
				paths := data.([]string)
				outcomes := make([]experimentOutcome, len(paths))
				for i, path := range paths {
					outcomes[i] = identifyFile(pipe, path, candidates, !noRecalibration, profile.IsotopeHandling, autoCharge)
				}
				return outcomes
			})),
			pipeline.StrictOrd(pipeline.Receive(func(_ int, data interface{}) interface{} {
				for _, outcome := range data.([]experimentOutcome) {
					if outcome.err != nil {
						log.Printf("Skipping %v: %v", outcome.id, outcome.err)
						continue
					}
					if err := writer.WriteMsInput(outcome.id, outcome.experiment); err != nil {
						p.SetErr(err)
						continue
					}
					if err := writer.WriteExperiment(outcome.id, outcome.results); err != nil {
						p.SetErr(err)
					}
				}
				return data
			})),
		)
		internal.RunPipeline(&p)
	})
	if err := writer.Close(); err != nil {
		log.Println("Error:", err)
		os.Exit(1)
	}
}

func identifyFile(pipe *sirius.Sirius, path string, candidates int, recalibrating bool, handling sirius.IsotopePatternHandling, autoCharge bool) experimentOutcome {
	id := strings.TrimSuffix(filepath.Base(path), ".ms")
	experiment, err := ms.ReadMsFile(path)
	if err != nil {
		return experimentOutcome{id: id, err: err}
	}
	if experiment.Name != "" {
		id = experiment.Name
	}
	var results []*sirius.IdentificationResult
	if autoCharge || experiment.IonType.IsUnknown() {
		results, err = pipe.IdentifyPrecursorAndIonization(experiment, candidates, recalibrating, handling)
	} else {
		results, err = pipe.Identify(experiment, candidates, recalibrating, handling, nil)
	}
	return experimentOutcome{id: id, experiment: experiment, results: results, err: err}
}

func experimentFiles(input string) ([]string, error) {
	path, err := internal.FullPathname(input)
	if err != nil {
		return nil, err
	}
	names, err := internal.Directory(path)
	if err != nil {
		return nil, err
	}
	names = internal.MsFiles(names)
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	files := make([]string, len(names))
	for i, name := range names {
		files[i] = filepath.Join(path, name)
	}
	return files, nil
}

func openEnvironment(output string) (workspace.WritingEnvironment, error) {
	if strings.HasSuffix(output, ".zip") || strings.HasSuffix(output, ".sirius") {
		f, err := os.Create(output)
		if err != nil {
			return nil, err
		}
		return workspace.NewZipEnvironment(f), nil
	}
	return workspace.NewDirectoryEnvironment(output)
}
