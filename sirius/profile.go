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

// Package sirius is the identification pipeline: it composes isotope
// pattern analysis, peak preprocessing, fragmentation graph
// construction, the colorful subtree solver and recalibration into a
// ranked list of molecular formula candidates.
package sirius

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/haihaba/sirius/chem"
	"github.com/haihaba/sirius/ms"
	"github.com/haihaba/sirius/recal"
)

// IsotopePatternHandling selects how MS1 isotope patterns influence
// the identification.
type IsotopePatternHandling int

const (
	// IsotopeOmit ignores MS1 data.
	IsotopeOmit IsotopePatternHandling = iota
	// IsotopeFilter restricts candidates to the isotope-filtered set.
	IsotopeFilter
	// IsotopeScore filters and additionally adds the isotope score to
	// each candidate's tree.
	IsotopeScore
)

// ParseIsotopeHandling parses "omit", "filter" or "score".
func ParseIsotopeHandling(s string) (IsotopePatternHandling, error) {
	switch strings.ToLower(s) {
	case "omit":
		return IsotopeOmit, nil
	case "filter":
		return IsotopeFilter, nil
	case "score":
		return IsotopeScore, nil
	}
	return 0, fmt.Errorf("unknown isotope handling %v (expected omit, filter or score)", s)
}

func (h IsotopePatternHandling) String() string {
	switch h {
	case IsotopeFilter:
		return "filter"
	case IsotopeScore:
		return "score"
	}
	return "omit"
}

// A Profile is the immutable per-run configuration of the pipeline.
// Profiles are values; modified copies are created by assignment.
type Profile struct {
	Name        string
	Measurement ms.MeasurementProfile
	// TreeSizeScore is the initial per-fragment bonus; the adaptive
	// loop threads raised values without mutating the profile.
	TreeSizeScore   float64
	IsotopeHandling IsotopePatternHandling
	Parallelism     int
	// TreeTimeout bounds each single tree computation; zero means
	// unbounded.
	TreeTimeout time.Duration
	// MaxDPColors bounds the exact solver; larger graphs are solved
	// heuristically.
	MaxDPColors   int
	Recalibration recal.MedianSlope
}

// DefaultProfile is the qtof profile: 10 ppm allowed deviation and
// CHNOPS with at most 20 sulfur and phosphorus atoms.
func DefaultProfile() Profile {
	return Profile{
		Name: "default",
		Measurement: ms.MeasurementProfile{
			AllowedMassDeviation: chem.Deviation{Ppm: 10, Abs: 5e-4},
			StandardMs1Deviation: chem.Deviation{Ppm: 10, Abs: 5e-4},
			StandardMs2Deviation: chem.Deviation{Ppm: 10, Abs: 5e-4},
			Constraints:          chem.MustConstraints("CHNOP[20]S[20]"),
		},
		TreeSizeScore:   0,
		IsotopeHandling: IsotopeScore,
		Parallelism:     3,
		Recalibration:   recal.DefaultMedianSlope(),
	}
}

// ProfileByName returns one of the built-in profiles: default, qtof,
// orbitrap or fticr.
func ProfileByName(name string) (Profile, error) {
	p := DefaultProfile()
	switch strings.ToLower(name) {
	case "", "default", "qtof":
		p.Name = "qtof"
	case "orbitrap":
		p.Name = "orbitrap"
		p.Measurement.AllowedMassDeviation = chem.Deviation{Ppm: 5, Abs: 2.5e-4}
		p.Measurement.StandardMs1Deviation = chem.Deviation{Ppm: 5, Abs: 2.5e-4}
		p.Measurement.StandardMs2Deviation = chem.Deviation{Ppm: 5, Abs: 2.5e-4}
	case "fticr":
		p.Name = "fticr"
		p.Measurement.AllowedMassDeviation = chem.Deviation{Ppm: 5, Abs: 2.5e-4}
		p.Measurement.StandardMs1Deviation = chem.Deviation{Ppm: 2, Abs: 1e-4}
		p.Measurement.StandardMs2Deviation = chem.Deviation{Ppm: 5, Abs: 2.5e-4}
	default:
		return Profile{}, fmt.Errorf("unknown profile %v", name)
	}
	return p, nil
}

// LoadProfile reads a profile snapshot from a configuration file
// (json, yaml or toml; the format is derived from the extension).
// Missing keys keep their default values. Recognized keys:
// allowedMassDeviation, standardMs1Deviation, standardMs2Deviation
// (e.g. "10 ppm" or "10 ppm 0.0005"), formulaConstraints,
// treeSizeScore, isotopePatternHandling, parallelism, and the
// medianSlopeRecalibration table with ppm, abs, minPeaks and
// minIntensity.
func LoadProfile(path string) (Profile, error) {
	p := DefaultProfile()
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Profile{}, fmt.Errorf("cannot load profile %v: %v", path, err)
	}
	if name := v.GetString("profile"); name != "" {
		base, err := ProfileByName(name)
		if err != nil {
			return Profile{}, err
		}
		p = base
	}
	base := filepath.Base(path)
	p.Name = strings.TrimSuffix(base, filepath.Ext(base))
	if v.IsSet("name") {
		p.Name = v.GetString("name")
	}
	for key, target := range map[string]*chem.Deviation{
		"allowedmassdeviation": &p.Measurement.AllowedMassDeviation,
		"standardms1deviation": &p.Measurement.StandardMs1Deviation,
		"standardms2deviation": &p.Measurement.StandardMs2Deviation,
	} {
		if v.IsSet(key) {
			d, err := ParseDeviation(v.GetString(key))
			if err != nil {
				return Profile{}, fmt.Errorf("cannot load profile %v: %v", path, err)
			}
			*target = d
		}
	}
	if v.IsSet("formulaconstraints") {
		c, err := chem.ParseConstraints(v.GetString("formulaconstraints"))
		if err != nil {
			return Profile{}, fmt.Errorf("cannot load profile %v: %v", path, err)
		}
		p.Measurement.Constraints = c
	}
	if v.IsSet("treesizescore") {
		p.TreeSizeScore = v.GetFloat64("treesizescore")
	}
	if v.IsSet("isotopepatternhandling") {
		h, err := ParseIsotopeHandling(v.GetString("isotopepatternhandling"))
		if err != nil {
			return Profile{}, fmt.Errorf("cannot load profile %v: %v", path, err)
		}
		p.IsotopeHandling = h
	}
	if v.IsSet("parallelism") {
		p.Parallelism = v.GetInt("parallelism")
	}
	if v.IsSet("treetimeout") {
		p.TreeTimeout = v.GetDuration("treetimeout")
	}
	if v.IsSet("mediansloperecalibration.ppm") {
		p.Recalibration.Deviation.Ppm = v.GetFloat64("mediansloperecalibration.ppm")
	}
	if v.IsSet("mediansloperecalibration.abs") {
		p.Recalibration.Deviation.Abs = v.GetFloat64("mediansloperecalibration.abs")
	}
	if v.IsSet("mediansloperecalibration.minpeaks") {
		p.Recalibration.MinPeakCount = v.GetInt("mediansloperecalibration.minpeaks")
	}
	if v.IsSet("mediansloperecalibration.minintensity") {
		p.Recalibration.MinIntensity = v.GetFloat64("mediansloperecalibration.minintensity")
	}
	return p, nil
}

// ParseDeviation parses a deviation of the form "10 ppm", "10 ppm
// 0.0005" or a bare ppm number.
func ParseDeviation(s string) (chem.Deviation, error) {
	fields := strings.Fields(strings.ReplaceAll(s, ",", " "))
	var numbers []float64
	for _, f := range fields {
		f = strings.Trim(f, "()")
		if f == "" || f == "ppm" || f == "m/z" || f == "Da" {
			continue
		}
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return chem.Deviation{}, fmt.Errorf("cannot parse deviation %v", s)
		}
		numbers = append(numbers, x)
	}
	switch len(numbers) {
	case 1:
		return chem.NewDeviation(numbers[0]), nil
	case 2:
		return chem.Deviation{Ppm: numbers[0], Abs: numbers[1]}, nil
	}
	return chem.Deviation{}, fmt.Errorf("cannot parse deviation %v", s)
}
