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

// Package workspace writes identification results as a project space:
// a directory tree (or a flat zip archive preserving it) with profile
// snapshots, per-experiment summaries and rendered fragmentation
// trees.
package workspace

import (
	"archive/zip"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/haihaba/sirius/ms"
	"github.com/haihaba/sirius/sirius"
)

// A WritingEnvironment abstracts the storage backing a project space:
// a plain directory tree or a zip archive of one.
type WritingEnvironment interface {
	EnterDirectory(name string) error
	LeaveDirectory() error
	// OpenFile opens a file in the current directory; it stays the
	// active target until CloseFile.
	OpenFile(name string) (io.Writer, error)
	CloseFile() error
	Close() error
}

// directoryEnvironment writes into a directory tree on disk.
type directoryEnvironment struct {
	path []string
	file *os.File
}

// NewDirectoryEnvironment returns an environment rooted at the given
// directory, which is created if missing.
func NewDirectoryEnvironment(root string) (WritingEnvironment, error) {
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, err
	}
	return &directoryEnvironment{path: []string{root}}, nil
}

func (d *directoryEnvironment) EnterDirectory(name string) error {
	d.path = append(d.path, name)
	return os.MkdirAll(filepath.Join(d.path...), 0700)
}

func (d *directoryEnvironment) LeaveDirectory() error {
	if len(d.path) <= 1 {
		return fmt.Errorf("cannot leave workspace root")
	}
	d.path = d.path[:len(d.path)-1]
	return nil
}

func (d *directoryEnvironment) OpenFile(name string) (io.Writer, error) {
	f, err := os.Create(filepath.Join(filepath.Join(d.path...), name))
	if err != nil {
		return nil, err
	}
	d.file = f
	return f, nil
}

func (d *directoryEnvironment) CloseFile() error {
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

func (d *directoryEnvironment) Close() error {
	return d.CloseFile()
}

// zipEnvironment writes a flat UTF-8 zip archive preserving the
// directory layout.
type zipEnvironment struct {
	zip    *zip.Writer
	under  io.Writer
	path   []string
}

// NewZipEnvironment returns an environment writing a zip archive to
// the stream. When the stream is an io.Closer it is closed together
// with the environment.
func NewZipEnvironment(w io.Writer) WritingEnvironment {
	return &zipEnvironment{zip: zip.NewWriter(w), under: w}
}

func (z *zipEnvironment) join() string {
	if len(z.path) == 0 {
		return ""
	}
	return strings.Join(z.path, "/") + "/"
}

func (z *zipEnvironment) EnterDirectory(name string) error {
	z.path = append(z.path, name)
	_, err := z.zip.Create(z.join())
	return err
}

func (z *zipEnvironment) LeaveDirectory() error {
	if len(z.path) == 0 {
		return fmt.Errorf("cannot leave workspace root")
	}
	z.path = z.path[:len(z.path)-1]
	return nil
}

func (z *zipEnvironment) OpenFile(name string) (io.Writer, error) {
	return z.zip.Create(z.join() + name)
}

func (z *zipEnvironment) CloseFile() error { return nil }

func (z *zipEnvironment) Close() error {
	err := z.zip.Close()
	if closer, ok := z.under.(io.Closer); ok {
		err = firstError(err, closer.Close())
	}
	return err
}

// A Writer lays out a project space: profiles/<name>/profile.json,
// per experiment <id>/summary.csv and <id>/trees/<rank>_<formula>
// renderings, and a scores/scores.csv matrix over all experiments.
type Writer struct {
	env   WritingEnvironment
	runID string
	rows  [][]string
}

// NewWriter returns a writer on the given environment with a fresh
// run identifier.
func NewWriter(env WritingEnvironment) *Writer {
	return &Writer{env: env, runID: uuid.New().String()}
}

// RunID returns the unique identifier of this run.
func (w *Writer) RunID() string { return w.runID }

// WriteProfile stores a profile snapshot under profiles/<name>/.
func (w *Writer) WriteProfile(p sirius.Profile) (err error) {
	if err = w.env.EnterDirectory("profiles"); err != nil {
		return err
	}
	defer func() { err = firstError(err, w.env.LeaveDirectory()) }()
	if err = w.env.EnterDirectory(p.Name); err != nil {
		return err
	}
	defer func() { err = firstError(err, w.env.LeaveDirectory()) }()
	f, err := w.env.OpenFile("profile.json")
	if err != nil {
		return err
	}
	defer func() { err = firstError(err, w.env.CloseFile()) }()
	snapshot := map[string]interface{}{
		"name":                   p.Name,
		"allowedMassDeviation":   p.Measurement.AllowedMassDeviation.String(),
		"standardMs1Deviation":   p.Measurement.StandardMs1Deviation.String(),
		"standardMs2Deviation":   p.Measurement.StandardMs2Deviation.String(),
		"formulaConstraints":     p.Measurement.Constraints.String(),
		"treeSizeScore":          p.TreeSizeScore,
		"isotopePatternHandling": p.IsotopeHandling.String(),
		"parallelism":            p.Parallelism,
		"medianSlopeRecalibration": map[string]interface{}{
			"ppm":          p.Recalibration.Deviation.Ppm,
			"abs":          p.Recalibration.Deviation.Abs,
			"minPeaks":     p.Recalibration.MinPeakCount,
			"minIntensity": p.Recalibration.MinIntensity,
		},
		"run": w.runID,
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(snapshot)
}

// WriteMsInput stores the input experiment under ms/<id>.ms, so the
// workspace is self-contained.
func (w *Writer) WriteMsInput(id string, experiment *ms.Ms2Experiment) (err error) {
	if err = w.env.EnterDirectory("ms"); err != nil {
		return err
	}
	defer func() { err = firstError(err, w.env.LeaveDirectory()) }()
	f, err := w.env.OpenFile(sanitize(id) + ".ms")
	if err != nil {
		return err
	}
	defer func() { err = firstError(err, w.env.CloseFile()) }()
	return ms.WriteMs(f, experiment)
}

// WriteExperiment stores the ranked results of one experiment.
func (w *Writer) WriteExperiment(id string, results []*sirius.IdentificationResult) (err error) {
	if err = w.env.EnterDirectory(sanitize(id)); err != nil {
		return err
	}
	defer func() { err = firstError(err, w.env.LeaveDirectory()) }()

	if err = w.writeSummary(results); err != nil {
		return err
	}
	if err = w.env.EnterDirectory("trees"); err != nil {
		return err
	}
	defer func() { err = firstError(err, w.env.LeaveDirectory()) }()
	for _, r := range results {
		if r.Tree == nil {
			continue
		}
		base := strconv.Itoa(r.Rank) + "_" + sanitize(r.Formula)
		if err = w.writeFile(base+".json", r.WriteTreeJSON); err != nil {
			return err
		}
		if err = w.writeFile(base+".dot", r.WriteTreeDot); err != nil {
			return err
		}
	}
	w.recordScores(id, results)
	return nil
}

func (w *Writer) writeSummary(results []*sirius.IdentificationResult) (err error) {
	f, err := w.env.OpenFile("summary.csv")
	if err != nil {
		return err
	}
	defer func() { err = firstError(err, w.env.CloseFile()) }()
	cw := csv.NewWriter(f)
	if err = cw.Write([]string{"rank", "formula", "ionization", "score", "treeSize", "explainedIntensity", "isotopeScore"}); err != nil {
		return err
	}
	for _, r := range results {
		ionization := ""
		if r.Tree != nil {
			ionization = r.Tree.IonType.String()
		}
		if err = cw.Write([]string{
			strconv.Itoa(r.Rank),
			r.Formula,
			ionization,
			formatFloat(r.Score),
			strconv.Itoa(r.TreeSize()),
			formatFloat(r.ExplainedIntensity),
			formatFloat(r.IsotopeScore()),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (w *Writer) writeFile(name string, render func(io.Writer) error) (err error) {
	f, err := w.env.OpenFile(name)
	if err != nil {
		return err
	}
	defer func() { err = firstError(err, w.env.CloseFile()) }()
	return render(f)
}

func (w *Writer) recordScores(id string, results []*sirius.IdentificationResult) {
	row := []string{id}
	for _, r := range results {
		row = append(row, r.Formula, formatFloat(r.Score))
	}
	w.rows = append(w.rows, row)
}

// Close writes the accumulated score matrix and closes the
// environment.
func (w *Writer) Close() (err error) {
	if len(w.rows) > 0 {
		if err = w.env.EnterDirectory("scores"); err == nil {
			var f io.Writer
			if f, err = w.env.OpenFile("scores.csv"); err == nil {
				cw := csv.NewWriter(f)
				for _, row := range w.rows {
					if werr := cw.Write(row); werr != nil {
						err = firstError(err, werr)
						break
					}
				}
				cw.Flush()
				err = firstError(err, cw.Error())
				err = firstError(err, w.env.CloseFile())
			}
			err = firstError(err, w.env.LeaveDirectory())
		}
	}
	return firstError(err, w.env.Close())
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

// sanitize makes a string safe as a file name component.
func sanitize(s string) string {
	mapped := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, s)
	if mapped == "" {
		return uuid.New().String()
	}
	return mapped
}
