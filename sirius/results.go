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

package sirius

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/haihaba/sirius/fragment"
)

// An IdentificationResult is one ranked candidate: the neutral formula
// of the tree root together with the fragmentation tree itself and the
// composite score. Tree is nil when no feasible tree exists for the
// candidate.
type IdentificationResult struct {
	Rank    int
	Formula string
	Tree    *fragment.FTree
	Score   float64
	// ExplainedIntensity is the fraction of the total MS2 peak
	// intensity explained by the tree.
	ExplainedIntensity float64
	// Optimal is false when the solver could not prove optimality,
	// for example after a timeout.
	Optimal bool
}

// TreeSize returns the number of fragments of the tree, or 0 for a
// nil tree.
func (r *IdentificationResult) TreeSize() int {
	return r.Tree.NumberOfVertices()
}

func newResult(tree *fragment.FTree, rank int) *IdentificationResult {
	if tree == nil {
		return &IdentificationResult{Rank: rank}
	}
	return &IdentificationResult{
		Rank:    rank,
		Formula: tree.Root.Formula.String(),
		Tree:    tree,
		Score:   tree.Scoring.OverallScore,
		Optimal: tree.Optimal,
	}
}

// IsotopeScore returns the tree's isotope category score, or 0.
func (r *IdentificationResult) IsotopeScore() float64 {
	if r.Tree == nil {
		return 0
	}
	return r.Tree.Scoring.Additional[IsotopeScoreName]
}

type jsonFragment struct {
	Formula   string  `json:"formula"`
	Mz        float64 `json:"mz"`
	Intensity float64 `json:"intensity"`
}

type jsonLoss struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Loss   string  `json:"loss"`
	Weight float64 `json:"weight"`
}

type jsonTree struct {
	Root       string             `json:"root"`
	IonType    string             `json:"ionization"`
	Score      float64            `json:"score"`
	RootScore  float64            `json:"rootScore"`
	Additional map[string]float64 `json:"additionalScores,omitempty"`
	Fragments  []jsonFragment     `json:"fragments"`
	Losses     []jsonLoss         `json:"losses"`
}

// WriteTreeJSON renders the fragmentation tree as JSON.
func (r *IdentificationResult) WriteTreeJSON(w io.Writer) error {
	if r.Tree == nil {
		_, err := io.WriteString(w, "null\n")
		return err
	}
	t := jsonTree{
		Root:       r.Formula,
		IonType:    r.Tree.IonType.String(),
		Score:      r.Tree.Scoring.OverallScore,
		RootScore:  r.Tree.Scoring.RootScore,
		Additional: r.Tree.Scoring.Additional,
	}
	for _, f := range r.Tree.Fragments() {
		jf := jsonFragment{Formula: f.Formula.String()}
		if f.Peak != nil {
			jf.Mz = f.Peak.Mz
			jf.Intensity = f.Peak.RelativeIntensity
		}
		t.Fragments = append(t.Fragments, jf)
		for _, child := range f.Children {
			t.Losses = append(t.Losses, jsonLoss{
				Source: f.Formula.String(),
				Target: child.Formula.String(),
				Loss:   child.IncomingLoss.String(),
				Weight: child.IncomingWeight,
			})
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

// WriteTreeDot renders the fragmentation tree in Graphviz dot format.
func (r *IdentificationResult) WriteTreeDot(w io.Writer) error {
	if r.Tree == nil {
		_, err := io.WriteString(w, "digraph {}\n")
		return err
	}
	if _, err := fmt.Fprintf(w, "digraph %q {\n", r.Formula); err != nil {
		return err
	}
	for _, f := range r.Tree.Fragments() {
		mz := 0.0
		if f.Peak != nil {
			mz = f.Peak.Mz
		}
		if _, err := fmt.Fprintf(w, "  %q [label=\"%v\\n%.4f\"];\n", f.Formula.String(), f.Formula, mz); err != nil {
			return err
		}
		for _, child := range f.Children {
			if _, err := fmt.Fprintf(w, "  %q -> %q [label=\"-%v\"];\n",
				f.Formula.String(), child.Formula.String(), child.IncomingLoss); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}
