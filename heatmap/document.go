// Package heatmap arranges aggregated cells into the per-drug position by
// amino acid matrices that the front-end heat map renders, along with their
// color-scale ranges and a variant lookup.
package heatmap

import (
	"log"
	"sort"

	"github.com/carbocation/dmsatlas/aggregate"
	"github.com/carbocation/dmsatlas/dose"
	"github.com/carbocation/dmsatlas/measurement"
	"gopkg.in/guregu/null.v3"
)

const DocumentType = "position_vs_amino_acid"

type PositionRange struct {
	Min               null.Int `json:"min"`
	Max               null.Int `json:"max"`
	PositionsWithData int      `json:"positions_with_data"`
}

type Metadata struct {
	Type              string                        `json:"type"`
	TotalVariants     int                           `json:"total_variants"`
	TotalMeasurements int                           `json:"total_measurements"`
	PositionRange     PositionRange                 `json:"position_range"`
	AminoAcids        []string                      `json:"amino_acids"`
	AminoAcidsCount   int                           `json:"amino_acids_count"`
	Gene              null.String                   `json:"gene"`
	Genes             []string                      `json:"genes"`
	Drugs             []string                      `json:"drugs"`
	CanonicalDrug     null.String                   `json:"canonical_drug"`
	ValueRanges       map[string]ValueRange         `json:"value_ranges"`
	DataCounts        map[string]map[dose.Level]int `json:"data_counts"`
	DoseLevels        []string                      `json:"dose_levels"`
	DoseMapping       string                        `json:"dose_mapping"`
	GeneratedBy       string                        `json:"generated_by,omitempty"`
}

// Document is the complete heat map payload.
type Document struct {
	Metadata      Metadata               `json:"metadata"`
	Matrices      map[string]DrugMatrix  `json:"matrices"`
	Positions     []int                  `json:"positions"`
	VariantLookup map[string]LookupEntry `json:"variant_lookup"`
}

type Options struct {
	Config aggregate.Config

	// Drugs that must appear in the document even if no measurement for them
	// survives aggregation.
	Drugs []string

	GeneratedBy string
}

// Report gathers the diagnostics of every stage of Build.
type Report struct {
	Filter      measurement.Report
	Aggregation aggregate.Diagnostics
	Matrix      MatrixReport
}

func (r Report) Log() {
	r.Filter.Log("Canonical amino acid filter")
	r.Aggregation.Log()

	for _, v := range r.Matrix.ReferenceConflicts {
		log.Println("Reference amino acid conflict:", v)
	}
	for _, v := range r.Matrix.Collisions {
		log.Println("Matrix collision:", v)
	}
}

// Build runs the whole pipeline over ms: the canonical amino acid filter,
// aggregation, and Assemble.
func Build(ms []measurement.Measurement, opts Options) (Document, Report) {
	report := Report{}

	filtered, filterReport := measurement.FilterCanonical(ms, opts.Config.Alphabet)
	report.Filter = filterReport

	agg := aggregate.Aggregate(filtered, opts.Config)
	report.Aggregation = agg.Diagnostics

	// Drugs named by the input still get a matrix when none of their rows
	// could be aggregated.
	opts.Drugs = append(append([]string(nil), opts.Drugs...), measurement.Drugs(filtered)...)

	doc, matrixReport := Assemble(agg.Cells, opts)
	report.Matrix = matrixReport

	return doc, report
}

// Assemble builds the matrices, ranges, lookup and metadata from
// already-aggregated cells.
func Assemble(cells map[aggregate.Key]aggregate.Cell, opts Options) (Document, MatrixReport) {
	alphabet := opts.Config.Alphabet

	drugSet := make(map[string]struct{})
	geneSet := make(map[string]struct{})
	type variant struct {
		gene     string
		position int
		alt      string
	}
	variants := make(map[variant]struct{})
	measurements := 0

	for _, drug := range opts.Drugs {
		drugSet[drug] = struct{}{}
	}
	for k, cell := range cells {
		drugSet[k.Drug] = struct{}{}
		geneSet[k.Gene] = struct{}{}
		if alphabet.Contains(k.Alternate) {
			variants[variant{k.Gene, k.Position, k.Alternate}] = struct{}{}
		}
		measurements += cell.Count
	}

	drugs := sortedSet(drugSet)
	genes := sortedSet(geneSet)

	matrices, report := BuildMatrices(cells, drugs, alphabet)

	doc := Document{
		Matrices:      matrices,
		Positions:     make([]int, 0),
		VariantLookup: make(map[string]LookupEntry),
		Metadata: Metadata{
			Type:              DocumentType,
			TotalVariants:     len(variants),
			TotalMeasurements: measurements,
			AminoAcids:        append([]string{}, alphabet...),
			AminoAcidsCount:   alphabet.Len(),
			Genes:             genes,
			Drugs:             drugs,
			ValueRanges:       make(map[string]ValueRange, len(matrices)),
			DataCounts:        make(map[string]map[dose.Level]int, len(matrices)),
			DoseLevels:        dose.LevelNames(),
			DoseMapping:       opts.Config.Classifier.String(),
			GeneratedBy:       opts.GeneratedBy,
		},
	}

	if len(genes) > 0 {
		doc.Metadata.Gene = null.StringFrom(genes[0])
		if len(genes) > 1 {
			log.Printf("Found %d genes (%v); reporting %s as the document's gene\n", len(genes), genes, genes[0])
		}
	}

	positionSet := make(map[int]struct{})
	for drug, m := range matrices {
		vr := ComputeRange(m)
		doc.Metadata.ValueRanges[drug] = vr

		counts := make(map[dose.Level]int, 3)
		for _, l := range dose.Levels() {
			counts[l] = vr.Dose(l).Count
		}
		doc.Metadata.DataCounts[drug] = counts

		for _, pos := range m.Positions {
			positionSet[pos] = struct{}{}
		}
	}

	for pos := range positionSet {
		doc.Positions = append(doc.Positions, pos)
	}
	sort.Ints(doc.Positions)

	doc.Metadata.PositionRange.PositionsWithData = len(doc.Positions)
	if n := len(doc.Positions); n > 0 {
		doc.Metadata.PositionRange.Min = null.IntFrom(int64(doc.Positions[0]))
		doc.Metadata.PositionRange.Max = null.IntFrom(int64(doc.Positions[n-1]))
	}

	if drug, ok := CanonicalDrug(matrices); ok {
		doc.Metadata.CanonicalDrug = null.StringFrom(drug)
		doc.VariantLookup = BuildLookup(matrices[drug])
	}

	return doc, report
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)

	return out
}
