package aggregate

import (
	"math"
	"sort"

	"github.com/carbocation/dmsatlas/aminoacid"
	"github.com/carbocation/dmsatlas/dose"
	"github.com/carbocation/dmsatlas/measurement"
	"github.com/carbocation/runningvariance"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/guregu/null.v3"
)

// Config holds the tables the aggregator depends on. Both are explicit so
// tests can substitute, e.g., a 3-letter alphabet.
type Config struct {
	Classifier dose.Classifier
	Alphabet   aminoacid.Alphabet
}

func DefaultConfig() Config {
	return Config{
		Classifier: dose.DefaultClassifier(),
		Alphabet:   aminoacid.Canonical,
	}
}

type Result struct {
	Cells       map[Key]Cell
	Diagnostics Diagnostics
}

type accumulator struct {
	reference string
	values    []float64
}

// Aggregate groups measurements by (gene, drug, position, alternate, dose
// level) and computes each group's mean, sample standard deviation and
// count. Measurements whose concentration is unmapped or non-finite, whose
// response is missing or non-finite, or whose alternate amino acid is outside of the alphabet
// contribute to no group; each such exclusion is counted in the diagnostics.
//
// The statistics do not depend on the order of ms.
func Aggregate(ms []measurement.Measurement, cfg Config) Result {
	diag := newDiagnostics()
	diag.Measurements = len(ms)

	groups := make(map[Key]*accumulator)

	for i, m := range ms {
		if cfg.Alphabet != nil && !cfg.Alphabet.Contains(m.Alternate) {
			diag.NonCanonical++
			continue
		}

		// NaN never equals itself, so it cannot key the Unclassified map.
		if !isFinite(m.Concentration) {
			diag.NonFiniteConcentrations++
			continue
		}

		level, ok := cfg.Classifier.Classify(m.Concentration)
		if !ok {
			diag.Unclassified[m.Concentration]++
			continue
		}

		slot := Key{
			Gene:      m.Gene,
			Drug:      m.Drug,
			Position:  m.Position,
			Alternate: m.Alternate,
			Dose:      level,
		}

		if !m.Response.Valid || !isFinite(m.Response.Float64) {
			diag.invalidResponse(i+1, slot)
			continue
		}

		acc, exists := groups[slot]
		if !exists {
			acc = &accumulator{}
			groups[slot] = acc
		}

		// First recorded reference wins. Later disagreements are reported,
		// never reconciled.
		switch {
		case m.Reference == "":
		case acc.reference == "":
			acc.reference = m.Reference
		case acc.reference != m.Reference:
			diag.referenceConflict(slot, acc.reference, m.Reference)
		}

		acc.values = append(acc.values, m.Response.Float64)
		diag.Aggregated++
	}

	cells := make(map[Key]Cell, len(groups))
	for slot, acc := range groups {
		key := slot
		key.Reference = acc.reference
		cells[key] = finalize(acc.values)
	}

	// Summaries are pushed in presentation order so they are reproducible.
	for _, k := range SortedKeys(cells, cfg.Alphabet) {
		rs, exists := diag.ResponseStats[k.Drug]
		if !exists {
			rs = runningvariance.NewRunningStat()
			diag.ResponseStats[k.Drug] = rs
		}
		for _, v := range groups[k.slot()].values {
			rs.Push(v)
		}
	}

	return Result{Cells: cells, Diagnostics: diag}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// finalize sorts the values first so that the floating point result is
// bit-identical however the input rows were ordered.
func finalize(values []float64) Cell {
	sort.Float64s(values)

	cell := Cell{
		Count: len(values),
		Min:   values[0],
		Max:   values[len(values)-1],
	}

	if cell.Count < 2 {
		cell.Mean = null.FloatFrom(values[0])
		return cell
	}

	mean, std := stat.MeanStdDev(values, nil)
	cell.Mean = null.FloatFrom(mean)
	cell.Std = null.FloatFrom(std)

	return cell
}
