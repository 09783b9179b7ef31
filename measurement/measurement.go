// Package measurement holds the replicate-level records of a dose-response
// screen, and loaders that produce them from CSV files or BigQuery.
package measurement

import (
	"strconv"

	"gopkg.in/guregu/null.v3"
)

// Measurement is one replicate reading. Optional fields are null when the
// source did not record them; a null is never read as zero or false.
type Measurement struct {
	Gene          string
	Drug          string
	Position      int    // Protein position, 1-based
	Reference     string // Reference amino acid. Empty if not recorded.
	Alternate     string // Alternate amino acid
	Concentration float64
	Replicate     int
	Response      null.Float // Observed net growth rate. Null if missing or non-numeric.

	VariantType null.String
	Synonymous  null.Bool
	Species     null.String
}

// VariantString formats the substitution as e.g. "T315I".
func (m Measurement) VariantString() string {
	return VariantString(m.Reference, m.Position, m.Alternate)
}

// VariantString concatenates reference, position and alternate. An empty
// reference is not dropped; callers substitute their own sentinel first.
func VariantString(ref string, position int, alt string) string {
	return ref + strconv.Itoa(position) + alt
}
