package measurement

import "github.com/carbocation/dmsatlas/aminoacid"

// FilterCanonical keeps only measurements whose alternate amino acid is in
// alphabet. Stop codons, indels and the like are dropped here, before
// aggregation.
func FilterCanonical(ms []Measurement, alphabet aminoacid.Alphabet) ([]Measurement, Report) {
	report := NewReport()
	report.Rows = len(ms)

	out := make([]Measurement, 0, len(ms))
	for i, m := range ms {
		if !alphabet.Contains(m.Alternate) {
			report.drop(DropNonCanonical, i+1, m.Alternate)
			continue
		}
		out = append(out, m)
	}
	report.Kept = len(out)

	return out, report
}

// Drugs returns the distinct drug names in ms, in first-seen order.
func Drugs(ms []Measurement) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, m := range ms {
		if _, exists := seen[m.Drug]; exists {
			continue
		}
		seen[m.Drug] = struct{}{}
		out = append(out, m.Drug)
	}

	return out
}
