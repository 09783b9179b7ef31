package heatmap

import (
	"fmt"
	"sort"

	"github.com/carbocation/dmsatlas/measurement"
)

// LookupEntry identifies the variant behind one square of the heat map.
type LookupEntry struct {
	ID            string `json:"id"` // E.g., T315I
	Position      int    `json:"position"`
	AminoAcid     string `json:"amino_acid"`
	Reference     string `json:"reference_amino_acid"`
	VariantString string `json:"variant_string"` // E.g., p.T315I
}

func LookupKey(position int, aa string) string {
	return fmt.Sprintf("%d_%s", position, aa)
}

// BuildLookup indexes every (position, amino acid) square of m, including
// squares with no data. An unknown reference is embedded in the identifier
// as-is.
func BuildLookup(m DrugMatrix) map[string]LookupEntry {
	out := make(map[string]LookupEntry, m.Len()*m.Alphabet.Len())

	for _, pos := range m.Positions {
		for _, aa := range m.Alphabet {
			ref := m.Rows[pos][aa].Reference
			id := measurement.VariantString(ref, pos, aa)

			out[LookupKey(pos, aa)] = LookupEntry{
				ID:            id,
				Position:      pos,
				AminoAcid:     aa,
				Reference:     ref,
				VariantString: "p." + id,
			}
		}
	}

	return out
}

// CanonicalDrug picks the matrix the lookup is built from: the
// alphabetically first drug whose matrix has any positions. Reference amino
// acids are assumed not to vary between drugs.
func CanonicalDrug(matrices map[string]DrugMatrix) (string, bool) {
	drugs := make([]string, 0, len(matrices))
	for drug := range matrices {
		drugs = append(drugs, drug)
	}
	sort.Strings(drugs)

	for _, drug := range drugs {
		if matrices[drug].Len() > 0 {
			return drug, true
		}
	}

	return "", false
}
