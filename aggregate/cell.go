// Package aggregate folds replicate-level measurements into one statistical
// cell per variant, drug and dose level.
package aggregate

import (
	"fmt"
	"sort"

	"github.com/carbocation/dmsatlas/aminoacid"
	"github.com/carbocation/dmsatlas/dose"
	"gopkg.in/guregu/null.v3"
)

// Key identifies a cell. Reference is carried on the key but is not part of
// a group's identity: it holds the first non-empty reference amino acid seen
// for the group, or "" if none was ever recorded.
type Key struct {
	Gene      string
	Drug      string
	Position  int
	Reference string
	Alternate string
	Dose      dose.Level
}

func (k Key) String() string {
	ref := k.Reference
	if ref == "" {
		ref = aminoacid.Unknown
	}

	return fmt.Sprintf("%s %s%d%s %s@%s", k.Gene, ref, k.Position, k.Alternate, k.Drug, k.Dose)
}

// slot drops the reference, leaving the fields that define a group.
func (k Key) slot() Key {
	k.Reference = ""
	return k
}

// Cell holds the statistics of one group. Mean is valid whenever the cell
// exists; Std is the sample standard deviation (n-1 divisor) and is null
// unless Count >= 2. Min and Max are the extreme replicate responses.
type Cell struct {
	Mean  null.Float
	Std   null.Float
	Count int
	Min   float64
	Max   float64
}

// Spread is the distance between the most extreme replicates.
func (c Cell) Spread() float64 {
	return c.Max - c.Min
}

// SortedKeys returns the keys of cells in presentation order: ascending
// position, then alternate amino acid in alphabet order, then drug and gene
// alphabetically, then reference, then dose level.
func SortedKeys(cells map[Key]Cell, alphabet aminoacid.Alphabet) []Key {
	keys := make([]Key, 0, len(cells))
	for k := range cells {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		return Less(keys[i], keys[j], alphabet)
	})

	return keys
}

// Less orders two keys for presentation. Symbols outside of the alphabet
// sort after all members, by their text.
func Less(a, b Key, alphabet aminoacid.Alphabet) bool {
	if a.Position != b.Position {
		return a.Position < b.Position
	}

	if ai, bi := alphabetRank(a.Alternate, alphabet), alphabetRank(b.Alternate, alphabet); ai != bi {
		return ai < bi
	}
	if a.Alternate != b.Alternate {
		return a.Alternate < b.Alternate
	}

	if a.Drug != b.Drug {
		return a.Drug < b.Drug
	}

	if a.Gene != b.Gene {
		return a.Gene < b.Gene
	}

	if a.Reference != b.Reference {
		return a.Reference < b.Reference
	}

	return a.Dose < b.Dose
}

func alphabetRank(symbol string, alphabet aminoacid.Alphabet) int {
	if i := alphabet.Index(symbol); i >= 0 {
		return i
	}

	return alphabet.Len()
}
