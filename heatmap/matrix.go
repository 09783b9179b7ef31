package heatmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/carbocation/dmsatlas/aggregate"
	"github.com/carbocation/dmsatlas/aminoacid"
	"github.com/carbocation/dmsatlas/dose"
	"gopkg.in/guregu/null.v3"
)

// DoseValue is one dose level of one matrix entry. A level with no data is
// {null, null, 0}.
type DoseValue struct {
	Value null.Float `json:"value"`
	Std   null.Float `json:"std"`
	Count int        `json:"count"`
}

// Entry is the (position, amino acid) square of the heat map.
type Entry struct {
	Low       DoseValue `json:"low"`
	Medium    DoseValue `json:"medium"`
	High      DoseValue `json:"high"`
	Reference string    `json:"reference_amino_acid"`
}

func (e Entry) Dose(l dose.Level) DoseValue {
	switch l {
	case dose.Low:
		return e.Low
	case dose.Medium:
		return e.Medium
	case dose.High:
		return e.High
	}

	return DoseValue{}
}

func (e *Entry) setDose(l dose.Level, v DoseValue) {
	switch l {
	case dose.Low:
		e.Low = v
	case dose.Medium:
		e.Medium = v
	case dose.High:
		e.High = v
	}
}

// DrugMatrix is sparse over positions (only positions with data for the
// drug) and dense over the alphabet (every position carries every amino
// acid).
type DrugMatrix struct {
	Alphabet  aminoacid.Alphabet
	Positions []int // Ascending
	Rows      map[int]map[string]Entry
}

func newDrugMatrix(alphabet aminoacid.Alphabet) *DrugMatrix {
	return &DrugMatrix{
		Alphabet:  alphabet,
		Positions: make([]int, 0),
		Rows:      make(map[int]map[string]Entry),
	}
}

func (m DrugMatrix) Len() int {
	return len(m.Positions)
}

func (m DrugMatrix) Entry(position int, aa string) (Entry, bool) {
	row, exists := m.Rows[position]
	if !exists {
		return Entry{}, false
	}
	e, exists := row[aa]
	return e, exists
}

// MarshalJSON writes positions in numeric order and amino acids in alphabet
// order, so that the document is stable and reads naturally.
func (m DrugMatrix) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')
	for i, pos := range m.Positions {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(strconv.Itoa(pos)))
		buf.WriteString(":{")

		row := m.Rows[pos]
		for j, aa := range m.Alphabet {
			if j > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(aa)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(row[aa])
			if err != nil {
				return nil, fmt.Errorf("position %d, %s: %v", pos, aa, err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// MatrixReport lists what BuildMatrices could not reconcile.
type MatrixReport struct {
	ReferenceConflicts []string // Positions whose cells disagree on the reference
	Collisions         []string // Cells that landed on an already filled dose level
}

// BuildMatrices partitions cells by drug and builds one DrugMatrix each. Every
// drug in drugs gets a matrix, even if it has no cells. The reference amino
// acid of a position comes from the first cell, in presentation order, that
// recorded one; if none did, it is aminoacid.Unknown.
func BuildMatrices(cells map[aggregate.Key]aggregate.Cell, drugs []string, alphabet aminoacid.Alphabet) (map[string]DrugMatrix, MatrixReport) {
	report := MatrixReport{}

	building := make(map[string]*DrugMatrix)
	references := make(map[string]map[int]string)
	filledBy := make(map[string]map[aggregate.Key]aggregate.Key)

	ensure := func(drug string) *DrugMatrix {
		dm, exists := building[drug]
		if !exists {
			dm = newDrugMatrix(alphabet)
			building[drug] = dm
			references[drug] = make(map[int]string)
			filledBy[drug] = make(map[aggregate.Key]aggregate.Key)
		}
		return dm
	}

	for _, drug := range drugs {
		ensure(drug)
	}

	for _, k := range aggregate.SortedKeys(cells, alphabet) {
		dm := ensure(k.Drug)

		row, exists := dm.Rows[k.Position]
		if !exists {
			row = nullRow(alphabet)
			dm.Rows[k.Position] = row
			dm.Positions = append(dm.Positions, k.Position)
		}

		if k.Reference != "" {
			refs := references[k.Drug]
			if prior := refs[k.Position]; prior == "" {
				refs[k.Position] = k.Reference
			} else if prior != k.Reference {
				report.ReferenceConflicts = append(report.ReferenceConflicts, fmt.Sprintf("%s position %d: kept %s, saw %s (%s)", k.Drug, k.Position, prior, k.Reference, k))
			}
		}

		if !alphabet.Contains(k.Alternate) {
			continue
		}

		// Cells from different genes can share a drug, position and amino
		// acid. The first in presentation order is kept.
		square := aggregate.Key{Position: k.Position, Alternate: k.Alternate, Dose: k.Dose}
		if first, exists := filledBy[k.Drug][square]; exists {
			report.Collisions = append(report.Collisions, fmt.Sprintf("%s: kept %s, dropped %s", k.Drug, first, k))
			continue
		}
		filledBy[k.Drug][square] = k

		cell := cells[k]
		e := row[k.Alternate]
		e.setDose(k.Dose, DoseValue{Value: cell.Mean, Std: cell.Std, Count: cell.Count})
		row[k.Alternate] = e
	}

	out := make(map[string]DrugMatrix, len(building))
	for drug, dm := range building {
		for pos, row := range dm.Rows {
			ref := references[drug][pos]
			if ref == "" {
				ref = aminoacid.Unknown
			}
			for aa, e := range row {
				e.Reference = ref
				row[aa] = e
			}
		}
		out[drug] = *dm
	}

	return out, report
}

func nullRow(alphabet aminoacid.Alphabet) map[string]Entry {
	row := make(map[string]Entry, alphabet.Len())
	for _, aa := range alphabet {
		row[aa] = Entry{}
	}

	return row
}
