package heatmap

import (
	"github.com/carbocation/dmsatlas/dose"
	"github.com/montanaflynn/stats"
)

// Range is the span of the non-null values of a set. Count is the number of
// such values; a Range with Count 0 carries the fallback span described at
// ComputeRange.
type Range struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

func (r Range) Empty() bool {
	return r.Count == 0
}

// ValueRange is the color-scale span of a drug's matrix: globally, and for
// each dose level.
type ValueRange struct {
	Range
	Low    Range `json:"low"`
	Medium Range `json:"medium"`
	High   Range `json:"high"`
}

func (v ValueRange) Dose(l dose.Level) Range {
	switch l {
	case dose.Low:
		return v.Low
	case dose.Medium:
		return v.Medium
	case dose.High:
		return v.High
	}

	return Range{}
}

// EmptyRange is the global span of a matrix with no values.
var EmptyRange = Range{Min: 0, Max: 1}

// ComputeRange scans every non-null value of m once. A matrix with no values
// gets EmptyRange globally. A dose level with no values inherits the global
// span (with Count 0), so the global min and max always equal the min and max
// of the three dose levels.
func ComputeRange(m DrugMatrix) ValueRange {
	values := make(map[dose.Level]stats.Float64Data, 3)
	all := make(stats.Float64Data, 0)

	for _, pos := range m.Positions {
		for _, aa := range m.Alphabet {
			e := m.Rows[pos][aa]
			for _, l := range dose.Levels() {
				if v := e.Dose(l).Value; v.Valid {
					values[l] = append(values[l], v.Float64)
					all = append(all, v.Float64)
				}
			}
		}
	}

	out := ValueRange{Range: spanOf(all, EmptyRange)}
	out.Low = spanOf(values[dose.Low], out.Range)
	out.Medium = spanOf(values[dose.Medium], out.Range)
	out.High = spanOf(values[dose.High], out.Range)

	return out
}

func spanOf(data stats.Float64Data, fallback Range) Range {
	lo, err := stats.Min(data)
	if err != nil {
		return Range{Min: fallback.Min, Max: fallback.Max}
	}

	hi, err := stats.Max(data)
	if err != nil {
		return Range{Min: fallback.Min, Max: fallback.Max}
	}

	return Range{Min: lo, Max: hi, Count: data.Len()}
}
