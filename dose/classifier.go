package dose

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Classifier maps an exact concentration onto a dose level. The set of known
// concentrations is fixed when the Classifier is built; nothing is inferred
// from the data.
type Classifier struct {
	mapping map[float64]Level
}

// DefaultMapping is the screen's micromolar concentration table.
func DefaultMapping() map[float64]Level {
	return map[float64]Level{
		5:   Low,
		30:  Medium,
		100: High,
	}
}

func NewClassifier(mapping map[float64]Level) Classifier {
	c := Classifier{mapping: make(map[float64]Level, len(mapping))}
	for conc, level := range mapping {
		c.mapping[conc] = level
	}

	return c
}

func DefaultClassifier() Classifier {
	return NewClassifier(DefaultMapping())
}

// Classify reports the level for concentration. The boolean is false for any
// concentration that is not in the table; such measurements are to be
// dropped, not treated as an error.
func (c Classifier) Classify(concentration float64) (Level, bool) {
	l, exists := c.mapping[concentration]
	return l, exists
}

// Concentrations returns the mapped concentrations in ascending order.
func (c Classifier) Concentrations() []float64 {
	out := make([]float64, 0, len(c.mapping))
	for conc := range c.mapping {
		out = append(out, conc)
	}
	sort.Float64s(out)

	return out
}

func (c Classifier) String() string {
	parts := make([]string, 0, len(c.mapping))
	for _, conc := range c.Concentrations() {
		parts = append(parts, fmt.Sprintf("%s=%s", strconv.FormatFloat(conc, 'f', -1, 64), c.mapping[conc]))
	}

	return strings.Join(parts, ",")
}

// ParseMapping reads a table like "5=low,30=medium,100=high".
func ParseMapping(s string) (map[float64]Level, error) {
	out := make(map[float64]Level)

	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("expected concentration=level, got %q", pair)
		}

		conc, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("%q: %v", pair, err)
		}

		level, err := ParseLevel(parts[1])
		if err != nil {
			return nil, err
		}

		if prior, exists := out[conc]; exists && prior != level {
			return nil, fmt.Errorf("concentration %v is mapped to both %s and %s", conc, prior, level)
		}
		out[conc] = level
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no concentrations found in %q", s)
	}

	return out, nil
}
