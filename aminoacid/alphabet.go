package aminoacid

import (
	"fmt"
	"strings"
)

// Alphabet is an ordered set of single-letter amino acid codes. The order
// defines the column order of a heat map.
type Alphabet []string

func NewAlphabet(symbols ...string) Alphabet {
	return Alphabet(symbols)
}

// The 20 standard amino acids, in single-letter alphabetical order.
var Canonical = NewAlphabet(
	"A", "C", "D", "E", "F", "G", "H", "I", "K", "L",
	"M", "N", "P", "Q", "R", "S", "T", "V", "W", "Y",
)

// Unknown marks a reference amino acid that was never recorded. It is
// deliberately outside of every alphabet.
const Unknown = "?"

func (a Alphabet) Len() int {
	return len(a)
}

// Index returns the position of symbol within the alphabet, or -1.
func (a Alphabet) Index(symbol string) int {
	for i, v := range a {
		if v == symbol {
			return i
		}
	}

	return -1
}

func (a Alphabet) Contains(symbol string) bool {
	return a.Index(symbol) >= 0
}

func (a Alphabet) String() string {
	return strings.Join(a, "")
}

// ParseAlphabet accepts either a contiguous string ("ACD") or a
// comma-delimited list ("A,C,D"). An alphabet with no symbols is an error,
// since it would exclude every measurement.
func ParseAlphabet(s string) (Alphabet, error) {
	s = strings.TrimSpace(s)

	var parts []string
	if strings.Contains(s, ",") {
		parts = strings.Split(s, ",")
	} else {
		parts = strings.Split(s, "")
	}

	out := make(Alphabet, 0, len(parts))
	for _, v := range parts {
		v = strings.ToUpper(strings.TrimSpace(v))
		if v == "" || out.Contains(v) {
			continue
		}
		out = append(out, v)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no amino acids found in %q", s)
	}

	return out, nil
}
