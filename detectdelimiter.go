package dmsatlas

import (
	"bytes"

	"github.com/csimplestring/go-csv/detector"
)

// Only the first few lines are needed to guess the delimiter, and the
// detector is quadratic-ish in the sample size.
const delimiterSampleBytes = 64 * 1024

// DetermineDelimiter returns the single most likely rune that delimits the
// values in data, assuming a CSV-like file. Comma is the fallback.
func DetermineDelimiter(data []byte) rune {
	sample := data
	if len(sample) > delimiterSampleBytes {
		sample = sample[:delimiterSampleBytes]
		if i := bytes.LastIndexByte(sample, '\n'); i > 0 {
			sample = sample[:i+1]
		}
	}

	d := detector.New()
	delimiters := d.DetectDelimiter(bytes.NewReader(sample), '"')

	if len(delimiters) > 0 && len(delimiters[0]) > 0 {
		return rune(delimiters[0][0])
	}

	return ','
}
