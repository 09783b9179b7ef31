package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/carbocation/dmsatlas/aggregate"
	"github.com/carbocation/dmsatlas/aminoacid"
	"github.com/carbocation/dmsatlas/dose"
	"gopkg.in/guregu/null.v3"
)

func TestPrintCells(t *testing.T) {
	cells := map[aggregate.Key]aggregate.Cell{
		{Gene: "ABL1", Drug: "Imatinib", Position: 315, Reference: "T", Alternate: "I", Dose: dose.Low}: {
			Mean: null.FloatFrom(-0.03), Std: null.FloatFrom(0.5), Count: 2, Min: -0.04, Max: -0.02,
		},
		{Gene: "ABL1", Drug: "Imatinib", Position: 12, Alternate: "G", Dose: dose.High}: {
			Mean: null.FloatFrom(0.2), Count: 1, Min: 0.2, Max: 0.2,
		},
	}

	var buf bytes.Buffer
	if err := printCells(&buf, cells, aminoacid.Canonical); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	expected := []string{
		strings.Join(header, "\t"),
		"ABL1\tImatinib\t12\t\tG\t?12G\thigh\t1\t0.2\t\t0.2\t0.2",
		"ABL1\tImatinib\t315\tT\tI\tT315I\tlow\t2\t-0.03\t0.5\t-0.04\t-0.02",
	}

	if len(lines) != len(expected) {
		t.Fatalf("Expected %d lines, got %d: %q", len(expected), len(lines), lines)
	}
	for i := range expected {
		if lines[i] != expected[i] {
			t.Errorf("Line %d: expected %q, got %q", i, expected[i], lines[i])
		}
	}
}
