package aggregate

import (
	"fmt"
	"log"
	"sort"
	"strconv"

	"github.com/carbocation/runningvariance"
)

const maxDiagnosticExamples = 20

type ReferenceConflict struct {
	Key   Key
	First string
	Other string
}

// Diagnostics records everything the aggregator excluded or could not
// reconcile. None of it is fatal.
type Diagnostics struct {
	Measurements int // Input rows
	Aggregated   int // Rows that contributed to a cell

	Unclassified            map[float64]int // Concentration => rows with no dose level
	NonFiniteConcentrations int
	InvalidResponses        int
	NonCanonical            int
	ReferenceConflicts      int

	// Bounded samples of the problems above
	InvalidResponseExamples  []string
	ReferenceConflictSamples []ReferenceConflict

	// Per drug, over every response that made it into a cell
	ResponseStats map[string]*runningvariance.RunningStat
}

func newDiagnostics() Diagnostics {
	return Diagnostics{
		Unclassified:  make(map[float64]int),
		ResponseStats: make(map[string]*runningvariance.RunningStat),
	}
}

func (d Diagnostics) UnclassifiedCount() int {
	n := 0
	for _, v := range d.Unclassified {
		n += v
	}

	return n
}

func (d *Diagnostics) invalidResponse(row int, slot Key) {
	d.InvalidResponses++
	if len(d.InvalidResponseExamples) < maxDiagnosticExamples {
		d.InvalidResponseExamples = append(d.InvalidResponseExamples, fmt.Sprintf("row %d: %s", row, slot))
	}
}

func (d *Diagnostics) referenceConflict(slot Key, first, other string) {
	d.ReferenceConflicts++
	if len(d.ReferenceConflictSamples) < maxDiagnosticExamples {
		d.ReferenceConflictSamples = append(d.ReferenceConflictSamples, ReferenceConflict{Key: slot, First: first, Other: other})
	}
}

func (d Diagnostics) Log() {
	log.Printf("Aggregated %d of %d measurements\n", d.Aggregated, d.Measurements)

	if n := d.UnclassifiedCount(); n > 0 {
		concs := make([]float64, 0, len(d.Unclassified))
		for conc := range d.Unclassified {
			concs = append(concs, conc)
		}
		sort.Float64s(concs)

		for _, conc := range concs {
			log.Printf("Skipped %d measurements at concentration %s, which maps to no dose level\n", d.Unclassified[conc], strconv.FormatFloat(conc, 'f', -1, 64))
		}
	}

	if d.NonFiniteConcentrations > 0 {
		log.Printf("Skipped %d measurements with a NaN or infinite concentration\n", d.NonFiniteConcentrations)
	}

	if d.NonCanonical > 0 {
		log.Printf("Skipped %d measurements whose alternate amino acid is outside of the alphabet\n", d.NonCanonical)
	}

	if d.InvalidResponses > 0 {
		log.Printf("Skipped %d measurements with a missing, NaN or infinite response\n", d.InvalidResponses)
		for _, v := range d.InvalidResponseExamples {
			log.Println("\t", v)
		}
	}

	if d.ReferenceConflicts > 0 {
		log.Printf("%d measurements disagreed with the first-seen reference amino acid of their group; the first-seen value was kept\n", d.ReferenceConflicts)
		for _, v := range d.ReferenceConflictSamples {
			log.Printf("\t%s: kept %s, saw %s\n", v.Key, v.First, v.Other)
		}
	}

	drugs := make([]string, 0, len(d.ResponseStats))
	for drug := range d.ResponseStats {
		drugs = append(drugs, drug)
	}
	sort.Strings(drugs)

	for _, drug := range drugs {
		rs := d.ResponseStats[drug]
		log.Printf("%s: %d responses, mean %.4f, SD %.4f\n", drug, rs.N, rs.Mean(), rs.StandardDeviation())
	}
}
