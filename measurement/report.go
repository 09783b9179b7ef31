package measurement

import (
	"fmt"
	"log"
	"sort"
)

// Keep the report bounded on large, messy inputs.
const maxReportExamples = 10

// Drop reasons
const (
	DropBadPosition      = "unparseable protein position"
	DropBadReplicate     = "unparseable replicate"
	DropBadConcentration = "unparseable concentration"
	DropMissingIdentity  = "missing gene, drug or alternate amino acid"
	DropNonCanonical     = "alternate amino acid outside of the alphabet"
)

// Report records what a loader or filter did with its input rows.
type Report struct {
	Rows     int
	Kept     int
	Dropped  map[string]int
	Examples []string
}

func NewReport() Report {
	return Report{Dropped: make(map[string]int)}
}

func (r *Report) drop(reason string, row int, detail string) {
	r.Dropped[reason]++
	if len(r.Examples) < maxReportExamples {
		r.Examples = append(r.Examples, fmt.Sprintf("row %d: %s (%s)", row, reason, detail))
	}
}

func (r Report) TotalDropped() int {
	n := 0
	for _, v := range r.Dropped {
		n += v
	}

	return n
}

// Log writes the report through the standard logger.
func (r Report) Log(source string) {
	log.Printf("%s: kept %d of %d rows\n", source, r.Kept, r.Rows)

	reasons := make([]string, 0, len(r.Dropped))
	for reason := range r.Dropped {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)

	for _, reason := range reasons {
		log.Printf("%s: dropped %d rows: %s\n", source, r.Dropped[reason], reason)
	}
	for _, v := range r.Examples {
		log.Printf("%s: %s\n", source, v)
	}
}
