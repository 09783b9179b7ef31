package heatmap

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/carbocation/dmsatlas/aggregate"
	"github.com/carbocation/dmsatlas/aminoacid"
	"github.com/carbocation/dmsatlas/dose"
	"github.com/carbocation/dmsatlas/measurement"
	"gopkg.in/guregu/null.v3"
)

func meas(drug string, pos int, ref, alt string, conc float64, rep int, resp float64) measurement.Measurement {
	return measurement.Measurement{
		Gene:          "ABL1",
		Drug:          drug,
		Position:      pos,
		Reference:     ref,
		Alternate:     alt,
		Concentration: conc,
		Replicate:     rep,
		Response:      null.FloatFrom(resp),
	}
}

func screen() []measurement.Measurement {
	return []measurement.Measurement{
		meas("Imatinib", 315, "T", "I", 5, 1, -0.02),
		meas("Imatinib", 315, "T", "I", 5, 2, -0.04),
		meas("Imatinib", 315, "T", "I", 17, 1, 5.0),
		meas("Imatinib", 315, "T", "A", 30, 1, 0.10),
		meas("Imatinib", 315, "T", "A", 30, 2, 0.14),
		meas("Imatinib", 315, "T", "A", 100, 1, 0.40),
		meas("Imatinib", 250, "", "E", 100, 1, -0.30),
		meas("Imatinib", 250, "", "*", 100, 1, 0.90),
		meas("Dasatinib", 253, "Y", "H", 5, 1, 0.22),
		meas("Dasatinib", 253, "Y", "H", 5, 2, 0.18),
	}
}

func defaultOptions() Options {
	return Options{Config: aggregate.DefaultConfig()}
}

func checkCellInvariants(t *testing.T, drug string, m DrugMatrix) {
	t.Helper()

	for _, pos := range m.Positions {
		row := m.Rows[pos]
		if len(row) != m.Alphabet.Len() {
			t.Fatalf("%s position %d: expected %d amino acids, got %d", drug, pos, m.Alphabet.Len(), len(row))
		}

		ref := ""
		for _, aa := range m.Alphabet {
			e, exists := row[aa]
			if !exists {
				t.Fatalf("%s position %d: missing %s", drug, pos, aa)
			}
			if ref == "" {
				ref = e.Reference
			} else if e.Reference != ref {
				t.Fatalf("%s position %d: reference varies across amino acids", drug, pos)
			}

			for _, l := range dose.Levels() {
				v := e.Dose(l)
				switch {
				case v.Count == 0 && (v.Value.Valid || v.Std.Valid):
					t.Fatalf("%s %d%s %s: count 0 with non-null value %+v", drug, pos, aa, l, v)
				case v.Count == 1 && v.Std.Valid:
					t.Fatalf("%s %d%s %s: count 1 with non-null std %+v", drug, pos, aa, l, v)
				case v.Count >= 2 && (!v.Std.Valid || v.Std.Float64 < 0):
					t.Fatalf("%s %d%s %s: count %d with invalid std %+v", drug, pos, aa, l, v.Count, v)
				}
			}
		}
	}
}

func TestBuildScenario(t *testing.T) {
	doc, report := Build(screen(), defaultOptions())

	if report.Filter.Dropped[measurement.DropNonCanonical] != 1 {
		t.Errorf("Expected the stop codon row to be filtered, got %+v", report.Filter)
	}
	if report.Aggregation.Unclassified[17] != 1 {
		t.Errorf("Expected one unclassified row, got %v", report.Aggregation.Unclassified)
	}

	for drug, m := range doc.Matrices {
		checkCellInvariants(t, drug, m)
	}

	imatinib := doc.Matrices["Imatinib"]
	if got := imatinib.Positions; len(got) != 2 || got[0] != 250 || got[1] != 315 {
		t.Fatalf("Expected Imatinib positions [250 315], got %v", got)
	}

	e, _ := imatinib.Entry(315, "I")
	if e.Low.Count != 2 || math.Abs(e.Low.Value.Float64+0.03) > 1e-12 || math.Abs(e.Low.Std.Float64-0.0141421356) > 1e-9 {
		t.Errorf("Unexpected T315I low: %+v", e.Low)
	}
	if e.Medium.Count != 0 || e.Medium.Value.Valid || e.High.Count != 0 || e.High.Value.Valid {
		t.Errorf("Expected other T315I dose levels to be null, got %+v / %+v", e.Medium, e.High)
	}
	if e.Reference != "T" {
		t.Errorf("Expected reference T, got %q", e.Reference)
	}

	if e, _ := imatinib.Entry(250, "W"); e.Reference != aminoacid.Unknown {
		t.Errorf("Expected unknown reference at 250, got %q", e.Reference)
	}

	if _, exists := imatinib.Rows[251]; exists {
		t.Error("Position 251 has no data and should be absent")
	}

	if got := doc.Positions; len(got) != 3 || got[0] != 250 || got[1] != 253 || got[2] != 315 {
		t.Errorf("Expected positions [250 253 315], got %v", got)
	}
	if pr := doc.Metadata.PositionRange; pr.Min.Int64 != 250 || pr.Max.Int64 != 315 || pr.PositionsWithData != 3 {
		t.Errorf("Unexpected position range: %+v", pr)
	}

	if d := doc.Metadata.Drugs; len(d) != 2 || d[0] != "Dasatinib" || d[1] != "Imatinib" {
		t.Errorf("Expected alphabetical drugs, got %v", d)
	}
	if doc.Metadata.CanonicalDrug.String != "Dasatinib" {
		t.Errorf("Expected Dasatinib to be the canonical drug, got %v", doc.Metadata.CanonicalDrug)
	}

	if c := doc.Metadata.DataCounts["Imatinib"]; c[dose.Low] != 1 || c[dose.Medium] != 1 || c[dose.High] != 2 {
		t.Errorf("Unexpected Imatinib data counts: %v", c)
	}

	// 315I, 315A, 250E, 253H
	if doc.Metadata.TotalVariants != 4 {
		t.Errorf("Expected 4 variants, got %d", doc.Metadata.TotalVariants)
	}
	if doc.Metadata.TotalMeasurements != 8 {
		t.Errorf("Expected 8 aggregated measurements, got %d", doc.Metadata.TotalMeasurements)
	}
	if doc.Metadata.Gene.String != "ABL1" {
		t.Errorf("Expected gene ABL1, got %v", doc.Metadata.Gene)
	}
}

func TestValueRanges(t *testing.T) {
	doc, _ := Build(screen(), defaultOptions())

	vr := doc.Metadata.ValueRanges["Imatinib"]
	if vr.Min != -0.30 || vr.Max != 0.40 || vr.Count != 4 {
		t.Fatalf("Unexpected global range: %+v", vr.Range)
	}
	if vr.High.Min != -0.30 || vr.High.Max != 0.40 || vr.High.Count != 2 {
		t.Fatalf("Unexpected high range: %+v", vr.High)
	}

	for drug, vr := range doc.Metadata.ValueRanges {
		lo := math.Min(vr.Low.Min, math.Min(vr.Medium.Min, vr.High.Min))
		hi := math.Max(vr.Low.Max, math.Max(vr.Medium.Max, vr.High.Max))
		if lo != vr.Min || hi != vr.Max {
			t.Errorf("%s: global range %+v does not match dose ranges %v..%v", drug, vr.Range, lo, hi)
		}
	}

	// Dasatinib only has a low dose; the others inherit the global span.
	das := doc.Metadata.ValueRanges["Dasatinib"]
	if !das.Medium.Empty() || das.Medium.Min != das.Min || das.Medium.Max != das.Max {
		t.Errorf("Expected empty medium range to inherit global span, got %+v", das.Medium)
	}
}

func TestEmptyDrug(t *testing.T) {
	opts := defaultOptions()
	opts.Drugs = []string{"Nilotinib"}

	doc, _ := Build(screen(), opts)

	m, exists := doc.Matrices["Nilotinib"]
	if !exists || m.Len() != 0 {
		t.Fatalf("Expected an empty Nilotinib matrix, got %+v", m)
	}

	vr := doc.Metadata.ValueRanges["Nilotinib"]
	if vr.Range != EmptyRange || vr.Low != EmptyRange || vr.Medium != EmptyRange || vr.High != EmptyRange {
		t.Fatalf("Expected the empty range everywhere, got %+v", vr)
	}

	b, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "{}" {
		t.Fatalf("Expected {}, got %s", b)
	}
}

func TestEmptyInput(t *testing.T) {
	doc, _ := Build(nil, defaultOptions())

	if len(doc.Matrices) != 0 || len(doc.Positions) != 0 || len(doc.VariantLookup) != 0 {
		t.Fatalf("Expected an empty document, got %+v", doc)
	}
	if doc.Metadata.PositionRange.Min.Valid || doc.Metadata.Gene.Valid || doc.Metadata.CanonicalDrug.Valid {
		t.Fatalf("Expected null metadata, got %+v", doc.Metadata)
	}

	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	for _, expected := range []string{`"positions":[]`, `"matrices":{}`, `"variant_lookup":{}`, `"min":null`, `"drugs":[]`} {
		if !strings.Contains(string(b), expected) {
			t.Errorf("Expected %s in %s", expected, b)
		}
	}
}

func TestVariantLookup(t *testing.T) {
	doc, _ := Build(screen(), Options{Config: aggregate.DefaultConfig(), Drugs: []string{"Axitinib"}})

	// Axitinib is first alphabetically but empty; Dasatinib is next.
	if doc.Metadata.CanonicalDrug.String != "Dasatinib" {
		t.Fatalf("Expected Dasatinib, got %v", doc.Metadata.CanonicalDrug)
	}

	canonical := doc.Matrices["Dasatinib"]
	if expected := canonical.Len() * 20; len(doc.VariantLookup) != expected {
		t.Fatalf("Expected %d lookup entries, got %d", expected, len(doc.VariantLookup))
	}
	for k, v := range doc.VariantLookup {
		if v.ID == "" {
			t.Fatalf("%s: empty id", k)
		}
	}

	if v := doc.VariantLookup["253_H"]; v.ID != "Y253H" || v.VariantString != "p.Y253H" || v.Position != 253 || v.AminoAcid != "H" {
		t.Fatalf("Unexpected 253_H: %+v", v)
	}

	imatinib := BuildLookup(doc.Matrices["Imatinib"])
	if v := imatinib["250_A"]; v.ID != "?250A" || v.Reference != aminoacid.Unknown {
		t.Fatalf("Expected the unknown reference to be embedded, got %+v", v)
	}
}

func TestSmallAlphabet(t *testing.T) {
	cfg := aggregate.DefaultConfig()
	cfg.Alphabet = aminoacid.NewAlphabet("A", "E", "I")

	doc, report := Build(screen(), Options{Config: cfg})

	// H is outside the alphabet, so Dasatinib has no usable rows.
	if report.Filter.Dropped[measurement.DropNonCanonical] != 3 {
		t.Fatalf("Expected 3 rows filtered, got %+v", report.Filter)
	}
	if m := doc.Matrices["Dasatinib"]; m.Len() != 0 {
		t.Fatalf("Expected an empty Dasatinib matrix, got %v", m.Positions)
	}

	for drug, m := range doc.Matrices {
		checkCellInvariants(t, drug, m)
	}
	if len(doc.VariantLookup) != doc.Matrices["Imatinib"].Len()*3 {
		t.Fatalf("Expected %d lookup entries, got %d", doc.Matrices["Imatinib"].Len()*3, len(doc.VariantLookup))
	}
}

func TestMatrixJSON(t *testing.T) {
	cfg := aggregate.DefaultConfig()
	cfg.Alphabet = aminoacid.NewAlphabet("I", "A")

	doc, _ := Build([]measurement.Measurement{
		meas("Imatinib", 1000, "T", "I", 5, 1, 0.5),
		meas("Imatinib", 315, "T", "I", 5, 1, -0.02),
		meas("Imatinib", 315, "T", "I", 5, 2, -0.04),
	}, Options{Config: cfg})

	b, err := json.Marshal(doc.Matrices["Imatinib"])
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)

	// Numeric position order, then alphabet order
	if i, j := strings.Index(s, `"315"`), strings.Index(s, `"1000"`); i < 0 || j < 0 || i > j {
		t.Fatalf("Expected 315 before 1000: %s", s)
	}
	if i, j := strings.Index(s, `"I":`), strings.Index(s, `"A":`); i < 0 || j < 0 || i > j {
		t.Fatalf("Expected I before A: %s", s)
	}

	var decoded map[string]map[string]map[string]interface{}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatal(err)
	}

	entry := decoded["1000"]["I"]
	if entry["reference_amino_acid"] != "T" {
		t.Fatalf("Unexpected entry: %v", entry)
	}
	low := entry["low"].(map[string]interface{})
	if low["value"] != 0.5 || low["std"] != nil || low["count"] != 1.0 {
		t.Fatalf("Unexpected low dose: %v", low)
	}
	medium := decoded["315"]["A"]["medium"].(map[string]interface{})
	if medium["value"] != nil || medium["std"] != nil || medium["count"] != 0.0 {
		t.Fatalf("Expected a null placeholder, got %v", medium)
	}
}

func TestPositionReferenceConflict(t *testing.T) {
	_, report := Build([]measurement.Measurement{
		meas("Imatinib", 10, "G", "A", 5, 1, 0.1),
		meas("Imatinib", 10, "S", "C", 5, 1, 0.1),
	}, defaultOptions())

	if len(report.Matrix.ReferenceConflicts) != 1 {
		t.Fatalf("Expected 1 position conflict, got %v", report.Matrix.ReferenceConflicts)
	}
}

func TestNonFiniteResponsesDoNotBreakDocument(t *testing.T) {
	ms := screen()
	nan := meas("Imatinib", 315, "T", "I", 5, 3, 0)
	nan.Response = null.FloatFrom(math.NaN())
	inf := meas("Dasatinib", 253, "Y", "H", 30, 1, 0)
	inf.Response = null.FloatFrom(math.Inf(1))
	ms = append(ms, nan, inf)

	doc, report := Build(ms, defaultOptions())

	if e, _ := doc.Matrices["Imatinib"].Entry(315, "I"); e.Low.Count != 2 {
		t.Errorf("Expected 2 replicates at 315I low, got %+v", e.Low)
	}
	if vr := doc.Metadata.ValueRanges["Dasatinib"]; math.IsInf(vr.Max, 0) || vr.Medium.Count != 0 {
		t.Errorf("Expected a finite Dasatinib range with no medium values, got %+v", vr)
	}
	if report.Aggregation.InvalidResponses != 2 {
		t.Errorf("Expected 2 invalid responses, got %d", report.Aggregation.InvalidResponses)
	}

	if _, err := json.Marshal(doc); err != nil {
		t.Fatalf("Expected the document to marshal, got %v", err)
	}
}
