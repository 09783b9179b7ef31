package measurement

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/dmsatlas"
	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
	"gopkg.in/guregu/null.v3"
)

// csvRow mirrors the screen's long-format export: one row per variant, drug,
// concentration and replicate. Everything is read as text and converted
// afterwards, so that one malformed cell drops one row instead of failing the
// whole file.
type csvRow struct {
	Gene         string `csv:"Gene"`
	Drug         string `csv:"Drug"`
	ProteinStart string `csv:"protein_start"`
	RefAA        string `csv:"ref_aa"`
	AltAA        string `csv:"alt_aa"`
	Conc         string `csv:"conc"`
	Rep          string `csv:"rep"`
	NetGR        string `csv:"netgr_obs"`
	Type         string `csv:"type"`
	SynSNP       string `csv:"synSNP"`
	Species      string `csv:"species"`
}

// RequiredColumns must all be present in the header. ref_aa, type, synSNP
// and species are optional.
var RequiredColumns = []string{"Gene", "Drug", "protein_start", "alt_aa", "conc", "rep", "netgr_obs"}

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// LoadFiles reads and concatenates every file in paths, which may be local or
// gs:// paths, compressed or not.
func LoadFiles(ctx context.Context, paths []string, client *storage.Client) ([]Measurement, Report, error) {
	out := make([]Measurement, 0)
	total := NewReport()

	for _, path := range paths {
		log.Printf("Loading measurements from %s\n", path)

		data, err := dmsatlas.ReadAllFromPathOrGoogleStorage(ctx, path, client)
		if err != nil {
			return nil, total, err
		}

		ms, report, err := ParseCSV(data)
		if err != nil {
			return nil, total, pfx.Err(fmt.Errorf("%s: %v", path, err))
		}
		report.Log(path)

		out = append(out, ms...)
		total.merge(report)
	}

	return out, total, nil
}

// ParseCSV parses a delimited file with a header row. The delimiter and the
// column layout are detected from the data.
func ParseCSV(data []byte) ([]Measurement, Report, error) {
	report := NewReport()

	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, report, fmt.Errorf("input is empty")
	}

	delim := DelimiterFor(data)

	header, err := newCSVReader(data, delim).Read()
	if err != nil {
		return nil, report, fmt.Errorf("Header parsing error: %v", err)
	}
	layout, err := DetectLayout(header)
	if err != nil {
		return nil, report, err
	}

	rows := []*csvRow{}
	if err := gocsv.UnmarshalCSV(&renamingReader{Reader: newCSVReader(data, delim), layout: layout}, &rows); err != nil {
		return nil, report, err
	}

	out := make([]Measurement, 0, len(rows))
	for i, row := range rows {
		report.Rows++

		// The header is line 1
		m, reason, detail := row.toMeasurement()
		if reason != "" {
			report.drop(reason, i+2, detail)
			continue
		}

		out = append(out, m)
	}
	report.Kept = len(out)

	return out, report, nil
}

// DelimiterFor detects the delimiter of data. A header line that already
// separates all required columns with tabs or commas settles it; otherwise
// the generic detector decides.
func DelimiterFor(data []byte) rune {
	firstLine := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		firstLine = data[:i]
	}

	for _, delim := range []byte{'\t', ','} {
		if bytes.Count(firstLine, []byte{delim}) >= len(RequiredColumns)-1 {
			return rune(delim)
		}
	}

	return dmsatlas.DetermineDelimiter(data)
}

func newCSVReader(data []byte, delim rune) *csv.Reader {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	return r
}

func checkHeader(header []string) error {
	present := make(map[string]struct{}, len(header))
	for _, v := range header {
		present[strings.TrimSpace(v)] = struct{}{}
	}

	missing := make([]string, 0)
	for _, v := range RequiredColumns {
		if _, exists := present[v]; !exists {
			missing = append(missing, v)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("Expected to find header columns %v, but %v were missing (found %v)", RequiredColumns, missing, header)
	}

	return nil
}

// toMeasurement returns a non-empty reason when the row cannot become a
// Measurement at all. A bad response value is not such a reason: it becomes
// a null Response and is judged during aggregation.
func (row csvRow) toMeasurement() (Measurement, string, string) {
	m := Measurement{
		Gene:      strings.TrimSpace(row.Gene),
		Drug:      strings.TrimSpace(row.Drug),
		Reference: normalizeAminoAcid(row.RefAA),
		Alternate: normalizeAminoAcid(row.AltAA),
	}

	if m.Gene == "" || m.Drug == "" || m.Alternate == "" {
		return m, DropMissingIdentity, fmt.Sprintf("gene=%q drug=%q alt_aa=%q", row.Gene, row.Drug, row.AltAA)
	}

	position, err := parseWholeNumber(row.ProteinStart)
	if err != nil {
		return m, DropBadPosition, row.ProteinStart
	}
	m.Position = position

	replicate, err := parseWholeNumber(row.Rep)
	if err != nil {
		return m, DropBadReplicate, row.Rep
	}
	m.Replicate = replicate

	conc, err := strconv.ParseFloat(strings.TrimSpace(row.Conc), 64)
	if err != nil || math.IsNaN(conc) || math.IsInf(conc, 0) {
		return m, DropBadConcentration, row.Conc
	}
	m.Concentration = conc

	m.Response = parseResponse(row.NetGR)
	m.VariantType = optionalString(row.Type)
	m.Synonymous = optionalBool(row.SynSNP)
	m.Species = optionalString(row.Species)

	return m, "", ""
}

func normalizeAminoAcid(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch s {
	case "NA", "NAN", "NONE", "NULL":
		return ""
	}

	return s
}

// parseWholeNumber accepts "315" as well as the "315.0" that dataframe
// exports tend to produce, but not "315.5".
func parseWholeNumber(s string) (int, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}

	return int(f), nil
}

func parseResponse(s string) null.Float {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return null.Float{}
	}

	return null.FloatFrom(f)
}

func optionalString(s string) null.String {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "", "NA", "NAN", "NONE", "NULL":
		return null.String{}
	}

	return null.StringFrom(s)
}

func optionalBool(s string) null.Bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return null.Bool{}
	}

	return null.BoolFrom(b)
}

func (r *Report) merge(other Report) {
	r.Rows += other.Rows
	r.Kept += other.Kept
	for reason, n := range other.Dropped {
		r.Dropped[reason] += n
	}
	for _, v := range other.Examples {
		if len(r.Examples) >= maxReportExamples {
			break
		}
		r.Examples = append(r.Examples, v)
	}
}
