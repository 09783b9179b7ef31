package measurement

import (
	"context"
	"fmt"
	"math"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/carbocation/pfx"
	"google.golang.org/api/iterator"
	"gopkg.in/guregu/null.v3"
)

// WrappedBigQuery carries what is needed to query a measurement table.
type WrappedBigQuery struct {
	Context context.Context
	Client  *bigquery.Client
	Project string
	Table   string // Fully qualified, e.g. my-project.screens.k562_asc
}

// bigQueryRow uses the same column names as the CSV export.
type bigQueryRow struct {
	Gene         bigquery.NullString  `bigquery:"Gene"`
	Drug         bigquery.NullString  `bigquery:"Drug"`
	ProteinStart bigquery.NullInt64   `bigquery:"protein_start"`
	RefAA        bigquery.NullString  `bigquery:"ref_aa"`
	AltAA        bigquery.NullString  `bigquery:"alt_aa"`
	Conc         bigquery.NullFloat64 `bigquery:"conc"`
	Rep          bigquery.NullInt64   `bigquery:"rep"`
	NetGR        bigquery.NullFloat64 `bigquery:"netgr_obs"`
	Type         bigquery.NullString  `bigquery:"type"`
	SynSNP       bigquery.NullBool    `bigquery:"synSNP"`
	Species      bigquery.NullString  `bigquery:"species"`
}

// BuildQuery selects every measurement column from BQ.Table, optionally
// restricted to a single gene.
func BuildQuery(BQ *WrappedBigQuery, gene string) (*bigquery.Query, error) {
	if strings.ContainsAny(BQ.Table, "`;") || BQ.Table == "" {
		return nil, fmt.Errorf("invalid BigQuery table name %q", BQ.Table)
	}

	sql := fmt.Sprintf("SELECT Gene, Drug, protein_start, ref_aa, alt_aa, conc, rep, netgr_obs, type, synSNP, species FROM `%s`", BQ.Table)

	params := []bigquery.QueryParameter{}
	if gene != "" {
		sql += " WHERE Gene = @Gene"
		params = append(params, bigquery.QueryParameter{Name: "Gene", Value: gene})
	}

	query := BQ.Client.Query(sql)
	query.Parameters = params

	return query, nil
}

// LoadBigQuery runs the measurement query and converts each row.
func LoadBigQuery(BQ *WrappedBigQuery, gene string) ([]Measurement, Report, error) {
	report := NewReport()

	query, err := BuildQuery(BQ, gene)
	if err != nil {
		return nil, report, pfx.Err(err)
	}

	itr, err := query.Read(BQ.Context)
	if err != nil {
		return nil, report, pfx.Err(fmt.Sprint(err.Error(), query.Parameters))
	}

	out := make([]Measurement, 0)
	for row := 1; ; row++ {
		var r bigQueryRow
		err := itr.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, report, pfx.Err(err)
		}
		report.Rows++

		m, reason, detail := r.toMeasurement()
		if reason != "" {
			report.drop(reason, row, detail)
			continue
		}
		out = append(out, m)
	}
	report.Kept = len(out)

	return out, report, nil
}

func (r bigQueryRow) toMeasurement() (Measurement, string, string) {
	m := Measurement{
		Gene:      strings.TrimSpace(r.Gene.StringVal),
		Drug:      strings.TrimSpace(r.Drug.StringVal),
		Reference: normalizeAminoAcid(r.RefAA.StringVal),
		Alternate: normalizeAminoAcid(r.AltAA.StringVal),
	}

	if m.Gene == "" || m.Drug == "" || m.Alternate == "" {
		return m, DropMissingIdentity, fmt.Sprintf("gene=%q drug=%q alt_aa=%q", r.Gene.StringVal, r.Drug.StringVal, r.AltAA.StringVal)
	}
	if !r.ProteinStart.Valid {
		return m, DropBadPosition, "NULL"
	}
	if !r.Rep.Valid {
		return m, DropBadReplicate, "NULL"
	}
	if !r.Conc.Valid || math.IsNaN(r.Conc.Float64) || math.IsInf(r.Conc.Float64, 0) {
		return m, DropBadConcentration, fmt.Sprint(r.Conc)
	}

	m.Position = int(r.ProteinStart.Int64)
	m.Replicate = int(r.Rep.Int64)
	m.Concentration = r.Conc.Float64

	if r.NetGR.Valid && !math.IsNaN(r.NetGR.Float64) && !math.IsInf(r.NetGR.Float64, 0) {
		m.Response = null.FloatFrom(r.NetGR.Float64)
	}
	if r.Type.Valid {
		m.VariantType = optionalString(r.Type.StringVal)
	}
	if r.SynSNP.Valid {
		m.Synonymous = null.BoolFrom(r.SynSNP.Bool)
	}
	if r.Species.Valid {
		m.Species = optionalString(r.Species.StringVal)
	}

	return m, "", ""
}
