package measurement

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
)

// Source names where measurements come from: delimited files, or a BigQuery
// table. Exactly one of the two must be set.
type Source struct {
	Paths []string

	BigQueryProject string
	BigQueryTable   string

	// Restricts a BigQuery load to one gene. Ignored for files.
	Gene string
}

// SplitPaths splits a comma-separated flag value into paths.
func SplitPaths(value string) []string {
	out := make([]string, 0)
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}

	return out
}

func (s Source) Validate() error {
	hasFiles := len(s.Paths) > 0
	hasTable := s.BigQueryTable != ""

	switch {
	case hasFiles && hasTable:
		return fmt.Errorf("either input files or a BigQuery table may be given, not both")
	case !hasFiles && !hasTable:
		return fmt.Errorf("no input files or BigQuery table given")
	case hasTable && s.BigQueryProject == "":
		return fmt.Errorf("a BigQuery project is required to query %s", s.BigQueryTable)
	}

	return nil
}

// Load reads every measurement of the source. client is only consulted for
// gs:// paths and may be nil otherwise.
func (s Source) Load(ctx context.Context, client *storage.Client) ([]Measurement, Report, error) {
	if err := s.Validate(); err != nil {
		return nil, NewReport(), pfx.Err(err)
	}

	if len(s.Paths) > 0 {
		return LoadFiles(ctx, s.Paths, client)
	}

	bq, err := bigquery.NewClient(ctx, s.BigQueryProject)
	if err != nil {
		return nil, NewReport(), pfx.Err(err)
	}
	defer bq.Close()

	BQ := &WrappedBigQuery{
		Context: ctx,
		Client:  bq,
		Project: s.BigQueryProject,
		Table:   s.BigQueryTable,
	}

	ms, report, err := LoadBigQuery(BQ, s.Gene)
	if err != nil {
		return nil, report, err
	}
	report.Log(s.BigQueryTable)

	return ms, report, nil
}
