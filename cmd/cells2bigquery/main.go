// cells2bigquery aggregates measurements into cells (one per variant, drug
// and dose level) and prints them as a TSV that can be ingested with
// `bq load --source_format=CSV --field_delimiter=tab --skip_leading_rows=1`.
// Cells without a standard deviation leave that field empty, which loads as
// NULL.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/carbocation/dmsatlas"
	"github.com/carbocation/dmsatlas/aggregate"
	"github.com/carbocation/dmsatlas/aminoacid"
	"github.com/carbocation/dmsatlas/compileinfo"
	"github.com/carbocation/dmsatlas/dose"
	"github.com/carbocation/dmsatlas/measurement"
	"github.com/carbocation/pfx"
)

var (
	BufferSize = 4096 * 32
	STDOUT     = bufio.NewWriterSize(os.Stdout, BufferSize)
)

var header = []string{"gene", "drug", "protein_start", "ref_aa", "alt_aa", "variant", "dose_level", "n", "mean", "sd", "min", "max"}

func main() {
	defer STDOUT.Flush()

	var inputs, doses string
	src := measurement.Source{}

	flag.StringVar(&inputs, "input", "", "Comma-separated measurement files (CSV or TSV, optionally compressed). May be local or gs:// paths.")
	flag.StringVar(&src.BigQueryProject, "bq-project", "", "BigQuery project to bill. Use with -bq-table instead of -input.")
	flag.StringVar(&src.BigQueryTable, "bq-table", "", "Fully qualified BigQuery table of measurements.")
	flag.StringVar(&src.Gene, "gene", "", "(Optional) With -bq-table, only load this gene.")
	flag.StringVar(&doses, "doses", dose.DefaultClassifier().String(), "Concentration to dose level mapping.")
	flag.Parse()

	src.Paths = measurement.SplitPaths(inputs)
	if err := src.Validate(); err != nil {
		flag.PrintDefaults()
		log.Fatalln(err)
	}

	log.Println(compileinfo.Get())

	mapping, err := dose.ParseMapping(doses)
	if err != nil {
		log.Fatalln(err)
	}
	cfg := aggregate.Config{
		Classifier: dose.NewClassifier(mapping),
		Alphabet:   aminoacid.Canonical,
	}

	ctx := context.Background()
	client, err := dmsatlas.StorageClientFor(ctx, src.Paths...)
	if err != nil {
		log.Fatalln(err)
	}
	if client != nil {
		defer client.Close()
	}

	ms, _, err := src.Load(ctx, client)
	if err != nil {
		log.Fatalln(err)
	}

	ms, report := measurement.FilterCanonical(ms, cfg.Alphabet)
	report.Log("Canonical amino acid filter")

	res := aggregate.Aggregate(ms, cfg)
	res.Diagnostics.Log()

	if err := printCells(STDOUT, res.Cells, cfg.Alphabet); err != nil {
		log.Fatalln(err)
	}
}

func printCells(w io.Writer, cells map[aggregate.Key]aggregate.Cell, alphabet aminoacid.Alphabet) error {
	if _, err := fmt.Fprintln(w, strings.Join(header, "\t")); err != nil {
		return pfx.Err(err)
	}

	for _, k := range aggregate.SortedKeys(cells, alphabet) {
		c := cells[k]

		ref := k.Reference
		if ref == "" {
			ref = aminoacid.Unknown
		}

		sd := ""
		if c.Std.Valid {
			sd = formatFloat(c.Std.Float64)
		}

		if _, err := fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			k.Gene,
			k.Drug,
			k.Position,
			k.Reference,
			k.Alternate,
			measurement.VariantString(ref, k.Position, k.Alternate),
			k.Dose,
			c.Count,
			formatFloat(c.Mean.Float64),
			sd,
			formatFloat(c.Min),
			formatFloat(c.Max),
		); err != nil {
			return pfx.Err(err)
		}
	}

	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
