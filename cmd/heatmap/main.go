// heatmap aggregates replicate-level dose-response measurements and writes
// the position by amino acid heat map document consumed by the front end.
// Input may be one or more CSV/TSV files (optionally compressed, local or
// gs://) or a BigQuery table.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/carbocation/dmsatlas"
	"github.com/carbocation/dmsatlas/aggregate"
	"github.com/carbocation/dmsatlas/aminoacid"
	"github.com/carbocation/dmsatlas/compileinfo"
	"github.com/carbocation/dmsatlas/dose"
	"github.com/carbocation/dmsatlas/heatmap"
	"github.com/carbocation/dmsatlas/measurement"
	"github.com/carbocation/pfx"
)

func main() {
	var inputs, output, doses, drugs, alphabet string
	var indent bool
	src := measurement.Source{}

	flag.StringVar(&inputs, "input", "", "Comma-separated measurement files (CSV or TSV, optionally gzip/bzip2/xz/zip compressed). May be local or gs:// paths.")
	flag.StringVar(&src.BigQueryProject, "bq-project", "", "BigQuery project to bill. Use with -bq-table instead of -input.")
	flag.StringVar(&src.BigQueryTable, "bq-table", "", "Fully qualified BigQuery table of measurements, e.g. my-project.screens.k562_asc")
	flag.StringVar(&src.Gene, "gene", "", "(Optional) With -bq-table, only load this gene.")
	flag.StringVar(&output, "output", "", "Path for the heat map JSON. May be a gs:// path. Defaults to stdout.")
	flag.StringVar(&doses, "doses", dose.DefaultClassifier().String(), "Concentration to dose level mapping. Unmapped concentrations are excluded.")
	flag.StringVar(&drugs, "drugs", "", "(Optional) Comma-separated drugs that must appear in the output, even without data.")
	flag.StringVar(&alphabet, "alphabet", aminoacid.Canonical.String(), "Amino acids that form the heat map columns, in order.")
	flag.BoolVar(&indent, "indent", false, "Pretty-print the JSON output?")
	flag.Parse()

	src.Paths = measurement.SplitPaths(inputs)
	if err := src.Validate(); err != nil {
		flag.PrintDefaults()
		log.Fatalln(err)
	}

	info := compileinfo.Get()
	log.Println(info)

	log.Println("Started running at", time.Now())
	defer func() {
		log.Println("Completed at", time.Now())
	}()

	mapping, err := dose.ParseMapping(doses)
	if err != nil {
		log.Fatalln(err)
	}

	symbols, err := aminoacid.ParseAlphabet(alphabet)
	if err != nil {
		log.Fatalln(err)
	}

	opts := heatmap.Options{
		Config: aggregate.Config{
			Classifier: dose.NewClassifier(mapping),
			Alphabet:   symbols,
		},
		Drugs:       measurement.SplitPaths(drugs),
		GeneratedBy: info.Short(),
	}

	if err := run(context.Background(), src, output, opts, indent); err != nil {
		log.Fatalln(err)
	}
}

func run(ctx context.Context, src measurement.Source, output string, opts heatmap.Options, indent bool) error {
	client, err := dmsatlas.StorageClientFor(ctx, append([]string{output}, src.Paths...)...)
	if err != nil {
		return err
	}
	if client != nil {
		defer client.Close()
	}

	ms, _, err := src.Load(ctx, client)
	if err != nil {
		return err
	}
	log.Printf("Loaded %d measurements\n", len(ms))

	doc, report := heatmap.Build(ms, opts)
	report.Log()

	log.Printf("Built %d drug matrices over %d positions with %d variants and %d measurements\n",
		len(doc.Matrices), len(doc.Positions), doc.Metadata.TotalVariants, doc.Metadata.TotalMeasurements)
	log.Println("Drugs:", strings.Join(doc.Metadata.Drugs, ", "))

	write := func(w io.Writer) error {
		enc := json.NewEncoder(w)
		if indent {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(doc)
	}

	if output == "" {
		if err := write(os.Stdout); err != nil {
			return pfx.Err(err)
		}
		return nil
	}

	if err := dmsatlas.WriteToPathOrGoogleStorage(ctx, output, "application/json", client, write); err != nil {
		return err
	}
	log.Println("Wrote", output)

	return nil
}
