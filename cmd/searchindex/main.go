// searchindex builds the variant browser's search index (genes, drugs and
// variants with their counts) from the same measurements as the datacards.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"time"

	"github.com/carbocation/dmsatlas"
	"github.com/carbocation/dmsatlas/aggregate"
	"github.com/carbocation/dmsatlas/aminoacid"
	"github.com/carbocation/dmsatlas/compileinfo"
	"github.com/carbocation/dmsatlas/datacard"
	"github.com/carbocation/dmsatlas/dose"
	"github.com/carbocation/dmsatlas/measurement"
	"github.com/carbocation/dmsatlas/searchindex"
)

func main() {
	var inputs, output, catalog, doses string
	src := measurement.Source{}
	cfg := datacard.DefaultConfig()

	flag.StringVar(&inputs, "input", "", "Comma-separated measurement files (CSV or TSV, optionally compressed). May be local or gs:// paths.")
	flag.StringVar(&src.BigQueryProject, "bq-project", "", "BigQuery project to bill. Use with -bq-table instead of -input.")
	flag.StringVar(&src.BigQueryTable, "bq-table", "", "Fully qualified BigQuery table of measurements.")
	flag.StringVar(&src.Gene, "gene", "", "(Optional) With -bq-table, only load this gene.")
	flag.StringVar(&output, "output", "", "Path for search_index.json. May be a gs:// path.")
	flag.StringVar(&catalog, "catalog", "", "(Optional) CSV of known drugs with columns name,synonyms,fda_status,target_class,mechanism. Synonyms are semicolon-separated. Defaults to the approved BCR-ABL inhibitors.")
	flag.StringVar(&doses, "doses", dose.DefaultClassifier().String(), "Concentration to dose level mapping.")
	flag.Float64Var(&cfg.VariationThreshold, "threshold", cfg.VariationThreshold, "Replicate spread above which a variant fails QC.")
	flag.Parse()

	src.Paths = measurement.SplitPaths(inputs)
	if err := src.Validate(); err != nil || output == "" {
		flag.PrintDefaults()
		log.Fatalln("Please provide an input and -output.", err)
	}

	log.Println(compileinfo.Get())

	mapping, err := dose.ParseMapping(doses)
	if err != nil {
		log.Fatalln(err)
	}
	cfg.Aggregate = aggregate.Config{
		Classifier: dose.NewClassifier(mapping),
		Alphabet:   aminoacid.Canonical,
	}

	if err := run(context.Background(), src, catalog, output, cfg); err != nil {
		log.Fatalln(err)
	}
}

func run(ctx context.Context, src measurement.Source, catalogPath, output string, cfg datacard.Config) error {
	client, err := dmsatlas.StorageClientFor(ctx, append([]string{output, catalogPath}, src.Paths...)...)
	if err != nil {
		return err
	}
	if client != nil {
		defer client.Close()
	}

	catalog := searchindex.DefaultCatalog()
	if catalogPath != "" {
		data, err := dmsatlas.ReadAllFromPathOrGoogleStorage(ctx, catalogPath, client)
		if err != nil {
			return err
		}
		if catalog, err = searchindex.ParseCatalog(data); err != nil {
			return err
		}
		log.Printf("Loaded %d drugs from %s\n", len(catalog), catalogPath)
	}

	ms, _, err := src.Load(ctx, client)
	if err != nil {
		return err
	}
	ms, report := measurement.FilterCanonical(ms, cfg.Aggregate.Alphabet)
	report.Log("Canonical amino acid filter")

	res := aggregate.Aggregate(ms, cfg.Aggregate)
	cards := datacard.Build(ms, res.Cells, cfg)

	idx := searchindex.Build(cards, catalog, time.Now())
	log.Printf("Index contains %d genes, %d drugs and %d variants\n", idx.Stats.TotalGenes, idx.Stats.TotalDrugs, idx.Stats.TotalVariants)

	return dmsatlas.WriteToPathOrGoogleStorage(ctx, output, "application/json", client, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(idx)
	})
}
