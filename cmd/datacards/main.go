// datacards writes one JSON datacard per variant: its responses to every
// screened drug at each dose level, with replicate QC flags. Cards are named
// {gene}_{variant}.json, e.g. ABL1_T315I.json, under -output, which may be a
// local directory or a gs:// prefix.
package main

import (
	"context"
	"flag"
	"log"
	"runtime"
	"time"

	"github.com/carbocation/dmsatlas"
	"github.com/carbocation/dmsatlas/aggregate"
	"github.com/carbocation/dmsatlas/aminoacid"
	"github.com/carbocation/dmsatlas/compileinfo"
	"github.com/carbocation/dmsatlas/datacard"
	"github.com/carbocation/dmsatlas/dose"
	"github.com/carbocation/dmsatlas/measurement"
)

func main() {
	var inputs, output, doses, alphabet string
	var concurrency int
	src := measurement.Source{}
	cfg := datacard.DefaultConfig()

	flag.StringVar(&inputs, "input", "", "Comma-separated measurement files (CSV or TSV, optionally compressed). May be local or gs:// paths.")
	flag.StringVar(&src.BigQueryProject, "bq-project", "", "BigQuery project to bill. Use with -bq-table instead of -input.")
	flag.StringVar(&src.BigQueryTable, "bq-table", "", "Fully qualified BigQuery table of measurements.")
	flag.StringVar(&src.Gene, "gene", "", "(Optional) With -bq-table, only load this gene.")
	flag.StringVar(&output, "output", "", "Directory or gs:// prefix that receives the datacards.")
	flag.StringVar(&doses, "doses", dose.DefaultClassifier().String(), "Concentration to dose level mapping.")
	flag.StringVar(&alphabet, "alphabet", aminoacid.Canonical.String(), "Amino acids to keep, in order.")
	flag.Float64Var(&cfg.VariationThreshold, "threshold", cfg.VariationThreshold, "Replicate spread (max-min) above which a cell is flagged as high_replicate_variation.")
	flag.StringVar(&cfg.ModelSystem, "model-system", cfg.ModelSystem, "Model system recorded on each card.")
	flag.IntVar(&concurrency, "concurrency", runtime.NumCPU()*2, "Number of datacards to write at once.")
	flag.Parse()

	src.Paths = measurement.SplitPaths(inputs)
	if err := src.Validate(); err != nil || output == "" {
		flag.PrintDefaults()
		log.Fatalln("Please provide an input and -output.", err)
	}

	info := compileinfo.Get()
	log.Println(info)
	cfg.GeneratedBy = info.Short()

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
	cfg.Aggregate = aggregate.Config{
		Classifier: dose.NewClassifier(mapping),
		Alphabet:   symbols,
	}

	if err := run(context.Background(), src, output, cfg, concurrency); err != nil {
		log.Fatalln(err)
	}
}

func run(ctx context.Context, src measurement.Source, output string, cfg datacard.Config, concurrency int) error {
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

	ms, report := measurement.FilterCanonical(ms, cfg.Aggregate.Alphabet)
	report.Log("Canonical amino acid filter")

	res := aggregate.Aggregate(ms, cfg.Aggregate)
	res.Diagnostics.Log()

	cards := datacard.Build(ms, res.Cells, cfg)
	log.Printf("Built %d datacards\n", len(cards))

	return writeCards(ctx, client, output, cards, concurrency)
}
