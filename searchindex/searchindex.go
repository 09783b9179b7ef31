// Package searchindex builds the browse/search index for the variant
// browser: genes, drugs and variants with their counts.
package searchindex

import (
	"sort"
	"strings"
	"time"

	"github.com/carbocation/dmsatlas/datacard"
	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

type Gene struct {
	Symbol       string   `json:"symbol"`
	Name         string   `json:"name"`
	Synonyms     []string `json:"synonyms"`
	Chromosome   string   `json:"chromosome"`
	VariantCount int      `json:"variant_count"`
}

type Drug struct {
	Name         string   `json:"name" csv:"name"`
	Synonyms     []string `json:"synonyms" csv:"-"`
	FDAStatus    string   `json:"fda_status" csv:"fda_status"`
	TargetClass  string   `json:"target_class" csv:"target_class"`
	Mechanism    string   `json:"mechanism" csv:"mechanism"`
	VariantCount int      `json:"variant_count" csv:"-"`

	// Semicolon-separated in the catalog file
	RawSynonyms string `json:"-" csv:"synonyms"`
}

type Variant struct {
	Gene           string `json:"gene"`
	VariantString  string `json:"variant_string"`
	ProteinChange  string `json:"protein_change"`
	QCPass         bool   `json:"qc_pass"`
	SearchableText string `json:"searchable_text"`
}

type Stats struct {
	TotalGenes    int `json:"total_genes"`
	TotalDrugs    int `json:"total_drugs"`
	TotalVariants int `json:"total_variants"`
}

type Index struct {
	Genes      []Gene    `json:"genes"`
	Drugs      []Drug    `json:"drugs"`
	Variants   []Variant `json:"variants"`
	LastUpdate time.Time `json:"lastUpdate"`
	Stats      Stats     `json:"stats"`
}

// DefaultCatalog lists the approved BCR-ABL inhibitors that are always
// present in the index, screened or not.
func DefaultCatalog() []Drug {
	return []Drug{
		{
			Name:        "Imatinib",
			Synonyms:    []string{"Gleevec", "STI571"},
			FDAStatus:   "Approved",
			TargetClass: "Tyrosine kinase inhibitor",
			Mechanism:   "BCR-ABL, KIT, PDGFR inhibitor",
		},
		{
			Name:        "Dasatinib",
			Synonyms:    []string{"Sprycel", "BMS-354825"},
			FDAStatus:   "Approved",
			TargetClass: "Tyrosine kinase inhibitor",
			Mechanism:   "BCR-ABL, SRC family inhibitor",
		},
		{
			Name:        "Nilotinib",
			Synonyms:    []string{"Tasigna", "AMN107"},
			FDAStatus:   "Approved",
			TargetClass: "Tyrosine kinase inhibitor",
			Mechanism:   "BCR-ABL inhibitor",
		},
	}
}

// ParseCatalog reads a drug catalog with the columns name, synonyms,
// fda_status, target_class and mechanism.
func ParseCatalog(data []byte) ([]Drug, error) {
	var drugs []Drug
	if err := gocsv.UnmarshalBytes(data, &drugs); err != nil {
		return nil, pfx.Err(err)
	}

	for i, d := range drugs {
		drugs[i].Synonyms = []string{}
		for _, s := range strings.Split(d.RawSynonyms, ";") {
			if s = strings.TrimSpace(s); s != "" {
				drugs[i].Synonyms = append(drugs[i].Synonyms, s)
			}
		}
		drugs[i].RawSynonyms = ""
	}

	return drugs, nil
}

// Build indexes the datacards. Catalog drugs come first, in catalog order,
// followed by screened drugs that are missing from the catalog in
// alphabetical order. A drug's variant count is the number of cards that
// tested it.
func Build(cards []datacard.Card, catalog []Drug, now time.Time) Index {
	geneCounts := make(map[string]int)
	drugCounts := make(map[string]int)

	idx := Index{
		Genes:      make([]Gene, 0),
		Drugs:      make([]Drug, 0, len(catalog)),
		Variants:   make([]Variant, 0, len(cards)),
		LastUpdate: now.UTC(),
	}

	for _, c := range cards {
		geneCounts[c.Gene]++
		for _, drug := range c.DrugsTested {
			drugCounts[drug]++
		}

		idx.Variants = append(idx.Variants, Variant{
			Gene:           c.Gene,
			VariantString:  c.VariantString,
			ProteinChange:  c.ProteinChange,
			QCPass:         c.QCPass(),
			SearchableText: strings.Join([]string{c.Gene, c.VariantString, c.ProteinChange}, " "),
		})
	}

	genes := make([]string, 0, len(geneCounts))
	for gene := range geneCounts {
		genes = append(genes, gene)
	}
	sort.Strings(genes)
	for _, gene := range genes {
		idx.Genes = append(idx.Genes, Gene{
			Symbol:       gene,
			Name:         gene + " gene",
			Synonyms:     []string{},
			VariantCount: geneCounts[gene],
		})
	}

	known := make(map[string]struct{}, len(catalog))
	for _, d := range catalog {
		known[d.Name] = struct{}{}
		if d.Synonyms == nil {
			d.Synonyms = []string{}
		}
		d.VariantCount = drugCounts[d.Name]
		idx.Drugs = append(idx.Drugs, d)
	}

	screened := make([]string, 0, len(drugCounts))
	for drug := range drugCounts {
		if _, exists := known[drug]; !exists {
			screened = append(screened, drug)
		}
	}
	sort.Strings(screened)
	for _, drug := range screened {
		idx.Drugs = append(idx.Drugs, Drug{
			Name:         drug,
			Synonyms:     []string{},
			FDAStatus:    "Experimental",
			TargetClass:  "Unknown",
			Mechanism:    "Unknown",
			VariantCount: drugCounts[drug],
		})
	}

	idx.Stats = Stats{
		TotalGenes:    len(idx.Genes),
		TotalDrugs:    len(idx.Drugs),
		TotalVariants: len(idx.Variants),
	}

	return idx
}
