// Package datacard summarizes each variant across every drug it was screened
// against, with replicate quality flags, for the variant detail pages.
package datacard

import (
	"sort"
	"strings"

	"github.com/carbocation/dmsatlas/aggregate"
	"github.com/carbocation/dmsatlas/aminoacid"
	"github.com/carbocation/dmsatlas/dose"
	"github.com/carbocation/dmsatlas/measurement"
	"gopkg.in/guregu/null.v3"
)

const Version = "2.0"

// QC flags
const (
	FlagInsufficientReplicates = "insufficient_replicates"
	FlagHighReplicateVariation = "high_replicate_variation"
	FlagFlatDoseResponse       = "flat_dose_response"
	FlagMissingDoseLevels      = "missing_dose_levels"
)

// DefaultVariationThreshold is the replicate spread, in net growth rate
// units, above which a cell is flagged.
const DefaultVariationThreshold = 0.5

type Config struct {
	Aggregate          aggregate.Config
	VariationThreshold float64
	ModelSystem        string
	GeneratedBy        string
}

func DefaultConfig() Config {
	return Config{
		Aggregate:          aggregate.DefaultConfig(),
		VariationThreshold: DefaultVariationThreshold,
		ModelSystem:        "K562 cells",
	}
}

type DoseSummary struct {
	Mean   null.Float `json:"mean"`
	Std    null.Float `json:"std"`
	Count  int        `json:"count"`
	Min    null.Float `json:"min"`
	Max    null.Float `json:"max"`
	Spread float64    `json:"replicate_spread"`
}

type DrugResponse struct {
	Drug           string                     `json:"drug"`
	ReplicateCount int                        `json:"replicate_count"`
	Doses          map[dose.Level]DoseSummary `json:"doses"`
	QCFlags        []string                   `json:"qc_flags"`
}

type Metadata struct {
	Version      string      `json:"version"`
	IsSynonymous null.Bool   `json:"is_synonymous"`
	VariantType  null.String `json:"variant_type"`
	Species      null.String `json:"species_context"`
	GeneratedBy  string      `json:"generated_by,omitempty"`
}

// Card is everything known about one variant of one gene.
type Card struct {
	Gene           string         `json:"gene"`
	VariantString  string         `json:"variant_string"`
	ProteinChange  string         `json:"protein_change"`
	Position       int            `json:"position"`
	Reference      string         `json:"reference_amino_acid"`
	Alternate      string         `json:"alternate_amino_acid"`
	Consequence    string         `json:"consequence"`
	ModelSystem    string         `json:"model_system"`
	DrugsTested    []string       `json:"drugs_tested"`
	ReplicateCount int            `json:"replicate_count"`
	Responses      []DrugResponse `json:"drug_responses"`
	QCFlags        []string       `json:"qc_flags"`
	Metadata       Metadata       `json:"metadata"`
}

// Key names the card, e.g. ABL1_T315I. An unknown reference is written as X
// so the key is safe to use as a file name.
func (c Card) Key() string {
	return c.Gene + "_" + strings.Replace(c.VariantString, aminoacid.Unknown, "X", 1)
}

// QCPass is true when no drug raised a flag.
func (c Card) QCPass() bool {
	return len(c.QCFlags) == 0
}

type variantID struct {
	gene      string
	position  int
	alternate string
}

// Build creates one card per variant with at least one aggregated cell. ms
// supplies the replicate identifiers and the optional per-variant flags;
// cells supplies the statistics. Cards are sorted by gene, position and
// alternate amino acid.
func Build(ms []measurement.Measurement, cells map[aggregate.Key]aggregate.Cell, cfg Config) []Card {
	alphabet := cfg.Aggregate.Alphabet

	cards := make(map[variantID]*Card)
	responses := make(map[variantID]map[string]*DrugResponse)

	for _, k := range aggregate.SortedKeys(cells, alphabet) {
		id := variantID{k.Gene, k.Position, k.Alternate}

		card, exists := cards[id]
		if !exists {
			card = &Card{
				Gene:        k.Gene,
				Position:    k.Position,
				Alternate:   k.Alternate,
				ModelSystem: cfg.ModelSystem,
				Metadata: Metadata{
					Version:     Version,
					GeneratedBy: cfg.GeneratedBy,
				},
			}
			cards[id] = card
			responses[id] = make(map[string]*DrugResponse)
		}
		if card.Reference == "" && k.Reference != "" {
			card.Reference = k.Reference
		}

		resp, exists := responses[id][k.Drug]
		if !exists {
			resp = &DrugResponse{
				Drug:  k.Drug,
				Doses: make(map[dose.Level]DoseSummary),
			}
			responses[id][k.Drug] = resp
		}

		cell := cells[k]
		resp.Doses[k.Dose] = DoseSummary{
			Mean:   cell.Mean,
			Std:    cell.Std,
			Count:  cell.Count,
			Min:    null.FloatFrom(cell.Min),
			Max:    null.FloatFrom(cell.Max),
			Spread: cell.Spread(),
		}
	}

	replicates := make(map[variantID]map[string]map[int]struct{})
	for _, m := range ms {
		id := variantID{m.Gene, m.Position, m.Alternate}
		card, exists := cards[id]
		if !exists {
			continue
		}

		fillMetadata(&card.Metadata, m)

		if _, ok := cfg.Aggregate.Classifier.Classify(m.Concentration); !ok || !m.Response.Valid {
			continue
		}
		if replicates[id] == nil {
			replicates[id] = make(map[string]map[int]struct{})
		}
		if replicates[id][m.Drug] == nil {
			replicates[id][m.Drug] = make(map[int]struct{})
		}
		replicates[id][m.Drug][m.Replicate] = struct{}{}
	}

	out := make([]Card, 0, len(cards))
	for id, card := range cards {
		if card.Reference == "" {
			card.Reference = aminoacid.Unknown
		}
		card.VariantString = measurement.VariantString(card.Reference, card.Position, card.Alternate)
		card.ProteinChange = "p." + card.VariantString
		card.Consequence = consequence(*card)

		drugs := make([]string, 0, len(responses[id]))
		for drug := range responses[id] {
			drugs = append(drugs, drug)
		}
		sort.Strings(drugs)
		card.DrugsTested = drugs

		flags := make(map[string]struct{})
		for _, drug := range drugs {
			resp := responses[id][drug]
			resp.ReplicateCount = len(replicates[id][drug])
			resp.QCFlags = Flags(*resp, cfg.VariationThreshold)

			for _, f := range resp.QCFlags {
				flags[f] = struct{}{}
			}
			if resp.ReplicateCount > card.ReplicateCount {
				card.ReplicateCount = resp.ReplicateCount
			}
			card.Responses = append(card.Responses, *resp)
		}

		card.QCFlags = make([]string, 0, len(flags))
		for f := range flags {
			card.QCFlags = append(card.QCFlags, f)
		}
		sort.Strings(card.QCFlags)

		out = append(out, *card)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Gene != b.Gene {
			return a.Gene < b.Gene
		}

		return aggregate.Less(
			aggregate.Key{Position: a.Position, Alternate: a.Alternate},
			aggregate.Key{Position: b.Position, Alternate: b.Alternate},
			alphabet,
		)
	})

	return out
}

// fillMetadata keeps the first recorded value of each optional field.
func fillMetadata(md *Metadata, m measurement.Measurement) {
	if !md.IsSynonymous.Valid && m.Synonymous.Valid {
		md.IsSynonymous = m.Synonymous
	}
	if !md.VariantType.Valid && m.VariantType.Valid {
		md.VariantType = m.VariantType
	}
	if !md.Species.Valid && m.Species.Valid {
		md.Species = m.Species
	}
}

func consequence(c Card) string {
	if (c.Metadata.IsSynonymous.Valid && c.Metadata.IsSynonymous.Bool) || c.Reference == c.Alternate {
		return "synonymous_variant"
	}

	return "missense_variant"
}

// Flags computes the QC flags of one drug's response, sorted.
func Flags(resp DrugResponse, variationThreshold float64) []string {
	out := make([]string, 0)

	withData := 0
	insufficient, variable := false, false
	means := make([]float64, 0, len(resp.Doses))

	for _, l := range dose.Levels() {
		s, exists := resp.Doses[l]
		if !exists || s.Count == 0 {
			continue
		}
		withData++
		means = append(means, s.Mean.Float64)

		if s.Count < 2 {
			insufficient = true
		}
		if s.Spread > variationThreshold {
			variable = true
		}
	}

	flat := len(means) >= 2
	for _, v := range means {
		if v != means[0] {
			flat = false
			break
		}
	}

	if flat {
		out = append(out, FlagFlatDoseResponse)
	}
	if variable {
		out = append(out, FlagHighReplicateVariation)
	}
	if insufficient {
		out = append(out, FlagInsufficientReplicates)
	}
	if withData < len(dose.Levels()) {
		out = append(out, FlagMissingDoseLevels)
	}

	return out
}
