package measurement

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Layout describes one family of column names for measurement files.
// Columns maps a name found in the file to the name the parser expects;
// names that are absent from Columns are used as they are.
type Layout struct {
	Name    string
	Columns map[string]string
}

var Layouts = map[string]Layout{
	// The screen's own long-format export
	"ASC": {
		Name:    "ASC",
		Columns: map[string]string{},
	},
	"TIDY": {
		Name: "TIDY",
		Columns: map[string]string{
			"gene":          "Gene",
			"drug":          "Drug",
			"position":      "protein_start",
			"ref":           "ref_aa",
			"alt":           "alt_aa",
			"concentration": "conc",
			"replicate":     "rep",
			"response":      "netgr_obs",
			"variant_type":  "type",
			"synonymous":    "synSNP",
			"species":       "species",
		},
	},
}

func LayoutNames() string {
	names := make([]string, 0, len(Layouts))
	for name := range Layouts {
		names = append(names, name)
	}
	sort.Strings(names)

	return strings.Join(names, ", ")
}

// Rename returns header with every column translated to the parser's name.
func (l Layout) Rename(header []string) []string {
	out := make([]string, len(header))
	for i, v := range header {
		v = strings.TrimSpace(v)
		if renamed, exists := l.Columns[v]; exists {
			v = renamed
		}
		out[i] = v
	}

	return out
}

// DetectLayout picks the layout under which header carries every required
// column. ASC is tried first.
func DetectLayout(header []string) (Layout, error) {
	ascErr := checkHeader(Layouts["ASC"].Rename(header))
	if ascErr == nil {
		return Layouts["ASC"], nil
	}

	names := make([]string, 0, len(Layouts))
	for name := range Layouts {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if checkHeader(Layouts[name].Rename(header)) == nil {
			return Layouts[name], nil
		}
	}

	return Layout{}, fmt.Errorf("%v (known layouts: %s)", ascErr, LayoutNames())
}

// renamingReader rewrites the header row as gocsv reads it.
type renamingReader struct {
	*csv.Reader
	layout     Layout
	headerDone bool
}

func (r *renamingReader) Read() ([]string, error) {
	row, err := r.Reader.Read()
	if err != nil || r.headerDone {
		return row, err
	}
	r.headerDone = true

	return r.layout.Rename(row), nil
}

func (r *renamingReader) ReadAll() ([][]string, error) {
	out := make([][]string, 0)
	for {
		row, err := r.Read()
		if err == io.EOF {
			return out, nil
		} else if err != nil {
			return out, err
		}
		out = append(out, row)
	}
}
