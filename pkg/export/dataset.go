package export

import "errors"

// ErrNoHeaders is returned when a dataset has no columns to render.
var ErrNoHeaders = errors.New("dataset requires at least one header")

// Dataset is tabular export content. Rows are keyed by header; missing keys
// render as empty cells.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Sheet is a named dataset, rendered as a worksheet or a PDF page.
type Sheet struct {
	Name string
	Data Dataset
}

// Records returns the rows as header-ordered string slices.
func (d Dataset) Records() [][]string {
	out := make([][]string, len(d.Rows))
	for i, row := range d.Rows {
		record := make([]string, len(d.Headers))
		for col, header := range d.Headers {
			record[col] = row[header]
		}
		out[i] = record
	}
	return out
}

func (d Dataset) validate() error {
	if len(d.Headers) == 0 {
		return ErrNoHeaders
	}
	return nil
}
