package export

import "errors"

// Alignment values understood by the PDF renderer.
const (
	AlignLeft   = "L"
	AlignCenter = "C"
	AlignRight  = "R"
)

// Column describes one table column. Width is relative to the other columns.
type Column struct {
	Header string
	Width  float64
	Align  string
}

// Table is an ordered, tabular export.
type Table struct {
	Title    string
	Subtitle string
	Columns  []Column
	Rows     [][]string
}

// Headers returns the column headers in order.
func (t Table) Headers() []string {
	headers := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		headers[i] = c.Header
	}
	return headers
}

func (t Table) validate() error {
	if len(t.Columns) == 0 {
		return errors.New("export table requires at least one column")
	}
	for _, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return errors.New("export row width does not match columns")
		}
	}
	return nil
}
