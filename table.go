package xlkinetics

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats/scalar"
)

// Report column names shared by every layout.
const (
	ColID        = "ID"
	ColPlate     = "Plate"
	ColSample    = "Sample"
	ColSource    = "Source"
	ColTreatment = "Treatment"
	ColAU        = "AU"
)

// Precision is the number of decimals every numeric report value keeps.
const Precision = 2

// Round rounds x to Precision decimals. NaN stays NaN.
func Round(x float64) float64 {
	if math.IsNaN(x) {
		return x
	}
	return scalar.Round(x, Precision)
}

// Table is an ordered long-format report. Records keep sheet-then-row order
// and IDs run 1..Len().
type Table struct {
	Name    string
	Numeric []string
	Records []Record
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.Records)
}

// numericIndex returns the position of a numeric column, or -1.
func (t *Table) numericIndex(name string) int {
	return slices.Index(t.Numeric, name)
}

// Column returns every value of a numeric column in row order.
func (t *Table) Column(name string) ([]float64, bool) {
	idx := t.numericIndex(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]float64, len(t.Records))
	for i, r := range t.Records {
		out[i] = r.Values[idx]
	}
	return out, true
}

// IsNumeric reports whether name is one of the table's numeric columns.
func (t *Table) IsNumeric(name string) bool {
	return t.numericIndex(name) >= 0
}

// Value returns the cell for record r under column name. Missing numeric
// values come back as nil so they are written as blank cells.
func (t *Table) Value(r Record, name string) (any, error) {
	switch name {
	case ColID:
		return r.ID, nil
	case ColPlate:
		return r.Plate, nil
	case ColSample:
		return r.Sample, nil
	case ColSource:
		return r.Source, nil
	case ColTreatment:
		return r.Treatment, nil
	}
	idx := t.numericIndex(name)
	if idx < 0 {
		return nil, &SchemaError{Table: t.Name, Column: name, Reason: "no such column"}
	}
	v := r.Values[idx]
	if math.IsNaN(v) {
		return nil, nil
	}
	return v, nil
}

// Project derives a table keeping only the given numeric columns, in the
// given order. IDs are reassigned densely.
func (t *Table) Project(name string, numeric []string) (*Table, error) {
	idx := make([]int, len(numeric))
	for i, col := range numeric {
		idx[i] = t.numericIndex(col)
		if idx[i] < 0 {
			return nil, &SchemaError{Table: t.Name, Column: col, Reason: "cannot project missing column"}
		}
	}
	out := &Table{Name: name, Numeric: slices.Clone(numeric), Records: make([]Record, len(t.Records))}
	for i, r := range t.Records {
		values := make([]float64, len(idx))
		for j, k := range idx {
			values[j] = r.Values[k]
		}
		out.Records[i] = Record{ID: i + 1, Identity: r.Identity, Values: values}
	}
	return out, nil
}

// Assembler accumulates enriched blocks for one output table.
type Assembler struct {
	name    string
	numeric []string
	records []Record
}

// NewAssembler creates an Assembler for a table with the given numeric columns.
func NewAssembler(name string, numeric []string) *Assembler {
	return &Assembler{name: name, numeric: slices.Clone(numeric)}
}

// Append adds the records enriched from block b. The block's columns must
// match the table's numeric columns exactly.
func (a *Assembler) Append(b *Block, records []Record) error {
	if !slices.Equal(b.Columns, a.numeric) {
		return &SchemaError{
			Table:  a.name,
			Reason: fmt.Sprintf("sheet %q yields columns %v, table expects %v", b.Sheet, b.Columns, a.numeric),
		}
	}
	a.records = append(a.records, records...)
	return nil
}

// Table concatenates everything appended so far, rounds every numeric
// value and numbers the rows 1..n.
func (a *Assembler) Table() *Table {
	t := &Table{Name: a.name, Numeric: slices.Clone(a.numeric), Records: make([]Record, len(a.records))}
	for i, r := range a.records {
		values := make([]float64, len(r.Values))
		for j, v := range r.Values {
			values[j] = Round(v)
		}
		t.Records[i] = Record{ID: i + 1, Identity: r.Identity, Values: values}
	}
	return t
}
