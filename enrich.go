package xlkinetics

import (
	"fmt"
	"strings"
)

// Wells returns the 96 well labels in plate order: A01..A12, B01..., H12.
func Wells() []string {
	wells := make([]string, 0, maxWells)
	for _, r := range "ABCDEFGH" {
		for c := 1; c <= 12; c++ {
			wells = append(wells, fmt.Sprintf("%c%02d", r, c))
		}
	}
	return wells
}

var wellLabels = Wells()

// Identity holds the columns that identify a report row.
type Identity struct {
	Plate     string
	Sample    string
	Source    string // sheet name
	Treatment string
}

// Record is one row of a long-format report. Values line up with the
// numeric columns of the table that owns the record.
type Record struct {
	ID int
	Identity
	Values []float64
}

// ParseSheetName splits a sheet name such as "P3-Veh" into plate "P3" and
// treatment "Veh" at the first delimiter. Everything after that delimiter
// is kept, so "P2-Drug-10uM" has treatment "Drug-10uM". Without a delimiter
// the whole name is the plate and the treatment is empty, unless required
// is set.
func ParseSheetName(sheet, delim string, required bool) (plate, treatment string, err error) {
	plate, treatment, found := strings.Cut(sheet, delim)
	if !found {
		if required {
			return "", "", &InvalidSheetNameError{Sheet: sheet, Delimiter: delim}
		}
		return sheet, "", nil
	}
	return plate, treatment, nil
}

// enricher attaches identity columns to extracted blocks.
type enricher struct {
	layout Layout
	eval   *evaluator
}

func newEnricher(l Layout) *enricher {
	return &enricher{layout: l, eval: newEvaluator()}
}

// Enrich pairs each block row with a well label, in order, and derives
// Plate, Sample, Source and Treatment from the sheet name.
func Enrich(b *Block, l Layout) ([]Record, error) {
	return newEnricher(l).enrich(b)
}

func (e *enricher) enrich(b *Block) ([]Record, error) {
	if len(b.Rows) > len(wellLabels) {
		return nil, &MalformedInputError{
			Sheet:  b.Sheet,
			Window: strings.Join(b.Columns, ","),
			Reason: fmt.Sprintf("%d rows exceed the %d wells of a plate", len(b.Rows), len(wellLabels)),
		}
	}
	plate, treatment, err := ParseSheetName(b.Sheet, e.layout.Delimiter, e.layout.Mode == ModeRatio)
	if err != nil {
		return nil, err
	}

	records := make([]Record, len(b.Rows))
	seen := make(map[string]bool, len(b.Rows))
	for i, values := range b.Rows {
		sample, err := e.eval.render(e.layout.sampleLabel(), map[string]any{
			"plate":     plate,
			"well":      wellLabels[i],
			"sheet":     b.Sheet,
			"treatment": treatment,
			"index":     i + 1,
		})
		if err != nil {
			return nil, fmt.Errorf("sample label for sheet %q: %w", b.Sheet, err)
		}
		if seen[sample] {
			return nil, &SchemaError{Table: b.Sheet, Column: ColSample, Reason: fmt.Sprintf("duplicate sample %q", sample)}
		}
		seen[sample] = true
		records[i] = Record{
			Identity: Identity{
				Plate:     plate,
				Sample:    sample,
				Source:    b.Sheet,
				Treatment: treatment,
			},
			Values: values,
		}
	}
	return records, nil
}

// includeSheet evaluates the layout's sheet filter. An empty filter keeps
// every sheet.
func (e *enricher) includeSheet(sheet string) (bool, error) {
	if e.layout.SheetFilter == "" {
		return true, nil
	}
	plate, treatment, _ := ParseSheetName(sheet, e.layout.Delimiter, false)
	return e.eval.isConditionTrue(e.layout.SheetFilter, map[string]any{
		"sheet":     sheet,
		"plate":     plate,
		"treatment": treatment,
	})
}
