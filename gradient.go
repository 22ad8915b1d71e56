package xlkinetics

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/xuri/excelize/v2"
)

// ColorScale is a 2- or 3-stop color ramp. With three stops the middle
// color is pinned to zero.
type ColorScale struct {
	Name   string
	Colors []string
}

// ThreeColor reports whether the scale has a midpoint.
func (s ColorScale) ThreeColor() bool {
	return len(s.Colors) == 3
}

var (
	// ScaleShared colors time-course and ratio columns: green, white at 0, magenta.
	ScaleShared = ColorScale{Name: "green-white-magenta", Colors: []string{"#00FF00", "#FFFFFF", "#FF00FF"}}
	// ScaleAU colors AU columns from white to royal blue.
	ScaleAU = ColorScale{Name: "white-blue", Colors: []string{"#FFFFFF", "#4169E1"}}
	// ScaleDiverging colors per-column gradients: green, white at 0, hot pink.
	ScaleDiverging = ColorScale{Name: "green-white-pink", Colors: []string{"#00FF00", "#FFFFFF", "#FF69B4"}}
)

// DomainMode selects whether target columns share one value domain.
type DomainMode int

const (
	DomainIndividual DomainMode = iota // one domain and one rule per column
	DomainShared                       // one domain across all target columns
)

// GradientSpec asks for a color scale over a set of columns.
type GradientSpec struct {
	Columns []string
	Scale   ColorScale
	Domain  DomainMode
}

// Domain is the numeric range a rule maps onto its color stops. Mid is
// only used by three-color scales and is always 0.
type Domain struct {
	Min float64
	Mid float64
	Max float64
}

// ComputeDomain returns the min and max of the non-NaN values. It reports
// false when no value is numeric.
func ComputeDomain(values []float64) (Domain, bool) {
	valid := make(stats.Float64Data, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return Domain{}, false
	}
	lo, err := stats.Min(valid)
	if err != nil {
		return Domain{}, false
	}
	hi, err := stats.Max(valid)
	if err != nil {
		return Domain{}, false
	}
	return Domain{Min: lo, Mid: 0, Max: hi}, true
}

// GradientRule is a resolved color-scale rule over one contiguous range.
type GradientRule struct {
	Range   AreaRef
	Columns []string
	Domain  Domain
	Scale   ColorScale
}

// Format converts the rule into an excelize conditional format.
func (r GradientRule) Format() excelize.ConditionalFormatOptions {
	if r.Scale.ThreeColor() {
		return excelize.ConditionalFormatOptions{
			Type:     "3_color_scale",
			Criteria: "=",
			MinType:  "num",
			MidType:  "num",
			MaxType:  "num",
			MinValue: formatNumber(r.Domain.Min),
			MidValue: formatNumber(r.Domain.Mid),
			MaxValue: formatNumber(r.Domain.Max),
			MinColor: r.Scale.Colors[0],
			MidColor: r.Scale.Colors[1],
			MaxColor: r.Scale.Colors[2],
		}
	}
	return excelize.ConditionalFormatOptions{
		Type:     "2_color_scale",
		Criteria: "=",
		MinType:  "num",
		MaxType:  "num",
		MinValue: formatNumber(r.Domain.Min),
		MaxValue: formatNumber(r.Domain.Max),
		MinColor: r.Scale.Colors[0],
		MaxColor: r.Scale.Colors[len(r.Scale.Colors)-1],
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ValueSource gives gradient rules access to a column's values.
type ValueSource interface {
	Column(name string) ([]float64, bool)
}

// Rules resolves spec against a written header. Data occupies rows 1..rows
// (row 0 is the header). Columns absent from the header or from src are
// skipped, as are columns without numeric values.
func Rules(src ValueSource, header []string, rows int, spec GradientSpec) []GradientRule {
	if rows <= 0 {
		return nil
	}
	type target struct {
		name   string
		col    int
		values []float64
	}
	var targets []target
	for _, name := range spec.Columns {
		col := slices.Index(header, name)
		if col < 0 {
			continue
		}
		values, ok := src.Column(name)
		if !ok {
			continue
		}
		targets = append(targets, target{name: name, col: col, values: values})
	}
	if len(targets) == 0 {
		return nil
	}

	span := func(first, last int) AreaRef {
		return NewAreaRef(NewCellRef(1, first), NewCellRef(rows, last))
	}

	if spec.Domain == DomainIndividual {
		var rules []GradientRule
		for _, t := range targets {
			d, ok := ComputeDomain(t.values)
			if !ok {
				continue
			}
			rules = append(rules, GradientRule{Range: span(t.col, t.col), Columns: []string{t.name}, Domain: d, Scale: spec.Scale})
		}
		return rules
	}

	var all []float64
	for _, t := range targets {
		all = append(all, t.values...)
	}
	d, ok := ComputeDomain(all)
	if !ok {
		return nil
	}

	// One rule per run of adjacent columns, all sharing the domain.
	slices.SortFunc(targets, func(a, b target) int { return a.col - b.col })
	var rules []GradientRule
	start := 0
	for i := 1; i <= len(targets); i++ {
		if i < len(targets) && targets[i].col == targets[i-1].col+1 {
			continue
		}
		run := targets[start:i]
		names := make([]string, len(run))
		for j, t := range run {
			names[j] = t.name
		}
		rules = append(rules, GradientRule{
			Range:   span(run[0].col, run[len(run)-1].col),
			Columns: names,
			Domain:  d,
			Scale:   spec.Scale,
		})
		start = i
	}
	return rules
}

// applyRules writes the rules as conditional formats on sheet.
func applyRules(f *excelize.File, sheet string, rules []GradientRule) error {
	for _, r := range rules {
		if err := f.SetConditionalFormat(sheet, r.Range.String(), []excelize.ConditionalFormatOptions{r.Format()}); err != nil {
			return err
		}
	}
	return nil
}

// sheetSource reads columns of an already written report by header name.
type sheetSource struct {
	header []string
	rows   [][]string
}

func (s sheetSource) Column(name string) ([]float64, bool) {
	col := slices.Index(s.header, name)
	if col < 0 {
		return nil, false
	}
	out := make([]float64, len(s.rows))
	for i, row := range s.rows {
		if col < len(row) {
			out[i] = parseNumber(row[col])
		} else {
			out[i] = math.NaN()
		}
	}
	return out, true
}

// openReport opens a persisted report and reads its active sheet.
func openReport(path string) (*excelize.File, string, sheetSource, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, "", sheetSource{}, &IOError{Op: "open", Path: path, Err: err}
	}
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		f.Close()
		return nil, "", sheetSource{}, &IOError{Op: "read", Path: path, Err: err}
	}
	var src sheetSource
	if len(rows) > 0 {
		src.header = make([]string, len(rows[0]))
		for i, h := range rows[0] {
			src.header[i] = strings.TrimSpace(h)
		}
		src.rows = rows[1:]
	}
	return f, sheet, src, nil
}

// AnnotateFile adds color-scale rules to the active sheet of a persisted
// report and saves it in place. Specs whose columns hold no numeric value
// add nothing; the file is still saved.
func AnnotateFile(path string, specs ...GradientSpec) ([]GradientRule, error) {
	f, sheet, src, err := openReport(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var applied []GradientRule
	for _, spec := range specs {
		rules := Rules(src, src.header, len(src.rows), spec)
		if err := applyRules(f, sheet, rules); err != nil {
			return nil, &IOError{Op: "annotate", Path: path, Err: err}
		}
		applied = append(applied, rules...)
	}
	if err := f.Save(); err != nil {
		return nil, &IOError{Op: "write", Path: path, Err: err}
	}
	return applied, nil
}

// NormalizeFile re-rounds every numeric cell below the header of a
// persisted report and gives it the "0.00" format. Running it twice
// changes nothing further.
func NormalizeFile(path string) error {
	f, sheet, src, err := openReport(path)
	if err != nil {
		return err
	}
	defer f.Close()

	style, err := f.NewStyle(numberStyle())
	if err != nil {
		return &IOError{Op: "normalize", Path: path, Err: err}
	}
	for i, row := range src.rows {
		for j := range row {
			cell := NewCellRef(i+1, j).String()
			v, ok := numericCell(f, sheet, cell, row[j])
			if !ok {
				continue
			}
			if err := f.SetCellFloat(sheet, cell, Round(v), -1, 64); err != nil {
				return &IOError{Op: "normalize", Path: path, Err: err}
			}
			if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
				return &IOError{Op: "normalize", Path: path, Err: err}
			}
		}
	}
	if err := f.Save(); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// numericCell reports whether a cell holds a number rather than text that
// happens to parse as one.
func numericCell(f *excelize.File, sheet, cell, raw string) (float64, bool) {
	v := parseNumber(raw)
	if math.IsNaN(v) {
		return 0, false
	}
	typ, err := f.GetCellType(sheet, cell)
	if err != nil {
		return 0, false
	}
	if typ != excelize.CellTypeUnset && typ != excelize.CellTypeNumber {
		return 0, false
	}
	return v, true
}

// numberStyle is the fixed two-decimal display format (built-in format 2, "0.00").
func numberStyle() *excelize.Style {
	return &excelize.Style{NumFmt: 2}
}
