package xlkinetics

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// RawGrid is one worksheet read as untyped text, addressed by 0-based
// row and column offsets. There is no header row.
type RawGrid struct {
	Sheet string
	Rows  [][]string
}

// Float returns the numeric value at (row, col), or NaN when the cell is
// missing, blank or not a number.
func (g RawGrid) Float(row, col int) float64 {
	if row < 0 || row >= len(g.Rows) || col < 0 || col >= len(g.Rows[row]) {
		return math.NaN()
	}
	return parseNumber(g.Rows[row][col])
}

// width returns the length of the longest row.
func (g RawGrid) width() int {
	w := 0
	for _, row := range g.Rows {
		w = max(w, len(row))
	}
	return w
}

func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

// ReadWorkbook reads every sheet of the workbook at path, in workbook order.
// Cell values are read raw so numbers keep full precision.
func ReadWorkbook(path string) ([]RawGrid, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	grids := make([]RawGrid, 0, len(sheets))
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, &IOError{Op: "read", Path: path, Err: fmt.Errorf("sheet %q: %w", sheet, err)}
		}
		grids = append(grids, RawGrid{Sheet: sheet, Rows: rows})
	}
	return grids, nil
}

// Block is the numeric data one window yields for one sheet: a row per
// well, a value per column.
type Block struct {
	Sheet   string
	Columns []string
	Rows    [][]float64
}

// wellSpan returns how many wells the grid carries under layout l. The count
// is shared by every window of the sheet so all module tables line up.
func wellSpan(g RawGrid, l Layout, window string) (int, error) {
	n := min(g.width()-l.ColStart, l.WellCount())
	if n <= 0 {
		return 0, &MalformedInputError{
			Sheet:  g.Sheet,
			Window: window,
			Reason: fmt.Sprintf("no value columns at offset %d (sheet is %d columns wide)", l.ColStart, g.width()),
		}
	}
	return n, nil
}

func requireRows(g RawGrid, window string, lastRow int) error {
	if lastRow >= len(g.Rows) {
		return &MalformedInputError{
			Sheet:  g.Sheet,
			Window: window,
			Reason: fmt.Sprintf("sheet has %d rows, row offset %d is required", len(g.Rows), lastRow),
		}
	}
	return nil
}

// Extract transposes the window's time rows into T1..Tn columns and adds the
// window's value row and AU row as two more columns.
func Extract(g RawGrid, l Layout, w Window) (*Block, error) {
	if err := requireRows(g, w.Label, w.maxRow()); err != nil {
		return nil, err
	}
	wells, err := wellSpan(g, l, w.Label)
	if err != nil {
		return nil, err
	}

	cols := append(w.TimeColumns(), w.Label, ColAU)
	b := &Block{Sheet: g.Sheet, Columns: cols, Rows: make([][]float64, wells)}
	for i := range wells {
		col := l.ColStart + i
		row := make([]float64, 0, len(cols))
		for r := w.TimeStart; r <= w.TimeEnd; r++ {
			row = append(row, g.Float(r, col))
		}
		row = append(row, g.Float(w.ValueRow, col), g.Float(w.AURow, col))
		b.Rows[i] = row
	}
	return b, nil
}

// ExtractSummary pulls each window's value row plus the shared AU row into
// one block, one column per window label.
func ExtractSummary(g RawGrid, l Layout) (*Block, error) {
	if len(l.Windows) == 0 {
		return nil, fmt.Errorf("layout %q has no windows", l.Key())
	}
	auRow := l.Windows[0].AURow
	last := auRow
	cols := make([]string, 0, len(l.Windows)+1)
	for _, w := range l.Windows {
		last = max(last, w.ValueRow)
		cols = append(cols, w.Label)
	}
	cols = append(cols, ColAU)

	if err := requireRows(g, summaryWindow, last); err != nil {
		return nil, err
	}
	wells, err := wellSpan(g, l, summaryWindow)
	if err != nil {
		return nil, err
	}

	b := &Block{Sheet: g.Sheet, Columns: cols, Rows: make([][]float64, wells)}
	for i := range wells {
		col := l.ColStart + i
		row := make([]float64, 0, len(cols))
		for _, w := range l.Windows {
			row = append(row, g.Float(w.ValueRow, col))
		}
		b.Rows[i] = append(row, g.Float(auRow, col))
	}
	return b, nil
}

// summaryWindow names the summary extraction in errors.
const summaryWindow = "summary"
