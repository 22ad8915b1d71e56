package xlkinetics

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// cellValue is the value fixtures place at (row, well) of the sheet with
// index s: s*100 + row + well/100. Every value is distinct and already has
// two decimals.
func cellValue(s, row, well int) float64 {
	return float64(s*100+row) + float64(well)*0.01
}

// makeGrid builds an in-memory grid with two leading label columns followed
// by `wells` value columns, filled with cellValue for sheet index s.
func makeGrid(sheet string, s, rows, wells int) RawGrid {
	g := RawGrid{Sheet: sheet, Rows: make([][]string, rows)}
	for r := range rows {
		row := make([]string, 2+wells)
		row[0] = "row"
		for i := range wells {
			row[2+i] = formatNumber(cellValue(s, r, i))
		}
		g.Rows[r] = row
	}
	return g
}

// writeWorkbook saves a workbook with one sheet per name, each shaped like
// an instrument export: `rows` rows, two label columns, then `wells` values.
func writeWorkbook(t *testing.T, path string, sheets []string, rows, wells int) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for s, name := range sheets {
		if s == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r := range rows {
			row := make([]any, 2+wells)
			row[0] = "Cycle"
			row[1] = r
			for i := range wells {
				row[2+i] = cellValue(s, r, i)
			}
			require.NoError(t, f.SetSheetRow(name, NewCellRef(r, 0).String(), &row))
		}
	}
	require.NoError(t, f.SaveAs(path))
	return path
}

// createIntensityWorkbook writes a single-channel export with full plates.
func createIntensityWorkbook(t *testing.T, sheets ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "intensity.xlsx")
	return writeWorkbook(t, path, sheets, 23, 96)
}

// createRatioWorkbook writes a dual-channel export with full plates.
func createRatioWorkbook(t *testing.T, sheets ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ratio.xlsx")
	return writeWorkbook(t, path, sheets, 152, 96)
}

// readReport returns the active sheet of a report as raw text rows.
func readReport(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()), excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	return rows
}

// conditionalFormats returns the color-scale rules of a report keyed by range.
func conditionalFormats(t *testing.T, path string) map[string][]excelize.ConditionalFormatOptions {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	formats, err := f.GetConditionalFormats(f.GetSheetName(f.GetActiveSheetIndex()))
	require.NoError(t, err)
	return formats
}

// listDir returns the names in dir, hidden entries included.
func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// hasStaging reports whether a staging directory was left in dir.
func hasStaging(names []string) bool {
	for _, n := range names {
		if strings.HasPrefix(n, ".xlkinetics-") {
			return true
		}
	}
	return false
}

func nan() float64 { return math.NaN() }
