package xlkinetics

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadWorkbook_SheetsInOrder(t *testing.T) {
	path := createIntensityWorkbook(t, "P1-Veh", "P2-Drug")

	grids, err := ReadWorkbook(path)
	require.NoError(t, err)
	require.Len(t, grids, 2)
	assert.Equal(t, "P1-Veh", grids[0].Sheet)
	assert.Equal(t, "P2-Drug", grids[1].Sheet)
	assert.Len(t, grids[0].Rows, 23)
	assert.Equal(t, cellValue(1, 13, 4), grids[1].Float(13, 6))
}

func TestReadWorkbook_RawPrecision(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "C1", 3.14159))
	numFmt, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sheet1", "C1", "C1", numFmt))
	path := filepath.Join(t.TempDir(), "raw.xlsx")
	require.NoError(t, f.SaveAs(path))
	f.Close()

	grids, err := ReadWorkbook(path)
	require.NoError(t, err)
	assert.Equal(t, 3.14159, grids[0].Float(0, 2))
}

func TestReadWorkbook_MissingFile(t *testing.T) {
	_, err := ReadWorkbook(filepath.Join(t.TempDir(), "nope.xlsx"))
	require.Error(t, err)
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "open", ioErr.Op)
}

func TestRawGrid_Float(t *testing.T) {
	g := RawGrid{Sheet: "S", Rows: [][]string{{"1.5", "", "abc", " 2 ", "Inf"}}}
	assert.Equal(t, 1.5, g.Float(0, 0))
	assert.True(t, math.IsNaN(g.Float(0, 1)))
	assert.True(t, math.IsNaN(g.Float(0, 2)))
	assert.Equal(t, 2.0, g.Float(0, 3))
	assert.True(t, math.IsNaN(g.Float(0, 4)))
	assert.True(t, math.IsNaN(g.Float(0, 9)))
	assert.True(t, math.IsNaN(g.Float(5, 0)))
}

func TestExtract_Intensity(t *testing.T) {
	g := makeGrid("P1-Veh", 0, 23, 96)
	w := IntensityLayout.Windows[0]

	b, err := Extract(g, IntensityLayout, w)
	require.NoError(t, err)
	assert.Equal(t, "P1-Veh", b.Sheet)
	assert.Equal(t, []string{"T1", "T2", "T3", "T4", "T5", "T6", "T7", "T8", "T9", "T10", "DR", "AU"}, b.Columns)
	require.Len(t, b.Rows, 96)

	// Time rows are transposed: well i, time point k comes from row 13+k.
	assert.Equal(t, cellValue(0, 13, 5), b.Rows[5][0])
	assert.Equal(t, cellValue(0, 22, 5), b.Rows[5][9])
	assert.Equal(t, cellValue(0, 22, 95), b.Rows[95][10]) // DR
	assert.Equal(t, cellValue(0, 13, 95), b.Rows[95][11]) // AU
}

func TestExtract_RatioModule(t *testing.T) {
	g := makeGrid("P1-Veh", 0, 152, 96)
	w := RatioLayout.Windows[2] // DF485

	b, err := Extract(g, RatioLayout, w)
	require.NoError(t, err)
	assert.Equal(t, []string{"T1", "T2", "T3", "T4", "T5", "T6", "DF485", "AU"}, b.Columns)
	assert.Equal(t, cellValue(0, 126, 0), b.Rows[0][0])
	assert.Equal(t, cellValue(0, 131, 0), b.Rows[0][5])
	assert.Equal(t, cellValue(0, 132, 0), b.Rows[0][6])
	assert.Equal(t, cellValue(0, 50, 0), b.Rows[0][7])
}

func TestExtract_MissingRows(t *testing.T) {
	g := makeGrid("P1-Veh", 0, 20, 96)

	_, err := Extract(g, IntensityLayout, IntensityLayout.Windows[0])
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedInput))

	var me *MalformedInputError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "P1-Veh", me.Sheet)
	assert.Equal(t, "DR", me.Window)
}

func TestExtract_NarrowSheetYieldsFewerWells(t *testing.T) {
	g := makeGrid("P1-Veh", 0, 23, 40)

	b, err := Extract(g, IntensityLayout, IntensityLayout.Windows[0])
	require.NoError(t, err)
	assert.Len(t, b.Rows, 40)
}

func TestExtract_WideSheetCapsAtPlate(t *testing.T) {
	g := makeGrid("P1-Veh", 0, 23, 120)

	b, err := Extract(g, IntensityLayout, IntensityLayout.Windows[0])
	require.NoError(t, err)
	assert.Len(t, b.Rows, 96)
}

func TestExtract_NoValueColumns(t *testing.T) {
	g := makeGrid("P1-Veh", 0, 23, 0)

	_, err := Extract(g, IntensityLayout, IntensityLayout.Windows[0])
	assert.True(t, errors.Is(err, ErrMalformedInput))
}

func TestExtract_BlankCellsAreNaN(t *testing.T) {
	g := makeGrid("P1-Veh", 0, 23, 96)
	g.Rows[13][2] = ""
	g.Rows[22][2] = "n/a"

	b, err := Extract(g, IntensityLayout, IntensityLayout.Windows[0])
	require.NoError(t, err)
	assert.True(t, math.IsNaN(b.Rows[0][0]))
	assert.True(t, math.IsNaN(b.Rows[0][10]))
	assert.True(t, math.IsNaN(b.Rows[0][11]))
}

func TestExtractSummary(t *testing.T) {
	g := makeGrid("P1-Veh", 0, 152, 96)

	b, err := ExtractSummary(g, RatioLayout)
	require.NoError(t, err)
	assert.Equal(t, []string{"DR485", "DR420", "DF485", "DF420", "AU"}, b.Columns)
	require.Len(t, b.Rows, 96)
	assert.Equal(t, []float64{
		cellValue(0, 48, 7),
		cellValue(0, 68, 7),
		cellValue(0, 132, 7),
		cellValue(0, 151, 7),
		cellValue(0, 50, 7),
	}, b.Rows[7])
}

func TestExtractSummary_MissingRows(t *testing.T) {
	g := makeGrid("P1-Veh", 0, 140, 96)

	_, err := ExtractSummary(g, RatioLayout)
	var me *MalformedInputError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "summary", me.Window)
}
