package xlkinetics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWells(t *testing.T) {
	wells := Wells()
	require.Len(t, wells, 96)
	assert.Equal(t, "A01", wells[0])
	assert.Equal(t, "A12", wells[11])
	assert.Equal(t, "B01", wells[12])
	assert.Equal(t, "H12", wells[95])
}

func TestParseSheetName(t *testing.T) {
	tests := []struct {
		sheet, plate, treatment string
		required, wantErr       bool
	}{
		{"P3-Veh", "P3", "Veh", false, false},
		{"P3-Veh", "P3", "Veh", true, false},
		{"P3-Drug-10uM", "P3", "Drug-10uM", true, false},
		{"Plate7", "Plate7", "", false, false},
		{"Plate7", "", "", true, true},
		{"-Veh", "", "Veh", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.sheet, func(t *testing.T) {
			plate, treatment, err := ParseSheetName(tt.sheet, "-", tt.required)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidSheetName))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.plate, plate)
			assert.Equal(t, tt.treatment, treatment)
		})
	}
}

func TestEnrich_WellLabels(t *testing.T) {
	g := makeGrid("P3-Veh", 0, 23, 96)
	b, err := Extract(g, IntensityLayout, IntensityLayout.Windows[0])
	require.NoError(t, err)

	records, err := Enrich(b, IntensityLayout)
	require.NoError(t, err)
	require.Len(t, records, 96)

	wells := Wells()
	for i, r := range records {
		assert.Equal(t, "P3-"+wells[i], r.Sample)
		assert.Equal(t, "P3", r.Plate)
		assert.Equal(t, "Veh", r.Treatment)
		assert.Equal(t, "P3-Veh", r.Source)
	}
	assert.Equal(t, "P3-A01", records[0].Sample)
	assert.Equal(t, "P3-H12", records[95].Sample)
	assert.Equal(t, b.Rows[10], records[10].Values)
}

func TestEnrich_TruncatesWells(t *testing.T) {
	b := &Block{Sheet: "P1-Veh", Columns: []string{"AU"}, Rows: [][]float64{{1}, {2}, {3}}}

	records, err := Enrich(b, RatioLayout)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "P1-A03", records[2].Sample)
}

func TestEnrich_IntensityWithoutDelimiter(t *testing.T) {
	b := &Block{Sheet: "Plate7", Columns: []string{"AU"}, Rows: [][]float64{{1}}}

	records, err := Enrich(b, IntensityLayout)
	require.NoError(t, err)
	assert.Equal(t, "Plate7", records[0].Plate)
	assert.Equal(t, "", records[0].Treatment)
	assert.Equal(t, "Plate7-A01", records[0].Sample)
}

func TestEnrich_RatioRequiresDelimiter(t *testing.T) {
	b := &Block{Sheet: "Plate7", Columns: []string{"AU"}, Rows: [][]float64{{1}}}

	_, err := Enrich(b, RatioLayout)
	var nameErr *InvalidSheetNameError
	require.True(t, errors.As(err, &nameErr))
	assert.Equal(t, "Plate7", nameErr.Sheet)
	assert.Equal(t, "-", nameErr.Delimiter)
}

func TestEnrich_TooManyRows(t *testing.T) {
	b := &Block{Sheet: "P1-Veh", Columns: []string{"AU"}, Rows: make([][]float64, 97)}

	_, err := Enrich(b, IntensityLayout)
	assert.True(t, errors.Is(err, ErrMalformedInput))
}

func TestEnrich_CustomSampleLabel(t *testing.T) {
	l := IntensityLayout.clone()
	l.SampleLabel = "${treatment}/${well} #${index}"
	b := &Block{Sheet: "P1-Veh", Columns: []string{"AU"}, Rows: [][]float64{{1}, {2}}}

	records, err := Enrich(b, l)
	require.NoError(t, err)
	assert.Equal(t, "Veh/A01 #1", records[0].Sample)
	assert.Equal(t, "Veh/A02 #2", records[1].Sample)
}

func TestEnrich_DuplicateSampleLabel(t *testing.T) {
	l := IntensityLayout.clone()
	l.SampleLabel = "${plate}"
	b := &Block{Sheet: "P1-Veh", Columns: []string{"AU"}, Rows: [][]float64{{1}, {2}}}

	_, err := Enrich(b, l)
	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, ColSample, se.Column)
}

func TestEnricher_SheetFilter(t *testing.T) {
	l := IntensityLayout.clone()
	l.SheetFilter = `not (sheet startsWith "_") and treatment != "Blank"`
	enr := newEnricher(l)

	ok, err := enr.includeSheet("P1-Veh")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = enr.includeSheet("_notes")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = enr.includeSheet("P2-Blank")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnricher_NoFilterKeepsAll(t *testing.T) {
	ok, err := newEnricher(IntensityLayout).includeSheet("_anything")
	require.NoError(t, err)
	assert.True(t, ok)
}
