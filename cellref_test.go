package xlkinetics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- CellRef Tests ---

func TestCellRef_String(t *testing.T) {
	assert.Equal(t, "A1", NewCellRef(0, 0).String())
	assert.Equal(t, "P193", NewCellRef(192, 15).String())
	assert.Equal(t, "AA10", NewCellRef(9, 26).String())
}

func TestColToName_RoundTrip(t *testing.T) {
	for _, col := range []int{0, 25, 26, 51, 97, 701, 702} {
		n, err := NameToCol(ColToName(col))
		require.NoError(t, err)
		assert.Equal(t, col, n)
	}
	assert.Equal(t, "C", ColToName(2))
	assert.Equal(t, "CT", ColToName(97))
}

func TestNameToCol_Invalid(t *testing.T) {
	_, err := NameToCol("")
	assert.Error(t, err)
	_, err = NameToCol("A1")
	assert.Error(t, err)
}

// --- AreaRef Tests ---

func TestAreaRef_String(t *testing.T) {
	area := NewAreaRef(NewCellRef(1, 4), NewCellRef(192, 14))
	assert.Equal(t, "E2:O193", area.String())
	assert.Equal(t, "P2:P193", NewAreaRef(NewCellRef(1, 15), NewCellRef(192, 15)).String())
}
