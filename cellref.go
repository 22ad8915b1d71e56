package xlkinetics

import (
	"fmt"
	"strings"
)

// CellRef represents a single cell position in a worksheet.
type CellRef struct {
	Row int // 0-based row index
	Col int // 0-based column index
}

// NewCellRef creates a CellRef from 0-based row and column indexes.
func NewCellRef(row, col int) CellRef {
	return CellRef{Row: row, Col: col}
}

// String formats the CellRef as "A1".
func (c CellRef) String() string {
	return ColToName(c.Col) + fmt.Sprintf("%d", c.Row+1)
}

// ColToName converts a 0-based column index to a column name.
// 0→"A", 25→"Z", 26→"AA"
func ColToName(col int) string {
	result := ""
	col++
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}

// NameToCol converts a column name to a 0-based column index.
func NameToCol(name string) (int, error) {
	name = strings.ToUpper(name)
	if name == "" {
		return 0, fmt.Errorf("empty column name")
	}
	col := 0
	for _, ch := range name {
		if ch < 'A' || ch > 'Z' {
			return 0, fmt.Errorf("invalid column name: %q", name)
		}
		col = col*26 + int(ch-'A') + 1
	}
	return col - 1, nil
}

// AreaRef is a rectangular range between two cells, inclusive.
type AreaRef struct {
	First CellRef
	Last  CellRef
}

// NewAreaRef creates an AreaRef from two corners.
func NewAreaRef(first, last CellRef) AreaRef {
	return AreaRef{First: first, Last: last}
}

// String formats the AreaRef as "A1:C5".
func (a AreaRef) String() string {
	return a.First.String() + ":" + a.Last.String()
}
