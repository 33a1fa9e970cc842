package csvx

import "strings"

// Table is an in-memory CSV with column-name cell access.
// Header lookup is case-insensitive; the first occurrence wins when
// headers repeat.
type Table struct {
	Headers []string
	Rows    [][]string
	index   map[string]int
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[strings.ToLower(name)]
	return ok
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	if i, ok := t.index[strings.ToLower(name)]; ok {
		return i
	}
	return -1
}

// Cell returns the trimmed value at (row, column name). Missing columns
// and short rows yield "".
func (t *Table) Cell(row int, name string) string {
	i := t.ColumnIndex(name)
	if i < 0 || row < 0 || row >= len(t.Rows) || i >= len(t.Rows[row]) {
		return ""
	}
	return CleanCell(t.Rows[row][i])
}

// CellAt returns the trimmed value at (row, column index).
func (t *Table) CellAt(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return CleanCell(t.Rows[row][col])
}
