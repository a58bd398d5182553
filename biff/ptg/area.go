package ptg

import (
	"fmt"
	"strconv"
	"strings"
)

// Sheet limits of the BIFF8 grid.
const (
	MaxRow = 0xFFFF
	MaxCol = 0xFF
)

// Area is an inclusive, zero-based cell range. A single cell has equal
// first and last coordinates.
type Area struct {
	FirstRow, LastRow int
	FirstCol, LastCol int
}

// Cell returns the one-cell area at (row, col).
func Cell(row, col int) Area {
	return Area{FirstRow: row, LastRow: row, FirstCol: col, LastCol: col}
}

// IsCell reports whether a covers exactly one cell.
func (a Area) IsCell() bool {
	return a.FirstRow == a.LastRow && a.FirstCol == a.LastCol
}

// Valid reports whether a is ordered and inside the grid.
func (a Area) Valid() bool {
	return 0 <= a.FirstRow && a.FirstRow <= a.LastRow && a.LastRow <= MaxRow &&
		0 <= a.FirstCol && a.FirstCol <= a.LastCol && a.LastCol <= MaxCol
}

// String renders a in A1 notation.
func (a Area) String() string {
	tl := ColName(a.FirstCol) + strconv.Itoa(a.FirstRow+1)
	if a.IsCell() {
		return tl
	}
	return tl + ":" + ColName(a.LastCol) + strconv.Itoa(a.LastRow+1)
}

// ColName returns the letters of a zero-based column index.
func ColName(col int) string {
	var b []byte
	for col >= 0 {
		b = append(b, byte('A'+col%26))
		col = col/26 - 1
	}
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

// ParseArea parses A1 notation ("B2" or "A1:C10", "$" markers allowed).
func ParseArea(s string) (Area, error) {
	first, last, isRange := strings.Cut(strings.ToUpper(strings.TrimSpace(s)), ":")
	r1, c1, err := parseCell(first)
	if err != nil {
		return Area{}, err
	}
	a := Cell(r1, c1)
	if isRange {
		r2, c2, err := parseCell(last)
		if err != nil {
			return Area{}, err
		}
		a.LastRow, a.LastCol = r2, c2
	}
	if !a.Valid() {
		return Area{}, fmt.Errorf("ptg: area %q outside the sheet or reversed", s)
	}
	return a, nil
}

func parseCell(s string) (row, col int, err error) {
	s = strings.ReplaceAll(s, "$", "")
	i := 0
	col = -1
	for ; i < len(s) && 'A' <= s[i] && s[i] <= 'Z'; i++ {
		col = (col+1)*26 + int(s[i]-'A')
	}
	if i == 0 || i == len(s) {
		return 0, 0, fmt.Errorf("ptg: bad cell reference %q", s)
	}
	n, err := strconv.Atoi(s[i:])
	if err != nil || n < 1 {
		return 0, 0, fmt.Errorf("ptg: bad row in cell reference %q", s)
	}
	return n - 1, col, nil
}
