package ai

import (
	"fmt"
	"sort"
	"strings"
)

// Cell identifies a board square by row and column.
type Cell struct {
	Row int
	Col int
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d, %d)", c.Row, c.Col)
}

// Less orders cells row-major.
func (c Cell) Less(other Cell) bool {
	if c.Row != other.Row {
		return c.Row < other.Row
	}
	return c.Col < other.Col
}

// CellSet is an unordered collection of unique cells.
type CellSet map[Cell]struct{}

func NewCellSet(cells ...Cell) CellSet {
	set := make(CellSet, len(cells))
	for _, c := range cells {
		set[c] = struct{}{}
	}
	return set
}

func (s CellSet) Add(c Cell) {
	s[c] = struct{}{}
}

func (s CellSet) Remove(c Cell) {
	delete(s, c)
}

func (s CellSet) Has(c Cell) bool {
	_, ok := s[c]
	return ok
}

func (s CellSet) Len() int {
	return len(s)
}

func (s CellSet) Clone() CellSet {
	clone := make(CellSet, len(s))
	for c := range s {
		clone[c] = struct{}{}
	}
	return clone
}

// Union adds every cell of other to s.
func (s CellSet) Union(other CellSet) {
	for c := range other {
		s[c] = struct{}{}
	}
}

// Minus returns the cells of s that are not in other.
func (s CellSet) Minus(other CellSet) CellSet {
	diff := make(CellSet)
	for c := range s {
		if !other.Has(c) {
			diff[c] = struct{}{}
		}
	}
	return diff
}

func (s CellSet) SubsetOf(other CellSet) bool {
	if len(s) > len(other) {
		return false
	}
	for c := range s {
		if !other.Has(c) {
			return false
		}
	}
	return true
}

func (s CellSet) Equal(other CellSet) bool {
	return len(s) == len(other) && s.SubsetOf(other)
}

// Sorted returns the cells in row-major order.
func (s CellSet) Sorted() []Cell {
	cells := make([]Cell, 0, len(s))
	for c := range s {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		return cells[i].Less(cells[j])
	})
	return cells
}

func (s CellSet) String() string {
	parts := make([]string, 0, len(s))
	for _, c := range s.Sorted() {
		parts = append(parts, c.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
