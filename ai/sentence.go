package ai

import "fmt"

// Sentence states that exactly count of its cells are mines.
type Sentence struct {
	cells CellSet
	count int
}

func NewSentence(cells []Cell, count int) *Sentence {
	return &Sentence{cells: NewCellSet(cells...), count: count}
}

func newSentenceFromSet(cells CellSet, count int) *Sentence {
	return &Sentence{cells: cells, count: count}
}

func (s *Sentence) Cells() []Cell {
	return s.cells.Sorted()
}

func (s *Sentence) Count() int {
	return s.count
}

func (s *Sentence) Len() int {
	return len(s.cells)
}

func (s *Sentence) Empty() bool {
	return len(s.cells) == 0
}

func (s *Sentence) Contains(c Cell) bool {
	return s.cells.Has(c)
}

// Equal compares cell sets and counts, ignoring identity.
func (s *Sentence) Equal(other *Sentence) bool {
	if other == nil {
		return false
	}
	return s.count == other.count && s.cells.Equal(other.cells)
}

func (s *Sentence) IsSubsetOf(other *Sentence) bool {
	return s.cells.SubsetOf(other.cells)
}

// KnownMines returns every cell when the count equals the number of cells.
func (s *Sentence) KnownMines() CellSet {
	if len(s.cells) > 0 && len(s.cells) == s.count {
		return s.cells.Clone()
	}
	return CellSet{}
}

// KnownSafes returns every cell when the count is zero.
func (s *Sentence) KnownSafes() CellSet {
	if s.count == 0 {
		return s.cells.Clone()
	}
	return CellSet{}
}

// MarkMine removes a cell known to be a mine and credits it against the count.
func (s *Sentence) MarkMine(c Cell) {
	if !s.cells.Has(c) {
		return
	}
	s.cells.Remove(c)
	s.count--
}

// MarkSafe removes a cell known to be safe.
func (s *Sentence) MarkSafe(c Cell) {
	s.cells.Remove(c)
}

// decisive reports whether the sentence alone resolves all of its cells.
func (s *Sentence) decisive() bool {
	return len(s.cells) > 0 && (s.count == 0 || s.count == len(s.cells))
}

func (s *Sentence) String() string {
	return fmt.Sprintf("%s = %d", s.cells, s.count)
}
