package ai

import "fmt"

type Move struct {
	Cell  Cell
	Guess bool
}

func (m Move) String() string {
	if m.Guess {
		return m.Cell.String() + " guess"
	}
	return fmt.Sprintf("%s safe", m.Cell)
}

// ChooseKnownSafeMove returns the first cell, row-major, that is known to be
// safe and has not been played yet.
func (a *Agent) ChooseKnownSafeMove() (Cell, bool) {
	var (
		best  Cell
		found bool
	)
	for c := range a.safes {
		if a.movesMade.Has(c) {
			continue
		}
		if !found || c.Less(best) {
			best = c
			found = true
		}
	}
	return best, found
}

// ChooseAnyLegalMove returns a random cell that has not been played and is
// not a known mine. The cell may still hold an unproven mine.
func (a *Agent) ChooseAnyLegalMove() (Cell, bool) {
	var candidates []Cell
	for row := 0; row < a.height; row++ {
		for col := 0; col < a.width; col++ {
			c := Cell{row, col}
			if a.movesMade.Has(c) || a.mines.Has(c) {
				continue
			}
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return Cell{}, false
	}
	return candidates[a.rng.Intn(len(candidates))], true
}

// NextMove prefers a known-safe cell and falls back to a guess.
func (a *Agent) NextMove() (Move, bool) {
	if c, ok := a.ChooseKnownSafeMove(); ok {
		return Move{Cell: c}, true
	}
	if c, ok := a.ChooseAnyLegalMove(); ok {
		return Move{Cell: c, Guess: true}, true
	}
	return Move{}, false
}
