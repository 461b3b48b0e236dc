// Package ai implements a minesweeper player that keeps a knowledge base of
// sentences about the board and deduces safe cells and mines from the mine
// counts revealed to it.
package ai

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/gammazero/deque"
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// SetLogger replaces the package logger.
func SetLogger(l *logrus.Logger) {
	log = l
}

type Option func(*Agent)

// WithRand sets the source used to pick guesses.
func WithRand(rng *rand.Rand) Option {
	return func(a *Agent) {
		a.rng = rng
	}
}

type Stats struct {
	Observations int
	// Passes made by the most recent closure.
	Passes  int
	Derived int
	Refused int
}

type fact struct {
	cell Cell
	mine bool
}

// Agent is a knowledge base for a single game. It is not safe for concurrent
// use; every game owns its own agent.
type Agent struct {
	height int
	width  int

	movesMade CellSet
	safes     CellSet
	mines     CellSet
	knowledge []*Sentence

	pending deque.Deque[fact]
	rng     *rand.Rand
	stats   Stats
}

func NewAgent(height, width int, opts ...Option) (*Agent, error) {
	if height <= 0 || width <= 0 {
		return nil, fmt.Errorf("%w: %d x %d", ErrInvalidDimensions, height, width)
	}
	agent := &Agent{
		height:    height,
		width:     width,
		movesMade: make(CellSet),
		safes:     make(CellSet),
		mines:     make(CellSet),
	}
	for _, opt := range opts {
		opt(agent)
	}
	if agent.rng == nil {
		agent.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return agent, nil
}

func (a *Agent) Height() int {
	return a.height
}

func (a *Agent) Width() int {
	return a.width
}

func (a *Agent) InBounds(c Cell) bool {
	return !(c.Row < 0 || c.Row >= a.height || c.Col < 0 || c.Col >= a.width)
}

func (a *Agent) neighbourhood(c Cell) []Cell {
	var cells []Cell
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			n := Cell{c.Row + dr, c.Col + dc}
			if n == c || !a.InBounds(n) {
				continue
			}
			cells = append(cells, n)
		}
	}
	return cells
}

// Observe records that c was revealed as safe with count mines among its
// neighbours, then runs inference to a fixed point. Observing a cell twice is
// a no-op. Observations that cannot belong to a real board are rejected with
// an *InvalidObservationError and leave the agent unchanged.
func (a *Agent) Observe(c Cell, count int) error {
	invalid := func(reason error, limit int) error {
		return &InvalidObservationError{Cell: c, Count: count, Reason: reason, height: a.height, width: a.width, limit: limit}
	}
	if !a.InBounds(c) {
		return invalid(ErrOutOfBounds, 0)
	}
	if a.movesMade.Has(c) {
		return nil
	}
	if count < 0 {
		return invalid(ErrNegativeCount, 0)
	}
	neighbours := a.neighbourhood(c)
	if count > len(neighbours) {
		return invalid(ErrCountTooLarge, len(neighbours))
	}
	if a.mines.Has(c) {
		return invalid(ErrKnownMine, 0)
	}

	knownMines := 0
	undetermined := make(CellSet)
	for _, n := range neighbours {
		switch {
		case a.mines.Has(n):
			knownMines++
		case a.safes.Has(n):
		default:
			undetermined.Add(n)
		}
	}
	effective := count - knownMines
	if effective < 0 || effective > len(undetermined) {
		return invalid(ErrInconsistent, 0)
	}

	a.movesMade.Add(c)
	a.markSafe(c)
	a.knowledge = append(a.knowledge, newSentenceFromSet(undetermined, effective))
	a.stats.Observations++
	a.infer()
	return nil
}

// MarkSafe asserts that c is safe and propagates the consequences.
func (a *Agent) MarkSafe(c Cell) {
	if !a.InBounds(c) {
		return
	}
	if _, ok := a.markSafe(c); ok {
		a.infer()
	}
}

// MarkMine asserts that c is a mine and propagates the consequences.
func (a *Agent) MarkMine(c Cell) {
	if !a.InBounds(c) {
		return
	}
	if _, ok := a.markMine(c); ok {
		a.infer()
	}
}

// markSafe adds c to the safe set and removes it from every sentence. It
// returns the sentences that contained c and whether anything changed.
func (a *Agent) markSafe(c Cell) ([]*Sentence, bool) {
	if a.safes.Has(c) {
		return nil, false
	}
	if a.mines.Has(c) {
		a.stats.Refused++
		log.WithField("cell", c).Warn("refusing to mark a known mine as safe")
		return nil, false
	}
	a.safes.Add(c)
	var touched []*Sentence
	for _, s := range a.knowledge {
		if s.Contains(c) {
			s.MarkSafe(c)
			touched = append(touched, s)
		}
	}
	return touched, true
}

func (a *Agent) markMine(c Cell) ([]*Sentence, bool) {
	if a.mines.Has(c) {
		return nil, false
	}
	if a.safes.Has(c) {
		a.stats.Refused++
		log.WithField("cell", c).Warn("refusing to mark a known safe cell as a mine")
		return nil, false
	}
	a.mines.Add(c)
	var touched []*Sentence
	for _, s := range a.knowledge {
		if s.Contains(c) {
			s.MarkMine(c)
			touched = append(touched, s)
		}
	}
	return touched, true
}

// infer repeats direct deduction and subset inference until a whole pass
// neither marks a cell nor adds a sentence. Sentences derived in a pass are
// only scanned for safes and mines by the following pass.
func (a *Agent) infer() {
	a.stats.Passes = 0
	for changed := true; changed; {
		changed = false
		a.stats.Passes++

		for _, s := range a.knowledge {
			a.enqueue(s)
		}
		if a.drain() {
			changed = true
		}
		if a.deriveSubsets() > 0 {
			changed = true
		}
		a.prune()
	}
	log.WithFields(logrus.Fields{
		"passes":    a.stats.Passes,
		"sentences": len(a.knowledge),
		"safes":     len(a.safes),
		"mines":     len(a.mines),
	}).Debug("knowledge closed")
}

func (a *Agent) enqueue(s *Sentence) {
	for c := range s.KnownSafes() {
		a.pending.PushBack(fact{cell: c})
	}
	for c := range s.KnownMines() {
		a.pending.PushBack(fact{cell: c, mine: true})
	}
}

// drain applies queued facts. Sentences left decisive by a fact queue their
// own cells, so immediate consequences land before subset inference runs.
func (a *Agent) drain() bool {
	marked := false
	for a.pending.Len() != 0 {
		f := a.pending.PopFront()
		var (
			touched []*Sentence
			ok      bool
		)
		if f.mine {
			touched, ok = a.markMine(f.cell)
		} else {
			touched, ok = a.markSafe(f.cell)
		}
		if !ok {
			continue
		}
		marked = true
		for _, s := range touched {
			if s.decisive() {
				a.enqueue(s)
			}
		}
	}
	return marked
}

// deriveSubsets adds (A - B, A.count - B.count) for every pair of sentences
// where B is a subset of A, unless an equal sentence is already known.
func (a *Agent) deriveSubsets() int {
	var derived []*Sentence
	for _, outer := range a.knowledge {
		for _, inner := range a.knowledge {
			if outer == inner || inner.Empty() || !inner.IsSubsetOf(outer) {
				continue
			}
			diff := outer.cells.Minus(inner.cells)
			if len(diff) == 0 {
				continue
			}
			candidate := newSentenceFromSet(diff, outer.count-inner.count)
			if candidate.count < 0 || candidate.count > candidate.Len() {
				a.stats.Refused++
				log.WithFields(logrus.Fields{
					"outer": outer.String(),
					"inner": inner.String(),
				}).Warn("contradictory sentences")
				continue
			}
			if containsEqual(a.knowledge, candidate) || containsEqual(derived, candidate) {
				continue
			}
			derived = append(derived, candidate)
		}
	}
	for _, s := range derived {
		log.WithField("sentence", s.String()).Debug("derived sentence")
	}
	a.knowledge = append(a.knowledge, derived...)
	a.stats.Derived += len(derived)
	return len(derived)
}

// prune drops empty sentences and sentences that marking shrank into a copy
// of an earlier one.
func (a *Agent) prune() {
	live := a.knowledge[:0]
	for _, s := range a.knowledge {
		if !s.Empty() && !containsEqual(live, s) {
			live = append(live, s)
		}
	}
	for i := len(live); i < len(a.knowledge); i++ {
		a.knowledge[i] = nil
	}
	a.knowledge = live
}

func containsEqual(sentences []*Sentence, candidate *Sentence) bool {
	for _, s := range sentences {
		if s.Equal(candidate) {
			return true
		}
	}
	return false
}

func (a *Agent) IsSafe(c Cell) bool {
	return a.safes.Has(c)
}

func (a *Agent) IsMine(c Cell) bool {
	return a.mines.Has(c)
}

func (a *Agent) Played(c Cell) bool {
	return a.movesMade.Has(c)
}

func (a *Agent) Safes() []Cell {
	return a.safes.Sorted()
}

func (a *Agent) Mines() []Cell {
	return a.mines.Sorted()
}

func (a *Agent) MovesMade() []Cell {
	return a.movesMade.Sorted()
}

// Knowledge renders the live sentences.
func (a *Agent) Knowledge() []string {
	rendered := make([]string, len(a.knowledge))
	for i, s := range a.knowledge {
		rendered[i] = s.String()
	}
	return rendered
}

// Solved reports whether every cell is known to be safe or a mine.
func (a *Agent) Solved() bool {
	return a.safes.Len()+a.mines.Len() == a.height*a.width
}

func (a *Agent) Stats() Stats {
	return a.stats
}
