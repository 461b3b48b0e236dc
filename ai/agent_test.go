package ai_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomasstrnad1997/minesai/ai"
)

// countMines returns the number of mines around c on a height x width board.
func countMines(height, width int, mines ai.CellSet, c ai.Cell) int {
	count := 0
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			n := ai.Cell{Row: c.Row + dr, Col: c.Col + dc}
			if n == c || n.Row < 0 || n.Row >= height || n.Col < 0 || n.Col >= width {
				continue
			}
			if mines.Has(n) {
				count++
			}
		}
	}
	return count
}

func newAgent(t *testing.T, height, width int) *ai.Agent {
	t.Helper()
	agent, err := ai.NewAgent(height, width, ai.WithRand(rand.New(rand.NewSource(1))))
	require.NoError(t, err)
	return agent
}

func TestNewAgentInvalidDimensions(t *testing.T) {
	for _, dims := range [][2]int{{0, 3}, {3, 0}, {-1, 4}} {
		_, err := ai.NewAgent(dims[0], dims[1])
		assert.ErrorIs(t, err, ai.ErrInvalidDimensions)
	}
}

func TestObserveZeroMarksNeighboursSafe(t *testing.T) {
	agent := newAgent(t, 3, 3)
	require.NoError(t, agent.Observe(ai.Cell{Row: 2, Col: 2}, 0))

	assert.Equal(t, []ai.Cell{{Row: 1, Col: 1}, {Row: 1, Col: 2}, {Row: 2, Col: 1}, {Row: 2, Col: 2}}, agent.Safes())
	assert.Empty(t, agent.Mines())
	assert.Equal(t, []ai.Cell{{Row: 2, Col: 2}}, agent.MovesMade())
}

func TestObserveCornerAllMines(t *testing.T) {
	agent := newAgent(t, 3, 3)
	require.NoError(t, agent.Observe(ai.Cell{Row: 0, Col: 0}, 3))

	assert.Equal(t, []ai.Cell{{Row: 0, Col: 1}, {Row: 1, Col: 0}, {Row: 1, Col: 1}}, agent.Mines())
	assert.Equal(t, []ai.Cell{{Row: 0, Col: 0}}, agent.Safes())
}

// Two by two board, mine at (0, 0). Each observation narrows the same
// constraint until the last one pins the mine.
func TestTwoByTwoChain(t *testing.T) {
	agent := newAgent(t, 2, 2)
	mine := ai.Cell{Row: 0, Col: 0}

	require.NoError(t, agent.Observe(ai.Cell{Row: 1, Col: 1}, 1))
	assert.Empty(t, agent.Mines())
	assert.Equal(t, []string{"{(0, 0), (0, 1), (1, 0)} = 1"}, agent.Knowledge())

	require.NoError(t, agent.Observe(ai.Cell{Row: 0, Col: 1}, 1))
	assert.Empty(t, agent.Mines())
	assert.False(t, agent.IsSafe(ai.Cell{Row: 1, Col: 0}))
	assert.False(t, agent.Solved())

	require.NoError(t, agent.Observe(ai.Cell{Row: 1, Col: 0}, 1))
	assert.Equal(t, []ai.Cell{mine}, agent.Mines())
	assert.Len(t, agent.Safes(), 3)
	assert.True(t, agent.Solved())
	assert.Empty(t, agent.Knowledge())

	_, ok := agent.ChooseKnownSafeMove()
	assert.False(t, ok)
	_, ok = agent.ChooseAnyLegalMove()
	assert.False(t, ok)
}

// Three by three board, mine at (0, 0). The fourth observation can only be
// resolved by subtracting {(0,0),(0,1)} = 1 from {(0,0),(0,1),(0,2)} = 1.
func TestSubsetInferenceChain(t *testing.T) {
	agent := newAgent(t, 3, 3)
	mines := ai.NewCellSet(ai.Cell{Row: 0, Col: 0})
	observe := func(row, col int) {
		c := ai.Cell{Row: row, Col: col}
		require.NoError(t, agent.Observe(c, countMines(3, 3, mines, c)))
	}

	observe(2, 0)
	observe(2, 1)
	observe(1, 0)
	assert.False(t, agent.IsSafe(ai.Cell{Row: 0, Col: 2}))
	assert.Contains(t, agent.Knowledge(), "{(0, 0), (0, 1)} = 1")

	observe(1, 1)
	assert.True(t, agent.IsSafe(ai.Cell{Row: 0, Col: 2}))
	assert.Empty(t, agent.Mines())
	next, ok := agent.ChooseKnownSafeMove()
	require.True(t, ok)
	assert.Equal(t, ai.Cell{Row: 0, Col: 2}, next)

	observe(0, 2)
	assert.Equal(t, []ai.Cell{{Row: 0, Col: 0}}, agent.Mines())
	assert.Len(t, agent.Safes(), 8)
	assert.Empty(t, agent.Knowledge())
}

func TestObserveTwiceIsNoop(t *testing.T) {
	agent := newAgent(t, 3, 3)
	c := ai.Cell{Row: 1, Col: 1}
	require.NoError(t, agent.Observe(c, 2))
	before := agent.Knowledge()

	require.NoError(t, agent.Observe(c, 5))
	assert.Equal(t, before, agent.Knowledge())
	assert.Equal(t, 1, agent.Stats().Observations)
}

func TestObserveRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(a *ai.Agent)
		cell   ai.Cell
		count  int
		reason error
	}{
		{name: "row out of range", cell: ai.Cell{Row: 3, Col: 0}, count: 0, reason: ai.ErrOutOfBounds},
		{name: "negative column", cell: ai.Cell{Row: 0, Col: -1}, count: 0, reason: ai.ErrOutOfBounds},
		{name: "negative count", cell: ai.Cell{Row: 1, Col: 1}, count: -1, reason: ai.ErrNegativeCount},
		{name: "corner count above three", cell: ai.Cell{Row: 0, Col: 0}, count: 4, reason: ai.ErrCountTooLarge},
		{
			name:   "known mine",
			setup:  func(a *ai.Agent) { a.MarkMine(ai.Cell{Row: 1, Col: 1}) },
			cell:   ai.Cell{Row: 1, Col: 1},
			count:  1,
			reason: ai.ErrKnownMine,
		},
		{
			name:   "count below known mines",
			setup:  func(a *ai.Agent) { a.MarkMine(ai.Cell{Row: 0, Col: 1}) },
			cell:   ai.Cell{Row: 0, Col: 0},
			count:  0,
			reason: ai.ErrInconsistent,
		},
		{
			name:   "count above undetermined",
			setup:  func(a *ai.Agent) { require.NoError(t, a.Observe(ai.Cell{Row: 2, Col: 2}, 0)) },
			cell:   ai.Cell{Row: 2, Col: 1},
			count:  5,
			reason: ai.ErrInconsistent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent := newAgent(t, 3, 3)
			if tt.setup != nil {
				tt.setup(agent)
			}
			safes, mines, moves := agent.Safes(), agent.Mines(), agent.MovesMade()

			err := agent.Observe(tt.cell, tt.count)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.reason)

			var invalid *ai.InvalidObservationError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, tt.cell, invalid.Cell)

			assert.Equal(t, safes, agent.Safes())
			assert.Equal(t, mines, agent.Mines())
			assert.Equal(t, moves, agent.MovesMade())
		})
	}
}

func TestMarkIsIdempotent(t *testing.T) {
	agent := newAgent(t, 3, 3)
	require.NoError(t, agent.Observe(ai.Cell{Row: 0, Col: 0}, 1))
	mine := ai.Cell{Row: 0, Col: 1}

	agent.MarkMine(mine)
	knowledge := agent.Knowledge()
	agent.MarkMine(mine)

	assert.Equal(t, knowledge, agent.Knowledge())
	assert.Equal(t, []ai.Cell{mine}, agent.Mines())
	assert.True(t, agent.IsSafe(ai.Cell{Row: 1, Col: 0}))
	assert.True(t, agent.IsSafe(ai.Cell{Row: 1, Col: 1}))
}

func TestMarkNeverBreaksDisjointness(t *testing.T) {
	agent := newAgent(t, 3, 3)
	c := ai.Cell{Row: 1, Col: 1}
	agent.MarkSafe(c)
	agent.MarkMine(c)

	assert.True(t, agent.IsSafe(c))
	assert.False(t, agent.IsMine(c))
	assert.Equal(t, 1, agent.Stats().Refused)
}

func TestChooseKnownSafeMoveSkipsPlayed(t *testing.T) {
	agent := newAgent(t, 3, 3)
	_, ok := agent.ChooseKnownSafeMove()
	assert.False(t, ok)

	require.NoError(t, agent.Observe(ai.Cell{Row: 1, Col: 1}, 0))
	c, ok := agent.ChooseKnownSafeMove()
	require.True(t, ok)
	assert.Equal(t, ai.Cell{Row: 0, Col: 0}, c)

	require.NoError(t, agent.Observe(c, 0))
	c, ok = agent.ChooseKnownSafeMove()
	require.True(t, ok)
	assert.Equal(t, ai.Cell{Row: 0, Col: 1}, c)
}

func TestChooseAnyLegalMoveAvoidsMinesAndPlayed(t *testing.T) {
	agent := newAgent(t, 2, 2)
	require.NoError(t, agent.Observe(ai.Cell{Row: 0, Col: 0}, 3))

	for i := 0; i < 20; i++ {
		_, ok := agent.ChooseAnyLegalMove()
		assert.False(t, ok)
	}

	agent = newAgent(t, 1, 3)
	agent.MarkMine(ai.Cell{Row: 0, Col: 2})
	require.NoError(t, agent.Observe(ai.Cell{Row: 0, Col: 0}, 0))
	for i := 0; i < 20; i++ {
		c, ok := agent.ChooseAnyLegalMove()
		require.True(t, ok)
		assert.Equal(t, ai.Cell{Row: 0, Col: 1}, c)
	}
}

func TestNextMovePrefersSafeCells(t *testing.T) {
	agent := newAgent(t, 3, 3)
	move, ok := agent.NextMove()
	require.True(t, ok)
	assert.True(t, move.Guess)

	require.NoError(t, agent.Observe(move.Cell, 0))
	move, ok = agent.NextMove()
	require.True(t, ok)
	assert.False(t, move.Guess)
	assert.True(t, agent.IsSafe(move.Cell))
}
