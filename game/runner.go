// Package game plays a mines.Board with an ai.Agent: the agent picks a cell,
// the board reveals it and every revealed count is fed back to the agent.
package game

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tomasstrnad1997/minesai/ai"
	"github.com/tomasstrnad1997/minesai/mines"
)

var log = logrus.New()

func SetLogger(l *logrus.Logger) {
	log = l
}

type Outcome int

const (
	Playing Outcome = iota
	Won
	Lost
	Stuck
)

func (o Outcome) String() string {
	switch o {
	case Playing:
		return "playing"
	case Won:
		return "won"
	case Lost:
		return "lost"
	case Stuck:
		return "stuck"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

type StepResult struct {
	Move     ai.Move
	Revealed int
	Outcome  Outcome
}

type Result struct {
	Outcome  Outcome
	Moves    int
	Guesses  int
	LastMove ai.Move
	// Flags placed on cells the agent proved to be mines.
	Flags      int
	FlagsMatch bool
}

type Runner struct {
	Board *mines.Board
	Agent *ai.Agent

	moves    int
	guesses  int
	flags    int
	lastMove ai.Move
	outcome  Outcome
}

func NewRunner(board *mines.Board, opts ...ai.Option) (*Runner, error) {
	agent, err := ai.NewAgent(board.Height, board.Width, opts...)
	if err != nil {
		return nil, err
	}
	return &Runner{Board: board, Agent: agent}, nil
}

func (r *Runner) Outcome() Outcome {
	return r.outcome
}

// Step lets the agent choose and play one move.
func (r *Runner) Step() (StepResult, error) {
	if r.outcome != Playing {
		return StepResult{Outcome: r.outcome}, nil
	}
	move, ok := r.Agent.NextMove()
	if !ok {
		r.outcome = Stuck
		return StepResult{Outcome: r.outcome}, nil
	}
	return r.play(move)
}

// Open plays the given cell, as a player's first click would.
func (r *Runner) Open(c ai.Cell) (StepResult, error) {
	if r.outcome != Playing {
		return StepResult{Outcome: r.outcome}, nil
	}
	return r.play(ai.Move{Cell: c, Guess: !r.Agent.IsSafe(c)})
}

func (r *Runner) play(move ai.Move) (StepResult, error) {
	result, err := r.Board.Reveal(move.Cell.Row, move.Cell.Col)
	if err != nil {
		return StepResult{}, err
	}
	r.moves++
	r.lastMove = move
	if move.Guess {
		r.guesses++
	}
	step := StepResult{Move: move, Revealed: len(result.UpdatedCells)}

	if result.Result == mines.MineBlown {
		r.outcome = Lost
		step.Outcome = r.outcome
		log.WithFields(logrus.Fields{"move": move.String(), "moves": r.moves}).Info("mine blown")
		return step, nil
	}
	for _, cell := range result.UpdatedCells {
		count := mines.GetNumberOfMines(r.Board, cell)
		if err := r.Agent.Observe(ai.Cell{Row: cell.Row, Col: cell.Col}, count); err != nil {
			return step, fmt.Errorf("observe %d,%d: %w", cell.Row, cell.Col, err)
		}
	}
	if err := r.flagKnownMines(); err != nil {
		return step, err
	}
	if result.Result == mines.GameWon {
		r.outcome = Won
	}
	step.Outcome = r.outcome
	log.WithFields(logrus.Fields{
		"move":     move.String(),
		"revealed": step.Revealed,
		"mines":    len(r.Agent.Mines()),
	}).Debug("move played")
	return step, nil
}

func (r *Runner) flagKnownMines() error {
	for _, c := range r.Agent.Mines() {
		if r.Board.Cells[c.Row][c.Col].Flagged {
			continue
		}
		if _, err := r.Board.Flag(c.Row, c.Col); err != nil {
			return err
		}
		r.flags++
	}
	return nil
}

// Run steps until the game ends or ctx is cancelled.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	for r.outcome == Playing {
		select {
		case <-ctx.Done():
			return r.Result(), ctx.Err()
		default:
		}
		if _, err := r.Step(); err != nil {
			return r.Result(), err
		}
	}
	return r.Result(), nil
}

func (r *Runner) Result() Result {
	return Result{
		Outcome:    r.outcome,
		Moves:      r.moves,
		Guesses:    r.guesses,
		LastMove:   r.lastMove,
		Flags:      r.flags,
		FlagsMatch: r.Board.FlagsMatchMines(),
	}
}
