package mines

import (
	"fmt"
	"io"
	"math/rand"
	"strconv"
)

type Cell struct {
	Mine     bool
	Revealed bool
	Flagged  bool
	Row      int
	Col      int
}

type Position struct {
	Row int
	Col int
}

type Board struct {
	Height        int
	Width         int
	Mines         int
	Cells         [][]*Cell
	RevealedCells int
}

type MoveType byte

const (
	Reveal MoveType = 0x01
	Flag   MoveType = 0x02
)

type Move struct {
	Row  int
	Col  int
	Type MoveType
}

type GameParams struct {
	Height int `yaml:"height"`
	Width  int `yaml:"width"`
	Mines  int `yaml:"mines"`
}

func (move Move) String() string {
	msg := fmt.Sprintf("(%d, %d) ", move.Row, move.Col)
	switch move.Type {
	case Reveal:
		return msg + "Reveal"
	case Flag:
		return msg + "Flag"
	default:
		return msg + "UNKNOWN"
	}
}

type InvalidBoardParamsError struct {
	height int
	width  int
	mines  int
}

type InvalidMoveError struct {
	board *Board
	row   int
	col   int
}

type MoveResultType int

const (
	NoChange MoveResultType = iota
	MineBlown
	CellRevealed
	Flagged
	GameWon
)

type MoveResult struct {
	Result       MoveResultType
	UpdatedCells []*Cell
}

func (e InvalidMoveError) Error() string {
	return fmt.Sprintf("Move out of range - (%d, %d) - Board (%d, %d)", e.row, e.col, e.board.Height, e.board.Width)
}

func (e InvalidBoardParamsError) Error() string {
	switch {
	case e.width <= 0:
		return fmt.Sprintf("Cannot create a board with width: %d", e.width)
	case e.height <= 0:
		return fmt.Sprintf("Cannot create a board with height: %d", e.height)
	case e.mines < 0:
		return fmt.Sprintf("Cannot create a board with negative amount of mines: %d", e.mines)
	case e.mines > e.width*e.height:
		return fmt.Sprintf("Not enough space for %d mines. (%d > %d * %d)", e.mines, e.mines, e.height, e.width)
	default:
		return "Cannot construct board: unknown error"
	}
}

func (params GameParams) Validate() error {
	if params.Width <= 0 || params.Height <= 0 || params.Mines < 0 || params.Mines > params.Width*params.Height {
		return &InvalidBoardParamsError{params.Height, params.Width, params.Mines}
	}
	return nil
}

func CreateBoardFromParams(params GameParams, rng *rand.Rand) (*Board, error) {
	return CreateBoard(params.Height, params.Width, params.Mines, rng)
}

func emptyBoard(height, width, mines int) (*Board, error) {
	params := GameParams{Height: height, Width: width, Mines: mines}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	cells := make([][]*Cell, height)
	for i := range cells {
		cells[i] = make([]*Cell, width)
		for j := 0; j < width; j++ {
			cells[i][j] = &Cell{Row: i, Col: j}
		}
	}
	return &Board{Height: height, Width: width, Mines: mines, Cells: cells}, nil
}

// CreateBoard places mines uniformly at random. A nil rng uses the global
// source.
func CreateBoard(height, width, mines int, rng *rand.Rand) (*Board, error) {
	board, err := emptyBoard(height, width, mines)
	if err != nil {
		return nil, err
	}
	positions := make([]int, width*height)
	for i := range positions {
		positions[i] = i
	}
	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}
	shuffle(len(positions), func(i, j int) {
		positions[i], positions[j] = positions[j], positions[i]
	})
	for _, position := range positions[:mines] {
		board.Cells[position/width][position%width].Mine = true
	}
	return board, nil
}

// CreateBoardWithMines builds a board with a fixed mine layout.
func CreateBoardWithMines(height, width int, mines []Position) (*Board, error) {
	board, err := emptyBoard(height, width, len(mines))
	if err != nil {
		return nil, err
	}
	for _, p := range mines {
		if !ValidCellIndex(board, p.Row, p.Col) {
			return nil, &InvalidMoveError{board, p.Row, p.Col}
		}
		if board.Cells[p.Row][p.Col].Mine {
			return nil, fmt.Errorf("duplicate mine at (%d, %d)", p.Row, p.Col)
		}
		board.Cells[p.Row][p.Col].Mine = true
	}
	return board, nil
}

func Cascade(board *Board, cell *Cell, updatedCells []*Cell) []*Cell {
	cell.Revealed = true
	updatedCells = append(updatedCells, cell)

	if GetNumberOfMines(board, cell) != 0 {
		return updatedCells
	}
	for _, ncell := range GetNeighbouringCells(board, cell) {
		if !ncell.Revealed && !ncell.Flagged {
			updatedCells = Cascade(board, ncell, updatedCells)
		}
	}
	return updatedCells
}

func ValidCellIndex(board *Board, row, col int) bool {
	return !(row < 0 || row >= board.Height || col < 0 || col >= board.Width)
}

func (board *Board) Reveal(row, col int) (*MoveResult, error) {
	if !ValidCellIndex(board, row, col) {
		return nil, &InvalidMoveError{board, row, col}
	}
	var cell = board.Cells[row][col]
	if cell.Revealed || cell.Flagged {
		return &MoveResult{NoChange, nil}, nil
	}
	if cell.Mine {
		cell.Revealed = true
		return &MoveResult{MineBlown, []*Cell{cell}}, nil
	}
	var updatedCells = []*Cell{}
	updatedCells = Cascade(board, cell, updatedCells)
	board.RevealedCells += len(updatedCells)
	var result MoveResultType
	if board.Won() {
		result = GameWon
	} else {
		result = CellRevealed
	}
	return &MoveResult{result, updatedCells}, nil
}

// GetNeighbouringCells returns the in-bounds cells around cell, excluding
// cell itself.
func GetNeighbouringCells(board *Board, cell *Cell) []*Cell {
	var cells []*Cell
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			row := cell.Row + dr
			col := cell.Col + dc
			if (dr != 0 || dc != 0) && ValidCellIndex(board, row, col) {
				cells = append(cells, board.Cells[row][col])
			}
		}
	}
	return cells
}

func GetNumberOfMines(board *Board, cell *Cell) int {
	mines := 0
	for _, cell := range GetNeighbouringCells(board, cell) {
		if cell.Mine {
			mines++
		}
	}
	return mines
}

// NearbyMines counts the mines around (row, col).
func (board *Board) NearbyMines(row, col int) (int, error) {
	if !ValidCellIndex(board, row, col) {
		return 0, &InvalidMoveError{board, row, col}
	}
	return GetNumberOfMines(board, board.Cells[row][col]), nil
}

func (board *Board) IsMine(row, col int) bool {
	return ValidCellIndex(board, row, col) && board.Cells[row][col].Mine
}

// Won reports whether every cell without a mine has been revealed.
func (board *Board) Won() bool {
	return board.RevealedCells+board.Mines == board.Width*board.Height
}

// FlagsMatchMines reports whether the flagged cells are exactly the mines.
func (board *Board) FlagsMatchMines() bool {
	for _, row := range board.Cells {
		for _, cell := range row {
			if cell.Mine != cell.Flagged {
				return false
			}
		}
	}
	return true
}

func (board *Board) MinePositions() []Position {
	var positions []Position
	for _, row := range board.Cells {
		for _, cell := range row {
			if cell.Mine {
				positions = append(positions, Position{cell.Row, cell.Col})
			}
		}
	}
	return positions
}

// Print writes the board as seen by a player: counts for revealed cells, F for
// flags and # for covered cells.
func (board *Board) Print(w io.Writer) {
	fmt.Fprint(w, "X")
	for col := 0; col < board.Width; col++ {
		fmt.Fprint(w, col%10)
	}
	fmt.Fprintln(w)
	for row := 0; row < board.Height; row++ {
		fmt.Fprint(w, row%10)
		for col := 0; col < board.Width; col++ {
			cell := board.Cells[row][col]
			switch {
			case cell.Revealed && cell.Mine:
				fmt.Fprint(w, "*")
			case cell.Revealed:
				fmt.Fprint(w, strconv.Itoa(GetNumberOfMines(board, cell)))
			case cell.Flagged:
				fmt.Fprint(w, "F")
			default:
				fmt.Fprint(w, "#")
			}
		}
		fmt.Fprintln(w)
	}
}

func (board *Board) PrintRevealed(w io.Writer) {
	for row := 0; row < board.Height; row++ {
		for col := 0; col < board.Width; col++ {
			if board.Cells[row][col].Mine {
				fmt.Fprint(w, "O")
			} else {
				fmt.Fprint(w, "#")
			}
		}
		fmt.Fprintln(w)
	}
}

func (board *Board) RemainingCells() int {
	remaining := 0
	for _, row := range board.Cells {
		for _, cell := range row {
			if !cell.Revealed {
				remaining++
			}
		}
	}
	return remaining
}

// Flag toggles the flag on a covered cell.
func (board *Board) Flag(row, col int) (*MoveResult, error) {
	if !ValidCellIndex(board, row, col) {
		return nil, &InvalidMoveError{board, row, col}
	}
	cell := board.Cells[row][col]
	if cell.Revealed {
		return &MoveResult{NoChange, nil}, nil
	}
	cell.Flagged = !cell.Flagged
	return &MoveResult{Flagged, []*Cell{cell}}, nil
}

func (board *Board) MakeMove(move Move) (*MoveResult, error) {
	switch move.Type {
	case Reveal:
		return board.Reveal(move.Row, move.Col)
	case Flag:
		return board.Flag(move.Row, move.Col)
	default:
		return nil, fmt.Errorf("Invalid move type %x", move.Type)
	}
}
