package cmd

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tomasstrnad1997/minesai/ai"
	"github.com/tomasstrnad1997/minesai/config"
	"github.com/tomasstrnad1997/minesai/game"
	"github.com/tomasstrnad1997/minesai/mines"
)

var (
	wonStyle      = color.New(color.FgGreen, color.Bold)
	lostStyle     = color.New(color.FgRed, color.Bold)
	stuckStyle    = color.New(color.FgHiYellow, color.Bold)
	headerStyle   = color.New(color.FgCyan, color.Bold)
	sentenceStyle = color.New(color.FgWhite)
)

var (
	playHeight int
	playWidth  int
	playMines  int
	playSeed   int64
	playGames  int
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Let the agent play games on generated boards",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("height") {
			cfg.Board.Height = playHeight
		}
		if cmd.Flags().Changed("width") {
			cfg.Board.Width = playWidth
		}
		if cmd.Flags().Changed("mines") {
			cfg.Board.Mines = playMines
		}
		if cmd.Flags().Changed("seed") {
			cfg.Seed = playSeed
		}
		if cfg.Seed == 0 {
			cfg.Seed = time.Now().UnixNano()
		}
		return runPlay(contextOrBackground(cmd.Context()), cmd.OutOrStdout(), cfg, playGames)
	},
}

func init() {
	playCmd.Flags().IntVar(&playHeight, "height", 0, "Board height")
	playCmd.Flags().IntVar(&playWidth, "width", 0, "Board width")
	playCmd.Flags().IntVar(&playMines, "mines", 0, "Number of mines")
	playCmd.Flags().Int64Var(&playSeed, "seed", 0, "Seed for mine placement and guesses")
	playCmd.Flags().IntVarP(&playGames, "games", "n", 1, "Number of games to play")
}

func runPlay(ctx context.Context, w io.Writer, cfg config.Config, games int) error {
	if err := cfg.Board.Validate(); err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	won := 0
	for i := 0; i < games; i++ {
		board, err := mines.CreateBoardFromParams(cfg.Board, rng)
		if err != nil {
			return err
		}
		runner, err := game.NewRunner(board, ai.WithRand(rng))
		if err != nil {
			return err
		}
		result, err := runner.Run(ctx)
		if err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{
			"game":    i + 1,
			"outcome": result.Outcome,
			"moves":   result.Moves,
			"guesses": result.Guesses,
		}).Debug("game finished")
		if result.Outcome == game.Won {
			won++
		}
		if games == 1 {
			printGame(w, runner, result)
		}
	}
	if games > 1 {
		headerStyle.Fprintf(w, "Won %d of %d games\n", won, games)
	}
	return nil
}

func printGame(w io.Writer, runner *game.Runner, result game.Result) {
	outcomeStyle(result.Outcome).Fprintf(w, "%s", result.Outcome)
	fmt.Fprintf(w, " after %d moves (%d guesses)\n", result.Moves, result.Guesses)
	if result.Outcome == game.Lost {
		fmt.Fprintf(w, "Last move: %s\n", result.LastMove)
	}
	if result.Outcome != game.Won {
		fmt.Fprintf(w, "%d cells still covered\n", runner.Board.RemainingCells())
	}
	fmt.Fprintln(w)
	runner.Board.Print(w)
	fmt.Fprintln(w)
	if result.Outcome == game.Lost {
		headerStyle.Fprintf(w, "Mine layout:\n")
		runner.Board.PrintRevealed(w)
		fmt.Fprintln(w)
	}

	headerStyle.Fprintf(w, "Known mines: ")
	fmt.Fprintln(w, ai.NewCellSet(runner.Agent.Mines()...))
	headerStyle.Fprintf(w, "Knowledge:\n")
	knowledge := runner.Agent.Knowledge()
	if len(knowledge) == 0 {
		sentenceStyle.Fprintln(w, "  (none)")
	}
	for _, sentence := range knowledge {
		sentenceStyle.Fprintf(w, "  %s\n", sentence)
	}
}

func outcomeStyle(outcome game.Outcome) *color.Color {
	switch outcome {
	case game.Won:
		return wonStyle
	case game.Lost:
		return lostStyle
	default:
		return stuckStyle
	}
}
