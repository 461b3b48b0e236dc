package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomasstrnad1997/minesai/ai"
	"github.com/tomasstrnad1997/minesai/config"
	"github.com/tomasstrnad1997/minesai/db"
	"github.com/tomasstrnad1997/minesai/game"
	"github.com/tomasstrnad1997/minesai/mines"
)

func init() {
	color.NoColor = true
}

func TestInitConfigurationFile(t *testing.T) {
	t.Setenv("DB_PATH", "")
	path := filepath.Join(t.TempDir(), "minesai.yaml")
	require.NoError(t, initConfigurationFile(path))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), loaded)
}

func TestRunPlaySingleGame(t *testing.T) {
	c := config.Default()
	c.Board = mines.GameParams{Height: 3, Width: 3, Mines: 0}
	c.Seed = 1

	var out bytes.Buffer
	require.NoError(t, runPlay(context.Background(), &out, c, 1))
	assert.Contains(t, out.String(), "won after 1 moves (1 guesses)")
	assert.Contains(t, out.String(), "X012\n0000\n1000\n2000\n")
	assert.Contains(t, out.String(), "(none)")
	assert.NotContains(t, out.String(), "still covered")
}

func TestPrintLostGame(t *testing.T) {
	board, err := mines.CreateBoardWithMines(1, 2, []mines.Position{{Row: 0, Col: 0}})
	require.NoError(t, err)
	runner, err := game.NewRunner(board)
	require.NoError(t, err)
	_, err = runner.Open(ai.Cell{Row: 0, Col: 0})
	require.NoError(t, err)

	var out bytes.Buffer
	printGame(&out, runner, runner.Result())
	assert.Contains(t, out.String(), "lost after 1 moves (1 guesses)")
	assert.Contains(t, out.String(), "Last move: (0, 0) guess")
	assert.Contains(t, out.String(), "1 cells still covered")
	assert.Contains(t, out.String(), "X01\n0*#\n")
	assert.Contains(t, out.String(), "Mine layout:\nO#\n")
}

func TestRunPlayManyGames(t *testing.T) {
	c := config.Default()
	c.Seed = 3

	var out bytes.Buffer
	require.NoError(t, runPlay(context.Background(), &out, c, 5))
	assert.Contains(t, out.String(), "of 5 games")
}

func TestRunPlayRejectsBoard(t *testing.T) {
	c := config.Default()
	c.Board = mines.GameParams{Height: 2, Width: 2, Mines: 9}
	assert.Error(t, runPlay(context.Background(), &bytes.Buffer{}, c, 1))
}

func TestShowSession(t *testing.T) {
	ctx := context.Background()
	store, err := db.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.InitializeTables())

	var out bytes.Buffer
	require.NoError(t, listSessions(ctx, &out, store))
	assert.Equal(t, "No sessions\n", out.String())

	id, err := store.CreateSession(ctx, 3, 3)
	require.NoError(t, err)
	require.NoError(t, store.RecordObservation(ctx, id, ai.Cell{Row: 0, Col: 0}, 0))

	out.Reset()
	require.NoError(t, listSessions(ctx, &out, store))
	assert.Contains(t, out.String(), id)
	assert.Contains(t, out.String(), "3x3")

	out.Reset()
	require.NoError(t, showSession(ctx, &out, store, id))
	assert.Contains(t, out.String(), "1  (0, 0) = 0")
	assert.Contains(t, out.String(), "Safe: {(0, 0), (0, 1), (1, 0), (1, 1)}")
	assert.Contains(t, out.String(), "Mines: {}")
	assert.Contains(t, out.String(), "Next safe move: (0, 1)")

	assert.ErrorIs(t, showSession(ctx, &out, store, "missing"), db.ErrSessionNotFound)
}

func TestRootPrintsHelp(t *testing.T) {
	t.Setenv("DB_PATH", "")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Usage:")
	assert.Contains(t, out.String(), "serve")
}
