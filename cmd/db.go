package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tomasstrnad1997/minesai/ai"
	"github.com/tomasstrnad1997/minesai/db"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the observation journal",
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the journal tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.InitializeTables(); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Tables created")
		return nil
	},
}

var dbShowCmd = &cobra.Command{
	Use:   "show [session]",
	Short: "List sessions or show the knowledge rebuilt from one session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		ctx := contextOrBackground(cmd.Context())
		if len(args) == 0 {
			return listSessions(ctx, cmd.OutOrStdout(), store)
		}
		return showSession(ctx, cmd.OutOrStdout(), store, args[0])
	},
}

func init() {
	dbCmd.AddCommand(dbInitCmd)
	dbCmd.AddCommand(dbShowCmd)
}

func listSessions(ctx context.Context, w io.Writer, store *db.SQLStore) error {
	sessions, err := store.Sessions(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions")
		return nil
	}
	for _, session := range sessions {
		fmt.Fprintf(w, "%s  %dx%d  %s\n", session.ID, session.Height, session.Width, session.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func showSession(ctx context.Context, w io.Writer, store *db.SQLStore, id string) error {
	session, err := store.Session(ctx, id)
	if err != nil {
		return err
	}
	observations, err := store.Observations(ctx, id)
	if err != nil {
		return err
	}
	agent, err := store.Restore(ctx, id)
	if err != nil {
		return err
	}
	headerStyle.Fprintf(w, "Session %s (%dx%d)\n", session.ID, session.Height, session.Width)
	for _, o := range observations {
		fmt.Fprintf(w, "  %3d  %s = %d\n", o.Seq, o.Cell, o.Count)
	}
	headerStyle.Fprintf(w, "Safe: ")
	fmt.Fprintln(w, ai.NewCellSet(agent.Safes()...))
	headerStyle.Fprintf(w, "Mines: ")
	fmt.Fprintln(w, ai.NewCellSet(agent.Mines()...))
	if move, ok := agent.ChooseKnownSafeMove(); ok {
		fmt.Fprintf(w, "Next safe move: %s\n", move)
	}
	return nil
}
