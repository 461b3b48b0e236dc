package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomasstrnad1997/minesai/db"
	"github.com/tomasstrnad1997/minesai/server"
)

var (
	serveHost    string
	servePort    uint16
	serveJournal bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the hint server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("host") {
			cfg.Server.Host = serveHost
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}
		var opts []server.Option
		if cfg.Seed != 0 {
			opts = append(opts, server.WithSeed(cfg.Seed))
		}
		if serveJournal {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.InitializeTables(); err != nil {
				return err
			}
			opts = append(opts, server.WithJournal(store))
		}
		srv, err := server.NewServer("minesai", cfg.Server.Host, cfg.Server.Port, opts...)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s started at %s\n", srv.Name, srv.Addr())

		ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Serve(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Address to listen on")
	serveCmd.Flags().Uint16VarP(&servePort, "port", "p", 0, "Port to listen on")
	serveCmd.Flags().BoolVar(&serveJournal, "journal", false, "Journal observations to the database so sessions can be resumed")
}

func openStore() (*db.SQLStore, error) {
	if cfg.Database.Path == "" {
		return nil, fmt.Errorf("no database configured: set database.path or DB_PATH")
	}
	return db.Open(cfg.Database.Path)
}

// contextOrBackground guards commands invoked without a context.
func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
