package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pable/fgframes/internal/server"
	"github.com/pable/fgframes/internal/storage"
)

var (
	serveAddr    string
	serveNoStore bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	serveCmd.Flags().BoolVar(&serveNoStore, "no-store", false, "analyze requests without a database")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	var db *storage.DB
	if !serveNoStore {
		var err error
		db, err = openStorage()
		if err != nil {
			return err
		}
		defer db.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(db, newEngine(), cfg, logger)
	return srv.Run(ctx)
}
