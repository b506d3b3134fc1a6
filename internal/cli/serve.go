package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ppiankov/creditlens/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the companion file-sync server",
	Long: `Serve exposes sessions.json and settings.json from the server data directory
over HTTP so CreditLens instances with sync enabled can mirror their local store:

  GET  /api/sessions   file content, or [] when absent
  POST /api/sessions   replace with a JSON array
  GET  /api/settings   file content, or null when absent
  POST /api/settings   replace with a JSON object
  GET  /healthz

Example:
  creditlens serve
  creditlens serve --addr 0.0.0.0:5174 --data-dir ./sync-data`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(cfg)
		defer func() { _ = log.Sync() }()

		srv, err := server.New(cfg.Server.DataDir, log)
		if err != nil {
			return err
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Run(cfg.Server.Addr)
		}()

		fmt.Fprintf(os.Stderr, "✓ File-sync server on http://%s (data: %s)\n", cfg.Server.Addr, cfg.Server.DataDir)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case <-quit:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default from config: 127.0.0.1:5174)")
	serveCmd.Flags().String("data-dir", "", "directory holding sessions.json and settings.json")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.data_dir", serveCmd.Flags().Lookup("data-dir"))
}
