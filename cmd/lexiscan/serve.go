package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/lexiscan/internal/server"
)

var (
	serveAddr         string
	serveInbox        string
	serveInboxWorkers int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides HTTP_ADDR)")
	serveCmd.Flags().StringVar(&serveInbox, "inbox", "", "directory to watch; new documents are analyzed automatically")
	serveCmd.Flags().IntVar(&serveInboxWorkers, "inbox-workers", 1, "concurrent inbox analyses")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := buildService(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer c.Close(logger)

	if serveInbox != "" {
		wait, err := watchInbox(ctx, serveInbox, c.svc, serveInboxWorkers, cfg.Server.RequestTimeout, logger)
		if err != nil {
			return err
		}
		defer wait()
	}

	var ping server.HealthChecker
	if c.audit != nil {
		ping = c.audit.Ping(cfg.Database.DialTimeout, logger)
	}
	handler := server.NewRouter(c.svc, ping, server.Config{
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxUploadBytes: cfg.MaxUploadBytes(),
	}, logger)

	return server.Run(ctx, cfg.Server.Addr, handler, cfg.Server.GracefulShutdown, logger)
}
