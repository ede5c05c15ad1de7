package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/composureci/composure/internal/config"
	"github.com/composureci/composure/internal/server"
	"github.com/composureci/composure/internal/store"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the composition HTTP API",
	Long: `Serve the composition pipeline over HTTP.

Endpoints:
  GET  /api/v1/health
  POST /api/v1/compose
  GET  /api/v1/compositions/{id}
  GET  /api/v1/compositions/{id}/status
  POST /api/v1/compositions/{id}/confirm
  POST /api/v1/recompose

If prompts.override_dir is configured, the templates in that directory
are watched and hot-reloaded while serving.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		orchestrator, templates, _, err := buildOrchestrator(cfg)
		if err != nil {
			return err
		}
		log.Printf("[serve] %d prompt templates loaded", len(templates.Names()))

		if cfg.Prompts.OverrideDir != "" {
			watcher, err := templates.Watch(cfg.Prompts.OverrideDir)
			if err != nil {
				return fmt.Errorf("watch prompt overrides: %w", err)
			}
			defer watcher.Close()
			log.Printf("[serve] watching prompt overrides in %s", cfg.Prompts.OverrideDir)
		}

		db, err := store.Open(storePath(cfg))
		if err != nil {
			return fmt.Errorf("open composition store: %w", err)
		}
		defer db.Close()

		addr := cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return server.New(orchestrator, db).Run(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr from config)")
}
