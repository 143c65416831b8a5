package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/conduitcms/composer/internal/config"
	"github.com/conduitcms/composer/internal/editor"
	"github.com/conduitcms/composer/internal/logging"
	"github.com/conduitcms/composer/internal/patterns"
	"github.com/conduitcms/composer/internal/persistence"
	"github.com/conduitcms/composer/internal/registry"
	"github.com/conduitcms/composer/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveDraftID string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the editor server",
	Long: `Start the page composition editor server.

Loads block definitions, connects to the pattern store and the
persistence backend, and serves the editor UI with a live preview frame.

Examples:
  composer serve                        # New empty draft
  composer serve --draft 42             # Edit page draft 42
  composer serve --port 9000            # Serve on a different port`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8090, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().StringSliceP("blocks", "b", nil, "Directories with block definition files")
	serveCmd.Flags().StringVar(&serveDraftID, "draft", "", "ID of an existing page draft to edit")

	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("blocks.definition_paths", serveCmd.Flags().Lookup("blocks"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := registry.NewBlockRegistry()
	for _, dir := range cfg.Blocks.DefinitionPaths {
		count, errs := registry.LoadDirectory(reg, dir)
		for _, loadErr := range errs {
			logger.Warn(ctx, loadErr, "skipping block definition", "dir", dir)
		}
		logger.Info(ctx, "loaded block definitions", "dir", dir, "count", count)
	}

	resolver := patterns.NewResolver(
		patterns.NewHTTPStore(cfg.Patterns.StoreURL, cfg.Patterns.Timeout),
		patterns.WithTTL(cfg.Patterns.CacheTTL),
		patterns.WithLogger(logger),
	)

	gateway := persistence.NewClient(cfg.Persistence.BaseURL, cfg.Persistence.Timeout)
	controller := editor.NewController(
		editor.WithGateway(gateway),
		editor.WithLogger(logger),
	)

	if serveDraftID != "" {
		if err := controller.Load(ctx, serveDraftID); err != nil {
			return fmt.Errorf("loading draft %s: %w", serveDraftID, err)
		}
	}

	srv := server.New(cfg, logger, reg, resolver, controller)

	// Cancel the serve context on interrupt; Start shuts down on cancel.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info(ctx, "shutting down")
		cancel()
	}()

	return srv.Start(ctx)
}
