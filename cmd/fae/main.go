// Command fae runs the search engine as a JSON-RPC-over-stdio child process.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/faesearch/fae/internal/config"
	"github.com/faesearch/fae/internal/logctx"
	"github.com/faesearch/fae/search"
	"github.com/faesearch/fae/stdio"
)

var version = "0.1.0"

func main() {
	var (
		configFile string
		root       string
		watch      bool
		logLevel   string
	)

	rootCmd := &cobra.Command{
		Use:          "fae",
		Short:        "Streaming code search over JSON-RPC stdio",
		Version:      version,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("root") {
				cfg.Root = root
			}
			if cmd.Flags().Changed("watch") {
				cfg.Watch = watch
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			return run(cmd.Context(), cfg)
		},
	}

	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "path to YAML config file")
	rootCmd.Flags().StringVarP(&root, "root", "r", ".", "directory to search")
	rootCmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-run the active query when files change")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the searcher, optional watcher, and stdio handler, then serves
// until the session ends. stdout carries the wire protocol, so logs go to
// stderr.
func run(ctx context.Context, cfg config.Config) error {
	logger := slog.New(logctx.Handler{
		Handler: slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}),
	})

	searcher := search.NewLiteralSearcher(cfg.Root,
		search.WithIgnoreDirs(cfg.IgnoreDirs),
		search.WithSearchLogger(logger),
	)
	h := stdio.NewHandler(searcher, stdio.WithLogger(logger))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Watch {
		w, err := search.NewWatcher(cfg.Root, logger)
		if err != nil {
			return fmt.Errorf("start file watcher: %w", err)
		}
		defer w.Close()
		go w.Run(ctx)
		go func() {
			for range w.Changes() {
				h.Requery()
			}
		}()
	}

	return h.Serve(ctx)
}
