// CLAUDE:SUMMARY Entry point for the boletin gazette monitor: cobra CLI (serve, ingest, refresh, search, prune, stats, digest, mcp) over one archive.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/boletin/boletin"
)

var version = "0.3.0"

func main() {
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "boletin",
		Short: "Monitor Spanish official gazettes for municipal notices and keywords",
		Long: `boletin watches the Diario Oficial de Extremadura (DOE), the Boletín
Oficial de la Provincia de Badajoz (BOP) and the Boletín Oficial del
Estado (BOE).

It archives daily issues, finds notices addressed to municipalities and
keyword mentions, renders summary reports and mails daily digests.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", os.Getenv("BOLETIN_CONFIG"), "YAML config file")
	root.PersistentFlags().String("db", "", "archive database path (overrides config)")

	root.AddCommand(serveCmd())
	root.AddCommand(ingestCmd())
	root.AddCommand(refreshCmd())
	root.AddCommand(searchCmd())
	root.AddCommand(pruneCmd())
	root.AddCommand(statsCmd())
	root.AddCommand(digestCmd())
	root.AddCommand(mcpCmd())
	return root
}

// app is the runtime shared by every command.
type app struct {
	cfg      *boletin.Config
	logger   *slog.Logger
	svc      *boletin.Service
	registry *prometheus.Registry
}

// setup loads configuration, opens the archive and builds the service.
// Logs go to stderr so command output on stdout stays clean.
func setup(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := boletin.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.DBPath = db
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc, err := boletin.Open(cfg, logger, boletin.WithRegisterer(reg))
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, svc: svc, registry: reg}, nil
}

func (a *app) Close() error { return a.svc.Close() }

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// parseSources accepts codes or kind names; empty means all sources.
func parseSources(raw []string) ([]boletin.Source, error) {
	var out []boletin.Source
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			src, err := boletin.ParseSource(part)
			if err != nil {
				return nil, err
			}
			out = append(out, src)
		}
	}
	return out, nil
}
