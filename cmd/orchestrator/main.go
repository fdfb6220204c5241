// Command orchestrator runs the HTTP service of the Orchestrator
// Scheduling Core (spec §4.5): pipeline/job storage, the runner registry,
// matchmaking, the job state machine, and log ingest/retrieval.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/SolracHQ/rivet/internal/ctxlog"
	"github.com/SolracHQ/rivet/internal/orchestrator"
	"github.com/SolracHQ/rivet/internal/rivetconfig"
	"github.com/SolracHQ/rivet/internal/rivetlog"
	"github.com/SolracHQ/rivet/internal/store"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out *os.File) error {
	flagSet := flag.NewFlagSet("orchestrator", flag.ContinueOnError)
	logLevel := flagSet.String("log-level", "info", "Logging level: debug, info, warn, error.")
	logFormat := flagSet.String("log-format", "json", "Log output format: text or json.")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	logger := rivetlog.New(*logLevel, *logFormat, out)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := rivetconfig.LoadOrchestratorConfig()
	if err != nil {
		return fmt.Errorf("orchestrator: load config: %w", err)
	}

	st, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("orchestrator: open store: %w", err)
	}
	defer st.Close()

	srv := orchestrator.New(st, cfg.HeartbeatTTL, cfg.ClaimTTL)

	logger.Info("starting orchestrator", "listen_addr", cfg.ListenAddr, "database_path", cfg.DatabasePath)
	if err := srv.Serve(ctx, cfg.ListenAddr, cfg.ReaperInterval); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
