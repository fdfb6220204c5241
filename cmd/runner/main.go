// Command runner runs one Runner Worker Loop (spec §4.4) against a
// configured orchestrator: it registers, heartbeats, polls for scheduled
// jobs, claims and executes them with bounded parallelism, and reports
// results and buffered logs back.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/SolracHQ/rivet/internal/containerstack/dockerengine"
	"github.com/SolracHQ/rivet/internal/ctxlog"
	"github.com/SolracHQ/rivet/internal/model"
	"github.com/SolracHQ/rivet/internal/rivetconfig"
	"github.com/SolracHQ/rivet/internal/rivetlog"
	"github.com/SolracHQ/rivet/internal/runner"
	"github.com/SolracHQ/rivet/internal/runnerclient"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out *os.File) error {
	flagSet := flag.NewFlagSet("runner", flag.ContinueOnError)
	logLevel := flagSet.String("log-level", "info", "Logging level: debug, info, warn, error.")
	logFormat := flagSet.String("log-format", "json", "Log output format: text or json.")
	runnerID := flagSet.String("runner-id", "", "Stable runner id. Random UUID if unset.")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	logger := rivetlog.New(*logLevel, *logFormat, out)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := rivetconfig.LoadRunnerConfig()
	if err != nil {
		return fmt.Errorf("runner: load config: %w", err)
	}

	id := *runnerID
	if id == "" {
		id = uuid.NewString()
	}

	client := runnerclient.New(cfg.OrchestratorURL, cfg.HeartbeatMaxBackoff)
	defer client.Close()

	w := runner.New(id, parseTags(cfg.RunnerTags), cfg, client, dockerengine.New())

	logger.Info("starting runner", "runner_id", id, "orchestrator_url", cfg.OrchestratorURL, "max_parallel_jobs", cfg.MaxParallelJobs)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// parseTags decodes the RUNNER_TAGS environment variable's
// "key=value,key=value" form into a model.TagSet (spec §6 configuration).
func parseTags(raw string) model.TagSet {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var tags model.TagSet
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		tags = append(tags, model.Tag{Key: strings.TrimSpace(kv[0]), Value: strings.TrimSpace(kv[1])})
	}
	return tags
}
