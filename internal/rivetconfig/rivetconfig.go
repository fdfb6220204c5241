// Package rivetconfig loads the environment-variable configuration surface
// of spec §6, parallel to the teacher's app.Config: a single struct with
// sane defaults. Values come from the environment only; no binary has flags
// that override them.
package rivetconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// RunnerConfig is the environment-variable configuration a runner process
// reads at startup (spec §6).
type RunnerConfig struct {
	OrchestratorURL     string
	DefaultContainerImage string
	LogSendInterval     time.Duration
	LogBatchMax         int
	HeartbeatInterval   time.Duration
	HeartbeatTTL        time.Duration
	HeartbeatMaxBackoff time.Duration
	ClaimTTL            time.Duration
	MaxParallelJobs     int
	RunnerTags          string // "key=value,key=value"
	WorkspaceRoot       string
}

// OrchestratorConfig is the environment-variable configuration the
// orchestrator HTTP service reads at startup.
type OrchestratorConfig struct {
	ListenAddr      string
	DatabasePath    string
	HeartbeatTTL    time.Duration
	ClaimTTL        time.Duration
	ReaperInterval  time.Duration
}

// LoadRunnerConfig reads RunnerConfig from the environment, applying the
// defaults spec §6 implies.
func LoadRunnerConfig() (RunnerConfig, error) {
	cfg := RunnerConfig{
		OrchestratorURL:       envOr("ORCHESTRATOR_URL", "http://localhost:8080"),
		DefaultContainerImage: envOr("DEFAULT_CONTAINER_IMAGE", "alpine:latest"),
		LogBatchMax:           50,
		MaxParallelJobs:       4,
		RunnerTags:            envOr("RUNNER_TAGS", ""),
		WorkspaceRoot:         envOr("WORKSPACE_ROOT", os.TempDir()),
	}

	var err error
	if cfg.LogSendInterval, err = envDuration("LOG_SEND_INTERVAL", 2*time.Second); err != nil {
		return cfg, err
	}
	if cfg.LogBatchMax, err = envInt("LOG_BATCH_MAX", 50); err != nil {
		return cfg, err
	}
	if cfg.HeartbeatInterval, err = envDuration("HEARTBEAT_INTERVAL", 10*time.Second); err != nil {
		return cfg, err
	}
	if cfg.HeartbeatTTL, err = envDuration("HEARTBEAT_TTL", 30*time.Second); err != nil {
		return cfg, err
	}
	if cfg.HeartbeatMaxBackoff, err = envDuration("HEARTBEAT_MAX_BACKOFF", 60*time.Second); err != nil {
		return cfg, err
	}
	if cfg.ClaimTTL, err = envDuration("CLAIM_TTL", 5*time.Minute); err != nil {
		return cfg, err
	}
	if cfg.MaxParallelJobs, err = envInt("MAX_PARALLEL_JOBS", 4); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadOrchestratorConfig reads OrchestratorConfig from the environment.
func LoadOrchestratorConfig() (OrchestratorConfig, error) {
	cfg := OrchestratorConfig{
		ListenAddr:   envOr("LISTEN_ADDR", ":8080"),
		DatabasePath: envOr("DATABASE_PATH", "rivet.db"),
	}
	var err error
	if cfg.HeartbeatTTL, err = envDuration("HEARTBEAT_TTL", 30*time.Second); err != nil {
		return cfg, err
	}
	if cfg.ClaimTTL, err = envDuration("CLAIM_TTL", 5*time.Minute); err != nil {
		return cfg, err
	}
	if cfg.ReaperInterval, err = envDuration("REAPER_INTERVAL", 15*time.Second); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, v, err)
	}
	return d, nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, v, err)
	}
	return n, nil
}
