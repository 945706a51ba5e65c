// Package config loads process-level configuration from the
// environment, distinct from the caller-constructed domain.SeriesConfig
// a series is run with: this is the knobs a deployed process needs
// before it has ever been asked to run anything.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every process-level setting.
type Config struct {
	Logging  LoggingConfig
	Metrics  MetricsConfig
	Remote   RemoteConfig
	Dispatch DispatchConfig
	Sandbox  SandboxConfig
	Series   SeriesDefaultsConfig
}

// LoggingConfig configures pkg/logger.
type LoggingConfig struct {
	Level  string
	Format string
	Async  bool
}

// MetricsConfig configures the Prometheus sidecar exposed by cmd/arena-demo.
type MetricsConfig struct {
	Enabled bool
	Port    int
	Path    string
}

// RemoteConfig configures the websocket fan-out server exposed by
// internal/publish/remote.
type RemoteConfig struct {
	Enabled bool
	Port    int
}

// DispatchConfig configures internal/dispatch's worker pool.
type DispatchConfig struct {
	MaxParallelMatches int
	StuckThreshold     time.Duration
}

// SandboxConfig configures internal/executor/sandbox's Docker isolation.
// Supports Docker secrets via the _FILE suffix convention: a sensitive
// value can be supplied directly or as a path to a file containing it.
type SandboxConfig struct {
	Image             string
	BinaryPath        string
	CPUQuota          int64
	MemoryLimitMB     int64
	PidsLimit         int64
	ProgramsHostPath  string
	ProgramsMountPath string
}

// SeriesDefaultsConfig seeds domain.SeriesConfig.WithDefaults when a
// caller does not supply its own values.
type SeriesDefaultsConfig struct {
	GroupCount         int
	FinalistsPerGroup  int
	MaxParallelMatches int
	MoveTimeout        time.Duration
	MemoryLimitMB      int
}

// Validate rejects settings that would misconfigure a dependent
// component rather than simply falling back to its own internal
// default.
func (c *Config) Validate() error {
	validLevels := []string{"debug", "info", "warn", "error"}
	valid := false
	for _, level := range validLevels {
		if c.Logging.Level == level {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return fmt.Errorf("invalid metrics port: %d", c.Metrics.Port)
	}

	if c.Remote.Enabled && (c.Remote.Port < 1 || c.Remote.Port > 65535) {
		return fmt.Errorf("invalid remote port: %d", c.Remote.Port)
	}

	if c.Dispatch.MaxParallelMatches < 0 {
		return fmt.Errorf("dispatch max_parallel_matches must not be negative")
	}

	return nil
}

// Load reads configuration from the environment, falling back to an
// .env file in the working directory if present, then to the defaults
// below.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Async:  getEnvBool("LOG_ASYNC", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Port:    getEnvInt("METRICS_PORT", 9090),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
		Remote: RemoteConfig{
			Enabled: getEnvBool("REMOTE_ENABLED", false),
			Port:    getEnvInt("REMOTE_PORT", 9091),
		},
		Dispatch: DispatchConfig{
			MaxParallelMatches: getEnvInt("DISPATCH_MAX_PARALLEL", 0),
			StuckThreshold:     getEnvDuration("DISPATCH_STUCK_THRESHOLD", 30*time.Second),
		},
		Sandbox: SandboxConfig{
			Image:             getEnv("SANDBOX_IMAGE", "arena-sandbox:latest"),
			BinaryPath:        getEnv("SANDBOX_BINARY_PATH", "/usr/local/bin/match-runner"),
			CPUQuota:          int64(getEnvInt("SANDBOX_CPU_QUOTA", 100000)),
			MemoryLimitMB:     int64(getEnvInt("SANDBOX_MEMORY_LIMIT_MB", 512)),
			PidsLimit:         int64(getEnvInt("SANDBOX_PIDS_LIMIT", 100)),
			ProgramsHostPath:  getEnvOrFile("SANDBOX_PROGRAMS_HOST_PATH", ""),
			ProgramsMountPath: getEnv("SANDBOX_PROGRAMS_MOUNT_PATH", "/programs"),
		},
		Series: SeriesDefaultsConfig{
			GroupCount:         getEnvInt("SERIES_GROUP_COUNT", 10),
			FinalistsPerGroup:  getEnvInt("SERIES_FINALISTS_PER_GROUP", 1),
			MaxParallelMatches: getEnvInt("SERIES_MAX_PARALLEL_MATCHES", 0),
			MoveTimeout:        getEnvDuration("SERIES_MOVE_TIMEOUT", 1*time.Second),
			MemoryLimitMB:      getEnvInt("SERIES_MEMORY_LIMIT_MB", 512),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvOrFile checks KEY first, then KEY_FILE for a path to a file
// holding the value, supporting Docker/Kubernetes secret mounts.
func getEnvOrFile(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	fileKey := key + "_FILE"
	if filePath := os.Getenv(fileKey); filePath != "" {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	return defaultValue
}
