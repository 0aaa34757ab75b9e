package config

import (
	"flag"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port         int
	DataDir      string
	DockerBin    string     // engine CLI binary (docker, podman, or a path)
	ScannersFile string     // optional YAML file with scanner definitions
	Dev          bool
	LogLevel     slog.Level // Parsed log level (debug, info, warn, error)
	NoAuth       bool       // Skip authentication (all endpoints open)
}

func Parse() *Config {
	cfg := &Config{}

	var logLevel string
	flag.IntVar(&cfg.Port, "port", 5002, "HTTP server port")
	flag.StringVar(&cfg.DataDir, "data-dir", "./data", "Path to data directory (bbolt DB)")
	flag.StringVar(&cfg.DockerBin, "docker-bin", "docker", "Container engine CLI binary")
	flag.StringVar(&cfg.ScannersFile, "scanners-file", "", "YAML file with cache scanner definitions")
	flag.BoolVar(&cfg.Dev, "dev", false, "Development mode (seed admin user, verbose errors)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&cfg.NoAuth, "no-auth", false, "Disable authentication (all endpoints open)")
	flag.Parse()

	// Env vars override flags (if set)
	if v := os.Getenv("CACHEWISE_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("CACHEWISE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("CACHEWISE_DOCKER_BIN"); v != "" {
		cfg.DockerBin = v
	}
	if v := os.Getenv("CACHEWISE_SCANNERS_FILE"); v != "" {
		cfg.ScannersFile = v
	}
	if v := os.Getenv("CACHEWISE_LOG_LEVEL"); v != "" {
		logLevel = v
	}
	if v := os.Getenv("CACHEWISE_NO_AUTH"); v == "1" || v == "true" {
		cfg.NoAuth = true
	}

	cfg.LogLevel = parseLogLevel(logLevel)

	return cfg
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
