package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultListenAddr = ":8080"
	defaultGstLaunch  = "gst-launch-1.0"
	defaultStopGrace  = 5 * time.Second
	defaultMaxStreams = 64

	envListenAddr    = "PIPEBENCH_LISTEN_ADDR"
	envLogLevel      = "PIPEBENCH_LOG_LEVEL"
	envPipelinesFile = "PIPEBENCH_PIPELINES_FILE"
	envGstLaunch     = "PIPEBENCH_GST_LAUNCH"
	envStopGrace     = "PIPEBENCH_STOP_GRACE"
	envMaxStreams    = "PIPEBENCH_DENSITY_MAX_STREAMS"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	LogLevel   slog.Level

	// PipelinesFile is a YAML pipeline catalog. Empty selects the built-in one.
	PipelinesFile string
	GstLaunch     string

	// StopGrace bounds how long a stopped pipeline may drain before it is killed.
	StopGrace time.Duration

	// DensityMaxStreams caps the stream count a density sweep will try.
	DensityMaxStreams int
}

// Load reads configuration from environment variables with sensible defaults.
// Malformed numeric or duration values are reported rather than ignored.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:        defaultListenAddr,
		LogLevel:          slog.LevelInfo,
		GstLaunch:         defaultGstLaunch,
		StopGrace:         defaultStopGrace,
		DensityMaxStreams: defaultMaxStreams,
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	cfg.PipelinesFile = os.Getenv(envPipelinesFile)
	if v := os.Getenv(envGstLaunch); v != "" {
		cfg.GstLaunch = v
	}
	if v := os.Getenv(envStopGrace); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("%s: invalid duration %q", envStopGrace, v)
		}
		cfg.StopGrace = d
	}
	if v := os.Getenv(envMaxStreams); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("%s: must be a positive integer, got %q", envMaxStreams, v)
		}
		cfg.DensityMaxStreams = n
	}

	return cfg, nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
