// Package config holds process-level settings: environment files, resolver
// service options and log levels.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Environment variables.
const (
	EnvSocket      = "LAMD_SOCKET"
	EnvUseServer   = "LAMD_USE_SERVER"
	EnvLogLevel    = "LAMD_LOG_LEVEL"
	EnvIdleTimeout = "LAMD_IDLE_TIMEOUT"
)

// Defaults for the resolver service.
const (
	DefaultIdleTimeout   = 10 * time.Minute
	DefaultClientTimeout = 2 * time.Second
	DefaultMaxConns      = 64
)

// Service configures the resolver service and its clients.
type Service struct {
	Socket        string
	IdleTimeout   time.Duration
	ClientTimeout time.Duration
	MaxConns      int
	UseServer     bool
}

// ServiceFromEnv returns defaults overridden by the environment.
func ServiceFromEnv() (Service, error) {
	s := Service{
		Socket:        DefaultSocketPath(),
		IdleTimeout:   DefaultIdleTimeout,
		ClientTimeout: DefaultClientTimeout,
		MaxConns:      DefaultMaxConns,
	}
	if v := os.Getenv(EnvUseServer); v != "" {
		on, err := ParseBool(v)
		if err != nil {
			return s, fmt.Errorf("%s: %w", EnvUseServer, err)
		}
		s.UseServer = on
	}
	if v := os.Getenv(EnvIdleTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return s, fmt.Errorf("%s: %w", EnvIdleTimeout, err)
		}
		s.IdleTimeout = d
	}
	return s, nil
}

// DefaultSocketPath is $LAMD_SOCKET, else a per-user socket under
// $XDG_RUNTIME_DIR, else one in the temp directory.
func DefaultSocketPath() string {
	if p := os.Getenv(EnvSocket); p != "" {
		return p
	}
	if rt := os.Getenv("XDG_RUNTIME_DIR"); rt != "" {
		return filepath.Join(rt, "lamd", "resolver.sock")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("lamd-%d.sock", os.Getuid()))
}

// ParseBool accepts the usual spellings plus yes/no and on/off.
func ParseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off", "":
		return false, nil
	}
	return strconv.ParseBool(v)
}

var logLevels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// LogLevel returns the level for verbose or $LAMD_LOG_LEVEL, defaulting to warn
// so command output on stdout is not accompanied by chatter.
func LogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	if l, ok := logLevels[strings.ToLower(strings.TrimSpace(os.Getenv(EnvLogLevel)))]; ok {
		return l
	}
	return slog.LevelWarn
}
