// Package config resolves runtime settings by layering defaults, an
// optional properties file, and environment variables.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config captures all runtime settings for the sensorquest binary.
type Config struct {
	// ListenAddress defines the TCP address used by the diagnostics HTTP
	// server.
	ListenAddress string
	// LogFilePath is the path to the append-only log file.
	LogFilePath string
	// Scenario selects the simulated device profile.
	Scenario string
	// MicWindowSize is the audio analysis buffer length requested at
	// microphone acquisition.
	MicWindowSize int
	// HTTPReadTimeout bounds the time to read incoming requests.
	HTTPReadTimeout time.Duration
	// HTTPWriteTimeout bounds the time to write responses.
	HTTPWriteTimeout time.Duration
	// ShutdownTimeout limits graceful shutdown attempts.
	ShutdownTimeout time.Duration
	// PropertiesPath records the path used to load property values.
	PropertiesPath string
}

const (
	defaultListenAddress = ":8094"
	defaultLogFile       = "logs/sensorquest.log"
	defaultScenario      = "calm"
	defaultMicWindow     = 1024
	defaultReadTimeout   = 5 * time.Second
	defaultWriteTimeout  = 60 * time.Second
	defaultShutdown      = 5 * time.Second
	defaultPropsPath     = "sensorquest.properties"
)

// Load resolves configuration by layering defaults, an optional properties
// file, and finally environment variables. The properties file location can
// be overridden with SENSORQUEST_PROPERTIES_PATH.
func Load() (Config, error) {
	cfg := Config{
		ListenAddress:    defaultListenAddress,
		LogFilePath:      filepath.Clean(defaultLogFile),
		Scenario:         defaultScenario,
		MicWindowSize:    defaultMicWindow,
		HTTPReadTimeout:  defaultReadTimeout,
		HTTPWriteTimeout: defaultWriteTimeout,
		ShutdownTimeout:  defaultShutdown,
	}

	propsPath := strings.TrimSpace(os.Getenv("SENSORQUEST_PROPERTIES_PATH"))
	if propsPath == "" {
		propsPath = defaultPropsPath
	}
	cfg.PropertiesPath = propsPath

	if err := applyProperties(&cfg, propsPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func applyProperties(cfg *Config, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") || strings.HasPrefix(raw, ";") {
			continue
		}
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid properties entry on line %d", line)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if err := setProperty(cfg, key, value); err != nil {
			return fmt.Errorf("property %s: %w", key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read properties: %w", err)
	}
	return nil
}

func setProperty(cfg *Config, key, value string) error {
	switch key {
	case "listen_address":
		if value == "" {
			return errors.New("listen_address cannot be empty")
		}
		cfg.ListenAddress = value
	case "log_path":
		if value == "" {
			return errors.New("log_path cannot be empty")
		}
		cfg.LogFilePath = filepath.Clean(value)
	case "scenario":
		if value == "" {
			return errors.New("scenario cannot be empty")
		}
		cfg.Scenario = value
	case "mic_window_size":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid mic_window_size: %w", err)
		}
		if n <= 0 {
			return errors.New("mic_window_size must be positive")
		}
		cfg.MicWindowSize = n
	case "http_read_timeout_ms":
		d, err := parsePositiveMillis(value)
		if err != nil {
			return err
		}
		cfg.HTTPReadTimeout = d
	case "http_write_timeout_ms":
		d, err := parsePositiveMillis(value)
		if err != nil {
			return err
		}
		cfg.HTTPWriteTimeout = d
	case "shutdown_timeout_ms":
		d, err := parsePositiveMillis(value)
		if err != nil {
			return err
		}
		cfg.ShutdownTimeout = d
	default:
		// Unknown keys are ignored to keep the loader forward-compatible.
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v, ok := lookupEnvTrimmed("SENSORQUEST_LISTEN_ADDRESS"); ok {
		if v == "" {
			return errors.New("SENSORQUEST_LISTEN_ADDRESS cannot be empty")
		}
		cfg.ListenAddress = v
	}
	if v, ok := lookupEnvTrimmed("SENSORQUEST_LOG_PATH"); ok {
		if v == "" {
			return errors.New("SENSORQUEST_LOG_PATH cannot be empty")
		}
		cfg.LogFilePath = filepath.Clean(v)
	}
	if v, ok := lookupEnvTrimmed("SENSORQUEST_SCENARIO"); ok {
		if v == "" {
			return errors.New("SENSORQUEST_SCENARIO cannot be empty")
		}
		cfg.Scenario = v
	}
	if v, ok := lookupEnvTrimmed("SENSORQUEST_MIC_WINDOW_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SENSORQUEST_MIC_WINDOW_SIZE: %w", err)
		}
		if n <= 0 {
			return errors.New("SENSORQUEST_MIC_WINDOW_SIZE must be positive")
		}
		cfg.MicWindowSize = n
	}
	if v, ok := lookupEnvTrimmed("SENSORQUEST_HTTP_READ_TIMEOUT_MS"); ok {
		d, err := parsePositiveMillis(v)
		if err != nil {
			return fmt.Errorf("SENSORQUEST_HTTP_READ_TIMEOUT_MS: %w", err)
		}
		cfg.HTTPReadTimeout = d
	}
	if v, ok := lookupEnvTrimmed("SENSORQUEST_HTTP_WRITE_TIMEOUT_MS"); ok {
		d, err := parsePositiveMillis(v)
		if err != nil {
			return fmt.Errorf("SENSORQUEST_HTTP_WRITE_TIMEOUT_MS: %w", err)
		}
		cfg.HTTPWriteTimeout = d
	}
	if v, ok := lookupEnvTrimmed("SENSORQUEST_SHUTDOWN_TIMEOUT_MS"); ok {
		d, err := parsePositiveMillis(v)
		if err != nil {
			return fmt.Errorf("SENSORQUEST_SHUTDOWN_TIMEOUT_MS: %w", err)
		}
		cfg.ShutdownTimeout = d
	}
	return nil
}

func lookupEnvTrimmed(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func parsePositiveMillis(v string) (time.Duration, error) {
	if strings.TrimSpace(v) == "" {
		return 0, errors.New("value cannot be empty")
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %w", err)
	}
	if ms <= 0 {
		return 0, errors.New("value must be greater than zero")
	}
	return time.Duration(ms) * time.Millisecond, nil
}
