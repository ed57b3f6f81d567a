package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
)

// Config holds the client's settings.
type Config struct {
	APIURL         string
	LogDir         string
	DataDir        string
	DownloadDir    string
	PollInterval   time.Duration
	RequestTimeout time.Duration
	LogLevel       zerolog.Level
}

const (
	defaultConfigPath     = "~/.config/recast/config.toml"
	defaultAPIURL         = "http://127.0.0.1:8000/api/v1"
	defaultLogDir         = "~/.local/share/recast/logs"
	defaultDataDir        = "~/.local/share/recast"
	defaultDownloadDir    = "~/Downloads"
	defaultPollSeconds    = 10
	defaultTimeoutSeconds = 30
)

// DotenvPath is the optional .env file consulted for RECAST_* overrides.
var DotenvPath = ".env"

// Load locates and parses the config, falling back to defaults when missing.
// Values from DotenvPath and then the process environment override the file.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	var raw struct {
		APIURL                string `toml:"api_url"`
		LogDir                string `toml:"log_dir"`
		DataDir               string `toml:"data_dir"`
		DownloadDir           string `toml:"download_dir"`
		PollSeconds           int    `toml:"poll_seconds"`
		RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
		LogLevel              string `toml:"log_level"`
	}

	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("open config: %w", err)
	default:
		defer file.Close()
		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	env, err := environment()
	if err != nil {
		return Config{}, err
	}
	override := func(key string, dst *string) {
		if v := strings.TrimSpace(env[key]); v != "" {
			*dst = v
		}
	}
	override("RECAST_API_URL", &raw.APIURL)
	override("RECAST_LOG_DIR", &raw.LogDir)
	override("RECAST_DATA_DIR", &raw.DataDir)
	override("RECAST_DOWNLOAD_DIR", &raw.DownloadDir)
	override("RECAST_LOG_LEVEL", &raw.LogLevel)
	if v := strings.TrimSpace(env["RECAST_POLL_SECONDS"]); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse RECAST_POLL_SECONDS: %w", err)
		}
		raw.PollSeconds = n
	}

	cfg := Config{
		APIURL:      strings.TrimRight(orDefault(raw.APIURL, defaultAPIURL), "/"),
		LogDir:      mustExpand(orDefault(raw.LogDir, defaultLogDir)),
		DataDir:     mustExpand(orDefault(raw.DataDir, defaultDataDir)),
		DownloadDir: mustExpand(orDefault(raw.DownloadDir, defaultDownloadDir)),
	}

	switch {
	case raw.PollSeconds == 0:
		cfg.PollInterval = defaultPollSeconds * time.Second
	case raw.PollSeconds < 0:
		return Config{}, fmt.Errorf("poll_seconds must be positive, got %d", raw.PollSeconds)
	default:
		cfg.PollInterval = time.Duration(raw.PollSeconds) * time.Second
	}
	switch {
	case raw.RequestTimeoutSeconds == 0:
		cfg.RequestTimeout = defaultTimeoutSeconds * time.Second
	case raw.RequestTimeoutSeconds < 0:
		return Config{}, fmt.Errorf("request_timeout_seconds must be positive, got %d", raw.RequestTimeoutSeconds)
	default:
		cfg.RequestTimeout = time.Duration(raw.RequestTimeoutSeconds) * time.Second
	}

	cfg.LogLevel = zerolog.InfoLevel
	if level := strings.TrimSpace(raw.LogLevel); level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return Config{}, fmt.Errorf("parse log level: %w", err)
		}
		cfg.LogLevel = parsed
	}

	return cfg, nil
}

// LogPath returns the client's log file.
func (c Config) LogPath() string {
	if strings.TrimSpace(c.LogDir) == "" {
		return mustExpand(defaultLogDir + "/recast.log")
	}
	return filepath.Join(c.LogDir, "recast.log")
}

// SessionDBPath returns the SQLite file holding the persisted session.
func (c Config) SessionDBPath() string {
	if strings.TrimSpace(c.DataDir) == "" {
		return mustExpand(defaultDataDir + "/session.db")
	}
	return filepath.Join(c.DataDir, "session.db")
}

// environment merges DotenvPath with the process environment, which wins.
func environment() (map[string]string, error) {
	env := map[string]string{}
	if DotenvPath != "" {
		values, err := godotenv.Read(DotenvPath)
		switch {
		case err == nil:
			env = values
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read %s: %w", DotenvPath, err)
		}
	}
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(key, "RECAST_") {
			env[key] = value
		}
	}
	return env, nil
}

func orDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
