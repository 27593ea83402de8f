// ABOUTME: Client configuration loaded in layers: defaults, an optional YAML file, then TICKERTAPE_* variables.
// ABOUTME: Validation returns sentinel errors so the CLI can report a precise cause.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/2389-research/tickertape/stream"
)

var (
	ErrMissingEndpoint = errors.New("no orchestrator endpoint configured; set TICKERTAPE_ENDPOINT or endpoint in config.yaml")
	ErrInvalidEndpoint = errors.New("orchestrator endpoint must be an absolute http or https URL")
	ErrInvalidLineCap  = errors.New("max_line_bytes must be positive")
	ErrInvalidTimeout  = errors.New("connect_timeout must be positive")
)

// Config is everything the CLI needs to run sessions.
type Config struct {
	Endpoint       string         `yaml:"endpoint"`        // TICKERTAPE_ENDPOINT
	StreamPath     string         `yaml:"stream_path"`     // TICKERTAPE_STREAM_PATH
	AuthToken      string         `yaml:"auth_token"`      // TICKERTAPE_AUTH_TOKEN
	ConnectTimeout time.Duration  `yaml:"connect_timeout"` // TICKERTAPE_CONNECT_TIMEOUT
	MaxLineBytes   int            `yaml:"max_line_bytes"`  // TICKERTAPE_MAX_LINE_BYTES
	DataDir        string         `yaml:"data_dir"`        // TICKERTAPE_HOME
	History        bool           `yaml:"history"`         // TICKERTAPE_HISTORY
	MetricsAddr    string         `yaml:"metrics_addr"`    // TICKERTAPE_METRICS_ADDR
	Extra          map[string]any `yaml:"extra"`
	Replay         ReplayConfig   `yaml:"replay"`
}

// ReplayConfig configures the mock orchestrator.
type ReplayConfig struct {
	Addr      string        `yaml:"addr"`       // TICKERTAPE_REPLAY_ADDR
	Delay     time.Duration `yaml:"delay"`      // TICKERTAPE_REPLAY_DELAY
	ChunkSize int           `yaml:"chunk_size"` // TICKERTAPE_REPLAY_CHUNK
}

// Default returns the built-in configuration.
func Default() *Config {
	dataDir, err := DefaultDataDir()
	if err != nil {
		dataDir = filepath.Join(os.TempDir(), "tickertape")
	}
	return &Config{
		Endpoint:       "http://127.0.0.1:8000",
		StreamPath:     "/api/stream",
		ConnectTimeout: 10 * time.Second,
		MaxLineBytes:   stream.DefaultMaxLineBytes,
		DataDir:        dataDir,
		History:        true,
		Replay: ReplayConfig{
			Addr:  "127.0.0.1:2390",
			Delay: 150 * time.Millisecond,
		},
	}
}

// Load builds a Config. An explicit path must exist; with an empty path the
// default config.yaml is read when present.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if dir, err := DefaultConfigDir(); err == nil {
			path = filepath.Join(dir, "config.yaml")
		}
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		}
	}

	if err := cfg.mergeEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	if v := nonEmptyEnv("TICKERTAPE_ENDPOINT"); v != "" {
		c.Endpoint = v
	}
	if v := nonEmptyEnv("TICKERTAPE_STREAM_PATH"); v != "" {
		c.StreamPath = v
	}
	if v := nonEmptyEnv("TICKERTAPE_AUTH_TOKEN"); v != "" {
		c.AuthToken = v
	}
	if v := nonEmptyEnv("TICKERTAPE_HOME"); v != "" {
		c.DataDir = v
	}
	if v := nonEmptyEnv("TICKERTAPE_METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := nonEmptyEnv("TICKERTAPE_REPLAY_ADDR"); v != "" {
		c.Replay.Addr = v
	}
	if v := nonEmptyEnv("TICKERTAPE_HISTORY"); v != "" {
		c.History = parseBool(v)
	}

	var err error
	if c.ConnectTimeout, err = envDuration("TICKERTAPE_CONNECT_TIMEOUT", c.ConnectTimeout); err != nil {
		return err
	}
	if c.Replay.Delay, err = envDuration("TICKERTAPE_REPLAY_DELAY", c.Replay.Delay); err != nil {
		return err
	}
	if c.MaxLineBytes, err = envInt("TICKERTAPE_MAX_LINE_BYTES", c.MaxLineBytes); err != nil {
		return err
	}
	if c.Replay.ChunkSize, err = envInt("TICKERTAPE_REPLAY_CHUNK", c.Replay.ChunkSize); err != nil {
		return err
	}
	return nil
}

// Validate checks the fields every run depends on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return ErrMissingEndpoint
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidEndpoint, c.Endpoint)
	}
	if c.MaxLineBytes <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLineCap, c.MaxLineBytes)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, c.ConnectTimeout)
	}
	return nil
}

// HistoryDBPath is the SQLite index location inside DataDir.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// TraceDir is the JSONL archive directory inside DataDir.
func (c *Config) TraceDir() string {
	return filepath.Join(c.DataDir, "traces")
}

func nonEmptyEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := nonEmptyEnv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func envInt(key string, def int) (int, error) {
	v := nonEmptyEnv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
