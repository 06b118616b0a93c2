package mal

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds settings shared by the REPL, the server and the bridges.
type Config struct {
	Prompt    string `yaml:"prompt"`
	MaxDepth  int    `yaml:"max_depth"`
	MaxTraces int    `yaml:"max_traces"`
	DB        string `yaml:"db"`
	Socket    string `yaml:"socket"`
	History   string `yaml:"history"`
}

func DefaultConfig() Config {
	return Config{
		Prompt:    "user> ",
		MaxDepth:  DefaultMaxDepth,
		MaxTraces: 1000,
		Socket:    "/tmp/mal.sock",
	}
}

// LoadConfig reads the YAML file at path over the defaults, then applies
// MAL_* environment overrides. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeConfig(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeConfig(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("MAL_PROMPT"); v != "" {
		c.Prompt = v
	}
	if v := getenv("MAL_DB"); v != "" {
		c.DB = v
	}
	if v := getenv("MAL_SOCK"); v != "" {
		c.Socket = v
	}
	if v := getenv("MAL_HISTORY"); v != "" {
		c.History = v
	}
	for _, iv := range []struct {
		key string
		dst *int
	}{
		{"MAL_MAX_DEPTH", &c.MaxDepth},
		{"MAL_MAX_TRACES", &c.MaxTraces},
	} {
		v := getenv(iv.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s must be an integer, got %q", iv.key, v)
		}
		*iv.dst = n
	}
	return nil
}

func (c Config) Validate() error {
	if c.MaxDepth < 0 {
		return fmt.Errorf("config: max_depth must be >= 0, got %d", c.MaxDepth)
	}
	if c.MaxTraces < 0 {
		return fmt.Errorf("config: max_traces must be >= 0, got %d", c.MaxTraces)
	}
	if c.Socket == "" {
		return fmt.Errorf("config: socket must not be empty")
	}
	return nil
}

// SessionOptions derives session settings. max_depth 0 in a config means
// unlimited.
func (c Config) SessionOptions(store Store) SessionOptions {
	depth := c.MaxDepth
	if depth == 0 {
		depth = -1
	}
	return SessionOptions{MaxDepth: depth, MaxTraces: c.MaxTraces, Store: store}
}

// OpenStore opens the configured store, or returns nil when db is unset.
func (c Config) OpenStore() (Store, error) {
	if c.DB == "" {
		return nil, nil
	}
	store, err := OpenSQLiteStore(c.DB)
	if err != nil {
		return nil, err
	}
	return store, nil
}
