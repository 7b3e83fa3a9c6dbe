// Package config loads kbsearch configuration from defaults, the user config
// file, a project file and KBSEARCH_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// RegistryFileName is the file name of the knowledge base registry.
const RegistryFileName = "knowledge-bases.yaml"

// DefaultExtensions are the file extensions indexed when a knowledge base
// does not override them.
var DefaultExtensions = []string{
	".md", ".markdown", ".txt", ".rst",
	".html", ".htm",
	".csv", ".json", ".xml", ".yaml", ".yml",
}

// Config represents the complete kbsearch configuration.
type Config struct {
	Version int `yaml:"version" json:"version"`

	// RegistryPath is the knowledge base registry file.
	RegistryPath string `yaml:"registry_path" json:"registry_path"`

	// DataDir holds the persisted indexes (<data_dir>/indexes/<name>/).
	DataDir string `yaml:"data_dir" json:"data_dir"`

	BM25      BM25Config      `yaml:"bm25" json:"bm25"`
	Indexer   IndexerConfig   `yaml:"indexer" json:"indexer"`
	Tokenizer TokenizerConfig `yaml:"tokenizer" json:"tokenizer"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Engine    EngineConfig    `yaml:"engine" json:"engine"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// BM25Config holds the Okapi BM25 parameters.
type BM25Config struct {
	// K1 controls term frequency saturation.
	K1 float64 `yaml:"k1" json:"k1"`
	// B controls document length normalization (0 disables it).
	B float64 `yaml:"b" json:"b"`
}

// IndexerConfig configures index builds.
type IndexerConfig struct {
	// Workers is the number of extraction workers (0 = NumCPU).
	Workers int `yaml:"workers" json:"workers"`
	// MaxFileSize skips files larger than this many bytes.
	MaxFileSize int64 `yaml:"max_file_size" json:"max_file_size"`
	// Extensions is the default indexed extension list.
	Extensions []string `yaml:"extensions" json:"extensions"`
	// Exclude holds doublestar patterns relative to the knowledge base root.
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// TokenizerConfig configures the analysis chain.
type TokenizerConfig struct {
	// UserDict is an optional CJK dictionary file ("word [freq]" per line).
	UserDict string `yaml:"user_dict" json:"user_dict"`
	// MinTokenLength drops shorter non-CJK tokens.
	MinTokenLength int `yaml:"min_token_length" json:"min_token_length"`
}

// SearchConfig configures query defaults.
type SearchConfig struct {
	DefaultLimit int     `yaml:"default_limit" json:"default_limit"`
	SnippetWidth int     `yaml:"snippet_width" json:"snippet_width"`
	Threshold    float64 `yaml:"threshold" json:"threshold"`
}

// EngineConfig configures the in-process engine.
type EngineConfig struct {
	// MaxOpenIndexes bounds the number of loaded index snapshots.
	MaxOpenIndexes int `yaml:"max_open_indexes" json:"max_open_indexes"`
}

// LoggingConfig configures the log file.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Version:      1,
		RegistryPath: filepath.Join(GetUserConfigDir(), RegistryFileName),
		DataDir:      defaultDataDir(),
		BM25: BM25Config{
			K1: 1.5,
			B:  0.75,
		},
		Indexer: IndexerConfig{
			Workers:     0,
			MaxFileSize: 10 * 1024 * 1024,
			Extensions:  append([]string(nil), DefaultExtensions...),
			Exclude:     []string{},
		},
		Tokenizer: TokenizerConfig{
			MinTokenLength: 2,
		},
		Search: SearchConfig{
			DefaultLimit: 10,
			SnippetWidth: 200,
			Threshold:    0,
		},
		Engine: EngineConfig{
			MaxOpenIndexes: 16,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// defaultDataDir returns ~/.kbsearch, falling back to the temp directory.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".kbsearch")
	}
	return filepath.Join(home, ".kbsearch")
}

// GetUserConfigPath returns the path to the user configuration file:
//   - $XDG_CONFIG_HOME/kbsearch/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/kbsearch/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "kbsearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "kbsearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "kbsearch", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// Load loads configuration for the working directory dir.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/kbsearch/config.yaml)
//  3. Project config (.kbsearch.yaml in dir)
//  4. A knowledge-bases.yaml in dir, if present, becomes the registry
//  5. Environment variables (KBSEARCH_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	userPath := GetUserConfigPath()
	if fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	if local := filepath.Join(dir, RegistryFileName); dir != "" && fileExists(local) {
		cfg.RegistryPath = local
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads .kbsearch.yaml (or .kbsearch.yml) from dir when present.
func (c *Config) loadFromFile(dir string) error {
	if dir == "" {
		return nil
	}
	for _, name := range []string{".kbsearch.yaml", ".kbsearch.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
	}
	return nil
}

// loadYAML parses path and merges its non-zero values into c.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.RegistryPath != "" {
		c.RegistryPath = expandHome(other.RegistryPath)
	}
	if other.DataDir != "" {
		c.DataDir = expandHome(other.DataDir)
	}

	if other.BM25.K1 != 0 {
		c.BM25.K1 = other.BM25.K1
	}
	if other.BM25.B != 0 {
		c.BM25.B = other.BM25.B
	}

	if other.Indexer.Workers != 0 {
		c.Indexer.Workers = other.Indexer.Workers
	}
	if other.Indexer.MaxFileSize != 0 {
		c.Indexer.MaxFileSize = other.Indexer.MaxFileSize
	}
	if len(other.Indexer.Extensions) > 0 {
		c.Indexer.Extensions = other.Indexer.Extensions
	}
	if len(other.Indexer.Exclude) > 0 {
		// Excludes accumulate across layers.
		c.Indexer.Exclude = append(c.Indexer.Exclude, other.Indexer.Exclude...)
	}

	if other.Tokenizer.UserDict != "" {
		c.Tokenizer.UserDict = expandHome(other.Tokenizer.UserDict)
	}
	if other.Tokenizer.MinTokenLength != 0 {
		c.Tokenizer.MinTokenLength = other.Tokenizer.MinTokenLength
	}

	if other.Search.DefaultLimit != 0 {
		c.Search.DefaultLimit = other.Search.DefaultLimit
	}
	if other.Search.SnippetWidth != 0 {
		c.Search.SnippetWidth = other.Search.SnippetWidth
	}
	if other.Search.Threshold != 0 {
		c.Search.Threshold = other.Search.Threshold
	}

	if other.Engine.MaxOpenIndexes != 0 {
		c.Engine.MaxOpenIndexes = other.Engine.MaxOpenIndexes
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.File != "" {
		c.Logging.File = expandHome(other.Logging.File)
	}
}

// applyEnvOverrides applies KBSEARCH_* environment variable overrides.
// Malformed numeric values are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("KBSEARCH_REGISTRY"); v != "" {
		c.RegistryPath = expandHome(v)
	}
	if v := os.Getenv("KBSEARCH_DATA_DIR"); v != "" {
		c.DataDir = expandHome(v)
	}
	// BM25 b may legitimately be zero, so env overrides accept it.
	if v := os.Getenv("KBSEARCH_BM25_K1"); v != "" {
		if f, err := parseFloat64(v); err == nil && f >= 0 {
			c.BM25.K1 = f
		}
	}
	if v := os.Getenv("KBSEARCH_BM25_B"); v != "" {
		if f, err := parseFloat64(v); err == nil && f >= 0 && f <= 1 {
			c.BM25.B = f
		}
	}
	if v := os.Getenv("KBSEARCH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Indexer.Workers = n
		}
	}
	if v := os.Getenv("KBSEARCH_USER_DICT"); v != "" {
		c.Tokenizer.UserDict = expandHome(v)
	}
	if v := os.Getenv("KBSEARCH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.RegistryPath == "" {
		return fmt.Errorf("registry_path must not be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.BM25.K1 < 0 {
		return fmt.Errorf("bm25.k1 must be non-negative, got %f", c.BM25.K1)
	}
	if c.BM25.B < 0 || c.BM25.B > 1 {
		return fmt.Errorf("bm25.b must be between 0 and 1, got %f", c.BM25.B)
	}
	if c.Indexer.Workers < 0 {
		return fmt.Errorf("indexer.workers must be non-negative, got %d", c.Indexer.Workers)
	}
	if c.Indexer.MaxFileSize < 0 {
		return fmt.Errorf("indexer.max_file_size must be non-negative, got %d", c.Indexer.MaxFileSize)
	}
	for _, ext := range c.Indexer.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("indexer.extensions entries must start with '.', got %q", ext)
		}
	}
	if c.Tokenizer.MinTokenLength < 1 {
		return fmt.Errorf("tokenizer.min_token_length must be at least 1, got %d", c.Tokenizer.MinTokenLength)
	}
	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("search.default_limit must be positive, got %d", c.Search.DefaultLimit)
	}
	if c.Search.SnippetWidth <= 0 {
		return fmt.Errorf("search.snippet_width must be positive, got %d", c.Search.SnippetWidth)
	}
	if c.Search.Threshold < 0 {
		return fmt.Errorf("search.threshold must be non-negative, got %f", c.Search.Threshold)
	}
	if c.Engine.MaxOpenIndexes <= 0 {
		return fmt.Errorf("engine.max_open_indexes must be positive, got %d", c.Engine.MaxOpenIndexes)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	return nil
}

// IndexDir returns the directory holding the persisted index of a knowledge base.
func (c *Config) IndexDir(name string) string {
	return filepath.Join(c.DataDir, "indexes", name)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// parseFloat64 parses a string to float64, used for config parsing.
func parseFloat64(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &f)
	return f, err
}

// expandHome replaces a leading ~/ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
