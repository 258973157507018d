// Package config loads the spritegrid settings. Values come from defaults,
// then an optional YAML file, then SPRITEGRID_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DataDir     string `yaml:"data_dir" env:"SPRITEGRID_DATA_DIR"`
	DBPath      string `yaml:"db_path" env:"SPRITEGRID_DB_PATH"`
	DocumentKey string `yaml:"document_key" env:"SPRITEGRID_DOCUMENT_KEY"`
	AppName     string `yaml:"app_name" env:"SPRITEGRID_APP_NAME"`
	InputDir    string `yaml:"input_dir" env:"SPRITEGRID_INPUT_DIR"`

	Background string `yaml:"background" env:"SPRITEGRID_BACKGROUND"` // empty samples the sheet
	Tolerance  int    `yaml:"tolerance" env:"SPRITEGRID_TOLERANCE"`
	MinWidth   int    `yaml:"min_width" env:"SPRITEGRID_MIN_WIDTH"`
	MinHeight  int    `yaml:"min_height" env:"SPRITEGRID_MIN_HEIGHT"`
	Detector   string `yaml:"detector" env:"SPRITEGRID_DETECTOR"`
	Grouping   string `yaml:"grouping" env:"SPRITEGRID_GROUPING"`

	ClassifierURL         string        `yaml:"classifier_url" env:"SPRITEGRID_CLASSIFIER_URL"`
	ClassifierModel       string        `yaml:"classifier_model" env:"SPRITEGRID_CLASSIFIER_MODEL"`
	ClassifierTimeout     time.Duration `yaml:"classifier_timeout" env:"SPRITEGRID_CLASSIFIER_TIMEOUT"`
	ClassifierConcurrency int           `yaml:"classifier_concurrency" env:"SPRITEGRID_CLASSIFIER_CONCURRENCY"`

	PreviewFPS     int    `yaml:"preview_fps" env:"SPRITEGRID_PREVIEW_FPS"`
	EntityFPS      int    `yaml:"entity_fps" env:"SPRITEGRID_ENTITY_FPS"`
	Scale          string `yaml:"scale" env:"SPRITEGRID_SCALE"`
	SheetCacheSize int    `yaml:"sheet_cache_size" env:"SPRITEGRID_SHEET_CACHE_SIZE"`

	ShowStats    bool   `yaml:"show_stats" env:"SPRITEGRID_STATS"`
	LogLevel     string `yaml:"log_level" env:"SPRITEGRID_LOG_LEVEL"`
	BuildVersion string `yaml:"-"`
}

const (
	DefaultAppName     = "spritegrid"
	DefaultDocumentKey = "advancedGameConfig"
)

// DefaultConfig returns the built-in settings rooted at the XDG data home.
func DefaultConfig() Config {
	dataDir := filepath.Join(xdg.DataHome, DefaultAppName)
	return Config{
		DataDir:               dataDir,
		DBPath:                filepath.Join(dataDir, "sheets.db"),
		DocumentKey:           DefaultDocumentKey,
		AppName:               DefaultAppName,
		InputDir:              ".",
		Tolerance:             30,
		MinWidth:              20,
		MinHeight:             20,
		Detector:              "avni",
		Grouping:              "none",
		ClassifierURL:         "http://localhost:11434",
		ClassifierTimeout:     60 * time.Second,
		ClassifierConcurrency: 4,
		PreviewFPS:            12,
		EntityFPS:             5,
		Scale:                 "1",
		SheetCacheSize:        16,
		LogLevel:              "info",
		BuildVersion:          "dev",
	}
}

// Load reads path over the defaults and then applies the environment. A
// missing file is not an error; an empty path skips the file step.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	cfg.Normalize()
	return cfg, nil
}

// ApplyEnv overrides fields whose SPRITEGRID_* variable is set.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Normalize clamps out-of-range values back to something usable and derives
// DBPath from DataDir when only the latter was given.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "sheets.db")
	}
	if c.DocumentKey == "" {
		c.DocumentKey = def.DocumentKey
	}
	if c.AppName == "" {
		c.AppName = def.AppName
	}
	if c.Tolerance < 0 {
		c.Tolerance = 0
	}
	if c.Tolerance > 255 {
		c.Tolerance = 255
	}
	if c.MinWidth < 1 {
		c.MinWidth = 1
	}
	if c.MinHeight < 1 {
		c.MinHeight = 1
	}
	if c.ClassifierTimeout <= 0 {
		c.ClassifierTimeout = def.ClassifierTimeout
	}
	if c.ClassifierConcurrency < 1 {
		c.ClassifierConcurrency = 1
	}
	if c.PreviewFPS < 1 {
		c.PreviewFPS = def.PreviewFPS
	}
	if c.EntityFPS < 1 {
		c.EntityFPS = def.EntityFPS
	}
	if c.Scale == "" {
		c.Scale = def.Scale
	}
	if c.SheetCacheSize < 1 {
		c.SheetCacheSize = 1
	}
}

// Save writes cfg as YAML, creating parent directories.
func Save(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
