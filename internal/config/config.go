// Package config loads lumina's settings from a file and the environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// Config is the full configuration. Priority: ENV > file > env-default tags.
type Config struct {
	Log     LogConfig     `yaml:"log" toml:"log" json:"log"`
	Reader  ReaderConfig  `yaml:"reader" toml:"reader" json:"reader"`
	Audio   AudioConfig   `yaml:"audio" toml:"audio" json:"audio"`
	Sync    SyncConfig    `yaml:"sync" toml:"sync" json:"sync"`
	Storage StorageConfig `yaml:"storage" toml:"storage" json:"storage"`
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level" json:"level" env:"LUMINA_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" toml:"format" json:"format" env:"LUMINA_LOG_FORMAT" env-default:"text"`
	// File receives log output; empty discards it while a terminal UI runs.
	File string `yaml:"file" toml:"file" json:"file" env:"LUMINA_LOG_FILE"`
}

type ReaderConfig struct {
	// ParagraphsPerPage overrides the saved preference when set.
	ParagraphsPerPage int  `yaml:"paragraphs_per_page" toml:"paragraphs_per_page" json:"paragraphs_per_page" env:"LUMINA_PARAGRAPHS_PER_PAGE"`
	Japanese          bool `yaml:"japanese" toml:"japanese" json:"japanese" env:"LUMINA_JAPANESE" env-default:"false"`
	// NeutralizeOnTurn marks new words of a page as known when moving past it.
	NeutralizeOnTurn bool `yaml:"neutralize_on_turn" toml:"neutralize_on_turn" json:"neutralize_on_turn" env:"LUMINA_NEUTRALIZE_ON_TURN" env-default:"true"`
}

type AudioConfig struct {
	// Duration is the track length in seconds when it is known up front.
	Duration    float64 `yaml:"duration" toml:"duration" json:"duration" env:"LUMINA_AUDIO_DURATION"`
	SkipSeconds float64 `yaml:"skip_seconds" toml:"skip_seconds" json:"skip_seconds" env:"LUMINA_SKIP_SECONDS" env-default:"10"`
	TickMillis  int     `yaml:"tick_ms" toml:"tick_ms" json:"tick_ms" env:"LUMINA_TICK_MS" env-default:"200"`
}

type SyncConfig struct {
	Rate float64 `yaml:"rate" toml:"rate" json:"rate" env:"LUMINA_SYNC_RATE" env-default:"2.5"`
	WPM  int     `yaml:"wpm" toml:"wpm" json:"wpm" env:"LUMINA_SYNC_WPM" env-default:"180"`
}

type StorageConfig struct {
	// Database is the vocabulary SQLite file; empty uses the state directory.
	Database string `yaml:"database" toml:"database" json:"database" env:"LUMINA_DATABASE"`
}

// DefaultPath returns XDG_CONFIG_HOME/lumina/config.toml or
// ~/.config/lumina/config.toml
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "lumina", "config.toml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "lumina", "config.toml")
}

// ResolvePath returns the file Load reads for path: path itself, else
// LUMINA_CONFIG, else DefaultPath. explicit is false for the default.
func ResolvePath(path string) (resolved string, explicit bool) {
	if path != "" {
		return path, true
	}
	if path = os.Getenv("LUMINA_CONFIG"); path != "" {
		return path, true
	}
	return DefaultPath(), false
}

// Load reads configuration from path and environment variables.
// An empty path uses LUMINA_CONFIG, then DefaultPath. A missing file is an
// error only when the path was given explicitly.
func Load(path string) (*Config, error) {
	var cfg Config

	path, explicit := ResolvePath(path)

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config: file %s: %w", path, err)
	} else {
		// No file, load from ENV + defaults only.
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config: read env: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if c.Reader.ParagraphsPerPage < 0 {
		errs = append(errs, fmt.Errorf("reader.paragraphs_per_page must not be negative"))
	}
	if c.Audio.Duration < 0 {
		errs = append(errs, fmt.Errorf("audio.duration must not be negative"))
	}
	if c.Audio.SkipSeconds <= 0 {
		errs = append(errs, fmt.Errorf("audio.skip_seconds must be positive"))
	}
	if c.Audio.TickMillis < 10 {
		errs = append(errs, fmt.Errorf("audio.tick_ms must be at least 10"))
	}
	if c.Sync.Rate < 0.1 || c.Sync.Rate > 4 {
		errs = append(errs, fmt.Errorf("sync.rate must be between 0.1 and 4, got %v", c.Sync.Rate))
	}
	if c.Sync.WPM <= 0 {
		errs = append(errs, fmt.Errorf("sync.wpm must be positive"))
	}
	return errors.Join(errs...)
}

// Save writes cfg to path in the format its extension names. TOML is used
// for unknown extensions.
func Save(cfg *Config, path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	case ".json":
		data, err = json.MarshalIndent(cfg, "", "  ")
	default:
		var b strings.Builder
		err = toml.NewEncoder(&b).Encode(cfg)
		data = []byte(b.String())
	}
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
