package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the translation engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"4810"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Translation subsystem configuration
	Translation TranslationConfig `yaml:"translation"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"stamps"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"stamps_translation"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// TranslationConfig holds translation-pipeline settings.
type TranslationConfig struct {
	// Enabled toggles the whole subsystem per build environment.
	Enabled bool `yaml:"enabled" env:"TRANSLATION_ENABLED" env-default:"true"`

	// WatchDirsStr is a comma-separated list of watched content directories.
	WatchDirsStr string `yaml:"watch_dirs" env:"TRANSLATION_WATCH_DIRS" env-default:"docs"`

	// WatchDirs is the parsed list from WatchDirsStr (not from config file).
	WatchDirs []string `yaml:"-"`

	// SourceLanguage is the canonical authoring language.
	SourceLanguage string `yaml:"source_language" env:"TRANSLATION_SOURCE_LANGUAGE" env-default:"en"`

	// TargetLanguagesStr is a comma-separated list of translation targets.
	TargetLanguagesStr string `yaml:"target_languages" env:"TRANSLATION_TARGET_LANGUAGES" env-default:"de,es,fr,ja,zh"`

	// TargetLanguages is the parsed list from TargetLanguagesStr.
	TargetLanguages []string `yaml:"-"`

	// ContentRoot is the canonical English content root within the repo.
	// Files under it affect all target languages when edited.
	ContentRoot string `yaml:"content_root" env:"TRANSLATION_CONTENT_ROOT" env-default:"docs/en"`

	// DebounceMillis is the quiet period per path before a change is processed.
	DebounceMillis int `yaml:"debounce_millis" env:"TRANSLATION_DEBOUNCE_MILLIS" env-default:"1000"`

	// MinFuzzyThreshold is the default minimum similarity for fuzzy matches.
	MinFuzzyThreshold float64 `yaml:"min_fuzzy_threshold" env:"TRANSLATION_MIN_FUZZY_THRESHOLD" env-default:"0.70"`

	// EntitySeedPath and RuleSeedPath point at the YAML seed files for the
	// cultural entity registry and validation rules. Missing or malformed
	// seed files abort initialization.
	EntitySeedPath string `yaml:"entity_seed_path" env:"TRANSLATION_ENTITY_SEED_PATH" env-default:"seed/entities.yaml"`
	RuleSeedPath   string `yaml:"rule_seed_path" env:"TRANSLATION_RULE_SEED_PATH" env-default:"seed/rules.yaml"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.parseComplexFields(); err != nil {
		return nil, fmt.Errorf("failed to parse config fields: %w", err)
	}

	if err := cfg.validateSeeds(); err != nil {
		return nil, fmt.Errorf("invalid seed configuration: %w", err)
	}

	return cfg, nil
}

// parseComplexFields handles fields that need post-processing after loading.
func (c *Config) parseComplexFields() error {
	c.Translation.WatchDirs = splitList(c.Translation.WatchDirsStr)
	c.Translation.TargetLanguages = splitList(c.Translation.TargetLanguagesStr)

	if len(c.Translation.WatchDirs) == 0 {
		return fmt.Errorf("at least one watch directory is required")
	}
	if len(c.Translation.TargetLanguages) == 0 {
		return fmt.Errorf("at least one target language is required")
	}
	for _, lang := range c.Translation.TargetLanguages {
		if lang == c.Translation.SourceLanguage {
			return fmt.Errorf("source language %q must not appear in target languages", lang)
		}
	}
	return nil
}

// validateSeeds ensures the registry seed files exist when the subsystem is
// enabled. Content validation happens at seed-load time.
func (c *Config) validateSeeds() error {
	if !c.Translation.Enabled {
		return nil
	}
	if _, err := os.Stat(c.Translation.EntitySeedPath); err != nil {
		return fmt.Errorf("entity seed file does not exist: %w", err)
	}
	if _, err := os.Stat(c.Translation.RuleSeedPath); err != nil {
		return fmt.Errorf("rule seed file does not exist: %w", err)
	}
	return nil
}

// AllLanguages returns the source language plus all targets.
func (t *TranslationConfig) AllLanguages() []string {
	langs := make([]string, 0, len(t.TargetLanguages)+1)
	langs = append(langs, t.SourceLanguage)
	langs = append(langs, t.TargetLanguages...)
	return langs
}

// IsSupportedLanguage reports whether lang is the source or a target language.
func (t *TranslationConfig) IsSupportedLanguage(lang string) bool {
	if lang == t.SourceLanguage {
		return true
	}
	for _, l := range t.TargetLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// splitList parses a comma-separated list, trimming whitespace and dropping
// empty items.
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
