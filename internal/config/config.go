// Package config loads graphbulk settings from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Config holds the export and database settings
type Config struct {
	Export ExportConfig `yaml:"export"`
	Neo4j  Neo4jConfig  `yaml:"neo4j"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// ExportConfig configures the batch writer
type ExportConfig struct {
	OutputDir      string  `yaml:"output_dir"`
	Delimiter      string  `yaml:"delimiter"`
	ArrayDelimiter string  `yaml:"array_delimiter"`
	Quote          string  `yaml:"quote"`
	BatchSize      float64 `yaml:"batch_size"` // Rows per part file, truncated to an integer
	StrictMode     bool    `yaml:"strict_mode"`
	Database       string  `yaml:"database"`    // --database of the import call
	Loader         string  `yaml:"loader"`      // Loader binary under bin/
	DedupePath     string  `yaml:"dedupe_path"` // Badger directory; empty keeps ids in memory
}

// Neo4jConfig holds Neo4j connection configuration
type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// ServerConfig configures the HTTP service
type ServerConfig struct {
	Port string `yaml:"port"`
}

// LogConfig configures logging
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			OutputDir:      "out",
			Delimiter:      ";",
			ArrayDelimiter: "|",
			Quote:          "'",
			BatchSize:      1e6,
			Database:       "neo4j",
			Loader:         "neo4j-admin",
		},
		Neo4j: Neo4jConfig{
			URI:      "bolt://localhost:7687",
			Username: "neo4j",
			Password: "password",
			Database: "neo4j",
		},
		Server: ServerConfig{Port: "8080"},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads path (if non-empty) over the defaults and then applies
// GRAPHBULK_* and NEO4J_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Export.OutputDir = getEnv("GRAPHBULK_OUTPUT_DIR", c.Export.OutputDir)
	c.Export.Delimiter = getEnv("GRAPHBULK_DELIMITER", c.Export.Delimiter)
	c.Export.ArrayDelimiter = getEnv("GRAPHBULK_ARRAY_DELIMITER", c.Export.ArrayDelimiter)
	c.Export.Quote = getEnv("GRAPHBULK_QUOTE", c.Export.Quote)
	c.Export.Database = getEnv("GRAPHBULK_DATABASE", c.Export.Database)
	c.Export.DedupePath = getEnv("GRAPHBULK_DEDUPE_PATH", c.Export.DedupePath)

	if v := os.Getenv("GRAPHBULK_BATCH_SIZE"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("GRAPHBULK_BATCH_SIZE: %w", err)
		}
		c.Export.BatchSize = n
	}
	if v := os.Getenv("GRAPHBULK_STRICT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("GRAPHBULK_STRICT: %w", err)
		}
		c.Export.StrictMode = b
	}

	c.Neo4j.URI = getEnv("NEO4J_URI", c.Neo4j.URI)
	c.Neo4j.Username = getEnv("NEO4J_USER", c.Neo4j.Username)
	c.Neo4j.Password = getEnv("NEO4J_PASSWORD", c.Neo4j.Password)
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Log.Level = getEnv("GRAPHBULK_LOG_LEVEL", c.Log.Level)
	return nil
}

// Validate checks the export settings
func (c *Config) Validate() error {
	e := c.Export
	if e.OutputDir == "" {
		return errors.New("export.output_dir is required")
	}
	if utf8.RuneCountInString(e.Delimiter) != 1 {
		return fmt.Errorf("export.delimiter must be a single character, got %q", e.Delimiter)
	}
	if utf8.RuneCountInString(e.ArrayDelimiter) != 1 {
		return fmt.Errorf("export.array_delimiter must be a single character, got %q", e.ArrayDelimiter)
	}
	if utf8.RuneCountInString(e.Quote) != 1 {
		return fmt.Errorf("export.quote must be a single character, got %q", e.Quote)
	}
	if e.Delimiter == e.ArrayDelimiter {
		return errors.New("export.delimiter and export.array_delimiter must differ")
	}
	if int(e.BatchSize) < 1 {
		return fmt.Errorf("export.batch_size must be at least 1, got %v", e.BatchSize)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
