package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ";", cfg.Export.Delimiter)
	assert.Equal(t, "|", cfg.Export.ArrayDelimiter)
	assert.Equal(t, "'", cfg.Export.Quote)
	assert.Equal(t, 1e6, cfg.Export.BatchSize)
	assert.Equal(t, "neo4j", cfg.Export.Database)
	assert.Equal(t, "neo4j-admin", cfg.Export.Loader)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
export:
  output_dir: /tmp/bulk
  delimiter: "\t"
  batch_size: 1e4
  strict_mode: true
neo4j:
  uri: neo4j://db:7687
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	t.Setenv("GRAPHBULK_QUOTE", `"`)
	t.Setenv("NEO4J_USER", "admin")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/bulk", cfg.Export.OutputDir)
	assert.Equal(t, "\t", cfg.Export.Delimiter)
	assert.Equal(t, 1e4, cfg.Export.BatchSize)
	assert.True(t, cfg.Export.StrictMode)
	assert.Equal(t, `"`, cfg.Export.Quote)
	assert.Equal(t, "neo4j://db:7687", cfg.Neo4j.URI)
	assert.Equal(t, "admin", cfg.Neo4j.Username)
	assert.Equal(t, "|", cfg.Export.ArrayDelimiter)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty output dir", func(c *Config) { c.Export.OutputDir = "" }},
		{"long delimiter", func(c *Config) { c.Export.Delimiter = ";;" }},
		{"empty quote", func(c *Config) { c.Export.Quote = "" }},
		{"same delimiters", func(c *Config) { c.Export.ArrayDelimiter = ";" }},
		{"fractional batch below one", func(c *Config) { c.Export.BatchSize = 0.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestBadEnvBatchSize(t *testing.T) {
	t.Setenv("GRAPHBULK_BATCH_SIZE", "many")
	_, err := Load("")
	assert.Error(t, err)
}
