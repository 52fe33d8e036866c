package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/systemshift/graphbulk/internal/config"
	"github.com/systemshift/graphbulk/internal/export"
	"github.com/systemshift/graphbulk/internal/ontology"
	"github.com/systemshift/graphbulk/internal/schema"
)

func TestNewWriterReleasesTrackerOnError(t *testing.T) {
	ec := config.Default().Export
	ec.OutputDir = t.TempDir()
	ec.DedupePath = filepath.Join(t.TempDir(), "seen")
	ec.BatchSize = 0

	_, err := newWriter(ec, schema.Static{}, ontology.Static{}, zap.NewNop())
	require.Error(t, err)

	// Badger locks its directory until the tracker is closed
	tracker, err := export.NewBadgerTracker(ec.DedupePath)
	require.NoError(t, err)
	assert.NoError(t, tracker.Close())
}

func TestNewWriter(t *testing.T) {
	ec := config.Default().Export
	ec.OutputDir = t.TempDir()
	ec.DedupePath = filepath.Join(t.TempDir(), "seen")

	w, err := newWriter(ec, schema.Static{}, ontology.Static{}, zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, w.Close())
}
