package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTracker(t *testing.T, tr Tracker) {
	t.Helper()

	ok, err := tr.SeenNode("protein", "p1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, tr.RecordNode("protein", "p1"))
	ok, err = tr.SeenNode("protein", "p1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Ids are scoped by type and by entity kind
	ok, err = tr.SeenNode("microRNA", "p1")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = tr.SeenEdge("protein", "p1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, tr.RecordEdge("gene_disease", EdgePairID("g1", "d1")))
	ok, err = tr.SeenEdge("gene_disease", "g1_d1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryTracker(t *testing.T) {
	tr := NewMemoryTracker()
	defer tr.Close()
	testTracker(t, tr)
}

func TestBadgerTrackerInMemory(t *testing.T) {
	tr, err := NewBadgerTracker("")
	require.NoError(t, err)
	defer tr.Close()
	testTracker(t, tr)
}

func TestBadgerTrackerPersists(t *testing.T) {
	dir := t.TempDir()

	tr, err := NewBadgerTracker(dir)
	require.NoError(t, err)
	require.NoError(t, tr.RecordNode("protein", "p1"))
	require.NoError(t, tr.Close())

	tr, err = NewBadgerTracker(dir)
	require.NoError(t, err)
	defer tr.Close()

	ok, err := tr.SeenNode("protein", "p1")
	require.NoError(t, err)
	assert.True(t, ok)
}
