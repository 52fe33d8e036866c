package graph

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountQueries(t *testing.T) {
	assert.Equal(t, "MATCH (n) RETURN count(n) AS c", nodeCountQuery(""))
	assert.Equal(t, "MATCH (n:`Protein`) RETURN count(n) AS c", nodeCountQuery("Protein"))
	assert.Equal(t, "MATCH (n:`Odd``Name`) RETURN count(n) AS c", nodeCountQuery("Odd`Name"))

	assert.Equal(t, "MATCH ()-[r]->() RETURN count(r) AS c", edgeCountQuery(""))
	assert.Equal(t, "MATCH ()-[r:`IS_SOURCE_OF`]->() RETURN count(r) AS c", edgeCountQuery("IS_SOURCE_OF"))
}

func TestEnsureDatabaseQueries(t *testing.T) {
	assert.Equal(t, []string{
		"CREATE DATABASE $name IF NOT EXISTS",
		"START DATABASE $name",
	}, ensureDatabaseQueries())
}

func TestCountCheck(t *testing.T) {
	assert.True(t, CountCheck{Expected: 3, Actual: 3}.OK())
	assert.True(t, CountCheck{Expected: 3, Actual: 5}.OK())
	assert.False(t, CountCheck{Expected: 3, Actual: 2}.OK())
}

// TestNeo4jCounts needs a running instance at NEO4J_URI
func TestNeo4jCounts(t *testing.T) {
	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		t.Skip("NEO4J_URI not set")
	}

	ctx := context.Background()
	repo, err := New(ctx, Config{
		URI:      uri,
		Username: os.Getenv("NEO4J_USER"),
		Password: os.Getenv("NEO4J_PASSWORD"),
	})
	require.NoError(t, err)
	defer repo.Close(ctx)

	n, err := repo.NodeCount(ctx, "")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(0))
}
