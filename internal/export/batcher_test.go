package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatcherRotation(t *testing.T) {
	dir := t.TempDir()
	b, err := NewBatcher(dir, 2, nil)
	require.NoError(t, err)

	key := BucketKey{Name: "Gene", Kind: NodeBucket}
	for _, line := range []string{"a\n", "b\n", "c\n"} {
		require.NoError(t, b.Append(key, ":ID", line))
	}
	require.NoError(t, b.Flush())

	part0, err := os.ReadFile(filepath.Join(dir, "Gene-part000.csv"))
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", string(part0))
	part1, err := os.ReadFile(filepath.Join(dir, "Gene-part001.csv"))
	require.NoError(t, err)
	assert.Equal(t, "c\n", string(part1))

	header, err := os.ReadFile(filepath.Join(dir, "Gene-header.csv"))
	require.NoError(t, err)
	assert.Equal(t, ":ID", string(header))

	assert.Equal(t, []BucketStats{{Name: "Gene", Kind: NodeBucket, Header: ":ID", Parts: 2, Rows: 3}}, b.Buckets())
}

func TestBatcherFlushWithoutRows(t *testing.T) {
	dir := t.TempDir()
	b, err := NewBatcher(dir, 2, nil)
	require.NoError(t, err)

	key := BucketKey{Name: "Gene", Kind: NodeBucket}
	require.NoError(t, b.Append(key, ":ID", "a\n"))
	require.NoError(t, b.Append(key, ":ID", "b\n"))
	require.NoError(t, b.Flush())

	assert.NoFileExists(t, filepath.Join(dir, "Gene-part001.csv"))
}

func TestBatcherDiscard(t *testing.T) {
	dir := t.TempDir()
	b, err := NewBatcher(dir, 10, nil)
	require.NoError(t, err)

	gene := BucketKey{Name: "Gene", Kind: NodeBucket}
	require.NoError(t, b.Append(gene, ":ID", "a\n"))
	require.NoError(t, b.Flush())

	require.NoError(t, b.Append(gene, ":ID", "b\n"))
	require.NoError(t, b.Append(BucketKey{Name: "Pathway", Kind: NodeBucket}, ":ID", "p\n"))
	b.Discard()
	require.NoError(t, b.Flush())

	assert.NoFileExists(t, filepath.Join(dir, "Gene-part001.csv"))
	assert.NoFileExists(t, filepath.Join(dir, "Pathway-header.csv"))
	require.Len(t, b.Buckets(), 1)

	// A forgotten bucket may come back as the other kind
	require.NoError(t, b.Append(BucketKey{Name: "Pathway", Kind: EdgeBucket}, ":START_ID", "x\n"))
}

func TestBatcherOrderFollowsFirstAppend(t *testing.T) {
	b, err := NewBatcher(t.TempDir(), 2, nil)
	require.NoError(t, err)

	gene := BucketKey{Name: "Gene", Kind: NodeBucket}
	pathway := BucketKey{Name: "Pathway", Kind: NodeBucket}
	drug := BucketKey{Name: "Drug", Kind: NodeBucket}
	require.NoError(t, b.Append(gene, ":ID", "g1\n"))
	require.NoError(t, b.Append(pathway, ":ID", "p1\n"))
	require.NoError(t, b.Append(pathway, ":ID", "p2\n"))
	require.NoError(t, b.Flush())

	require.NoError(t, b.Append(drug, ":ID", "d1\n"))
	b.Discard()

	buckets := b.Buckets()
	require.Len(t, buckets, 2)
	assert.Equal(t, "Gene", buckets[0].Name)
	assert.Equal(t, "Pathway", buckets[1].Name)
	assert.Equal(t, []BucketKey{gene, pathway}, b.order)
}

func TestBatcherHeaderMismatch(t *testing.T) {
	b, err := NewBatcher(t.TempDir(), 10, nil)
	require.NoError(t, err)

	key := BucketKey{Name: "Gene", Kind: NodeBucket}
	require.NoError(t, b.Append(key, ":ID;name", "a\n"))
	assert.ErrorIs(t, b.Append(key, ":ID", "b\n"), ErrHeaderMismatch)
}

func TestBatcherNameConflict(t *testing.T) {
	b, err := NewBatcher(t.TempDir(), 10, nil)
	require.NoError(t, err)

	require.NoError(t, b.Append(BucketKey{Name: "Gene", Kind: NodeBucket}, ":ID", "a\n"))
	assert.ErrorIs(t, b.Append(BucketKey{Name: "Gene", Kind: EdgeBucket}, ":START_ID", "b\n"), ErrBucketConflict)
}

func TestBatcherIOError(t *testing.T) {
	b, err := NewBatcher(filepath.Join(t.TempDir(), "missing"), 1, nil)
	require.NoError(t, err)

	err = b.Append(BucketKey{Name: "Gene", Kind: NodeBucket}, ":ID", "a\n")
	assert.ErrorIs(t, err, ErrIO)
	assert.Empty(t, b.Buckets())
}

func TestInvalidBatchSize(t *testing.T) {
	_, err := NewBatcher(t.TempDir(), 0, nil)
	assert.Error(t, err)
}
