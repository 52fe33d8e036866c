package ontology

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"protein", "Protein"},
		{"microRNA", "MicroRNA"},
		{"post translational interaction", "PostTranslationalInteraction"},
		{"NamedThing", "NamedThing"},
		{"  altered  gene product level ", "AlteredGeneProductLevel"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, LabelName(tt.in))
		})
	}
}

func TestLabelsSortedAndDeduplicated(t *testing.T) {
	r := Static{
		"complex": {"mixin", "entity", "macromolecular machine mixin", "Entity"},
	}

	name, labels, err := Labels(r, "complex")
	require.NoError(t, err)
	assert.Equal(t, "Complex", name)
	assert.Equal(t, "Complex|Entity|MacromolecularMachineMixin|Mixin", labels)
}

func TestLabelsOrderInvariant(t *testing.T) {
	a := Static{"protein": {"polypeptide", "named thing", "entity"}}
	b := Static{"protein": {"entity", "polypeptide", "named thing"}}

	_, la, err := Labels(a, "protein")
	require.NoError(t, err)
	_, lb, err := Labels(b, "protein")
	require.NoError(t, err)
	assert.Equal(t, la, lb)
}

func TestLabelsUnknownType(t *testing.T) {
	_, _, err := Labels(Static{}, "gene")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownType))
}

func TestSQLiteResolver(t *testing.T) {
	ctx := context.Background()
	r, err := NewSQLite(ctx, ":memory:")
	require.NoError(t, err)
	defer r.Close()

	hierarchy := [][2]string{
		{"entity", ""},
		{"named thing", "entity"},
		{"biological entity", "named thing"},
		{"polypeptide", "biological entity"},
		{"protein", "polypeptide"},
	}
	for _, c := range hierarchy {
		require.NoError(t, r.AddClass(ctx, c[0], c[1]))
	}

	anc, err := r.Ancestors("protein")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"polypeptide", "biological entity", "named thing", "entity"}, anc)

	root, err := r.Ancestors("entity")
	require.NoError(t, err)
	assert.Empty(t, root)

	_, labels, err := Labels(r, "protein")
	require.NoError(t, err)
	assert.Equal(t, "BiologicalEntity|Entity|NamedThing|Polypeptide|Protein", labels)

	_, err = r.Ancestors("gene")
	assert.True(t, errors.Is(err, ErrUnknownType))
}

func TestSQLiteResolverCycle(t *testing.T) {
	ctx := context.Background()
	r, err := NewSQLite(ctx, ":memory:")
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.AddClass(ctx, "a", "b"))
	require.NoError(t, r.AddClass(ctx, "b", "a"))

	anc, err := r.Ancestors("a")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, anc)
}

func TestSQLiteImportYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hierarchy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`protein: polypeptide
polypeptide: biological entity
biological entity: named thing
named thing:
`), 0644))

	ctx := context.Background()
	r, err := NewSQLite(ctx, ":memory:")
	require.NoError(t, err)
	defer r.Close()

	n, err := r.ImportYAML(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	name, labels, err := Labels(r, "protein")
	require.NoError(t, err)
	assert.Equal(t, "Protein", name)
	assert.Equal(t, "BiologicalEntity|NamedThing|Polypeptide|Protein", labels)
}
