package export

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemshift/graphbulk/internal/core"
)

var semicolon = Format{Delimiter: ";", ArrayDelimiter: "|", Quote: "'"}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{4, "4.0"},
		{2, "2.0"},
		{4.0 / 3.0, "1.3333333333333333"},
		{4.32, "4.32"},
		{-1, "-1.0"},
		{0, "0.0"},
		{123456789, "123456789.0"},
		{1e16, "1e+16"},
		{0.00001, "1e-05"},
		{math.Inf(1), "+Inf"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatFloat(tt.in))
		})
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		kind core.Kind
		v    core.Value
		want string
	}{
		{"string", core.KindString, core.String("StringProperty1"), "'StringProperty1'"},
		{"embedded quote", core.KindString, core.String("5'UTR"), "'5''UTR'"},
		{"int", core.KindInt, core.Int(9606), "9606"},
		{"float", core.KindFloat, core.Float(4), "4.0"},
		{"int in float column", core.KindFloat, core.Int(1), "1"},
		{"list", core.KindStringList, core.StringList("gene1", "gene2"), "'gene1|gene2'"},
		{"bool", core.KindBool, core.Bool(true), "true"},
		{"null string", core.KindString, core.Null(), "''"},
		{"null int", core.KindInt, core.Null(), ""},
		{"null list", core.KindStringList, core.Null(), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, semicolon.Value(tt.kind, tt.v))
		})
	}
}

func TestQuoteArrayElements(t *testing.T) {
	f := semicolon
	f.QuoteArrayElements = true
	assert.Equal(t, "'gene1'|'gene2'", f.Value(core.KindStringList, core.StringList("gene1", "gene2")))
}

func TestHeaderName(t *testing.T) {
	assert.Equal(t, "name", HeaderName(core.PropertySpec{Name: "name", Kind: core.KindString}))
	assert.Equal(t, "taxon:long", HeaderName(core.PropertySpec{Name: "taxon", Kind: core.KindInt}))
	assert.Equal(t, "score:double", HeaderName(core.PropertySpec{Name: "score", Kind: core.KindFloat}))
	assert.Equal(t, "genes:string[]", HeaderName(core.PropertySpec{Name: "genes", Kind: core.KindStringList}))
	assert.Equal(t, "directed:boolean", HeaderName(core.PropertySpec{Name: "directed", Kind: core.KindBool}))
}

func TestEncodePropertiesFollowsDeclaration(t *testing.T) {
	specs := []core.PropertySpec{
		{Name: "name", Kind: core.KindString},
		{Name: "taxon", Kind: core.KindInt},
	}
	cells := semicolon.EncodeProperties(specs, map[string]core.Value{
		"taxon": core.Int(9606),
		"name":  core.String("a"),
	})
	assert.Equal(t, []Cell{{"name", "'a'"}, {"taxon:long", "9606"}}, cells)
}

func TestConform(t *testing.T) {
	specs := []core.PropertySpec{
		{Name: "name", Kind: core.KindString},
		{Name: "score", Kind: core.KindFloat},
	}

	tests := []struct {
		name    string
		props   map[string]core.Value
		missing []string
		extra   []string
		kinds   int
	}{
		{"exact", map[string]core.Value{"name": core.String("a"), "score": core.Float(1)}, nil, nil, 0},
		{"null counts as present", map[string]core.Value{"name": core.Null(), "score": core.Null()}, nil, nil, 0},
		{"int widens to float", map[string]core.Value{"name": core.String("a"), "score": core.Int(2)}, nil, nil, 0},
		{"missing", map[string]core.Value{"name": core.String("a")}, []string{"score"}, nil, 0},
		{"extra", map[string]core.Value{"name": core.String("a"), "score": core.Float(1), "p2": core.String("x"), "p1": core.Int(1)}, nil, []string{"p1", "p2"}, 0},
		{"wrong kind", map[string]core.Value{"name": core.Int(1), "score": core.Float(1)}, nil, nil, 1},
		{"nan", map[string]core.Value{"name": core.String("a"), "score": core.Float(math.NaN())}, nil, nil, 1},
		{"infinity", map[string]core.Value{"name": core.String("a"), "score": core.Float(math.Inf(-1))}, nil, nil, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Conform("protein", "p1", specs, tt.props)
			if tt.missing == nil && tt.extra == nil && tt.kinds == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.True(t, IsConformance(err))
			var ce *SchemaConformanceError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.missing, ce.Missing)
			assert.Equal(t, tt.extra, ce.Extra)
			assert.Len(t, ce.Mismatched, tt.kinds)
		})
	}
}

func TestStrictLayout(t *testing.T) {
	specs := []core.PropertySpec{
		{Name: "name", Kind: core.KindString},
		{Name: "source", Kind: core.KindString},
	}
	l := semicolon.newNodeLayout("Protein", "Protein", specs, true)
	assert.Equal(t, ":ID;name;id;preferred_id;source;version;licence;:LABEL", l.header)
	assert.Len(t, l.declared(true), 4)
}

func TestBatchRows(t *testing.T) {
	n, err := BatchRows(1e6)
	require.NoError(t, err)
	assert.Equal(t, 1000000, n)

	n, err = BatchRows(2.9)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = BatchRows(0.5)
	assert.Error(t, err)
	_, err = BatchRows(math.NaN())
	assert.Error(t, err)
}
