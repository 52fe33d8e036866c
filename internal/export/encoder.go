package export

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/systemshift/graphbulk/internal/core"
)

// Fixed columns of the import format
const (
	colID          = ":ID"
	colStartID     = ":START_ID"
	colEndID       = ":END_ID"
	colLabel       = ":LABEL"
	colType        = ":TYPE"
	colNodeID      = "id"
	colPreferredID = "preferred_id"
)

// strictColumns must be present on every node in strict mode. They are
// written after the identifier columns.
var strictColumns = []string{"source", "version", "licence"}

// Format holds the engine-wide cell formatting settings
type Format struct {
	Delimiter      string
	ArrayDelimiter string
	Quote          string

	// QuoteArrayElements quotes every list element ('a'|'b') instead of the
	// whole cell ('a|b').
	QuoteArrayElements bool
}

// Cell is one encoded column: its header and its data
type Cell struct {
	Header string
	Data   string
}

// HeaderName returns the header cell of a declared property
func HeaderName(p core.PropertySpec) string {
	switch p.Kind {
	case core.KindInt:
		return p.Name + ":long"
	case core.KindFloat:
		return p.Name + ":double"
	case core.KindStringList:
		return p.Name + ":string[]"
	case core.KindBool:
		return p.Name + ":boolean"
	default:
		return p.Name
	}
}

// quote wraps s in the quote character, doubling embedded quotes
func (f Format) quote(s string) string {
	if strings.Contains(s, f.Quote) {
		s = strings.ReplaceAll(s, f.Quote, f.Quote+f.Quote)
	}
	return f.Quote + s + f.Quote
}

// Value renders v for a column declared with kind. Null renders as an empty
// cell, quoted for string columns.
func (f Format) Value(kind core.Kind, v core.Value) string {
	if v.IsNull() {
		if kind == core.KindString {
			return f.Quote + f.Quote
		}
		return ""
	}

	switch v.Kind() {
	case core.KindInt:
		i, _ := v.AsInt()
		return strconv.FormatInt(i, 10)
	case core.KindFloat:
		x, _ := v.AsFloat()
		return formatFloat(x)
	case core.KindBool:
		b, _ := v.AsBool()
		return strconv.FormatBool(b)
	case core.KindStringList:
		list, _ := v.AsStringList()
		if f.QuoteArrayElements {
			quoted := make([]string, len(list))
			for i, s := range list {
				quoted[i] = f.quote(s)
			}
			return strings.Join(quoted, f.ArrayDelimiter)
		}
		return f.quote(strings.Join(list, f.ArrayDelimiter))
	default:
		s, _ := v.AsString()
		return f.quote(s)
	}
}

// formatFloat writes the shortest representation that round-trips and always
// carries a fraction or exponent, so 4 becomes "4.0".
func formatFloat(x float64) string {
	abs := math.Abs(x)
	var s string
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		s = strconv.FormatFloat(x, 'e', -1, 64)
	} else {
		s = strconv.FormatFloat(x, 'f', -1, 64)
	}
	if !strings.ContainsAny(s, ".eIN") {
		s += ".0"
	}
	return s
}

// Conform checks that props has exactly the declared keys and that every
// non-null value fits its declared kind. Integers are accepted for float
// columns; NaN and infinities are not.
func Conform(typeName, id string, specs []core.PropertySpec, props map[string]core.Value) error {
	declared := make(map[string]core.Kind, len(specs))
	for _, p := range specs {
		declared[p.Name] = p.Kind
	}

	ce := &SchemaConformanceError{Type: typeName, ID: id}
	for _, p := range specs {
		v, ok := props[p.Name]
		if !ok {
			ce.Missing = append(ce.Missing, p.Name)
			continue
		}
		if !fits(p.Kind, v) {
			ce.Mismatched = append(ce.Mismatched, fmt.Sprintf("%s: want %s, got %s", p.Name, p.Kind, v.Kind()))
			continue
		}
		// The loader cannot parse NaN or infinities as double
		if x, ok := v.AsFloat(); ok && (math.IsNaN(x) || math.IsInf(x, 0)) {
			ce.Mismatched = append(ce.Mismatched, fmt.Sprintf("%s: want finite %s, got %v", p.Name, p.Kind, x))
		}
	}
	for name := range props {
		if _, ok := declared[name]; !ok {
			ce.Extra = append(ce.Extra, name)
		}
	}

	if len(ce.Missing) == 0 && len(ce.Extra) == 0 && len(ce.Mismatched) == 0 {
		return nil
	}
	sort.Strings(ce.Extra)
	return ce
}

func fits(kind core.Kind, v core.Value) bool {
	if v.IsNull() || v.Kind() == kind {
		return true
	}
	return kind == core.KindFloat && v.Kind() == core.KindInt
}

// EncodeProperties produces one cell per declared property, in declaration
// order, independent of the iteration order of props.
func (f Format) EncodeProperties(specs []core.PropertySpec, props map[string]core.Value) []Cell {
	cells := make([]Cell, len(specs))
	for i, p := range specs {
		cells[i] = Cell{Header: HeaderName(p), Data: f.Value(p.Kind, props[p.Name])}
	}
	return cells
}

// nodeLayout is the resolved column layout of one node type
type nodeLayout struct {
	bucket string
	labels string
	specs  []core.PropertySpec // regular property columns
	header string
}

// newNodeLayout builds the layout of a node type. In strict mode the strict
// columns are moved out of the regular property list.
func (f Format) newNodeLayout(bucket, labels string, specs []core.PropertySpec, strict bool) *nodeLayout {
	regular := specs
	if strict {
		regular = make([]core.PropertySpec, 0, len(specs))
		for _, p := range specs {
			if !isStrictColumn(p.Name) {
				regular = append(regular, p)
			}
		}
	}

	headers := []string{colID}
	for _, p := range regular {
		headers = append(headers, HeaderName(p))
	}
	headers = append(headers, colNodeID, colPreferredID)
	if strict {
		headers = append(headers, strictColumns...)
	}
	headers = append(headers, colLabel)

	return &nodeLayout{
		bucket: bucket,
		labels: labels,
		specs:  regular,
		header: strings.Join(headers, f.Delimiter),
	}
}

// declared returns every property the node must carry
func (l *nodeLayout) declared(strict bool) []core.PropertySpec {
	if !strict {
		return l.specs
	}
	all := append([]core.PropertySpec(nil), l.specs...)
	for _, name := range strictColumns {
		all = append(all, core.PropertySpec{Name: name, Kind: core.KindString})
	}
	return all
}

// nodeRow encodes a conforming node
func (f Format) nodeRow(l *nodeLayout, n core.Node, strict bool) string {
	cells := []string{n.ID}
	for _, c := range f.EncodeProperties(l.specs, n.Properties) {
		cells = append(cells, c.Data)
	}
	cells = append(cells, f.quote(n.ID), f.quote(n.Namespace()))
	if strict {
		for _, name := range strictColumns {
			cells = append(cells, f.Value(core.KindString, n.Properties[name]))
		}
	}
	cells = append(cells, l.labels)
	return strings.Join(cells, f.Delimiter) + "\n"
}

// edgeHeader returns the header of a relationship type
func (f Format) edgeHeader(specs []core.PropertySpec) string {
	headers := []string{colStartID}
	for _, p := range specs {
		headers = append(headers, HeaderName(p))
	}
	headers = append(headers, colEndID, colType)
	return strings.Join(headers, f.Delimiter)
}

// edgeRow encodes a conforming edge
func (f Format) edgeRow(specs []core.PropertySpec, e core.Edge) string {
	cells := []string{e.SourceID}
	for _, c := range f.EncodeProperties(specs, e.Properties) {
		cells = append(cells, c.Data)
	}
	cells = append(cells, e.TargetID, e.Type)
	return strings.Join(cells, f.Delimiter) + "\n"
}

func isStrictColumn(name string) bool {
	for _, c := range strictColumns {
		if c == name {
			return true
		}
	}
	return false
}
