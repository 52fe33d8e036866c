// Package schema provides the declared property sets of node and
// relationship types.
package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/systemshift/graphbulk/internal/core"
)

// Static maps a type name to its ordered property declarations
type Static map[string][]core.PropertySpec

// Properties returns the declared properties of typeName
func (s Static) Properties(typeName string) ([]core.PropertySpec, bool) {
	props, ok := s[typeName]
	return props, ok
}

// typeEntry is one type in a schema file. Properties stay a yaml.Node so
// that mapping order is preserved.
type typeEntry struct {
	Properties yaml.Node `yaml:"properties"`
}

// Load reads a schema file of the form
//
//	protein:
//	  properties:
//	    name: str
//	    score: float
//	PERTURBED_IN_DISEASE:
//	  properties:
//	    level: int
//
// Node types are keyed by their leaf type, relationships by their label.
func Load(path string) (Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	return Parse(data)
}

// Parse decodes schema YAML
func Parse(data []byte) (Static, error) {
	var doc map[string]typeEntry
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}

	s := make(Static, len(doc))
	for name, entry := range doc {
		props, err := parseProperties(&entry.Properties)
		if err != nil {
			return nil, fmt.Errorf("type %q: %w", name, err)
		}
		s[name] = props
	}
	return s, nil
}

func parseProperties(n *yaml.Node) ([]core.PropertySpec, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("properties must be a mapping (line %d)", n.Line)
	}

	props := make([]core.PropertySpec, 0, len(n.Content)/2)
	seen := make(map[string]bool)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if seen[key.Value] {
			return nil, fmt.Errorf("duplicate property %q (line %d)", key.Value, key.Line)
		}
		seen[key.Value] = true

		kind, err := core.ParseKind(val.Value)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", key.Value, err)
		}
		props = append(props, core.PropertySpec{Name: key.Value, Kind: kind})
	}
	return props, nil
}
