// Package ontology resolves the ancestor classes of a leaf type and turns
// them into the label strings written to the :LABEL column.
package ontology

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// LabelSeparator joins multiple labels in one :LABEL cell
const LabelSeparator = "|"

// ErrUnknownType is returned when a resolver has no entry for a leaf type
var ErrUnknownType = errors.New("unknown ontology type")

// Resolver returns the ancestor class names of a leaf type. Ordering of the
// result is not significant.
type Resolver interface {
	Ancestors(leaf string) ([]string, error)
}

// Static is a map-backed Resolver
type Static map[string][]string

// Ancestors implements Resolver
func (s Static) Ancestors(leaf string) ([]string, error) {
	anc, ok := s[leaf]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, leaf)
	}
	return anc, nil
}

// LabelName converts a class name such as "post translational interaction"
// or "microRNA" into the PascalCase form used in the graph.
func LabelName(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		r, size := utf8.DecodeRuneInString(word)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(word[size:])
	}
	return b.String()
}

// Labels resolves leaf and returns its label name together with the sorted,
// de-duplicated label string of the leaf and all its ancestors.
func Labels(r Resolver, leaf string) (name, labels string, err error) {
	name = LabelName(leaf)
	if name == "" {
		return "", "", fmt.Errorf("empty type name")
	}

	ancestors, err := r.Ancestors(leaf)
	if err != nil {
		return "", "", fmt.Errorf("resolving ancestry of %q: %w", leaf, err)
	}

	seen := map[string]bool{name: true}
	all := []string{name}
	for _, a := range ancestors {
		l := LabelName(a)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		all = append(all, l)
	}
	sort.Strings(all)

	return name, strings.Join(all, LabelSeparator), nil
}
