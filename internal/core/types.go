package core

import "iter"

// DefaultPreferredID is the id namespace written when a node does not name one.
const DefaultPreferredID = "id"

// Relationship labels used when a relationship is reified as a node.
const (
	IsSourceOf = "IS_SOURCE_OF"
	IsTargetOf = "IS_TARGET_OF"
)

// Node is a typed graph node ready for export
type Node struct {
	ID          string           `json:"id"`                     // Unique within Type
	Type        string           `json:"type"`                   // Leaf ontology type, e.g. "protein"
	PreferredID string           `json:"preferred_id,omitempty"` // Id namespace, defaults to "id"
	Properties  map[string]Value `json:"properties,omitempty"`
}

// NewNode creates a node with the default preferred id namespace
func NewNode(id, typ string, props map[string]Value) Node {
	return Node{ID: id, Type: typ, PreferredID: DefaultPreferredID, Properties: props}
}

// Namespace returns the preferred id namespace, falling back to the default
func (n Node) Namespace() string {
	if n.PreferredID == "" {
		return DefaultPreferredID
	}
	return n.PreferredID
}

// Edge is a typed relationship between two node ids
type Edge struct {
	SourceID   string           `json:"source_id"`
	TargetID   string           `json:"target_id"`
	Type       string           `json:"type"`                 // Relationship label written to the graph
	InputType  string           `json:"input_type,omitempty"` // Relationship name in the input, bookkeeping only
	Properties map[string]Value `json:"properties,omitempty"`
}

// RelAsNode is a relationship reified as a node plus its two connecting edges
type RelAsNode struct {
	Node   Node `json:"node"`
	Source Edge `json:"source"`
	Target Edge `json:"target"`
}

// EdgeRecord is either an Edge or a RelAsNode
type EdgeRecord interface {
	edgeRecord()
}

func (Edge) edgeRecord()      {}
func (RelAsNode) edgeRecord() {}

// PropertySpec declares one property column of a type
type PropertySpec struct {
	Name string
	Kind Kind
}

// NodeStream is a finite, single-pass sequence of nodes
type NodeStream = iter.Seq[Node]

// EdgeStream is a finite, single-pass sequence of edges and reified relationships
type EdgeStream = iter.Seq[EdgeRecord]

// Nodes adapts a slice into a NodeStream
func Nodes(nodes ...Node) NodeStream {
	return func(yield func(Node) bool) {
		for _, n := range nodes {
			if !yield(n) {
				return
			}
		}
	}
}

// Edges adapts a slice into an EdgeStream
func Edges(records ...EdgeRecord) EdgeStream {
	return func(yield func(EdgeRecord) bool) {
		for _, r := range records {
			if !yield(r) {
				return
			}
		}
	}
}
