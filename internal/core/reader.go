package core

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Record kinds accepted in JSON-lines input
const (
	RecordNode      = "node"
	RecordEdge      = "edge"
	RecordRelAsNode = "rel_as_node"
)

// maxLineSize bounds a single JSON-lines record
const maxLineSize = 16 << 20

// envelope is one line of JSON-lines input
type envelope struct {
	Kind string `json:"kind"`
	Node
	SourceID   string           `json:"source_id"`
	TargetID   string           `json:"target_id"`
	InputType  string           `json:"input_type"`
	RelNode    *Node            `json:"node"`
	Source     *Edge            `json:"source"`
	Target     *Edge            `json:"target"`
	Properties map[string]Value `json:"properties"`
}

// Reader decodes newline-delimited JSON records lazily. Like bufio.Scanner,
// iteration stops at the first error, which is then reported by Err.
type Reader struct {
	scanner *bufio.Scanner
	line    int
	err     error
}

// NewReader creates a Reader over r
func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{scanner: s}
}

// Err returns the first decoding or read error
func (r *Reader) Err() error {
	return r.err
}

// Nodes yields every node record. Edge records are an error.
func (r *Reader) Nodes() NodeStream {
	return func(yield func(Node) bool) {
		for env := range r.envelopes() {
			if env.Kind != "" && env.Kind != RecordNode {
				r.err = fmt.Errorf("line %d: expected node record, got %q", r.line, env.Kind)
				return
			}
			n := env.Node
			n.Properties = env.Properties
			if !yield(n) {
				return
			}
		}
	}
}

// Edges yields edge and relationship-as-node records
func (r *Reader) Edges() EdgeStream {
	return func(yield func(EdgeRecord) bool) {
		for env := range r.envelopes() {
			var rec EdgeRecord
			switch env.Kind {
			case RecordEdge, "":
				rec = Edge{
					SourceID:   env.SourceID,
					TargetID:   env.TargetID,
					Type:       env.Type,
					InputType:  env.InputType,
					Properties: env.Properties,
				}
			case RecordRelAsNode:
				if env.RelNode == nil || env.Source == nil || env.Target == nil {
					r.err = fmt.Errorf("line %d: rel_as_node requires node, source and target", r.line)
					return
				}
				rec = RelAsNode{Node: *env.RelNode, Source: *env.Source, Target: *env.Target}
			default:
				r.err = fmt.Errorf("line %d: expected edge record, got %q", r.line, env.Kind)
				return
			}
			if !yield(rec) {
				return
			}
		}
	}
}

func (r *Reader) envelopes() func(yield func(envelope) bool) {
	return func(yield func(envelope) bool) {
		for r.scanner.Scan() {
			r.line++
			data := bytes.TrimSpace(r.scanner.Bytes())
			if len(data) == 0 {
				continue
			}
			var env envelope
			if err := json.Unmarshal(data, &env); err != nil {
				r.err = fmt.Errorf("line %d: decoding record: %w", r.line, err)
				return
			}
			if !yield(env) {
				return
			}
		}
		if err := r.scanner.Err(); err != nil {
			r.err = fmt.Errorf("reading input: %w", err)
		}
	}
}
