// Package export writes typed graph entities as neo4j-admin import files:
// one header file and numbered part files per node label and relationship
// type, plus the command line that loads them.
package export

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/systemshift/graphbulk/internal/core"
	"github.com/systemshift/graphbulk/internal/logger"
	"github.com/systemshift/graphbulk/internal/ontology"
)

// Schema returns the declared properties of a node type (by leaf type) or a
// relationship type (by label). Unknown types declare no properties.
type Schema interface {
	Properties(typeName string) ([]core.PropertySpec, bool)
}

// Config holds the writer settings
type Config struct {
	OutputDir      string
	Delimiter      string
	ArrayDelimiter string
	Quote          string
	BatchSize      float64 // Rows per part file, truncated toward zero
	StrictMode     bool
	Database       string // --database of the import call, default "neo4j"
	Loader         string // Loader binary under bin/, default "neo4j-admin"

	QuoteArrayElements bool
}

// Option configures a Writer
type Option func(*Writer)

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(w *Writer) { w.log = l }
}

// WithTracker replaces the in-memory duplicate tracker
func WithTracker(t Tracker) Option {
	return func(w *Writer) { w.tracker = t }
}

// Writer is the batch export engine. Rotation cursors and duplicate state
// live for the lifetime of one Writer and carry over between write calls.
// A Writer is not safe for concurrent use.
type Writer struct {
	cfg      Config
	format   Format
	schema   Schema
	resolver ontology.Resolver
	tracker  Tracker
	batcher  *Batcher
	log      logger.Logger

	layouts map[string]*nodeLayout
	pending map[entityKey]struct{} // Written this call, not yet on disk

	dupNodeTypes []string
	dupNodeIDs   []string
	dupEdgeTypes []string
	dupEdgeIDs   []string

	runID   string
	created time.Time
	err     error
	closed  bool
}

// New creates a Writer and its output directory
func New(cfg Config, schema Schema, resolver ontology.Resolver, opts ...Option) (*Writer, error) {
	if cfg.OutputDir == "" {
		return nil, errors.New("output directory is required")
	}
	if cfg.Delimiter == "" || cfg.ArrayDelimiter == "" || cfg.Quote == "" {
		return nil, errors.New("delimiter, array delimiter and quote are required")
	}
	if cfg.Database == "" {
		cfg.Database = "neo4j"
	}
	if cfg.Loader == "" {
		cfg.Loader = "neo4j-admin"
	}

	w := &Writer{
		cfg: cfg,
		format: Format{
			Delimiter:          cfg.Delimiter,
			ArrayDelimiter:     cfg.ArrayDelimiter,
			Quote:              cfg.Quote,
			QuoteArrayElements: cfg.QuoteArrayElements,
		},
		schema:   schema,
		resolver: resolver,
		log:      logger.DefaultLogger,
		layouts:  make(map[string]*nodeLayout),
		pending:  make(map[entityKey]struct{}),
		runID:    uuid.New().String(),
		created:  time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.tracker == nil {
		w.tracker = NewMemoryTracker()
	}
	if w.log == nil {
		w.log = logger.NoopLogger{}
	}

	batcher, err := NewBatcher(cfg.OutputDir, cfg.BatchSize, w.log)
	if err != nil {
		return nil, err
	}
	batcher.commit = func(keys []entityKey) error {
		for _, k := range keys {
			delete(w.pending, k)
		}
		return commitKeys(w.tracker, keys)
	}
	w.batcher = batcher

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating output directory: %w", ErrIO, err)
	}
	return w, nil
}

// Err returns the error of the last failed write call, nil after a success
func (w *Writer) Err() error {
	return w.err
}

// OutputDir returns the directory files are written to
func (w *Writer) OutputDir() string {
	return w.cfg.OutputDir
}

// WriteNodes writes every node of the stream. It returns false if any node
// failed validation or output failed; rows not yet on disk are then dropped.
func (w *Writer) WriteNodes(nodes core.NodeStream) bool {
	return w.call("nodes", func() error {
		return w.writeNodes(nodes)
	})
}

// WriteNodesFrom writes the node records of r. A decoding error fails the
// call like an invalid node.
func (w *Writer) WriteNodesFrom(r *core.Reader) bool {
	return w.call("nodes", func() error {
		if err := w.writeNodes(r.Nodes()); err != nil {
			return err
		}
		return r.Err()
	})
}

// WriteEdges writes every edge and relationship-as-node record of the stream.
// A RelAsNode is written as one node and two edges, each validated and
// deduplicated on its own.
func (w *Writer) WriteEdges(edges core.EdgeStream) bool {
	return w.call("edges", func() error {
		return w.writeEdges(edges)
	})
}

// WriteEdgesFrom writes the edge records of r
func (w *Writer) WriteEdgesFrom(r *core.Reader) bool {
	return w.call("edges", func() error {
		if err := w.writeEdges(r.Edges()); err != nil {
			return err
		}
		return r.Err()
	})
}

func (w *Writer) writeNodes(nodes core.NodeStream) error {
	for n := range nodes {
		if err := w.writeNode(n); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeEdges(edges core.EdgeStream) error {
	for rec := range edges {
		var err error
		switch r := rec.(type) {
		case core.Edge:
			err = w.writeEdge(r)
		case core.RelAsNode:
			err = w.writeRelAsNode(r)
		default:
			err = fmt.Errorf("unsupported edge record %T", rec)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// call runs one write call and either flushes or discards its output
func (w *Writer) call(what string, body func() error) bool {
	if w.closed {
		w.err = ErrClosed
		return false
	}

	start := time.Now()
	err := body()
	if err == nil {
		err = w.batcher.Flush()
	}
	if err != nil {
		w.batcher.Discard()
		clear(w.pending)
		w.err = err
		w.log.Error("write call failed",
			zap.String("records", what),
			zap.Bool("conformance", IsConformance(err)),
			zap.Error(err),
		)
		return false
	}

	w.err = nil
	w.log.Info("write call finished",
		zap.String("records", what),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("buckets", len(w.batcher.Buckets())),
	)
	return true
}

func (w *Writer) writeRelAsNode(r core.RelAsNode) error {
	if r.Source.Type == "" {
		r.Source.Type = core.IsSourceOf
	}
	if r.Target.Type == "" {
		r.Target.Type = core.IsTargetOf
	}
	if err := w.writeNode(r.Node); err != nil {
		return err
	}
	if err := w.writeEdge(r.Source); err != nil {
		return err
	}
	return w.writeEdge(r.Target)
}

func (w *Writer) writeNode(n core.Node) error {
	if n.ID == "" {
		return fmt.Errorf("%w: node of type %q", ErrMissingID, n.Type)
	}
	if n.Type == "" {
		return fmt.Errorf("%w: node %q", ErrMissingType, n.ID)
	}

	key := entityKey{typ: n.Type, id: n.ID}
	dup, err := w.isDuplicate(key)
	if err != nil {
		return err
	}
	if dup {
		w.dupNodeTypes = append(w.dupNodeTypes, n.Type)
		w.dupNodeIDs = append(w.dupNodeIDs, n.ID)
		return nil
	}

	layout, err := w.nodeLayout(n.Type)
	if err != nil {
		return err
	}
	if err := Conform(n.Type, n.ID, layout.declared(w.cfg.StrictMode), n.Properties); err != nil {
		return err
	}

	// Pending before append: a full part commits the key straight away
	w.pending[key] = struct{}{}
	r := row{text: w.format.nodeRow(layout, n, w.cfg.StrictMode), mark: key}
	return w.batcher.append(BucketKey{Name: layout.bucket, Kind: NodeBucket}, layout.header, r)
}

func (w *Writer) writeEdge(e core.Edge) error {
	if e.SourceID == "" || e.TargetID == "" {
		return fmt.Errorf("%w: %s edge %q -> %q", ErrMissingID, e.Type, e.SourceID, e.TargetID)
	}
	if e.Type == "" {
		return fmt.Errorf("%w: edge %q -> %q", ErrMissingType, e.SourceID, e.TargetID)
	}

	inputType := e.InputType
	if inputType == "" {
		inputType = e.Type
	}
	pairID := EdgePairID(e.SourceID, e.TargetID)
	key := entityKey{edge: true, typ: inputType, id: pairID}
	dup, err := w.isDuplicate(key)
	if err != nil {
		return err
	}
	if dup {
		w.dupEdgeTypes = append(w.dupEdgeTypes, inputType)
		w.dupEdgeIDs = append(w.dupEdgeIDs, pairID)
		return nil
	}

	specs := w.properties(e.Type)
	if err := Conform(e.Type, pairID, specs, e.Properties); err != nil {
		return err
	}

	w.pending[key] = struct{}{}
	r := row{text: w.format.edgeRow(specs, e), mark: key}
	return w.batcher.append(BucketKey{Name: e.Type, Kind: EdgeBucket}, w.format.edgeHeader(specs), r)
}

func (w *Writer) isDuplicate(key entityKey) (bool, error) {
	if _, ok := w.pending[key]; ok {
		return true, nil
	}
	ok, err := seen(w.tracker, key)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return ok, nil
}

func (w *Writer) properties(typeName string) []core.PropertySpec {
	if w.schema == nil {
		return nil
	}
	specs, _ := w.schema.Properties(typeName)
	return specs
}

// nodeLayout resolves and caches the labels and columns of a leaf type
func (w *Writer) nodeLayout(leaf string) (*nodeLayout, error) {
	if l, ok := w.layouts[leaf]; ok {
		return l, nil
	}
	if w.resolver == nil {
		return nil, errors.New("no ontology resolver configured")
	}

	bucket, labels, err := ontology.Labels(w.resolver, leaf)
	if err != nil {
		return nil, err
	}
	l := w.format.newNodeLayout(bucket, labels, w.properties(leaf), w.cfg.StrictMode)
	w.layouts[leaf] = l
	return l, nil
}

// DuplicateNodes returns the types and ids of suppressed duplicate nodes
func (w *Writer) DuplicateNodes() (types, ids []string) {
	return append([]string(nil), w.dupNodeTypes...), append([]string(nil), w.dupNodeIDs...)
}

// DuplicateEdges returns the input relationship names and "source_target"
// ids of suppressed duplicate edges
func (w *Writer) DuplicateEdges() (types, ids []string) {
	return append([]string(nil), w.dupEdgeTypes...), append([]string(nil), w.dupEdgeIDs...)
}

// Buckets returns the buckets written so far
func (w *Writer) Buckets() []BucketStats {
	return w.batcher.Buckets()
}

// Close releases the duplicate tracker. Every successful write call has
// already flushed its files.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.batcher.Discard()
	return w.tracker.Close()
}
