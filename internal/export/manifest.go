package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ManifestVersion is the current manifest format version
const ManifestVersion = 1

// ManifestFile is the file written by WriteManifest
const ManifestFile = "export-manifest.json"

// ExportManifest describes the files of one export run
type ExportManifest struct {
	Version        int              `json:"version"`
	RunID          string           `json:"run_id"`
	Created        time.Time        `json:"created"`
	Modified       time.Time        `json:"modified"`
	Delimiter      string           `json:"delimiter"`
	ArrayDelimiter string           `json:"array_delimiter"`
	Quote          string           `json:"quote"`
	BatchSize      int              `json:"batch_size"`
	Nodes          []BucketManifest `json:"nodes"`
	Relationships  []BucketManifest `json:"relationships"`
	DuplicateNodes int              `json:"duplicate_nodes"`
	DuplicateEdges int              `json:"duplicate_edges"`
	ImportCall     string           `json:"import_call"`
}

// BucketManifest lists the files of one bucket
type BucketManifest struct {
	BucketStats
	HeaderFile string   `json:"header_file"`
	PartFiles  []string `json:"part_files"`
}

// Manifest summarises everything written so far
func (w *Writer) Manifest() ExportManifest {
	m := ExportManifest{
		Version:        ManifestVersion,
		RunID:          w.runID,
		Created:        w.created,
		Modified:       time.Now().UTC(),
		Delimiter:      w.cfg.Delimiter,
		ArrayDelimiter: w.cfg.ArrayDelimiter,
		Quote:          w.cfg.Quote,
		BatchSize:      w.batcher.BatchSize(),
		Nodes:          []BucketManifest{},
		Relationships:  []BucketManifest{},
		DuplicateNodes: len(w.dupNodeIDs),
		DuplicateEdges: len(w.dupEdgeIDs),
		ImportCall:     w.ImportCall(),
	}

	for _, bk := range w.batcher.Buckets() {
		entry := BucketManifest{BucketStats: bk, HeaderFile: HeaderFile(bk.Name)}
		for i := 0; i < bk.Parts; i++ {
			entry.PartFiles = append(entry.PartFiles, PartFile(bk.Name, i))
		}
		if bk.Kind == NodeBucket {
			m.Nodes = append(m.Nodes, entry)
		} else {
			m.Relationships = append(m.Relationships, entry)
		}
	}
	return m
}

// WriteManifest writes the manifest into the output directory
func (w *Writer) WriteManifest() (string, error) {
	data, err := json.MarshalIndent(w.Manifest(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding manifest: %w", err)
	}
	path := filepath.Join(w.cfg.OutputDir, ManifestFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("%w: writing manifest: %w", ErrIO, err)
	}
	return path, nil
}

// ReadManifest loads a manifest written by WriteManifest
func ReadManifest(path string) (*ExportManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m ExportManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if m.Version != ManifestVersion {
		return nil, fmt.Errorf("unsupported manifest version %d", m.Version)
	}
	return &m, nil
}

// Buckets returns the node buckets followed by the relationship buckets
func (m *ExportManifest) Buckets() []BucketStats {
	stats := make([]BucketStats, 0, len(m.Nodes)+len(m.Relationships))
	for _, b := range m.Nodes {
		b.Kind = NodeBucket
		stats = append(stats, b.BucketStats)
	}
	for _, b := range m.Relationships {
		b.Kind = EdgeBucket
		stats = append(stats, b.BucketStats)
	}
	return stats
}
