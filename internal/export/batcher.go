package export

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/systemshift/graphbulk/internal/logger"
)

// BucketKind distinguishes node buckets from relationship buckets
type BucketKind int

const (
	NodeBucket BucketKind = iota
	EdgeBucket
)

func (k BucketKind) String() string {
	if k == NodeBucket {
		return "nodes"
	}
	return "relationships"
}

// BucketKey identifies the header and part files of one type
type BucketKey struct {
	Name string
	Kind BucketKind
}

// BucketStats describes what has been written for one bucket
type BucketStats struct {
	Name   string     `json:"name"`
	Kind   BucketKind `json:"-"`
	Header string     `json:"header"`
	Parts  int        `json:"parts"`
	Rows   int        `json:"rows"`
}

// HeaderFile returns the header file name of a bucket
func HeaderFile(name string) string {
	return name + "-header.csv"
}

// PartFile returns the file name of part index of a bucket
func PartFile(name string, index int) string {
	return fmt.Sprintf("%s-part%03d.csv", name, index)
}

// PartGlob returns the glob matching every part file of a bucket
func PartGlob(name string) string {
	return name + "-part.*"
}

// row is one encoded line plus the duplicate-tracker key it commits
type row struct {
	text string
	mark entityKey
}

type bucket struct {
	key    BucketKey
	header string
	rows   []row
	parts  int // Next part index
	total  int // Rows on disk
}

// Batcher groups encoded rows per bucket and writes them as numbered part
// files of at most batchSize rows. Rows are held in memory until a part is
// full or Flush is called, so Discard can drop everything not yet on disk.
// Part numbering continues across Flush calls for the lifetime of the Batcher.
type Batcher struct {
	dir       string
	batchSize int
	buckets   map[BucketKey]*bucket
	names     map[string]BucketKind
	order     []BucketKey // Buckets in order of first append
	touched   []BucketKey // Buckets with buffered rows, in order of first append
	commit    func([]entityKey) error
	log       logger.Logger
}

// BatchRows truncates a configured batch size toward a row count
func BatchRows(size float64) (int, error) {
	if math.IsNaN(size) || size < 1 {
		return 0, fmt.Errorf("batch size must be at least 1, got %v", size)
	}
	if size > 1<<40 {
		size = 1 << 40
	}
	return int(size), nil
}

// NewBatcher creates a Batcher writing into dir
func NewBatcher(dir string, batchSize float64, log logger.Logger) (*Batcher, error) {
	n, err := BatchRows(batchSize)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Batcher{
		dir:       dir,
		batchSize: n,
		buckets:   make(map[BucketKey]*bucket),
		names:     make(map[string]BucketKind),
		log:       log,
	}, nil
}

// BatchSize returns the maximum rows per part file
func (b *Batcher) BatchSize() int {
	return b.batchSize
}

// Append buffers a row for key, writing a part file once the buffer holds
// batchSize rows. header must be identical for every row of a bucket.
func (b *Batcher) Append(key BucketKey, header, text string) error {
	return b.append(key, header, row{text: text})
}

func (b *Batcher) append(key BucketKey, header string, r row) error {
	bk, ok := b.buckets[key]
	if !ok {
		if kind, taken := b.names[key.Name]; taken && kind != key.Kind {
			return fmt.Errorf("%w: %s", ErrBucketConflict, key.Name)
		}
		bk = &bucket{key: key, header: header}
		b.buckets[key] = bk
		b.names[key.Name] = key.Kind
		b.order = append(b.order, key)
	}
	if bk.header != header {
		return fmt.Errorf("%w: %s has %q, row has %q", ErrHeaderMismatch, key.Name, bk.header, header)
	}

	if len(bk.rows) == 0 {
		b.touched = append(b.touched, key)
	}
	bk.rows = append(bk.rows, r)

	if len(bk.rows) >= b.batchSize {
		return b.flushBucket(bk)
	}
	return nil
}

// Flush writes every buffered row as part files
func (b *Batcher) Flush() error {
	touched := b.touched
	b.touched = nil
	for i, key := range touched {
		bk := b.buckets[key]
		if len(bk.rows) == 0 {
			continue
		}
		if err := b.flushBucket(bk); err != nil {
			b.touched = append(b.touched, touched[i:]...)
			return err
		}
	}
	return nil
}

// Discard drops every buffered row. Buckets that never reached the disk are
// forgotten.
func (b *Batcher) Discard() {
	order := b.order[:0]
	for _, key := range b.order {
		bk := b.buckets[key]
		bk.rows = nil
		if bk.parts == 0 {
			delete(b.buckets, key)
			delete(b.names, key.Name)
			continue
		}
		order = append(order, key)
	}
	b.order = order
	b.touched = nil
}

// Buckets returns the buckets that have files on disk, in the order they
// first received a row.
func (b *Batcher) Buckets() []BucketStats {
	stats := make([]BucketStats, 0, len(b.order))
	for _, key := range b.order {
		bk := b.buckets[key]
		if bk.parts == 0 {
			continue
		}
		stats = append(stats, BucketStats{
			Name:   key.Name,
			Kind:   key.Kind,
			Header: bk.header,
			Parts:  bk.parts,
			Rows:   bk.total,
		})
	}
	return stats
}

func (b *Batcher) flushBucket(bk *bucket) error {
	if bk.parts == 0 {
		path := filepath.Join(b.dir, HeaderFile(bk.key.Name))
		if err := writeFile(path, func(w *bufio.Writer) error {
			_, err := w.WriteString(bk.header)
			return err
		}); err != nil {
			return err
		}
	}

	path := filepath.Join(b.dir, PartFile(bk.key.Name, bk.parts))
	if err := writeFile(path, func(w *bufio.Writer) error {
		for _, r := range bk.rows {
			if _, err := w.WriteString(r.text); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		if bk.parts == 0 {
			os.Remove(filepath.Join(b.dir, HeaderFile(bk.key.Name)))
		}
		os.Remove(path)
		return err
	}

	bk.parts++
	bk.total += len(bk.rows)

	if b.commit != nil {
		marks := make([]entityKey, 0, len(bk.rows))
		for _, r := range bk.rows {
			if r.mark.id != "" {
				marks = append(marks, r.mark)
			}
		}
		if err := b.commit(marks); err != nil {
			bk.rows = nil
			return err
		}
	}

	b.log.Debug("wrote part file",
		zap.String("bucket", bk.key.Name),
		zap.String("kind", bk.key.Kind.String()),
		zap.String("path", path),
		zap.Int("rows", len(bk.rows)),
	)
	bk.rows = nil
	return nil
}

// writeFile creates path and writes it through a buffered writer. The file
// is always closed; a close error is reported if nothing failed earlier.
func writeFile(path string, fill func(w *bufio.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %w", ErrIO, path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: closing %s: %w", ErrIO, path, cerr)
		}
	}()

	w := bufio.NewWriter(f)
	if err := fill(w); err != nil {
		return fmt.Errorf("%w: writing %s: %w", ErrIO, path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: writing %s: %w", ErrIO, path, err)
	}
	return nil
}
