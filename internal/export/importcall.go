package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ImportCallFile is the script written by WriteImportCall
const ImportCallFile = "neo4j-admin-import-call.sh"

// shellQuoter escapes the characters that stay special inside double quotes
var shellQuoter = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`")

// ImportCall returns the neo4j-admin command that loads every bucket written
// so far. Node clauses come first, then relationship clauses, each in the
// order their buckets were first written. The line ends with a space.
func (w *Writer) ImportCall() string {
	var b strings.Builder
	fmt.Fprintf(&b, `bin/%s import --database=%s --delimiter="%s" --array-delimiter="%s" --quote="%s" --force=true `,
		w.cfg.Loader,
		w.cfg.Database,
		shellQuoter.Replace(w.cfg.Delimiter),
		shellQuoter.Replace(w.cfg.ArrayDelimiter),
		shellQuoter.Replace(w.cfg.Quote),
	)

	buckets := w.batcher.Buckets()
	for _, kind := range []BucketKind{NodeBucket, EdgeBucket} {
		for _, bk := range buckets {
			if bk.Kind != kind {
				continue
			}
			header := filepath.Join(w.cfg.OutputDir, HeaderFile(bk.Name))
			parts := filepath.Join(w.cfg.OutputDir, PartGlob(bk.Name))
			fmt.Fprintf(&b, `--%s="%s,%s" `, kind, shellQuoter.Replace(header), shellQuoter.Replace(parts))
		}
	}
	return b.String()
}

// WriteImportCall writes the import command into the output directory as an
// executable script and returns its path.
func (w *Writer) WriteImportCall() (string, error) {
	path := filepath.Join(w.cfg.OutputDir, ImportCallFile)
	call := w.ImportCall()
	if err := os.WriteFile(path, []byte(call), 0755); err != nil {
		return "", fmt.Errorf("%w: writing import call: %w", ErrIO, err)
	}
	w.log.Info("wrote import call", zap.String("path", path), zap.Int("buckets", len(w.batcher.Buckets())))
	return path, nil
}
