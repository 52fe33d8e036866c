package export

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingID      = errors.New("missing identifier")
	ErrMissingType    = errors.New("missing type")
	ErrHeaderMismatch = errors.New("bucket header mismatch")
	ErrBucketConflict = errors.New("node and relationship buckets share a name")
	ErrIO             = errors.New("output failure")
	ErrClosed         = errors.New("writer is closed")
)

// SchemaConformanceError reports an entity whose properties do not match the
// declared properties of its type.
type SchemaConformanceError struct {
	Type       string   // Schema type name
	ID         string   // Node id or "source_target" for edges
	Missing    []string // Declared but absent
	Extra      []string // Present but not declared
	Mismatched []string // "name: want X, got Y"
}

func (e *SchemaConformanceError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Extra) > 0 {
		parts = append(parts, "undeclared "+strings.Join(e.Extra, ", "))
	}
	if len(e.Mismatched) > 0 {
		parts = append(parts, "wrong kind "+strings.Join(e.Mismatched, ", "))
	}
	return fmt.Sprintf("%s %q does not conform to schema: %s", e.Type, e.ID, strings.Join(parts, "; "))
}

// IsConformance reports whether err is caused by a schema conformance failure
func IsConformance(err error) bool {
	var ce *SchemaConformanceError
	return errors.As(err, &ce)
}
