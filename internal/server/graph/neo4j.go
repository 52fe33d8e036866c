// Package graph talks to a running Neo4j instance: it prepares the target
// database of an import and checks the loaded counts against an export.
package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/systemshift/graphbulk/internal/export"
)

const systemDatabase = "system"

// Repository wraps Neo4j operations
type Repository struct {
	driver   neo4j.DriverWithContext
	database string
}

// Config holds Neo4j connection configuration
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// New creates a new Neo4j repository
func New(ctx context.Context, cfg Config) (*Repository, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("connecting to neo4j: %w", err)
	}

	database := cfg.Database
	if database == "" {
		database = "neo4j"
	}
	return &Repository{driver: driver, database: database}, nil
}

// Close closes the Neo4j connection
func (r *Repository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

// Database returns the database the repository reads from
func (r *Repository) Database() string {
	return r.database
}

// EnsureDatabase creates the target database if it does not exist and starts
// it. Only enterprise editions can host more than the default database.
func (r *Repository) EnsureDatabase(ctx context.Context) error {
	params := map[string]any{"name": r.database}
	// Administration commands cannot share a transaction
	for _, query := range ensureDatabaseQueries() {
		_, err := neo4j.ExecuteQuery(ctx, r.driver, query, params,
			neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(systemDatabase),
			neo4j.ExecuteQueryWithWritersRouting(),
		)
		if err != nil {
			return fmt.Errorf("ensuring database %s: %w", r.database, err)
		}
	}
	return nil
}

func ensureDatabaseQueries() []string {
	return []string{
		"CREATE DATABASE $name IF NOT EXISTS",
		"START DATABASE $name",
	}
}

// NodeCount counts the nodes carrying label, or every node if label is empty
func (r *Repository) NodeCount(ctx context.Context, label string) (int64, error) {
	return r.count(ctx, nodeCountQuery(label))
}

// EdgeCount counts the relationships of relType, or every relationship if
// relType is empty
func (r *Repository) EdgeCount(ctx context.Context, relType string) (int64, error) {
	return r.count(ctx, edgeCountQuery(relType))
}

func (r *Repository) count(ctx context.Context, query string) (int64, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: r.database})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		c, _ := record.Get("c")
		n, ok := c.(int64)
		if !ok {
			return nil, fmt.Errorf("unexpected count type %T", c)
		}
		return n, nil
	})
	if err != nil {
		return 0, fmt.Errorf("running %q: %w", query, err)
	}
	return result.(int64), nil
}

// CountCheck compares the rows exported for a bucket with what the database holds
type CountCheck struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Expected int64  `json:"expected"`
	Actual   int64  `json:"actual"`
}

// OK reports whether the database holds at least the exported rows. Node
// labels are shared between buckets, so a label may count more nodes.
func (c CountCheck) OK() bool {
	return c.Actual >= c.Expected
}

// Verify counts every exported bucket in the database
func (r *Repository) Verify(ctx context.Context, buckets []export.BucketStats) ([]CountCheck, error) {
	checks := make([]CountCheck, 0, len(buckets))
	for _, bk := range buckets {
		check := CountCheck{Name: bk.Name, Kind: bk.Kind.String(), Expected: int64(bk.Rows)}
		var err error
		if bk.Kind == export.NodeBucket {
			check.Actual, err = r.NodeCount(ctx, bk.Name)
		} else {
			check.Actual, err = r.EdgeCount(ctx, bk.Name)
		}
		if err != nil {
			return nil, err
		}
		checks = append(checks, check)
	}
	return checks, nil
}

// escapeName quotes a label or relationship type for use in Cypher
func escapeName(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func nodeCountQuery(label string) string {
	if label == "" {
		return "MATCH (n) RETURN count(n) AS c"
	}
	return fmt.Sprintf("MATCH (n:%s) RETURN count(n) AS c", escapeName(label))
}

func edgeCountQuery(relType string) string {
	if relType == "" {
		return "MATCH ()-[r]->() RETURN count(r) AS c"
	}
	return fmt.Sprintf("MATCH ()-[r:%s]->() RETURN count(r) AS c", escapeName(relType))
}
