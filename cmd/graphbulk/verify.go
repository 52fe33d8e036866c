package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/systemshift/graphbulk/internal/config"
	"github.com/systemshift/graphbulk/internal/export"
	"github.com/systemshift/graphbulk/internal/server/graph"
)

type verifyOptions struct {
	manifestPath string
	ensure       bool
	timeout      time.Duration
}

func verifyCmd() *cobra.Command {
	var opts verifyOptions

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Compare an imported database with the export manifest",
		Long: `Counts the nodes of every exported label and the relationships of every
exported type in the target database and reports buckets with fewer entities
than were written. Run it after neo4j-admin import has finished.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context(), cfg, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.manifestPath, "manifest", "", "export manifest (default: <output_dir>/"+export.ManifestFile+")")
	f.BoolVar(&opts.ensure, "ensure-db", false, "create and start the target database first")
	f.DurationVar(&opts.timeout, "timeout", 5*time.Minute, "overall timeout")
	return cmd
}

func runVerify(ctx context.Context, cfg *config.Config, opts verifyOptions) error {
	path := opts.manifestPath
	if path == "" {
		path = filepath.Join(cfg.Export.OutputDir, export.ManifestFile)
	}
	m, err := export.ReadManifest(path)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	repo, err := graph.New(ctx, graph.Config{
		URI:      cfg.Neo4j.URI,
		Username: cfg.Neo4j.Username,
		Password: cfg.Neo4j.Password,
		Database: cfg.Neo4j.Database,
	})
	if err != nil {
		return err
	}
	defer repo.Close(context.Background())

	if opts.ensure {
		if err := repo.EnsureDatabase(ctx); err != nil {
			return err
		}
	}

	checks, err := repo.Verify(ctx, m.Buckets())
	if err != nil {
		return err
	}

	fmt.Println(render(titleStyle, "graphbulk verify") + " " + render(dimStyle, repo.Database()+" run "+m.RunID))
	short := 0
	for _, c := range checks {
		line := fmt.Sprintf("  %-14s %-40s %d/%d", c.Kind, c.Name, c.Actual, c.Expected)
		if c.OK() {
			fmt.Println(render(okStyle, line))
			continue
		}
		short++
		fmt.Println(render(errorStyle, line))
	}

	log.Info("verified import",
		zap.String("database", repo.Database()),
		zap.Int("buckets", len(checks)),
		zap.Int("short", short),
	)
	if short > 0 {
		return fmt.Errorf("%d of %d buckets have fewer entities than exported", short, len(checks))
	}
	return nil
}
