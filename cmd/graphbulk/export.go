package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/systemshift/graphbulk/internal/config"
	"github.com/systemshift/graphbulk/internal/core"
	"github.com/systemshift/graphbulk/internal/export"
	"github.com/systemshift/graphbulk/internal/ontology"
	"github.com/systemshift/graphbulk/internal/schema"
)

type exportOptions struct {
	schemaPath   string
	ontologyPath string
	nodeFiles    []string
	edgeFiles    []string
	outputDir    string
	batchSize    float64
	strict       bool
}

func exportCmd() *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write node and edge files as import parts",
		Long: `Reads JSON-lines node and edge files and writes one header file and
numbered part files per label and relationship type, followed by the
neo4j-admin import call and an export manifest. Each input file is one write
call: a file with an invalid record contributes nothing that was not already
flushed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), cfg, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.schemaPath, "schema", "", "YAML file declaring the properties of each type")
	f.StringVar(&opts.ontologyPath, "ontology", "", "class hierarchy: a SQLite database or a YAML class: parent map")
	f.StringArrayVar(&opts.nodeFiles, "nodes", nil, "JSON-lines node file (repeatable)")
	f.StringArrayVar(&opts.edgeFiles, "edges", nil, "JSON-lines edge file (repeatable)")
	f.StringVarP(&opts.outputDir, "output", "o", "", "output directory (overrides config)")
	f.Float64Var(&opts.batchSize, "batch-size", 0, "rows per part file (overrides config)")
	f.BoolVar(&opts.strict, "strict", false, "require source, version and licence on every node")
	cmd.MarkFlagRequired("schema")
	cmd.MarkFlagRequired("ontology")
	return cmd
}

func runExport(ctx context.Context, cfg *config.Config, opts exportOptions) error {
	if opts.outputDir != "" {
		cfg.Export.OutputDir = opts.outputDir
	}
	if opts.batchSize != 0 {
		cfg.Export.BatchSize = opts.batchSize
	}
	if opts.strict {
		cfg.Export.StrictMode = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	props, err := schema.Load(opts.schemaPath)
	if err != nil {
		return err
	}
	resolver, err := ontology.Open(ctx, opts.ontologyPath)
	if err != nil {
		return err
	}
	defer resolver.Close()

	writer, err := newWriter(cfg.Export, props, resolver)
	if err != nil {
		return err
	}
	defer writer.Close()

	fmt.Println(render(titleStyle, "graphbulk export") + " " + render(dimStyle, cfg.Export.OutputDir))

	failed := 0
	for _, path := range opts.nodeFiles {
		if !writeFile(path, writer.WriteNodesFrom, writer) {
			failed++
		}
	}
	for _, path := range opts.edgeFiles {
		if !writeFile(path, writer.WriteEdgesFrom, writer) {
			failed++
		}
	}

	callPath, err := writer.WriteImportCall()
	if err != nil {
		return err
	}
	manifestPath, err := writer.WriteManifest()
	if err != nil {
		return err
	}

	printSummary(writer, callPath, manifestPath)
	if failed > 0 {
		return fmt.Errorf("%d of %d input files failed", failed, len(opts.nodeFiles)+len(opts.edgeFiles))
	}
	return nil
}

// newWriter builds the engine from the export settings
func newWriter(ec config.ExportConfig, props export.Schema, resolver ontology.Resolver) (*export.Writer, error) {
	opts := []export.Option{export.WithLogger(log)}
	var tracker *export.BadgerTracker
	if ec.DedupePath != "" {
		var err error
		tracker, err = export.NewBadgerTracker(ec.DedupePath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, export.WithTracker(tracker))
	}

	w, err := export.New(export.Config{
		OutputDir:      ec.OutputDir,
		Delimiter:      ec.Delimiter,
		ArrayDelimiter: ec.ArrayDelimiter,
		Quote:          ec.Quote,
		BatchSize:      ec.BatchSize,
		StrictMode:     ec.StrictMode,
		Database:       ec.Database,
		Loader:         ec.Loader,
	}, props, resolver, opts...)
	if err != nil && tracker != nil {
		tracker.Close()
	}
	return w, err
}

// writeFile runs one write call over a JSON-lines file
func writeFile(path string, call func(*core.Reader) bool, writer *export.Writer) bool {
	f, err := os.Open(path)
	if err != nil {
		fmt.Println(render(errorStyle, "✗ "+path) + " " + err.Error())
		return false
	}
	defer f.Close()

	if !call(core.NewReader(f)) {
		fmt.Println(render(errorStyle, "✗ "+path) + " " + writer.Err().Error())
		return false
	}
	fmt.Println(render(okStyle, "✓ "+path))
	return true
}

func printSummary(writer *export.Writer, callPath, manifestPath string) {
	fmt.Println()
	for _, bk := range writer.Buckets() {
		fmt.Printf("  %-14s %-40s %s\n",
			bk.Kind,
			bk.Name,
			render(dimStyle, fmt.Sprintf("%d rows in %d parts", bk.Rows, bk.Parts)))
	}

	_, nodeIDs := writer.DuplicateNodes()
	edgeTypes, edgeIDs := writer.DuplicateEdges()
	if len(nodeIDs) > 0 || len(edgeIDs) > 0 {
		fmt.Println()
		fmt.Println(render(titleStyle, fmt.Sprintf("Duplicates: %d nodes, %d edges", len(nodeIDs), len(edgeIDs))))
		for i, id := range edgeIDs {
			if i == 10 {
				fmt.Println(render(dimStyle, fmt.Sprintf("  ... %d more", len(edgeIDs)-i)))
				break
			}
			fmt.Println(render(dimStyle, "  "+edgeTypes[i]+" "+id))
		}
	}

	fmt.Println()
	fmt.Println(render(dimStyle, "import call: ") + callPath)
	fmt.Println(render(dimStyle, "manifest:    ") + manifestPath)
}
