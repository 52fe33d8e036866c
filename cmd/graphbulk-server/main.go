package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/systemshift/graphbulk/internal/config"
	"github.com/systemshift/graphbulk/internal/export"
	"github.com/systemshift/graphbulk/internal/logger"
	"github.com/systemshift/graphbulk/internal/ontology"
	"github.com/systemshift/graphbulk/internal/schema"
	"github.com/systemshift/graphbulk/internal/server/api"
	"github.com/systemshift/graphbulk/internal/server/graph"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	schemaPath := flag.String("schema", "", "YAML file declaring the properties of each type")
	ontologyPath := flag.String("ontology", "", "class hierarchy: a SQLite database or a YAML class: parent map")
	withNeo4j := flag.Bool("neo4j", false, "connect to Neo4j to serve /api/verify")
	flag.Parse()

	if err := run(*configPath, *schemaPath, *ontologyPath, *withNeo4j); err != nil {
		fmt.Fprintf(os.Stderr, "graphbulk-server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, schemaPath, ontologyPath string, withNeo4j bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()
	logger.SetLogger(log)

	ctx := context.Background()

	props, err := schema.Load(schemaPath)
	if err != nil {
		return err
	}
	resolver, err := ontology.Open(ctx, ontologyPath)
	if err != nil {
		return err
	}
	defer resolver.Close()

	writer, err := newWriter(cfg.Export, props, resolver, log)
	if err != nil {
		return err
	}
	defer writer.Close()

	var repo *graph.Repository
	if withNeo4j {
		repo, err = graph.New(ctx, graph.Config{
			URI:      cfg.Neo4j.URI,
			Username: cfg.Neo4j.Username,
			Password: cfg.Neo4j.Password,
			Database: cfg.Neo4j.Database,
		})
		if err != nil {
			return err
		}
		defer repo.Close(ctx)
		log.Info("connected to neo4j", zap.String("uri", cfg.Neo4j.URI))
	}

	apiServer := api.New(writer, repo, log)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Mount("/", apiServer.Routes())

	// Batches can be large, so writes get no deadline
	srv := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     r,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting graphbulk server",
			zap.String("addr", "http://localhost:"+cfg.Server.Port),
			zap.String("output_dir", cfg.Export.OutputDir),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	if _, err := writer.WriteImportCall(); err != nil {
		log.Error("writing import call", zap.Error(err))
	}
	if _, err := writer.WriteManifest(); err != nil {
		log.Error("writing manifest", zap.Error(err))
	}
	log.Info("server exited")
	return nil
}

// newWriter builds the engine, closing the tracker again if that fails
func newWriter(ec config.ExportConfig, props export.Schema, resolver ontology.Resolver, log *zap.Logger) (*export.Writer, error) {
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

	writer, err := export.New(export.Config{
		OutputDir:      ec.OutputDir,
		Delimiter:      ec.Delimiter,
		ArrayDelimiter: ec.ArrayDelimiter,
		Quote:          ec.Quote,
		BatchSize:      ec.BatchSize,
		StrictMode:     ec.StrictMode,
		Database:       ec.Database,
		Loader:         ec.Loader,
	}, props, resolver, opts...)
	if err != nil {
		if tracker != nil {
			tracker.Close()
		}
		return nil, err
	}
	return writer, nil
}
