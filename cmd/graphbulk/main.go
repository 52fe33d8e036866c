package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/systemshift/graphbulk/internal/config"
	"github.com/systemshift/graphbulk/internal/logger"
)

var (
	configPath string
	logLevel   string

	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "graphbulk",
	Short:         "Write graph data as neo4j-admin bulk import files",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}

		log, err = logger.New(cfg.Log.Level, cfg.Log.JSON)
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		logger.SetLogger(log)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			log.Sync()
		}
	},
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(exportCmd(), verifyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, render(errorStyle, "Error: "+err.Error()))
		os.Exit(1)
	}
}
