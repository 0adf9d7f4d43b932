package main

import (
	"context"
	"fmt"
	"os"

	"todolist/internal/config"
	"todolist/internal/database"
	"todolist/internal/logging"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var seedFile string

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create the database and todos table if missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, cleanup, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		fmt.Fprintf(cmd.OutOrStdout(), "database ready (%s)\n", db.Driver())
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the titles listed in a YAML file",
	Long: `Seed bootstraps the database and inserts every title from the file in one
transaction. The file looks like:

  todos:
    - Buy milk
    - Walk the dog`,
	RunE: func(cmd *cobra.Command, args []string) error {
		titles, err := readSeedFile(seedFile)
		if err != nil {
			return err
		}

		db, cleanup, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		created, err := db.SeedTodos(cmd.Context(), titles)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d todos\n", len(created))
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "configs/todos.yaml", "YAML file with a todos list")
}

type seedDocument struct {
	Todos []string `yaml:"todos"`
}

func readSeedFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var doc seedDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return doc.Todos, nil
}

// openDB loads the full config, bootstraps the database and returns a
// cleanup func that closes both the pool and the log output.
func openDB(ctx context.Context) (*database.DB, func(), error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if flagVerbose {
		cfg.Logging.Level = zerolog.DebugLevel.String()
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}

	closeLog := func() {
		if closer != nil {
			_ = closer.Close()
		}
	}

	db, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	return db, func() {
		_ = db.Close()
		closeLog()
	}, nil
}
