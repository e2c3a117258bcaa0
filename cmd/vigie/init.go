package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vigie-publique/vigie-core/internal/infrastructure/config"
	embedder "github.com/vigie-publique/vigie-core/internal/infrastructure/embedder/openai"
	"github.com/vigie-publique/vigie-core/internal/infrastructure/store/sqlite"
	"github.com/vigie-publique/vigie-core/internal/infrastructure/vectordb/qdrant"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a new vigie database",
		Long:  "Creates a .vigie directory with default configuration and sets up the SQLite schema.",
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	if config.Exists(cwd) {
		return fmt.Errorf("vigie already initialized in %s", cwd)
	}

	if err := config.WriteDefault(cwd); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	fmt.Printf("Created %s\n", config.ConfigFilePath(cwd))

	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := sqlite.NewRepository(config.SQLiteConfig{Path: cfg.DatabasePath(cwd)})
	if err != nil {
		return fmt.Errorf("creating sqlite store: %w", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	fmt.Printf("Created database: %s\n", store.Path())

	if cfg.Qdrant.Enabled {
		if err := initQdrant(ctx, cfg); err != nil {
			return err
		}
		fmt.Printf("Created Qdrant collection: %s\n", cfg.Qdrant.Collection)
	}

	fmt.Println("Vigie initialized successfully!")
	return nil
}

func initQdrant(ctx context.Context, cfg *config.Config) error {
	index, err := qdrant.NewRepository(cfg.Qdrant)
	if err != nil {
		return fmt.Errorf("connecting to qdrant: %w", err)
	}
	defer index.Close()

	if err := index.EnsureCollection(ctx, embedder.VectorSize); err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}
	return nil
}
