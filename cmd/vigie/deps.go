package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/vigie-publique/vigie-core/internal/application/handlers"
	"github.com/vigie-publique/vigie-core/internal/domain/ports"
	"github.com/vigie-publique/vigie-core/internal/domain/services"
	"github.com/vigie-publique/vigie-core/internal/infrastructure/config"
	embedder "github.com/vigie-publique/vigie-core/internal/infrastructure/embedder/openai"
	llm "github.com/vigie-publique/vigie-core/internal/infrastructure/llm/openai"
	"github.com/vigie-publique/vigie-core/internal/infrastructure/pagefetch"
	"github.com/vigie-publique/vigie-core/internal/infrastructure/store/sqlite"
	"github.com/vigie-publique/vigie-core/internal/infrastructure/vectordb/qdrant"
	"github.com/vigie-publique/vigie-core/internal/infrastructure/websearch"
)

// Deps holds high-level dependencies for commands.
// Only handlers are exposed - services and repositories are internal.
type Deps struct {
	Config            *config.Config
	FiguresHandler    *handlers.FiguresHandler
	ProminenceHandler *handlers.ProminenceHandler
	StatusHandler     *handlers.StatusHandler
	DedupHandler      *handlers.DedupHandler
	ModerateHandler   *handlers.ModerateHandler
	EnrichHandler     *handlers.EnrichHandler
	MentionsHandler   *handlers.MentionsHandler
}

// withDeps loads config and builds dependencies, then calls the provided
// function. It handles cleanup automatically. The classifier is only built
// when an API key is configured; read-only commands and dry runs work
// without one, and the moderation and enrichment entry points refuse to
// start a real pass when it is absent.
func withDeps(ctx context.Context, fn func(*Deps) error) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	store, err := sqlite.NewRepository(config.SQLiteConfig{Path: cfg.DatabasePath(cwd)})
	if err != nil {
		return fmt.Errorf("creating sqlite store: %w", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring sqlite schema: %w", err)
	}

	var classifier ports.Classifier
	if cfg.LLM.APIKey != "" {
		c, err := llm.NewClient(cfg.LLM)
		if err != nil {
			return fmt.Errorf("creating classifier client: %w", err)
		}
		classifier = c
	}

	// The vector index is optional; without it duplicate detection runs on
	// deterministic signals only.
	var emb ports.Embedder
	var vectors ports.VectorIndex
	if cfg.Qdrant.Enabled {
		e, err := embedder.NewEmbedder(cfg.Embedder)
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}
		index, err := qdrant.NewRepository(cfg.Qdrant)
		if err != nil {
			return fmt.Errorf("creating qdrant index: %w", err)
		}
		defer index.Close()
		if err := index.EnsureCollection(ctx, embedder.VectorSize); err != nil {
			return fmt.Errorf("ensuring qdrant collection: %w", err)
		}
		emb = e
		vectors = index
	}

	limiter := services.NewRateLimiter(
		time.Duration(cfg.Moderation.CallIntervalMS)*time.Millisecond,
		time.Duration(cfg.Moderation.RateLimitPauseS)*time.Second,
	)

	var search ports.SearchClient
	if cfg.Search.Endpoint != "" {
		search, err = websearch.NewClient(cfg.Search)
		if err != nil {
			return fmt.Errorf("creating search client: %w", err)
		}
	} else {
		search = noopSearch{}
	}

	detector := services.NewDuplicateDetector(store, emb, vectors, logger)
	merger := services.NewReconciliationMerger(store, vectors, logger)
	enricher := services.NewEnrichmentAgent(store, search, pagefetch.NewExtractor(), classifier, limiter, logger)
	enricher.SetMinConfidence(cfg.Moderation.EnrichMinConfidence)
	pipeline := services.NewModerationPipeline(store, classifier, limiter, detector, merger, enricher, logger)

	deps := &Deps{
		Config:            cfg,
		FiguresHandler:    handlers.NewFiguresHandler(store),
		ProminenceHandler: handlers.NewProminenceHandler(services.NewProminenceService(store, logger)),
		StatusHandler:     handlers.NewStatusHandler(services.NewStatusEngine(store, logger)),
		DedupHandler:      handlers.NewDedupHandler(detector, merger),
		ModerateHandler:   handlers.NewModerateHandler(pipeline),
		EnrichHandler:     handlers.NewEnrichHandler(enricher),
		MentionsHandler:   handlers.NewMentionsHandler(store),
	}

	return fn(deps)
}

// noopSearch stands in when no search endpoint is configured; enrichment
// then reports nothing found instead of failing.
type noopSearch struct{}

func (noopSearch) Search(ctx context.Context, query string, limit int) ([]ports.SearchResult, error) {
	return nil, nil
}
