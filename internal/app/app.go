// Package app wires the process: clients, stores, consumers, health server.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/interestgraph-backend/internal/consumers"
	"github.com/yungbote/interestgraph-backend/internal/data/db"
	"github.com/yungbote/interestgraph-backend/internal/data/graph"
	"github.com/yungbote/interestgraph-backend/internal/data/repos/posts"
	"github.com/yungbote/interestgraph-backend/internal/engine"
	"github.com/yungbote/interestgraph-backend/internal/observability"
	"github.com/yungbote/interestgraph-backend/internal/platform/logger"
	"github.com/yungbote/interestgraph-backend/internal/platform/neo4jdb"
	"github.com/yungbote/interestgraph-backend/internal/server"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Clients  Clients
	Store    graph.Store
	Engine   engine.Service
	Pipeline *consumers.Pipeline

	neo4j        *neo4jdb.Client
	health       *server.HealthServer
	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig()

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	neo, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init neo4j: %w", err)
	}
	store, err := graph.NewNeo4jStore(neo, log)
	if err != nil {
		_ = neo.Close(ctx)
		log.Sync()
		return nil, fmt.Errorf("init graph store: %w", err)
	}

	clients, err := wireClients(log)
	if err != nil {
		_ = neo.Close(ctx)
		log.Sync()
		return nil, err
	}

	// Post metadata rides on Postgres when one is configured; the graph is
	// the system of record either way.
	var meta posts.MetadataRepo
	if strings.TrimSpace(os.Getenv("POSTGRES_HOST")) != "" {
		pg, err := db.NewPostgresService(log)
		if err != nil {
			clients.Close()
			_ = neo.Close(ctx)
			log.Sync()
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		if err := pg.AutoMigrateAll(); err != nil {
			clients.Close()
			_ = neo.Close(ctx)
			log.Sync()
			return nil, fmt.Errorf("postgres automigrate: %w", err)
		}
		meta = posts.NewMetadataRepo(pg.DB(), log)
	} else {
		log.Warn("POSTGRES_HOST not set, photo analysis metadata will not be persisted")
	}

	eng, err := engine.NewService(log, store, clients.ResultsBus)
	if err != nil {
		clients.Close()
		_ = neo.Close(ctx)
		log.Sync()
		return nil, fmt.Errorf("init engine: %w", err)
	}

	base := consumers.Config{
		Brokers:           cfg.KafkaBrokers,
		ConnectRetries:    cfg.ConnectRetries,
		ConnectRetryDelay: cfg.ConnectRetryDelay,
	}
	photoCfg := base
	photoCfg.GroupID = cfg.PhotoGroupID
	interactionCfg := base
	interactionCfg.GroupID = cfg.InteractionGroupID
	recommendationCfg := base
	recommendationCfg.GroupID = cfg.RecommendationGroupID

	pipeline := consumers.NewPipeline(log,
		consumers.NewPhotoUploadConsumer(photoCfg, log, store, clients.Vision, clients.Images, meta),
		consumers.NewUserInteractionConsumer(interactionCfg, log, store),
		consumers.NewRecommendationConsumer(recommendationCfg, log, eng),
	)

	health := server.NewHealthServer(log, cfg.HealthAddr, pipeline.States)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Clients:      clients,
		Store:        store,
		Engine:       eng,
		Pipeline:     pipeline,
		neo4j:        neo,
		health:       health,
		otelShutdown: otelShutdown,
	}, nil
}

// Run blocks until ctx is cancelled or the pipeline fails fatally.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Pipeline.Run(ctx) })
	g.Go(func() error { return a.health.Run(ctx) })
	return g.Wait()
}

func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.neo4j != nil {
		_ = a.neo4j.Close(ctx)
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(ctx)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
