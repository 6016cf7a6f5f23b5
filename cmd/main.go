package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mouaalim/mouaalim-backend/internal/clients/gemini"
	"github.com/mouaalim/mouaalim-backend/internal/clients/rediscache"
	"github.com/mouaalim/mouaalim-backend/internal/config"
	"github.com/mouaalim/mouaalim-backend/internal/data/db"
	"github.com/mouaalim/mouaalim-backend/internal/data/graph"
	"github.com/mouaalim/mouaalim-backend/internal/data/repos"
	"github.com/mouaalim/mouaalim-backend/internal/embedding"
	"github.com/mouaalim/mouaalim-backend/internal/handlers"
	"github.com/mouaalim/mouaalim-backend/internal/middleware"
	"github.com/mouaalim/mouaalim-backend/internal/observability"
	"github.com/mouaalim/mouaalim-backend/internal/platform/logger"
	"github.com/mouaalim/mouaalim-backend/internal/platform/neo4jdb"
	"github.com/mouaalim/mouaalim-backend/internal/platform/qdrant"
	"github.com/mouaalim/mouaalim-backend/internal/report"
	"github.com/mouaalim/mouaalim-backend/internal/retrieval"
	"github.com/mouaalim/mouaalim-backend/internal/server"
	"github.com/mouaalim/mouaalim-backend/internal/services"
	"github.com/mouaalim/mouaalim-backend/internal/tutor"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Config
	cfg, err := config.Load("")
	if err != nil {
		log.Fatal("Config load failed", "error", err)
	}

	// Tracing
	otelStop := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "mouaalim-backend",
		Environment: os.Getenv("APP_ENV"),
		Version:     os.Getenv("APP_VERSION"),
	})
	if otelStop != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelStop(shutdownCtx); err != nil {
				log.Warn("otel shutdown failed", "error", err)
			}
		}()
	}

	// Knowledge graph
	log.Info("Connecting to Neo4j...")
	neo, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Fatal("Neo4j init failed", "error", err)
	}
	defer neo.Close(context.Background())
	curriculum := graph.NewCurriculum(neo, log)

	// Vector store
	log.Info("Connecting to Qdrant...")
	qcfg, err := qdrant.ResolveConfigFromEnv()
	if err != nil {
		log.Fatal("Qdrant config invalid", "error", err)
	}
	store, err := qdrant.NewStore(log, qcfg)
	if err != nil {
		log.Fatal("Qdrant init failed", "error", err)
	}

	// Embeddings + generation
	embedder, err := embedding.NewFromConfig(cfg.Embedding, log)
	if err != nil {
		log.Fatal("Embedder init failed", "error", err)
	}
	generator, err := gemini.NewClient(cfg.Generation, log)
	if err != nil {
		log.Fatal("Gemini client init failed", "error", err)
	}

	// Retrieval
	retrOpts := []retrieval.Option{}
	if cfg.Retrieval.RerankerURL != "" {
		reranker := retrieval.NewHTTPReranker(cfg.Retrieval.RerankerURL, time.Duration(cfg.Retrieval.TimeoutSeconds)*time.Second, log)
		retrOpts = append(retrOpts, retrieval.WithReranker(reranker))
	}
	cache, err := rediscache.NewFromEnv(time.Duration(cfg.Retrieval.CacheTTLSeconds)*time.Second, log)
	if err != nil {
		log.Warn("Redis cache init failed, continuing without cache", "error", err)
	} else if cache != nil {
		defer cache.Close()
		retrOpts = append(retrOpts, retrieval.WithCache(cache))
	}
	retriever := retrieval.NewRetriever(
		embedder,
		store,
		cfg.Retrieval.FetchK,
		cfg.Retrieval.RerankK,
		time.Duration(cfg.Retrieval.TimeoutSeconds)*time.Second,
		log,
		retrOpts...,
	)

	// Session archive
	var archive services.SessionArchiver
	dbService, err := db.New(log)
	if err != nil {
		log.Warn("Session archive DB init failed, continuing without archive", "error", err)
	} else {
		if err := dbService.AutoMigrateAll(); err != nil {
			log.Warn("Session archive migration failed", "error", err)
		}
		archive = repos.NewSessionArchive(dbService.DB(), log)
	}

	// Service
	assembler := tutor.NewContextAssembler(curriculum, retriever)
	sessions := tutor.NewSessionStore()
	renderer := report.NewRenderer(cfg.Report, log)
	tutorSvc := services.NewTutorService(cfg, curriculum, assembler, embedder, generator, sessions, renderer, archive, log)

	// HTTP
	tutorHandler := handlers.NewTutorHandler(log, tutorSvc, sessions, curriculum)
	router := server.NewRouter(server.RouterConfig{
		TutorHandler:  tutorHandler,
		RequestLogger: middleware.NewRequestLogger(log),
		LessonsDir:    cfg.Report.LessonsDir,
		ReportsDir:    cfg.Report.ReportsDir,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Fatal("Server failed", "error", err)
	}
}
