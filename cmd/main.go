package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"shop-catalog-service/internal/api"
	"shop-catalog-service/internal/auth"
	"shop-catalog-service/internal/config"
	"shop-catalog-service/internal/domain"
	"shop-catalog-service/internal/ecoscore"
	"shop-catalog-service/internal/logger"
	"shop-catalog-service/internal/store"
)

const (
	defaultAppName = "ShopCatalogService"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "json", os.Stderr).Fatal(err, "error loading configuration")
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat, os.Stdout).With(map[string]interface{}{"service": defaultAppName})
	if envErr != nil {
		log.Debug(".env file not found, relying on system environment variables")
	}
	log.Info("starting service in " + cfg.AppEnv + " mode")

	// --- Database Connection ---
	if cfg.Postgres.Migrate {
		if err := store.ApplyMigrations(cfg.Postgres.URL()); err != nil {
			log.Fatal(err, "failed to apply database migrations")
		}
		log.Info("database migrations applied")
	}

	db, err := sql.Open("postgres", cfg.Postgres.DSN())
	if err != nil {
		log.Fatal(err, "failed to initialize database connection")
	}
	if err := db.PingContext(context.Background()); err != nil {
		log.Fatal(err, "failed to ping database")
	}
	log.Info("database connection established")
	dbStore := store.NewPostgresStore(db)

	// --- Eco-score enrichment ---
	var enricher ecoscore.Enricher = ecoscore.Disabled{}
	var cache *ecoscore.Cache
	if cfg.EcoScore.Enabled {
		cache, err = ecoscore.NewCache(cfg.EcoScore.CachePath)
		if err != nil {
			log.Error(err, "eco-score cache unavailable, lookups will not be cached")
			cache = nil
		} else if purged, err := cache.Purge(context.Background()); err == nil && purged > 0 {
			log.Debug("purged expired eco-score cache entries")
		}
		client := ecoscore.NewClient(cfg.EcoScore.BaseURL, cfg.EcoScore.Timeout)
		enricher = ecoscore.NewService(client, cache, cfg.EcoScore.CacheTTL, cfg.EcoScore.DefaultBarcode, log.With(map[string]interface{}{"component": "ecoscore"}))
		log.Info("eco-score enrichment enabled against " + cfg.EcoScore.BaseURL)
	}

	// --- Initialize API Handlers ---
	renderer := api.NewRenderer(dbStore, dbStore, enricher, api.EnrichOptions{
		Budget:  cfg.EcoScore.RequestBudget,
		Workers: cfg.EcoScore.Concurrency,
	})
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	httpAPIHandler := api.NewHTTPHandler(dbStore, dbStore, dbStore, renderer, tokens, log, api.Options{
		PageSize: cfg.Catalog.PageSize,
		Cascade:  domain.CascadePolicy{Articles: cfg.Catalog.DisableCascadeArticles},
	})
	grpcAPIHandler := api.NewGRPCHandler(dbStore, dbStore, renderer, log, cfg.Catalog.PageSize)

	// --- Setup & Start HTTP Server ---
	httpRouter := chi.NewRouter()
	setupBaseMiddleware(httpRouter)
	registerHealthCheck(httpRouter, log, db)
	httpAPIHandler.RegisterRoutes(httpRouter)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HttpServer.Port,
		Handler:      httpRouter,
		ReadTimeout:  cfg.HttpServer.TimeoutRead,
		WriteTimeout: cfg.HttpServer.TimeoutWrite,
		IdleTimeout:  cfg.HttpServer.TimeoutIdle,
	}

	go func() {
		log.Info("HTTP server listening on port " + cfg.HttpServer.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err, "HTTP server ListenAndServe error")
		}
		log.Info("HTTP server has stopped")
	}()

	// --- Setup & Start gRPC Server ---
	grpcServer := setupGRPCServer(log, grpcAPIHandler)
	grpcListener, err := net.Listen("tcp", ":"+cfg.GrpcServer.Port)
	if err != nil {
		log.Fatal(err, "failed to listen for gRPC on port "+cfg.GrpcServer.Port)
	}

	go func() {
		log.Info("gRPC server listening on port " + cfg.GrpcServer.Port)
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Fatal(err, "gRPC server Serve error")
		}
		log.Info("gRPC server has stopped")
	}()

	// --- Graceful Shutdown ---
	shutdownComplete := make(chan struct{})
	go waitForShutdown(log, httpServer, grpcServer, dbStore, cache, shutdownComplete)

	<-shutdownComplete
	log.Info("service shutdown sequence finished")
}

func setupBaseMiddleware(router *chi.Mux) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
}

func registerHealthCheck(router *chi.Mux, log logger.Logger, db *sql.DB) {
	router.Get("/api/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		dbStatus := "healthy"
		if err := db.PingContext(ctx); err != nil {
			dbStatus = "unhealthy"
			log.Warn("health check DB ping failed: " + err.Error())
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK) // Always 200, the payload carries the detail
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "healthy",
			"serviceName": defaultAppName,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"database":    dbStatus,
		})
	})
}

func setupGRPCServer(log logger.Logger, grpcAPIHandler *api.GRPCHandler) *grpc.Server {
	s := grpc.NewServer()

	api.RegisterCatalogServiceServer(s, grpcAPIHandler)
	grpc_health_v1.RegisterHealthServer(s, health.NewServer())
	// Enable gRPC server reflection (useful for tools like grpcurl).
	reflection.Register(s)
	log.Debug("gRPC catalog, health and reflection services registered")

	return s
}

func waitForShutdown(
	log logger.Logger,
	httpServer *http.Server,
	grpcServer *grpc.Server,
	dbStore *store.PostgresStore,
	cache *ecoscore.Cache,
	shutdownComplete chan struct{},
) {
	defer close(shutdownComplete)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-sigChan
	log.Info("received signal " + receivedSignal.String() + ", starting graceful shutdown")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	stoppedGrpc := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stoppedGrpc)
	}()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server graceful shutdown failed: " + err.Error())
	} else {
		log.Info("HTTP server gracefully shut down")
	}

	select {
	case <-stoppedGrpc:
		log.Info("gRPC server gracefully shut down")
	case <-shutdownCtx.Done():
		log.Warn("gRPC server graceful shutdown timed out, forcing stop")
		grpcServer.Stop()
	}

	if err := dbStore.Close(); err != nil {
		log.Warn("error closing database connection: " + err.Error())
	}
	if cache != nil {
		if err := cache.Close(); err != nil {
			log.Warn("error closing eco-score cache: " + err.Error())
		}
	}

	log.Info("graceful shutdown sequence completed")
}
