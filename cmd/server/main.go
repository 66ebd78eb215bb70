package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/siocraft/finance-tracker-api/docs"
	"github.com/siocraft/finance-tracker-api/internal/audit"
	"github.com/siocraft/finance-tracker-api/internal/auth"
	"github.com/siocraft/finance-tracker-api/internal/config"
	"github.com/siocraft/finance-tracker-api/internal/database"
	"github.com/siocraft/finance-tracker-api/internal/handlers"
	"github.com/siocraft/finance-tracker-api/internal/logger"
	"github.com/siocraft/finance-tracker-api/internal/services"
)

// @title Finance Tracker API
// @version 1.0
// @description Per-user personal finance transactions API
// @contact.name API Support
// @contact.url https://github.com/Siocraft/FinanceTrackerApi
// @host localhost:3000
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Firebase ID token, sent as: Bearer <token>

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		logrus.Fatalf("Failed to initialize logger: %v", err)
	}

	docs.SwaggerInfo.Host = cfg.Server.Host

	ctx := context.Background()

	store, closeStore, err := openStore(cfg, log)
	if err != nil {
		log.Fatalf("Failed to open transaction store: %v", err)
	}
	defer closeStore()

	locker, closeLocker := newLocker(ctx, cfg, log)
	defer closeLocker()

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize auth verifier: %v", err)
	}

	transactionService := services.NewTransactionService(store, locker, audit.NewAuditLogger(log), log)
	if err := transactionService.Initialize(ctx); err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Transactions: handlers.NewTransactionHandler(transactionService, log),
		Verifier:     verifier,
		CORS:         cfg.CORS,
		RateLimit:    cfg.RateLimit,
		Log:          log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		log.WithFields(logrus.Fields{
			"port":    cfg.Server.Port,
			"storage": cfg.Storage.Driver,
			"auth":    cfg.Auth.Provider,
		}).Info("Finance Tracker API starting")
		log.Infof("Health check: http://localhost:%s/health", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped")
}

func openStore(cfg *config.Config, log *logrus.Logger) (database.RecordStore, func(), error) {
	if cfg.Storage.Driver == config.StorageDriverPostgres {
		db, err := database.OpenPostgres(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		log.WithField("document", cfg.Database.Document).Info("Using Postgres transaction store")
		store := database.NewPostgresStore(db, cfg.Database.Document, cfg.Storage.StrictReads, log)
		return store, func() { db.Close() }, nil
	}

	store := database.NewFileStore(cfg.Storage.DataDir, cfg.Storage.StrictReads, log)
	log.WithField("path", store.Path()).Info("Using file transaction store")
	return store, func() {}, nil
}

func newLocker(ctx context.Context, cfg *config.Config, log *logrus.Logger) (database.Locker, func()) {
	if cfg.Redis.Enabled {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if client := database.InitRedis(pingCtx, cfg.Redis, log); client != nil {
			log.WithField("key", cfg.Redis.LockKey).Info("Using Redis write lock")
			return database.NewRedisLocker(client, cfg.Redis.LockKey, cfg.Redis.LockTTL, log), func() { client.Close() }
		}
	}
	return database.NewMutexLocker(), func() {}
}

func newVerifier(ctx context.Context, cfg *config.Config) (auth.Verifier, error) {
	if cfg.Auth.Provider == config.AuthProviderJWT {
		return auth.NewJWTVerifier(cfg.Auth.JWTSecret), nil
	}

	client, err := auth.NewFirebaseAuthClient(ctx, cfg.Firebase)
	if err != nil {
		return nil, err
	}
	return auth.NewFirebaseVerifier(client), nil
}
