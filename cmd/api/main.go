package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/01moynul/seller-console/config"
	"github.com/01moynul/seller-console/internal/ai"
	"github.com/01moynul/seller-console/internal/auth"
	"github.com/01moynul/seller-console/internal/database"
	"github.com/01moynul/seller-console/internal/email"
	"github.com/01moynul/seller-console/internal/handlers"
	"github.com/01moynul/seller-console/internal/importer"
	"github.com/01moynul/seller-console/internal/logger"
	"github.com/01moynul/seller-console/internal/routes"
	"github.com/01moynul/seller-console/internal/sigctx"
	"github.com/01moynul/seller-console/internal/store"
	"github.com/01moynul/seller-console/internal/upload"
	"github.com/01moynul/seller-console/internal/verification"
)

func main() {
	// 0. --- Configuration & Logger ---
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	zl, err := logger.New(cfg.IsDevelopment(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := sigctx.NotifyContext()
	defer stop()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("seller console stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, zl *zap.Logger) error {
	// 1. --- MySQL (sellers, taxonomy) ---
	db, err := database.OpenMySQL(ctx, database.MySQLConfig{
		DSN:             cfg.MySQL.DSN,
		MaxOpenConns:    cfg.MySQL.MaxOpenConns,
		MaxIdleConns:    cfg.MySQL.MaxIdleConns,
		ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
	}, zl)
	if err != nil {
		return err
	}
	defer db.Close()

	// 2. --- MongoDB (products, uploads, orders, sales) ---
	mongoClient, err := database.OpenMongo(ctx, database.MongoConfig{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.Timeout,
	}, zl)
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()
	mdb := mongoClient.Database(cfg.Mongo.Database)

	// 3. --- Session persistence (Redis, memory when unavailable) ---
	var persistence verification.Persistence
	rdb, err := database.OpenRedis(ctx, database.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, zl)
	if err != nil {
		zl.Warn("redis unavailable, sessions kept in memory", zap.Error(err))
		persistence = verification.NewMemoryPersistence()
	} else {
		defer rdb.Close()
		persistence = verification.NewRedisPersistence(rdb, cfg.Redis.SessionTTL)
	}

	// 4. --- Object storage ---
	var objects upload.ObjectStore
	uploadsDir := ""
	switch cfg.Storage.Backend {
	case "gcs":
		gcs, err := upload.NewGCSStore(ctx, cfg.Storage.Bucket, cfg.Storage.CredentialsFile, cfg.Storage.URLExpiry)
		if err != nil {
			return err
		}
		defer gcs.Close()
		objects = gcs
	default:
		uploadsDir = cfg.Storage.LocalDir
		objects = upload.NewLocalStore(uploadsDir, strings.TrimRight(cfg.Server.BaseURL, "/")+"/uploads")
	}
	media := upload.NewOrchestrator(objects, zl.Named("upload"))

	// 5. --- Stores ---
	sellers := store.NewSellerStore(db)
	taxonomy := store.NewTaxonomyStore(db)
	products := store.NewProductStore(mdb)
	uploads := store.NewUploadStore(mdb)

	driver := &importer.Driver{
		Grouper:  &importer.Grouper{Resolver: taxonomy},
		Products: products,
		Records:  uploads,
		Brands:   taxonomy,
		Uploader: media,
		Tracker:  importer.NewTracker(time.Hour),
		Log:      zl.Named("importer"),
	}

	// 6. --- Listing assistant (optional) ---
	var assistant handlers.Describer
	if cfg.Gemini.APIKey != "" {
		la, err := ai.NewListingAssistant(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			return err
		}
		defer la.Close()
		assistant = la
	} else {
		zl.Info("gemini api key not set, listing assistant disabled")
	}

	app := &handlers.Handlers{
		Sellers:       sellers,
		Products:      products,
		Sales:         store.NewSaleStore(mdb),
		Orders:        store.NewOrderStore(mdb, zl.Named("orders")),
		Taxonomy:      taxonomy,
		Uploads:       uploads,
		Importer:      driver,
		Media:         media,
		Sessions:      verification.NewSessionManager(persistence, zl.Named("session"), cfg.Redis.SessionTTL),
		Tokens:        auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Mailer:        email.LogSender{Log: zl.Named("email")},
		Assistant:     assistant,
		Log:           zl,
		BaseURL:       cfg.Server.BaseURL,
		ResetTokenTTL: cfg.Auth.ResetTokenTTL,
	}

	// --- Router Setup ---
	router := routes.SetupRouter(app, routes.Options{
		AllowedOrigin: cfg.Server.AllowedOrigin,
		UploadsDir:    uploadsDir,
		Log:           zl,
	})

	// --- Start Server ---
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		zl.Info("starting seller console API", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
