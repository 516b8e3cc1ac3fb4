// Package server wires configuration, storage, persistence and the upload
// pipeline together and runs the HTTP API alongside the gRPC health endpoint
// until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/meduploads/internal/logging"
	"github.com/dmitrijs2005/meduploads/internal/server/auth"
	"github.com/dmitrijs2005/meduploads/internal/server/classifier"
	"github.com/dmitrijs2005/meduploads/internal/server/config"
	"github.com/dmitrijs2005/meduploads/internal/server/httpapi"
	"github.com/dmitrijs2005/meduploads/internal/server/imaging"
	"github.com/dmitrijs2005/meduploads/internal/server/metrics"
	"github.com/dmitrijs2005/meduploads/internal/server/ocr"
	"github.com/dmitrijs2005/meduploads/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/meduploads/internal/server/services"
	"github.com/dmitrijs2005/meduploads/internal/server/storage"
	"github.com/prometheus/client_golang/prometheus"

	gs "github.com/dmitrijs2005/meduploads/internal/server/grpc"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	handler http.Handler
	health  *gs.HealthServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger, err := logging.New(c.LogFormat, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	db.SetMaxOpenConns(c.ConnectionLimit)

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	store, err := newStore(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	guard := auth.NewGuard([]byte(c.SecretKey), rm)

	svc := services.NewUploadService(db, rm, c, services.Dependencies{
		Guard:      guard,
		Generator:  imaging.NewGenerator(c.ThumbnailSize, nil),
		Classifier: classifier.New(nil),
		Extractor:  ocr.NewTesseract(c.OCRBinary, c.OCRLanguage, c.OCRTimeout),
		Store:      store,
		Logger:     logger,
		Metrics:    m,
	})

	h := httpapi.NewHandler(svc, guard, store, svc.Limits(), logger)

	return &App{
		config:  c,
		logger:  logger,
		db:      db,
		handler: httpapi.NewRouter(h, m, registry, logger),
		health:  gs.NewHealthServer(c.EndpointAddrGRPC, logger),
	}, nil
}

func newStore(ctx context.Context, c *config.Config) (storage.Store, error) {
	switch c.StorageBackend {
	case config.StorageS3:
		return storage.NewS3Store(ctx, storage.S3Config{
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
		})
	default:
		return storage.NewLocalStore(c.UploadRoot)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	srv := &http.Server{
		Addr:              app.config.EndpointAddrHTTP,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", srv.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.health.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
