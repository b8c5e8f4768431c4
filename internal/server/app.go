// Package server wires the Opacity server: database and migrations, blob
// store, enrichment queue and worker, services and the HTTP surface, and
// runs them until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/opacity/internal/logging"
	"github.com/dmitrijs2005/opacity/internal/server/blobstore"
	"github.com/dmitrijs2005/opacity/internal/server/config"
	"github.com/dmitrijs2005/opacity/internal/server/enrichment"
	"github.com/dmitrijs2005/opacity/internal/server/httpapi"
	"github.com/dmitrijs2005/opacity/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/opacity/internal/server/services"
)

const memoryQueueSize = 256

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	closers []io.Closer
	server  *httpapi.Server
	worker  *enrichment.Worker
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel, c.LogFormat)

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app := &App{config: c, logger: logger, db: db}

	if err := app.init(ctx); err != nil {
		app.close(ctx)
		return nil, err
	}
	return app, nil
}

func (app *App) init(ctx context.Context) error {
	c := app.config
	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	blobs, presigner, err := newBlobStore(ctx, c)
	if err != nil {
		return fmt.Errorf("blob store init error: %w", err)
	}

	queue, closer, err := newQueue(ctx, c)
	if err != nil {
		return fmt.Errorf("enrichment queue init error: %w", err)
	}
	if closer != nil {
		app.closers = append(app.closers, closer)
	}

	labeler, err := newLabeler(ctx, c, app.logger)
	if err != nil {
		return fmt.Errorf("labeler init error: %w", err)
	}
	if labeler != nil {
		app.worker = enrichment.NewWorker(app.db, rm, queue, labeler, app.logger)
	} else {
		app.logger.Info(ctx, "no Gemini API key configured, dimension labels are disabled")
	}
	enricher := enrichment.NewTrigger(queue, labeler, app.logger)

	identity := services.NewIdentityService(app.db, rm, c)
	gate := services.NewAuthorizationGate(app.db, rm)
	svc := httpapi.Services{
		Identity: identity,
		Ingester: services.NewIngestionService(app.db, rm, c, blobs, identity, enricher, app.logger),
		Archives: services.NewArchiveService(app.db, rm, c, blobs, presigner, gate, app.logger),
		Queries:  services.NewQueryService(app.db, rm, c, gate, enricher),
		Likes:    services.NewLikeService(app.db, rm, c, gate),
	}

	router := httpapi.NewRouter(svc, c.MaxUploadBytes, app.logger)
	app.server = httpapi.NewServer(c.EndpointAddrHTTP, router, app.logger)
	return nil
}

// newBlobStore returns the configured store, and a presigner when downloads
// should redirect to object storage.
func newBlobStore(ctx context.Context, c *config.Config) (blobstore.Store, blobstore.Presigner, error) {
	switch c.BlobBackend {
	case config.BlobBackendFS:
		s, err := blobstore.NewFSStore(c.BlobDir)
		return s, nil, err
	case config.BlobBackendS3:
		s, err := blobstore.NewS3Store(ctx, blobstore.S3Options{
			Bucket:         c.S3Bucket,
			Region:         c.S3Region,
			AccessKey:      c.S3RootUser,
			SecretKey:      c.S3RootPassword,
			BaseEndpoint:   c.S3BaseEndpoint,
			PublicEndpoint: c.S3PublicEndpoint,
		})
		if err != nil {
			return nil, nil, err
		}
		if c.PresignDownloads() {
			return s, s, nil
		}
		return s, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown blob backend %q", c.BlobBackend)
	}
}

func newQueue(ctx context.Context, c *config.Config) (enrichment.Queue, io.Closer, error) {
	if c.RedisURL == "" {
		return enrichment.NewMemoryQueue(memoryQueueSize), nil, nil
	}
	client, err := enrichment.NewRedisClient(ctx, c.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return enrichment.NewRedisQueue(client), client, nil
}

// newLabeler returns a nil Labeler when no API key is configured.
func newLabeler(ctx context.Context, c *config.Config, logger logging.Logger) (enrichment.Labeler, error) {
	if c.GeminiAPIKey == "" {
		return nil, nil
	}
	l, err := enrichment.NewGeminiLabeler(ctx, c.GeminiAPIKey, c.GeminiModel, logger)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) close(ctx context.Context) {
	for _, c := range app.closers {
		if err := c.Close(); err != nil {
			app.logger.Warn(ctx, "close failed", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close failed", "error", err)
	}
}

// Run serves until a termination signal, then stops the HTTP server, lets
// the worker finish its current job and releases the connections.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, "http server failed", "error", err)
			cancelFunc()
		}
	}()

	if app.worker != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := app.worker.Run(ctx); err != nil {
				app.logger.Error(ctx, "enrichment worker failed", "error", err)
			}
		}()
	}

	wg.Wait()
	app.close(context.WithoutCancel(ctx))
	app.logger.Info(ctx, "Stopped")
}
