// Package server initializes and runs the chat server: database and
// migrations, blob storage, the application services and the HTTP endpoint,
// with graceful shutdown on OS signals.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/tdnguyen/roomchat/internal/logging"
	"github.com/tdnguyen/roomchat/internal/server/blob"
	"github.com/tdnguyen/roomchat/internal/server/config"
	"github.com/tdnguyen/roomchat/internal/server/httpapi"
	"github.com/tdnguyen/roomchat/internal/server/repositories/repomanager"
	"github.com/tdnguyen/roomchat/internal/server/services"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	httpServer *httpapi.HTTPServer
	users      *services.UserService
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	us := services.NewUserService(db, rm, cfg, blobs)
	ms := services.NewMessageService(db, rm)
	fs := services.NewFileService(db, rm, cfg, blobs, logger)
	ds := services.NewDeltaService(db, rm, cfg)
	rs := services.NewRetentionService(db, rm, cfg, blobs, logger)

	srv := httpapi.NewHTTPServer(cfg, logger, us, ms, fs, ds, rs)

	return &App{
		config:     cfg,
		logger:     logger,
		db:         db,
		httpServer: srv,
		users:      us,
	}, nil
}

func newBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	if cfg.S3Enabled {
		return blob.NewS3Store(ctx, blob.S3Options{
			RootUser:     cfg.S3RootUser,
			RootPassword: cfg.S3RootPassword,
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
		})
	}
	return blob.NewLocalStore(cfg.UploadDir)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.users.EnsureAdmin(ctx); err != nil {
		app.logger.Error(ctx, "admin bootstrap error", "error", err)
		return
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.httpServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
