// Package server initializes and runs the webauth server: it wires the
// PostgreSQL credential store, the Redis session store, the password security
// service, and the HTTP endpoint, and handles graceful shutdown.
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

	"github.com/redis/go-redis/v9"

	"github.com/dpetrovsky/webauth/internal/cryptox"
	"github.com/dpetrovsky/webauth/internal/logging"
	"github.com/dpetrovsky/webauth/internal/server/config"
	"github.com/dpetrovsky/webauth/internal/server/guest"
	"github.com/dpetrovsky/webauth/internal/server/httpapi"
	"github.com/dpetrovsky/webauth/internal/server/repositories/repomanager"
	"github.com/dpetrovsky/webauth/internal/server/security"
	"github.com/dpetrovsky/webauth/internal/server/services"
	"github.com/dpetrovsky/webauth/internal/server/sessions"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	redis  *redis.Client
	server *httpapi.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	hasher, err := cryptox.NewArgon2Hasher(cryptox.DefaultArgon2Params())
	if err != nil {
		_ = db.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("hasher init error: %w", err)
	}

	userService := services.NewUserService(db, rm, security.NewService(hasher, cfg.Pepper))
	sessionStore := sessions.NewRedisStore(redisClient, cfg.SessionTTL)

	srv := httpapi.NewServer(cfg.EndpointAddrHTTP, logger, userService, sessionStore, guest.NewManager())

	return &App{
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
		server: srv,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
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

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.redis.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}

	app.logger.Info(ctx, "App stopped")
}
