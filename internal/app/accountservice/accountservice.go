package accountservice

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/pillarmind/account-service/internal/cache"
	"github.com/pillarmind/account-service/internal/config"
	"github.com/pillarmind/account-service/internal/lib/jwt"
	"github.com/pillarmind/account-service/internal/migrations"
	"github.com/pillarmind/account-service/internal/rabbitmq"
	accountservice "github.com/pillarmind/account-service/internal/services/account"
	authservice "github.com/pillarmind/account-service/internal/services/auth"
	searchservice "github.com/pillarmind/account-service/internal/services/search"
	"github.com/pillarmind/account-service/internal/storage"
)

type App struct {
	server    *http.Server
	logger    *slog.Logger
	db        *storage.Storage
	publisher *rabbitmq.Publisher
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	rabbitConn, err := rabbitmq.Connect(cfg.RabbitConnection.AddressRabbit, 5, 3*time.Second)
	if err != nil {
		return nil, err
	}
	publisher, err := rabbitmq.NewPublisher(rabbitConn, cfg.RabbitConnection.Exchange)
	if err != nil {
		return nil, err
	}

	jwtMaker := jwt.NewMaker(
		cfg.JWTToken.JWTSecretKey,
		cfg.JWTToken.JWTRefreshSecretKey,
		cfg.JWTToken.TokenTTL,
		cfg.JWTToken.RefreshTokenTTL,
	)

	authSvc := authservice.New(db, jwtMaker, publisher, authservice.LockoutPolicy{
		MaxFailedAttempts: cfg.LoginPolicy.MaxFailedAttempts,
		LockoutWindow:     cfg.LoginPolicy.LockoutWindow,
	}, logger)
	accountSvc := accountservice.New(db, cacheRedis, publisher, logger)
	searchSvc := searchservice.New(db, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, authSvc, accountSvc, searchSvc)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.TimeoutHTTP,
		WriteTimeout: cfg.HTTPServer.TimeoutHTTP,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	return &App{
		server:    srv,
		logger:    logger,
		db:        db,
		publisher: publisher,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.publisher.Close()
		a.db.DB.Close()
		return err
	}
}
