// Package server wires the proxy together: it opens and migrates the
// database, builds the services, seeds the default user and runs the HTTP
// server until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/keyproxy/internal/cryptox"
	"github.com/dmitrijs2005/keyproxy/internal/logging"
	"github.com/dmitrijs2005/keyproxy/internal/server/config"
	"github.com/dmitrijs2005/keyproxy/internal/server/httpapi"
	"github.com/dmitrijs2005/keyproxy/internal/server/metrics"
	"github.com/dmitrijs2005/keyproxy/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/keyproxy/internal/server/services"
	"github.com/dmitrijs2005/keyproxy/internal/server/store"
	"github.com/dmitrijs2005/keyproxy/internal/server/upstream"
)

// logOutput is where the server's JSON log lines go.
var logOutput io.Writer = os.Stdout

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	auth   *services.AuthService
	keys   *services.APIKeyService
	server *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(logOutput, slog.LevelInfo)

	db, rm, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	logger.Info(ctx, "database ready", "backend", rm.Dialect())

	cipher, err := cryptox.NewCipher(c.SecretKey)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	st := store.New(db, rm)
	m := metrics.New()
	validator := services.NewValidator(c.MaxReferenceImages, c.MaxReferenceImageBytes)

	auth := services.NewAuthService(
		st,
		services.NewLoginThrottle(c.MaxLoginAttempts, c.LockDuration, nil),
		services.AuthConfig{
			SecretKey:    c.SecretKey,
			SessionTTL:   c.SessionTTL,
			SeedUsername: c.SeedUsername,
			SeedPassword: c.SeedPassword,
		},
		m,
		logger.With("module", "auth"),
	)
	keys := services.NewAPIKeyService(st, st, cipher, validator, c.APIKey, logger.With("module", "api_keys"))
	proxy := services.NewProxyService(
		keys,
		st,
		upstream.NewClient(c.UpstreamTimeout, m, logger.With("module", "upstream")),
		upstream.NewEndpoints(c.APIHost),
		validator,
		logger.With("module", "proxy"),
	)

	srv := httpapi.NewServer(c.HTTPAddr, logger, httpapi.Services{
		Auth:   auth,
		Keys:   keys,
		Proxy:  proxy,
		Health: st,
	}, m, c.AutoLoginDefault)

	return &App{config: c, logger: logger, db: db, auth: auth, keys: keys, server: srv}, nil
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

// seed makes sure the seed user exists and holds the environment key.
func (app *App) seed(ctx context.Context) error {
	userID, err := app.auth.EnsureSeedUser(ctx)
	if err != nil {
		return fmt.Errorf("seed user: %w", err)
	}
	if err := app.keys.Bootstrap(ctx, userID); err != nil {
		return fmt.Errorf("bootstrap keys: %w", err)
	}
	return nil
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.db.Close()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.seed(ctx); err != nil {
		return err
	}

	return app.server.Run(ctx)
}
