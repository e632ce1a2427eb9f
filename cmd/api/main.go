package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fastprodman/walletledger/internal/api"
	"github.com/fastprodman/walletledger/internal/config"
	"github.com/fastprodman/walletledger/internal/events/kafka"
	"github.com/fastprodman/walletledger/internal/infra/logging"
	"github.com/fastprodman/walletledger/internal/infra/pgutils"
	"github.com/fastprodman/walletledger/internal/infra/sqliteutils"
	"github.com/fastprodman/walletledger/internal/services/wallet"
	"github.com/fastprodman/walletledger/pkg/envconf"
	"github.com/fastprodman/walletledger/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v\n", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	err := config.LoadDotEnv()
	if err != nil {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg := new(apiConfig)

	err = envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logger := logging.SetupJSON(cfg.LogLevel)
	queue := shutdownqueue.New()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := queue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	db, repos, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	queue.Add("db", func(context.Context) error { return db.Close() })

	opts := []wallet.Option{
		wallet.WithLogger(logger),
		wallet.WithIdempotencyTTL(cfg.Idempotency.TTL),
	}

	if len(cfg.Kafka.Brokers) > 0 {
		publisher := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		queue.Add("kafka", func(context.Context) error { return publisher.Close() })

		opts = append(opts, wallet.WithPublisher(publisher))

		logger.Info("transaction events enabled", "topic", cfg.Kafka.Topic)
	}

	walletSrv := wallet.New(db, repos, opts...)
	queue.Add("wallet events", walletSrv.Close)

	// --- Background ---
	purgeCtx, stopPurge := context.WithCancel(ctx)
	purgeDone := make(chan struct{})

	go func() {
		defer close(purgeDone)
		runPurge(purgeCtx, logger, walletSrv, cfg.Idempotency.PurgeInterval)
	}()

	queue.Add("purge", func(c context.Context) error {
		stopPurge()

		select {
		case <-purgeDone:
			return nil
		case <-c.Done():
			return c.Err()
		}
	})

	// --- HTTP server ---
	router := api.NewRouter(walletSrv, api.RouterOptions{
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	srv := api.NewServer(cfg.Port, router)

	queue.Add("http server", func(c context.Context) error {
		logger.Info("Shut down server")

		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr

			return
		}

		errCh <- nil
	}()

	logger.Info("API started", "port", cfg.Port, "store", cfg.StoreDriver)

	select {
	case <-ctx.Done():
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}

func openStore(ctx context.Context, cfg *apiConfig) (*sql.DB, wallet.Repos, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := pgutils.OpenDB(ctx, cfg.Postgres)
		if err != nil {
			return nil, wallet.Repos{}, fmt.Errorf("postgres: %w", err)
		}

		return db, wallet.PostgresRepos(db), nil
	case config.DriverSQLite:
		db, err := sqliteutils.OpenDB(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, wallet.Repos{}, fmt.Errorf("sqlite: %w", err)
		}

		return db, wallet.SQLiteRepos(db), nil
	default:
		return nil, wallet.Repos{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

type tokenPurger interface {
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

// runPurge deletes expired idempotency tokens every interval until ctx ends.
func runPurge(ctx context.Context, logger *slog.Logger, p tokenPurger, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, err := p.PurgeExpiredTokens(ctx)
			if err != nil && ctx.Err() == nil {
				logger.Warn("purge idempotency tokens", "error", err)
			}
		}
	}
}
