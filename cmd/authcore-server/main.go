// Command authcore-server exposes the authcore use cases over HTTP.
//
// Settings come from the environment (see internal/config). Without
// AUTHCORE_REDIS_ADDR an in-process miniredis holds sessions, and without
// AUTHCORE_AMQP_URL mail is written to the log instead of being queued.
//
// Run:
//
//	AUTHCORE_ACCESS_TOKEN_KEY=$(openssl rand -hex 32) \
//	AUTHCORE_REFRESH_TOKEN_KEY=$(openssl rand -hex 32) \
//	go run ./cmd/authcore-server
//
// Then:
//
//	curl -i -X POST localhost:8080/auth/register \
//	  -d '{"email":"ada@example.com","password":"correct-horse","firstname":"Ada","lastname":"Lovelace"}'
//	curl -i -X POST localhost:8080/auth/verify -d '{"email":"ada@example.com","code":"<CODE FROM LOG>"}'
//	curl -i -X POST localhost:8080/auth/login -d '{"email":"ada@example.com","password":"correct-horse"}'
//	curl -i localhost:8080/auth/me -H "Authorization: Bearer <ACCESS_TOKEN>"
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/internal/config"
	"github.com/MrEthical07/authcore/internal/sqldb"
	"github.com/MrEthical07/authcore/internal/userstore"
	"github.com/MrEthical07/authcore/metrics/export/prometheus"
	"github.com/MrEthical07/authcore/notify"
	"github.com/MrEthical07/authcore/otp/sqlstore"
	"github.com/MrEthical07/authcore/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

func main() {
	envFile := flag.String("env", ".env", "path of the .env file to load")
	flag.Parse()

	log.SetPrefix("[AUTHCORE] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config.LoadEnv(ctx, *envFile)
	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := run(ctx, cfg); err != nil {
		log.Fatalf("server: %v", err)
	}
}

func run(ctx context.Context, cfg config.Server) error {
	core, err := cfg.Core()
	if err != nil {
		return err
	}

	client, closeRedis, err := openRedis(cfg)
	if err != nil {
		return err
	}
	defer closeRedis()

	dialect, err := sqldb.ParseDialect(cfg.SQLDialect)
	if err != nil {
		return err
	}
	db, err := sqldb.Open(dialect, cfg.SQLDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	hasher, err := password.New(core.Password.Algorithm, core.Password.BcryptCost, core.Password.Argon2)
	if err != nil {
		return fmt.Errorf("password hasher: %w", err)
	}
	codes, err := sqlstore.New(db, dialect)
	if err != nil {
		return fmt.Errorf("code store: %w", err)
	}
	users, err := userstore.New(db, dialect, hasher)
	if err != nil {
		return fmt.Errorf("user store: %w", err)
	}

	notifier, closeNotifier, err := openNotifier(cfg)
	if err != nil {
		return err
	}
	defer closeNotifier()

	builder := authcore.New().
		WithConfig(core).
		WithRedis(client).
		WithUserDirectory(users).
		WithCodeRepository(codes).
		WithNotifier(notifier).
		WithHasher(hasher)
	if cfg.CatalogPath != "" {
		catalog, err := notify.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			return err
		}
		builder = builder.WithCatalog(catalog)
	}
	if cfg.AuditEnabled {
		builder = builder.WithAuditSink(authcore.NewJSONWriterSink(os.Stdout))
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("engine build: %w", err)
	}
	defer engine.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(engine, prometheus.NewExporter(engine).Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openRedis(cfg config.Server) (redis.UniversalClient, func(), error) {
	if cfg.RedisAddr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.RedisAddr},
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		log.Printf("using redis at %s", cfg.RedisAddr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	log.Printf("using in-process miniredis at %s; sessions do not survive a restart", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func openNotifier(cfg config.Server) (notify.Notifier, func(), error) {
	if cfg.AMQPURL == "" {
		return notify.NewLogNotifier(log.Default()), func() {}, nil
	}
	n, err := notify.DialAMQP(cfg.AMQPURL, cfg.EmailQueue)
	if err != nil {
		return nil, nil, fmt.Errorf("amqp: %w", err)
	}
	return n, func() {
		if err := n.Close(); err != nil {
			log.Printf("amqp close: %v", err)
		}
	}, nil
}
