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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"lokal/internal/audit"
	authhandler "lokal/internal/auth/handler"
	authservice "lokal/internal/auth/service"
	sessionstore "lokal/internal/auth/store/session"
	userstore "lokal/internal/auth/store/user"
	jwttoken "lokal/internal/jwt_token"
	oidcmetrics "lokal/internal/oidc/metrics"
	"lokal/internal/oidc/server"
	authorizationcode "lokal/internal/oidc/store/authorization-code"
	clientstore "lokal/internal/oidc/store/client"
	"lokal/internal/platform/config"
	"lokal/internal/platform/httpserver"
	"lokal/internal/platform/logger"
	"lokal/internal/platform/metrics"
	"lokal/internal/platform/postgres"
	"lokal/internal/platform/redis"
	"lokal/internal/seed"
	translationhandler "lokal/internal/translation/handler"
	translationmetrics "lokal/internal/translation/metrics"
	translationservice "lokal/internal/translation/service"
	translationstore "lokal/internal/translation/store"
	httptransport "lokal/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// stores groups the backends picked from configuration.
type stores struct {
	users     authservice.UserStore
	sessions  authservice.SessionStore
	codes     server.CodeStore
	resources translationstore.Store
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	st, cleanup, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	sink, closeSink, err := openAuditSink(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer closeSink()
	publisher := audit.NewPublisher(log)
	auditWorker := audit.NewWorker(sink, publisher.Inbox(), log)

	sameSite, err := cfg.Auth.SameSite()
	if err != nil {
		return err
	}

	tokens := jwttoken.NewJWTService(cfg.Auth.SigningKey, cfg.Auth.Issuer, cfg.Auth.Audience,
		jwttoken.WithIssuerValidation(cfg.Auth.ValidateIssuer),
		jwttoken.WithAudienceValidation(cfg.Auth.ValidateAudience),
	)
	clients := clientstore.NewInMemory()
	accounts := authservice.New(st.users, st.sessions,
		authservice.WithSessionTTL(cfg.Auth.SessionTTL),
		authservice.WithAuditPublisher(publisher),
		authservice.WithLogger(log),
	)
	protocol := server.New(server.Config{
		Issuer:         cfg.Auth.Issuer,
		LoginURL:       cfg.Auth.LoginURL,
		CodeTTL:        cfg.Auth.AuthorizationCodeTTL,
		AccessTokenTTL: cfg.Auth.AccessTokenTTL,
	}, clients, st.codes, tokens, log,
		server.WithAuditPublisher(publisher),
		server.WithMetrics(oidcmetrics.New(reg)),
	)
	translations := translationservice.New(st.resources,
		translationservice.WithAuditPublisher(publisher),
		translationservice.WithMetrics(translationmetrics.New(reg)),
		translationservice.WithLogger(log),
	)

	if err := seed.New(cfg.Seed, clients, accounts, st.resources, log).Run(ctx); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	router := httptransport.NewRouter(httptransport.Dependencies{
		Auth: authhandler.New(accounts, protocol, authhandler.CookieConfig{
			Name:     cfg.Auth.CookieName,
			Secure:   cfg.Auth.CookieSecure,
			SameSite: sameSite,
		}, log),
		Translations: translationhandler.New(translations, log),
		Discovery:    protocol.HandleDiscovery,
		Validator:    jwttoken.NewJWTServiceAdapter(tokens),
		Gatherer:     reg,
		Metrics:      metrics.New(reg),
		Logger:       log,
		CORSOrigins:  cfg.CORSOrigins,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting lokal", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return auditWorker.Run(gctx)
	})
	g.Go(func() error {
		return protocol.CleanupExpiredCodes(gctx, cfg.Auth.CleanupInterval)
	})
	g.Go(func() error {
		return accounts.CleanupExpiredSessions(gctx, cfg.Auth.CleanupInterval)
	})
	return g.Wait()
}

// openStores picks Postgres for durable data when DATABASE_URL is set and
// Redis for sessions and codes when REDIS_URL is set; memory otherwise.
func openStores(ctx context.Context, cfg config.Server, log *slog.Logger) (stores, func(), error) {
	st := stores{
		users:     userstore.New(),
		sessions:  sessionstore.New(),
		codes:     authorizationcode.New(),
		resources: translationstore.NewInMemory(),
	}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.DatabaseURL != "" {
		db, err := openDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			return stores{}, func() {}, err
		}
		closers = append(closers, func() { _ = db.Close() })
		st.users = userstore.NewPostgres(db)
		st.resources = translationstore.NewPostgres(db)
		log.Info("using postgres stores")
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		cleanup()
		return stores{}, func() {}, err
	}
	if rc != nil {
		closers = append(closers, func() { _ = rc.Close() })
		st.sessions = sessionstore.NewRedis(rc.Client)
		st.codes = authorizationcode.NewRedis(rc.Client)
		log.Info("using redis for sessions and authorization codes")
	}
	return st, cleanup, nil
}

func openDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func openAuditSink(ctx context.Context, cfg config.KafkaConfig, log *slog.Logger) (audit.Sink, func(), error) {
	if len(cfg.Brokers) == 0 {
		return audit.NewLogSink(log), func() {}, nil
	}
	sink, err := audit.NewKafkaSink(ctx, cfg.Brokers, cfg.AuditTopic)
	if err != nil {
		return nil, nil, err
	}
	log.Info("publishing audit events to kafka", "topic", cfg.AuditTopic)
	return sink, sink.Close, nil
}
