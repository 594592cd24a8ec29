// Command server runs the authentication perimeter for the training
// platform: the LMS launch endpoint, staff login, the access gate in front
// of every page and API, and the streaming token exchange.
package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/Menakta/op-skillsim-sub004/internal/audit"
	"github.com/Menakta/op-skillsim-sub004/internal/gate"
	"github.com/Menakta/op-skillsim-sub004/internal/identity"
	launchhandler "github.com/Menakta/op-skillsim-sub004/internal/launch/handler"
	launchservice "github.com/Menakta/op-skillsim-sub004/internal/launch/service"
	"github.com/Menakta/op-skillsim-sub004/internal/platform/config"
	"github.com/Menakta/op-skillsim-sub004/internal/platform/httpserver"
	"github.com/Menakta/op-skillsim-sub004/internal/platform/logger"
	"github.com/Menakta/op-skillsim-sub004/internal/platform/metrics"
	platformredis "github.com/Menakta/op-skillsim-sub004/internal/platform/redis"
	"github.com/Menakta/op-skillsim-sub004/internal/replay"
	"github.com/Menakta/op-skillsim-sub004/internal/staffauth"
	"github.com/Menakta/op-skillsim-sub004/internal/token"
	httptransport "github.com/Menakta/op-skillsim-sub004/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Env)

	m := metrics.New()

	streamKey, err := loadStreamKey(cfg, log)
	if err != nil {
		return err
	}

	issuer, err := token.NewIssuer([]byte(cfg.Session.SigningKey), streamKey, cfg.Stream.Audience,
		token.WithAccessTTL(cfg.Stream.TTL))
	if err != nil {
		return err
	}
	verifier, err := token.NewVerifier([]byte(cfg.Session.SigningKey), &streamKey.PublicKey, cfg.Stream.Audience)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var guard replay.Guard
	switch cfg.Replay.Backend {
	case "redis":
		guard = replay.NewRedisGuard(redisClient.Client, replay.WithRedisTTL(cfg.Replay.TTL))
		log.Info("replay guard: redis", "ttl", cfg.Replay.TTL)
	default:
		memGuard := replay.NewMemoryGuard(replay.WithTTL(cfg.Replay.TTL))
		group.Go(func() error { return memGuard.Run(ctx) })
		guard = memGuard
		log.Info("replay guard: memory", "ttl", cfg.Replay.TTL)
	}

	var resolver identity.Resolver
	var staffStore identity.StaffStore
	var healthCheckers []httptransport.HealthChecker
	if cfg.Database.DSN != "" {
		pool, err := pgxpool.New(ctx, cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		store := identity.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		resolver, staffStore = store, store
		healthCheckers = append(healthCheckers, pingChecker{pool})
		log.Info("identity store: postgres")
	} else {
		store := identity.NewMemoryStore()
		resolver, staffStore = store, store
		log.Warn("identity store: memory, users do not survive restarts")
	}
	if redisClient != nil {
		healthCheckers = append(healthCheckers, redisClient)
	}

	sinks := []audit.Sink{audit.NewSlogSink(log)}
	if len(cfg.Audit.KafkaBrokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic)
		if err != nil {
			return fmt.Errorf("kafka audit sink: %w", err)
		}
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
		log.Info("audit sink: kafka", "topic", cfg.Audit.KafkaTopic)
	}
	publisher := audit.NewPublisher(log, sinks...)

	launchSvc := launchservice.New(cfg.LTI.ConsumerKey, cfg.LTI.ConsumerSecret, guard, resolver, issuer, log,
		launchservice.WithMetrics(m),
		launchservice.WithAudit(publisher),
		launchservice.WithSessionTTL(cfg.Session.LTITTL),
	)
	staffSvc := staffauth.New(staffStore, issuer, log,
		staffauth.WithMetrics(m),
		staffauth.WithAudit(publisher),
		staffauth.WithTeacherTTL(cfg.Session.TeacherTTL),
		staffauth.WithAdminTTL(cfg.Session.AdminTTL),
	)

	g := gate.New(verifier, log,
		gate.WithMetrics(m),
		gate.WithAudit(publisher),
		gate.WithSecureCookies(cfg.Production()),
	)
	router := httptransport.NewRouter(g,
		launchhandler.New(launchSvc, log, cfg.Production()),
		httptransport.NewHandler(staffSvc, issuer, log,
			httptransport.WithMetrics(m),
			httptransport.WithHealthCheckers(healthCheckers...),
			httptransport.WithSecureCookies(cfg.Production()),
		),
	)

	srv := httpserver.New(cfg.Addr, router)

	group.Go(func() error {
		log.Info("listening", "addr", cfg.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutdown complete")
	return nil
}

// loadStreamKey reads the RS256 signing key for the streaming credential. In
// development an ephemeral keypair keeps the service usable without files;
// production refuses to start without a persistent one.
func loadStreamKey(cfg *config.Config, log *slog.Logger) (*rsa.PrivateKey, error) {
	if cfg.Stream.PrivateKeyFile != "" {
		pem, err := os.ReadFile(cfg.Stream.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read stream key: %w", err)
		}
		key, err := jwt.ParseRSAPrivateKeyFromPEM(pem)
		if err != nil {
			return nil, fmt.Errorf("parse stream key: %w", err)
		}
		return key, nil
	}
	if cfg.Production() {
		return nil, errors.New("stream private key file is required in production")
	}
	log.Warn("generating ephemeral stream keypair, issued access tokens will not survive restarts")
	return rsa.GenerateKey(rand.Reader, 2048)
}

type pingChecker struct {
	pool *pgxpool.Pool
}

func (p pingChecker) Health(ctx context.Context) error {
	return p.pool.Ping(ctx)
}
