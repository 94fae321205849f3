// Command server starts the authentication and anti-abuse API server.
package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wardengate/authcore/internal/adapter/httpserver"
	"github.com/wardengate/authcore/internal/adapter/repo/postgres"
	"github.com/wardengate/authcore/internal/app"
	"github.com/wardengate/authcore/internal/auth"
	"github.com/wardengate/authcore/internal/cache"
	"github.com/wardengate/authcore/internal/config"
	"github.com/wardengate/authcore/internal/observability"
	"github.com/wardengate/authcore/internal/password"
	"github.com/wardengate/authcore/internal/pow"
	"github.com/wardengate/authcore/internal/totp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	usersRepo := postgres.NewUsersRepo(pool)
	credentialsRepo := postgres.NewCredentialsRepo(pool)
	sessionsRepo := postgres.NewSessionsRepo(pool)
	challengesRepo := postgres.NewChallengesRepo(pool)
	powSessionsRepo := postgres.NewPowSessionsRepo(pool)
	rateLimitRepo := postgres.NewRateLimitRepo(pool)
	userDetailsRepo := postgres.NewUserDetailsRepo(pool)

	// Redis is optional: a cache-aside accelerator in front of the Postgres
	// session stores, never the system of record (§11.3). Wire it only if
	// configured; both decorators degrade to pure passthrough on a nil cache.
	var sessionCache *cache.SessionCache
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid redis url", slog.Any("error", err))
			os.Exit(1)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unreachable at startup, proceeding cache-less", slog.Any("error", err))
		} else {
			sessionCache = cache.NewSessionCache(rdb)
			slog.Info("redis cache-aside layer enabled")
		}
	}

	authSessionRepo := cache.NewAuthSessionRepository(sessionsRepo, sessionCache)
	powSessionRepo := cache.NewPowSessionRepository(powSessionsRepo, sessionCache)

	powSecret, err := base64.StdEncoding.DecodeString(cfg.PowSessionSecret)
	if err != nil || len(powSecret) == 0 {
		slog.Error("invalid or missing POW_SESSION_SECRET", slog.Any("error", err))
		os.Exit(1)
	}
	authSecret, err := base64.StdEncoding.DecodeString(cfg.AuthSessionSecret)
	if err != nil || len(authSecret) == 0 {
		slog.Error("invalid or missing AUTH_SESSION_SECRET", slog.Any("error", err))
		os.Exit(1)
	}

	powSigner := pow.NewTokenSigner(powSecret)
	authSigner := auth.NewTokenSigner(authSecret)

	powCfg := pow.Config{
		ChallengeTTL:    cfg.PowChallengeTTL,
		SessionTTL:      cfg.PowSessionTTL,
		DifficultyBits:  uint8(cfg.PowDifficultyBits),
		ChallengeBytes:  cfg.PowChallengeBytes,
		RateLimitMax:    cfg.PowRateLimitMax,
		RateLimitWindow: cfg.PowRateLimitWindow,
	}
	powSvc := pow.NewService(powCfg, challengesRepo, powSessionRepo, rateLimitRepo, powSigner)

	hasher := password.NewHasher(password.Params{
		MemoryKiB:   cfg.Argon2MemoryKiB,
		Iterations:  cfg.Argon2Iterations,
		Parallelism: cfg.Argon2Parallelism,
		SaltLen:     16,
		KeyLen:      32,
	}, []byte(cfg.PasswordPepper))

	totpEngine := totp.NewEngine(cfg.TOTPIssuer)

	authCfg := auth.Config{
		SessionTTLShort:  cfg.AuthSessionTTLShort,
		SessionTTLLong:   cfg.AuthSessionTTLLong,
		TOTPIssuer:       cfg.TOTPIssuer,
		MaxLoginFailures: cfg.AuthMaxLoginFailures,
		LockoutWindow:    cfg.AuthLockoutWindow,
	}
	authSvc := auth.NewService(authCfg, usersRepo, credentialsRepo, authSessionRepo, hasher, totpEngine, authSigner)

	if cfg.BreachCheckEnabled {
		bc := password.NewBreachChecker(password.BreachCheckerConfig{
			BaseURL:        "https://api.pwnedpasswords.com/range",
			MaxElapsedTime: cfg.BreachCheckMaxElapsedTime,
			InitialBackoff: 200 * time.Millisecond,
			MaxBackoff:     1 * time.Second,
		}, http.DefaultClient)
		authSvc.WithBreachChecker(bc)
	}

	srv := httpserver.NewServer(powSvc, authSvc, userDetailsRepo, cfg.CookieSecure, cfg.CookieSameSite, cfg.PowSessionTTL)

	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
