package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openradius/openradius/cmd/openradius/cli"
	"github.com/openradius/openradius/internal/app"
	"github.com/openradius/openradius/internal/auth"
	"github.com/openradius/openradius/internal/authz"
	"github.com/openradius/openradius/internal/observability"
	"github.com/openradius/openradius/internal/platform/cache"
	"github.com/openradius/openradius/internal/platform/db"
	"github.com/openradius/openradius/internal/rbac"
	"github.com/openradius/openradius/internal/routemap"
	"github.com/openradius/openradius/internal/tenant"
)

func main() {
	if len(os.Args) > 1 {
		os.Exit(runCommand(os.Args[1], os.Args[2:]))
	}

	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	if err := run(ctx, stop, cfg, logger); err != nil {
		logger.Error("openradius", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	table, err := routemap.Table()
	if err != nil {
		return err
	}

	authenticator, err := newAuthenticator(cfg, logger)
	if err != nil {
		return err
	}

	pools, err := tenant.NewPoolProvider(cfg.TenantDSNTemplate, cfg.TenantPoolCacheSize, db.New, logger)
	if err != nil {
		return err
	}
	defer pools.Close()

	var redisClient *redis.Client
	if cfg.AuthzCache != "off" && cfg.RedisAddr != "" {
		redisClient, err = cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			if cfg.AuthzCache == "redis" {
				return err
			}
			logger.Warn("redis unavailable, cache invalidations will not be received", slog.Any("error", err))
		}
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	opts := []rbac.Option{rbac.WithLogger(logger)}
	switch cfg.AuthzCache {
	case "memory":
		memory, err := rbac.NewMemoryCache(cfg.AuthzCacheSize, cfg.AuthzCacheTTL)
		if err != nil {
			return err
		}
		if err := memory.ListenForInvalidation(ctx, redisClient); err != nil {
			logger.Warn("listen for cache invalidation", slog.Any("error", err))
		}
		opts = append(opts, rbac.WithCache(memory))
	case "redis":
		redisCache, err := rbac.NewRedisCache(redisClient, cfg.AuthzCacheTTL)
		if err != nil {
			return err
		}
		opts = append(opts, rbac.WithCache(redisCache))
	}
	resolver := rbac.NewResolver(rbac.TenantStores{Pools: pools}, opts...)

	metrics := observability.NewMetrics()
	engine, err := authz.NewEngine(authz.Options{
		Table:      table,
		Policies:   authz.NewPolicyProvider(nil),
		Authorizer: resolver,
		Unmapped:   authz.UnmappedPolicy(cfg.AuthzUnmappedPolicy),
		Logger:     logger,
		Metrics:    metrics,
	})
	if err != nil {
		return err
	}

	router, err := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Authenticate:   authenticator.Middleware,
		TenantResolver: tenant.Resolver{Header: cfg.TenantHeader, Claim: cfg.TenantClaim, Logger: logger},
		Engine:         engine,
		RBACHandler:    rbac.NewHandler(logger, resolver),
		Metrics:        metrics,
	})
	if err != nil {
		return err
	}
	logger.Info("authorization ready",
		slog.Int("routes", table.Len()),
		slog.Int("declared", engine.Declared().Len()),
		slog.String("unmapped", cfg.AuthzUnmappedPolicy),
		slog.String("cache", cfg.AuthzCache),
	)

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	return nil
}

func newAuthenticator(cfg *app.Config, logger *slog.Logger) (*auth.JWTAuthenticator, error) {
	jwtCfg := auth.JWTConfig{
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		Leeway:   30 * time.Second,
	}
	if cfg.JWTPublicKey != "" {
		key, err := auth.ParseRSAPublicKey(cfg.JWTPublicKey)
		if err != nil {
			return nil, err
		}
		jwtCfg.PublicKey = key
	} else {
		jwtCfg.Secret = []byte(cfg.JWTSecret)
	}
	return auth.NewJWTAuthenticator(jwtCfg, logger)
}

func runCommand(name string, args []string) int {
	switch name {
	case "routes":
		fs := flag.NewFlagSet("routes", flag.ExitOnError)
		asJSON := fs.Bool("json", false, "print JSON")
		_ = fs.Parse(args)
		return cli.RoutesCommand(routemap.Entries(), cli.RoutesOptions{JSONOutput: *asJSON})
	case "explain":
		fs := flag.NewFlagSet("explain", flag.ExitOnError)
		asJSON := fs.Bool("json", false, "print JSON")
		unmapped := fs.String("unmapped", string(authz.UnmappedAuthenticated), "unmapped route policy (authenticated|deny)")
		_ = fs.Parse(args)
		table, err := routemap.Table()
		if err != nil {
			fmt.Fprintf(os.Stderr, "explain: %v\n", err)
			return 1
		}
		policy, err := authz.ParseUnmappedPolicy(*unmapped)
		if err != nil {
			fmt.Fprintf(os.Stderr, "explain: %v\n", err)
			return 1
		}
		return cli.ExplainCommand(table, cli.ExplainOptions{
			Method:     fs.Arg(0),
			Path:       fs.Arg(1),
			Unmapped:   policy,
			JSONOutput: *asJSON,
		})
	case "invalidate":
		fs := flag.NewFlagSet("invalidate", flag.ExitOnError)
		addr := fs.String("redis", getenv("REDIS_ADDR", "127.0.0.1:6379"), "redis address")
		_ = fs.Parse(args)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client, err := cache.New(ctx, *addr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalidate: %v\n", err)
			return 1
		}
		defer func() { _ = client.Close() }()
		redisCache, err := rbac.NewRedisCache(client, rbac.MaxCacheTTL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalidate: %v\n", err)
			return 1
		}
		return cli.InvalidateCommand(ctx, redisCache, cli.InvalidateOptions{Workspace: fs.Arg(0), User: fs.Arg(1)})
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (want routes, explain or invalidate)\n", name)
		return 2
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
