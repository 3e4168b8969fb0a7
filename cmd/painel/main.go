package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"painel/internal/auth"
	"painel/internal/cache"
	"painel/internal/cli"
	"painel/internal/config"
	"painel/internal/core"
	"painel/internal/dashboard"
	apphttp "painel/internal/http"
	plog "painel/internal/log"
	"painel/internal/services"
)

func main() {
	issueFor := flag.String("issue-token", "", "print a bearer token for this user id and exit")
	tokenTTL := flag.Duration("token-ttl", auth.DefaultTokenTTL, "lifetime of the token printed by -issue-token")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(plog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateServer)

	authManager, err := auth.NewManager(cfg.JWTSecret)
	if err != nil {
		logger.Error("Failed to create token manager", "error", err)
		os.Exit(1)
	}
	if *issueFor != "" {
		token, err := authManager.Issue(*issueFor, *tokenTTL)
		if err != nil {
			logger.Error("Failed to issue token", "error", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	res := cli.OpenBackend(context.Background(), logger, cfg)
	loc := cfg.Location()
	core.SetDayZone(loc)

	views := cache.NewLRUCache[*dashboard.View](cfg.CacheSize, cfg.CacheTTL)
	dash := dashboard.NewDashboard(views)
	now := func() time.Time { return time.Now().In(loc) }
	sessions := services.NewSessionManager(res.Store, now, func(userID string) {
		dash.Invalidate(userID)
	})
	sessions.SetIdleTTL(cfg.SessionIdleTTL)

	caches := cache.NewManager()
	caches.Register(views)
	caches.Register(sessions)
	caches.StartCleanup(time.Minute)
	ledger := services.NewLedgerService(res.Store, sessions)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Sessions:           sessions,
		Ledger:             ledger,
		Dashboard:          dash,
		Auth:               authManager,
		Now:                now,
		Location:           loc,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
		Ready:              readiness(res.Store),
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		sessions.Close()
		caches.Stop()
		if err := res.Close(); err != nil {
			logger.Error("Failed to close backend", "error", err)
		}
	})

	logger.Info("Starting painel server",
		"port", cfg.Port,
		"backend", res.Type.String(),
		"timezone", loc.String(),
		"notifications", res.AMQP != nil)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// readiness pings stores that can be pinged; the memory store is always ready.
func readiness(st any) func(context.Context) error {
	pinger, ok := st.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return pinger.Ping(ctx)
	}
}
