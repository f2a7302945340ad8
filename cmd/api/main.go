package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"matchbook.org/internal/account"
	"matchbook.org/internal/auth"
	"matchbook.org/internal/config"
	"matchbook.org/internal/httpapi"
	"matchbook.org/internal/migrate"
	"matchbook.org/internal/obs"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatal("load config", err)
	}
	obs.SetLogger(obs.NewLogger(os.Stdout, cfg.LogLevel))
	log := obs.Logger()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		db    *sql.DB
		store account.Store
	)
	if cfg.PGDSN != "" {
		db, err = account.OpenPostgres(cfg.PGDSN)
		if err != nil {
			fatal("open db", err)
		}
		if cfg.AutoMigrate {
			migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			err = migrate.NewManager(db).Up(migrateCtx)
			cancel()
			if err != nil {
				fatal("migrate", err)
			}
		}
		store = account.NewPGStore(db)
	} else {
		log.Warn("MATCHBOOK_PG_DSN not set; using in-memory store")
		store = account.NewMemoryStore()
	}

	proxies, err := cfg.ProxyPrefixes()
	if err != nil {
		fatal("trusted proxies", err)
	}

	hasher, err := auth.NewHasher(cfg.BcryptCost)
	if err != nil {
		fatal("password hasher", err)
	}
	issuer, err := auth.NewIssuer(cfg.Secret(),
		auth.WithIssuer(cfg.AuthIssuer),
		auth.WithAccessTTL(cfg.AccessTTL),
		auth.WithRefreshTTL(cfg.RefreshTTL),
	)
	if err != nil {
		fatal("token issuer", err)
	}
	accounts, err := account.NewService(store, hasher, issuer,
		account.WithUniformLoginErrors(cfg.UniformLoginErrors))
	if err != nil {
		fatal("account service", err)
	}

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, accounts, issuer,
		httpapi.WithCookies(httpapi.CookieSettings{Secure: cfg.CookieSecure, Domain: cfg.CookieDomain}),
		httpapi.WithRateLimit(cfg.RateBurst, cfg.RatePerSecond),
		httpapi.WithMaxBodyBytes(cfg.MaxBodyBytes),
		httpapi.WithRequestTimeout(cfg.RequestTimeout),
		httpapi.WithAllowedOrigins(cfg.AllowedOrigins...),
		httpapi.WithTrustedProxies(proxies...),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting matchbook-api", "version", version, "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			fatal("listen", err)
		}
	}
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err.Error())
	}
	if db != nil {
		_ = db.Close()
	}
	log.Info("stopped")
}

func fatal(msg string, err error) {
	obs.Logger().Error(msg, "error", err.Error())
	os.Exit(1)
}
