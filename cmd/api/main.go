package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/maplewind/maplewind-api/internal/auth"
	"github.com/maplewind/maplewind-api/internal/auth/kakao"
	"github.com/maplewind/maplewind-api/internal/character"
	characterrepo "github.com/maplewind/maplewind-api/internal/character/repo"
	"github.com/maplewind/maplewind-api/internal/comment"
	commentrepo "github.com/maplewind/maplewind-api/internal/comment/repo"
	"github.com/maplewind/maplewind-api/internal/config"
	"github.com/maplewind/maplewind-api/internal/router"
	"github.com/maplewind/maplewind-api/internal/system"
	"github.com/maplewind/maplewind-api/internal/user"
	userrepo "github.com/maplewind/maplewind-api/internal/user/repo"
	"github.com/maplewind/maplewind-api/pkg/cache"
	"github.com/maplewind/maplewind-api/pkg/database"
	"github.com/maplewind/maplewind-api/pkg/utilities"
)

func main() {
	// Load also reads .env, so it runs before the logger and database configs.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = lg.Sync() }()
	sugar := lg.Sugar()

	if err := run(cfg, sugar); err != nil {
		sugar.Errorw("maplewind-api stopped", "error", err)
		_ = lg.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, sugar *zap.SugaredLogger) error {
	sugar.Infow("starting maplewind-api", "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbCfg, err := database.ConfigFromEnv()
	if err != nil {
		return err
	}
	sqlDB, err := database.Connect(dbCfg)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	db := sqlx.NewDb(sqlDB, "postgres")
	defer db.Close()

	var store cache.Cache = cache.Noop{}
	if cfg.RedisURL != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		store = cache.NewRedisCache(rdb, "maplewind:")
		sugar.Infow("catalog cache enabled", "ttl", cfg.CacheTTL)
	}

	ids, err := utilities.NewIDGenerator(cfg.SnowflakeNode)
	if err != nil {
		return fmt.Errorf("snowflake node: %w", err)
	}

	var bridge auth.OAuthBridge
	if cfg.KakaoEnabled() {
		bridge = kakao.New(cfg.Kakao())
	} else {
		sugar.Warn("KAKAO_CLIENT_ID or KAKAO_REDIRECT_URI not set; kakao login disabled")
	}

	users := userrepo.NewUserRepo(db)
	authSvc, err := auth.NewService(cfg.Auth(), users, bridge, ids, auth.WithLogger(sugar.Named("auth")))
	if err != nil {
		return err
	}

	handler := router.RegisterRoutes(sugar.Named("http"), router.Deps{
		Auth:      auth.NewHandler(authSvc, sugar.Named("auth"), auth.CookieConfig{Secure: cfg.CookieSecure}),
		AuthSvc:   authSvc,
		User:      user.NewHandler(sugar.Named("user")),
		Character: character.NewHandler(character.NewService(characterrepo.NewRepo(db), store, cfg.CacheTTL, sugar.Named("character")), sugar.Named("character")),
		Comment:   comment.NewHandler(comment.NewService(commentrepo.NewRepo(db), sugar.Named("comment")), sugar.Named("comment")),
		System:    system.NewHandler(system.DefaultNotices, sugar.Named("system")),

		AllowedOrigins: cfg.AllowOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	sugar.Info("shutting down")
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	sugar.Info("goodbye")
	return nil
}
