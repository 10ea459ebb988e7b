package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/essay-coach/backend/internal/config"
	"github.com/zhouzirui/essay-coach/backend/internal/handler"
	"github.com/zhouzirui/essay-coach/backend/internal/model/essay"
	"github.com/zhouzirui/essay-coach/backend/internal/service/coach"
	"github.com/zhouzirui/essay-coach/backend/internal/service/session"
	"github.com/zhouzirui/essay-coach/backend/internal/service/tutor"
	"github.com/zhouzirui/essay-coach/backend/internal/storage"
	"github.com/zhouzirui/essay-coach/backend/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logg, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logg.Sync()

	if envErr != nil {
		logg.Warn("failed to load .env file, continuing with system environment variables only", "error", envErr)
	}

	guidance := essay.NewMemoryGuidance(essay.SeedGuidance())

	store, closeStore, err := openStore(cfg.Store, logg)
	if err != nil {
		logg.Fatal("failed to open snapshot store", "backend", cfg.Store.Backend, "error", err)
	}
	defer closeStore()

	sessions := session.NewService(session.Config{
		Tutor:          newTutor(ctx, cfg, guidance, logg),
		Store:          store,
		Logger:         logg,
		PersistTimeout: cfg.Store.PersistTimeout,
	})

	router := handler.NewRouter(guidance, sessions, cfg.Server.AllowedOrigins, logg)

	startServer(ctx, cfg.Server, router, logg)

	flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Store.PersistTimeout)
	defer cancel()
	if err := sessions.Flush(flushCtx); err != nil {
		logg.Warn("pending snapshots not flushed before shutdown", "error", err)
	}
}

// newTutor 优先使用 Ark 模型，凭证缺失或初始化失败时退回离线导师。
func newTutor(ctx context.Context, cfg *config.Config, guidance essay.GuidanceStore, logg *logger.Logger) coach.Tutor {
	if !cfg.AI.Enabled() {
		logg.Info("Ark 凭证未配置，使用离线导师")
		return tutor.NewOffline(guidance)
	}

	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		logg.Warn("failed to create chat model, falling back to offline tutor", "error", err)
		return tutor.NewOffline(guidance)
	}

	svc, err := tutor.NewService(ctx, chatModel, guidance, tutor.Config{
		HistoryLimit: cfg.Tutor.HistoryLimit,
		Timeout:      cfg.Tutor.Timeout,
	}, logg)
	if err != nil {
		logg.Warn("failed to initialize tutor service, falling back to offline tutor", "error", err)
		return tutor.NewOffline(guidance)
	}

	logg.Info("tutor service initialized", "model", cfg.AI.Model)
	return svc
}

func openStore(cfg config.StoreConfig, logg *logger.Logger) (coach.SnapshotStore, func(), error) {
	switch cfg.Backend {
	case config.StoreSQLite:
		db, err := storage.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logg.Info("snapshot store opened", "backend", cfg.Backend, "path", cfg.SQLitePath)
		return db, func() {
			if err := db.Close(); err != nil {
				logg.Warn("failed to close snapshot store", "error", err)
			}
		}, nil
	default:
		logg.Info("snapshot store opened", "backend", config.StoreMemory)
		return storage.NewMemory(), func() {}, nil
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logg *logger.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logg.Info("essay coach backend listening", "addr", addr)
	if err := runServer(ctx, srv); err != nil {
		logg.Fatal("server error", "error", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
