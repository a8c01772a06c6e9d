// shellproxy отдает оболочку приложения через офлайн-кэш: пока источник
// доступен, ответы кэшируются, при обрыве сети отдается кэшированная копия.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"exercise_grid_go/config"
	"exercise_grid_go/middleware"
	"exercise_grid_go/offline"

	"go.alis.build/alog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadShell()
	if err != nil {
		alog.Fatalf(ctx, "Ошибка конфигурации: %v", err)
	}
	alog.SetLevel(cfg.LogLevel)

	storage, err := offline.OpenCacheStorage(ctx, cfg.CacheDBPath)
	if err != nil {
		alog.Fatalf(ctx, "Не удалось открыть хранилище кэша: %v", err)
	}
	defer storage.Close()

	worker, err := offline.NewWorker(storage, cfg.Origin,
		offline.WithVersion(cfg.CacheVersion),
		offline.WithLimit(cfg.CacheLimit),
	)
	if err != nil {
		alog.Fatalf(ctx, "%v", err)
	}

	// Без установки воркер не управляет запросами и прокси просто
	// пропускает их к источнику.
	if err := worker.Install(ctx); err != nil {
		alog.Warnf(ctx, "Установка воркера %s не удалась: %v", cfg.CacheVersion, err)
	} else if err := worker.Activate(ctx); err != nil {
		alog.Warnf(ctx, "Активация воркера %s не удалась: %v", cfg.CacheVersion, err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           middleware.LoggingMiddleware(offline.NewShellHandler(worker)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			alog.Errorf(shutdownCtx, "Ошибка остановки прокси: %v", err)
		}
	}()

	alog.Infof(ctx, "Прокси оболочки %s -> %s (кэш %s, лимит %d)", cfg.Addr, cfg.Origin, cfg.CacheVersion, cfg.CacheLimit)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		alog.Fatalf(ctx, "%v", err)
	}
}
