package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"exercise_grid_go/auth"
	"exercise_grid_go/config"
	"exercise_grid_go/controllers"
	"exercise_grid_go/data"

	"go.alis.build/alog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadServer()
	if err != nil {
		alog.Fatalf(ctx, "Ошибка конфигурации: %v", err)
	}
	alog.SetLevel(cfg.LogLevel)

	// Инициализация базы данных
	repo, err := data.OpenRepository(ctx, cfg.DBPath)
	if err != nil {
		alog.Fatalf(ctx, "Failed to initialize database: %v", err)
	}
	defer repo.Close()

	authSvc, err := auth.NewService(cfg.JWTSecret, cfg.AccessPasswordHash)
	if err != nil {
		alog.Fatalf(ctx, "Ошибка настройки доступа: %v", err)
	}
	if !authSvc.Enabled() {
		alog.Warnf(ctx, "GRID_ACCESS_PASSWORD_HASH не задан, API открыт без токена")
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           controllers.NewRouter(controllers.NewAPI(repo, authSvc)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			alog.Errorf(shutdownCtx, "Ошибка остановки сервера: %v", err)
		}
	}()

	alog.Infof(ctx, "Запуск сервера на %s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		alog.Fatalf(ctx, "%v", err)
	}
	alog.Infof(context.WithoutCancel(ctx), "Сервер остановлен")
}
