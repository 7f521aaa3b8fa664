package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xela07ax/site-overview/internal/app"
	"github.com/xela07ax/site-overview/internal/console/handler"
	"github.com/xela07ax/site-overview/internal/console/server"
	"github.com/xela07ax/site-overview/internal/infra"
	"github.com/xela07ax/site-overview/internal/infra/auth"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// 1. Конфиг и логгер
	cfg, err := infra.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	// Контекст для управления жизненным циклом фоновых горутин
	// При SIGTERM cancel() остановит слушателя Redis
	appCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 2. Сборка зависимостей
	a, err := app.Build(appCtx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build app", zap.Error(err))
	}
	defer a.Close()

	// 3. Состояния сайтов: L2 -> L1, первичная проверка, прогрев пустого L2, подписка
	if err := a.Reach.Init(appCtx); err != nil {
		logger.Fatal("failed to init reachability", zap.Error(err))
	}
	if err := a.Reach.RefreshDeadSites(appCtx); err != nil {
		logger.Warn("initial site probe failed", zap.Error(err))
	}
	if err := a.Reach.Warmup(appCtx); err != nil {
		logger.Warn("state warm-up failed", zap.Error(err))
	}
	go a.Reach.StartListener(appCtx)

	// 4. Проверка токенов, если задан ключ
	var validator auth.TokenValidator
	if len(cfg.Auth.PublicKey) > 0 {
		pub, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
		if err != nil {
			logger.Fatal("invalid auth public key", zap.Error(err))
		}
		validator = auth.NewBaseValidator(pub)
	} else {
		logger.Warn("auth public key is not configured, API is open")
	}

	// 5. HTTP Server
	srv := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: server.NewOverviewServer(
			logger,
			validator,
			promhttp.HandlerFor(a.Prom, promhttp.HandlerOpts{}),
			handler.NewOverviewHandler(a.Generator, logger),
			handler.NewSitesHandler(a.Registry, a.Reach),
		),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("overview API started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 6. Graceful Shutdown
	<-appCtx.Done()
	logger.Info("overview API stopping...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	logger.Info("overview API exited properly")
}
