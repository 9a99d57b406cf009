package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pixgate/internal/acquirer"
	"pixgate/internal/api"
	"pixgate/internal/api/middleware"
	"pixgate/internal/database"
	"pixgate/pkg/factory"
	"pixgate/pkg/tracing"
)

func main() {
	appFactory, err := factory.NewFactory()
	if err != nil {
		fmt.Printf("Factory oluşturulamadı: %v\n", err)
		os.Exit(1)
	}

	log := appFactory.GetLogger()
	cfg := appFactory.GetConfig()
	db := appFactory.GetDB()

	defer db.Close()

	log.Info("Uygulama başlatılıyor", map[string]interface{}{"env": cfg.AppEnv})

	shutdownTracing := tracing.Init()
	defer shutdownTracing(context.Background())

	migrationService := database.NewMigrationService(db, log)
	if err := migrationService.RunMigrations(); err != nil {
		log.Fatal("Migrationlar uygulanamadı", map[string]interface{}{"error": err.Error()})
	}

	registry := appFactory.GetAcquirerRegistry()
	for _, name := range cfg.Acquirers {
		registry.Register(acquirer.NewGenericAdapter(name, cfg.WebhookSecret))
	}

	dispatcher := appFactory.GetDispatcher()
	dispatcher.Start()
	defer dispatcher.Stop()

	webhookHandler := api.NewWebhookHandler(registry, appFactory.GetSettlementService(), log)
	eventHandler := api.NewEventHandler(appFactory.GetPaymentEventService(), appFactory.GetUserRepository(), log)
	healthHandler := api.NewHealthHandler(appFactory, log)

	mux := http.NewServeMux()

	webhookHandler.RegisterRoutes(mux)
	eventHandler.RegisterRoutes(mux)
	healthHandler.RegisterRoutes(mux)

	mux.Handle("GET /metrics", promhttp.Handler())

	handler := middleware.TracingMiddleware(middleware.MetricsMiddleware(mux))

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: handler,
	}

	go func() {
		log.Info("HTTP sunucusu başlatılıyor", map[string]interface{}{"port": cfg.Server.Port})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP sunucusu başlatılamadı", map[string]interface{}{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Sunucu kapatılıyor...", map[string]interface{}{})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Sunucu kapatılırken hata oluştu", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Sunucu başarıyla kapatıldı", map[string]interface{}{})
}
