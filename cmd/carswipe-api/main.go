package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rajivgeraev/carswipe-api/internal/app"
	"github.com/rajivgeraev/carswipe-api/internal/config"
	"github.com/rajivgeraev/carswipe-api/internal/logger"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Ошибка конфигурации: %v", err)
	}

	appLogger := logger.NewZapLogger(logger.ZapLoggerConfig{
		Level:      cfg.Logger.Level,
		Encoding:   cfg.Logger.Encoding,
		TimeFormat: cfg.Logger.TimeFormat,
	})
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatalf("❌ Ошибка при инициализации приложения: %v", err)
	}

	if err := application.Run(ctx); err != nil {
		appLogger.Fatalf("❌ Сервер завершился с ошибкой: %v", err)
	}
	appLogger.Info("Сервер остановлен")
}
