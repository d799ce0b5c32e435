package db

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rajivgeraev/carswipe-api/internal/config"
	"github.com/rajivgeraev/carswipe-api/internal/logger"
)

//go:embed schema.sql
var schema string

// NewPool создаёт пул соединений с базой данных и проверяет подключение
func NewPool(cfg *config.Config, log logger.Logger) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка при разборе URL базы данных: %w", err)
	}

	poolConfig.MaxConns = cfg.DatabaseConfig.MaxConns
	poolConfig.MinConns = cfg.DatabaseConfig.MinConns

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("ошибка при создании пула соединений: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка при проверке соединения: %w", err)
	}

	log.Infof("✅ Успешное подключение к базе данных %s:%s", cfg.DatabaseConfig.Host, cfg.DatabaseConfig.Port)
	return pool, nil
}

// Migrate применяет схему. Все выражения идемпотентны.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ошибка применения схемы: %w", err)
	}
	return nil
}

// GetContext возвращает контекст с таймаутом для запросов к базе данных
func GetContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
