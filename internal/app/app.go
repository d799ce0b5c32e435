package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/rajivgeraev/carswipe-api/internal/broker"
	"github.com/rajivgeraev/carswipe-api/internal/cache"
	"github.com/rajivgeraev/carswipe-api/internal/config"
	"github.com/rajivgeraev/carswipe-api/internal/db"
	"github.com/rajivgeraev/carswipe-api/internal/logger"
	"github.com/rajivgeraev/carswipe-api/internal/metrics"
	"github.com/rajivgeraev/carswipe-api/internal/repository"
	"github.com/rajivgeraev/carswipe-api/internal/repository/memory"
	"github.com/rajivgeraev/carswipe-api/internal/repository/postgres"
	"github.com/rajivgeraev/carswipe-api/internal/services/auth"
	"github.com/rajivgeraev/carswipe-api/internal/services/chat"
	"github.com/rajivgeraev/carswipe-api/internal/services/cloudinary"
	"github.com/rajivgeraev/carswipe-api/internal/services/listing"
	"github.com/rajivgeraev/carswipe-api/internal/services/sale"
	"github.com/rajivgeraev/carswipe-api/internal/services/swipe"
	"github.com/rajivgeraev/carswipe-api/internal/utils"
	"github.com/rajivgeraev/carswipe-api/internal/websocket"
)

// App собранное приложение: REST API на fiber и realtime-сервер на chi
type App struct {
	cfg     *config.Config
	log     logger.Logger
	Metrics *metrics.Metrics
	Store   repository.Store
	JWT     *utils.JWTService
	Manager *websocket.Manager
	Chats   *chat.ChatService

	// HTTP REST API
	HTTP *fiber.App
	// Realtime обработчик /ws, /metrics, /healthz
	Realtime http.Handler

	pool      *pgxpool.Pool
	postCache cache.PostCache
	relay     *broker.Relay
}

// New собирает зависимости. Хранилище, кэш и ретранслятор выбираются по конфигурации.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	a := &App{
		cfg:     cfg,
		log:     log,
		Metrics: metrics.New("carswipe"),
		JWT:     utils.NewJWTService(cfg.JWTSecret),
	}

	if err := a.initStore(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initCache(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.Manager = websocket.NewManager(websocket.NewRooms(), a.Metrics, log)

	var broadcaster chat.Broadcaster = a.Manager
	if cfg.NATS.URL != "" {
		relay, err := broker.Connect(cfg.NATS, a.Manager, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := relay.Start(); err != nil {
			relay.Close()
			a.Close()
			return nil, err
		}
		a.relay = relay
		broadcaster = relay
	}

	a.Chats = chat.NewChatService(a.Store, broadcaster, log)
	swipes := swipe.NewService(a.Store, a.Metrics, log)
	sales := sale.NewSaleService(a.Store, a.postCache, a.Metrics, log)
	listings := listing.NewListingService(a.Store, a.postCache, sales, log)
	uploads := cloudinary.NewCloudinaryService(cfg.Cloudinary)

	a.HTTP = a.newHTTP(routeSet{
		auth:       auth.NewAuthService(a.JWT),
		swipe:      swipe.NewHandler(swipes, cfg.RequestTimeout),
		chat:       chat.NewHandler(a.Chats, a.Metrics, cfg.RequestTimeout),
		sale:       sale.NewHandler(sales, cfg.RequestTimeout),
		listing:    listing.NewHandler(listings, cfg.RequestTimeout),
		cloudinary: uploads,
	})
	a.Realtime = a.newRealtime(websocket.NewHandler(a.Manager, a.Chats, a.JWT, cfg.RequestTimeout))

	return a, nil
}

func (a *App) initStore(ctx context.Context) error {
	if a.cfg.Storage == "memory" {
		a.log.Warn("Используется хранилище в памяти, данные не сохраняются между запусками")
		a.Store = memory.New()
		return nil
	}

	pool, err := db.NewPool(a.cfg, a.log)
	if err != nil {
		return err
	}
	a.pool = pool

	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}
	a.Store = postgres.New(pool)
	return nil
}

func (a *App) initCache(ctx context.Context) error {
	if a.cfg.Redis.Addr == "" {
		a.postCache = cache.Nop{}
		return nil
	}

	redisCache, err := cache.NewRedisPostCache(ctx, &redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	}, a.cfg.Redis.PostTTL)
	if err != nil {
		return errors.Wrap(err, "failed to connect to redis")
	}
	a.log.Infof("Кэш объявлений в Redis %s", a.cfg.Redis.Addr)
	a.postCache = redisCache
	return nil
}

// Run запускает оба сервера и блокируется до отмены ctx или ошибки сервера
func (a *App) Run(ctx context.Context) error {
	realtime := &http.Server{
		Addr:              ":" + a.cfg.WSPort,
		Handler:           a.Realtime,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)

	go func() {
		a.log.Infof("✅ CarSwipe API запущен на порту %s", a.cfg.HTTPPort)
		if err := a.HTTP.Listen(":"+a.cfg.HTTPPort, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
			errCh <- errors.Wrap(err, "http server")
		}
	}()

	go func() {
		a.log.Infof("✅ Realtime сервер запущен на порту %s", a.cfg.WSPort)
		if err := realtime.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- errors.Wrap(err, "realtime server")
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("Получен сигнал остановки")
	case runErr = <-errCh:
		a.log.Errorf("Сервер остановился: %v", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	// Соединения WebSocket не отслеживаются http.Server, закрываем их сами
	a.Manager.Shutdown()
	if err := realtime.Shutdown(shutdownCtx); err != nil {
		a.log.Warnf("Realtime shutdown: %v", err)
	}
	if err := a.HTTP.ShutdownWithContext(shutdownCtx); err != nil {
		a.log.Warnf("HTTP shutdown: %v", err)
	}

	a.Close()
	return runErr
}

// Close освобождает внешние соединения
func (a *App) Close() {
	if a.relay != nil {
		if err := a.relay.Close(); err != nil {
			a.log.Warnf("NATS close: %v", err)
		}
		a.relay = nil
	}
	if closer, ok := a.postCache.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			a.log.Warnf("Redis close: %v", err)
		}
		a.postCache = cache.Nop{}
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
}
