// Package app собирает зависимости сервиса товаров.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/RoGogDBD/items/internal/auth"
	"github.com/RoGogDBD/items/internal/config"
	"github.com/RoGogDBD/items/internal/config/db"
	"github.com/RoGogDBD/items/internal/handlers"
	"github.com/RoGogDBD/items/internal/kafka"
	"github.com/RoGogDBD/items/internal/repository"
	"github.com/RoGogDBD/items/internal/retry"
	"github.com/RoGogDBD/items/internal/telemetry"
	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/RoGogDBD/items/docs" // регистрация swagger-документа
)

const defaultSQLiteDSN = "file:items.db"

// App содержит все зависимости приложения
type App struct {
	Config    *config.Config
	Store     repository.ItemStore
	Cache     repository.Cache
	Telemetry *telemetry.Providers

	publisher *kafka.Publisher
	closers   []func() error
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewApp создает новое приложение.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		Config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Init выполняет инициализацию зависимостей приложения.
func (a *App) Init() error {
	providers, err := telemetry.Init(a.ctx, a.Config.Telemetry)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	a.Telemetry = providers

	if err := a.initStore(a.ctx); err != nil {
		return err
	}
	a.initCache()

	if a.Config.Kafka.Enabled {
		a.initKafka()
	}
	return nil
}

// initStore открывает хранилище выбранного драйвера и оборачивает его метриками.
func (a *App) initStore(ctx context.Context) error {
	var base repository.ItemStore

	switch a.Config.Database.Driver {
	case config.DriverPostgres:
		if a.Config.Database.DSN == "" {
			return errors.New("postgres driver requires a DSN")
		}
		pool, err := db.NewPool(ctx, a.Config.Database)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() error {
			pool.Close()
			log.Info("Database connection closed")
			return nil
		})
		base = repository.NewPostgresStorage(pool)
	case config.DriverSQLite:
		dsn := a.Config.Database.DSN
		if dsn == "" {
			dsn = defaultSQLiteDSN
		}
		sqliteDB, err := db.OpenSQLite(ctx, dsn)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, sqliteDB.Close)
		base = repository.NewSQLiteStorage(sqliteDB)
	default:
		return fmt.Errorf("unsupported database driver %q", a.Config.Database.Driver)
	}

	instrumented, err := repository.NewInstrumentedStore(base)
	if err != nil {
		return fmt.Errorf("instrument store: %w", err)
	}
	a.Store = instrumented
	log.WithField("driver", a.Config.Database.Driver).Info("Item store initialized")
	return nil
}

// initCache включает кеш товаров по id, если он не отключен конфигом.
func (a *App) initCache() {
	cfg := a.Config.Cache
	if cfg.MaxItems == 0 {
		log.Info("Item cache disabled")
		return
	}

	cache := repository.NewMemCacheWithConfig(cfg.MaxItems, cfg.TTL)
	cache.StartJanitor(a.ctx, cfg.CleanupInterval)
	a.Cache = cache
	a.Store = repository.NewCachedStore(a.Store, cache)

	log.WithFields(log.Fields{"max_items": cfg.MaxItems, "ttl": cfg.TTL}).Info("Initialized item cache")
}

// initKafka запускает публикацию событий и импорт товаров.
func (a *App) initKafka() {
	cfg := a.Config.Kafka

	policy := retry.Policy{
		MaxRetries:  cfg.DLQMaxRetries,
		Backoff:     retry.NewBackoff(cfg.DLQBackoff, cfg.DLQBackoffCap, cfg.DLQBackoffJitter),
		ShouldRetry: config.IsRetriableError,
	}

	if cfg.EventsTopic != "" {
		a.publisher = kafka.NewPublisher(kafka.NewWriter(cfg.Brokers, cfg.EventsTopic), cfg.PublishBuffer, policy)
		a.goRun(a.publisher.Run)
		log.WithField("topic", cfg.EventsTopic).Info("Item events publisher started")
	}

	if cfg.ImportTopic != "" {
		var dlq kafka.MessageWriter
		if cfg.DLQTopic != "" {
			dlq = kafka.NewWriter(cfg.Brokers, cfg.DLQTopic)
		}
		importer := kafka.NewImporter(
			kafka.NewReader(cfg.Brokers, cfg.ImportTopic, cfg.GroupID),
			dlq,
			a.Store,
			a.events(),
			policy,
		)
		a.goRun(importer.Run)
		log.WithFields(log.Fields{"topic": cfg.ImportTopic, "group": cfg.GroupID}).Info("Item importer started")
	}
}

func (a *App) goRun(run func(ctx context.Context)) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		run(a.ctx)
	}()
}

func (a *App) events() kafka.EventPublisher {
	if a.publisher == nil {
		return nil
	}
	return a.publisher
}

// Router собирает HTTP-маршруты сервиса.
func (a *App) Router() (http.Handler, error) {
	if a.Store == nil {
		return nil, errors.New("app is not initialized")
	}

	r := chi.NewRouter()
	config.SetupMiddlewares(r, a.Config.Server, handlers.Recoverer)
	r.Use(telemetry.RouteSpanName)
	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	var events handlers.ItemEvents
	if a.publisher != nil {
		events = a.publisher
	}
	h := handlers.NewHandler(a.Store, events)

	r.Get("/healthz", h.HealthHandler)
	if a.Telemetry != nil && a.Telemetry.MetricsHandler != nil {
		r.Handle(a.Config.Telemetry.MetricsPath, a.Telemetry.MetricsHandler)
	}
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	if upstream := a.Config.Auth.UpstreamURL; upstream != "" {
		proxy, err := auth.NewProxy(upstream)
		if err != nil {
			return nil, err
		}
		r.Handle("/api/auth/*", proxy)
		log.WithField("upstream", upstream).Info("Auth proxy enabled")
	}

	h.Routes(r)
	return r, nil
}

// Close освобождает все ресурсы приложения
func (a *App) Close() {
	log.Info("Shutting down application...")

	// остановит janitor кеша и Kafka; publisher дописывает буфер
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.WithError(err).Warn("failed to close resource")
		}
	}
	a.closers = nil

	if a.Telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Telemetry.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("failed to shutdown telemetry")
		}
	}

	log.Info("Application shutdown complete")
}

// Context возвращает контекст приложения
func (a *App) Context() context.Context {
	return a.ctx
}
