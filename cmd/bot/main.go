package main

import (
	"context"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"courierbot/internal/bot"
	"courierbot/internal/config"
	"courierbot/internal/database"
	"courierbot/internal/dialog"
	"courierbot/internal/events"
	"courierbot/internal/logging"
	"courierbot/internal/metrics"
	"courierbot/internal/models"
	"courierbot/internal/repository"
	"courierbot/internal/service"
	"courierbot/internal/timex"
	"courierbot/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("Database initialization failed")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, stateService := initStateService(ctx, cfg, &logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	eventBus := events.NewEventBus()
	subscribeEvents(eventBus, &logger)

	retryPolicy := worker.RetryPolicy{MaxRetries: 5, InitialDelay: 2 * time.Second, MaxDelay: time.Minute, BackoffFactor: 2}
	emailWorker := worker.NewEmailWorker(retryPolicy, eventBus, &logger)
	go emailWorker.Start(ctx)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go servePrometheus(cfg.Monitoring.PrometheusPort, &logger)
	}

	engine := dialog.NewEngine(&logger)
	engine.OnRetry = metrics.IncPromptRetry

	narrator := bot.NewNarrator(rand.New(rand.NewSource(time.Now().UnixNano())), time.Now)
	wizards := bot.NewWizards(db, timex.New(), eventBus, emailWorker, narrator, &logger)
	wizards.Register(engine)

	handler := bot.NewTurnHandler(engine, stateService, cfg.Bot, &logger)

	telegramBot, err := bot.NewTelegramBot(cfg.Telegram, handler, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("BotAPI initialization failed")
		return err
	}

	logger.Info().Msg("Bot started...")
	telegramBot.Start(ctx)

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "bot-main").Logger()

	return cfg, logger, closer, nil
}

func initStateService(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, *service.StateService) {
	ttl := time.Duration(cfg.Bot.StateTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Duration(models.DefaultStateTTL) * time.Second
	}

	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if errPing := repository.Ping(ctx, redisClient); errPing != nil {
			logger.Warn().Err(errPing).Msg("Redis unavailable")
		}
	}

	primaryRepo := repository.NewRedisStateRepository(redisClient, ttl)
	fallbackRepo := repository.NewMemoryStateRepository(ttl)
	stateRepo := repository.NewFailoverStateRepository(primaryRepo, fallbackRepo, logger)
	return redisClient, service.NewStateService(stateRepo, logger)
}

func subscribeEvents(bus *events.EventBus, logger *zerolog.Logger) {
	logEvent := func(event *events.Event) error {
		logger.Info().
			Str("event_type", event.Type).
			RawJSON("payload", event.Payload).
			Msg("Domain event")
		return nil
	}

	bus.Subscribe(events.EventCustomerRegistered, logEvent)
	bus.Subscribe(events.EventOrderBooked, logEvent)
	bus.Subscribe(events.EventStatusRequested, logEvent)
	bus.Subscribe(events.EventStatusEmailed, logEvent)
}

func servePrometheus(port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := ":" + strconv.Itoa(port)
	logger.Info().Str("addr", addr).Msg("Prometheus metrics listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("Metrics server error")
	}
}
