package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sentry "github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/skalper-bot/trading-bot/internal/bot"
	"github.com/skalper-bot/trading-bot/internal/commands"
	"github.com/skalper-bot/trading-bot/internal/database"
	"github.com/skalper-bot/trading-bot/internal/health"
	"github.com/skalper-bot/trading-bot/internal/i18n"
	"github.com/skalper-bot/trading-bot/internal/idempotency"
	"github.com/skalper-bot/trading-bot/internal/jobs"
	jobhandlers "github.com/skalper-bot/trading-bot/internal/jobs/handlers"
	"github.com/skalper-bot/trading-bot/internal/lifecycle"
	"github.com/skalper-bot/trading-bot/internal/middleware"
	"github.com/skalper-bot/trading-bot/internal/notify"
	"github.com/skalper-bot/trading-bot/internal/params"
	"github.com/skalper-bot/trading-bot/internal/pricefeed"
	"github.com/skalper-bot/trading-bot/internal/ratelimit"
	"github.com/skalper-bot/trading-bot/internal/repository"
	"github.com/skalper-bot/trading-bot/internal/state"
	"github.com/skalper-bot/trading-bot/internal/subscription"
	"github.com/skalper-bot/trading-bot/internal/trading"
	"github.com/skalper-bot/trading-bot/internal/user"
	"github.com/skalper-bot/trading-bot/pkg/config"
	"github.com/skalper-bot/trading-bot/pkg/graceful"
	"github.com/skalper-bot/trading-bot/pkg/logger"
	"github.com/skalper-bot/trading-bot/pkg/metrics"
	appredis "github.com/skalper-bot/trading-bot/pkg/redis"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	_ "github.com/lib/pq"
)

const (
	stateTTL             = 24 * time.Hour
	stateCleanupInterval = time.Hour
	idempotencyCleanup   = 10 * time.Minute
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.New(*cfg)
	slog.SetDefault(log)

	log.Info("starting trading bot",
		slog.String("env", cfg.AppEnv),
		slog.String("mode", cfg.Bot.Mode),
		slog.String("http_port", cfg.Server.Port))

	config.Watch(v, log, func(updated config.Config) {
		logger.SetLevel(updated.Logger.Level)
		log.Info("configuration reloaded", slog.String("log_level", updated.Logger.Level))
	})

	if cfg.Sentry.Enabled {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			TracesSampleRate: cfg.Sentry.SampleRate,
		})
		if err != nil {
			log.Error("failed to initialize sentry", slog.Any("error", err))
			os.Exit(1)
		}
		defer sentry.Flush(2 * time.Second)
	}

	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		log.Error("database setup failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Error("error closing database", slog.Any("error", cerr))
		}
	}()

	redisClient, err := appredis.New(ctx, appredis.Config{
		Addr:            cfg.Redis.Addr,
		Password:        cfg.Redis.Password,
		DB:              cfg.Redis.DB,
		PoolSize:        cfg.Redis.PoolSize,
		MinIdleConns:    cfg.Redis.MinIdleConns,
		PoolTimeout:     cfg.Redis.PoolTimeout,
		IdleTimeout:     cfg.Redis.IdleTimeout,
		MaxRetries:      cfg.Redis.MaxRetries,
		MinRetryBackoff: cfg.Redis.MinRetryBackoff,
		MaxRetryBackoff: cfg.Redis.MaxRetryBackoff,
	})
	if err != nil {
		log.Error("failed to connect to redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if cerr := redisClient.Close(); cerr != nil {
			log.Error("error closing redis", slog.Any("error", cerr))
		}
	}()

	translations, err := i18n.Load(cfg.Bot.Language)
	if err != nil {
		log.Error("failed to load translations", slog.Any("error", err))
		os.Exit(1)
	}

	staticPrice, err := decimal.NewFromString(cfg.Trading.StaticPrice)
	if err != nil {
		log.Error("invalid static price", slog.String("value", cfg.Trading.StaticPrice), slog.Any("error", err))
		os.Exit(1)
	}
	startingQuote, err := decimal.NewFromString(cfg.Trading.StartingQuote)
	if err != nil {
		log.Error("invalid starting quote", slog.String("value", cfg.Trading.StartingQuote), slog.Any("error", err))
		os.Exit(1)
	}

	// State machine and conversation storage.
	stateStorage := state.NewRedisStorage(redisClient.Client, log)
	fsm := state.NewStateMachine(stateStorage, log, redisClient.Client)
	stateCleaner := state.NewCleaner(redisClient.Client, stateStorage, log, stateTTL, stateCleanupInterval)
	go stateCleaner.Run(ctx)

	// Domain services.
	userRepo := repository.NewUserRepository(db, log)
	paramsRepo := repository.NewParamsRepository(db, log)
	ledgerStore := repository.NewLedgerStore(db, log)

	priceCache := appredis.NewMetricsClient(redisClient)
	prices := pricefeed.NewCached(pricefeed.NewStatic(staticPrice), priceCache, 5*time.Second, log)
	userService := user.NewService(userRepo, log)
	paramsService := params.NewService(paramsRepo, log)
	tradingService := trading.NewService(ledgerStore, prices, trading.Config{
		Pair:          cfg.Trading.Pair,
		StartingQuote: startingQuote,
	}, log)

	tb, err := bot.NewTelebot(*cfg)
	if err != nil {
		log.Error("failed to initialize telegram bot", slog.Any("error", err))
		os.Exit(1)
	}

	registry := commands.NewRegistry(tb, translations, log)
	notifier := notify.NewTelegramNotifier(tb, translations, log)
	subscriptionService := subscription.NewService(userRepo, registry, notifier, subscription.Config{
		TrialDays:  cfg.Subscription.TrialDays,
		ExtendDays: cfg.Subscription.ExtendDays,
		WarnDays:   cfg.Subscription.WarnDays,
	}, log)
	sweeper := subscription.NewSweeper(subscriptionService, log)

	// Rate limiting and idempotency.
	limiter := ratelimit.NewRedisLimiter(redisClient.Client, log)
	rules := ratelimit.NewRules(cfg.RateLimit)
	rateLimitMw := middleware.NewRateLimitMiddleware(limiter, rules, log)

	idempotencyStore := idempotency.NewRedisStore(redisClient.Client, log)
	idempotencyManager := idempotency.NewManager(idempotencyStore, log)
	idempotencyCleaner := idempotency.NewCleaner(redisClient.Client, log, idempotencyCleanup)
	go idempotencyCleaner.Run(ctx)

	tradingBot, err := bot.New(*cfg, log, bot.Deps{
		Telebot:            tb,
		DB:                 db,
		FSM:                fsm,
		IdempotencyManager: idempotencyManager,
		RateLimitMw:        rateLimitMw,
		Users:              userService,
		Trading:            tradingService,
		Params:             paramsService,
		Subscriptions:      subscriptionService,
		Prices:             prices,
		I18n:               translations,
	})
	if err != nil {
		log.Error("failed to assemble bot", slog.Any("error", err))
		os.Exit(1)
	}

	// Background jobs: daily subscription sweep.
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	worker := jobs.NewWorker(redisOpt, jobs.Queues(), log)
	worker.RegisterHandler(jobs.TaskTypeSubscriptionSweep, jobhandlers.NewSubscriptionSweepHandler(sweeper, log))
	go func() {
		if err := worker.Run(); err != nil {
			log.Error("jobs worker stopped", slog.Any("error", err))
		}
	}()

	// Catch up on expiries missed while the bot was down.
	queue := jobs.NewManager(redisOpt, log)
	defer func() {
		if cerr := queue.Close(); cerr != nil {
			log.Error("error closing job queue", slog.Any("error", cerr))
		}
	}()
	if task, terr := jobs.NewSubscriptionSweepTask(); terr == nil {
		if _, qerr := queue.Enqueue(ctx, task); qerr != nil {
			log.Warn("failed to enqueue startup sweep", slog.Any("error", qerr))
		}
	}

	scheduler := jobs.NewScheduler(redisOpt, cfg.Subscription.SweepCron, log)
	if err := scheduler.RegisterTasks(); err != nil {
		log.Error("failed to register scheduled tasks", slog.Any("error", err))
		os.Exit(1)
	}
	scheduler.Run()

	// Metrics and health endpoints.
	stateCollector := metrics.NewStateCollector(fsm)
	go stateCollector.Run(ctx)

	checker := health.NewChecker(log)
	checker.AddCheck("database", health.NewDBChecker(db))
	checker.AddCheck("redis", health.NewRedisChecker(redisClient.Client))
	checker.AddCheck("telegram", health.NewTelegramChecker(tb))

	httpServer := newHTTPServer(cfg.Server.Port, checker, log)
	go func() {
		if err := graceful.NewServer(log, httpServer, cfg.Server.ShutdownTimeout).ListenAndServe(ctx); err != nil {
			log.Error("http server stopped", slog.Any("error", err))
		}
	}()

	go tradingBot.Start()
	log.Info("trading bot is running")

	<-ctx.Done()

	shutdown := lifecycle.NewShutdown(log)
	shutdown.Register("telegram", func(context.Context) error {
		tradingBot.Stop()
		return nil
	})
	shutdown.Register("scheduler", func(context.Context) error {
		scheduler.Shutdown()
		return nil
	})
	shutdown.Register("worker", func(context.Context) error {
		worker.Shutdown()
		return nil
	})

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := shutdown.Execute(shutdownCtx); err != nil {
		log.Error("shutdown finished with errors", slog.Any("error", err))
	}

	log.Info("trading bot stopped")
}

func openDatabase(ctx context.Context, cfg *config.Config, log *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(db, log)
	if err := migrator.ApplyDir(ctx, "migrations"); err != nil {
		return nil, err
	}

	return db, nil
}

func newHTTPServer(port string, checker *health.Checker, log *slog.Logger) *http.Server {
	if port == "" {
		port = "8080"
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		results := checker.Check(r.Context())

		code := http.StatusOK
		for _, result := range results {
			if result != "OK" {
				code = http.StatusServiceUnavailable
				break
			}
		}

		w.WriteHeader(code)
		for name, result := range results {
			_, _ = w.Write([]byte(name + ": " + result + "\n"))
		}
	})

	return &http.Server{
		Addr:              ":" + port,
		Handler:           logger.Middleware(middleware.New(log)(mux)),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
