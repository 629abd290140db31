package bot

import (
	"database/sql"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/skalper-bot/trading-bot/internal/bot/handlers"
	errors "github.com/skalper-bot/trading-bot/internal/errors"
	"github.com/skalper-bot/trading-bot/internal/i18n"
	"github.com/skalper-bot/trading-bot/internal/idempotency"
	"github.com/skalper-bot/trading-bot/internal/middleware"
	"github.com/skalper-bot/trading-bot/internal/params"
	"github.com/skalper-bot/trading-bot/internal/pricefeed"
	"github.com/skalper-bot/trading-bot/internal/state"
	"github.com/skalper-bot/trading-bot/internal/subscription"
	"github.com/skalper-bot/trading-bot/internal/trading"
	"github.com/skalper-bot/trading-bot/internal/user"
	"github.com/skalper-bot/trading-bot/pkg/config"
)

// Bot wraps telebot.Bot with application dependencies required for handling updates.
type Bot struct {
	telebot            *telebot.Bot
	db                 *sql.DB
	log                *slog.Logger
	cfg                config.Config
	fsm                state.StateMachine
	rateLimitMw        *middleware.RateLimitMiddleware
	router             *Router
	dispatcher         *Dispatcher
	errHandler         *errors.Handler
	idempotencyManager idempotency.Manager

	users         *user.Service
	trading       *trading.Service
	params        *params.Service
	subscriptions *subscription.Service
	prices        pricefeed.Source
	i18n          *i18n.Manager
}

// Deps bundles the services the bot depends on.
type Deps struct {
	Telebot            *telebot.Bot
	DB                 *sql.DB
	FSM                state.StateMachine
	IdempotencyManager idempotency.Manager
	RateLimitMw        *middleware.RateLimitMiddleware
	Users              *user.Service
	Trading            *trading.Service
	Params             *params.Service
	Subscriptions      *subscription.Service
	Prices             pricefeed.Source
	I18n               *i18n.Manager
}

// NewTelebot builds the underlying telebot instance. It is created separately
// from Bot so collaborators such as the command registry and the notifier can
// share it.
func NewTelebot(cfg config.Config) (*telebot.Bot, error) {
	settings := telebot.Settings{
		Token: cfg.Bot.Token,
	}

	if cfg.Bot.Mode == "webhook" {
		settings.Poller = &telebot.Webhook{
			Listen: cfg.Server.Port,
		}
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: cfg.Bot.Timeout,
		}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	return tb, nil
}

// New assembles the bot around an already constructed telebot instance.
func New(cfg config.Config, log *slog.Logger, deps Deps) (*Bot, error) {
	tb := deps.Telebot
	if tb == nil {
		var err error
		tb, err = NewTelebot(cfg)
		if err != nil {
			return nil, err
		}
	}

	dispatcher := NewDispatcher(deps.FSM, log)
	router := NewRouter(dispatcher, log)
	errHandler := errors.NewHandler(log, cfg.Sentry.Enabled)

	b := &Bot{
		telebot:            tb,
		db:                 deps.DB,
		log:                log,
		cfg:                cfg,
		fsm:                deps.FSM,
		rateLimitMw:        deps.RateLimitMw,
		router:             router,
		dispatcher:         dispatcher,
		errHandler:         errHandler,
		idempotencyManager: deps.IdempotencyManager,
		users:              deps.Users,
		trading:            deps.Trading,
		params:             deps.Params,
		subscriptions:      deps.Subscriptions,
		prices:             deps.Prices,
		i18n:               deps.I18n,
	}

	b.setupRouter()

	if b.rateLimitMw != nil {
		b.telebot.Use(b.rateLimitMw.Handle)
	}

	b.registerTelebotHandlers()

	return b, nil
}

// Start runs the telegram bot event loop.
func (b *Bot) Start() {
	if b.telebot != nil {
		b.telebot.Start()
	}
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	if b.telebot == nil {
		return
	}

	if b.log != nil {
		b.log.Info("stopping telegram bot...")
	}

	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as
// the command registry, notifications, and health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

func (b *Bot) setupRouter() {
	if b.router == nil {
		return
	}

	b.router.Use(RecoveryMiddleware(b.log, b.errHandler))
	b.router.Use(middleware.Idempotency(b.idempotencyManager, b.log))
	b.router.Use(ErrorHandlingMiddleware(b.errHandler))
	b.router.Use(LoggingMiddleware(b.log))
	b.router.Use(AuthMiddleware(b.users, b.log))
	b.router.Use(middleware.Metrics)

	// Open to everyone.
	b.router.RegisterCommand(CommandStart, handlers.NewStartHandler(b.users, b.fsm, b.i18n, b.log))
	b.router.RegisterCommand(CommandHelp, handlers.NewHelpHandler(b.users, b.i18n, b.log))
	b.router.RegisterCommand(CommandCancel, handlers.NewCancelHandler(b.users, b.fsm, b.i18n, b.log))
	b.router.RegisterCommand(CommandSubscription, handlers.NewSubscriptionHandler(b.users, b.subscriptions, b.i18n, b.log))
	b.router.RegisterCommand(CommandLanguage, handlers.NewLanguageHandler(b.users, b.i18n, b.log))

	// Trading commands require a stored API key and an active subscription.
	gate := func(h handlers.Handler) handlers.Handler {
		return b.RegistrationGate(b.SubscriptionGate(h))
	}

	b.router.RegisterCommand(CommandBuy, gate(handlers.NewBuyHandler(b.users, b.fsm, b.i18n, b.log)))
	b.router.RegisterCommand(CommandSell, gate(handlers.NewSellHandler(b.users, b.fsm, b.i18n, b.log)))
	b.router.RegisterCommand(CommandOrders, gate(handlers.NewOrdersHandler(b.users, b.trading, b.i18n, b.log)))
	b.router.RegisterCommand(CommandBalance, gate(handlers.NewBalanceHandler(b.users, b.trading, b.i18n, b.log)))
	b.router.RegisterCommand(CommandPrice, gate(handlers.NewPriceHandler(b.users, b.prices, b.cfg.Trading.Pair, b.i18n, b.log)))
	b.router.RegisterCommand(CommandStats, gate(handlers.NewStatsHandler(b.users, b.trading, b.i18n, b.log)))
	b.router.RegisterCommand(CommandParams, gate(handlers.NewParamsHandler(b.users, b.params, b.fsm, b.i18n, b.log)))
	b.router.RegisterCommand(CommandAutobuy, gate(handlers.NewAutobuyHandler(b.users, b.params, b.i18n, b.log)))

	b.router.RegisterCallback(handlers.CallbackLanguagePrefix, handlers.HandleLanguageSelect(b.users, b.fsm, b.i18n, b.log))
	b.router.RegisterCallback(handlers.CallbackOrderCancelPrefix, handlers.HandleOrderCancel(b.users, b.trading, b.i18n, b.log))
	b.router.RegisterCallback(handlers.CallbackOrdersPagePrefix, handlers.HandleOrdersPage(b.users, b.trading, b.i18n, b.log))
	b.router.RegisterCallback(handlers.CallbackParamPrefix, handlers.HandleParamSelect(b.users, b.params, b.fsm, b.i18n, b.log))
	b.router.RegisterCallback(handlers.CallbackAutobuyPrefix, handlers.HandleAutobuyToggle(b.users, b.params, b.i18n, b.log))
	b.router.RegisterCallback(handlers.CallbackSubscriptionPrefix, handlers.HandleSubscriptionExtend(b.users, b.subscriptions, b.i18n, b.log))

	b.dispatcher.RegisterStateHandler(state.StateAwaitingAPIKey,
		handlers.NewAPIKeyHandler(b.users, b.subscriptions, b.fsm, b.i18n, b.log))
	b.dispatcher.RegisterStateHandler(state.StateBuyAmount,
		handlers.NewBuyAmountHandler(b.users, b.trading, b.fsm, b.i18n, b.log))
	b.dispatcher.RegisterStateHandler(state.StateSellAmount,
		handlers.NewSellAmountHandler(b.users, b.fsm, b.i18n, b.log))
	b.dispatcher.RegisterStateHandler(state.StateSellPrice,
		handlers.NewSellPriceHandler(b.users, b.trading, b.fsm, b.i18n, b.log))
	b.dispatcher.RegisterStateHandler(state.StateParamsValue,
		handlers.NewParamValueHandler(b.users, b.params, b.fsm, b.i18n, b.log))
}

func (b *Bot) registerTelebotHandlers() {
	if b.telebot == nil || b.router == nil {
		return
	}

	b.telebot.Handle(telebot.OnText, b.router.Route)
	b.telebot.Handle(telebot.OnCallback, b.router.Route)
}

func (b *Bot) translate(language, key string) string {
	if b.i18n == nil {
		return key
	}

	return b.i18n.Translator(language).T(key)
}

func languageOf(c telebot.Context) string {
	if c == nil || c.Sender() == nil {
		return ""
	}

	return c.Sender().LanguageCode
}
