package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"telegram-channel-relay/internal/application"
	"telegram-channel-relay/internal/config"
	"telegram-channel-relay/internal/domain/ports/adapter"
	httpapi "telegram-channel-relay/internal/infra/http"
	"telegram-channel-relay/internal/infra/i18n"
	"telegram-channel-relay/internal/infra/logging"
	"telegram-channel-relay/internal/infra/metrics"
	red "telegram-channel-relay/internal/infra/redis"
	"telegram-channel-relay/internal/infra/sched"
	"telegram-channel-relay/internal/infra/storage"
	tele "telegram-channel-relay/internal/infra/telegram"
	"telegram-channel-relay/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file (optional)")
	devMode := flag.Bool("dev", false, "console logs; without a token, use the noop bot")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	mainLog := logging.Component(logger, "main")
	if cfg.Runtime.Dev {
		mainLog.Warn().Msg("[DEV MODE] Enabled")
	}
	mainLog.Info().
		Str("version", version).
		Str("store", cfg.Store.Driver).
		Str("token", logging.Redact(cfg.Bot.Token, cfg.Runtime.Dev)).
		Dur("interval", cfg.Relay.Interval).
		Int("fetch_limit", cfg.Relay.FetchLimit).
		Msg("starting relay")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister(nil)
	metrics.SetBuildInfo(version, commit)

	// ---- Store ----
	backend, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		mainLog.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("store")
	}
	defer func() {
		if err := backend.Close(); err != nil {
			mainLog.Error().Err(err).Msg("close store")
		}
	}()

	// ---- Redis: command rate limit and tick lock ----
	var (
		rateLimiter *red.RateLimiter
		tickLocker  *red.Locker
	)
	if rc := redisClient(ctx, cfg, backend, logger); rc != nil {
		rateLimiter = red.NewRateLimiter(rc, cfg.Redis.KeyPrefix)
		tickLocker = red.NewLocker(rc, cfg.Redis.KeyPrefix)
	}

	// ---- Use cases ----
	registryUC := usecase.NewRegistryUseCase(backend.Store, backend.Store, logger)
	seedBindings(ctx, registryUC, cfg.Relay.Bindings, logger)

	// ---- Telegram ----
	tr, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Bot.Lang)
	if err != nil {
		mainLog.Warn().Err(err).Str("lang", cfg.Bot.Lang).Msg("locale not found, using default")
		if tr, err = i18n.NewTranslator(i18n.LocalesFS, i18n.DefaultLang); err != nil {
			mainLog.Fatal().Err(err).Msg("i18n")
		}
	}
	mainLog.Info().Str("lang", tr.Lang()).Msg("bot replies language")
	feed, err := tele.NewChannelFeed(cfg.Bot.FeedWindow, cfg.Bot.FeedChannels, logger)
	if err != nil {
		mainLog.Fatal().Err(err).Msg("channel feed")
	}

	var (
		bot    adapter.TelegramBotAdapter
		poller *tele.RealTelegramBotAdapter
	)
	if cfg.Runtime.Dev && cfg.Bot.Token == "" {
		bot = tele.NewNoopBotAdapter(feed, logger)
	} else {
		poller, err = tele.NewRealTelegramBotAdapter(&cfg.Bot, feed, tr, rateLimiter, logger)
		if err != nil {
			mainLog.Fatal().Err(err).Msg("telegram")
		}
		poller.SetFacade(application.NewBotFacade(registryUC, poller, tr, logger))
		bot = poller
	}

	forwardUC := usecase.NewForwardUseCase(backend.Store, backend.Store, bot, cfg.Relay.FetchLimit, logger)
	worker := sched.NewForwardWorker(cfg.Relay.Interval, forwardUC, logger)
	if tickLocker != nil {
		worker.WithLocker(tickLocker)
	}

	// ---- HTTP ----
	servers := []*httpapi.Server{
		httpapi.NewServer("probe", cfg.HTTP.Port, httpapi.NewProbeRouter(logger), logger),
	}
	if cfg.Admin.Port > 0 {
		servers = append(servers, httpapi.NewServer("admin", cfg.Admin.Port, httpapi.NewAdminRouter(nil, logger), logger))
	}
	for _, s := range servers {
		go func(s *httpapi.Server) {
			if err := s.Start(); err != nil {
				mainLog.Error().Err(err).Msg("http server stopped")
				stop()
			}
		}(s)
	}

	// ---- Background tasks ----
	var wg sync.WaitGroup
	if poller != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := poller.StartPolling(ctx); err != nil && ctx.Err() == nil {
				mainLog.Error().Err(err).Msg("telegram polling stopped")
				stop()
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = worker.Run(ctx)
	}()

	// ---- Graceful shutdown ----
	<-ctx.Done()
	mainLog.Info().Msg("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, s := range servers {
		if err := s.Shutdown(shutdownCtx); err != nil {
			mainLog.Warn().Err(err).Msg("http shutdown")
		}
	}
	wg.Wait()
	mainLog.Info().Msg("bye")
}

// redisClient reuses the store's Redis client, or dials REDIS_URL when another
// driver is in use. Without Redis, commands are not rate limited and ticks are not locked.
func redisClient(ctx context.Context, cfg *config.Config, backend *storage.Backend, logger *zerolog.Logger) red.RedisClient {
	if backend.Redis != nil {
		return backend.Redis
	}
	if cfg.Redis.URL == "" {
		return nil
	}
	cli, err := red.NewClient(ctx, &cfg.Redis, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, rate limit and tick lock disabled")
		return nil
	}
	backend.Redis = cli
	return cli
}

// seedBindings applies the bindings from config. Invalid entries are logged and skipped.
func seedBindings(ctx context.Context, registry usecase.RegistryUseCase, seeds []config.SeedBinding, logger *zerolog.Logger) {
	for _, s := range seeds {
		channel := strings.TrimPrefix(strings.TrimSpace(s.Channel), "@")
		if _, err := registry.Bind(ctx, s.GroupID, channel); err != nil {
			logger.Error().Err(err).Int64("group_id", s.GroupID).Str("channel", s.Channel).Msg("seed binding skipped")
		}
	}
}
