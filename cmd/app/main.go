package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram-coin-bot/internal/application"
	"telegram-coin-bot/internal/config"
	"telegram-coin-bot/internal/domain/ports/adapter"
	"telegram-coin-bot/internal/infra/db/postgres"
	"telegram-coin-bot/internal/infra/i18n"
	"telegram-coin-bot/internal/infra/logging"
	"telegram-coin-bot/internal/infra/metrics"
	red "telegram-coin-bot/internal/infra/redis"
	tele "telegram-coin-bot/internal/infra/telegram"
	"telegram-coin-bot/internal/infra/web"
	"telegram-coin-bot/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log)
	metrics.MustRegister()

	// ---- Postgres ----
	if err := postgres.Migrate(cfg.Database.URL); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}
	pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	go postgres.ReportPoolStats(ctx, pool, 15*time.Second)

	// ---- Redis (rate limiting only; the bot runs without it) ----
	var rateLimiter *red.RateLimiter
	if redisClient, err := red.NewClient(ctx, &cfg.Redis); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, rate limiting disabled")
	} else {
		defer redisClient.Close()
		rateLimiter = red.NewRateLimiter(redisClient)
	}

	// ---- Messages ----
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "en")
	if err != nil {
		logger.Fatal().Err(err).Msg("message catalog failed")
	}

	// ---- Repositories ----
	profileRepo := postgres.NewPostgresProfileRepo(pool)
	ledgerRepo := postgres.NewPostgresLedgerRepo(pool)
	tm := postgres.NewTxManager(pool)

	// ---- Use cases ----
	profileUC := usecase.NewProfileUseCase(profileRepo, ledgerRepo, tm, cfg.Coins.StartingBalance, cfg.Coins.ReferralBonus, logger)
	walletUC := usecase.NewWalletUseCase(profileRepo, ledgerRepo, tm, logger)
	statsUC := usecase.NewStatsUseCase(profileRepo, logger)

	// ---- Facade ----
	facade := application.NewBotFacade(profileUC, walletUC, statsUC, tr, cfg.Bot.AdminIDs, cfg.Channel.URL)

	// ---- Telegram ----
	var botAdapter adapter.TelegramBotAdapter
	if cfg.Bot.Token == "" {
		logger.Warn().Msg("BOT_TOKEN not set, using noop telegram adapter")
		botAdapter = tele.NewNoopBotAdapter()
	} else {
		botAdapter, err = tele.NewRealTelegramBotAdapter(cfg, facade, rateLimiter, tr, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram init failed")
		}
	}
	go func() {
		if err := botAdapter.StartPolling(ctx); err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("telegram polling stopped")
		}
	}()

	// ---- Ops HTTP (health, metrics, admin API) ----
	opsSrv := web.NewServer(statsUC, walletUC, cfg.Ops.APIKey, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Ops.Port),
		Handler: opsSrv.Router(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("ops http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("ops http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()
	botAdapter.StopPolling()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
}
