// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram-pix-subscription/internal/application"
	"telegram-pix-subscription/internal/config"
	"telegram-pix-subscription/internal/domain/model"
	"telegram-pix-subscription/internal/domain/ports/adapter"
	pg "telegram-pix-subscription/internal/infra/db/postgres"
	"telegram-pix-subscription/internal/infra/logging"
	"telegram-pix-subscription/internal/infra/metrics"
	pay "telegram-pix-subscription/internal/infra/payment"
	red "telegram-pix-subscription/internal/infra/redis"
	"telegram-pix-subscription/internal/infra/sched"
	tele "telegram-pix-subscription/internal/infra/telegram"
	"telegram-pix-subscription/internal/infra/web"
	"telegram-pix-subscription/internal/infra/worker"
	"telegram-pix-subscription/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop Telegram adapter, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Plans ----
	plans := model.DefaultPlans()
	if len(cfg.Plans) > 0 {
		plans = plans[:0]
		for _, pc := range cfg.Plans {
			p, err := model.NewPlan(pc.Code, pc.Name, pc.DurationDays, pc.AmountCents, pc.Renewal)
			if err != nil {
				log.Fatalf("plans: %v", err)
			}
			plans = append(plans, p)
		}
	}
	planTable := model.NewPlanTable(plans)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	payRepo := pg.NewPaymentRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	txm := pg.NewTxManager(pool)

	// ---- Payment gateway ----
	gateway := pay.NewMercadoPagoGateway(
		cfg.Payment.MercadoPago.AccessToken,
		cfg.Payment.MercadoPago.WebhookURL,
		cfg.Payment.MercadoPago.Timeout,
	)

	// ---- Telegram adapter ----
	var notifier adapter.Notifier
	var enforcer adapter.AccessEnforcer
	var realBot *tele.RealBotAdapter
	if cfg.Runtime.Dev {
		noop := tele.NewNoopBotAdapter(logger)
		notifier, enforcer = noop, noop
	} else {
		realBot, err = tele.NewRealBotAdapter(&cfg.Bot, logger)
		if err != nil {
			log.Fatalf("telegram: %v", err)
		}
		notifier, enforcer = realBot, realBot
	}

	// ---- Use cases ----
	reconcileUC := usecase.NewReconcileUseCase(
		payRepo, subRepo, planTable, gateway, txm, locker,
		notifier, enforcer, cfg.Redis.LockTTL, logger,
	)
	purchaseUC := usecase.NewPurchaseUseCase(
		payRepo, subRepo, planTable, gateway, txm, reconcileUC,
		cfg.Payment.MercadoPago.PayerEmail, logger,
	)
	sweepUC := usecase.NewSweepUseCase(
		subRepo, planTable, txm, notifier, enforcer,
		cfg.Sweeper.RenewalWindow, cfg.Sweeper.BatchLimit, logger,
	)
	statsUC := usecase.NewStatsUseCase(subRepo, payRepo)

	// ---- Facade + polling ----
	facade := application.NewBotFacade(purchaseUC, planTable)
	if realBot != nil {
		realBot.SetFacade(facade)
		go func() {
			if err := realBot.StartPolling(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("telegram polling stopped")
			}
		}()
	}

	// ---- Webhook worker pool ----
	reconcilePool := worker.NewPool(cfg.Web.WebhookWorker, cfg.Web.WebhookQueue, reconcileUC, logger)
	reconcilePool.Start(ctx)
	defer reconcilePool.Stop()

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Web.AdminSecret, cfg.Web.SecureCookies, cfg.Web.AdminTTL)
	srv := web.NewServer(reconcilePool, statsUC, auth, cfg.Web.AdminSecret, cfg.Payment.MercadoPago.WebhookSecret, logger)
	go func() {
		if err := srv.Start(cfg.Web.Port); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	// ---- Background workers ----
	sweeper := sched.NewSweepWorker(cfg.Sweeper.Interval, sweepUC, logger)
	go func() { _ = sweeper.Run(ctx) }()

	reconciler := sched.NewPaymentReconciler(reconcileUC, payRepo, cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, logger)
	go func() { _ = reconciler.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
}
