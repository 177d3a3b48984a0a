package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/group-travel-bidding/internal/config"
	"github.com/iliyamo/group-travel-bidding/internal/database"
	"github.com/iliyamo/group-travel-bidding/internal/handler"
	"github.com/iliyamo/group-travel-bidding/internal/logging"
	"github.com/iliyamo/group-travel-bidding/internal/middleware"
	"github.com/iliyamo/group-travel-bidding/internal/model"
	"github.com/iliyamo/group-travel-bidding/internal/queue"
	"github.com/iliyamo/group-travel-bidding/internal/repository"
	"github.com/iliyamo/group-travel-bidding/internal/router"
	"github.com/iliyamo/group-travel-bidding/internal/scheduler"
	"github.com/iliyamo/group-travel-bidding/internal/service"
)

var requiredStatuses = []model.StatusCode{
	model.StatusOpen, model.StatusUnderReview, model.StatusApproved, model.StatusRejected,
	model.StatusActive, model.StatusClosed, model.StatusCompleted, model.StatusExpired, model.StatusDraft,
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.Env)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.Open(cfg.DBPool())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db, log); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	store := repository.NewStore(db)
	catalog, err := store.Statuses.LoadCatalog(ctx)
	if err != nil {
		return fmt.Errorf("load status catalog: %w", err)
	}
	if missing := catalog.Missing(requiredStatuses...); len(missing) > 0 {
		return fmt.Errorf("status catalog is missing codes %v", missing)
	}

	rdb := config.NewRedisClient(log)
	if rdb != nil {
		defer rdb.Close()
	}

	cacheCfg := config.LoadCacheConfig()
	opts := service.Options{StatusFallback: cfg.StatusFallbackEnabled}
	if inv := middleware.NewCacheInvalidator(cacheCfg, rdb); inv != nil {
		opts.Cache = inv
	}

	pub := service.NewRabbitPublisher(cfg.RabbitMQURL, cfg.BidEventsQueue, log)
	svc := service.NewBiddingService(store, catalog, pub, service.SimulatedCapturer{}, log, opts)

	if cfg.ConsumerEnable {
		go func() {
			err := queue.StartBidEventConsumer(ctx, queue.ConsumerConfig{
				URL:    cfg.RabbitMQURL,
				Queue:  cfg.BidEventsQueue,
				LogDir: cfg.EventLogDir,
			}, log)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("bid event consumer stopped")
			}
		}()
	}

	var sched *scheduler.Scheduler
	if cfg.SettlementEnabled {
		sched = scheduler.NewScheduler(scheduler.NewJobs(svc, log, cfg.SettlementTimeout), log, cfg.SettlementCron)
		if err := sched.Start(); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLogger(log))
	router.RegisterRoutes(e, router.Deps{
		Bids:      handler.NewBidHandler(svc),
		DB:        db,
		JWTSecret: cfg.JWTSecret,
		Redis:     rdb,
		Cache:     cacheCfg,
		RateLimit: config.LoadRateLimitConfig(),
		Log:       log,
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		log.WithField("signal", s.String()).Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	if sched != nil {
		select {
		case <-sched.Stop().Done():
		case <-shutdownCtx.Done():
			log.Warn("settlement job still running at shutdown")
		}
	}
	cancel()
	return nil
}
