package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	authhandler "taptrail/internal/auth/handler"
	authservice "taptrail/internal/auth/service"
	authstore "taptrail/internal/auth/store"
	ledgerstore "taptrail/internal/ledger/store"
	overridehandler "taptrail/internal/override/handler"
	overrideservice "taptrail/internal/override/service"
	overridestore "taptrail/internal/override/store"
	"taptrail/internal/platform/config"
	"taptrail/internal/platform/httpserver"
	"taptrail/internal/platform/logger"
	platformpostgres "taptrail/internal/platform/postgres"
	platformredis "taptrail/internal/platform/redis"
	"taptrail/internal/reports/cache"
	reportshandler "taptrail/internal/reports/handler"
	reportsmetrics "taptrail/internal/reports/metrics"
	reportsservice "taptrail/internal/reports/service"
	"taptrail/internal/reports/warmer"
	scanhandler "taptrail/internal/scan/handler"
	scanmetrics "taptrail/internal/scan/metrics"
	scanservice "taptrail/internal/scan/service"
	schedulehandler "taptrail/internal/schedule/handler"
	scheduleservice "taptrail/internal/schedule/service"
	schedulestore "taptrail/internal/schedule/store"
	subjecthandler "taptrail/internal/subject/handler"
	subjectservice "taptrail/internal/subject/service"
	subjectstore "taptrail/internal/subject/store"
	httptransport "taptrail/internal/transport/http"
	"taptrail/pkg/platform/audit/publisher"
)

// main wires stores, services and the HTTP surface. Business logic lives in
// the internal service packages; this stays assembly only.
func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

type stores struct {
	subjects  subjectstore.SubjectStore
	events    ledgerstore.EventStore
	schedules schedulestore.ScheduleStore
	overrides overridestore.OverrideStore
	users     authstore.UserStore
}

func run(log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st stores
	var health *httptransport.Health
	if cfg.DatabaseURL != "" {
		pool, err := platformpostgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		st = stores{
			subjects:  subjectstore.NewPostgres(pool),
			events:    ledgerstore.NewPostgres(pool),
			schedules: schedulestore.NewPostgres(pool),
			overrides: overridestore.NewPostgres(pool),
			users:     authstore.NewPostgres(pool),
		}
		health = httptransport.NewHealth(st.subjects, st.events, st.schedules, log)
		health.AddProbe("postgres", pool)
		log.Info("using postgres stores")
	} else {
		st = stores{
			subjects:  subjectstore.NewInMemory(),
			events:    ledgerstore.NewInMemory(),
			schedules: schedulestore.NewInMemory(),
			overrides: overridestore.NewInMemory(),
			users:     authstore.NewInMemory(),
		}
		health = httptransport.NewHealth(st.subjects, st.events, st.schedules, log)
		log.Warn("no database configured, using in-memory stores")
	}

	rdb, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		health.AddProbe("redis", httptransport.PingerFunc(rdb.Health))
	}
	statsCache := cache.New(rdb, cfg.StatsCacheTTL, log)

	var emitter publisher.Emitter = publisher.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := publisher.NewKafka(ctx, publisher.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.AuditTopic,
		}, log)
		if err != nil {
			return err
		}
		defer kafka.Close()
		emitter = kafka
	}

	authSvc, err := authservice.New(st.users, cfg.JWTSigningKey,
		authservice.WithLogger(log),
		authservice.WithTokenTTL(cfg.TokenTTL),
	)
	if err != nil {
		return err
	}
	if err := authSvc.Bootstrap(ctx, cfg.BootstrapEmail, cfg.BootstrapPassword); err != nil {
		return err
	}

	scanSvc := scanservice.New(st.subjects, st.events, st.schedules,
		scanservice.WithLogger(log),
		scanservice.WithMetrics(scanmetrics.New()),
		scanservice.WithAuditEmitter(emitter),
		scanservice.WithStatsInvalidator(statsCache),
		scanservice.WithBounceWindow(cfg.BounceWindow),
		scanservice.WithLockWait(cfg.LockWait),
	)
	reportsSvc := reportsservice.New(st.events, st.subjects, st.schedules, st.overrides,
		reportsservice.WithLogger(log),
		reportsservice.WithMetrics(reportsmetrics.New()),
		reportsservice.WithStatsCache(statsCache),
	)
	subjectSvc := subjectservice.New(st.subjects,
		subjectservice.WithLogger(log),
		subjectservice.WithAuditEmitter(emitter),
	)
	scheduleSvc := scheduleservice.New(st.schedules,
		scheduleservice.WithLogger(log),
		scheduleservice.WithAuditEmitter(emitter),
	)
	overrideSvc := overrideservice.New(st.overrides, st.subjects,
		overrideservice.WithLogger(log),
		overrideservice.WithAuditEmitter(emitter),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:    log,
		Validator: authSvc,
		Auth:      authhandler.New(authSvc, log),
		Scan:      scanhandler.New(scanSvc, log),
		Reports:   reportshandler.New(reportsSvc, log),
		Subjects:  subjecthandler.New(subjectSvc, log),
		Schedule:  schedulehandler.New(scheduleSvc, log),
		Overrides: overridehandler.New(overrideSvc, log),
		Health:    health,
	})

	if cfg.WarmSchedule != "" && rdb != nil {
		warm, err := warmer.New(reportsSvc, cfg.WarmSchedule, log)
		if err != nil {
			return err
		}
		warm.Refresh(ctx)
		warm.Start()
		defer warm.Stop()
	}

	srv := httpserver.New(cfg.Addr, router)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("taptrail listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
