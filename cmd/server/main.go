package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/mamadbah2/shiftlog/internal/config"
	"github.com/mamadbah2/shiftlog/internal/domain/models"
	"github.com/mamadbah2/shiftlog/internal/metrics"
	"github.com/mamadbah2/shiftlog/internal/repository"
	"github.com/mamadbah2/shiftlog/internal/repository/mongodb"
	"github.com/mamadbah2/shiftlog/internal/scheduler"
	"github.com/mamadbah2/shiftlog/internal/server/handlers"
	"github.com/mamadbah2/shiftlog/internal/server/router"
	deletionsvc "github.com/mamadbah2/shiftlog/internal/service/deletion"
	entrysvc "github.com/mamadbah2/shiftlog/internal/service/entry"
	notifysvc "github.com/mamadbah2/shiftlog/internal/service/notify"
	reportingsvc "github.com/mamadbah2/shiftlog/internal/service/reporting"
	"github.com/mamadbah2/shiftlog/internal/service/shift"
	whatsappclient "github.com/mamadbah2/shiftlog/pkg/clients/whatsapp"
	"github.com/mamadbah2/shiftlog/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	loc, err := cfg.Plant.Location()
	if err != nil {
		baseLogger.Fatal("invalid plant time zone", zap.Error(err))
	}
	roster, err := models.NewRoster(cfg.Plant.Machines)
	if err != nil {
		baseLogger.Fatal("invalid machine roster", zap.Error(err))
	}
	parser := shift.NewParser(loc)

	store, closeStore, err := repository.Open(context.Background(), cfg.Store, cfg.Sheets, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to init record store", zap.Error(err))
	}
	defer func() {
		if err := closeStore(); err != nil {
			baseLogger.Error("failed to close record store", zap.Error(err))
		}
	}()
	baseLogger.Info("record store ready", zap.String("backend", cfg.Store.Backend))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder, err := metrics.NewPrometheus(registry)
	if err != nil {
		baseLogger.Fatal("failed to register metrics", zap.Error(err))
	}

	entrySvc := entrysvc.NewService(store, roster, parser, recorder, baseLogger.Named("svc.entry"))
	deletionSvc := deletionsvc.NewService(store, parser, recorder, baseLogger.Named("svc.deletion"))
	reportingSvc := reportingsvc.NewService(store, roster, parser, baseLogger.Named("svc.reporting"))

	// Optional sinks stay nil interfaces when not configured.
	var (
		archive        scheduler.Archive
		reportArchive  handlers.ReportArchive
		notifier       scheduler.Notifier
		reportNotifier handlers.ReportNotifier
	)

	if cfg.MongoDB.URI != "" {
		connectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		mongoRepo, err := mongodb.NewMongoDBRepository(connectCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		cancel()
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		archive, reportArchive = mongoRepo, mongoRepo
		baseLogger.Info("shift report archive enabled", zap.String("db", cfg.MongoDB.DBName))
	} else {
		baseLogger.Warn("mongodb uri missing, shift report archive disabled")
	}

	if cfg.WhatsApp.Enabled() {
		notifySvc := notifysvc.NewService(whatsappclient.NewClient(cfg.WhatsApp), cfg.WhatsApp.ReportTo, baseLogger.Named("svc.notify"))
		notifier, reportNotifier = notifySvc, notifySvc
		baseLogger.Info("whatsapp shift reports enabled")
	} else {
		baseLogger.Warn("whatsapp credentials missing, shift report delivery disabled")
	}

	engine := router.New(router.Handlers{
		Entries: handlers.NewEntryHandler(entrySvc, baseLogger.Named("handlers.entry")),
		Tables:  handlers.NewTableHandler(deletionSvc, baseLogger.Named("handlers.tables")),
		Reports: handlers.NewReportHandler(reportingSvc, reportArchive, reportNotifier, baseLogger.Named("handlers.reports")),
	}, registry, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(cfg.Reporting, loc, reportingSvc, archive, notifier, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("timezone", loc.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
